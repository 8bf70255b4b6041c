package core

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/zeu5/pacman-adapter/engine"
	"github.com/zeu5/pacman-adapter/policystore"
)

var (
	ErrInterrupted = errors.New("interrupted")
	ErrNoOutcome   = errors.New("engine returned no outcome")
)

// ProgressFunc receives a status line before each episode.
type ProgressFunc func(string)

// Orchestrator drives the learn/test loop over a fixed team. It runs on a
// single goroutine and addresses agents strictly one at a time.
type Orchestrator struct {
	Team     *Team
	Store    *policystore.Store
	Engine   engine.Engine
	Layout   *engine.Layout
	Display  engine.Display
	Results  Recorder
	Progress ProgressFunc

	analyzers map[string]Analyzer
	logger    zerolog.Logger
}

func NewOrchestrator(team *Team, store *policystore.Store, eng engine.Engine, layout *engine.Layout, display engine.Display, results Recorder) *Orchestrator {
	return &Orchestrator{
		Team:      team,
		Store:     store,
		Engine:    eng,
		Layout:    layout,
		Display:   display,
		Results:   results,
		analyzers: make(map[string]Analyzer),
		logger:    log.With().Str("component", "orchestrator").Logger(),
	}
}

func (o *Orchestrator) AddAnalyzer(name string, a Analyzer) {
	o.analyzers[name] = a
}

// Run plays cfg.Total() episodes. Policies are extracted and persisted only
// after the last episode; any failure before that leaves the store on disk
// untouched.
func (o *Orchestrator) Run(ctx context.Context, cfg *RunConfig) (*Report, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if o.Store == nil {
		o.Store, _ = policystore.Open("")
	}
	// a blocked Receive only returns once its channel is closed
	stop := context.AfterFunc(ctx, func() { o.Team.Close() })
	defer stop()

	for _, a := range o.analyzers {
		a.Reset()
	}
	for _, a := range o.Team.Learning() {
		o.Results.Track(a.ID())
	}

	testMode := false
	total := cfg.Total()
	o.logger.Info().
		Int("learn", cfg.LearnEpisodes).
		Int("test", cfg.TestEpisodes).
		Str("layout", o.Layout.Name).
		Str("store", o.Store.State().String()).
		Msg("starting run")

EpisodeLoop:
	for i := 0; i < total; i++ {
		select {
		case <-ctx.Done():
			break EpisodeLoop
		default:
		}

		eCtx := newEpisodeContext(ctx, cfg, i, o.Layout.Width, o.Layout.Height)
		if o.Progress != nil {
			o.Progress(eCtx.Progress())
		}

		if eCtx.Phase == PhaseTest && !testMode {
			if err := o.enableTestMode(); err != nil {
				if ctx.Err() != nil {
					break EpisodeLoop
				}
				return nil, err
			}
			testMode = true
		}

		outcome, err := o.runEpisode(eCtx)
		if err != nil {
			if ctx.Err() != nil {
				break EpisodeLoop
			}
			return nil, fmt.Errorf("episode %d: %w", i, err)
		}

		for _, a := range o.analyzers {
			a.Analyze(eCtx, outcome)
		}
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInterrupted, err)
	}

	if err := o.extractPolicies(); err != nil {
		return nil, err
	}
	if err := o.Store.Persist(); err != nil {
		return nil, err
	}

	report := &Report{Episodes: total, Datasets: make(map[string]DataSet)}
	for name, a := range o.analyzers {
		report.Datasets[name] = a.DataSet()
	}
	return report, nil
}

func (o *Orchestrator) enableTestMode() error {
	for _, a := range o.Team.All() {
		if err := a.EnableTestMode(); err != nil {
			return fmt.Errorf("enable test mode: %w", err)
		}
	}
	o.logger.Info().Msg("test mode enabled")
	return nil
}

func (o *Orchestrator) runEpisode(eCtx *EpisodeContext) (*engine.Outcome, error) {
	for _, a := range o.Team.All() {
		if err := a.StartEpisode(eCtx.Width, eCtx.Height); err != nil {
			return nil, err
		}
	}

	if o.Store.Loaded() {
		for _, a := range o.Team.Learning() {
			blob, ok := o.Store.Lookup(a.ID())
			if !ok {
				continue
			}
			if err := a.LoadPolicy(blob); err != nil {
				return nil, err
			}
		}
	}

	outcomes, err := o.Engine.RunEpisodes(eCtx.Context, o.Layout, o.Team.Controller, o.Team.participants(), o.Display, 1)
	if err != nil {
		return nil, err
	}
	if len(outcomes) == 0 {
		return nil, ErrNoOutcome
	}
	outcome := outcomes[0]

	for _, a := range o.Team.All() {
		if err := a.Notify(outcome.State); err != nil {
			return nil, err
		}
	}

	for _, a := range o.Team.Learning() {
		counts, err := a.BehaviorCount()
		if err != nil {
			return nil, err
		}
		o.logger.Debug().Int("agent", a.ID()).Interface("count", counts).Msg("behavior count")
		labels := make([]string, 0, len(counts))
		for label := range counts {
			labels = append(labels, label)
		}
		sort.Strings(labels)
		for _, label := range labels {
			o.Results.RecordBehavior(a.ID(), label, counts[label])
		}
	}

	o.Results.RecordScore(eCtx.Phase, outcome.Score)
	o.logger.Debug().
		Int("episode", eCtx.Episode).
		Str("phase", string(eCtx.Phase)).
		Float64("score", outcome.Score).
		Bool("won", outcome.Won).
		Msg("episode done")
	return outcome, nil
}

// extractPolicies pulls the learned policies into the store. Without a
// configured path there is nothing to persist, so agents are not asked.
func (o *Orchestrator) extractPolicies() error {
	if !o.Store.Configured() {
		return nil
	}
	for _, a := range o.Team.Learning() {
		blob, err := a.RequestPolicy()
		if err != nil {
			return fmt.Errorf("request policy: %w", err)
		}
		o.Store.Update(a.ID(), blob)
	}
	return nil
}
