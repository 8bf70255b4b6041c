package core

import (
	"context"
	"fmt"
)

// EpisodeContext describes the episode currently being played.
type EpisodeContext struct {
	Context context.Context
	// Episode is the global index in [0, learn+test)
	Episode int
	// PhaseEpisode counts from zero within the phase
	PhaseEpisode int
	PhaseTotal   int
	Phase        Phase

	Width  int
	Height int
}

func newEpisodeContext(ctx context.Context, cfg *RunConfig, episode, width, height int) *EpisodeContext {
	phase := cfg.PhaseOf(episode)
	e := &EpisodeContext{
		Context: ctx,
		Episode: episode,
		Phase:   phase,
		Width:   width,
		Height:  height,
	}
	if phase == PhaseLearn {
		e.PhaseEpisode = episode
		e.PhaseTotal = cfg.LearnEpisodes
	} else {
		e.PhaseEpisode = episode - cfg.LearnEpisodes
		e.PhaseTotal = cfg.TestEpisodes
	}
	return e
}

// Progress is the one-line status shown while running.
func (e *EpisodeContext) Progress() string {
	label := "LEARN"
	if e.Phase == PhaseTest {
		label = "TEST"
	}
	return fmt.Sprintf("%s Game %d (of %d)", label, e.PhaseEpisode+1, e.PhaseTotal)
}
