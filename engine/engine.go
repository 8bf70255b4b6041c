package engine

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
)

var ErrIllegalAction = errors.New("illegal action")

// DefaultMaxTurns bounds an episode that never reaches a terminal state.
const DefaultMaxTurns = 1000

// Participant is a turn-taking player. Act blocks until a decision is made.
type Participant interface {
	ID() int
	Act(context.Context, *Observation) (Direction, error)
}

// Display renders a running episode or ignores it.
type Display interface {
	Initialize(*State)
	Update(*State)
	Finish()
}

// Outcome is the terminal result of one episode.
type Outcome struct {
	State *State
	Score float64
	Won   bool
	Turns int
	Trace *Trace
}

// Engine runs episodes between one controller and its adversaries.
type Engine interface {
	RunEpisodes(ctx context.Context, layout *Layout, controller Participant, adversaries []Participant, display Display, repeat int) ([]*Outcome, error)
}

// GridEngine is the built-in rules implementation.
type GridEngine struct {
	MaxTurns int
}

var _ Engine = &GridEngine{}

func NewGridEngine() *GridEngine {
	return &GridEngine{MaxTurns: DefaultMaxTurns}
}

func (e *GridEngine) RunEpisodes(ctx context.Context, layout *Layout, controller Participant, adversaries []Participant, display Display, repeat int) ([]*Outcome, error) {
	if len(adversaries) != layout.Adversaries() {
		return nil, fmt.Errorf("layout %q has %d adversary starts, got %d adversaries", layout.Name, layout.Adversaries(), len(adversaries))
	}
	ids := make([]int, len(adversaries))
	for i, a := range adversaries {
		ids[i] = a.ID()
	}
	participants := append([]Participant{controller}, adversaries...)

	outcomes := make([]*Outcome, 0, repeat)
	for r := 0; r < repeat; r++ {
		o, err := e.runEpisode(ctx, layout, controller.ID(), ids, participants, display)
		if err != nil {
			return nil, err
		}
		outcomes = append(outcomes, o)
	}
	return outcomes, nil
}

func (e *GridEngine) runEpisode(ctx context.Context, layout *Layout, controllerID int, adversaryIDs []int, participants []Participant, display Display) (*Outcome, error) {
	state := NewState(layout, controllerID, adversaryIDs)
	trace := NewTrace()
	display.Initialize(state.Copy())

	maxTurns := e.MaxTurns
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
TurnLoop:
	for turn := 0; turn < maxTurns; turn++ {
		state.Turn = turn
		for _, p := range participants {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			default:
			}
			legal := state.Legal(p.ID())
			action, err := p.Act(ctx, &Observation{AgentID: p.ID(), State: state.Copy(), Legal: legal})
			if err != nil {
				return nil, err
			}
			if !contains(legal, action) {
				return nil, fmt.Errorf("%w: agent %d chose %q", ErrIllegalAction, p.ID(), action)
			}
			state.apply(p.ID(), action)
			pos, _ := state.Position(p.ID())
			trace.AddStep(&Step{Turn: turn, AgentID: p.ID(), Action: action, Position: pos, Score: state.Score})
			display.Update(state.Copy())
			if state.Terminal {
				break TurnLoop
			}
		}
	}
	state.Terminal = true
	display.Finish()

	log.Debug().
		Str("layout", layout.Name).
		Float64("score", state.Score).
		Bool("won", state.Won).
		Int("turns", state.Turn+1).
		Msg("episode finished")

	return &Outcome{
		State: state,
		Score: state.Score,
		Won:   state.Won,
		Turns: state.Turn + 1,
		Trace: trace,
	}, nil
}

func contains(ds []Direction, d Direction) bool {
	for _, x := range ds {
		if x == d {
			return true
		}
	}
	return false
}
