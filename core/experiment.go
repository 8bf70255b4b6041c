package core

import (
	"errors"
	"fmt"

	"github.com/zeu5/pacman-adapter/engine"
)

// Phase of an episode. Learning agents update their policies only in the
// learn phase.
type Phase string

const (
	PhaseLearn Phase = "learn"
	PhaseTest  Phase = "test"
)

var ErrInvalidRunConfig = errors.New("invalid run configuration")

type RunConfig struct {
	LearnEpisodes int
	TestEpisodes  int
}

func (c *RunConfig) Validate() error {
	if c.LearnEpisodes < 0 {
		return fmt.Errorf("%w: learn episodes must be non-negative, got %d", ErrInvalidRunConfig, c.LearnEpisodes)
	}
	if c.TestEpisodes < 0 {
		return fmt.Errorf("%w: test episodes must be non-negative, got %d", ErrInvalidRunConfig, c.TestEpisodes)
	}
	return nil
}

func (c *RunConfig) Total() int {
	return c.LearnEpisodes + c.TestEpisodes
}

// PhaseOf returns the phase of episode i. The boundary is a strict index
// threshold.
func (c *RunConfig) PhaseOf(i int) Phase {
	if i < c.LearnEpisodes {
		return PhaseLearn
	}
	return PhaseTest
}

type DataSet interface{}

// Analyzer is handed every finished episode after its score is recorded.
type Analyzer interface {
	Analyze(*EpisodeContext, *engine.Outcome)
	DataSet() DataSet
	Reset()
}

// Recorder accumulates scores and behavior tallies during a run.
type Recorder interface {
	Track(agentID int)
	RecordScore(Phase, float64)
	RecordBehavior(agentID int, label string, value int)
}

// Report is what a completed run hands back besides the recorder contents.
type Report struct {
	Episodes int
	Datasets map[string]DataSet
}
