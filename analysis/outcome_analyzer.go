package analysis

import (
	"github.com/zeu5/pacman-adapter/core"
	"github.com/zeu5/pacman-adapter/engine"
	"github.com/zeu5/pacman-adapter/util"
)

type outcomeDataset struct {
	// cumulative turns after each episode
	Timesteps []int `json:"timesteps"`
	Wins      []int `json:"wins"`
	// distinct cells the controller has stood on so far
	Coverage []int `json:"coverage"`
}

func (o *outcomeDataset) Copy() *outcomeDataset {
	return &outcomeDataset{
		Timesteps: util.CopyIntSlice(o.Timesteps),
		Wins:      util.CopyIntSlice(o.Wins),
		Coverage:  util.CopyIntSlice(o.Coverage),
	}
}

// OutcomeAnalyzer tracks wins and board coverage of the controller across
// episodes.
type OutcomeAnalyzer struct {
	cells   map[engine.Position]bool
	wins    int
	dataset *outcomeDataset
}

var _ core.Analyzer = &OutcomeAnalyzer{}

func NewOutcomeAnalyzer() *OutcomeAnalyzer {
	o := &OutcomeAnalyzer{}
	o.Reset()
	return o
}

func (o *OutcomeAnalyzer) Reset() {
	o.cells = make(map[engine.Position]bool)
	o.wins = 0
	o.dataset = &outcomeDataset{
		Timesteps: make([]int, 0),
		Wins:      make([]int, 0),
		Coverage:  make([]int, 0),
	}
}

func (o *OutcomeAnalyzer) Analyze(_ *core.EpisodeContext, outcome *engine.Outcome) {
	if outcome.Trace != nil && outcome.State != nil {
		for i := 0; i < outcome.Trace.Len(); i++ {
			step := outcome.Trace.Step(i)
			if step.AgentID == outcome.State.ControllerID {
				o.cells[step.Position] = true
			}
		}
	}
	if outcome.Won {
		o.wins++
	}
	last := 0
	if n := len(o.dataset.Timesteps); n > 0 {
		last = o.dataset.Timesteps[n-1]
	}
	o.dataset.Timesteps = append(o.dataset.Timesteps, last+outcome.Turns)
	o.dataset.Wins = append(o.dataset.Wins, o.wins)
	o.dataset.Coverage = append(o.dataset.Coverage, len(o.cells))
}

func (o *OutcomeAnalyzer) DataSet() core.DataSet {
	return o.dataset.Copy()
}
