package analysis

import (
	"github.com/google/uuid"
	"github.com/zeu5/pacman-adapter/core"
	"github.com/zeu5/pacman-adapter/util"
)

// RunResults is the persisted outcome of one run.
type RunResults struct {
	RunID         string                   `json:"run_id"`
	LearnScores   []float64                `json:"learn_scores"`
	TestScores    []float64                `json:"test_scores"`
	BehaviorCount map[int]map[string][]int `json:"behavior_count"`
	Summary       map[core.Phase]*Summary  `json:"summary"`
	Analyses      map[string]core.DataSet  `json:"analyses,omitempty"`
}

// Results accumulates scores and behavior tallies. It only appends.
type Results struct {
	learnScores []float64
	testScores  []float64
	behavior    map[int]map[string][]int
	analyses    map[string]core.DataSet
}

var _ core.Recorder = &Results{}

func NewResults() *Results {
	return &Results{
		learnScores: make([]float64, 0),
		testScores:  make([]float64, 0),
		behavior:    make(map[int]map[string][]int),
		analyses:    make(map[string]core.DataSet),
	}
}

// Track makes agentID show up in the results even if it never reports a
// behavior.
func (r *Results) Track(agentID int) {
	if _, ok := r.behavior[agentID]; !ok {
		r.behavior[agentID] = make(map[string][]int)
	}
}

func (r *Results) RecordScore(phase core.Phase, value float64) {
	if phase == core.PhaseTest {
		r.testScores = append(r.testScores, value)
		return
	}
	r.learnScores = append(r.learnScores, value)
}

// RecordBehavior appends to the label's series. Labels missing from an
// episode's report are not backfilled.
func (r *Results) RecordBehavior(agentID int, label string, value int) {
	r.Track(agentID)
	r.behavior[agentID][label] = append(r.behavior[agentID][label], value)
}

// Attach stores an analyzer dataset alongside the results.
func (r *Results) Attach(name string, ds core.DataSet) {
	r.analyses[name] = ds
}

// Finalize returns an independent snapshot tagged with a fresh run id.
func (r *Results) Finalize() *RunResults {
	behavior := make(map[int]map[string][]int, len(r.behavior))
	for id, series := range r.behavior {
		behavior[id] = make(map[string][]int, len(series))
		for label, values := range series {
			behavior[id][label] = util.CopyIntSlice(values)
		}
	}
	out := &RunResults{
		RunID:         uuid.NewString(),
		LearnScores:   append(make([]float64, 0, len(r.learnScores)), r.learnScores...),
		TestScores:    append(make([]float64, 0, len(r.testScores)), r.testScores...),
		BehaviorCount: behavior,
		Summary: map[core.Phase]*Summary{
			core.PhaseLearn: Summarize(r.learnScores),
			core.PhaseTest:  Summarize(r.testScores),
		},
	}
	if len(r.analyses) > 0 {
		out.Analyses = make(map[string]core.DataSet, len(r.analyses))
		for name, ds := range r.analyses {
			out.Analyses[name] = ds
		}
	}
	return out
}

func (r *RunResults) Save(path string) error {
	return util.SaveJson(path, r)
}
