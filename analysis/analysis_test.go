package analysis

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zeu5/pacman-adapter/core"
	"github.com/zeu5/pacman-adapter/engine"
	"github.com/zeu5/pacman-adapter/util"
)

func TestResultsAccumulate(t *testing.T) {
	r := NewResults()
	r.Track(1)
	r.Track(3)
	r.RecordScore(core.PhaseLearn, 10)
	r.RecordScore(core.PhaseLearn, 20)
	r.RecordScore(core.PhaseTest, -5)
	r.RecordBehavior(1, "eat", 4)
	r.RecordBehavior(1, "eat", 6)
	r.RecordBehavior(1, "flee", 1)

	res := r.Finalize()
	require.NotEmpty(t, res.RunID)
	require.Equal(t, []float64{10, 20}, res.LearnScores)
	require.Equal(t, []float64{-5}, res.TestScores)
	require.Equal(t, []int{4, 6}, res.BehaviorCount[1]["eat"])
	require.Equal(t, []int{1}, res.BehaviorCount[1]["flee"], "labels are not backfilled")
	require.Empty(t, res.BehaviorCount[3])
	require.Contains(t, res.BehaviorCount, 3)

	learn := res.Summary[core.PhaseLearn]
	require.Equal(t, 2, learn.Episodes)
	require.InDelta(t, 15, learn.Mean, 1e-9)
	require.Equal(t, float64(10), learn.Min)
	require.Equal(t, float64(20), learn.Max)
	test := res.Summary[core.PhaseTest]
	require.Equal(t, 1, test.Episodes)
	require.Equal(t, float64(0), test.StdDev)

	r.RecordScore(core.PhaseLearn, 30)
	require.Len(t, res.LearnScores, 2, "finalized results are a snapshot")
	require.NotEqual(t, res.RunID, r.Finalize().RunID)
}

func TestResultsSave(t *testing.T) {
	r := NewResults()
	r.Attach("outcome", map[string]int{"wins": 1})
	path := filepath.Join(t.TempDir(), "out", "results.json")
	require.NoError(t, r.Finalize().Save(path))

	decoded := map[string]interface{}{}
	require.NoError(t, util.LoadJson(path, &decoded))
	require.Equal(t, []interface{}{}, decoded["learn_scores"])
	require.Contains(t, decoded, "summary")
	require.Contains(t, decoded, "analyses")
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	require.Equal(t, 0, s.Episodes)
	_, err := json.Marshal(s)
	require.NoError(t, err)
}

func testOutcome(won bool) *engine.Outcome {
	trace := engine.NewTrace()
	trace.AddStep(&engine.Step{Turn: 0, AgentID: 1, Action: engine.East, Position: engine.Position{X: 2, Y: 1}})
	trace.AddStep(&engine.Step{Turn: 0, AgentID: 2, Action: engine.West, Position: engine.Position{X: 5, Y: 5}})
	trace.AddStep(&engine.Step{Turn: 1, AgentID: 1, Action: engine.East, Position: engine.Position{X: 3, Y: 1}})
	return &engine.Outcome{
		State: &engine.State{ControllerID: 1},
		Won:   won,
		Turns: 2,
		Trace: trace,
	}
}

func TestOutcomeAnalyzer(t *testing.T) {
	a := NewOutcomeAnalyzer()
	eCtx := &core.EpisodeContext{Context: context.Background(), Phase: core.PhaseLearn}
	a.Analyze(eCtx, testOutcome(true))
	a.Analyze(eCtx, testOutcome(false))

	ds := a.DataSet().(*outcomeDataset)
	require.Equal(t, []int{2, 4}, ds.Timesteps)
	require.Equal(t, []int{1, 1}, ds.Wins)
	require.Equal(t, []int{2, 2}, ds.Coverage)

	a.Reset()
	require.Empty(t, a.DataSet().(*outcomeDataset).Wins)
}

func TestTraceDumpAnalyzer(t *testing.T) {
	dir := t.TempDir()
	a := NewTraceDumpAnalyzer(dir, 1)
	a.Analyze(&core.EpisodeContext{Episode: 0, Phase: core.PhaseLearn}, testOutcome(false))
	a.Analyze(&core.EpisodeContext{Episode: 1, Phase: core.PhaseTest}, testOutcome(true))

	entries, err := os.ReadDir(filepath.Join(dir, "traces"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	require.Equal(t, "test_trace_1.txt", entries[0].Name())
	require.Nil(t, a.DataSet())
}
