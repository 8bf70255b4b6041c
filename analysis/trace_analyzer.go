package analysis

import (
	"bytes"
	"fmt"
	"os"
	"path"

	"github.com/rs/zerolog/log"
	"github.com/zeu5/pacman-adapter/core"
	"github.com/zeu5/pacman-adapter/engine"
)

// TraceDumpAnalyzer writes the turn-by-turn trace of every episode from
// thresholdEpisode onwards into savePath/traces.
type TraceDumpAnalyzer struct {
	savePath string
	// will save the trace to the file only after the episode number exceeds this threshold
	thresholdEpisode int
}

var _ core.Analyzer = &TraceDumpAnalyzer{}

func NewTraceDumpAnalyzer(savePath string, threshold int) *TraceDumpAnalyzer {
	return &TraceDumpAnalyzer{
		savePath:         path.Join(savePath, "traces"),
		thresholdEpisode: threshold,
	}
}

func (a *TraceDumpAnalyzer) Analyze(ctx *core.EpisodeContext, outcome *engine.Outcome) {
	if ctx.Episode < a.thresholdEpisode || outcome.Trace == nil {
		return
	}
	if err := os.MkdirAll(a.savePath, 0755); err != nil {
		log.Warn().Err(err).Str("path", a.savePath).Msg("cannot create trace directory")
		return
	}
	buf := new(bytes.Buffer)
	fmt.Fprintf(buf, "Phase: %s\nScore: %.1f\nWon: %t\nTurns: %d\n\n", ctx.Phase, outcome.Score, outcome.Won, outcome.Turns)
	for i := 0; i < outcome.Trace.Len(); i++ {
		buf.WriteString(stepToString(outcome.Trace.Step(i)))
	}
	if outcome.State != nil {
		buf.WriteString("\nFinal board:\n")
		buf.WriteString(outcome.State.String())
		buf.WriteString("\n")
	}
	file := path.Join(a.savePath, fmt.Sprintf("%s_trace_%d.txt", ctx.Phase, ctx.Episode))
	if err := os.WriteFile(file, buf.Bytes(), 0644); err != nil {
		log.Warn().Err(err).Str("file", file).Msg("cannot write trace")
	}
}

func stepToString(step *engine.Step) string {
	return fmt.Sprintf(
		"Turn %d agent %d: %s -> (%d,%d) score %.1f\n",
		step.Turn, step.AgentID, step.Action, step.Position.X, step.Position.Y, step.Score,
	)
}

func (a *TraceDumpAnalyzer) DataSet() core.DataSet {
	return nil
}

func (a *TraceDumpAnalyzer) Reset() {}
