package common

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/zeu5/pacman-adapter/util"
)

func TestDefaultFlagsAreValid(t *testing.T) {
	f := DefaultFlags()
	require.NoError(t, f.Validate())
	require.Equal(t, 100, f.LearnEpisodes)
	require.Equal(t, 100, f.TestEpisodes)
	require.Equal(t, "random", f.PacmanClass)
	require.Equal(t, "ai", f.GhostClass)
	require.Equal(t, "localhost:5555", f.Addr())
}

func TestValidateRejects(t *testing.T) {
	cases := map[string]func(f *Flags){
		"no ghosts":       func(f *Flags) { f.Adversaries = 0 },
		"too many ghosts": func(f *Flags) { f.Adversaries = 5 },
		"negative learn":  func(f *Flags) { f.LearnEpisodes = -1 },
		"negative test":   func(f *Flags) { f.TestEpisodes = -3 },
		"pacman class":    func(f *Flags) { f.PacmanClass = "psychic" },
		"ghost class":     func(f *Flags) { f.GhostClass = "eater" },
		"display":         func(f *Flags) { f.Display = "hologram" },
		"layout":          func(f *Flags) { f.Layout = "atlantis" },
		"noise":           func(f *Flags) { f.Noise = -1 },
		"port":            func(f *Flags) { f.Port = 0 },
		"output":          func(f *Flags) { f.Output = "" },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			f := DefaultFlags()
			mutate(f)
			require.ErrorIs(t, f.Validate(), ErrInvalidConfig)
		})
	}
}

func TestDerivedConfigs(t *testing.T) {
	f := DefaultFlags()
	f.LearnEpisodes = 3
	f.Adversaries = 2
	f.Noise = 1
	require.Equal(t, 3, f.RunConfig().LearnEpisodes)
	team := f.TeamConfig()
	require.Equal(t, 2, team.Adversaries)
	require.Equal(t, 1, team.Noise)
	require.NoError(t, team.Validate())
}

func TestRecord(t *testing.T) {
	f := DefaultFlags()
	f.Output = filepath.Join(t.TempDir(), "run", "results.json")
	require.NoError(t, f.Record())

	path := filepath.Join(filepath.Dir(f.Output), "config.json")
	_, err := os.Stat(path)
	require.NoError(t, err)
	decoded := DefaultFlags()
	decoded.Output = ""
	require.NoError(t, util.LoadJson(path, decoded))
	require.Equal(t, f.Output, decoded.Output)
}
