package common

import (
	"errors"
	"fmt"
	"path"
	"time"

	"github.com/zeu5/pacman-adapter/agents"
	"github.com/zeu5/pacman-adapter/core"
	"github.com/zeu5/pacman-adapter/display"
	"github.com/zeu5/pacman-adapter/engine"
	"github.com/zeu5/pacman-adapter/util"
)

var ErrInvalidConfig = errors.New("invalid configuration")

type Flags struct {
	RunFlags
	AgentFlags
	TransportFlags

	PolicyPath string
	Output     string
	Display    string
	FrameTime  time.Duration
	// TraceFrom dumps episode traces from this index on; negative disables
	TraceFrom int

	Debug    bool
	LogLevel string
}

type RunFlags struct {
	LearnEpisodes int
	TestEpisodes  int
	Layout        string
}

type AgentFlags struct {
	PacmanClass string
	GhostClass  string
	Adversaries int
	Noise       int
}

type TransportFlags struct {
	Address      string
	Port         int
	ReplyTimeout time.Duration
}

func DefaultFlags() *Flags {
	return &Flags{
		RunFlags: RunFlags{
			LearnEpisodes: 100,
			TestEpisodes:  100,
			Layout:        "classic",
		},
		AgentFlags: AgentFlags{
			PacmanClass: "random",
			GhostClass:  "ai",
			Adversaries: 1,
			Noise:       0,
		},
		TransportFlags: TransportFlags{
			Address:      "localhost",
			Port:         5555,
			ReplyTimeout: 0,
		},
		PolicyPath: "",
		Output:     "results/results.json",
		Display:    string(display.None),
		FrameTime:  100 * time.Millisecond,
		TraceFrom:  -1,
		Debug:      false,
		LogLevel:   "info",
	}
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%w: %s", ErrInvalidConfig, fmt.Sprintf(format, args...))
}

// Validate rejects every configuration error up front, before any agent is
// contacted.
func (f *Flags) Validate() error {
	if f.LearnEpisodes < 0 {
		return invalid("learn episodes must be non-negative, got %d", f.LearnEpisodes)
	}
	if f.TestEpisodes < 0 {
		return invalid("test episodes must be non-negative, got %d", f.TestEpisodes)
	}
	if f.Adversaries < 1 || f.Adversaries > engine.MaxAdversaries {
		return invalid("number of ghosts must be between 1 and %d, got %d", engine.MaxAdversaries, f.Adversaries)
	}
	if f.Noise < 0 {
		return invalid("noise must be non-negative, got %d", f.Noise)
	}
	if _, err := agents.LookupClass(agents.RoleController, f.PacmanClass); err != nil {
		return invalid("%s", err)
	}
	if _, err := agents.LookupClass(agents.RoleAdversary, f.GhostClass); err != nil {
		return invalid("%s", err)
	}
	if _, err := display.ParseMode(f.Display); err != nil {
		return invalid("%s", err)
	}
	if _, err := engine.GetLayout(f.Layout, f.Adversaries); err != nil {
		return invalid("%s", err)
	}
	if f.Port <= 0 || f.Port > 65535 {
		return invalid("port must be in 1-65535, got %d", f.Port)
	}
	if f.ReplyTimeout < 0 {
		return invalid("reply timeout must be non-negative, got %s", f.ReplyTimeout)
	}
	if f.Output == "" {
		return invalid("output path is required")
	}
	return nil
}

func (f *Flags) Addr() string {
	return fmt.Sprintf("%s:%d", f.Address, f.Port)
}

func (f *Flags) RunConfig() *core.RunConfig {
	return &core.RunConfig{
		LearnEpisodes: f.LearnEpisodes,
		TestEpisodes:  f.TestEpisodes,
	}
}

func (f *Flags) TeamConfig() *core.TeamConfig {
	return &core.TeamConfig{
		ControllerClass: f.PacmanClass,
		AdversaryClass:  f.GhostClass,
		Adversaries:     f.Adversaries,
		Noise:           f.Noise,
	}
}

// SaveDir is where the config and traces go, next to the results.
func (f *Flags) SaveDir() string {
	return path.Dir(f.Output)
}

func (f *Flags) Record() error {
	return util.SaveJson(path.Join(f.SaveDir(), "config.json"), f)
}
