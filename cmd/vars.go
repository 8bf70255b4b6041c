package cmd

import (
	"time"

	"github.com/spf13/cobra"
	"github.com/zeu5/pacman-adapter/common"
)

var (
	flags *common.Flags = common.DefaultFlags()

	learn        int
	test         int
	policyPath   string
	output       string
	displayMode  string
	frameTime    int
	traceFrom    int
	pacmanAgent  string
	ghostAgent   string
	numGhosts    int
	layout       string
	noise        int
	address      string
	port         int
	replyTimeout int
	debug        bool
	logLevel     string
)

func AddFlags(cmd *cobra.Command) {
	cmd.PersistentFlags().IntVarP(&learn, "learn-num", "l", flags.LearnEpisodes, "Number of games to learn from")
	cmd.PersistentFlags().IntVarP(&test, "test-num", "t", flags.TestEpisodes, "Number of games to test learned policy")
	cmd.PersistentFlags().StringVarP(&policyPath, "policy-file", "p", flags.PolicyPath, "Load and save policies from/to this file (.db or .sqlite selects SQLite)")
	cmd.PersistentFlags().StringVarP(&output, "output", "o", flags.Output, "Results output file")
	cmd.PersistentFlags().StringVar(&displayMode, "display", flags.Display, "Display: graphical, textual or none")
	cmd.PersistentFlags().IntVar(&frameTime, "frame-time", int(flags.FrameTime.Milliseconds()), "Milliseconds between frames of the graphical display")
	cmd.PersistentFlags().IntVar(&traceFrom, "trace-from", flags.TraceFrom, "Dump episode traces from this episode on (-1 disables)")
	cmd.PersistentFlags().StringVar(&pacmanAgent, "pacman-agent", flags.PacmanClass, "Pacman agent: random, ai or eater")
	cmd.PersistentFlags().StringVar(&ghostAgent, "ghost-agent", flags.GhostClass, "Ghost agent: random or ai")
	cmd.PersistentFlags().IntVar(&numGhosts, "num-ghosts", flags.Adversaries, "Number of ghosts (1-4)")
	cmd.PersistentFlags().StringVar(&layout, "layout", flags.Layout, "Game layout: classic or medium")
	cmd.PersistentFlags().IntVar(&noise, "noise", flags.Noise, "Introduce noise in position measurements")
	cmd.PersistentFlags().StringVar(&address, "address", flags.Address, "Agent host address")
	cmd.PersistentFlags().IntVar(&port, "port", flags.Port, "Agent host port")
	cmd.PersistentFlags().IntVar(&replyTimeout, "reply-timeout", int(flags.ReplyTimeout.Seconds()), "Seconds to wait for an agent reply (0 waits forever)")
	cmd.PersistentFlags().BoolVar(&debug, "debug", flags.Debug, "Enable debug logging")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", flags.LogLevel, "Log level")
}

func UpdateFlags() {
	flags.LearnEpisodes = learn
	flags.TestEpisodes = test
	flags.PolicyPath = policyPath
	flags.Output = output
	flags.Display = displayMode
	flags.FrameTime = time.Duration(frameTime) * time.Millisecond
	flags.TraceFrom = traceFrom
	flags.PacmanClass = pacmanAgent
	flags.GhostClass = ghostAgent
	flags.Adversaries = numGhosts
	flags.Layout = layout
	flags.Noise = noise
	flags.Address = address
	flags.Port = port
	flags.ReplyTimeout = time.Duration(replyTimeout) * time.Second
	flags.Debug = debug
	flags.LogLevel = logLevel
}
