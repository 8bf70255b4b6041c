package cmd

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/zeu5/pacman-adapter/analysis"
	"github.com/zeu5/pacman-adapter/common"
	"github.com/zeu5/pacman-adapter/controller"
	"github.com/zeu5/pacman-adapter/core"
	"github.com/zeu5/pacman-adapter/display"
	"github.com/zeu5/pacman-adapter/engine"
	"github.com/zeu5/pacman-adapter/policystore"
	"github.com/zeu5/pacman-adapter/protocol"
	"github.com/zeu5/pacman-adapter/transport"
	"github.com/zeu5/pacman-adapter/util"
)

func RunCommand() *cobra.Command {
	var local bool
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run learning and test games against the agent host",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := flags.Validate(); err != nil {
				return err
			}
			if err := flags.Record(); err != nil {
				log.Warn().Err(err).Msg("could not record configuration")
			}

			ctx, stop := interruptContext()
			defer stop()

			dial := remoteDialer(ctx, flags)
			if local {
				dial = localDialer(uint64(time.Now().UnixNano()))
			}
			err := run(ctx, flags, dial)
			if err != nil && ctx.Err() != nil && !errors.Is(err, core.ErrInterrupted) {
				return fmt.Errorf("%w: %s", core.ErrInterrupted, err)
			}
			return err
		},
	}
	cmd.Flags().BoolVar(&local, "local", false, "Host the agents in this process instead of connecting to an agent host")
	return cmd
}

func remoteDialer(ctx context.Context, f *common.Flags) core.DialFunc {
	return func(int) (protocol.Channel, error) {
		return transport.Dial(ctx, f.Addr(), f.ReplyTimeout)
	}
}

func localDialer(seed uint64) core.DialFunc {
	return func(int) (protocol.Channel, error) {
		adapterEnd, hostEnd := transport.Pipe()
		go controller.NewSession(seed).Serve(hostEnd)
		return adapterEnd, nil
	}
}

func run(ctx context.Context, f *common.Flags, dial core.DialFunc) error {
	layout, err := engine.GetLayout(f.Layout, f.Adversaries)
	if err != nil {
		return err
	}
	mode, err := display.ParseMode(f.Display)
	if err != nil {
		return err
	}
	disp, err := display.New(mode, os.Stdout, f.FrameTime)
	if err != nil {
		return err
	}
	store, err := policystore.Open(f.PolicyPath)
	if err != nil {
		return err
	}

	team, err := core.BuildTeam(f.TeamConfig(), dial)
	if err != nil {
		return err
	}
	defer team.Close()

	results := analysis.NewResults()
	orch := core.NewOrchestrator(team, store, engine.NewGridEngine(), layout, disp, results)
	orch.AddAnalyzer("outcome", analysis.NewOutcomeAnalyzer())
	if f.TraceFrom >= 0 {
		orch.AddAnalyzer("traces", analysis.NewTraceDumpAnalyzer(f.SaveDir(), f.TraceFrom))
	}

	progress := util.NewProgressPrinter(os.Stderr, 200*time.Millisecond)
	progress.Start(ctx)
	orch.Progress = progress.Set
	report, err := orch.Run(ctx, f.RunConfig())
	progress.Stop()
	if err != nil {
		return err
	}

	for name, ds := range report.Datasets {
		if ds != nil {
			results.Attach(name, ds)
		}
	}
	res := results.Finalize()
	if err := res.Save(f.Output); err != nil {
		return err
	}
	log.Info().
		Str("run", res.RunID).
		Str("output", f.Output).
		Float64("learn_mean", res.Summary[core.PhaseLearn].Mean).
		Float64("test_mean", res.Summary[core.PhaseTest].Mean).
		Msg("results saved")
	return nil
}
