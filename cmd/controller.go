package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"github.com/zeu5/pacman-adapter/controller"
)

func ControllerCommand() *cobra.Command {
	var seed uint64
	cmd := &cobra.Command{
		Use:   "controller",
		Short: "Host agents for adapters connecting on --port",
		RunE: func(cmd *cobra.Command, args []string) error {
			if seed == 0 {
				seed = uint64(time.Now().UnixNano())
			}
			ctx, stop := interruptContext()
			defer stop()
			return controller.NewServer(seed).ListenAndServe(ctx, fmt.Sprintf(":%d", flags.Port))
		},
	}
	cmd.Flags().Uint64Var(&seed, "seed", 0, "Seed for agent randomness (0 picks one)")
	return cmd
}
