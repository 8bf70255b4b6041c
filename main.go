package main

import (
	"errors"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/zeu5/pacman-adapter/cmd"
	"github.com/zeu5/pacman-adapter/core"
)

func main() {
	if err := cmd.RootCommand().Execute(); err != nil {
		if errors.Is(err, core.ErrInterrupted) {
			fmt.Println("Interrupted execution")
			return
		}
		log.Fatal().Err(err).Msg("run failed")
	}
}
