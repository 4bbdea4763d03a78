package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"telewarehouse/internal/modkit"
	inferencemod "telewarehouse/internal/services/inference/module"
)

func main() {
	deps := modkit.Boot("detect")
	l := deps.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := inferencemod.New(deps)
	if err != nil {
		l.Fatal().Err(err).Msg("inference setup failed")
	}
	err = m.Run(ctx)
	deps.PushMetrics(context.Background())
	if err != nil {
		l.Fatal().Err(err).Msg("detect failed")
	}
	l.Info().Msg("detect complete")
}
