package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"telewarehouse/internal/modkit"
	collectmod "telewarehouse/internal/services/collector/module"
)

func main() {
	deps := modkit.Boot("collect")
	l := deps.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m, err := collectmod.New(deps)
	if err != nil {
		l.Fatal().Err(err).Msg("collector setup failed")
	}
	err = m.Run(ctx)
	deps.PushMetrics(context.Background())
	if err != nil {
		l.Fatal().Err(err).Msg("collect failed")
	}
	l.Info().Msg("collect complete")
}
