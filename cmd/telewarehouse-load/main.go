package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"telewarehouse/internal/modkit"
	"telewarehouse/internal/modkit/repokit"
	"telewarehouse/internal/platform/store"
	loadmod "telewarehouse/internal/services/loader/module"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

// run owns the store so it is closed before the exit status is set
func run() error {
	deps := modkit.Boot("load")
	l := deps.Log

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, modkit.StoreConfig(deps.Cfg, true, "load"), store.WithLogger(l))
	if err != nil {
		l.Error().Err(err).Msg("store.Open failed")
		return err
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()
	repokit.MustGuard(ctx, st)

	m, err := loadmod.New(deps.FromStore(st))
	if err != nil {
		l.Error().Err(err).Msg("loader setup failed")
		return err
	}
	err = m.Run(ctx)
	deps.PushMetrics(context.Background())
	if err != nil {
		l.Error().Err(err).Msg("load failed")
		return err
	}
	l.Info().Msg("load complete")
	return nil
}
