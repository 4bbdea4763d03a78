package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"telewarehouse/internal/modkit"
	"telewarehouse/internal/modkit/repokit"
	"telewarehouse/internal/platform/store"
	collectmod "telewarehouse/internal/services/collector/module"
	inferencemod "telewarehouse/internal/services/inference/module"
	loadmod "telewarehouse/internal/services/loader/module"
	"telewarehouse/internal/services/pipeline/domain"
	"telewarehouse/internal/services/pipeline/service"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func wants(only, stage string) bool { return only == "" || only == stage }

func run() error {
	fOnly := flag.String("only", "", "run a single stage: collect | detect | load")
	flag.Parse()

	deps := modkit.Boot("pipeline")
	l := deps.Log

	if *fOnly != "" {
		if _, ok := domain.StateOf(*fOnly); !ok {
			l.Error().Str("only", *fOnly).Msg("unknown stage")
			return flag.ErrHelp
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var stages []service.Stage

	if wants(*fOnly, domain.StageCollect) {
		m, err := collectmod.New(deps)
		if err != nil {
			l.Error().Err(err).Msg("collector setup failed")
			return err
		}
		stages = append(stages, m)
	}

	if wants(*fOnly, domain.StageDetect) {
		m, err := inferencemod.New(deps)
		if err != nil {
			l.Error().Err(err).Msg("inference setup failed")
			return err
		}
		stages = append(stages, m)
	}

	if wants(*fOnly, domain.StageLoad) {
		st, err := store.Open(ctx, modkit.StoreConfig(deps.Cfg, true, "pipeline"), store.WithLogger(l))
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
		stages = append(stages, m)
	}

	drv, err := service.New(stages, deps.Metrics)
	if err != nil {
		l.Error().Err(err).Msg("pipeline setup failed")
		return err
	}
	r, err := drv.Run(ctx, *fOnly)
	deps.PushMetrics(context.Background())
	if err != nil {
		ev := l.Error().Err(err)
		if r != nil {
			ev = ev.Str("run_id", r.ID).Str("state", string(r.State))
		}
		ev.Msg("pipeline failed")
		return err
	}
	l.Info().Str("run_id", r.ID).Int("stages", len(stages)).Msg("pipeline complete")
	return nil
}
