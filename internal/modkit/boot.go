package modkit

import (
	"context"

	"telewarehouse/internal/core/version"
	"telewarehouse/internal/platform/config"
	"telewarehouse/internal/platform/logger"
	"telewarehouse/internal/platform/metrics"
	"telewarehouse/internal/platform/store"
)

// Boot loads env files, initializes the root logger and returns stage deps
// without sink seams
func Boot(component string) Deps {
	loaded := config.LoadDotenv()

	opts := logger.FromEnv()
	if opts.Service == "" {
		opts.Service = version.Service
	}
	opts.Component = component
	logger.Init(opts)
	l := logger.Get()
	if len(loaded) > 0 {
		l.Debug().Strs("files", loaded).Msg("env files loaded")
	}

	return Deps{Log: *l, Cfg: config.New(), Metrics: metrics.New()}
}

// StoreConfig reads the sink settings, postgres is enabled when needPG is set
func StoreConfig(cfg config.Conf, needPG bool, tag string) store.Config {
	pgCfg := cfg.Prefix("SERVICE_PGSQL_")
	chCfg := cfg.Prefix("SERVICE_CLICKHOUSE_")

	sc := store.Config{
		AppName: version.Service + "-" + tag,
		CH: store.CHConfig{
			Enabled:    chCfg.MayBool("ENABLED", false),
			ClientName: version.Service,
			ClientTag:  tag,
		},
	}
	if needPG {
		sc.PG = store.PGConfig{
			Enabled:     true,
			URL:         pgCfg.MustString("DBURL"),
			MaxConns:    int32(pgCfg.MayInt("MAX_CONNS", 4)),
			SlowQueryMs: pgCfg.MayInt("SLOW_MS", 500),
			LogSQL:      pgCfg.MayBool("LOG_SQL", false),
		}
	}
	if sc.CH.Enabled {
		sc.CH.URL = chCfg.MustString("DBURL")
	}
	return sc
}

// PushMetrics sends the run metrics when METRICS_PUSH_URL is set
func (d Deps) PushMetrics(ctx context.Context) {
	mc := d.Cfg.Prefix("METRICS_")
	url := mc.MayString("PUSH_URL", "")
	if url == "" {
		return
	}
	if err := d.Metrics.Push(ctx, url, mc.MayString("JOB", version.Service)); err != nil {
		d.Log.Warn().Err(err).Str("url", url).Msg("metrics push failed")
	}
}
