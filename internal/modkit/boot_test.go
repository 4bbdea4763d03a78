package modkit

import (
	"testing"

	"telewarehouse/internal/platform/config"
	"telewarehouse/internal/platform/testkit"
)

func TestStoreConfig(t *testing.T) {
	t.Setenv("SERVICE_PGSQL_DBURL", "postgres://u:p@db/warehouse")
	t.Setenv("SERVICE_PGSQL_MAX_CONNS", "8")
	t.Setenv("SERVICE_CLICKHOUSE_ENABLED", "")

	sc := StoreConfig(config.New(), true, "load")
	if !sc.PG.Enabled || sc.PG.URL != "postgres://u:p@db/warehouse" || sc.PG.MaxConns != 8 {
		t.Fatalf("pg = %+v", sc.PG)
	}
	if sc.CH.Enabled || sc.AppName != "telewarehouse-load" {
		t.Fatalf("cfg = %+v", sc)
	}

	if sc := StoreConfig(config.New(), false, "collect"); sc.PG.Enabled {
		t.Fatalf("pg should stay disabled")
	}
}

func TestStoreConfig_ClickhouseNeedsURL(t *testing.T) {
	t.Setenv("SERVICE_CLICKHOUSE_ENABLED", "true")
	t.Setenv("SERVICE_CLICKHOUSE_DBURL", "")
	testkit.MustPanic(t, func() { StoreConfig(config.New(), false, "load") })
}

func TestPushMetrics_NoURL(t *testing.T) {
	t.Setenv("METRICS_PUSH_URL", "")
	Deps{Cfg: config.New()}.PushMetrics(t.Context())
}
