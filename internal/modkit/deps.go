// Package modkit provides stage wiring and core deps
package modkit

import (
	"telewarehouse/internal/modkit/repokit"
	"telewarehouse/internal/platform/config"
	"telewarehouse/internal/platform/logger"
	"telewarehouse/internal/platform/metrics"
	"telewarehouse/internal/platform/store"
)

// Deps holds core dependencies passed to stage modules
// this is wiring only and does not introduce new abstractions
type Deps struct {
	Log     logger.Logger
	Cfg     config.Conf
	PG      repokit.TxRunner
	CH      store.Clickhouse
	Metrics *metrics.Metrics
}

// FromStore copies the sink seams of st into d
// a nil store leaves both seams nil
func (d Deps) FromStore(st *store.Store) Deps {
	if st == nil {
		return d
	}
	d.PG = st.PG
	d.CH = st.CH
	return d
}

// ZeroOK returns true when deps are safe to use with zero values in tests
// consumers should still nil check for optional stores
func (d Deps) ZeroOK() bool { return true }
