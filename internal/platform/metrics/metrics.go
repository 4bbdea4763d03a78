// Package metrics holds the pipeline job metrics and the optional pushgateway hop
package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/push"
)

const namespace = "telewarehouse"

// Outcome labels for per item counters
const (
	OutcomeOK      = "ok"
	OutcomeSkipped = "skipped"
	OutcomeFailed  = "failed"
)

// Metrics is a registry scoped set of job metrics
// a nil *Metrics is valid and records nothing
type Metrics struct {
	reg *prometheus.Registry

	items       *prometheus.CounterVec
	stageDur    *prometheus.HistogramVec
	stageResult *prometheus.GaugeVec
	rowsLoaded  *prometheus.GaugeVec
	lastSuccess *prometheus.GaugeVec
}

// New registers the job metrics on a fresh registry
func New() *Metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,
		items: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "items_total",
				Help:      "Items handled per stage (channels, posts, images, batches) by outcome",
			},
			[]string{"stage", "kind", "outcome"},
		),
		stageDur: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "stage_duration_seconds",
				Help:      "Wall time of one stage run",
				Buckets:   prometheus.ExponentialBuckets(0.5, 2, 12), // 0.5s to ~17m
			},
			[]string{"stage"},
		),
		stageResult: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "stage_ok",
				Help:      "1 when the last run of the stage succeeded, 0 otherwise",
			},
			[]string{"stage"},
		),
		rowsLoaded: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "rows_loaded",
				Help:      "Rows written to a sink table by the last load",
			},
			[]string{"sink", "table"},
		),
		lastSuccess: f.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "last_success_timestamp_seconds",
				Help:      "Unix time of the last successful stage run",
			},
			[]string{"stage"},
		),
	}
}

// Registry exposes the underlying registry for gathering
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.reg
}

// Item counts one handled item
func (m *Metrics) Item(stage, kind, outcome string) {
	if m == nil {
		return
	}
	m.items.WithLabelValues(stage, kind, outcome).Inc()
}

// StageDone records duration and result of one stage run
func (m *Metrics) StageDone(stage string, took time.Duration, err error) {
	if m == nil {
		return
	}
	m.stageDur.WithLabelValues(stage).Observe(took.Seconds())
	if err != nil {
		m.stageResult.WithLabelValues(stage).Set(0)
		return
	}
	m.stageResult.WithLabelValues(stage).Set(1)
	m.lastSuccess.WithLabelValues(stage).SetToCurrentTime()
}

// RowsLoaded sets the row count of the last full replace of table
func (m *Metrics) RowsLoaded(sink, table string, n int64) {
	if m == nil {
		return
	}
	m.rowsLoaded.WithLabelValues(sink, table).Set(float64(n))
}

// Push sends the registry to a pushgateway, no-op when url is empty
func (m *Metrics) Push(ctx context.Context, url, job string) error {
	if m == nil || url == "" {
		return nil
	}
	if job == "" {
		job = namespace
	}
	return push.New(url, job).Gatherer(m.reg).PushContext(ctx)
}
