// Package module provides the collector module implementation
package module

import (
	"context"
	"time"

	"telewarehouse/internal/adapters/source/tgpreview"
	"telewarehouse/internal/modkit"
	"telewarehouse/internal/platform/staging"
	"telewarehouse/internal/services/collector/domain"
	"telewarehouse/internal/services/collector/service"
)

// Ports defines the collector module ports
type Ports struct {
	Collector domain.CollectorPort
}

var _ modkit.Runner = (*Module)(nil)

// Module implements the collector module
type Module struct {
	deps  modkit.Deps
	opts  Options
	ports Ports
}

// New constructs the collector module
// It wires the preview source and the service using config from deps.Cfg
func New(deps modkit.Deps) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	src, err := tgpreview.New(tgpreview.Options{
		BaseURL:    opts.SourceBaseURL,
		UserAgent:  opts.UserAgent,
		Timeout:    opts.Timeout,
		MaxRetries: opts.SourceRetries,
		RPS:        opts.RPS,
		Burst:      opts.Burst,
	})
	if err != nil {
		return nil, err
	}
	return NewWithSource(deps, opts, src), nil
}

// NewWithSource wires the module around an explicit source
func NewWithSource(deps modkit.Deps, opts Options, src domain.Source) *Module {
	svc := service.New(src, staging.New(opts.Root), service.Config{Limit: opts.Limit}, deps.Metrics)
	return &Module{deps: deps, opts: opts, ports: Ports{Collector: svc}}
}

// Name returns the module name
func (m *Module) Name() string { return "collect" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Run collects the configured channels
func (m *Module) Run(ctx context.Context) error {
	start := time.Now()
	_, err := m.ports.Collector.Collect(ctx, m.opts.Channels)
	m.deps.Metrics.StageDone(m.Name(), time.Since(start), err)
	return err
}
