// Package module provides the loader module implementation
package module

import (
	"context"
	"strconv"
	"time"

	"telewarehouse/internal/modkit"
	"telewarehouse/internal/modkit/repokit"
	perr "telewarehouse/internal/platform/errors"
	"telewarehouse/internal/platform/staging"
	"telewarehouse/internal/services/loader/domain"
	"telewarehouse/internal/services/loader/repo"
	"telewarehouse/internal/services/loader/service"
)

// Ports defines the loader module ports
type Ports struct {
	Loader domain.LoaderPort
}

var _ modkit.Runner = (*Module)(nil)

// Module implements the loader module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the loader module
// deps.PG is required, deps.CH enables the clickhouse mirror
func New(deps modkit.Deps) (*Module, error) {
	if deps.PG == nil {
		return nil, perr.New(perr.ErrorCodeUnavailable, "loader: postgres sink not configured")
	}
	opts := FromConfig(deps.Cfg)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	db := repokit.WithBeginHooks(deps.PG, repokit.LocalSettings(
		[2]string{"statement_timeout", ms(opts.StatementTimeout)},
		[2]string{"lock_timeout", ms(opts.LockTimeout)},
	))

	var mirror domain.Storage
	if deps.CH != nil {
		mirror = repo.NewCH(deps.CH)
	}

	svc := service.New(db, repo.NewPG(), mirror, staging.New(opts.Root), deps.Metrics)
	return &Module{deps: deps, ports: Ports{Loader: svc}}, nil
}

func ms(d time.Duration) string { return strconv.FormatInt(d.Milliseconds(), 10) }

// Name returns the module name
func (m *Module) Name() string { return "load" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Run loads staged data into the sinks
func (m *Module) Run(ctx context.Context) error {
	start := time.Now()
	_, err := m.ports.Loader.Load(ctx)
	m.deps.Metrics.StageDone(m.Name(), time.Since(start), err)
	return err
}
