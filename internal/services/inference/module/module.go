// Package module provides the inference module implementation
package module

import (
	"context"
	"time"

	"telewarehouse/internal/adapters/detect/httpdetect"
	"telewarehouse/internal/modkit"
	"telewarehouse/internal/platform/staging"
	"telewarehouse/internal/services/inference/domain"
	"telewarehouse/internal/services/inference/service"
)

// Ports defines the inference module ports
type Ports struct {
	Runner domain.RunnerPort
}

var _ modkit.Runner = (*Module)(nil)

// Module implements the inference module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs the inference module around the HTTP detector
func New(deps modkit.Deps) (*Module, error) {
	opts := FromConfig(deps.Cfg)
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	det, err := httpdetect.New(httpdetect.Options{
		URL:        opts.URL,
		Timeout:    opts.Timeout,
		MaxRetries: opts.Retries,
	})
	if err != nil {
		return nil, err
	}
	return NewWithDetector(deps, opts, det), nil
}

// NewWithDetector wires the module around an explicit detector
func NewWithDetector(deps modkit.Deps, opts Options, det domain.Detector) *Module {
	svc := service.New(det, staging.New(opts.Root), service.Config{Confidence: opts.Confidence}, deps.Metrics)
	return &Module{deps: deps, ports: Ports{Runner: svc}}
}

// Name returns the module name
func (m *Module) Name() string { return "detect" }

// Ports returns the module ports
func (m *Module) Ports() any { return m.ports }

// Run runs detection over the staged images
func (m *Module) Run(ctx context.Context) error {
	start := time.Now()
	_, err := m.ports.Runner.Run(ctx)
	m.deps.Metrics.StageDone(m.Name(), time.Since(start), err)
	return err
}
