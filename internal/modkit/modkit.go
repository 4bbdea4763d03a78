package modkit

import (
	"context"

	"telewarehouse/internal/modkit/module"
)

// Module is the common surface for stage modules
type Module = module.Module

// Runner is a module that runs as one pipeline stage
type Runner interface {
	Module
	Run(ctx context.Context) error
}
