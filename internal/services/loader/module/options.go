package module

import (
	"time"

	"telewarehouse/internal/platform/config"
	"telewarehouse/internal/platform/validate"
)

// Options holds configuration options for the load stage
type Options struct {
	Root string `env:"CORE_STAGING_ROOT" validate:"required"`

	// StatementTimeout bounds each sink statement inside the replace tx
	StatementTimeout time.Duration `env:"CORE_LOAD_STATEMENT_TIMEOUT" validate:"gte=0"`
	LockTimeout      time.Duration `env:"CORE_LOAD_LOCK_TIMEOUT" validate:"gte=0"`
}

// FromConfig reads the load options
func FromConfig(cfg config.Conf) Options {
	core := cfg.Prefix("CORE_")
	ld := core.Prefix("LOAD_")
	return Options{
		Root:             core.MayString("STAGING_ROOT", "data/raw"),
		StatementTimeout: ld.MayDuration("STATEMENT_TIMEOUT", 5*time.Minute),
		LockTimeout:      ld.MayDuration("LOCK_TIMEOUT", 30*time.Second),
	}
}

// Validate checks o
func (o Options) Validate() error { return validate.Struct(o) }
