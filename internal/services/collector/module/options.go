package module

import (
	"sync"
	"time"

	"telewarehouse/internal/platform/config"
	"telewarehouse/internal/platform/validate"
	"telewarehouse/internal/services/collector/domain"
)

// Options holds configuration options for the collector stage
type Options struct {
	Root     string   `env:"CORE_STAGING_ROOT" validate:"required"`
	Channels []string `env:"CORE_COLLECT_CHANNELS" validate:"min=1,dive,channel_ref"`
	Limit    int      `env:"CORE_COLLECT_LIMIT" validate:"min=1,max=1000"`

	// pacing of every remote call (resolve, pages, downloads)
	RPS     float64       `env:"CORE_COLLECT_RPS" validate:"gte=0"`
	Burst   int           `env:"CORE_COLLECT_BURST" validate:"min=1"`
	Timeout time.Duration `env:"CORE_COLLECT_TIMEOUT" validate:"gt=0"`

	SourceBaseURL string `env:"CORE_SOURCE_BASE_URL" validate:"required,url"`
	SourceRetries int    `env:"CORE_SOURCE_RETRIES" validate:"min=0,max=10"`
	UserAgent     string `env:"CORE_SOURCE_USER_AGENT"`
}

// FromConfig reads the collector options from config with CORE_ prefixes
func FromConfig(cfg config.Conf) Options {
	core := cfg.Prefix("CORE_")
	col := core.Prefix("COLLECT_")
	src := core.Prefix("SOURCE_")
	return Options{
		Root:          core.MayString("STAGING_ROOT", "data/raw"),
		Channels:      col.MayCSV("CHANNELS", domain.DefaultChannels),
		Limit:         col.MayInt("LIMIT", 50),
		RPS:           col.MayFloat64("RPS", 1),
		Burst:         col.MayInt("BURST", 1),
		Timeout:       col.MayDuration("TIMEOUT", 30*time.Second),
		SourceBaseURL: src.MayString("BASE_URL", "https://t.me"),
		SourceRetries: src.MayInt("RETRIES", 3),
		UserAgent:     src.MayString("USER_AGENT", ""),
	}
}

var tagOnce sync.Once

// Validate checks o, registering the channel_ref tag on first use
func (o Options) Validate() error {
	tagOnce.Do(func() {
		_ = validate.RegisterTag("channel_ref", "{0} must be a channel url, @name or name", func(s string) bool {
			_, ok := domain.Handle(s)
			return ok
		})
	})
	return validate.Struct(o)
}
