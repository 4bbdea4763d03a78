package module

import (
	"time"

	"telewarehouse/internal/platform/config"
	"telewarehouse/internal/platform/validate"
	"telewarehouse/internal/services/inference/service"
)

// Options holds configuration options for the detect stage
type Options struct {
	Root       string        `env:"CORE_STAGING_ROOT" validate:"required"`
	URL        string        `env:"CORE_DETECT_URL" validate:"required,url"`
	Confidence float64       `env:"CORE_DETECT_CONFIDENCE" validate:"gt=0,lte=1"`
	Timeout    time.Duration `env:"CORE_DETECT_TIMEOUT" validate:"gt=0"`
	Retries    int           `env:"CORE_DETECT_RETRIES" validate:"min=0,max=10"`
}

// FromConfig reads detect options, the endpoint url is not defaulted
func FromConfig(cfg config.Conf) Options {
	core := cfg.Prefix("CORE_")
	det := core.Prefix("DETECT_")
	return Options{
		Root:       core.MayString("STAGING_ROOT", "data/raw"),
		URL:        det.MayString("URL", ""),
		Confidence: det.MayFloat64("CONFIDENCE", service.DefaultConfidence),
		Timeout:    det.MayDuration("TIMEOUT", 60*time.Second),
		Retries:    det.MayInt("RETRIES", 2),
	}
}

// Validate checks o
func (o Options) Validate() error { return validate.Struct(o) }
