package module

import (
	"context"
	"errors"
	"iter"
	"testing"

	"telewarehouse/internal/modkit"
	"telewarehouse/internal/modkit/module"
	"telewarehouse/internal/platform/config"
	perr "telewarehouse/internal/platform/errors"
	"telewarehouse/internal/services/collector/domain"
)

func TestFromConfig_Defaults(t *testing.T) {
	t.Setenv("CORE_COLLECT_CHANNELS", "")
	t.Setenv("CORE_COLLECT_LIMIT", "")
	o := FromConfig(config.New())
	if o.Root != "data/raw" || o.Limit != 50 || len(o.Channels) != 3 || o.SourceBaseURL != "https://t.me" {
		t.Fatalf("defaults = %+v", o)
	}
	if err := o.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
}

func TestFromConfig_Overrides(t *testing.T) {
	t.Setenv("CORE_STAGING_ROOT", "/tmp/stage")
	t.Setenv("CORE_COLLECT_CHANNELS", "@a, b_2")
	t.Setenv("CORE_COLLECT_LIMIT", "10")
	o := FromConfig(config.New())
	if o.Root != "/tmp/stage" || o.Limit != 10 || len(o.Channels) != 2 || o.Channels[1] != "b_2" {
		t.Fatalf("overrides = %+v", o)
	}
}

func TestValidate_Rejects(t *testing.T) {
	o := FromConfig(config.New())
	o.Channels = []string{"not a channel"}
	if err := o.Validate(); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	o = FromConfig(config.New())
	o.Limit = 0
	if err := o.Validate(); err == nil {
		t.Fatalf("limit 0 should fail")
	}
}

type emptySource struct{}

func (emptySource) Resolve(context.Context, string) (domain.Channel, error) {
	return domain.Channel{}, errors.New("offline")
}

func (emptySource) Posts(context.Context, domain.Channel, int) iter.Seq2[domain.Post, error] {
	return func(func(domain.Post, error) bool) {}
}

func (emptySource) Download(context.Context, domain.Photo, string) (string, error) {
	return "", errors.New("offline")
}

func TestModule_RunAndPorts(t *testing.T) {
	opts := FromConfig(config.New())
	opts.Root = t.TempDir()
	m := NewWithSource(modkit.Deps{}, opts, emptySource{})

	if m.Name() != "collect" {
		t.Fatalf("name = %q", m.Name())
	}
	if _, ok := module.PortsOf[domain.CollectorPort](m); !ok {
		t.Fatalf("collector port not exposed")
	}
	if err := m.Run(context.Background()); !errors.Is(err, domain.ErrAllChannelsFailed) {
		t.Fatalf("expected all channels failed, got %v", err)
	}
}
