package validate

import (
	"strings"
	"testing"

	perr "telewarehouse/internal/platform/errors"
	"telewarehouse/internal/platform/testkit"
)

type opts struct {
	Root     string   `env:"CORE_STAGING_ROOT" validate:"required"`
	Limit    int      `env:"CORE_COLLECT_LIMIT" validate:"min=1,max=1000"`
	Channels []string `env:"CORE_COLLECT_CHANNELS" validate:"min=1,dive,lower_ref"`
}

func init() {
	if err := RegisterTag("lower_ref", "{0} must be lowercase", func(s string) bool {
		return s != "" && s == strings.ToLower(s)
	}); err != nil {
		panic(err)
	}
}

func TestStruct_OK(t *testing.T) {
	o := opts{Root: "data/raw", Limit: 50, Channels: []string{"tikvahpharma", "chemedtelegram"}}
	if err := Struct(o); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestStruct_MessagesUseEnvNames(t *testing.T) {
	cases := []struct {
		name string
		in   opts
		want string
	}{
		{"required", opts{Limit: 1, Channels: []string{"a"}}, "CORE_STAGING_ROOT is a required field"},
		{"max", opts{Root: "r", Limit: 5000, Channels: []string{"a"}}, "CORE_COLLECT_LIMIT must be at most 1000"},
		{"custom tag", opts{Root: "r", Limit: 1, Channels: []string{"Upper"}}, "must be lowercase"},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			err := Struct(c.in)
			if err == nil {
				t.Fatalf("expected error")
			}
			if !perr.IsCode(err, perr.ErrorCodeValidation) {
				t.Fatalf("expected validation code, got %v", perr.CodeOf(err))
			}
			testkit.MustContain(t, err.Error(), c.want)
		})
	}
}

func TestStruct_NonStruct(t *testing.T) {
	if err := Struct(42); !perr.IsCode(err, perr.ErrorCodeValidation) {
		t.Fatalf("expected validation error for non struct, got %v", err)
	}
}
