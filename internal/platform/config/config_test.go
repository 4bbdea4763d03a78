package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	kit "telewarehouse/internal/platform/testkit"
)

func TestPrefixAndKey(t *testing.T) {
	core := New().Prefix("CORE_")
	if got := core.Prefix("COLLECT_").key("LIMIT"); got != "CORE_COLLECT_LIMIT" {
		t.Fatalf("key() = %q", got)
	}
}

func TestMustString(t *testing.T) {
	c := New().Prefix("TW_")
	t.Setenv("TW_URL", "  http://detector:8000 ")
	if got := c.MustString("URL"); got != "http://detector:8000" {
		t.Fatalf("MustString = %q", got)
	}
	kit.MustPanic(t, func() { _ = c.MustString("MISSING") })
}

func TestMustURL(t *testing.T) {
	c := New().Prefix("TW_")
	t.Setenv("TW_BASE", "https://t.me")
	if u := c.MustURL("BASE"); u.Host != "t.me" {
		t.Fatalf("unexpected host %q", u.Host)
	}
	t.Setenv("TW_REL", "/relative")
	kit.MustPanic(t, func() { _ = c.MustURL("REL") })
}

func TestMayFallbacks(t *testing.T) {
	c := New().Prefix("TW_")
	t.Setenv("TW_LIMIT", "nope")
	t.Setenv("TW_CONF", "0.4")
	t.Setenv("TW_ON", "true")
	t.Setenv("TW_WAIT", "2s")

	if got := c.MayInt("LIMIT", 50); got != 50 {
		t.Fatalf("MayInt invalid should fall back, got %d", got)
	}
	if got := c.MayFloat64("CONF", 0.25); got != 0.4 {
		t.Fatalf("MayFloat64 = %v", got)
	}
	if !c.MayBool("ON", false) {
		t.Fatalf("MayBool expected true")
	}
	if got := c.MayDuration("WAIT", time.Second); got != 2*time.Second {
		t.Fatalf("MayDuration = %v", got)
	}
	if got := c.MayString("ABSENT", "def"); got != "def" {
		t.Fatalf("MayString = %q", got)
	}
	if c.Has("ABSENT") || !c.Has("ON") {
		t.Fatalf("Has mismatch")
	}
}

func TestMayCSV(t *testing.T) {
	c := New().Prefix("TW_")
	t.Setenv("TW_CHANNELS", " https://t.me/a , ,b,")
	got := c.MayCSV("CHANNELS", nil)
	if len(got) != 2 || got[0] != "https://t.me/a" || got[1] != "b" {
		t.Fatalf("MayCSV = %#v", got)
	}
	t.Setenv("TW_EMPTY", " , ")
	if got := c.MayCSV("EMPTY", []string{"x"}); len(got) != 1 || got[0] != "x" {
		t.Fatalf("MayCSV empty should default, got %#v", got)
	}
}

func TestLoadDotenv_ProcessEnvWins(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	if err := os.WriteFile(path, []byte("TW_DOTENV_A=file\nTW_DOTENV_B=file\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TW_DOTENV_A", "process")
	t.Setenv("TW_DOTENV_B", "")
	os.Unsetenv("TW_DOTENV_B")

	got := LoadDotenv(path, filepath.Join(dir, "missing.env"))
	if len(got) != 1 || got[0] != path {
		t.Fatalf("loaded = %v", got)
	}
	if v := os.Getenv("TW_DOTENV_A"); v != "process" {
		t.Fatalf("A = %q", v)
	}
	if v := os.Getenv("TW_DOTENV_B"); v != "file" {
		t.Fatalf("B = %q", v)
	}
}
