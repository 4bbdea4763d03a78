package module

import (
	"context"
	"strings"
	"testing"

	"telewarehouse/internal/modkit"
	"telewarehouse/internal/platform/config"
	perr "telewarehouse/internal/platform/errors"
	"telewarehouse/internal/platform/store"
	"telewarehouse/internal/platform/testkit"
)

type tag struct{}

func (tag) String() string      { return "OK" }
func (tag) RowsAffected() int64 { return 0 }

type fakePG struct {
	stmts  []string
	copied int
}

func (f *fakePG) Exec(_ context.Context, sql string, _ ...any) (store.CommandTag, error) {
	f.stmts = append(f.stmts, sql)
	return tag{}, nil
}
func (f *fakePG) Query(context.Context, string, ...any) (store.Rows, error) { return nil, nil }
func (f *fakePG) QueryRow(context.Context, string, ...any) store.Row         { return nil }
func (f *fakePG) CopyFrom(_ context.Context, _ store.Ident, _ []string, rows [][]any) (int64, error) {
	f.copied += len(rows)
	return int64(len(rows)), nil
}
func (f *fakePG) Tx(ctx context.Context, fn func(q store.RowQuerier) error) error { return fn(f) }

func TestNew_RequiresPG(t *testing.T) {
	_, err := New(modkit.Deps{Cfg: config.New()})
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("expected unavailable, got %v", err)
	}
}

func TestRun_AppliesLocalSettings(t *testing.T) {
	root := t.TempDir()
	t.Setenv("CORE_STAGING_ROOT", root)
	t.Setenv("CORE_LOAD_STATEMENT_TIMEOUT", "90s")
	testkit.WriteFile(t, root, "messages/2025-07-01/shopA.json",
		[]byte(`[{"message_id":1,"date":"2025-07-01T08:00:00+00:00","text":null,"views":null,"forwards":null,"image_path":null,"channel":"shopA"}]`))

	pg := &fakePG{}
	m, err := New(modkit.Deps{Cfg: config.New(), PG: pg})
	if err != nil {
		t.Fatal(err)
	}
	if m.Name() != "load" {
		t.Fatalf("name = %q", m.Name())
	}
	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("run: %v", err)
	}
	if pg.copied != 1 {
		t.Fatalf("copied = %d", pg.copied)
	}
	if pg.stmts[0] != "SET LOCAL statement_timeout = '90000'" || !strings.HasPrefix(pg.stmts[1], "SET LOCAL lock_timeout") {
		t.Fatalf("tx did not start with local settings: %q", pg.stmts[:2])
	}
}
