//go:build integration_pg
// +build integration_pg

package service

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"telewarehouse/internal/modkit/repokit"
	"telewarehouse/internal/platform/staging"
	"telewarehouse/internal/platform/store"
	"telewarehouse/internal/platform/testkit"
	"telewarehouse/internal/services/loader/repo"
)

// startPostgres launches a disposable Postgres and returns DSN + stop func
func startPostgres(t *testing.T) (dsn string, stop func()) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)

	req := tc.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "postgres",
			"POSTGRES_PASSWORD": "postgres",
			"POSTGRES_DB":       "postgres",
		},
		WaitingFor: wait.ForAll(
			wait.ForListeningPort("5432/tcp"),
			wait.ForLog("database system is ready to accept connections"),
		).WithDeadline(2 * time.Minute),
	}
	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		cancel()
		t.Fatalf("failed to start postgres container: %v", err)
	}

	host, err := c.Host(ctx)
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get container host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		_ = c.Terminate(context.Background())
		cancel()
		t.Fatalf("failed to get mapped port: %v", err)
	}

	dsn = fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mp.Port())
	stop = func() {
		_ = c.Terminate(context.Background())
		cancel()
	}
	return dsn, stop
}

func count(t *testing.T, ctx context.Context, q store.RowQuerier, table string) int64 {
	t.Helper()
	n, err := store.Scalar[int64](ctx, q, "SELECT count(*) FROM "+table)
	if err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func TestLoad_Integration_FullReplace(t *testing.T) {
	dsn, stop := startPostgres(t)
	defer stop()

	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	st, err := store.Open(ctx, store.Config{
		AppName: "telewarehouse-test",
		PG:      store.PGConfig{Enabled: true, URL: dsn, MaxConns: 2},
	}, store.WithLogger(zerolog.New(io.Discard)))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer func() { _ = st.Close(ctx) }()

	// a pre-existing table with foreign rows, loose column types and a missing column
	if err := store.ExecAll(ctx, st.PG,
		`CREATE SCHEMA raw`,
		`CREATE TABLE raw.telegram_messages (message_id BIGINT, date TEXT, views DOUBLE PRECISION, channel TEXT)`,
		`INSERT INTO raw.telegram_messages VALUES (99, '2025-01-01 00:00:00', 1.0, 'old'), (98, NULL, NULL, 'old')`,
	); err != nil {
		t.Fatal(err)
	}

	root := t.TempDir()
	stageFixture(t, root)
	svc := New(
		repokit.WithBeginHooks(st.PG, repokit.LocalSettings([2]string{"statement_timeout", "30000"})),
		repo.NewPG(), nil, staging.New(root), nil,
	)

	for run := 0; run < 2; run++ {
		if _, err := svc.Load(ctx); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
		if got := count(t, ctx, st.PG, "raw.telegram_messages"); got != 3 {
			t.Fatalf("run %d: messages = %d", run, got)
		}
		if got := count(t, ctx, st.PG, "detection.yolo_results"); got != 2 {
			t.Fatalf("run %d: detections = %d", run, got)
		}
	}

	typ, err := store.Scalar[string](ctx, st.PG,
		`SELECT format_type(atttypid, atttypmod) FROM pg_attribute WHERE attrelid = 'raw.telegram_messages'::regclass AND attname = 'views'`)
	if err != nil || typ != "bigint" {
		t.Fatalf("views type = %q err=%v", typ, err)
	}

	cat, err := store.Scalar[string](ctx, st.PG, "SELECT image_category FROM detection.yolo_results WHERE message_id = 2")
	if err != nil || cat != "promotional" {
		t.Fatalf("category = %q err=%v", cat, err)
	}

	// empty staging leaves the table alone
	empty := New(st.PG, repo.NewPG(), nil, staging.New(t.TempDir()), nil)
	testkit.WriteFile(t, empty.Layout.Root, "messages/2025-07-03/.keep.json", []byte("not json"))
	if _, err := empty.Load(ctx); err != nil {
		t.Fatalf("empty load: %v", err)
	}
	if got := count(t, ctx, st.PG, "raw.telegram_messages"); got != 3 {
		t.Fatalf("empty load changed the table: %d", got)
	}
}
