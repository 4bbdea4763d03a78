package repo

import (
	"context"
	"fmt"
	"strings"

	perr "telewarehouse/internal/platform/errors"
	"telewarehouse/internal/platform/store"
	"telewarehouse/internal/services/loader/domain"
)

// NewCH returns the clickhouse mirror sink
// clickhouse has no transactions, a failed replace may leave the table empty
func NewCH(ch store.Clickhouse) domain.Storage {
	if ch == nil {
		panic("repo.NewCH requires a non nil Clickhouse")
	}
	return &chSink{ch: ch}
}

type chSink struct{ ch store.Clickhouse }

// ReplaceMessages creates the table if needed, truncates and inserts
func (s *chSink) ReplaceMessages(ctx context.Context, rows [][]any) (int64, error) {
	t := domain.MessagesTable
	if err := s.exec(ctx,
		"CREATE DATABASE IF NOT EXISTS "+t.Ident.Schema,
		chCreateTableSQL(t),
		"TRUNCATE TABLE IF EXISTS "+t.Ident.String(),
	); err != nil {
		return 0, err
	}
	return s.insert(ctx, t, rows)
}

// ReplaceDetections drops, recreates and inserts
func (s *chSink) ReplaceDetections(ctx context.Context, rows [][]any) (int64, error) {
	t := domain.DetectionsTable
	if err := s.exec(ctx,
		"CREATE DATABASE IF NOT EXISTS "+t.Ident.Schema,
		"DROP TABLE IF EXISTS "+t.Ident.String(),
		chCreateTableSQL(t),
	); err != nil {
		return 0, err
	}
	return s.insert(ctx, t, rows)
}

func (s *chSink) exec(ctx context.Context, stmts ...string) error {
	for _, q := range stmts {
		if err := s.ch.Exec(ctx, q); err != nil {
			return perr.Wrapf(err, perr.ErrorCodeDB, "clickhouse: %s", firstWords(q))
		}
	}
	return nil
}

func (s *chSink) insert(ctx context.Context, t domain.Table, rows [][]any) (int64, error) {
	n, err := s.ch.Insert(ctx, t.Ident, t.Names(), rows)
	if err != nil {
		return n, perr.Wrapf(err, perr.ErrorCodeDB, "clickhouse: insert into %s", t.Ident)
	}
	return n, nil
}

func chCreateTableSQL(t domain.Table) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = "`" + c.Name + "` " + c.CHType
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n) ENGINE = MergeTree ORDER BY %s",
		t.Ident, strings.Join(cols, ",\n  "), t.OrderBy)
}

func firstWords(q string) string {
	f := strings.Fields(q)
	if len(f) > 4 {
		f = f[:4]
	}
	return strings.Join(f, " ")
}
