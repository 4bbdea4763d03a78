// Package repo provides the loader sink implementations
package repo

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"telewarehouse/internal/modkit/repokit"
	perr "telewarehouse/internal/platform/errors"
	"telewarehouse/internal/platform/store"
	"telewarehouse/internal/services/loader/domain"
)

type (
	pg       struct{ q repokit.Queryer }
	pgBinder struct{}
)

// NewPG constructs a new repo binder for Postgres
// bind it to a tx so each replace is all or nothing
func NewPG() repokit.Binder[domain.Storage] { return pgBinder{} }

// Bind implements repokit.Binder
func (pgBinder) Bind(q repokit.Queryer) domain.Storage { return &pg{q: q} }

// driftSQL lists existing columns whose type differs from the wanted one
const driftSQL = `SELECT a.attname, w.typ
FROM pg_attribute a
JOIN unnest($2::text[], $3::text[]) AS w(name, typ) ON a.attname = w.name
WHERE a.attrelid = $1::text::regclass
  AND a.attnum > 0
  AND NOT a.attisdropped
  AND a.atttypid <> w.typ::regtype
ORDER BY a.attnum`

// ReplaceMessages ensures the table shape then truncates and copies rows
func (s *pg) ReplaceMessages(ctx context.Context, rows [][]any) (int64, error) {
	t := domain.MessagesTable
	stmts := []string{createSchemaSQL(t), createTableSQL(t)}
	stmts = append(stmts, addColumnsSQL(t)...)
	stmts = append(stmts, "TRUNCATE TABLE "+quote(t.Ident))
	if err := store.ExecAll(ctx, s.q, stmts...); err != nil {
		return 0, perr.WithOp(err, "replace "+t.Ident.String())
	}
	if err := s.retype(ctx, t); err != nil {
		return 0, perr.WithOp(err, "replace "+t.Ident.String())
	}
	return s.copy(ctx, t, rows)
}

// ReplaceDetections drops and recreates the table then copies rows
func (s *pg) ReplaceDetections(ctx context.Context, rows [][]any) (int64, error) {
	t := domain.DetectionsTable
	err := store.ExecAll(ctx, s.q,
		createSchemaSQL(t),
		"DROP TABLE IF EXISTS "+quote(t.Ident),
		createTableSQL(t),
	)
	if err != nil {
		return 0, perr.WithOp(err, "replace "+t.Ident.String())
	}
	return s.copy(ctx, t, rows)
}

// retype converts columns left with another type by an older loader
// it runs after the truncate so the casts never see data
func (s *pg) retype(ctx context.Context, t domain.Table) error {
	types := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		types[i] = c.PGType
	}
	drifted, err := store.Many(ctx, s.q, func(r store.Row) (domain.Column, error) {
		var c domain.Column
		return c, r.Scan(&c.Name, &c.PGType)
	}, driftSQL, quote(t.Ident), t.Names(), types)
	if err != nil {
		return perr.FromPostgresf(err, "inspect columns of %s", t.Ident)
	}
	if len(drifted) == 0 {
		return nil
	}
	return store.ExecAll(ctx, s.q, retypeSQL(t, drifted)...)
}

func (s *pg) copy(ctx context.Context, t domain.Table, rows [][]any) (int64, error) {
	n, err := s.q.CopyFrom(ctx, t.Ident, t.Names(), rows)
	if err != nil {
		return 0, perr.FromPostgresf(err, "copy into %s", t.Ident)
	}
	if n != int64(len(rows)) {
		return n, perr.DBf("copy into %s: %d of %d rows", t.Ident, n, len(rows))
	}
	return n, nil
}

func quote(i store.Ident) string {
	return pgx.Identifier{i.Schema, i.Table}.Sanitize()
}

func createSchemaSQL(t domain.Table) string {
	return "CREATE SCHEMA IF NOT EXISTS " + pgx.Identifier{t.Ident.Schema}.Sanitize()
}

func createTableSQL(t domain.Table) string {
	cols := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		cols[i] = pgx.Identifier{c.Name}.Sanitize() + " " + c.PGType
	}
	return fmt.Sprintf("CREATE TABLE IF NOT EXISTS %s (\n  %s\n)", quote(t.Ident), strings.Join(cols, ",\n  "))
}

// addColumnsSQL tolerates a table created by an older layout
func addColumnsSQL(t domain.Table) []string {
	out := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		out[i] = fmt.Sprintf("ALTER TABLE %s ADD COLUMN IF NOT EXISTS %s %s", quote(t.Ident), pgx.Identifier{c.Name}.Sanitize(), c.PGType)
	}
	return out
}

func retypeSQL(t domain.Table, cols []domain.Column) []string {
	out := make([]string, len(cols))
	for i, c := range cols {
		name := pgx.Identifier{c.Name}.Sanitize()
		out[i] = fmt.Sprintf("ALTER TABLE %s ALTER COLUMN %s TYPE %s USING %s::%s", quote(t.Ident), name, c.PGType, name, c.PGType)
	}
	return out
}
