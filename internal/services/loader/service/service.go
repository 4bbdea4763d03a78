// Package service provides the loader implementation
package service

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"telewarehouse/internal/modkit/repokit"
	perr "telewarehouse/internal/platform/errors"
	"telewarehouse/internal/platform/logger"
	"telewarehouse/internal/platform/metrics"
	"telewarehouse/internal/platform/staging"
	infdom "telewarehouse/internal/services/inference/domain"
	"telewarehouse/internal/services/loader/domain"
)

const stage = "load"

// sink labels for metrics and logs
const (
	SinkPostgres   = "postgres"
	SinkClickhouse = "clickhouse"
)

// Service implements the loader
type Service struct {
	DB     repokit.TxRunner
	Binder repokit.Binder[domain.Storage]
	// Mirror is an optional second sink replaced after the primary
	Mirror  domain.Storage
	Layout  staging.Layout
	Metrics *metrics.Metrics
}

var _ domain.LoaderPort = (*Service)(nil)

// New constructs the loader service, mirror may be nil
func New(
	db repokit.TxRunner,
	binder repokit.Binder[domain.Storage],
	mirror domain.Storage,
	layout staging.Layout,
	m *metrics.Metrics,
) *Service {
	if db == nil {
		panic("loader.Service requires a non nil TxRunner")
	}
	if binder == nil {
		panic("loader.Service requires a non nil Repo binder")
	}
	return &Service{DB: db, Binder: binder, Mirror: mirror, Layout: layout, Metrics: m}
}

// Load replaces the message table from every staged partition and the detection table from the latest snapshot
// the two replaces are independent, both run and their errors are joined
func (s *Service) Load(ctx context.Context) (domain.Report, error) {
	var rep domain.Report
	msgErr := s.loadMessages(ctx, &rep)
	if errors.Is(msgErr, context.Canceled) {
		return rep, msgErr
	}
	detErr := s.loadDetections(ctx, &rep)
	return rep, errors.Join(msgErr, detErr)
}

func (s *Service) loadMessages(ctx context.Context, rep *domain.Report) error {
	log := logger.C(ctx)
	rows, err := s.readMessages(ctx, rep)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		rep.MessagesSkipped = true
		log.Warn().Str("dir", s.Layout.MessagesDir()).Msg("loader: no staged messages, sink left untouched")
		return nil
	}
	n, err := s.replace(ctx, domain.MessagesTable, rows, domain.Storage.ReplaceMessages)
	rep.Messages = n
	return err
}

func (s *Service) loadDetections(ctx context.Context, rep *domain.Report) error {
	log := logger.C(ctx)
	path := s.Layout.DetectionsPath()
	results, err := readDetections(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		rep.DetectionsSkipped = true
		log.Warn().Str("file", path).Msg("loader: no detections file, skipping")
		return nil
	case err != nil:
		rep.DetectionsSkipped = true
		s.Metrics.Item(stage, "detections", metrics.OutcomeSkipped)
		log.Warn().Err(err).Str("file", path).Msg("loader: detections file unreadable, skipping")
		return nil
	}
	rows := make([][]any, len(results))
	for i, r := range results {
		rows[i] = domain.DetectionRow(r)
	}
	n, err := s.replace(ctx, domain.DetectionsTable, rows, domain.Storage.ReplaceDetections)
	rep.Detections = n
	return err
}

type replaceFn func(domain.Storage, context.Context, [][]any) (int64, error)

// replace runs fn on the primary sink inside one tx, then on the mirror
func (s *Service) replace(ctx context.Context, t domain.Table, rows [][]any, fn replaceFn) (int64, error) {
	log := logger.C(ctx).With().Str("table", t.Ident.String()).Logger()

	var n int64
	err := repokit.WithTx(ctx, s.DB, func(q repokit.Queryer) error {
		var err error
		n, err = fn(s.Binder.Bind(q), ctx, rows)
		return err
	})
	if err != nil {
		return 0, perr.WithOp(err, "load "+t.Ident.String())
	}
	s.Metrics.RowsLoaded(SinkPostgres, t.Ident.String(), n)
	log.Info().Str("sink", SinkPostgres).Int64("rows", n).Msg("loader: table replaced")

	if s.Mirror != nil {
		m, err := fn(s.Mirror, ctx, rows)
		if err != nil {
			return n, perr.WithOp(err, "mirror "+t.Ident.String())
		}
		s.Metrics.RowsLoaded(SinkClickhouse, t.Ident.String(), m)
		log.Info().Str("sink", SinkClickhouse).Int64("rows", m).Msg("loader: table replaced")
	}
	return n, nil
}

// readMessages concatenates every batch of every partition, broken batches are skipped
func (s *Service) readMessages(ctx context.Context, rep *domain.Report) ([][]any, error) {
	log := logger.C(ctx)
	root := s.Layout.MessagesDir()

	ok, err := staging.DirExists(root)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeIO, "loader: stat staging root")
	}
	if !ok {
		log.Error().Str("dir", root).Msg("loader: staging root not found, run the collector first")
		return nil, domain.ErrNoStagingRoot
	}

	partitions, err := os.ReadDir(root)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeIO, "loader: list partitions")
	}

	var rows [][]any
	for _, p := range partitions {
		if !p.IsDir() {
			continue
		}
		dir := filepath.Join(root, p.Name())
		files, err := os.ReadDir(dir)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeIO, "loader: list %s", dir)
		}
		for _, f := range files {
			if f.IsDir() || !staging.IsBatchFile(f.Name()) {
				continue
			}
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			path := filepath.Join(dir, f.Name())
			got, err := readBatch(path)
			if err != nil {
				rep.Broken++
				s.Metrics.Item(stage, "batch", metrics.OutcomeSkipped)
				log.Warn().Err(err).Str("file", path).Msg("loader: skipping broken batch")
				continue
			}
			rep.Batches++
			s.Metrics.Item(stage, "batch", metrics.OutcomeOK)
			rows = append(rows, got...)
		}
	}
	return rows, nil
}

func readBatch(path string) ([][]any, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeIO, "read batch")
	}
	var recs []domain.PostRecord
	if err := json.Unmarshal(raw, &recs); err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "decode batch")
	}
	rows := make([][]any, 0, len(recs))
	for _, r := range recs {
		row, err := domain.MessageRow(r)
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeMalformed, "message %d", r.MessageID)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func readDetections(path string) ([]infdom.Result, error) {
	fh, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer fh.Close()
	rows, err := infdom.ReadTable(fh)
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeMalformed, "decode detections")
	}
	return rows, nil
}
