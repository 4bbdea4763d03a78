// Package service provides the inference runner implementation
package service

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	perr "telewarehouse/internal/platform/errors"
	"telewarehouse/internal/platform/logger"
	"telewarehouse/internal/platform/metrics"
	"telewarehouse/internal/platform/staging"
	"telewarehouse/internal/services/inference/domain"
)

const stage = "detect"

// DefaultConfidence is the detection threshold used when none is configured
const DefaultConfidence = 0.25

// Config holds configuration options for the runner
type Config struct {
	Confidence float64
}

// Service implements the inference runner
type Service struct {
	Detector domain.Detector
	Layout   staging.Layout
	Cfg      Config
	Metrics  *metrics.Metrics
}

var _ domain.RunnerPort = (*Service)(nil)

// New constructs the runner
func New(det domain.Detector, layout staging.Layout, cfg Config, m *metrics.Metrics) *Service {
	if det == nil {
		panic("inference.Service requires a non nil Detector")
	}
	if cfg.Confidence <= 0 {
		cfg.Confidence = DefaultConfidence
	}
	return &Service{Detector: det, Layout: layout, Cfg: cfg, Metrics: m}
}

// Run detects every staged image and overwrites the detections table
// a missing image root is ErrNoImageRoot, an empty one logs and writes nothing
// and ErrAllImagesFailed means images existed but none were detected
func (s *Service) Run(ctx context.Context) (domain.Report, error) {
	log := logger.C(ctx)
	root := s.Layout.ImagesDir()
	rep := domain.Report{Path: s.Layout.DetectionsPath()}

	ok, err := staging.DirExists(root)
	if err != nil {
		return rep, perr.Wrap(err, perr.ErrorCodeIO, "inference: stat image root")
	}
	if !ok {
		log.Error().Str("dir", root).Msg("inference: image root not found, run the collector first")
		return rep, domain.ErrNoImageRoot
	}

	channels, err := os.ReadDir(root)
	if err != nil {
		return rep, perr.Wrap(err, perr.ErrorCodeIO, "inference: list image root")
	}

	var rows []domain.Result
	for _, ch := range channels {
		if !ch.IsDir() {
			continue
		}
		got, err := s.runChannel(ctx, ch.Name(), &rep)
		if err != nil {
			return rep, err
		}
		rows = append(rows, got...)
	}

	if len(rows) == 0 && rep.Failed > 0 {
		log.Error().Str("dir", root).Int("failed", rep.Failed).Msg("inference: every detection failed, prior table left in place")
		return rep, domain.ErrAllImagesFailed
	}
	if len(rows) == 0 {
		log.Warn().Str("dir", root).Int("failed", rep.Failed).Msg("inference: no images processed, nothing written")
		return rep, nil
	}

	err = staging.WriteAtomic(rep.Path, func(w io.Writer) error {
		return domain.WriteTable(w, rows)
	})
	if err != nil {
		return rep, perr.Wrapf(err, perr.ErrorCodeIO, "inference: write %s", rep.Path)
	}
	rep.Written = true
	log.Info().
		Int("images", rep.Images).
		Int("failed", rep.Failed).
		Int("skipped", rep.Skipped).
		Str("file", rep.Path).
		Msg("inference: detections written")
	return rep, nil
}

func (s *Service) runChannel(ctx context.Context, channel string, rep *domain.Report) ([]domain.Result, error) {
	log := logger.C(ctx).With().Str("channel", channel).Logger()
	dir := filepath.Join(s.Layout.ImagesDir(), channel)

	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeIO, "inference: list %s", dir)
	}

	out := make([]domain.Result, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !staging.IsImageFile(e.Name()) {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		id, err := strconv.ParseInt(strings.TrimSuffix(e.Name(), staging.ImageExt), 10, 64)
		if err != nil {
			rep.Skipped++
			s.Metrics.Item(stage, "image", metrics.OutcomeSkipped)
			log.Warn().Str("file", e.Name()).Msg("inference: file stem is not a message id")
			continue
		}

		path := filepath.Join(dir, e.Name())
		dets, err := s.Detector.Detect(ctx, path, s.Cfg.Confidence)
		if err != nil {
			rep.Failed++
			s.Metrics.Item(stage, "image", metrics.OutcomeFailed)
			log.Error().Err(err).Int64("message_id", id).Str("file", path).Msg("inference: detection failed")
			continue
		}
		out = append(out, domain.NewResult(channel, id, dets))
		rep.Images++
		s.Metrics.Item(stage, "image", metrics.OutcomeOK)
	}
	return out, nil
}
