// Package service provides the collector service implementation
package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	perr "telewarehouse/internal/platform/errors"
	"telewarehouse/internal/platform/logger"
	"telewarehouse/internal/platform/metrics"
	"telewarehouse/internal/platform/staging"
	"telewarehouse/internal/services/collector/domain"
)

const stage = "collect"

// Config holds configuration options for the collector service
type Config struct {
	// Limit bounds the posts pulled per channel
	Limit int
}

// Service implements the collector
type Service struct {
	Source  domain.Source
	Layout  staging.Layout
	Cfg     Config
	Metrics *metrics.Metrics

	now func() time.Time
}

var _ domain.CollectorPort = (*Service)(nil)

// New constructs the collector service
func New(src domain.Source, layout staging.Layout, cfg Config, m *metrics.Metrics) *Service {
	if src == nil {
		panic("collector.Service requires a non nil Source")
	}
	if cfg.Limit <= 0 {
		cfg.Limit = 50
	}
	return &Service{
		Source:  src,
		Layout:  layout,
		Cfg:     cfg,
		Metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Collect pulls every channel in order and writes one batch per channel for today
// a failing channel is logged and skipped, only a run with zero written batches fails
func (s *Service) Collect(ctx context.Context, refs []string) (domain.Report, error) {
	day := s.now()
	rep := domain.Report{Day: day}
	log := logger.C(ctx)

	if err := s.Layout.EnsureRoots(); err != nil {
		return rep, perr.Wrap(err, perr.ErrorCodeIO, "collector: prepare staging")
	}

	var errs []error
	for _, ref := range refs {
		if err := ctx.Err(); err != nil {
			return rep, err
		}
		res := s.collectOne(ctx, day, ref)
		rep.Channels = append(rep.Channels, res)

		if res.Err != nil {
			errs = append(errs, res.Err)
			s.Metrics.Item(stage, "channel", metrics.OutcomeFailed)
			log.Error().Err(res.Err).Str("channel", ref).Msg("collector: channel failed")
			continue
		}
		s.Metrics.Item(stage, "channel", metrics.OutcomeOK)
		log.Info().
			Str("channel", res.Channel).
			Int("posts", res.Posts).
			Int("images", res.Images).
			Int("image_failures", res.ImageFails).
			Str("file", res.BatchPath).
			Msg("collector: batch written")
	}

	if len(refs) > 0 && rep.Succeeded() == 0 {
		return rep, errors.Join(append([]error{domain.ErrAllChannelsFailed}, errs...)...)
	}
	return rep, nil
}

func (s *Service) collectOne(ctx context.Context, day time.Time, ref string) domain.ChannelResult {
	res := domain.ChannelResult{Ref: ref}

	ch, err := s.Source.Resolve(ctx, ref)
	if err != nil {
		res.Err = perr.WithOp(err, "resolve")
		return res
	}
	name := ch.Name()
	if name == "" {
		res.Err = perr.Newf(perr.ErrorCodeUpstream, "collector: %q resolved without a name", ref)
		return res
	}
	res.Channel = name
	log := logger.C(ctx).With().Str("channel", name).Logger()

	records := make([]domain.Record, 0, s.Cfg.Limit)
	for p, err := range s.Source.Posts(ctx, ch, s.Cfg.Limit) {
		if err != nil {
			res.Err = perr.WithOp(err, "posts")
			return res
		}
		var imagePath *string
		if p.Photo != nil {
			if path, ok := s.saveImage(ctx, name, p); ok {
				imagePath = &path
				res.Images++
			} else {
				res.ImageFails++
			}
		}
		records = append(records, domain.NewRecord(name, p, imagePath))
		s.Metrics.Item(stage, "post", metrics.OutcomeOK)
		if len(records) >= s.Cfg.Limit {
			break
		}
	}
	res.Posts = len(records)

	res.BatchPath = s.Layout.BatchPath(day, name)
	if err := writeBatch(res.BatchPath, records); err != nil {
		res.Err = perr.Wrapf(err, perr.ErrorCodeIO, "collector: write %s", res.BatchPath)
		return res
	}
	log.Debug().Str("file", res.BatchPath).Msg("collector: partition overwritten")
	return res
}

// saveImage downloads the attachment, ok is false when no file can be referenced
// a file staged by an earlier run survives a failed re-download and stays referenced
func (s *Service) saveImage(ctx context.Context, channel string, p domain.Post) (string, bool) {
	log := logger.C(ctx)
	dest := s.Layout.ImagePath(channel, p.ID)
	_, statErr := os.Stat(dest)
	staged := statErr == nil

	got, err := s.Source.Download(ctx, *p.Photo, dest)
	if err == nil {
		if _, err = os.Stat(got); err == nil {
			s.Metrics.Item(stage, "image", metrics.OutcomeOK)
			return got, true
		}
	}
	if staged {
		s.Metrics.Item(stage, "image", metrics.OutcomeSkipped)
		log.Warn().Err(err).Str("channel", channel).Int64("message_id", p.ID).Msg("collector: image re-download failed, keeping staged file")
		return dest, true
	}
	s.Metrics.Item(stage, "image", metrics.OutcomeFailed)
	log.Warn().Err(err).Str("channel", channel).Int64("message_id", p.ID).Msg("collector: image download failed")
	// no file this call created may stay at dest without a record pointing at it
	if rmErr := os.Remove(dest); rmErr != nil && !os.IsNotExist(rmErr) {
		log.Warn().Err(rmErr).Str("file", dest).Msg("collector: remove failed download")
	}
	return "", false
}

// writeBatch overwrites the partition file with records as an indented JSON array
func writeBatch(path string, records []domain.Record) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "    ")
	if err := enc.Encode(records); err != nil {
		return err
	}
	return staging.WriteFileAtomic(path, bytes.TrimRight(buf.Bytes(), "\n"))
}
