// Package service drives the stages through the pipeline state machine
package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	perr "telewarehouse/internal/platform/errors"
	"telewarehouse/internal/platform/logger"
	"telewarehouse/internal/platform/metrics"
	"telewarehouse/internal/services/pipeline/domain"
)

const component = "pipeline"

// Stage is one runnable pipeline stage, stage modules satisfy it
type Stage interface {
	Name() string
	Run(ctx context.Context) error
}

// Service runs stages strictly in sequence
type Service struct {
	Stages  []Stage
	Metrics *metrics.Metrics

	now   func() time.Time
	newID func() string
}

// New constructs the driver, stages must be known and in pipeline order
func New(stages []Stage, m *metrics.Metrics) (*Service, error) {
	last := -1
	for _, st := range stages {
		i := indexOf(st.Name())
		if i < 0 {
			return nil, perr.InvalidArgf("pipeline: unknown stage %q", st.Name())
		}
		if i <= last {
			return nil, perr.InvalidArgf("pipeline: stage %q out of order", st.Name())
		}
		last = i
	}
	return &Service{
		Stages:  stages,
		Metrics: m,
		now:     func() time.Time { return time.Now().UTC() },
		newID:   func() string { return uuid.NewString() },
	}, nil
}

func indexOf(name string) int {
	for i, n := range domain.Order {
		if n == name {
			return i
		}
	}
	return -1
}

// Run walks every stage, or only the named one, and stops at the first failure
func (s *Service) Run(ctx context.Context, only string) (*domain.Run, error) {
	stages := s.Stages
	if only != "" {
		stages = nil
		for _, st := range s.Stages {
			if st.Name() == only {
				stages = []Stage{st}
			}
		}
		if stages == nil {
			return nil, perr.InvalidArgf("pipeline: stage %q not configured", only)
		}
	}

	plan := make([]domain.State, len(stages))
	for i, st := range stages {
		plan[i], _ = domain.StateOf(st.Name())
	}
	run := domain.NewRun(s.newID(), plan)
	ctx = logger.WithRun(ctx, run.ID, "")
	log := logger.C(ctx)
	log.Info().Strs("plan", statesOf(plan)).Msg("pipeline: run start")

	for _, st := range stages {
		to := run.Next()
		if err := ctx.Err(); err != nil {
			return run, s.fail(ctx, run, st.Name(), err)
		}
		s.advance(ctx, run, to, nil)

		sctx := logger.WithRun(ctx, run.ID, st.Name())
		if err := st.Run(sctx); err != nil {
			return run, s.fail(ctx, run, st.Name(), err)
		}
	}
	s.advance(ctx, run, domain.Done, nil)
	s.Metrics.Item(component, "run", metrics.OutcomeOK)
	log.Info().Msg("pipeline: run done")
	return run, nil
}

func (s *Service) fail(ctx context.Context, run *domain.Run, stage string, err error) error {
	s.advance(ctx, run, domain.Failed, err)
	s.Metrics.Item(component, "run", metrics.OutcomeFailed)
	logger.C(ctx).Error().Err(err).Str("failed_stage", stage).Msg("pipeline: run failed, downstream stages skipped")
	return fmt.Errorf("pipeline: %s: %w", stage, err)
}

func (s *Service) advance(ctx context.Context, run *domain.Run, to domain.State, cause error) {
	from := run.State
	if err := run.Advance(to, cause, s.now()); err != nil {
		// plan and stages are built together, an illegal step is a bug
		panic(err)
	}
	s.Metrics.Item(component, "state_"+string(to), metrics.OutcomeOK)
	logger.C(ctx).Debug().Str("from", string(from)).Str("to", string(to)).Msg("pipeline: transition")
}

func statesOf(xs []domain.State) []string {
	out := make([]string, len(xs))
	for i, x := range xs {
		out[i] = string(x)
	}
	return out
}
