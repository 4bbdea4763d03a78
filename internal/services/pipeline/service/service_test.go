package service

import (
	"context"
	"errors"
	"testing"

	perr "telewarehouse/internal/platform/errors"
	"telewarehouse/internal/platform/logger"
	"telewarehouse/internal/platform/metrics"
	"telewarehouse/internal/services/pipeline/domain"
)

type fakeStage struct {
	name  string
	err   error
	calls *[]string
	runID *string
}

func (f fakeStage) Name() string { return f.name }

func (f fakeStage) Run(ctx context.Context) error {
	*f.calls = append(*f.calls, f.name)
	if f.runID != nil {
		*f.runID = logger.RunID(ctx)
	}
	return f.err
}

func stages(calls *[]string, failAt string) []Stage {
	out := make([]Stage, 0, len(domain.Order))
	for _, n := range domain.Order {
		st := fakeStage{name: n, calls: calls}
		if n == failAt {
			st.err = errors.New(n + " broke")
		}
		out = append(out, st)
	}
	return out
}

func TestRun_AllStagesInOrder(t *testing.T) {
	var calls []string
	svc, err := New(stages(&calls, ""), metrics.New())
	if err != nil {
		t.Fatal(err)
	}
	run, err := svc.Run(context.Background(), "")
	if err != nil {
		t.Fatalf("run: %v", err)
	}
	if run.State != domain.Done || len(calls) != 3 || calls[0] != "collect" || calls[2] != "load" {
		t.Fatalf("state=%s calls=%v", run.State, calls)
	}
	want := []domain.State{domain.Collecting, domain.Detecting, domain.Loading, domain.Done}
	for i, tr := range run.Transitions {
		if tr.To != want[i] {
			t.Fatalf("transition %d = %s want %s", i, tr.To, want[i])
		}
	}
}

func TestRun_FailureShortCircuits(t *testing.T) {
	var calls []string
	svc, _ := New(stages(&calls, "detect"), nil)
	run, err := svc.Run(context.Background(), "")
	if err == nil {
		t.Fatalf("expected failure")
	}
	if run.State != domain.Failed || run.Err == nil {
		t.Fatalf("run = %+v", run)
	}
	if len(calls) != 2 {
		t.Fatalf("load must not run after detect failed: %v", calls)
	}
}

func TestRun_Only(t *testing.T) {
	var calls []string
	svc, _ := New(stages(&calls, ""), nil)
	run, err := svc.Run(context.Background(), "load")
	if err != nil {
		t.Fatal(err)
	}
	if len(calls) != 1 || calls[0] != "load" || run.State != domain.Done {
		t.Fatalf("calls=%v state=%s", calls, run.State)
	}
	if _, err := svc.Run(context.Background(), "publish"); !perr.IsCode(err, perr.ErrorCodeInvalidArgument) {
		t.Fatalf("unknown only should be invalid argument, got %v", err)
	}
}

func TestRun_StampsRunID(t *testing.T) {
	var calls []string
	var seen string
	svc, _ := New([]Stage{fakeStage{name: "collect", calls: &calls, runID: &seen}}, nil)
	svc.newID = func() string { return "run-1" }
	run, err := svc.Run(context.Background(), "")
	if err != nil {
		t.Fatal(err)
	}
	if run.ID != "run-1" || seen != "run-1" {
		t.Fatalf("run id = %q seen = %q", run.ID, seen)
	}
}

func TestRun_CanceledBeforeStage(t *testing.T) {
	var calls []string
	svc, _ := New(stages(&calls, ""), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	run, err := svc.Run(ctx, "")
	if !errors.Is(err, context.Canceled) || run.State != domain.Failed || len(calls) != 0 {
		t.Fatalf("err=%v state=%s calls=%v", err, run.State, calls)
	}
}

func TestNew_RejectsBadStages(t *testing.T) {
	var calls []string
	if _, err := New([]Stage{fakeStage{name: "load", calls: &calls}, fakeStage{name: "collect", calls: &calls}}, nil); err == nil {
		t.Fatalf("out of order stages should fail")
	}
	if _, err := New([]Stage{fakeStage{name: "publish", calls: &calls}}, nil); err == nil {
		t.Fatalf("unknown stage should fail")
	}
}
