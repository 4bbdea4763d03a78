// Package domain holds the pipeline run state machine
package domain

import (
	"slices"
	"time"

	perr "telewarehouse/internal/platform/errors"
)

// State is a pipeline run state
type State string

// run states
const (
	Pending    State = "pending"
	Collecting State = "collecting"
	Detecting  State = "detecting"
	Loading    State = "loading"
	Done       State = "done"
	Failed     State = "failed"
)

// Stage names as exposed by the stage modules
const (
	StageCollect = "collect"
	StageDetect  = "detect"
	StageLoad    = "load"
)

// Order is the full stage sequence
var Order = []string{StageCollect, StageDetect, StageLoad}

var stageStates = map[string]State{
	StageCollect: Collecting,
	StageDetect:  Detecting,
	StageLoad:    Loading,
}

// StateOf returns the running state for a stage name
func StateOf(stage string) (State, bool) {
	s, ok := stageStates[stage]
	return s, ok
}

// Terminal reports whether no transition leaves s
func (s State) Terminal() bool { return s == Done || s == Failed }

// Transition is one recorded state change
type Transition struct {
	From State
	To   State
	At   time.Time
	Err  error
}

// Run tracks one pipeline execution
type Run struct {
	ID          string
	State       State
	Plan        []State
	Transitions []Transition
	Err         error

	next int
}

// NewRun starts a run in Pending that will walk plan in order
func NewRun(id string, plan []State) *Run {
	return &Run{ID: id, State: Pending, Plan: slices.Clone(plan)}
}

// Next returns the state the run may enter on success
func (r *Run) Next() State {
	if r.next < len(r.Plan) {
		return r.Plan[r.next]
	}
	return Done
}

// Advance moves the run to to
// only the next planned state (or done after the last) and failed are accepted
func (r *Run) Advance(to State, err error, at time.Time) error {
	if r.State.Terminal() {
		return perr.Newf(perr.ErrorCodeInvalidArgument, "pipeline: run %s already %s", r.ID, r.State)
	}
	switch {
	case to == Failed:
		r.Err = err
	case to == r.Next():
		r.next++
	default:
		return perr.Newf(perr.ErrorCodeInvalidArgument, "pipeline: illegal transition %s -> %s", r.State, to)
	}
	r.Transitions = append(r.Transitions, Transition{From: r.State, To: to, At: at, Err: err})
	r.State = to
	return nil
}
