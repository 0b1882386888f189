package scan

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"geoattend/internal/location"
	"geoattend/internal/qr"
	"geoattend/internal/verify"
)

// State is the position of one scan attempt in its lifecycle.
type State int

const (
	StateIdle State = iota
	StateScanned
	StateRejectedParse
	StateRejectedExpired
	StateAwaitingFix
	StateRejectedNoLocation
	StateEvaluated
	StateAdmitted
	StateRejectedOutOfRange
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateScanned:
		return "scanned"
	case StateRejectedParse:
		return "rejected_parse"
	case StateRejectedExpired:
		return "rejected_expired"
	case StateAwaitingFix:
		return "awaiting_fix"
	case StateRejectedNoLocation:
		return "rejected_no_location"
	case StateEvaluated:
		return "evaluated"
	case StateAdmitted:
		return "admitted"
	case StateRejectedOutOfRange:
		return "rejected_out_of_range"
	default:
		return "unknown"
	}
}

// Terminal reports whether the state ends a scan attempt. A terminal flow
// ignores further scans until Rearm.
func (s State) Terminal() bool {
	switch s {
	case StateRejectedParse, StateRejectedExpired, StateRejectedNoLocation,
		StateAdmitted, StateRejectedOutOfRange:
		return true
	}
	return false
}

var (
	// ErrNotArmed means a scan event arrived while a previous attempt was
	// still in flight or waiting for an explicit re-arm.
	ErrNotArmed = errors.New("scanner not armed")
	// ErrExpired means the claim's time window had already closed.
	ErrExpired = errors.New("claim expired")
	// ErrOutOfRange means a fix was obtained but lies outside the geofence.
	ErrOutOfRange = errors.New("out of attendance range")
	// ErrCommitFailed means the claim was admitted but the store write failed.
	// The attendance is NOT marked; the caller must surface this.
	ErrCommitFailed = errors.New("attendance commit failed")
)

// Sink commits an admitted claim into the attendance store.
type Sink interface {
	CommitQR(ctx context.Context, studentID, courseID, date, sessionID string, fix location.Fix) error
}

// Flow runs one scan attempt at a time: decode, expiry check, fresh fix,
// admission decision, commit. It never auto-resets; every terminal state
// requires an explicit Rearm before the next scan is accepted.
type Flow struct {
	provider location.Provider
	sink     Sink
	opts     location.Options
	radius   float64
	now      func() time.Time

	mu      sync.Mutex
	state   State
	verdict *verify.Verdict
}

// Option tweaks a Flow.
type Option func(*Flow)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(f *Flow) { f.now = now }
}

// WithRadius overrides the fixed geofence radius.
func WithRadius(meters float64) Option {
	return func(f *Flow) { f.radius = meters }
}

// WithAcquireOptions overrides the fix request bounds.
func WithAcquireOptions(opts location.Options) Option {
	return func(f *Flow) { f.opts = opts }
}

// New builds an idle flow over a location provider and a record sink.
func New(provider location.Provider, sink Sink, opts ...Option) *Flow {
	f := &Flow{
		provider: provider,
		sink:     sink,
		opts:     location.Options{Accuracy: location.AccuracyHigh, Timeout: 15 * time.Second},
		radius:   verify.QRRadiusMeters,
		now:      time.Now,
		state:    StateIdle,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Result is the outcome of one scan attempt.
type Result struct {
	State   State
	Claim   *qr.Claim
	Fix     *location.Fix
	Verdict *verify.Verdict
	Err     error
}

// State returns the current state.
func (f *Flow) State() State {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state
}

// Verdict returns the last computed verdict, if the attempt reached one.
func (f *Flow) Verdict() *verify.Verdict {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.verdict
}

// Rearm returns a terminal flow to idle so another scan can be processed.
// It is a no-op while an attempt is in flight.
func (f *Flow) Rearm() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.state == StateIdle || f.state.Terminal() {
		f.state = StateIdle
		f.verdict = nil
		return true
	}
	return false
}

// Scan processes one raw payload for a student and session. Expiry is
// checked before any location work; the fix is always acquired fresh at
// scan time; evaluation never runs without a fix.
func (f *Flow) Scan(ctx context.Context, studentID, sessionID, raw string) Result {
	f.mu.Lock()
	if f.state != StateIdle {
		state := f.state
		f.mu.Unlock()
		return Result{State: state, Err: ErrNotArmed}
	}
	f.state = StateScanned
	f.verdict = nil
	f.mu.Unlock()

	claim, err := qr.Decode(raw)
	if err != nil {
		return f.finish(Result{Err: err}, StateRejectedParse)
	}

	if claim.Expired(f.now()) {
		return f.finish(Result{Claim: &claim, Err: ErrExpired}, StateRejectedExpired)
	}

	f.setState(StateAwaitingFix)
	fix, err := location.Acquire(ctx, f.provider, f.opts)
	if err != nil {
		return f.finish(Result{Claim: &claim, Err: err}, StateRejectedNoLocation)
	}

	f.setState(StateEvaluated)
	target := verify.Target{
		Name:         "Class Location",
		Latitude:     claim.Latitude,
		Longitude:    claim.Longitude,
		RadiusMeters: f.radius,
	}
	verdict := verify.Evaluate(fix, target)
	f.mu.Lock()
	f.verdict = &verdict
	f.mu.Unlock()

	if !verdict.Valid {
		return f.finish(Result{Claim: &claim, Fix: &fix, Verdict: &verdict, Err: ErrOutOfRange}, StateRejectedOutOfRange)
	}

	res := f.finish(Result{Claim: &claim, Fix: &fix, Verdict: &verdict}, StateAdmitted)
	date := f.now().UTC().Format("2006-01-02")
	if err := f.sink.CommitQR(ctx, studentID, claim.CourseID, date, sessionID, fix); err != nil {
		log.Printf("scan: commit failed for student %s course %s: %v", studentID, claim.CourseID, err)
		res.Err = fmt.Errorf("%w: %v", ErrCommitFailed, err)
	}
	return res
}

func (f *Flow) setState(s State) {
	f.mu.Lock()
	f.state = s
	f.mu.Unlock()
}

func (f *Flow) finish(res Result, s State) Result {
	f.setState(s)
	res.State = s
	outcomes.WithLabelValues(s.String()).Inc()
	return res
}
