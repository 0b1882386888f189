package location

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

// Permission is the device location permission state.
type Permission int

const (
	PermissionUndetermined Permission = iota
	PermissionGranted
	PermissionDenied
)

func (p Permission) String() string {
	switch p {
	case PermissionGranted:
		return "granted"
	case PermissionDenied:
		return "denied"
	default:
		return "undetermined"
	}
}

// Accuracy selects the sensor accuracy class for a fix request.
type Accuracy int

const (
	AccuracyBalanced Accuracy = iota
	AccuracyHigh
)

// Fix is a single location measurement. Immutable once produced; used once
// per verification attempt.
type Fix struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Accuracy  *float64 `json:"accuracy,omitempty"` // meters, nil when the sensor did not report one
	Timestamp int64    `json:"timestamp"`          // epoch milliseconds
}

// Options bounds a fix request or watch subscription.
type Options struct {
	Accuracy          Accuracy
	Timeout           time.Duration
	Interval          time.Duration // watch: minimum time between updates
	MinDistanceMeters float64       // watch: movement threshold for an update
}

var (
	// ErrPermissionDenied means the user or platform refused location access.
	ErrPermissionDenied = errors.New("location permission denied")
	// ErrUnavailable means the sensor failed or timed out producing a fix.
	ErrUnavailable = errors.New("location unavailable")
)

// Provider is the device location capability. RequestPermission is idempotent
// and safe to call repeatedly. Watch delivers updates until the returned stop
// function is called or the context is cancelled.
type Provider interface {
	Permission(ctx context.Context) (Permission, error)
	RequestPermission(ctx context.Context) (Permission, error)
	CurrentFix(ctx context.Context, opts Options) (Fix, error)
	Watch(ctx context.Context, opts Options, onUpdate func(Fix)) (stop func(), err error)
}

// Acquire resolves the permission gate and pulls a fresh high-accuracy fix
// with a bounded wait. Sensor and permission failures come back as
// ErrPermissionDenied or ErrUnavailable; nothing panics past this boundary.
// The verification path calls this on every attempt, never a cached fix.
func Acquire(ctx context.Context, p Provider, opts Options) (Fix, error) {
	perm, err := p.Permission(ctx)
	if err != nil {
		log.Printf("location: permission query failed: %v", err)
		return Fix{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	if perm == PermissionUndetermined {
		perm, err = p.RequestPermission(ctx)
		if err != nil {
			log.Printf("location: permission request failed: %v", err)
			return Fix{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
		}
	}
	if perm != PermissionGranted {
		return Fix{}, ErrPermissionDenied
	}

	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}
	fix, err := p.CurrentFix(ctx, opts)
	if err != nil {
		log.Printf("location: fix acquisition failed: %v", err)
		if errors.Is(err, ErrPermissionDenied) {
			return Fix{}, err
		}
		return Fix{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return fix, nil
}
