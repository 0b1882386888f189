package location

import (
	"context"
	"sync"
	"time"

	"geoattend/internal/geo"
)

// Static is an in-memory provider for dev and tests: it serves a settable
// fix, a settable permission state, and counts fix requests so tests can
// assert the sensor was (or was not) consulted.
type Static struct {
	mu         sync.Mutex
	permission Permission
	grantOn    bool // RequestPermission grants when true, denies otherwise
	fix        Fix
	fixErr     error
	fixCalls   int

	watchers map[int]*staticWatch
	nextID   int
}

type staticWatch struct {
	opts     Options
	onUpdate func(Fix)
	lastEmit Fix
	emitted  bool
	cancel   context.CancelFunc
}

// NewStatic returns a granted provider serving the given fix.
func NewStatic(fix Fix) *Static {
	return &Static{
		permission: PermissionGranted,
		grantOn:    true,
		fix:        fix,
		watchers:   make(map[int]*staticWatch),
	}
}

// SetPermission forces the permission state. grantOnRequest controls whether
// a later RequestPermission grants or denies.
func (s *Static) SetPermission(p Permission, grantOnRequest bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.permission = p
	s.grantOn = grantOnRequest
}

// SetError makes CurrentFix fail with err until cleared with nil.
func (s *Static) SetError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixErr = err
}

// SetFix moves the simulated device. Watch subscriptions whose movement
// threshold is crossed are notified immediately.
func (s *Static) SetFix(fix Fix) {
	s.mu.Lock()
	s.fix = fix
	var notify []func(Fix)
	for _, w := range s.watchers {
		if !w.emitted || geo.Distance(w.lastEmit.Latitude, w.lastEmit.Longitude, fix.Latitude, fix.Longitude) >= w.opts.MinDistanceMeters {
			w.lastEmit = fix
			w.emitted = true
			notify = append(notify, w.onUpdate)
		}
	}
	s.mu.Unlock()
	for _, fn := range notify {
		fn(fix)
	}
}

// FixCalls reports how many times CurrentFix was invoked.
func (s *Static) FixCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fixCalls
}

func (s *Static) Permission(ctx context.Context) (Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.permission, nil
}

func (s *Static) RequestPermission(ctx context.Context) (Permission, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.permission == PermissionUndetermined {
		if s.grantOn {
			s.permission = PermissionGranted
		} else {
			s.permission = PermissionDenied
		}
	}
	return s.permission, nil
}

func (s *Static) CurrentFix(ctx context.Context, opts Options) (Fix, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixCalls++
	if s.fixErr != nil {
		return Fix{}, s.fixErr
	}
	if s.permission != PermissionGranted {
		return Fix{}, ErrPermissionDenied
	}
	return s.fix, nil
}

func (s *Static) Watch(ctx context.Context, opts Options, onUpdate func(Fix)) (func(), error) {
	s.mu.Lock()
	if s.permission != PermissionGranted {
		s.mu.Unlock()
		return nil, ErrPermissionDenied
	}
	if opts.Interval <= 0 {
		opts.Interval = DefaultWatchInterval
	}
	ctx, cancel := context.WithCancel(ctx)
	id := s.nextID
	s.nextID++
	s.watchers[id] = &staticWatch{opts: opts, onUpdate: onUpdate, cancel: cancel}
	s.mu.Unlock()

	go func() {
		ticker := time.NewTicker(opts.Interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.mu.Lock()
				w, ok := s.watchers[id]
				fix := s.fix
				if ok {
					w.lastEmit = fix
					w.emitted = true
				}
				s.mu.Unlock()
				if ok {
					onUpdate(fix)
				}
			case <-ctx.Done():
				return
			}
		}
	}()

	return func() {
		cancel()
		s.mu.Lock()
		delete(s.watchers, id)
		s.mu.Unlock()
	}, nil
}
