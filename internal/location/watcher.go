package location

import (
	"context"
	"log"
	"sync"
	"time"
)

// Watch defaults: an update every 10 seconds or on 5 meters of movement,
// whichever triggers first.
const (
	DefaultWatchInterval    = 10 * time.Second
	DefaultWatchMinDistance = 5
)

// Watcher runs a continuous watch subscription to keep a last-known-fix
// cache warm for diagnostics and logging. The cache must never substitute
// for a scan-time fix; verification always acquires a fresh one.
type Watcher struct {
	provider Provider
	opts     Options

	mu   sync.Mutex
	last *Fix
	stop func()
}

// NewWatcher builds a watcher with the default update thresholds unless the
// options override them.
func NewWatcher(p Provider, opts Options) *Watcher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultWatchInterval
	}
	if opts.MinDistanceMeters <= 0 {
		opts.MinDistanceMeters = DefaultWatchMinDistance
	}
	return &Watcher{provider: p, opts: opts}
}

// Start subscribes to the provider. Calling Start twice without Stop is an
// error on the caller's part; the second subscription replaces the first.
func (w *Watcher) Start(ctx context.Context) error {
	stop, err := w.provider.Watch(ctx, w.opts, func(fix Fix) {
		w.mu.Lock()
		w.last = &fix
		w.mu.Unlock()
		log.Printf("location: watch update %.6f, %.6f", fix.Latitude, fix.Longitude)
	})
	if err != nil {
		return err
	}
	w.mu.Lock()
	if w.stop != nil {
		w.stop()
	}
	w.stop = stop
	w.mu.Unlock()
	return nil
}

// Stop cancels the subscription, if any.
func (w *Watcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.stop != nil {
		w.stop()
		w.stop = nil
	}
}

// LastKnown returns the most recent cached fix, if any update has arrived.
func (w *Watcher) LastKnown() (Fix, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.last == nil {
		return Fix{}, false
	}
	return *w.last, true
}
