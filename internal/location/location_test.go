package location

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAcquireGranted(t *testing.T) {
	acc := 8.0
	want := Fix{Latitude: 40.7128, Longitude: -74.0060, Accuracy: &acc, Timestamp: 1700000000000}
	p := NewStatic(want)

	got, err := Acquire(context.Background(), p, Options{Accuracy: AccuracyHigh, Timeout: time.Second})
	require.NoError(t, err)
	assert.Equal(t, want, got)
	assert.Equal(t, 1, p.FixCalls())
}

func TestAcquireResolvesUndetermined(t *testing.T) {
	p := NewStatic(Fix{Latitude: 1, Longitude: 2})
	p.SetPermission(PermissionUndetermined, true)

	_, err := Acquire(context.Background(), p, Options{})
	require.NoError(t, err)

	perm, err := p.Permission(context.Background())
	require.NoError(t, err)
	assert.Equal(t, PermissionGranted, perm)
}

func TestAcquireDenied(t *testing.T) {
	p := NewStatic(Fix{})
	p.SetPermission(PermissionDenied, false)

	_, err := Acquire(context.Background(), p, Options{})
	assert.ErrorIs(t, err, ErrPermissionDenied)
	assert.Equal(t, 0, p.FixCalls(), "sensor must not be touched without permission")
}

func TestAcquireDeniedOnRequest(t *testing.T) {
	p := NewStatic(Fix{})
	p.SetPermission(PermissionUndetermined, false)

	_, err := Acquire(context.Background(), p, Options{})
	assert.ErrorIs(t, err, ErrPermissionDenied)
}

func TestRequestPermissionIdempotent(t *testing.T) {
	p := NewStatic(Fix{})
	p.SetPermission(PermissionUndetermined, true)

	for i := 0; i < 3; i++ {
		perm, err := p.RequestPermission(context.Background())
		require.NoError(t, err)
		assert.Equal(t, PermissionGranted, perm)
	}
}

func TestAcquireSensorFailure(t *testing.T) {
	p := NewStatic(Fix{})
	p.SetError(errors.New("gps cold start"))

	_, err := Acquire(context.Background(), p, Options{})
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestWatcherCachesUpdatesOnMovement(t *testing.T) {
	p := NewStatic(Fix{Latitude: 40.7128, Longitude: -74.0060})
	w := NewWatcher(p, Options{Interval: time.Hour, MinDistanceMeters: 5})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	_, ok := w.LastKnown()
	assert.False(t, ok)

	// ~200 m north: crosses the 5 m movement threshold.
	p.SetFix(Fix{Latitude: 40.7146, Longitude: -74.0060})

	last, ok := w.LastKnown()
	require.True(t, ok)
	assert.Equal(t, 40.7146, last.Latitude)
}

func TestWatcherSkipsSubThresholdMovement(t *testing.T) {
	p := NewStatic(Fix{Latitude: 40.7128, Longitude: -74.0060})
	w := NewWatcher(p, Options{Interval: time.Hour, MinDistanceMeters: 5})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Stop()

	// First movement always lands (no prior emit).
	p.SetFix(Fix{Latitude: 40.7129, Longitude: -74.0060})
	first, ok := w.LastKnown()
	require.True(t, ok)

	// ~1 m further: below the 5 m threshold, cache keeps the earlier fix.
	p.SetFix(Fix{Latitude: 40.712909, Longitude: -74.0060})
	last, ok := w.LastKnown()
	require.True(t, ok)
	assert.Equal(t, first.Latitude, last.Latitude)
}
