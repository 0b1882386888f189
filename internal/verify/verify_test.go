package verify

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"geoattend/internal/geo"
	"geoattend/internal/location"
)

func TestEvaluateSamePoint(t *testing.T) {
	fix := location.Fix{Latitude: 40.7128, Longitude: -74.0060}
	target := Target{Name: "Computer Science Lab - Room 101", Latitude: 40.7128, Longitude: -74.0060, RadiusMeters: QRRadiusMeters}

	v := Evaluate(fix, target)
	assert.True(t, v.Valid)
	assert.Equal(t, 0, v.DistanceMeters)
	assert.Equal(t, 50.0, v.MaxAllowedMeters)
	assert.Equal(t, "Computer Science Lab - Room 101", v.LocationName)
}

func TestEvaluateOutOfRange(t *testing.T) {
	// ~200 m north of the classroom.
	fix := location.Fix{Latitude: 40.7146, Longitude: -74.0060}
	target := Target{Name: "Class Location", Latitude: 40.7128, Longitude: -74.0060, RadiusMeters: QRRadiusMeters}

	v := Evaluate(fix, target)
	assert.False(t, v.Valid)
	assert.InDelta(t, 200, v.DistanceMeters, 5)
}

func TestEvaluateInclusiveBoundary(t *testing.T) {
	fix := location.Fix{Latitude: 40.7131, Longitude: -74.0060}
	target := Target{Latitude: 40.7128, Longitude: -74.0060}
	// Pin the radius to the exact computed distance: the bound is inclusive.
	target.RadiusMeters = geo.Distance(fix.Latitude, fix.Longitude, target.Latitude, target.Longitude)

	assert.True(t, Evaluate(fix, target).Valid)

	target.RadiusMeters = target.RadiusMeters * 0.999
	assert.False(t, Evaluate(fix, target).Valid)
}

func TestEvaluateMatchesDistancePredicate(t *testing.T) {
	targets := []Target{
		{Name: "a", Latitude: 40.7128, Longitude: -74.0060, RadiusMeters: 50},
		{Name: "b", Latitude: 40.7135, Longitude: -74.0065, RadiusMeters: 30},
		{Name: "c", Latitude: -33.8688, Longitude: 151.2093, RadiusMeters: 75},
	}
	fixes := []location.Fix{
		{Latitude: 40.7128, Longitude: -74.0060},
		{Latitude: 40.7146, Longitude: -74.0060},
		{Latitude: 40.71285, Longitude: -74.00605},
		{Latitude: -33.8689, Longitude: 151.2094},
	}
	for _, target := range targets {
		for _, fix := range fixes {
			d := geo.Distance(fix.Latitude, fix.Longitude, target.Latitude, target.Longitude)
			assert.Equal(t, d <= target.RadiusMeters, Evaluate(fix, target).Valid,
				"target %s fix %+v", target.Name, fix)
		}
	}
}

func TestEvaluateIdempotent(t *testing.T) {
	fix := location.Fix{Latitude: 40.7146, Longitude: -74.0060}
	target := Target{Name: "Class Location", Latitude: 40.7128, Longitude: -74.0060, RadiusMeters: 50}

	assert.Equal(t, Evaluate(fix, target), Evaluate(fix, target))
}
