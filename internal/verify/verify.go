package verify

import (
	"math"

	"geoattend/internal/geo"
	"geoattend/internal/location"
)

// QRRadiusMeters is the fixed geofence applied to every QR-based claim.
// The payload never carries its own radius; trusting one would let a forged
// code declare an oversized tolerance.
const QRRadiusMeters = 50

// Target is an admissible attendance zone.
type Target struct {
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	RadiusMeters float64 `json:"radius_meters"`
}

// Verdict is the outcome of comparing one fix against one target.
type Verdict struct {
	Valid            bool    `json:"valid"`
	DistanceMeters   int     `json:"distance_meters"`
	MaxAllowedMeters float64 `json:"max_allowed_meters"`
	LocationName     string  `json:"location_name"`
}

// Evaluate compares a location fix against a target zone. Pure and total:
// it never fails, and the radius bound is inclusive. Absence of a usable fix
// is an upstream failure handled by the caller, distinct from "fix obtained
// but too far".
func Evaluate(fix location.Fix, target Target) Verdict {
	distance := geo.Distance(fix.Latitude, fix.Longitude, target.Latitude, target.Longitude)
	return Verdict{
		Valid:            distance <= target.RadiusMeters,
		DistanceMeters:   int(math.Round(distance)),
		MaxAllowedMeters: target.RadiusMeters,
		LocationName:     target.Name,
	}
}
