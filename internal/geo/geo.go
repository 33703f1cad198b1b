// Package geo validates physical proximity between a device and a code's
// registered location.
package geo

import (
	"fmt"
	"math"

	"github.com/and161185/scanwin/internal/errs"
	"github.com/and161185/scanwin/internal/model"
)

// earthRadiusM is the spherical Earth radius used by the haversine formula.
const earthRadiusM = 6371000.0

// Distance returns the great-circle distance between two points in meters.
func Distance(a, b model.GeoPoint) float64 {
	phi1 := a.Lat * math.Pi / 180
	phi2 := b.Lat * math.Pi / 180
	dPhi := (b.Lat - a.Lat) * math.Pi / 180
	dLambda := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dPhi/2)*math.Sin(dPhi/2) +
		math.Cos(phi1)*math.Cos(phi2)*math.Sin(dLambda/2)*math.Sin(dLambda/2)
	return earthRadiusM * 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// Validate passes iff the device is within radiusMeters of the token point.
// The returned error wraps ErrOutOfRange with the measured distance; the user
// must relocate, a retry from the same position cannot succeed.
func Validate(tokenPoint, devicePoint model.GeoPoint, radiusMeters float64) error {
	d := Distance(tokenPoint, devicePoint)
	if d > radiusMeters {
		return fmt.Errorf("%w: %.0fm away, allowed %.0fm", errs.ErrOutOfRange, d, radiusMeters)
	}
	return nil
}
