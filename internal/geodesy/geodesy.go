// Package geodesy provides spherical forward and inverse great-circle
// primitives in nautical miles. Angles are degrees at the API boundary.
package geodesy

import (
	"math"

	"github.com/golang/geo/s1"
	"github.com/golang/geo/s2"
)

// EarthRadiusNM is the mean Earth radius in nautical miles.
const EarthRadiusNM = 3440.065

// NMPerDegree is the length of one degree of arc on the sphere.
const NMPerDegree = EarthRadiusNM * math.Pi / 180

// Distance returns the haversine great-circle distance in nautical miles.
func Distance(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)
	return p1.Distance(p2).Radians() * EarthRadiusNM
}

// Bearing returns the initial bearing from point 1 to point 2 in [0, 360).
func Bearing(lat1, lon1, lat2, lon2 float64) float64 {
	p1 := s2.LatLngFromDegrees(lat1, lon1)
	p2 := s2.LatLngFromDegrees(lat2, lon2)

	phi1 := p1.Lat.Radians()
	phi2 := p2.Lat.Radians()
	dLambda := p2.Lng.Radians() - p1.Lng.Radians()

	y := math.Sin(dLambda) * math.Cos(phi2)
	x := math.Cos(phi1)*math.Sin(phi2) - math.Sin(phi1)*math.Cos(phi2)*math.Cos(dLambda)
	deg := s1.Angle(math.Atan2(y, x)).Degrees()
	return normalizeBearing(deg)
}

// Destination returns the point reached by travelling distanceNM along the
// great circle that starts at (lat, lon) with the given initial bearing.
// Longitude is normalized to [-180, 180).
func Destination(lat, lon, bearingDeg, distanceNM float64) (destLon, destLat float64) {
	origin := s2.LatLngFromDegrees(lat, lon)
	theta := (s1.Angle(bearingDeg) * s1.Degree).Radians()
	delta := distanceNM / EarthRadiusNM

	phi1 := origin.Lat.Radians()
	lambda1 := origin.Lng.Radians()

	sinPhi2 := math.Sin(phi1)*math.Cos(delta) + math.Cos(phi1)*math.Sin(delta)*math.Cos(theta)
	sinPhi2 = math.Max(-1, math.Min(1, sinPhi2))
	phi2 := math.Asin(sinPhi2)

	lambda2 := lambda1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(phi1),
		math.Cos(delta)-math.Sin(phi1)*sinPhi2,
	)

	dest := s2.LatLng{Lat: s1.Angle(phi2), Lng: s1.Angle(lambda2)}
	return NormalizeLon(dest.Lng.Degrees()), dest.Lat.Degrees()
}

// NormalizeLon wraps a longitude into [-180, 180).
func NormalizeLon(lon float64) float64 {
	if math.IsNaN(lon) || math.IsInf(lon, 0) {
		return lon
	}
	wrapped := math.Mod(lon+180, 360)
	if wrapped < 0 {
		wrapped += 360
	}
	return wrapped - 180
}

func normalizeBearing(deg float64) float64 {
	b := math.Mod(deg+360, 360)
	if b >= 360 {
		return 0
	}
	return b
}
