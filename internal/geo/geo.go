// Package geo holds the coordinate rules shared by the offer index and its callers.
package geo

import (
	"errors"
	"math"
)

// EarthRadiusKm is the mean Earth radius, the same sphere PostGIS uses when
// geography functions are called with use_spheroid = false.
const EarthRadiusKm = 6371.0088

var (
	ErrLatitude  = errors.New("latitude must be between -90 and 90")
	ErrLongitude = errors.New("longitude must be between -180 and 180")
)

type Point struct {
	Lat float64
	Lng float64
}

func (p Point) Validate() error {
	if math.IsNaN(p.Lat) || p.Lat < -90 || p.Lat > 90 {
		return ErrLatitude
	}
	if math.IsNaN(p.Lng) || p.Lng < -180 || p.Lng > 180 {
		return ErrLongitude
	}
	return nil
}

// DistanceKm is the great-circle (haversine) distance between a and b.
func DistanceKm(a, b Point) float64 {
	lat1, lat2 := radians(a.Lat), radians(b.Lat)
	dLat := lat2 - lat1
	dLng := radians(b.Lng - a.Lng)

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	return 2 * EarthRadiusKm * math.Asin(math.Min(1, math.Sqrt(h)))
}

// Destination returns the point distanceKm away from p along the initial
// bearing (degrees clockwise from north).
func Destination(p Point, bearingDeg, distanceKm float64) Point {
	delta := distanceKm / EarthRadiusKm
	theta := radians(bearingDeg)
	lat1, lng1 := radians(p.Lat), radians(p.Lng)

	lat2 := math.Asin(math.Sin(lat1)*math.Cos(delta) + math.Cos(lat1)*math.Sin(delta)*math.Cos(theta))
	lng2 := lng1 + math.Atan2(
		math.Sin(theta)*math.Sin(delta)*math.Cos(lat1),
		math.Cos(delta)-math.Sin(lat1)*math.Sin(lat2),
	)

	lng := math.Mod(degrees(lng2)+540, 360) - 180
	return Point{Lat: degrees(lat2), Lng: lng}
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
func degrees(rad float64) float64 { return rad * 180 / math.Pi }
