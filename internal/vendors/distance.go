package vendors

import (
	"math"
	"strconv"
)

const earthRadiusKm = 6371

// CityCenter is the Hyderabad city center: the map's initial view and the
// reference point for every vendor distance.
var CityCenter = Point{Lat: 17.3850, Lng: 78.4867}

// Point is a latitude/longitude pair in degrees.
type Point struct {
	Lat float64 `yaml:"lat" json:"lat"`
	Lng float64 `yaml:"lng" json:"lng"`
}

// Haversine returns the great-circle distance between two points in km.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// FormatKm renders a distance with one decimal place.
func FormatKm(km float64) string {
	return strconv.FormatFloat(km, 'f', 1, 64)
}

// DistanceFromCenter is the formatted distance from the catalog center.
func (c *Catalog) DistanceFromCenter(v Vendor) string {
	return FormatKm(Haversine(c.Center, v.Point()))
}
