package geo

import (
	"fmt"
	"math"
)

// EarthRadiusKm is the mean Earth radius used by the haversine formula
const EarthRadiusKm = 6371.0

// Coordinate is a WGS84 position in decimal degrees
type Coordinate struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Coord is shorthand for building a Coordinate
func Coord(lat, lon float64) Coordinate {
	return Coordinate{Lat: lat, Lon: lon}
}

// String returns "lat,lon"
func (c Coordinate) String() string {
	return fmt.Sprintf("%g,%g", c.Lat, c.Lon)
}

// Valid reports whether the coordinate lies in the WGS84 range
func (c Coordinate) Valid() bool {
	return c.Lat >= -90 && c.Lat <= 90 && c.Lon >= -180 && c.Lon <= 180 &&
		!math.IsNaN(c.Lat) && !math.IsNaN(c.Lon)
}

// Distance calculates the great-circle distance between two coordinates in kilometers
// Formula: haversine with radius EarthRadiusKm
func Distance(origin, destination Coordinate) float64 {
	dLat := radians(destination.Lat - origin.Lat)
	dLon := radians(destination.Lon - origin.Lon)

	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(radians(origin.Lat))*math.Cos(radians(destination.Lat))*
			math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))

	return EarthRadiusKm * c
}

// PathLength sums the segment distances of a polyline in kilometers
func PathLength(points []Coordinate) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += Distance(points[i-1], points[i])
	}
	return total
}

// Nearer reports whether p is strictly closer to a than to b.
// Equal distances return false.
func Nearer(p, a, b Coordinate) bool {
	return Distance(p, a) < Distance(p, b)
}

// DedupeConsecutive drops points that repeat the previous point.
// Map clients occasionally send the same vertex twice in a row.
func DedupeConsecutive(points []Coordinate) []Coordinate {
	if len(points) == 0 {
		return nil
	}
	out := make([]Coordinate, 0, len(points))
	out = append(out, points[0])
	for _, p := range points[1:] {
		if p != out[len(out)-1] {
			out = append(out, p)
		}
	}
	return out
}

func radians(deg float64) float64 {
	return deg * math.Pi / 180
}
