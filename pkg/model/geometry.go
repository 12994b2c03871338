package model

import (
	"github.com/dd0wney/cluso-mapeditor/pkg/geo"
)

// GeometryKind tags the shape stored in a Geometry
type GeometryKind uint8

const (
	GeometryNone GeometryKind = iota
	GeometryPoint
	GeometryLine
	GeometryPolygon
)

// String returns the exchange-format name of the kind
func (k GeometryKind) String() string {
	switch k {
	case GeometryNone:
		return "None"
	case GeometryPoint:
		return "Point"
	case GeometryLine:
		return "Line"
	case GeometryPolygon:
		return "Polygon"
	default:
		return "Unknown"
	}
}

// ParseGeometryKind converts an exchange-format name to a GeometryKind
func ParseGeometryKind(s string) (GeometryKind, bool) {
	switch s {
	case "Point":
		return GeometryPoint, true
	case "Line":
		return GeometryLine, true
	case "Polygon":
		return GeometryPolygon, true
	case "", "None":
		return GeometryNone, true
	default:
		return GeometryNone, false
	}
}

// Geometry is a tagged variant over the supported shapes.
// Point holds exactly one coordinate, Line at least two in order,
// Polygon the exterior ring.
type Geometry struct {
	Kind   GeometryKind
	Points []geo.Coordinate
}

// PointGeometry creates a Point geometry
func PointGeometry(c geo.Coordinate) Geometry {
	return Geometry{Kind: GeometryPoint, Points: []geo.Coordinate{c}}
}

// LineGeometry creates a Line geometry from an ordered list of points
func LineGeometry(points ...geo.Coordinate) Geometry {
	pts := make([]geo.Coordinate, len(points))
	copy(pts, points)
	return Geometry{Kind: GeometryLine, Points: pts}
}

// PolygonGeometry creates a Polygon geometry from its exterior ring
func PolygonGeometry(points ...geo.Coordinate) Geometry {
	pts := make([]geo.Coordinate, len(points))
	copy(pts, points)
	return Geometry{Kind: GeometryPolygon, Points: pts}
}

// IsPoint reports whether the geometry is a usable Point
func (g Geometry) IsPoint() bool {
	return g.Kind == GeometryPoint && len(g.Points) == 1
}

// IsLine reports whether the geometry is a usable Line
func (g Geometry) IsLine() bool {
	return g.Kind == GeometryLine && len(g.Points) >= 2
}

// Point returns the coordinate of a Point geometry
func (g Geometry) Point() (geo.Coordinate, bool) {
	if !g.IsPoint() {
		return geo.Coordinate{}, false
	}
	return g.Points[0], true
}

// Ends returns the first and last vertex of a Line geometry
func (g Geometry) Ends() (first, last geo.Coordinate, ok bool) {
	if !g.IsLine() {
		return geo.Coordinate{}, geo.Coordinate{}, false
	}
	return g.Points[0], g.Points[len(g.Points)-1], true
}

// Clone returns a deep copy
func (g Geometry) Clone() Geometry {
	if g.Points == nil {
		return Geometry{Kind: g.Kind}
	}
	pts := make([]geo.Coordinate, len(g.Points))
	copy(pts, g.Points)
	return Geometry{Kind: g.Kind, Points: pts}
}
