// Package connectivity decides which ports of two assets may be linked and
// links them. Geometry decides the strategy: two point assets pair by port
// direction, a point asset and a conductor pair at the conductor end nearest
// to the point.
//
// Matching happens before any port is touched, so a failed Connect leaves
// both assets unchanged.
package connectivity

import (
	"github.com/dd0wney/cluso-mapeditor/pkg/geo"
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
)

// Class is how an asset takes part in a connection
type Class uint8

const (
	ClassUnsupported Class = iota
	ClassPoint
	ClassConductor
)

func (c Class) String() string {
	switch c {
	case ClassPoint:
		return "point"
	case ClassConductor:
		return "conductor"
	default:
		return "unsupported"
	}
}

// Classify returns the class implied by an asset's geometry
func Classify(a *model.Asset) Class {
	switch a.Geometry.Kind {
	case model.GeometryPoint:
		if a.Geometry.IsPoint() {
			return ClassPoint
		}
	case model.GeometryLine:
		if a.Geometry.IsLine() {
			return ClassConductor
		}
	case model.GeometryNone, model.GeometryPolygon:
	}
	return ClassUnsupported
}

// Link is the result of a successful Connect
type Link struct {
	FromPortID string `json:"from_port_id"`
	ToPortID   string `json:"to_port_id"`
	// Created is false when the ports were already linked
	Created bool `json:"created"`
}

// Connect links one port of a to one port of b.
//
// Errors: model.ErrNotImplemented for two conductors, model.ErrUnsupported
// for geometry that is neither point nor line or for two multi-port point
// assets, model.ErrNoCompatiblePort when no pair of ports qualifies.
func Connect(a, b *model.Asset) (Link, error) {
	ca, cb := Classify(a), Classify(b)
	switch {
	case ca == ClassUnsupported:
		return Link{}, unsupportedGeometry(a)
	case cb == ClassUnsupported:
		return Link{}, unsupportedGeometry(b)
	case ca == ClassPoint && cb == ClassPoint:
		return ConnectPointToPoint(a, b)
	case ca == ClassPoint && cb == ClassConductor:
		return ConnectPointToConductor(a, b)
	case ca == ClassConductor && cb == ClassPoint:
		return ConnectPointToConductor(b, a)
	default:
		return Link{}, model.NewError("connect").Asset(a.ID).
			Context("conductor to conductor " + b.ID).Cause(model.ErrNotImplemented).Err()
	}
}

func unsupportedGeometry(a *model.Asset) error {
	return model.NewError("connect").Asset(a.ID).
		Context(a.Geometry.Kind.String() + " geometry").Cause(model.ErrUnsupported).Err()
}

// MatchPointToPoint picks the port pair for two point assets without linking
// them. The asset with a single port drives the match and a is tried first:
// its port kind selects the first port of the partner kind on the other
// asset (see model.PortKind.Opposite). Exactly one pair is returned; when the
// other asset has several compatible ports, the rest stay unconnected.
func MatchPointToPoint(a, b *model.Asset) (*model.Port, *model.Port, error) {
	switch {
	case len(a.Ports) == 0 || len(b.Ports) == 0:
		bare := a.ID
		if len(a.Ports) > 0 {
			bare = b.ID
		}
		return nil, nil, model.NewError("connect").Asset(a.ID).
			Context("asset " + bare + " has no ports, partner " + b.ID).Cause(model.ErrNoCompatiblePort).Err()
	case len(a.Ports) == 1:
		if p, ok := firstOfKind(b, a.Ports[0].Kind.Opposite()); ok {
			return a.Ports[0], p, nil
		}
	case len(b.Ports) == 1:
		if p, ok := firstOfKind(a, b.Ports[0].Kind.Opposite()); ok {
			return p, b.Ports[0], nil
		}
	default:
		return nil, nil, model.NewError("connect").Asset(a.ID).
			Context("both assets have multiple ports, partner " + b.ID).Cause(model.ErrUnsupported).Err()
	}
	return nil, nil, model.NewError("connect").Asset(a.ID).
		Context("partner " + b.ID).Cause(model.ErrNoCompatiblePort).Err()
}

func firstOfKind(a *model.Asset, kind model.PortKind) (*model.Port, bool) {
	for _, p := range a.Ports {
		if p.Kind == kind {
			return p, true
		}
	}
	return nil, false
}

// ConnectPointToPoint links two point assets, see MatchPointToPoint
func ConnectPointToPoint(a, b *model.Asset) (Link, error) {
	pa, pb, err := MatchPointToPoint(a, b)
	if err != nil {
		return Link{}, err
	}
	return Link{FromPortID: pa.ID, ToPortID: pb.ID, Created: ConnectPorts(pa, pb)}, nil
}

// MatchPointToConductor picks the conductor end nearest to the point asset and
// the first point-asset port whose kind differs from that end's port. Ties in
// distance go to the last vertex.
func MatchPointToConductor(pointAsset, conductor *model.Asset) (*model.Port, *model.Port, error) {
	pt, ok := pointAsset.Geometry.Point()
	if !ok {
		return nil, nil, unsupportedGeometry(pointAsset)
	}
	first, last, ok := conductor.Geometry.Ends()
	if !ok || len(conductor.Ports) == 0 {
		return nil, nil, unsupportedGeometry(conductor)
	}

	end := conductor.Ports[len(conductor.Ports)-1]
	if geo.Nearer(pt, first, last) {
		end = conductor.Ports[0]
	}
	for _, p := range pointAsset.Ports {
		if p.Kind != end.Kind {
			return p, end, nil
		}
	}
	return nil, nil, model.NewError("connect").Asset(pointAsset.ID).
		Context("conductor " + conductor.ID + " end " + end.ID).Cause(model.ErrNoCompatiblePort).Err()
}

// ConnectPointToConductor links a point asset to a conductor, see
// MatchPointToConductor. The returned link runs from the point-asset port.
func ConnectPointToConductor(pointAsset, conductor *model.Asset) (Link, error) {
	pp, cp, err := MatchPointToConductor(pointAsset, conductor)
	if err != nil {
		return Link{}, err
	}
	return Link{FromPortID: pp.ID, ToPortID: cp.ID, Created: ConnectPorts(pp, cp)}, nil
}

// ConnectPorts records the link on both ports. It is idempotent and reports
// whether either side gained a new entry.
func ConnectPorts(p1, p2 *model.Port) bool {
	a := p1.AddLink(p2.ID)
	b := p2.AddLink(p1.ID)
	return a || b
}

// DisconnectPorts removes the link from both ports and reports whether
// either side lost an entry.
func DisconnectPorts(p1, p2 *model.Port) bool {
	a := p1.RemoveLink(p2.ID)
	b := p2.RemoveLink(p1.ID)
	return a || b
}
