// Package render builds the payload the map front-end draws: the asset list,
// the area/building outline and every port-to-port connection with the
// coordinates of both ends.
package render

import (
	"encoding/json"

	"github.com/dd0wney/cluso-mapeditor/pkg/geo"
	"github.com/dd0wney/cluso-mapeditor/pkg/geoindex"
	"github.com/dd0wney/cluso-mapeditor/pkg/hierarchy"
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
)

// Record kinds as the front-end expects them
const (
	KindPoint    = "point"
	KindLine     = "line"
	KindArea     = "Area"
	KindBuilding = "Building"
)

// Payload is the full drawing state of one energy system
type Payload struct {
	Assets      []AssetRecord     `json:"asset_list"`
	Containers  []ContainerRecord `json:"area_building_list"`
	Connections []Connection      `json:"connection_list"`
	// Dangling lists connectedTo entries whose target port is not indexed
	Dangling []DanglingRef `json:"dangling,omitempty"`
}

// AssetRecord is one drawable asset. It encodes as
// [kind, name, id, type, lat, lon] for points and
// [kind, name, id, type, [[lat, lon], ...]] for lines.
type AssetRecord struct {
	Kind  string
	Name  string
	ID    string
	Type  model.AssetType
	Point geo.Coordinate
	Line  []geo.Coordinate
}

func (r AssetRecord) MarshalJSON() ([]byte, error) {
	if r.Kind == KindLine {
		line := make([][2]float64, len(r.Line))
		for i, c := range r.Line {
			line[i] = latLon(c)
		}
		return json.Marshal([]any{r.Kind, r.Name, r.ID, r.Type, line})
	}
	return json.Marshal([]any{r.Kind, r.Name, r.ID, r.Type, r.Point.Lat, r.Point.Lon})
}

// ContainerRecord is an area or building outline entry: [kind, id, name, depth]
type ContainerRecord struct {
	Kind  string
	ID    string
	Name  string
	Depth int
}

func (r ContainerRecord) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{r.Kind, r.ID, r.Name, r.Depth})
}

// Connection is one directed half of a port link. A symmetric link appears
// once from each side.
type Connection struct {
	FromPortID string     `json:"from-port-id"`
	FromCoord  [2]float64 `json:"from-asset-coord"`
	ToPortID   string     `json:"to-port-id"`
	ToCoord    [2]float64 `json:"to-asset-coord"`
}

// DanglingRef is a link whose far end cannot be resolved
type DanglingRef struct {
	AssetID  string `json:"asset_id"`
	PortID   string `json:"port_id"`
	TargetID string `json:"target_id"`
}

func latLon(c geo.Coordinate) [2]float64 {
	return [2]float64{c.Lat, c.Lon}
}

// Build walks the tree in pre-order and emits the payload. Port coordinates
// come from idx, so a conductor's connection is drawn from the end the port
// is bound to. Links to ports missing from idx are reported in Dangling and
// left out of Connections.
func Build(root *model.Area, idx *geoindex.Index) *Payload {
	p := &Payload{
		Assets:      []AssetRecord{},
		Containers:  []ContainerRecord{},
		Connections: []Connection{},
	}
	hierarchy.Walk(root, func(n hierarchy.Node) bool {
		switch n.Kind {
		case hierarchy.NodeArea:
			p.Containers = append(p.Containers, ContainerRecord{Kind: KindArea, ID: n.Area.ID, Name: n.Area.Name, Depth: n.Depth})
		case hierarchy.NodeBuilding:
			p.Containers = append(p.Containers, ContainerRecord{Kind: KindBuilding, ID: n.Asset.ID, Name: n.Asset.Name, Depth: n.Depth})
			p.addConnections(n.Asset, idx)
		case hierarchy.NodeAsset:
			p.addAsset(n.Asset)
			p.addConnections(n.Asset, idx)
		}
		return true
	})
	return p
}

// Record returns the drawable record of an asset. Assets without a usable
// Point or Line geometry have none.
func Record(a *model.Asset) (AssetRecord, bool) {
	switch {
	case a.Geometry.IsPoint():
		pt, _ := a.Geometry.Point()
		return AssetRecord{Kind: KindPoint, Name: a.Name, ID: a.ID, Type: a.Type, Point: pt}, true
	case a.Geometry.IsLine():
		return AssetRecord{Kind: KindLine, Name: a.Name, ID: a.ID, Type: a.Type, Line: a.Geometry.Clone().Points}, true
	}
	return AssetRecord{}, false
}

func (p *Payload) addAsset(a *model.Asset) {
	if rec, ok := Record(a); ok {
		p.Assets = append(p.Assets, rec)
	}
}

func (p *Payload) addConnections(a *model.Asset, idx *geoindex.Index) {
	for _, port := range a.Ports {
		if len(port.ConnectedTo) == 0 {
			continue
		}
		from, fromOK := idx.Lookup(port.ID)
		for _, target := range port.ConnectedTo {
			to, toOK := idx.Lookup(target)
			if !fromOK || !toOK {
				p.Dangling = append(p.Dangling, DanglingRef{AssetID: a.ID, PortID: port.ID, TargetID: target})
				continue
			}
			p.Connections = append(p.Connections, Connection{
				FromPortID: port.ID,
				FromCoord:  latLon(from.Coord),
				ToPortID:   target,
				ToCoord:    latLon(to.Coord),
			})
		}
	}
}

// ConnectionOf resolves both ends of a link through idx
func ConnectionOf(idx *geoindex.Index, fromPortID, toPortID string) (Connection, bool) {
	from, ok := idx.Lookup(fromPortID)
	if !ok {
		return Connection{}, false
	}
	to, ok := idx.Lookup(toPortID)
	if !ok {
		return Connection{}, false
	}
	return Connection{
		FromPortID: fromPortID,
		FromCoord:  latLon(from.Coord),
		ToPortID:   toPortID,
		ToCoord:    latLon(to.Coord),
	}, true
}
