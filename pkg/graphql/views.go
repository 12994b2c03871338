package graphql

import (
	"github.com/dd0wney/cluso-mapeditor/pkg/geoindex"
	"github.com/dd0wney/cluso-mapeditor/pkg/hierarchy"
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
	"github.com/dd0wney/cluso-mapeditor/pkg/render"
	"github.com/dd0wney/cluso-mapeditor/pkg/session"
)

// Resolvers work on copies taken under the session lock so that a query
// never races a command.

type containerView struct {
	ID     string
	Name   string
	Kind   string
	Depth  int
	Parent string
}

type portView struct {
	ID          string
	Name        string
	Kind        string
	ConnectedTo []string
	Lat, Lon    *float64
}

type assetView struct {
	ID        string
	Name      string
	Type      string
	Geometry  string
	Container string
	Points    [][2]float64
	Length    float64
	Ports     []portView
}

type systemView struct {
	ID          string
	Name        string
	Containers  []containerView
	Assets      []assetView
	Connections []render.Connection
}

func (v *systemView) asset(id string) (assetView, bool) {
	for _, a := range v.Assets {
		if a.ID == id {
			return a, true
		}
	}
	return assetView{}, false
}

// snapshot copies the parts of a session the schema exposes
func snapshot(s *session.Session) *systemView {
	v := &systemView{}
	s.View(func(es *model.EnergySystem, idx *geoindex.Index) {
		v.ID, v.Name = es.ID, es.Name
		root, ok := es.RootArea()
		if !ok {
			return
		}

		var parents []string
		hierarchy.Walk(root, func(n hierarchy.Node) bool {
			parent := ""
			if n.Depth > 0 && n.Depth <= len(parents) {
				parent = parents[n.Depth-1]
			}
			switch n.Kind {
			case hierarchy.NodeArea:
				parents = append(parents[:n.Depth], n.Area.ID)
				v.Containers = append(v.Containers, containerView{ID: n.Area.ID, Name: n.Area.Name, Kind: render.KindArea, Depth: n.Depth, Parent: parent})
			case hierarchy.NodeBuilding:
				parents = append(parents[:n.Depth], n.Asset.ID)
				v.Containers = append(v.Containers, containerView{ID: n.Asset.ID, Name: n.Asset.Name, Kind: render.KindBuilding, Depth: n.Depth, Parent: parent})
				v.Assets = append(v.Assets, newAssetView(n.Asset, parent, idx))
			case hierarchy.NodeAsset:
				v.Assets = append(v.Assets, newAssetView(n.Asset, parent, idx))
			}
			return true
		})
		v.Connections = render.Build(root, idx).Connections
	})
	return v
}

func newAssetView(a *model.Asset, container string, idx *geoindex.Index) assetView {
	av := assetView{
		ID:        a.ID,
		Name:      a.Name,
		Type:      string(a.Type),
		Geometry:  a.Geometry.Kind.String(),
		Container: container,
		Length:    a.Length,
	}
	for _, c := range a.Geometry.Points {
		av.Points = append(av.Points, [2]float64{c.Lat, c.Lon})
	}
	for _, p := range a.Ports {
		pv := portView{ID: p.ID, Name: p.Name, Kind: p.Kind.String(), ConnectedTo: append([]string{}, p.ConnectedTo...)}
		if e, ok := idx.Lookup(p.ID); ok {
			lat, lon := e.Coord.Lat, e.Coord.Lon
			pv.Lat, pv.Lon = &lat, &lon
		}
		av.Ports = append(av.Ports, pv)
	}
	return av
}
