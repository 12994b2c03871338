package model

// EnergySystem is the root of an exchange-format document
type EnergySystem struct {
	ID          string
	Name        string
	Description string
	Instances   []*Instance
}

// Instance is one scenario of an energy system with its top-level area
type Instance struct {
	ID   string
	Name string
	Area *Area
}

// RootArea returns the top-level area of the first instance, the tree that is edited
func (es *EnergySystem) RootArea() (*Area, bool) {
	if es == nil || len(es.Instances) == 0 || es.Instances[0] == nil || es.Instances[0].Area == nil {
		return nil, false
	}
	return es.Instances[0].Area, true
}

// NewEnergySystem creates a system with a single instance owning root
func NewEnergySystem(id, name string, root *Area) *EnergySystem {
	return &EnergySystem{
		ID:   id,
		Name: name,
		Instances: []*Instance{
			{ID: id + "-instance", Name: name, Area: root},
		},
	}
}

// Area is a named spatial container. It owns its sub-areas and assets.
type Area struct {
	ID     string
	Name   string
	Areas  []*Area
	Assets []*Asset
}

// NewArea creates an empty area
func NewArea(id, name string) *Area {
	return &Area{ID: id, Name: name}
}

// AddArea appends a sub-area and returns the receiver for chaining
func (a *Area) AddArea(sub *Area) *Area {
	a.Areas = append(a.Areas, sub)
	return a
}

// Asset is a piece of equipment with geometry and ports.
// Building types additionally own nested assets.
type Asset struct {
	ID       string
	Name     string
	Type     AssetType
	Geometry Geometry
	Ports    []*Port
	Length   float64 // meters, conductors only

	// Assets is only populated for building types
	Assets []*Asset
}

// IsBuilding reports whether the asset can contain other assets
func (a *Asset) IsBuilding() bool {
	return a.Type.IsBuilding()
}

// IsConductor reports whether the asset carries flow along a Line
func (a *Asset) IsConductor() bool {
	return a.Geometry.Kind == GeometryLine
}

// Port returns the port with the given id
func (a *Asset) Port(id string) (*Port, bool) {
	for _, p := range a.Ports {
		if p.ID == id {
			return p, true
		}
	}
	return nil, false
}

// FirstPort returns port[0]
func (a *Asset) FirstPort() (*Port, bool) {
	if len(a.Ports) == 0 {
		return nil, false
	}
	return a.Ports[0], true
}

// LastPort returns port[last]
func (a *Asset) LastPort() (*Port, bool) {
	if len(a.Ports) == 0 {
		return nil, false
	}
	return a.Ports[len(a.Ports)-1], true
}

// PortIDs returns the ids of the asset's own ports
func (a *Asset) PortIDs() []string {
	ids := make([]string, 0, len(a.Ports))
	for _, p := range a.Ports {
		ids = append(ids, p.ID)
	}
	return ids
}

// AllPortIDs returns the asset's port ids followed by those of every nested asset
func (a *Asset) AllPortIDs() []string {
	ids := a.PortIDs()
	for _, child := range a.Assets {
		ids = append(ids, child.AllPortIDs()...)
	}
	return ids
}
