package model

// AssetType is the exchange-format class name of an asset
type AssetType string

const (
	WindTurbine        AssetType = "WindTurbine"
	PVParc             AssetType = "PVParc"
	PVPanel            AssetType = "PVPanel"
	GasProducer        AssetType = "GasProducer"
	ElectricityDemand  AssetType = "ElectricityDemand"
	HeatingDemand      AssetType = "HeatingDemand"
	Transformer        AssetType = "Transformer"
	HeatPump           AssetType = "HeatPump"
	GasHeater          AssetType = "GasHeater"
	Joint              AssetType = "Joint"
	ElectricityCable   AssetType = "ElectricityCable"
	Pipe               AssetType = "Pipe"
	Building           AssetType = "Building"
	AggregatedBuilding AssetType = "AggregatedBuilding"
)

// Category groups asset types by role
type Category uint8

const (
	CategoryProducer Category = iota
	CategoryConsumer
	CategoryConversion
	CategoryTransport
	CategoryConductor
	CategoryBuilding
)

func (c Category) String() string {
	switch c {
	case CategoryProducer:
		return "Producer"
	case CategoryConsumer:
		return "Consumer"
	case CategoryConversion:
		return "Conversion"
	case CategoryTransport:
		return "Transport"
	case CategoryConductor:
		return "Conductor"
	case CategoryBuilding:
		return "Building"
	default:
		return "Unknown"
	}
}

// TypeSpec describes how an asset type is shaped when synthesised
type TypeSpec struct {
	Type     AssetType
	Category Category
	Geometry GeometryKind
	Ports    []PortKind
}

var catalog = map[AssetType]TypeSpec{
	WindTurbine:        {WindTurbine, CategoryProducer, GeometryPoint, []PortKind{PortOut}},
	PVParc:             {PVParc, CategoryProducer, GeometryPoint, []PortKind{PortOut}},
	PVPanel:            {PVPanel, CategoryProducer, GeometryPoint, []PortKind{PortOut}},
	GasProducer:        {GasProducer, CategoryProducer, GeometryPoint, []PortKind{PortOut}},
	ElectricityDemand:  {ElectricityDemand, CategoryConsumer, GeometryPoint, []PortKind{PortIn}},
	HeatingDemand:      {HeatingDemand, CategoryConsumer, GeometryPoint, []PortKind{PortIn}},
	Transformer:        {Transformer, CategoryConversion, GeometryPoint, []PortKind{PortIn, PortOut}},
	HeatPump:           {HeatPump, CategoryConversion, GeometryPoint, []PortKind{PortIn, PortOut}},
	GasHeater:          {GasHeater, CategoryConversion, GeometryPoint, []PortKind{PortIn, PortOut}},
	Joint:              {Joint, CategoryTransport, GeometryPoint, []PortKind{PortIn, PortOut}},
	ElectricityCable:   {ElectricityCable, CategoryConductor, GeometryLine, []PortKind{PortIn, PortOut}},
	Pipe:               {Pipe, CategoryConductor, GeometryLine, []PortKind{PortIn, PortOut}},
	Building:           {Building, CategoryBuilding, GeometryPoint, nil},
	AggregatedBuilding: {AggregatedBuilding, CategoryBuilding, GeometryPoint, nil},
}

// LookupType returns the catalog entry for an asset type
func LookupType(t AssetType) (TypeSpec, bool) {
	spec, ok := catalog[t]
	return spec, ok
}

// KnownTypes returns every asset type in the catalog
func KnownTypes() []AssetType {
	types := make([]AssetType, 0, len(catalog))
	for t := range catalog {
		types = append(types, t)
	}
	return types
}

// IsBuilding reports whether assets of this type are containers
func (t AssetType) IsBuilding() bool {
	return t == Building || t == AggregatedBuilding
}

// IsConductor reports whether the type is a conductor in the catalog
func (t AssetType) IsConductor() bool {
	spec, ok := catalog[t]
	return ok && spec.Category == CategoryConductor
}

// CheckAsset verifies that an asset fits its catalog entry: the geometry kind
// matches (None is tolerated for buildings) and conductors have exactly two ports.
// Types outside the catalog are accepted as long as Line geometry comes with two ports.
func CheckAsset(a *Asset) error {
	if a == nil || a.ID == "" {
		return NewError("check").Entity("asset").Cause(ErrInvalidAsset).Context("missing id").Err()
	}
	spec, known := catalog[a.Type]
	if known {
		switch {
		case spec.Category == CategoryBuilding:
			if a.Geometry.Kind != GeometryNone && a.Geometry.Kind != GeometryPoint && a.Geometry.Kind != GeometryPolygon {
				return NewError("check").Asset(a.ID).Cause(ErrInvalidAsset).Context("building geometry " + a.Geometry.Kind.String()).Err()
			}
		case a.Geometry.Kind != spec.Geometry:
			return NewError("check").Asset(a.ID).Cause(ErrInvalidAsset).
				Context(string(a.Type) + " expects " + spec.Geometry.String() + " geometry, got " + a.Geometry.Kind.String()).Err()
		}
	}
	if !a.Type.IsBuilding() && len(a.Assets) > 0 {
		return NewError("check").Asset(a.ID).Cause(ErrInvalidAsset).Context(string(a.Type) + " cannot contain assets").Err()
	}
	if a.Geometry.Kind == GeometryLine {
		if len(a.Geometry.Points) < 2 {
			return NewError("check").Asset(a.ID).Cause(ErrInvalidAsset).Context("line needs at least two points").Err()
		}
		if len(a.Ports) != 2 {
			return NewError("check").Asset(a.ID).Cause(ErrInvalidAsset).Context("conductor needs exactly two ports").Err()
		}
	}
	return nil
}
