package model

// PortKind is the directionality of a port
type PortKind uint8

const (
	PortUntyped PortKind = iota
	PortIn
	PortOut
)

// String returns the exchange-format class name of the kind
func (k PortKind) String() string {
	switch k {
	case PortIn:
		return "InPort"
	case PortOut:
		return "OutPort"
	case PortUntyped:
		return "Port"
	default:
		return "Unknown"
	}
}

// ParsePortKind converts an exchange-format class name to a PortKind
func ParsePortKind(s string) (PortKind, bool) {
	switch s {
	case "InPort":
		return PortIn, true
	case "OutPort":
		return PortOut, true
	case "Port", "":
		return PortUntyped, true
	default:
		return PortUntyped, false
	}
}

// Opposite returns the kind a port of this kind pairs with. Only an OutPort
// feeds an InPort; every other kind, untyped included, draws from an OutPort.
func (k PortKind) Opposite() PortKind {
	if k == PortOut {
		return PortIn
	}
	return PortOut
}

// Port is a typed connection endpoint on an asset
type Port struct {
	ID          string
	Name        string
	Kind        PortKind
	ConnectedTo []string // partner port ids, ordered, no duplicates
}

// NewPort creates an unconnected port
func NewPort(id string, kind PortKind) *Port {
	return &Port{ID: id, Kind: kind}
}

// IsConnectedTo reports whether portID is in the connectedTo set
func (p *Port) IsConnectedTo(portID string) bool {
	for _, id := range p.ConnectedTo {
		if id == portID {
			return true
		}
	}
	return false
}

// AddLink appends portID to connectedTo unless it is already present.
// Returns true if the set changed.
func (p *Port) AddLink(portID string) bool {
	if portID == "" || p.IsConnectedTo(portID) {
		return false
	}
	p.ConnectedTo = append(p.ConnectedTo, portID)
	return true
}

// RemoveLink drops portID from connectedTo.
// Returns true if the set changed.
func (p *Port) RemoveLink(portID string) bool {
	for i, id := range p.ConnectedTo {
		if id == portID {
			p.ConnectedTo = append(p.ConnectedTo[:i], p.ConnectedTo[i+1:]...)
			return true
		}
	}
	return false
}

// Clone returns a deep copy
func (p *Port) Clone() *Port {
	c := *p
	if p.ConnectedTo != nil {
		c.ConnectedTo = append([]string(nil), p.ConnectedTo...)
	}
	return &c
}
