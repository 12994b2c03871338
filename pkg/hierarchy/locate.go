// Package hierarchy locates and mutates nodes in the area/building/asset
// containment tree. Lookups never fail with an error: they report whether a
// node was found so callers can fall back (area first, then building).
package hierarchy

import (
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
)

// FindArea searches the area tree depth-first, pre-order, and returns the first
// area whose id matches.
func FindArea(root *model.Area, areaID string) (*model.Area, bool) {
	if root == nil {
		return nil, false
	}
	if root.ID == areaID {
		return root, true
	}
	for _, sub := range root.Areas {
		if found, ok := FindArea(sub, areaID); ok {
			return found, true
		}
	}
	return nil, false
}

// FindAsset searches an area's direct assets first, descending into each
// building before moving to the next asset, then recurses into sub-areas.
func FindAsset(root *model.Area, assetID string) (*model.Asset, bool) {
	if root == nil {
		return nil, false
	}
	for _, asset := range root.Assets {
		if found, ok := findInAsset(asset, assetID); ok {
			return found, true
		}
	}
	for _, sub := range root.Areas {
		if found, ok := FindAsset(sub, assetID); ok {
			return found, true
		}
	}
	return nil, false
}

func findInAsset(asset *model.Asset, assetID string) (*model.Asset, bool) {
	if asset.ID == assetID {
		return asset, true
	}
	if !asset.IsBuilding() {
		return nil, false
	}
	for _, child := range asset.Assets {
		if found, ok := findInAsset(child, assetID); ok {
			return found, true
		}
	}
	return nil, false
}

// Container is either an Area or a building Asset. Exactly one field is set.
type Container struct {
	Area     *model.Area
	Building *model.Asset
}

// ID returns the id of whichever node is set
func (c Container) ID() string {
	if c.Area != nil {
		return c.Area.ID
	}
	if c.Building != nil {
		return c.Building.ID
	}
	return ""
}

// FindContainer resolves an id to an area, or failing that, to a building.
func FindContainer(root *model.Area, id string) (Container, bool) {
	if area, ok := FindArea(root, id); ok {
		return Container{Area: area}, true
	}
	if asset, ok := FindAsset(root, id); ok && asset.IsBuilding() {
		return Container{Building: asset}, true
	}
	return Container{}, false
}

// NodeKind distinguishes what a Visitor is looking at
type NodeKind uint8

const (
	NodeArea NodeKind = iota
	NodeBuilding
	NodeAsset
)

// Node is one stop of a Walk. Depth counts containers from the root (root area is 0).
type Node struct {
	Kind  NodeKind
	Area  *model.Area
	Asset *model.Asset
	Depth int
}

// Visitor is called for every node of a Walk. Returning false stops the walk.
type Visitor func(n Node) bool

// Walk visits the tree pre-order: the area, its sub-areas (recursively), then its
// assets. A building is visited before its children; its children sit one level
// deeper.
func Walk(root *model.Area, visit Visitor) {
	if root == nil {
		return
	}
	walkArea(root, 0, visit)
}

func walkArea(area *model.Area, depth int, visit Visitor) bool {
	if !visit(Node{Kind: NodeArea, Area: area, Depth: depth}) {
		return false
	}
	for _, sub := range area.Areas {
		if !walkArea(sub, depth+1, visit) {
			return false
		}
	}
	for _, asset := range area.Assets {
		if !walkAsset(asset, depth+1, visit) {
			return false
		}
	}
	return true
}

func walkAsset(asset *model.Asset, depth int, visit Visitor) bool {
	if !asset.IsBuilding() {
		return visit(Node{Kind: NodeAsset, Asset: asset, Depth: depth})
	}
	if !visit(Node{Kind: NodeBuilding, Asset: asset, Depth: depth}) {
		return false
	}
	for _, child := range asset.Assets {
		if !walkAsset(child, depth+1, visit) {
			return false
		}
	}
	return true
}

// Assets returns every asset in the tree in Walk order, buildings included
func Assets(root *model.Area) []*model.Asset {
	var out []*model.Asset
	Walk(root, func(n Node) bool {
		if n.Asset != nil {
			out = append(out, n.Asset)
		}
		return true
	})
	return out
}

// OwnerOfPort returns the asset owning the given port id
func OwnerOfPort(root *model.Area, portID string) (*model.Asset, *model.Port, bool) {
	var owner *model.Asset
	var port *model.Port
	Walk(root, func(n Node) bool {
		if n.Asset == nil {
			return true
		}
		if p, ok := n.Asset.Port(portID); ok {
			owner, port = n.Asset, p
			return false
		}
		return true
	})
	return owner, port, owner != nil
}
