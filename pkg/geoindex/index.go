// Package geoindex derives the port lookup table used by connectivity:
// every port id maps to the asset owning it and the coordinate it sits at.
//
// An Index is an immutable value. Any structural or geometric change to the
// tree invalidates it; callers rebuild with Rebuild.
package geoindex

import (
	"slices"

	"github.com/dd0wney/cluso-mapeditor/pkg/geo"
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
)

// Entry is the indexed location of one port
type Entry struct {
	AssetID string         `json:"asset_id"`
	Coord   geo.Coordinate `json:"coord"`
}

// Index maps port id to Entry
type Index struct {
	entries map[string]Entry
}

// Rebuild walks the tree pre-order and indexes every port.
//
// Point geometry binds all ports of the asset to the point. Line geometry binds
// port[0] to the first vertex and port[last] to the last vertex; any ports in
// between stay unindexed. Assets without ports or without a usable geometry
// contribute nothing. Building children are indexed before the building's own
// ports.
//
// Two asset instances claiming the same port id fail with
// model.ErrPortCollision, even when the instances share an asset id.
func Rebuild(root *model.Area) (*Index, error) {
	b := &builder{
		idx:    &Index{entries: make(map[string]Entry)},
		owners: make(map[string]*model.Asset),
	}
	if root == nil {
		return b.idx, nil
	}
	if err := b.addArea(root); err != nil {
		return nil, err
	}
	return b.idx, nil
}

// builder remembers which asset instance claimed each port during a rebuild
type builder struct {
	idx    *Index
	owners map[string]*model.Asset
}

func (b *builder) addArea(area *model.Area) error {
	for _, asset := range area.Assets {
		if err := b.addAsset(asset); err != nil {
			return err
		}
	}
	for _, sub := range area.Areas {
		if err := b.addArea(sub); err != nil {
			return err
		}
	}
	return nil
}

func (b *builder) addAsset(asset *model.Asset) error {
	if asset.IsBuilding() {
		for _, child := range asset.Assets {
			if err := b.addAsset(child); err != nil {
				return err
			}
		}
	}
	if len(asset.Ports) == 0 {
		return nil
	}

	switch asset.Geometry.Kind {
	case model.GeometryPoint:
		pt, ok := asset.Geometry.Point()
		if !ok {
			return nil
		}
		for _, p := range asset.Ports {
			if err := b.put(p.ID, asset, pt); err != nil {
				return err
			}
		}
	case model.GeometryLine:
		first, last, ok := asset.Geometry.Ends()
		if !ok {
			return nil
		}
		if err := b.put(asset.Ports[0].ID, asset, first); err != nil {
			return err
		}
		if len(asset.Ports) > 1 {
			if err := b.put(asset.Ports[len(asset.Ports)-1].ID, asset, last); err != nil {
				return err
			}
		}
	case model.GeometryNone, model.GeometryPolygon:
		// no endpoint to bind ports to
	}
	return nil
}

func (b *builder) put(portID string, owner *model.Asset, c geo.Coordinate) error {
	if prev, exists := b.owners[portID]; exists && prev != owner {
		return model.NewError("index").Port(portID).
			Context("claimed by " + prev.ID + " and " + owner.ID).
			Cause(model.ErrPortCollision).Err()
	}
	b.owners[portID] = owner
	b.idx.entries[portID] = Entry{AssetID: owner.ID, Coord: c}
	return nil
}

// Lookup returns the entry for a port id
func (idx *Index) Lookup(portID string) (Entry, bool) {
	if idx == nil {
		return Entry{}, false
	}
	e, ok := idx.entries[portID]
	return e, ok
}

// Len returns the number of indexed ports
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.entries)
}

// PortIDs returns the indexed port ids in sorted order
func (idx *Index) PortIDs() []string {
	if idx == nil {
		return nil
	}
	ids := make([]string, 0, len(idx.entries))
	for id := range idx.entries {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

// Equal reports whether both indexes hold the same entries
func (idx *Index) Equal(other *Index) bool {
	if idx.Len() != other.Len() {
		return false
	}
	if idx.Len() == 0 {
		return true
	}
	for id, e := range idx.entries {
		o, ok := other.Lookup(id)
		if !ok || o != e {
			return false
		}
	}
	return true
}
