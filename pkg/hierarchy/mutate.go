package hierarchy

import (
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
)

// Removal describes one asset instance taken out of the tree
type Removal struct {
	Asset         *model.Asset
	ContainerID   string
	ContainerKind NodeKind // NodeArea or NodeBuilding
}

// RemovalFunc receives a notification per removed instance
type RemovalFunc func(Removal)

// AddAssetToArea appends asset to the area with the given id. The asset is
// checked against the type catalog first. Nothing changes on failure.
func AddAssetToArea(es *model.EnergySystem, asset *model.Asset, areaID string) error {
	root, ok := es.RootArea()
	if !ok {
		return model.AreaNotFoundError("add", areaID)
	}
	area, ok := FindArea(root, areaID)
	if !ok {
		return model.AreaNotFoundError("add", areaID)
	}
	if err := admit(root, asset); err != nil {
		return err
	}
	area.Assets = append(area.Assets, asset)
	return nil
}

// AddAssetToBuilding appends asset to the building with the given id.
// The id is resolved with FindAsset; anything other than a building is rejected.
func AddAssetToBuilding(es *model.EnergySystem, asset *model.Asset, buildingID string) error {
	root, ok := es.RootArea()
	if !ok {
		return model.NewError("add").Container(buildingID).Cause(model.ErrNotFound).Err()
	}
	target, ok := FindAsset(root, buildingID)
	if !ok {
		return model.NewError("add").Container(buildingID).Cause(model.ErrNotFound).Err()
	}
	if !target.IsBuilding() {
		return model.NewError("add").Container(buildingID).
			Context(string(target.Type) + " cannot contain assets").Cause(model.ErrUnsupported).Err()
	}
	if err := admit(root, asset); err != nil {
		return err
	}
	target.Assets = append(target.Assets, asset)
	return nil
}

// AddAsset tries the id as an area first and as a building second.
// Only a not-found result from the area path triggers the fallback.
func AddAsset(es *model.EnergySystem, asset *model.Asset, containerID string) error {
	err := AddAssetToArea(es, asset, containerID)
	if err == nil || !model.IsNotFound(err) {
		return err
	}
	return AddAssetToBuilding(es, asset, containerID)
}

// admit checks an asset before it enters the tree: catalog shape, and no id in
// its subtree already present anywhere in the tree.
func admit(root *model.Area, asset *model.Asset) error {
	if err := model.CheckAsset(asset); err != nil {
		return err
	}
	var dup string
	walkAsset(asset, 0, func(n Node) bool {
		if _, exists := FindAsset(root, n.Asset.ID); exists {
			dup = n.Asset.ID
			return false
		}
		return true
	})
	if dup != "" {
		return model.NewError("add").Asset(dup).Cause(model.ErrDuplicateID).Err()
	}
	return nil
}

// RemoveAsset removes every asset with the given id from the tree, including
// assets nested in buildings at any depth, and returns how many were removed.
// The whole tree is visited even after a match. notify may be nil.
//
// Partner ports keep their connectedTo entries; see DetachPorts.
func RemoveAsset(es *model.EnergySystem, assetID string, notify RemovalFunc) int {
	root, ok := es.RootArea()
	if !ok {
		return 0
	}
	return removeFromArea(root, assetID, notify)
}

func removeFromArea(area *model.Area, assetID string, notify RemovalFunc) int {
	removed := 0
	kept := area.Assets[:0]
	for _, asset := range area.Assets {
		if asset.ID == assetID {
			removed++
			if notify != nil {
				notify(Removal{Asset: asset, ContainerID: area.ID, ContainerKind: NodeArea})
			}
			continue
		}
		kept = append(kept, asset)
	}
	clearTail(area.Assets, len(kept))
	area.Assets = kept

	for _, asset := range area.Assets {
		if asset.IsBuilding() {
			removed += removeFromBuilding(asset, assetID, notify)
		}
	}
	for _, sub := range area.Areas {
		removed += removeFromArea(sub, assetID, notify)
	}
	return removed
}

func removeFromBuilding(building *model.Asset, assetID string, notify RemovalFunc) int {
	removed := 0
	kept := building.Assets[:0]
	for _, asset := range building.Assets {
		if asset.ID == assetID {
			removed++
			if notify != nil {
				notify(Removal{Asset: asset, ContainerID: building.ID, ContainerKind: NodeBuilding})
			}
			continue
		}
		kept = append(kept, asset)
	}
	clearTail(building.Assets, len(kept))
	building.Assets = kept

	for _, asset := range building.Assets {
		if asset.IsBuilding() {
			removed += removeFromBuilding(asset, assetID, notify)
		}
	}
	return removed
}

// clearTail nils out the slots past n so removed assets can be collected
func clearTail(assets []*model.Asset, n int) {
	for i := n; i < len(assets); i++ {
		assets[i] = nil
	}
}

// DetachPorts removes the given port ids from the connectedTo set of every port
// in the tree and returns how many references were dropped.
func DetachPorts(root *model.Area, portIDs []string) int {
	if len(portIDs) == 0 {
		return 0
	}
	gone := make(map[string]struct{}, len(portIDs))
	for _, id := range portIDs {
		gone[id] = struct{}{}
	}
	dropped := 0
	Walk(root, func(n Node) bool {
		if n.Asset == nil {
			return true
		}
		for _, p := range n.Asset.Ports {
			kept := p.ConnectedTo[:0]
			for _, target := range p.ConnectedTo {
				if _, ok := gone[target]; ok {
					dropped++
					continue
				}
				kept = append(kept, target)
			}
			p.ConnectedTo = kept
		}
		return true
	})
	return dropped
}
