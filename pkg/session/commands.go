package session

import (
	"github.com/google/uuid"

	"github.com/dd0wney/cluso-mapeditor/pkg/audit"
	"github.com/dd0wney/cluso-mapeditor/pkg/connectivity"
	"github.com/dd0wney/cluso-mapeditor/pkg/geo"
	"github.com/dd0wney/cluso-mapeditor/pkg/hierarchy"
	"github.com/dd0wney/cluso-mapeditor/pkg/logging"
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
	"github.com/dd0wney/cluso-mapeditor/pkg/pubsub"
	"github.com/dd0wney/cluso-mapeditor/pkg/render"
	"github.com/dd0wney/cluso-mapeditor/pkg/validation"
)

// PortInfo describes one port of an asset
type PortInfo struct {
	ID          string   `json:"id"`
	Name        string   `json:"name,omitempty"`
	Kind        string   `json:"kind"`
	ConnectedTo []string `json:"connected_to"`
}

// AddAsset synthesises an asset of a catalog type and places it in the area or
// building named by req.ContainerID. Ports get fresh ids; a Line drops
// repeated consecutive vertices and gets its length computed when req.Length is 0.
func (s *Session) AddAsset(req *validation.AddAssetRequest) (*model.Asset, error) {
	var added *model.Asset
	assetID := ""
	if req != nil {
		assetID = req.AssetID
	}
	err := s.exec(audit.ActionAddAsset, assetID, func() (*change, error) {
		if err := validation.ValidateAddAssetRequest(req); err != nil {
			return nil, err
		}
		asset, err := synthesise(req)
		if err != nil {
			return nil, err
		}
		if err := hierarchy.AddAsset(s.es, asset, req.ContainerID); err != nil {
			return nil, err
		}
		added = asset
		return &change{
			undo: func() { hierarchy.RemoveAsset(s.es, asset.ID, nil) },
			events: func() []pubsub.Event {
				data := map[string]any{"container_id": req.ContainerID}
				if rec, ok := render.Record(asset); ok {
					data["asset"] = rec
				}
				return []pubsub.Event{{Type: pubsub.EventAssetAdded, AssetID: asset.ID, Data: data}}
			},
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return added, nil
}

func synthesise(req *validation.AddAssetRequest) (*model.Asset, error) {
	typ := model.AssetType(req.Type)
	spec, _ := model.LookupType(typ)

	asset := &model.Asset{
		ID:   req.AssetID,
		Name: req.Name,
		Type: typ,
	}
	if asset.ID == "" {
		asset.ID = uuid.NewString()
	}
	if asset.Name == "" {
		asset.Name = req.Type + "_" + asset.ID[:min(4, len(asset.ID))]
	}

	switch {
	case len(req.Line) > 0:
		line, length, err := conductorLine(asset.ID, req.Line, req.Length)
		if err != nil {
			return nil, err
		}
		asset.Geometry = model.LineGeometry(line...)
		asset.Length = length
	case req.Point != nil:
		asset.Geometry = model.PointGeometry(req.Point.Coord())
	}

	for _, kind := range spec.Ports {
		port := model.NewPort(uuid.NewString(), kind)
		port.Name = kind.String()
		asset.Ports = append(asset.Ports, port)
	}
	return asset, nil
}

// conductorLine drops repeated vertices and fills in the length in meters
func conductorLine(assetID string, points []validation.Point, length float64) ([]geo.Coordinate, float64, error) {
	line := geo.DedupeConsecutive(validation.Coords(points))
	if len(line) < 2 {
		return nil, 0, model.NewError("line").Asset(assetID).
			Context("fewer than two distinct points").Cause(model.ErrInvalidAsset).Err()
	}
	if length == 0 {
		length = geo.PathLength(line) * 1000
	}
	return line, length, nil
}

// RemoveAsset removes every instance of the asset and cleans the connectedTo
// entries that pointed at its ports or the ports of anything nested in it.
// It returns the number of instances removed.
func (s *Session) RemoveAsset(assetID string) (int, error) {
	removed := 0
	err := s.exec(audit.ActionRemoveAsset, assetID, func() (*change, error) {
		if err := validation.ValidateID("AssetID", assetID); err != nil {
			return nil, err
		}
		var removals []hierarchy.Removal
		removed = hierarchy.RemoveAsset(s.es, assetID, func(r hierarchy.Removal) {
			removals = append(removals, r)
		})
		if removed == 0 {
			return nil, model.AssetNotFoundError("remove", assetID)
		}

		var portIDs []string
		for _, r := range removals {
			portIDs = append(portIDs, r.Asset.AllPortIDs()...)
		}
		dropped := hierarchy.DetachPorts(s.root, portIDs)
		if s.metrics != nil {
			s.metrics.RecordDanglingReferences(dropped)
		}
		s.logger.Debug("asset removed", logging.AssetID(assetID), logging.Count(removed), logging.Int("links_dropped", dropped))

		// shrinking the tree cannot make the index collide, so there is no undo
		return &change{
			events: func() []pubsub.Event {
				events := make([]pubsub.Event, 0, len(removals))
				for _, r := range removals {
					events = append(events, pubsub.Event{
						Type:    pubsub.EventAssetRemoved,
						AssetID: assetID,
						Data:    map[string]any{"container_id": r.ContainerID},
					})
				}
				return events
			},
		}, nil
	})
	if err != nil {
		return 0, err
	}
	return removed, nil
}

// ConnectAssets links a port of one asset to a port of the other, choosing
// the ports by geometry and port kind. Linking an already linked pair
// succeeds without a change.
func (s *Session) ConnectAssets(assetID1, assetID2 string) (connectivity.Link, error) {
	var link connectivity.Link
	err := s.exec(audit.ActionConnect, assetID1, func() (*change, error) {
		req := &validation.ConnectRequest{AssetID1: assetID1, AssetID2: assetID2}
		if err := validation.ValidateConnectRequest(req); err != nil {
			return nil, err
		}
		a, ok := hierarchy.FindAsset(s.root, assetID1)
		if !ok {
			return nil, model.AssetNotFoundError("connect", assetID1)
		}
		b, ok := hierarchy.FindAsset(s.root, assetID2)
		if !ok {
			return nil, model.AssetNotFoundError("connect", assetID2)
		}

		before := snapshotLinks(a, b)
		l, err := connectivity.Connect(a, b)
		if err != nil {
			return nil, err
		}
		link = l
		return &change{
			undo: before.restore,
			events: func() []pubsub.Event {
				return []pubsub.Event{s.connectedEvent(l, assetID1, assetID2)}
			},
		}, nil
	})
	return link, err
}

// connectedEvent carries the drawn connection. When either port is missing
// from the index the event goes out without it and the gap is logged.
func (s *Session) connectedEvent(l connectivity.Link, assetID, partnerID string) pubsub.Event {
	data := map[string]any{"partner_id": partnerID, "created": l.Created}
	if conn, ok := render.ConnectionOf(s.index, l.FromPortID, l.ToPortID); ok {
		data["connection"] = conn
	} else {
		err := model.NewError("connect").Port(l.FromPortID).
			Context("partner port " + l.ToPortID).Cause(model.ErrMissingEndpoint).Err()
		s.logger.Warn("connection not drawable", logging.AssetID(assetID), logging.Error(err))
	}
	return pubsub.Event{Type: pubsub.EventAssetsConnected, AssetID: assetID, Data: data}
}

// linkSnapshot remembers the connectedTo sets of some ports
type linkSnapshot map[*model.Port][]string

func snapshotLinks(assets ...*model.Asset) linkSnapshot {
	snap := make(linkSnapshot)
	for _, a := range assets {
		for _, p := range a.Ports {
			snap[p] = append([]string(nil), p.ConnectedTo...)
		}
	}
	return snap
}

func (snap linkSnapshot) restore() {
	for p, links := range snap {
		p.ConnectedTo = links
	}
}

// UpdatePoint moves a point asset
func (s *Session) UpdatePoint(assetID string, lat, lon float64) error {
	return s.exec(audit.ActionUpdatePoint, assetID, func() (*change, error) {
		req := &validation.UpdatePointRequest{AssetID: assetID, Point: validation.Point{Lat: lat, Lon: lon}}
		if err := validation.ValidateUpdatePointRequest(req); err != nil {
			return nil, err
		}
		asset, ok := hierarchy.FindAsset(s.root, assetID)
		if !ok {
			return nil, model.AssetNotFoundError("update point", assetID)
		}
		if asset.Geometry.Kind != model.GeometryPoint {
			return nil, model.NewError("update point").Asset(assetID).
				Context("asset has " + asset.Geometry.Kind.String() + " geometry").Cause(model.ErrUnsupported).Err()
		}

		old := asset.Geometry
		asset.Geometry = model.PointGeometry(req.Point.Coord())
		return &change{
			undo:   func() { asset.Geometry = old },
			events: s.movedEvent(asset),
		}, nil
	})
}

// UpdateLine replaces the polyline of a conductor and its length. A zero
// length is computed from the new line.
func (s *Session) UpdateLine(assetID string, points []validation.Point, length float64) error {
	return s.exec(audit.ActionUpdateLine, assetID, func() (*change, error) {
		req := &validation.UpdateLineRequest{AssetID: assetID, Line: points, Length: length}
		if err := validation.ValidateUpdateLineRequest(req); err != nil {
			return nil, err
		}
		asset, ok := hierarchy.FindAsset(s.root, assetID)
		if !ok {
			return nil, model.AssetNotFoundError("update line", assetID)
		}
		if asset.Geometry.Kind != model.GeometryLine {
			return nil, model.NewError("update line").Asset(assetID).
				Context("asset has " + asset.Geometry.Kind.String() + " geometry").Cause(model.ErrUnsupported).Err()
		}
		line, newLength, err := conductorLine(assetID, points, length)
		if err != nil {
			return nil, err
		}

		oldGeometry, oldLength := asset.Geometry, asset.Length
		asset.Geometry = model.LineGeometry(line...)
		asset.Length = newLength
		return &change{
			undo: func() {
				asset.Geometry = oldGeometry
				asset.Length = oldLength
			},
			events: s.movedEvent(asset),
		}, nil
	})
}

func (s *Session) movedEvent(asset *model.Asset) func() []pubsub.Event {
	return func() []pubsub.Event {
		data := map[string]any{}
		if rec, ok := render.Record(asset); ok {
			data["asset"] = rec
		}
		if asset.IsConductor() {
			data["length"] = asset.Length
		}
		return []pubsub.Event{{Type: pubsub.EventAssetMoved, AssetID: asset.ID, Data: data}}
	}
}

// GetPorts lists the ports of an asset in order
func (s *Session) GetPorts(assetID string) ([]PortInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	asset, ok := hierarchy.FindAsset(s.root, assetID)
	if !ok {
		return nil, model.AssetNotFoundError("ports", assetID)
	}
	ports := make([]PortInfo, 0, len(asset.Ports))
	for _, p := range asset.Ports {
		ports = append(ports, PortInfo{
			ID:          p.ID,
			Name:        p.Name,
			Kind:        p.Kind.String(),
			ConnectedTo: append([]string{}, p.ConnectedTo...),
		})
	}
	return ports, nil
}
