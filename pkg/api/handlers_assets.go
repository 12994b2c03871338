package api

import (
	"net/http"

	"github.com/dd0wney/cluso-mapeditor/pkg/geoindex"
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
	"github.com/dd0wney/cluso-mapeditor/pkg/render"
	"github.com/dd0wney/cluso-mapeditor/pkg/validation"
)

func (s *Server) handleAddAsset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	var req validation.AddAssetRequest
	if s.NewRequestDecoder(w, r).DecodeJSON(&req).RespondError() {
		return
	}

	asset, err := sess.AddAsset(&req)
	if err != nil {
		s.respondErr(w, r, "add asset", err)
		return
	}

	var resp AddAssetResponse
	sess.View(func(_ *model.EnergySystem, _ *geoindex.Index) {
		resp.Asset, _ = render.Record(asset)
	})
	if resp.Ports, err = sess.GetPorts(asset.ID); err != nil {
		s.respondErr(w, r, "add asset", err)
		return
	}
	s.respondJSON(w, http.StatusCreated, resp)
}

func (s *Server) handleRemoveAsset(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	assetID := r.PathValue("asset")
	removed, err := sess.RemoveAsset(assetID)
	if err != nil {
		s.respondErr(w, r, "remove asset", err)
		return
	}
	s.respondJSON(w, http.StatusOK, RemoveAssetResponse{AssetID: assetID, Removed: removed})
}

func (s *Server) handleGetPorts(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	assetID := r.PathValue("asset")
	ports, err := sess.GetPorts(assetID)
	if err != nil {
		s.respondErr(w, r, "get ports", err)
		return
	}
	s.respondJSON(w, http.StatusOK, PortsResponse{AssetID: assetID, Ports: ports})
}

func (s *Server) handleUpdatePoint(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	var body UpdatePointBody
	if s.NewRequestDecoder(w, r).DecodeJSON(&body).RespondError() {
		return
	}

	if err := sess.UpdatePoint(r.PathValue("asset"), body.Point.Lat, body.Point.Lon); err != nil {
		s.respondErr(w, r, "update point", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateLine(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	var body UpdateLineBody
	if s.NewRequestDecoder(w, r).DecodeJSON(&body).RespondError() {
		return
	}

	if err := sess.UpdateLine(r.PathValue("asset"), body.Line, body.Length); err != nil {
		s.respondErr(w, r, "update line", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConnect(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	var req validation.ConnectRequest
	if s.NewRequestDecoder(w, r).DecodeJSON(&req).RespondError() {
		return
	}

	link, err := sess.ConnectAssets(req.AssetID1, req.AssetID2)
	if err != nil {
		s.respondErr(w, r, "connect assets", err)
		return
	}

	resp := ConnectResponse{FromPortID: link.FromPortID, ToPortID: link.ToPortID, Created: link.Created}
	sess.View(func(_ *model.EnergySystem, idx *geoindex.Index) {
		if conn, ok := render.ConnectionOf(idx, link.FromPortID, link.ToPortID); ok {
			resp.Connection = &conn
		}
	})
	s.respondJSON(w, http.StatusOK, resp)
}
