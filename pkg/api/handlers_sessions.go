package api

import (
	"net/http"
	"slices"

	"github.com/dd0wney/cluso-mapeditor/pkg/logging"
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
	"github.com/dd0wney/cluso-mapeditor/pkg/validation"
)

func (s *Server) handleListSessions(w http.ResponseWriter, r *http.Request) {
	infos := s.sessions.List()
	s.respondJSON(w, http.StatusOK, SessionListResponse{Sessions: infos, Count: len(infos)})
}

func (s *Server) handleOpenSession(w http.ResponseWriter, r *http.Request) {
	var req OpenSessionRequest
	if s.NewRequestDecoder(w, r).
		DecodeJSON(&req).
		Validate(func() error { return validation.ValidateID("system_id", req.SystemID) }).
		RespondError() {
		return
	}

	sess, err := s.sessions.Open(r.Context(), req.SystemID)
	if err != nil {
		s.respondErr(w, r, "open session", err)
		return
	}
	s.logger.Info("session opened", logging.SessionID(sess.ID()), logging.SystemID(req.SystemID))
	s.respondJSON(w, http.StatusCreated, SessionResponse{Info: sess.Info(), Payload: sess.Payload()})
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, SessionResponse{Info: sess.Info()})
}

func (s *Server) handlePayload(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, sess.Payload())
}

func (s *Server) handleSaveSession(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.sessions.Save(r.Context(), id); err != nil {
		s.respondErr(w, r, "save session", err)
		return
	}
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}
	s.respondJSON(w, http.StatusOK, SessionResponse{Info: sess.Info()})
}

func (s *Server) handleCloseSession(w http.ResponseWriter, r *http.Request) {
	if err := s.sessions.Close(r.PathValue("id")); err != nil {
		s.respondErr(w, r, "close session", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCatalog(w http.ResponseWriter, r *http.Request) {
	types := model.KnownTypes()
	slices.Sort(types)

	entries := make([]CatalogEntry, 0, len(types))
	for _, t := range types {
		spec, _ := model.LookupType(t)
		ports := make([]string, len(spec.Ports))
		for i, k := range spec.Ports {
			ports[i] = k.String()
		}
		entries = append(entries, CatalogEntry{Type: string(t), Geometry: spec.Geometry.String(), Ports: ports})
	}
	s.respondJSON(w, http.StatusOK, CatalogResponse{Types: entries})
}
