package api

import (
	"net/http"
	"strconv"
	"time"

	"github.com/dd0wney/cluso-mapeditor/pkg/audit"
)

// defaultAuditLimit caps the events returned when no limit is given
const defaultAuditLimit = 100

// handleAudit returns audit events filtered by session_id, action, asset_id,
// status and an RFC 3339 start_time/end_time window. The newest events are
// kept when the limit cuts the result.
func (s *Server) handleAudit(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := &audit.Filter{
		SessionID: query.Get("session_id"),
		Action:    audit.Action(query.Get("action")),
		AssetID:   query.Get("asset_id"),
		Status:    audit.Status(query.Get("status")),
	}

	for _, bound := range []struct {
		param string
		dst   **time.Time
	}{
		{"start_time", &filter.StartTime},
		{"end_time", &filter.EndTime},
	} {
		v := query.Get(bound.param)
		if v == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			s.respondError(w, http.StatusBadRequest, ReasonInvalid, bound.param+" must be an RFC 3339 timestamp")
			return
		}
		*bound.dst = &t
	}

	limit := defaultAuditLimit
	if v := query.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			s.respondError(w, http.StatusBadRequest, ReasonInvalid, "limit must be a positive integer")
			return
		}
		limit = n
	}

	events := s.audit.GetEvents(filter)
	if len(events) > limit {
		events = events[len(events)-limit:]
	}
	s.respondJSON(w, http.StatusOK, AuditResponse{
		Events: events,
		Count:  len(events),
		Total:  s.audit.GetEventCount(),
	})
}
