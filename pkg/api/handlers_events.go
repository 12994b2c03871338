package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/dd0wney/cluso-mapeditor/pkg/logging"
	"github.com/dd0wney/cluso-mapeditor/pkg/pubsub"
)

// eventKeepAlive is how often an idle stream gets a comment line
var eventKeepAlive = 25 * time.Second

// handleEvents streams the session's change events as server-sent events.
// The stream ends when the client goes away or the session closes.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessionFor(w, r)
	if !ok {
		return
	}

	sub, err := s.events.Subscribe(r.Context(), pubsub.SessionTopic(sess.ID()))
	if err != nil {
		s.respondErr(w, r, "subscribe", err)
		return
	}
	defer sub.Unsubscribe()

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.logger.Warn("event stream cannot flush", logging.SessionID(sess.ID()), logging.Error(err))
		return
	}

	logger := s.logger.With(logging.SessionID(sess.ID()))
	logger.Debug("event stream opened")
	defer logger.Debug("event stream closed")
	if s.metrics != nil {
		s.metrics.StreamOpened()
		defer s.metrics.StreamClosed()
	}

	ticker := time.NewTicker(eventKeepAlive)
	defer ticker.Stop()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-ticker.C:
			if _, err := fmt.Fprint(w, ": keep-alive\n\n"); err != nil {
				return
			}
		case ev, open := <-sub.Channel():
			if !open {
				return
			}
			if err := writeEvent(w, ev); err != nil {
				logger.Warn("failed to write event", logging.Error(err))
				return
			}
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}

func writeEvent(w http.ResponseWriter, ev pubsub.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Type, data)
	return err
}
