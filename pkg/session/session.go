// Package session holds one editable energy system per map client. A session
// serialises commands, keeps the port index current and reports every change
// to the audit log, the metrics registry and the session's event topic.
package session

import (
	"context"
	"sync"
	"time"

	"github.com/dd0wney/cluso-mapeditor/pkg/audit"
	"github.com/dd0wney/cluso-mapeditor/pkg/geoindex"
	"github.com/dd0wney/cluso-mapeditor/pkg/hierarchy"
	"github.com/dd0wney/cluso-mapeditor/pkg/logging"
	"github.com/dd0wney/cluso-mapeditor/pkg/metrics"
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
	"github.com/dd0wney/cluso-mapeditor/pkg/pubsub"
	"github.com/dd0wney/cluso-mapeditor/pkg/render"
	"github.com/dd0wney/cluso-mapeditor/pkg/store"
	"github.com/dd0wney/cluso-mapeditor/pkg/validation"
)

// Deps are the collaborators a session reports to. Nil members are skipped.
type Deps struct {
	Logger  logging.Logger
	Metrics *metrics.Registry
	Events  *pubsub.PubSub
	Audit   audit.Logger
}

// Session owns one energy system and its port index
type Session struct {
	id       string
	systemID string
	openedAt time.Time

	mu    sync.Mutex
	es    *model.EnergySystem
	root  *model.Area
	index *geoindex.Index
	dirty bool

	logger  logging.Logger
	metrics *metrics.Registry
	events  *pubsub.PubSub
	audit   audit.Logger
}

// Info summarises a session for listings
type Info struct {
	ID       string    `json:"id"`
	SystemID string    `json:"system_id"`
	OpenedAt time.Time `json:"opened_at"`
	Dirty    bool      `json:"dirty"`
}

// New indexes es and returns a session editing it. The system must have a
// root area and its ports must not collide.
func New(id, systemID string, es *model.EnergySystem, deps Deps) (*Session, error) {
	root, ok := es.RootArea()
	if !ok {
		return nil, model.NewError("open").Entity("system").Context(systemID + " has no root area").Cause(model.ErrNotFound).Err()
	}
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	s := &Session{
		id:       id,
		systemID: systemID,
		openedAt: time.Now(),
		es:       es,
		root:     root,
		logger:   deps.Logger.With(logging.Component("session"), logging.SessionID(id), logging.SystemID(systemID)),
		metrics:  deps.Metrics,
		events:   deps.Events,
		audit:    deps.Audit,
	}
	if err := s.reindex(); err != nil {
		return nil, err
	}
	return s, nil
}

// ID returns the session id
func (s *Session) ID() string { return s.id }

// SystemID returns the id the system is stored under
func (s *Session) SystemID() string { return s.systemID }

// Info returns a snapshot of the session's bookkeeping
func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Info{ID: s.id, SystemID: s.systemID, OpenedAt: s.openedAt, Dirty: s.dirty}
}

// change is what a successful mutation leaves behind: how to take it back
// if the index cannot be rebuilt, and the events to publish once it sticks
type change struct {
	undo   func()
	events func() []pubsub.Event
}

// exec runs one mutating command under the session lock
func (s *Session) exec(action audit.Action, assetID string, apply func() (*change, error)) error {
	timer := logging.StartTimer(s.logger, "command", logging.Command(string(action)), logging.AssetID(assetID))

	s.mu.Lock()
	defer s.mu.Unlock()

	c, err := apply()
	if err == nil {
		if err = s.reindex(); err != nil && c != nil && c.undo != nil {
			c.undo()
		}
	}
	s.finish(action, assetID, err, timer)
	if err != nil {
		return err
	}

	s.dirty = true
	if c != nil && c.events != nil {
		for _, ev := range c.events() {
			s.publish(ev)
		}
	}
	return nil
}

// reindex rebuilds the port index. The previous index is kept on failure.
func (s *Session) reindex() error {
	start := time.Now()
	idx, err := geoindex.Rebuild(s.root)
	if err != nil {
		return err
	}
	s.index = idx
	if s.metrics != nil {
		s.metrics.RecordIndexRebuild(s.id, idx.Len(), len(hierarchy.Assets(s.root)), time.Since(start))
	}
	return nil
}

func commandStatus(err error) (audit.Status, string) {
	switch {
	case err == nil:
		return audit.StatusSuccess, metrics.StatusOK
	case validation.IsInvalidRequest(err), model.IsNotFound(err), model.IsUnsupported(err),
		model.IsIntegrity(err), model.IsInvalid(err):
		return audit.StatusRejected, metrics.StatusRejected
	default:
		return audit.StatusFailure, metrics.StatusError
	}
}

func (s *Session) finish(action audit.Action, assetID string, err error, timer *logging.TimedOperation) {
	status, metricStatus := commandStatus(err)
	var elapsed time.Duration
	switch status {
	case audit.StatusSuccess:
		elapsed = timer.End()
	case audit.StatusRejected:
		elapsed = timer.EndWarn(err)
	default:
		elapsed = timer.EndError(err)
	}
	if s.metrics != nil {
		s.metrics.RecordCommand(string(action), metricStatus, elapsed)
	}
	if s.audit != nil {
		ev := audit.NewFailedEvent(s.id, action, assetID, status, err)
		ev.SystemID = s.systemID
		if logErr := s.audit.Log(ev); logErr != nil {
			s.logger.Warn("audit log failed", logging.Error(logErr))
		}
	}
}

func (s *Session) publish(ev pubsub.Event) {
	if s.events == nil {
		return
	}
	ev.SessionID = s.id
	if ev.Time.IsZero() {
		ev.Time = time.Now()
	}
	s.events.Publish(pubsub.SessionTopic(s.id), ev)
}

// Payload returns everything the map front-end draws
func (s *Session) Payload() *render.Payload {
	s.mu.Lock()
	defer s.mu.Unlock()
	return render.Build(s.root, s.index)
}

// View calls fn with the system and its index under the session lock.
// fn must not keep references past its return or mutate anything.
func (s *Session) View(fn func(es *model.EnergySystem, idx *geoindex.Index)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.es, s.index)
}

// Save writes the system to docs under the session's system id
func (s *Session) Save(ctx context.Context, docs store.DocumentStore) error {
	timer := logging.StartTimer(s.logger, "save", logging.Command(string(audit.ActionSave)))

	s.mu.Lock()
	defer s.mu.Unlock()

	err := store.SaveSystem(ctx, docs, s.systemID, s.es)
	s.finish(audit.ActionSave, "", err, timer)
	if err != nil {
		return err
	}
	s.dirty = false
	s.publish(pubsub.Event{Type: pubsub.EventSystemSaved, Data: map[string]string{"system_id": s.systemID}})
	return nil
}

// close announces the end of the session and drops its per-session series
func (s *Session) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.audit != nil {
		ev := audit.NewEvent(s.id, audit.ActionClose, "", audit.StatusSuccess)
		ev.SystemID = s.systemID
		_ = s.audit.Log(ev)
	}
	s.publish(pubsub.Event{Type: pubsub.EventSessionClosed})
	if s.events != nil {
		s.events.CloseTopic(pubsub.SessionTopic(s.id))
	}
	if s.metrics != nil {
		s.metrics.SessionClosed(s.id)
	}
	s.logger.Info("session closed", logging.Bool("dirty", s.dirty))
}
