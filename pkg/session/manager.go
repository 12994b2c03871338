package session

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/dd0wney/cluso-mapeditor/pkg/audit"
	"github.com/dd0wney/cluso-mapeditor/pkg/logging"
	"github.com/dd0wney/cluso-mapeditor/pkg/model"
	"github.com/dd0wney/cluso-mapeditor/pkg/store"
	"github.com/dd0wney/cluso-mapeditor/pkg/validation"
)

// ErrSessionNotFound is returned for unknown session ids. It matches model.ErrNotFound.
var ErrSessionNotFound = fmt.Errorf("session %w", model.ErrNotFound)

// Manager keeps the open sessions keyed by session id
type Manager struct {
	docs     store.DocumentStore
	deps     Deps
	sessions map[string]*Session
	mu       sync.RWMutex
}

// NewManager creates a manager loading from and saving to docs
func NewManager(docs store.DocumentStore, deps Deps) *Manager {
	if deps.Logger == nil {
		deps.Logger = logging.NewNopLogger()
	}
	return &Manager{
		docs:     docs,
		deps:     deps,
		sessions: make(map[string]*Session),
	}
}

// Open loads the stored system and starts a session on it. An id with no
// stored document starts an empty system with a single root area.
func (m *Manager) Open(ctx context.Context, systemID string) (*Session, error) {
	if err := validation.ValidateID("SystemID", systemID); err != nil {
		return nil, err
	}
	es, err := store.LoadSystem(ctx, m.docs, systemID)
	switch {
	case errors.Is(err, store.ErrDocumentNotFound):
		es = model.NewEnergySystem(systemID, systemID, model.NewArea(systemID+"-area", systemID))
		m.deps.Logger.Info("starting new energy system", logging.SystemID(systemID))
	case err != nil:
		return nil, err
	}
	return m.Attach(systemID, es)
}

// Attach starts a session on an already decoded system
func (m *Manager) Attach(systemID string, es *model.EnergySystem) (*Session, error) {
	id := uuid.NewString()
	s, err := New(id, systemID, es, m.deps)
	if err != nil {
		m.auditOpen(id, systemID, err)
		return nil, err
	}

	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()

	if m.deps.Metrics != nil {
		m.deps.Metrics.SessionOpened()
	}
	m.auditOpen(id, systemID, nil)
	m.deps.Logger.Info("session opened", logging.SessionID(id), logging.SystemID(systemID))
	return s, nil
}

func (m *Manager) auditOpen(id, systemID string, err error) {
	if m.deps.Audit == nil {
		return
	}
	status := audit.StatusSuccess
	if err != nil {
		status = audit.StatusFailure
	}
	ev := audit.NewFailedEvent(id, audit.ActionOpen, "", status, err)
	ev.SystemID = systemID
	_ = m.deps.Audit.Log(ev)
}

// Get returns an open session
func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	return s, nil
}

// Save writes the session's system back to the store
func (m *Manager) Save(ctx context.Context, id string) error {
	s, err := m.Get(id)
	if err != nil {
		return err
	}
	return s.Save(ctx, m.docs)
}

// Close ends a session without saving it
func (m *Manager) Close(id string) error {
	m.mu.Lock()
	s, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()

	if !ok {
		return fmt.Errorf("%w: %s", ErrSessionNotFound, id)
	}
	s.close()
	return nil
}

// List returns the open sessions, oldest first
func (m *Manager) List() []Info {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()

	infos := make([]Info, 0, len(sessions))
	for _, s := range sessions {
		infos = append(infos, s.Info())
	}
	slices.SortFunc(infos, func(a, b Info) int {
		if c := a.OpenedAt.Compare(b.OpenedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return infos
}

// Count returns the number of open sessions
func (m *Manager) Count() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Shutdown closes every session. Unsaved changes are logged and dropped.
func (m *Manager) Shutdown() {
	for _, info := range m.List() {
		if info.Dirty {
			m.deps.Logger.Warn("closing session with unsaved changes", logging.SessionID(info.ID), logging.SystemID(info.SystemID))
		}
		_ = m.Close(info.ID)
	}
}
