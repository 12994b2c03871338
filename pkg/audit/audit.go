// Package audit keeps a bounded in-memory trail of editor commands per session.
package audit

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Action is the editor command being audited
type Action string

const (
	ActionOpen        Action = "open"
	ActionAddAsset    Action = "add_asset"
	ActionRemoveAsset Action = "remove_asset"
	ActionConnect     Action = "connect"
	ActionUpdatePoint Action = "update_point"
	ActionUpdateLine  Action = "update_line"
	ActionSave        Action = "save"
	ActionClose       Action = "close"
)

// Status represents the outcome of an action
type Status string

const (
	StatusSuccess Status = "success"
	// StatusRejected marks a command refused because of its input or the
	// current topology; the model is unchanged
	StatusRejected Status = "rejected"
	StatusFailure  Status = "failure"
)

// Event represents a single audit log entry
type Event struct {
	ID           string         `json:"id"`
	Timestamp    time.Time      `json:"timestamp"`
	SessionID    string         `json:"session_id"`
	SystemID     string         `json:"system_id,omitempty"`
	Action       Action         `json:"action"`
	AssetID      string         `json:"asset_id,omitempty"`
	Status       Status         `json:"status"`
	ErrorMessage string         `json:"error_message,omitempty"`
	Metadata     map[string]any `json:"metadata,omitempty"`
}

// Filter represents filtering criteria for audit events
type Filter struct {
	SessionID string
	Action    Action
	AssetID   string
	Status    Status
	StartTime *time.Time
	EndTime   *time.Time
}

// Logger is the interface sessions audit through
type Logger interface {
	// Log records an audit event
	Log(event *Event) error

	// GetEventCount returns the number of events logged
	GetEventCount() int64
}

// AuditLogger manages audit log events with a circular buffer
type AuditLogger struct {
	events     []*Event
	bufferSize int
	index      int
	count      int
	mu         sync.RWMutex
}

// NewAuditLogger creates a new audit logger with specified buffer size
func NewAuditLogger(bufferSize int) *AuditLogger {
	if bufferSize <= 0 {
		bufferSize = 1
	}
	return &AuditLogger{
		events:     make([]*Event, bufferSize),
		bufferSize: bufferSize,
	}
}

// Log records an audit event, overwriting the oldest once the buffer is full
func (l *AuditLogger) Log(event *Event) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if event.ID == "" {
		event.ID = uuid.New().String()
	}

	l.events[l.index] = event
	l.index = (l.index + 1) % l.bufferSize
	if l.count < l.bufferSize {
		l.count++
	}

	return nil
}

// GetEvents retrieves audit events, oldest first, with optional filtering
func (l *AuditLogger) GetEvents(filter *Filter) []*Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	result := make([]*Event, 0, l.count)
	for i := 0; i < l.count; i++ {
		idx := (l.index - l.count + i + l.bufferSize) % l.bufferSize
		event := l.events[idx]
		if event == nil || !filter.matches(event) {
			continue
		}
		result = append(result, event)
	}
	return result
}

func (f *Filter) matches(e *Event) bool {
	if f == nil {
		return true
	}
	switch {
	case f.SessionID != "" && e.SessionID != f.SessionID:
		return false
	case f.Action != "" && e.Action != f.Action:
		return false
	case f.AssetID != "" && e.AssetID != f.AssetID:
		return false
	case f.Status != "" && e.Status != f.Status:
		return false
	case f.StartTime != nil && e.Timestamp.Before(*f.StartTime):
		return false
	case f.EndTime != nil && e.Timestamp.After(*f.EndTime):
		return false
	}
	return true
}

// GetRecentEvents returns the N most recent events, newest first
func (l *AuditLogger) GetRecentEvents(n int) []*Event {
	l.mu.RLock()
	defer l.mu.RUnlock()

	if n > l.count {
		n = l.count
	}
	result := make([]*Event, 0, n)
	for i := 0; i < n; i++ {
		idx := (l.index - 1 - i + l.bufferSize) % l.bufferSize
		if l.events[idx] != nil {
			result = append(result, l.events[idx])
		}
	}
	return result
}

// GetEventCount returns the total number of events currently stored
func (l *AuditLogger) GetEventCount() int64 {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int64(l.count)
}

// Clear removes all events from the logger
func (l *AuditLogger) Clear() {
	l.mu.Lock()
	defer l.mu.Unlock()

	l.events = make([]*Event, l.bufferSize)
	l.index = 0
	l.count = 0
}

// NewEvent creates an event for a command on one session
func NewEvent(sessionID string, action Action, assetID string, status Status) *Event {
	return &Event{
		ID:        uuid.New().String(),
		Timestamp: time.Now(),
		SessionID: sessionID,
		Action:    action,
		AssetID:   assetID,
		Status:    status,
	}
}

// NewFailedEvent creates an event for a command that did not apply
func NewFailedEvent(sessionID string, action Action, assetID string, status Status, err error) *Event {
	e := NewEvent(sessionID, action, assetID, status)
	if err != nil {
		e.ErrorMessage = err.Error()
	}
	return e
}

// String returns a human-readable representation of an event
func (e *Event) String() string {
	s := fmt.Sprintf("[%s] session=%s %s %s (status: %s)",
		e.Timestamp.Format(time.RFC3339),
		e.SessionID,
		e.Action,
		e.AssetID,
		e.Status,
	)
	if e.ErrorMessage != "" {
		s += ": " + e.ErrorMessage
	}
	return s
}
