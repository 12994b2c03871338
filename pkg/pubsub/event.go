package pubsub

import "time"

// EventType names a change to a session's energy system
type EventType string

const (
	EventAssetAdded      EventType = "asset_added"
	EventAssetRemoved    EventType = "asset_removed"
	EventAssetsConnected EventType = "assets_connected"
	EventAssetMoved      EventType = "asset_moved"
	EventSystemSaved     EventType = "system_saved"
	EventSessionClosed   EventType = "session_closed"
)

// Event is what subscribers of a session topic receive. Data carries the
// command-specific payload, already shaped for the front-end.
type Event struct {
	Type      EventType `json:"type"`
	SessionID string    `json:"session_id"`
	AssetID   string    `json:"asset_id,omitempty"`
	Data      any       `json:"data,omitempty"`
	Time      time.Time `json:"time"`
}

// SessionTopic is the topic carrying every event of one session
func SessionTopic(sessionID string) string {
	return "session/" + sessionID
}
