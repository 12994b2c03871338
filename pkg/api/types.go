package api

import (
	"github.com/dd0wney/cluso-mapeditor/pkg/audit"
	"github.com/dd0wney/cluso-mapeditor/pkg/render"
	"github.com/dd0wney/cluso-mapeditor/pkg/session"
	"github.com/dd0wney/cluso-mapeditor/pkg/validation"
)

// OpenSessionRequest starts editing a stored system
type OpenSessionRequest struct {
	SystemID string `json:"system_id"`
}

// SessionResponse describes an open session and what the map draws for it
type SessionResponse struct {
	session.Info
	Payload *render.Payload `json:"payload,omitempty"`
}

// SessionListResponse lists the open sessions
type SessionListResponse struct {
	Sessions []session.Info `json:"sessions"`
	Count    int            `json:"count"`
}

// AddAssetResponse returns the asset as the front-end draws it
type AddAssetResponse struct {
	Asset render.AssetRecord `json:"asset"`
	Ports []session.PortInfo `json:"ports"`
}

// RemoveAssetResponse reports how many instances were removed
type RemoveAssetResponse struct {
	AssetID string `json:"asset_id"`
	Removed int    `json:"removed"`
}

// ConnectResponse reports the link made between two assets
type ConnectResponse struct {
	FromPortID string             `json:"from_port_id"`
	ToPortID   string             `json:"to_port_id"`
	Created    bool               `json:"created"`
	Connection *render.Connection `json:"connection,omitempty"`
}

// PortsResponse lists the ports of one asset
type PortsResponse struct {
	AssetID string             `json:"asset_id"`
	Ports   []session.PortInfo `json:"ports"`
}

// UpdatePointBody is the body of PUT .../point
type UpdatePointBody struct {
	Point validation.Point `json:"point"`
}

// UpdateLineBody is the body of PUT .../line
type UpdateLineBody struct {
	Line   []validation.Point `json:"line"`
	Length float64            `json:"length"`
}

// AuditResponse carries filtered audit events, oldest first
type AuditResponse struct {
	Events []*audit.Event `json:"events"`
	Count  int            `json:"count"`
	Total  int64          `json:"total"`
}

// CatalogResponse lists the asset types the editor can create
type CatalogResponse struct {
	Types []CatalogEntry `json:"types"`
}

// CatalogEntry is one creatable asset type
type CatalogEntry struct {
	Type     string   `json:"type"`
	Geometry string   `json:"geometry"`
	Ports    []string `json:"ports"`
}

// ErrorResponse represents an error response. Reason names the error class
// so clients need not parse Message.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
	Reason  string `json:"reason,omitempty"`
}
