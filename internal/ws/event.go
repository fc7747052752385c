package ws

import "time"

// Event names broadcast to connected frontends.
const (
	EventQRGenerated          = "qr_generated"
	EventSessionStatusChanged = "session_status_changed"
	EventBulkProgress         = "bulk_progress"
)

// WsEvent is the JSON envelope for every realtime event. UserID scopes the
// event; clients subscribed to a specific user only receive matching events.
type WsEvent struct {
	Event     string      `json:"event"`
	UserID    string      `json:"userId,omitempty"`
	Timestamp time.Time   `json:"timestamp"`
	Data      interface{} `json:"data"`
}

// QRGeneratedData is the payload of EventQRGenerated.
type QRGeneratedData struct {
	UserID    string    `json:"userId"`
	QRCode    string    `json:"qrCode"`
	ExpiresAt time.Time `json:"expiresAt"`
}

// SessionStatusData is the payload of EventSessionStatusChanged.
type SessionStatusData struct {
	UserID string `json:"userId"`
	Status string `json:"status"`
}

// BulkProgressData is the payload of EventBulkProgress, one per recipient.
type BulkProgressData struct {
	UserID  string `json:"userId"`
	Number  string `json:"number"`
	Index   int    `json:"index"`
	Total   int    `json:"total"`
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// RealtimePublisher is held by services that emit events so they do not
// depend on the Hub directly.
type RealtimePublisher interface {
	Publish(event WsEvent)
}
