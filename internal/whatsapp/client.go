// Package whatsapp wraps the whatsmeow automation library behind the narrow
// surface the rest of the server talks to. Everything protocol-shaped lives
// here; the registry and dispatcher only see these types.
package whatsapp

import "context"

// Events carries the lifecycle callbacks a session registers when it creates
// a client. They are invoked from library goroutines.
type Events struct {
	// QRCode is called every time a fresh login code is issued.
	QRCode func(code string)
	// Authenticated is called once the client is logged in and connected.
	Authenticated func()
	// AuthFailure is called on terminal login problems: the login was
	// rejected, the device was unlinked remotely, or another client took
	// the connection over.
	AuthFailure func(reason string)
	// Disconnected is called when the connection drops transiently. The
	// library retries on its own; Authenticated fires again once it gets
	// back through.
	Disconnected func()
}

// Media is a single attachment shared across a bulk job.
type Media struct {
	Data     []byte
	MimeType string
	Filename string
}

// Group is a joined group chat with its participant count.
type Group struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	Participants int    `json:"participants"`
}

// Participant is one member of a group. DisplayName is whatever the contact
// store knows; it may be empty.
type Participant struct {
	JID         string `json:"jid"`
	Phone       string `json:"phone"`
	DisplayName string `json:"displayName"`
	IsAdmin     bool   `json:"isAdmin"`
}

// Label is a business-account chat tag.
type Label struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Color int32  `json:"color"`
}

// ChatMessage is one entry of a chat's recent history as this server saw it.
// ReadTimestamp is zero until a read receipt arrives for the message.
type ChatMessage struct {
	ID            string
	Chat          string
	Body          string
	FromMe        bool
	Timestamp     int64
	Ack           int
	ReadTimestamp int64
}

// Client is what a live session can do. Recipient numbers are pre-normalized
// digit strings; the adapter attaches the private-chat server.
type Client interface {
	// StartLogin begins the connect/authentication flow and returns without
	// waiting for it; progress arrives on the Events callbacks.
	StartLogin(ctx context.Context) error

	SendText(ctx context.Context, number, body string) error
	SendMedia(ctx context.Context, number string, media Media, caption string) error

	Groups(ctx context.Context) ([]Group, error)
	GroupParticipants(ctx context.Context, groupID string) ([]Participant, error)
	Labels(ctx context.Context) ([]Label, error)
	LabelChats(ctx context.Context, labelID string) ([]string, error)
	ChatMessages(ctx context.Context, chat string, limit int) ([]ChatMessage, error)

	// Logout unlinks the device. Disconnect only drops the connection.
	Logout(ctx context.Context) error
	Disconnect()
}

// Factory creates clients and owns their persisted auth state.
type Factory interface {
	NewClient(ctx context.Context, userID string, ev Events) (Client, error)
	// RemoveAuthState deletes the persisted login material for one user.
	RemoveAuthState(userID string) error
}
