package model

import (
	"time"

	"github.com/Mauryln/testingserver/internal/whatsapp"
)

// State is the lifecycle position of a session. Transitions are driven by
// the registry and by events from the automation library.
type State int

const (
	StateInitializing State = iota
	StateAwaitingScan
	StateReady
	StateDisconnected
	StateDestroyed
)

func (s State) String() string {
	switch s {
	case StateInitializing:
		return "initializing"
	case StateAwaitingScan:
		return "awaiting_scan"
	case StateReady:
		return "ready"
	case StateDisconnected:
		return "disconnected"
	case StateDestroyed:
		return "destroyed"
	default:
		return "unknown"
	}
}

// Session is one user's connection handle. The Client is owned exclusively
// by the registry entry holding it.
type Session struct {
	UserID    string
	Client    whatsapp.Client
	State     State
	CreatedAt time.Time
}

// Ready reports whether the session is authenticated and usable for sends.
func (s *Session) Ready() bool {
	return s.State == StateReady
}

// Status values returned by GET /session-status/:userId.
const (
	StatusNoSession    = "no_session"
	StatusReady        = "ready"
	StatusNeedsScan    = "needs_scan"
	StatusInitializing = "initializing"
)
