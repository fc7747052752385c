package service

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/Mauryln/testingserver/internal/model"
	"github.com/Mauryln/testingserver/internal/whatsapp"
	"github.com/Mauryln/testingserver/internal/ws"
)

// Registry owns every live session and its cached QR code. All lifecycle
// transitions go through it; handlers and the dispatcher only read.
type Registry struct {
	mu       sync.RWMutex
	sessions map[string]*model.Session
	qrCodes  map[string]string
	cancels  map[string]context.CancelFunc

	factory  whatsapp.Factory
	realtime ws.RealtimePublisher

	qrTimeout    time.Duration
	cleanupGrace time.Duration
}

func NewRegistry(factory whatsapp.Factory, realtime ws.RealtimePublisher, qrTimeout, cleanupGrace time.Duration) *Registry {
	return &Registry{
		sessions:     make(map[string]*model.Session),
		qrCodes:      make(map[string]string),
		cancels:      make(map[string]context.CancelFunc),
		factory:      factory,
		realtime:     realtime,
		qrTimeout:    qrTimeout,
		cleanupGrace: cleanupGrace,
	}
}

// StartSession creates and connects a session for userID. A ready session is
// left alone; a stuck one (any other state) is torn down and replaced so a
// retry always gets a fresh QR flow.
func (r *Registry) StartSession(ctx context.Context, userID string) error {
	r.mu.Lock()
	if existing, ok := r.sessions[userID]; ok {
		if existing.Ready() {
			r.mu.Unlock()
			return ErrAlreadyActive
		}
		log.Printf("⚠ replacing stale session for %s (state %s)", userID, existing.State)
		r.dropLocked(userID, false)
		if existing.Client != nil {
			defer existing.Client.Disconnect()
		}
	}

	session := &model.Session{
		UserID:    userID,
		State:     model.StateInitializing,
		CreatedAt: time.Now(),
	}
	r.sessions[userID] = session
	r.mu.Unlock()

	client, err := r.factory.NewClient(ctx, userID, whatsapp.Events{
		QRCode:        func(code string) { r.onQRCode(userID, code) },
		Authenticated: func() { r.onAuthenticated(userID) },
		AuthFailure:   func(reason string) { r.onAuthFailure(userID, reason) },
		Disconnected:  func() { r.onDisconnected(userID) },
	})
	if err != nil {
		r.mu.Lock()
		r.dropLocked(userID, false)
		r.mu.Unlock()
		return err
	}

	loginCtx, cancel := context.WithTimeout(context.Background(), r.qrTimeout)

	r.mu.Lock()
	// CloseSession may have raced the factory call.
	if _, ok := r.sessions[userID]; !ok {
		r.mu.Unlock()
		cancel()
		client.Disconnect()
		return ErrSessionNotFound
	}
	session.Client = client
	r.cancels[userID] = cancel
	r.mu.Unlock()

	if err := client.StartLogin(loginCtx); err != nil {
		r.mu.Lock()
		r.dropLocked(userID, false)
		r.mu.Unlock()
		return err
	}

	log.Printf("✓ session starting for %s", userID)
	r.publishStatus(userID, model.StatusInitializing)
	return nil
}

func (r *Registry) onQRCode(userID, code string) {
	r.mu.Lock()
	session, ok := r.sessions[userID]
	if !ok {
		r.mu.Unlock()
		return
	}
	session.State = model.StateAwaitingScan
	r.qrCodes[userID] = code
	r.mu.Unlock()

	r.publish(ws.EventQRGenerated, userID, ws.QRGeneratedData{
		UserID:    userID,
		QRCode:    code,
		ExpiresAt: time.Now().Add(r.qrTimeout),
	})
	r.publishStatus(userID, model.StatusNeedsScan)
}

func (r *Registry) onAuthenticated(userID string) {
	r.mu.Lock()
	session, ok := r.sessions[userID]
	if !ok {
		r.mu.Unlock()
		return
	}
	session.State = model.StateReady
	delete(r.qrCodes, userID)
	r.mu.Unlock()

	log.Printf("✓ session ready for %s", userID)
	r.publishStatus(userID, model.StatusReady)
}

func (r *Registry) onAuthFailure(userID, reason string) {
	log.Printf("⚠ auth failure for %s: %v", userID, reason)

	r.mu.Lock()
	session, ok := r.sessions[userID]
	if ok {
		session.State = model.StateDestroyed
		r.dropLocked(userID, true)
	}
	r.mu.Unlock()

	if ok {
		if session.Client != nil {
			session.Client.Disconnect()
		}
		r.publishStatus(userID, model.StatusNoSession)
	}
}

// onDisconnected parks a ready session until the library reconnects; the
// session and its auth state survive, only readiness is lost. Terminal
// teardown comes through onAuthFailure instead.
func (r *Registry) onDisconnected(userID string) {
	r.mu.Lock()
	session, ok := r.sessions[userID]
	if !ok || session.State != model.StateReady {
		r.mu.Unlock()
		return
	}
	session.State = model.StateDisconnected
	r.mu.Unlock()

	log.Printf("⚠ connection lost for %s, waiting for reconnect", userID)
	r.publishStatus(userID, model.StatusInitializing)
}

// QRCode returns the latest cached login code for userID.
func (r *Registry) QRCode(userID string) (string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[userID]
	if !ok {
		return "", ErrSessionNotFound
	}
	if session.Ready() {
		return "", ErrAlreadyActive
	}
	code, ok := r.qrCodes[userID]
	if !ok {
		return "", ErrQRNotYetIssued
	}
	return code, nil
}

// Status maps the session state onto the wire status vocabulary.
func (r *Registry) Status(userID string) string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[userID]
	if !ok {
		return model.StatusNoSession
	}
	switch session.State {
	case model.StateReady:
		return model.StatusReady
	case model.StateAwaitingScan:
		return model.StatusNeedsScan
	default:
		// Initializing and Disconnected both read as "exists, not ready,
		// no code to scan yet".
		return model.StatusInitializing
	}
}

// ReadyClient returns the client for userID when it is authenticated.
func (r *Registry) ReadyClient(userID string) (whatsapp.Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	session, ok := r.sessions[userID]
	if !ok {
		return nil, ErrSessionNotFound
	}
	if !session.Ready() {
		return nil, ErrSessionNotReady
	}
	return session.Client, nil
}

// CloseSession tears down a session and schedules removal of its persisted
// auth state. Teardown failures are logged, never surfaced; the registry
// entry and cached code are removed regardless.
func (r *Registry) CloseSession(ctx context.Context, userID string) error {
	r.mu.Lock()
	session, ok := r.sessions[userID]
	if !ok {
		r.mu.Unlock()
		return ErrSessionNotFound
	}
	wasReady := session.Ready()
	session.State = model.StateDestroyed
	r.dropLocked(userID, false)
	r.mu.Unlock()

	if session.Client != nil {
		if wasReady {
			if err := session.Client.Logout(ctx); err != nil {
				log.Printf("⚠ logout for %s: %v", userID, err)
			}
		}
		session.Client.Disconnect()
	}

	r.scheduleAuthCleanup(userID)
	r.publishStatus(userID, model.StatusNoSession)
	log.Printf("✓ session closed for %s", userID)
	return nil
}

// CloseAll shuts every session down without touching auth state. Used on
// graceful process shutdown.
func (r *Registry) CloseAll() {
	r.mu.Lock()
	sessions := make([]*model.Session, 0, len(r.sessions))
	for userID, s := range r.sessions {
		sessions = append(sessions, s)
		r.dropLocked(userID, false)
	}
	r.mu.Unlock()

	for _, s := range sessions {
		if s.Client != nil {
			s.Client.Disconnect()
		}
	}
}

// dropLocked removes all registry state for userID. Caller holds r.mu.
func (r *Registry) dropLocked(userID string, cleanupAuth bool) {
	delete(r.sessions, userID)
	delete(r.qrCodes, userID)
	if cancel, ok := r.cancels[userID]; ok {
		cancel()
		delete(r.cancels, userID)
	}
	if cleanupAuth {
		r.scheduleAuthCleanup(userID)
	}
}

// scheduleAuthCleanup removes persisted auth state after a short grace so
// the library finishes flushing its files first.
func (r *Registry) scheduleAuthCleanup(userID string) {
	time.AfterFunc(r.cleanupGrace, func() {
		if err := r.factory.RemoveAuthState(userID); err != nil {
			log.Printf("⚠ auth cleanup for %s: %v", userID, err)
		}
	})
}

func (r *Registry) publishStatus(userID, status string) {
	r.publish(ws.EventSessionStatusChanged, userID, ws.SessionStatusData{
		UserID: userID,
		Status: status,
	})
}

func (r *Registry) publish(event, userID string, data interface{}) {
	if r.realtime == nil {
		return
	}
	r.realtime.Publish(ws.WsEvent{
		Event:     event,
		UserID:    userID,
		Timestamp: time.Now(),
		Data:      data,
	})
}
