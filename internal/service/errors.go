package service

import "errors"

// Sentinel errors the handlers translate into HTTP statuses.
var (
	ErrAlreadyActive   = errors.New("session already active")
	ErrSessionNotFound = errors.New("session not found")
	ErrQRNotYetIssued  = errors.New("qr code not generated yet")
	ErrSessionNotReady = errors.New("session is not ready")
	ErrNothingToSend   = errors.New("nothing to send: no message and no media")
	ErrNoRecipients    = errors.New("no recipients given")
)
