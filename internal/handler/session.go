package handler

import (
	"encoding/base64"
	"errors"
	"strings"

	"github.com/labstack/echo/v4"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/Mauryln/testingserver/internal/service"
)

// SessionHandler exposes the session lifecycle endpoints over one injected
// registry.
type SessionHandler struct {
	registry *service.Registry
}

func NewSessionHandler(registry *service.Registry) *SessionHandler {
	return &SessionHandler{registry: registry}
}

type userIDRequest struct {
	UserID string `json:"userId" form:"userId"`
}

func bindUserID(c echo.Context) (string, error) {
	var req userIDRequest
	if err := c.Bind(&req); err != nil {
		return "", err
	}
	return strings.TrimSpace(req.UserID), nil
}

// POST /start-session
func (h *SessionHandler) StartSession(c echo.Context) error {
	userID, err := bindUserID(c)
	if err != nil {
		return ErrorResponse(c, 400, "Invalid request body", "BAD_REQUEST", err.Error())
	}
	if userID == "" {
		return ErrorResponse(c, 400, "Field 'userId' is required", "USER_ID_REQUIRED", "")
	}

	err = h.registry.StartSession(c.Request().Context(), userID)
	switch {
	case errors.Is(err, service.ErrAlreadyActive):
		return SuccessResponse(c, 200, "Session already active", map[string]interface{}{
			"userId": userID,
			"status": h.registry.Status(userID),
		})
	case err != nil:
		return ErrorResponse(c, 500, "Failed to start session", "START_SESSION_FAILED", err.Error())
	}

	return SuccessResponse(c, 200, "Session starting, QR code may be required", map[string]interface{}{
		"userId":   userID,
		"status":   h.registry.Status(userID),
		"nextStep": "Call GET /get-qr/:userId to get the QR code",
	})
}

// GET /get-qr/:userId
func (h *SessionHandler) GetQR(c echo.Context) error {
	userID := c.Param("userId")

	code, err := h.registry.QRCode(userID)
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return ErrorResponse(c, 404, "No session for this user", "SESSION_NOT_FOUND", "")
	case errors.Is(err, service.ErrAlreadyActive):
		return SuccessResponse(c, 202, "Session already authenticated", map[string]interface{}{
			"userId": userID,
			"status": h.registry.Status(userID),
		})
	case errors.Is(err, service.ErrQRNotYetIssued):
		return SuccessResponse(c, 202, "QR code not generated yet, retry shortly", map[string]interface{}{
			"userId": userID,
			"status": h.registry.Status(userID),
		})
	case err != nil:
		return ErrorResponse(c, 500, "Failed to read QR code", "QR_READ_FAILED", err.Error())
	}

	data := map[string]interface{}{
		"userId": userID,
		"qrCode": code,
	}
	// Frontends without a QR renderer can use the pre-rendered PNG.
	if png, err := qrcode.Encode(code, qrcode.Medium, 256); err == nil {
		data["qrImage"] = "data:image/png;base64," + base64.StdEncoding.EncodeToString(png)
	}
	return SuccessResponse(c, 200, "QR code ready to scan", data)
}

// GET /session-status/:userId
func (h *SessionHandler) SessionStatus(c echo.Context) error {
	userID := c.Param("userId")
	return SuccessResponse(c, 200, "Session status", map[string]interface{}{
		"userId": userID,
		"status": h.registry.Status(userID),
	})
}

// POST /close-session
func (h *SessionHandler) CloseSession(c echo.Context) error {
	userID, err := bindUserID(c)
	if err != nil {
		return ErrorResponse(c, 400, "Invalid request body", "BAD_REQUEST", err.Error())
	}
	if userID == "" {
		return ErrorResponse(c, 400, "Field 'userId' is required", "USER_ID_REQUIRED", "")
	}

	err = h.registry.CloseSession(c.Request().Context(), userID)
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return ErrorResponse(c, 404, "No session for this user", "SESSION_NOT_FOUND", "")
	case err != nil:
		return ErrorResponse(c, 500, "Failed to close session", "CLOSE_SESSION_FAILED", err.Error())
	}
	return SuccessResponse(c, 200, "Session closed and auth state cleanup scheduled", map[string]interface{}{
		"userId": userID,
		"status": h.registry.Status(userID),
	})
}
