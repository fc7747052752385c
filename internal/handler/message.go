package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Mauryln/testingserver/internal/helper"
	"github.com/Mauryln/testingserver/internal/service"
	"github.com/Mauryln/testingserver/internal/whatsapp"
)

// MessageHandler exposes the bulk send endpoint.
type MessageHandler struct {
	dispatcher *service.Dispatcher
}

func NewMessageHandler(dispatcher *service.Dispatcher) *MessageHandler {
	return &MessageHandler{dispatcher: dispatcher}
}

// POST /send-messages (multipart/form-data)
//
// Fields: userId, delay (milliseconds between recipients), numbers (JSON
// array), mensajesPorNumero (JSON array parallel to numbers: entry i is
// recipient i's message), media (optional file shared by all recipients).
func (h *MessageHandler) SendMessages(c echo.Context) error {
	userID := strings.TrimSpace(c.FormValue("userId"))
	if userID == "" {
		return ErrorResponse(c, 400, "Field 'userId' is required", "USER_ID_REQUIRED", "")
	}

	delayMs := 0
	if raw := c.FormValue("delay"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return ErrorResponse(c, 400, "Field 'delay' must be a non-negative integer", "INVALID_DELAY", raw)
		}
		delayMs = n
	}

	var numbers []string
	if err := json.Unmarshal([]byte(c.FormValue("numbers")), &numbers); err != nil {
		return ErrorResponse(c, 400, "Field 'numbers' must be a JSON array", "INVALID_NUMBERS", err.Error())
	}

	var bodies []string
	if raw := c.FormValue("mensajesPorNumero"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &bodies); err != nil {
			return ErrorResponse(c, 400, "Field 'mensajesPorNumero' must be a JSON array", "INVALID_MESSAGES", err.Error())
		}
	}

	media, err := readMedia(c)
	if err != nil {
		return ErrorResponse(c, 400, "Invalid media attachment", "INVALID_MEDIA", err.Error())
	}

	report, err := h.dispatcher.SendBulk(c.Request().Context(), service.BulkRequest{
		UserID:  userID,
		Numbers: numbers,
		Bodies:  bodies,
		Media:   media,
		Delay:   time.Duration(delayMs) * time.Millisecond,
	})
	switch {
	case errors.Is(err, service.ErrSessionNotFound):
		return ErrorResponse(c, 404, "No session for this user", "SESSION_NOT_FOUND", "")
	case errors.Is(err, service.ErrSessionNotReady):
		return ErrorResponse(c, 400, "Session is not ready, scan the QR code first", "SESSION_NOT_READY", "")
	case errors.Is(err, service.ErrNoRecipients):
		return ErrorResponse(c, 400, "Field 'numbers' is empty", "NO_RECIPIENTS", "")
	case errors.Is(err, service.ErrNothingToSend):
		return ErrorResponse(c, 400, "Provide at least one message or a media file", "NOTHING_TO_SEND", "")
	case err != nil:
		return ErrorResponse(c, 500, "Bulk send failed", "EXTERNAL_ERROR", err.Error())
	}

	return SuccessResponse(c, 200, "Bulk send finished", report)
}

// readMedia pulls the optional shared attachment out of the form.
func readMedia(c echo.Context) (*whatsapp.Media, error) {
	fh, err := c.FormFile("media")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) {
			return nil, nil
		}
		// echo wraps the missing-file case in a 400 HTTPError.
		if he, ok := err.(*echo.HTTPError); ok && he.Code == http.StatusBadRequest {
			return nil, nil
		}
		return nil, err
	}

	src, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer src.Close()

	data, err := io.ReadAll(src)
	if err != nil {
		return nil, err
	}

	mime := fh.Header.Get("Content-Type")
	if mime == "" {
		mime = http.DetectContentType(data)
	}
	if err := helper.ValidateMedia(data, mime); err != nil {
		return nil, err
	}
	return &whatsapp.Media{
		Data:     data,
		MimeType: mime,
		Filename: fh.Filename,
	}, nil
}
