package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/Mauryln/testingserver/internal/service"
	"github.com/Mauryln/testingserver/internal/whatsapp"
)

// stubClient is a do-nothing client; lifecycle is driven through the Events
// callbacks the stub factory captures.
type stubClient struct{}

func (stubClient) StartLogin(ctx context.Context) error                  { return nil }
func (stubClient) SendText(ctx context.Context, number, body string) error { return nil }
func (stubClient) SendMedia(ctx context.Context, number string, media whatsapp.Media, caption string) error {
	return nil
}
func (stubClient) Groups(ctx context.Context) ([]whatsapp.Group, error) { return nil, nil }
func (stubClient) GroupParticipants(ctx context.Context, groupID string) ([]whatsapp.Participant, error) {
	return nil, nil
}
func (stubClient) Labels(ctx context.Context) ([]whatsapp.Label, error)             { return nil, nil }
func (stubClient) LabelChats(ctx context.Context, labelID string) ([]string, error) { return nil, nil }
func (stubClient) ChatMessages(ctx context.Context, chat string, limit int) ([]whatsapp.ChatMessage, error) {
	return nil, nil
}
func (stubClient) Logout(ctx context.Context) error { return nil }
func (stubClient) Disconnect()                      {}

type stubFactory struct {
	events map[string]whatsapp.Events
}

func newStubFactory() *stubFactory {
	return &stubFactory{events: make(map[string]whatsapp.Events)}
}

func (f *stubFactory) NewClient(ctx context.Context, userID string, ev whatsapp.Events) (whatsapp.Client, error) {
	f.events[userID] = ev
	return stubClient{}, nil
}

func (f *stubFactory) RemoveAuthState(userID string) error { return nil }

func newTestHandler(t *testing.T) (*SessionHandler, *stubFactory) {
	t.Helper()
	factory := newStubFactory()
	registry := service.NewRegistry(factory, nil, time.Minute, time.Millisecond)
	return NewSessionHandler(registry), factory
}

func doJSON(t *testing.T, h echo.HandlerFunc, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	if err := h(e.NewContext(req, rec)); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func doParam(t *testing.T, h echo.HandlerFunc, path, paramName, paramValue string) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)
	c.SetParamNames(paramName)
	c.SetParamValues(paramValue)
	if err := h(c); err != nil {
		t.Fatalf("handler returned error: %v", err)
	}
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var body map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON response: %v\n%s", err, rec.Body.String())
	}
	return body
}

func TestStartSessionRequiresUserID(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h.StartSession, http.MethodPost, "/start-session", `{}`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("code = %d, want 400", rec.Code)
	}
	body := decodeBody(t, rec)
	if body["success"] != false {
		t.Fatalf("body = %v, want success=false", body)
	}
}

func TestStartSessionHappyPath(t *testing.T) {
	h, _ := newTestHandler(t)
	rec := doJSON(t, h.StartSession, http.MethodPost, "/start-session", `{"userId":"alice"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200\n%s", rec.Code, rec.Body.String())
	}
	body := decodeBody(t, rec)
	if body["success"] != true {
		t.Fatalf("body = %v", body)
	}
}

func TestStartSessionAlreadyActive(t *testing.T) {
	h, factory := newTestHandler(t)
	doJSON(t, h.StartSession, http.MethodPost, "/start-session", `{"userId":"alice"}`)
	factory.events["alice"].Authenticated()

	rec := doJSON(t, h.StartSession, http.MethodPost, "/start-session", `{"userId":"alice"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	if msg, _ := body["message"].(string); !strings.Contains(msg, "already active") {
		t.Fatalf("message = %q, want already-active notice", msg)
	}
}

func TestGetQRStatusCodes(t *testing.T) {
	h, factory := newTestHandler(t)

	// No session yet.
	rec := doParam(t, h.GetQR, "/get-qr/alice", "userId", "alice")
	if rec.Code != http.StatusNotFound {
		t.Fatalf("code without session = %d, want 404", rec.Code)
	}

	// Session started, QR not issued yet.
	doJSON(t, h.StartSession, http.MethodPost, "/start-session", `{"userId":"alice"}`)
	rec = doParam(t, h.GetQR, "/get-qr/alice", "userId", "alice")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("code before issue = %d, want 202", rec.Code)
	}

	// QR issued.
	factory.events["alice"].QRCode("qr-data")
	rec = doParam(t, h.GetQR, "/get-qr/alice", "userId", "alice")
	if rec.Code != http.StatusOK {
		t.Fatalf("code with QR = %d, want 200", rec.Code)
	}
	body := decodeBody(t, rec)
	data, _ := body["data"].(map[string]interface{})
	if data["qrCode"] != "qr-data" {
		t.Fatalf("data = %v, want qrCode=qr-data", data)
	}
	if img, _ := data["qrImage"].(string); !strings.HasPrefix(img, "data:image/png;base64,") {
		t.Fatalf("qrImage = %.40q, want base64 PNG data URI", img)
	}

	// Authenticated: back to 202.
	factory.events["alice"].Authenticated()
	rec = doParam(t, h.GetQR, "/get-qr/alice", "userId", "alice")
	if rec.Code != http.StatusAccepted {
		t.Fatalf("code after auth = %d, want 202", rec.Code)
	}
}

func TestSessionStatusVocabulary(t *testing.T) {
	h, factory := newTestHandler(t)

	status := func() string {
		rec := doParam(t, h.SessionStatus, "/session-status/alice", "userId", "alice")
		data, _ := decodeBody(t, rec)["data"].(map[string]interface{})
		s, _ := data["status"].(string)
		return s
	}

	if got := status(); got != "no_session" {
		t.Fatalf("status = %q, want no_session", got)
	}
	doJSON(t, h.StartSession, http.MethodPost, "/start-session", `{"userId":"alice"}`)
	if got := status(); got != "initializing" {
		t.Fatalf("status = %q, want initializing", got)
	}
	factory.events["alice"].QRCode("qr")
	if got := status(); got != "needs_scan" {
		t.Fatalf("status = %q, want needs_scan", got)
	}
	factory.events["alice"].Authenticated()
	if got := status(); got != "ready" {
		t.Fatalf("status = %q, want ready", got)
	}
}

func TestCloseSession(t *testing.T) {
	h, factory := newTestHandler(t)
	doJSON(t, h.StartSession, http.MethodPost, "/start-session", `{"userId":"alice"}`)
	factory.events["alice"].Authenticated()

	rec := doJSON(t, h.CloseSession, http.MethodPost, "/close-session", `{"userId":"alice"}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %d, want 200", rec.Code)
	}

	// The session is gone now, so a second close is a 404.
	rec = doJSON(t, h.CloseSession, http.MethodPost, "/close-session", `{"userId":"alice"}`)
	if rec.Code != http.StatusNotFound {
		t.Fatalf("second close code = %d, want 404", rec.Code)
	}
}
