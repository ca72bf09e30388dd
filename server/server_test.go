package server

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/room4-2/staybot/booking"
	"github.com/room4-2/staybot/config"
	"github.com/room4-2/staybot/session"
)

type nopGateway struct{}

func (nopGateway) AppendRow(context.Context, []any) (booking.RowReference, error) {
	return "", nil
}

func testSetup(t *testing.T) (*config.Config, *session.Manager) {
	t.Helper()
	cfg := &config.Config{
		Port:           8080,
		TwilioPort:     8081,
		ServerType:     "both",
		RedisURL:       "127.0.0.1:1",
		MaxSessions:    1,
		SessionTimeout: time.Minute,
		AllowedOrigins: []string{"https://hotel.example"},
		Hotel: config.Hotel{
			Name:          "Grand Vista & Spa",
			AssistantName: "StayBot",
			Pricing:       booking.DefaultPricing(),
		},
		Booking: config.Booking{Gateway: config.GatewayLedger},
	}
	sm, err := session.NewManager(cfg, session.Deps{Gateway: nopGateway{}})
	require.NoError(t, err)
	return cfg, sm
}

func TestHealth(t *testing.T) {
	cfg, sm := testSetup(t)
	srv := NewWebsocketServer(cfg, sm, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"status":"ok","server":"websocket","sessions":0,"redis":false,"booking_gateway":"ledger"}`, rec.Body.String())
}

func TestVoiceWebhookReturnsTwiML(t *testing.T) {
	cfg, sm := testSetup(t)
	srv := NewTwilioServer(cfg, sm, zap.NewNop())

	req := httptest.NewRequest(http.MethodPost, "/voice", nil)
	req.Host = "calls.example.com"
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, "text/xml", rec.Header().Get("Content-Type"))
	body := rec.Body.String()
	assert.Contains(t, body, `<Stream url="wss://calls.example.com/stream" />`)
	assert.Contains(t, body, "Connecting you to Grand Vista &amp; Spa.")
}

func TestTwilioServerPort(t *testing.T) {
	cfg, sm := testSetup(t)
	assert.Equal(t, ":8081", NewTwilioServer(cfg, sm, zap.NewNop()).Addr())

	cfg.ServerType = "twilio"
	assert.Equal(t, ":8080", NewTwilioServer(cfg, sm, zap.NewNop()).Addr())
}

func TestOriginAllowed(t *testing.T) {
	assert.True(t, originAllowed([]string{"*"}, "https://any.example"))
	assert.True(t, originAllowed([]string{"https://hotel.example"}, "https://hotel.example"))
	assert.False(t, originAllowed([]string{"https://hotel.example"}, "https://evil.example"))
}

func TestWebSocketRejectsForeignOrigin(t *testing.T) {
	cfg, sm := testSetup(t)
	srv := NewWebsocketServer(cfg, sm, zap.NewNop())

	req := httptest.NewRequest(http.MethodGet, "/ws", nil)
	req.Header.Set("Connection", "Upgrade")
	req.Header.Set("Upgrade", "websocket")
	req.Header.Set("Sec-WebSocket-Version", "13")
	req.Header.Set("Sec-WebSocket-Key", "dGhlIHNhbXBsZSBub25jZQ==")
	req.Header.Set("Origin", "https://evil.example")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, 0, sm.GetActiveSessionCount())
}
