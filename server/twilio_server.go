package server

import (
	"context"
	"fmt"
	"html"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/room4-2/staybot/config"
	"github.com/room4-2/staybot/session"
)

// TwilioServer answers Twilio voice webhooks and media streams.
type TwilioServer struct {
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	config         *config.Config
	logger         *zap.Logger
}

// NewTwilioServer creates the phone-facing server
func NewTwilioServer(cfg *config.Config, sessionManager *session.Manager, logger *zap.Logger) *TwilioServer {
	s := &TwilioServer{
		sessionManager: sessionManager,
		config:         cfg,
		logger:         logger.With(zap.String("server", "twilio")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  64 * 1024,
			WriteBufferSize: 64 * 1024,
			// Twilio doesn't support WebSocket compression
			EnableCompression: false,
			// Twilio connections don't send browser Origin headers.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}

	port := cfg.TwilioPort
	if cfg.ServerType == "twilio" {
		// Standalone Twilio server takes the main port
		port = cfg.Port
	}

	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler exposes the routes, mainly for tests.
func (s *TwilioServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/stream", s.handleStream)
	mux.HandleFunc("/voice", s.handleVoiceCall)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start begins listening for connections
func (s *TwilioServer) Start() error {
	s.logger.Info("📞 Twilio WebSocket server starting",
		zap.String("addr", s.httpServer.Addr),
		zap.String("stream", fmt.Sprintf("ws://localhost%s/stream", s.httpServer.Addr)),
		zap.String("voice", fmt.Sprintf("http://localhost%s/voice", s.httpServer.Addr)),
	)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *TwilioServer) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down Twilio server...")
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the listen address
func (s *TwilioServer) Addr() string {
	return s.httpServer.Addr
}

func (s *TwilioServer) handleStream(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("Twilio WebSocket upgrade failed", zap.Error(err))
		return
	}

	clientSession, err := s.sessionManager.CreateTwilioSession(r.Context(), conn)
	if err != nil {
		s.logger.Error("Failed to create Twilio session", zap.Error(err))
		conn.Close()
		return
	}

	s.logger.Info("📞 New Twilio session created", zap.String("session", clientSession.ID))
	clientSession.StartTwilio()

	<-clientSession.CloseChan

	_ = s.sessionManager.RemoveSession(context.Background(), clientSession.ID)
	s.logger.Info("📞 Twilio session closed", zap.String("session", clientSession.ID))
}

// handleVoiceCall returns TwiML that connects the call to /stream.
func (s *TwilioServer) handleVoiceCall(w http.ResponseWriter, r *http.Request) {
	wsURL := "wss://" + r.Host + "/stream"

	twiml := fmt.Sprintf(`<?xml version="1.0" encoding="UTF-8"?>
<Response>
	<Say>Connecting you to %s.</Say>
	<Connect>
		<Stream url="%s" />
	</Connect>
</Response>`, html.EscapeString(s.config.Hotel.Name), html.EscapeString(wsURL))

	w.Header().Set("Content-Type", "text/xml")
	_, _ = w.Write([]byte(twiml))
}

func (s *TwilioServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, "twilio", s.sessionManager, s.config)
}
