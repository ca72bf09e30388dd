package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/room4-2/staybot/config"
	"github.com/room4-2/staybot/messages"
	"github.com/room4-2/staybot/session"
)

// Server accepts browser clients on /ws.
type Server struct {
	httpServer     *http.Server
	upgrader       websocket.Upgrader
	sessionManager *session.Manager
	config         *config.Config
	logger         *zap.Logger
}

// NewWebsocketServer creates the browser-facing server
func NewWebsocketServer(cfg *config.Config, sessionManager *session.Manager, logger *zap.Logger) *Server {
	s := &Server{
		sessionManager: sessionManager,
		config:         cfg,
		logger:         logger.With(zap.String("server", "websocket")),
		upgrader: websocket.Upgrader{
			ReadBufferSize:    64 * 1024, // 64KB for audio chunks
			WriteBufferSize:   64 * 1024,
			EnableCompression: true,
			CheckOrigin: func(r *http.Request) bool {
				return originAllowed(cfg.AllowedOrigins, r.Header.Get("Origin"))
			},
		},
	}

	// No server-wide read/write timeouts: they would cut long-lived sockets.
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// Handler exposes the routes, mainly for tests.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/health", s.handleHealth)
	return mux
}

// Start begins listening for connections
func (s *Server) Start() error {
	s.logger.Info("🚀 WebSocket server starting",
		zap.String("addr", s.httpServer.Addr),
		zap.String("endpoint", fmt.Sprintf("ws://localhost:%d/ws", s.config.Port)),
	)
	return s.httpServer.ListenAndServe()
}

// Shutdown gracefully stops the server
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("🛑 Shutting down server...")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("WebSocket upgrade failed", zap.Error(err))
		return
	}

	clientSession, err := s.sessionManager.CreateSession(r.Context(), conn)
	if err != nil {
		s.logger.Error("Failed to create session", zap.Error(err))
		code := messages.ErrCodeSessionFailed
		if errors.Is(err, session.ErrMaxSessions) {
			code = messages.ErrCodeRateLimited
		}
		if data, encErr := sonic.Marshal(messages.NewErrorMessage("", code, err.Error())); encErr == nil {
			_ = conn.WriteMessage(websocket.TextMessage, data)
		}
		conn.Close()
		return
	}

	s.logger.Info("✅ New session created", zap.String("session", clientSession.ID))
	clientSession.Start()

	<-clientSession.CloseChan

	_ = s.sessionManager.RemoveSession(context.Background(), clientSession.ID)
	s.logger.Info("🔌 Session closed", zap.String("session", clientSession.ID))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeHealth(w, "websocket", s.sessionManager, s.config)
}

func originAllowed(allowed []string, origin string) bool {
	for _, a := range allowed {
		if a == "*" || a == origin {
			return true
		}
	}
	return false
}

type healthResponse struct {
	Status   string `json:"status"`
	Server   string `json:"server"`
	Sessions int    `json:"sessions"`
	Redis    bool   `json:"redis"`
	Gateway  string `json:"booking_gateway"`
}

func writeHealth(w http.ResponseWriter, server string, sm *session.Manager, cfg *config.Config) {
	body, err := sonic.Marshal(healthResponse{
		Status:   "ok",
		Server:   server,
		Sessions: sm.GetActiveSessionCount(),
		Redis:    sm.RedisEnabled(),
		Gateway:  cfg.Booking.Gateway,
	})
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
