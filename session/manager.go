package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/room4-2/staybot/booking"
	"github.com/room4-2/staybot/config"
	"github.com/room4-2/staybot/functions"
	"github.com/room4-2/staybot/gemini"
)

// ErrMaxSessions is returned when MAX_SESSIONS sessions are already open.
var ErrMaxSessions = errors.New("maximum sessions reached")

// Deps are the collaborators shared by every session.
type Deps struct {
	Gateway  booking.Gateway
	Notifier booking.Notifier // optional
	Logger   *zap.Logger
}

// Manager manages all client sessions
type Manager struct {
	sessions map[string]*ClientSession
	mu       sync.RWMutex
	redis    *redis.Client
	config   *config.Config
	deps     Deps
	logger   *zap.Logger
	prompt   string
}

// NewManager creates a session manager. Redis is optional: when it cannot
// be reached sessions are tracked in memory only.
func NewManager(cfg *config.Config, deps Deps) (*Manager, error) {
	if deps.Gateway == nil {
		return nil, fmt.Errorf("booking gateway is required")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	prompt, err := BuildPrompt(PromptData{
		AssistantName: cfg.Hotel.AssistantName,
		HotelName:     cfg.Hotel.Name,
		Pricing:       cfg.Hotel.Pricing,
	})
	if err != nil {
		return nil, err
	}

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisURL,
		Password: cfg.RedisPassword,
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("⚠️ Redis unavailable, tracking sessions in memory only", zap.Error(err))
		_ = redisClient.Close()
		redisClient = nil
	}

	return &Manager{
		sessions: make(map[string]*ClientSession),
		redis:    redisClient,
		config:   cfg,
		deps:     deps,
		logger:   logger,
		prompt:   prompt,
	}, nil
}

func (sm *Manager) sessionOptions(id string) Options {
	return Options{
		ID:        id,
		GeminiKey: sm.config.GeminiAPIKey,
		Gemini: gemini.SetupOptions{
			Model:        sm.config.GeminiModel,
			Voice:        sm.config.GeminiVoice,
			SystemPrompt: sm.prompt,
			Tools:        functions.Tools(sm.config.Hotel.Pricing.MaxBeds),
			Profile:      gemini.ProfileStandard,
		},
		Booking: booking.Options{
			Gateway:        sm.deps.Gateway,
			Pricing:        sm.config.Hotel.Pricing,
			Notifier:       sm.deps.Notifier,
			PersistTimeout: sm.config.Booking.PersistTimeout,
		},
		MaxBufferSize: sm.config.MaxBufferSize,
		Logger:        sm.logger,
	}
}

// CreateSession creates a new browser session
func (sm *Manager) CreateSession(ctx context.Context, clientConn *websocket.Conn) (*ClientSession, error) {
	return sm.create(ctx, clientConn, NewClientSession)
}

// CreateTwilioSession creates a new Twilio voice call session
func (sm *Manager) CreateTwilioSession(ctx context.Context, clientConn *websocket.Conn) (*ClientSession, error) {
	return sm.create(ctx, clientConn, NewTwilioClientSession)
}

type newSessionFunc func(context.Context, *websocket.Conn, Options) (*ClientSession, error)

func (sm *Manager) create(ctx context.Context, clientConn *websocket.Conn, newSession newSessionFunc) (*ClientSession, error) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= sm.config.MaxSessions {
		return nil, ErrMaxSessions
	}

	sessionID := uuid.New().String()
	session, err := newSession(ctx, clientConn, sm.sessionOptions(sessionID))
	if err != nil {
		return nil, err
	}
	session.OnBookingUpdate = func(snap booking.Snapshot) {
		sm.mirrorBooking(context.Background(), sessionID, snap)
	}

	sm.storeSession(ctx, sessionID, session)
	return session, nil
}

// storeSession saves a session to memory and Redis
func (sm *Manager) storeSession(ctx context.Context, sessionID string, session *ClientSession) {
	sm.sessions[sessionID] = session

	if sm.redis == nil {
		return
	}
	key := "session:" + sessionID
	pipe := sm.redis.TxPipeline()
	pipe.HSet(ctx, key, map[string]interface{}{
		"created_at":    session.CreatedAt.Format(time.RFC3339),
		"last_activity": session.LastActive().Format(time.RFC3339),
		"status":        "active",
		"is_twilio":     session.IsTwilio,
		"booking_step":  session.Booking.Step().String(),
	})
	pipe.SAdd(ctx, "active_sessions", sessionID)
	pipe.Expire(ctx, key, sm.config.SessionTimeout)
	if _, err := pipe.Exec(ctx); err != nil {
		sm.logger.Warn("⚠️ Failed to mirror session to Redis", zap.Error(err))
	}
}

// mirrorBooking records the booking progress next to the session entry.
func (sm *Manager) mirrorBooking(ctx context.Context, sessionID string, snap booking.Snapshot) {
	if sm.redis == nil {
		return
	}
	fields := map[string]interface{}{
		"booking_step":  snap.Step.String(),
		"last_activity": time.Now().Format(time.RFC3339),
	}
	if snap.Quote != nil {
		fields["quote_total"] = snap.Quote.Total
	}
	key := "session:" + sessionID
	pipe := sm.redis.TxPipeline()
	pipe.HSet(ctx, key, fields)
	pipe.Expire(ctx, key, sm.config.SessionTimeout)
	if _, err := pipe.Exec(ctx); err != nil {
		sm.logger.Warn("⚠️ Failed to mirror booking to Redis", zap.Error(err))
	}
}

// GetSession retrieves a session by ID
func (sm *Manager) GetSession(sessionID string) (*ClientSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[sessionID]
	return session, exists
}

// RemoveSession cleans up and removes a session
func (sm *Manager) RemoveSession(ctx context.Context, sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return nil
	}
	session.Close()
	sm.forget(ctx, sessionID)
	return nil
}

func (sm *Manager) forget(ctx context.Context, sessionID string) {
	delete(sm.sessions, sessionID)
	if sm.redis != nil {
		sm.redis.Del(ctx, "session:"+sessionID)
		sm.redis.SRem(ctx, "active_sessions", sessionID)
	}
}

// GetActiveSessionCount returns current session count
func (sm *Manager) GetActiveSessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// RedisEnabled reports whether sessions are mirrored to Redis.
func (sm *Manager) RedisEnabled() bool {
	return sm.redis != nil
}

// CleanupInactiveSessions removes sessions that have been inactive
func (sm *Manager) CleanupInactiveSessions(ctx context.Context) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for id, session := range sm.sessions {
		if session.IsClosed() || now.Sub(session.LastActive()) > sm.config.SessionTimeout {
			session.Close()
			sm.forget(ctx, id)
			sm.logger.Info("🧹 Removed inactive session", zap.String("session", id))
		}
	}
}

// StartCleanupRoutine starts periodic cleanup of inactive sessions
func (sm *Manager) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.CleanupInactiveSessions(ctx)
		}
	}
}

// Shutdown closes every session and the Redis client.
func (sm *Manager) Shutdown(ctx context.Context) {
	sm.mu.Lock()
	for id, session := range sm.sessions {
		session.Close()
		sm.forget(ctx, id)
	}
	sm.mu.Unlock()

	if sm.redis != nil {
		_ = sm.redis.Close()
	}
}
