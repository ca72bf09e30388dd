package session

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/room4-2/staybot/booking"
	"github.com/room4-2/staybot/functions"
	"github.com/room4-2/staybot/gemini"
	"github.com/room4-2/staybot/logging"
	"github.com/room4-2/staybot/messages"
)

const (
	writeBufferSize = 256
	writeTimeout    = 10 * time.Second
)

// Options configures a ClientSession.
type Options struct {
	ID            string
	GeminiKey     string
	Gemini        gemini.SetupOptions
	Booking       booking.Options
	MaxBufferSize int
	Logger        *zap.Logger
}

// ClientSession represents a single caller's connection
type ClientSession struct {
	ID           string
	IsTwilio     bool   // Whether this is a Twilio voice call session
	StreamSid    string // Twilio stream SID (set on "start" event)
	CallSid      string
	ClientConn   *websocket.Conn
	GeminiProxy  *gemini.Proxy
	AudioBuffer  *AudioBuffer // Buffer for incoming audio chunks
	Booking      *booking.Machine
	CreatedAt    time.Time
	LastActivity time.Time

	// OnBookingUpdate is called after every batch of tool calls.
	OnBookingUpdate func(booking.Snapshot)

	tools  *functions.Dispatcher
	logger *zap.Logger

	// Use channels for non-blocking writes
	writeChan chan any

	mu        sync.RWMutex
	closed    bool
	greeted   bool
	CloseChan chan struct{}
	ctx       context.Context
	cancel    context.CancelFunc
}

// NewClientSession creates a browser session with its own booking machine
// and Gemini connection.
func NewClientSession(ctx context.Context, clientConn *websocket.Conn, opts Options) (*ClientSession, error) {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	logger = logger.With(zap.String("session", logging.ShortID(opts.ID)))

	bookingOpts := opts.Booking
	bookingOpts.SessionID = opts.ID
	bookingOpts.Logger = logger
	machine, err := booking.NewMachine(bookingOpts)
	if err != nil {
		return nil, fmt.Errorf("failed to create booking machine: %w", err)
	}

	proxy, err := gemini.NewProxy(ctx, opts.GeminiKey, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini proxy: %w", err)
	}
	if err := proxy.Setup(ctx, opts.Gemini); err != nil {
		proxy.Close()
		return nil, fmt.Errorf("failed to setup Gemini session: %w", err)
	}

	sessionCtx, cancel := context.WithCancel(context.Background())

	clientConn.SetReadLimit(512 * 1024) // 512KB max message
	clientConn.EnableWriteCompression(true)
	_ = clientConn.SetCompressionLevel(6)

	now := time.Now()
	return &ClientSession{
		ID:           opts.ID,
		ClientConn:   clientConn,
		GeminiProxy:  proxy,
		AudioBuffer:  NewAudioBuffer(opts.MaxBufferSize),
		Booking:      machine,
		CreatedAt:    now,
		LastActivity: now,
		tools:        functions.NewDispatcher(machine, logger),
		logger:       logger,
		writeChan:    make(chan any, writeBufferSize),
		CloseChan:    make(chan struct{}),
		ctx:          sessionCtx,
		cancel:       cancel,
	}, nil
}

// NewTwilioClientSession creates a session for a phone call. Gemini is
// tuned for a noisy narrowband line.
func NewTwilioClientSession(ctx context.Context, clientConn *websocket.Conn, opts Options) (*ClientSession, error) {
	opts.Gemini.Profile = gemini.ProfileTelephony
	session, err := NewClientSession(ctx, clientConn, opts)
	if err != nil {
		return nil, err
	}
	session.IsTwilio = true

	// Twilio doesn't support WebSocket compression
	clientConn.EnableWriteCompression(false)

	return session, nil
}

// Start begins the bidirectional message handling for standard WebSocket clients
func (cs *ClientSession) Start() {
	go cs.writePump()
	cs.setupGeminiCallbacks()
	cs.GeminiProxy.StartReceiving(cs.ctx)
	cs.queueMessage(messages.NewStatusMessage(cs.ID, "connected", "Session established"))
	go cs.handleClientMessages()
}

// StartTwilio begins the bidirectional message handling for Twilio voice calls
func (cs *ClientSession) StartTwilio() {
	go cs.writePump()
	cs.setupTwilioGeminiCallbacks()
	cs.GeminiProxy.StartReceiving(cs.ctx)
	go cs.handleClientMessagesFromTwilio()
}

func (cs *ClientSession) setupGeminiCallbacks() {
	cs.GeminiProxy.OnAudioRaw = func(base64Data string) {
		cs.queueMessage(messages.NewAudioMessage(cs.ID, base64Data))
	}
	cs.GeminiProxy.OnText = func(text string) {
		cs.queueMessage(messages.NewTextMessage(cs.ID, text))
	}
	cs.GeminiProxy.OnComplete = func() {
		cs.turnComplete()
		cs.queueMessage(messages.NewStatusMessage(cs.ID, "turn_complete", ""))
	}
	cs.setupCommonCallbacks()
}

func (cs *ClientSession) setupTwilioGeminiCallbacks() {
	cs.GeminiProxy.OnAudioRaw = func(base64Data string) {
		cs.mu.RLock()
		streamSid := cs.StreamSid
		cs.mu.RUnlock()

		if streamSid == "" {
			cs.logger.Warn("⚠️ Received audio from Gemini but no StreamSid set yet")
			return
		}

		// Gemini speaks 24kHz 16-bit PCM; Twilio wants 8kHz mu-law.
		pcmData, err := base64.StdEncoding.DecodeString(base64Data)
		if err != nil {
			cs.logger.Error("❌ Failed to decode base64 audio", zap.Error(err))
			return
		}
		encoded := base64.StdEncoding.EncodeToString(pcm24kToMuLaw(pcmData))
		cs.queueMessage(messages.NewTwilioMessageBack(streamSid, encoded))
	}
	cs.GeminiProxy.OnText = func(text string) {
		cs.logger.Debug("📝 Gemini text", zap.String("text", text))
	}
	cs.GeminiProxy.OnComplete = func() {
		cs.turnComplete()
	}
	cs.setupCommonCallbacks()
}

func (cs *ClientSession) setupCommonCallbacks() {
	cs.GeminiProxy.OnError = func(err error) {
		cs.logger.Error("❌ Gemini error", zap.Error(err))
		if !cs.IsTwilio {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeGeminiError, err.Error()))
		}
		cs.logger.Info("🔌 Closing session due to Gemini connection error")
		cs.Close()
	}
	cs.GeminiProxy.OnToolCall = func(functionCalls []*genai.FunctionCall) {
		cs.handleToolCalls(functionCalls)
	}
}

// turnComplete moves the script past the greeting once the model has spoken.
func (cs *ClientSession) turnComplete() {
	cs.mu.Lock()
	first := !cs.greeted
	cs.greeted = true
	cs.mu.Unlock()
	if first {
		cs.Booking.Begin()
	}
}

// handleToolCalls runs on the Gemini receive goroutine, so no further model
// message is processed while a booking is being saved.
func (cs *ClientSession) handleToolCalls(functionCalls []*genai.FunctionCall) {
	responses := cs.tools.HandleAll(cs.ctx, functionCalls)

	if err := cs.GeminiProxy.SendToolResponse(responses); err != nil {
		cs.logger.Error("❌ Failed to send tool response", zap.Error(err))
		if !cs.IsTwilio {
			cs.queueMessage(messages.NewErrorMessage(cs.ID, messages.ErrCodeGeminiError, err.Error()))
		}
	}

	snap := cs.Booking.Snapshot()
	if !cs.IsTwilio {
		cs.queueMessage(messages.NewBookingMessage(cs.ID, bookingPayload(snap, responses)))
	}
	if cs.OnBookingUpdate != nil {
		cs.OnBookingUpdate(snap)
	}
}

func bookingPayload(snap booking.Snapshot, responses []*genai.FunctionResponse) messages.BookingPayload {
	p := messages.BookingPayload{Step: snap.Step.String()}
	if snap.Quote != nil {
		p.Total = snap.Quote.Total
		p.Breakfast = snap.Quote.BreakfastIncluded
	}
	if n := len(responses); n > 0 {
		if out, ok := responses[n-1].Response["output"].(string); ok {
			p.Message = out
		}
	}
	return p
}

// writePump handles all outgoing messages in a single goroutine
func (cs *ClientSession) writePump() {
	defer func() {
		_ = cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
		_ = cs.ClientConn.WriteMessage(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		)
	}()

	for {
		select {
		case <-cs.CloseChan:
			return
		case msg, ok := <-cs.writeChan:
			if !ok {
				return
			}
			if err := cs.write(msg); err != nil {
				return
			}

			// Drain whatever queued up while writing.
			n := len(cs.writeChan)
			for i := 0; i < n; i++ {
				select {
				case msg, ok := <-cs.writeChan:
					if !ok {
						return
					}
					if err := cs.write(msg); err != nil {
						return
					}
				default:
				}
			}
		}
	}
}

func (cs *ClientSession) write(msg any) error {
	data, err := sonic.Marshal(msg)
	if err != nil {
		cs.logger.Error("❌ Failed to encode outgoing message", zap.Error(err))
		return nil
	}
	_ = cs.ClientConn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return cs.ClientConn.WriteMessage(websocket.TextMessage, data)
}

// queueMessage adds a message to the write queue (non-blocking)
func (cs *ClientSession) queueMessage(msg any) {
	cs.mu.Lock()
	defer cs.mu.Unlock()
	if cs.closed {
		return
	}
	select {
	case cs.writeChan <- msg:
		cs.LastActivity = time.Now()
	default:
		cs.logger.Warn("⚠️ write queue full, dropping message")
	}
}

func (cs *ClientSession) touch() {
	cs.mu.Lock()
	cs.LastActivity = time.Now()
	cs.mu.Unlock()
}

// LastActive returns the time of the last inbound or outbound message.
func (cs *ClientSession) LastActive() time.Time {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.LastActivity
}

// IsClosed returns whether the session is closed
func (cs *ClientSession) IsClosed() bool {
	cs.mu.RLock()
	defer cs.mu.RUnlock()
	return cs.closed
}

// Close terminates the session. An unfinished booking is discarded.
func (cs *ClientSession) Close() error {
	cs.mu.Lock()
	if cs.closed {
		cs.mu.Unlock()
		return nil
	}
	cs.closed = true
	close(cs.writeChan)
	close(cs.CloseChan)
	cs.mu.Unlock()

	cs.cancel()

	if step := cs.Booking.Step(); step < booking.Booking {
		cs.logger.Info("session closed before booking", zap.Stringer("step", step))
	}

	if cs.AudioBuffer != nil {
		cs.AudioBuffer.Clear()
	}
	if cs.GeminiProxy != nil {
		cs.GeminiProxy.Close()
	}
	if cs.ClientConn != nil {
		cs.ClientConn.Close()
	}

	return nil
}
