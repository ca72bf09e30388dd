package gemini

import (
	"context"
	"encoding/base64"
	"fmt"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/genai"
)

// DefaultModel is used when SetupOptions.Model is empty.
const DefaultModel = "models/gemini-2.5-flash-native-audio-preview-12-2025"

// SetupOptions configures a Live session.
type SetupOptions struct {
	Model        string
	Voice        string // Puck, Charon, Kore, Fenrir, Aoede, Leda, Orus, Zephyr
	SystemPrompt string
	Tools        []*genai.Tool
	Profile      AudioProfile
	TextOnly     bool // respond with text instead of audio
}

// Proxy manages the connection to Gemini Live API using the official SDK
type Proxy struct {
	client  *genai.Client
	session *genai.Session
	logger  *zap.Logger

	// Callbacks for handling responses
	OnAudio    func(data []byte)       // Decoded audio bytes
	OnAudioRaw func(base64Data string) // Raw base64 (avoids re-encoding)
	OnText     func(text string)
	OnComplete func()
	OnToolCall func(functionCalls []*genai.FunctionCall) // Tool/function calls from model
	OnError    func(err error)

	mu     sync.RWMutex
	closed bool
}

// NewProxy creates the GenAI client. Setup opens the Live session.
func NewProxy(ctx context.Context, apiKey string, logger *zap.Logger) (*Proxy, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create GenAI client: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Proxy{
		client: client,
		logger: logger,
	}, nil
}

// LiveConfig builds the connect config for opts.
func LiveConfig(opts SetupOptions) *genai.LiveConnectConfig {
	config := &genai.LiveConnectConfig{
		ResponseModalities: []genai.Modality{genai.ModalityAudio},
		SystemInstruction: &genai.Content{
			Parts: []*genai.Part{
				{Text: opts.SystemPrompt},
			},
		},
		Tools:               opts.Tools,
		RealtimeInputConfig: opts.Profile.RealtimeInputConfig(),
	}

	if opts.TextOnly {
		config.ResponseModalities = []genai.Modality{genai.ModalityText}
		return config
	}

	voice := opts.Voice
	if voice == "" {
		voice = "Zephyr"
	}
	config.SpeechConfig = &genai.SpeechConfig{
		VoiceConfig: &genai.VoiceConfig{
			PrebuiltVoiceConfig: &genai.PrebuiltVoiceConfig{
				VoiceName: voice,
			},
		},
	}
	return config
}

// Setup establishes the Live session
func (gp *Proxy) Setup(ctx context.Context, opts SetupOptions) error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if gp.closed {
		return fmt.Errorf("proxy is closed")
	}

	model := opts.Model
	if model == "" {
		model = DefaultModel
	}

	session, err := gp.client.Live.Connect(ctx, model, LiveConfig(opts))
	if err != nil {
		return fmt.Errorf("failed to connect to Live API: %w", err)
	}

	gp.session = session
	gp.logger.Info("✅ Connected to Gemini Live via SDK",
		zap.String("model", model),
		zap.Stringer("profile", opts.Profile),
	)
	return nil
}

// StartReceiving begins listening for Gemini responses
func (gp *Proxy) StartReceiving(ctx context.Context) {
	go func() {
		defer func() {
			if gp.OnError != nil && ctx.Err() == nil && !gp.isClosed() {
				gp.OnError(fmt.Errorf("gemini receiver closed"))
			}
		}()

		for {
			gp.mu.RLock()
			if gp.closed || gp.session == nil {
				gp.mu.RUnlock()
				return
			}
			session := gp.session
			gp.mu.RUnlock()

			// Receive blocks until a message arrives or error occurs
			resp, err := session.Receive()
			if err != nil {
				if !gp.isClosed() {
					gp.logger.Error("❌ Gemini receive error", zap.Error(err))
					if gp.OnError != nil {
						gp.OnError(err)
					}
				}
				return
			}

			gp.handleResponse(resp)
		}
	}()
}

func (gp *Proxy) handleResponse(resp *genai.LiveServerMessage) {
	if resp.ToolCall != nil && len(resp.ToolCall.FunctionCalls) > 0 {
		gp.logger.Debug("📥 Received from Gemini: function calls", zap.Int("count", len(resp.ToolCall.FunctionCalls)))
		if gp.OnToolCall != nil {
			gp.OnToolCall(resp.ToolCall.FunctionCalls)
		}
	}

	if resp.ServerContent != nil {
		if resp.ServerContent.ModelTurn != nil {
			for _, part := range resp.ServerContent.ModelTurn.Parts {
				if part.Text != "" && gp.OnText != nil {
					gp.logger.Debug("📥 Received from Gemini: text", zap.String("text", part.Text))
					gp.OnText(part.Text)
				}
				if part.InlineData != nil {
					if gp.OnAudioRaw != nil {
						gp.OnAudioRaw(base64.StdEncoding.EncodeToString(part.InlineData.Data))
					} else if gp.OnAudio != nil {
						gp.OnAudio(part.InlineData.Data)
					}
				}
			}
		}

		if resp.ServerContent.TurnComplete && gp.OnComplete != nil {
			gp.logger.Debug("📥 Received from Gemini: turn complete")
			gp.OnComplete()
		}
	}
}

// SendAudio forwards an audio chunk to Gemini
func (gp *Proxy) SendAudio(audioData []byte) error {
	return gp.sendRealtimeInput(audioData)
}

// SendAudioBatch sends complete batched audio data to Gemini
func (gp *Proxy) SendAudioBatch(audioData []byte) error {
	if len(audioData) == 0 {
		return nil
	}

	if err := gp.sendRealtimeInput(audioData); err != nil {
		return fmt.Errorf("failed to send audio batch: %w", err)
	}

	return gp.sendAudioStreamEnd()
}

// SendText sends a user turn as text
func (gp *Proxy) SendText(text string) error {
	session, err := gp.current()
	if err != nil {
		return err
	}

	turnComplete := true
	err = session.SendClientContent(genai.LiveSendClientContentParameters{
		Turns: []*genai.Content{
			{
				Role:  "user",
				Parts: []*genai.Part{{Text: text}},
			},
		},
		TurnComplete: &turnComplete,
	})
	if err != nil {
		return fmt.Errorf("failed to send text: %w", err)
	}

	gp.logger.Debug("📤 Sent text to Gemini", zap.String("text", text))
	return nil
}

func (gp *Proxy) sendRealtimeInput(data []byte) error {
	session, err := gp.current()
	if err != nil {
		return err
	}

	err = session.SendRealtimeInput(genai.LiveRealtimeInput{
		Media: &genai.Blob{
			MIMEType: "audio/pcm;rate=16000",
			Data:     data,
		},
	})
	if err != nil {
		return fmt.Errorf("failed to send audio: %w", err)
	}
	return nil
}

// sendAudioStreamEnd tells Gemini the buffered turn is over so it responds.
func (gp *Proxy) sendAudioStreamEnd() error {
	session, err := gp.current()
	if err != nil {
		return err
	}

	if err := session.SendRealtimeInput(genai.LiveRealtimeInput{AudioStreamEnd: true}); err != nil {
		return fmt.Errorf("failed to send audio stream end: %w", err)
	}

	gp.logger.Debug("📤 Sent audio stream end to Gemini")
	return nil
}

// SendToolResponse sends function call responses back to Gemini
func (gp *Proxy) SendToolResponse(responses []*genai.FunctionResponse) error {
	session, err := gp.current()
	if err != nil {
		return err
	}

	err = session.SendToolResponse(genai.LiveToolResponseInput{
		FunctionResponses: responses,
	})
	if err != nil {
		return fmt.Errorf("failed to send tool response: %w", err)
	}

	gp.logger.Debug("📤 Sent tool responses to Gemini", zap.Int("count", len(responses)))
	return nil
}

func (gp *Proxy) current() (*genai.Session, error) {
	gp.mu.RLock()
	defer gp.mu.RUnlock()
	if gp.closed || gp.session == nil {
		return nil, fmt.Errorf("proxy is closed or not connected")
	}
	return gp.session, nil
}

func (gp *Proxy) isClosed() bool {
	gp.mu.RLock()
	defer gp.mu.RUnlock()
	return gp.closed
}

// Close terminates the Gemini connection
func (gp *Proxy) Close() error {
	gp.mu.Lock()
	defer gp.mu.Unlock()

	if gp.closed {
		return nil
	}
	gp.closed = true

	if gp.session != nil {
		return gp.session.Close()
	}
	return nil
}
