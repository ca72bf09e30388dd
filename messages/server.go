package messages

// Error codes
const (
	ErrCodeInvalidMessage = "INVALID_MESSAGE"
	ErrCodeGeminiError    = "GEMINI_ERROR"
	ErrCodeSessionFailed  = "SESSION_FAILED"
	ErrCodeRateLimited    = "RATE_LIMITED" // MAX_SESSIONS reached
	ErrCodeBufferFull     = "BUFFER_FULL"
	ErrCodeBookingState   = "BOOKING_STATE"
)

// Message types
const (
	TypeAudio   = "audio"
	TypeText    = "text"
	TypeStatus  = "status"
	TypeError   = "error"
	TypeBooking = "booking"
)

// Media is the audio body of a Twilio media frame.
type Media struct {
	Payload string `json:"payload"` // Base64-encoded mu-law audio data
}

// ServerMessage represents a message sent to frontend client
type ServerMessage struct {
	Type      string      `json:"type"` // "audio", "text", "status", "error", "booking"
	SessionID string      `json:"sessionId,omitempty"`
	Payload   interface{} `json:"payload"`
}

// TwilioMessageBack is a media frame sent back down a Twilio stream.
type TwilioMessageBack struct {
	Event     string `json:"event"`
	StreamSid string `json:"streamSid"`
	Media     Media  `json:"media"`
}

type AudioResponsePayload struct {
	Data     string `json:"data"`     // Base64-encoded PCM audio
	MimeType string `json:"mimeType"` // "audio/pcm;rate=24000"
}

type TextResponsePayload struct {
	Text string `json:"text"`
}

// StatusPayload contains status updates
type StatusPayload struct {
	Status  string `json:"status"` // "connected", "turn_complete", "disconnected"
	Message string `json:"message,omitempty"`
}

// BookingPayload reports the booking script's progress to the client.
type BookingPayload struct {
	Step      string `json:"step"`
	Total     int    `json:"total,omitempty"`
	Breakfast bool   `json:"breakfastIncluded,omitempty"`
	Message   string `json:"message,omitempty"` // what the assistant was told to say
}

// ErrorPayload contains error information
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewTwilioMessageBack wraps mu-law audio for Twilio
func NewTwilioMessageBack(streamSid string, data string) *TwilioMessageBack {
	return &TwilioMessageBack{
		Event:     "media",
		StreamSid: streamSid,
		Media:     Media{Payload: data},
	}
}

func newMessage(typ, sessionID string, payload any) *ServerMessage {
	return &ServerMessage{Type: typ, SessionID: sessionID, Payload: payload}
}

// NewAudioMessage wraps 24kHz PCM from Gemini for the browser.
func NewAudioMessage(sessionID, data string) *ServerMessage {
	return newMessage(TypeAudio, sessionID, AudioResponsePayload{Data: data, MimeType: "audio/pcm;rate=24000"})
}

func NewTextMessage(sessionID, text string) *ServerMessage {
	return newMessage(TypeText, sessionID, TextResponsePayload{Text: text})
}

func NewStatusMessage(sessionID, status, message string) *ServerMessage {
	return newMessage(TypeStatus, sessionID, StatusPayload{Status: status, Message: message})
}

func NewErrorMessage(sessionID, code, message string) *ServerMessage {
	return newMessage(TypeError, sessionID, ErrorPayload{Code: code, Message: message})
}

// NewBookingMessage reports booking progress after a batch of tool calls.
func NewBookingMessage(sessionID string, payload BookingPayload) *ServerMessage {
	return newMessage(TypeBooking, sessionID, payload)
}
