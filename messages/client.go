package messages

import "encoding/json"

// ClientMessage represents a message from frontend client
type ClientMessage struct {
	Type    string          `json:"type"` // "audio", "audio_binary", "control"
	Payload json.RawMessage `json:"payload"`
}

// AudioPayload contains audio data from client
type AudioPayload struct {
	Data string `json:"data"` // Base64-encoded PCM audio
}

// ControlPayload contains control commands
type ControlPayload struct {
	Action string `json:"action"` // "ping", "end_turn", "new_booking"
}

// TwilioEvent is one frame of a Twilio media stream.
type TwilioEvent struct {
	Event string       `json:"event"` // "connected", "start", "media", "stop", "mark"
	Start *TwilioStart `json:"start,omitempty"`
	Media *Media       `json:"media,omitempty"`
}

// TwilioStart carries the identifiers sent with the "start" event.
type TwilioStart struct {
	StreamSid string `json:"streamSid"`
	CallSid   string `json:"callSid"`
}
