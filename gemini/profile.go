package gemini

import "google.golang.org/genai"

// AudioProfile selects input handling for the caller's line.
type AudioProfile int

const (
	// ProfileStandard is a browser microphone.
	ProfileStandard AudioProfile = iota
	// ProfileTelephony is a phone call: 8kHz mu-law with line noise.
	ProfileTelephony
)

func (p AudioProfile) String() string {
	if p == ProfileTelephony {
		return "telephony"
	}
	return "standard"
}

// RealtimeInputConfig tunes Gemini's voice activity detection. Phone lines
// get low sensitivity so background noise does not open or close turns.
func (p AudioProfile) RealtimeInputConfig() *genai.RealtimeInputConfig {
	if p != ProfileTelephony {
		return nil
	}
	prefix, silence := int32(300), int32(800)
	return &genai.RealtimeInputConfig{
		AutomaticActivityDetection: &genai.AutomaticActivityDetection{
			StartOfSpeechSensitivity: genai.StartSensitivityLow,
			EndOfSpeechSensitivity:   genai.EndSensitivityLow,
			PrefixPaddingMs:          &prefix,
			SilenceDurationMs:        &silence,
		},
	}
}
