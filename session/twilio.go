package session

import (
	"encoding/base64"

	"github.com/bytedance/sonic"
	"go.uber.org/zap"

	"github.com/room4-2/staybot/messages"
)

// handleClientMessagesFromTwilio processes Twilio media stream events.
// Audio goes straight to Gemini, which does its own turn detection.
func (cs *ClientSession) handleClientMessagesFromTwilio() {
	defer cs.Close()

	for {
		_, message, err := cs.ClientConn.ReadMessage()
		if err != nil {
			if !cs.IsClosed() {
				cs.logger.Warn("❌ Twilio WebSocket read error", zap.Error(err))
			}
			return
		}
		cs.touch()

		var ev messages.TwilioEvent
		if err := sonic.Unmarshal(message, &ev); err != nil {
			cs.logger.Warn("⚠️ Failed to parse Twilio message", zap.Error(err))
			continue
		}
		if done := cs.handleTwilioEvent(&ev); done {
			return
		}
	}
}

// handleTwilioEvent reports true when the stream has ended.
func (cs *ClientSession) handleTwilioEvent(ev *messages.TwilioEvent) bool {
	switch ev.Event {
	case "connected":
		cs.logger.Info("📞 Twilio stream connected")

	case "start":
		if ev.Start == nil || ev.Start.StreamSid == "" {
			cs.logger.Warn("⚠️ Twilio 'start' event missing streamSid")
			return false
		}
		cs.mu.Lock()
		cs.StreamSid = ev.Start.StreamSid
		cs.CallSid = ev.Start.CallSid
		cs.mu.Unlock()
		cs.logger.Info("📞 Twilio stream started",
			zap.String("stream_sid", ev.Start.StreamSid),
			zap.String("call_sid", ev.Start.CallSid),
		)

	case "media":
		if ev.Media == nil || ev.Media.Payload == "" {
			return false
		}
		muLaw, err := base64.StdEncoding.DecodeString(ev.Media.Payload)
		if err != nil {
			cs.logger.Warn("⚠️ Failed to decode Twilio audio", zap.Error(err))
			return false
		}
		if err := cs.GeminiProxy.SendAudio(muLawToPCM16k(muLaw)); err != nil {
			cs.logger.Error("❌ Failed to send audio to Gemini", zap.Error(err))
		}

	case "stop":
		cs.logger.Info("📞 Twilio stream stopped")
		return true

	case "mark":
		// playback acknowledgements, nothing to do

	default:
		cs.logger.Debug("⚠️ Unknown Twilio event", zap.String("event", ev.Event))
	}
	return false
}
