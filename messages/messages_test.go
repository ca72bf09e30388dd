package messages

import (
	"testing"

	"github.com/bytedance/sonic"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeTwilioStart(t *testing.T) {
	raw := `{"event":"start","sequenceNumber":"1","start":{"streamSid":"MZ123","callSid":"CA456","tracks":["inbound"]},"streamSid":"MZ123"}`

	var ev TwilioEvent
	require.NoError(t, sonic.UnmarshalString(raw, &ev))

	assert.Equal(t, "start", ev.Event)
	require.NotNil(t, ev.Start)
	assert.Equal(t, "MZ123", ev.Start.StreamSid)
	assert.Equal(t, "CA456", ev.Start.CallSid)
	assert.Nil(t, ev.Media)
}

func TestDecodeTwilioMedia(t *testing.T) {
	raw := `{"event":"media","media":{"track":"inbound","chunk":"2","timestamp":"5","payload":"//8="}}`

	var ev TwilioEvent
	require.NoError(t, sonic.UnmarshalString(raw, &ev))

	require.NotNil(t, ev.Media)
	assert.Equal(t, "//8=", ev.Media.Payload)
}

func TestTwilioMessageBackShape(t *testing.T) {
	out, err := sonic.MarshalString(NewTwilioMessageBack("MZ123", "AAA="))
	require.NoError(t, err)
	assert.JSONEq(t, `{"event":"media","streamSid":"MZ123","media":{"payload":"AAA="}}`, out)
}

func TestBookingMessageShape(t *testing.T) {
	msg := NewBookingMessage("s-1", BookingPayload{Step: "collecting_name", Total: 6000, Breakfast: true})

	out, err := sonic.MarshalString(msg)
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"booking","sessionId":"s-1","payload":{"step":"collecting_name","total":6000,"breakfastIncluded":true}}`, out)
}
