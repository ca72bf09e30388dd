package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, "websocket", cfg.ServerType)
	assert.Equal(t, 30*time.Minute, cfg.SessionTimeout)
	assert.Equal(t, []string{"*"}, cfg.AllowedOrigins)
	assert.Equal(t, "Grand Vista Hotel", cfg.Hotel.Name)
	assert.Equal(t, 1000, cfg.Hotel.Pricing.UnitRate)
	assert.Equal(t, 2, cfg.Hotel.Pricing.MaxBeds)
	assert.Equal(t, 1, cfg.Hotel.Pricing.BreakfastAfterNights)
	assert.Equal(t, GatewaySheets, cfg.Booking.Gateway)
	assert.Equal(t, 15*time.Second, cfg.Booking.PersistTimeout)
	assert.Equal(t, "Hotel booking", cfg.Sheets.SheetName)
	assert.Equal(t, "credentials.json", cfg.Sheets.CredentialsFile)
	assert.Empty(t, cfg.Events.RabbitMQURL)
}

func TestLoadConfigRequiresGeminiKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")

	_, err := LoadConfig()
	assert.ErrorContains(t, err, "GEMINI_API_KEY")

	cfg, err := Load()
	require.NoError(t, err, "store-only tools do not need the key")
	assert.Empty(t, cfg.GeminiAPIKey)
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "test-key")
	t.Setenv("PORT", "9090")
	t.Setenv("UNIT_RATE", "1500")
	t.Setenv("MAX_BEDS", "3")
	t.Setenv("ALLOWED_ORIGINS", "https://a.example, https://b.example")
	t.Setenv("BOOKING_GATEWAY", "LEDGER")
	t.Setenv("PERSIST_TIMEOUT", "5")
	t.Setenv("SHEET_NAME", "test")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.Equal(t, 1500, cfg.Hotel.Pricing.UnitRate)
	assert.Equal(t, 3, cfg.Hotel.Pricing.MaxBeds)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.AllowedOrigins)
	assert.Equal(t, GatewayLedger, cfg.Booking.Gateway)
	assert.Equal(t, 5*time.Second, cfg.Booking.PersistTimeout)
	assert.Equal(t, "test", cfg.Sheets.SheetName)
}

func TestLoadConfigRejectsInvalidValues(t *testing.T) {
	cases := map[string][2]string{
		"port":        {"PORT", "eighty"},
		"server type": {"SERVER_TYPE", "grpc"},
		"gateway":     {"BOOKING_GATEWAY", "postgres"},
		"max beds":    {"MAX_BEDS", "0"},
	}
	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv("GEMINI_API_KEY", "test-key")
			t.Setenv(kv[0], kv[1])

			_, err := LoadConfig()
			assert.ErrorContains(t, err, kv[0])
		})
	}
}
