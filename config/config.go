package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"github.com/spf13/viper"

	"github.com/room4-2/staybot/booking"
)

// Config holds all server configuration
type Config struct {
	Env             string
	LogLevel        string
	Port            int
	TwilioPort      int    // Port for Twilio server (used when ServerType is "both")
	ServerType      string // "websocket", "twilio", or "both"
	RedisURL        string
	RedisPassword   string
	MaxSessions     int
	SessionTimeout  time.Duration
	GeminiAPIKey    string
	GeminiModel     string
	GeminiVoice     string
	AllowedOrigins  []string
	KeepAlivePeriod time.Duration
	MaxBufferSize   int // Maximum audio buffer size in bytes per session

	Hotel   Hotel
	Booking Booking
	Sheets  Sheets
	Ledger  Ledger
	Events  Events
}

// Hotel is what the assistant tells callers about the property.
type Hotel struct {
	Name          string
	AssistantName string
	Pricing       booking.Pricing
}

// Booking selects where confirmed bookings are written.
type Booking struct {
	Gateway        string // "sheets" or "ledger"
	PersistTimeout time.Duration
}

// Sheets configures the Google Sheets gateway.
type Sheets struct {
	SheetName       string
	CredentialsFile string
	WritesPerMinute int
}

// Ledger configures the local bbolt gateway.
type Ledger struct {
	Path string
}

// Events configures booking.confirmed publishing. Empty URL disables it.
type Events struct {
	RabbitMQURL  string
	BookingQueue string
}

const (
	GatewaySheets = "sheets"
	GatewayLedger = "ledger"
)

// LoadConfig loads configuration for the voice server. GEMINI_API_KEY is required.
func LoadConfig() (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("GEMINI_API_KEY environment variable is required")
	}
	return cfg, nil
}

// Load reads configuration from .env, an optional config.yaml and the
// environment, in increasing precedence. It does not require Gemini
// credentials so store-only tools can use it.
func Load() (*Config, error) {
	// Load .env file if it exists (doesn't error if missing)
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config file: %w", err)
		}
	}

	r := reader{v: v}
	pricing := booking.DefaultPricing()
	pricing.UnitRate = r.intVal("unit_rate")
	pricing.MaxBeds = r.intVal("max_beds")
	pricing.BreakfastAfterNights = r.intVal("breakfast_after_nights")
	pricing.Currency = v.GetString("currency")

	config := &Config{
		Env:             v.GetString("env"),
		LogLevel:        v.GetString("log_level"),
		Port:            r.intVal("port"),
		TwilioPort:      r.intVal("twilio_port"),
		ServerType:      v.GetString("server_type"),
		RedisURL:        v.GetString("redis_url"),
		RedisPassword:   v.GetString("redis_password"),
		MaxSessions:     r.intVal("max_sessions"),
		SessionTimeout:  time.Duration(r.intVal("session_timeout")) * time.Minute,
		GeminiAPIKey:    v.GetString("gemini_api_key"),
		GeminiModel:     v.GetString("gemini_model"),
		GeminiVoice:     v.GetString("gemini_voice"),
		AllowedOrigins:  splitList(v.GetString("allowed_origins")),
		KeepAlivePeriod: time.Duration(r.intVal("keepalive_period")) * time.Second,
		MaxBufferSize:   r.intVal("max_buffer_size"),
		Hotel: Hotel{
			Name:          v.GetString("hotel_name"),
			AssistantName: v.GetString("assistant_name"),
			Pricing:       pricing,
		},
		Booking: Booking{
			Gateway:        strings.ToLower(v.GetString("booking_gateway")),
			PersistTimeout: time.Duration(r.intVal("persist_timeout")) * time.Second,
		},
		Sheets: Sheets{
			SheetName:       v.GetString("sheet_name"),
			CredentialsFile: v.GetString("google_credentials_file"),
			WritesPerMinute: r.intVal("sheets_writes_per_minute"),
		},
		Ledger: Ledger{Path: v.GetString("ledger_path")},
		Events: Events{
			RabbitMQURL:  v.GetString("rabbitmq_url"),
			BookingQueue: v.GetString("booking_queue"),
		},
	}
	if r.err != nil {
		return nil, r.err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "development")
	v.SetDefault("log_level", "info")
	v.SetDefault("port", 8080)
	v.SetDefault("twilio_port", 8081)
	v.SetDefault("server_type", "websocket")
	v.SetDefault("redis_url", "localhost:6379")
	v.SetDefault("redis_password", "")
	v.SetDefault("max_sessions", 100)
	v.SetDefault("session_timeout", 30) // minutes
	v.SetDefault("gemini_api_key", "")
	v.SetDefault("gemini_model", "models/gemini-2.5-flash-native-audio-preview-12-2025")
	v.SetDefault("gemini_voice", "Zephyr")
	v.SetDefault("allowed_origins", "*")
	v.SetDefault("keepalive_period", 30) // seconds
	v.SetDefault("max_buffer_size", 5*1024*1024)

	v.SetDefault("hotel_name", "Grand Vista Hotel")
	v.SetDefault("assistant_name", "StayBot")
	v.SetDefault("unit_rate", 1000)
	v.SetDefault("max_beds", 2)
	v.SetDefault("breakfast_after_nights", 1)
	v.SetDefault("currency", "rupees")

	v.SetDefault("booking_gateway", GatewaySheets)
	v.SetDefault("persist_timeout", 15) // seconds
	v.SetDefault("sheet_name", "Hotel booking")
	v.SetDefault("google_credentials_file", "credentials.json")
	v.SetDefault("sheets_writes_per_minute", 60)
	v.SetDefault("ledger_path", "data/bookings.db")
	v.SetDefault("rabbitmq_url", "")
	v.SetDefault("booking_queue", "booking.confirmed")
}

func (c *Config) validate() error {
	switch c.ServerType {
	case "websocket", "twilio", "both":
	default:
		return fmt.Errorf("invalid SERVER_TYPE: must be 'websocket', 'twilio', or 'both'")
	}
	switch c.Booking.Gateway {
	case GatewaySheets, GatewayLedger:
	default:
		return fmt.Errorf("invalid BOOKING_GATEWAY: must be '%s' or '%s'", GatewaySheets, GatewayLedger)
	}
	if c.Hotel.Pricing.MaxBeds < 1 {
		return fmt.Errorf("invalid MAX_BEDS: must be at least 1")
	}
	if c.Hotel.Pricing.UnitRate < 0 {
		return fmt.Errorf("invalid UNIT_RATE: must not be negative")
	}
	if c.Sheets.WritesPerMinute < 1 {
		return fmt.Errorf("invalid SHEETS_WRITES_PER_MINUTE: must be at least 1")
	}
	if c.Booking.Gateway == GatewaySheets && c.Sheets.SheetName == "" {
		return fmt.Errorf("SHEET_NAME is required when BOOKING_GATEWAY is '%s'", GatewaySheets)
	}
	return nil
}

// IsProduction reports whether ENV is "production".
func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// reader keeps the first conversion error so Load can report it with the
// offending key, the way the env parsing always has.
type reader struct {
	v   *viper.Viper
	err error
}

func (r *reader) intVal(key string) int {
	n, err := cast.ToIntE(r.v.Get(key))
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("invalid %s: %w", strings.ToUpper(key), err)
	}
	return n
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
