package config

import (
	"fmt"
	"log"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds all configuration for the server process. Values are read from
// the environment with the PARLEY_ prefix; a .env file is loaded first if one
// exists.
type Config struct {
	Addr      string `envconfig:"ADDR" default:":8080"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"text"`

	// Transport settings for each WebSocket session.
	SendQueueSize int           `envconfig:"SEND_QUEUE_SIZE" default:"256"`
	IdleTimeout   time.Duration `envconfig:"IDLE_TIMEOUT" default:"5m"`
	WriteTimeout  time.Duration `envconfig:"WRITE_TIMEOUT" default:"10s"`
	CloseGrace    time.Duration `envconfig:"CLOSE_GRACE" default:"5s"`
	MaxFrameBytes int64         `envconfig:"MAX_FRAME_BYTES" default:"4096"`

	// Request-handler settings.
	MaxAudioBytes     int64         `envconfig:"MAX_AUDIO_BYTES" default:"10485760"`
	AllowedAudioTypes []string      `envconfig:"ALLOWED_AUDIO_TYPES" default:"audio/wav,audio/x-wav,audio/mpeg,audio/ogg,audio/webm,audio/mp4,audio/flac"`
	BackendTimeout    time.Duration `envconfig:"BACKEND_TIMEOUT" default:"30s"`

	// Fault injection for the mock backends. Off unless explicitly enabled;
	// exists so failure handling can be exercised deliberately rather than
	// baked in as an unconditional probability.
	BackendLatency     time.Duration `envconfig:"BACKEND_LATENCY" default:"0s"`
	BackendFailureRate float64       `envconfig:"BACKEND_FAILURE_RATE" default:"0"`
}

// Load reads configuration from the environment, applying defaults for any
// unset variable.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment variables")
	}

	var cfg Config
	if err := envconfig.Process("PARLEY", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}

	if cfg.SendQueueSize <= 0 {
		return nil, fmt.Errorf("PARLEY_SEND_QUEUE_SIZE must be positive, got %d", cfg.SendQueueSize)
	}
	if cfg.BackendFailureRate < 0 || cfg.BackendFailureRate > 1 {
		return nil, fmt.Errorf("PARLEY_BACKEND_FAILURE_RATE must be in [0,1], got %g", cfg.BackendFailureRate)
	}

	return &cfg, nil
}
