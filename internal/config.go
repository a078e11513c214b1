package internal

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config is the environment of the client core. A single BASE_URL covers
// both the REST origin and the websocket endpoints derived from it.
type Config struct {
	BaseURL             string        `env:"BASE_URL,default=http://127.0.0.1:8000" validate:"required,url"`
	AccessToken         string        `env:"ACCESS_TOKEN"`
	LogLevel            string        `env:"LOG_LEVEL,default=info" validate:"oneof=debug info warn error"`
	HeartbeatInterval   time.Duration `env:"HEARTBEAT_INTERVAL,default=30s" validate:"required"`
	ChatReconnectDelay  time.Duration `env:"CHAT_RECONNECT_DELAY,default=3s" validate:"required"`
	PresenceBackoffBase time.Duration `env:"PRESENCE_BACKOFF_BASE,default=5s" validate:"required"`
	PresenceBackoffCap  time.Duration `env:"PRESENCE_BACKOFF_CAP,default=30s" validate:"required,gtefield=PresenceBackoffBase"`
	EventBufferSize     int           `env:"EVENT_BUFFER_SIZE,default=64" validate:"min=1"`
	CacheFilepath       string        `env:"CACHE_FILEPATH"` // empty disables the message cache
	CacheLimit          *int          `env:"CACHE_LIMIT"`
	RestartInterval     time.Duration `env:"RESTART_INTERVAL,default=200ms" validate:"required"`
}

func (c Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LogLevel maps the configured level onto slog. Unknown strings already
// failed validation.
func LogLevelFrom(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
