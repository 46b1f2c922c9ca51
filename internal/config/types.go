package config

import "time"

// Config is the bot configuration.
//
// Secrets (json:"-") come only from the environment or the .env file. All
// other fields may be set in the optional config file and are overridden by
// their environment variable. Durations are Go duration strings (e.g. "30s", "10m").
type Config struct {
	Practicum PracticumConfig `json:"practicum"`
	Telegram  TelegramConfig  `json:"telegram"`
	Poll      PollConfig      `json:"poll"`
	Logging   LoggingConfig   `json:"logging"`
}

type PracticumConfig struct {
	Token    string `json:"-" env:"PRACTICUM_TOKEN" validate:"required"`
	Endpoint string `json:"endpoint" env:"PRACTICUM_ENDPOINT" env-default:"https://practicum.yandex.ru/api/user_api/homework_statuses/" validate:"required,url"`
	// Timeout bounds one API request.
	Timeout string `json:"timeout" env:"PRACTICUM_TIMEOUT" env-default:"30s"`
}

type TelegramConfig struct {
	Token string `json:"-" env:"TELEGRAM_TOKEN" validate:"required"`
	// ChatID is the recipient chat id.
	ChatID string `json:"-" env:"TELEGRAM_CHAT_ID" validate:"required,numeric"`
	// ThreadID targets a forum topic (0 if none).
	ThreadID   int    `json:"thread_id" env:"TELEGRAM_THREAD_ID" validate:"gte=0"`
	RatePerSec int    `json:"rate_per_sec" env:"TELEGRAM_RATE_PER_SEC" env-default:"1" validate:"gte=0"`
	Timeout    string `json:"timeout" env:"TELEGRAM_TIMEOUT" env-default:"10s"`
}

type PollConfig struct {
	// RetryInterval is the pause after every poll.
	RetryInterval string `json:"retry_interval" env:"RETRY_INTERVAL" env-default:"10m"`
	// Lookback is how far back each poll asks for status changes.
	Lookback string `json:"lookback" env:"LOOKBACK" env-default:"1h"`
}

type LoggingConfig struct {
	Level   string      `json:"level" env:"LOG_LEVEL" env-default:"info"`
	Console bool        `json:"console" env:"LOG_CONSOLE"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled" env:"LOG_FILE_ENABLED"`
	Path    string `json:"path" env:"LOG_FILE_PATH"`
}

// Resolved holds the typed values derived from Config.
type Resolved struct {
	ChatID           int64
	PracticumTimeout time.Duration
	TelegramTimeout  time.Duration
	RetryInterval    time.Duration
	Lookback         time.Duration
}
