package app

import (
	"homeworkbot/internal/config"
	"homeworkbot/internal/notifier"
	"homeworkbot/internal/practicum"
	"homeworkbot/internal/tracker"
	telegram "homeworkbot/internal/transport/telegram/adapter"
	logx "homeworkbot/pkg/logx"
)

func mapLoggingConfig(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapPracticumConfig(s config.Snapshot) practicum.Config {
	return practicum.Config{
		Endpoint: s.Config.Practicum.Endpoint,
		Token:    s.Config.Practicum.Token,
		Timeout:  s.Resolved.PracticumTimeout,
	}
}

func mapTelegramConfig(s config.Snapshot) telegram.Config {
	return telegram.Config{
		Token:   s.Config.Telegram.Token,
		Timeout: s.Resolved.TelegramTimeout,
	}
}

func mapNotifierConfig(s config.Snapshot) notifier.Config {
	return notifier.Config{
		ChatID:      s.Resolved.ChatID,
		ThreadID:    s.Config.Telegram.ThreadID,
		RatePerSec:  s.Config.Telegram.RatePerSec,
		SendTimeout: s.Resolved.TelegramTimeout,
	}
}

func mapTrackerConfig(s config.Snapshot) tracker.Config {
	return tracker.Config{
		RetryInterval: s.Resolved.RetryInterval,
		Lookback:      s.Resolved.Lookback,
	}
}

// restartRequired lists settings that changed between a and b but are only
// read at startup.
func restartRequired(a, b config.Snapshot) []string {
	var out []string
	if mapTrackerConfig(a) != mapTrackerConfig(b) {
		out = append(out, "poll")
	}
	if mapPracticumConfig(a) != mapPracticumConfig(b) {
		out = append(out, "practicum")
	}
	if mapTelegramConfig(a) != mapTelegramConfig(b) {
		out = append(out, "telegram")
	}
	return out
}
