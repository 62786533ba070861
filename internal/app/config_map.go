package app

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"chorebot/internal/config"
	"chorebot/internal/notifier"
	"chorebot/internal/reminder"
	"chorebot/internal/storage"
	logx "chorebot/pkg/logx"
)

// mapLogConfig builds the logging config. The chat sink targets
// telegram.group_log; an unparsable or empty target disables it.
func mapLogConfig(cfg *config.Config) logx.Config {
	out := logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
		Chat: logx.ChatConfig{
			Enabled:    cfg.Logging.Telegram.Enabled,
			ThreadID:   cfg.Logging.Telegram.ThreadID,
			MinLevel:   cfg.Logging.Telegram.MinLevel,
			RatePerSec: cfg.Logging.Telegram.RatePerSec,
		},
	}
	chatID, err := strconv.ParseInt(strings.TrimSpace(cfg.Telegram.GroupLog), 10, 64)
	if err != nil || chatID == 0 {
		out.Chat.Enabled = false
	} else {
		out.Chat.ChatID = chatID
	}
	return out
}

func mapNotifierConfig(cfg *config.Config) (notifier.Config, error) {
	n := cfg.NotifierOrDefault()
	def := config.DefaultNotifier()
	out := notifier.Config{
		Enabled:    n.Enabled,
		Workers:    n.Workers,
		QueueSize:  n.QueueSize,
		RatePerSec: n.RatePerSec,
		RetryMax:   n.RetryMax,
	}
	base, err := config.ParseDurationOrDefault("notifier.retry_base", n.RetryBase, mustDuration(def.RetryBase))
	if err != nil {
		return notifier.Config{}, err
	}
	maxDelay, err := config.ParseDurationOrDefault("notifier.retry_max_delay", n.RetryMaxDelay, mustDuration(def.RetryMaxDelay))
	if err != nil {
		return notifier.Config{}, err
	}
	out.RetryBase, out.RetryMaxDelay = base, maxDelay
	return out, nil
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic(err)
	}
	return d
}

func mapStorageConfig(cfg *config.Config) (storage.Config, error) {
	sc := cfg.StorageOrDefault()
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	path := strings.TrimSpace(sc.Path)
	switch driver {
	case "", "file", "json":
		if path == "" {
			return storage.Config{}, fmt.Errorf("storage.path is required when storage.driver=%s", sc.Driver)
		}
		return storage.Config{Driver: "file", Path: path}, nil
	case "sqlite", "sqlite3":
		if path == "" {
			return storage.Config{}, fmt.Errorf("storage.path is required when storage.driver=sqlite")
		}
		busy, err := config.ParseDurationOrDefault("storage.busy_timeout", sc.BusyTimeout, time.Second)
		if err != nil {
			return storage.Config{}, err
		}
		return storage.Config{Driver: "sqlite", Path: path, BusyTimeout: busy}, nil
	case "memory", "none":
		return storage.Config{Driver: "memory"}, nil
	default:
		return storage.Config{}, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapReminderConfig(cfg *config.Config) reminder.Config {
	return reminder.Config{At: cfg.Reminders.At, Timezone: cfg.Reminders.Timezone}
}

// validate is the hot-reload gate: a config failing it is never applied.
func validate(cfg *config.Config) error {
	if err := config.Validate(cfg); err != nil {
		return err
	}
	if err := reminder.ValidateConfig(mapReminderConfig(cfg)); err != nil {
		return err
	}
	if _, err := mapNotifierConfig(cfg); err != nil {
		return err
	}
	_, err := mapStorageConfig(cfg)
	return err
}
