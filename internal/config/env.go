package config

import (
	"fmt"
	"strings"

	"github.com/caarlos0/env/v11"
)

// envOverrides lists the settings that may come from the environment. Set
// variables win over the file; secrets are expected to live here.
type envOverrides struct {
	Token         string  `env:"CHOREBOT_TELEGRAM_TOKEN"`
	OwnerIDs      []int64 `env:"CHOREBOT_OWNER_IDS" envSeparator:","`
	LogLevel      string  `env:"CHOREBOT_LOG_LEVEL"`
	StorageDriver string  `env:"CHOREBOT_STORAGE_DRIVER"`
	StoragePath   string  `env:"CHOREBOT_STORAGE_PATH"`
	ReminderAt    string  `env:"CHOREBOT_REMINDER_AT"`
	Timezone      string  `env:"CHOREBOT_TIMEZONE"`
}

// ApplyEnv overlays environment overrides on cfg. A nil environ reads the
// process environment.
func ApplyEnv(cfg *Config, environ map[string]string) error {
	var o envOverrides
	var err error
	if environ == nil {
		err = env.Parse(&o)
	} else {
		err = env.ParseWithOptions(&o, env.Options{Environment: environ})
	}
	if err != nil {
		return fmt.Errorf("parse env: %w", err)
	}

	if v := strings.TrimSpace(o.Token); v != "" {
		cfg.Telegram.Token = v
	}
	if len(o.OwnerIDs) > 0 {
		cfg.Telegram.OwnerUserIDs = o.OwnerIDs
	}
	if v := strings.TrimSpace(o.LogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(o.ReminderAt); v != "" {
		cfg.Reminders.At = v
	}
	if v := strings.TrimSpace(o.Timezone); v != "" {
		cfg.Reminders.Timezone = v
	}
	if o.StorageDriver != "" || o.StoragePath != "" {
		st := cfg.StorageOrDefault()
		if v := strings.TrimSpace(o.StorageDriver); v != "" {
			st.Driver = v
		}
		if v := strings.TrimSpace(o.StoragePath); v != "" {
			st.Path = v
		}
		cfg.Storage = &st
	}
	return nil
}
