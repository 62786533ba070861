package config

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	logx "chorebot/pkg/logx"
)

// Validate checks the parts of cfg that can be checked without touching
// the network or the filesystem.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	if strings.TrimSpace(cfg.Telegram.Token) == "" {
		errs = append(errs, errors.New("telegram.token is empty (set it or CHOREBOT_TELEGRAM_TOKEN)"))
	}
	if _, err := ParseDurationField("telegram.poll_timeout", cfg.Telegram.PollTimeout); err != nil {
		errs = append(errs, err)
	}
	if g := strings.TrimSpace(cfg.Telegram.GroupLog); g != "" {
		if _, err := strconv.ParseInt(g, 10, 64); err != nil {
			errs = append(errs, fmt.Errorf("telegram.group_log: %q is not a chat id", g))
		}
	}

	for path, lv := range map[string]string{
		"logging.level":              cfg.Logging.Level,
		"logging.telegram.min_level": cfg.Logging.Telegram.MinLevel,
	} {
		if strings.TrimSpace(lv) != "" && !logx.ValidLevel(lv) {
			errs = append(errs, fmt.Errorf("%s: unknown level %q", path, lv))
		}
	}
	if cfg.Logging.Telegram.Enabled && strings.TrimSpace(cfg.Telegram.GroupLog) == "" {
		errs = append(errs, errors.New("logging.telegram.enabled needs telegram.group_log"))
	}

	n := cfg.NotifierOrDefault()
	if n.Workers < 0 || n.QueueSize < 0 || n.RatePerSec < 0 || n.RetryMax < 0 {
		errs = append(errs, errors.New("notifier: negative values are not allowed"))
	}
	if _, err := ParseDurationField("notifier.retry_base", n.RetryBase); err != nil {
		errs = append(errs, err)
	}
	if _, err := ParseDurationField("notifier.retry_max_delay", n.RetryMaxDelay); err != nil {
		errs = append(errs, err)
	}

	st := cfg.StorageOrDefault()
	switch strings.ToLower(strings.TrimSpace(st.Driver)) {
	case "", "file", "json", "sqlite", "sqlite3":
		if strings.TrimSpace(st.Path) == "" {
			errs = append(errs, errors.New("storage.path is required"))
		}
	case "memory", "none":
	default:
		errs = append(errs, fmt.Errorf("storage.driver: unknown driver %q", st.Driver))
	}
	if _, err := ParseDurationField("storage.busy_timeout", st.BusyTimeout); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
