package config

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func writeFile(t *testing.T, name, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

const sampleYAML = `
telegram:
  token: "file-token"
  owner_user_ids: [1, 2]
  poll_timeout: 10s
logging:
  level: info
  console: true
reminders:
  at: "12:00"
  timezone: Europe/London
storage:
  driver: sqlite
  path: ./data/chorebot.db
`

func TestParseYAMLWithEnvOverrides(t *testing.T) {
	t.Parallel()
	m := NewConfigManager(writeFile(t, "config.yaml", sampleYAML))
	m.SetEnviron(map[string]string{
		"CHOREBOT_TELEGRAM_TOKEN": "env-token",
		"CHOREBOT_STORAGE_PATH":   "/var/lib/chorebot/state.db",
		"CHOREBOT_OWNER_IDS":      "7,8,9",
	})
	cfg, err := m.Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Telegram.Token != "env-token" {
		t.Fatalf("token = %q, want env override", cfg.Telegram.Token)
	}
	if diff := cmp.Diff([]int64{7, 8, 9}, cfg.Telegram.OwnerUserIDs); diff != "" {
		t.Fatalf("owners (-want +got):\n%s", diff)
	}
	want := StorageConfig{Driver: "sqlite", Path: "/var/lib/chorebot/state.db"}
	if diff := cmp.Diff(want, cfg.StorageOrDefault()); diff != "" {
		t.Fatalf("storage (-want +got):\n%s", diff)
	}
	if cfg.Reminders.Timezone != "Europe/London" || cfg.Reminders.At != "12:00" {
		t.Fatalf("reminders = %+v", cfg.Reminders)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if m.Get() != cfg {
		t.Fatal("Load did not commit")
	}
}

func TestParseRejectsUnknownFields(t *testing.T) {
	t.Parallel()
	m := NewConfigManager(writeFile(t, "config.json", `{"telegram":{"token":"x"},"plugins":{}}`))
	m.SetEnviron(map[string]string{})
	if _, err := m.Parse(); err == nil || !strings.Contains(err.Error(), "plugins") {
		t.Fatalf("Parse err = %v, want unknown field error", err)
	}

	m = NewConfigManager(writeFile(t, "config.json", `{"telegram":{"token":"x"}}{}`))
	m.SetEnviron(map[string]string{})
	if _, err := m.Parse(); err == nil {
		t.Fatal("expected trailing data error")
	}
}

func TestValidate(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		cfg  Config
		want string
	}{
		{"missing token", Config{}, "telegram.token"},
		{"bad poll timeout", Config{Telegram: TelegramConfig{Token: "x", PollTimeout: "soon"}}, "poll_timeout"},
		{"bad driver", Config{Telegram: TelegramConfig{Token: "x"}, Storage: &StorageConfig{Driver: "redis", Path: "x"}}, "storage.driver"},
		{"missing path", Config{Telegram: TelegramConfig{Token: "x"}, Storage: &StorageConfig{Driver: "file"}}, "storage.path"},
		{"bad group log", Config{Telegram: TelegramConfig{Token: "x", GroupLog: "@ops"}}, "group_log"},
		{"bad level", Config{Telegram: TelegramConfig{Token: "x"}, Logging: LoggingConfig{Level: "loud"}}, "logging.level"},
		{"chat log without target", Config{Telegram: TelegramConfig{Token: "x"}, Logging: LoggingConfig{Telegram: LoggingTelegram{Enabled: true}}}, "group_log"},
	}
	for _, tt := range tests {
		err := Validate(&tt.cfg)
		if err == nil || !strings.Contains(err.Error(), tt.want) {
			t.Fatalf("%s: err = %v, want mention of %q", tt.name, err, tt.want)
		}
	}
	ok := Config{Telegram: TelegramConfig{Token: "x"}, Storage: &StorageConfig{Driver: "memory"}}
	if err := Validate(&ok); err != nil {
		t.Fatalf("memory storage: %v", err)
	}
}

func TestSummarizeConfigChange(t *testing.T) {
	t.Parallel()
	oldCfg := &Config{Telegram: TelegramConfig{Token: "secret"}}
	newCfg := &Config{
		Telegram:  TelegramConfig{Token: "secret", OwnerUserIDs: []int64{1}},
		Reminders: RemindersConfig{At: "09:00"},
		Notifier:  &NotifierConfig{Enabled: true, Workers: 4},
	}
	changed, attrs := SummarizeConfigChange(oldCfg, newCfg)
	if diff := cmp.Diff([]string{"notifier", "reminders", "telegram"}, changed); diff != "" {
		t.Fatalf("changed (-want +got):\n%s", diff)
	}
	if len(attrs) == 0 {
		t.Fatal("expected attrs")
	}
	if got := RequiresRestart(oldCfg, newCfg); len(got) != 0 {
		t.Fatalf("RequiresRestart = %v, want none", got)
	}

	// An explicit notifier section equal to the defaults is not a change.
	def := DefaultNotifier()
	if changed, _ := SummarizeConfigChange(&Config{}, &Config{Notifier: &def}); len(changed) != 0 {
		t.Fatalf("default notifier reported as change: %v", changed)
	}
}

func TestWatchPublishesValidChanges(t *testing.T) {
	t.Parallel()
	path := writeFile(t, "config.json", `{"telegram":{"token":"x"},"reminders":{"at":"12:00"}}`)
	m := NewConfigManager(path)
	m.SetEnviron(map[string]string{})
	if _, err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	m.SetValidator(func(ctx context.Context, cfg *Config) error { return Validate(cfg) })
	ch := m.Subscribe(1)
	defer m.Unsubscribe(ch)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = m.Watch(ctx) }()
	time.Sleep(200 * time.Millisecond)

	// Invalid config (no token) is never published.
	if err := os.WriteFile(path, []byte(`{"telegram":{"token":""}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	time.Sleep(600 * time.Millisecond)
	if err := os.WriteFile(path, []byte(`{"telegram":{"token":"x"},"reminders":{"at":"08:15"}}`), 0o600); err != nil {
		t.Fatal(err)
	}

	select {
	case cfg := <-ch:
		if cfg.Reminders.At != "08:15" {
			t.Fatalf("published reminders.at = %q", cfg.Reminders.At)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("no config published")
	}
}
