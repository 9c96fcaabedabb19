package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigFromEnvPath(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.json")
	content := `{
	  "channels": {"telegram": {"token": "file-token", "admin_chat_ids": [11, 22]}},
	  "relay": {"preferred_qualities": ["720p"], "timeout_seconds": 4},
	  "gateway": {"host": "0.0.0.0", "port": 18791},
	  "logging": {"format": "json", "level": "debug", "add_source": true}
	}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	t.Setenv("TELESH_CONFIG", path)

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("LoadConfig error: %v", err)
	}

	if cfg.Channels.Telegram.Token != "file-token" {
		t.Fatalf("telegram.token = %q, want %q", cfg.Channels.Telegram.Token, "file-token")
	}
	if got := cfg.Relay.Timeout(); got != 4*time.Second {
		t.Fatalf("relay timeout = %v, want 4s", got)
	}
	if cfg.Logging.Format != "json" {
		t.Fatalf("logging.format = %q, want %q", cfg.Logging.Format, "json")
	}
}

func TestLoadConfigInvalidEnvPath(t *testing.T) {
	t.Setenv("TELESH_CONFIG", filepath.Join(t.TempDir(), "missing.json"))

	if _, err := LoadConfig(); err == nil {
		t.Fatal("expected error for missing config path")
	}
}

func TestEnvOverrides(t *testing.T) {
	cfg := &Config{}
	t.Setenv(envBotToken, "env-token")
	t.Setenv(envBotAdmin, " 100 , 200 ")
	t.Setenv(envLogChannel, "-1001234")

	if err := applyEnvOverrides(cfg); err != nil {
		t.Fatalf("applyEnvOverrides error: %v", err)
	}

	if cfg.Channels.Telegram.Token != "env-token" {
		t.Fatalf("token = %q, want %q", cfg.Channels.Telegram.Token, "env-token")
	}
	if len(cfg.Channels.Telegram.AdminChatIDs) != 2 || cfg.Channels.Telegram.AdminChatIDs[0] != 100 {
		t.Fatalf("admin chat ids = %v, want [100 200]", cfg.Channels.Telegram.AdminChatIDs)
	}
	if cfg.Channels.Telegram.LogChannelID != -1001234 {
		t.Fatalf("log channel = %d, want -1001234", cfg.Channels.Telegram.LogChannelID)
	}
}

func TestEnvOverridesRejectBadAdminList(t *testing.T) {
	cfg := &Config{}
	t.Setenv(envBotAdmin, "100,abc")

	if err := applyEnvOverrides(cfg); err == nil {
		t.Fatal("expected error for non-numeric admin chat id")
	}
}

func TestLogDestination(t *testing.T) {
	tg := TelegramConfig{AdminChatIDs: []int64{7, 8}}
	if got := tg.LogDestination(); got != 7 {
		t.Fatalf("log destination = %d, want first admin 7", got)
	}

	tg.LogChannelID = -100
	if got := tg.LogDestination(); got != -100 {
		t.Fatalf("log destination = %d, want explicit channel -100", got)
	}

	if got := (TelegramConfig{}).LogDestination(); got != 0 {
		t.Fatalf("log destination = %d, want 0 when unconfigured", got)
	}
}

func TestRelayDefaults(t *testing.T) {
	relay := RelayConfig{}
	if got := relay.Timeout(); got != 9*time.Second {
		t.Fatalf("default timeout = %v, want 9s", got)
	}

	qualities := relay.Qualities()
	if len(qualities) != 2 || qualities[0] != "1080p" || qualities[1] != "1080p60" {
		t.Fatalf("default qualities = %v, want [1080p 1080p60]", qualities)
	}
}

func TestIsAdmin(t *testing.T) {
	tg := TelegramConfig{AdminChatIDs: []int64{5}}
	if !tg.IsAdmin(5) {
		t.Fatal("expected chat 5 to be admin")
	}
	if tg.IsAdmin(6) {
		t.Fatal("expected chat 6 to not be admin")
	}
}
