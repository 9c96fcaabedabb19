package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	envBotToken   = "BOT_TOKEN"
	envBotAdmin   = "BOT_ADMIN"
	envLogChannel = "LOG_CHANNEL"
)

const (
	defaultTimeoutSeconds = 9
	defaultStatusPort     = 18791
)

// defaultQualities matches the download policy: a configured resolution
// label first, then the best remaining progressive format.
var defaultQualities = []string{"1080p", "1080p60"}

// Config is the root runtime configuration loaded from config.json.
type Config struct {
	Channels ChannelsConfig `json:"channels"`
	Relay    RelayConfig    `json:"relay"`
	Gateway  GatewayConfig  `json:"gateway"`
	Logging  LoggingConfig  `json:"logging,omitempty"`
}

// LoggingConfig controls structured log output format and verbosity.
type LoggingConfig struct {
	Format    string `json:"format,omitempty"`
	Level     string `json:"level,omitempty"`
	AddSource bool   `json:"add_source,omitempty"`
}

// ChannelsConfig stores transport adapter settings.
type ChannelsConfig struct {
	Telegram TelegramConfig `json:"telegram"`
}

// TelegramConfig configures the Telegram channel integration.
type TelegramConfig struct {
	Token        string  `json:"token"`
	AdminChatIDs []int64 `json:"admin_chat_ids,omitempty"`
	LogChannelID int64   `json:"log_channel_id,omitempty"`
}

// IsAdmin reports whether a chat id belongs to a configured operator.
func (c TelegramConfig) IsAdmin(chatID int64) bool {
	return slices.Contains(c.AdminChatIDs, chatID)
}

// LogDestination resolves the audit forwarding target chat.
//
// An explicit log channel wins; otherwise the first admin chat receives
// audit copies. Zero means auditing is disabled.
func (c TelegramConfig) LogDestination() int64 {
	if c.LogChannelID != 0 {
		return c.LogChannelID
	}
	if len(c.AdminChatIDs) > 0 {
		return c.AdminChatIDs[0]
	}

	return 0
}

// RelayConfig controls stream selection and download limits.
type RelayConfig struct {
	PreferredQualities []string `json:"preferred_qualities,omitempty"`
	TimeoutSeconds     int      `json:"timeout_seconds,omitempty"`
	TempDir            string   `json:"temp_dir,omitempty"`
}

// Timeout returns the wall-clock budget for one pipeline invocation.
func (c RelayConfig) Timeout() time.Duration {
	seconds := c.TimeoutSeconds
	if seconds <= 0 {
		seconds = defaultTimeoutSeconds
	}

	return time.Duration(seconds) * time.Second
}

// Qualities returns the preferred quality labels in selection order.
func (c RelayConfig) Qualities() []string {
	if len(c.PreferredQualities) == 0 {
		return defaultQualities
	}

	return c.PreferredQualities
}

// GatewayConfig configures status HTTP server bind settings.
type GatewayConfig struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// StatusPort returns the status server port, defaulting when unset.
func (c GatewayConfig) StatusPort() int {
	if c.Port <= 0 {
		return defaultStatusPort
	}

	return c.Port
}

// LoadConfig loads .env, resolves an optional config.json, and applies
// environment overrides on top.
func LoadConfig() (*Config, error) {
	// A missing .env is fine; deployments may use real environment variables.
	_ = godotenv.Load()

	var cfg Config

	configPath, err := findConfigPath()
	if err != nil {
		return nil, err
	}

	if configPath != "" {
		content, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := json.Unmarshal(content, &cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	if err := applyEnvOverrides(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// applyEnvOverrides injects env-driven settings on top of file config.
func applyEnvOverrides(cfg *Config) error {
	if cfg == nil {
		return nil
	}

	if token := strings.TrimSpace(os.Getenv(envBotToken)); token != "" {
		cfg.Channels.Telegram.Token = token
	}

	if rawAdmins := strings.TrimSpace(os.Getenv(envBotAdmin)); rawAdmins != "" {
		admins, err := parseChatIDs(rawAdmins)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envBotAdmin, err)
		}
		cfg.Channels.Telegram.AdminChatIDs = admins
	}

	if rawChannel := strings.TrimSpace(os.Getenv(envLogChannel)); rawChannel != "" {
		channelID, err := strconv.ParseInt(rawChannel, 10, 64)
		if err != nil {
			return fmt.Errorf("parse %s: %w", envLogChannel, err)
		}
		cfg.Channels.Telegram.LogChannelID = channelID
	}

	return nil
}

// parseChatIDs splits comma-separated chat ids into a compact slice.
func parseChatIDs(input string) ([]int64, error) {
	parts := strings.Split(input, ",")
	clean := make([]int64, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed == "" {
			continue
		}

		id, err := strconv.ParseInt(trimmed, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid chat id %q", trimmed)
		}
		clean = append(clean, id)
	}

	return slices.Clip(clean), nil
}

// findConfigPath resolves the active config file location.
//
// Precedence is TELESH_CONFIG first, then cwd-local fallback paths. An
// empty path with nil error means no config file: env-only deployment.
func findConfigPath() (string, error) {
	if value := strings.TrimSpace(os.Getenv("TELESH_CONFIG")); value != "" {
		if info, err := os.Stat(value); err == nil && !info.IsDir() {
			return value, nil
		}
		return "", fmt.Errorf("TELESH_CONFIG does not point to a file: %s", value)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get current working directory: %w", err)
	}

	candidates := []string{
		filepath.Join(cwd, "config.json"),
		filepath.Join(cwd, "config", "config.json"),
	}

	for _, candidate := range candidates {
		if info, err := os.Stat(candidate); err == nil && !info.IsDir() {
			return candidate, nil
		}
	}

	return "", nil
}
