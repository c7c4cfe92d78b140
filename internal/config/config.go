package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"gopkg.in/yaml.v3"
)

// DefaultPath is used when neither a flag nor CONFIG_PATH names a file.
const DefaultPath = "configs/config.yaml"

// Config holds all application configuration.
type Config struct {
	Backend struct {
		BaseURL        string  `yaml:"base_url"`
		APIToken       string  `yaml:"api_token"`
		Timeout        string  `yaml:"timeout"`
		RequestsPerSec float64 `yaml:"requests_per_sec"`
		Mock           bool    `yaml:"mock"` // serve built-in demo picks instead of calling base_url
	} `yaml:"backend"`
	Modes    []string `yaml:"modes"`
	Schedule struct {
		PollCron  string `yaml:"poll_cron"`
		ResetCron string `yaml:"reset_cron"`
	} `yaml:"schedule"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
	State struct {
		Path string `yaml:"path"`
	} `yaml:"state"`
	Server struct {
		Port         int `yaml:"port"`
		HistoryLimit int `yaml:"history_limit"`
	} `yaml:"server"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
	Proxy string `yaml:"proxy"`
}

// ResolvePath picks the config file path: explicit flag, CONFIG_PATH, default.
func ResolvePath(flagPath string) string {
	if flagPath != "" {
		return flagPath
	}
	if v := os.Getenv("CONFIG_PATH"); v != "" {
		return v
	}
	return DefaultPath
}

// Load reads .env and the YAML file, then applies environment variable
// overrides and defaults. A missing file is not an error.
func Load(path string) (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("BACKEND_BASE_URL"); v != "" {
		cfg.Backend.BaseURL = v
	}
	if v := os.Getenv("BACKEND_API_TOKEN"); v != "" {
		cfg.Backend.APIToken = v
	}
	if v := os.Getenv("BACKEND_MOCK"); v != "" {
		if mock, err := strconv.ParseBool(v); err == nil {
			cfg.Backend.Mock = mock
		}
	}
	if v := os.Getenv("PICK_MODES"); v != "" {
		cfg.Modes = splitList(v)
	}
	if v := os.Getenv("POLL_CRON"); v != "" {
		cfg.Schedule.PollCron = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("STATE_PATH"); v != "" {
		cfg.State.Path = v
	}
	if v := os.Getenv("SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.Proxy = v
	}

	// Defaults
	if len(cfg.Modes) == 0 {
		cfg.Modes = []string{"scalping", "intraday", "futures", "swing"}
	}
	for i, m := range cfg.Modes {
		cfg.Modes[i] = strings.ToLower(strings.TrimSpace(m))
	}
	if cfg.Schedule.PollCron == "" {
		cfg.Schedule.PollCron = "0 */5 9-15 * * 1-5"
	}
	if cfg.Schedule.ResetCron == "" {
		cfg.Schedule.ResetCron = "0 0 4 * * *"
	}
	if cfg.Backend.Timeout == "" {
		cfg.Backend.Timeout = "15s"
	}
	if cfg.Backend.RequestsPerSec == 0 {
		cfg.Backend.RequestsPerSec = 5
	}
	if cfg.Database.SQLitePath == "" {
		cfg.Database.SQLitePath = "data/picksentinel.db"
	}
	if cfg.State.Path == "" {
		cfg.State.Path = "data/alert_state.db"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Server.HistoryLimit == 0 {
		cfg.Server.HistoryLimit = 100
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}

	return cfg, nil
}

// Validate checks the fields the daemon needs.
func (c *Config) Validate() error {
	if c.Backend.BaseURL == "" && !c.Backend.Mock {
		return fmt.Errorf("backend.base_url is required unless backend.mock is set")
	}
	if len(c.Modes) == 0 {
		return fmt.Errorf("modes must not be empty")
	}
	for _, m := range c.Modes {
		if m == "" {
			return fmt.Errorf("modes must not contain empty entries")
		}
	}
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Backend.RequestsPerSec < 0 {
		return fmt.Errorf("backend.requests_per_sec must not be negative")
	}
	if _, err := time.ParseDuration(c.Backend.Timeout); err != nil {
		return fmt.Errorf("backend.timeout: %w", err)
	}
	parser := cron.NewParser(cron.Second | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)
	if _, err := parser.Parse(c.Schedule.PollCron); err != nil {
		return fmt.Errorf("schedule.poll_cron: %w", err)
	}
	if _, err := parser.Parse(c.Schedule.ResetCron); err != nil {
		return fmt.Errorf("schedule.reset_cron: %w", err)
	}
	if c.Telegram.BotToken != "" {
		if _, err := c.TelegramChatID(); err != nil {
			return err
		}
	}
	return nil
}

// RequestTimeout returns the parsed backend timeout.
func (c *Config) RequestTimeout() time.Duration {
	d, err := time.ParseDuration(c.Backend.Timeout)
	if err != nil {
		return 15 * time.Second
	}
	return d
}

// TelegramEnabled reports whether a bot token is configured.
func (c *Config) TelegramEnabled() bool { return c.Telegram.BotToken != "" }

// TelegramChatID parses the configured chat id.
func (c *Config) TelegramChatID() (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(c.Telegram.ChatID), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("telegram.chat_id must be numeric: %q", c.Telegram.ChatID)
	}
	return id, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
