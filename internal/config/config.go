package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	DefaultBackendURL = "http://127.0.0.1:8765"
	DefaultEventURL   = "ws://127.0.0.1:8765/ws"
)

// Config holds runtime settings for every pointer command.
type Config struct {
	BackendURL string `yaml:"backend_url"`
	EventURL   string `yaml:"event_url"`
	LogLevel   string `yaml:"log_level"`
	StateDir   string `yaml:"state_dir"`
	// Host selects the overlay host: "tmux", "inline" or "auto".
	Host string `yaml:"host"`

	Channel ChannelConfig `yaml:"channel"`
	Overlay OverlayConfig `yaml:"overlay"`
	Toast   ToastConfig   `yaml:"toast"`

	// RequestsPerSecond caps calls to the local backend; 0 disables the limiter.
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
}

// ChannelConfig controls the event channel reconnect policy.
type ChannelConfig struct {
	InitialDelay   time.Duration `yaml:"initial_delay"`
	ReconnectDelay time.Duration `yaml:"reconnect_delay"`
	MaxAttempts    int           `yaml:"max_attempts"`
}

// OverlayConfig controls the overlay window.
type OverlayConfig struct {
	PhraseInterval time.Duration `yaml:"phrase_interval"`
	AutoDismiss    time.Duration `yaml:"auto_dismiss"`
	// PopupWidth and PopupHeight size the tmux popup, in cells.
	PopupWidth  int `yaml:"popup_width"`
	PopupHeight int `yaml:"popup_height"`
}

// ToastConfig controls notification expiry.
type ToastConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

// Default returns the built-in configuration.
func Default() *Config {
	stateDir := ".pointer"
	if home, err := os.UserHomeDir(); err == nil {
		stateDir = filepath.Join(home, ".pointer")
	}
	return &Config{
		BackendURL: DefaultBackendURL,
		EventURL:   DefaultEventURL,
		LogLevel:   "info",
		StateDir:   stateDir,
		Host:       "auto",
		Channel: ChannelConfig{
			InitialDelay:   500 * time.Millisecond,
			ReconnectDelay: 2 * time.Second,
			MaxAttempts:    10,
		},
		Overlay: OverlayConfig{
			PhraseInterval: 2 * time.Second,
			AutoDismiss:    2 * time.Second,
			PopupWidth:     72,
			PopupHeight:    9,
		},
		Toast: ToastConfig{
			TTL: 3 * time.Second,
		},
		RequestsPerSecond: 20,
		RequestTimeout:    2 * time.Minute,
	}
}

// DefaultPath returns the user config file location.
func DefaultPath() (string, error) {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to get config directory: %w", err)
	}
	return filepath.Join(dir, "pointer", "config.yaml"), nil
}

// Load reads the config file at path (or the default location when path is
// empty) and applies environment overrides. A missing file is not an error.
func Load(path string) (*Config, error) {
	explicit := path != ""
	if !explicit {
		p, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = p
	}

	cfg := Default()
	raw, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		}
	case errors.Is(err, os.ErrNotExist) && !explicit:
	default:
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	cfg.applyEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("POINTER_BACKEND_URL"); v != "" {
		c.BackendURL = v
	}
	if v := os.Getenv("POINTER_WS_URL"); v != "" {
		c.EventURL = v
	}
	if v := os.Getenv("POINTER_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := os.Getenv("POINTER_STATE_DIR"); v != "" {
		c.StateDir = v
	}
	if v := os.Getenv("POINTER_HOST"); v != "" {
		c.Host = v
	}
}

// Validate rejects settings the rest of the program cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.BackendURL) == "" {
		return errors.New("backend_url must not be empty")
	}
	if strings.TrimSpace(c.EventURL) == "" {
		return errors.New("event_url must not be empty")
	}
	if c.Channel.MaxAttempts < 0 {
		return fmt.Errorf("channel.max_attempts must be >= 0, got %d", c.Channel.MaxAttempts)
	}
	if c.Channel.ReconnectDelay <= 0 {
		return errors.New("channel.reconnect_delay must be positive")
	}
	if c.Overlay.PhraseInterval <= 0 {
		return errors.New("overlay.phrase_interval must be positive")
	}
	switch c.Host {
	case "auto", "tmux", "inline":
	default:
		return fmt.Errorf("unknown host %q (want auto, tmux or inline)", c.Host)
	}
	if _, err := ParseLevel(c.LogLevel); err != nil {
		return err
	}
	return nil
}

// ParseLevel maps a config log level onto slog.
func ParseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(s))); err != nil {
		return slog.LevelInfo, fmt.Errorf("invalid log level %q: %w", s, err)
	}
	return level, nil
}

// HistoryPath is the DuckDB file holding finished overlay sessions.
func (c *Config) HistoryPath() string {
	return filepath.Join(c.StateDir, "history.duckdb")
}

// HandoffPath is where the main window leaves the hotkey context for the overlay.
func (c *Config) HandoffPath() string {
	return filepath.Join(c.StateDir, "overlay-context.json")
}

// LogPath is the log file used while a TUI owns the terminal.
func (c *Config) LogPath() string {
	return filepath.Join(c.StateDir, "logs", "pointer.log")
}
