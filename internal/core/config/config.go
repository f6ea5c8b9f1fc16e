package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/neilberkman/pagecast/internal/core/models"
	"github.com/neilberkman/pagecast/internal/core/poll"
	"github.com/neilberkman/pagecast/internal/core/status"
	"github.com/neilberkman/pagecast/pkg/pdfaudio"
)

// DefaultSummaryTemplate renders the summary block. Mustache double braces
// HTML-escape their values.
const DefaultSummaryTemplate = `<p><strong>Summary of Page {{page}}:</strong></p><p>{{summary}}</p>`

// DefaultSummaryErrorTemplate renders a failed summary inline
const DefaultSummaryErrorTemplate = `<p class="error">Error: {{message}}</p>`

// ServerURLEnv overrides the configured server
const ServerURLEnv = "PAGECAST_SERVER_URL"

type Config struct {
	ServerURL            string
	MaxUploadBytes       int64
	Poll                 poll.Config
	SuccessTTL           time.Duration
	HTTPTimeout          time.Duration
	DownloadDir          string
	LogLevel             string
	LogFile              string // Used while the TUI owns the terminal
	PlayerCommand        string
	SummaryTemplate      string
	SummaryErrorTemplate string
}

type tomlConfig struct {
	ServerURL      string `toml:"server_url"`
	MaxUploadBytes int64  `toml:"max_upload_bytes"`
	InitialDelay   string `toml:"initial_delay"`
	PollInterval   string `toml:"poll_interval"`
	PollTimeout    string `toml:"poll_timeout"`
	SuccessTTL     string `toml:"success_ttl"`
	HTTPTimeout    string `toml:"http_timeout"`
	DownloadDir    string `toml:"download_dir"`
	LogLevel       string `toml:"log_level"`
	PlayerCommand  string `toml:"player_command"`
}

// Default returns the built-in configuration
func Default() *Config {
	return &Config{
		ServerURL:            pdfaudio.DefaultBaseURL,
		MaxUploadBytes:       models.DefaultMaxUploadBytes,
		Poll:                 poll.DefaultConfig(),
		SuccessTTL:           status.DefaultSuccessTTL,
		HTTPTimeout:          60 * time.Second,
		DownloadDir:          ".",
		LogLevel:             "info",
		SummaryTemplate:      DefaultSummaryTemplate,
		SummaryErrorTemplate: DefaultSummaryErrorTemplate,
	}
}

// Dir returns ~/.config/pagecast
func Dir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "pagecast"), nil
}

// Load reads config from ~/.config/pagecast/
func Load() (*Config, error) {
	dir, err := Dir()
	if err != nil {
		cfg := Default()
		applyEnv(cfg)
		return cfg, nil // Use defaults
	}
	return LoadDir(dir)
}

// LoadDir reads config.toml and summary_template.html from dir. Missing files
// fall back to defaults; a malformed config.toml is an error.
func LoadDir(dir string) (*Config, error) {
	cfg := Default()
	cfg.LogFile = filepath.Join(dir, "pagecast.log")

	tomlPath := filepath.Join(dir, "config.toml")
	if _, err := os.Stat(tomlPath); err == nil {
		var tc tomlConfig
		if _, err := toml.DecodeFile(tomlPath, &tc); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", tomlPath, err)
		}
		if err := cfg.apply(tc); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", tomlPath, err)
		}
	}

	// If custom summary template exists, use it
	if data, err := os.ReadFile(filepath.Join(dir, "summary_template.html")); err == nil {
		if tmpl := strings.TrimSpace(string(data)); tmpl != "" {
			cfg.SummaryTemplate = tmpl
		}
	}

	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv(ServerURLEnv)); v != "" {
		cfg.ServerURL = v
	}
}

func (c *Config) apply(tc tomlConfig) error {
	if tc.ServerURL != "" {
		c.ServerURL = tc.ServerURL
	}
	if tc.MaxUploadBytes > 0 {
		c.MaxUploadBytes = tc.MaxUploadBytes
	}
	if tc.DownloadDir != "" {
		c.DownloadDir = expandHome(tc.DownloadDir)
	}
	if tc.LogLevel != "" {
		c.LogLevel = tc.LogLevel
	}
	if tc.PlayerCommand != "" {
		c.PlayerCommand = tc.PlayerCommand
	}

	durations := []struct {
		name  string
		value string
		dst   *time.Duration
	}{
		{"initial_delay", tc.InitialDelay, &c.Poll.InitialDelay},
		{"poll_interval", tc.PollInterval, &c.Poll.Interval},
		{"poll_timeout", tc.PollTimeout, &c.Poll.Timeout},
		{"success_ttl", tc.SuccessTTL, &c.SuccessTTL},
		{"http_timeout", tc.HTTPTimeout, &c.HTTPTimeout},
	}
	for _, d := range durations {
		if d.value == "" {
			continue
		}
		v, err := time.ParseDuration(d.value)
		if err != nil {
			return fmt.Errorf("%s: %w", d.name, err)
		}
		if v < 0 {
			return fmt.Errorf("%s: must not be negative", d.name)
		}
		*d.dst = v
	}
	return nil
}

func expandHome(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
