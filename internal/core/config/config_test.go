package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDir_Defaults(t *testing.T) {
	t.Setenv(ServerURLEnv, "")
	cfg, err := LoadDir(t.TempDir())
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if cfg.ServerURL != "http://localhost:5000" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.MaxUploadBytes != 16*1024*1024 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.Poll.InitialDelay != 2*time.Second || cfg.Poll.Interval != 500*time.Millisecond || cfg.Poll.Timeout != 30*time.Second {
		t.Errorf("Poll = %+v", cfg.Poll)
	}
	if cfg.SuccessTTL != 5*time.Second {
		t.Errorf("SuccessTTL = %v", cfg.SuccessTTL)
	}
	if cfg.SummaryTemplate != DefaultSummaryTemplate {
		t.Errorf("SummaryTemplate = %q", cfg.SummaryTemplate)
	}
}

func TestLoadDir_TOMLAndTemplate(t *testing.T) {
	t.Setenv(ServerURLEnv, "")
	dir := t.TempDir()
	toml := `
server_url = "http://audio.internal:8080"
max_upload_bytes = 1048576
initial_delay = "1s"
poll_interval = "250ms"
poll_timeout = "10s"
success_ttl = "3s"
download_dir = "/tmp/audio"
log_level = "debug"
player_command = "mpv {url}"
`
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(toml), 0644); err != nil {
		t.Fatal(err)
	}
	tmpl := "<p>{{page}}: {{summary}}</p>\n"
	if err := os.WriteFile(filepath.Join(dir, "summary_template.html"), []byte(tmpl), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadDir(dir)
	if err != nil {
		t.Fatalf("LoadDir() error = %v", err)
	}
	if cfg.ServerURL != "http://audio.internal:8080" {
		t.Errorf("ServerURL = %q", cfg.ServerURL)
	}
	if cfg.MaxUploadBytes != 1048576 {
		t.Errorf("MaxUploadBytes = %d", cfg.MaxUploadBytes)
	}
	if cfg.Poll.InitialDelay != time.Second || cfg.Poll.Interval != 250*time.Millisecond || cfg.Poll.Timeout != 10*time.Second {
		t.Errorf("Poll = %+v", cfg.Poll)
	}
	if cfg.SuccessTTL != 3*time.Second {
		t.Errorf("SuccessTTL = %v", cfg.SuccessTTL)
	}
	if cfg.DownloadDir != "/tmp/audio" || cfg.LogLevel != "debug" {
		t.Errorf("DownloadDir = %q LogLevel = %q", cfg.DownloadDir, cfg.LogLevel)
	}
	if cfg.PlayerCommand != "mpv {url}" {
		t.Errorf("PlayerCommand = %q", cfg.PlayerCommand)
	}
	if cfg.SummaryTemplate != "<p>{{page}}: {{summary}}</p>" {
		t.Errorf("SummaryTemplate = %q", cfg.SummaryTemplate)
	}
	if cfg.LogFile != filepath.Join(dir, "pagecast.log") {
		t.Errorf("LogFile = %q", cfg.LogFile)
	}
}

func TestLoadDir_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "config.toml"), []byte(`poll_interval = "soon"`), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := LoadDir(dir); err == nil {
		t.Error("LoadDir() should reject an unparseable duration")
	}
}

func TestLoadDir_EnvOverride(t *testing.T) {
	t.Setenv(ServerURLEnv, "http://from-env:5000")
	cfg, err := LoadDir(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ServerURL != "http://from-env:5000" {
		t.Errorf("ServerURL = %q, want env override", cfg.ServerURL)
	}
}
