package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFromEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("READ_TIMEOUT", "10s")
	t.Setenv("WRITE_TIMEOUT", "20s")
	t.Setenv("IDLE_TIMEOUT", "30s")
	t.Setenv("LOG_DIR", filepath.Join(dir, "logs"))
	t.Setenv("DB_PATH", filepath.Join(dir, "db", "themes.db"))
	t.Setenv("CLASSIFIER_TIMEOUT", "5m")
	t.Setenv("CLASSIFIER_MODEL", "valhalla/distilbart-mnli-12-1")
	t.Setenv("RATE_LIMIT_RPM", "10")
	t.Setenv("DEFAULT_THEMES", "betrayal,hope")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "9090" {
		t.Errorf("expected 9090, got %s", cfg.ServerPort)
	}
	if cfg.ReadTimeout != 10*time.Second {
		t.Errorf("expected 10s, got %s", cfg.ReadTimeout)
	}
	if cfg.WriteTimeout != 20*time.Second {
		t.Errorf("expected 20s, got %s", cfg.WriteTimeout)
	}
	if cfg.IdleTimeout != 30*time.Second {
		t.Errorf("expected 30s, got %s", cfg.IdleTimeout)
	}
	if cfg.Classifier.Timeout != 5*time.Minute {
		t.Errorf("expected 5m, got %s", cfg.Classifier.Timeout)
	}
	if cfg.Classifier.Model != "valhalla/distilbart-mnli-12-1" {
		t.Errorf("unexpected model %s", cfg.Classifier.Model)
	}
	if cfg.RateLimit.RequestsPerMinute != 10 {
		t.Errorf("expected 10, got %d", cfg.RateLimit.RequestsPerMinute)
	}
	if cfg.Defaults.Themes != "betrayal,hope" {
		t.Errorf("expected betrayal,hope, got %s", cfg.Defaults.Themes)
	}
	if cfg.Defaults.SavePath != "output/themes.csv" {
		t.Errorf("expected default save path, got %s", cfg.Defaults.SavePath)
	}
	if _, err := os.Stat(filepath.Join(dir, "logs")); err != nil {
		t.Errorf("expected log dir to be created: %v", err)
	}
}

func TestLoadFromFileWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "themes.toml")
	content := `
[server]
port = "7070"

[log]
dir = "` + filepath.ToSlash(filepath.Join(dir, "logs")) + `"

[database]
path = "` + filepath.ToSlash(filepath.Join(dir, "themes.db")) + `"

[classifier]
model = "from-file"
batch_size = 8
timeout = "2m"

[defaults]
subtitles_path = "/srv/subs"
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("CLASSIFIER_MODEL", "from-env")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.ServerPort != "7070" {
		t.Errorf("expected port from file, got %s", cfg.ServerPort)
	}
	if cfg.Classifier.Model != "from-env" {
		t.Errorf("expected env to override file, got %s", cfg.Classifier.Model)
	}
	if cfg.Classifier.BatchSize != 8 {
		t.Errorf("expected batch size 8, got %d", cfg.Classifier.BatchSize)
	}
	if cfg.Classifier.Timeout != 2*time.Minute {
		t.Errorf("expected 2m, got %s", cfg.Classifier.Timeout)
	}
	if cfg.Defaults.SubtitlesPath != "/srv/subs" {
		t.Errorf("expected /srv/subs, got %s", cfg.Defaults.SubtitlesPath)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.toml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	dir := t.TempDir()
	valid := func() *Config {
		return &Config{
			ServerPort:   "8080",
			ReadTimeout:  time.Second,
			WriteTimeout: time.Second,
			IdleTimeout:  time.Second,
			LogDir:       filepath.Join(dir, "logs"),
			Database:     DatabaseConfig{Path: filepath.Join(dir, "themes.db")},
			Classifier:   ClassifierConfig{BatchSize: 1, Timeout: time.Second},
		}
	}

	if err := valid().Validate(); err != nil {
		t.Fatalf("expected valid config, got %v", err)
	}

	tests := []struct {
		name   string
		mutate func(c *Config)
	}{
		{"missing port", func(c *Config) { c.ServerPort = "" }},
		{"zero read timeout", func(c *Config) { c.ReadTimeout = 0 }},
		{"zero classifier timeout", func(c *Config) { c.Classifier.Timeout = 0 }},
		{"zero batch size", func(c *Config) { c.Classifier.BatchSize = 0 }},
		{"bucket without credentials", func(c *Config) { c.Spaces.Bucket = "results" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestLoadDotEnvDoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	if err := os.WriteFile(path, []byte("YT_THEMES_TEST_A=from-file\nYT_THEMES_TEST_B=from-file\n"), 0644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("YT_THEMES_TEST_A", "from-env")
	t.Cleanup(func() { os.Unsetenv("YT_THEMES_TEST_B") })

	LoadDotEnv(path, filepath.Join(dir, "missing.env"))

	if got := os.Getenv("YT_THEMES_TEST_A"); got != "from-env" {
		t.Errorf("expected existing env to win, got %s", got)
	}
	if got := os.Getenv("YT_THEMES_TEST_B"); got != "from-file" {
		t.Errorf("expected value from .env, got %s", got)
	}
}
