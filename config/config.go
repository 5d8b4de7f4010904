package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

type Config struct {
	// Server settings
	ServerPort   string        `json:"server_port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
	Debug        bool          `json:"debug"`

	// Application paths
	LogDir   string `json:"log_dir"`
	LogLevel string `json:"log_level"`

	RateLimit  RateLimitConfig  `json:"rate_limit"`
	Database   DatabaseConfig   `json:"database"`
	Classifier ClassifierConfig `json:"classifier"`
	Defaults   FormDefaults     `json:"defaults"`
	Spaces     SpacesConfig     `json:"spaces"`

	SentryDSN   string `json:"sentry_dsn"`
	Environment string `json:"environment"`
	Version     string `json:"version"`

	// Request and shutdown timeouts
	RequestTimeout  time.Duration `json:"request_timeout"`
	ShutdownTimeout time.Duration `json:"shutdown_timeout"`
}

type DatabaseConfig struct {
	Path           string `json:"path"`
	MaxConnections int    `json:"max_connections"`
}

type RateLimitConfig struct {
	Enabled           bool `json:"enabled"`
	RequestsPerMinute int  `json:"requests_per_minute"`
	BurstSize         int  `json:"burst_size"`
}

type ClassifierConfig struct {
	PythonPath  string        `json:"python_path"`
	ScriptsPath string        `json:"scripts_path"`
	Script      string        `json:"script"`
	Model       string        `json:"model"`
	BatchSize   int           `json:"batch_size"`
	Timeout     time.Duration `json:"timeout"`
	Environment []string      `json:"environment"`
}

// FormDefaults are the values pre-filled in the analysis form.
type FormDefaults struct {
	Themes        string `json:"themes"`
	SubtitlesPath string `json:"subtitles_path"`
	SavePath      string `json:"save_path"`
}

type SpacesConfig struct {
	AccessKey string `json:"-"`
	SecretKey string `json:"-"`
	Region    string `json:"region"`
	Endpoint  string `json:"endpoint"`
	Bucket    string `json:"bucket"`
	Prefix    string `json:"prefix"`
}

func (s SpacesConfig) Enabled() bool {
	return s.Bucket != ""
}

// fileConfig is the optional TOML settings file. Environment variables win over it.
type fileConfig struct {
	Server struct {
		Port  string `toml:"port"`
		Debug bool   `toml:"debug"`
	} `toml:"server"`
	Log struct {
		Dir   string `toml:"dir"`
		Level string `toml:"level"`
	} `toml:"log"`
	Database struct {
		Path string `toml:"path"`
	} `toml:"database"`
	Classifier struct {
		PythonPath  string `toml:"python_path"`
		ScriptsPath string `toml:"scripts_path"`
		Model       string `toml:"model"`
		BatchSize   int    `toml:"batch_size"`
		Timeout     string `toml:"timeout"`
	} `toml:"classifier"`
	Defaults struct {
		Themes        string `toml:"themes"`
		SubtitlesPath string `toml:"subtitles_path"`
		SavePath      string `toml:"save_path"`
	} `toml:"defaults"`
}

// LoadDotEnv loads a local .env file into the environment without overriding
// variables that are already set. A missing file is not an error.
func LoadDotEnv(paths ...string) {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if _, err := os.Stat(p); err != nil {
			continue
		}
		if err := godotenv.Load(p); err != nil {
			logrus.WithError(err).WithField("path", p).Warn("Failed to load env file")
			continue
		}
		logrus.WithField("path", p).Debug("Loaded env file")
	}
}

// Load reads configuration from an optional TOML file and environment variables.
func Load(path string) (*Config, error) {
	var fc fileConfig
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, errors.Wrapf(err, "read config file %s", path)
		}
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, errors.Wrapf(err, "parse config file %s", path)
		}
	}

	fileTimeout := 30 * time.Minute
	if fc.Classifier.Timeout != "" {
		d, err := time.ParseDuration(fc.Classifier.Timeout)
		if err != nil {
			return nil, errors.Wrap(err, "parse classifier timeout")
		}
		fileTimeout = d
	}

	cfg := &Config{
		ServerPort:   getEnv("SERVER_PORT", orDefault(fc.Server.Port, "8080")),
		ReadTimeout:  getEnvAsDuration("READ_TIMEOUT", 15*time.Second),
		WriteTimeout: getEnvAsDuration("WRITE_TIMEOUT", 35*time.Minute),
		IdleTimeout:  getEnvAsDuration("IDLE_TIMEOUT", 60*time.Second),
		Debug:        getEnvAsBool("DEBUG", fc.Server.Debug),

		LogDir:   getEnv("LOG_DIR", orDefault(fc.Log.Dir, "./logs")),
		LogLevel: getEnv("LOG_LEVEL", orDefault(fc.Log.Level, "info")),

		SentryDSN:   getEnv("SENTRY_DSN", ""),
		Environment: getEnv("ENV", "development"),
		Version:     getEnv("VERSION", "1.0.0"),

		RequestTimeout:  getEnvAsDuration("REQUEST_TIMEOUT", 30*time.Minute),
		ShutdownTimeout: getEnvAsDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		RateLimit: RateLimitConfig{
			Enabled:           getEnvAsBool("RATE_LIMIT_ENABLED", true),
			RequestsPerMinute: getEnvAsInt("RATE_LIMIT_RPM", 30),
			BurstSize:         getEnvAsInt("RATE_LIMIT_BURST", 5),
		},

		Database: DatabaseConfig{
			Path:           getEnv("DB_PATH", orDefault(fc.Database.Path, "./data/themes.db")),
			MaxConnections: getEnvAsInt("DB_MAX_CONNECTIONS", 10),
		},

		Classifier: ClassifierConfig{
			PythonPath:  getEnv("PYTHON_PATH", orDefault(fc.Classifier.PythonPath, "python3")),
			ScriptsPath: getEnv("SCRIPTS_PATH", orDefault(fc.Classifier.ScriptsPath, "./scripts")),
			Script:      getEnv("CLASSIFIER_SCRIPT", "theme_classifier.py"),
			Model:       getEnv("CLASSIFIER_MODEL", orDefault(fc.Classifier.Model, "facebook/bart-large-mnli")),
			BatchSize:   getEnvAsInt("CLASSIFIER_BATCH_SIZE", orDefaultInt(fc.Classifier.BatchSize, 20)),
			Timeout:     getEnvAsDuration("CLASSIFIER_TIMEOUT", fileTimeout),
			Environment: getEnvAsStringSlice("CLASSIFIER_ENV", nil),
		},

		Defaults: FormDefaults{
			Themes:        getEnv("DEFAULT_THEMES", orDefault(fc.Defaults.Themes, "action,adventure,friendship")),
			SubtitlesPath: getEnv("DEFAULT_SUBTITLES_PATH", orDefault(fc.Defaults.SubtitlesPath, "/data/Subtitles")),
			SavePath:      getEnv("DEFAULT_SAVE_PATH", orDefault(fc.Defaults.SavePath, "output/themes.csv")),
		},

		Spaces: SpacesConfig{
			AccessKey: getEnv("SPACES_ACCESS_KEY", ""),
			SecretKey: getEnv("SPACES_SECRET_KEY", ""),
			Region:    getEnv("SPACES_REGION", "us-east-1"),
			Endpoint:  getEnv("SPACES_ENDPOINT", ""),
			Bucket:    getEnv("SPACES_BUCKET", ""),
			Prefix:    getEnv("SPACES_PREFIX", "themes"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.ServerPort == "" {
		return errors.New("server port is required")
	}
	if err := validateTimeouts(c); err != nil {
		return err
	}
	if c.Classifier.BatchSize <= 0 {
		return errors.New("classifier batch size must be positive")
	}
	if c.Spaces.Enabled() && (c.Spaces.AccessKey == "" || c.Spaces.SecretKey == "") {
		return errors.New("spaces credentials are required when a bucket is configured")
	}
	return validatePaths(c)
}

func validatePaths(c *Config) error {
	paths := []struct {
		path string
		name string
	}{
		{c.LogDir, "log directory"},
		{filepath.Dir(c.Database.Path), "database directory"},
	}

	for _, p := range paths {
		if p.path == "" {
			return fmt.Errorf("%s is required", p.name)
		}
		if err := os.MkdirAll(p.path, 0755); err != nil {
			return fmt.Errorf("failed to create %s: %w", p.name, err)
		}
	}

	return nil
}

func validateTimeouts(c *Config) error {
	if c.ReadTimeout <= 0 {
		return errors.New("read timeout must be positive")
	}
	if c.WriteTimeout <= 0 {
		return errors.New("write timeout must be positive")
	}
	if c.IdleTimeout <= 0 {
		return errors.New("idle timeout must be positive")
	}
	if c.Classifier.Timeout <= 0 {
		return errors.New("classifier timeout must be positive")
	}
	return nil
}

func orDefault(value, fallback string) string {
	if strings.TrimSpace(value) != "" {
		return value
	}
	return fallback
}

func orDefaultInt(value, fallback int) int {
	if value != 0 {
		return value
	}
	return fallback
}

// Helper functions for reading environment variables
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value, exists := os.LookupEnv(key); exists {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid integer, using default")
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value, exists := os.LookupEnv(key); exists {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid boolean, using default")
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value, exists := os.LookupEnv(key); exists {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
		logrus.WithFields(logrus.Fields{
			"key":          key,
			"value":        value,
			"defaultValue": defaultValue,
		}).Warn("Invalid duration, using default")
	}
	return defaultValue
}

func getEnvAsStringSlice(key string, defaultValue []string) []string {
	if value, exists := os.LookupEnv(key); exists {
		if value = strings.TrimSpace(value); value != "" {
			return strings.Split(value, ",")
		}
	}
	return defaultValue
}
