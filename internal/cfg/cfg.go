package cfg

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"churn-predictor/internal/common"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"
)

type Settings struct {
	ListenAddr      string
	ModelPath       string
	TargetColumn    string
	SchemaMode      string
	MaxUploadBytes  int64
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	LogLevel        string
	LogFormat       string
	RateLimit       float64 // /predict requests per second, 0 disables
	RateBurst       int
}

type ConfigFile struct {
	Server struct {
		ListenAddr      string  `yaml:"listenAddr"`
		ReadTimeout     string  `yaml:"readTimeout"`
		WriteTimeout    string  `yaml:"writeTimeout"`
		ShutdownTimeout string  `yaml:"shutdownTimeout"`
		MaxUploadBytes  int64   `yaml:"maxUploadBytes"`
		RateLimit       float64 `yaml:"rateLimit"`
		RateBurst       int     `yaml:"rateBurst"`
	} `yaml:"server"`

	Model struct {
		Path         string `yaml:"path"`
		TargetColumn string `yaml:"targetColumn"`
		SchemaMode   string `yaml:"schemaMode"`
	} `yaml:"model"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`
}

// Load reads an optional .env file, then the YAML file named by CONFIG_FILE
// with environment overrides, or the environment alone.
func Load() (Settings, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Settings{}, fmt.Errorf("failed to load .env: %w", err)
	}

	if configPath := os.Getenv(common.EnvConfigFile); configPath != "" {
		return loadFromYAML(configPath)
	}

	return loadFromEnv()
}

func loadFromYAML(path string) (Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config ConfigFile
	if err := yaml.Unmarshal(data, &config); err != nil {
		return Settings{}, fmt.Errorf("failed to parse config file: %w", err)
	}

	settings := Settings{
		ListenAddr:      getEnvOrDefault(common.EnvListenAddr, orString(config.Server.ListenAddr, common.DefaultListenAddr)),
		ModelPath:       getEnvOrDefault(common.EnvModelPath, orString(config.Model.Path, common.DefaultModelPath)),
		TargetColumn:    getEnvOrDefault(common.EnvTargetColumn, orString(config.Model.TargetColumn, common.DefaultTargetColumn)),
		SchemaMode:      getEnvOrDefault(common.EnvSchemaMode, orString(config.Model.SchemaMode, common.DefaultSchemaMode)),
		MaxUploadBytes:  getInt64OrDefault(common.EnvMaxUploadBytes, config.Server.MaxUploadBytes),
		ReadTimeout:     getDurationOrDefault(common.EnvReadTimeout, parseDurationOr(config.Server.ReadTimeout, common.DefaultReadTimeoutSec*time.Second)),
		WriteTimeout:    getDurationOrDefault(common.EnvWriteTimeout, parseDurationOr(config.Server.WriteTimeout, common.DefaultWriteTimeoutSec*time.Second)),
		ShutdownTimeout: getDurationOrDefault(common.EnvShutdownTimeout, parseDurationOr(config.Server.ShutdownTimeout, common.DefaultShutdownSec*time.Second)),
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, orString(config.Logging.Level, common.DefaultLogLevel)),
		LogFormat:       getEnvOrDefault(common.EnvLogFormat, orString(config.Logging.Format, common.DefaultLogFormat)),
		RateLimit:       getFloatOrDefault(common.EnvRateLimit, config.Server.RateLimit),
		RateBurst:       getIntOrDefault(common.EnvRateBurst, orInt(config.Server.RateBurst, common.DefaultRateBurst)),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

func loadFromEnv() (Settings, error) {
	settings := Settings{
		ListenAddr:      getEnvOrDefault(common.EnvListenAddr, common.DefaultListenAddr),
		ModelPath:       getEnvOrDefault(common.EnvModelPath, common.DefaultModelPath),
		TargetColumn:    getEnvOrDefault(common.EnvTargetColumn, common.DefaultTargetColumn),
		SchemaMode:      getEnvOrDefault(common.EnvSchemaMode, common.DefaultSchemaMode),
		MaxUploadBytes:  getInt64OrDefault(common.EnvMaxUploadBytes, 0), // unlimited
		ReadTimeout:     getDurationOrDefault(common.EnvReadTimeout, common.DefaultReadTimeoutSec*time.Second),
		WriteTimeout:    getDurationOrDefault(common.EnvWriteTimeout, common.DefaultWriteTimeoutSec*time.Second),
		ShutdownTimeout: getDurationOrDefault(common.EnvShutdownTimeout, common.DefaultShutdownSec*time.Second),
		LogLevel:        getEnvOrDefault(common.EnvLogLevel, common.DefaultLogLevel),
		LogFormat:       getEnvOrDefault(common.EnvLogFormat, common.DefaultLogFormat),
		RateLimit:       getFloatOrDefault(common.EnvRateLimit, 0),
		RateBurst:       getIntOrDefault(common.EnvRateBurst, common.DefaultRateBurst),
	}

	if err := validateSettings(&settings); err != nil {
		return Settings{}, fmt.Errorf("configuration validation failed: %w", err)
	}

	return settings, nil
}

// Level is the parsed zerolog level; Load has already validated it.
func (s Settings) Level() zerolog.Level {
	lvl, err := zerolog.ParseLevel(s.LogLevel)
	if err != nil {
		return zerolog.InfoLevel
	}
	return lvl
}

func getEnvOrDefault(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

// getDurationOrDefault accepts Go durations ("30s") or bare seconds ("30").
func getDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
		if s, err := strconv.Atoi(v); err == nil {
			return time.Duration(s) * time.Second
		}
	}
	return defaultValue
}

func getIntOrDefault(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return defaultValue
}

func getInt64OrDefault(key string, defaultValue int64) int64 {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.ParseInt(v, 10, 64); err == nil {
			return i
		}
	}
	return defaultValue
}

func getFloatOrDefault(key string, defaultValue float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func parseDurationOr(v string, def time.Duration) time.Duration {
	if v == "" {
		return def
	}
	if d, err := time.ParseDuration(v); err == nil {
		return d
	}
	return def
}

func orString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func orInt(v, def int) int {
	if v != 0 {
		return v
	}
	return def
}

// validateSettings performs comprehensive validation of configuration values
func validateSettings(settings *Settings) error {
	if settings.ListenAddr == "" {
		return fmt.Errorf("listen address cannot be empty")
	}
	if settings.ModelPath == "" {
		return fmt.Errorf("model path cannot be empty")
	}
	if settings.TargetColumn == "" {
		return fmt.Errorf("target column cannot be empty")
	}

	switch settings.SchemaMode {
	case common.SchemaModePassthrough, common.SchemaModeStrict:
	default:
		return fmt.Errorf("schema mode must be %q or %q, got %q",
			common.SchemaModePassthrough, common.SchemaModeStrict, settings.SchemaMode)
	}

	if settings.MaxUploadBytes < 0 {
		return fmt.Errorf("max upload bytes cannot be negative, got %d", settings.MaxUploadBytes)
	}

	// Read and write timeouts are opt-in; 0 leaves requests without a deadline.
	if !validRequestTimeout(settings.ReadTimeout) {
		return fmt.Errorf("read timeout must be 0 (disabled) or between 1s and 10m, got %v", settings.ReadTimeout)
	}
	if !validRequestTimeout(settings.WriteTimeout) {
		return fmt.Errorf("write timeout must be 0 (disabled) or between 1s and 10m, got %v", settings.WriteTimeout)
	}
	if settings.ShutdownTimeout < time.Second || settings.ShutdownTimeout > 5*time.Minute {
		return fmt.Errorf("shutdown timeout must be between 1s and 5m, got %v", settings.ShutdownTimeout)
	}

	if _, err := zerolog.ParseLevel(settings.LogLevel); err != nil {
		return fmt.Errorf("invalid log level %q: %w", settings.LogLevel, err)
	}
	switch settings.LogFormat {
	case common.LogFormatConsole, common.LogFormatJSON:
	default:
		return fmt.Errorf("log format must be %q or %q, got %q",
			common.LogFormatConsole, common.LogFormatJSON, settings.LogFormat)
	}

	if settings.RateLimit < 0 {
		return fmt.Errorf("rate limit cannot be negative, got %f", settings.RateLimit)
	}
	if settings.RateLimit > 0 && settings.RateBurst < 1 {
		return fmt.Errorf("rate burst must be at least 1 when rate limiting, got %d", settings.RateBurst)
	}

	return nil
}

func validRequestTimeout(d time.Duration) bool {
	return d == 0 || (d >= time.Second && d <= 10*time.Minute)
}
