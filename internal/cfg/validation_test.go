package cfg

import (
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

// createValidSettings creates a valid Settings struct for testing
func createValidSettings() *Settings {
	return &Settings{
		ListenAddr:      ":8000",
		ModelPath:       "models/churn",
		TargetColumn:    "Target",
		SchemaMode:      "passthrough",
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    60 * time.Second,
		ShutdownTimeout: 10 * time.Second,
		LogLevel:        "info",
		LogFormat:       "console",
		RateBurst:       10,
	}
}

func TestValidateSettings_ValidConfig(t *testing.T) {
	if err := validateSettings(createValidSettings()); err != nil {
		t.Errorf("Expected valid config to pass, got error: %v", err)
	}
}

func TestValidateSettings_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(s *Settings)
		wantMsg string
	}{
		{"empty listen address", func(s *Settings) { s.ListenAddr = "" }, "listen address"},
		{"empty model path", func(s *Settings) { s.ModelPath = "" }, "model path"},
		{"empty target", func(s *Settings) { s.TargetColumn = "" }, "target column"},
		{"unknown schema mode", func(s *Settings) { s.SchemaMode = "loose" }, "schema mode"},
		{"negative upload limit", func(s *Settings) { s.MaxUploadBytes = -5 }, "max upload bytes"},
		{"read timeout too short", func(s *Settings) { s.ReadTimeout = 500 * time.Millisecond }, "read timeout"},
		{"negative read timeout", func(s *Settings) { s.ReadTimeout = -time.Second }, "read timeout"},
		{"negative write timeout", func(s *Settings) { s.WriteTimeout = -time.Second }, "write timeout"},
		{"write timeout too long", func(s *Settings) { s.WriteTimeout = time.Hour }, "write timeout"},
		{"shutdown timeout zero", func(s *Settings) { s.ShutdownTimeout = 0 }, "shutdown timeout"},
		{"bad log level", func(s *Settings) { s.LogLevel = "verbose" }, "log level"},
		{"bad log format", func(s *Settings) { s.LogFormat = "text" }, "log format"},
		{"negative rate", func(s *Settings) { s.RateLimit = -1 }, "rate limit"},
		{"rate without burst", func(s *Settings) { s.RateLimit = 1; s.RateBurst = 0 }, "rate burst"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			settings := createValidSettings()
			tt.mutate(settings)

			err := validateSettings(settings)
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tt.wantMsg) {
				t.Errorf("expected error containing %q, got %v", tt.wantMsg, err)
			}
		})
	}
}

func TestValidateSettings_Boundaries(t *testing.T) {
	settings := createValidSettings()
	settings.ReadTimeout = time.Second
	settings.WriteTimeout = 10 * time.Minute
	settings.ShutdownTimeout = 5 * time.Minute
	settings.MaxUploadBytes = 0
	settings.RateLimit = 0
	settings.RateBurst = 0

	if err := validateSettings(settings); err != nil {
		t.Errorf("boundary values should be valid, got %v", err)
	}
}

func TestSettings_Level(t *testing.T) {
	settings := createValidSettings()
	settings.LogLevel = "warn"
	if settings.Level() != zerolog.WarnLevel {
		t.Errorf("expected warn level, got %v", settings.Level())
	}

	settings.LogLevel = "nonsense"
	if settings.Level() != zerolog.InfoLevel {
		t.Errorf("expected info fallback, got %v", settings.Level())
	}
}

func TestValidateSettings_ZeroRequestTimeoutsDisable(t *testing.T) {
	settings := createValidSettings()
	settings.ReadTimeout = 0
	settings.WriteTimeout = 0

	if err := validateSettings(settings); err != nil {
		t.Errorf("zero read/write timeouts should be accepted, got %v", err)
	}
}
