package config

import (
	"bytes"
	"os"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/rs/zerolog"

	"github.com/ironsheep/watermark-tools-mcp/internal/watermark"
)

// clearEnv unsets every variable Load reads for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range []string{EnvLogLevel, EnvFontDirs, EnvJPEGQuality, EnvPreviewMax, EnvHTTPAddr} {
		t.Setenv(name, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.LogLevel != zerolog.InfoLevel {
		t.Errorf("LogLevel: got %v, want info", cfg.LogLevel)
	}
	if cfg.JPEGQuality != 90 {
		t.Errorf("JPEGQuality: got %d, want 90", cfg.JPEGQuality)
	}
	if cfg.PreviewMax != DefaultPreviewMax {
		t.Errorf("PreviewMax: got %d, want %d", cfg.PreviewMax, DefaultPreviewMax)
	}
	if cfg.HTTPAddr != "" {
		t.Errorf("HTTPAddr: got %q, want empty", cfg.HTTPAddr)
	}
	if diff := cmp.Diff(watermark.DefaultFontDirs(), cfg.FontDirs); diff != "" {
		t.Errorf("FontDirs mismatch (-want +got):\n%s", diff)
	}
}

func TestLoad_FromEnvironment(t *testing.T) {
	clearEnv(t)
	t.Setenv(EnvLogLevel, "DEBUG")
	t.Setenv(EnvFontDirs, strings.Join([]string{"/opt/fonts", " ", "/srv/fonts"}, string(os.PathListSeparator)))
	t.Setenv(EnvJPEGQuality, "75")
	t.Setenv(EnvPreviewMax, "512")
	t.Setenv(EnvHTTPAddr, ":8080")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	want := &Config{
		LogLevel:    zerolog.DebugLevel,
		FontDirs:    []string{"/opt/fonts", "/srv/fonts"},
		JPEGQuality: 75,
		PreviewMax:  512,
		HTTPAddr:    ":8080",
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("Config mismatch (-want +got):\n%s", diff)
	}
	if got := cfg.EncodeOptions().Quality; got != 75 {
		t.Errorf("EncodeOptions().Quality: got %d, want 75", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
	}{
		{"bad log level", EnvLogLevel, "loud"},
		{"non-numeric quality", EnvJPEGQuality, "high"},
		{"quality too large", EnvJPEGQuality, "101"},
		{"quality zero", EnvJPEGQuality, "0"},
		{"preview too small", EnvPreviewMax, "4"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.env, tt.value)
			if _, err := Load(); err == nil {
				t.Errorf("Load should fail for %s=%q", tt.env, tt.value)
			} else if !strings.Contains(err.Error(), tt.env) {
				t.Errorf("error should name %s: %v", tt.env, err)
			}
		})
	}
}

func TestNewLogger(t *testing.T) {
	cfg := &Config{LogLevel: zerolog.WarnLevel}
	var out bytes.Buffer
	logger := cfg.NewLogger(&out)

	logger.Info().Msg("hidden")
	if out.Len() != 0 {
		t.Errorf("info should be filtered at warn level, got %q", out.String())
	}

	logger.Warn().Str("family", "Arial").Msg("font unavailable")
	line := out.String()
	for _, want := range []string{`"level":"warn"`, `"family":"Arial"`, `"service":"watermark-mcp"`} {
		if !strings.Contains(line, want) {
			t.Errorf("log line %q missing %s", line, want)
		}
	}
}
