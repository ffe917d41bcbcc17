package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	"github.com/ironsheep/watermark-tools-mcp/internal/imaging"
	"github.com/ironsheep/watermark-tools-mcp/internal/watermark"
)

// Environment variables read by Load.
const (
	EnvLogLevel    = "WATERMARK_MCP_LOG_LEVEL"
	EnvFontDirs    = "WATERMARK_MCP_FONT_DIRS"
	EnvJPEGQuality = "WATERMARK_MCP_JPEG_QUALITY"
	EnvPreviewMax  = "WATERMARK_MCP_PREVIEW_MAX"
	EnvHTTPAddr    = "WATERMARK_MCP_HTTP_ADDR"
)

// DefaultPreviewMax is the longest side, in pixels, of a returned preview.
const DefaultPreviewMax = 1024

// Config stores all configuration for the server.
type Config struct {
	LogLevel    zerolog.Level
	FontDirs    []string
	JPEGQuality int
	PreviewMax  int
	// HTTPAddr enables the HTTP API when non-empty.
	HTTPAddr string
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	// Load .env file if it exists
	godotenv.Load()

	level := zerolog.InfoLevel
	if s := strings.TrimSpace(os.Getenv(EnvLogLevel)); s != "" {
		l, err := zerolog.ParseLevel(strings.ToLower(s))
		if err != nil {
			return nil, fmt.Errorf("invalid %s: %w", EnvLogLevel, err)
		}
		level = l
	}

	fontDirs := watermark.DefaultFontDirs()
	if s := os.Getenv(EnvFontDirs); s != "" {
		fontDirs = splitDirs(s)
	}

	quality, err := intEnv(EnvJPEGQuality, imaging.DefaultJPEGQuality, 1, 100)
	if err != nil {
		return nil, err
	}

	previewMax, err := intEnv(EnvPreviewMax, DefaultPreviewMax, 16, 16384)
	if err != nil {
		return nil, err
	}

	return &Config{
		LogLevel:    level,
		FontDirs:    fontDirs,
		JPEGQuality: quality,
		PreviewMax:  previewMax,
		HTTPAddr:    strings.TrimSpace(os.Getenv(EnvHTTPAddr)),
	}, nil
}

// EncodeOptions returns the encoder settings derived from c.
func (c *Config) EncodeOptions() imaging.EncodeOptions {
	return imaging.EncodeOptions{Quality: c.JPEGQuality}
}

// NewLogger returns a zerolog logger writing to w at the configured level.
// The MCP channel owns stdout, so callers pass os.Stderr.
func (c *Config) NewLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).Level(c.LogLevel).With().Timestamp().Str("service", "watermark-mcp").Logger()
}

func intEnv(name string, def, min, max int) (int, error) {
	s := strings.TrimSpace(os.Getenv(name))
	if s == "" {
		return def, nil
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", name, err)
	}
	if v < min || v > max {
		return 0, fmt.Errorf("invalid %s: %d not in [%d,%d]", name, v, min, max)
	}
	return v, nil
}

func splitDirs(s string) []string {
	var dirs []string
	for _, d := range filepath.SplitList(s) {
		if d = strings.TrimSpace(d); d != "" {
			dirs = append(dirs, d)
		}
	}
	return dirs
}
