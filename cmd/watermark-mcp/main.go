package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog"

	"github.com/ironsheep/watermark-tools-mcp/internal/api"
	"github.com/ironsheep/watermark-tools-mcp/internal/config"
	"github.com/ironsheep/watermark-tools-mcp/internal/metadata"
	"github.com/ironsheep/watermark-tools-mcp/internal/server"
)

// Version information - set by ldflags during build
var (
	Version   = "dev"
	BuildTime = "unknown"
	GitCommit = "unknown"
)

func main() {
	if len(os.Args) > 1 {
		switch os.Args[1] {
		case "--version", "-v", "version":
			fmt.Printf("watermark-tools-mcp %s\n", Version)
			fmt.Printf("  Build time: %s\n", BuildTime)
			fmt.Printf("  Git commit: %s\n", GitCommit)
			return
		case "--help", "-h", "help":
			printHelp()
			return
		case "exif":
			if len(os.Args) < 3 {
				fmt.Fprintln(os.Stderr, "usage: watermark-tools-mcp exif <image>")
				os.Exit(2)
			}
			if err := printExif(os.Args[2]); err != nil {
				fmt.Fprintf(os.Stderr, "error: %v\n", err)
				os.Exit(1)
			}
			return
		}
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration error: %v\n", err)
		os.Exit(1)
	}

	// Log to stderr; stdout is the MCP channel.
	logger := cfg.NewLogger(os.Stderr)
	logger.Debug().
		Str("version", Version).
		Str("build_time", BuildTime).
		Str("commit", GitCommit).
		Strs("font_dirs", cfg.FontDirs).
		Msg("watermark MCP server starting")

	if Version != "dev" {
		server.Version = Version
	}
	srv := server.New(cfg, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var httpSrv *http.Server
	if cfg.HTTPAddr != "" {
		httpSrv = startHTTP(cfg, srv, logger)
	}

	done := make(chan error, 1)
	go func() { done <- srv.Run() }()

	select {
	case err = <-done:
	case <-ctx.Done():
		logger.Info().Msg("shutting down")
	}

	if httpSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if serr := httpSrv.Shutdown(shutdownCtx); serr != nil {
			logger.Error().Err(serr).Msg("HTTP server forced to shut down")
		}
	}

	if err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}

func startHTTP(cfg *config.Config, srv *server.Server, logger zerolog.Logger) *http.Server {
	httpSrv := &http.Server{
		Addr:         cfg.HTTPAddr,
		Handler:      api.NewRouter(srv.Fonts(), cfg.EncodeOptions(), logger),
		ReadTimeout:  120 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		logger.Info().Str("addr", cfg.HTTPAddr).Msg("HTTP API listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("HTTP server failed")
		}
	}()
	return httpSrv
}

// printExif writes every EXIF tag of path to stdout as JSON.
func printExif(path string) error {
	tags, err := metadata.ReadAll(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(tags)
}

func printHelp() {
	fmt.Println("watermark-tools-mcp - MCP server for text watermarks and EXIF metadata")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  watermark-tools-mcp [options]")
	fmt.Println("  watermark-tools-mcp exif <image>")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version, -v    Print version information")
	fmt.Println("  --help, -h       Print this help message")
	fmt.Println()
	fmt.Println("Environment variables (also read from .env):")
	fmt.Printf("  %-28s debug, info, warn or error (default info)\n", config.EnvLogLevel)
	fmt.Printf("  %-28s Font directories, %q-separated\n", config.EnvFontDirs, string(os.PathListSeparator))
	fmt.Printf("  %-28s JPEG quality 1-100 (default 90)\n", config.EnvJPEGQuality)
	fmt.Printf("  %-28s Longest preview side in pixels (default %d)\n", config.EnvPreviewMax, config.DefaultPreviewMax)
	fmt.Printf("  %-28s Also serve the HTTP API on this address, e.g. :8080\n", config.EnvHTTPAddr)
	fmt.Println()
	fmt.Println("This server communicates via MCP protocol over stdin/stdout.")
	fmt.Println("Configure it in your MCP client (e.g., Claude Desktop).")
}
