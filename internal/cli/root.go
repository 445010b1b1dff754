// Package cli implements the command-line interface for mosgal.
package cli

import (
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/kilupskalvis/mosgal/internal/config"
	"github.com/spf13/cobra"
)

var (
	rootDir   string
	logLevel  string
	logFormat string
)

// cmdContext holds common resources for CLI commands
type cmdContext struct {
	Config *config.Config
	Logger *slog.Logger
}

// initContext loads the configuration of the gallery containing --root
// or the working directory
func initContext() *cmdContext {
	logger := newLogger(logLevel, logFormat)

	cfg, err := config.Load(rootDir)
	if err != nil {
		exitError("%v", err)
	}

	return &cmdContext{Config: cfg, Logger: logger}
}

var rootCmd = &cobra.Command{
	Use:   "mosgal",
	Short: "Static photo gallery generator",
	Long: `mosgal turns a directory tree of pictures into a static HTML gallery.
Pictures are grouped into albums, dates, focal lengths and colors read from
their EXIF data and pixels, and the results are kept in a catalog so that
later runs only process new or changed files.`,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&rootDir, "root", "", "Picture root (default: search upwards from the working directory)")
	pf.StringVar(&logLevel, "log-level", envOrDefault("MOSGAL_LOG_LEVEL", "warn"), "Log level (debug, info, warn, error)")
	pf.StringVar(&logFormat, "log-format", envOrDefault("MOSGAL_LOG_FORMAT", "text"), "Log format (json, text)")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(crawlCmd)
	rootCmd.AddCommand(updateCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(watchCmd)
	rootCmd.AddCommand(serveCmd)
}

// newLogger builds the logger for --log-level and --log-format and makes it
// the default
func newLogger(level, format string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}

	var handler slog.Handler
	if format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	logger := slog.New(handler)
	slog.SetDefault(logger)
	return logger
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "error":
		return slog.LevelError
	default:
		return slog.LevelWarn
	}
}

func envOrDefault(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// exitError prints an error and exits
func exitError(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}

// shortID returns first 8 characters of an ID
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
