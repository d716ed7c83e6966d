// Package logger configures the process-wide slog logger from the parsed
// configuration.
package logger // import "jobimporter.app/internal/cli/logger"

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"jobimporter.app/internal/config"
)

// InitializeDefaultLogger installs the default slog logger. The returned
// closer is non-nil when logging goes to a file.
func InitializeDefaultLogger() (io.Closer, error) {
	w, closer, err := parseLogFile(config.Opts.LogFile())
	if err != nil {
		return nil, err
	}

	opts := &slog.HandlerOptions{Level: parseLogLevel(config.Opts.LogLevel())}
	if !config.Opts.LogDateTime() {
		opts.ReplaceAttr = func(groups []string, a slog.Attr) slog.Attr {
			if len(groups) == 0 && a.Key == slog.TimeKey {
				return slog.Attr{}
			}
			return a
		}
	}

	var h slog.Handler
	switch config.Opts.LogFormat() {
	case "json":
		h = slog.NewJSONHandler(w, opts)
	default:
		h = slog.NewTextHandler(w, opts)
	}

	slog.SetDefault(slog.New(h))
	return closer, nil
}

func parseLogFile(logFile string) (io.Writer, io.Closer, error) {
	switch logFile {
	case "stdout":
		return os.Stdout, nil, nil
	case "stderr":
		return os.Stderr, nil, nil
	}

	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("logger: unable to open log file %q: %w",
			logFile, err)
	}
	return f, f, nil
}

func parseLogLevel(s string) slog.Level {
	switch s {
	case "debug":
		return slog.LevelDebug
	case "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	}
	return slog.LevelInfo
}
