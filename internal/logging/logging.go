package logging

import (
	"log/slog"
	"os"
	"path/filepath"
)

// Logger is the global slog instance for the application
var Logger *slog.Logger

// Init initializes the logging system, writing logs to
// <UserConfigDir>/pomotree/logs/pomotree.log. The TUI owns the terminal,
// so logs never go to stderr.
func Init() error {
	configDir, err := os.UserConfigDir()
	if err != nil {
		return err
	}

	logDir := filepath.Join(configDir, "pomotree", "logs")
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return err
	}

	logPath := filepath.Join(logDir, "pomotree.log")
	file, err := os.OpenFile(logPath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return err
	}

	handler := slog.NewTextHandler(file, &slog.HandlerOptions{
		Level: slog.LevelDebug,
	})

	Logger = slog.New(handler)
	slog.SetDefault(Logger)

	return nil
}
