package cmd

import (
	"log/slog"
	"os"
	"sync"

	"github.com/lmittmann/tint"
)

var (
	globalLogger *slog.Logger
	once         sync.Once
)

// Init initializes the global slog Logger, once. Diagnostic logging goes
// to stderr, never stdout: stdout is reserved for the verdict JSON.
func Init() *slog.Logger {
	once.Do(func() {
		var handler slog.Handler
		if isRunningUnderSystemd() {
			// journald already timestamps and structures output; emit
			// plain JSON instead of the colorized text handler.
			handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo})
		} else {
			handler = tint.NewHandler(os.Stderr, &tint.Options{Level: slog.LevelInfo})
		}
		globalLogger = slog.New(handler)
		slog.SetDefault(globalLogger)
	})

	return globalLogger
}

func isRunningUnderSystemd() bool {
	_, ok := os.LookupEnv("INVOCATION_ID")
	return ok
}

func init() {
	Init()
}
