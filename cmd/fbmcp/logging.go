package main

import (
	"io"
	"log/slog"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/guillermoBallester/fbmcp/internal/config"
)

// newLogger writes JSON logs to stderr, and also to a rotated file when
// LOG_FILE is set. stdout is reserved for the protocol stream.
func newLogger(cfg *config.Config, stderr io.Writer) (*slog.Logger, func()) {
	out := stderr
	closeFn := func() {}

	if cfg.LogFile != "" {
		file := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    10, // megabytes
			MaxBackups: 5,
			MaxAge:     7, // days
			Compress:   true,
		}
		out = io.MultiWriter(stderr, file)
		closeFn = func() { _ = file.Close() }
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	})).With(slog.String("service.name", cfg.ServerName))
	return logger, closeFn
}
