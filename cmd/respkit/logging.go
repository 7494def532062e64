package main

import (
	"io"
	"log/slog"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/rhuss/respkit/pkg/config"
	"github.com/rhuss/respkit/pkg/debug"
)

// newLogger builds the process logger. Output goes to w, or to stderr when w
// is nil, unless cfg.File names a log file; that file is rotated by size
// and the returned closer must be closed on exit.
func newLogger(cfg config.LoggingConfig, w io.Writer) (*slog.Logger, io.Closer) {
	var closer io.Closer
	switch {
	case cfg.File != "":
		lj := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSizeMB,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   cfg.Compress,
		}
		w, closer = lj, lj
	case w == nil:
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: debug.ParseLevel(cfg.Level)}
	var h slog.Handler
	if cfg.Format == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	return slog.New(h), closer
}
