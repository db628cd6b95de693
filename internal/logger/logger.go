// Package logger wires the global zerolog logger: rotating file output,
// console output, and optional forwarding to Axiom.
package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"

	"github.com/jerefrer/stacked-pdf-generator/internal/config"
)

var (
	global zerolog.Logger
	fwd    *forwarder
)

// Init sets up the global logger. The console writer goes to stderr so that
// command output on stdout stays clean.
func Init(logCfg config.LoggingConfig, axCfg config.AxiomConfig) error {
	var writers []io.Writer

	if logCfg.File != "" {
		if err := os.MkdirAll(filepath.Dir(logCfg.File), 0o755); err != nil {
			return fmt.Errorf("create logs dir: %w", err)
		}
		writers = append(writers, &lumberjack.Logger{
			Filename:   logCfg.File,
			MaxSize:    logCfg.MaxSizeMB,
			MaxBackups: logCfg.MaxBackups,
			MaxAge:     logCfg.MaxAgeDays,
			Compress:   logCfg.Compress,
		})
	}

	if logCfg.Pretty {
		writers = append(writers, zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})
	} else {
		writers = append(writers, os.Stderr)
	}

	if axCfg.Send && axCfg.APIKey != "" {
		f, err := newForwarder(axCfg)
		if err != nil {
			// keep logging locally even when the remote sink is broken
			fmt.Fprintf(os.Stderr, "Axiom disabled: %v\n", err)
		} else {
			fwd = f
			writers = append(writers, f.writer())
		}
	}

	zerolog.TimeFieldFormat = time.RFC3339
	lvl, err := zerolog.ParseLevel(logCfg.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}

	global = zerolog.New(io.MultiWriter(writers...)).Level(lvl).With().Timestamp().Logger()
	log.Logger = global
	return nil
}

// Close flushes any buffered external sinks.
func Close() {
	if fwd != nil {
		fwd.close()
	}
}

// Get returns the global logger.
func Get() *zerolog.Logger { return &global }
