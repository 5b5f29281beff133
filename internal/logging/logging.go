// Package logging configures the process-wide zerolog logger.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.elastic.co/ecszerolog"
)

const (
	FormatConsole = "console"
	FormatJSON    = "json"
	FormatECS     = "ecs"
)

// Options selects level, encoding and destination.
type Options struct {
	Level  string
	Format string
	App    string
	// Out defaults to stderr; stdout belongs to command output and the MCP transport.
	Out io.Writer
}

// New builds a logger from opts without touching global state.
func New(opts Options) (zerolog.Logger, error) {
	level := zerolog.InfoLevel
	if opts.Level != "" {
		parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(opts.Level)))
		if err != nil {
			return zerolog.Nop(), fmt.Errorf("log level: %w", err)
		}
		level = parsed
	}
	out := opts.Out
	if out == nil {
		out = os.Stderr
	}

	var logger zerolog.Logger
	switch strings.ToLower(opts.Format) {
	case "", FormatConsole:
		logger = zerolog.New(zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"})
	case FormatJSON:
		logger = zerolog.New(out)
	case FormatECS:
		logger = ecszerolog.New(out)
	default:
		return zerolog.Nop(), fmt.Errorf("unknown log format %q (want console, json or ecs)", opts.Format)
	}

	ctx := logger.Level(level).With().Timestamp()
	if opts.App != "" {
		ctx = ctx.Str("app", opts.App)
	}
	return ctx.Logger(), nil
}

// Setup installs the logger built from opts as log.Logger.
func Setup(opts Options) error {
	logger, err := New(opts)
	if err != nil {
		return err
	}
	log.Logger = logger
	zerolog.DefaultContextLogger = &log.Logger
	return nil
}
