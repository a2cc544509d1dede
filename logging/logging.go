// Package logging performs the one-time zerolog setup shared by the CLI,
// the ingester, and the snapshot engine, the way the teacher's main.go
// configures log.Logger once at process start.
package logging

import (
	"os"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Options controls the global logger.
type Options struct {
	// JSON selects structured JSON output (production) over the
	// human-readable console writer (local/dev).
	JSON bool
	// Level is a zerolog level string: "debug", "info", "warn", "error".
	Level string
}

// Init configures the global zerolog logger. Call once at process start.
func Init(opts Options) {
	lvl, err := zerolog.ParseLevel(opts.Level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(lvl)

	if opts.JSON {
		log.Logger = zerolog.New(os.Stderr).With().Timestamp().Logger()
		return
	}
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: "15:04:05"})
}
