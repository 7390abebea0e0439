// Package log holds the kiosk's zerolog setup.
package log

import (
	"io"
	"os"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

type Config struct {
	Level  string
	Output io.Writer // stdout when nil
	// Console switches to zerolog's human-readable writer for a terminal
	// next to the kiosk screen.
	Console bool
}

var (
	once sync.Once
	base zerolog.Logger
)

// Configure sets up the process logger. Only the first call has an effect.
func Configure(cfg Config) {
	once.Do(func() {
		level, err := zerolog.ParseLevel(cfg.Level)
		if err != nil || cfg.Level == "" {
			level = zerolog.InfoLevel
		}
		zerolog.SetGlobalLevel(level)
		zerolog.TimeFieldFormat = time.RFC3339

		out := cfg.Output
		if out == nil {
			out = os.Stdout
		}
		if cfg.Console {
			out = zerolog.ConsoleWriter{Out: out, TimeFormat: time.TimeOnly}
		}
		base = zerolog.New(out).With().Timestamp().Str("service", "tonttukioski").Logger()
	})
}

func Base() zerolog.Logger {
	Configure(Config{})
	return base
}

// WithComponent tags entries with the subsystem that wrote them.
func WithComponent(component string) zerolog.Logger {
	return Base().With().Str("component", component).Logger()
}

func Nop() zerolog.Logger {
	return zerolog.Nop()
}
