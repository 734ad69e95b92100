package logging

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

type Level string

const (
	LevelTrace Level = "trace"
	LevelDebug Level = "debug"
	LevelInfo  Level = "info"
	LevelWarn  Level = "warn"
	LevelError Level = "error"
)

type Format string

const (
	FormatJSON    Format = "json"
	FormatConsole Format = "console"
)

type Config struct {
	Level  Level  `yaml:"level" env:"CONTACTLINE_LOG_LEVEL" validate:"required,oneof=trace debug info warn error"`
	Format Format `yaml:"format" env:"CONTACTLINE_LOG_FORMAT" validate:"required,oneof=json console"`
}

func DefaultConfig() Config {
	return Config{Level: LevelInfo, Format: FormatConsole}
}

// New builds a logger writing to w, or to stderr when w is nil.
func New(cfg Config, w io.Writer) (zerolog.Logger, error) {
	level, err := parseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("parse log level: %w", err)
	}
	if w == nil {
		w = os.Stderr
	}

	switch cfg.Format {
	case FormatConsole:
		return zerolog.New(zerolog.ConsoleWriter{
			Out:        w,
			TimeFormat: time.RFC3339,
		}).Level(level).With().Timestamp().Logger(), nil
	case FormatJSON:
		return zerolog.New(w).With().Timestamp().Logger().Level(level), nil
	default:
		return zerolog.Nop(), fmt.Errorf("invalid log format: %s", cfg.Format)
	}
}

func parseLevel(level Level) (zerolog.Level, error) {
	switch level {
	case LevelTrace:
		return zerolog.TraceLevel, nil
	case LevelDebug:
		return zerolog.DebugLevel, nil
	case LevelInfo:
		return zerolog.InfoLevel, nil
	case LevelWarn:
		return zerolog.WarnLevel, nil
	case LevelError:
		return zerolog.ErrorLevel, nil
	default:
		return 0, fmt.Errorf("invalid log level: %s", level)
	}
}
