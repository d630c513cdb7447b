// Package logging provides the leveled logger used across the tools.
package logging

import (
	"io"
	"os"

	"github.com/rs/zerolog"
)

type Level int

const (
	Debug Level = iota
	Info
	Warn
	Error
)

// LevelNames lists the accepted spellings of each level, for flag parsing.
var LevelNames = map[Level][]string{
	Debug: {"debug"},
	Info:  {"info"},
	Warn:  {"warn", "warning"},
	Error: {"error"},
}

func (l Level) zerolog() zerolog.Level {
	switch l {
	case Debug:
		return zerolog.DebugLevel
	case Info:
		return zerolog.InfoLevel
	case Error:
		return zerolog.ErrorLevel
	default:
		return zerolog.WarnLevel
	}
}

type Config struct {
	Level  Level
	Output io.Writer // defaults to stderr
}

// Logger writes human readable, leveled messages. A nil *Logger discards
// everything.
type Logger struct {
	l zerolog.Logger
}

func NewLogger(cfg Config) *Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	w := zerolog.ConsoleWriter{Out: out, NoColor: true}
	return &Logger{l: zerolog.New(w).Level(cfg.Level.zerolog())}
}

// NewNop returns a logger that discards all messages.
func NewNop() *Logger {
	return &Logger{l: zerolog.Nop()}
}

func (l *Logger) Debugf(format string, args ...any) {
	if l == nil {
		return
	}
	l.l.Debug().Msgf(format, args...)
}

func (l *Logger) Infof(format string, args ...any) {
	if l == nil {
		return
	}
	l.l.Info().Msgf(format, args...)
}

func (l *Logger) Warnf(format string, args ...any) {
	if l == nil {
		return
	}
	l.l.Warn().Msgf(format, args...)
}

func (l *Logger) Errorf(format string, args ...any) {
	if l == nil {
		return
	}
	l.l.Error().Msgf(format, args...)
}
