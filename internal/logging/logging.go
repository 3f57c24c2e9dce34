package logging

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// New returns the process logger: JSON lines in production, a console writer
// in development. Unknown levels fall back to info.
func New(env string, level string) zerolog.Logger {
	return NewWithWriter(os.Stdout, env, level)
}

func NewWithWriter(out io.Writer, env string, level string) zerolog.Logger {
	writer := out
	if strings.EqualFold(strings.TrimSpace(env), "development") {
		writer = zerolog.ConsoleWriter{Out: out, TimeFormat: time.RFC3339}
	}
	return zerolog.New(writer).Level(ParseLevel(level)).With().Timestamp().Logger()
}

func ParseLevel(raw string) zerolog.Level {
	parsed, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(raw)))
	if err != nil || parsed == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return parsed
}
