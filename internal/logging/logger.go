package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

const serviceName = "glossa"

// New builds the service logger on stdout.
func New(environment, level string) (zerolog.Logger, error) {
	return NewWithWriter(os.Stdout, environment, level)
}

// NewWithWriter targets a specific writer, for commands whose stdout carries
// payload output.
func NewWithWriter(out io.Writer, environment, level string) (zerolog.Logger, error) {
	parsedLevel, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil {
		return zerolog.Logger{}, fmt.Errorf("parse LOG_LEVEL=%q: %w", level, err)
	}

	logger := zerolog.New(writerFor(environment, out)).
		Level(parsedLevel).
		With().
		Timestamp().
		Str("service", serviceName).
		Logger()

	return logger, nil
}

// writerFor picks console output for local development and raw JSON otherwise.
func writerFor(environment string, out io.Writer) io.Writer {
	if strings.EqualFold(strings.TrimSpace(environment), "local") {
		return zerolog.ConsoleWriter{
			Out:        out,
			TimeFormat: time.RFC3339,
		}
	}
	return out
}
