// Package logging configures the process logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

const EnvLevel = "KEYKAPP_LOG_LEVEL"

// DefaultLevel keeps the terminal keypad quiet unless something goes wrong.
const DefaultLevel = logrus.WarnLevel

// New returns a text logger writing to out at level. An empty or unknown level falls back to
// KEYKAPP_LOG_LEVEL, then to DefaultLevel.
func New(level string, out io.Writer) *logrus.Logger {
	if out == nil {
		out = os.Stderr
	}
	log := logrus.New()
	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{
		DisableColors:    true,
		FullTimestamp:    true,
		QuoteEmptyFields: true,
	})
	log.SetLevel(ParseLevel(level))
	return log
}

// ParseLevel resolves a level name, consulting the environment when name is empty.
func ParseLevel(name string) logrus.Level {
	name = strings.TrimSpace(name)
	if name == "" {
		name = strings.TrimSpace(os.Getenv(EnvLevel))
	}
	if name == "" {
		return DefaultLevel
	}
	lvl, err := logrus.ParseLevel(name)
	if err != nil {
		return DefaultLevel
	}
	return lvl
}

// Discard returns a logger that drops everything, for tests and library callers.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	log.SetLevel(logrus.PanicLevel)
	return log
}
