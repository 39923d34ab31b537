package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New returns a logger writing to stderr. level is a logrus level name
// (default info); format is "text" (default) or "json".
func New(level, format string) (*logrus.Logger, error) {
	return NewWithWriter(os.Stderr, level, format)
}

// NewWithWriter is New with an explicit output.
func NewWithWriter(w io.Writer, level, format string) (*logrus.Logger, error) {
	log := logrus.New()
	log.Out = w
	switch strings.ToLower(format) {
	case "json":
		log.Formatter = &logrus.JSONFormatter{}
	case "", "text":
		log.Formatter = &logrus.TextFormatter{DisableColors: false, FullTimestamp: true}
	default:
		return nil, &FormatError{Format: format}
	}
	log.Level = logrus.InfoLevel
	if level != "" {
		lvl, err := logrus.ParseLevel(level)
		if err != nil {
			return nil, err
		}
		log.Level = lvl
	}
	return log, nil
}

// Discard returns a logger that drops everything.
func Discard() *logrus.Logger {
	log := logrus.New()
	log.Out = io.Discard
	return log
}

// FormatError reports an unknown log format.
type FormatError struct{ Format string }

func (e *FormatError) Error() string {
	return "unknown log format " + e.Format + " (use text or json)"
}
