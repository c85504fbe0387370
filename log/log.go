// Package log provides loggers for graph hosts. Debug level is enabled
// with GRAPH_DEBUG environment variable.
package log

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"
)

var debug bool

// Logger is a global interface for graph loggers.
type Logger interface {
	Debug(...interface{})
	Info(...interface{})
}

func init() {
	var err error
	debug, err = strconv.ParseBool(os.Getenv("GRAPH_DEBUG"))
	if err != nil {
		debug = false
	}
}

// GetLogger returns a new logger instance.
func GetLogger() *logrus.Logger {
	l := logrus.New()
	if debug {
		l.SetLevel(logrus.DebugLevel)
	}
	return l
}

// WithFields returns a logger that adds fields to every entry.
func WithFields(l *logrus.Logger, fields map[string]interface{}) Logger {
	return l.WithFields(logrus.Fields(fields))
}

// Discard returns a logger that drops all entries.
func Discard() Logger {
	return discard{}
}

type discard struct{}

func (discard) Debug(...interface{}) {}
func (discard) Info(...interface{})  {}
