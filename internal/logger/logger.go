// Package logger wraps sirupsen/logrus with the field-scoped,
// level-from-config style the teacher's (now-removed) logger package
// used: a single process-wide entry, cloned per component with
// WithField, configured once at startup from internal/config.
//
// The teacher's own logger package was dropped (it pulled in syslog,
// file-rotation and graylog hook packages this gateway has no use for
// - see DESIGN.md), but its idiom is kept: components never call
// logrus directly, they ask for a *Logger scoped to their own name.
package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// Logger is a thin facade over *logrus.Entry so call sites depend on
// this package, not on logrus directly - swapping the backend later
// touches one file.
type Logger struct {
	entry *logrus.Entry
}

var root = logrus.New()

// Configure sets the process-wide log level and output format. Called
// once from cmd/anttp after internal/config has loaded.
func Configure(level string, jsonFormat bool, out io.Writer) error {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return err
	}

	root.SetLevel(lvl)

	if out == nil {
		out = os.Stderr
	}
	root.SetOutput(out)

	if jsonFormat {
		root.SetFormatter(&logrus.JSONFormatter{TimestampFormat: "2006-01-02T15:04:05.000Z07:00"})
	} else {
		root.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return nil
}

// Named returns a Logger scoped to component, carried as the
// "component" structured field on every entry it emits.
func Named(component string) *Logger {
	return &Logger{entry: root.WithField("component", component)}
}

func (l *Logger) With(key string, value any) *Logger {
	return &Logger{entry: l.entry.WithField(key, value)}
}

func (l *Logger) WithError(err error) *Logger {
	return &Logger{entry: l.entry.WithError(err)}
}

func (l *Logger) Debugf(format string, args ...any) { l.entry.Debugf(format, args...) }
func (l *Logger) Infof(format string, args ...any)  { l.entry.Infof(format, args...) }
func (l *Logger) Warnf(format string, args ...any)  { l.entry.Warnf(format, args...) }
func (l *Logger) Errorf(format string, args ...any) { l.entry.Errorf(format, args...) }
