// Package logging provides the logrus loggers shared by the ctvolume packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	log "github.com/sirupsen/logrus"
)

// Levels lists the accepted logging level names.
var Levels = []string{"panic", "fatal", "error", "warn", "info", "debug", "trace"}

var named []*log.Logger

// NamedLogger creates a package logger that tags every message with name.
// Its level follows the last call to Setup.
func NamedLogger(name string) *log.Logger {
	l := &log.Logger{
		Out: os.Stderr,
		Formatter: &NamedTextFormatter{
			Name:          name,
			TextFormatter: log.TextFormatter{FullTimestamp: true},
		},
		Hooks:    make(log.LevelHooks),
		Level:    log.GetLevel(),
		ExitFunc: os.Exit,
	}
	named = append(named, l)
	return l
}

// NamedTextFormatter prefixes each entry with the logger name.
type NamedTextFormatter struct {
	log.TextFormatter
	Name string
}

// Format renders a single log entry
func (f *NamedTextFormatter) Format(entry *log.Entry) ([]byte, error) {
	entry.Message = fmt.Sprintf("[%-10s] %s", f.Name, entry.Message)
	return f.TextFormatter.Format(entry)
}

// Setup configures the standard logger and every named logger with level.
func Setup(level string) error {
	lvl, err := log.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid logging level %q, one of: %s", level, strings.Join(Levels, ", "))
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	log.SetLevel(lvl)
	for _, l := range named {
		l.SetLevel(lvl)
	}
	return nil
}

// SetOutput redirects the standard logger and every named logger.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
	for _, l := range named {
		l.SetOutput(w)
	}
}
