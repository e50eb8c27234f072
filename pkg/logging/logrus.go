package logging

import (
	"io"

	"github.com/sirupsen/logrus"
)

const (
	// FormatText renders human readable lines with full timestamps.
	FormatText = "text"
	// FormatJSON renders one JSON object per line.
	FormatJSON = "json"

	timestampFormat = "2006-01-02 15:04:05"
)

// Logrus builds component scoped logrus entries sharing level, format and output.
type Logrus struct {
	level  string
	format string
	output io.Writer
}

// NewLogrus creates a new logrus factory
func NewLogrus(level, format string, output io.Writer) *Logrus {
	return &Logrus{level: level, format: format, output: output}
}

// Get returns a logger tagged with the given component name
func (l *Logrus) Get(component string) *logrus.Entry {
	log := logrus.New()
	level, err := logrus.ParseLevel(l.level)
	if err != nil {
		level = logrus.InfoLevel
	}
	log.SetLevel(level)

	if l.format == FormatJSON {
		log.SetFormatter(&logrus.JSONFormatter{TimestampFormat: timestampFormat})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timestampFormat,
		})
	}

	log.SetOutput(l.output)
	return log.WithFields(logrus.Fields{
		"component": component,
	})
}
