package logging

import (
	"io"
	"strings"

	"github.com/sirupsen/logrus"
)

// Options control the process-wide logger.
type Options struct {
	Debug   bool
	Quiet   bool
	NoColor bool
	Output  io.Writer
}

// forced is set when --debug or --quiet pinned the level, so a settings
// log_level cannot override an explicit flag.
var forced bool

// Setup configures the shared logrus logger and returns it. Quiet suppresses
// everything below errors and takes precedence over debug.
func Setup(opts Options) *logrus.Logger {
	logger := logrus.StandardLogger()
	logger.SetFormatter(&logrus.TextFormatter{
		DisableColors: opts.NoColor,
		FullTimestamp: true,
	})
	if opts.Output != nil {
		logger.SetOutput(opts.Output)
	}
	forced = opts.Quiet || opts.Debug
	switch {
	case opts.Quiet:
		logger.SetLevel(logrus.ErrorLevel)
	case opts.Debug:
		logger.SetLevel(logrus.TraceLevel)
	default:
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger
}

// ApplyLevel maps a settings log_level (the platform's Python level names)
// onto the shared logger. Unknown names leave the level alone, as does an
// explicit --debug or --quiet.
func ApplyLevel(name string) {
	if forced {
		return
	}
	switch strings.ToUpper(name) {
	case "DEBUG":
		logrus.SetLevel(logrus.DebugLevel)
	case "INFO":
		logrus.SetLevel(logrus.InfoLevel)
	case "WARNING":
		logrus.SetLevel(logrus.WarnLevel)
	case "ERROR":
		logrus.SetLevel(logrus.ErrorLevel)
	case "CRITICAL":
		logrus.SetLevel(logrus.FatalLevel)
	}
}

// Component returns a logger entry tagged for one subsystem.
func Component(name string) *logrus.Entry {
	return logrus.WithField("component", name)
}
