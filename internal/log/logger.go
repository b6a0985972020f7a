package log

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Settings select the level, format and destination of a logger.
type Settings struct {
	// Level is debug, info, warn or error. Empty means info.
	Level string

	// Format is "json" or "text". Empty means text.
	Format string

	// File is appended to when set; stderr otherwise.
	File string
}

// RunID identifies one process run in every log line.
var RunID = uuid.NewString()

// New returns a logger carrying the application and run id fields.
func New(settings Settings, application string) logrus.FieldLogger {
	return Logger(logrus.New(), settings, application)
}

// Logger configures logger from settings and returns it with base fields.
func Logger(logger *logrus.Logger, settings Settings, application string) logrus.FieldLogger {
	if settings.File != "" {
		if file, err := os.OpenFile(filepath.Clean(settings.File), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0640); err == nil {
			logger.SetOutput(file)
		} else {
			logger.Infof("Failed to open output file %s. Will use stderr. %s",
				settings.File, err.Error())
		}
	}

	if strings.EqualFold(settings.Format, "json") {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	level, err := logrus.ParseLevel(strings.TrimSpace(settings.Level))
	if err != nil {
		if settings.Level != "" {
			logger.Warnf("Unknown log level %q. Using info.", settings.Level)
		}
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	return logger.WithFields(logrus.Fields{
		"application": application,
		"run_id":      RunID,
	})
}
