package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var log = logrus.New()

// Init configures the process logger.
func Init(level, format string) {
	switch strings.ToLower(level) {
	case "debug":
		log.SetLevel(logrus.DebugLevel)
	case "warn", "warning":
		log.SetLevel(logrus.WarnLevel)
	case "error":
		log.SetLevel(logrus.ErrorLevel)
	default:
		log.SetLevel(logrus.InfoLevel)
	}

	if strings.ToLower(format) == "json" {
		log.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: "2006-01-02 15:04:05",
		})
	} else {
		log.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: "2006-01-02 15:04:05",
		})
	}

	log.SetOutput(os.Stdout)
}

// Get returns the process logger.
func Get() *logrus.Logger {
	return log
}

// SetOutput redirects log output; tests use it to capture entries.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}

// Op returns an entry tagged with the operation name.
func Op(name string) *logrus.Entry {
	return log.WithField("op", name)
}

// Backend logs a failed backend call. Only the operation and error are
// recorded, never the payload.
func Backend(op string, err error) {
	log.WithFields(logrus.Fields{"op": op, "error": err}).Error("backend call failed")
}
