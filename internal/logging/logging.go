// Package logging owns the process-wide structured logger.
package logging

import (
	"os"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// Log is the shared logger. It is usable before Init with logrus defaults.
var Log = logrus.New()

// SlowRequestThreshold marks requests that are logged as warnings
const SlowRequestThreshold = 2 * time.Second

// Init configures the shared logger's format and level
func Init(level, format string) {
	if strings.EqualFold(format, "text") {
		Log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		Log.SetFormatter(&logrus.JSONFormatter{})
	}
	Log.SetOutput(os.Stdout)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		Log.WithField("level", level).Warn("Unknown log level, falling back to info")
		lvl = logrus.InfoLevel
	}
	Log.SetLevel(lvl)
}

// WithComponent returns an entry tagged with the component name
func WithComponent(name string) *logrus.Entry {
	return Log.WithField("component", name)
}

// RequestLogger logs every request after it completes
func RequestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		duration := time.Since(start)
		entry := Log.WithFields(logrus.Fields{
			"method":    c.Request.Method,
			"path":      c.FullPath(),
			"status":    c.Writer.Status(),
			"duration":  duration,
			"remote_ip": c.ClientIP(),
		})
		if len(c.Errors) > 0 {
			entry = entry.WithField("errors", c.Errors.String())
		}

		switch {
		case duration > SlowRequestThreshold:
			entry.Warn("Slow request detected")
		case c.Writer.Status() >= 500:
			entry.Error("Request failed")
		default:
			entry.Info("Request completed")
		}
	}
}
