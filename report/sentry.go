// Package report forwards unexpected failures to Sentry when a DSN is configured.
package report

import (
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/sirupsen/logrus"
)

var enabled bool

// Init configures the Sentry client. An empty DSN leaves reporting disabled.
func Init(dsn, environment, release string) error {
	if dsn == "" {
		enabled = false
		return nil
	}
	err := sentry.Init(sentry.ClientOptions{
		Dsn:         dsn,
		Environment: environment,
		Release:     "yt-themes@" + release,
	})
	if err != nil {
		return err
	}
	enabled = true
	logrus.WithField("environment", environment).Info("Sentry reporting enabled")
	return nil
}

// Error sends err with the given tags. No-op when reporting is disabled.
func Error(err error, tags map[string]string) {
	if !enabled || err == nil {
		return
	}
	sentry.WithScope(func(scope *sentry.Scope) {
		for k, v := range tags {
			scope.SetTag(k, v)
		}
		sentry.CaptureException(err)
	})
}

// Flush waits for buffered events before shutdown.
func Flush(timeout time.Duration) {
	if enabled {
		sentry.Flush(timeout)
	}
}
