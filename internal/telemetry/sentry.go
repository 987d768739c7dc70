// Package telemetry sets up optional Sentry error reporting.
package telemetry

import (
	"fmt"
	"time"

	"github.com/getsentry/sentry-go"

	"github.com/esxtool/esxtool/internal/buildinfo"
	"github.com/esxtool/esxtool/internal/conf"
	"github.com/esxtool/esxtool/internal/errors"
	"github.com/esxtool/esxtool/internal/logger"
)

// flushTimeout bounds how long Close waits for queued events.
const flushTimeout = 2 * time.Second

// Init configures Sentry from settings and routes high priority enhanced
// errors to it. It returns a function that flushes pending events; the
// function is a no-op when reporting is disabled.
func Init(settings conf.SentrySettings, info *buildinfo.Context) (func(), error) {
	noop := func() {}
	if !settings.Enabled {
		return noop, nil
	}
	if settings.DSN == "" {
		logger.Global().Module("telemetry").Warn("sentry enabled without a dsn, error reporting stays off")
		return noop, nil
	}

	err := sentry.Init(sentry.ClientOptions{
		Dsn:              settings.DSN,
		SampleRate:       1.0,
		AttachStacktrace: false,
		Environment:      "production",
		ServerName:       "",
		Release:          info.Release(),
		BeforeSend: func(event *sentry.Event, _ *sentry.EventHint) *sentry.Event {
			return applyPrivacyFilters(event)
		},
	})
	if err != nil {
		return noop, errors.New(fmt.Errorf("sentry initialization failed: %w", err)).
			Component("telemetry").
			Category(errors.CategoryConfiguration).
			Build()
	}

	errors.SetTelemetryReporter(errors.NewSentryReporter(true))
	return func() {
		sentry.Flush(flushTimeout)
	}, nil
}

// applyPrivacyFilters strips host and user data from an event and masks
// MAC addresses and serial numbers in its messages.
func applyPrivacyFilters(event *sentry.Event) *sentry.Event {
	event.User = sentry.User{}
	event.ServerName = ""
	event.Message = logger.RedactIdentifiers(event.Message)
	for i := range event.Exception {
		event.Exception[i].Value = logger.RedactIdentifiers(event.Exception[i].Value)
	}

	if event.Contexts != nil {
		delete(event.Contexts, "device")
		delete(event.Contexts, "os")
		delete(event.Contexts, "runtime")
	}

	for k := range event.Extra {
		if k != "error_type" && k != "component" {
			delete(event.Extra, k)
		}
	}

	if event.Tags != nil {
		delete(event.Tags, "server_name")
		delete(event.Tags, "hostname")
	}

	return event
}
