package alert

import (
	"context"

	log "github.com/sirupsen/logrus"
)

// LogSink writes events to the process log.
type LogSink struct{}

func (LogSink) Name() string { return "log" }

func (LogSink) Publish(_ context.Context, ev Event) error {
	entry := log.WithFields(log.Fields{
		"kind":    ev.Kind,
		"label":   ev.Label,
		"at":      ev.At.Format("15:04:05"),
		"contact": ev.Contact,
	})
	if ev.PreviousLabel != "" {
		entry = entry.WithField("previous", ev.PreviousLabel)
	}

	switch ev.Kind {
	case KindUnmasked:
		entry.Warn("Unmasked face")
	default:
		entry.Info("Identity changed")
	}
	return nil
}
