// Package audit keeps an operational trail of the attribution lifecycle.
// It subscribes to the domain events published by the contacts, correction,
// and webhook modules and writes one structured log entry per event. The
// CRM remains the system of record; this trail exists so that a contact's
// attribution history can be reconstructed from the logs.
package audit

import (
	"context"

	"attribution_backend/internal/events"
	"attribution_backend/platform/logger"
)

// Module records attribution lifecycle events.
type Module struct {
	log *logger.Logger
}

func NewModule(log *logger.Logger) *Module {
	return &Module{log: log}
}

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.ContactSubmitted{}.EventName(), m)
	bus.Subscribe(events.CorrectionApplied{}.EventName(), m)
	bus.Subscribe(events.CorrectionDeferred{}.EventName(), m)
}

// Handle dispatches an event to its audit entry.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.ContactSubmitted:
		m.log.Info("audit: contact submitted",
			"contactId", e.ContactID,
			"email", e.Email,
			"channel", e.Channel,
			"created", e.Created)
	case events.CorrectionApplied:
		m.log.Info("audit: attribution corrected",
			"contactId", e.ContactID,
			"email", e.Email,
			"reason", e.Reason,
			"source", e.Source)
	case events.CorrectionDeferred:
		m.log.Info("audit: correction deferred",
			"contactId", e.ContactID,
			"trigger", e.Trigger)
	}
	return nil
}

// Compile-time check that Module implements the event handler interface
var _ events.Handler = (*Module)(nil)
