package audit

import (
	"context"
	"testing"

	"attribution_backend/internal/events"
	"attribution_backend/platform/logger"
)

func TestModuleHandlesAllLifecycleEvents(t *testing.T) {
	log := logger.New("development")
	bus := events.NewInMemoryBus(log)
	NewModule(log).RegisterHandlers(bus)

	lifecycle := []events.Event{
		events.ContactSubmitted{
			BaseEvent: events.NewBaseEvent(),
			ContactID: "100",
			Email:     "lead@example.com",
			Channel:   "PAID_SOCIAL",
			Created:   true,
		},
		events.CorrectionDeferred{
			BaseEvent: events.NewBaseEvent(),
			ContactID: "100",
			Trigger:   "meeting.creation",
		},
		events.CorrectionApplied{
			BaseEvent: events.NewBaseEvent(),
			ContactID: "100",
			Email:     "lead@example.com",
			Reason:    "post_booking_direct_traffic_fix",
			Source:    "facebook",
		},
	}
	for _, event := range lifecycle {
		if err := bus.PublishSync(context.Background(), event); err != nil {
			t.Fatalf("handler returned error for %s: %v", event.EventName(), err)
		}
	}
}

type unrelatedEvent struct {
	events.BaseEvent
}

func (unrelatedEvent) EventName() string { return "test.unrelated" }

func TestModuleIgnoresUnknownEvents(t *testing.T) {
	m := NewModule(logger.New("development"))
	if err := m.Handle(context.Background(), unrelatedEvent{BaseEvent: events.NewBaseEvent()}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
