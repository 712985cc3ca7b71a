// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"attribution_backend/platform/events"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
)

// Re-export platform functions
var NewBaseEvent = events.NewBaseEvent

// =============================================================================
// Contacts Domain Events
// =============================================================================

// ContactSubmitted is published when a contact reaches the CRM, whether
// freshly created or updated through the duplicate path.
type ContactSubmitted struct {
	BaseEvent
	ContactID string `json:"contactId"`
	Email     string `json:"email"`
	Channel   string `json:"channel"`
	Created   bool   `json:"created"`
}

func (e ContactSubmitted) EventName() string { return "contacts.contact.submitted" }

// =============================================================================
// Correction Domain Events
// =============================================================================

// CorrectionApplied is published after corrected attribution properties
// were written back to the CRM.
type CorrectionApplied struct {
	BaseEvent
	ContactID string `json:"contactId"`
	Email     string `json:"email,omitempty"`
	Reason    string `json:"reason"`
	Source    string `json:"source"`
}

func (e CorrectionApplied) EventName() string { return "correction.applied" }

// CorrectionDeferred is published when a correction was needed but no
// attribution data was available yet, and a retry was enqueued.
type CorrectionDeferred struct {
	BaseEvent
	ContactID string `json:"contactId"`
	Email     string `json:"email,omitempty"`
	Trigger   string `json:"trigger"`
}

func (e CorrectionDeferred) EventName() string { return "correction.deferred" }
