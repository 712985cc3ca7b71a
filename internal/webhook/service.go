// Package webhook receives CRM event notifications and drives attribution
// corrections from them. Processing is fail-open per event: one bad event
// never blocks the rest of the batch, and the endpoint always acknowledges
// so the CRM does not redeliver endlessly.
package webhook

import (
	"context"
	"strconv"
	"time"

	"attribution_backend/internal/correction"
	"attribution_backend/internal/events"
	"attribution_backend/internal/scheduler"
	"attribution_backend/platform/apperr"
	"attribution_backend/platform/logger"
)

// relevantSubscriptions are the event types that can signal erased
// attribution.
var relevantSubscriptions = map[string]struct{}{
	"contact.creation": {},
	"meeting.creation": {},
}

// relevantProperties are the contact properties whose change can signal
// erased attribution.
var relevantProperties = map[string]struct{}{
	"hs_analytics_source": {},
	"hs_latest_source":    {},
	"lifecyclestage":      {},
}

// deferredRetryDelay gives the contact submission path time to store its
// snapshot before the deferred correction runs.
const deferredRetryDelay = 5 * time.Minute

// Event is one CRM webhook notification.
type Event struct {
	EventID          int64  `json:"eventId"`
	SubscriptionType string `json:"subscriptionType"`
	ObjectID         int64  `json:"objectId"`
	PropertyName     string `json:"propertyName"`
	PropertyValue    string `json:"propertyValue"`
	EventTime        int64  `json:"eventTime"`
	AttemptNumber    int    `json:"attemptNumber"`
}

// Result reports how one event in the batch was handled.
type Result struct {
	EventID           int64  `json:"eventId"`
	ContactID         string `json:"contactId,omitempty"`
	Status            string `json:"status"`
	Reason            string `json:"reason,omitempty"`
	CorrectionApplied bool   `json:"correctionApplied"`
}

// BatchOutcome summarizes a processed webhook batch.
type BatchOutcome struct {
	EventsProcessed        int      `json:"eventsProcessed"`
	AttributionCorrections int      `json:"attributionCorrections"`
	Results                []Result `json:"results"`
}

// Corrector reconciles a single contact's attribution.
type Corrector interface {
	Apply(ctx context.Context, req correction.Request) (correction.Outcome, error)
}

// Service processes webhook batches.
type Service struct {
	corrector Corrector
	retries   scheduler.CorrectionScheduler
	bus       events.Bus
	log       *logger.Logger
}

// NewService wires the webhook processor. retries may be nil when no task
// queue is configured; deferrals are then logged and dropped.
func NewService(corrector Corrector, retries scheduler.CorrectionScheduler, bus events.Bus, log *logger.Logger) *Service {
	return &Service{corrector: corrector, retries: retries, bus: bus, log: log}
}

// ProcessBatch walks the batch in order and attempts a correction for each
// relevant event.
func (s *Service) ProcessBatch(ctx context.Context, batch []Event) BatchOutcome {
	outcome := BatchOutcome{
		EventsProcessed: len(batch),
		Results:         make([]Result, 0, len(batch)),
	}

	for _, event := range batch {
		result := s.processEvent(ctx, event)
		if result.Status == "corrected" {
			outcome.AttributionCorrections++
		}
		outcome.Results = append(outcome.Results, result)
	}

	return outcome
}

func (s *Service) processEvent(ctx context.Context, event Event) Result {
	if !isRelevant(event) {
		return Result{EventID: event.EventID, Status: "skipped", Reason: "not_relevant_event"}
	}

	contactID := strconv.FormatInt(event.ObjectID, 10)
	result := Result{EventID: event.EventID, ContactID: contactID}

	applied, err := s.corrector.Apply(ctx, correction.Request{ContactID: contactID})
	switch {
	case err == nil && applied.Applied:
		result.Status = "corrected"
		result.CorrectionApplied = true
	case err == nil:
		result.Status = "skipped"
		result.Reason = "attribution_already_correct"
	case apperr.Is(err, apperr.KindNotFound):
		result.Status = "skipped"
		result.Reason = "contact_not_found"
	case apperr.Is(err, apperr.KindValidation):
		// Correction is needed but no attribution data exists yet; try
		// again later in case the submission path is still in flight.
		s.deferCorrection(ctx, event, contactID)
		result.Status = "deferred"
		result.Reason = "no_attribution_data"
	default:
		s.log.Error("webhook correction failed",
			"eventId", event.EventID,
			"contactId", contactID,
			"error", err)
		result.Status = "error"
		result.Reason = "correction_failed"
	}

	return result
}

func (s *Service) deferCorrection(ctx context.Context, event Event, contactID string) {
	if s.retries == nil {
		s.log.Warn("no task queue configured; dropping deferred correction",
			"contactId", contactID)
		return
	}

	payload := scheduler.CorrectionRetryPayload{
		ContactID:    contactID,
		TriggerEvent: event.SubscriptionType,
	}
	if err := s.retries.ScheduleCorrectionRetry(ctx, payload, time.Now().Add(deferredRetryDelay)); err != nil {
		s.log.Error("failed to enqueue deferred correction",
			"contactId", contactID,
			"error", err)
		return
	}

	s.bus.Publish(ctx, events.CorrectionDeferred{
		BaseEvent: events.NewBaseEvent(),
		ContactID: contactID,
		Trigger:   event.SubscriptionType,
	})
}

func isRelevant(event Event) bool {
	if _, ok := relevantSubscriptions[event.SubscriptionType]; ok {
		return true
	}
	if event.SubscriptionType == "contact.propertyChange" {
		_, ok := relevantProperties[event.PropertyName]
		return ok
	}
	return false
}
