package webhook

import (
	"context"
	"sync"
	"testing"
	"time"

	"attribution_backend/internal/correction"
	"attribution_backend/internal/events"
	"attribution_backend/internal/scheduler"
	"attribution_backend/platform/apperr"
	"attribution_backend/platform/logger"
)

type fakeCorrector struct {
	outcomes map[string]correction.Outcome
	errors   map[string]error
	applied  []string
}

func (f *fakeCorrector) Apply(ctx context.Context, req correction.Request) (correction.Outcome, error) {
	f.applied = append(f.applied, req.ContactID)
	if err, ok := f.errors[req.ContactID]; ok {
		return correction.Outcome{}, err
	}
	return f.outcomes[req.ContactID], nil
}

type fakeRetries struct {
	scheduled []scheduler.CorrectionRetryPayload
}

func (f *fakeRetries) ScheduleCorrectionRetry(ctx context.Context, payload scheduler.CorrectionRetryPayload, runAt time.Time) error {
	f.scheduled = append(f.scheduled, payload)
	return nil
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(ctx context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func newTestService() (*Service, *fakeCorrector, *fakeRetries, *recordingBus) {
	corrector := &fakeCorrector{
		outcomes: map[string]correction.Outcome{},
		errors:   map[string]error{},
	}
	retries := &fakeRetries{}
	bus := &recordingBus{}
	return NewService(corrector, retries, bus, logger.New("development")), corrector, retries, bus
}

func TestProcessBatchMixedOutcomes(t *testing.T) {
	svc, corrector, _, _ := newTestService()
	corrector.outcomes["100"] = correction.Outcome{ContactID: "100", Applied: true}
	corrector.outcomes["200"] = correction.Outcome{ContactID: "200", Applied: false}
	corrector.errors["300"] = apperr.NotFound("contact not found")

	outcome := svc.ProcessBatch(context.Background(), []Event{
		{EventID: 1, SubscriptionType: "contact.creation", ObjectID: 100},
		{EventID: 2, SubscriptionType: "meeting.creation", ObjectID: 200},
		{EventID: 3, SubscriptionType: "contact.propertyChange", PropertyName: "hs_analytics_source", ObjectID: 300},
		{EventID: 4, SubscriptionType: "contact.propertyChange", PropertyName: "firstname", ObjectID: 400},
		{EventID: 5, SubscriptionType: "deal.creation", ObjectID: 500},
	})

	if outcome.EventsProcessed != 5 {
		t.Fatalf("eventsProcessed = %d, want 5", outcome.EventsProcessed)
	}
	if outcome.AttributionCorrections != 1 {
		t.Fatalf("attributionCorrections = %d, want 1", outcome.AttributionCorrections)
	}

	wantStatus := map[int64][2]string{
		1: {"corrected", ""},
		2: {"skipped", "attribution_already_correct"},
		3: {"skipped", "contact_not_found"},
		4: {"skipped", "not_relevant_event"},
		5: {"skipped", "not_relevant_event"},
	}
	for _, result := range outcome.Results {
		want := wantStatus[result.EventID]
		if result.Status != want[0] || result.Reason != want[1] {
			t.Errorf("event %d: got %s/%s, want %s/%s",
				result.EventID, result.Status, result.Reason, want[0], want[1])
		}
		if result.CorrectionApplied != (result.Status == "corrected") {
			t.Errorf("event %d: correctionApplied = %v with status %s",
				result.EventID, result.CorrectionApplied, result.Status)
		}
	}

	// Irrelevant events must never reach the corrector.
	for _, id := range corrector.applied {
		if id == "400" || id == "500" {
			t.Errorf("irrelevant event reached the corrector: %s", id)
		}
	}
}

func TestProcessBatchDefersWhenNoAttributionData(t *testing.T) {
	svc, corrector, retries, bus := newTestService()
	corrector.errors["100"] = apperr.Validation("No UTM data available for correction")

	outcome := svc.ProcessBatch(context.Background(), []Event{
		{EventID: 1, SubscriptionType: "contact.creation", ObjectID: 100},
	})

	result := outcome.Results[0]
	if result.Status != "deferred" || result.Reason != "no_attribution_data" {
		t.Fatalf("unexpected result %+v", result)
	}

	if len(retries.scheduled) != 1 {
		t.Fatalf("expected one deferred retry, got %d", len(retries.scheduled))
	}
	if retries.scheduled[0].ContactID != "100" {
		t.Fatalf("unexpected payload %+v", retries.scheduled[0])
	}
	if retries.scheduled[0].TriggerEvent != "contact.creation" {
		t.Fatalf("trigger event not recorded: %+v", retries.scheduled[0])
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.events) != 1 {
		t.Fatalf("expected one deferred event, got %d", len(bus.events))
	}
	if _, ok := bus.events[0].(events.CorrectionDeferred); !ok {
		t.Fatalf("unexpected event %+v", bus.events[0])
	}
}

func TestProcessBatchFailOpenOnCorrectorError(t *testing.T) {
	svc, corrector, _, _ := newTestService()
	corrector.errors["100"] = apperr.Remote("CRM request failed with status 500", nil)
	corrector.outcomes["200"] = correction.Outcome{ContactID: "200", Applied: true}

	outcome := svc.ProcessBatch(context.Background(), []Event{
		{EventID: 1, SubscriptionType: "contact.creation", ObjectID: 100},
		{EventID: 2, SubscriptionType: "contact.creation", ObjectID: 200},
	})

	if outcome.Results[0].Status != "error" {
		t.Fatalf("expected error status, got %+v", outcome.Results[0])
	}
	if outcome.Results[1].Status != "corrected" {
		t.Fatal("a failing event must not block the rest of the batch")
	}
}

func TestProcessBatchWithoutTaskQueue(t *testing.T) {
	corrector := &fakeCorrector{
		outcomes: map[string]correction.Outcome{},
		errors:   map[string]error{"100": apperr.Validation("No UTM data available for correction")},
	}
	svc := NewService(corrector, nil, &recordingBus{}, logger.New("development"))

	outcome := svc.ProcessBatch(context.Background(), []Event{
		{EventID: 1, SubscriptionType: "contact.creation", ObjectID: 100},
	})
	if outcome.Results[0].Status != "deferred" {
		t.Fatalf("deferral must still be reported without a queue, got %+v", outcome.Results[0])
	}
}
