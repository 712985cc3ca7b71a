package contacts

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"

	"attribution_backend/internal/attribution"
	"attribution_backend/internal/attrstore"
	"attribution_backend/internal/events"
	"attribution_backend/internal/hubspot"
	"attribution_backend/platform/apperr"
	"attribution_backend/platform/logger"
)

type fakeCRM struct {
	contacts    map[string]*hubspot.Contact
	upserted    map[string]string
	updated     map[string]map[string]string
	upsertedNew bool
}

func newFakeCRM() *fakeCRM {
	return &fakeCRM{
		contacts: map[string]*hubspot.Contact{},
		updated:  map[string]map[string]string{},
	}
}

func (f *fakeCRM) CreateContact(ctx context.Context, props map[string]string) (*hubspot.Contact, error) {
	return &hubspot.Contact{ID: "new", Properties: props}, nil
}

func (f *fakeCRM) GetContactByID(ctx context.Context, id string) (*hubspot.Contact, error) {
	if c, ok := f.contacts[id]; ok {
		return c, nil
	}
	return nil, apperr.NotFound("contact not found")
}

func (f *fakeCRM) FindContactByEmail(ctx context.Context, email string) (*hubspot.Contact, error) {
	for _, c := range f.contacts {
		if c.Properties["email"] == email {
			return c, nil
		}
	}
	return nil, apperr.NotFound("contact not found")
}

func (f *fakeCRM) UpdateContact(ctx context.Context, id string, props map[string]string) (*hubspot.Contact, error) {
	if _, ok := f.contacts[id]; !ok {
		return nil, apperr.NotFound("contact not found")
	}
	f.updated[id] = props
	return f.contacts[id], nil
}

func (f *fakeCRM) UpsertContact(ctx context.Context, email string, props map[string]string) (*hubspot.Contact, bool, error) {
	f.upserted = props
	if existing, err := f.FindContactByEmail(ctx, email); err == nil {
		f.upsertedNew = false
		return existing, false, nil
	}
	f.upsertedNew = true
	contact := &hubspot.Contact{ID: "201", Properties: props}
	f.contacts["201"] = contact
	return contact, true, nil
}

type memorySnapshots struct {
	mu    sync.Mutex
	snaps map[string]attrstore.Snapshot
}

func newMemorySnapshots() *memorySnapshots {
	return &memorySnapshots{snaps: map[string]attrstore.Snapshot{}}
}

func (m *memorySnapshots) Save(ctx context.Context, email string, snap attrstore.Snapshot) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.snaps[email] = snap
	return nil
}

func (m *memorySnapshots) Lookup(ctx context.Context, email string) (attrstore.Snapshot, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	snap, ok := m.snaps[email]
	return snap, ok, nil
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

func newTestService() (*Service, *fakeCRM, *memorySnapshots, *recordingBus) {
	crm := newFakeCRM()
	store := newMemorySnapshots()
	bus := &recordingBus{}
	return NewService(crm, store, bus, logger.New("development")), crm, store, bus
}

func TestSubmitAssemblesAttributionProperties(t *testing.T) {
	svc, crm, store, bus := newTestService()

	result, err := svc.Submit(context.Background(), SubmitRequest{
		Email:     "Lead@Example.com",
		FirstName: "Ana",
		Session: &SessionData{
			Params: attribution.TrackingParams{
				UTMSource:   "google",
				UTMMedium:   "cpc",
				UTMCampaign: "vsl_spanish_col",
				GCLID:       "click-1",
			},
			LandingPage: "https://example.com/es/demo",
			Referrer:    "https://google.com",
			FirstTouch:  true,
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Created || result.ContactID != "201" {
		t.Fatalf("unexpected result %+v", result)
	}
	if result.Channel != attribution.ChannelPaidSearch {
		t.Fatalf("expected PAID_SEARCH, got %q", result.Channel)
	}

	props := crm.upserted
	checks := map[string]string{
		"utm_source_custom":        "google",
		"utm_campaign_custom":      "vsl_spanish_col",
		"country_target_custom":    "col",
		"language_target_custom":   "es",
		"attribution_model_custom": "last_touch",
		"hs_analytics_source":      "PAID_SEARCH",
		"hs_google_click_id":       "click-1",
		"hs_lead_status":           "WARM",
		"firstname":                "Ana",
	}
	for key, want := range checks {
		if props[key] != want {
			t.Errorf("property %s = %q, want %q", key, props[key], want)
		}
	}
	if props["first_attribution_date_custom"] == "" {
		t.Error("first touch submission must carry a first attribution date")
	}

	if _, ok, _ := store.Lookup(context.Background(), "lead@example.com"); !ok {
		t.Error("expected an attribution snapshot keyed by normalized email")
	}

	bus.mu.Lock()
	defer bus.mu.Unlock()
	if len(bus.events) != 1 {
		t.Fatalf("expected one published event, got %d", len(bus.events))
	}
	submitted, ok := bus.events[0].(events.ContactSubmitted)
	if !ok || submitted.ContactID != "201" || !submitted.Created {
		t.Fatalf("unexpected event %+v", bus.events[0])
	}
}

func TestSubmitAcceptsFlatBody(t *testing.T) {
	svc, crm, store, _ := newTestService()

	body := `{
		"email": "lead@example.com",
		"firstname": "Ana",
		"utmParams": {"utm_source": "facebook", "utm_medium": "rrss", "utm_campaign": "retargeting_mx"},
		"landingPage": "https://example.com/es/demo",
		"referrer": "https://facebook.com",
		"isFirstTouch": true
	}`
	var req SubmitRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	result, err := svc.Submit(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Channel != attribution.ChannelPaidSocial {
		t.Fatalf("expected PAID_SOCIAL from flat body, got %q", result.Channel)
	}
	if crm.upserted["utm_source_custom"] != "facebook" {
		t.Fatalf("flat utmParams did not reach the CRM payload: %v", crm.upserted)
	}
	if crm.upserted["country_target_custom"] != "mx" {
		t.Errorf("country_target_custom = %q, want mx", crm.upserted["country_target_custom"])
	}
	if crm.upserted["first_attribution_date_custom"] == "" {
		t.Error("isFirstTouch must carry a first attribution date")
	}
	if _, ok, _ := store.Lookup(context.Background(), "lead@example.com"); !ok {
		t.Error("flat-body submission must store an attribution snapshot")
	}
}

func TestSubmitNestedSessionWinsOverFlatFields(t *testing.T) {
	svc, crm, _, _ := newTestService()

	_, err := svc.Submit(context.Background(), SubmitRequest{
		Email:  "lead@example.com",
		Params: attribution.TrackingParams{UTMSource: "google"},
		Session: &SessionData{
			Params: attribution.TrackingParams{UTMSource: "linkedin"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if crm.upserted["utm_source_custom"] != "linkedin" {
		t.Fatalf("nested sessionData must win, got %q", crm.upserted["utm_source_custom"])
	}
}

func TestSubmitWithoutSessionStoresNoSnapshot(t *testing.T) {
	svc, _, store, _ := newTestService()

	if _, err := svc.Submit(context.Background(), SubmitRequest{Email: "lead@example.com"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, ok, _ := store.Lookup(context.Background(), "lead@example.com"); ok {
		t.Fatal("no snapshot expected when the session carries no parameters")
	}
}

func TestSubmitIncludesMeetingURL(t *testing.T) {
	svc, _, _, _ := newTestService()
	svc.SetMeetingBaseURL("https://meetings.example.com/demo")

	result, err := svc.Submit(context.Background(), SubmitRequest{
		Email: "lead@example.com",
		Session: &SessionData{
			Params: attribution.TrackingParams{UTMSource: "google", UTMMedium: "cpc"},
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(result.MeetingURL, "utm_source=google") ||
		!strings.Contains(result.MeetingURL, "utm_medium=cpc") {
		t.Fatalf("meeting url missing tracking parameters: %q", result.MeetingURL)
	}
}

func TestSubmitRequiresEmail(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.Submit(context.Background(), SubmitRequest{Email: "   "})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestUpdateAttributionResolvesByEmail(t *testing.T) {
	svc, crm, _, _ := newTestService()
	crm.contacts["301"] = &hubspot.Contact{ID: "301", Properties: map[string]string{"email": "lead@example.com"}}

	result, err := svc.UpdateAttribution(context.Background(), UpdateAttributionRequest{
		Email: "lead@example.com",
		Properties: map[string]string{
			"utm_source_custom": "linkedin",
			"hs_latest_source":  "PAID_SOCIAL",
			"lifecyclestage":    "customer",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ContactID != "301" {
		t.Fatalf("expected contact 301, got %q", result.ContactID)
	}
	if len(result.UpdatedProperties) != 2 {
		t.Fatalf("expected two updatable properties, got %v", result.UpdatedProperties)
	}
	if len(result.Skipped) != 1 || result.Skipped[0] != "lifecyclestage" {
		t.Fatalf("expected lifecyclestage to be skipped, got %v", result.Skipped)
	}
	if _, ok := crm.updated["301"]["lifecyclestage"]; ok {
		t.Fatal("non-attribution property must not reach the CRM")
	}
}

func TestUpdateAttributionMapsUTMData(t *testing.T) {
	svc, crm, _, _ := newTestService()
	crm.contacts["301"] = &hubspot.Contact{ID: "301", Properties: map[string]string{"email": "lead@example.com"}}

	body := `{
		"email": "lead@example.com",
		"utmData": {"utm_source": "facebook", "utm_medium": "rrss", "utm_campaign": "retargeting", "gclid": "g-1", "fbclid": "fb-1"}
	}`
	var req UpdateAttributionRequest
	if err := json.Unmarshal([]byte(body), &req); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	result, err := svc.UpdateAttribution(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.ContactID != "301" {
		t.Fatalf("expected contact 301, got %q", result.ContactID)
	}

	patched := crm.updated["301"]
	checks := map[string]string{
		"hs_analytics_source":  "PAID_SOCIAL",
		"hs_latest_source":     "PAID_SOCIAL",
		"hs_lead_status":       "WARM",
		"utm_source_custom":    "facebook",
		"utm_medium_custom":    "rrss",
		"utm_campaign_custom":  "retargeting",
		"hs_google_click_id":   "g-1",
		"hs_facebook_click_id": "fb-1",
	}
	for key, want := range checks {
		if patched[key] != want {
			t.Errorf("patched %s = %q, want %q", key, patched[key], want)
		}
	}
	if patched["hs_latest_source_timestamp"] == "" {
		t.Error("utmData mapping must stamp hs_latest_source_timestamp")
	}
}

func TestUpdateAttributionUnknownContact(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.UpdateAttribution(context.Background(), UpdateAttributionRequest{
		Email:      "nobody@example.com",
		Properties: map[string]string{"utm_source_custom": "google"},
	})
	if !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

func TestUpdateAttributionRejectsEmptyPayload(t *testing.T) {
	svc, _, _, _ := newTestService()

	_, err := svc.UpdateAttribution(context.Background(), UpdateAttributionRequest{
		ContactID:  "1",
		Properties: map[string]string{"lifecyclestage": "customer"},
	})
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
