package contacts

import (
	"context"
	"sort"
	"strconv"
	"strings"
	"time"

	"attribution_backend/internal/attribution"
	"attribution_backend/internal/attrstore"
	"attribution_backend/internal/events"
	"attribution_backend/internal/hubspot"
	"attribution_backend/platform/apperr"
	"attribution_backend/platform/logger"
	"attribution_backend/platform/phone"
)

// SessionData is the attribution context captured client-side and carried
// with the submission.
type SessionData struct {
	Params      attribution.TrackingParams `json:"utmParams"`
	LandingPage string                     `json:"landingPage"`
	Referrer    string                     `json:"referrer"`
	FirstTouch  bool                       `json:"firstTouch"`
}

// SubmitRequest is an inbound contact submission. The widget sends the
// attribution context flat at the top level; a nested sessionData object is
// accepted as an equivalent shape and wins when both are present.
type SubmitRequest struct {
	Email     string `json:"email" validate:"required,email"`
	FirstName string `json:"firstname" validate:"max=100"`
	LastName  string `json:"lastname" validate:"max=100"`
	Phone     string `json:"phone" validate:"max=30"`
	Company   string `json:"company" validate:"max=200"`

	Params       attribution.TrackingParams `json:"utmParams"`
	LandingPage  string                     `json:"landingPage"`
	Referrer     string                     `json:"referrer"`
	IsFirstTouch bool                       `json:"isFirstTouch"`

	Session *SessionData `json:"sessionData"`
}

// session folds both accepted request shapes into one.
func (r SubmitRequest) session() SessionData {
	if r.Session != nil {
		return *r.Session
	}
	return SessionData{
		Params:      r.Params,
		LandingPage: r.LandingPage,
		Referrer:    r.Referrer,
		FirstTouch:  r.IsFirstTouch,
	}
}

// SubmitResult reports how the submission landed in the CRM.
type SubmitResult struct {
	ContactID  string              `json:"contactId"`
	Created    bool                `json:"created"`
	Channel    attribution.Channel `json:"channel"`
	MeetingURL string              `json:"meetingUrl,omitempty"`
}

// UpdateAttributionRequest patches attribution onto an existing contact,
// addressed by CRM id or email. utmData carries raw tracking parameters
// that are mapped onto CRM properties server-side; properties carries
// already-named CRM properties for callers that did their own mapping.
type UpdateAttributionRequest struct {
	ContactID  string                      `json:"contactId"`
	Email      string                      `json:"email" validate:"omitempty,email"`
	UTMData    *attribution.TrackingParams `json:"utmData"`
	Properties map[string]string           `json:"properties"`
}

// UpdateAttributionResult lists what was written and what was skipped.
type UpdateAttributionResult struct {
	ContactID         string   `json:"contactId"`
	UpdatedProperties []string `json:"updatedProperties"`
	Skipped           []string `json:"skipped,omitempty"`
}

// Service submits contacts to the CRM with full attribution context.
type Service struct {
	crm         hubspot.API
	store       attrstore.Store
	bus         events.Bus
	log         *logger.Logger
	meetingBase string
}

func NewService(crm hubspot.API, store attrstore.Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{crm: crm, store: store, bus: bus, log: log}
}

// SetMeetingBaseURL enables the booking link in submit responses. The link
// carries the session's tracking parameters so the booking page keeps the
// attribution context across the redirect.
func (s *Service) SetMeetingBaseURL(base string) {
	s.meetingBase = base
}

// Submit assembles the attribution record for the session and upserts the
// contact. The snapshot store is updated best-effort so a later webhook
// correction can recover the attribution context.
func (s *Service) Submit(ctx context.Context, req SubmitRequest) (SubmitResult, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" {
		return SubmitResult{}, apperr.Validation("email is required")
	}

	session := req.session()

	record := attribution.Assemble(session.Params, session.LandingPage, session.Referrer, session.FirstTouch)

	props := record.CustomProperties()
	setIfPresent(props, "firstname", req.FirstName)
	setIfPresent(props, "lastname", req.LastName)
	setIfPresent(props, "phone", phone.NormalizeE164(req.Phone))
	setIfPresent(props, "company", req.Company)
	setIfPresent(props, "hs_google_click_id", record.GCLID)
	setIfPresent(props, "hs_facebook_click_id", record.FBCLID)
	props["hs_lead_status"] = "WARM"

	contact, created, err := s.crm.UpsertContact(ctx, email, props)
	if err != nil {
		return SubmitResult{}, err
	}

	if !session.Params.IsEmpty() {
		snap := attrstore.Snapshot{
			Params:      session.Params,
			LandingPage: session.LandingPage,
			Referrer:    session.Referrer,
			CapturedAt:  time.Now().UTC(),
		}
		if err := s.store.Save(ctx, email, snap); err != nil {
			s.log.Warn("attribution snapshot not stored", "email", email, "error", err)
		}
	}

	s.bus.Publish(ctx, events.ContactSubmitted{
		BaseEvent: events.NewBaseEvent(),
		ContactID: contact.ID,
		Email:     email,
		Channel:   string(record.Channel),
		Created:   created,
	})

	result := SubmitResult{
		ContactID: contact.ID,
		Created:   created,
		Channel:   record.Channel,
	}
	if s.meetingBase != "" && !session.Params.IsEmpty() {
		if meetingURL, err := attribution.BuildMeetingURL(s.meetingBase, session.Params); err == nil {
			result.MeetingURL = meetingURL
		}
	}
	return result, nil
}

// UpdateAttribution resolves the contact, maps any raw tracking parameters
// onto CRM properties, and patches the allowed subset. Named properties
// outside the attribution surface are skipped, not failed, so partial
// payloads from older frontends still land.
func (s *Service) UpdateAttribution(ctx context.Context, req UpdateAttributionRequest) (UpdateAttributionResult, error) {
	if req.ContactID == "" && req.Email == "" {
		return UpdateAttributionResult{}, apperr.Validation("contactId or email is required")
	}

	allowed := map[string]string{}
	if req.UTMData != nil && !req.UTMData.IsEmpty() {
		for name, value := range attributionProps(*req.UTMData, time.Now().UTC()) {
			allowed[name] = value
		}
	}
	var skipped []string
	for name, value := range req.Properties {
		if hubspot.IsAttributionProperty(name) {
			allowed[name] = value
		} else {
			skipped = append(skipped, name)
		}
	}
	if len(allowed) == 0 {
		return UpdateAttributionResult{}, apperr.Validation("no updatable attribution properties in payload")
	}

	contactID := req.ContactID
	if contactID == "" {
		contact, err := s.crm.FindContactByEmail(ctx, strings.ToLower(strings.TrimSpace(req.Email)))
		if err != nil {
			return UpdateAttributionResult{}, err
		}
		contactID = contact.ID
	}

	if _, err := s.crm.UpdateContact(ctx, contactID, allowed); err != nil {
		return UpdateAttributionResult{}, err
	}

	updated := make([]string, 0, len(allowed))
	for name := range allowed {
		updated = append(updated, name)
	}
	sort.Strings(updated)
	sort.Strings(skipped)

	return UpdateAttributionResult{
		ContactID:         contactID,
		UpdatedProperties: updated,
		Skipped:           skipped,
	}, nil
}

// attributionProps maps raw tracking parameters onto the CRM property
// surface the attribution endpoint writes: the classified source in both
// analytics properties, the UTM custom fields, and the ad-network click
// identifiers.
func attributionProps(params attribution.TrackingParams, now time.Time) map[string]string {
	channel := attribution.Classify(params.UTMSource)
	props := map[string]string{
		"hs_analytics_source":        string(channel),
		"hs_latest_source":           string(channel),
		"hs_latest_source_timestamp": strconv.FormatInt(now.UnixMilli(), 10),
		"hs_lead_status":             "WARM",
	}
	setIfPresent(props, "utm_source_custom", params.UTMSource)
	setIfPresent(props, "utm_medium_custom", params.UTMMedium)
	setIfPresent(props, "utm_campaign_custom", params.UTMCampaign)
	setIfPresent(props, "utm_content_custom", params.UTMContent)
	setIfPresent(props, "utm_term_custom", params.UTMTerm)
	setIfPresent(props, "hs_google_click_id", params.GCLID)
	setIfPresent(props, "hs_facebook_click_id", params.FBCLID)
	return props
}

func setIfPresent(props map[string]string, key, value string) {
	if value != "" {
		props[key] = value
	}
}
