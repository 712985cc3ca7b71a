// Package correction reconciles CRM contacts whose attribution was erased
// by the booking redirect. It re-derives the full attribution record from
// the caller's session or the stored snapshot and writes it back.
package correction

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"attribution_backend/internal/attribution"
	"attribution_backend/internal/attrstore"
	"attribution_backend/internal/events"
	"attribution_backend/internal/hubspot"
	"attribution_backend/platform/apperr"
	"attribution_backend/platform/logger"
)

// Session carries caller-provided attribution context, preferred over the
// stored snapshot when present.
type Session struct {
	Params      attribution.TrackingParams `json:"utmParams"`
	LandingPage string                     `json:"landingPage"`
	Referrer    string                     `json:"referrer"`
}

// Request asks for one contact's attribution to be reconciled.
type Request struct {
	ContactID string   `json:"contactId"`
	Email     string   `json:"email" validate:"omitempty,email"`
	Session   *Session `json:"sessionData"`
	Force     bool     `json:"forceCorrection"`
}

// SourceAudit is the pair of CRM analytics source values at one point in
// time, as written to the audit trail and returned to the caller.
type SourceAudit struct {
	AnalyticsSource string `json:"hs_analytics_source"`
	LatestSource    string `json:"hs_latest_source"`
}

// Outcome reports what the reconciliation did. Original and New carry the
// before and after source values when a correction was applied.
type Outcome struct {
	ContactID string       `json:"contactId"`
	Applied   bool         `json:"applied"`
	Reason    string       `json:"reason,omitempty"`
	Source    string       `json:"source,omitempty"`
	Message   string       `json:"message,omitempty"`
	Original  *SourceAudit `json:"originalAttribution,omitempty"`
	New       *SourceAudit `json:"newAttribution,omitempty"`
}

// Service orchestrates attribution corrections.
type Service struct {
	crm   hubspot.API
	store attrstore.Store
	bus   events.Bus
	log   *logger.Logger
	now   func() time.Time
}

func NewService(crm hubspot.API, store attrstore.Store, bus events.Bus, log *logger.Logger) *Service {
	return &Service{crm: crm, store: store, bus: bus, log: log, now: time.Now}
}

// Apply runs the full reconciliation for one contact: resolve, decide,
// re-derive, write back. A contact that does not need correcting is a
// successful no-op, not an error.
func (s *Service) Apply(ctx context.Context, req Request) (Outcome, error) {
	if req.ContactID == "" && req.Email == "" {
		return Outcome{}, apperr.Validation("contactId or email is required")
	}

	contact, err := s.resolve(ctx, req)
	if err != nil {
		return Outcome{}, err
	}

	need, reason := Evaluate(contact.Properties, req.Force, s.now().UTC())
	if !need {
		return Outcome{
			ContactID: contact.ID,
			Applied:   false,
			Message:   "no correction needed",
		}, nil
	}

	session, ok, err := s.resolveAttribution(ctx, req, contact)
	if err != nil {
		return Outcome{}, err
	}
	if !ok {
		return Outcome{}, apperr.Validation("No UTM data available for correction")
	}

	record := attribution.Assemble(session.Params, session.LandingPage, session.Referrer, false)

	original := SourceAudit{
		AnalyticsSource: contact.Properties["hs_analytics_source"],
		LatestSource:    contact.Properties["hs_latest_source"],
	}
	corrected := SourceAudit{
		AnalyticsSource: string(record.Channel),
		LatestSource:    string(record.Channel),
	}

	now := s.now().UTC()
	props := record.CustomProperties()
	props["hs_latest_source"] = string(record.Channel)
	props["hs_latest_source_timestamp"] = strconv.FormatInt(now.UnixMilli(), 10)
	props["attribution_correction_applied"] = "true"
	props["attribution_correction_timestamp"] = now.Format(time.RFC3339)
	props["attribution_correction_reason"] = CorrectionReason
	props["original_attribution"] = encodeAudit(original)

	if _, err := s.crm.UpdateContact(ctx, contact.ID, props); err != nil {
		return Outcome{}, err
	}

	s.log.Info("attribution corrected",
		"contactId", contact.ID,
		"trigger", reason,
		"source", session.Params.UTMSource)

	s.bus.Publish(ctx, events.CorrectionApplied{
		BaseEvent: events.NewBaseEvent(),
		ContactID: contact.ID,
		Email:     contact.Properties["email"],
		Reason:    CorrectionReason,
		Source:    session.Params.UTMSource,
	})

	return Outcome{
		ContactID: contact.ID,
		Applied:   true,
		Reason:    CorrectionReason,
		Source:    session.Params.UTMSource,
		Original:  &original,
		New:       &corrected,
	}, nil
}

// RetryCorrection re-runs a deferred correction from the task queue. A
// contact whose attribution settled in the meantime ends the retry chain.
func (s *Service) RetryCorrection(ctx context.Context, contactID, email string) error {
	_, err := s.Apply(ctx, Request{ContactID: contactID, Email: email})
	return err
}

func (s *Service) resolve(ctx context.Context, req Request) (*hubspot.Contact, error) {
	if req.ContactID != "" {
		return s.crm.GetContactByID(ctx, req.ContactID)
	}
	return s.crm.FindContactByEmail(ctx, normalizeEmail(req.Email))
}

// resolveAttribution prefers the caller's live session over the snapshot
// stored at submission time.
func (s *Service) resolveAttribution(ctx context.Context, req Request, contact *hubspot.Contact) (Session, bool, error) {
	if req.Session != nil && !req.Session.Params.IsEmpty() {
		return *req.Session, true, nil
	}

	email := normalizeEmail(req.Email)
	if email == "" {
		email = normalizeEmail(contact.Properties["email"])
	}
	if email == "" {
		return Session{}, false, nil
	}

	snap, ok, err := s.store.Lookup(ctx, email)
	if err != nil {
		return Session{}, false, err
	}
	if !ok || snap.Params.IsEmpty() {
		return Session{}, false, nil
	}
	return Session{
		Params:      snap.Params,
		LandingPage: snap.LandingPage,
		Referrer:    snap.Referrer,
	}, true, nil
}

// encodeAudit serializes a source snapshot for the CRM audit property.
func encodeAudit(audit SourceAudit) string {
	raw, err := json.Marshal(audit)
	if err != nil {
		return ""
	}
	return string(raw)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
