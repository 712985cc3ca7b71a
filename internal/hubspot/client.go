// Package hubspot is the CRM client. It speaks the contacts v3 object API
// with a private access token and maps CRM failures onto the application
// error taxonomy so handlers never see raw HTTP details.
package hubspot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"attribution_backend/platform/apperr"
	"attribution_backend/platform/config"
	"attribution_backend/platform/logger"
)

const contactsPath = "/crm/v3/objects/contacts"

// Contact is a CRM contact record: an opaque id plus a flat property map.
type Contact struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

// API is the CRM surface the rest of the application depends on.
type API interface {
	CreateContact(ctx context.Context, props map[string]string) (*Contact, error)
	GetContactByID(ctx context.Context, id string) (*Contact, error)
	FindContactByEmail(ctx context.Context, email string) (*Contact, error)
	UpdateContact(ctx context.Context, id string, props map[string]string) (*Contact, error)
	// UpsertContact returns the contact and whether it was newly created.
	UpsertContact(ctx context.Context, email string, props map[string]string) (*Contact, bool, error)
}

// Client talks to the CRM contacts API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *logger.Logger
}

// New creates a CRM client from configuration. A missing token is not an
// error here; it surfaces as a Configuration error on the first call so
// the server can still boot in environments without CRM credentials.
func New(cfg config.HubSpotConfig, log *logger.Logger) *Client {
	return &Client{
		baseURL:    strings.TrimRight(cfg.GetHubSpotBaseURL(), "/"),
		token:      cfg.GetHubSpotAccessToken(),
		httpClient: &http.Client{Timeout: cfg.GetHubSpotTimeout()},
		log:        log,
	}
}

var _ API = (*Client)(nil)

type contactEnvelope struct {
	ID         string            `json:"id"`
	Properties map[string]string `json:"properties"`
}

type searchRequest struct {
	FilterGroups []filterGroup `json:"filterGroups"`
	Properties   []string      `json:"properties,omitempty"`
	Limit        int           `json:"limit,omitempty"`
}

type filterGroup struct {
	Filters []filter `json:"filters"`
}

type filter struct {
	PropertyName string `json:"propertyName"`
	Operator     string `json:"operator"`
	Value        string `json:"value"`
}

type searchResponse struct {
	Total   int               `json:"total"`
	Results []contactEnvelope `json:"results"`
}

type errorBody struct {
	Message  string `json:"message"`
	Category string `json:"category"`
}

// CreateContact creates a new contact. Read-only native properties are
// stripped before sending. A contact that already exists for the same
// email comes back as a Conflict error.
func (c *Client) CreateContact(ctx context.Context, props map[string]string) (*Contact, error) {
	clean, stripped := FilterWritable(props)
	if len(stripped) > 0 {
		c.log.Warn("dropping read-only properties from create", "properties", stripped)
	}

	body := map[string]any{"properties": clean}
	var out contactEnvelope
	if err := c.do(ctx, http.MethodPost, contactsPath, body, &out); err != nil {
		return nil, err
	}
	return &Contact{ID: out.ID, Properties: out.Properties}, nil
}

// GetContactByID fetches a contact with the property set the correction
// policy needs.
func (c *Client) GetContactByID(ctx context.Context, id string) (*Contact, error) {
	if id == "" {
		return nil, apperr.BadRequest("contact id is required")
	}

	path := fmt.Sprintf("%s/%s?properties=%s", contactsPath, id, strings.Join(defaultReadProperties, ","))
	var out contactEnvelope
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &Contact{ID: out.ID, Properties: out.Properties}, nil
}

// FindContactByEmail searches for a contact by exact email. A missing
// contact is a NotFound error, distinct from transport failures.
func (c *Client) FindContactByEmail(ctx context.Context, email string) (*Contact, error) {
	if email == "" {
		return nil, apperr.BadRequest("email is required")
	}

	req := searchRequest{
		FilterGroups: []filterGroup{{
			Filters: []filter{{PropertyName: "email", Operator: "EQ", Value: email}},
		}},
		Properties: defaultReadProperties,
		Limit:      1,
	}

	var out searchResponse
	if err := c.do(ctx, http.MethodPost, contactsPath+"/search", req, &out); err != nil {
		return nil, err
	}
	if len(out.Results) == 0 {
		return nil, apperr.NotFound("contact not found")
	}

	first := out.Results[0]
	return &Contact{ID: first.ID, Properties: first.Properties}, nil
}

// UpdateContact patches properties on an existing contact. Read-only
// native properties are stripped locally instead of letting the CRM
// reject the whole payload.
func (c *Client) UpdateContact(ctx context.Context, id string, props map[string]string) (*Contact, error) {
	if id == "" {
		return nil, apperr.BadRequest("contact id is required")
	}

	clean, stripped := FilterWritable(props)
	if len(stripped) > 0 {
		c.log.Warn("dropping read-only properties from update", "contactId", id, "properties", stripped)
	}
	if len(clean) == 0 {
		return nil, apperr.BadRequest("no writable properties in payload")
	}

	body := map[string]any{"properties": clean}
	var out contactEnvelope
	if err := c.do(ctx, http.MethodPatch, contactsPath+"/"+id, body, &out); err != nil {
		return nil, err
	}
	return &Contact{ID: out.ID, Properties: out.Properties}, nil
}

// UpsertContact creates the contact, and on an email conflict resolves the
// existing record and patches it instead. The two-step shape keeps the
// common path (new contact) to a single round trip.
func (c *Client) UpsertContact(ctx context.Context, email string, props map[string]string) (*Contact, bool, error) {
	if email == "" {
		return nil, false, apperr.BadRequest("email is required")
	}
	props["email"] = email

	contact, err := c.CreateContact(ctx, props)
	if err == nil {
		return contact, true, nil
	}
	if apperr.GetKind(err) != apperr.KindConflict {
		return nil, false, err
	}

	existing, err := c.FindContactByEmail(ctx, email)
	if err != nil {
		return nil, false, err
	}

	// The contact already recorded a first touch; a later submission must
	// not rewrite it.
	delete(props, "first_attribution_date_custom")

	updated, err := c.UpdateContact(ctx, existing.ID, props)
	if err != nil {
		return nil, false, err
	}
	return updated, false, nil
}

// do performs one CRM request and decodes the response into out. Every
// non-2xx response is translated into the error taxonomy.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	if c.token == "" {
		return apperr.Configuration("CRM access token is not configured")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return apperr.Wrap(apperr.KindInternal, "encode CRM request", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperr.Wrap(apperr.KindInternal, "build CRM request", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.CRMError(method, path, 0, err)
		return apperr.Network("CRM request failed", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		if out == nil {
			return nil
		}
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return apperr.Remote("CRM returned an unreadable response", err.Error())
		}
		return nil
	}

	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var parsed errorBody
	_ = json.Unmarshal(raw, &parsed)
	message := parsed.Message
	if message == "" {
		message = strings.TrimSpace(string(raw))
	}

	c.log.CRMError(method, path, resp.StatusCode, fmt.Errorf("%s", message))

	switch resp.StatusCode {
	case http.StatusNotFound:
		return apperr.NotFound("contact not found")
	case http.StatusConflict:
		return apperr.Conflict("contact already exists")
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return apperr.Remote("CRM rejected the request", message)
	case http.StatusUnauthorized, http.StatusForbidden:
		return apperr.Configuration("CRM rejected the access token")
	default:
		return apperr.Remote(fmt.Sprintf("CRM request failed with status %d", resp.StatusCode), message)
	}
}
