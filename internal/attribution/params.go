// Package attribution contains the pure attribution domain: tracking
// parameter extraction, source classification, and attribution record
// assembly. Nothing in this package touches the network or storage.
package attribution

import (
	"net/url"
	"strings"
)

// TrackingParams holds the tracking parameters of a single page visit:
// the standard UTM set plus click identifiers from the major ad networks.
// An empty string means the parameter was absent; empty-valued query
// parameters are never captured.
type TrackingParams struct {
	UTMSource   string `json:"utm_source,omitempty"`
	UTMMedium   string `json:"utm_medium,omitempty"`
	UTMCampaign string `json:"utm_campaign,omitempty"`
	UTMContent  string `json:"utm_content,omitempty"`
	UTMTerm     string `json:"utm_term,omitempty"`
	UTMID       string `json:"utm_id,omitempty"`
	GCLID       string `json:"gclid,omitempty"`  // Google
	FBCLID      string `json:"fbclid,omitempty"` // Facebook
	MSCLKID     string `json:"msclkid,omitempty"`
	TTCLID      string `json:"ttclid,omitempty"`
	LIFatID     string `json:"li_fat_id,omitempty"` // LinkedIn
}

// ExtractParams reads the tracking parameters out of a URL. It never fails:
// a malformed URL yields empty params. Query keys present with an empty
// value are treated as absent.
func ExtractParams(rawURL string) TrackingParams {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return TrackingParams{}
	}

	query := parsed.Query()
	return TrackingParams{
		UTMSource:   query.Get("utm_source"),
		UTMMedium:   query.Get("utm_medium"),
		UTMCampaign: query.Get("utm_campaign"),
		UTMContent:  query.Get("utm_content"),
		UTMTerm:     query.Get("utm_term"),
		UTMID:       query.Get("utm_id"),
		GCLID:       query.Get("gclid"),
		FBCLID:      query.Get("fbclid"),
		MSCLKID:     query.Get("msclkid"),
		TTCLID:      query.Get("ttclid"),
		LIFatID:     query.Get("li_fat_id"),
	}
}

// IsEmpty reports whether no tracking parameter was captured.
func (p TrackingParams) IsEmpty() bool {
	return p == TrackingParams{}
}

// Map returns the populated parameters keyed by their wire names.
func (p TrackingParams) Map() map[string]string {
	out := map[string]string{}
	for key, value := range map[string]string{
		"utm_source":   p.UTMSource,
		"utm_medium":   p.UTMMedium,
		"utm_campaign": p.UTMCampaign,
		"utm_content":  p.UTMContent,
		"utm_term":     p.UTMTerm,
		"utm_id":       p.UTMID,
		"gclid":        p.GCLID,
		"fbclid":       p.FBCLID,
		"msclkid":      p.MSCLKID,
		"ttclid":       p.TTCLID,
		"li_fat_id":    p.LIFatID,
	} {
		if value != "" {
			out[key] = value
		}
	}
	return out
}

// BuildMeetingURL appends the populated tracking parameters to a booking
// page URL so the embedded widget receives them even across origins.
func BuildMeetingURL(baseURL string, params TrackingParams) (string, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return "", err
	}

	query := parsed.Query()
	for key, value := range params.Map() {
		query.Set(key, value)
	}
	parsed.RawQuery = query.Encode()
	return parsed.String(), nil
}

// normalize lower-cases and trims a raw parameter for matching.
func normalize(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}
