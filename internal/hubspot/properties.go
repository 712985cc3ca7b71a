package hubspot

import "strings"

// customPropertySuffix marks tenant-defined contact properties. The CRM
// accepts writes to these unconditionally; native analytics properties go
// through the allowlist below.
const customPropertySuffix = "_custom"

// writableNativeProperties are the analytics-adjacent native properties the
// CRM accepts in create and update payloads. Everything analytics-native
// outside this set is computed by the CRM and rejected on write.
var writableNativeProperties = map[string]struct{}{
	"hs_analytics_source":        {},
	"hs_latest_source":           {},
	"hs_latest_source_timestamp": {},
	"hs_google_click_id":         {},
	"hs_facebook_click_id":       {},
	"hs_lead_status":             {},
}

// readOnlyProperties are native analytics properties the CRM computes
// itself; including any of them in a write payload fails the whole request,
// so they are stripped locally before sending.
var readOnlyProperties = map[string]struct{}{
	"hs_analytics_source_data_1":             {},
	"hs_analytics_source_data_2":             {},
	"hs_analytics_first_url":                 {},
	"hs_analytics_last_url":                  {},
	"hs_latest_source_data_1":                {},
	"hs_latest_source_data_2":                {},
	"recent_conversion_event_name":           {},
	"recent_conversion_date":                 {},
	"engagements_last_meeting_booked_source": {},
}

// defaultReadProperties is the property set fetched on contact reads. It
// covers everything the correction policy inspects.
var defaultReadProperties = []string{
	"email",
	"createdate",
	"hs_analytics_source",
	"hs_latest_source",
	"utm_source_custom",
	"utm_medium_custom",
	"utm_campaign_custom",
	"utm_content_custom",
	"utm_term_custom",
	"attribution_correction_applied",
}

// IsWritableProperty reports whether a contact property may appear in a
// create or update payload.
func IsWritableProperty(name string) bool {
	if strings.HasSuffix(name, customPropertySuffix) {
		return true
	}
	if _, ok := readOnlyProperties[name]; ok {
		return false
	}
	if _, ok := writableNativeProperties[name]; ok {
		return true
	}
	// Plain contact fields (email, firstname, phone, ...) are writable.
	return true
}

// IsAttributionProperty reports whether a property may be set through the
// public attribution-update endpoint. Custom properties and the writable
// analytics natives qualify; everything else is skipped so the endpoint
// cannot be used to rewrite arbitrary contact fields.
func IsAttributionProperty(name string) bool {
	if strings.HasSuffix(name, customPropertySuffix) {
		return true
	}
	_, ok := writableNativeProperties[name]
	return ok
}

// FilterWritable returns a copy of props with read-only native properties
// removed. The returned slice lists what was stripped, for logging.
func FilterWritable(props map[string]string) (map[string]string, []string) {
	clean := make(map[string]string, len(props))
	var stripped []string
	for name, value := range props {
		if !IsWritableProperty(name) {
			stripped = append(stripped, name)
			continue
		}
		clean[name] = value
	}
	return clean, stripped
}
