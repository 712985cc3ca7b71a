package attribution

import (
	"testing"
	"time"
)

func TestCountryTarget(t *testing.T) {
	tests := []struct {
		params TrackingParams
		want   string
	}{
		{TrackingParams{UTMCampaign: "vsl_spanish_col"}, "col"},
		{TrackingParams{UTMCampaign: "brand_mx_q4"}, "mx"},
		{TrackingParams{UTMContent: "mx"}, "mx"},
		{TrackingParams{UTMContent: "col"}, "col"},
		{TrackingParams{}, "general"},
		{TrackingParams{UTMCampaign: "brand", UTMContent: "video"}, "general"},
	}

	for _, tt := range tests {
		if got := CountryTarget(tt.params); got != tt.want {
			t.Fatalf("CountryTarget(%+v) = %q, want %q", tt.params, got, tt.want)
		}
	}
}

func TestLanguageTarget(t *testing.T) {
	tests := []struct {
		landingPage string
		want        string
	}{
		{"https://example.com/es/vsl", "es"},
		{"https://example.com/en/vsl", "en"},
		{"https://example.com/en?x=1", "en"},
		{"https://example.com/", "es"},
	}

	for _, tt := range tests {
		if got := LanguageTarget(tt.landingPage); got != tt.want {
			t.Fatalf("LanguageTarget(%q) = %q, want %q", tt.landingPage, got, tt.want)
		}
	}
}

func TestDetermineModel(t *testing.T) {
	if got := DetermineModel(TrackingParams{UTMMedium: "cpc"}); got != ModelLastTouch {
		t.Fatalf("cpc should be last_touch, got %s", got)
	}
	if got := DetermineModel(TrackingParams{UTMMedium: "email"}); got != ModelMultiTouch {
		t.Fatalf("email should be multi_touch, got %s", got)
	}
	if got := DetermineModel(TrackingParams{UTMMedium: "rrss"}); got != ModelFirstTouch {
		t.Fatalf("rrss should be first_touch, got %s", got)
	}
}

func TestAssemble_FirstTouchSetsBothTimestamps(t *testing.T) {
	record := Assemble(TrackingParams{UTMSource: "facebook", UTMMedium: "cpc", UTMCampaign: "q4"}, "https://example.com/es/vsl", "https://facebook.com", true)

	if record.Channel != ChannelPaidSocial {
		t.Fatalf("expected PAID_SOCIAL, got %s", record.Channel)
	}
	if record.FirstTimestamp == "" || record.LatestTimestamp == "" {
		t.Fatalf("first touch must set both timestamps, got %q/%q", record.FirstTimestamp, record.LatestTimestamp)
	}
	if record.FirstTimestamp != record.LatestTimestamp {
		t.Fatalf("timestamps should match on first touch")
	}
	if _, err := time.Parse(time.RFC3339, record.LatestTimestamp); err != nil {
		t.Fatalf("timestamp not RFC3339: %v", err)
	}
}

func TestAssemble_CorrectionNeverFirstTouch(t *testing.T) {
	record := Assemble(TrackingParams{UTMSource: "instagram"}, "https://example.com/", "", false)

	if record.FirstTimestamp != "" {
		t.Fatalf("non-first touch must not set first timestamp, got %q", record.FirstTimestamp)
	}
	if record.LatestTimestamp == "" {
		t.Fatalf("latest timestamp must always be set")
	}
}

func TestCustomProperties_OmitsEmptyFields(t *testing.T) {
	record := Assemble(TrackingParams{UTMSource: "google", UTMMedium: "cpc"}, "https://example.com/en/demo", "", false)
	props := record.CustomProperties()

	if props["utm_source_custom"] != "google" {
		t.Fatalf("expected utm_source_custom google, got %q", props["utm_source_custom"])
	}
	if props["hs_analytics_source"] != string(ChannelPaidSearch) {
		t.Fatalf("expected PAID_SEARCH, got %q", props["hs_analytics_source"])
	}
	if _, ok := props["utm_campaign_custom"]; ok {
		t.Fatalf("absent campaign must not appear in properties")
	}
	if _, ok := props["referrer_custom"]; ok {
		t.Fatalf("absent referrer must not appear in properties")
	}
	if _, ok := props["first_attribution_date_custom"]; ok {
		t.Fatalf("non-first touch must not write first attribution date")
	}
}
