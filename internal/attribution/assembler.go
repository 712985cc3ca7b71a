package attribution

import (
	"strings"
	"time"
)

// Model is the attribution model tag written alongside a record.
type Model string

const (
	ModelFirstTouch Model = "first_touch"
	ModelLastTouch  Model = "last_touch"
	ModelMultiTouch Model = "multi_touch"
)

// Record is the write-only-to-CRM projection of a touchpoint. Each
// submission produces a fresh record; it is never mutated in place.
type Record struct {
	UTMSource   string
	UTMMedium   string
	UTMCampaign string
	UTMContent  string
	UTMTerm     string
	UTMID       string

	GCLID  string
	FBCLID string

	LandingPage string
	Referrer    string

	Channel          Channel
	SourceDetail1    string
	SourceDetail2    string
	AttributionModel Model
	CountryTarget    string
	LanguageTarget   string

	FirstTimestamp  string // set only on a first touch
	LatestTimestamp string
}

// Assemble combines tracking parameters and page context into a full
// attribution record. Aside from the timestamps it is deterministic.
func Assemble(params TrackingParams, landingPage, referrer string, firstTouch bool) Record {
	now := time.Now().UTC().Format(time.RFC3339)

	detail1, detail2 := Drilldowns(params)
	record := Record{
		UTMSource:   params.UTMSource,
		UTMMedium:   params.UTMMedium,
		UTMCampaign: params.UTMCampaign,
		UTMContent:  params.UTMContent,
		UTMTerm:     params.UTMTerm,
		UTMID:       params.UTMID,

		GCLID:  params.GCLID,
		FBCLID: params.FBCLID,

		LandingPage: landingPage,
		Referrer:    referrer,

		Channel:          Classify(params.UTMSource),
		SourceDetail1:    detail1,
		SourceDetail2:    detail2,
		AttributionModel: DetermineModel(params),
		CountryTarget:    CountryTarget(params),
		LanguageTarget:   LanguageTarget(landingPage),

		LatestTimestamp: now,
	}

	if firstTouch {
		record.FirstTimestamp = now
	}
	return record
}

// CountryTarget derives the campaign's target country from the campaign and
// content parameters. Campaign names carry a country suffix by convention
// (`vsl_spanish_col`), content sometimes carries the bare code.
func CountryTarget(params TrackingParams) string {
	campaign := normalize(params.UTMCampaign)
	if strings.Contains(campaign, "_col") {
		return "col"
	}
	if strings.Contains(campaign, "_mx") {
		return "mx"
	}

	switch normalize(params.UTMContent) {
	case "col":
		return "col"
	case "mx":
		return "mx"
	}
	return "general"
}

// LanguageTarget derives the visitor-facing language from the landing page
// path. Spanish is the default for unprefixed URLs.
func LanguageTarget(landingPage string) string {
	if strings.Contains(landingPage, "/es/") || strings.Contains(landingPage, "/es?") {
		return "es"
	}
	if strings.Contains(landingPage, "/en/") || strings.Contains(landingPage, "/en?") {
		return "en"
	}
	return "es"
}

// DetermineModel picks the attribution model tag for a touchpoint based on
// its medium: paid clicks attribute to the last touch, email campaigns to
// every touch, everything else to the first.
func DetermineModel(params TrackingParams) Model {
	switch normalize(params.UTMMedium) {
	case "cpc", "paid":
		return ModelLastTouch
	case "email":
		return ModelMultiTouch
	default:
		return ModelFirstTouch
	}
}

// CustomProperties renders the record as the CRM custom-property map. Only
// populated fields are included so a correction never blanks out values a
// previous submission wrote.
func (r Record) CustomProperties() map[string]string {
	props := map[string]string{}
	set := func(key, value string) {
		if value != "" {
			props[key] = value
		}
	}

	set("utm_source_custom", r.UTMSource)
	set("utm_medium_custom", r.UTMMedium)
	set("utm_campaign_custom", r.UTMCampaign)
	set("utm_content_custom", r.UTMContent)
	set("utm_term_custom", r.UTMTerm)
	set("utm_id_custom", r.UTMID)
	set("gclid_custom", r.GCLID)
	set("fbclid_custom", r.FBCLID)
	set("landing_page_custom", r.LandingPage)
	set("referrer_custom", r.Referrer)
	set("source_detail_1_custom", r.SourceDetail1)
	set("source_detail_2_custom", r.SourceDetail2)
	set("attribution_model_custom", string(r.AttributionModel))
	set("country_target_custom", r.CountryTarget)
	set("language_target_custom", r.LanguageTarget)
	set("hs_analytics_source", string(r.Channel))
	set("first_attribution_date_custom", r.FirstTimestamp)
	set("latest_attribution_date_custom", r.LatestTimestamp)

	return props
}
