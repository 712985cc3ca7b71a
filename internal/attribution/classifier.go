package attribution

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// Channel is a canonical marketing channel category. The values mirror the
// CRM's analytics source vocabulary so they can be written straight into
// the contact's source property.
type Channel string

const (
	ChannelPaidSocial     Channel = "PAID_SOCIAL"
	ChannelPaidSearch     Channel = "PAID_SEARCH"
	ChannelEmailMarketing Channel = "EMAIL_MARKETING"
	ChannelOrganicSearch  Channel = "ORGANIC_SEARCH"
	ChannelDirectTraffic  Channel = "DIRECT_TRAFFIC"
	ChannelReferrals      Channel = "REFERRALS"
	ChannelOtherCampaigns Channel = "OTHER_CAMPAIGNS"
)

// channelTable maps source keywords to canonical channels. Matching is
// case-insensitive substring, first hit wins in the order listed.
var channelTable = []struct {
	keyword string
	channel Channel
}{
	{"facebook", ChannelPaidSocial},
	{"instagram", ChannelPaidSocial},
	{"linkedin", ChannelPaidSocial},
	{"twitter", ChannelPaidSocial},
	{"youtube", ChannelPaidSocial},
	{"tiktok", ChannelPaidSocial},
	{"google", ChannelPaidSearch},
	{"bing", ChannelPaidSearch},
	{"yahoo", ChannelPaidSearch},
	{"newsletter", ChannelEmailMarketing},
	{"email", ChannelEmailMarketing},
	{"organic", ChannelOrganicSearch},
	{"direct", ChannelDirectTraffic},
	{"referral", ChannelReferrals},
}

// Classify maps a raw source string onto a canonical channel. An absent
// source is direct traffic, an unrecognized one falls through to
// OTHER_CAMPAIGNS.
func Classify(source string) Channel {
	normalized := normalize(source)
	if normalized == "" {
		return ChannelDirectTraffic
	}

	for _, entry := range channelTable {
		if strings.Contains(normalized, entry.keyword) {
			return entry.channel
		}
	}
	return ChannelOtherCampaigns
}

// Drilldowns computes the two human-readable source detail labels. The
// CRM's native drill-down properties are read-only for API integrations,
// so these land in custom fields instead.
func Drilldowns(params TrackingParams) (detail1, detail2 string) {
	source := params.UTMSource
	campaign := params.UTMCampaign

	switch normalize(params.UTMMedium) {
	case "cpc", "paid":
		detail1 = capitalizeOr(source, "Unknown Source")
		detail2 = firstNonEmpty(campaign, "Unknown Campaign")
	case "rrss", "social":
		detail1 = capitalizeOr(source, "Social Media")
		detail2 = firstNonEmpty(campaign, "Organic Social")
	case "email":
		detail1 = "Email Marketing"
		detail2 = firstNonEmpty(campaign, "Email Campaign")
	default:
		detail1 = capitalizeOr(source, "Other")
		detail2 = firstNonEmpty(campaign, params.UTMMedium, "Other Campaign")
	}
	return detail1, detail2
}

func capitalizeOr(value, fallback string) string {
	if value == "" {
		return fallback
	}
	r, size := utf8.DecodeRuneInString(value)
	return string(unicode.ToUpper(r)) + value[size:]
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
