package correction

import (
	"strconv"
	"strings"
	"time"
)

// CorrectionReason tags every corrected contact so reporting can separate
// fixed records from organically attributed ones.
const CorrectionReason = "post_booking_direct_traffic_fix"

// recencyWindow bounds the "just created" heuristic. Contacts older than
// this are assumed to have settled attribution even without custom UTMs.
const recencyWindow = 10 * time.Minute

// directIndicators are the analytics source values the CRM writes when a
// booking redirect erased the real attribution. An absent source counts
// as direct too.
var directIndicators = map[string]struct{}{
	"":               {},
	"direct":         {},
	"direct_traffic": {},
	"(direct)":       {},
}

// Evaluate decides whether a contact's attribution needs correcting.
// force bypasses the heuristics entirely. The returned reason names the
// heuristic that fired, for the audit trail.
func Evaluate(props map[string]string, force bool, now time.Time) (bool, string) {
	if force {
		return true, "forced"
	}

	if props["utm_source_custom"] != "" {
		// Custom attribution already present; nothing was lost.
		return false, ""
	}

	if isDirect(props["hs_analytics_source"]) || isDirect(props["hs_latest_source"]) {
		return true, "direct_traffic"
	}

	if created, ok := parseCRMTime(props["createdate"]); ok {
		if now.Sub(created) < recencyWindow {
			return true, "recent_creation"
		}
	}

	return false, ""
}

func isDirect(source string) bool {
	_, ok := directIndicators[strings.ToLower(strings.TrimSpace(source))]
	return ok
}

// parseCRMTime accepts the two timestamp encodings the CRM emits for
// datetime properties: RFC 3339 and milliseconds since epoch.
func parseCRMTime(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, true
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return time.UnixMilli(ms).UTC(), true
	}
	return time.Time{}, false
}
