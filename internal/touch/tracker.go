package touch

import (
	"context"
	"time"

	"attribution_backend/platform/poll"
)

// Tracker is the third-party tracking script capability. Real deployments
// adapt the CRM's ambient tracking queue behind this interface; everything
// else (tests, server-side use) gets the null object.
type Tracker interface {
	// IsReady reports whether the tracking API has finished loading.
	IsReady() bool
	// Identify forwards tracking parameters to the external tracker.
	Identify(params map[string]string)
}

// NopTracker is the null-object Tracker: never ready, ignores identify.
type NopTracker struct{}

func (NopTracker) IsReady() bool              { return false }
func (NopTracker) Identify(map[string]string) {}

var _ Tracker = NopTracker{}

const (
	trackerPollInterval = 500 * time.Millisecond
	trackerPollAttempts = 20
)

// identifyWhenReady waits for the tracker with a bounded polling budget and
// forwards the parameters once it is available. If the tracker never comes
// up the identify call is skipped; attribution still reaches the CRM over
// the unconditioned HTTP path, so this is best-effort only.
func identifyWhenReady(ctx context.Context, tracker Tracker, params map[string]string) bool {
	if len(params) == 0 {
		return false
	}

	if !poll.Until(ctx, trackerPollInterval, trackerPollAttempts, tracker.IsReady) {
		return false
	}

	tracker.Identify(params)
	return true
}
