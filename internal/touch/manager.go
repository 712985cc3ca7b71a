package touch

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"attribution_backend/internal/attribution"
	"attribution_backend/platform/logger"

	"github.com/google/uuid"
)

// Storage keys. One namespace per session store.
const (
	keySessionID     = "attrib_session_id"
	keyFirstTouch    = "attrib_first_touch"
	keyTouchCount    = "attrib_touch_count"
	keyLastTouchTime = "attrib_last_touch_time"
)

// Touchpoint is one recorded visit carrying attribution context.
type Touchpoint struct {
	Params      attribution.TrackingParams `json:"utmParams"`
	LandingPage string                     `json:"landingPage"`
	Referrer    string                     `json:"referrer"`
	Timestamp   string                     `json:"timestamp"`
}

// State is the session snapshot returned from Initialize. Params holds the
// effective attribution for this load: current-page parameters when
// present, otherwise the persisted first touch.
type State struct {
	SessionID     string
	Params        attribution.TrackingParams
	LandingPage   string
	Referrer      string
	FirstTouch    bool
	TouchCount    int
	LastTouchTime string
}

// Manager is the touch state store. It is the only writer of the session
// keys; the first-touch record is written at most once per session.
type Manager struct {
	store   Store
	tracker Tracker
	log     *logger.Logger

	state State
}

// NewManager creates a touch manager over the given store. A nil tracker
// falls back to the null object.
func NewManager(store Store, tracker Tracker, log *logger.Logger) *Manager {
	if tracker == nil {
		tracker = NopTracker{}
	}
	return &Manager{store: store, tracker: tracker, log: log}
}

// Initialize records a page load: it ensures a session id exists, captures
// the current touchpoint, persists it as the first touch when the session
// has none yet, and bumps the touch counter. Storage failures degrade to
// in-memory state for the current load; Initialize never fails.
func (m *Manager) Initialize(pageURL, referrer string) State {
	now := time.Now().UTC().Format(time.RFC3339)
	current := attribution.ExtractParams(pageURL)

	sessionID := m.getOrCreateSessionID()
	stored, hasStored := m.readFirstTouch()

	effective := current
	firstTouch := !hasStored

	if !hasStored && !current.IsEmpty() {
		m.writeFirstTouch(Touchpoint{
			Params:      current,
			LandingPage: pageURL,
			Referrer:    referrer,
			Timestamp:   now,
		})
	} else if hasStored && current.IsEmpty() {
		// UTM data from visit N survives to a UTM-less visit N+1.
		effective = stored.Params
	}

	count := m.readTouchCount() + 1
	m.writeString(keyTouchCount, strconv.Itoa(count))
	m.writeString(keyLastTouchTime, now)

	m.state = State{
		SessionID:     sessionID,
		Params:        effective,
		LandingPage:   pageURL,
		Referrer:      referrer,
		FirstTouch:    firstTouch,
		TouchCount:    count,
		LastTouchTime: now,
	}
	return m.state
}

// UpdateTouch counts a new touch event (e.g. a conversion) against the
// session. The session is no longer a first touch afterwards.
func (m *Manager) UpdateTouch() State {
	now := time.Now().UTC().Format(time.RFC3339)
	count := m.readTouchCount() + 1

	m.writeString(keyTouchCount, strconv.Itoa(count))
	m.writeString(keyLastTouchTime, now)

	m.state.TouchCount = count
	m.state.LastTouchTime = now
	m.state.FirstTouch = false
	return m.state
}

// EffectiveAttribution returns the tracking parameters to use right now:
// the current page's when present, else the stored first touch's, else
// empty.
func (m *Manager) EffectiveAttribution() attribution.TrackingParams {
	if !m.state.Params.IsEmpty() {
		return m.state.Params
	}
	if stored, ok := m.readFirstTouch(); ok {
		return stored.Params
	}
	return attribution.TrackingParams{}
}

// FirstTouch returns the persisted first touchpoint, if any.
func (m *Manager) FirstTouch() (Touchpoint, bool) {
	return m.readFirstTouch()
}

// IdentifyTracker forwards the effective attribution to the third-party
// tracker once it reports ready, within a bounded polling budget. Returns
// whether the identify call was made.
func (m *Manager) IdentifyTracker(ctx context.Context) bool {
	sent := identifyWhenReady(ctx, m.tracker, m.EffectiveAttribution().Map())
	if !sent {
		m.log.Debug("tracker identify skipped", "sessionId", m.state.SessionID)
	}
	return sent
}

func (m *Manager) getOrCreateSessionID() string {
	if id, err := m.store.Get(keySessionID); err == nil && id != "" {
		return id
	}

	id := uuid.NewString()
	m.writeString(keySessionID, id)
	return id
}

func (m *Manager) readFirstTouch() (Touchpoint, bool) {
	raw, err := m.store.Get(keyFirstTouch)
	if err != nil || raw == "" {
		return Touchpoint{}, false
	}

	var tp Touchpoint
	if err := json.Unmarshal([]byte(raw), &tp); err != nil {
		m.log.Warn("discarding corrupt first touch record", "error", err)
		_ = m.store.Remove(keyFirstTouch)
		return Touchpoint{}, false
	}
	return tp, true
}

func (m *Manager) writeFirstTouch(tp Touchpoint) {
	raw, err := json.Marshal(tp)
	if err != nil {
		return
	}
	m.writeString(keyFirstTouch, string(raw))
}

func (m *Manager) readTouchCount() int {
	raw, err := m.store.Get(keyTouchCount)
	if err != nil || raw == "" {
		return 0
	}

	count, err := strconv.Atoi(raw)
	if err != nil || count < 0 {
		return 0
	}
	return count
}

// writeString persists a key, tolerating storage failure (quota, disabled
// storage). The manager keeps serving in-memory state either way.
func (m *Manager) writeString(key, value string) {
	if err := m.store.Set(key, value); err != nil {
		m.log.Debug("touch store write failed", "key", key, "error", err)
	}
}
