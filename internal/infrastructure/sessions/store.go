// Package sessions owns the session lifecycle: creation on first sight,
// in-place mutation per event, engagement scoring, and the explicit close
// signal. Sessions are never deleted, only marked ended.
package sessions

import (
	"sync"
	"time"

	"github.com/sitepulse/analytics/internal/domain/analytics"
	"go.uber.org/zap"
)

// IngestResult reports the outcome of a single event ingestion.
type IngestResult struct {
	Score      float64 `json:"score"`
	FirstEvent bool    `json:"first_event"`
}

// Store is the keyed registry of in-flight and closed sessions.
type Store struct {
	mu       sync.RWMutex
	sessions map[string]*analytics.Session
	logger   *zap.Logger
}

// NewStore creates an empty session store.
func NewStore(logger *zap.Logger) *Store {
	return &Store{
		sessions: make(map[string]*analytics.Session),
		logger:   logger.Named("sessions"),
	}
}

// Ingest creates the session on first sight, appends the event, maintains
// the page-view count, and recomputes the engagement score. A missing
// session identifier is the one malformed-input rejection.
func (s *Store) Ingest(event analytics.Event) (IngestResult, error) {
	if event.SessionID == "" {
		return IngestResult{}, analytics.ErrMissingSessionID
	}
	if !event.Type.Valid() {
		return IngestResult{}, analytics.ErrInvalidEventType
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[event.SessionID]
	first := !ok
	if first {
		sess = newSession(event)
		s.sessions[event.SessionID] = sess
		s.logger.Debug("session started",
			zap.String("session_id", event.SessionID),
			zap.String("source", sess.Source.Source),
			zap.String("device", sess.Device.Type),
		)
	}

	sess.Events = append(sess.Events, event)
	if event.Type == analytics.EventPageView {
		sess.PageViews++
	}
	sess.Engagement = sess.EngagementScore()

	return IngestResult{Score: sess.Engagement, FirstEvent: first}, nil
}

// Close stamps the end time and duration. Closing an unknown or already
// closed session is a no-op: unload signals can race with data clearing.
func (s *Store) Close(sessionID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[sessionID]
	if !ok || sess.Ended() {
		return
	}

	now := time.Now()
	sess.EndedAt = &now
	sess.Duration = now.Sub(sess.StartedAt)
	sess.Bounced = sess.PageViews <= 1
	sess.Engagement = sess.EngagementScore()

	s.logger.Debug("session closed",
		zap.String("session_id", sessionID),
		zap.Duration("duration", sess.Duration),
		zap.Float64("engagement", sess.Engagement),
		zap.Bool("bounced", sess.Bounced),
	)
}

// AttachConversion appends the conversion to the owning session's sequence.
// It reports false when the session has not been seen; the caller records
// that as an attribution-quality signal rather than an error. This is the
// single cross-component write into session state.
func (s *Store) AttachConversion(conv analytics.ConversionEvent) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[conv.SessionID]
	if !ok {
		return false
	}

	sess.Conversions = append(sess.Conversions, conv)
	sess.Engagement = sess.EngagementScore()
	return true
}

// Get returns a copy of the session, or false when unseen.
func (s *Store) Get(sessionID string) (analytics.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sess, ok := s.sessions[sessionID]
	if !ok {
		return analytics.Session{}, false
	}
	return copySession(sess), true
}

// Count returns the total number of sessions ever seen.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

// ActiveWithin counts sessions with activity inside the trailing window.
// Computed by filtering, never from a rolling counter, so it always agrees
// with the underlying store.
func (s *Store) ActiveWithin(window time.Duration, now time.Time) int {
	cutoff := now.Add(-window)

	s.mu.RLock()
	defer s.mu.RUnlock()

	active := 0
	for _, sess := range s.sessions {
		if lastActivity(sess).After(cutoff) {
			active++
		}
	}
	return active
}

// PageViewsWithin counts pageview events inside the trailing window.
func (s *Store) PageViewsWithin(window time.Duration, now time.Time) int {
	cutoff := now.Add(-window)

	s.mu.RLock()
	defer s.mu.RUnlock()

	views := 0
	for _, sess := range s.sessions {
		for _, ev := range sess.Events {
			if ev.Type == analytics.EventPageView && ev.Timestamp.After(cutoff) {
				views++
			}
		}
	}
	return views
}

// WithConversion counts sessions carrying at least one conversion, through
// either the explicit conversion sequence or an implicit conversion event.
func (s *Store) WithConversion() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sess := range s.sessions {
		if sessionConverted(sess) {
			count++
		}
	}
	return count
}

// AverageEngagement returns the mean engagement score across all sessions.
func (s *Store) AverageEngagement() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if len(s.sessions) == 0 {
		return 0
	}

	var sum float64
	for _, sess := range s.sessions {
		sum += sess.Engagement
	}
	return sum / float64(len(s.sessions))
}

// BounceRate returns the share of closed sessions that bounced, as a
// percentage. Open sessions are excluded; their bounce state is unknown.
func (s *Store) BounceRate() float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()

	closed, bounced := 0, 0
	for _, sess := range s.sessions {
		if !sess.Ended() {
			continue
		}
		closed++
		if sess.Bounced {
			bounced++
		}
	}
	if closed == 0 {
		return 0
	}
	return float64(bounced) / float64(closed) * 100
}

// StartedBetween counts sessions whose start falls inside [from, to).
func (s *Store) StartedBetween(from, to time.Time) int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	count := 0
	for _, sess := range s.sessions {
		if !sess.StartedAt.Before(from) && sess.StartedAt.Before(to) {
			count++
		}
	}
	return count
}

// Snapshot returns deep copies of every session for export.
func (s *Store) Snapshot() []analytics.Session {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]analytics.Session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		out = append(out, copySession(sess))
	}
	return out
}

// Clear resets the store. Intended for test isolation only.
func (s *Store) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions = make(map[string]*analytics.Session)
}

// newSession builds a session from its first event. Device, traffic-source,
// and location descriptors ride on well-known keys of the first event's
// data map; absent keys leave zero values.
func newSession(event analytics.Event) *analytics.Session {
	sess := &analytics.Session{
		ID:        event.SessionID,
		StartedAt: event.Timestamp,
		UserID:    stringKey(event.Data, "user_id"),
		Device: analytics.DeviceInfo{
			Type:       stringKey(event.Data, "device_type"),
			OS:         stringKey(event.Data, "os"),
			Browser:    stringKey(event.Data, "browser"),
			Resolution: stringKey(event.Data, "resolution"),
		},
		Source: analytics.TrafficSource{
			Source:   stringKey(event.Data, "utm_source"),
			Medium:   stringKey(event.Data, "utm_medium"),
			Campaign: stringKey(event.Data, "utm_campaign"),
			Term:     stringKey(event.Data, "utm_term"),
		},
		IsNewUser: boolKey(event.Data, "is_new_user"),
	}

	if country := stringKey(event.Data, "country"); country != "" {
		sess.Location = &analytics.GeoLocation{
			Country: country,
			Region:  stringKey(event.Data, "region"),
			City:    stringKey(event.Data, "city"),
		}
	}
	return sess
}

func lastActivity(sess *analytics.Session) time.Time {
	if len(sess.Events) == 0 {
		return sess.StartedAt
	}
	return sess.Events[len(sess.Events)-1].Timestamp
}

func sessionConverted(sess *analytics.Session) bool {
	if len(sess.Conversions) > 0 {
		return true
	}
	for _, ev := range sess.Events {
		if analytics.IsConversionEvent(string(ev.Type)) {
			return true
		}
	}
	return false
}

func copySession(sess *analytics.Session) analytics.Session {
	out := *sess
	out.Events = append([]analytics.Event(nil), sess.Events...)
	out.Conversions = append([]analytics.ConversionEvent(nil), sess.Conversions...)
	if sess.Location != nil {
		loc := *sess.Location
		out.Location = &loc
	}
	if sess.EndedAt != nil {
		ended := *sess.EndedAt
		out.EndedAt = &ended
	}
	return out
}

func stringKey(data map[string]interface{}, key string) string {
	if data == nil {
		return ""
	}
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func boolKey(data map[string]interface{}, key string) bool {
	if data == nil {
		return false
	}
	if v, ok := data[key].(bool); ok {
		return v
	}
	return false
}
