// Package analytics contains the core domain model for the metrics
// aggregation engine: sessions, behavioral events, performance samples,
// conversion events, and business metrics.
package analytics

import "time"

// EventType enumerates the behavioral event kinds the engine accepts.
type EventType string

const (
	EventPageView      EventType = "pageview"
	EventClick         EventType = "click"
	EventScroll        EventType = "scroll"
	EventFormStart     EventType = "form_start"
	EventFormSubmit    EventType = "form_submit"
	EventDownload      EventType = "download"
	EventVideoPlay     EventType = "video_play"
	EventVideoComplete EventType = "video_complete"
)

// Valid reports whether t is a member of the event enumeration.
func (t EventType) Valid() bool {
	switch t {
	case EventPageView, EventClick, EventScroll, EventFormStart,
		EventFormSubmit, EventDownload, EventVideoPlay, EventVideoComplete:
		return true
	}
	return false
}

// IsConversionEvent reports whether an event kind counts as an implicit
// conversion. The kind is matched as a string so both behavioral event
// kinds (form_submit, download) and conversion kinds delivered through the
// behavioral path (phone_call, quote_request) classify correctly. Implicit
// classification never appends to a session's conversion sequence, so a
// single real-world action reported through both paths is not double
// counted.
func IsConversionEvent(kind string) bool {
	switch kind {
	case "form_submit", "phone_call", "download", "quote_request":
		return true
	}
	return false
}

// Event is a single behavioral event attributed to a session.
type Event struct {
	SessionID string                 `json:"session_id" validate:"required"`
	Type      EventType              `json:"type" validate:"required"`
	URL       string                 `json:"url"`
	Timestamp time.Time              `json:"timestamp"`
	Data      map[string]interface{} `json:"data,omitempty"`
}

// DeviceInfo describes the visitor's device.
type DeviceInfo struct {
	Type       string `json:"type"` // mobile, tablet, desktop
	OS         string `json:"os"`
	Browser    string `json:"browser"`
	Resolution string `json:"resolution"`
}

// GeoLocation is an optional coarse visitor location.
type GeoLocation struct {
	Country string `json:"country"`
	Region  string `json:"region,omitempty"`
	City    string `json:"city,omitempty"`
}

// TrafficSource describes how the visitor arrived.
type TrafficSource struct {
	Source   string `json:"source"`
	Medium   string `json:"medium"`
	Campaign string `json:"campaign,omitempty"`
	Term     string `json:"term,omitempty"`
}

// Session is a bounded sequence of events attributed to one visitor
// interaction window. Sessions are created on first sight of a session ID,
// mutated in place by subsequent events, and marked ended (never deleted)
// on an explicit unload signal.
type Session struct {
	ID          string            `json:"id"`
	UserID      string            `json:"user_id,omitempty"`
	StartedAt   time.Time         `json:"started_at"`
	EndedAt     *time.Time        `json:"ended_at,omitempty"`
	Duration    time.Duration     `json:"duration"`
	Events      []Event           `json:"events"`
	PageViews   int               `json:"page_views"`
	Device      DeviceInfo        `json:"device"`
	Location    *GeoLocation      `json:"location,omitempty"`
	Conversions []ConversionEvent `json:"conversions"`
	Source      TrafficSource     `json:"source"`
	Engagement  float64           `json:"engagement"`
	Bounced     bool              `json:"bounced"`
	IsNewUser   bool              `json:"is_new_user"`
}

// Ended reports whether the session has received its unload signal.
func (s *Session) Ended() bool {
	return s.EndedAt != nil
}

// EngagementScore computes the 0-100 engagement score from the session's
// current activity. The duration term only contributes once the session has
// ended, so the score never decreases while a session stays open.
func (s *Session) EngagementScore() float64 {
	score := clampTerm(float64(s.PageViews)*10, 30)
	score += clampTerm(float64(len(s.Events))*5, 30)
	if s.Ended() {
		score += clampTerm(s.Duration.Minutes()*2, 20)
	}
	score += clampTerm(float64(len(s.Conversions))*15, 20)

	if score > 100 {
		return 100
	}
	return score
}

func clampTerm(v, max float64) float64 {
	if v > max {
		return max
	}
	return v
}

// ResourceSizes is the byte-size breakdown of a page load by resource
// category.
type ResourceSizes struct {
	HTML   int64 `json:"html"`
	CSS    int64 `json:"css"`
	JS     int64 `json:"js"`
	Images int64 `json:"images"`
	Fonts  int64 `json:"fonts"`
	Other  int64 `json:"other"`
}

// Total returns the summed transfer size across all categories.
func (r ResourceSizes) Total() int64 {
	return r.HTML + r.CSS + r.JS + r.Images + r.Fonts + r.Other
}

// PerformanceSample is one Core-Web-Vitals measurement for a URL. Samples
// accumulate append-only per URL and are never mutated.
type PerformanceSample struct {
	URL        string        `json:"url" validate:"required"`
	DeviceType string        `json:"device_type"`
	Timestamp  time.Time     `json:"timestamp"`
	LCP        float64       `json:"lcp"`  // largest contentful paint, ms
	FID        float64       `json:"fid"`  // first input delay, ms
	CLS        float64       `json:"cls"`  // cumulative layout shift, unitless
	FCP        float64       `json:"fcp"`  // first contentful paint, ms
	TTFB       float64       `json:"ttfb"` // time to first byte, ms
	Resources  ResourceSizes `json:"resources"`
}

// ConversionType enumerates the explicit conversion kinds.
type ConversionType string

const (
	ConversionLead                ConversionType = "lead"
	ConversionContactForm         ConversionType = "contact_form"
	ConversionPhoneCall           ConversionType = "phone_call"
	ConversionQuoteRequest        ConversionType = "quote_request"
	ConversionConsultationBooking ConversionType = "consultation_booking"
	ConversionNewsletterSignup    ConversionType = "newsletter_signup"
)

// Valid reports whether t is a member of the conversion enumeration.
func (t ConversionType) Valid() bool {
	switch t {
	case ConversionLead, ConversionContactForm, ConversionPhoneCall,
		ConversionQuoteRequest, ConversionConsultationBooking, ConversionNewsletterSignup:
		return true
	}
	return false
}

// FunnelStage is one of the ordered marketing funnel stages.
type FunnelStage string

const (
	StageAwareness     FunnelStage = "awareness"
	StageConsideration FunnelStage = "consideration"
	StageDecision      FunnelStage = "decision"
	StagePurchase      FunnelStage = "purchase"
)

// FunnelStages returns the stages in their fixed funnel order.
func FunnelStages() []FunnelStage {
	return []FunnelStage{StageAwareness, StageConsideration, StageDecision, StagePurchase}
}

// Valid reports whether s is a member of the funnel stage enumeration.
func (s FunnelStage) Valid() bool {
	switch s {
	case StageAwareness, StageConsideration, StageDecision, StagePurchase:
		return true
	}
	return false
}

// ConversionEvent is an explicit conversion attributed to a session and a
// funnel stage.
type ConversionEvent struct {
	SessionID string         `json:"session_id" validate:"required"`
	Type      ConversionType `json:"type" validate:"required"`
	Value     float64        `json:"value,omitempty"`
	Currency  string         `json:"currency,omitempty"`
	Stage     FunnelStage    `json:"stage" validate:"required"`
	Source    string         `json:"source"`
	Medium    string         `json:"medium"`
	Campaign  string         `json:"campaign,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}

// MetricKind enumerates the business metric kinds.
type MetricKind string

const (
	MetricRevenue                 MetricKind = "revenue"
	MetricCost                    MetricKind = "cost"
	MetricProfit                  MetricKind = "profit"
	MetricLeads                   MetricKind = "leads"
	MetricConversions             MetricKind = "conversions"
	MetricCustomerAcquisitionCost MetricKind = "customer_acquisition_cost"
	MetricLifetimeValue           MetricKind = "lifetime_value"
)

// Valid reports whether k is a member of the metric kind enumeration.
func (k MetricKind) Valid() bool {
	switch k {
	case MetricRevenue, MetricCost, MetricProfit, MetricLeads,
		MetricConversions, MetricCustomerAcquisitionCost, MetricLifetimeValue:
		return true
	}
	return false
}

// Signed reports whether the kind can legitimately record a negative
// observation. Profit is a net quantity and a loss is a valid data point;
// every other kind is a non-negative tally or amount.
func (k MetricKind) Signed() bool {
	return k == MetricProfit
}

// Period is a reporting period granularity.
type Period string

const (
	PeriodDaily     Period = "daily"
	PeriodWeekly    Period = "weekly"
	PeriodMonthly   Period = "monthly"
	PeriodQuarterly Period = "quarterly"
	PeriodYearly    Period = "yearly"
)

// Valid reports whether p is a member of the period enumeration.
func (p Period) Valid() bool {
	switch p {
	case PeriodDaily, PeriodWeekly, PeriodMonthly, PeriodQuarterly, PeriodYearly:
		return true
	}
	return false
}

// BusinessMetric is one numeric business observation, stored append-only
// keyed by (kind, period).
type BusinessMetric struct {
	Kind     MetricKind `json:"kind" validate:"required"`
	Value    float64    `json:"value"`
	Currency string     `json:"currency,omitempty"`
	Period   Period     `json:"period" validate:"required"`
	Date     time.Time  `json:"date"`
	Source   string     `json:"source,omitempty"`
}
