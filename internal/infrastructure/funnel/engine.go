// Package funnel maintains the date-keyed conversion ledger and derives
// funnel progression, last-touch attribution, and per-conversion ROI.
package funnel

import (
	"sort"
	"sync"
	"time"

	"github.com/sitepulse/analytics/internal/domain/analytics"
	"github.com/sitepulse/analytics/internal/infrastructure/sessions"
	"go.uber.org/zap"
)

// ledger keys use calendar dates so day-bounded queries scan whole buckets.
const ledgerDateLayout = "2006-01-02"

// RecordResult reports the outcome of recording one conversion. Attached is
// false when the owning session has never been seen; the conversion still
// enters the ledger, and the miss is surfaced as an attribution-quality
// signal.
type RecordResult struct {
	Attached bool `json:"attached"`
}

// StageMetrics holds the tallies for one funnel stage over a window.
type StageMetrics struct {
	Stage       analytics.FunnelStage `json:"stage"`
	Visits      int                   `json:"visits"`
	Conversions int                   `json:"conversions"`
	Rate        float64               `json:"rate"`
	DropOff     bool                  `json:"drop_off"`
}

// FunnelReport is the stage-by-stage analysis for a window, in funnel order.
type FunnelReport struct {
	From             time.Time      `json:"from"`
	To               time.Time      `json:"to"`
	Stages           []StageMetrics `json:"stages"`
	TotalConversions int            `json:"total_conversions"`
	TotalValue       float64        `json:"total_value"`
}

// ChannelPerformance is the last-touch credit assigned to one channel.
type ChannelPerformance struct {
	Source      string  `json:"source"`
	Medium      string  `json:"medium"`
	Campaign    string  `json:"campaign,omitempty"`
	Conversions int     `json:"conversions"`
	Value       float64 `json:"value"`
}

// AttributionReport credits each conversion in the window to its own
// source/medium/campaign, ordered by conversion count.
type AttributionReport struct {
	From       time.Time            `json:"from"`
	To         time.Time            `json:"to"`
	Channels   []ChannelPerformance `json:"channels"`
	Unattached int                  `json:"unattached"`
}

// ROIResult is the return-on-investment estimate for one conversion.
type ROIResult struct {
	Cost          float64 `json:"cost"`
	Value         float64 `json:"value"`
	ROI           float64 `json:"roi"`
	PaybackMonths float64 `json:"payback_months,omitempty"`
}

// ChannelCosts maps acquisition mediums to their per-conversion cost.
// Unknown mediums fall back to Baseline.
type ChannelCosts struct {
	PerChannel map[string]float64
	Baseline   float64
}

// DefaultChannelCosts returns the built-in acquisition cost table.
func DefaultChannelCosts() ChannelCosts {
	return ChannelCosts{
		PerChannel: map[string]float64{
			"organic_search": 50,
			"paid_search":    250,
			"social_media":   150,
			"email":          20,
			"referral":       80,
			"display":        180,
		},
		Baseline: 100,
	}
}

// cost resolves the acquisition cost for a medium.
func (c ChannelCosts) cost(medium string) float64 {
	if v, ok := c.PerChannel[medium]; ok {
		return v
	}
	return c.Baseline
}

// Engine owns the conversion ledger. Conversions append to date buckets and
// back-reference their owning session through the session store.
type Engine struct {
	mu         sync.RWMutex
	ledger     map[string][]analytics.ConversionEvent
	unattached int
	sessions   *sessions.Store
	costs      ChannelCosts
	logger     *zap.Logger
}

// NewEngine creates a funnel engine backed by the given session store.
func NewEngine(store *sessions.Store, costs ChannelCosts, logger *zap.Logger) *Engine {
	return &Engine{
		ledger:   make(map[string][]analytics.ConversionEvent),
		sessions: store,
		costs:    costs,
		logger:   logger.Named("funnel"),
	}
}

// Record validates the conversion, appends it to its date bucket, and
// attaches it to the owning session. A conversion for an unseen session is
// not an error: it is recorded anyway with Attached=false and logged, since
// the ledger must not lose revenue data over a lost session cookie.
func (e *Engine) Record(conv analytics.ConversionEvent) (RecordResult, error) {
	if conv.SessionID == "" {
		return RecordResult{}, analytics.ErrMissingSessionID
	}
	if !conv.Type.Valid() {
		return RecordResult{}, analytics.ErrInvalidConversion
	}
	if !conv.Stage.Valid() {
		return RecordResult{}, analytics.ErrInvalidFunnelStage
	}
	if conv.Timestamp.IsZero() {
		conv.Timestamp = time.Now()
	}

	attached := e.sessions.AttachConversion(conv)

	e.mu.Lock()
	key := conv.Timestamp.Format(ledgerDateLayout)
	e.ledger[key] = append(e.ledger[key], conv)
	if !attached {
		e.unattached++
	}
	e.mu.Unlock()

	if !attached {
		e.logger.Warn("conversion for unknown session",
			zap.String("session_id", conv.SessionID),
			zap.String("type", string(conv.Type)),
		)
	}

	return RecordResult{Attached: attached}, nil
}

// Analyze tallies conversions per funnel stage over [from, to). Visit counts
// come from the caller; a stage with recorded visits but zero conversions is
// flagged as a drop-off point, while a stage with no visit data reports a
// zero rate without the flag.
func (e *Engine) Analyze(visits map[analytics.FunnelStage]int, from, to time.Time) FunnelReport {
	tallies := make(map[analytics.FunnelStage]int)
	report := FunnelReport{From: from, To: to}

	e.mu.RLock()
	for _, bucket := range e.ledger {
		for _, conv := range bucket {
			if !within(conv.Timestamp, from, to) {
				continue
			}
			tallies[conv.Stage]++
			report.TotalConversions++
			report.TotalValue += conv.Value
		}
	}
	e.mu.RUnlock()

	for _, stage := range analytics.FunnelStages() {
		m := StageMetrics{
			Stage:       stage,
			Visits:      visits[stage],
			Conversions: tallies[stage],
		}
		if m.Visits > 0 {
			m.Rate = float64(m.Conversions) / float64(m.Visits) * 100
			m.DropOff = m.Conversions == 0
		}
		report.Stages = append(report.Stages, m)
	}
	return report
}

// Attribution assigns last-touch credit for every conversion in [from, to):
// the conversion's own source, medium, and campaign take full credit.
func (e *Engine) Attribution(from, to time.Time) AttributionReport {
	type channelKey struct {
		source, medium, campaign string
	}
	credits := make(map[channelKey]*ChannelPerformance)

	e.mu.RLock()
	for _, bucket := range e.ledger {
		for _, conv := range bucket {
			if !within(conv.Timestamp, from, to) {
				continue
			}
			key := channelKey{conv.Source, conv.Medium, conv.Campaign}
			perf, ok := credits[key]
			if !ok {
				perf = &ChannelPerformance{Source: conv.Source, Medium: conv.Medium, Campaign: conv.Campaign}
				credits[key] = perf
			}
			perf.Conversions++
			perf.Value += conv.Value
		}
	}
	unattached := e.unattached
	e.mu.RUnlock()

	report := AttributionReport{From: from, To: to, Unattached: unattached}
	for _, perf := range credits {
		report.Channels = append(report.Channels, *perf)
	}
	sort.Slice(report.Channels, func(i, j int) bool {
		if report.Channels[i].Conversions != report.Channels[j].Conversions {
			return report.Channels[i].Conversions > report.Channels[j].Conversions
		}
		return report.Channels[i].Value > report.Channels[j].Value
	})
	return report
}

// ROI estimates the return on the conversion's acquisition cost as a
// percentage. A zero-cost channel yields a zero ROI rather than a division
// blowup. The payback estimate only appears when the conversion turned a
// profit.
func (e *Engine) ROI(conv analytics.ConversionEvent) ROIResult {
	cost := e.costs.cost(conv.Medium)
	result := ROIResult{Cost: cost, Value: conv.Value}
	if cost <= 0 {
		return result
	}

	result.ROI = (conv.Value - cost) / cost * 100
	if profit := conv.Value - cost; profit > 0 {
		result.PaybackMonths = cost / profit
	}
	return result
}

// OverallConversionRate returns the share of all sessions that carry at
// least one conversion, as a percentage.
func (e *Engine) OverallConversionRate() float64 {
	total := e.sessions.Count()
	if total == 0 {
		return 0
	}
	return float64(e.sessions.WithConversion()) / float64(total) * 100
}

// RecentConversions returns the conversions inside the trailing window,
// newest first.
func (e *Engine) RecentConversions(window time.Duration, now time.Time) []analytics.ConversionEvent {
	cutoff := now.Add(-window)

	e.mu.RLock()
	var recent []analytics.ConversionEvent
	for _, bucket := range e.ledger {
		for _, conv := range bucket {
			if conv.Timestamp.After(cutoff) {
				recent = append(recent, conv)
			}
		}
	}
	e.mu.RUnlock()

	sort.Slice(recent, func(i, j int) bool {
		return recent[i].Timestamp.After(recent[j].Timestamp)
	})
	return recent
}

// TotalValue sums conversion values over [from, to).
func (e *Engine) TotalValue(from, to time.Time) float64 {
	e.mu.RLock()
	defer e.mu.RUnlock()

	var total float64
	for _, bucket := range e.ledger {
		for _, conv := range bucket {
			if within(conv.Timestamp, from, to) {
				total += conv.Value
			}
		}
	}
	return total
}

// CountBetween counts conversions over [from, to).
func (e *Engine) CountBetween(from, to time.Time) int {
	e.mu.RLock()
	defer e.mu.RUnlock()

	count := 0
	for _, bucket := range e.ledger {
		for _, conv := range bucket {
			if within(conv.Timestamp, from, to) {
				count++
			}
		}
	}
	return count
}

// Unattached returns how many recorded conversions referenced an unseen
// session.
func (e *Engine) Unattached() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.unattached
}

// Snapshot returns a deep copy of the date-keyed ledger for export.
func (e *Engine) Snapshot() map[string][]analytics.ConversionEvent {
	e.mu.RLock()
	defer e.mu.RUnlock()

	out := make(map[string][]analytics.ConversionEvent, len(e.ledger))
	for key, bucket := range e.ledger {
		out[key] = append([]analytics.ConversionEvent(nil), bucket...)
	}
	return out
}

// Clear resets the ledger. Intended for test isolation only.
func (e *Engine) Clear() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.ledger = make(map[string][]analytics.ConversionEvent)
	e.unattached = 0
}

func within(ts, from, to time.Time) bool {
	return !ts.Before(from) && ts.Before(to)
}
