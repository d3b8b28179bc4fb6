// Package performance maintains per-URL series of Core Web Vitals samples
// and derives evaluations, trends, alerts, and percentile aggregates.
package performance

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sitepulse/analytics/internal/domain/analytics"
	"github.com/sitepulse/analytics/internal/domain/stats"
	"github.com/sitepulse/analytics/internal/ports/outbound"
	"go.uber.org/zap"
)

// Threshold holds the published good / needs-improvement boundaries for a
// single measure. Values at or below Good score 100, at or below NeedsWork
// score 75, and anything beyond scores 50.
type Threshold struct {
	Good      float64
	NeedsWork float64
	Unit      string
	Name      string
}

// Thresholds collects the boundaries for the five tracked measures.
type Thresholds struct {
	LCP  Threshold
	FID  Threshold
	CLS  Threshold
	FCP  Threshold
	TTFB Threshold
}

// DefaultThresholds returns the published Core Web Vitals thresholds.
func DefaultThresholds() Thresholds {
	return Thresholds{
		LCP:  Threshold{Good: 2500, NeedsWork: 4000, Unit: "ms", Name: "Largest Contentful Paint"},
		FID:  Threshold{Good: 100, NeedsWork: 300, Unit: "ms", Name: "First Input Delay"},
		CLS:  Threshold{Good: 0.1, NeedsWork: 0.25, Unit: "score", Name: "Cumulative Layout Shift"},
		FCP:  Threshold{Good: 1800, NeedsWork: 3000, Unit: "ms", Name: "First Contentful Paint"},
		TTFB: Threshold{Good: 800, NeedsWork: 1800, Unit: "ms", Name: "Time to First Byte"},
	}
}

// score maps a measured value onto the 100/75/50 scale.
func (t Threshold) score(value float64) float64 {
	switch {
	case value <= t.Good:
		return 100
	case value <= t.NeedsWork:
		return 75
	default:
		return 50
	}
}

// MeasureScores holds the per-measure scores of one evaluation.
type MeasureScores struct {
	LCP  float64 `json:"lcp"`
	FID  float64 `json:"fid"`
	CLS  float64 `json:"cls"`
	FCP  float64 `json:"fcp"`
	TTFB float64 `json:"ttfb"`
}

// Evaluation is the scored result for a single sample.
type Evaluation struct {
	Scores  MeasureScores `json:"scores"`
	Overall float64       `json:"overall"`
	Grade   string        `json:"grade"`
}

// TrendStatus classifies a URL's score trajectory.
type TrendStatus string

const (
	TrendImproving        TrendStatus = "improving"
	TrendDegrading        TrendStatus = "degrading"
	TrendStable           TrendStatus = "stable"
	TrendInsufficientData TrendStatus = "insufficient_data"
)

// TrendResult compares the mean overall score of the most recent samples
// against the preceding window. Callers must branch on the status before
// reading the numeric fields.
type TrendResult struct {
	Status        TrendStatus `json:"status"`
	DeltaPercent  float64     `json:"delta_percent"`
	RecentScore   float64     `json:"recent_score"`
	PreviousScore float64     `json:"previous_score"`
}

// MeasureStats holds the aggregate statistics for one measure.
type MeasureStats struct {
	Average float64 `json:"average"`
	Median  float64 `json:"median"`
	P75     float64 `json:"p75"`
	P95     float64 `json:"p95"`
}

// AggregateStats summarizes a URL's full sample series.
type AggregateStats struct {
	URL     string       `json:"url"`
	Samples int          `json:"samples"`
	LCP     MeasureStats `json:"lcp"`
	FID     MeasureStats `json:"fid"`
	CLS     MeasureStats `json:"cls"`
	FCP     MeasureStats `json:"fcp"`
	TTFB    MeasureStats `json:"ttfb"`
}

const trendWindow = 10

// Aggregator accumulates samples per URL. Series grow append-only; any
// trimming comes from the injected retention policy, not from this
// component.
type Aggregator struct {
	mu         sync.RWMutex
	series     map[string][]analytics.PerformanceSample
	alerts     []analytics.Alert
	thresholds Thresholds
	retention  outbound.RetentionPolicy
	logger     *zap.Logger
}

// NewAggregator creates an aggregator with the given thresholds. A nil
// retention policy keeps every sample for the process lifetime.
func NewAggregator(thresholds Thresholds, retention outbound.RetentionPolicy, logger *zap.Logger) *Aggregator {
	return &Aggregator{
		series:     make(map[string][]analytics.PerformanceSample),
		thresholds: thresholds,
		retention:  retention,
		logger:     logger.Named("performance"),
	}
}

// Record appends the sample to its URL's series and fires any threshold
// alerts. A missing URL is the one malformed-input rejection.
func (a *Aggregator) Record(sample analytics.PerformanceSample) ([]analytics.Alert, error) {
	if sample.URL == "" {
		return nil, analytics.ErrMissingURL
	}
	if sample.LCP < 0 || sample.FID < 0 || sample.CLS < 0 || sample.FCP < 0 || sample.TTFB < 0 {
		return nil, analytics.ErrSampleOutOfRange
	}
	if sample.Timestamp.IsZero() {
		sample.Timestamp = time.Now()
	}

	fired := a.Alerts(sample)

	a.mu.Lock()
	defer a.mu.Unlock()

	series := append(a.series[sample.URL], sample)
	if a.retention != nil {
		if cutoff, ok := a.retention.Cutoff(time.Now()); ok {
			series = trimBefore(series, cutoff)
		}
	}
	a.series[sample.URL] = series
	a.alerts = append(a.alerts, fired...)

	for _, alert := range fired {
		a.logger.Warn("performance alert",
			zap.String("measure", alert.Measure),
			zap.String("severity", alert.Severity),
			zap.Float64("value", alert.Value),
			zap.String("url", alert.URL),
		)
	}

	return fired, nil
}

// Evaluate scores each measure independently and averages them into the
// overall score and letter grade. Evaluation reads only the immutable
// sample, so repeated calls always agree.
func (a *Aggregator) Evaluate(sample analytics.PerformanceSample) Evaluation {
	scores := MeasureScores{
		LCP:  a.thresholds.LCP.score(sample.LCP),
		FID:  a.thresholds.FID.score(sample.FID),
		CLS:  a.thresholds.CLS.score(sample.CLS),
		FCP:  a.thresholds.FCP.score(sample.FCP),
		TTFB: a.thresholds.TTFB.score(sample.TTFB),
	}
	overall := (scores.LCP + scores.FID + scores.CLS + scores.FCP + scores.TTFB) / 5

	return Evaluation{Scores: scores, Overall: overall, Grade: Grade(overall)}
}

// Grade maps an overall score onto the A-F scale.
func Grade(score float64) string {
	switch {
	case score >= 90:
		return "A"
	case score >= 80:
		return "B"
	case score >= 70:
		return "C"
	case score >= 60:
		return "D"
	default:
		return "F"
	}
}

// Alerts evaluates a single sample against the alerting thresholds without
// recording anything: critical for LCP or CLS beyond their poor boundary,
// warning for FID beyond its poor boundary.
func (a *Aggregator) Alerts(sample analytics.PerformanceSample) []analytics.Alert {
	var fired []analytics.Alert

	if sample.LCP > a.thresholds.LCP.NeedsWork {
		fired = append(fired, newAlert(sample, "LCP", analytics.SeverityCritical, sample.LCP, a.thresholds.LCP))
	}
	if sample.CLS > a.thresholds.CLS.NeedsWork {
		fired = append(fired, newAlert(sample, "CLS", analytics.SeverityCritical, sample.CLS, a.thresholds.CLS))
	}
	if sample.FID > a.thresholds.FID.NeedsWork {
		fired = append(fired, newAlert(sample, "FID", analytics.SeverityWarning, sample.FID, a.thresholds.FID))
	}
	return fired
}

func newAlert(sample analytics.PerformanceSample, measure, severity string, value float64, t Threshold) analytics.Alert {
	return analytics.Alert{
		ID:         uuid.NewString(),
		Measure:    measure,
		Severity:   severity,
		Message:    fmt.Sprintf("%s of %.2f%s exceeds threshold of %.2f%s", t.Name, value, t.Unit, t.NeedsWork, t.Unit),
		Value:      value,
		Threshold:  t.NeedsWork,
		URL:        sample.URL,
		DeviceType: sample.DeviceType,
		Timestamp:  sample.Timestamp,
	}
}

// Trend compares the mean overall score of the most recent window against
// the preceding one. With fewer than 2 samples there is nothing to compare
// and the result carries TrendInsufficientData instead of a number. A
// series shorter than two full windows is split in half so both sides stay
// non-empty.
func (a *Aggregator) Trend(url string) TrendResult {
	a.mu.RLock()
	series := a.series[url]
	a.mu.RUnlock()

	n := len(series)
	if n < 2 {
		return TrendResult{Status: TrendInsufficientData}
	}

	split := n - trendWindow
	if split < trendWindow {
		split = n / 2
	}
	recent := series[split:]
	previous := series[:split]
	if len(previous) > trendWindow {
		previous = previous[len(previous)-trendWindow:]
	}

	recentScore := a.meanOverall(recent)
	previousScore := a.meanOverall(previous)

	delta := 0.0
	if previousScore != 0 {
		delta = (recentScore - previousScore) / previousScore * 100
	}

	status := TrendStable
	switch {
	case delta >= 5:
		status = TrendImproving
	case delta <= -5:
		status = TrendDegrading
	}

	return TrendResult{
		Status:        status,
		DeltaPercent:  delta,
		RecentScore:   recentScore,
		PreviousScore: previousScore,
	}
}

func (a *Aggregator) meanOverall(samples []analytics.PerformanceSample) float64 {
	scores := make([]float64, 0, len(samples))
	for _, sample := range samples {
		scores = append(scores, a.Evaluate(sample).Overall)
	}
	return stats.Average(scores)
}

// Aggregate returns average/median/p75/p95 for each measure across the
// URL's full series, or nil when no samples exist yet.
func (a *Aggregator) Aggregate(url string) *AggregateStats {
	a.mu.RLock()
	series := a.series[url]
	a.mu.RUnlock()

	if len(series) == 0 {
		return nil
	}

	collect := func(pick func(analytics.PerformanceSample) float64) MeasureStats {
		values := make([]float64, 0, len(series))
		for _, s := range series {
			values = append(values, pick(s))
		}
		return MeasureStats{
			Average: stats.Average(values),
			Median:  stats.Median(values),
			P75:     stats.Percentile(values, 75),
			P95:     stats.Percentile(values, 95),
		}
	}

	return &AggregateStats{
		URL:     url,
		Samples: len(series),
		LCP:     collect(func(s analytics.PerformanceSample) float64 { return s.LCP }),
		FID:     collect(func(s analytics.PerformanceSample) float64 { return s.FID }),
		CLS:     collect(func(s analytics.PerformanceSample) float64 { return s.CLS }),
		FCP:     collect(func(s analytics.PerformanceSample) float64 { return s.FCP }),
		TTFB:    collect(func(s analytics.PerformanceSample) float64 { return s.TTFB }),
	}
}

// SiteScore returns the mean overall score across every recorded sample.
func (a *Aggregator) SiteScore() float64 {
	a.mu.RLock()
	defer a.mu.RUnlock()

	var scores []float64
	for _, series := range a.series {
		for _, sample := range series {
			scores = append(scores, a.Evaluate(sample).Overall)
		}
	}
	return stats.Average(scores)
}

// RecentAlerts returns the most recent alerts, newest first, capped at
// limit.
func (a *Aggregator) RecentAlerts(limit int) []analytics.Alert {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make([]analytics.Alert, 0, limit)
	for i := len(a.alerts) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, a.alerts[i])
	}
	return out
}

// Snapshot returns a copy of every per-URL series for export.
func (a *Aggregator) Snapshot() map[string][]analytics.PerformanceSample {
	a.mu.RLock()
	defer a.mu.RUnlock()

	out := make(map[string][]analytics.PerformanceSample, len(a.series))
	for url, series := range a.series {
		out[url] = append([]analytics.PerformanceSample(nil), series...)
	}
	return out
}

// AlertSnapshot returns a copy of the alert history for export.
func (a *Aggregator) AlertSnapshot() []analytics.Alert {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return append([]analytics.Alert(nil), a.alerts...)
}

// Clear resets all series and alerts. Intended for test isolation only.
func (a *Aggregator) Clear() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.series = make(map[string][]analytics.PerformanceSample)
	a.alerts = nil
}

func trimBefore(series []analytics.PerformanceSample, cutoff time.Time) []analytics.PerformanceSample {
	kept := series[:0]
	for _, sample := range series {
		if !sample.Timestamp.Before(cutoff) {
			kept = append(kept, sample)
		}
	}
	return kept
}
