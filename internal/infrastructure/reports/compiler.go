// Package reports composes the other components' read sides into the two
// delivered artifacts: the realtime snapshot and the periodic report with
// its executive summary and ranked recommendations.
package reports

import (
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sitepulse/analytics/internal/domain/analytics"
	"github.com/sitepulse/analytics/internal/infrastructure/forecast"
	"github.com/sitepulse/analytics/internal/infrastructure/funnel"
	"github.com/sitepulse/analytics/internal/infrastructure/performance"
	"github.com/sitepulse/analytics/internal/infrastructure/sessions"
	"go.uber.org/zap"
)

// realtimeWindow bounds what counts as "live" in the snapshot.
const realtimeWindow = 5 * time.Minute

// snapshotAlertLimit caps how many live alerts the snapshot carries.
const snapshotAlertLimit = 5

// Clock supplies the current time; injectable so report windows are
// deterministic under test.
type Clock func() time.Time

// RealtimeSnapshot is the live view of the last five minutes. Every count
// is computed by filtering the stores at call time, never read from a
// rolling counter, so a snapshot always agrees with the data behind it.
type RealtimeSnapshot struct {
	GeneratedAt       time.Time         `json:"generated_at"`
	ActiveSessions    int               `json:"active_sessions"`
	PageViews         int               `json:"page_views"`
	RecentConversions int               `json:"recent_conversions"`
	Alerts            []analytics.Alert `json:"alerts"`
}

// KeywordRanking is an externally supplied search position for one keyword.
type KeywordRanking struct {
	Keyword  string `json:"keyword"`
	Position int    `json:"position"`
}

// Recommendation is one ranked action item derived from a threshold breach.
type Recommendation struct {
	Priority int    `json:"priority"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// ExecutiveSummary is the headline block of a periodic report.
type ExecutiveSummary struct {
	TotalSessions    int     `json:"total_sessions"`
	PerformanceScore float64 `json:"performance_score"`
	TotalConversions int     `json:"total_conversions"`
	TotalRevenue     float64 `json:"total_revenue"`
}

// SessionsSection summarizes visitor behavior. Total counts sessions
// started inside the report window; AverageEngagement, BounceRate, and
// ConversionRate are computed over all retained history, since per-window
// rates over sparse data would swing wildly between reports.
type SessionsSection struct {
	Total             int     `json:"total"`
	AverageEngagement float64 `json:"average_engagement"`
	BounceRate        float64 `json:"bounce_rate"`
	ConversionRate    float64 `json:"conversion_rate"`
}

// PerformanceSection summarizes site speed. SiteScore, Grade, and the
// alert count cover all retained samples rather than the report window;
// Core Web Vitals shift slowly and retention already bounds the history.
type PerformanceSection struct {
	SiteScore float64 `json:"site_score"`
	Grade     string  `json:"grade"`
	Alerts    int     `json:"alerts"`
}

// ForecastSection carries the revenue projection for the report's period.
type ForecastSection struct {
	Trend       forecast.TrendAnalysis `json:"trend"`
	Seasonality forecast.Seasonality   `json:"seasonality"`
	Projection  forecast.Projection    `json:"projection"`
}

// PeriodReport is the full composed report for one reporting period.
type PeriodReport struct {
	ID              string                   `json:"id"`
	Period          analytics.Period         `json:"period"`
	From            time.Time                `json:"from"`
	To              time.Time                `json:"to"`
	Summary         ExecutiveSummary         `json:"summary"`
	Sessions        SessionsSection          `json:"sessions"`
	Performance     PerformanceSection       `json:"performance"`
	Funnel          funnel.FunnelReport      `json:"funnel"`
	Attribution     funnel.AttributionReport `json:"attribution"`
	Forecast        ForecastSection          `json:"forecast"`
	Recommendations []Recommendation         `json:"recommendations"`
}

// RecommendationThresholds are the breach boundaries that turn observed
// numbers into recommendations.
type RecommendationThresholds struct {
	MinPerformanceScore float64
	MinTopKeywords      int
	MinConversionRate   float64
	MinProfitMargin     float64
}

// DefaultRecommendationThresholds returns the built-in breach boundaries.
func DefaultRecommendationThresholds() RecommendationThresholds {
	return RecommendationThresholds{
		MinPerformanceScore: 80,
		MinTopKeywords:      5,
		MinConversionRate:   2,
		MinProfitMargin:     20,
	}
}

// Compiler derives reports from the live stores. It holds no state of its
// own beyond the optional SEO rankings, so compiling is always a pure read.
type Compiler struct {
	sessions   *sessions.Store
	perf       *performance.Aggregator
	funnel     *funnel.Engine
	metrics    *forecast.MetricStore
	thresholds RecommendationThresholds
	clock      Clock
	logger     *zap.Logger

	mu       sync.RWMutex
	keywords []KeywordRanking
}

// NewCompiler wires a compiler over the given stores. A nil clock defaults
// to time.Now.
func NewCompiler(
	store *sessions.Store,
	perf *performance.Aggregator,
	funnelEngine *funnel.Engine,
	metrics *forecast.MetricStore,
	thresholds RecommendationThresholds,
	clock Clock,
	logger *zap.Logger,
) *Compiler {
	if clock == nil {
		clock = time.Now
	}
	return &Compiler{
		sessions:   store,
		perf:       perf,
		funnel:     funnelEngine,
		metrics:    metrics,
		thresholds: thresholds,
		clock:      clock,
		logger:     logger.Named("reports"),
	}
}

// SetKeywordRankings installs the externally sourced search positions used
// by the SEO recommendation. Rankings are optional; without them the SEO
// check is skipped rather than reported as a breach. Safe to call while
// reports compile concurrently.
func (c *Compiler) SetKeywordRankings(rankings []KeywordRanking) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keywords = append([]KeywordRanking(nil), rankings...)
}

func (c *Compiler) keywordRankings() []KeywordRanking {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.keywords
}

// Snapshot compiles the live five-minute view.
func (c *Compiler) Snapshot() RealtimeSnapshot {
	now := c.clock()
	return RealtimeSnapshot{
		GeneratedAt:       now,
		ActiveSessions:    c.sessions.ActiveWithin(realtimeWindow, now),
		PageViews:         c.sessions.PageViewsWithin(realtimeWindow, now),
		RecentConversions: len(c.funnel.RecentConversions(realtimeWindow, now)),
		Alerts:            c.perf.RecentAlerts(snapshotAlertLimit),
	}
}

// Compile builds the full report for the trailing window of the given
// period. An unknown period is malformed input.
func (c *Compiler) Compile(period analytics.Period) (PeriodReport, error) {
	if !period.Valid() {
		return PeriodReport{}, analytics.ErrInvalidReportPeriod
	}

	to := c.clock()
	from := to.Add(-periodWindow(period))

	siteScore := c.perf.SiteScore()
	conversionRate := c.funnel.OverallConversionRate()
	revenue := c.metrics.SumBetween(analytics.MetricRevenue, period, from, to)

	report := PeriodReport{
		ID:     uuid.NewString(),
		Period: period,
		From:   from,
		To:     to,
		Sessions: SessionsSection{
			Total:             c.sessions.StartedBetween(from, to),
			AverageEngagement: c.sessions.AverageEngagement(),
			BounceRate:        c.sessions.BounceRate(),
			ConversionRate:    conversionRate,
		},
		Performance: PerformanceSection{
			SiteScore: siteScore,
			Grade:     performance.Grade(siteScore),
			Alerts:    len(c.perf.AlertSnapshot()),
		},
		Funnel:      c.funnel.Analyze(nil, from, to),
		Attribution: c.funnel.Attribution(from, to),
		Forecast:    c.forecastSection(period),
	}

	report.Summary = ExecutiveSummary{
		TotalSessions:    report.Sessions.Total,
		PerformanceScore: siteScore,
		TotalConversions: report.Funnel.TotalConversions,
		TotalRevenue:     revenue,
	}
	report.Recommendations = c.recommend(siteScore, conversionRate, period, from, to)

	c.logger.Info("report compiled",
		zap.String("period", string(period)),
		zap.Int("sessions", report.Sessions.Total),
		zap.Int("conversions", report.Summary.TotalConversions),
		zap.Int("recommendations", len(report.Recommendations)),
	)
	return report, nil
}

func (c *Compiler) forecastSection(period analytics.Period) ForecastSection {
	series := c.metrics.Series(analytics.MetricRevenue, period)
	return ForecastSection{
		Trend:       forecast.Trend(series),
		Seasonality: forecast.DetectSeasonality(series),
		Projection:  forecast.Project(series, 3),
	}
}

// recommend turns threshold breaches into ranked action items. Lower
// priority numbers rank first.
func (c *Compiler) recommend(siteScore, conversionRate float64, period analytics.Period, from, to time.Time) []Recommendation {
	var recs []Recommendation

	if siteScore > 0 && siteScore < c.thresholds.MinPerformanceScore {
		recs = append(recs, Recommendation{
			Priority: 1,
			Category: "performance",
			Message: fmt.Sprintf("site performance score %.0f is below %.0f; review pages with critical Core Web Vitals alerts",
				siteScore, c.thresholds.MinPerformanceScore),
		})
	}

	if conversionRate > 0 && conversionRate < c.thresholds.MinConversionRate {
		recs = append(recs, Recommendation{
			Priority: 2,
			Category: "conversion",
			Message: fmt.Sprintf("conversion rate %.1f%% is below %.1f%%; review funnel drop-off stages",
				conversionRate, c.thresholds.MinConversionRate),
		})
	}

	if margin, ok := c.profitMargin(period, from, to); ok && margin < c.thresholds.MinProfitMargin {
		recs = append(recs, Recommendation{
			Priority: 3,
			Category: "profitability",
			Message: fmt.Sprintf("profit margin %.1f%% is below %.1f%%; review acquisition costs by channel",
				margin, c.thresholds.MinProfitMargin),
		})
	}

	if rankings := c.keywordRankings(); len(rankings) > 0 {
		if top := topRankedKeywords(rankings); top < c.thresholds.MinTopKeywords {
			recs = append(recs, Recommendation{
				Priority: 4,
				Category: "seo",
				Message: fmt.Sprintf("only %d keywords rank in the top 3 positions, below the target of %d",
					top, c.thresholds.MinTopKeywords),
			})
		}
	}

	sort.Slice(recs, func(i, j int) bool { return recs[i].Priority < recs[j].Priority })
	return recs
}

// profitMargin derives the margin percentage over the window. Without
// revenue data there is nothing to judge, so ok is false. An absent profit
// series falls back to revenue minus cost.
func (c *Compiler) profitMargin(period analytics.Period, from, to time.Time) (float64, bool) {
	revenue := c.metrics.SumBetween(analytics.MetricRevenue, period, from, to)
	if revenue == 0 {
		return 0, false
	}

	profit := c.metrics.SumBetween(analytics.MetricProfit, period, from, to)
	if profit == 0 {
		profit = revenue - c.metrics.SumBetween(analytics.MetricCost, period, from, to)
	}
	return profit / revenue * 100, true
}

func topRankedKeywords(rankings []KeywordRanking) int {
	count := 0
	for _, kw := range rankings {
		if kw.Position > 0 && kw.Position <= 3 {
			count++
		}
	}
	return count
}

// periodWindow maps a reporting period to its trailing window length.
func periodWindow(period analytics.Period) time.Duration {
	switch period {
	case analytics.PeriodDaily:
		return 24 * time.Hour
	case analytics.PeriodWeekly:
		return 7 * 24 * time.Hour
	case analytics.PeriodMonthly:
		return 30 * 24 * time.Hour
	case analytics.PeriodQuarterly:
		return 90 * 24 * time.Hour
	case analytics.PeriodYearly:
		return 365 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
