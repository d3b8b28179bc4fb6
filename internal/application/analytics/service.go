// Package analytics implements the application-layer engine facade: one
// explicit context object owning the component stores, constructed per
// process or per test, with no package-level state.
package analytics

import (
	"fmt"
	"math/rand"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/sitepulse/analytics/internal/domain/analytics"
	"github.com/sitepulse/analytics/internal/infrastructure/config"
	"github.com/sitepulse/analytics/internal/infrastructure/forecast"
	"github.com/sitepulse/analytics/internal/infrastructure/funnel"
	"github.com/sitepulse/analytics/internal/infrastructure/monitoring"
	"github.com/sitepulse/analytics/internal/infrastructure/performance"
	"github.com/sitepulse/analytics/internal/infrastructure/reports"
	"github.com/sitepulse/analytics/internal/infrastructure/sessions"
	"github.com/sitepulse/analytics/internal/ports/outbound"
	"go.uber.org/zap"
)

// Sampler yields a uniform value in [0, 1) for the sampling gate. Injectable
// so tests can force either side of the gate.
type Sampler func() float64

// IngestOutcome reports what happened to one behavioral event. A sampled-out
// event is not an error: Accepted is false and SampledOut is true.
type IngestOutcome struct {
	Accepted   bool    `json:"accepted"`
	SampledOut bool    `json:"sampled_out"`
	FirstEvent bool    `json:"first_event"`
	Score      float64 `json:"score"`
}

// PerformanceOutcome pairs a recorded sample's evaluation with any alerts
// it fired.
type PerformanceOutcome struct {
	Evaluation performance.Evaluation `json:"evaluation"`
	Alerts     []analytics.Alert      `json:"alerts"`
}

// Engine is the single entry point to the aggregation core. All ingestion
// is synchronous: when a call returns, the data is queryable.
type Engine struct {
	cfg      *config.Config
	sessions *sessions.Store
	perf     *performance.Aggregator
	funnel   *funnel.Engine
	metrics  *forecast.MetricStore
	reports  *reports.Compiler
	monitor  *monitoring.MetricsCollector
	validate *validator.Validate
	sample   Sampler
	clock    reports.Clock
	logger   *zap.Logger
}

// Option customizes an Engine at construction time.
type Option func(*Engine)

// WithSampler overrides the sampling gate's randomness source.
func WithSampler(s Sampler) Option {
	return func(e *Engine) { e.sample = s }
}

// WithClock overrides the engine's time source for report windows.
func WithClock(c reports.Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// NewEngine wires the component stores into one engine. Retention, channel
// costs, and recommendation thresholds come from the config; zero values
// fall back to the built-in defaults.
func NewEngine(cfg *config.Config, monitor *monitoring.MetricsCollector, logger *zap.Logger, opts ...Option) *Engine {
	var retention outbound.RetentionPolicy
	if cfg.Tracking.RetentionWindow > 0 {
		retention = outbound.WindowRetention{Window: cfg.Tracking.RetentionWindow}
	}

	costs := funnel.DefaultChannelCosts()
	if len(cfg.Engine.ChannelCosts) > 0 {
		costs = funnel.ChannelCosts{
			PerChannel: cfg.Engine.ChannelCosts,
			Baseline:   cfg.Engine.BaselineChannelCost,
		}
	}

	thresholds := reports.DefaultRecommendationThresholds()
	if cfg.Engine.MinPerformanceScore > 0 {
		thresholds = reports.RecommendationThresholds{
			MinPerformanceScore: cfg.Engine.MinPerformanceScore,
			MinTopKeywords:      cfg.Engine.MinTopKeywords,
			MinConversionRate:   cfg.Engine.MinConversionRate,
			MinProfitMargin:     cfg.Engine.MinProfitMargin,
		}
	}

	store := sessions.NewStore(logger)
	perf := performance.NewAggregator(performance.DefaultThresholds(), retention, logger)
	funnelEngine := funnel.NewEngine(store, costs, logger)
	metricStore := forecast.NewMetricStore(logger)

	e := &Engine{
		cfg:      cfg,
		sessions: store,
		perf:     perf,
		funnel:   funnelEngine,
		metrics:  metricStore,
		monitor:  monitor,
		validate: validator.New(),
		sample:   rand.Float64,
		clock:    time.Now,
		logger:   logger.Named("engine"),
	}
	for _, opt := range opts {
		opt(e)
	}

	e.reports = reports.NewCompiler(store, perf, funnelEngine, metricStore, thresholds, e.clock, logger)
	return e
}

// IngestBehaviorEvent runs the event through the sampling gate and into the
// session store. Only a malformed payload is an error; a sampled-out event
// reports its fate in the outcome.
func (e *Engine) IngestBehaviorEvent(event analytics.Event) (IngestOutcome, error) {
	if err := e.validate.Struct(event); err != nil {
		e.monitor.IngestError("event")
		return IngestOutcome{}, fmt.Errorf("invalid event payload: %w", err)
	}

	if rate := e.cfg.Tracking.SampleRate; rate < 1 && e.sample() >= rate {
		e.monitor.EventSampledOut()
		return IngestOutcome{SampledOut: true}, nil
	}

	if e.cfg.Tracking.AnonymizeIP {
		event = anonymizeLocation(event)
	}

	result, err := e.sessions.Ingest(event)
	if err != nil {
		e.monitor.IngestError("event")
		return IngestOutcome{}, err
	}

	e.monitor.EventIngested(string(event.Type))
	e.monitor.SetActiveSessions(e.sessions.ActiveWithin(5*time.Minute, e.clock()))

	return IngestOutcome{
		Accepted:   true,
		FirstEvent: result.FirstEvent,
		Score:      result.Score,
	}, nil
}

// CloseSession marks the session ended. Unknown sessions are ignored.
func (e *Engine) CloseSession(sessionID string) {
	e.sessions.Close(sessionID)
}

// RecordPerformanceSample records one Core Web Vitals sample and returns
// its evaluation plus any fired alerts.
func (e *Engine) RecordPerformanceSample(sample analytics.PerformanceSample) (PerformanceOutcome, error) {
	if err := e.validate.Struct(sample); err != nil {
		e.monitor.IngestError("sample")
		return PerformanceOutcome{}, fmt.Errorf("invalid sample payload: %w", err)
	}

	alerts, err := e.perf.Record(sample)
	if err != nil {
		e.monitor.IngestError("sample")
		return PerformanceOutcome{}, err
	}

	e.monitor.SampleRecorded()
	for _, alert := range alerts {
		e.monitor.AlertFired(alert.Severity)
	}

	return PerformanceOutcome{
		Evaluation: e.perf.Evaluate(sample),
		Alerts:     alerts,
	}, nil
}

// RecordConversion records one conversion. An unattached conversion (unseen
// session) is reported in the result, not as an error.
func (e *Engine) RecordConversion(conv analytics.ConversionEvent) (funnel.RecordResult, error) {
	if err := e.validate.Struct(conv); err != nil {
		e.monitor.IngestError("conversion")
		return funnel.RecordResult{}, fmt.Errorf("invalid conversion payload: %w", err)
	}

	result, err := e.funnel.Record(conv)
	if err != nil {
		e.monitor.IngestError("conversion")
		return funnel.RecordResult{}, err
	}

	e.monitor.ConversionRecorded(string(conv.Stage))
	return result, nil
}

// RecordBusinessMetric appends one business observation.
func (e *Engine) RecordBusinessMetric(metric analytics.BusinessMetric) error {
	if err := e.validate.Struct(metric); err != nil {
		e.monitor.IngestError("metric")
		return fmt.Errorf("invalid metric payload: %w", err)
	}

	if err := e.metrics.Record(metric); err != nil {
		e.monitor.IngestError("metric")
		return err
	}

	e.monitor.MetricRecorded(string(metric.Kind))
	return nil
}

// RealtimeSnapshot compiles the live five-minute view.
func (e *Engine) RealtimeSnapshot() reports.RealtimeSnapshot {
	return e.reports.Snapshot()
}

// PeriodReport compiles the full report for the period's trailing window.
func (e *Engine) PeriodReport(period analytics.Period) (reports.PeriodReport, error) {
	return e.reports.Compile(period)
}

// SetKeywordRankings installs the external SEO positions used by report
// recommendations.
func (e *Engine) SetKeywordRankings(rankings []reports.KeywordRanking) {
	e.reports.SetKeywordRankings(rankings)
}

// PerformanceAggregate returns the percentile statistics for one URL, or
// nil when the URL has no samples.
func (e *Engine) PerformanceAggregate(url string) *performance.AggregateStats {
	return e.perf.Aggregate(url)
}

// PerformanceTrend classifies one URL's score trajectory.
func (e *Engine) PerformanceTrend(url string) performance.TrendResult {
	return e.perf.Trend(url)
}

// FunnelAnalysis tallies conversions per stage over the window, using the
// caller-supplied visit counts.
func (e *Engine) FunnelAnalysis(visits map[analytics.FunnelStage]int, from, to time.Time) funnel.FunnelReport {
	return e.funnel.Analyze(visits, from, to)
}

// Attribution assigns last-touch credit over the window.
func (e *Engine) Attribution(from, to time.Time) funnel.AttributionReport {
	return e.funnel.Attribution(from, to)
}

// ConversionROI estimates the return on one conversion's acquisition cost.
func (e *Engine) ConversionROI(conv analytics.ConversionEvent) funnel.ROIResult {
	return e.funnel.ROI(conv)
}

// MetricTrend classifies the trajectory of one business metric series.
func (e *Engine) MetricTrend(kind analytics.MetricKind, period analytics.Period) forecast.TrendAnalysis {
	return forecast.Trend(e.metrics.Series(kind, period))
}

// MetricForecast projects one business metric series forward.
func (e *Engine) MetricForecast(kind analytics.MetricKind, period analytics.Period, horizon int) forecast.Projection {
	return forecast.Project(e.metrics.Series(kind, period), horizon)
}

// ExportAll returns the engine's full serializable state for handoff to
// durable storage.
func (e *Engine) ExportAll() analytics.Export {
	return analytics.Export{
		GeneratedAt: e.clock(),
		Sessions:    e.sessions.Snapshot(),
		Samples:     e.perf.Snapshot(),
		Conversions: e.funnel.Snapshot(),
		Metrics:     e.metrics.Snapshot(),
		Alerts:      e.perf.AlertSnapshot(),
	}
}

// ClearAll resets every store. Intended for test isolation only.
func (e *Engine) ClearAll() {
	e.sessions.Clear()
	e.perf.Clear()
	e.funnel.Clear()
	e.metrics.Clear()
	e.logger.Info("engine state cleared")
}

// anonymizeLocation strips sub-country location detail from the event's
// data map before it reaches the session store. The caller's map is left
// untouched.
func anonymizeLocation(event analytics.Event) analytics.Event {
	if event.Data == nil {
		return event
	}
	if _, hasRegion := event.Data["region"]; !hasRegion {
		if _, hasCity := event.Data["city"]; !hasCity {
			return event
		}
	}

	data := make(map[string]interface{}, len(event.Data))
	for k, v := range event.Data {
		if k == "region" || k == "city" {
			continue
		}
		data[k] = v
	}
	event.Data = data
	return event
}
