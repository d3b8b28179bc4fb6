package analytics

import (
	"testing"
	"time"

	"github.com/sitepulse/analytics/internal/domain/analytics"
	"github.com/sitepulse/analytics/internal/infrastructure/config"
	"github.com/sitepulse/analytics/internal/infrastructure/monitoring"
	"github.com/sitepulse/analytics/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var events = testutils.NewEventFactory(7)

func testConfig() *config.Config {
	return &config.Config{
		App: config.AppConfig{
			Name:        "SitePulse",
			Environment: "test",
			LogLevel:    "debug",
			LogFormat:   "console",
		},
		Tracking: config.TrackingConfig{
			SampleRate: 1.0,
		},
	}
}

func newTestEngine(t *testing.T, cfg *config.Config, opts ...Option) *Engine {
	t.Helper()
	logger := zap.NewNop()
	return NewEngine(cfg, monitoring.NewMetricsCollector(logger), logger, opts...)
}

func behaviorEvent(sessionID string) analytics.Event {
	return events.PageView(sessionID, "/")
}

func TestIngestAcceptsValidEvent(t *testing.T) {
	engine := newTestEngine(t, testConfig())

	outcome, err := engine.IngestBehaviorEvent(behaviorEvent("s1"))
	require.NoError(t, err)
	assert.True(t, outcome.Accepted)
	assert.True(t, outcome.FirstEvent)
	assert.Greater(t, outcome.Score, 0.0)
}

func TestIngestRejectsMalformedEvent(t *testing.T) {
	engine := newTestEngine(t, testConfig())

	_, err := engine.IngestBehaviorEvent(analytics.Event{Type: analytics.EventPageView})
	assert.Error(t, err)

	_, err = engine.IngestBehaviorEvent(analytics.Event{SessionID: "s1"})
	assert.Error(t, err)
}

func TestSamplingGateDropsEvents(t *testing.T) {
	cfg := testConfig()
	cfg.Tracking.SampleRate = 0.5

	t.Run("below the rate passes", func(t *testing.T) {
		engine := newTestEngine(t, cfg, WithSampler(func() float64 { return 0.2 }))

		outcome, err := engine.IngestBehaviorEvent(behaviorEvent("s1"))
		require.NoError(t, err)
		assert.True(t, outcome.Accepted)
	})

	t.Run("at or above the rate drops", func(t *testing.T) {
		engine := newTestEngine(t, cfg, WithSampler(func() float64 { return 0.9 }))

		outcome, err := engine.IngestBehaviorEvent(behaviorEvent("s1"))
		require.NoError(t, err)
		assert.False(t, outcome.Accepted)
		assert.True(t, outcome.SampledOut)

		// Nothing reached the session store
		export := engine.ExportAll()
		assert.Empty(t, export.Sessions)
	})
}

func TestAnonymizeIPStripsSubCountryLocation(t *testing.T) {
	cfg := testConfig()
	cfg.Tracking.AnonymizeIP = true
	engine := newTestEngine(t, cfg)

	event := behaviorEvent("s1")
	event.Data = map[string]interface{}{
		"country": "DE",
		"region":  "Bavaria",
		"city":    "Munich",
	}

	_, err := engine.IngestBehaviorEvent(event)
	require.NoError(t, err)

	// Caller's map is untouched
	assert.Contains(t, event.Data, "city")

	export := engine.ExportAll()
	require.Len(t, export.Sessions, 1)
	require.NotNil(t, export.Sessions[0].Location)
	assert.Equal(t, "DE", export.Sessions[0].Location.Country)
	assert.Empty(t, export.Sessions[0].Location.Region)
	assert.Empty(t, export.Sessions[0].Location.City)
}

func TestRecordPerformanceSampleReturnsEvaluation(t *testing.T) {
	engine := newTestEngine(t, testConfig())

	outcome, err := engine.RecordPerformanceSample(analytics.PerformanceSample{
		URL: "/", LCP: 1800, FID: 50, CLS: 0.05, FCP: 1200, TTFB: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, "A", outcome.Evaluation.Grade)
	assert.Empty(t, outcome.Alerts)

	outcome, err = engine.RecordPerformanceSample(analytics.PerformanceSample{
		URL: "/slow", LCP: 5000, FID: 350, CLS: 0.4, FCP: 3500, TTFB: 2000,
	})
	require.NoError(t, err)
	assert.Equal(t, "F", outcome.Evaluation.Grade)
	assert.Len(t, outcome.Alerts, 3)
}

func TestRecordPerformanceSampleRejectsMissingURL(t *testing.T) {
	engine := newTestEngine(t, testConfig())

	_, err := engine.RecordPerformanceSample(analytics.PerformanceSample{LCP: 1000})
	assert.Error(t, err)
}

func TestRecordConversionReportsAttachment(t *testing.T) {
	engine := newTestEngine(t, testConfig())

	_, err := engine.IngestBehaviorEvent(behaviorEvent("known"))
	require.NoError(t, err)

	conv := analytics.ConversionEvent{
		SessionID: "known",
		Type:      analytics.ConversionQuoteRequest,
		Value:     5000,
		Stage:     analytics.StageDecision,
		Medium:    "organic_search",
	}
	result, err := engine.RecordConversion(conv)
	require.NoError(t, err)
	assert.True(t, result.Attached)

	conv.SessionID = "unknown"
	result, err = engine.RecordConversion(conv)
	require.NoError(t, err)
	assert.False(t, result.Attached)
}

func TestConversionROIUsesConfiguredCosts(t *testing.T) {
	engine := newTestEngine(t, testConfig())

	result := engine.ConversionROI(testutils.Conversion("s1", 5000, "organic_search"))
	assert.Equal(t, 9900.0, result.ROI)
}

func TestRecordBusinessMetricAndForecast(t *testing.T) {
	engine := newTestEngine(t, testConfig())

	for i := 0; i < 12; i++ {
		err := engine.RecordBusinessMetric(testutils.MonthlyRevenue(float64(1000+i*100), 12-i))
		require.NoError(t, err)
	}

	trend := engine.MetricTrend(analytics.MetricRevenue, analytics.PeriodMonthly)
	assert.NotZero(t, trend.GrowthRate)

	projection := engine.MetricForecast(analytics.MetricRevenue, analytics.PeriodMonthly, 3)
	assert.Len(t, projection.Values, 3)
	assert.NotEmpty(t, projection.Confidence)
}

func TestRealtimeSnapshotAndPeriodReport(t *testing.T) {
	clock := func() time.Time { return time.Now() }
	engine := newTestEngine(t, testConfig(), WithClock(clock))

	_, err := engine.IngestBehaviorEvent(behaviorEvent("s1"))
	require.NoError(t, err)

	snapshot := engine.RealtimeSnapshot()
	assert.Equal(t, 1, snapshot.ActiveSessions)
	assert.Equal(t, 1, snapshot.PageViews)

	report, err := engine.PeriodReport(analytics.PeriodWeekly)
	require.NoError(t, err)
	assert.Equal(t, 1, report.Summary.TotalSessions)

	_, err = engine.PeriodReport("hourly")
	assert.Error(t, err)
}

func TestExportAllCarriesFiveCollections(t *testing.T) {
	engine := newTestEngine(t, testConfig())

	_, err := engine.IngestBehaviorEvent(behaviorEvent("s1"))
	require.NoError(t, err)

	_, err = engine.RecordPerformanceSample(analytics.PerformanceSample{
		URL: "/slow", LCP: 5000, FID: 50, CLS: 0.05, FCP: 1200, TTFB: 500,
	})
	require.NoError(t, err)

	_, err = engine.RecordConversion(analytics.ConversionEvent{
		SessionID: "s1",
		Type:      analytics.ConversionLead,
		Stage:     analytics.StageDecision,
		Medium:    "organic_search",
	})
	require.NoError(t, err)

	require.NoError(t, engine.RecordBusinessMetric(analytics.BusinessMetric{
		Kind: analytics.MetricRevenue, Value: 100, Period: analytics.PeriodMonthly, Date: time.Now(),
	}))

	export := engine.ExportAll()
	assert.Len(t, export.Sessions, 1)
	assert.Len(t, export.Samples, 1)
	assert.Len(t, export.Conversions, 1)
	assert.Len(t, export.Metrics, 1)
	assert.Len(t, export.Alerts, 1)
	assert.False(t, export.GeneratedAt.IsZero())
}

func TestClearAllResetsEveryStore(t *testing.T) {
	engine := newTestEngine(t, testConfig())

	_, err := engine.IngestBehaviorEvent(behaviorEvent("s1"))
	require.NoError(t, err)

	engine.ClearAll()

	export := engine.ExportAll()
	assert.Empty(t, export.Sessions)
	assert.Empty(t, export.Samples)
	assert.Empty(t, export.Conversions)
	assert.Empty(t, export.Metrics)
	assert.Empty(t, export.Alerts)
}
