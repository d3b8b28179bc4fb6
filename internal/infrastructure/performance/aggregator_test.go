package performance

import (
	"testing"
	"time"

	"github.com/sitepulse/analytics/internal/domain/analytics"
	"github.com/sitepulse/analytics/internal/ports/outbound"
	"github.com/sitepulse/analytics/test/testutils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestAggregator(t *testing.T) *Aggregator {
	t.Helper()
	return NewAggregator(DefaultThresholds(), nil, zap.NewNop())
}

func goodSample(url string) analytics.PerformanceSample {
	return testutils.NewSampleBuilder(url).Build()
}

func poorSample(url string) analytics.PerformanceSample {
	return testutils.NewSampleBuilder(url).
		WithLCP(5000).
		WithFID(350).
		WithCLS(0.4).
		WithFCP(3500).
		WithTTFB(2000).
		Build()
}

func TestEvaluateGoodSampleScoresPerfect(t *testing.T) {
	agg := newTestAggregator(t)

	eval := agg.Evaluate(goodSample("/"))
	assert.Equal(t, 100.0, eval.Overall)
	assert.Equal(t, "A", eval.Grade)
	assert.Equal(t, 100.0, eval.Scores.LCP)
	assert.Equal(t, 100.0, eval.Scores.TTFB)
}

func TestGoodSampleFiresNoAlerts(t *testing.T) {
	agg := newTestAggregator(t)

	alerts, err := agg.Record(goodSample("/"))
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestEvaluateIsIdempotent(t *testing.T) {
	agg := newTestAggregator(t)
	sample := poorSample("/")

	first := agg.Evaluate(sample)
	second := agg.Evaluate(sample)
	assert.Equal(t, first, second)
}

func TestScoreBoundariesAreInclusive(t *testing.T) {
	agg := newTestAggregator(t)

	// Exactly at the good boundary still scores 100
	sample := goodSample("/")
	sample.LCP = 2500
	assert.Equal(t, 100.0, agg.Evaluate(sample).Scores.LCP)

	// Just past it drops to 75
	sample.LCP = 2501
	assert.Equal(t, 75.0, agg.Evaluate(sample).Scores.LCP)

	// Exactly at needs-improvement stays 75
	sample.LCP = 4000
	assert.Equal(t, 75.0, agg.Evaluate(sample).Scores.LCP)

	sample.LCP = 4001
	assert.Equal(t, 50.0, agg.Evaluate(sample).Scores.LCP)
}

func TestGrades(t *testing.T) {
	assert.Equal(t, "A", Grade(95))
	assert.Equal(t, "A", Grade(90))
	assert.Equal(t, "B", Grade(85))
	assert.Equal(t, "C", Grade(75))
	assert.Equal(t, "D", Grade(65))
	assert.Equal(t, "F", Grade(50))
}

func TestRecordRejectsMalformedSamples(t *testing.T) {
	agg := newTestAggregator(t)

	_, err := agg.Record(analytics.PerformanceSample{LCP: 1000})
	assert.ErrorIs(t, err, analytics.ErrMissingURL)

	bad := goodSample("/")
	bad.CLS = -0.1
	_, err = agg.Record(bad)
	assert.ErrorIs(t, err, analytics.ErrSampleOutOfRange)
}

func TestAlertSeverities(t *testing.T) {
	agg := newTestAggregator(t)

	alerts, err := agg.Record(poorSample("/"))
	require.NoError(t, err)
	require.Len(t, alerts, 3)

	bySeverity := map[string][]string{}
	for _, alert := range alerts {
		bySeverity[alert.Severity] = append(bySeverity[alert.Severity], alert.Measure)
		assert.NotEmpty(t, alert.ID)
		assert.Equal(t, "/", alert.URL)
	}
	assert.ElementsMatch(t, []string{"LCP", "CLS"}, bySeverity[analytics.SeverityCritical])
	assert.ElementsMatch(t, []string{"FID"}, bySeverity[analytics.SeverityWarning])
}

func TestAlertsOnlyBeyondPoorBoundary(t *testing.T) {
	agg := newTestAggregator(t)

	// Needs-improvement values fire nothing
	sample := goodSample("/")
	sample.LCP = 3000
	sample.FID = 200
	sample.CLS = 0.2

	alerts, err := agg.Record(sample)
	require.NoError(t, err)
	assert.Empty(t, alerts)
}

func TestTrendInsufficientWithSingleSample(t *testing.T) {
	agg := newTestAggregator(t)

	_, err := agg.Record(goodSample("/"))
	require.NoError(t, err)

	trend := agg.Trend("/")
	assert.Equal(t, TrendInsufficientData, trend.Status)
}

func TestTrendDetectsDegradation(t *testing.T) {
	agg := newTestAggregator(t)

	for i := 0; i < 10; i++ {
		_, err := agg.Record(goodSample("/"))
		require.NoError(t, err)
	}
	for i := 0; i < 10; i++ {
		_, err := agg.Record(poorSample("/"))
		require.NoError(t, err)
	}

	trend := agg.Trend("/")
	assert.Equal(t, TrendDegrading, trend.Status)
	assert.Equal(t, 100.0, trend.PreviousScore)
	assert.Equal(t, 50.0, trend.RecentScore)
}

func TestTrendStableWithinBand(t *testing.T) {
	agg := newTestAggregator(t)

	for i := 0; i < 20; i++ {
		_, err := agg.Record(goodSample("/"))
		require.NoError(t, err)
	}

	trend := agg.Trend("/")
	assert.Equal(t, TrendStable, trend.Status)
	assert.Zero(t, trend.DeltaPercent)
}

func TestAggregateNilWhenEmpty(t *testing.T) {
	agg := newTestAggregator(t)
	assert.Nil(t, agg.Aggregate("/missing"))
}

func TestAggregatePercentiles(t *testing.T) {
	agg := newTestAggregator(t)

	lcps := []float64{1000, 2000, 3000, 4000, 5000}
	for _, lcp := range lcps {
		sample := goodSample("/")
		sample.LCP = lcp
		_, err := agg.Record(sample)
		require.NoError(t, err)
	}

	stats := agg.Aggregate("/")
	require.NotNil(t, stats)
	assert.Equal(t, 5, stats.Samples)
	assert.Equal(t, 3000.0, stats.LCP.Average)
	assert.Equal(t, 3000.0, stats.LCP.Median)
	assert.Equal(t, 4000.0, stats.LCP.P75)
	assert.InDelta(t, 4800.0, stats.LCP.P95, 1e-9)
	// Constant measures collapse to their value
	assert.Equal(t, 50.0, stats.FID.P95)
}

func TestSiteScoreAveragesAcrossURLs(t *testing.T) {
	agg := newTestAggregator(t)

	_, err := agg.Record(goodSample("/fast"))
	require.NoError(t, err)
	_, err = agg.Record(poorSample("/slow"))
	require.NoError(t, err)

	assert.Equal(t, 75.0, agg.SiteScore())
}

func TestRecentAlertsNewestFirst(t *testing.T) {
	agg := newTestAggregator(t)

	first := poorSample("/first")
	_, err := agg.Record(first)
	require.NoError(t, err)

	second := poorSample("/second")
	_, err = agg.Record(second)
	require.NoError(t, err)

	recent := agg.RecentAlerts(2)
	require.Len(t, recent, 2)
	assert.Equal(t, "/second", recent[0].URL)
	assert.Equal(t, "/second", recent[1].URL)
}

func TestRetentionTrimsOldSamples(t *testing.T) {
	agg := NewAggregator(DefaultThresholds(), outbound.WindowRetention{Window: time.Hour}, zap.NewNop())

	old := goodSample("/")
	old.Timestamp = time.Now().Add(-2 * time.Hour)
	_, err := agg.Record(old)
	require.NoError(t, err)

	fresh := goodSample("/")
	_, err = agg.Record(fresh)
	require.NoError(t, err)

	stats := agg.Aggregate("/")
	require.NotNil(t, stats)
	assert.Equal(t, 1, stats.Samples)
}
