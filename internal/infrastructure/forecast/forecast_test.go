package forecast

import (
	"testing"
	"time"

	"github.com/sitepulse/analytics/internal/domain/analytics"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestMetricStore(t *testing.T) *MetricStore {
	t.Helper()
	return NewMetricStore(zap.NewNop())
}

func monthlyRevenue(value float64, monthsAgo int) analytics.BusinessMetric {
	return analytics.BusinessMetric{
		Kind:   analytics.MetricRevenue,
		Value:  value,
		Period: analytics.PeriodMonthly,
		Date:   time.Now().AddDate(0, -monthsAgo, 0),
	}
}

func TestRecordValidatesInput(t *testing.T) {
	store := newTestMetricStore(t)

	err := store.Record(analytics.BusinessMetric{Kind: "margin", Period: analytics.PeriodMonthly})
	assert.ErrorIs(t, err, analytics.ErrInvalidMetricKind)

	err = store.Record(analytics.BusinessMetric{Kind: analytics.MetricRevenue, Period: "hourly"})
	assert.ErrorIs(t, err, analytics.ErrInvalidReportPeriod)

	err = store.Record(analytics.BusinessMetric{Kind: analytics.MetricRevenue, Period: analytics.PeriodMonthly, Value: -5})
	assert.ErrorIs(t, err, analytics.ErrNegativeMetricValue)
}

func TestRecordAcceptsNegativeProfit(t *testing.T) {
	store := newTestMetricStore(t)

	// A loss is a valid profit observation
	err := store.Record(analytics.BusinessMetric{
		Kind:   analytics.MetricProfit,
		Value:  -2500,
		Period: analytics.PeriodMonthly,
		Date:   time.Now(),
	})
	require.NoError(t, err)

	assert.Equal(t, []float64{-2500}, store.Series(analytics.MetricProfit, analytics.PeriodMonthly))
}

func TestSeriesIsDateOrdered(t *testing.T) {
	store := newTestMetricStore(t)

	// Recorded out of order
	require.NoError(t, store.Record(monthlyRevenue(300, 0)))
	require.NoError(t, store.Record(monthlyRevenue(100, 2)))
	require.NoError(t, store.Record(monthlyRevenue(200, 1)))

	assert.Equal(t, []float64{100, 200, 300}, store.Series(analytics.MetricRevenue, analytics.PeriodMonthly))
}

func TestSeriesKeyedByKindAndPeriod(t *testing.T) {
	store := newTestMetricStore(t)

	require.NoError(t, store.Record(monthlyRevenue(100, 0)))
	require.NoError(t, store.Record(analytics.BusinessMetric{
		Kind:   analytics.MetricRevenue,
		Value:  900,
		Period: analytics.PeriodWeekly,
		Date:   time.Now(),
	}))

	assert.Equal(t, []float64{100}, store.Series(analytics.MetricRevenue, analytics.PeriodMonthly))
	assert.Equal(t, []float64{900}, store.Series(analytics.MetricRevenue, analytics.PeriodWeekly))
	assert.Empty(t, store.Series(analytics.MetricCost, analytics.PeriodMonthly))
}

func TestTrendClassification(t *testing.T) {
	tests := []struct {
		name   string
		values []float64
		want   TrendDirection
	}{
		{"steady growth", []float64{100, 120, 145, 170}, TrendGrowing},
		{"steady decline", []float64{170, 145, 120, 100}, TrendDeclining},
		{"flat", []float64{100, 101, 100, 102}, TrendStable},
		{"too short", []float64{100}, TrendStable},
		{"exactly at the band is growing", []float64{100, 105}, TrendGrowing},
		{"exactly at the negative band is declining", []float64{100, 95}, TrendDeclining},
		{"just inside the band is stable", []float64{100, 104}, TrendStable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Trend(tt.values).Direction)
		})
	}
}

func TestSeasonalityRequiresTwelvePoints(t *testing.T) {
	short := make([]float64, 11)
	for i := range short {
		short[i] = 100
	}
	assert.Equal(t, SeasonalityInsufficient, DetectSeasonality(short))
}

func TestSeasonalityBuckets(t *testing.T) {
	flat := make([]float64, 12)
	for i := range flat {
		flat[i] = 100
	}
	assert.Equal(t, SeasonalityNone, DetectSeasonality(flat))

	// Alternating 50/150 around a mean of 100: CV = 0.5
	spiky := make([]float64, 12)
	for i := range spiky {
		if i%2 == 0 {
			spiky[i] = 50
		} else {
			spiky[i] = 150
		}
	}
	assert.Equal(t, SeasonalityHigh, DetectSeasonality(spiky))

	// Alternating 90/110 around 100: CV = 0.1
	mild := make([]float64, 12)
	for i := range mild {
		if i%2 == 0 {
			mild[i] = 90
		} else {
			mild[i] = 110
		}
	}
	assert.Equal(t, SeasonalityLow, DetectSeasonality(mild))
}

func TestSeasonalityUsesTrailingWindow(t *testing.T) {
	// Wild early history followed by twelve flat points
	values := []float64{10, 500, 3, 900}
	for i := 0; i < 12; i++ {
		values = append(values, 100)
	}
	assert.Equal(t, SeasonalityNone, DetectSeasonality(values))
}

func TestProjectConfidenceLevels(t *testing.T) {
	long := make([]float64, 12)
	medium := make([]float64, 6)
	short := make([]float64, 5)

	assert.Equal(t, ConfidenceHigh, Project(long, 1).Confidence)
	assert.Equal(t, ConfidenceMedium, Project(medium, 1).Confidence)
	assert.Equal(t, ConfidenceLow, Project(short, 1).Confidence)
	assert.Equal(t, ConfidenceLow, Project(nil, 1).Confidence)
}

func TestProjectExtendsLinearSeries(t *testing.T) {
	projection := Project([]float64{10, 20, 30, 40}, 3)

	require.Len(t, projection.Values, 3)
	assert.InDelta(t, 50, projection.Values[0], 1e-6)
	assert.InDelta(t, 60, projection.Values[1], 1e-6)
	assert.InDelta(t, 70, projection.Values[2], 1e-6)
}

func TestProjectFollowsDeclineBelowZero(t *testing.T) {
	projection := Project([]float64{30, 20, 10}, 2)

	require.Len(t, projection.Values, 2)
	assert.InDelta(t, 0, projection.Values[0], 1e-6)
	assert.InDelta(t, -10, projection.Values[1], 1e-6)
}

func TestSumBetween(t *testing.T) {
	store := newTestMetricStore(t)

	require.NoError(t, store.Record(monthlyRevenue(100, 0)))
	require.NoError(t, store.Record(monthlyRevenue(200, 1)))
	require.NoError(t, store.Record(monthlyRevenue(400, 6)))

	now := time.Now()
	total := store.SumBetween(analytics.MetricRevenue, analytics.PeriodMonthly, now.AddDate(0, -2, 0), now.Add(time.Hour))
	assert.Equal(t, 300.0, total)
}

func TestLatestValue(t *testing.T) {
	store := newTestMetricStore(t)

	assert.Zero(t, store.LatestValue(analytics.MetricRevenue, analytics.PeriodMonthly))

	require.NoError(t, store.Record(monthlyRevenue(100, 1)))
	require.NoError(t, store.Record(monthlyRevenue(250, 0)))

	assert.Equal(t, 250.0, store.LatestValue(analytics.MetricRevenue, analytics.PeriodMonthly))
}
