// Package forecast stores business metric series and projects them forward:
// trend classification, seasonality detection, and a least-squares forecast
// with an explicit confidence level.
package forecast

import (
	"sort"
	"sync"
	"time"

	"github.com/sitepulse/analytics/internal/domain/analytics"
	"github.com/sitepulse/analytics/internal/domain/stats"
	"go.uber.org/zap"
)

// TrendDirection classifies the trajectory of a metric series.
type TrendDirection string

const (
	TrendGrowing   TrendDirection = "growing"
	TrendDeclining TrendDirection = "declining"
	TrendStable    TrendDirection = "stable"
)

// growthStableBand is the absolute growth-rate band treated as flat.
const growthStableBand = 0.05

// Seasonality classifies periodic variation strength.
type Seasonality string

const (
	SeasonalityHigh         Seasonality = "high"
	SeasonalityMedium       Seasonality = "medium"
	SeasonalityLow          Seasonality = "low"
	SeasonalityNone         Seasonality = "none"
	SeasonalityInsufficient Seasonality = "insufficient_data"
)

// seasonalityWindow is how many trailing points the variation check needs.
const seasonalityWindow = 12

// Confidence grades how much history backs a forecast.
type Confidence string

const (
	ConfidenceHigh   Confidence = "high"
	ConfidenceMedium Confidence = "medium"
	ConfidenceLow    Confidence = "low"
)

// TrendAnalysis is the classified trajectory of one series.
type TrendAnalysis struct {
	Direction  TrendDirection `json:"direction"`
	GrowthRate float64        `json:"growth_rate"`
}

// Projection is a multi-step forecast. Confidence always accompanies the
// values so callers cannot mistake a two-point extrapolation for a solid
// projection.
type Projection struct {
	Values     []float64  `json:"values"`
	Confidence Confidence `json:"confidence"`
}

// MetricStore holds business metric observations append-only, keyed by
// metric kind and reporting period.
type MetricStore struct {
	mu      sync.RWMutex
	metrics map[string][]analytics.BusinessMetric
	logger  *zap.Logger
}

// NewMetricStore creates an empty metric store.
func NewMetricStore(logger *zap.Logger) *MetricStore {
	return &MetricStore{
		metrics: make(map[string][]analytics.BusinessMetric),
		logger:  logger.Named("forecast"),
	}
}

func seriesKey(kind analytics.MetricKind, period analytics.Period) string {
	return string(kind) + "|" + string(period)
}

// Record appends one observation. Unknown kinds and periods are malformed
// input; negative values are rejected only for unsigned kinds, since profit
// may record a loss.
func (m *MetricStore) Record(metric analytics.BusinessMetric) error {
	if !metric.Kind.Valid() {
		return analytics.ErrInvalidMetricKind
	}
	if !metric.Period.Valid() {
		return analytics.ErrInvalidReportPeriod
	}
	if metric.Value < 0 && !metric.Kind.Signed() {
		return analytics.ErrNegativeMetricValue
	}
	if metric.Date.IsZero() {
		metric.Date = time.Now()
	}

	m.mu.Lock()
	key := seriesKey(metric.Kind, metric.Period)
	m.metrics[key] = append(m.metrics[key], metric)
	m.mu.Unlock()

	m.logger.Debug("metric recorded",
		zap.String("kind", string(metric.Kind)),
		zap.String("period", string(metric.Period)),
		zap.Float64("value", metric.Value),
	)
	return nil
}

// Series returns the date-ordered values for one (kind, period) series.
// Observations arrive in any order; ordering happens here.
func (m *MetricStore) Series(kind analytics.MetricKind, period analytics.Period) []float64 {
	m.mu.RLock()
	bucket := append([]analytics.BusinessMetric(nil), m.metrics[seriesKey(kind, period)]...)
	m.mu.RUnlock()

	sort.Slice(bucket, func(i, j int) bool {
		return bucket[i].Date.Before(bucket[j].Date)
	})

	values := make([]float64, len(bucket))
	for i, metric := range bucket {
		values[i] = metric.Value
	}
	return values
}

// LatestValue returns the most recent observation of a series, or 0 when
// none exists.
func (m *MetricStore) LatestValue(kind analytics.MetricKind, period analytics.Period) float64 {
	values := m.Series(kind, period)
	if len(values) == 0 {
		return 0
	}
	return values[len(values)-1]
}

// SumBetween totals a series' observations dated within [from, to).
func (m *MetricStore) SumBetween(kind analytics.MetricKind, period analytics.Period, from, to time.Time) float64 {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var total float64
	for _, metric := range m.metrics[seriesKey(kind, period)] {
		if !metric.Date.Before(from) && metric.Date.Before(to) {
			total += metric.Value
		}
	}
	return total
}

// Snapshot returns a deep copy of every series for export.
func (m *MetricStore) Snapshot() map[string][]analytics.BusinessMetric {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string][]analytics.BusinessMetric, len(m.metrics))
	for key, bucket := range m.metrics {
		out[key] = append([]analytics.BusinessMetric(nil), bucket...)
	}
	return out
}

// Clear resets the store. Intended for test isolation only.
func (m *MetricStore) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.metrics = make(map[string][]analytics.BusinessMetric)
}

// Trend classifies a series by its geometric growth rate: stable only while
// the magnitude stays below the flat band, otherwise growing or declining.
func Trend(values []float64) TrendAnalysis {
	rate := stats.GrowthRate(values)

	direction := TrendStable
	switch {
	case rate >= growthStableBand:
		direction = TrendGrowing
	case rate <= -growthStableBand:
		direction = TrendDeclining
	}
	return TrendAnalysis{Direction: direction, GrowthRate: rate}
}

// DetectSeasonality grades periodic variation by the coefficient of
// variation over the trailing twelve points. Shorter series report the
// explicit insufficiency marker rather than a fabricated grade.
func DetectSeasonality(values []float64) Seasonality {
	if len(values) < seasonalityWindow {
		return SeasonalityInsufficient
	}

	window := values[len(values)-seasonalityWindow:]
	mean := stats.Average(window)
	if mean == 0 {
		return SeasonalityNone
	}

	cv := stats.StdDev(window) / mean
	switch {
	case cv > 0.3:
		return SeasonalityHigh
	case cv > 0.15:
		return SeasonalityMedium
	case cv > 0.05:
		return SeasonalityLow
	default:
		return SeasonalityNone
	}
}

// Project extends the series horizon steps forward by repeated one-step
// least-squares extension, each predicted point feeding the next fit.
// Predictions are not clamped: a declining series may project below zero,
// which is meaningful for signed kinds like profit.
func Project(values []float64, horizon int) Projection {
	series := append([]float64(nil), values...)
	projection := Projection{Confidence: confidence(len(values))}

	for i := 0; i < horizon; i++ {
		next := stats.LinearForecast(series)
		projection.Values = append(projection.Values, next)
		series = append(series, next)
	}
	return projection
}

// confidence grades a forecast purely by history depth.
func confidence(points int) Confidence {
	switch {
	case points >= 12:
		return ConfidenceHigh
	case points >= 6:
		return ConfidenceMedium
	default:
		return ConfidenceLow
	}
}
