// Package inbound defines the interfaces for inbound ports (primary/driving adapters)
// These are the interfaces that the application exposes to the outside world
package inbound

import (
	"time"

	appanalytics "github.com/sitepulse/analytics/internal/application/analytics"
	"github.com/sitepulse/analytics/internal/domain/analytics"
	"github.com/sitepulse/analytics/internal/infrastructure/forecast"
	"github.com/sitepulse/analytics/internal/infrastructure/funnel"
	"github.com/sitepulse/analytics/internal/infrastructure/performance"
	"github.com/sitepulse/analytics/internal/infrastructure/reports"
)

// AnalyticsService is the primary port onto the aggregation engine. All
// ingestion is synchronous; errors occur only for malformed input, while
// sampling drops, unattached conversions, and thin series report their
// state in-band.
type AnalyticsService interface {
	// Commands - operations that modify state
	IngestBehaviorEvent(event analytics.Event) (appanalytics.IngestOutcome, error)
	CloseSession(sessionID string)
	RecordPerformanceSample(sample analytics.PerformanceSample) (appanalytics.PerformanceOutcome, error)
	RecordConversion(conv analytics.ConversionEvent) (funnel.RecordResult, error)
	RecordBusinessMetric(metric analytics.BusinessMetric) error

	// Queries - operations that read state
	RealtimeSnapshot() reports.RealtimeSnapshot
	PeriodReport(period analytics.Period) (reports.PeriodReport, error)
	PerformanceAggregate(url string) *performance.AggregateStats
	PerformanceTrend(url string) performance.TrendResult
	FunnelAnalysis(visits map[analytics.FunnelStage]int, from, to time.Time) funnel.FunnelReport
	Attribution(from, to time.Time) funnel.AttributionReport
	ConversionROI(conv analytics.ConversionEvent) funnel.ROIResult
	MetricTrend(kind analytics.MetricKind, period analytics.Period) forecast.TrendAnalysis
	MetricForecast(kind analytics.MetricKind, period analytics.Period, horizon int) forecast.Projection

	// State management
	ExportAll() analytics.Export
	ClearAll()
}
