// Package main runs a short traffic simulation through the analytics
// engine and prints the resulting snapshot and report.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/sitepulse/analytics/internal/domain/analytics"
	"github.com/sitepulse/analytics/internal/infrastructure/container"
	"github.com/sitepulse/analytics/internal/ports/inbound"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

func main() {
	app := fx.New(
		fx.NopLogger, // Use our own logger instead of Fx's
		container.Module,
		fx.Invoke(runSimulation),
	)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := app.Start(ctx); err != nil {
		log.Fatalf("Failed to start application: %v", err)
	}

	stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer stopCancel()
	if err := app.Stop(stopCtx); err != nil {
		log.Fatalf("Failed to stop application: %v", err)
	}
}

func runSimulation(service inbound.AnalyticsService, logger *zap.Logger) {
	gofakeit.Seed(0)

	pages := []string{"/", "/services", "/pricing", "/contact", "/blog"}
	mediums := []string{"organic_search", "paid_search", "social_media", "email"}

	for i := 0; i < 25; i++ {
		sessionID := gofakeit.UUID()
		medium := mediums[i%len(mediums)]

		for j := 0; j < 1+i%4; j++ {
			_, err := service.IngestBehaviorEvent(analytics.Event{
				SessionID: sessionID,
				Type:      analytics.EventPageView,
				URL:       pages[j%len(pages)],
				Data: map[string]interface{}{
					"device_type": gofakeit.RandomString([]string{"mobile", "desktop", "tablet"}),
					"browser":     gofakeit.RandomString([]string{"chrome", "firefox", "safari"}),
					"utm_source":  "google",
					"utm_medium":  medium,
					"country":     gofakeit.CountryAbr(),
				},
			})
			if err != nil {
				logger.Error("event rejected", zap.Error(err))
			}
		}

		if _, err := service.RecordPerformanceSample(analytics.PerformanceSample{
			URL:  pages[i%len(pages)],
			LCP:  gofakeit.Float64Range(1200, 5000),
			FID:  gofakeit.Float64Range(20, 400),
			CLS:  gofakeit.Float64Range(0.01, 0.35),
			FCP:  gofakeit.Float64Range(900, 3500),
			TTFB: gofakeit.Float64Range(300, 2200),
		}); err != nil {
			logger.Error("sample rejected", zap.Error(err))
		}

		if i%5 == 0 {
			result, err := service.RecordConversion(analytics.ConversionEvent{
				SessionID: sessionID,
				Type:      analytics.ConversionQuoteRequest,
				Value:     gofakeit.Float64Range(500, 8000),
				Stage:     analytics.StageDecision,
				Source:    "google",
				Medium:    medium,
			})
			if err != nil {
				logger.Error("conversion rejected", zap.Error(err))
			} else if !result.Attached {
				logger.Warn("conversion not attached to a session")
			}
		}

		service.CloseSession(sessionID)
	}

	for month := 0; month < 12; month++ {
		date := time.Now().AddDate(0, -11+month, 0)
		if err := service.RecordBusinessMetric(analytics.BusinessMetric{
			Kind:   analytics.MetricRevenue,
			Value:  gofakeit.Float64Range(40000, 90000),
			Period: analytics.PeriodMonthly,
			Date:   date,
		}); err != nil {
			logger.Error("metric rejected", zap.Error(err))
		}
	}

	snapshot := service.RealtimeSnapshot()
	fmt.Printf("realtime: %d active sessions, %d page views, %d conversions, %d alerts\n",
		snapshot.ActiveSessions, snapshot.PageViews, snapshot.RecentConversions, len(snapshot.Alerts))

	report, err := service.PeriodReport(analytics.PeriodMonthly)
	if err != nil {
		logger.Fatal("report failed", zap.Error(err))
	}

	fmt.Printf("monthly report: %d sessions, score %.0f (%s), %d conversions, revenue %.0f\n",
		report.Summary.TotalSessions,
		report.Summary.PerformanceScore,
		report.Performance.Grade,
		report.Summary.TotalConversions,
		report.Summary.TotalRevenue,
	)
	for _, rec := range report.Recommendations {
		fmt.Printf("  [%d] %s: %s\n", rec.Priority, rec.Category, rec.Message)
	}

	forecast := service.MetricForecast(analytics.MetricRevenue, analytics.PeriodMonthly, 3)
	fmt.Printf("revenue forecast (%s confidence): %v\n", forecast.Confidence, forecast.Values)
}
