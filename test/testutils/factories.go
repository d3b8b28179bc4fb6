// Package testutils provides test data factories for consistent test data generation
package testutils

import (
	"fmt"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"github.com/sitepulse/analytics/internal/domain/analytics"
)

// EventFactory produces behavioral events with a seeded faker so runs are
// reproducible.
type EventFactory struct {
	faker *gofakeit.Faker
}

// NewEventFactory creates an event factory with the given seed
func NewEventFactory(seed int64) *EventFactory {
	return &EventFactory{faker: gofakeit.New(seed)}
}

// PageView builds a pageview event for the session
func (f *EventFactory) PageView(sessionID, url string) analytics.Event {
	return analytics.Event{
		SessionID: sessionID,
		Type:      analytics.EventPageView,
		URL:       url,
		Timestamp: time.Now(),
		Data: map[string]interface{}{
			"device_type": f.faker.RandomString([]string{"mobile", "desktop", "tablet"}),
			"os":          f.faker.RandomString([]string{"ios", "android", "windows", "macos"}),
			"browser":     f.faker.RandomString([]string{"chrome", "firefox", "safari"}),
			"utm_source":  "google",
			"utm_medium":  "organic_search",
			"country":     f.faker.CountryAbr(),
			"region":      f.faker.State(),
			"city":        f.faker.City(),
		},
	}
}

// Interaction builds a non-pageview event of the given type
func (f *EventFactory) Interaction(sessionID string, eventType analytics.EventType) analytics.Event {
	return analytics.Event{
		SessionID: sessionID,
		Type:      eventType,
		URL:       fmt.Sprintf("/%s", f.faker.Word()),
		Timestamp: time.Now(),
	}
}

// SessionID returns a fresh session identifier
func (f *EventFactory) SessionID() string {
	return uuid.NewString()
}

// SampleBuilder provides a fluent interface for building performance samples
type SampleBuilder struct {
	sample analytics.PerformanceSample
}

// NewSampleBuilder starts from a sample with all measures in the good range
func NewSampleBuilder(url string) *SampleBuilder {
	return &SampleBuilder{
		sample: analytics.PerformanceSample{
			URL:        url,
			DeviceType: "desktop",
			Timestamp:  time.Now(),
			LCP:        1800,
			FID:        50,
			CLS:        0.05,
			FCP:        1200,
			TTFB:       500,
		},
	}
}

// WithLCP sets the largest contentful paint
func (b *SampleBuilder) WithLCP(v float64) *SampleBuilder {
	b.sample.LCP = v
	return b
}

// WithFID sets the first input delay
func (b *SampleBuilder) WithFID(v float64) *SampleBuilder {
	b.sample.FID = v
	return b
}

// WithCLS sets the cumulative layout shift
func (b *SampleBuilder) WithCLS(v float64) *SampleBuilder {
	b.sample.CLS = v
	return b
}

// WithFCP sets the first contentful paint
func (b *SampleBuilder) WithFCP(v float64) *SampleBuilder {
	b.sample.FCP = v
	return b
}

// WithTTFB sets the time to first byte
func (b *SampleBuilder) WithTTFB(v float64) *SampleBuilder {
	b.sample.TTFB = v
	return b
}

// WithTimestamp sets the sample time
func (b *SampleBuilder) WithTimestamp(ts time.Time) *SampleBuilder {
	b.sample.Timestamp = ts
	return b
}

// Build returns the sample
func (b *SampleBuilder) Build() analytics.PerformanceSample {
	return b.sample
}

// Conversion builds a decision-stage conversion for the session
func Conversion(sessionID string, value float64, medium string) analytics.ConversionEvent {
	return analytics.ConversionEvent{
		SessionID: sessionID,
		Type:      analytics.ConversionQuoteRequest,
		Value:     value,
		Currency:  "USD",
		Stage:     analytics.StageDecision,
		Source:    "google",
		Medium:    medium,
		Timestamp: time.Now(),
	}
}

// MonthlyRevenue builds a monthly revenue observation dated monthsAgo back
func MonthlyRevenue(value float64, monthsAgo int) analytics.BusinessMetric {
	return analytics.BusinessMetric{
		Kind:   analytics.MetricRevenue,
		Value:  value,
		Period: analytics.PeriodMonthly,
		Date:   time.Now().AddDate(0, -monthsAgo, 0),
	}
}
