package analytics

import "time"

// Alert severities.
const (
	SeverityWarning  = "warning"
	SeverityCritical = "critical"
)

// Alert flags a performance sample that breached a published threshold.
// Multiple alerts may fire for one sample.
type Alert struct {
	ID         string    `json:"id"`
	Measure    string    `json:"measure"`
	Severity   string    `json:"severity"`
	Message    string    `json:"message"`
	Value      float64   `json:"value"`
	Threshold  float64   `json:"threshold"`
	URL        string    `json:"url"`
	DeviceType string    `json:"device_type,omitempty"`
	Timestamp  time.Time `json:"timestamp"`
}

// Export is the full in-memory state of the engine: the five collections,
// serializable for handoff to durable storage. Reports are derived on
// demand and never stored, so they are not part of the export.
type Export struct {
	GeneratedAt time.Time                      `json:"generated_at"`
	Sessions    []Session                      `json:"sessions"`
	Samples     map[string][]PerformanceSample `json:"samples"`
	Conversions map[string][]ConversionEvent   `json:"conversions"`
	Metrics     map[string][]BusinessMetric    `json:"metrics"`
	Alerts      []Alert                        `json:"alerts"`
}
