package analytics

import "errors"

// Domain errors for ingestion. Only malformed input is an error; missing
// data, unknown references, and sparse series are in-band classifications.

var (
	ErrMissingSessionID    = errors.New("event is missing its session identifier")
	ErrInvalidEventType    = errors.New("event type is not a recognized kind")
	ErrMissingURL          = errors.New("performance sample is missing its URL")
	ErrInvalidConversion   = errors.New("conversion type is not a recognized kind")
	ErrInvalidFunnelStage  = errors.New("funnel stage is not a recognized stage")
	ErrInvalidMetricKind   = errors.New("business metric kind is not recognized")
	ErrInvalidReportPeriod = errors.New("reporting period is not recognized")
	ErrNegativeMetricValue = errors.New("business metric value must not be negative")
	ErrSampleOutOfRange    = errors.New("performance measure is outside its valid range")
)
