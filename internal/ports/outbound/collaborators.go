// Package outbound defines the interfaces the engine expects its external
// collaborators to implement. The engine is memory-resident; durability and
// retention belong to whoever implements these.
package outbound

import (
	"context"
	"time"

	"github.com/sitepulse/analytics/internal/domain/analytics"
)

// RetentionPolicy bounds the growth of append-only collections. Cutoff
// returns the earliest timestamp worth keeping; ok=false keeps everything.
// The default engine configuration injects no policy and keeps all data
// for the process lifetime.
type RetentionPolicy interface {
	Cutoff(now time.Time) (cutoff time.Time, ok bool)
}

// WindowRetention retains the trailing window of data.
type WindowRetention struct {
	Window time.Duration
}

// Cutoff implements RetentionPolicy.
func (w WindowRetention) Cutoff(now time.Time) (time.Time, bool) {
	if w.Window <= 0 {
		return time.Time{}, false
	}
	return now.Add(-w.Window), true
}

// ArchiveSink receives the engine's exported state for durable storage.
// Writes happen off the ingestion path; the engine never blocks on them.
type ArchiveSink interface {
	Archive(ctx context.Context, export analytics.Export) error
}
