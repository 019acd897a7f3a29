package audit

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/noah-isme/backend-trainer/internal/obs"
)

// Recorder appends entries to a Sink without letting trail failures affect
// the caller. A broken trail is logged and counted, never propagated.
type Recorder struct {
	Sink   Sink
	Logger zerolog.Logger
}

// Record appends the entry, swallowing any sink error.
func (r Recorder) Record(ctx context.Context, e Entry) {
	if r.Sink == nil {
		return
	}
	if err := r.Sink.Append(ctx, e); err != nil {
		r.Logger.Error().Err(err).
			Str("order_id", e.OrderID).
			Str("status", e.Status).
			Msg("audit append failed")
		if obs.AuditAppendFailures != nil {
			obs.AuditAppendFailures.Inc()
		}
	}
}
