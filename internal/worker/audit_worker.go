package worker

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"planner/internal/amqp"
	"planner/internal/core"
	"planner/internal/log"
)

// Stats counts audited session events.
type Stats struct {
	ByKind   map[core.EventKind]int64
	Unknown  int64
	LastSeen time.Time
}

// AuditWorker logs every session event taken off the audit queue and keeps
// running totals per kind.
type AuditWorker struct {
	logger *slog.Logger

	mu      sync.Mutex
	byKind  map[core.EventKind]int64
	unknown int64
	last    time.Time
}

func NewAuditWorker(logger *slog.Logger) *AuditWorker {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditWorker{
		logger: logger.With(log.FieldComponent, log.ComponentAudit),
		byKind: make(map[core.EventKind]int64),
	}
}

// HandleSessionEvent records one message. Unknown kinds are counted and
// acknowledged; requeueing them would only loop.
func (w *AuditWorker) HandleSessionEvent(ctx context.Context, msg *amqp.SessionEventMessage) error {
	kind := core.EventKind(msg.Kind)

	w.mu.Lock()
	known := kind.Valid()
	if known {
		w.byKind[kind]++
	} else {
		w.unknown++
	}
	if msg.Timestamp.After(w.last) {
		w.last = msg.Timestamp
	}
	w.mu.Unlock()

	fields := log.NewFields().
		WithSessionEvent(msg.Kind, msg.ClientID, msg.UserID).
		WithOperation(log.OpConsume)
	fields["event_time"] = msg.Timestamp.Format(time.RFC3339)

	if !known {
		w.logger.WarnContext(ctx, "Unknown session event kind", fields.ToSlice()...)
		return nil
	}
	w.logger.InfoContext(ctx, "Session event", fields.ToSlice()...)
	return nil
}

// Stats returns a snapshot of the totals.
func (w *AuditWorker) Stats() Stats {
	w.mu.Lock()
	defer w.mu.Unlock()

	byKind := make(map[core.EventKind]int64, len(w.byKind))
	for k, v := range w.byKind {
		byKind[k] = v
	}
	return Stats{ByKind: byKind, Unknown: w.unknown, LastSeen: w.last}
}

// ReportEvery logs the totals on every tick until ctx is done.
func (w *AuditWorker) ReportEvery(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			s := w.Stats()
			w.logger.InfoContext(ctx, "Session event totals",
				"signed_in", s.ByKind[core.EventSignedIn],
				"signed_out", s.ByKind[core.EventSignedOut],
				"token_refreshed", s.ByKind[core.EventTokenRefreshed],
				"unknown", s.Unknown)
		}
	}
}
