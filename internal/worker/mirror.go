package worker

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/sheets"
	"expensetracker/internal/store"
)

// Source is what the mirror worker reads from the data backend.
type Source interface {
	store.TransactionStore
	store.MirrorQueue
}

// MirrorMetrics counts mirror outcomes since start.
type MirrorMetrics struct {
	Upserted int64
	Removed  int64
	Skipped  int64
	Failed   int64
}

// MirrorWorker copies transactions into the spreadsheet mirror, driven by
// change events and by the pending sweep.
type MirrorWorker struct {
	source Source
	mirror sheets.Mirror
	logger *applog.Logger

	upserted atomic.Int64
	removed  atomic.Int64
	skipped  atomic.Int64
	failed   atomic.Int64
}

func NewMirrorWorker(source Source, mirror sheets.Mirror, logger *applog.Logger) *MirrorWorker {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &MirrorWorker{
		source: source,
		mirror: mirror,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// HandleEvent applies one change event; it satisfies amqp.EventHandler.
// A returned error requeues the delivery.
func (w *MirrorWorker) HandleEvent(ctx context.Context, ev *amqp.TransactionEvent) error {
	w.logger.InfoContext(ctx, "Processing change event",
		"type", ev.Type,
		applog.FieldTransactionID, ev.ID,
		applog.FieldVersion, ev.Version)

	switch ev.Type {
	case amqp.EventDelete:
		if err := w.mirror.Remove(ctx, ev.ID); err != nil {
			w.failed.Add(1)
			return fmt.Errorf("remove mirror row %s: %w", ev.ID, err)
		}
		w.removed.Add(1)
		return nil

	case amqp.EventUpsert:
		// The event only names the row; mirror whatever the store holds now.
		t, err := w.source.Get(ctx, ev.Owner, ev.ID)
		if errors.Is(err, core.ErrNotFound) {
			w.skipped.Add(1)
			w.logger.InfoContext(ctx, "Transaction gone before mirroring, skipping", applog.FieldTransactionID, ev.ID)
			return nil
		}
		if err != nil {
			w.failed.Add(1)
			return fmt.Errorf("load transaction %s: %w", ev.ID, err)
		}
		return w.upsert(ctx, t)

	default:
		w.skipped.Add(1)
		w.logger.WarnContext(ctx, "Unknown event type, skipping", "type", ev.Type)
		return nil
	}
}

// ProcessPending mirrors up to limit rows whose latest version has not
// reached the sheet yet. It covers events lost while the broker or worker
// was down. Failures are logged and left pending for the next sweep.
func (w *MirrorWorker) ProcessPending(ctx context.Context, limit int) (int, error) {
	pending, err := w.source.PendingMirror(ctx, limit)
	if err != nil {
		return 0, fmt.Errorf("list pending mirror rows: %w", err)
	}
	if len(pending) == 0 {
		return 0, nil
	}

	w.logger.InfoContext(ctx, "Processing pending transactions", applog.FieldCount, len(pending))

	done := 0
	for _, t := range pending {
		if ctx.Err() != nil {
			return done, ctx.Err()
		}
		if err := w.upsert(ctx, t); err != nil {
			w.logger.ErrorContext(ctx, "Failed to mirror pending transaction",
				applog.FieldTransactionID, t.ID,
				applog.FieldError, err)
			continue
		}
		done++
	}
	return done, nil
}

func (w *MirrorWorker) upsert(ctx context.Context, t core.Transaction) error {
	if err := w.mirror.Upsert(ctx, t); err != nil {
		w.failed.Add(1)
		return fmt.Errorf("upsert mirror row %s: %w", t.ID, err)
	}
	if err := w.source.MarkMirrored(ctx, t.ID, t.Version); err != nil && !errors.Is(err, core.ErrNotFound) {
		// The sheet is already right; the row stays pending and is rewritten
		// by a later sweep.
		w.logger.WarnContext(ctx, "Failed to mark transaction mirrored",
			applog.FieldTransactionID, t.ID,
			applog.FieldError, err)
	}
	w.upserted.Add(1)
	w.logger.InfoContext(ctx, "Transaction mirrored",
		applog.FieldTransactionID, t.ID,
		applog.FieldVersion, t.Version)
	return nil
}

// Metrics returns a snapshot of the mirror counters.
func (w *MirrorWorker) Metrics() MirrorMetrics {
	return MirrorMetrics{
		Upserted: w.upserted.Load(),
		Removed:  w.removed.Load(),
		Skipped:  w.skipped.Load(),
		Failed:   w.failed.Load(),
	}
}
