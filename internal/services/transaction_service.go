package services

import (
	"context"
	"fmt"
	"sync/atomic"

	"expensetracker/internal/amqp"
	"expensetracker/internal/core"
	applog "expensetracker/internal/log"
	"expensetracker/internal/store"
)

// TransactionMetrics counts completed writes since start.
type TransactionMetrics struct {
	Created         int64
	Updated         int64
	Deleted         int64
	PublishFailures int64
}

// TransactionService writes transactions to the store and announces each
// change on the broker so the spreadsheet mirror can follow.
type TransactionService struct {
	store     store.TransactionStore
	publisher amqp.Publisher
	logger    *applog.StructuredLogger
	raw       *applog.Logger

	created         atomic.Int64
	updated         atomic.Int64
	deleted         atomic.Int64
	publishFailures atomic.Int64
}

// NewTransactionService wires a store and an optional publisher. A nil
// publisher disables change events.
func NewTransactionService(st store.TransactionStore, publisher amqp.Publisher, logger *applog.Logger) *TransactionService {
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	logger = logger.WithComponent(applog.ComponentTransaction)
	return &TransactionService{
		store:     st,
		publisher: publisher,
		logger:    applog.NewStructuredLogger(logger),
		raw:       logger,
	}
}

// List returns the owner's transactions narrowed by f, newest first.
func (s *TransactionService) List(ctx context.Context, owner string, f core.Filter) ([]core.Transaction, error) {
	all, err := s.store.List(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list transactions: %w", err)
	}
	return f.Apply(all), nil
}

func (s *TransactionService) Get(ctx context.Context, owner, id string) (core.Transaction, error) {
	t, err := s.store.Get(ctx, owner, id)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("get transaction: %w", err)
	}
	return t, nil
}

func (s *TransactionService) Create(ctx context.Context, owner string, in core.TransactionInput) (core.Transaction, error) {
	t, err := s.store.Create(ctx, owner, in)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("create transaction: %w", err)
	}
	s.created.Add(1)
	s.logger.LogTransactionChanged(ctx, applog.OpCreate, owner, t.ID, t.Amount.Cents, string(t.Category), t.Date.String())
	s.publish(ctx, amqp.EventUpsert, t.ID, owner, t.Version)
	return t, nil
}

func (s *TransactionService) Update(ctx context.Context, owner, id string, in core.TransactionInput) (core.Transaction, error) {
	t, err := s.store.Update(ctx, owner, id, in)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("update transaction: %w", err)
	}
	s.updated.Add(1)
	s.logger.LogTransactionChanged(ctx, applog.OpUpdate, owner, t.ID, t.Amount.Cents, string(t.Category), t.Date.String())
	s.publish(ctx, amqp.EventUpsert, t.ID, owner, t.Version)
	return t, nil
}

// Delete removes the transaction. The delete event carries version 0 since
// the row no longer exists.
func (s *TransactionService) Delete(ctx context.Context, owner, id string) error {
	if err := s.store.Delete(ctx, owner, id); err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	s.deleted.Add(1)
	s.raw.InfoContext(ctx, "Transaction deleted",
		applog.FieldTransactionID, id,
		applog.FieldOwnerID, owner,
		applog.FieldOperation, applog.OpDelete)
	s.publish(ctx, amqp.EventDelete, id, owner, 0)
	return nil
}

// publish never fails the caller. The row is already saved and the worker's
// sweeper re-sends upserts whose event was lost.
func (s *TransactionService) publish(ctx context.Context, typ amqp.EventType, id, owner string, version int64) {
	if s.publisher == nil {
		s.raw.DebugContext(ctx, "Publisher not configured, skipping change event", applog.FieldTransactionID, id)
		return
	}
	if err := s.publisher.PublishTransactionEvent(ctx, amqp.NewTransactionEvent(typ, id, owner, version)); err != nil {
		s.publishFailures.Add(1)
		s.logger.LogError(ctx, "Failed to publish change event", err, applog.ComponentAMQP, applog.OpPublish,
			applog.NewFields().WithOwner(owner).WithTransactionID(id))
	}
}

// Metrics returns a snapshot of the write counters.
func (s *TransactionService) Metrics() TransactionMetrics {
	return TransactionMetrics{
		Created:         s.created.Load(),
		Updated:         s.updated.Load(),
		Deleted:         s.deleted.Load(),
		PublishFailures: s.publishFailures.Load(),
	}
}
