// Package store declares the persistence contracts the rest of the
// application depends on. Implementations live in internal/store/memory,
// internal/storage (SQLite) and internal/storage/postgres.
package store

import (
	"context"

	"expensetracker/internal/core"
)

// TransactionStore holds transactions. Every call is scoped to one owner;
// a transaction belonging to someone else behaves exactly like a missing one.
type TransactionStore interface {
	// List returns the owner's transactions ordered by date descending.
	List(ctx context.Context, owner string) ([]core.Transaction, error)
	Get(ctx context.Context, owner, id string) (core.Transaction, error)
	Create(ctx context.Context, owner string, in core.TransactionInput) (core.Transaction, error)
	// Update replaces amount, category, date and description.
	Update(ctx context.Context, owner, id string, in core.TransactionInput) (core.Transaction, error)
	// Delete removes the row permanently. Missing ids fail with core.ErrNotFound.
	Delete(ctx context.Context, owner, id string) error
}

// UserStore holds accounts.
type UserStore interface {
	CreateUser(ctx context.Context, email string, passwordHash []byte) (core.User, error)
	UserByEmail(ctx context.Context, email string) (core.User, error)
}

// MirrorQueue tracks which transaction versions still need to reach the spreadsheet mirror.
type MirrorQueue interface {
	PendingMirror(ctx context.Context, limit int) ([]core.Transaction, error)
	MarkMirrored(ctx context.Context, id string, version int64) error
}

// Pinger is implemented by backends that can report liveness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Backend is everything a data backend provides.
type Backend interface {
	TransactionStore
	UserStore
	MirrorQueue
	Pinger
}
