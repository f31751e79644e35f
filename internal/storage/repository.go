package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
)

// timeLayout sorts lexically in the same order as the instants it encodes.
const timeLayout = "2006-01-02 15:04:05.000000000"

var _ store.Backend = (*SQLiteRepository)(nil)

type SQLiteRepository struct {
	db      *sql.DB
	queries *Queries
	now     func() time.Time
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// SQLite allows one writer; a single connection avoids SQLITE_BUSY under concurrent handlers.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLiteRepository{
		db:      db,
		queries: New(db),
		now:     time.Now,
	}, nil
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

func (r *SQLiteRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *SQLiteRepository) List(ctx context.Context, owner string) ([]core.Transaction, error) {
	rows, err := r.queries.ListTransactions(ctx, owner)
	if err != nil {
		return nil, core.NewStoreError("list", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toTransaction(row)
		if err != nil {
			return nil, core.NewStoreError("list", err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) Get(ctx context.Context, owner, id string) (core.Transaction, error) {
	row, err := r.queries.GetTransaction(ctx, GetTransactionParams{ID: id, OwnerID: owner})
	if err != nil {
		return core.Transaction{}, core.NewStoreError("get", notFound(err))
	}
	t, err := toTransaction(row)
	return t, core.NewStoreError("get", err)
}

func (r *SQLiteRepository) Create(ctx context.Context, owner string, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	now := formatTime(r.now())
	row, err := r.queries.CreateTransaction(ctx, CreateTransactionParams{
		ID:          uuid.NewString(),
		OwnerID:     owner,
		AmountCents: in.Amount.Cents,
		Category:    string(in.Category),
		Date:        in.Date.String(),
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
	})
	if err != nil {
		return core.Transaction{}, core.NewStoreError("create", err)
	}

	slog.DebugContext(ctx, "Transaction saved to SQLite",
		"id", row.ID,
		"amount_cents", row.AmountCents,
		"category", row.Category,
		"date", row.Date)

	t, err := toTransaction(row)
	return t, core.NewStoreError("create", err)
}

func (r *SQLiteRepository) Update(ctx context.Context, owner, id string, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	row, err := r.queries.UpdateTransaction(ctx, UpdateTransactionParams{
		AmountCents: in.Amount.Cents,
		Category:    string(in.Category),
		Date:        in.Date.String(),
		Description: in.Description,
		UpdatedAt:   formatTime(r.now()),
		ID:          id,
		OwnerID:     owner,
	})
	if err != nil {
		return core.Transaction{}, core.NewStoreError("update", notFound(err))
	}
	t, err := toTransaction(row)
	return t, core.NewStoreError("update", err)
}

func (r *SQLiteRepository) Delete(ctx context.Context, owner, id string) error {
	n, err := r.queries.DeleteTransaction(ctx, DeleteTransactionParams{ID: id, OwnerID: owner})
	if err != nil {
		return core.NewStoreError("delete", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) CreateUser(ctx context.Context, email string, passwordHash []byte) (core.User, error) {
	row, err := r.queries.CreateUser(ctx, CreateUserParams{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    formatTime(r.now()),
	})
	if err != nil {
		var se *sqlite.Error
		if errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return core.User{}, core.ErrEmailTaken
		}
		return core.User{}, core.NewStoreError("create user", err)
	}
	return toUser(row)
}

func (r *SQLiteRepository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	row, err := r.queries.GetUserByEmail(ctx, email)
	if err != nil {
		return core.User{}, core.NewStoreError("user by email", notFound(err))
	}
	return toUser(row)
}

func (r *SQLiteRepository) PendingMirror(ctx context.Context, limit int) ([]core.Transaction, error) {
	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as unbounded
	}
	rows, err := r.queries.ListPendingMirror(ctx, int64(limit))
	if err != nil {
		return nil, core.NewStoreError("pending mirror", err)
	}
	out := make([]core.Transaction, 0, len(rows))
	for _, row := range rows {
		t, err := toTransaction(row)
		if err != nil {
			return nil, core.NewStoreError("pending mirror", err)
		}
		out = append(out, t)
	}
	return out, nil
}

func (r *SQLiteRepository) MarkMirrored(ctx context.Context, id string, version int64) error {
	n, err := r.queries.MarkMirrored(ctx, MarkMirroredParams{MirroredVersion: version, ID: id})
	if err != nil {
		return core.NewStoreError("mark mirrored", err)
	}
	if n == 0 {
		return core.ErrNotFound
	}
	slog.DebugContext(ctx, "Transaction marked as mirrored", "id", id, "version", version)
	return nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.ParseInLocation(timeLayout, s, time.UTC)
}

func toTransaction(row Transaction) (core.Transaction, error) {
	date, err := core.ParseDate(row.Date)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: %w", row.ID, err)
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s created_at: %w", row.ID, err)
	}
	updated, err := parseTime(row.UpdatedAt)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("row %s updated_at: %w", row.ID, err)
	}
	return core.Transaction{
		ID:          row.ID,
		Owner:       row.OwnerID,
		Amount:      core.Money{Cents: row.AmountCents},
		Category:    core.Category(row.Category),
		Date:        date,
		Description: row.Description,
		CreatedAt:   created,
		UpdatedAt:   updated,
		Version:     row.Version,
	}, nil
}

func toUser(row User) (core.User, error) {
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return core.User{}, core.NewStoreError("user", err)
	}
	return core.User{
		ID:           row.ID,
		Email:        row.Email,
		PasswordHash: row.PasswordHash,
		CreatedAt:    created,
	}, nil
}
