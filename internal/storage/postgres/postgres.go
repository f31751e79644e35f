// Package postgres is the PostgreSQL backend. Amounts are stored as
// NUMERIC and converted to cents on the way out.
package postgres

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/google/uuid"
	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var _ store.Backend = (*Repository)(nil)

type Repository struct {
	Pool *pgxpool.Pool
	now  func() time.Time
}

// Open connects to databaseURL, applies migrations and returns a ready repository.
func Open(ctx context.Context, databaseURL string) (*Repository, error) {
	if err := RunMigrations(databaseURL); err != nil {
		return nil, err
	}
	pool, err := pgxpool.New(ctx, databaseURL)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewRepository(pool), nil
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{Pool: pool, now: time.Now}
}

func (r *Repository) Close() error {
	r.Pool.Close()
	return nil
}

// RunMigrations applies the embedded schema through the pgx/v5 migrate driver.
func RunMigrations(databaseURL string) error {
	d, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create iofs source: %w", err)
	}
	m, err := migrate.NewWithSourceInstance("iofs", d, migrateURL(databaseURL))
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("run migrations: %w", err)
	}
	return nil
}

// migrateURL rewrites a libpq style URL to the scheme the pgx/v5 driver registers.
func migrateURL(databaseURL string) string {
	for _, prefix := range []string{"postgresql://", "postgres://"} {
		if strings.HasPrefix(databaseURL, prefix) {
			return "pgx5://" + strings.TrimPrefix(databaseURL, prefix)
		}
	}
	return databaseURL
}

const transactionColumns = `id::text, owner_id, amount::text, category, date::text, description, created_at, updated_at, version`

func (r *Repository) Ping(ctx context.Context) error {
	return r.Pool.Ping(ctx)
}

func (r *Repository) List(ctx context.Context, owner string) ([]core.Transaction, error) {
	rows, err := r.Pool.Query(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE owner_id = $1
		 ORDER BY date DESC, created_at DESC`,
		owner,
	)
	if err != nil {
		return nil, core.NewStoreError("list", err)
	}
	out, err := collect(rows)
	return out, core.NewStoreError("list", err)
}

func (r *Repository) Get(ctx context.Context, owner, id string) (core.Transaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return core.Transaction{}, core.ErrNotFound
	}
	row := r.Pool.QueryRow(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE id = $1::uuid AND owner_id = $2`,
		id, owner,
	)
	t, err := scanTransaction(row)
	return t, core.NewStoreError("get", err)
}

func (r *Repository) Create(ctx context.Context, owner string, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	now := r.now().UTC()
	row := r.Pool.QueryRow(ctx,
		`INSERT INTO transactions (id, owner_id, amount, category, date, description, created_at, updated_at)
		 VALUES ($1::uuid, $2, $3::numeric, $4, $5::date, $6, $7, $7)
		 RETURNING `+transactionColumns,
		uuid.NewString(), owner, in.Amount.Plain(), string(in.Category), in.Date.String(), in.Description, now,
	)
	t, err := scanTransaction(row)
	return t, core.NewStoreError("create", err)
}

func (r *Repository) Update(ctx context.Context, owner, id string, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	if _, err := uuid.Parse(id); err != nil {
		return core.Transaction{}, core.ErrNotFound
	}
	row := r.Pool.QueryRow(ctx,
		`UPDATE transactions
		 SET amount = $1::numeric, category = $2, date = $3::date, description = $4,
		     updated_at = $5, version = version + 1
		 WHERE id = $6::uuid AND owner_id = $7
		 RETURNING `+transactionColumns,
		in.Amount.Plain(), string(in.Category), in.Date.String(), in.Description, r.now().UTC(), id, owner,
	)
	t, err := scanTransaction(row)
	return t, core.NewStoreError("update", err)
}

func (r *Repository) Delete(ctx context.Context, owner, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return core.ErrNotFound
	}
	tag, err := r.Pool.Exec(ctx, `DELETE FROM transactions WHERE id = $1::uuid AND owner_id = $2`, id, owner)
	if err != nil {
		return core.NewStoreError("delete", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func (r *Repository) CreateUser(ctx context.Context, email string, passwordHash []byte) (core.User, error) {
	var u core.User
	err := r.Pool.QueryRow(ctx,
		`INSERT INTO users (id, email, password_hash, created_at)
		 VALUES ($1::uuid, $2, $3, $4)
		 RETURNING id::text, email, password_hash, created_at`,
		uuid.NewString(), email, passwordHash, r.now().UTC(),
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation {
			return core.User{}, core.ErrEmailTaken
		}
		return core.User{}, core.NewStoreError("create user", err)
	}
	return u, nil
}

func (r *Repository) UserByEmail(ctx context.Context, email string) (core.User, error) {
	var u core.User
	err := r.Pool.QueryRow(ctx,
		`SELECT id::text, email, password_hash, created_at FROM users WHERE email = $1`,
		email,
	).Scan(&u.ID, &u.Email, &u.PasswordHash, &u.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.User{}, core.ErrNotFound
	}
	return u, core.NewStoreError("user by email", err)
}

func (r *Repository) PendingMirror(ctx context.Context, limit int) ([]core.Transaction, error) {
	var limitArg any
	if limit > 0 {
		limitArg = limit
	}
	rows, err := r.Pool.Query(ctx,
		`SELECT `+transactionColumns+`
		 FROM transactions
		 WHERE mirrored_version < version
		 ORDER BY updated_at ASC
		 LIMIT $1`,
		limitArg,
	)
	if err != nil {
		return nil, core.NewStoreError("pending mirror", err)
	}
	out, err := collect(rows)
	return out, core.NewStoreError("pending mirror", err)
}

func (r *Repository) MarkMirrored(ctx context.Context, id string, version int64) error {
	if _, err := uuid.Parse(id); err != nil {
		return core.ErrNotFound
	}
	tag, err := r.Pool.Exec(ctx,
		`UPDATE transactions SET mirrored_version = GREATEST(mirrored_version, $1) WHERE id = $2::uuid`,
		version, id,
	)
	if err != nil {
		return core.NewStoreError("mark mirrored", err)
	}
	if tag.RowsAffected() == 0 {
		return core.ErrNotFound
	}
	return nil
}

func collect(rows pgx.Rows) ([]core.Transaction, error) {
	defer rows.Close()
	out := make([]core.Transaction, 0)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func scanTransaction(row pgx.Row) (core.Transaction, error) {
	var (
		t        core.Transaction
		amount   string
		category string
		date     string
	)
	err := row.Scan(&t.ID, &t.Owner, &amount, &category, &date, &t.Description, &t.CreatedAt, &t.UpdatedAt, &t.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return core.Transaction{}, core.ErrNotFound
	}
	if err != nil {
		return core.Transaction{}, err
	}
	if t.Amount, err = core.ParseAmount(amount); err != nil {
		return core.Transaction{}, fmt.Errorf("row %s amount %q: %w", t.ID, amount, err)
	}
	if t.Date, err = core.ParseDate(date); err != nil {
		return core.Transaction{}, fmt.Errorf("row %s: %w", t.ID, err)
	}
	t.Category = core.Category(category)
	return t, nil
}
