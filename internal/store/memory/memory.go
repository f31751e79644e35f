// Package memory is a process-local backend used for development and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
)

var _ store.Backend = (*Store)(nil)

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	items    map[string]core.Transaction
	mirrored map[string]int64
	users    map[string]core.User // keyed by email
}

func New() *Store {
	return &Store{
		now:      time.Now,
		items:    make(map[string]core.Transaction),
		mirrored: make(map[string]int64),
		users:    make(map[string]core.User),
	}
}

// WithClock replaces the time source used for timestamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) List(_ context.Context, owner string) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]core.Transaction, 0)
	for _, t := range s.items {
		if t.Owner == owner {
			out = append(out, t)
		}
	}
	sortNewestFirst(out)
	return out, nil
}

func (s *Store) Get(_ context.Context, owner, id string) (core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[id]
	if !ok || t.Owner != owner {
		return core.Transaction{}, core.ErrNotFound
	}
	return t, nil
}

func (s *Store) Create(_ context.Context, owner string, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now().UTC()
	t := core.Transaction{
		ID:          uuid.NewString(),
		Owner:       owner,
		Amount:      in.Amount,
		Category:    in.Category,
		Date:        in.Date,
		Description: in.Description,
		CreatedAt:   now,
		UpdatedAt:   now,
		Version:     1,
	}
	s.items[t.ID] = t
	return t, nil
}

func (s *Store) Update(_ context.Context, owner, id string, in core.TransactionInput) (core.Transaction, error) {
	if err := in.Validate(); err != nil {
		return core.Transaction{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[id]
	if !ok || t.Owner != owner {
		return core.Transaction{}, core.ErrNotFound
	}
	t.Amount = in.Amount
	t.Category = in.Category
	t.Date = in.Date
	t.Description = in.Description
	t.UpdatedAt = s.now().UTC()
	t.Version++
	s.items[id] = t
	return t, nil
}

func (s *Store) Delete(_ context.Context, owner, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.items[id]
	if !ok || t.Owner != owner {
		return core.ErrNotFound
	}
	delete(s.items, id)
	delete(s.mirrored, id)
	return nil
}

func (s *Store) CreateUser(_ context.Context, email string, passwordHash []byte) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.users[email]; ok {
		return core.User{}, core.ErrEmailTaken
	}
	u := core.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: append([]byte(nil), passwordHash...),
		CreatedAt:    s.now().UTC(),
	}
	s.users[email] = u
	return u, nil
}

func (s *Store) UserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[email]
	if !ok {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

// PendingMirror returns transactions whose latest version has not been mirrored, oldest first.
func (s *Store) PendingMirror(_ context.Context, limit int) ([]core.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []core.Transaction
	for id, t := range s.items {
		if s.mirrored[id] < t.Version {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.Before(out[j].UpdatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) MarkMirrored(_ context.Context, id string, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return core.ErrNotFound
	}
	if version > s.mirrored[id] {
		s.mirrored[id] = version
	}
	return nil
}

func sortNewestFirst(txs []core.Transaction) {
	sort.SliceStable(txs, func(i, j int) bool {
		di, dj := txs[i].Date.String(), txs[j].Date.String()
		if di != dj {
			return di > dj
		}
		return txs[i].CreatedAt.After(txs[j].CreatedAt)
	})
}
