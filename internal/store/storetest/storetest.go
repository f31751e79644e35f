// Package storetest holds the behaviour every store.Backend must share.
// Backend packages call Run from their own tests.
package storetest

import (
	"context"
	"errors"
	"testing"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
)

// Run exercises b against the store contracts. newBackend must return an empty backend.
func Run(t *testing.T, newBackend func(t *testing.T) store.Backend) {
	t.Run("CreateGetList", func(t *testing.T) { testCreateGetList(t, newBackend(t)) })
	t.Run("OwnerScoping", func(t *testing.T) { testOwnerScoping(t, newBackend(t)) })
	t.Run("UpdateKeepsIdentity", func(t *testing.T) { testUpdate(t, newBackend(t)) })
	t.Run("DeleteIsPermanent", func(t *testing.T) { testDelete(t, newBackend(t)) })
	t.Run("RejectsInvalidInput", func(t *testing.T) { testValidation(t, newBackend(t)) })
	t.Run("Users", func(t *testing.T) { testUsers(t, newBackend(t)) })
	t.Run("MirrorQueue", func(t *testing.T) { testMirrorQueue(t, newBackend(t)) })
}

func input(cents int64, cat core.Category, date, desc string) core.TransactionInput {
	d, err := core.ParseDate(date)
	if err != nil {
		panic(err)
	}
	return core.TransactionInput{Amount: core.Money{Cents: cents}, Category: cat, Date: d, Description: desc}
}

func mustCreate(t *testing.T, b store.Backend, owner string, in core.TransactionInput) core.Transaction {
	t.Helper()
	tx, err := b.Create(context.Background(), owner, in)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return tx
}

func testCreateGetList(t *testing.T, b store.Backend) {
	ctx := context.Background()
	owner := "0b7d8f4e-1111-4c3a-9a55-3b0a5f2f0001"

	first := mustCreate(t, b, owner, input(12050, core.FoodAndDining, "2024-01-05", "Dinner"))
	if first.ID == "" || first.Owner != owner || first.Version < 1 {
		t.Fatalf("unexpected created row: %+v", first)
	}
	if first.CreatedAt.IsZero() || first.UpdatedAt.IsZero() {
		t.Fatalf("timestamps not set: %+v", first)
	}
	mustCreate(t, b, owner, input(300, core.Travel, "2024-03-01", `Quote "inside"`))
	mustCreate(t, b, owner, input(1, core.Other, "2024-02-10", "Gum"))

	got, err := b.Get(ctx, owner, first.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.Amount != first.Amount || got.Category != first.Category || got.Date.String() != "2024-01-05" || got.Description != "Dinner" {
		t.Fatalf("get mismatch: %+v", got)
	}

	list, err := b.List(ctx, owner)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(list) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(list))
	}
	dates := []string{list[0].Date.String(), list[1].Date.String(), list[2].Date.String()}
	if dates[0] != "2024-03-01" || dates[1] != "2024-02-10" || dates[2] != "2024-01-05" {
		t.Fatalf("list not ordered by date desc: %v", dates)
	}
	if list[0].Description != `Quote "inside"` {
		t.Fatalf("description mangled: %q", list[0].Description)
	}
}

func testOwnerScoping(t *testing.T, b store.Backend) {
	ctx := context.Background()
	alice := "0b7d8f4e-2222-4c3a-9a55-3b0a5f2f0001"
	bob := "0b7d8f4e-2222-4c3a-9a55-3b0a5f2f0002"

	tx := mustCreate(t, b, alice, input(500, core.Shopping, "2024-01-01", "Shoes"))

	list, err := b.List(ctx, bob)
	if err != nil || len(list) != 0 {
		t.Fatalf("bob sees %d rows (err=%v)", len(list), err)
	}
	if _, err := b.Get(ctx, bob, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign get: expected ErrNotFound, got %v", err)
	}
	if _, err := b.Update(ctx, bob, tx.ID, input(1, core.Other, "2024-01-01", "x")); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign update: expected ErrNotFound, got %v", err)
	}
	if err := b.Delete(ctx, bob, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("foreign delete: expected ErrNotFound, got %v", err)
	}
	if _, err := b.Get(ctx, alice, tx.ID); err != nil {
		t.Fatalf("owner lost the row: %v", err)
	}
}

func testUpdate(t *testing.T, b store.Backend) {
	ctx := context.Background()
	owner := "0b7d8f4e-3333-4c3a-9a55-3b0a5f2f0001"
	tx := mustCreate(t, b, owner, input(500, core.Shopping, "2024-01-01", "Shoes"))

	updated, err := b.Update(ctx, owner, tx.ID, input(750, core.Healthcare, "2024-01-02", "Pharmacy"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if updated.ID != tx.ID || updated.Owner != owner {
		t.Fatalf("identity changed: %+v", updated)
	}
	if updated.Amount.Cents != 750 || updated.Category != core.Healthcare || updated.Date.String() != "2024-01-02" || updated.Description != "Pharmacy" {
		t.Fatalf("fields not replaced: %+v", updated)
	}
	if updated.Version <= tx.Version {
		t.Fatalf("version not bumped: %d -> %d", tx.Version, updated.Version)
	}
	if _, err := b.Update(ctx, owner, "00000000-0000-0000-0000-000000000000", input(1, core.Other, "2024-01-01", "x")); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing update: expected ErrNotFound, got %v", err)
	}
}

func testDelete(t *testing.T, b store.Backend) {
	ctx := context.Background()
	owner := "0b7d8f4e-4444-4c3a-9a55-3b0a5f2f0001"
	tx := mustCreate(t, b, owner, input(500, core.Shopping, "2024-01-01", "Shoes"))

	if err := b.Delete(ctx, owner, tx.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := b.Get(ctx, owner, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("deleted row still readable: %v", err)
	}
	if err := b.Delete(ctx, owner, tx.ID); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func testValidation(t *testing.T, b store.Backend) {
	ctx := context.Background()
	owner := "0b7d8f4e-5555-4c3a-9a55-3b0a5f2f0001"
	bad := input(0, core.Other, "2024-01-01", "zero")
	if _, err := b.Create(ctx, owner, bad); !core.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
	list, _ := b.List(ctx, owner)
	if len(list) != 0 {
		t.Fatalf("invalid input reached the store")
	}
}

func testUsers(t *testing.T, b store.Backend) {
	ctx := context.Background()
	u, err := b.CreateUser(ctx, "someone@example.com", []byte("hash"))
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	if u.ID == "" || u.Email != "someone@example.com" {
		t.Fatalf("unexpected user: %+v", u)
	}
	if _, err := b.CreateUser(ctx, "someone@example.com", []byte("other")); !errors.Is(err, core.ErrEmailTaken) {
		t.Fatalf("duplicate email: expected ErrEmailTaken, got %v", err)
	}
	got, err := b.UserByEmail(ctx, "someone@example.com")
	if err != nil || got.ID != u.ID || string(got.PasswordHash) != "hash" {
		t.Fatalf("lookup mismatch: %+v (err=%v)", got, err)
	}
	if _, err := b.UserByEmail(ctx, "nobody@example.com"); !errors.Is(err, core.ErrNotFound) {
		t.Fatalf("missing user: expected ErrNotFound, got %v", err)
	}
}

func testMirrorQueue(t *testing.T, b store.Backend) {
	ctx := context.Background()
	owner := "0b7d8f4e-6666-4c3a-9a55-3b0a5f2f0001"
	a := mustCreate(t, b, owner, input(100, core.Other, "2024-01-01", "a"))
	mustCreate(t, b, owner, input(200, core.Other, "2024-01-02", "b"))

	pending, err := b.PendingMirror(ctx, 10)
	if err != nil || len(pending) != 2 {
		t.Fatalf("expected 2 pending, got %d (err=%v)", len(pending), err)
	}
	if limited, _ := b.PendingMirror(ctx, 1); len(limited) != 1 {
		t.Fatalf("limit ignored: %d", len(limited))
	}

	if err := b.MarkMirrored(ctx, a.ID, a.Version); err != nil {
		t.Fatalf("mark: %v", err)
	}
	pending, _ = b.PendingMirror(ctx, 10)
	if len(pending) != 1 || pending[0].ID == a.ID {
		t.Fatalf("mirrored row still pending: %v", pending)
	}

	updated, err := b.Update(ctx, owner, a.ID, input(150, core.Other, "2024-01-01", "a2"))
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	pending, _ = b.PendingMirror(ctx, 10)
	if len(pending) != 2 {
		t.Fatalf("updated row must be pending again, got %d", len(pending))
	}

	// A stale acknowledgement must not hide the newer version.
	if err := b.MarkMirrored(ctx, a.ID, a.Version); err != nil {
		t.Fatalf("stale mark: %v", err)
	}
	pending, _ = b.PendingMirror(ctx, 10)
	if len(pending) != 2 {
		t.Fatalf("stale mark cleared version %d", updated.Version)
	}
}
