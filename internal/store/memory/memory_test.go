package memory

import (
	"context"
	"testing"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/store"
	"expensetracker/internal/store/storetest"
)

func TestMemoryStoreContract(t *testing.T) {
	storetest.Run(t, func(t *testing.T) store.Backend { return New() })
}

func TestSameDateOrdersByCreation(t *testing.T) {
	clock := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	s := New().WithClock(func() time.Time {
		clock = clock.Add(time.Minute)
		return clock
	})
	in := core.TransactionInput{
		Amount:      core.Money{Cents: 100},
		Category:    core.Other,
		Date:        core.NewDate(2024, 5, 1),
		Description: "first",
	}
	ctx := context.Background()
	if _, err := s.Create(ctx, "u", in); err != nil {
		t.Fatalf("create: %v", err)
	}
	in.Description = "second"
	if _, err := s.Create(ctx, "u", in); err != nil {
		t.Fatalf("create: %v", err)
	}
	list, _ := s.List(ctx, "u")
	if list[0].Description != "second" || list[1].Description != "first" {
		t.Fatalf("expected newest first, got %q, %q", list[0].Description, list[1].Description)
	}
}
