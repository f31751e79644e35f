package services

import (
	"context"
	"fmt"
	"time"

	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/store"
)

// DefaultTopCategories is how many categories the ranking chart shows.
const DefaultTopCategories = 5

// DashboardService derives every dashboard view from the owner's full list
// on each call. Nothing is cached between calls.
type DashboardService struct {
	store store.TransactionStore
	topN  int
	now   func() time.Time
}

func NewDashboardService(st store.TransactionStore, topN int) *DashboardService {
	if topN < 1 {
		topN = DefaultTopCategories
	}
	return &DashboardService{store: st, topN: topN, now: time.Now}
}

// WithClock replaces the time source that decides the current month.
func (s *DashboardService) WithClock(now func() time.Time) *DashboardService {
	s.now = now
	return s
}

// Dashboard loads the owner's transactions and derives stats, charts and the
// filtered table in one pass.
func (s *DashboardService) Dashboard(ctx context.Context, owner string, f core.Filter) (core.Dashboard, error) {
	all, err := s.store.List(ctx, owner)
	if err != nil {
		return core.Dashboard{}, fmt.Errorf("load dashboard: %w", err)
	}
	return core.Derive(all, f, s.now(), s.topN), nil
}

// Statement builds the content of a PDF export for the same filter.
func (s *DashboardService) Statement(ctx context.Context, owner, ownerLabel string, f core.Filter) (export.Statement, error) {
	d, err := s.Dashboard(ctx, owner, f)
	if err != nil {
		return export.Statement{}, err
	}
	return export.Statement{
		Owner:       ownerLabel,
		Filter:      f,
		GeneratedAt: s.now(),
		Dashboard:   d,
	}, nil
}
