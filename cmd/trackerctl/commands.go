package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"expensetracker/internal/auth"
	"expensetracker/internal/backend"
	"expensetracker/internal/core"
	"expensetracker/internal/export"
	"expensetracker/internal/services"
	"expensetracker/internal/storage"
	"expensetracker/internal/storage/postgres"
	"expensetracker/internal/store"
)

type migrateCmd struct{}

func (migrateCmd) Run(a *app) error {
	switch backend.BackendType(a.cfg.DataBackend) {
	case backend.SQLiteBackend:
		if err := storage.RunMigrations(a.cfg.SQLiteDBPath); err != nil {
			return err
		}
		version, dirty, err := storage.SchemaVersion(a.cfg.SQLiteDBPath)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "sqlite schema at version %d (dirty=%t): %s\n", version, dirty, a.cfg.SQLiteDBPath)
	case backend.PostgresBackend:
		if a.cfg.DatabaseURL == "" {
			return errors.New("DATABASE_URL is required for postgres")
		}
		if err := postgres.RunMigrations(a.cfg.DatabaseURL); err != nil {
			return err
		}
		fmt.Fprintln(a.out, "postgres schema up to date")
	case backend.MemoryBackend:
		fmt.Fprintln(a.out, "memory backend has no schema")
	default:
		return fmt.Errorf("unknown backend %q", a.cfg.DataBackend)
	}
	return nil
}

type userCmd struct {
	Add userAddCmd `cmd:"" help:"Create an account."`
}

type userAddCmd struct {
	Email    string `required:"" help:"Account email."`
	Password string `required:"" env:"TRACKER_PASSWORD" help:"Password, at least 6 characters."`
}

func (c *userAddCmd) Run(a *app) error {
	return a.withBackend(func(ctx context.Context, st store.Backend) error {
		svc := auth.NewService(st, a.cfg.AuthSecret, a.cfg.SessionTTL, a.logger)
		if a.cost > 0 {
			svc.WithCost(a.cost)
		}
		u, err := svc.Register(ctx, c.Email, c.Password, c.Password)
		if err != nil {
			return err
		}
		fmt.Fprintf(a.out, "created user %s (%s)\n", u.Email, u.ID)
		return nil
	})
}

// filterFlags mirror the dashboard's query parameters.
type filterFlags struct {
	Start    string `help:"First day included (YYYY-MM-DD)." placeholder:"DATE"`
	End      string `help:"Last day included (YYYY-MM-DD)." placeholder:"DATE"`
	Category string `help:"Category name, or all." default:"all"`
}

func (f filterFlags) filter() (core.Filter, error) {
	for _, d := range []string{f.Start, f.End} {
		if d == "" {
			continue
		}
		if _, err := core.ParseDate(d); err != nil {
			return core.Filter{}, err
		}
	}
	return core.Filter{StartDate: f.Start, EndDate: f.End, Category: f.Category}, nil
}

type exportCmd struct {
	Owner  string `required:"" help:"Owner account email."`
	Format string `enum:"csv,pdf" default:"csv" help:"Output format (csv, pdf)."`
	Out    string `short:"o" type:"path" help:"Write to this file instead of stdout."`

	Filter filterFlags `embed:""`
}

func (c *exportCmd) Run(a *app) error {
	f, err := c.Filter.filter()
	if err != nil {
		return err
	}
	return a.withBackend(func(ctx context.Context, st store.Backend) error {
		u, err := lookupOwner(ctx, st, c.Owner)
		if err != nil {
			return err
		}

		var body []byte
		switch c.Format {
		case "pdf":
			dash := services.NewDashboardService(st, a.cfg.TopCategories).WithClock(a.now)
			statement, err := dash.Statement(ctx, u.ID, u.Email, f)
			if err != nil {
				return err
			}
			if body, err = export.BuildPDF(statement); err != nil {
				return err
			}
		default:
			txs, err := services.NewTransactionService(st, nil, a.logger).List(ctx, u.ID, f)
			if err != nil {
				return err
			}
			body = []byte(export.EncodeCSV(txs))
		}

		if c.Out == "" {
			_, err = a.out.Write(body)
			return err
		}
		if err := os.WriteFile(c.Out, body, 0o600); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		fmt.Fprintf(a.out, "wrote %s export to %s\n", c.Format, c.Out)
		return nil
	})
}

type statsCmd struct {
	Owner string `required:"" help:"Owner account email."`

	Filter filterFlags `embed:""`
}

func (c *statsCmd) Run(a *app) error {
	f, err := c.Filter.filter()
	if err != nil {
		return err
	}
	return a.withBackend(func(ctx context.Context, st store.Backend) error {
		u, err := lookupOwner(ctx, st, c.Owner)
		if err != nil {
			return err
		}
		d, err := services.NewDashboardService(st, a.cfg.TopCategories).WithClock(a.now).Dashboard(ctx, u.ID, f)
		if err != nil {
			return err
		}

		fmt.Fprintf(a.out, "Owner:         %s\n", u.Email)
		fmt.Fprintf(a.out, "Total:         %s\n", export.Dollars(d.Summary.Total))
		fmt.Fprintf(a.out, "This month:    %s\n", export.Dollars(d.Summary.MonthTotal))
		fmt.Fprintf(a.out, "Average:       %s\n", export.Dollars(d.Summary.Average))
		fmt.Fprintf(a.out, "Transactions:  %d\n", d.Summary.Count)
		if len(d.TopCategories) > 0 {
			fmt.Fprintln(a.out, "Top categories:")
			for i, ct := range d.TopCategories {
				fmt.Fprintf(a.out, "  %d. %-18s %s\n", i+1, ct.Category, export.Dollars(ct.Amount))
			}
		}
		return nil
	})
}

func lookupOwner(ctx context.Context, users store.UserStore, email string) (core.User, error) {
	email, err := core.NormalizeEmail(email)
	if err != nil {
		return core.User{}, err
	}
	u, err := users.UserByEmail(ctx, email)
	if errors.Is(err, core.ErrNotFound) {
		return core.User{}, fmt.Errorf("no account for %s", email)
	}
	return u, err
}
