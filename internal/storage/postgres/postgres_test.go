package postgres

import (
	"context"
	"os"
	"testing"

	"expensetracker/internal/store"
	"expensetracker/internal/store/storetest"
)

// Set TEST_DATABASE_URL to a disposable database to run these.
func TestPostgresRepositoryContract(t *testing.T) {
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	storetest.Run(t, func(t *testing.T) store.Backend {
		repo, err := Open(context.Background(), url)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if _, err := repo.Pool.Exec(context.Background(), `TRUNCATE transactions, users`); err != nil {
			t.Fatalf("truncate: %v", err)
		}
		t.Cleanup(func() { _ = repo.Close() })
		return repo
	})
}

func TestMigrateURL(t *testing.T) {
	tests := []struct{ in, want string }{
		{"postgres://u:p@host:5432/db?sslmode=disable", "pgx5://u:p@host:5432/db?sslmode=disable"},
		{"postgresql://host/db", "pgx5://host/db"},
		{"pgx5://host/db", "pgx5://host/db"},
	}
	for _, tt := range tests {
		if got := migrateURL(tt.in); got != tt.want {
			t.Errorf("migrateURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
