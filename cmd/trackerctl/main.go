// Command trackerctl runs maintenance tasks against the tracker's data
// backend: migrations, account creation, exports and statistics.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/alecthomas/kong"

	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
	"expensetracker/internal/store"
)

// app is bound into every command's Run method.
type app struct {
	cfg    *config.Config
	out    io.Writer
	logger *applog.Logger
	now    func() time.Time
	// cost overrides the bcrypt cost when positive.
	cost int
	open func(ctx context.Context) (store.Backend, func() error, error)
}

func newApp(cfg *config.Config, base *slog.Logger, out io.Writer) *app {
	a := &app{
		cfg: cfg,
		out: out,
		logger: applog.New(applog.Config{
			Level:     cfg.SlogLevel(),
			Component: applog.ComponentApp,
			Handler:   base.Handler(),
		}),
		now: time.Now,
	}
	a.open = func(ctx context.Context) (store.Backend, func() error, error) {
		res, err := cli.OpenBackend(ctx, base, a.cfg)
		if err != nil {
			return nil, nil, err
		}
		return res.Backend, res.Close, nil
	}
	return a
}

func (a *app) withBackend(fn func(ctx context.Context, st store.Backend) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	st, closeFn, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := closeFn(); err != nil {
			a.logger.Warn("Backend close error", applog.FieldError, err)
		}
	}()
	return fn(ctx, st)
}

type commandLine struct {
	Backend     string `help:"Override DATA_BACKEND (memory, sqlite, postgres)." placeholder:"TYPE"`
	SQLitePath  string `name:"sqlite-path" help:"Override SQLITE_DB_PATH." placeholder:"PATH"`
	DatabaseURL string `name:"database-url" help:"Override DATABASE_URL." placeholder:"URL"`

	Migrate migrateCmd `cmd:"" help:"Apply database migrations."`
	User    userCmd    `cmd:"" help:"Manage accounts."`
	Export  exportCmd  `cmd:"" help:"Export an owner's transactions as CSV or PDF."`
	Stats   statsCmd   `cmd:"" help:"Print dashboard statistics for an owner."`
}

func (c *commandLine) apply(cfg *config.Config) {
	if c.Backend != "" {
		cfg.DataBackend = c.Backend
	}
	if c.SQLitePath != "" {
		cfg.SQLiteDBPath = c.SQLitePath
	}
	if c.DatabaseURL != "" {
		cfg.DatabaseURL = c.DatabaseURL
	}
}

// execute parses args and runs the selected command.
func execute(args []string, a *app) error {
	var c commandLine
	parser, err := kong.New(&c,
		kong.Name("trackerctl"),
		kong.Description("Maintenance commands for the expense tracker."),
		kong.UsageOnError(),
		kong.Writers(a.out, os.Stderr),
		kong.Bind(a),
	)
	if err != nil {
		return err
	}
	kctx, err := parser.Parse(args)
	if err != nil {
		return err
	}
	c.apply(a.cfg)
	return kctx.Run()
}

func main() {
	cli.LoadEnvFile()
	cfg := config.Load()
	base := cli.SetupLoggerTo(os.Stderr, cfg)

	if err := execute(os.Args[1:], newApp(cfg, base, os.Stdout)); err != nil {
		fmt.Fprintln(os.Stderr, "trackerctl:", err)
		os.Exit(1)
	}
}
