package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"expensetracker/internal/amqp"
	"expensetracker/internal/cli"
	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
	gsheet "expensetracker/internal/sheets/google"
	"expensetracker/internal/worker"
)

func main() {
	cli.LoadEnvFile()

	base := cli.SetupLogger(config.Load())
	cfg := cli.LoadAndValidateConfig(base, (*config.Config).ValidateWorker)
	logger := applog.New(applog.Config{
		Level:     cfg.SlogLevel(),
		Component: applog.ComponentWorker,
		Handler:   base.Handler(),
	})
	applog.SetDefault(logger)

	logger.Info("Starting tracker-worker",
		"backend", cfg.DataBackend,
		"spreadsheet_id", cfg.GoogleSpreadsheetID,
		"sheet", cfg.GoogleSheetName)

	ctx, done := cli.GracefulShutdown(base, 30*time.Second, nil)
	if err := run(ctx, base, cfg, logger); err != nil {
		logger.Error("Worker stopped with error", applog.FieldError, err)
		os.Exit(1)
	}
	cli.WaitForShutdown(ctx, done)
}

// run blocks until ctx is cancelled or the consumer fails. Either the
// consumer or the sweeper failing stops both.
func run(ctx context.Context, base *slog.Logger, cfg *config.Config, logger *applog.Logger) error {
	res, err := cli.OpenBackend(ctx, base, cfg)
	if err != nil {
		return err
	}
	defer res.Close()

	mirror, err := gsheet.New(ctx, cfg, logger)
	if err != nil {
		return fmt.Errorf("init Google Sheets mirror: %w", err)
	}

	client, err := amqp.Dial(ctx, cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue)
	if err != nil {
		return err
	}
	defer client.Close()

	mw := worker.NewMirrorWorker(res.Backend, mirror, logger)
	sweeper := worker.NewSweeper(mw, worker.SweeperConfig{
		PollInterval: cfg.SyncInterval,
		BatchSize:    cfg.SyncBatchSize,
	}, logger)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return client.ConsumeTransactionEvents(gctx, mw.HandleEvent)
	})
	g.Go(func() error {
		return sweeper.Run(gctx)
	})

	err = g.Wait()

	m := mw.Metrics()
	logger.Info("Worker shutting down",
		"upserted", m.Upserted,
		"removed", m.Removed,
		"skipped", m.Skipped,
		"failed", m.Failed)

	if err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
