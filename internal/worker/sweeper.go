package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	applog "expensetracker/internal/log"
)

// SweeperConfig holds configuration for the pending sweeper
type SweeperConfig struct {
	// PollInterval is how often to look for pending rows (default: 30s)
	PollInterval time.Duration

	// BatchSize is the max number of rows mirrored per sweep (default: 10)
	BatchSize int
}

// DefaultSweeperConfig returns sensible defaults
func DefaultSweeperConfig() SweeperConfig {
	return SweeperConfig{
		PollInterval: 30 * time.Second,
		BatchSize:    10,
	}
}

type pendingProcessor interface {
	ProcessPending(ctx context.Context, limit int) (int, error)
}

// Sweeper periodically mirrors rows that are still pending.
type Sweeper struct {
	worker pendingProcessor
	config SweeperConfig
	logger *applog.Logger

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewSweeper(worker pendingProcessor, config SweeperConfig, logger *applog.Logger) *Sweeper {
	defaults := DefaultSweeperConfig()
	if config.PollInterval <= 0 {
		config.PollInterval = defaults.PollInterval
	}
	if config.BatchSize <= 0 {
		config.BatchSize = defaults.BatchSize
	}
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	return &Sweeper{
		worker: worker,
		config: config,
		logger: logger.WithComponent(applog.ComponentWorker),
	}
}

// Start begins the sweep loop. Returns an error if already running.
func (s *Sweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("sweeper is already running")
	}
	s.running = true
	stopCh, doneCh := make(chan struct{}), make(chan struct{})
	s.stopCh, s.doneCh = stopCh, doneCh
	s.mu.Unlock()

	go s.runLoop(ctx, stopCh, doneCh)

	s.logger.InfoContext(ctx, "Pending sweeper started",
		"poll_interval", s.config.PollInterval,
		"batch_size", s.config.BatchSize)

	return nil
}

// Stop signals the loop and waits for the current sweep to finish.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	stopCh, doneCh := s.stopCh, s.doneCh
	s.running = false
	s.mu.Unlock()

	close(stopCh)

	select {
	case <-doneCh:
		s.logger.InfoContext(ctx, "Pending sweeper stopped")
		return nil
	case <-ctx.Done():
		s.logger.WarnContext(ctx, "Pending sweeper stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the sweeper is currently running
func (s *Sweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

// Run starts the sweeper and blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.Stop(stopCtx)
}

// runLoop owns stopCh and doneCh for its lifetime; a later Start after a
// timed-out Stop gets its own pair.
func (s *Sweeper) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	// Sweep immediately on startup to recover from downtime.
	s.sweep(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

func (s *Sweeper) sweep(ctx context.Context) {
	n, err := s.worker.ProcessPending(ctx, s.config.BatchSize)
	if err != nil {
		if ctx.Err() == nil {
			s.logger.ErrorContext(ctx, "Pending sweep failed",
				applog.FieldOperation, applog.OpSweep,
				applog.FieldError, err)
		}
		return
	}
	if n > 0 {
		s.logger.InfoContext(ctx, "Pending sweep completed",
			applog.FieldOperation, applog.OpSweep,
			applog.FieldCount, n)
	}
}
