package services

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"budgeting/internal/core"
	"budgeting/internal/storage"
)

// ScheduleSweeperConfig holds configuration for the schedule sweeper
type ScheduleSweeperConfig struct {
	// PollInterval is how often commitments are scanned (default: 1m)
	PollInterval time.Duration

	// BatchSize is the max number of commitments checked per cycle; later
	// cycles continue where the previous one stopped (default: 100)
	BatchSize int

	// MaxRetries is how many failed attempts a commitment gets before the
	// sweeper stops trying it (default: 3)
	MaxRetries int
}

// DefaultScheduleSweeperConfig returns sensible defaults
func DefaultScheduleSweeperConfig() ScheduleSweeperConfig {
	return ScheduleSweeperConfig{
		PollInterval: time.Minute,
		BatchSize:    100,
		MaxRetries:   3,
	}
}

// ScheduleSweeper generates missing schedules in the background. It covers
// commitments whose schedule request was never published or never handled.
type ScheduleSweeper struct {
	repo   *storage.Repository
	engine *AmortizationEngine
	config ScheduleSweeperConfig

	failures map[string]int
	// cursor is the last commitment id checked; empty starts from the top.
	cursor string

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewScheduleSweeper(repo *storage.Repository, engine *AmortizationEngine, config ScheduleSweeperConfig) *ScheduleSweeper {
	return &ScheduleSweeper{
		repo:     repo,
		engine:   engine,
		config:   config,
		failures: map[string]int{},
	}
}

// Start begins the sweep loop. Returns an error if already running.
func (s *ScheduleSweeper) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("schedule sweeper is already running")
	}
	s.running = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})
	s.mu.Unlock()

	go s.runLoop(ctx)

	slog.InfoContext(ctx, "Schedule sweeper started",
		"poll_interval", s.config.PollInterval,
		"batch_size", s.config.BatchSize)
	return nil
}

// Stop signals the loop and waits for the current sweep to finish.
func (s *ScheduleSweeper) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.mu.Unlock()

	close(s.stopCh)

	select {
	case <-s.doneCh:
		slog.InfoContext(ctx, "Schedule sweeper stopped gracefully")
	case <-ctx.Done():
		slog.WarnContext(ctx, "Schedule sweeper stop timed out")
		return ctx.Err()
	}

	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
	return nil
}

func (s *ScheduleSweeper) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *ScheduleSweeper) runLoop(ctx context.Context) {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.config.PollInterval)
	defer ticker.Stop()

	s.Sweep(ctx)
	for {
		select {
		case <-s.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs one pass over at most BatchSize commitments and returns how many
// schedules it generated.
func (s *ScheduleSweeper) Sweep(ctx context.Context) int {
	batch, err := s.nextBatch(ctx)
	if err != nil {
		slog.ErrorContext(ctx, "Failed to list commitments", "error", err)
		return 0
	}

	generated := 0
	for _, c := range batch {
		if s.stopping(ctx) {
			break
		}
		s.cursor = c.ID
		n, err := s.engine.EnsureSchedule(ctx, c.OwnerID, c.ID)
		if err != nil {
			s.failures[c.ID]++
			slog.WarnContext(ctx, "Schedule sweep failed",
				"commitment_id", c.ID,
				"attempt", s.failures[c.ID],
				"error", err)
			if s.failures[c.ID] >= s.config.MaxRetries {
				slog.ErrorContext(ctx, "Giving up on commitment schedule after max retries",
					"commitment_id", c.ID,
					"attempts", s.failures[c.ID])
			}
			continue
		}
		delete(s.failures, c.ID)
		if n > 0 {
			generated++
		}
	}
	if generated > 0 {
		slog.InfoContext(ctx, "Schedule sweep generated schedules", "count", generated)
	}
	return generated
}

// nextBatch returns the commitments after the cursor in id order, skipping
// those given up on. Past the last commitment the cursor wraps to the top.
func (s *ScheduleSweeper) nextBatch(ctx context.Context) ([]core.Commitment, error) {
	all, err := s.repo.AllCommitments(ctx, 0)
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].ID < all[j].ID })

	pending := all[:0]
	for _, c := range all {
		if s.failures[c.ID] < s.config.MaxRetries {
			pending = append(pending, c)
		}
	}

	start := sort.Search(len(pending), func(i int) bool { return pending[i].ID > s.cursor })
	if start == len(pending) {
		s.cursor = ""
		start = 0
	}
	end := len(pending)
	if s.config.BatchSize > 0 && start+s.config.BatchSize < end {
		end = start + s.config.BatchSize
	}
	return pending[start:end], nil
}

func (s *ScheduleSweeper) stopping(ctx context.Context) bool {
	s.mu.Lock()
	stopCh := s.stopCh
	s.mu.Unlock()
	select {
	case <-ctx.Done():
		return true
	case <-stopCh:
		return true
	default:
		return false
	}
}
