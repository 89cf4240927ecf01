package services

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"budgeting/internal/core"
	"budgeting/internal/storage"
)

// CommitmentService manages commitments and net-worth snapshots.
//
// Editing a commitment never touches its schedule lines; callers regenerate
// explicitly through the amortization engine.
type CommitmentService struct {
	repo      *storage.Repository
	engine    *AmortizationEngine
	publisher EventPublisher
	now       func() time.Time
}

func NewCommitmentService(repo *storage.Repository, engine *AmortizationEngine, publisher EventPublisher) *CommitmentService {
	return &CommitmentService{repo: repo, engine: engine, publisher: publisher, now: time.Now}
}

// Create stores a commitment. With a publisher configured a schedule request
// is announced so a worker can generate the lines; otherwise the schedule is
// generated in place.
func (s *CommitmentService) Create(ctx context.Context, c core.Commitment) (core.Commitment, error) {
	c.ID = ""
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Commitment{}, err
	}
	now := s.now().UTC()
	c.CreatedAt, c.UpdatedAt = now, now

	id, err := s.repo.SaveCommitment(ctx, c)
	if err != nil {
		return core.Commitment{}, fmt.Errorf("save commitment: %w", err)
	}
	c.ID = id
	slog.InfoContext(ctx, "Commitment created",
		"commitment_id", id,
		"owner_id", c.OwnerID,
		"term_months", c.TermMonths,
		"frequency", c.Frequency)

	if s.publisher == nil {
		if _, err := s.engine.GenerateSchedule(ctx, c); err != nil {
			return c, fmt.Errorf("generate schedule: %w", err)
		}
		return c, nil
	}
	if err := s.publisher.PublishScheduleRequest(ctx, c.OwnerID, id, false); err != nil {
		// the commitment is saved; the schedule can be requested again
		slog.ErrorContext(ctx, "Failed to publish schedule request",
			"commitment_id", id, "error", err)
	}
	return c, nil
}

// Update edits the terms of an owned commitment.
func (s *CommitmentService) Update(ctx context.Context, c core.Commitment) (core.Commitment, error) {
	existing, ok, err := s.repo.GetCommitment(ctx, c.ID)
	if err != nil {
		return core.Commitment{}, fmt.Errorf("get commitment: %w", err)
	}
	if !ok || existing.OwnerID != c.OwnerID {
		return core.Commitment{}, fmt.Errorf("commitment %s: %w", c.ID, core.ErrNotFound)
	}
	c.Name = strings.TrimSpace(c.Name)
	if err := c.Validate(); err != nil {
		return core.Commitment{}, err
	}
	c.CreatedAt = existing.CreatedAt
	c.UpdatedAt = s.now().UTC()
	if _, err := s.repo.SaveCommitment(ctx, c); err != nil {
		return core.Commitment{}, fmt.Errorf("save commitment: %w", err)
	}
	slog.InfoContext(ctx, "Commitment updated", "commitment_id", c.ID, "owner_id", c.OwnerID)
	return c, nil
}

// Get returns an owned commitment, or false.
func (s *CommitmentService) Get(ctx context.Context, owner, id string) (core.Commitment, bool, error) {
	c, ok, err := s.repo.GetCommitment(ctx, id)
	if err != nil {
		return core.Commitment{}, false, fmt.Errorf("get commitment: %w", err)
	}
	if !ok || c.OwnerID != owner {
		return core.Commitment{}, false, nil
	}
	return c, true, nil
}

// List returns the owner's commitments with their outstanding balance.
func (s *CommitmentService) List(ctx context.Context, owner string) ([]core.CommitmentSummary, error) {
	commitments, err := s.repo.CommitmentsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list commitments: %w", err)
	}
	out := make([]core.CommitmentSummary, 0, len(commitments))
	for _, c := range commitments {
		remaining, err := s.engine.RemainingPrincipal(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		out = append(out, core.CommitmentSummary{Commitment: c, Remaining: remaining})
	}
	return out, nil
}

// RequestRegeneration announces a schedule regeneration, or runs it in
// place without a publisher.
func (s *CommitmentService) RequestRegeneration(ctx context.Context, owner, id string) (queued bool, err error) {
	if _, ok, err := s.Get(ctx, owner, id); err != nil {
		return false, err
	} else if !ok {
		return false, fmt.Errorf("commitment %s: %w", id, core.ErrNotFound)
	}
	if s.publisher == nil {
		_, err := s.engine.RegenerateSchedule(ctx, owner, id)
		return false, err
	}
	if err := s.publisher.PublishScheduleRequest(ctx, owner, id, true); err != nil {
		return false, fmt.Errorf("publish schedule request: %w", err)
	}
	return true, nil
}

// CreateStanding stores a net-worth snapshot. Snapshots are immutable.
func (s *CommitmentService) CreateStanding(ctx context.Context, f core.FinancialStanding) (core.FinancialStanding, error) {
	f.ID = ""
	if err := f.Validate(); err != nil {
		return core.FinancialStanding{}, err
	}
	f.Notes = strings.TrimSpace(f.Notes)
	f.CreatedAt = s.now().UTC()
	id, err := s.repo.SaveStanding(ctx, f)
	if err != nil {
		return core.FinancialStanding{}, fmt.Errorf("save financial standing: %w", err)
	}
	f.ID = id
	slog.InfoContext(ctx, "Financial standing recorded",
		"standing_id", id,
		"owner_id", f.OwnerID,
		"snapshot_date", f.SnapshotDate.String())
	return f, nil
}

// ListStandings lists snapshots newest first.
func (s *CommitmentService) ListStandings(ctx context.Context, owner string) ([]core.FinancialStanding, error) {
	out, err := s.repo.StandingsByOwner(ctx, owner)
	if err != nil {
		return nil, fmt.Errorf("list financial standings: %w", err)
	}
	return out, nil
}
