package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"budgeting/internal/core"
	"budgeting/internal/storage"
)

// AmortizationEngine generates and tracks commitment schedule lines.
type AmortizationEngine struct {
	repo *storage.Repository
}

func NewAmortizationEngine(repo *storage.Repository) *AmortizationEngine {
	return &AmortizationEngine{repo: repo}
}

// BuildSchedule computes the schedule lines of c without storing them.
// There are TermMonths lines, one per step; the last line carries the balloon.
func BuildSchedule(c core.Commitment) ([]core.ScheduleLine, error) {
	if err := c.Validate(); err != nil {
		return nil, err
	}
	lines := make([]core.ScheduleLine, 0, c.TermMonths)
	for i := 0; i < c.TermMonths; i++ {
		due, err := DueDate(c.StartDate, c.Frequency, i)
		if err != nil {
			return nil, err
		}
		amt := c.PaymentAmount
		if i == c.TermMonths-1 && !c.Balloon.IsZero() {
			amt = amt.Add(c.Balloon)
		}
		lines = append(lines, core.ScheduleLine{
			CommitmentID: c.ID,
			DueDate:      due,
			Amount:       core.Round2(amt),
			Status:       core.Outstanding,
			Sequence:     i,
		})
	}
	return lines, nil
}

// GenerateSchedule stores the schedule for c. Lines are keyed by commitment
// and sequence, so a repeated call rewrites the same lines. Use
// RegenerateSchedule to drop lines of a longer previous term.
func (e *AmortizationEngine) GenerateSchedule(ctx context.Context, c core.Commitment) ([]core.ScheduleLine, error) {
	lines, err := BuildSchedule(c)
	if err != nil {
		return nil, err
	}
	for i := range lines {
		id, err := e.repo.SaveLine(ctx, lines[i])
		if err != nil {
			return nil, fmt.Errorf("save schedule line %d: %w", i, err)
		}
		lines[i].ID = id
	}
	slog.InfoContext(ctx, "Generated commitment schedule",
		"commitment_id", c.ID,
		"lines", len(lines),
		"frequency", c.Frequency)
	return lines, nil
}

// RegenerateSchedule clears the lines of the owner's commitment and
// generates them again. Paid statuses are lost.
func (e *AmortizationEngine) RegenerateSchedule(ctx context.Context, owner, commitmentID string) ([]core.ScheduleLine, error) {
	c, err := e.ownedCommitment(ctx, owner, commitmentID)
	if err != nil {
		return nil, err
	}
	if err := e.ClearSchedule(ctx, commitmentID); err != nil {
		return nil, err
	}
	return e.GenerateSchedule(ctx, c)
}

// EnsureSchedule generates the schedule only when the commitment has none.
func (e *AmortizationEngine) EnsureSchedule(ctx context.Context, owner, commitmentID string) (int, error) {
	c, err := e.ownedCommitment(ctx, owner, commitmentID)
	if err != nil {
		return 0, err
	}
	existing, err := e.repo.LinesByCommitment(ctx, commitmentID)
	if err != nil {
		return 0, fmt.Errorf("list schedule lines: %w", err)
	}
	if len(existing) > 0 {
		slog.DebugContext(ctx, "Schedule already present", "commitment_id", commitmentID, "lines", len(existing))
		return 0, nil
	}
	lines, err := e.GenerateSchedule(ctx, c)
	return len(lines), err
}

// ClearSchedule deletes every schedule line of the commitment.
func (e *AmortizationEngine) ClearSchedule(ctx context.Context, commitmentID string) error {
	lines, err := e.repo.LinesByCommitment(ctx, commitmentID)
	if err != nil {
		return fmt.Errorf("list schedule lines: %w", err)
	}
	for _, l := range lines {
		if err := e.repo.DeleteLine(ctx, l.ID); err != nil {
			return fmt.Errorf("delete schedule line: %w", err)
		}
	}
	return nil
}

// ListScheduleLines returns the lines ordered by due date then sequence.
func (e *AmortizationEngine) ListScheduleLines(ctx context.Context, commitmentID string) ([]core.ScheduleLine, error) {
	lines, err := e.repo.LinesByCommitment(ctx, commitmentID)
	if err != nil {
		return nil, fmt.Errorf("list schedule lines: %w", err)
	}
	return lines, nil
}

// RemainingPrincipal sums the outstanding lines of the commitment.
func (e *AmortizationEngine) RemainingPrincipal(ctx context.Context, commitmentID string) (decimal.Decimal, error) {
	lines, err := e.repo.LinesByCommitment(ctx, commitmentID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("remaining principal: %w", err)
	}
	total := decimal.Zero
	for _, l := range lines {
		if l.Status == core.Outstanding {
			total = total.Add(l.Amount)
		}
	}
	return total, nil
}

// DueInMonth sums every line of the owner's commitments due in the month,
// whatever its status.
func (e *AmortizationEngine) DueInMonth(ctx context.Context, owner string, year, month int) (decimal.Decimal, error) {
	commitments, err := e.repo.CommitmentsByOwner(ctx, owner)
	if err != nil {
		return decimal.Zero, fmt.Errorf("due in month: %w", err)
	}
	total := decimal.Zero
	for _, c := range commitments {
		lines, err := e.repo.LinesByCommitment(ctx, c.ID)
		if err != nil {
			return decimal.Zero, fmt.Errorf("due in month: %w", err)
		}
		for _, l := range lines {
			if l.DueDate.InMonth(year, month) {
				total = total.Add(l.Amount)
			}
		}
	}
	return total, nil
}

// SetLineStatus marks a schedule line paid or outstanding. The line must
// belong to a commitment of owner.
func (e *AmortizationEngine) SetLineStatus(ctx context.Context, owner, lineID string, status core.LineStatus) (core.ScheduleLine, error) {
	if !status.Valid() {
		return core.ScheduleLine{}, &core.ValidationError{Field: "status", Message: "status must be paid or outstanding", Err: core.ErrInvalidStatus}
	}
	line, ok, err := e.repo.GetLine(ctx, lineID)
	if err != nil {
		return core.ScheduleLine{}, fmt.Errorf("get schedule line: %w", err)
	}
	if !ok {
		return core.ScheduleLine{}, fmt.Errorf("schedule line %s: %w", lineID, core.ErrNotFound)
	}
	if _, err := e.ownedCommitment(ctx, owner, line.CommitmentID); err != nil {
		return core.ScheduleLine{}, err
	}
	if line.Status == status {
		return line, nil
	}
	line.Status = status
	if _, err := e.repo.SaveLine(ctx, line); err != nil {
		return core.ScheduleLine{}, fmt.Errorf("save schedule line: %w", err)
	}
	slog.InfoContext(ctx, "Schedule line status changed",
		"line_id", lineID,
		"commitment_id", line.CommitmentID,
		"status", status)
	return line, nil
}

func (e *AmortizationEngine) ownedCommitment(ctx context.Context, owner, id string) (core.Commitment, error) {
	c, ok, err := e.repo.GetCommitment(ctx, id)
	if err != nil {
		return core.Commitment{}, fmt.Errorf("get commitment: %w", err)
	}
	if !ok || c.OwnerID != owner {
		return core.Commitment{}, fmt.Errorf("commitment %s: %w", id, core.ErrNotFound)
	}
	return c, nil
}
