package worker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"budgeting/internal/amqp"
	"budgeting/internal/core"
	"budgeting/internal/services"
	"budgeting/internal/sheets"
)

// ScheduleWorker consumes budgeting work messages: it builds commitment
// schedules on request and exports the monthly reports touched by an import.
type ScheduleWorker struct {
	engine   *services.AmortizationEngine
	reports  *services.ReportService
	exporter sheets.ReportExporter
}

// NewScheduleWorker creates a worker. A nil exporter disables report export.
func NewScheduleWorker(engine *services.AmortizationEngine, reports *services.ReportService, exporter sheets.ReportExporter) *ScheduleWorker {
	return &ScheduleWorker{
		engine:   engine,
		reports:  reports,
		exporter: exporter,
	}
}

// Handlers wires the worker into amqp.Client.Consume.
func (w *ScheduleWorker) Handlers() amqp.Handlers {
	return amqp.Handlers{
		ScheduleRequest: w.HandleScheduleRequest,
		ImportCompleted: w.HandleImportCompleted,
	}
}

// HandleScheduleRequest generates the schedule of the requested commitment.
// A regeneration replaces existing lines; otherwise the request is a no-op
// when lines already exist. Requests for commitments that no longer exist are
// dropped so they are not redelivered.
func (w *ScheduleWorker) HandleScheduleRequest(ctx context.Context, msg *amqp.ScheduleRequestMessage) error {
	slog.InfoContext(ctx, "Processing schedule request",
		"owner_id", msg.OwnerID,
		"commitment_id", msg.CommitmentID,
		"regenerate", msg.Regenerate)

	var (
		n   int
		err error
	)
	if msg.Regenerate {
		var lines []core.ScheduleLine
		lines, err = w.engine.RegenerateSchedule(ctx, msg.OwnerID, msg.CommitmentID)
		n = len(lines)
	} else {
		n, err = w.engine.EnsureSchedule(ctx, msg.OwnerID, msg.CommitmentID)
	}

	switch {
	case errors.Is(err, core.ErrNotFound):
		slog.WarnContext(ctx, "Commitment not found, dropping schedule request",
			"owner_id", msg.OwnerID,
			"commitment_id", msg.CommitmentID)
		return nil
	case err != nil:
		return fmt.Errorf("schedule commitment %s: %w", msg.CommitmentID, err)
	}

	slog.InfoContext(ctx, "Schedule request completed",
		"commitment_id", msg.CommitmentID,
		"lines", n)
	return nil
}

// HandleImportCompleted exports the report of every month that received new
// transactions. Without an exporter the message is only logged.
func (w *ScheduleWorker) HandleImportCompleted(ctx context.Context, msg *amqp.ImportCompletedMessage) error {
	slog.InfoContext(ctx, "Import completed",
		"owner_id", msg.OwnerID,
		"source", msg.Source,
		"created", msg.Created,
		"skipped", msg.Skipped,
		"months", msg.Months)

	if w.exporter == nil {
		return nil
	}
	for _, key := range msg.Months {
		year, month, err := core.ParseMonthKey(key)
		if err != nil {
			slog.WarnContext(ctx, "Skipping malformed month key", "month", key, "error", err)
			continue
		}
		if _, err := w.ExportMonth(ctx, msg.OwnerID, year, month); err != nil {
			return err
		}
	}
	return nil
}

// ExportMonth builds the owner's report for the month and writes it through
// the exporter.
func (w *ScheduleWorker) ExportMonth(ctx context.Context, owner string, year, month int) (string, error) {
	if w.exporter == nil {
		return "", errors.New("report export not configured")
	}
	rep, err := w.reports.MonthlyReport(ctx, owner, year, month)
	if err != nil {
		return "", fmt.Errorf("build report %s: %w", core.MonthKey(year, month), err)
	}
	ref, err := w.exporter.ExportReport(ctx, rep)
	if err != nil {
		return "", fmt.Errorf("export report %s: %w", core.MonthKey(year, month), err)
	}
	return ref, nil
}
