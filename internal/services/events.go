package services

import (
	"context"

	"budgeting/internal/core"
)

// EventPublisher announces work for background workers. A nil publisher
// disables the announcements; the originating operation still succeeds.
type EventPublisher interface {
	// PublishScheduleRequest asks a worker to generate the schedule of a
	// commitment. With regenerate set, existing lines are replaced.
	PublishScheduleRequest(ctx context.Context, owner, commitmentID string, regenerate bool) error
	// PublishImportCompleted reports the outcome of an import run.
	PublishImportCompleted(ctx context.Context, owner, source string, res core.ImportResult) error
}
