package scheduler

import (
	"context"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/librarian/internal/tasks"
)

const (
	JobSweepImages  = "sweep_images"
	JobCleanupAudit = "cleanup_audit"
)

// Enqueuer hands a task to the background queue.
type Enqueuer interface {
	Enqueue(ctx context.Context, task backlite.Task) (string, error)
}

// SweepImagesJob enqueues an orphan sweep. When queue is nil the sweep runs
// inline instead.
func SweepImagesJob(schedule string, queue Enqueuer, sweeper tasks.OrphanSweeper, reporter tasks.SweepReporter) Job {
	return Job{
		Name:     JobSweepImages,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			if queue != nil {
				_, err := queue.Enqueue(ctx, tasks.SweepOrphanImagesTask{Trigger: "schedule"})
				return err
			}
			_, err := tasks.RunSweep(ctx, sweeper, reporter, "schedule")
			return err
		},
	}
}

// CleanupAuditJob enqueues deletion of audit events older than retentionDays.
func CleanupAuditJob(schedule string, retentionDays int, queue Enqueuer, cleaner tasks.AuditEventCleaner) Job {
	task := tasks.CleanupAuditEventsTask{RetentionDays: retentionDays, Trigger: "schedule"}
	return Job{
		Name:     JobCleanupAudit,
		Schedule: schedule,
		Run: func(ctx context.Context) error {
			if queue != nil {
				_, err := queue.Enqueue(ctx, task)
				return err
			}
			_, err := tasks.RunAuditCleanup(ctx, cleaner, retentionDays, "schedule")
			return err
		},
	}
}
