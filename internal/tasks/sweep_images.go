package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"

	"github.com/mrlokans/librarian/internal/attachments"
)

// OrphanSweeper removes stored blobs no image row references.
type OrphanSweeper interface {
	Sweep(ctx context.Context) (attachments.SweepResult, error)
}

// SweepReporter receives the outcome of each sweep.
type SweepReporter interface {
	LogSweep(scanned, removed, failed int, err error)
}

// SweepOrphanImagesTask runs one pass of the orphan image sweeper.
type SweepOrphanImagesTask struct {
	// Trigger records who asked for the sweep: "schedule", "admin" or "cli".
	Trigger string `json:"trigger,omitempty"`
}

func (t SweepOrphanImagesTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "sweep_orphan_images",
		MaxAttempts: 2,
		Backoff:     time.Minute,
		Timeout:     10 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RunSweep performs one sweep and reports it. It is shared by the queue
// processor and callers that run without a task queue.
func RunSweep(ctx context.Context, sweeper OrphanSweeper, reporter SweepReporter, trigger string) (attachments.SweepResult, error) {
	if sweeper == nil {
		return attachments.SweepResult{}, fmt.Errorf("orphan sweeper not configured")
	}

	res, err := sweeper.Sweep(ctx)
	if reporter != nil {
		reporter.LogSweep(res.Scanned, res.Removed, res.Failed, err)
	}
	if err != nil {
		return res, fmt.Errorf("sweep orphan images: %w", err)
	}

	if trigger == "" {
		trigger = "unknown"
	}
	log.Printf("[TASK] Orphan sweep (%s): scanned %d, removed %d, failed %d", trigger, res.Scanned, res.Removed, res.Failed)
	return res, nil
}

func SweepOrphanImagesProcessor(sweeper OrphanSweeper, reporter SweepReporter) backlite.QueueProcessor[SweepOrphanImagesTask] {
	return func(ctx context.Context, task SweepOrphanImagesTask) error {
		_, err := RunSweep(ctx, sweeper, reporter, task.Trigger)
		return err
	}
}

func NewSweepOrphanImagesQueue(sweeper OrphanSweeper, reporter SweepReporter) backlite.Queue {
	return backlite.NewQueue(SweepOrphanImagesProcessor(sweeper, reporter))
}
