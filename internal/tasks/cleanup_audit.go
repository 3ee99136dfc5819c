package tasks

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mikestefanello/backlite"
)

const DefaultAuditRetentionDays = 90

// AuditEventCleaner deletes audit events recorded before now minus retention.
type AuditEventCleaner interface {
	DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error)
}

// AuditCleanupResult is the outcome of one retention pass.
type AuditCleanupResult struct {
	RetentionDays int
	Cutoff        time.Time
	Deleted       int64
}

// CleanupAuditEventsTask prunes the audit trail down to RetentionDays.
type CleanupAuditEventsTask struct {
	RetentionDays int `json:"retention_days"`
	// Trigger records who asked for the cleanup: "schedule" or "cli".
	Trigger string `json:"trigger,omitempty"`
}

func (t CleanupAuditEventsTask) Config() backlite.QueueConfig {
	return backlite.QueueConfig{
		Name:        "cleanup_audit_events",
		MaxAttempts: 2,
		Backoff:     time.Minute,
		Timeout:     5 * time.Minute,
		Retention: &backlite.Retention{
			Duration:   7 * 24 * time.Hour,
			OnlyFailed: false,
			Data:       &backlite.RetainData{OnlyFailed: true},
		},
	}
}

// RunAuditCleanup prunes events older than retentionDays. A non-positive
// window falls back to DefaultAuditRetentionDays.
func RunAuditCleanup(ctx context.Context, cleaner AuditEventCleaner, retentionDays int, trigger string) (AuditCleanupResult, error) {
	if cleaner == nil {
		return AuditCleanupResult{}, fmt.Errorf("audit event cleaner not configured")
	}
	if retentionDays <= 0 {
		retentionDays = DefaultAuditRetentionDays
	}
	window := time.Duration(retentionDays) * 24 * time.Hour
	res := AuditCleanupResult{RetentionDays: retentionDays, Cutoff: time.Now().Add(-window)}

	deleted, err := cleaner.DeleteOldEvents(ctx, window)
	if err != nil {
		return res, fmt.Errorf("prune audit events before %s: %w", res.Cutoff.Format(time.DateOnly), err)
	}
	res.Deleted = deleted

	if trigger == "" {
		trigger = "unknown"
	}
	log.Printf("[TASK] Audit cleanup (%s): removed %d events before %s", trigger, res.Deleted, res.Cutoff.Format(time.DateOnly))
	return res, nil
}

func CleanupAuditEventsProcessor(cleaner AuditEventCleaner) backlite.QueueProcessor[CleanupAuditEventsTask] {
	return func(ctx context.Context, task CleanupAuditEventsTask) error {
		_, err := RunAuditCleanup(ctx, cleaner, task.RetentionDays, task.Trigger)
		return err
	}
}

func NewCleanupAuditEventsQueue(cleaner AuditEventCleaner) backlite.Queue {
	return backlite.NewQueue(CleanupAuditEventsProcessor(cleaner))
}
