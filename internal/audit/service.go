package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/mrlokans/librarian/internal/database/audit"
	"github.com/mrlokans/librarian/internal/entities"
)

// Service writes the admin audit trail. Writes happen off the request path.
// A nil *Service is valid and records nothing.
type Service struct {
	repo    *audit.Repository
	pending sync.WaitGroup
}

func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log writes event synchronously.
func (s *Service) Log(ctx context.Context, event *entities.AuditEvent) error {
	if s == nil {
		return nil
	}
	return s.repo.LogEvent(ctx, event)
}

// LogAsync writes event in the background. Call Wait before closing the
// database.
func (s *Service) LogAsync(event *entities.AuditEvent) {
	if s == nil {
		return
	}
	s.pending.Add(1)
	go func() {
		defer s.pending.Done()
		if err := s.repo.LogEvent(context.Background(), event); err != nil {
			log.Printf("[AUDIT ERROR] %s: %v", event.Action, err)
		}
	}()
}

// Wait blocks until every LogAsync call has been written.
func (s *Service) Wait() {
	if s == nil {
		return
	}
	s.pending.Wait()
}

// LogRecord records a create, update or delete of one record.
func (s *Service) LogRecord(eventType entities.AuditEventType, entityType string, id uint, label, ipAddr string, err error) {
	event := &entities.AuditEvent{
		EventType:   eventType,
		Action:      entityType + "_" + string(eventType),
		Description: fmt.Sprintf("%s %s: %s", verb(eventType), entityType, label),
		EntityType:  entityType,
		IPAddress:   ipAddr,
	}
	if id > 0 {
		event.EntityID = &id
	}
	s.emit(event, err)
}

// LogImport records a bulk import.
func (s *Service) LogImport(entityType, batchID string, imported, skipped int, ipAddr string, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventImport,
		Action:      entityType + "_import",
		Description: fmt.Sprintf("Imported %d %s, skipped %d", imported, entityType, skipped),
		EntityType:  entityType,
		IPAddress:   ipAddr,
	}
	event.Metadata = metadata(map[string]any{
		"batch_id": batchID,
		"imported": imported,
		"skipped":  skipped,
	})
	s.emit(event, err)
}

// LogExport records a bulk export.
func (s *Service) LogExport(entityType, format string, records int, ipAddr string, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventExport,
		Action:      entityType + "_export",
		Description: fmt.Sprintf("Exported %d %s as %s", records, entityType, format),
		EntityType:  entityType,
		IPAddress:   ipAddr,
	}
	s.emit(event, err)
}

// LogAttach records an image being stored or replaced for an owner.
func (s *Service) LogAttach(owner entities.OwnerRef, filename string, err error) {
	id := owner.ID
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventAttach,
		Action:      string(owner.Kind) + "_attach",
		Description: fmt.Sprintf("Stored image %s for %s", filename, owner),
		EntityType:  string(owner.Kind),
		EntityID:    &id,
	}
	s.emit(event, err)
}

// LogSweep records one orphan image sweep.
func (s *Service) LogSweep(scanned, removed, failed int, err error) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventSweep,
		Action:      "images_sweep",
		Description: fmt.Sprintf("Removed %d of %d stored images", removed, scanned),
		EntityType:  "images",
	}
	event.Metadata = metadata(map[string]any{"scanned": scanned, "removed": removed, "failed": failed})
	s.emit(event, err)
}

// GetEvents returns one window of events, newest first, and the total matching
// filter.
func (s *Service) GetEvents(ctx context.Context, filter audit.Filter, limit, offset int) ([]entities.AuditEvent, int64, error) {
	if s == nil {
		return []entities.AuditEvent{}, 0, nil
	}
	return s.repo.GetEvents(ctx, filter, limit, offset)
}

// DeleteOldEvents drops events recorded more than retention ago.
func (s *Service) DeleteOldEvents(ctx context.Context, retention time.Duration) (int64, error) {
	if s == nil {
		return 0, nil
	}
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(ctx, cutoff)
}

func verb(t entities.AuditEventType) string {
	switch t {
	case entities.AuditEventCreate:
		return "Created"
	case entities.AuditEventUpdate:
		return "Updated"
	case entities.AuditEventDelete:
		return "Deleted"
	}
	return string(t)
}

// emit stamps the outcome of the audited operation and queues the event.
func (s *Service) emit(event *entities.AuditEvent, err error) {
	if s == nil {
		return
	}
	event.Status = entities.AuditStatusSuccess
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = clip(err.Error(), maxErrorLen)
	}
	s.LogAsync(event)
}

func metadata(m map[string]any) string {
	b, err := json.Marshal(m)
	if err != nil {
		return ""
	}
	return string(b)
}

const maxErrorLen = 500

func clip(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-3] + "..."
}
