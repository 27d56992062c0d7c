package audit

import (
	"encoding/json"
	"log"
	"time"

	"github.com/mrlokans/weread-sync/internal/database/audit"
	"github.com/mrlokans/weread-sync/internal/entities"
)

// SyncStats summarizes one sync run for the audit trail.
type SyncStats struct {
	Books      int `json:"books"`
	Succeeded  int `json:"succeeded"`
	Failed     int `json:"failed"`
	Highlights int `json:"highlights"`
}

// Service provides high-level audit logging functionality.
type Service struct {
	repo *audit.Repository
}

// NewService creates a new audit service.
func NewService(repo *audit.Repository) *Service {
	return &Service{repo: repo}
}

// Log records a generic audit event.
func (s *Service) Log(event *entities.AuditEvent) error {
	return s.repo.LogEvent(event)
}

func (s *Service) logOrWarn(event *entities.AuditEvent) {
	if err := s.repo.LogEvent(event); err != nil {
		log.Printf("Failed to log audit event %s: %v", event.Action, err)
	}
}

// LogCredential records where the run took its credential from.
func (s *Service) LogCredential(runID, source string, err error) {
	event := &entities.AuditEvent{
		RunID:       runID,
		EventType:   entities.AuditEventCredential,
		Action:      "weread_credential",
		Description: "Credential source: " + source,
		Status:      entities.AuditStatusSuccess,
	}
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	s.logOrWarn(event)
}

// LogBookSync records the outcome for one book of a run.
func (s *Service) LogBookSync(runID, bookID, title string, highlights int, err error) {
	event := &entities.AuditEvent{
		RunID:       runID,
		EventType:   entities.AuditEventSync,
		Action:      "weread_book_sync",
		Description: title,
		EntityType:  "book",
		Status:      entities.AuditStatusSuccess,
	}
	event.Metadata = marshalMetadata(map[string]any{
		"book_id":          bookID,
		"highlights_count": highlights,
	})
	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}
	s.logOrWarn(event)
}

// LogSync records the end of a sync run. A run with some failed books is partial.
func (s *Service) LogSync(runID, description string, stats SyncStats, err error) {
	event := &entities.AuditEvent{
		RunID:       runID,
		EventType:   entities.AuditEventSync,
		Action:      "weread_sync",
		Description: description,
		Metadata:    marshalMetadata(stats),
		Status:      entities.AuditStatusSuccess,
	}

	switch {
	case err != nil:
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	case stats.Failed > 0:
		event.Status = entities.AuditStatusPartial
	}

	s.logOrWarn(event)
}

// LogExport records handing a run's books to the database and markdown sink.
func (s *Service) LogExport(runID, description string, err error) {
	event := &entities.AuditEvent{
		RunID:       runID,
		EventType:   entities.AuditEventExport,
		Action:      "export",
		Description: description,
		Status:      entities.AuditStatusSuccess,
	}

	if err != nil {
		event.Status = entities.AuditStatusFailed
		event.ErrorMsg = truncate(err.Error(), 500)
	}

	s.logOrWarn(event)
}

// LogSettings records a settings change event.
func (s *Service) LogSettings(action, description, ipAddr, userAgent string) {
	event := &entities.AuditEvent{
		EventType:   entities.AuditEventSettings,
		Action:      action,
		Description: description,
		IPAddress:   ipAddr,
		UserAgent:   truncate(userAgent, 500),
		Status:      entities.AuditStatusSuccess,
	}

	s.logOrWarn(event)
}

// GetEvents retrieves paginated audit events.
func (s *Service) GetEvents(limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEvents(limit, offset)
}

// GetEventsByType retrieves paginated audit events of one type.
func (s *Service) GetEventsByType(eventType entities.AuditEventType, limit, offset int) ([]entities.AuditEvent, int64, error) {
	return s.repo.GetEventsByType(eventType, limit, offset)
}

// GetRunEvents retrieves the events of one sync run.
func (s *Service) GetRunEvents(runID string) ([]entities.AuditEvent, error) {
	return s.repo.GetRunEvents(runID)
}

// DeleteOldEvents removes events older than the specified duration.
func (s *Service) DeleteOldEvents(retention time.Duration) (int64, error) {
	cutoff := time.Now().Add(-retention)
	return s.repo.DeleteOldEvents(cutoff)
}

func marshalMetadata(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// truncate shortens a string to max length.
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
