// Package sync stores the progress of the running WeRead sync.
//
// Repository implements services.ProgressReporter so a run can publish how
// far it got while it walks the notebook, and the HTTP status endpoint can
// read it back.
//
// # Usage
//
//	repo := sync.NewRepository(db)
//	err := repo.StartSync(runID, len(notebooks))
//	err = repo.BookDone(bookID, title, false)
package sync

import (
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/mrlokans/weread-sync/internal/entities"
)

// StaleAfter is how long a running sync may go without progress before it is
// considered interrupted.
const StaleAfter = 15 * time.Minute

// Repository reads and writes the WeRead sync progress row.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) current() *gorm.DB {
	return r.db.Model(&entities.SyncProgress{}).Where("sync_type = ?", entities.SyncTypeWeRead)
}

// GetSyncProgress returns the progress of the latest run, or
// gorm.ErrRecordNotFound if no run was ever started.
func (r *Repository) GetSyncProgress() (*entities.SyncProgress, error) {
	var progress entities.SyncProgress
	if err := r.current().First(&progress).Error; err != nil {
		return nil, err
	}
	return &progress, nil
}

// StartSync resets the progress row for a new run of totalBooks books.
func (r *Repository) StartSync(runID string, totalBooks int) error {
	var existing entities.SyncProgress
	if err := r.current().FirstOrInit(&existing).Error; err != nil {
		return err
	}

	now := time.Now()
	progress := entities.SyncProgress{
		ID:         existing.ID,
		SyncType:   entities.SyncTypeWeRead,
		RunID:      runID,
		Status:     entities.SyncStatusRunning,
		TotalBooks: totalBooks,
		StartedAt:  now,
		UpdatedAt:  now,
	}
	return r.db.Save(&progress).Error
}

// BookDone counts one processed book and makes it the current one.
func (r *Repository) BookDone(bookID, title string, failed bool) error {
	counter := "succeeded"
	if failed {
		counter = "failed"
	}
	return r.current().Updates(map[string]any{
		"processed":       gorm.Expr("processed + 1"),
		counter:           gorm.Expr(counter + " + 1"),
		"current_book_id": bookID,
		"current_title":   title,
		"updated_at":      time.Now(),
	}).Error
}

// CompleteSync marks the run as completed or failed.
func (r *Repository) CompleteSync(succeeded bool, errorMsg string) error {
	now := time.Now()
	status := entities.SyncStatusCompleted
	if !succeeded {
		status = entities.SyncStatusFailed
	}

	updates := map[string]any{
		"status":          status,
		"current_book_id": "",
		"current_title":   "",
		"updated_at":      now,
		"completed_at":    now,
	}
	if errorMsg != "" {
		updates["error"] = errorMsg
	}
	return r.current().Updates(updates).Error
}

// IsSyncRunning reports whether a run is in progress. A run that has not
// reported for StaleAfter is marked failed and no longer counts.
func (r *Repository) IsSyncRunning() (bool, error) {
	progress, err := r.GetSyncProgress()
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	if progress.Status != entities.SyncStatusRunning {
		return false, nil
	}

	if time.Since(progress.UpdatedAt) > StaleAfter {
		_ = r.CompleteSync(false, "sync was interrupted")
		return false, nil
	}
	return true, nil
}
