package entities

import (
	"time"
)

type SyncType string

const (
	SyncTypeWeRead SyncType = "weread"
)

type SyncStatus string

const (
	SyncStatusRunning   SyncStatus = "running"
	SyncStatusCompleted SyncStatus = "completed"
	SyncStatusFailed    SyncStatus = "failed"
)

// SyncProgress is the live state of the latest run. There is one row per
// sync type; a new run overwrites it.
type SyncProgress struct {
	ID            uint       `gorm:"primaryKey" json:"id"`
	SyncType      SyncType   `gorm:"size:50;uniqueIndex" json:"sync_type"`
	RunID         string     `gorm:"size:36" json:"run_id"`
	Status        SyncStatus `gorm:"size:20" json:"status"`
	TotalBooks    int        `json:"total_books"`
	Processed     int        `json:"processed"`
	Succeeded     int        `json:"succeeded"`
	Failed        int        `json:"failed"`
	CurrentBookID string     `gorm:"size:64" json:"current_book_id,omitempty"`
	CurrentTitle  string     `gorm:"size:512" json:"current_title,omitempty"`
	Error         string     `gorm:"type:text" json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	UpdatedAt     time.Time  `json:"updated_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
}

func (SyncProgress) TableName() string {
	return "sync_progress"
}
