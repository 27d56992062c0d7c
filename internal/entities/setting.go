package entities

import (
	"time"
)

type Setting struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Key       string    `gorm:"uniqueIndex;size:100" json:"key"`
	Value     string    `gorm:"type:text" json:"value"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Setting) TableName() string {
	return "settings"
}

// Known setting keys. The WeRead cookie is never stored.
const (
	SettingKeyWeReadSyncEnabled       = "weread_sync_enabled"
	SettingKeyWeReadSyncSchedule      = "weread_sync_schedule"
	SettingKeyWeReadSyncLastAt        = "weread_sync_last_at"
	SettingKeyWeReadSyncLastStatus    = "weread_sync_last_status"
	SettingKeyWeReadSyncLastMessage   = "weread_sync_last_message"
	SettingKeyWeReadSyncBooksSynced   = "weread_sync_books_synced"
	SettingKeyWeReadCredentialSource  = "weread_credential_source"
	SettingKeyWeReadCredentialExpired = "weread_credential_expired_at"
)
