package settingsstore

import (
	"strconv"
	"time"

	"github.com/mrlokans/weread-sync/internal/config"
	"github.com/mrlokans/weread-sync/internal/entities"
)

// Last-run status values.
const (
	StatusRunning = "running"
	StatusSuccess = "success"
	StatusPartial = "partial"
	StatusFailed  = "failed"
)

// DefaultWeReadSyncSchedule runs a sync every 6 hours.
const DefaultWeReadSyncSchedule = "0 */6 * * *"

// WeReadSyncConfig represents the effective configuration for WeRead sync
type WeReadSyncConfig struct {
	Enabled  bool   `json:"enabled"`
	Schedule string `json:"schedule"`
}

// WeReadSyncConfigInfo includes source information for each field
type WeReadSyncConfigInfo struct {
	Enabled       bool   `json:"enabled"`
	EnabledSource string `json:"enabled_source"`

	Schedule            string `json:"schedule"`
	ScheduleSource      string `json:"schedule_source"`
	ScheduleDescription string `json:"schedule_description"`
}

// WeReadSyncStatus is the bookkeeping of the last run. The credential itself
// is never stored, only where it came from and when it was last rejected.
type WeReadSyncStatus struct {
	LastSyncAt          *time.Time `json:"last_sync_at,omitempty"`
	Status              string     `json:"status,omitempty"`
	Message             string     `json:"message,omitempty"`
	BooksSynced         int        `json:"books_synced,omitempty"`
	CredentialSource    string     `json:"credential_source,omitempty"`
	CredentialExpiredAt *time.Time `json:"credential_expired_at,omitempty"`
}

func parseBool(v string) bool {
	return v == "true" || v == "1"
}

// GetWeReadSyncEnabled returns whether scheduled sync is enabled (database > env > default)
func (s *SettingsStore) GetWeReadSyncEnabled() bool {
	v, _ := s.lookup(entities.SettingKeyWeReadSyncEnabled, "WEREAD_SYNC_ENABLED", "false")
	return parseBool(v)
}

func (s *SettingsStore) GetWeReadSyncEnabledSource() string {
	_, source := s.lookup(entities.SettingKeyWeReadSyncEnabled, "WEREAD_SYNC_ENABLED", "false")
	return source
}

func (s *SettingsStore) SetWeReadSyncEnabled(enabled bool) error {
	return s.db.SetSetting(entities.SettingKeyWeReadSyncEnabled, strconv.FormatBool(enabled))
}

// GetWeReadSyncSchedule returns the cron schedule (database > env > default)
func (s *SettingsStore) GetWeReadSyncSchedule() string {
	v, _ := s.lookup(entities.SettingKeyWeReadSyncSchedule, "WEREAD_SYNC_SCHEDULE", DefaultWeReadSyncSchedule)
	return v
}

func (s *SettingsStore) GetWeReadSyncScheduleSource() string {
	_, source := s.lookup(entities.SettingKeyWeReadSyncSchedule, "WEREAD_SYNC_SCHEDULE", DefaultWeReadSyncSchedule)
	return source
}

// SetWeReadSyncSchedule validates and saves the schedule.
func (s *SettingsStore) SetWeReadSyncSchedule(schedule string) error {
	if err := ValidateCronSchedule(schedule); err != nil {
		return err
	}
	return s.db.SetSetting(entities.SettingKeyWeReadSyncSchedule, schedule)
}

func (s *SettingsStore) GetWeReadSyncConfig() WeReadSyncConfig {
	return WeReadSyncConfig{
		Enabled:  s.GetWeReadSyncEnabled(),
		Schedule: s.GetWeReadSyncSchedule(),
	}
}

func (s *SettingsStore) GetWeReadSyncConfigInfo() WeReadSyncConfigInfo {
	schedule := s.GetWeReadSyncSchedule()
	return WeReadSyncConfigInfo{
		Enabled:             s.GetWeReadSyncEnabled(),
		EnabledSource:       s.GetWeReadSyncEnabledSource(),
		Schedule:            schedule,
		ScheduleSource:      s.GetWeReadSyncScheduleSource(),
		ScheduleDescription: GetCronDescription(schedule),
	}
}

// ClearWeReadSyncSettings clears all database overrides, reverting to env/default
func (s *SettingsStore) ClearWeReadSyncSettings() error {
	return s.clear(entities.SettingKeyWeReadSyncEnabled, entities.SettingKeyWeReadSyncSchedule)
}

func (s *SettingsStore) GetWeReadSyncStatus() WeReadSyncStatus {
	status := WeReadSyncStatus{
		Status:              s.stored(entities.SettingKeyWeReadSyncLastStatus),
		Message:             s.stored(entities.SettingKeyWeReadSyncLastMessage),
		CredentialSource:    s.stored(entities.SettingKeyWeReadCredentialSource),
		LastSyncAt:          s.storedTime(entities.SettingKeyWeReadSyncLastAt),
		CredentialExpiredAt: s.storedTime(entities.SettingKeyWeReadCredentialExpired),
	}
	if count, err := strconv.Atoi(s.stored(entities.SettingKeyWeReadSyncBooksSynced)); err == nil {
		status.BooksSynced = count
	}
	return status
}

// SetWeReadSyncStatus records the outcome of a run.
func (s *SettingsStore) SetWeReadSyncStatus(status, message string, booksSynced int) error {
	now := time.Now().UTC().Format(time.RFC3339)

	if err := s.db.SetSetting(entities.SettingKeyWeReadSyncLastAt, now); err != nil {
		return err
	}
	if err := s.db.SetSetting(entities.SettingKeyWeReadSyncLastStatus, status); err != nil {
		return err
	}
	if err := s.db.SetSetting(entities.SettingKeyWeReadSyncLastMessage, message); err != nil {
		return err
	}
	return s.db.SetSetting(entities.SettingKeyWeReadSyncBooksSynced, strconv.Itoa(booksSynced))
}

// SetCredentialSource records which source supplied the last working credential
// and clears any earlier expiry mark.
func (s *SettingsStore) SetCredentialSource(source string) error {
	if err := s.db.SetSetting(entities.SettingKeyWeReadCredentialSource, source); err != nil {
		return err
	}
	return s.clear(entities.SettingKeyWeReadCredentialExpired)
}

// MarkCredentialExpired records that WeRead rejected the credential.
func (s *SettingsStore) MarkCredentialExpired(at time.Time) error {
	return s.db.SetSetting(entities.SettingKeyWeReadCredentialExpired, at.UTC().Format(time.RFC3339))
}

func (s *SettingsStore) storedTime(key string) *time.Time {
	v := s.stored(key)
	if v == "" {
		return nil
	}
	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		return nil
	}
	return &ts
}

// NewWeReadSyncConfigFromEnv creates settings from environment config (for use when database not yet ready)
func NewWeReadSyncConfigFromEnv(cfg config.WeReadSync) WeReadSyncConfig {
	schedule := cfg.Schedule
	if schedule == "" {
		schedule = DefaultWeReadSyncSchedule
	}
	return WeReadSyncConfig{
		Enabled:  cfg.Enabled,
		Schedule: schedule,
	}
}
