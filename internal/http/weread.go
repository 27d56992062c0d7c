package http

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/weread-sync/internal/audit"
	"github.com/mrlokans/weread-sync/internal/entities"
	"github.com/mrlokans/weread-sync/internal/scheduler"
	"github.com/mrlokans/weread-sync/internal/settingsstore"
	"github.com/mrlokans/weread-sync/internal/weread"
)

// SyncScheduler is the part of the WeRead sync scheduler the API drives.
type SyncScheduler interface {
	RunNow() error
	Reschedule() error
	IsRunning() bool
	IsSyncing() bool
	GetNextRunTime() *time.Time
}

var _ SyncScheduler = (*scheduler.WeReadSyncScheduler)(nil)

// SyncProgressSource reports the progress of the current or last run.
type SyncProgressSource interface {
	GetSyncProgress() (*entities.SyncProgress, error)
}

// WeReadStatusResponse describes the sync configuration and the last run.
type WeReadStatusResponse struct {
	Config    settingsstore.WeReadSyncConfigInfo `json:"config"`
	LastRun   settingsstore.WeReadSyncStatus     `json:"last_run"`
	Scheduled bool                               `json:"scheduled"`
	Syncing   bool                               `json:"syncing"`
	NextRunAt *time.Time                         `json:"next_run_at,omitempty"`
	Progress  *entities.SyncProgress             `json:"progress,omitempty"`
}

// WeReadSettingsRequest updates the sync schedule. Omitted fields are kept.
type WeReadSettingsRequest struct {
	Enabled  *bool   `json:"enabled"`
	Schedule *string `json:"schedule"`
}

type WeReadController struct {
	settingsStore *settingsstore.SettingsStore
	scheduler     SyncScheduler
	progress      SyncProgressSource
	auditService  *audit.Service
}

func NewWeReadController(settingsStore *settingsstore.SettingsStore, scheduler SyncScheduler, progress SyncProgressSource, auditService *audit.Service) *WeReadController {
	return &WeReadController{
		settingsStore: settingsStore,
		scheduler:     scheduler,
		progress:      progress,
		auditService:  auditService,
	}
}

// GetStatus returns the sync configuration and the last run's outcome.
// GET /api/weread/status
func (wc *WeReadController) GetStatus(c *gin.Context) {
	resp := WeReadStatusResponse{
		Config:  wc.settingsStore.GetWeReadSyncConfigInfo(),
		LastRun: wc.settingsStore.GetWeReadSyncStatus(),
	}
	if wc.scheduler != nil {
		resp.Scheduled = wc.scheduler.IsRunning()
		resp.Syncing = wc.scheduler.IsSyncing()
		resp.NextRunAt = wc.scheduler.GetNextRunTime()
	}
	if wc.progress != nil {
		progress, err := wc.progress.GetSyncProgress()
		switch {
		case err == nil:
			resp.Progress = progress
		case !errors.Is(err, gorm.ErrRecordNotFound):
			respondInternalError(c, err, "load sync progress")
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}

// SyncNow starts a sync in the background.
// POST /api/weread/sync
func (wc *WeReadController) SyncNow(c *gin.Context) {
	if wc.scheduler == nil {
		respondError(c, http.StatusServiceUnavailable, "sync_unavailable", "WeRead sync is not configured")
		return
	}
	if err := wc.scheduler.RunNow(); err != nil {
		if errors.Is(err, scheduler.ErrSyncInProgress) {
			respondError(c, http.StatusConflict, "sync_in_progress", err.Error())
			return
		}
		respondInternalError(c, err, "start WeRead sync")
		return
	}
	respondAccepted(c, "WeRead sync started", nil)
}

// UpdateSettings saves the schedule and reschedules the sync job.
// POST /api/weread/settings
func (wc *WeReadController) UpdateSettings(c *gin.Context) {
	var req WeReadSettingsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, "invalid request body")
		return
	}

	var changes []string
	if req.Schedule != nil {
		schedule := strings.TrimSpace(*req.Schedule)
		if err := wc.settingsStore.SetWeReadSyncSchedule(schedule); err != nil {
			respondBadRequest(c, fmt.Sprintf("invalid cron schedule: %v", err))
			return
		}
		changes = append(changes, "schedule="+schedule)
	}
	if req.Enabled != nil {
		if err := wc.settingsStore.SetWeReadSyncEnabled(*req.Enabled); err != nil {
			respondInternalError(c, err, "save WeRead sync enabled")
			return
		}
		changes = append(changes, fmt.Sprintf("enabled=%t", *req.Enabled))
	}

	if wc.scheduler != nil {
		if err := wc.scheduler.Reschedule(); err != nil {
			respondInternalError(c, err, "reschedule WeRead sync")
			return
		}
	}

	if wc.auditService != nil && len(changes) > 0 {
		wc.auditService.LogSettings("weread_sync_settings", "Updated "+strings.Join(changes, ", "), c.ClientIP(), c.Request.UserAgent())
	}

	respondSuccess(c, "settings saved", wc.settingsStore.GetWeReadSyncConfigInfo())
}

// ResetSettings drops database overrides so env and defaults apply again.
// POST /api/weread/settings/reset
func (wc *WeReadController) ResetSettings(c *gin.Context) {
	if err := wc.settingsStore.ClearWeReadSyncSettings(); err != nil {
		respondInternalError(c, err, "reset WeRead sync settings")
		return
	}
	if wc.scheduler != nil {
		if err := wc.scheduler.Reschedule(); err != nil {
			respondInternalError(c, err, "reschedule WeRead sync")
			return
		}
	}
	if wc.auditService != nil {
		wc.auditService.LogSettings("weread_sync_settings", "Reset to environment defaults", c.ClientIP(), c.Request.UserAgent())
	}
	respondSuccess(c, "settings reset", wc.settingsStore.GetWeReadSyncConfigInfo())
}

// ReaderURL converts a WeRead book id into its web reader link.
// GET /api/weread/reader-url/:bookId
func (wc *WeReadController) ReaderURL(c *gin.Context) {
	bookID := strings.TrimSpace(c.Param("bookId"))
	if bookID == "" {
		respondBadRequest(c, "bookId is required")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"book_id":      bookID,
		"internal_key": weread.ToInternalKey(bookID),
		"reader_url":   weread.ReaderURL(bookID),
	})
}
