package audit

import (
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	auditRepo "github.com/mrlokans/weread-sync/internal/database/audit"
	"github.com/mrlokans/weread-sync/internal/entities"
)

func setupTestService(t *testing.T) (*Service, *gorm.DB) {
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "audit.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	err = db.AutoMigrate(&entities.AuditEvent{})
	require.NoError(t, err)

	t.Cleanup(func() {
		sqlDB, _ := db.DB()
		sqlDB.Close()
	})

	return NewService(auditRepo.NewRepository(db)), db
}

func TestService_Log(t *testing.T) {
	svc, db := setupTestService(t)

	event := &entities.AuditEvent{
		EventType: entities.AuditEventSync,
		Action:    "test_sync",
		Status:    entities.AuditStatusSuccess,
	}
	require.NoError(t, svc.Log(event))

	var saved entities.AuditEvent
	require.NoError(t, db.First(&saved, event.ID).Error)
	assert.Equal(t, "test_sync", saved.Action)
}

func TestService_LogSync(t *testing.T) {
	svc, _ := setupTestService(t)

	t.Run("success", func(t *testing.T) {
		svc.LogSync("run-ok", "Synced 2 books", SyncStats{Books: 2, Succeeded: 2, Highlights: 7}, nil)

		events, err := svc.GetRunEvents("run-ok")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, entities.AuditStatusSuccess, events[0].Status)
		assert.Contains(t, events[0].Metadata, `"highlights":7`)
	})

	t.Run("partial when some books failed", func(t *testing.T) {
		svc.LogSync("run-partial", "Synced 1 of 2 books", SyncStats{Books: 2, Succeeded: 1, Failed: 1}, nil)

		events, err := svc.GetRunEvents("run-partial")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, entities.AuditStatusPartial, events[0].Status)
	})

	t.Run("failure", func(t *testing.T) {
		svc.LogSync("run-failed", "Sync aborted", SyncStats{}, errors.New("credential expired"))

		events, err := svc.GetRunEvents("run-failed")
		require.NoError(t, err)
		require.Len(t, events, 1)
		assert.Equal(t, entities.AuditStatusFailed, events[0].Status)
		assert.Equal(t, "credential expired", events[0].ErrorMsg)
	})
}

func TestService_RunTrail(t *testing.T) {
	svc, _ := setupTestService(t)

	svc.LogCredential("run-1", "cookiecloud", nil)
	svc.LogBookSync("run-1", "695233", "三体", 3, nil)
	svc.LogBookSync("run-1", "CB_1", "失败的书", 0, errors.New("bookmarks: status 500"))

	events, err := svc.GetRunEvents("run-1")
	require.NoError(t, err)
	require.Len(t, events, 3)
	assert.Equal(t, entities.AuditEventCredential, events[0].EventType)
	assert.Contains(t, events[1].Metadata, `"book_id":"695233"`)
	assert.Equal(t, entities.AuditStatusFailed, events[2].Status)
}

func TestService_DeleteOldEvents(t *testing.T) {
	svc, _ := setupTestService(t)

	require.NoError(t, svc.Log(&entities.AuditEvent{
		EventType: entities.AuditEventSync,
		Action:    "old",
		CreatedAt: time.Now().Add(-72 * time.Hour),
	}))
	svc.LogSettings("weread_sync_schedule", "Schedule changed", "127.0.0.1", "curl")

	deleted, err := svc.DeleteOldEvents(24 * time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	events, total, err := svc.GetEvents(10, 0)
	require.NoError(t, err)
	assert.Equal(t, int64(1), total)
	assert.Equal(t, "weread_sync_schedule", events[0].Action)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	long := strings.Repeat("a", 20)
	assert.Equal(t, "aaaaaaa...", truncate(long, 10))
}
