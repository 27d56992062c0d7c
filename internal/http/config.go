package http

import (
	"github.com/mrlokans/weread-sync/internal/audit"
	"github.com/mrlokans/weread-sync/internal/database"
	"github.com/mrlokans/weread-sync/internal/settingsstore"
)

// RouterConfig contains all dependencies and configuration needed
// to create the HTTP router.
type RouterConfig struct {
	// Core dependencies
	Books    BookStore
	Database *database.Database

	// WeRead sync
	SettingsStore *settingsstore.SettingsStore
	Scheduler     SyncScheduler
	SyncProgress  SyncProgressSource

	// Audit trail (optional)
	AuditService *audit.Service

	// Application info
	Version string
}
