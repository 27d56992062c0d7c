package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/mrlokans/weread-sync/internal/services"
	"github.com/mrlokans/weread-sync/internal/settingsstore"
	"github.com/mrlokans/weread-sync/internal/weread"
)

// auditCleanupSchedule prunes old audit events daily at 03:00.
const auditCleanupSchedule = "0 3 * * *"

// syncTimeout bounds a single scheduled run.
const syncTimeout = 30 * time.Minute

// ErrSyncInProgress is returned by RunNow while a run is active.
var ErrSyncInProgress = errors.New("WeRead sync already in progress")

// Syncer runs one WeRead sync.
type Syncer interface {
	Sync(ctx context.Context, opts services.SyncOptions) (services.SyncResult, error)
}

// AuditEventCleaner provides the ability to delete old audit events.
type AuditEventCleaner interface {
	DeleteOldEvents(retention time.Duration) (int64, error)
}

// WeReadSyncScheduler runs WeRead syncs on the configured cron schedule and
// records the outcome of every run in the settings store.
type WeReadSyncScheduler struct {
	settingsStore *settingsstore.SettingsStore
	syncer        Syncer
	options       services.SyncOptions

	cleaner       AuditEventCleaner
	retentionDays int

	cron       *cron.Cron
	entryIDs   []cron.EntryID
	syncEntry  cron.EntryID
	mu         sync.RWMutex
	isRunning  bool
	isSyncing  bool
	stopCh     chan struct{} // closed when the current schedule stops
}

// NewWeReadSyncScheduler creates a new scheduler instance
func NewWeReadSyncScheduler(settingsStore *settingsstore.SettingsStore, syncer Syncer, options services.SyncOptions) *WeReadSyncScheduler {
	return &WeReadSyncScheduler{
		settingsStore: settingsStore,
		syncer:        syncer,
		options:       options,
		cron:          newCron(),
	}
}

func newCron() *cron.Cron {
	return cron.New(cron.WithParser(cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)))
}

// WithAuditCleanup also prunes audit events older than retentionDays once a day.
func (s *WeReadSyncScheduler) WithAuditCleanup(cleaner AuditEventCleaner, retentionDays int) *WeReadSyncScheduler {
	s.cleaner = cleaner
	s.retentionDays = retentionDays
	return s
}

// Start begins the scheduler if sync is enabled
func (s *WeReadSyncScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.isRunning {
		return nil
	}

	config := s.settingsStore.GetWeReadSyncConfig()
	if !config.Enabled {
		log.Printf("WeRead sync scheduler: disabled")
		return nil
	}

	if err := settingsstore.ValidateCronSchedule(config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule '%s': %w", config.Schedule, err)
	}

	syncEntry, err := s.cron.AddFunc(config.Schedule, s.runScheduled)
	if err != nil {
		return fmt.Errorf("failed to schedule sync job: %w", err)
	}
	s.syncEntry = syncEntry
	s.entryIDs = append(s.entryIDs, syncEntry)

	if s.cleaner != nil {
		cleanupEntry, err := s.cron.AddFunc(auditCleanupSchedule, s.cleanupAudit)
		if err != nil {
			return fmt.Errorf("failed to schedule audit cleanup: %w", err)
		}
		s.entryIDs = append(s.entryIDs, cleanupEntry)
	}

	stopped := make(chan struct{})
	s.stopCh = stopped

	s.cron.Start()
	s.isRunning = true

	nextRun, _ := settingsstore.GetNextRunTime(config.Schedule)
	log.Printf("WeRead sync scheduler: started with schedule '%s' (%s). Next run: %v",
		config.Schedule,
		settingsstore.GetCronDescription(config.Schedule),
		nextRun)

	// Cancelling ctx stops this schedule only, never one started after it
	go func() {
		select {
		case <-ctx.Done():
			s.stop(stopped)
		case <-stopped:
		}
	}()

	return nil
}

// Stop stops the scheduler and waits for a running job to finish.
func (s *WeReadSyncScheduler) Stop() {
	s.stop(nil)
}

// stop stops the schedule owning the given channel, or whatever schedule is
// running when owner is nil.
func (s *WeReadSyncScheduler) stop(owner chan struct{}) {
	s.mu.Lock()
	if !s.isRunning || (owner != nil && owner != s.stopCh) {
		s.mu.Unlock()
		return
	}
	s.isRunning = false
	close(s.stopCh)
	s.stopCh = nil
	c := s.cron
	s.entryIDs = nil
	s.cron = newCron()
	s.mu.Unlock()

	// Jobs may need the lock to finish, so wait without holding it
	<-c.Stop().Done()

	log.Printf("WeRead sync scheduler: stopped")
}

// Reschedule updates the schedule (call after settings change)
func (s *WeReadSyncScheduler) Reschedule() error {
	s.Stop()
	return s.Start(context.Background())
}

// RunNow starts a sync in the background.
func (s *WeReadSyncScheduler) RunNow() error {
	if s.IsSyncing() {
		return ErrSyncInProgress
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
		defer cancel()
		_, _ = s.RunOnce(ctx)
	}()
	return nil
}

// IsRunning returns whether the scheduler is active
func (s *WeReadSyncScheduler) IsRunning() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isRunning
}

// IsSyncing returns whether a sync is currently in progress
func (s *WeReadSyncScheduler) IsSyncing() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.isSyncing
}

// GetNextRunTime returns when the next sync will occur
func (s *WeReadSyncScheduler) GetNextRunTime() *time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.isRunning {
		return nil
	}

	for _, entry := range s.cron.Entries() {
		if entry.ID == s.syncEntry {
			t := entry.Next
			return &t
		}
	}
	return nil
}

func (s *WeReadSyncScheduler) runScheduled() {
	if !s.settingsStore.GetWeReadSyncEnabled() {
		log.Printf("WeRead sync: skipped (disabled)")
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), syncTimeout)
	defer cancel()
	_, _ = s.RunOnce(ctx)
}

// RunOnce performs one sync and records its outcome. Overlapping calls are
// rejected with ErrSyncInProgress.
func (s *WeReadSyncScheduler) RunOnce(ctx context.Context) (services.SyncResult, error) {
	s.mu.Lock()
	if s.isSyncing {
		s.mu.Unlock()
		log.Printf("WeRead sync: skipped (already syncing)")
		return services.SyncResult{}, ErrSyncInProgress
	}
	s.isSyncing = true
	s.mu.Unlock()

	defer func() {
		s.mu.Lock()
		s.isSyncing = false
		s.mu.Unlock()
	}()

	log.Printf("WeRead sync: starting")
	startTime := time.Now()

	result, err := s.syncer.Sync(ctx, s.options)
	s.recordOutcome(result, err, time.Since(startTime))
	return result, err
}

func (s *WeReadSyncScheduler) recordOutcome(result services.SyncResult, err error, duration time.Duration) {
	if result.Source != "" {
		if serr := s.settingsStore.SetCredentialSource(result.Source); serr != nil {
			log.Printf("WeRead sync: failed to record credential source: %v", serr)
		}
	}

	status := settingsstore.StatusSuccess
	var msg string
	switch {
	case err != nil:
		status = settingsstore.StatusFailed
		msg = err.Error()
		if weread.IsCredentialExpired(err) {
			if merr := s.settingsStore.MarkCredentialExpired(time.Now()); merr != nil {
				log.Printf("WeRead sync: failed to record credential expiry: %v", merr)
			}
		}
	case len(result.Failures) > 0:
		status = settingsstore.StatusPartial
		msg = fmt.Sprintf("Synced %d books with %d highlights in %v, %d books failed",
			len(result.Snapshots), result.Export.HighlightsProcessed, duration.Round(time.Millisecond), len(result.Failures))
	default:
		msg = fmt.Sprintf("Synced %d books with %d highlights in %v",
			len(result.Snapshots), result.Export.HighlightsProcessed, duration.Round(time.Millisecond))
	}

	log.Printf("WeRead sync: %s: %s", status, msg)
	if serr := s.settingsStore.SetWeReadSyncStatus(status, msg, len(result.Snapshots)); serr != nil {
		log.Printf("WeRead sync: failed to record status: %v", serr)
	}
}

func (s *WeReadSyncScheduler) cleanupAudit() {
	retentionDays := s.retentionDays
	if retentionDays <= 0 {
		retentionDays = 30
	}
	deleted, err := s.cleaner.DeleteOldEvents(time.Duration(retentionDays) * 24 * time.Hour)
	if err != nil {
		log.Printf("Audit cleanup: %v", err)
		return
	}
	log.Printf("Audit cleanup: removed %d events older than %d days", deleted, retentionDays)
}
