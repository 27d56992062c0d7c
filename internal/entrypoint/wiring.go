package entrypoint

import (
	"context"
	"fmt"

	"github.com/mrlokans/weread-sync/internal/audit"
	"github.com/mrlokans/weread-sync/internal/config"
	"github.com/mrlokans/weread-sync/internal/credentials"
	"github.com/mrlokans/weread-sync/internal/database"
	auditrepo "github.com/mrlokans/weread-sync/internal/database/audit"
	syncrepo "github.com/mrlokans/weread-sync/internal/database/sync"
	"github.com/mrlokans/weread-sync/internal/exporters"
	"github.com/mrlokans/weread-sync/internal/importers"
	"github.com/mrlokans/weread-sync/internal/services"
	"github.com/mrlokans/weread-sync/internal/weread"
)

// OpenClient resolves the credential and builds a WeRead client for one run.
func OpenClient(ctx context.Context, cfg *config.Config, provider *credentials.Provider) (*weread.Client, credentials.Source, error) {
	credential, source, err := provider.Credential(ctx)
	if err != nil {
		return nil, "", err
	}

	retry := weread.DefaultRetryPolicy()
	if cfg.WeRead.RetryCount > 0 {
		retry.MaxAttempts = cfg.WeRead.RetryCount
	}
	if cfg.WeRead.RetryDelay > 0 {
		retry.BaseDelay = cfg.WeRead.RetryDelay
	}

	client, err := weread.NewClient(weread.Options{
		BaseURL:    cfg.WeRead.BaseURL,
		Credential: credential,
		Timeout:    cfg.WeRead.Timeout,
		Retry:      &retry,
		BrowserTLS: cfg.WeRead.BrowserTLS,
	})
	if err != nil {
		return nil, source, fmt.Errorf("failed to create WeRead client: %w", err)
	}
	return client, source, nil
}

// NewSessionOpener opens a fresh client, with a freshly resolved credential,
// every time a run starts.
func NewSessionOpener(cfg *config.Config) services.SessionOpener {
	provider := credentials.NewProvider(cfg)
	return func(ctx context.Context) (services.WeReadAPI, string, error) {
		client, source, err := OpenClient(ctx, cfg, provider)
		if err != nil {
			return nil, string(source), err
		}
		return client, string(source), nil
	}
}

// SyncOptions builds the run options from configuration.
func SyncOptions(cfg *config.Config) services.SyncOptions {
	return services.SyncOptions{
		BookIDs:      cfg.WeRead.BookIDs,
		SkipProgress: cfg.WeRead.SkipProgress,
	}
}

// SyncStack is everything a sync run needs, backed by one database.
type SyncStack struct {
	Database     *database.Database
	Exporter     *exporters.DatabaseMarkdownExporter
	AuditService *audit.Service
	Progress     *syncrepo.Repository
	Service      *services.WeReadSyncService
}

// NewSyncStack opens the database and wires the sync service to it.
func NewSyncStack(cfg *config.Config) (*SyncStack, error) {
	db, err := database.NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	stack := &SyncStack{
		Database:     db,
		Exporter:     exporters.NewDatabaseMarkdownExporter(db, cfg.Markdown.OutputDir),
		AuditService: audit.NewService(auditrepo.NewRepository(db.DB)),
		Progress:     syncrepo.NewRepository(db.DB),
	}

	opts := []services.WeReadSyncOption{
		services.WithProgressReporter(stack.Progress),
		services.WithSyncAuditor(stack.AuditService),
	}
	if cfg.Audit.Dir != "" {
		opts = append(opts, services.WithSnapshotDumper(audit.NewAuditor(cfg.Audit.Dir)))
	}

	stack.Service = services.NewWeReadSyncService(
		NewSessionOpener(cfg),
		importers.NewWeReadConverter(),
		stack.Exporter,
		opts...,
	)
	return stack, nil
}

func (s *SyncStack) Close() error {
	return s.Database.Close()
}
