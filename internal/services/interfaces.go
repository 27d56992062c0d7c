package services

import (
	"context"

	"github.com/mrlokans/weread-sync/internal/audit"
	"github.com/mrlokans/weread-sync/internal/entities"
	"github.com/mrlokans/weread-sync/internal/weread"
)

// BookReader provides read-only access to books and highlights.
// Use this interface when you only need to query books.
type BookReader interface {
	GetAllBooks() ([]entities.Book, error)
	GetBookByID(id uint) (*entities.Book, error)
	GetBookByExternalID(externalID string) (*entities.Book, error)
	SearchBooks(query string) ([]entities.Book, error)
}

// BookExporter handles exporting books to storage (database + files).
// Use this interface when you need to persist books.
type BookExporter interface {
	Export(books []entities.Book) (ExportResult, error)
}

// ExportResult contains the outcome of an export operation.
type ExportResult struct {
	BooksProcessed      int
	HighlightsProcessed int
	BooksFailed         int
	HighlightsFailed    int
}

// ImportResult contains the outcome of an import operation.
type ImportResult struct {
	BooksProcessed      int
	HighlightsProcessed int
	BooksFailed         int
	HighlightsFailed    int
}

// WeReadAPI is the part of the WeRead client a sync run calls.
//
// Implemented by *weread.Client.
type WeReadAPI interface {
	Notebooks(ctx context.Context) ([]weread.Notebook, error)
	BookInfo(ctx context.Context, bookID string) (*weread.BookInfo, error)
	Bookmarks(ctx context.Context, bookID string) ([]weread.Bookmark, error)
	ChapterInfos(ctx context.Context, bookID string) (map[string]weread.Chapter, error)
	Reviews(ctx context.Context, bookID string) ([]weread.Review, error)
	ReadProgress(ctx context.Context, bookID string) (*weread.ReadProgress, error)
}

var _ WeReadAPI = (*weread.Client)(nil)

// SessionOpener resolves a credential and opens a WeRead session for one run.
// The returned string names where the credential came from.
type SessionOpener func(ctx context.Context) (WeReadAPI, string, error)

// BookConverter turns a fetched snapshot into a storable book.
type BookConverter interface {
	ToBook(snapshot BookSnapshot) entities.Book
}

// ProgressReporter publishes how far a run got.
//
// Implemented by database/sync.Repository.
type ProgressReporter interface {
	StartSync(runID string, totalBooks int) error
	BookDone(bookID, title string, failed bool) error
	CompleteSync(succeeded bool, errorMsg string) error
	IsSyncRunning() (bool, error)
}

// SyncAuditor records the audit trail of a run.
//
// Implemented by audit.Service.
type SyncAuditor interface {
	LogCredential(runID, source string, err error)
	LogBookSync(runID, bookID, title string, highlights int, err error)
	LogExport(runID, description string, err error)
	LogSync(runID, description string, stats audit.SyncStats, err error)
}

// SnapshotDumper keeps raw snapshots on disk.
//
// Implemented by audit.Auditor.
type SnapshotDumper interface {
	SaveRunJSON(runID, name string, data any) (string, error)
}
