package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync/atomic"

	"github.com/mrlokans/weread-sync/internal/audit"
	"github.com/mrlokans/weread-sync/internal/entities"
	"github.com/mrlokans/weread-sync/internal/weread"
)

// ErrSyncInProgress is returned when a run is started while another is active.
var ErrSyncInProgress = errors.New("a WeRead sync is already running")

// BookSnapshot is everything fetched for one book during a run.
type BookSnapshot struct {
	Notebook  weread.Notebook           `json:"notebook"`
	Info      *weread.BookInfo          `json:"info,omitempty"`
	Bookmarks []weread.Bookmark         `json:"bookmarks"`
	Chapters  map[string]weread.Chapter `json:"chapters"`
	Reviews   []weread.Review           `json:"reviews"`
	Progress  *weread.ReadProgress      `json:"progress,omitempty"`
}

// BookID returns the WeRead id of the snapshot's book.
func (s BookSnapshot) BookID() string {
	if s.Notebook.BookID != "" {
		return s.Notebook.BookID
	}
	return s.Notebook.Book.BookID
}

// Title returns the best known title of the snapshot's book.
func (s BookSnapshot) Title() string {
	if s.Info != nil && s.Info.Title != "" {
		return s.Info.Title
	}
	return s.Notebook.Book.Title
}

// SyncOptions narrows down a run.
type SyncOptions struct {
	BookIDs      []string // Only these books, in notebook order
	Limit        int      // At most this many books, 0 means all
	SkipProgress bool
}

// BookFailure is a book that could not be fetched. The run continued without it.
type BookFailure struct {
	BookID string
	Title  string
	Err    error
}

// FetchResult is the outcome of walking the notebook.
type FetchResult struct {
	RunID     string
	Source    string
	Snapshots []BookSnapshot
	Failures  []BookFailure
}

// SyncResult is the outcome of a full run.
type SyncResult struct {
	FetchResult
	Export ExportResult
}

// WeReadSyncService pulls highlights, notes and reading state from WeRead
// and hands them to the configured sink.
//
// Books are processed one at a time. Per book, the endpoints are always called
// in the same order: book info, bookmarks, chapter infos, reviews, read progress.
// An expired credential aborts the run; any other per-book failure is recorded
// and the run moves on to the next book.
type WeReadSyncService struct {
	open      SessionOpener
	converter BookConverter
	exporter  BookExporter
	progress  ProgressReporter
	auditor   SyncAuditor
	dumper    SnapshotDumper
	running   atomic.Bool
}

// WeReadSyncOption configures optional collaborators.
type WeReadSyncOption func(*WeReadSyncService)

func WithProgressReporter(p ProgressReporter) WeReadSyncOption {
	return func(s *WeReadSyncService) { s.progress = p }
}

func WithSyncAuditor(a SyncAuditor) WeReadSyncOption {
	return func(s *WeReadSyncService) { s.auditor = a }
}

// WithSnapshotDumper keeps every raw snapshot on disk, grouped by run.
func WithSnapshotDumper(d SnapshotDumper) WeReadSyncOption {
	return func(s *WeReadSyncService) { s.dumper = d }
}

func NewWeReadSyncService(open SessionOpener, converter BookConverter, exporter BookExporter, opts ...WeReadSyncOption) *WeReadSyncService {
	s := &WeReadSyncService{
		open:      open,
		converter: converter,
		exporter:  exporter,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// IsRunning reports whether a run is active in this process.
func (s *WeReadSyncService) IsRunning() bool {
	return s.running.Load()
}

// Fetch walks the notebook and returns raw snapshots without exporting them.
func (s *WeReadSyncService) Fetch(ctx context.Context, opts SyncOptions) (FetchResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return FetchResult{}, ErrSyncInProgress
	}
	defer s.running.Store(false)

	result, err := s.fetch(ctx, audit.NewRunID(), opts)
	s.complete(err)
	return result, err
}

// Sync fetches every selected book, converts it and exports it to the sink.
func (s *WeReadSyncService) Sync(ctx context.Context, opts SyncOptions) (SyncResult, error) {
	if !s.running.CompareAndSwap(false, true) {
		return SyncResult{}, ErrSyncInProgress
	}
	defer s.running.Store(false)

	if s.progress != nil {
		running, err := s.progress.IsSyncRunning()
		if err != nil {
			log.Printf("WeRead sync: could not check sync progress: %v", err)
		} else if running {
			return SyncResult{}, ErrSyncInProgress
		}
	}

	runID := audit.NewRunID()
	fetched, err := s.fetch(ctx, runID, opts)
	result := SyncResult{FetchResult: fetched}
	if err != nil {
		s.complete(err)
		s.logSync(result, err)
		return result, err
	}

	books := make([]entities.Book, 0, len(fetched.Snapshots))
	for _, snapshot := range fetched.Snapshots {
		books = append(books, s.converter.ToBook(snapshot))
	}

	if len(books) > 0 {
		result.Export, err = s.exporter.Export(books)
		if err != nil {
			err = fmt.Errorf("failed to export: %w", err)
		}
		if s.auditor != nil {
			s.auditor.LogExport(runID, fmt.Sprintf("Exported %d books with %d highlights",
				result.Export.BooksProcessed, result.Export.HighlightsProcessed), err)
		}
	}

	s.complete(err)
	s.logSync(result, err)
	if err != nil {
		return result, err
	}

	log.Printf("WeRead sync: run %s finished: %d books, %d highlights, %d failed",
		runID, result.Export.BooksProcessed, result.Export.HighlightsProcessed, len(result.Failures))
	return result, nil
}

func (s *WeReadSyncService) fetch(ctx context.Context, runID string, opts SyncOptions) (FetchResult, error) {
	result := FetchResult{RunID: runID}

	client, source, err := s.open(ctx)
	if s.auditor != nil {
		s.auditor.LogCredential(runID, source, err)
	}
	if err != nil {
		return result, err
	}
	result.Source = source

	notebooks, err := client.Notebooks(ctx)
	if err != nil {
		return result, fmt.Errorf("failed to list notebooks: %w", err)
	}

	selected := selectNotebooks(notebooks, opts)
	log.Printf("WeRead sync: run %s: %d notebooks, %d selected", runID, len(notebooks), len(selected))

	if s.progress != nil {
		if err := s.progress.StartSync(runID, len(selected)); err != nil {
			log.Printf("WeRead sync: failed to record progress: %v", err)
		}
	}

	for _, notebook := range selected {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		snapshot, err := s.fetchBook(ctx, client, notebook, opts)
		if err != nil {
			if weread.IsCredentialExpired(err) {
				return result, err
			}
			if ctx.Err() != nil {
				return result, ctx.Err()
			}
			log.Printf("WeRead sync: skipping %q (%s): %v", notebook.Book.Title, notebook.BookID, err)
			result.Failures = append(result.Failures, BookFailure{
				BookID: notebook.BookID,
				Title:  notebook.Book.Title,
				Err:    err,
			})
		} else {
			result.Snapshots = append(result.Snapshots, snapshot)
			s.dump(runID, snapshot)
		}

		if s.auditor != nil {
			s.auditor.LogBookSync(runID, notebook.BookID, notebook.Book.Title, len(snapshot.Bookmarks)+len(snapshot.Reviews), err)
		}
		if s.progress != nil {
			if perr := s.progress.BookDone(notebook.BookID, notebook.Book.Title, err != nil); perr != nil {
				log.Printf("WeRead sync: failed to record progress: %v", perr)
			}
		}
	}

	return result, nil
}

// fetchBook calls the per-book endpoints in their fixed order.
func (s *WeReadSyncService) fetchBook(ctx context.Context, client WeReadAPI, notebook weread.Notebook, opts SyncOptions) (BookSnapshot, error) {
	snapshot := BookSnapshot{Notebook: notebook}
	bookID := snapshot.BookID()

	info, err := client.BookInfo(ctx, bookID)
	if err != nil {
		return snapshot, fmt.Errorf("book info: %w", err)
	}
	snapshot.Info = info

	snapshot.Bookmarks, err = client.Bookmarks(ctx, bookID)
	if err != nil {
		return snapshot, fmt.Errorf("bookmarks: %w", err)
	}

	snapshot.Chapters, err = client.ChapterInfos(ctx, bookID)
	if err != nil {
		return snapshot, fmt.Errorf("chapter infos: %w", err)
	}

	snapshot.Reviews, err = client.Reviews(ctx, bookID)
	if err != nil {
		return snapshot, fmt.Errorf("reviews: %w", err)
	}

	if !opts.SkipProgress {
		snapshot.Progress, err = client.ReadProgress(ctx, bookID)
		if err != nil {
			return snapshot, fmt.Errorf("read progress: %w", err)
		}
	}

	return snapshot, nil
}

func (s *WeReadSyncService) dump(runID string, snapshot BookSnapshot) {
	if s.dumper == nil {
		return
	}
	if _, err := s.dumper.SaveRunJSON(runID, snapshot.BookID(), snapshot); err != nil {
		log.Printf("WeRead sync: failed to dump snapshot for %s: %v", snapshot.BookID(), err)
	}
}

func (s *WeReadSyncService) complete(err error) {
	if s.progress == nil {
		return
	}
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	if cerr := s.progress.CompleteSync(err == nil, msg); cerr != nil {
		log.Printf("WeRead sync: failed to record completion: %v", cerr)
	}
}

func (s *WeReadSyncService) logSync(result SyncResult, err error) {
	if s.auditor == nil {
		return
	}
	stats := audit.SyncStats{
		Books:      len(result.Snapshots) + len(result.Failures),
		Succeeded:  len(result.Snapshots),
		Failed:     len(result.Failures),
		Highlights: result.Export.HighlightsProcessed,
	}
	description := fmt.Sprintf("Synced %d of %d WeRead books", stats.Succeeded, stats.Books)
	s.auditor.LogSync(result.RunID, description, stats, err)
}

// selectNotebooks applies the book id filter and the limit, keeping notebook order.
func selectNotebooks(notebooks []weread.Notebook, opts SyncOptions) []weread.Notebook {
	var wanted map[string]bool
	if len(opts.BookIDs) > 0 {
		wanted = make(map[string]bool, len(opts.BookIDs))
		for _, id := range opts.BookIDs {
			wanted[id] = true
		}
	}

	selected := make([]weread.Notebook, 0, len(notebooks))
	for _, nb := range notebooks {
		if wanted != nil && !wanted[nb.BookID] {
			continue
		}
		delete(wanted, nb.BookID)
		selected = append(selected, nb)
		if opts.Limit > 0 && len(selected) == opts.Limit {
			break
		}
	}
	for id := range wanted {
		log.Printf("WeRead sync: book %s has no notebook entry, skipping", id)
	}
	return selected
}
