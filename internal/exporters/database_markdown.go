package exporters

import (
	"fmt"
	"log"

	"github.com/mrlokans/weread-sync/internal/database"
	"github.com/mrlokans/weread-sync/internal/entities"
)

// DatabaseMarkdownExporter saves books to the database and, when an output
// directory is configured, also writes them as markdown.
type DatabaseMarkdownExporter struct {
	db               *database.Database
	markdownExporter *MarkdownExporter
}

func NewDatabaseMarkdownExporter(db *database.Database, outputDir string) *DatabaseMarkdownExporter {
	exporter := &DatabaseMarkdownExporter{db: db}
	if outputDir != "" {
		exporter.markdownExporter = NewMarkdownExporter(outputDir)
	}
	return exporter
}

func (exporter *DatabaseMarkdownExporter) Export(books []entities.Book) (ExportResult, error) {
	result := ExportResult{}

	// First, save all books to the database
	saved := make([]entities.Book, 0, len(books))
	for i := range books {
		book := &books[i]
		err := exporter.db.SaveBook(book)
		if err != nil {
			log.Printf("Failed to save book '%s' by %s to database: %v", book.Title, book.Author, err)
			result.BooksFailed++
			result.HighlightsFailed += len(book.Highlights)
			continue
		}
		result.BooksProcessed++
		result.HighlightsProcessed += len(book.Highlights)
		log.Printf("Saved book '%s' by %s with ID %d", book.Title, book.Author, book.ID)

		// Render what is stored, so notes from earlier runs are kept
		stored, err := exporter.db.GetBookByID(book.ID)
		if err != nil {
			stored = book
		}
		saved = append(saved, *stored)
	}

	if exporter.markdownExporter == nil || len(saved) == 0 {
		return result, nil
	}

	markdownResult, err := exporter.markdownExporter.Export(saved)
	if err != nil {
		return result, fmt.Errorf("failed to export to markdown: %w", err)
	}
	result.BooksFailed += markdownResult.BooksFailed
	result.HighlightsFailed += markdownResult.HighlightsFailed

	log.Printf("Export completed: %d books processed, %d highlights processed, %d books failed, %d highlights failed",
		result.BooksProcessed, result.HighlightsProcessed, result.BooksFailed, result.HighlightsFailed)

	return result, nil
}

// GetAllBooks retrieves all books from the database.
func (exporter *DatabaseMarkdownExporter) GetAllBooks() ([]entities.Book, error) {
	return exporter.db.GetAllBooks()
}

// GetBookByExternalID retrieves a book by its WeRead id.
func (exporter *DatabaseMarkdownExporter) GetBookByExternalID(externalID string) (*entities.Book, error) {
	return exporter.db.GetBookByExternalID(externalID)
}

// GetBookByID retrieves a book by its ID from the database.
func (exporter *DatabaseMarkdownExporter) GetBookByID(id uint) (*entities.Book, error) {
	return exporter.db.GetBookByID(id)
}

// SearchBooks searches books by title or author (case-insensitive partial match).
func (exporter *DatabaseMarkdownExporter) SearchBooks(query string) ([]entities.Book, error) {
	return exporter.db.SearchBooks(query)
}

// Compile-time interface implementation checks
var _ BookReader = (*DatabaseMarkdownExporter)(nil)
var _ BookExporter = (*DatabaseMarkdownExporter)(nil)
