package database

import (
	"errors"
	"fmt"
	"log"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/weread-sync/internal/entities"
)

var defaultSources = []entities.Source{
	{Name: entities.SourceWeRead, DisplayName: "WeRead (微信读书)"},
}

type Database struct {
	DB *gorm.DB
}

func NewDatabase(dbPath string) (*Database, error) {
	return open(dbPath, logger.Warn)
}

func open(dbPath string, level logger.LogLevel) (*Database, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(level),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Auto-migrate all entities
	err = db.AutoMigrate(
		&entities.Source{},
		&entities.Book{},
		&entities.Chapter{},
		&entities.Highlight{},
		&entities.Setting{},
		&entities.AuditEvent{},
		&entities.SyncProgress{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	database := &Database{DB: db}

	if err := database.seedSources(); err != nil {
		return nil, fmt.Errorf("failed to seed sources: %w", err)
	}

	log.Printf("Database initialized successfully at %s", dbPath)

	return database, nil
}

func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (d *Database) seedSources() error {
	for _, source := range defaultSources {
		var existing entities.Source
		result := d.DB.Where("name = ?", source.Name).First(&existing)
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			if err := d.DB.Create(&source).Error; err != nil {
				return fmt.Errorf("failed to create source %s: %w", source.Name, err)
			}
			log.Printf("Created source: %s", source.DisplayName)
		}
	}
	return nil
}

func (d *Database) GetSourceByName(name string) (*entities.Source, error) {
	var source entities.Source
	err := d.DB.Where("name = ?", name).First(&source).Error
	if err != nil {
		return nil, err
	}
	return &source, nil
}

// SaveBook upserts a book with its chapters and highlights.
//
// Books match on (source, external id) and fall back to title + author.
// Highlights match on external id and fall back to text + location + timestamp.
// Chapters match on chapter uid. Nothing already stored is removed.
func (d *Database) SaveBook(book *entities.Book) error {
	originalSource := book.Source
	if book.SourceID == 0 && book.Source.Name != "" {
		source, err := d.GetSourceByName(book.Source.Name)
		if err == nil && source != nil {
			book.SourceID = source.ID
			originalSource = *source
		}
	}

	for i := range book.Highlights {
		if book.Highlights[i].SourceID == 0 {
			book.Highlights[i].SourceID = book.SourceID
		}
	}

	existing, err := d.findExistingBook(book)

	var saveErr error
	switch {
	case err == nil:
		book.ID = existing.ID
		book.CreatedAt = existing.CreatedAt
		mergeChapters(book, existing.Chapters)
		mergeHighlights(book, existing.Highlights)

		// Use Omit to prevent GORM from upserting Source associations
		saveErr = d.DB.Session(&gorm.Session{FullSaveAssociations: true}).
			Omit("Source", "Highlights.Source", "Highlights.Book").Save(book).Error
	case errors.Is(err, gorm.ErrRecordNotFound):
		saveErr = d.DB.Omit("Source", "Highlights.Source", "Highlights.Book").Create(book).Error
	default:
		saveErr = err
	}

	// Restore the source info for callers
	book.Source = originalSource

	return saveErr
}

func (d *Database) findExistingBook(book *entities.Book) (*entities.Book, error) {
	var existing entities.Book
	query := d.DB.Preload("Highlights").Preload("Chapters")
	if book.ExternalID != "" {
		// A book stored before it had an external id still matches by title and author
		query = query.Where("source_id = ? AND (external_id = ? OR (external_id = '' AND title = ? AND author = ?))",
			book.SourceID, book.ExternalID, book.Title, book.Author)
	} else {
		query = query.Where("title = ? AND author = ?", book.Title, book.Author)
	}
	if err := query.First(&existing).Error; err != nil {
		return nil, err
	}
	return &existing, nil
}

func highlightKey(h entities.Highlight) string {
	if h.ExternalID != "" {
		return "ext|" + h.ExternalID
	}
	return fmt.Sprintf("%s|%d|%s", h.Text, h.LocationValue, h.HighlightedAt.UTC().Format("2006-01-02 15:04:05"))
}

func mergeHighlights(book *entities.Book, stored []entities.Highlight) {
	existing := make(map[string]entities.Highlight, len(stored))
	for _, h := range stored {
		existing[highlightKey(h)] = h
	}

	merged := make([]entities.Highlight, 0, len(book.Highlights))
	for _, h := range book.Highlights {
		if prev, ok := existing[highlightKey(h)]; ok {
			h.ID = prev.ID
			h.CreatedAt = prev.CreatedAt
		}
		h.BookID = book.ID
		merged = append(merged, h)
	}
	book.Highlights = merged
}

func mergeChapters(book *entities.Book, stored []entities.Chapter) {
	existing := make(map[int]entities.Chapter, len(stored))
	for _, c := range stored {
		existing[c.ChapterUID] = c
	}

	for i := range book.Chapters {
		if prev, ok := existing[book.Chapters[i].ChapterUID]; ok {
			book.Chapters[i].ID = prev.ID
			book.Chapters[i].CreatedAt = prev.CreatedAt
		}
		book.Chapters[i].BookID = book.ID
	}
}

func highlightOrder(db *gorm.DB) *gorm.DB {
	return db.Order("chapter_idx ASC, location_value ASC, highlighted_at ASC")
}

func chapterOrder(db *gorm.DB) *gorm.DB {
	return db.Order("chapter_idx ASC")
}

func (d *Database) preloadBook() *gorm.DB {
	return d.DB.Preload("Highlights", highlightOrder).Preload("Chapters", chapterOrder).Preload("Source")
}

func (d *Database) GetBookByExternalID(externalID string) (*entities.Book, error) {
	var book entities.Book
	err := d.preloadBook().Where("external_id = ?", externalID).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (d *Database) GetBookByTitleAndAuthor(title, author string) (*entities.Book, error) {
	var book entities.Book
	err := d.preloadBook().Where("title = ? AND author = ?", title, author).First(&book).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (d *Database) GetBookByID(id uint) (*entities.Book, error) {
	var book entities.Book
	err := d.preloadBook().First(&book, id).Error
	if err != nil {
		return nil, err
	}
	return &book, nil
}

func (d *Database) GetAllBooks() ([]entities.Book, error) {
	var books []entities.Book
	err := d.preloadBook().Order("last_read_at DESC, title ASC").Find(&books).Error
	return books, err
}

func (d *Database) SearchBooks(query string) ([]entities.Book, error) {
	var books []entities.Book
	searchPattern := "%" + query + "%"
	err := d.preloadBook().
		Where("LOWER(title) LIKE LOWER(?) OR LOWER(author) LIKE LOWER(?)", searchPattern, searchPattern).
		Find(&books).Error
	return books, err
}

func (d *Database) DeleteBook(id uint) error {
	return d.DB.Delete(&entities.Book{}, id).Error
}

func (d *Database) GetHighlightsForBook(bookID uint) ([]entities.Highlight, error) {
	var highlights []entities.Highlight
	err := highlightOrder(d.DB.Where("book_id = ?", bookID)).Find(&highlights).Error
	return highlights, err
}

func (d *Database) GetStats() (totalBooks int64, totalHighlights int64, err error) {
	err = d.DB.Model(&entities.Book{}).Count(&totalBooks).Error
	if err != nil {
		return
	}
	err = d.DB.Model(&entities.Highlight{}).Count(&totalHighlights).Error
	return
}

func (d *Database) GetSetting(key string) (*entities.Setting, error) {
	var setting entities.Setting
	err := d.DB.Where("key = ?", key).First(&setting).Error
	if err != nil {
		return nil, err
	}
	return &setting, nil
}

func (d *Database) SetSetting(key, value string) error {
	var setting entities.Setting
	result := d.DB.Where("key = ?", key).First(&setting)

	if errors.Is(result.Error, gorm.ErrRecordNotFound) {
		setting = entities.Setting{
			Key:   key,
			Value: value,
		}
		return d.DB.Create(&setting).Error
	} else if result.Error != nil {
		return result.Error
	}

	setting.Value = value
	return d.DB.Save(&setting).Error
}

func (d *Database) DeleteSetting(key string) error {
	return d.DB.Where("key = ?", key).Delete(&entities.Setting{}).Error
}
