package database

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/mrlokans/weread-sync/internal/entities"
)

// setupTestDB creates a fresh test database
func setupTestDB(t *testing.T) *Database {
	t.Helper()
	db, err := open(filepath.Join(t.TempDir(), "test.db"), logger.Silent)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func wereadBook() *entities.Book {
	highlighted := time.Date(2023, 5, 11, 10, 0, 0, 0, time.UTC)
	return &entities.Book{
		Title:      "三体",
		Author:     "刘慈欣",
		ExternalID: "695233",
		Source:     entities.Source{Name: entities.SourceWeRead},
		Chapters: []entities.Chapter{
			{ChapterUID: 10, ChapterIdx: 1, Title: "科学边界", Level: 1},
			{ChapterUID: 1000000, ChapterIdx: 1000000, Title: "点评", Level: 1},
		},
		Highlights: []entities.Highlight{
			{
				Kind:          entities.HighlightKindBookmark,
				Text:          "给岁月以文明",
				ChapterUID:    10,
				ChapterIdx:    1,
				LocationValue: 120,
				HighlightedAt: highlighted,
				ExternalID:    "695233_10_120-126",
			},
		},
	}
}

func TestNewDatabaseSeedsWeReadSource(t *testing.T) {
	db := setupTestDB(t)

	source, err := db.GetSourceByName(entities.SourceWeRead)
	require.NoError(t, err)
	assert.Equal(t, entities.SourceWeRead, source.Name)

	// Seeding twice must not duplicate the source
	require.NoError(t, db.seedSources())
	var count int64
	require.NoError(t, db.DB.Model(&entities.Source{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestSaveBook(t *testing.T) {
	t.Run("creates book with chapters and highlights", func(t *testing.T) {
		db := setupTestDB(t)
		book := wereadBook()

		require.NoError(t, db.SaveBook(book))
		assert.NotZero(t, book.ID)
		assert.NotZero(t, book.SourceID)
		assert.Equal(t, entities.SourceWeRead, book.Source.Name)
		assert.Equal(t, book.ID, book.Highlights[0].BookID)
		assert.Equal(t, book.SourceID, book.Highlights[0].SourceID)

		stored, err := db.GetBookByExternalID("695233")
		require.NoError(t, err)
		assert.Equal(t, "三体", stored.Title)
		require.Len(t, stored.Chapters, 2)
		assert.Equal(t, "科学边界", stored.Chapters[0].Title)
		assert.Equal(t, 1000000, stored.Chapters[1].ChapterUID)
		require.Len(t, stored.Highlights, 1)
		assert.Equal(t, "给岁月以文明", stored.Highlights[0].Text)
	})

	t.Run("resync updates in place", func(t *testing.T) {
		db := setupTestDB(t)
		require.NoError(t, db.SaveBook(wereadBook()))

		again := wereadBook()
		again.Progress = 80
		again.Highlights[0].Note = "updated"
		again.Chapters[0].Title = "科学边界（修订）"
		again.Highlights = append(again.Highlights, entities.Highlight{
			Kind:       entities.HighlightKindReview,
			Text:       "一本好书",
			ChapterUID: 1000000,
			ChapterIdx: 1000000,
			ExternalID: "review-1",
		})
		require.NoError(t, db.SaveBook(again))

		var books int64
		require.NoError(t, db.DB.Model(&entities.Book{}).Count(&books).Error)
		assert.Equal(t, int64(1), books)

		stored, err := db.GetBookByExternalID("695233")
		require.NoError(t, err)
		assert.Equal(t, 80, stored.Progress)
		require.Len(t, stored.Chapters, 2)
		assert.Equal(t, "科学边界（修订）", stored.Chapters[0].Title)
		require.Len(t, stored.Highlights, 2)
		assert.Equal(t, "updated", stored.Highlights[0].Note)
		assert.Equal(t, "review-1", stored.Highlights[1].ExternalID)
	})

	t.Run("highlights without external id dedupe by text and location", func(t *testing.T) {
		db := setupTestDB(t)
		book := wereadBook()
		book.Highlights[0].ExternalID = ""
		require.NoError(t, db.SaveBook(book))

		again := wereadBook()
		again.Highlights[0].ExternalID = ""
		require.NoError(t, db.SaveBook(again))

		highlights, err := db.GetHighlightsForBook(book.ID)
		require.NoError(t, err)
		assert.Len(t, highlights, 1)
	})

	t.Run("book without external id matches by title and author", func(t *testing.T) {
		db := setupTestDB(t)
		legacy := wereadBook()
		legacy.ExternalID = ""
		require.NoError(t, db.SaveBook(legacy))

		require.NoError(t, db.SaveBook(wereadBook()))

		books, err := db.GetAllBooks()
		require.NoError(t, err)
		require.Len(t, books, 1)
		assert.Equal(t, "695233", books[0].ExternalID)
	})

	t.Run("different external ids stay separate", func(t *testing.T) {
		db := setupTestDB(t)
		require.NoError(t, db.SaveBook(wereadBook()))

		other := wereadBook()
		other.ExternalID = "CB_1"
		other.Highlights[0].ExternalID = "CB_1_10_120-126"
		require.NoError(t, db.SaveBook(other))

		totalBooks, totalHighlights, err := db.GetStats()
		require.NoError(t, err)
		assert.Equal(t, int64(2), totalBooks)
		assert.Equal(t, int64(2), totalHighlights)
	})
}

func TestGetBookLookups(t *testing.T) {
	db := setupTestDB(t)
	book := wereadBook()
	require.NoError(t, db.SaveBook(book))

	byID, err := db.GetBookByID(book.ID)
	require.NoError(t, err)
	assert.Equal(t, "695233", byID.ExternalID)
	assert.Equal(t, entities.SourceWeRead, byID.Source.Name)

	byTitle, err := db.GetBookByTitleAndAuthor("三体", "刘慈欣")
	require.NoError(t, err)
	assert.Equal(t, book.ID, byTitle.ID)

	found, err := db.SearchBooks("刘慈")
	require.NoError(t, err)
	assert.Len(t, found, 1)

	_, err = db.GetBookByExternalID("missing")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, db.DeleteBook(book.ID))
	_, err = db.GetBookByID(book.ID)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestSettings(t *testing.T) {
	db := setupTestDB(t)

	_, err := db.GetSetting(entities.SettingKeyWeReadSyncSchedule)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	require.NoError(t, db.SetSetting(entities.SettingKeyWeReadSyncSchedule, "0 * * * *"))
	require.NoError(t, db.SetSetting(entities.SettingKeyWeReadSyncSchedule, "30 * * * *"))

	setting, err := db.GetSetting(entities.SettingKeyWeReadSyncSchedule)
	require.NoError(t, err)
	assert.Equal(t, "30 * * * *", setting.Value)

	require.NoError(t, db.DeleteSetting(entities.SettingKeyWeReadSyncSchedule))
	_, err = db.GetSetting(entities.SettingKeyWeReadSyncSchedule)
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}
