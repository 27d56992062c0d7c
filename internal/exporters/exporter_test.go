package exporters

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/mrlokans/weread-sync/internal/database"
	"github.com/mrlokans/weread-sync/internal/entities"
)

func testBook() *entities.Book {
	lastRead := time.Date(2023, 5, 11, 0, 0, 0, 0, time.UTC)
	return &entities.Book{
		Title:      "三体",
		Author:     "刘慈欣",
		ExternalID: "695233",
		ReaderURL:  "https://weread.qq.com/web/reader/abc",
		Progress:   87,
		LastReadAt: &lastRead,
		Source:     entities.Source{Name: entities.SourceWeRead},
		Chapters: []entities.Chapter{
			{ChapterUID: 1000000, ChapterIdx: 1000000, Title: "点评", Level: 1},
			{ChapterUID: 20, ChapterIdx: 2, Title: "第二章", Level: 1},
			{ChapterUID: 10, ChapterIdx: 1, Title: "第一章", Level: 1},
			{ChapterUID: 11, ChapterIdx: 1, Title: "空的小节", Level: 2},
		},
		Highlights: []entities.Highlight{
			{Text: "second chapter", ChapterUID: 20, LocationValue: 5},
			{Text: "later in first", ChapterUID: 10, LocationValue: 50, Color: "#FFFF0000"},
			{Text: "early in first", ChapterUID: 10, LocationValue: 1, Note: "my note"},
			{Text: "", Note: "whole book review", ChapterUID: 1000000, Style: entities.HighlightStyleNoteOnly},
			{Text: "orphan", ChapterUID: 99, Chapter: "Unlisted", ChapterIdx: 3},
		},
	}
}

// --- GenerateMarkdown Tests ---

func TestGenerateMarkdown(t *testing.T) {
	t.Run("frontmatter is valid yaml", func(t *testing.T) {
		book := testBook()
		book.Title = `Title: with "quotes"`

		markdown := GenerateMarkdown(book)
		require.True(t, strings.HasPrefix(markdown, "---\n"))

		end := strings.Index(markdown[4:], "---\n")
		require.Positive(t, end)

		var fm map[string]any
		require.NoError(t, yaml.Unmarshal([]byte(markdown[4:4+end]), &fm))
		assert.Equal(t, `Title: with "quotes"`, fm["title"])
		assert.Equal(t, "刘慈欣", fm["author"])
		assert.Equal(t, "weread", fm["content_source"])
		assert.Equal(t, "695233", fm["weread_id"])
		assert.Equal(t, "https://weread.qq.com/web/reader/abc", fm["reader_url"])
		assert.Equal(t, 87, fm["progress"])
		assert.Equal(t, "2023-05-11", fm["last_read_at"])
		assert.Equal(t, []any{"highlights", "books", "weread"}, fm["tags"])
	})

	t.Run("uses unknown source when not specified", func(t *testing.T) {
		markdown := GenerateMarkdown(&entities.Book{Title: "No Source", Author: "A"})

		assert.Contains(t, markdown, "content_source: unknown")
		assert.NotContains(t, markdown, "Open in WeRead")
	})

	t.Run("groups highlights by chapter in chapter order", func(t *testing.T) {
		markdown := GenerateMarkdown(testBook())

		order := []string{"### 第一章", "early in first", "later in first", "### 第二章", "second chapter", "### 点评", "whole book review", "### Unlisted", "orphan"}
		last := -1
		for _, marker := range order {
			pos := strings.Index(markdown, marker)
			require.NotEqual(t, -1, pos, "missing %q", marker)
			assert.Greater(t, pos, last, "%q out of order", marker)
			last = pos
		}
		assert.NotContains(t, markdown, "空的小节")
	})

	t.Run("renders callouts and notes", func(t *testing.T) {
		markdown := GenerateMarkdown(testBook())

		assert.Contains(t, markdown, "> [!warning]\n> later in first\n")
		assert.Contains(t, markdown, "> [!quote]\n> early in first\n")
		assert.Contains(t, markdown, "**Note:** my note")
		assert.Contains(t, markdown, "**Note:** whole book review")
		assert.Contains(t, markdown, "[Open in WeRead](https://weread.qq.com/web/reader/abc)")
	})

	t.Run("multi-line highlights stay in the callout", func(t *testing.T) {
		book := &entities.Book{Title: "T", Highlights: []entities.Highlight{
			{Text: "line one\nline two", HighlightedAt: time.Date(2024, 6, 15, 14, 30, 0, 0, time.UTC)},
		}}

		markdown := GenerateMarkdown(book)
		assert.Contains(t, markdown, "> line one\n> line two\n> *2024-06-15 14:30*\n")
	})
}

func TestHeadingDepth(t *testing.T) {
	assert.Equal(t, 3, headingDepth(0))
	assert.Equal(t, 3, headingDepth(1))
	assert.Equal(t, 4, headingDepth(2))
	assert.Equal(t, 6, headingDepth(9))
}

// --- MarkdownExporter Tests ---

func TestMarkdownExporter(t *testing.T) {
	t.Run("writes one file per book under the source folder", func(t *testing.T) {
		dir := t.TempDir()
		exporter := NewMarkdownExporter(dir)

		result, err := exporter.Export([]entities.Book{*testBook()})
		require.NoError(t, err)
		assert.Equal(t, 1, result.BooksProcessed)
		assert.Equal(t, 5, result.HighlightsProcessed)

		path := filepath.Join(dir, "weread", "三体 - 刘慈欣.md")
		assert.Equal(t, path, exporter.BookPath(testBook()))
		content, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(content), "### 第一章")
	})

	t.Run("creates missing output directory", func(t *testing.T) {
		dir := filepath.Join(t.TempDir(), "nested", "out")
		result, err := NewMarkdownExporter(dir).Export([]entities.Book{{Title: "T", Author: "A"}})
		require.NoError(t, err)
		assert.Equal(t, 1, result.BooksProcessed)
		assert.FileExists(t, filepath.Join(dir, "unknown", "T - A.md"))
	})

	t.Run("result resets between exports", func(t *testing.T) {
		exporter := NewMarkdownExporter(t.TempDir())
		_, err := exporter.Export([]entities.Book{{Title: "One"}})
		require.NoError(t, err)
		result, err := exporter.Export([]entities.Book{{Title: "Two"}})
		require.NoError(t, err)
		assert.Equal(t, 1, result.BooksProcessed)
	})
}

// --- DatabaseMarkdownExporter Tests ---

func setupTestDatabase(t *testing.T) *database.Database {
	t.Helper()
	db, err := database.NewDatabase(filepath.Join(t.TempDir(), "exporter.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestDatabaseMarkdownExporter(t *testing.T) {
	t.Run("database only without output dir", func(t *testing.T) {
		db := setupTestDatabase(t)
		exporter := NewDatabaseMarkdownExporter(db, "")
		assert.Nil(t, exporter.markdownExporter)

		result, err := exporter.Export([]entities.Book{*testBook()})
		require.NoError(t, err)
		assert.Equal(t, 1, result.BooksProcessed)
		assert.Equal(t, 5, result.HighlightsProcessed)

		stored, err := exporter.GetBookByExternalID("695233")
		require.NoError(t, err)
		assert.Len(t, stored.Highlights, 5)
	})

	t.Run("database and markdown", func(t *testing.T) {
		db := setupTestDatabase(t)
		dir := t.TempDir()
		exporter := NewDatabaseMarkdownExporter(db, dir)

		result, err := exporter.Export([]entities.Book{*testBook()})
		require.NoError(t, err)
		assert.Equal(t, 1, result.BooksProcessed)
		assert.Zero(t, result.BooksFailed)
		assert.FileExists(t, filepath.Join(dir, "weread", "三体 - 刘慈欣.md"))
	})

	t.Run("reader methods", func(t *testing.T) {
		db := setupTestDatabase(t)
		exporter := NewDatabaseMarkdownExporter(db, "")
		_, err := exporter.Export([]entities.Book{*testBook()})
		require.NoError(t, err)

		books, err := exporter.GetAllBooks()
		require.NoError(t, err)
		require.Len(t, books, 1)

		byID, err := exporter.GetBookByID(books[0].ID)
		require.NoError(t, err)
		assert.Equal(t, "三体", byID.Title)

		found, err := exporter.SearchBooks("三")
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})
}
