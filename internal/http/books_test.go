package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/weread-sync/internal/database"
	"github.com/mrlokans/weread-sync/internal/entities"
)

func setupBooksRouter(t *testing.T) (*database.Database, *gin.Engine) {
	t.Helper()
	db := setupTestDB(t)
	return db, NewRouter(RouterConfig{Books: db, Database: db})
}

func saveTestBook(t *testing.T, db *database.Database) *entities.Book {
	t.Helper()
	book := &entities.Book{
		Title:      "三体",
		Author:     "刘慈欣",
		ExternalID: "695233",
		ReaderURL:  "https://weread.qq.com/web/reader/abc",
		Source:     entities.Source{Name: entities.SourceWeRead},
		Chapters:   []entities.Chapter{{ChapterUID: 10, ChapterIdx: 1, Title: "第一章", Level: 1}},
		Highlights: []entities.Highlight{
			{Text: "弱小和无知不是生存的障碍，傲慢才是。", ChapterUID: 10, ChapterIdx: 1, ExternalID: "bm-1"},
			{Text: "给岁月以文明", ChapterUID: 10, ChapterIdx: 1, ExternalID: "bm-2", Note: "名句"},
		},
	}
	require.NoError(t, db.SaveBook(book))
	return book
}

func doRequest(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest(method, path, nil)
	router.ServeHTTP(w, req)
	return w
}

func TestBooksController_GetAllBooks(t *testing.T) {
	t.Run("returns empty list when no books", func(t *testing.T) {
		_, router := setupBooksRouter(t)

		w := doRequest(router, "GET", "/api/books")
		assert.Equal(t, http.StatusOK, w.Code)

		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, float64(0), response["count"])
	})

	t.Run("returns books with count", func(t *testing.T) {
		db, router := setupBooksRouter(t)
		saveTestBook(t, db)
		require.NoError(t, db.SaveBook(&entities.Book{Title: "Book 2", Author: "Author 2"}))

		w := doRequest(router, "GET", "/api/books")
		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, float64(2), response["count"])
	})

	t.Run("filters by query", func(t *testing.T) {
		db, router := setupBooksRouter(t)
		saveTestBook(t, db)
		require.NoError(t, db.SaveBook(&entities.Book{Title: "Book 2", Author: "Author 2"}))

		w := doRequest(router, "GET", "/api/books?q=author+2")
		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, float64(1), response["count"])
	})
}

func TestBooksController_GetBook(t *testing.T) {
	db, router := setupBooksRouter(t)
	book := saveTestBook(t, db)

	t.Run("by id", func(t *testing.T) {
		w := doRequest(router, "GET", fmt.Sprintf("/api/books/%d", book.ID))
		require.Equal(t, http.StatusOK, w.Code)

		var got entities.Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, "三体", got.Title)
		assert.Len(t, got.Highlights, 2)
	})

	t.Run("by WeRead id", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/weread/books/695233")
		require.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "刘慈欣")
	})

	t.Run("by title and author", func(t *testing.T) {
		w := doRequest(router, "GET", "/api/books/lookup?title="+url.QueryEscape("三体")+"&author="+url.QueryEscape("刘慈欣"))
		require.Equal(t, http.StatusOK, w.Code)

		var got entities.Book
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
		assert.Equal(t, book.ID, got.ID)

		assert.Equal(t, http.StatusNotFound,
			doRequest(router, "GET", "/api/books/lookup?title="+url.QueryEscape("三体")+"&author=someone").Code)
		assert.Equal(t, http.StatusBadRequest, doRequest(router, "GET", "/api/books/lookup").Code)
	})

	t.Run("not found", func(t *testing.T) {
		assert.Equal(t, http.StatusNotFound, doRequest(router, "GET", "/api/books/9999").Code)
		assert.Equal(t, http.StatusNotFound, doRequest(router, "GET", "/api/weread/books/nope").Code)
	})

	t.Run("invalid id", func(t *testing.T) {
		assert.Equal(t, http.StatusBadRequest, doRequest(router, "GET", "/api/books/abc").Code)
	})

	t.Run("highlights", func(t *testing.T) {
		w := doRequest(router, "GET", fmt.Sprintf("/api/books/%d/highlights", book.ID))
		var response map[string]any
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &response))
		assert.Equal(t, float64(2), response["count"])
	})
}

func TestBooksController_DownloadMarkdown(t *testing.T) {
	db, router := setupBooksRouter(t)
	book := saveTestBook(t, db)

	w := doRequest(router, "GET", fmt.Sprintf("/api/books/%d/markdown", book.ID))
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Type"), "text/markdown")
	assert.Contains(t, w.Header().Get("Content-Disposition"), "attachment")
	assert.Contains(t, w.Body.String(), "### 第一章")
	assert.Contains(t, w.Body.String(), "**Note:** 名句")
}

func TestBooksController_DeleteAndStats(t *testing.T) {
	db, router := setupBooksRouter(t)
	book := saveTestBook(t, db)

	w := doRequest(router, "GET", "/api/books/stats")
	var stats map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, float64(1), stats["total_books"])
	assert.Equal(t, float64(2), stats["total_highlights"])

	assert.Equal(t, http.StatusOK, doRequest(router, "DELETE", fmt.Sprintf("/api/books/%d", book.ID)).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(router, "GET", fmt.Sprintf("/api/books/%d", book.ID)).Code)
	assert.Equal(t, http.StatusNotFound, doRequest(router, "DELETE", fmt.Sprintf("/api/books/%d", book.ID)).Code)
}
