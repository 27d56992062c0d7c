package http

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/mrlokans/weread-sync/internal/entities"
	"github.com/mrlokans/weread-sync/internal/exporters"
	"github.com/mrlokans/weread-sync/internal/utils"
)

// BookStore is the read and delete side of the synced library.
type BookStore interface {
	exporters.BookReader
	GetBookByTitleAndAuthor(title, author string) (*entities.Book, error)
	GetHighlightsForBook(bookID uint) ([]entities.Highlight, error)
	DeleteBook(id uint) error
	GetStats() (totalBooks int64, totalHighlights int64, err error)
}

type BooksController struct {
	store BookStore
}

func NewBooksController(store BookStore) *BooksController {
	return &BooksController{
		store: store,
	}
}

// GetAllBooks lists books, optionally filtered by ?q= on title or author.
func (controller *BooksController) GetAllBooks(c *gin.Context) {
	var books []entities.Book
	var err error
	if q := c.Query("q"); q != "" {
		books, err = controller.store.SearchBooks(q)
	} else {
		books, err = controller.store.GetAllBooks()
	}
	if err != nil {
		respondInternalError(c, err, "list books")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"books": books, "count": len(books)})
}

func (controller *BooksController) GetBook(c *gin.Context) {
	book, ok := controller.loadBook(c)
	if !ok {
		return
	}
	c.IndentedJSON(http.StatusOK, book)
}

// GetBookByExternalID looks a book up by its WeRead id.
func (controller *BooksController) GetBookByExternalID(c *gin.Context) {
	book, err := controller.store.GetBookByExternalID(c.Param("bookId"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "book")
		return
	}
	if err != nil {
		respondInternalError(c, err, "get book by external id")
		return
	}
	c.IndentedJSON(http.StatusOK, book)
}

// LookupBook finds a book by exact title and author.
// GET /api/books/lookup?title=...&author=...
func (controller *BooksController) LookupBook(c *gin.Context) {
	title := c.Query("title")
	if title == "" {
		respondBadRequest(c, "title is required")
		return
	}
	book, err := controller.store.GetBookByTitleAndAuthor(title, c.Query("author"))
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "book")
		return
	}
	if err != nil {
		respondInternalError(c, err, "lookup book")
		return
	}
	c.IndentedJSON(http.StatusOK, book)
}

func (controller *BooksController) GetBookHighlights(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	highlights, err := controller.store.GetHighlightsForBook(id)
	if err != nil {
		respondInternalError(c, err, "get highlights")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{"highlights": highlights, "count": len(highlights)})
}

// DownloadMarkdown renders a stored book as markdown.
func (controller *BooksController) DownloadMarkdown(c *gin.Context) {
	book, ok := controller.loadBook(c)
	if !ok {
		return
	}
	filename := utils.BookFilename(book.Title, book.Author) + ".md"
	c.Header("Content-Disposition", `attachment; filename*=UTF-8''`+url.PathEscape(filename))
	c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(exporters.GenerateMarkdown(book)))
}

func (controller *BooksController) DeleteBook(c *gin.Context) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return
	}
	if _, ok := controller.loadBook(c); !ok {
		return
	}
	if err := controller.store.DeleteBook(id); err != nil {
		respondInternalError(c, err, "delete book")
		return
	}
	respondSuccess(c, "book deleted", gin.H{"id": id})
}

func (controller *BooksController) GetBookStats(c *gin.Context) {
	totalBooks, totalHighlights, err := controller.store.GetStats()
	if err != nil {
		respondInternalError(c, err, "book stats")
		return
	}
	c.IndentedJSON(http.StatusOK, gin.H{
		"total_books":      totalBooks,
		"total_highlights": totalHighlights,
	})
}

func (controller *BooksController) loadBook(c *gin.Context) (*entities.Book, bool) {
	id, ok := parseIDParam(c, "id")
	if !ok {
		return nil, false
	}
	book, err := controller.store.GetBookByID(id)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		respondNotFound(c, "book")
		return nil, false
	}
	if err != nil {
		respondInternalError(c, err, "get book")
		return nil, false
	}
	return book, true
}
