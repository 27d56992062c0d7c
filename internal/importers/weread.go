package importers

import (
	"strconv"
	"strings"
	"time"

	"github.com/mrlokans/weread-sync/internal/entities"
	"github.com/mrlokans/weread-sync/internal/services"
	"github.com/mrlokans/weread-sync/internal/utils"
	"github.com/mrlokans/weread-sync/internal/weread"
)

// WeRead bookmark styles.
const (
	wereadStyleHighlight  = 0 // Marker pen
	wereadStyleBackground = 1 // Background color
	wereadStyleWavy       = 2 // Wavy underline
)

// WeReadConverter turns a fetched WeRead snapshot into a book with chapters
// and highlights.
//
// A review written on a passage that is also bookmarked becomes the note of
// that highlight. Other reviews are stored as highlights of their own; reviews
// of the whole book land in the reviews chapter.
type WeReadConverter struct{}

func NewWeReadConverter() *WeReadConverter {
	return &WeReadConverter{}
}

var _ services.BookConverter = (*WeReadConverter)(nil)

func (c *WeReadConverter) ToBook(s services.BookSnapshot) entities.Book {
	bookID := s.BookID()
	book := entities.Book{
		Title:      s.Notebook.Book.Title,
		Author:     s.Notebook.Book.Author,
		CoverURL:   s.Notebook.Book.Cover,
		ExternalID: bookID,
		ReaderURL:  weread.ReaderURL(bookID),
		Source:     entities.Source{Name: entities.SourceWeRead},
	}
	applyBookInfo(&book, s.Info)
	applyProgress(&book, s.Progress)

	chapters := weread.SortedChapters(s.Chapters)
	byUID := make(map[int]weread.Chapter, len(chapters))
	for _, ch := range chapters {
		byUID[ch.ChapterUID] = ch
		book.Chapters = append(book.Chapters, entities.Chapter{
			ChapterUID:      ch.ChapterUID,
			ChapterIdx:      ch.ChapterIdx,
			Title:           ch.Title,
			Level:           ch.Level,
			RemoteUpdatedAt: unixTime(ch.UpdateTime),
		})
	}

	bookmarkAt := make(map[string]int, len(s.Bookmarks))
	for _, bm := range s.Bookmarks {
		h := entities.Highlight{
			Kind:          entities.HighlightKindBookmark,
			Text:          bm.MarkText,
			Range:         bm.Range,
			LocationValue: rangeStart(bm.Range),
			Color:         utils.ColorStyleToHexARGB(bm.ColorStyle),
			Style:         bookmarkStyle(bm.Style),
			HighlightedAt: unixTime(bm.CreateTime),
			ExternalID:    bm.BookmarkID,
		}
		placeInChapter(&h, bm.ChapterUID, bm.ChapterName, byUID)
		bookmarkAt[passageKey(bm.ChapterUID, bm.Range)] = len(book.Highlights)
		book.Highlights = append(book.Highlights, h)
	}

	for _, rv := range s.Reviews {
		if rv.Type != weread.ReviewTypeBook && rv.Range != "" {
			if i, ok := bookmarkAt[passageKey(rv.ChapterUID, rv.Range)]; ok {
				book.Highlights[i].Note = joinNotes(book.Highlights[i].Note, rv.Content)
				continue
			}
		}

		h := entities.Highlight{
			Kind:          entities.HighlightKindReview,
			Text:          rv.Abstract,
			Note:          rv.Content,
			Range:         rv.Range,
			LocationValue: rangeStart(rv.Range),
			Style:         entities.HighlightStyleHighlight,
			HighlightedAt: unixTime(rv.CreateTime),
			ExternalID:    rv.ReviewID,
		}
		if h.Text == "" {
			h.Style = entities.HighlightStyleNoteOnly
		}
		chapterUID := rv.ChapterUID
		if rv.Type == weread.ReviewTypeBook {
			chapterUID = weread.ReviewsChapterUID
		}
		placeInChapter(&h, chapterUID, rv.ChapterName, byUID)
		book.Highlights = append(book.Highlights, h)
	}

	return book
}

// ToBooks converts every snapshot, keeping their order.
func (c *WeReadConverter) ToBooks(snapshots []services.BookSnapshot) []entities.Book {
	books := make([]entities.Book, 0, len(snapshots))
	for _, s := range snapshots {
		books = append(books, c.ToBook(s))
	}
	return books
}

func applyBookInfo(book *entities.Book, info *weread.BookInfo) {
	if info == nil {
		return
	}
	if info.Title != "" {
		book.Title = info.Title
	}
	if info.Author != "" {
		book.Author = info.Author
	}
	if info.Cover != "" {
		book.CoverURL = info.Cover
	}
	book.Translator = info.Translator
	book.ISBN = info.ISBN
	book.Publisher = info.Publisher
	book.Intro = info.Intro
	book.Category = info.Category
	if book.Category == "" && len(info.Categories) > 0 {
		book.Category = info.Categories[0].Title
	}
}

func applyProgress(book *entities.Book, progress *weread.ReadProgress) {
	if progress == nil {
		return
	}
	p := progress.Book
	book.Progress = p.Progress
	book.ReadingSeconds = p.ReadingTime
	book.StartedReadingAt = optionalTime(p.StartReadingTime)
	book.FinishedAt = optionalTime(p.FinishTime)
	book.LastReadAt = optionalTime(p.UpdateTime)
}

func placeInChapter(h *entities.Highlight, chapterUID int, fallbackTitle string, chapters map[int]weread.Chapter) {
	h.ChapterUID = chapterUID
	if ch, ok := chapters[chapterUID]; ok {
		h.ChapterIdx = ch.ChapterIdx
		h.Chapter = ch.Title
		return
	}
	h.Chapter = fallbackTitle
	if chapterUID == weread.ReviewsChapterUID {
		reviews := weread.ReviewsChapter()
		h.ChapterIdx = reviews.ChapterIdx
		h.Chapter = reviews.Title
	}
}

func bookmarkStyle(style int) entities.HighlightStyle {
	switch style {
	case wereadStyleBackground, wereadStyleHighlight:
		return entities.HighlightStyleHighlight
	case wereadStyleWavy:
		return entities.HighlightStyleWavy
	default:
		return entities.HighlightStyleUnderline
	}
}

// rangeStart parses the start offset of a "start-end" range.
func rangeStart(r string) int {
	start, _, _ := strings.Cut(r, "-")
	n, err := strconv.Atoi(strings.TrimSpace(start))
	if err != nil {
		return 0
	}
	return n
}

func passageKey(chapterUID int, r string) string {
	return strconv.Itoa(chapterUID) + "|" + r
}

func joinNotes(existing, note string) string {
	switch {
	case existing == "":
		return note
	case note == "":
		return existing
	default:
		return existing + "\n\n" + note
	}
}

func unixTime(seconds int64) time.Time {
	if seconds <= 0 {
		return time.Time{}
	}
	return time.Unix(seconds, 0).UTC()
}

func optionalTime(seconds int64) *time.Time {
	if seconds <= 0 {
		return nil
	}
	t := time.Unix(seconds, 0).UTC()
	return &t
}
