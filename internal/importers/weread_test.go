package importers

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrlokans/weread-sync/internal/entities"
	"github.com/mrlokans/weread-sync/internal/services"
	"github.com/mrlokans/weread-sync/internal/weread"
)

func sampleSnapshot() services.BookSnapshot {
	return services.BookSnapshot{
		Notebook: weread.Notebook{
			BookID: "695233",
			Book:   weread.NotebookBook{BookID: "695233", Title: "三体", Author: "刘慈欣", Cover: "https://cdn/notebook.jpg"},
		},
		Info: &weread.BookInfo{
			BookID:     "695233",
			Title:      "三体（全集）",
			Author:     "刘慈欣",
			Cover:      "https://cdn/info.jpg",
			ISBN:       "9787536692930",
			Publisher:  "重庆出版社",
			Categories: []weread.Category{{CategoryID: 1, Title: "科幻"}},
		},
		Chapters: map[string]weread.Chapter{
			"10":      {ChapterUID: 10, ChapterIdx: 2, Title: "科学边界", Level: 1, UpdateTime: 1600000000},
			"1000000": weread.ReviewsChapter(),
		},
		Bookmarks: []weread.Bookmark{
			{BookmarkID: "695233_10_120-126", ChapterUID: 10, MarkText: "给岁月以文明", Range: "120-126", Style: 2, ColorStyle: 5, CreateTime: 1683825006},
			{BookmarkID: "695233_11_5-9", ChapterUID: 11, ChapterName: "未知章节", MarkText: "弱小和无知", Range: "5-9", Style: 0},
		},
		Reviews: []weread.Review{
			{ReviewID: "r1", ChapterUID: 10, Range: "120-126", Abstract: "给岁月以文明", Content: "名句"},
			{ReviewID: "r2", ChapterUID: 10, Range: "300-310", Abstract: "另一段", Content: "单独的想法", CreateTime: 1683825100},
			{ReviewID: "r3", ChapterUID: weread.ReviewsChapterUID, Type: weread.ReviewTypeBook, Content: "一本好书"},
		},
		Progress: &weread.ReadProgress{
			BookID: "695233",
			Book: weread.ProgressDetail{
				Progress:         87,
				ReadingTime:      3600,
				StartReadingTime: 1600000000,
				UpdateTime:       1683825006,
			},
		},
	}
}

func TestWeReadConverter_Book(t *testing.T) {
	book := NewWeReadConverter().ToBook(sampleSnapshot())

	assert.Equal(t, "三体（全集）", book.Title)
	assert.Equal(t, "刘慈欣", book.Author)
	assert.Equal(t, "https://cdn/info.jpg", book.CoverURL)
	assert.Equal(t, "9787536692930", book.ISBN)
	assert.Equal(t, "科幻", book.Category)
	assert.Equal(t, "695233", book.ExternalID)
	assert.Equal(t, weread.ReaderURL("695233"), book.ReaderURL)
	assert.Equal(t, entities.SourceWeRead, book.Source.Name)

	assert.Equal(t, 87, book.Progress)
	assert.Equal(t, int64(3600), book.ReadingSeconds)
	require.NotNil(t, book.StartedReadingAt)
	assert.Equal(t, time.Unix(1600000000, 0).UTC(), *book.StartedReadingAt)
	assert.Nil(t, book.FinishedAt)
	require.NotNil(t, book.LastReadAt)
}

func TestWeReadConverter_Chapters(t *testing.T) {
	book := NewWeReadConverter().ToBook(sampleSnapshot())

	require.Len(t, book.Chapters, 2)
	assert.Equal(t, "科学边界", book.Chapters[0].Title)
	assert.Equal(t, time.Unix(1600000000, 0).UTC(), book.Chapters[0].RemoteUpdatedAt)
	assert.Equal(t, weread.ReviewsChapterUID, book.Chapters[1].ChapterUID)
	assert.Equal(t, "点评", book.Chapters[1].Title)
}

func TestWeReadConverter_Highlights(t *testing.T) {
	book := NewWeReadConverter().ToBook(sampleSnapshot())

	// Two bookmarks, r1 merged into the first, r2 and r3 kept as reviews
	require.Len(t, book.Highlights, 4)

	first := book.Highlights[0]
	assert.Equal(t, entities.HighlightKindBookmark, first.Kind)
	assert.Equal(t, "给岁月以文明", first.Text)
	assert.Equal(t, "名句", first.Note)
	assert.Equal(t, "科学边界", first.Chapter)
	assert.Equal(t, 2, first.ChapterIdx)
	assert.Equal(t, 120, first.LocationValue)
	assert.Equal(t, entities.HighlightStyleWavy, first.Style)
	assert.Equal(t, "#FFFFFF00", first.Color)
	assert.Equal(t, time.Unix(1683825006, 0).UTC(), first.HighlightedAt)
	assert.Equal(t, "695233_10_120-126", first.ExternalID)

	unknownChapter := book.Highlights[1]
	assert.Equal(t, "未知章节", unknownChapter.Chapter)
	assert.Equal(t, entities.HighlightStyleHighlight, unknownChapter.Style)
	assert.Empty(t, unknownChapter.Color)
	assert.True(t, unknownChapter.HighlightedAt.IsZero())

	passageReview := book.Highlights[2]
	assert.Equal(t, entities.HighlightKindReview, passageReview.Kind)
	assert.Equal(t, "另一段", passageReview.Text)
	assert.Equal(t, "单独的想法", passageReview.Note)
	assert.Equal(t, 300, passageReview.LocationValue)
	assert.Equal(t, "r2", passageReview.ExternalID)

	bookReview := book.Highlights[3]
	assert.Equal(t, entities.HighlightStyleNoteOnly, bookReview.Style)
	assert.Equal(t, weread.ReviewsChapterUID, bookReview.ChapterUID)
	assert.Equal(t, weread.ReviewsChapterUID, bookReview.ChapterIdx)
	assert.Equal(t, "点评", bookReview.Chapter)
	assert.Equal(t, "一本好书", bookReview.Note)
}

func TestWeReadConverter_MinimalSnapshot(t *testing.T) {
	snapshot := services.BookSnapshot{
		Notebook: weread.Notebook{BookID: "CB_1", Book: weread.NotebookBook{Title: "Only notebook", Author: "A"}},
		Reviews:  []weread.Review{{ReviewID: "r", ChapterUID: weread.ReviewsChapterUID, Type: weread.ReviewTypeBook, Content: "x"}},
	}

	book := NewWeReadConverter().ToBook(snapshot)
	assert.Equal(t, "Only notebook", book.Title)
	assert.Equal(t, 0, book.Progress)
	assert.Empty(t, book.Chapters)
	require.Len(t, book.Highlights, 1)
	assert.Equal(t, "点评", book.Highlights[0].Chapter)
	assert.Equal(t, weread.ReviewsChapterUID, book.Highlights[0].ChapterIdx)
}

func TestRangeStart(t *testing.T) {
	assert.Equal(t, 120, rangeStart("120-126"))
	assert.Equal(t, 7, rangeStart("7"))
	assert.Equal(t, 0, rangeStart(""))
	assert.Equal(t, 0, rangeStart("abc-1"))
}

func TestBookmarkStyle(t *testing.T) {
	assert.Equal(t, entities.HighlightStyleHighlight, bookmarkStyle(0))
	assert.Equal(t, entities.HighlightStyleHighlight, bookmarkStyle(1))
	assert.Equal(t, entities.HighlightStyleWavy, bookmarkStyle(2))
	assert.Equal(t, entities.HighlightStyleUnderline, bookmarkStyle(3))
}
