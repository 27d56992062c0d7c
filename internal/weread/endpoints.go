package weread

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"strconv"
)

// Notebooks returns books with notes, ordered by their sort key.
func (c *Client) Notebooks(ctx context.Context) ([]Notebook, error) {
	var books []Notebook
	err := c.retry.Do(ctx, "notebooks", func(ctx context.Context) error {
		var err error
		books, err = c.notebooks(ctx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return books, nil
}

func (c *Client) notebooks(ctx context.Context) ([]Notebook, error) {
	body, err := c.call(ctx, request{method: http.MethodGet, path: pathNotebooks})
	if err != nil {
		return nil, err
	}

	var resp notebooksResponse
	if err := decode(pathNotebooks, body, &resp); err != nil {
		return nil, err
	}
	sort.SliceStable(resp.Books, func(i, j int) bool {
		return resp.Books[i].Sort < resp.Books[j].Sort
	})
	return resp.Books, nil
}

// Bookshelf returns the raw notebook envelope, including sync keys and counts.
func (c *Client) Bookshelf(ctx context.Context) (map[string]any, error) {
	var shelf map[string]any
	err := c.retry.Do(ctx, "bookshelf", func(ctx context.Context) error {
		body, err := c.call(ctx, request{method: http.MethodGet, path: pathNotebooks})
		if err != nil {
			return err
		}
		return decode(pathNotebooks, body, &shelf)
	})
	return shelf, err
}

// ShelfSync returns every book on the shelf with its reading progress.
func (c *Client) ShelfSync(ctx context.Context) (*Shelf, error) {
	var shelf Shelf
	err := c.retry.Do(ctx, "shelf sync", func(ctx context.Context) error {
		body, err := c.call(ctx, request{method: http.MethodGet, path: pathShelfSync})
		if err != nil {
			return err
		}
		return decode(pathShelfSync, body, &shelf)
	})
	if err != nil {
		return nil, err
	}
	return &shelf, nil
}

// BookInfo returns book details.
func (c *Client) BookInfo(ctx context.Context, bookID string) (*BookInfo, error) {
	var info BookInfo
	err := c.retry.Do(ctx, "book info", func(ctx context.Context) error {
		body, err := c.call(ctx, request{
			method: http.MethodGet,
			path:   pathBookInfo,
			params: map[string]string{"bookId": bookID},
		})
		if err != nil {
			return err
		}
		return decode(pathBookInfo, body, &info)
	})
	if err != nil {
		return nil, err
	}
	return &info, nil
}

// Bookmarks returns the highlights of a book. Entries without text or chapter are dropped.
func (c *Client) Bookmarks(ctx context.Context, bookID string) ([]Bookmark, error) {
	var bookmarks []Bookmark
	err := c.retry.Do(ctx, "bookmarks", func(ctx context.Context) error {
		body, err := c.call(ctx, request{
			method: http.MethodGet,
			path:   pathBookmarks,
			params: map[string]string{"bookId": bookID},
		})
		if err != nil {
			return err
		}

		var resp bookmarksResponse
		if err := decode(pathBookmarks, body, &resp); err != nil {
			return err
		}

		bookmarks = bookmarks[:0]
		for _, b := range resp.Updated {
			if b.MarkText != "" && b.ChapterUID != 0 {
				bookmarks = append(bookmarks, b)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return bookmarks, nil
}

// ChapterInfos returns the table of contents keyed by chapter uid.
// The request imitates a reader page: home page, notebook list, a short pause,
// then the POST with reader-page headers.
func (c *Client) ChapterInfos(ctx context.Context, bookID string) (map[string]Chapter, error) {
	var chapters map[string]Chapter
	err := c.retry.Do(ctx, "chapter infos", func(ctx context.Context) error {
		c.WarmUp(ctx)
		if _, err := c.notebooks(ctx); err != nil {
			return err
		}
		if err := c.retry.sleep(ctx, c.browseDelay()); err != nil {
			return err
		}

		resp, err := c.send(ctx, request{
			method: http.MethodPost,
			path:   pathChapterInfos,
			body:   map[string][]string{"bookIds": {bookID}},
			headers: map[string]string{
				"Content-Type":   "application/json;charset=UTF-8",
				"Origin":         c.baseURL,
				"Referer":        c.baseURL + "/web/reader/" + bookID,
				"Sec-Fetch-Dest": "empty",
				"Sec-Fetch-Mode": "cors",
				"Sec-Fetch-Site": "same-origin",
			},
		})
		if err != nil {
			return err
		}
		if resp.IsError() && !json.Valid(resp.Body()) {
			return &APIError{Endpoint: pathChapterInfos, StatusCode: resp.StatusCode()}
		}

		chapters, err = NormalizeChapters(resp.Body())
		if err != nil {
			return err
		}
		c.initialized.Store(true)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return chapters, nil
}

type reviewsResponse struct {
	Reviews []json.RawMessage `json:"reviews"`
}

// Reviews returns the user's notes and book reviews. Whole-book reviews are
// attributed to ReviewsChapterUID.
func (c *Client) Reviews(ctx context.Context, bookID string) ([]Review, error) {
	var reviews []Review
	err := c.retry.Do(ctx, "reviews", func(ctx context.Context) error {
		body, err := c.call(ctx, request{
			method: http.MethodGet,
			path:   pathReviews,
			params: map[string]string{
				"bookId":   bookID,
				"listType": "4",
				"maxIdx":   "0",
				"count":    "0",
				"listMode": "2",
				"syncKey":  "0",
			},
		})
		if err != nil {
			return err
		}

		var resp reviewsResponse
		if err := decode(pathReviews, body, &resp); err != nil {
			return err
		}

		reviews = make([]Review, 0, len(resp.Reviews))
		for _, raw := range resp.Reviews {
			review, err := unwrapReview(raw)
			if err != nil {
				return err
			}
			if review.Type == ReviewTypeBook {
				review.ChapterUID = ReviewsChapterUID
			}
			reviews = append(reviews, review)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return reviews, nil
}

// unwrapReview accepts both {"review": {...}} items and bare review objects.
func unwrapReview(raw json.RawMessage) (Review, error) {
	var wrapped struct {
		Review *Review `json:"review"`
	}
	if err := decode(pathReviews, raw, &wrapped); err != nil {
		return Review{}, err
	}
	if wrapped.Review != nil {
		return *wrapped.Review, nil
	}

	var review Review
	err := decode(pathReviews, raw, &review)
	return review, err
}

// BestReviews returns popular public reviews of a book.
func (c *Client) BestReviews(ctx context.Context, bookID string, count, maxIdx int, synckey int64) (map[string]any, error) {
	var result map[string]any
	err := c.retry.Do(ctx, "best reviews", func(ctx context.Context) error {
		body, err := c.call(ctx, request{
			method: http.MethodGet,
			path:   pathBestReviews,
			params: map[string]string{
				"bookId":  bookID,
				"synckey": strconv.FormatInt(synckey, 10),
				"maxIdx":  strconv.Itoa(maxIdx),
				"count":   strconv.Itoa(count),
			},
		})
		if err != nil {
			return err
		}
		return decode(pathBestReviews, body, &result)
	})
	return result, err
}

// ReadProgress returns the reading state of a book.
func (c *Client) ReadProgress(ctx context.Context, bookID string) (*ReadProgress, error) {
	var progress ReadProgress
	err := c.retry.Do(ctx, "read progress", func(ctx context.Context) error {
		body, err := c.call(ctx, request{
			method: http.MethodGet,
			path:   pathReadProgress,
			params: map[string]string{"bookId": bookID},
		})
		if err != nil {
			return err
		}
		return decode(pathReadProgress, body, &progress)
	})
	if err != nil {
		return nil, err
	}
	return &progress, nil
}
