package weread

// Notebook is a book that has highlights or reviews.
type Notebook struct {
	BookID        string       `json:"bookId"`
	Book          NotebookBook `json:"book"`
	ReviewCount   int          `json:"reviewCount"`
	NoteCount     int          `json:"noteCount"`
	BookmarkCount int          `json:"bookmarkCount"`
	Sort          int64        `json:"sort"`
}

type NotebookBook struct {
	BookID string `json:"bookId"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Cover  string `json:"cover"`
}

type notebooksResponse struct {
	Books []Notebook `json:"books"`
}

// BookInfo is the book detail returned by /api/book/info.
type BookInfo struct {
	BookID      string     `json:"bookId"`
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	Translator  string     `json:"translator"`
	Cover       string     `json:"cover"`
	Intro       string     `json:"intro"`
	Category    string     `json:"category"`
	Categories  []Category `json:"categories"`
	ISBN        string     `json:"isbn"`
	Publisher   string     `json:"publisher"`
	PublishTime string     `json:"publishTime"`
	TotalWords  int        `json:"totalWords"`
	NewRating   int        `json:"newRating"`
}

type Category struct {
	CategoryID int    `json:"categoryId"`
	Title      string `json:"title"`
}

// Bookmark is a highlight.
type Bookmark struct {
	BookmarkID  string `json:"bookmarkId"`
	BookID      string `json:"bookId"`
	ChapterUID  int    `json:"chapterUid"`
	ChapterName string `json:"chapterName"`
	MarkText    string `json:"markText"`
	Range       string `json:"range"`
	Style       int    `json:"style"`
	ColorStyle  int    `json:"colorStyle"`
	Type        int    `json:"type"`
	CreateTime  int64  `json:"createTime"`
}

type bookmarksResponse struct {
	Updated []Bookmark `json:"updated"`
}

// ReviewTypeBook marks a review of the whole book rather than a passage.
const ReviewTypeBook = 4

// Review is a note attached to a passage, or a review of the whole book.
type Review struct {
	ReviewID    string `json:"reviewId"`
	BookID      string `json:"bookId"`
	ChapterUID  int    `json:"chapterUid"`
	ChapterName string `json:"chapterName"`
	Abstract    string `json:"abstract"`
	Content     string `json:"content"`
	Range       string `json:"range"`
	Type        int    `json:"type"`
	Star        int    `json:"star"`
	CreateTime  int64  `json:"createTime"`
}

// ReadProgress is the reading state returned by /web/book/getProgress.
type ReadProgress struct {
	BookID string         `json:"bookId"`
	Book   ProgressDetail `json:"book"`
}

type ProgressDetail struct {
	Progress         int    `json:"progress"`
	ChapterUID       int    `json:"chapterUid"`
	ChapterIdx       int    `json:"chapterIdx"`
	Summary          string `json:"summary"`
	ReadingTime      int64  `json:"readingTime"`
	UpdateTime       int64  `json:"updateTime"`
	StartReadingTime int64  `json:"startReadingTime"`
	FinishTime       int64  `json:"finishTime"`
	IsStartReading   int    `json:"isStartReading"`
}

// Shelf is the result of /web/shelf/sync.
type Shelf struct {
	Books        []ShelfBook     `json:"books"`
	BookProgress []ShelfProgress `json:"bookProgress"`
}

type ShelfBook struct {
	BookID string `json:"bookId"`
	Title  string `json:"title"`
	Author string `json:"author"`
	Cover  string `json:"cover"`
}

type ShelfProgress struct {
	BookID     string `json:"bookId"`
	Progress   int    `json:"progress"`
	UpdateTime int64  `json:"updateTime"`
}
