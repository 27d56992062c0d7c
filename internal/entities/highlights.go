package entities

import (
	"time"

	"gorm.io/gorm"
)

// SourceWeRead is the source name of books synced from WeRead.
const SourceWeRead = "weread"

type HighlightKind string

const (
	HighlightKindBookmark HighlightKind = "bookmark" // Underlined passage
	HighlightKindReview   HighlightKind = "review"   // Note on a passage or on the whole book
)

type HighlightStyle string

const (
	HighlightStyleHighlight HighlightStyle = "highlight"
	HighlightStyleUnderline HighlightStyle = "underline"
	HighlightStyleWavy      HighlightStyle = "wavy"
	HighlightStyleNoteOnly  HighlightStyle = "note_only"
)

type Source struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	Name        string    `gorm:"uniqueIndex;size:50" json:"name"` // e.g., "weread"
	DisplayName string    `gorm:"size:100" json:"display_name"`
	CreatedAt   time.Time `json:"created_at"`
}

type Book struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	Title      string `gorm:"index;size:512" json:"title"`
	Author     string `gorm:"index;size:256" json:"author"`
	Translator string `gorm:"size:256" json:"translator,omitempty"`
	ISBN       string `gorm:"index;size:20" json:"isbn,omitempty"`
	CoverURL   string `gorm:"size:2048" json:"cover_url,omitempty"`
	Publisher  string `gorm:"size:256" json:"publisher,omitempty"`
	Category   string `gorm:"size:256" json:"category,omitempty"`
	Intro      string `gorm:"type:text" json:"intro,omitempty"`
	ExternalID string `gorm:"index;size:256" json:"external_id,omitempty"` // WeRead bookId
	ReaderURL  string `gorm:"size:1024" json:"reader_url,omitempty"`

	// Reading state
	Progress         int        `json:"progress"` // 0-100
	ReadingSeconds   int64      `json:"reading_seconds,omitempty"`
	StartedReadingAt *time.Time `json:"started_reading_at,omitempty"`
	FinishedAt       *time.Time `json:"finished_at,omitempty"`
	LastReadAt       *time.Time `json:"last_read_at,omitempty"`

	SourceID   uint           `gorm:"index" json:"source_id"`
	Source     Source         `gorm:"foreignKey:SourceID" json:"source,omitempty"`
	Chapters   []Chapter      `gorm:"foreignKey:BookID" json:"chapters,omitempty"`
	Highlights []Highlight    `gorm:"foreignKey:BookID" json:"highlights,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	UpdatedAt  time.Time      `json:"updated_at"`
	DeletedAt  gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

type Chapter struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	BookID          uint      `gorm:"index" json:"book_id"`
	ChapterUID      int       `gorm:"index" json:"chapter_uid"`
	ChapterIdx      int       `json:"chapter_idx"`
	Title           string    `gorm:"size:512" json:"title"`
	Level           int       `json:"level"`
	RemoteUpdatedAt time.Time `json:"remote_updated_at,omitempty"` // When WeRead last changed the chapter
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type Highlight struct {
	ID     uint          `gorm:"primaryKey" json:"id"`
	BookID uint          `gorm:"index" json:"book_id"`
	Kind   HighlightKind `gorm:"size:20;default:'bookmark'" json:"kind"`
	Text   string        `gorm:"type:text" json:"text"`
	Note   string        `gorm:"type:text" json:"note,omitempty"`

	// Location information
	ChapterUID    int    `gorm:"index" json:"chapter_uid"`
	ChapterIdx    int    `json:"chapter_idx"`
	Chapter       string `gorm:"size:512" json:"chapter,omitempty"`
	Range         string `gorm:"size:64" json:"range,omitempty"` // "start-end" character offsets
	LocationValue int    `json:"location_value,omitempty"`       // Start offset within the chapter

	// Styling
	Color string         `gorm:"size:10" json:"color,omitempty"` // Hex color code
	Style HighlightStyle `gorm:"size:20;default:'highlight'" json:"style,omitempty"`

	HighlightedAt time.Time `json:"highlighted_at,omitempty"`

	// Source tracking
	ExternalID string `gorm:"index;size:256" json:"external_id,omitempty"` // bookmarkId or reviewId
	SourceID   uint   `gorm:"index" json:"source_id"`
	Source     Source `gorm:"foreignKey:SourceID" json:"source,omitempty"`

	Book Book `gorm:"foreignKey:BookID" json:"-"`

	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (Source) TableName() string {
	return "sources"
}

func (Chapter) TableName() string {
	return "chapters"
}
