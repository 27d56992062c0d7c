package exporters

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/mrlokans/weread-sync/internal/entities"
	"github.com/mrlokans/weread-sync/internal/utils"
)

type frontmatter struct {
	ContentSource string   `yaml:"content_source"`
	ContentType   string   `yaml:"content_type"`
	CreatedAt     string   `yaml:"created_at"`
	Title         string   `yaml:"title"`
	Author        string   `yaml:"author"`
	Translator    string   `yaml:"translator,omitempty"`
	ISBN          string   `yaml:"isbn,omitempty"`
	Publisher     string   `yaml:"publisher,omitempty"`
	Category      string   `yaml:"category,omitempty"`
	Cover         string   `yaml:"cover,omitempty"`
	WeReadID      string   `yaml:"weread_id,omitempty"`
	ReaderURL     string   `yaml:"reader_url,omitempty"`
	Progress      int      `yaml:"progress,omitempty"`
	LastReadAt    string   `yaml:"last_read_at,omitempty"`
	Highlights    int      `yaml:"highlights"`
	Tags          []string `yaml:"tags"`
}

// section is one chapter's worth of highlights.
type section struct {
	title      string
	level      int
	idx        int
	highlights []entities.Highlight
}

type MarkdownExporter struct {
	OutputDir string
	Result    ExportResult
}

func NewMarkdownExporter(outputDir string) *MarkdownExporter {
	return &MarkdownExporter{
		OutputDir: outputDir,
		Result:    ExportResult{},
	}
}

// Export writes one markdown file per book under <OutputDir>/<source>/.
// A book that cannot be written is counted as failed and the export continues.
func (exporter *MarkdownExporter) Export(books []entities.Book) (ExportResult, error) {
	exporter.Result = ExportResult{}

	if err := os.MkdirAll(exporter.OutputDir, 0o755); err != nil {
		return ExportResult{}, fmt.Errorf("failed to create output directory: %w", err)
	}

	for i := range books {
		path, err := exporter.exportBook(&books[i])
		if err != nil {
			log.Printf("Failed to export '%s' to markdown: %v", books[i].Title, err)
			exporter.Result.BooksFailed++
			exporter.Result.HighlightsFailed += len(books[i].Highlights)
			continue
		}
		log.Printf("Exported '%s' to %s", books[i].Title, path)
		exporter.Result.BooksProcessed++
		exporter.Result.HighlightsProcessed += len(books[i].Highlights)
	}

	return exporter.Result, nil
}

// BookPath returns the file a book is written to.
func (exporter *MarkdownExporter) BookPath(book *entities.Book) string {
	return filepath.Join(exporter.OutputDir, sourceFolder(book), utils.BookFilename(book.Title, book.Author)+".md")
}

func (exporter *MarkdownExporter) exportBook(book *entities.Book) (string, error) {
	outputPath := exporter.BookPath(book)
	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return "", fmt.Errorf("failed to create source directory: %w", err)
	}
	if err := os.WriteFile(outputPath, []byte(GenerateMarkdown(book)), 0o644); err != nil {
		return "", err
	}
	return outputPath, nil
}

func sourceFolder(book *entities.Book) string {
	if book.Source.Name != "" {
		return book.Source.Name
	}
	return "unknown"
}

// GenerateMarkdown renders a book with its highlights grouped by chapter, in
// chapter order. Highlights are rendered as Obsidian callouts picked by color.
func GenerateMarkdown(book *entities.Book) string {
	var builder strings.Builder

	fm := frontmatter{
		ContentSource: sourceFolder(book),
		ContentType:   "book_highlights",
		CreatedAt:     time.Now().Format("2006-01-02"),
		Title:         book.Title,
		Author:        book.Author,
		Translator:    book.Translator,
		ISBN:          book.ISBN,
		Publisher:     book.Publisher,
		Category:      book.Category,
		Cover:         book.CoverURL,
		WeReadID:      book.ExternalID,
		ReaderURL:     book.ReaderURL,
		Progress:      book.Progress,
		Highlights:    len(book.Highlights),
		Tags:          []string{"highlights", "books"},
	}
	if book.LastReadAt != nil {
		fm.LastReadAt = book.LastReadAt.Format("2006-01-02")
	}
	if book.Source.Name == entities.SourceWeRead {
		fm.Tags = append(fm.Tags, "weread")
	}

	builder.WriteString("---\n")
	if data, err := yaml.Marshal(fm); err == nil {
		builder.Write(data)
	}
	builder.WriteString("---\n\n")

	fmt.Fprintf(&builder, "# %s\n\n", book.Title)
	if book.ReaderURL != "" {
		fmt.Fprintf(&builder, "[Open in WeRead](%s)\n\n", book.ReaderURL)
	}
	fmt.Fprintf(&builder, "## Highlights\n\n")

	for _, sec := range groupByChapter(book) {
		if sec.title != "" {
			fmt.Fprintf(&builder, "%s %s\n\n", strings.Repeat("#", headingDepth(sec.level)), sec.title)
		}
		for _, h := range sec.highlights {
			writeHighlight(&builder, h)
		}
	}

	return builder.String()
}

func writeHighlight(builder *strings.Builder, h entities.Highlight) {
	if h.Text != "" {
		fmt.Fprintf(builder, "> [!%s]\n", utils.ColorToCalloutType(h.Color))
		fmt.Fprintf(builder, "> %s\n", strings.ReplaceAll(h.Text, "\n", "\n> "))
		if !h.HighlightedAt.IsZero() {
			fmt.Fprintf(builder, "> *%s*\n", h.HighlightedAt.Format("2006-01-02 15:04"))
		}
		builder.WriteString("\n")
	}
	if h.Note != "" {
		fmt.Fprintf(builder, "**Note:** %s\n\n", h.Note)
	}
}

// Chapters start at "###" under the "## Highlights" heading.
func headingDepth(level int) int {
	if level < 1 {
		level = 1
	}
	if level > 4 {
		level = 4
	}
	return level + 2
}

// groupByChapter orders highlights by the book's chapter list. Highlights in
// chapters the book does not list follow, ordered by chapter index.
func groupByChapter(book *entities.Book) []section {
	byUID := make(map[int]*section)
	var sections []*section

	chapters := append([]entities.Chapter(nil), book.Chapters...)
	sort.SliceStable(chapters, func(i, j int) bool { return chapters[i].ChapterIdx < chapters[j].ChapterIdx })
	for _, ch := range chapters {
		sec := &section{title: ch.Title, level: ch.Level, idx: ch.ChapterIdx}
		byUID[ch.ChapterUID] = sec
		sections = append(sections, sec)
	}

	var orphans []*section
	orphanByKey := make(map[string]*section)
	for _, h := range book.Highlights {
		if sec, ok := byUID[h.ChapterUID]; ok && h.ChapterUID != 0 {
			sec.highlights = append(sec.highlights, h)
			continue
		}
		key := fmt.Sprintf("%d|%s", h.ChapterUID, h.Chapter)
		sec, ok := orphanByKey[key]
		if !ok {
			sec = &section{title: h.Chapter, level: 1, idx: h.ChapterIdx}
			orphanByKey[key] = sec
			orphans = append(orphans, sec)
		}
		sec.highlights = append(sec.highlights, h)
	}
	sort.SliceStable(orphans, func(i, j int) bool { return orphans[i].idx < orphans[j].idx })

	result := make([]section, 0, len(sections)+len(orphans))
	for _, sec := range append(sections, orphans...) {
		if len(sec.highlights) == 0 {
			continue
		}
		sort.SliceStable(sec.highlights, func(i, j int) bool {
			a, b := sec.highlights[i], sec.highlights[j]
			if a.LocationValue != b.LocationValue {
				return a.LocationValue < b.LocationValue
			}
			return a.HighlightedAt.Before(b.HighlightedAt)
		})
		result = append(result, *sec)
	}
	return result
}
