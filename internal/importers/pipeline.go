package importers

import (
	"github.com/mrlokans/weread-sync/internal/entities"
	"github.com/mrlokans/weread-sync/internal/services"
)

// Exporter persists books to storage.
type Exporter interface {
	Export(books []entities.Book) (services.ExportResult, error)
}

// Pipeline handles the common import workflow: convert → save.
type Pipeline struct {
	exporter  Exporter
	converter *WeReadConverter
}

// NewPipeline creates a new import pipeline with the given exporter.
func NewPipeline(exporter Exporter) *Pipeline {
	return &Pipeline{exporter: exporter, converter: NewWeReadConverter()}
}

// ImportSnapshots converts WeRead snapshots and exports them.
func (p *Pipeline) ImportSnapshots(snapshots []services.BookSnapshot) (services.ImportResult, error) {
	return p.ImportBooks(p.converter.ToBooks(snapshots))
}

// ImportBooks directly exports already converted books.
func (p *Pipeline) ImportBooks(books []entities.Book) (services.ImportResult, error) {
	if len(books) == 0 {
		return services.ImportResult{}, nil
	}

	exportResult, err := p.exporter.Export(books)
	if err != nil {
		return services.ImportResult{}, err
	}

	return services.ImportResult(exportResult), nil
}
