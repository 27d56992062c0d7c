package exporters

import "github.com/mrlokans/weread-sync/internal/services"

type (
	BookExporter = services.BookExporter
	BookReader   = services.BookReader
	ExportResult = services.ExportResult
)
