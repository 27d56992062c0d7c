// Package importers turns fetched WeRead data into storable books.
//
// # Architecture
//
//	WeRead API → services.BookSnapshot → WeReadConverter → entities.Book → Exporter → Storage
//
// The sync service fetches one BookSnapshot per book. WeReadConverter maps it
// to an entities.Book with its chapters and highlights, and the Pipeline hands
// the books to the configured Exporter.
//
// Snapshots dumped during a sync (see audit.Auditor) can be replayed without
// talking to WeRead:
//
//	snapshots, err := importers.LoadSnapshots("./audit/<run id>")
//	result, err := importers.NewPipeline(exporter).ImportSnapshots(snapshots)
package importers
