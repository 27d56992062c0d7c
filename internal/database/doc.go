// Package database provides the data access layer for synced WeRead data.
//
// # Architecture
//
//	database/
//	├── database.go      # Connection setup, migrations, source seeding, books and settings
//	├── audit/           # Audit event storage
//	└── sync/            # Sync progress tracking
//
// # Usage
//
//	db, err := database.NewDatabase("./weread-sync.db")
//	err = db.SaveBook(book)
//
//	progress := sync.NewRepository(db.DB)
//	events := audit.NewRepository(db.DB)
//
// SaveBook is additive: rerunning a sync updates books, chapters and
// highlights in place and never removes rows that are no longer returned
// by WeRead.
package database
