// Package database provides SQLite persistence for Hearth Core.
//
// This package manages:
//   - Connection lifecycle with WAL mode and busy timeout
//   - Embedded schema migrations (see the migrations package)
//   - Health checks for the operational status endpoint
//
// SQLite is deliberate: a residential installation is a single-writer,
// low-volume workload (<1000 devices) where a file-backed database with
// synchronous writes gives crash consistency without an external server.
//
// # Usage
//
//	db, err := database.Open(ctx, database.Config{
//	    Path:        "./data/hearth.db",
//	    WALMode:     true,
//	    BusyTimeout: 5,
//	})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
