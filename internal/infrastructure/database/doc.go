// Package database provides the SQLite store behind the sdrlink command journal.
//
// Open configures WAL mode and a busy timeout and pins the pool to a single
// connection, matching SQLite's single-writer model. Migrate applies the
// versioned *.up.sql files from an fs.FS, normally migrations.FS:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// Migrations are additive. Each has both an .up.sql and a .down.sql file
// named VERSION_name, where VERSION is YYYYMMDD_HHMMSS.
package database
