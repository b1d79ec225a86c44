// Package database provides the SQLite connection used to persist media
// player records.
//
// It manages:
//   - The database file and directory (permissions 0600/0750)
//   - WAL mode and busy timeout via connection-string pragmas
//   - Versioned, embedded schema migrations
//
// Usage:
//
//	db, err := database.Open(ctx, cfg.Database)
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx, migrations.FS); err != nil {
//	    return err
//	}
//
// All queries use parameterised statements.
package database
