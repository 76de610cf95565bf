// Package database provides SQLite-based run history for dossiersim.
//
// The RunDB stores:
//   - One row per finished run with its report, status and dossier digest
//   - One row per recorded step with the step's envelope
//
// SQLite is accessed through modernc.org/sqlite, a CGO-free driver, and
// opened in WAL mode with a single writer connection.
package database
