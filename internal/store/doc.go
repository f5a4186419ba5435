// Package store persists recordings, transcripts, and processing-queue items
// in SQLite.
//
// The Store wraps a database/sql handle backed by modernc.org/sqlite, creates
// the schema on first open, and retries writes that hit SQLITE_BUSY with a
// short exponential backoff. Typed accessors exist per table; callers above
// this package own status rules and error classification. ErrNotFound is
// returned whenever a lookup by key matches no row.
package store
