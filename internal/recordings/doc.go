// Package recordings owns the recording lifecycle.
//
// Lifecycle persists recording rows and enforces the status machine
// pending -> processing -> {completed, failed}; "deleted" is written only by
// Delete just before the row is removed. Service is the upward API: it
// validates and registers uploads, hands the byte transfer to the single
// upload queue, and exposes lookup, listing, deletion, and URL helpers.
package recordings
