// Package daemon coordinates the long-running meetscribe worker process.
//
// It wires configuration, the recording database, and the transcription
// dispatcher into a single lifecycle with flock-based locking to prevent
// multiple workers from claiming the same queue. Startup is gated on the
// preflight checks; an optional cleaner prunes the temporary blob bucket on
// a fixed interval while the worker runs.
//
// Keep orchestration logic here: transcription itself lives in the
// processing package while the daemon focuses on startup, shutdown, and
// status reporting.
package daemon
