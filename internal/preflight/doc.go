// Package preflight provides readiness checks for the filesystem paths and
// services meetscribe depends on.
//
// The worker daemon runs RunAll before it starts dispatching; any failure
// stops startup so transcriptions are not attempted against a broken setup.
// Each check is gated by its config toggle; the transcription endpoint is
// only probed when the HTTP backend is selected.
package preflight
