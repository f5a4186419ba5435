// Package services defines the error taxonomy and context tags shared by the
// upload, lifecycle, and transcription packages.
//
// Key responsibilities:
//   - Sentinel markers (not found, persistence, processing, transfer,
//     validation, configuration) plus the Wrap helper that attaches component
//     and operation detail while keeping errors.Is classification intact.
//   - Context helpers that stamp recording IDs, operation names, and request
//     correlation identifiers for structured logging.
//
// Use these helpers when wiring new components so failures surface with the
// same shape in logs, CLI output, and queue bookkeeping.
package services
