// Package transcription turns a stored recording into text.
//
// Backend is the seam the processing worker calls. StubBackend returns a
// fixed transcript after a configurable delay and is the default so the
// pipeline runs end to end without an external service. HTTPBackend streams
// the recording blob as multipart form data to a Whisper-style endpoint and
// reads the "text" field of the JSON reply.
package transcription
