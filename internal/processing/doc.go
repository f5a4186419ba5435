// Package processing tracks transcription attempts and runs them.
//
// Queue records one item per processing attempt lineage in the
// processing_queue table; the most recently created item for a recording is
// authoritative. Worker drives a single recording through transcription and
// keeps the recording, transcript, and queue rows consistent. Dispatcher
// polls for pending items and feeds them to a bounded worker pool for the
// long-running worker daemon.
package processing
