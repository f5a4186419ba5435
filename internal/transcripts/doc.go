// Package transcripts manages transcript rows and their content blobs.
//
// The full text of each transcript lives in the transcripts bucket as
// "transcript_<id>.json"; the database row mirrors the text together with
// its language and whitespace word count.
package transcripts
