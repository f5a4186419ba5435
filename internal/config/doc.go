// Package config loads, normalizes, and validates meetscribe configuration.
//
// It supplies repository defaults, expands user paths (including tilde
// shortcuts), reads TOML files, and honours environment fallbacks such as
// MEETSCRIBE_SIGNING_KEY. Upload tuning (chunk size, retry policy, size
// limits), storage buckets, and the transcription backend are all resolved
// here so the CLI and worker daemon see the same sanitized values.
package config
