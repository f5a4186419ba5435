// Package blobstore provides bucket/path addressed binary object storage.
//
// Store is the contract the upload engine and lifecycle services depend on.
// LocalStore implements it on the local filesystem, one directory per bucket,
// with atomic writes, ordered part composition for chunked uploads, and
// HMAC-signed expiring URLs (golang-jwt) for handing objects to other tools.
package blobstore
