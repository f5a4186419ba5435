// Package transfer moves a local file into the blob store.
//
// Files no larger than the chunk size go up in one request. Larger files are
// cut into fixed-size chunks that are uploaded strictly in order as
// "<path>.part<i>" objects, each retried with a linear backoff (delay times
// attempt number), then composed into the final object. Progress is reported
// after every chunk with cumulative bytes, instantaneous speed, and an ETA.
// A chunk that exhausts its retries aborts the transfer with *TransferError;
// later chunks are never attempted.
package transfer
