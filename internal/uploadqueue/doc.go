// Package uploadqueue serializes upload work onto a single background worker.
//
// Tasks run strictly in FIFO order, one at a time. A task that returns an
// error or panics is logged and the worker moves on to the next task. Stop
// cancels the running task's context, drops queued tasks, and waits for the
// worker goroutine to exit.
package uploadqueue
