// Command meetscribe uploads meeting recordings and manages their
// transcription.
//
// Every command works directly against the local SQLite database and blob
// directory named by the configuration file. `meetscribe worker` runs the
// long-lived transcription daemon; the other commands are one-shot.
package main
