package controlplane

import "errors"

// ErrShutdown marks a graceful shutdown initiated by context cancellation
// (SIGINT/SIGTERM). It is never returned as a failure; the master loop logs
// it on the way out so "why did the process stop" is visible in the log
// stream, then returns nil to cobra.
var ErrShutdown = errors.New("controlplane: shutdown requested")
