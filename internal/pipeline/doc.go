// Package pipeline drives a rep counting run.
//
// It pulls observations from a pose.Stream, feeds them in order through
// a session.RepCounterSession and hands each per-frame summary to the
// configured sinks (JSONL writer, database, report trace). The pipeline
// owns no counting logic; it only sequences the layers and stops
// cleanly on stream exhaustion or context cancellation.
package pipeline
