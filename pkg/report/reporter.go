// Package report carries run output back to the caller: a log sink, a
// per-item progress sink, and a request/response channel for
// human-in-the-loop prompts. All sinks are invoked synchronously on the
// worker goroutine, so events arrive in the exact order work happens.
package report

// Sinks bundles the caller-supplied callbacks. Nil callbacks are
// allowed and simply drop their events; the framework itself holds no
// state about past events.
type Sinks struct {
	// Log receives user-facing progress messages. It must be safe
	// under rapid repeated calls from the worker goroutine.
	Log func(message string)

	// Progress is invoked once after each processed work item with the
	// item's identifier, outcome code and human-readable detail. The
	// caller persists these; items skipped for being already terminal
	// produce no event.
	Progress func(itemID, outcomeCode, detail string)
}

// Logf logs a message, tolerating a nil sink.
func (s Sinks) Logf(message string) {
	if s.Log != nil {
		s.Log(message)
	}
}

// Report delivers one per-item outcome, tolerating a nil sink.
func (s Sinks) Report(itemID, outcomeCode, detail string) {
	if s.Progress != nil {
		s.Progress(itemID, outcomeCode, detail)
	}
}
