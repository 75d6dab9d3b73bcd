// Package emit provides observability sinks for workflow execution events.
package emit

// Emitter receives observability events from the workflow engine.
//
// The engine emits an event when a run starts and ends, when each node starts
// and finishes, when a node's log sink is written to, and when run-history
// persistence fails. Emitters make those events visible:
//   - LogEmitter: human-readable text or JSONL on a writer
//   - BufferedEmitter: in-memory history, queryable per run
//   - OTelEmitter: OpenTelemetry spans
//   - NullEmitter: discard
//   - Multi: fan out to several emitters
//
// Implementations should be:
//   - Non-blocking: Emit is called inline by the engine
//   - Thread-safe: several runs may share one emitter
//   - Resilient: never panic, never fail the run
type Emitter interface {
	// Emit sends an observability event to the configured backend.
	Emit(event Event)
}

// Multi returns an Emitter that forwards every event to each non-nil emitter
// in order.
func Multi(emitters ...Emitter) Emitter {
	out := make(multi, 0, len(emitters))
	for _, e := range emitters {
		if e != nil {
			out = append(out, e)
		}
	}
	return out
}

type multi []Emitter

func (m multi) Emit(event Event) {
	for _, e := range m {
		e.Emit(event)
	}
}
