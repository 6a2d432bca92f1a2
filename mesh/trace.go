package mesh

import (
	"time"

	"github.com/meshrelay/beacon/transport"
)

// RelayTrace records one relay decision for observability. It is never
// persisted; it exists only for the lifetime of the process in a
// bounded ring buffer.
type RelayTrace struct {
	MessageID [16]byte
	NewTTL    uint8
	At        time.Time
	Inbound   transport.PeerID
	Results   map[transport.PeerID]bool
}

const traceBufferSize = 128

// traceBuffer is a fixed-capacity ring buffer of the most recent relay
// traces.
type traceBuffer struct {
	entries []RelayTrace
	next    int
	full    bool
}

func newTraceBuffer() *traceBuffer {
	return &traceBuffer{entries: make([]RelayTrace, traceBufferSize)}
}

func (b *traceBuffer) record(t RelayTrace) {
	b.entries[b.next] = t
	b.next = (b.next + 1) % len(b.entries)
	if b.next == 0 {
		b.full = true
	}
}

// snapshot returns the buffered traces, oldest first.
func (b *traceBuffer) snapshot() []RelayTrace {
	if !b.full {
		out := make([]RelayTrace, b.next)
		copy(out, b.entries[:b.next])
		return out
	}
	out := make([]RelayTrace, len(b.entries))
	copy(out, b.entries[b.next:])
	copy(out[len(b.entries)-b.next:], b.entries[:b.next])
	return out
}
