package mesh

import "github.com/meshrelay/beacon/storage"

// Observer receives the engine's two event sinks. Implementations must
// treat both methods as potentially re-entrant: the engine makes no
// guarantee about which goroutine invokes them, and a handler must not
// call back into the engine's own public API synchronously if it could
// deadlock the caller.
type Observer interface {
	OnMessageReceived(msg storage.Message)
	OnMessageStatus(id [16]byte, status storage.Status)
}

// funcObserver adapts two plain callbacks to the Observer interface, for
// callers that prefer OnMessage/OnStatus-style registration over
// implementing Observer directly.
type funcObserver struct {
	onReceived func(storage.Message)
	onStatus   func(id [16]byte, status storage.Status)
}

func (f *funcObserver) OnMessageReceived(msg storage.Message) {
	if f.onReceived != nil {
		f.onReceived(msg)
	}
}

func (f *funcObserver) OnMessageStatus(id [16]byte, status storage.Status) {
	if f.onStatus != nil {
		f.onStatus(id, status)
	}
}
