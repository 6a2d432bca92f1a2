package transport

import (
	"errors"
	"fmt"
)

// Sentinel errors a Transport implementation is expected to return.
var (
	// ErrConnectTimeout indicates a Connect call exceeded its 3-second
	// budget.
	ErrConnectTimeout = errors.New("transport: connect timed out")

	// ErrNotConnected indicates an operation was attempted against a
	// peer with no live connection.
	ErrNotConnected = errors.New("transport: peer not connected")

	// ErrSendFailed indicates a Send call failed at the radio layer.
	ErrSendFailed = errors.New("transport: send failed")
)

// MeshTransportError adds peer and operation context to a Transport
// failure.
type MeshTransportError struct {
	Op   string
	Peer PeerID
	Err  error
}

func (e *MeshTransportError) Error() string {
	if e.Peer != "" {
		return fmt.Sprintf("transport %s %s: %v", e.Op, e.Peer, e.Err)
	}
	return fmt.Sprintf("transport %s: %v", e.Op, e.Err)
}

func (e *MeshTransportError) Unwrap() error {
	return e.Err
}

func newTransportError(op string, peer PeerID, err error) *MeshTransportError {
	return &MeshTransportError{Op: op, Peer: peer, Err: err}
}
