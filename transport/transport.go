package transport

import "context"

// PeerID is the opaque transport-layer address of a connection. It is
// stable for the duration of one connection but may change across
// reconnects of the same underlying identity.
type PeerID string

// Transport is the capability the mesh engine requires from a BLE radio
// implementation. Connect and Disconnect are given a context so callers
// can enforce the 3-second connection timeout without the transport
// needing to know about it; a conforming implementation should also
// apply its own internal timeout as a backstop.
type Transport interface {
	StartScan(ctx context.Context) error
	StopScan() error

	Connect(ctx context.Context, id PeerID) error
	Disconnect(ctx context.Context, id PeerID) error

	// Send writes raw envelope bytes to the peer's RX endpoint. No ACK
	// is required; delivery confidence comes from the engine's own
	// retry queue.
	Send(ctx context.Context, id PeerID, data []byte) error

	ConnectedPeers() []PeerID

	OnDiscovered(func(id PeerID, rssi int))
	OnStateChange(func(id PeerID, connected bool))
	OnBytes(func(id PeerID, data []byte))
}
