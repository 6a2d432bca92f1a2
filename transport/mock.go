package transport

import (
	"context"
	"sync"
)

// Mock is an in-memory Transport used by engine tests and by any
// application that wants to exercise the mesh engine without a real
// radio. Peers register with a shared *MockMesh so Send calls on one Mock
// are delivered to the OnBytes callback of the addressed Mock.
type Mock struct {
	mu        sync.Mutex
	self      PeerID
	mesh      *MockMesh
	connected map[PeerID]bool

	onDiscovered  func(id PeerID, rssi int)
	onStateChange func(id PeerID, connected bool)
	onBytes       func(id PeerID, data []byte)
}

// MockMesh is the shared registry a set of Mock transports connect
// through, simulating a radio neighborhood.
type MockMesh struct {
	mu    sync.Mutex
	nodes map[PeerID]*Mock
}

// NewMockMesh creates an empty shared registry.
func NewMockMesh() *MockMesh {
	return &MockMesh{nodes: make(map[PeerID]*Mock)}
}

// NewMock creates a Mock transport identified by self and registers it
// with mesh.
func NewMock(mesh *MockMesh, self PeerID) *Mock {
	m := &Mock{
		self:      self,
		mesh:      mesh,
		connected: make(map[PeerID]bool),
	}
	mesh.mu.Lock()
	mesh.nodes[self] = m
	mesh.mu.Unlock()
	return m
}

func (m *Mock) StartScan(ctx context.Context) error { return nil }
func (m *Mock) StopScan() error                     { return nil }

// Connect marks id as reachable and fires OnStateChange on both ends.
func (m *Mock) Connect(ctx context.Context, id PeerID) error {
	m.mesh.mu.Lock()
	peer, ok := m.mesh.nodes[id]
	m.mesh.mu.Unlock()
	if !ok {
		return newTransportError("connect", id, ErrConnectTimeout)
	}

	m.mu.Lock()
	m.connected[id] = true
	cb := m.onStateChange
	m.mu.Unlock()
	if cb != nil {
		cb(id, true)
	}

	peer.mu.Lock()
	peer.connected[m.self] = true
	peerCb := peer.onStateChange
	peer.mu.Unlock()
	if peerCb != nil {
		peerCb(m.self, true)
	}
	return nil
}

// Disconnect marks id as unreachable on both ends.
func (m *Mock) Disconnect(ctx context.Context, id PeerID) error {
	m.mu.Lock()
	delete(m.connected, id)
	cb := m.onStateChange
	m.mu.Unlock()
	if cb != nil {
		cb(id, false)
	}

	m.mesh.mu.Lock()
	peer, ok := m.mesh.nodes[id]
	m.mesh.mu.Unlock()
	if ok {
		peer.mu.Lock()
		delete(peer.connected, m.self)
		peerCb := peer.onStateChange
		peer.mu.Unlock()
		if peerCb != nil {
			peerCb(m.self, false)
		}
	}
	return nil
}

// Send delivers data to id's OnBytes callback if id is connected to m.
func (m *Mock) Send(ctx context.Context, id PeerID, data []byte) error {
	m.mu.Lock()
	ok := m.connected[id]
	m.mu.Unlock()
	if !ok {
		return newTransportError("send", id, ErrNotConnected)
	}

	m.mesh.mu.Lock()
	peer, exists := m.mesh.nodes[id]
	m.mesh.mu.Unlock()
	if !exists {
		return newTransportError("send", id, ErrSendFailed)
	}

	peer.mu.Lock()
	cb := peer.onBytes
	peer.mu.Unlock()
	if cb != nil {
		cp := append([]byte(nil), data...)
		cb(m.self, cp)
	}
	return nil
}

// ConnectedPeers returns the ids currently connected to m.
func (m *Mock) ConnectedPeers() []PeerID {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]PeerID, 0, len(m.connected))
	for id, ok := range m.connected {
		if ok {
			out = append(out, id)
		}
	}
	return out
}

func (m *Mock) OnDiscovered(cb func(id PeerID, rssi int)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onDiscovered = cb
}

func (m *Mock) OnStateChange(cb func(id PeerID, connected bool)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onStateChange = cb
}

func (m *Mock) OnBytes(cb func(id PeerID, data []byte)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.onBytes = cb
}

// Discover fires the OnDiscovered callback for id at the given rssi,
// simulating a BLE advertisement.
func (m *Mock) Discover(id PeerID, rssi int) {
	m.mu.Lock()
	cb := m.onDiscovered
	m.mu.Unlock()
	if cb != nil {
		cb(id, rssi)
	}
}
