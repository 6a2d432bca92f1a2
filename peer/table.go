package peer

import (
	"errors"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// ErrPeerNotFound is returned when an operation names a peer ID absent
// from the table.
var ErrPeerNotFound = errors.New("peer not found")

// KeyAgreer computes the ECDH shared secret between the local identity and
// a peer's public key. crypto.Identity implements this.
type KeyAgreer interface {
	Agree(peerPublicKey [32]byte) ([32]byte, error)
}

// SenderIDDeriver derives the 8-byte content-addressed SenderID from an
// identity public key. crypto.DeriveSenderID implements this signature.
type SenderIDDeriver func(publicKey [32]byte) [8]byte

// TrustStore persists a peer's verified flag across restarts. Table calls
// it from SetVerified; a nil TrustStore makes verification in-memory only.
type TrustStore interface {
	StoreTrust(id ID, verified bool) error
}

// TimeProvider abstracts time for deterministic tests.
type TimeProvider interface {
	Now() time.Time
}

type realTime struct{}

func (realTime) Now() time.Time { return time.Now() }

// Table is the authoritative in-memory directory of known peers. All
// mutation happens through its methods; callers observe state only
// through immutable Record snapshots.
type Table struct {
	mu    sync.RWMutex
	peers map[ID]*entry

	agree    KeyAgreer
	deriveID SenderIDDeriver
	trust    TrustStore
	time     TimeProvider
}

// Option configures a Table at construction.
type Option func(*Table)

// WithTrustStore installs a persistence sink for verified-flag changes.
func WithTrustStore(store TrustStore) Option {
	return func(t *Table) { t.trust = store }
}

// WithTimeProvider overrides the table's time source, for tests.
func WithTimeProvider(tp TimeProvider) Option {
	return func(t *Table) {
		if tp != nil {
			t.time = tp
		}
	}
}

// NewTable creates an empty peer table. agree performs Curve25519 key
// agreement against the local identity's private key; deriveID computes a
// public key's SenderID.
func NewTable(agree KeyAgreer, deriveID SenderIDDeriver, opts ...Option) *Table {
	t := &Table{
		peers:    make(map[ID]*entry),
		agree:    agree,
		deriveID: deriveID,
		time:     realTime{},
	}
	for _, opt := range opts {
		opt(t)
	}
	return t
}

func (t *Table) getOrCreate(id ID) *entry {
	e, ok := t.peers[id]
	if !ok {
		now := t.time.Now()
		e = &entry{id: id, discovered: now, lastSeen: now}
		t.peers[id] = e
	}
	return e
}

// UpsertDiscovered creates the peer record if absent and refreshes its
// liveness fields (RSSI, last-seen timestamp).
func (t *Table) UpsertDiscovered(id ID, rssi int) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.getOrCreate(id)
	e.rssi = rssi
	e.lastSeen = t.time.Now()

	logrus.WithFields(logrus.Fields{
		"function": "UpsertDiscovered",
		"peer":     id,
		"rssi":     rssi,
	}).Debug("peer discovered or refreshed")
}

// SetConnected updates the peer's transport-level liveness. connected may
// transition in either direction; it is the only field of the state
// machine with a backward transition.
func (t *Table) SetConnected(id ID, connected bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	e := t.getOrCreate(id)
	e.connected = connected
	e.lastSeen = t.time.Now()

	logrus.WithFields(logrus.Fields{
		"function":  "SetConnected",
		"peer":      id,
		"connected": connected,
	}).Info("peer connection state changed")
}

// BindPublicKey records a peer's identity public key once it has arrived
// in-band, and derives the shared secret via key agreement. A second call
// with the same key is a no-op; a call with a different key replaces the
// binding and clears verified (trust must be re-established for the new
// key).
func (t *Table) BindPublicKey(id ID, peerPub [32]byte) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if e, ok := t.peers[id]; ok && e.crypto.state == cryptoKeyed && e.crypto.publicKey == peerPub {
		return nil
	}

	shared, err := t.agree.Agree(peerPub)
	if err != nil {
		return err
	}

	e := t.getOrCreate(id)

	keyChanged := e.crypto.state == cryptoKeyed && e.crypto.publicKey != peerPub

	e.crypto = crypto{
		state:        cryptoKeyed,
		publicKey:    peerPub,
		sharedSecret: shared,
		senderID:     t.deriveID(peerPub),
	}
	if keyChanged {
		e.verified = false
		if t.trust != nil {
			_ = t.trust.StoreTrust(id, false)
		}
	}

	logrus.WithFields(logrus.Fields{
		"function":    "BindPublicKey",
		"peer":        id,
		"key_changed": keyChanged,
	}).Info("bound peer public key")

	return nil
}

// SetVerified sets the peer's trust flag and persists it via the
// configured TrustStore, if any. Setting verified=true when no public key
// is bound is a caller error and is silently ignored, matching the
// invariant that verified may be true only alongside a bound key.
func (t *Table) SetVerified(id ID, verified bool) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	e, ok := t.peers[id]
	if !ok {
		return ErrPeerNotFound
	}
	if verified && e.crypto.state != cryptoKeyed {
		return nil
	}

	e.verified = verified
	if t.trust != nil {
		if err := t.trust.StoreTrust(id, verified); err != nil {
			return err
		}
	}
	return nil
}

// LookupBySenderID scans bound peers for one whose derived SenderID
// matches, used to resolve an inbound envelope's sender_id to a known
// peer.
func (t *Table) LookupBySenderID(sender SenderID) (ID, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	for id, e := range t.peers {
		if e.crypto.state == cryptoKeyed && e.crypto.senderID == sender {
			return id, true
		}
	}
	return "", false
}

// SharedSecret returns the shared secret bound for a peer, if any. Unlike
// Snapshot, this exposes secret key material and is intended for the
// message engine's internal use only.
func (t *Table) SharedSecret(id ID) ([32]byte, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.peers[id]
	if !ok {
		return [32]byte{}, false
	}
	return e.crypto.SharedSecret()
}

// Get returns an immutable snapshot of one peer's state.
func (t *Table) Get(id ID) (Record, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	e, ok := t.peers[id]
	if !ok {
		return Record{}, false
	}
	return e.snapshot(), true
}

// Snapshot returns immutable copies of every known peer.
func (t *Table) Snapshot() []Record {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Record, 0, len(t.peers))
	for _, e := range t.peers {
		out = append(out, e.snapshot())
	}
	return out
}

// ConnectedIDs returns the IDs of every peer currently marked connected,
// used by the message engine's flood-relay fan-out.
func (t *Table) ConnectedIDs() []ID {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]ID, 0, len(t.peers))
	for id, e := range t.peers {
		if e.connected {
			out = append(out, id)
		}
	}
	return out
}

// Remove deletes a peer record on explicit user command. Peers are never
// removed on mere disconnect.
func (t *Table) Remove(id ID) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.peers, id)

	logrus.WithFields(logrus.Fields{
		"function": "Remove",
		"peer":     id,
	}).Info("peer removed")
}
