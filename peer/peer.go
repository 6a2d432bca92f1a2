package peer

import "time"

// ID is the opaque transport-layer address used to reach a peer. It is
// stable for the duration of one BLE connection but may change across
// reconnects of the same underlying identity.
type ID string

// SenderID is the 8-byte content-addressed identifier derived from the
// SHA-512 of a peer's identity public key (see crypto.DeriveSenderID).
type SenderID [8]byte

// Stage names the position of a peer in the discovery/trust state machine
// described in the component design: Discovered -> Connected ->
// KeysExchanged -> Verified.
type Stage uint8

const (
	StageDiscovered Stage = iota
	StageConnected
	StageKeysExchanged
	StageVerified
)

func (s Stage) String() string {
	switch s {
	case StageDiscovered:
		return "discovered"
	case StageConnected:
		return "connected"
	case StageKeysExchanged:
		return "keys_exchanged"
	case StageVerified:
		return "verified"
	default:
		return "unknown"
	}
}

// cryptoState distinguishes whether identity-key material has been bound
// for a peer. It replaces the per-field null sentinels the source used for
// public_key/shared_secret with a small sum type whose invariant
// (shared secret present iff public key present) holds by construction.
type cryptoState uint8

const (
	cryptoNone cryptoState = iota
	cryptoKeyed
)

// crypto holds the key-exchange state for one peer.
type crypto struct {
	state        cryptoState
	publicKey    [32]byte
	sharedSecret [32]byte
	senderID     SenderID
}

func (c crypto) PublicKey() ([32]byte, bool) {
	if c.state != cryptoKeyed {
		return [32]byte{}, false
	}
	return c.publicKey, true
}

func (c crypto) SharedSecret() ([32]byte, bool) {
	if c.state != cryptoKeyed {
		return [32]byte{}, false
	}
	return c.sharedSecret, true
}

// Record is one entry of the peer table. Record is returned by value from
// Snapshot so callers cannot mutate table state through it; all mutation
// happens through Table's methods.
type Record struct {
	ID         ID
	PublicKey  [32]byte
	HasKey     bool
	SenderID   SenderID
	Connected  bool
	Verified   bool
	RSSI       int
	LastSeen   time.Time
	Discovered time.Time
}

// Stage reports the record's position in the discovery/trust state
// machine.
func (r Record) Stage() Stage {
	switch {
	case r.Verified:
		return StageVerified
	case r.HasKey:
		return StageKeysExchanged
	case r.Connected:
		return StageConnected
	default:
		return StageDiscovered
	}
}

// entry is the table's internal, mutable representation of a peer.
type entry struct {
	id         ID
	crypto     crypto
	connected  bool
	verified   bool
	rssi       int
	lastSeen   time.Time
	discovered time.Time
}

func (e *entry) snapshot() Record {
	pub, hasKey := e.crypto.PublicKey()
	return Record{
		ID:         e.id,
		PublicKey:  pub,
		HasKey:     hasKey,
		SenderID:   e.crypto.senderID,
		Connected:  e.connected,
		Verified:   e.verified,
		RSSI:       e.rssi,
		LastSeen:   e.lastSeen,
		Discovered: e.discovered,
	}
}
