package storage

import (
	"time"

	"github.com/meshrelay/beacon/peer"
)

// Direction records which end of a conversation a Message belongs to.
type Direction uint8

const (
	DirectionSent Direction = iota
	DirectionReceived
)

func (d Direction) String() string {
	if d == DirectionReceived {
		return "received"
	}
	return "sent"
}

// Status is the delivery state of a sent Message. It has no meaning for
// received messages.
type Status uint8

const (
	StatusPending Status = iota
	StatusDelivered
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusDelivered:
		return "delivered"
	case StatusFailed:
		return "failed"
	default:
		return "pending"
	}
}

// Message is the persisted, decrypted form of one mesh message.
type Message struct {
	ID        [16]byte
	PeerID    peer.ID
	Text      string
	Timestamp int64
	Direction Direction
	Status    Status
}

// Store is the persistence capability the mesh engine is built against.
// Implementations own their own durability and concurrency guarantees;
// the engine treats every call as potentially blocking.
type Store interface {
	StoreIdentity(public, private [32]byte) error
	LoadIdentity() (public, private [32]byte, ok bool, err error)

	StoreMessage(msg Message) error
	LoadMessages(id peer.ID) ([]Message, error)

	StoreDuplicateCache(entries map[[16]byte]time.Time) error
	LoadDuplicateCache() (map[[16]byte]time.Time, error)

	StoreTrust(id peer.ID, verified bool) error
	LoadTrust(id peer.ID) (verified bool, err error)
}
