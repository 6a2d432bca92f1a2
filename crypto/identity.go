package crypto

import (
	"fmt"
	"sync"

	"github.com/sirupsen/logrus"
)

// IdentityStore is the narrow persistence capability Identity needs: load
// a previously saved keypair, or save a newly generated one. A concrete
// storage.Store satisfies this interface structurally.
type IdentityStore interface {
	LoadIdentity() (public, private [32]byte, ok bool, err error)
	StoreIdentity(public, private [32]byte) error
}

// Identity owns the local node's long-lived Curve25519 keypair. It is
// created once per device and never rotates without explicit user action.
type Identity struct {
	mu  sync.RWMutex
	key *KeyPair
}

// LoadOrCreateIdentity loads a persisted identity from store, or
// generates and persists a new one if none exists. Safe to call once at
// startup; the operation is idempotent in the sense that a second call
// against the same store returns the same identity.
func LoadOrCreateIdentity(store IdentityStore) (*Identity, error) {
	pub, priv, ok, err := store.LoadIdentity()
	if err != nil {
		return nil, fmt.Errorf("crypto: loading identity: %w", err)
	}

	if ok {
		kp, err := FromPrivateKey(priv)
		if err != nil {
			return nil, fmt.Errorf("crypto: reconstructing persisted identity: %w", err)
		}
		if kp.Public != pub {
			return nil, fmt.Errorf("crypto: persisted identity is inconsistent: stored public key does not match derived key")
		}

		logrus.WithFields(logFields("LoadOrCreateIdentity")).Info("loaded persisted identity")
		return &Identity{key: kp}, nil
	}

	kp, err := GenerateKeyPair()
	if err != nil {
		return nil, fmt.Errorf("crypto: generating identity: %w", err)
	}
	if err := store.StoreIdentity(kp.Public, kp.Private); err != nil {
		return nil, fmt.Errorf("crypto: persisting new identity: %w", err)
	}

	logrus.WithFields(logFields("LoadOrCreateIdentity")).Info("generated and persisted new identity")
	return &Identity{key: kp}, nil
}

// PublicKey returns the identity's public key.
func (id *Identity) PublicKey() [32]byte {
	id.mu.RLock()
	defer id.mu.RUnlock()
	return id.key.Public
}

// Agree performs Curve25519 key agreement between this identity's private
// key and a peer's public key. Commutative across peers: id1.Agree(id2.PublicKey())
// == id2.Agree(id1.PublicKey()).
func (id *Identity) Agree(peerPublicKey [32]byte) ([32]byte, error) {
	id.mu.RLock()
	priv := id.key.Private
	id.mu.RUnlock()

	return DeriveSharedSecret(peerPublicKey, priv)
}

// Fingerprint renders this identity's public key fingerprint.
func (id *Identity) Fingerprint() string {
	return Fingerprint(id.PublicKey())
}

// SenderID derives this identity's SenderID.
func (id *Identity) SenderID() [SenderIDSize]byte {
	return DeriveSenderID(id.PublicKey())
}

// Close securely wipes the identity's private key. The Identity must not
// be used afterward.
func (id *Identity) Close() error {
	id.mu.Lock()
	defer id.mu.Unlock()
	return WipeKeyPair(id.key)
}
