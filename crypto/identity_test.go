package crypto

import "testing"

type memIdentityStore struct {
	pub, priv [32]byte
	has       bool
}

func (m *memIdentityStore) LoadIdentity() (public, private [32]byte, ok bool, err error) {
	return m.pub, m.priv, m.has, nil
}

func (m *memIdentityStore) StoreIdentity(public, private [32]byte) error {
	m.pub, m.priv, m.has = public, private, true
	return nil
}

func TestLoadOrCreateIdentityGeneratesWhenAbsent(t *testing.T) {
	store := &memIdentityStore{}

	id, err := LoadOrCreateIdentity(store)
	if err != nil {
		t.Fatalf("LoadOrCreateIdentity() error: %v", err)
	}
	if isZeroKey(id.PublicKey()) {
		t.Error("generated identity has a zero public key")
	}
	if !store.has {
		t.Error("LoadOrCreateIdentity() did not persist the new identity")
	}
}

func TestLoadOrCreateIdentityIsIdempotent(t *testing.T) {
	store := &memIdentityStore{}

	first, err := LoadOrCreateIdentity(store)
	if err != nil {
		t.Fatalf("first LoadOrCreateIdentity() error: %v", err)
	}

	second, err := LoadOrCreateIdentity(store)
	if err != nil {
		t.Fatalf("second LoadOrCreateIdentity() error: %v", err)
	}

	if first.PublicKey() != second.PublicKey() {
		t.Error("second call against the same store produced a different identity")
	}
}

func TestLoadOrCreateIdentityRejectsInconsistentStorage(t *testing.T) {
	store := &memIdentityStore{has: true}
	store.pub[0] = 0xff // does not match the public key derived from the private key below
	store.priv[0] = 0x01

	if _, err := LoadOrCreateIdentity(store); err == nil {
		t.Error("expected an error for a public key that does not match the stored private key")
	}
}
