package crypto

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/curve25519"
	"golang.org/x/crypto/nacl/box"
)

// ErrZeroKey indicates a key consisting entirely of zero bytes was
// rejected; a real Curve25519 private key drawn from the OS RNG will
// essentially never collide with the zero key, so its presence signals
// corrupted or uninitialized storage.
var ErrZeroKey = errors.New("crypto: zero key rejected")

// KeyPair is a Curve25519 keypair used for identity and key agreement.
type KeyPair struct {
	Public  [32]byte
	Private [32]byte
}

// GenerateKeyPair creates a new random Curve25519 keypair using the OS
// RNG.
func GenerateKeyPair() (*KeyPair, error) {
	publicKey, privateKey, err := box.GenerateKey(rand.Reader)
	if err != nil {
		return nil, err
	}
	return &KeyPair{Public: *publicKey, Private: *privateKey}, nil
}

// FromPrivateKey reconstructs a keypair from a persisted private key,
// deriving the public key via the Curve25519 base point. Used when
// loading an identity from storage.
func FromPrivateKey(private [32]byte) (*KeyPair, error) {
	if isZeroKey(private) {
		return nil, ErrZeroKey
	}

	public, err := curve25519.X25519(private[:], curve25519.Basepoint)
	if err != nil {
		return nil, err
	}

	kp := &KeyPair{Private: private}
	copy(kp.Public[:], public)
	return kp, nil
}

func isZeroKey(key [32]byte) bool {
	for _, b := range key {
		if b != 0 {
			return false
		}
	}
	return true
}
