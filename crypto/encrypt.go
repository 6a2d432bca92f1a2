package crypto

import (
	"crypto/rand"
	"errors"

	"golang.org/x/crypto/nacl/secretbox"
)

// NonceSize and TagSize match the wire envelope's AEAD parameters (see
// codec.Envelope): a 24-byte random nonce and a 16-byte Poly1305 tag.
const (
	NonceSize = 24
	TagSize   = 16
)

// ErrEmptyPlaintext is returned when Seal is asked to encrypt zero bytes.
var ErrEmptyPlaintext = errors.New("crypto: empty plaintext")

// Sealed holds the three independent fields the wire envelope carries for
// one encrypted payload. secretbox.Seal's output is tag||ciphertext; Seal
// splits that so nonce, tag, and ciphertext travel as separate envelope
// fields, and Open reassembles them.
type Sealed struct {
	Nonce      [NonceSize]byte
	Tag        [TagSize]byte
	Ciphertext []byte
}

// Seal encrypts plaintext under key using XSalsa20-Poly1305 with a fresh
// random nonce drawn from the OS RNG for every call, so nonce reuse is
// structurally impossible.
func Seal(plaintext []byte, key [32]byte) (*Sealed, error) {
	if len(plaintext) == 0 {
		return nil, ErrEmptyPlaintext
	}

	var nonce [NonceSize]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return nil, err
	}

	out := secretbox.Seal(nil, plaintext, &nonce, &key)

	sealed := &Sealed{Nonce: nonce}
	copy(sealed.Tag[:], out[:TagSize])
	sealed.Ciphertext = out[TagSize:]

	return sealed, nil
}
