package crypto

import "golang.org/x/crypto/nacl/secretbox"

// Open authenticates and decrypts a Sealed payload under key. It returns
// (nil, false) on any authentication failure without distinguishing the
// cause externally, matching the spec's decrypt contract: bad key,
// truncated ciphertext, and tampered tag are all indistinguishable to the
// caller.
func Open(sealed *Sealed, key [32]byte) ([]byte, bool) {
	if sealed == nil {
		return nil, false
	}

	combined := make([]byte, TagSize+len(sealed.Ciphertext))
	copy(combined[:TagSize], sealed.Tag[:])
	copy(combined[TagSize:], sealed.Ciphertext)

	return secretbox.Open(nil, combined, &sealed.Nonce, &key)
}
