// Package crypto implements the cryptographic primitives of the mesh
// messaging engine: identity keypair lifecycle, Curve25519 key agreement,
// authenticated encryption, and fingerprint hashing for out-of-band
// verification.
//
// # Identity
//
// An Identity wraps a long-lived Curve25519 keypair. It is created once
// (on absence of persisted keys) and never rotates without explicit user
// action:
//
//	identity, err := crypto.LoadOrCreateIdentity(store)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println("fingerprint:", identity.Fingerprint())
//
// # Key Agreement
//
// Identity.Agree performs Curve25519 scalar multiplication against a
// peer's public key. It is commutative: two identities that agree against
// each other's public keys derive the same 32-byte shared secret.
//
// # Authenticated Encryption
//
// Seal and Open implement authenticated encryption with a 24-byte nonce
// and 16-byte Poly1305 tag, matching the wire envelope's separate
// nonce/tag/ciphertext fields:
//
//	sealed, err := crypto.Seal(plaintext, sharedSecret)
//	plaintext, ok := crypto.Open(sealed, sharedSecret)
//
// # Fingerprints
//
// Fingerprint renders a public key as 32 hex characters (the truncated
// SHA-512 of the key) for QR-code display and out-of-band verification.
//
// # Thread Safety
//
// Identity is safe for concurrent use. Seal, Open, Fingerprint, and
// VerifyFingerprint keep no shared state and are safe for concurrent use;
// all but Seal, which draws a fresh random nonce, are pure functions.
package crypto
