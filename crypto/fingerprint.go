package crypto

import (
	"crypto/sha512"
	"crypto/subtle"
	"encoding/hex"
	"strings"
)

// FingerprintLength is the number of hex characters a fingerprint
// renders to: the first 16 bytes of SHA-512(publicKey).
const FingerprintLength = 32

// Fingerprint renders a public key as the first 32 hex characters of its
// SHA-512 digest, for QR-code display and out-of-band verification.
func Fingerprint(publicKey [32]byte) string {
	sum := sha512.Sum512(publicKey[:])
	return hex.EncodeToString(sum[:])[:FingerprintLength]
}

// VerifyFingerprint reports whether a scanned fingerprint string matches
// the fingerprint of peerPub. Comparison is case-insensitive,
// whitespace-trimmed, and constant-time in the digest bytes to avoid
// leaking a partial match through timing.
func VerifyFingerprint(scanned string, peerPub [32]byte) bool {
	scanned = strings.ToLower(strings.TrimSpace(scanned))
	want := Fingerprint(peerPub)

	if len(scanned) != len(want) {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(scanned), []byte(want)) == 1
}

// SenderIDSize is the wire width of a SenderID: the first 8 bytes of
// SHA-512(publicKey).
const SenderIDSize = 8

// DeriveSenderID computes the 8-byte content-addressed identifier used
// inside envelopes for routing without exposing the full public key.
//
// The source material this protocol was distilled from derived sender_id
// from SHA-512 of the public key in one service but documented SHA-256 in
// another; this implementation standardizes on SHA-512 truncated to 8
// bytes, matching Fingerprint's hash choice, so both derivations share one
// digest computation path.
func DeriveSenderID(publicKey [32]byte) [SenderIDSize]byte {
	sum := sha512.Sum512(publicKey[:])
	var id [SenderIDSize]byte
	copy(id[:], sum[:SenderIDSize])
	return id
}
