// Package limits provides centralized wire-size limits and validation
// functions for the mesh messaging protocol. This ensures consistent
// size enforcement across the codec and the message engine.
//
// # Size Hierarchy
//
//   - MaxTextLength (500 Unicode scalar values): the largest message body
//     the engine will accept from an application caller, measured in
//     runes rather than bytes so multi-byte scripts are not penalized.
//
//   - MaxNonceLen / MaxTagLen (1024 bytes each): the wire envelope's
//     AEAD fields. The actual NaCl secretbox nonce and tag are fixed at
//     24 and 16 bytes; these ceilings exist to bound an attacker's
//     length-prefix value rather than to describe normal traffic.
//
//   - MaxPayloadLen (10 MiB): the ciphertext field, sized generously
//     above any plausible text message to leave room for future
//     attachment-style payloads without a wire format change.
//
//   - MaxEnvelopeBuffer: the absolute size a received byte buffer may
//     be before the codec will even attempt to parse it, computed from
//     the other limits. This rejects a hostile oversized buffer in one
//     comparison instead of allocating into it.
//
// # Validation Functions
//
// Each validation function checks for empty input and size limit
// violations, returning ErrMessageEmpty or a wrapped ErrMessageTooLarge.
// ValidatePayload is the exception to the empty check: it accepts an
// empty payload and only enforces the size limit.
package limits
