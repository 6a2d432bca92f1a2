// Package codec implements the wire format for mesh message envelopes.
//
// An Envelope is the unit that travels over a Transport: a fixed header
// followed by three length-prefixed fields (nonce, tag, ciphertext). All
// multi-byte integers are big-endian.
//
// Format:
//
//	version      (1 byte)
//	message_id   (16 bytes)
//	sender_id    (8 bytes)
//	recipient_id (8 bytes)
//	timestamp    (8 bytes, big-endian uint64, unix millis)
//	ttl          (1 byte)
//	nonce_len    (2 bytes, big-endian uint16)
//	nonce        (nonce_len bytes)
//	tag_len      (2 bytes, big-endian uint16)
//	tag          (tag_len bytes)
//	payload_len  (4 bytes, big-endian uint32)
//	ciphertext   (payload_len bytes)
//
// Example:
//
//	data, err := codec.Serialize(env)
//	...
//	env, err := codec.Deserialize(data)
package codec
