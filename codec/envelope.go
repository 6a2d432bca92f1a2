package codec

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/meshrelay/beacon/limits"
)

// Version is the only envelope version this codec knows how to decode.
const Version = 1

const (
	// MaxNonceLen bounds the nonce field so a corrupt length prefix
	// cannot force an oversized allocation.
	MaxNonceLen = limits.MaxNonceLen
	// MaxTagLen bounds the authentication tag field for the same reason.
	MaxTagLen = limits.MaxTagLen
	// MaxPayloadLen bounds the ciphertext field at 10 MiB.
	MaxPayloadLen = limits.MaxPayloadLen
)

// fixedHeaderLen covers version through ttl: everything before the first
// length-prefixed field.
const fixedHeaderLen = 1 + 16 + 8 + 8 + 8 + 1

// minHeaderLen additionally requires the nonce_len prefix to be present.
const minHeaderLen = fixedHeaderLen + 2

// Envelope is the decoded form of a mesh message on the wire.
type Envelope struct {
	Version      byte
	MessageID    [16]byte
	SenderID     [8]byte
	RecipientID  [8]byte
	Timestamp    uint64
	TTL          uint8
	Nonce        []byte
	Tag          []byte
	Ciphertext   []byte
}

// Serialize encodes an envelope to its wire form. It fails only if the
// envelope violates a structural invariant: unsupported version, or a
// field exceeding its maximum wire length.
func Serialize(e *Envelope) ([]byte, error) {
	if e.Version != Version {
		return nil, &Error{Kind: KindUnsupportedVersion, Msg: fmt.Sprintf("codec: unsupported version %d", e.Version)}
	}
	if err := limits.ValidateNonce(e.Nonce); err != nil && errors.Is(err, limits.ErrMessageTooLarge) {
		return nil, &Error{Kind: KindFieldTooLarge, Msg: "codec: nonce exceeds maximum length"}
	}
	if err := limits.ValidateTag(e.Tag); err != nil && errors.Is(err, limits.ErrMessageTooLarge) {
		return nil, &Error{Kind: KindFieldTooLarge, Msg: "codec: tag exceeds maximum length"}
	}
	if err := limits.ValidatePayload(e.Ciphertext); err != nil && errors.Is(err, limits.ErrMessageTooLarge) {
		return nil, &Error{Kind: KindFieldTooLarge, Msg: "codec: ciphertext exceeds maximum length"}
	}

	total := fixedHeaderLen + 2 + len(e.Nonce) + 2 + len(e.Tag) + 4 + len(e.Ciphertext)
	out := make([]byte, total)

	offset := 0
	out[offset] = e.Version
	offset++
	copy(out[offset:], e.MessageID[:])
	offset += len(e.MessageID)
	copy(out[offset:], e.SenderID[:])
	offset += len(e.SenderID)
	copy(out[offset:], e.RecipientID[:])
	offset += len(e.RecipientID)
	binary.BigEndian.PutUint64(out[offset:], e.Timestamp)
	offset += 8
	out[offset] = e.TTL
	offset++

	binary.BigEndian.PutUint16(out[offset:], uint16(len(e.Nonce)))
	offset += 2
	copy(out[offset:], e.Nonce)
	offset += len(e.Nonce)

	binary.BigEndian.PutUint16(out[offset:], uint16(len(e.Tag)))
	offset += 2
	copy(out[offset:], e.Tag)
	offset += len(e.Tag)

	binary.BigEndian.PutUint32(out[offset:], uint32(len(e.Ciphertext)))
	offset += 4
	copy(out[offset:], e.Ciphertext)

	return out, nil
}

// Deserialize decodes an envelope from its wire form, validating every
// length prefix against the remaining input and against this codec's
// field maximums, and rejecting any trailing bytes once every declared
// field has been consumed.
func Deserialize(data []byte) (*Envelope, error) {
	if len(data) < minHeaderLen {
		return nil, &Error{Kind: KindShortHeader, Msg: "codec: input shorter than fixed header"}
	}
	if err := limits.ValidateEnvelopeBuffer(data); err != nil && errors.Is(err, limits.ErrMessageTooLarge) {
		return nil, &Error{Kind: KindFieldTooLarge, Msg: "codec: input exceeds maximum envelope buffer size"}
	}

	offset := 0
	version := data[offset]
	offset++
	if version != Version {
		return nil, &Error{Kind: KindUnsupportedVersion, Msg: fmt.Sprintf("codec: unsupported version %d", version)}
	}

	e := &Envelope{Version: version}
	copy(e.MessageID[:], data[offset:offset+16])
	offset += 16
	copy(e.SenderID[:], data[offset:offset+8])
	offset += 8
	copy(e.RecipientID[:], data[offset:offset+8])
	offset += 8
	e.Timestamp = binary.BigEndian.Uint64(data[offset : offset+8])
	offset += 8
	e.TTL = data[offset]
	offset++

	nonceLen := binary.BigEndian.Uint16(data[offset : offset+2])
	offset += 2
	if err := limits.ValidateNonce(make([]byte, nonceLen)); err != nil && errors.Is(err, limits.ErrMessageTooLarge) {
		return nil, &Error{Kind: KindFieldTooLarge, Msg: "codec: nonce_len exceeds maximum length"}
	}
	if offset+int(nonceLen) > len(data) {
		return nil, &Error{Kind: KindLengthOverrun, Msg: "codec: nonce reaches past end of input"}
	}
	e.Nonce = append([]byte(nil), data[offset:offset+int(nonceLen)]...)
	offset += int(nonceLen)

	if offset+2 > len(data) {
		return nil, &Error{Kind: KindShortHeader, Msg: "codec: input ends before tag_len"}
	}
	tagLen := binary.BigEndian.Uint16(data[offset : offset+2])
	offset += 2
	if err := limits.ValidateTag(make([]byte, tagLen)); err != nil && errors.Is(err, limits.ErrMessageTooLarge) {
		return nil, &Error{Kind: KindFieldTooLarge, Msg: "codec: tag_len exceeds maximum length"}
	}
	if offset+int(tagLen) > len(data) {
		return nil, &Error{Kind: KindLengthOverrun, Msg: "codec: tag reaches past end of input"}
	}
	e.Tag = append([]byte(nil), data[offset:offset+int(tagLen)]...)
	offset += int(tagLen)

	if offset+4 > len(data) {
		return nil, &Error{Kind: KindShortHeader, Msg: "codec: input ends before payload_len"}
	}
	payloadLen := binary.BigEndian.Uint32(data[offset : offset+4])
	offset += 4
	// probeLen is clamped so a lying payload_len (up to the full uint32
	// range) can never force an allocation larger than the real limit
	// plus one, regardless of how large the declared length claims to be.
	probeLen := payloadLen
	if probeLen > uint32(MaxPayloadLen)+1 {
		probeLen = uint32(MaxPayloadLen) + 1
	}
	if err := limits.ValidatePayload(make([]byte, probeLen)); err != nil && errors.Is(err, limits.ErrMessageTooLarge) {
		return nil, &Error{Kind: KindFieldTooLarge, Msg: "codec: payload_len exceeds maximum length"}
	}
	if offset+int(payloadLen) > len(data) {
		return nil, &Error{Kind: KindLengthOverrun, Msg: "codec: ciphertext reaches past end of input"}
	}
	e.Ciphertext = append([]byte(nil), data[offset:offset+int(payloadLen)]...)
	offset += int(payloadLen)

	if offset != len(data) {
		return nil, &Error{Kind: KindLengthMismatch, Msg: "codec: trailing bytes after ciphertext"}
	}

	return e, nil
}
