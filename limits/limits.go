package limits

import (
	"errors"
	"fmt"
	"unicode/utf8"
)

const (
	// MaxTextLength is the largest message body the engine accepts from
	// an application caller, in Unicode scalar values.
	MaxTextLength = 500

	// MaxNonceLen bounds the wire envelope's nonce field.
	MaxNonceLen = 1024

	// MaxTagLen bounds the wire envelope's authentication tag field.
	MaxTagLen = 1024

	// MaxPayloadLen bounds the wire envelope's ciphertext field.
	MaxPayloadLen = 10 * 1024 * 1024

	// fixedEnvelopeHeader covers every field up to and including the
	// three length prefixes: version(1) + message_id(16) + sender_id(8)
	// + recipient_id(8) + timestamp(8) + ttl(1) + nonce_len(2) +
	// tag_len(2) + payload_len(4).
	fixedEnvelopeHeader = 1 + 16 + 8 + 8 + 8 + 1 + 2 + 2 + 4

	// MaxEnvelopeBuffer is the largest byte buffer that could possibly
	// decode to a valid envelope, used to reject an oversized input
	// before the codec allocates anything from it.
	MaxEnvelopeBuffer = fixedEnvelopeHeader + MaxNonceLen + MaxTagLen + MaxPayloadLen
)

var (
	// ErrMessageEmpty indicates an empty message was provided.
	ErrMessageEmpty = errors.New("empty message")

	// ErrMessageTooLarge indicates a message exceeds its maximum size.
	ErrMessageTooLarge = errors.New("message too large")
)

// ValidateMessageSize validates data against an arbitrary caller
// supplied maximum size.
func ValidateMessageSize(data []byte, maxSize int) error {
	if len(data) == 0 {
		return ErrMessageEmpty
	}
	if len(data) > maxSize {
		return fmt.Errorf("%w: size %d exceeds limit %d", ErrMessageTooLarge, len(data), maxSize)
	}
	return nil
}

// ValidateMessageText validates a message body's length in Unicode
// scalar values against MaxTextLength.
func ValidateMessageText(text string) error {
	if text == "" {
		return ErrMessageEmpty
	}
	if n := utf8.RuneCountInString(text); n > MaxTextLength {
		return fmt.Errorf("%w: text length %d exceeds limit %d runes", ErrMessageTooLarge, n, MaxTextLength)
	}
	return nil
}

// ValidateNonce validates an envelope's nonce field against MaxNonceLen.
func ValidateNonce(nonce []byte) error {
	if len(nonce) == 0 {
		return ErrMessageEmpty
	}
	if len(nonce) > MaxNonceLen {
		return fmt.Errorf("%w: nonce size %d exceeds limit %d", ErrMessageTooLarge, len(nonce), MaxNonceLen)
	}
	return nil
}

// ValidateTag validates an envelope's authentication tag field against
// MaxTagLen.
func ValidateTag(tag []byte) error {
	if len(tag) == 0 {
		return ErrMessageEmpty
	}
	if len(tag) > MaxTagLen {
		return fmt.Errorf("%w: tag size %d exceeds limit %d", ErrMessageTooLarge, len(tag), MaxTagLen)
	}
	return nil
}

// ValidatePayload validates an envelope's ciphertext field against
// MaxPayloadLen. Unlike the other validators, an empty payload is
// permitted: a zero-length ciphertext is not otherwise meaningful for
// this protocol, but the length check alone is what guards against
// memory exhaustion.
func ValidatePayload(payload []byte) error {
	if len(payload) > MaxPayloadLen {
		return fmt.Errorf("%w: payload size %d exceeds limit %d", ErrMessageTooLarge, len(payload), MaxPayloadLen)
	}
	return nil
}

// ValidateEnvelopeBuffer validates a received byte buffer against
// MaxEnvelopeBuffer before the codec attempts to parse it.
func ValidateEnvelopeBuffer(data []byte) error {
	if len(data) == 0 {
		return ErrMessageEmpty
	}
	if len(data) > MaxEnvelopeBuffer {
		return fmt.Errorf("%w: buffer size %d exceeds limit %d", ErrMessageTooLarge, len(data), MaxEnvelopeBuffer)
	}
	return nil
}
