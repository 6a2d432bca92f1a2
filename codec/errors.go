package codec

// ErrorKind classifies why Serialize or Deserialize rejected an envelope.
type ErrorKind int

const (
	// KindShortHeader means the input ended before a fixed header field
	// or a length prefix could be read in full.
	KindShortHeader ErrorKind = iota
	// KindUnsupportedVersion means the version byte is not one this
	// codec knows how to decode.
	KindUnsupportedVersion
	// KindLengthOverrun means a declared field length reaches past the
	// end of the input.
	KindLengthOverrun
	// KindLengthMismatch means trailing bytes remain after every
	// declared field has been consumed.
	KindLengthMismatch
	// KindInvalidTTL means the ttl field falls outside its valid range.
	// The wire format's one-byte ttl is always in range; this kind is
	// retained so callers can match on the full taxonomy.
	KindInvalidTTL
	// KindFieldTooLarge means a field exceeds the maximum length this
	// codec accepts for that field.
	KindFieldTooLarge
)

func (k ErrorKind) String() string {
	switch k {
	case KindShortHeader:
		return "short_header"
	case KindUnsupportedVersion:
		return "unsupported_version"
	case KindLengthOverrun:
		return "length_overrun"
	case KindLengthMismatch:
		return "length_mismatch"
	case KindInvalidTTL:
		return "invalid_ttl"
	case KindFieldTooLarge:
		return "field_too_large"
	default:
		return "unknown"
	}
}

// Error reports a codec failure along with its ErrorKind.
type Error struct {
	Kind ErrorKind
	Msg  string
}

func (e *Error) Error() string {
	return e.Msg
}
