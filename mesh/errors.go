package mesh

import "errors"

// Send-path input errors, surfaced synchronously to the caller of Send.
var (
	ErrEmptyMessage    = errors.New("mesh: message text is empty")
	ErrTooLong         = errors.New("mesh: message text exceeds maximum length")
	ErrUnknownPeer     = errors.New("mesh: unknown peer")
	ErrNoSharedSecret  = errors.New("mesh: peer has not completed key exchange")
	ErrEngineClosed    = errors.New("mesh: engine is closed")
)
