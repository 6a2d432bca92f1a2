package crypto

import (
	"crypto/subtle"
	"errors"
	"runtime"
)

// SecureWipe overwrites data with zeros using an operation the compiler
// cannot optimize away. Returns an error if data is nil.
func SecureWipe(data []byte) error {
	if data == nil {
		return errors.New("crypto: cannot wipe nil data")
	}

	zeros := make([]byte, len(data))
	subtle.ConstantTimeCompare(data, zeros)
	copy(data, zeros)

	runtime.KeepAlive(data)
	runtime.KeepAlive(zeros)

	return nil
}

// ZeroBytes erases a byte slice, ignoring the (only possible on nil)
// error from SecureWipe.
func ZeroBytes(data []byte) {
	_ = SecureWipe(data)
}

// WipeKeyPair securely erases a keypair's private key. Call when a
// KeyPair is no longer needed, e.g. on engine shutdown.
func WipeKeyPair(kp *KeyPair) error {
	if kp == nil {
		return errors.New("crypto: cannot wipe nil KeyPair")
	}
	return SecureWipe(kp.Private[:])
}
