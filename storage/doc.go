// Package storage defines the narrow key-value persistence contract the
// mesh engine requires from its host application, plus a file-backed
// reference implementation.
//
// The engine never depends on a particular storage medium: it stores and
// loads identity keys, message history, duplicate-cache snapshots, and
// peer trust decisions through the Store interface. Binary values are
// opaque to the interface; FileStore happens to encrypt identity
// material at rest behind a versioned header and keep everything else as
// plain JSON with no schema version field, but any implementation
// satisfying Store is interchangeable.
package storage
