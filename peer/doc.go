// Package peer implements the directory of known mesh peers: their
// transport-level liveness, cryptographic key-exchange state, and trust
// decisions.
//
// A Table is keyed by the transport-layer PeerId (stable for the duration
// of one BLE connection, but not necessarily across reconnects). Each
// entry tracks whether the peer has been discovered, connected, exchanged
// identity keys, and been verified out-of-band via fingerprint comparison.
//
// Example:
//
//	table := peer.NewTable(identity, crypto.DeriveSenderID)
//	table.UpsertDiscovered("AA:BB:CC:DD:EE:FF", -62)
//	table.SetConnected("AA:BB:CC:DD:EE:FF", true)
//	table.BindPublicKey("AA:BB:CC:DD:EE:FF", theirPub)
package peer
