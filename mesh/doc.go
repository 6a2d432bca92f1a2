// Package mesh implements the send path, receive path, flood-relay
// decision, retry queue, and observable events of the offline BLE
// messaging engine.
//
// Engine is the orchestration layer: it owns a PeerTable, a
// DuplicateCache, an Identity, and references to a Transport and a
// Store, and serializes every access to its internal state through a
// single executor goroutine. Transport callbacks, user operations, and
// internal timers all funnel through the same inbox.
//
// Example:
//
//	eng := mesh.New(identity, table, cache, tr, store, mesh.DefaultConfig())
//	eng.OnMessage(func(msg storage.Message) { ... })
//	eng.OnStatus(func(id [16]byte, status storage.Status) { ... })
//	eng.Run()
//	defer eng.Close()
//
//	msg, err := eng.Send(peerID, "help needed")
package mesh
