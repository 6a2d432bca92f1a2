// Package transport defines the narrow contract the mesh engine requires
// from a BLE radio implementation.
//
// The engine is agnostic to how bytes actually reach a peer: scanning,
// GATT connection management, characteristic framing, and MTU negotiation
// all live below this interface. The engine assumes only that one Send
// call corresponds to exactly one OnBytes callback at the destination:
// the transport is responsible for reassembling whatever fragmentation
// its radio layer requires into a single atomic delivery.
package transport
