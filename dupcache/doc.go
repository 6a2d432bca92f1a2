// Package dupcache implements time-expiring duplicate-message detection
// for the mesh flood-relay protocol.
//
// A relayed message can reach a peer along more than one path, so every
// inbound envelope is checked against a Cache before it is delivered or
// re-relayed. Entries expire after a fixed window and the cache holds a
// soft capacity, evicting its oldest entries first when that capacity is
// exceeded.
//
// Example:
//
//	cache, err := dupcache.New("/var/lib/mesh/dupcache")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer cache.Close()
//
//	if cache.IsDuplicate(messageID) {
//	    return // already seen, drop
//	}
//	cache.MarkProcessed(messageID)
//
// By default the snapshot lives in a dupcache.dat file under the given
// data directory. Passing WithStore(store) routes the snapshot through
// an external Store (storage.Store satisfies it structurally) instead,
// so the cache persists alongside identities, messages, and trust
// records rather than to its own file.
package dupcache
