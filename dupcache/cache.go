package dupcache

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

// Expiry is how long a message id is remembered before it is eligible
// for pruning.
const Expiry = 300 * time.Second

// SoftCapacity is the entry count above which MarkProcessed evicts the
// oldest entry even if it has not expired yet.
const SoftCapacity = 1000

const sweepInterval = 30 * time.Second

// TimeProvider abstracts wall-clock time so tests can control expiry
// deterministically.
type TimeProvider interface {
	Now() time.Time
}

type realTime struct{}

func (realTime) Now() time.Time { return time.Now() }

// Store is the snapshot persistence capability a Cache can be pointed
// at, satisfied structurally by storage.Store. When set via WithStore,
// it replaces the cache's own dupcache.dat file as the snapshot medium
// so the engine's duplicate cache rides on the same storage backend as
// everything else it persists.
type Store interface {
	StoreDuplicateCache(entries map[[16]byte]time.Time) error
	LoadDuplicateCache() (map[[16]byte]time.Time, error)
}

// Cache is a time-expiring set of 16-byte message ids, safe for
// concurrent use. It runs a background goroutine that periodically
// prunes expired entries; eviction of the oldest entry once the soft
// capacity is exceeded happens in MarkProcessed.
type Cache struct {
	mu       sync.RWMutex
	seen     map[[16]byte]time.Time
	dataDir  string
	saveFile string
	store    Store
	stopChan chan struct{}
	logger   *logrus.Logger
	time     TimeProvider
}

// Option configures a Cache at construction time.
type Option func(*Cache)

// WithTimeProvider overrides the cache's notion of "now". Intended for
// tests.
func WithTimeProvider(tp TimeProvider) Option {
	return func(c *Cache) { c.time = tp }
}

// WithStore routes snapshot persistence through s instead of the
// dataDir-relative dupcache.dat file.
func WithStore(s Store) Option {
	return func(c *Cache) { c.store = s }
}

// New creates a duplicate cache backed by a snapshot file under dataDir.
// Any snapshot found on disk is loaded immediately, discarding entries
// already older than Expiry. A background goroutine is started to sweep
// the cache every 30 seconds.
func New(dataDir string, opts ...Option) (*Cache, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("dupcache: create data directory: %w", err)
	}

	c := &Cache{
		seen:     make(map[[16]byte]time.Time),
		dataDir:  dataDir,
		saveFile: filepath.Join(dataDir, "dupcache.dat"),
		stopChan: make(chan struct{}),
		logger:   logrus.StandardLogger(),
		time:     realTime{},
	}
	for _, opt := range opts {
		opt(c)
	}

	if err := c.load(); err != nil {
		c.logger.WithError(err).Warn("could not load duplicate cache, starting fresh")
	}

	go c.sweepLoop()

	return c, nil
}

// IsDuplicate reports whether id has already been marked processed and
// has not yet expired.
func (c *Cache) IsDuplicate(id [16]byte) bool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	seenAt, ok := c.seen[id]
	if !ok {
		return false
	}
	return c.time.Now().Sub(seenAt) < Expiry
}

// MarkProcessed records id as seen at the current time, then triggers an
// implicit sweep removing every entry older than Expiry. If this pushes
// the cache over its soft capacity, the oldest entry is evicted too.
func (c *Cache) MarkProcessed(id [16]byte) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.seen[id] = c.time.Now()
	c.pruneLocked()

	if len(c.seen) > SoftCapacity {
		c.evictOldestLocked()
	}
}

func (c *Cache) evictOldestLocked() {
	var oldestID [16]byte
	var oldestAt time.Time
	first := true

	for id, seenAt := range c.seen {
		if first || seenAt.Before(oldestAt) {
			oldestID, oldestAt = id, seenAt
			first = false
		}
	}
	if !first {
		delete(c.seen, oldestID)
	}
}

// Prune removes every entry older than Expiry.
func (c *Cache) Prune() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pruneLocked()
}

func (c *Cache) pruneLocked() {
	now := c.time.Now()
	for id, seenAt := range c.seen {
		if now.Sub(seenAt) >= Expiry {
			delete(c.seen, id)
		}
	}
}

// Size returns the current number of tracked entries, expired or not.
func (c *Cache) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.seen)
}

// Clear discards every tracked entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seen = make(map[[16]byte]time.Time)
}

func (c *Cache) sweepLoop() {
	ticker := time.NewTicker(sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Prune()
		case <-c.stopChan:
			return
		}
	}
}

// Close stops the background sweep and persists a final snapshot.
func (c *Cache) Close() error {
	close(c.stopChan)
	return c.save()
}

// load reads the snapshot, discarding entries already older than Expiry
// so a stale snapshot cannot resurrect long-expired ids.
func (c *Cache) load() error {
	if c.store != nil {
		return c.loadFromStore()
	}

	data, err := os.ReadFile(c.saveFile)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("dupcache: read snapshot: %w", err)
	}
	if len(data) < 8 {
		return fmt.Errorf("dupcache: corrupted snapshot: too small")
	}

	count := binary.BigEndian.Uint64(data[0:8])
	offset := 8
	now := c.time.Now()
	loaded := 0

	for i := uint64(0); i < count && offset+24 <= len(data); i++ {
		var id [16]byte
		copy(id[:], data[offset:offset+16])
		seenAtUnix := binary.BigEndian.Uint64(data[offset+16 : offset+24])
		seenAt := time.Unix(int64(seenAtUnix), 0)

		if now.Sub(seenAt) < Expiry {
			c.seen[id] = seenAt
			loaded++
		}
		offset += 24
	}

	c.logger.WithFields(logrus.Fields{
		"total_in_file": count,
		"loaded":        loaded,
	}).Info("duplicate cache snapshot loaded")

	return nil
}

// loadFromStore reads the snapshot through c.store, applying the same
// expiry filter as the file-backed path.
func (c *Cache) loadFromStore() error {
	entries, err := c.store.LoadDuplicateCache()
	if err != nil {
		return fmt.Errorf("dupcache: load snapshot from store: %w", err)
	}

	now := c.time.Now()
	loaded := 0
	for id, seenAt := range entries {
		if now.Sub(seenAt) < Expiry {
			c.seen[id] = seenAt
			loaded++
		}
	}

	c.logger.WithFields(logrus.Fields{
		"total_in_store": len(entries),
		"loaded":         loaded,
	}).Info("duplicate cache snapshot loaded from store")

	return nil
}

// save writes the current entry set to the snapshot medium: the
// injected Store if one was configured via WithStore, otherwise the
// dataDir-relative snapshot file.
func (c *Cache) save() error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.store != nil {
		return c.store.StoreDuplicateCache(c.seen)
	}

	buf := make([]byte, 8+len(c.seen)*24)
	binary.BigEndian.PutUint64(buf[0:8], uint64(len(c.seen)))

	offset := 8
	for id, seenAt := range c.seen {
		copy(buf[offset:offset+16], id[:])
		binary.BigEndian.PutUint64(buf[offset+16:offset+24], uint64(seenAt.Unix()))
		offset += 24
	}

	tmpFile := c.saveFile + ".tmp"
	if err := os.WriteFile(tmpFile, buf, 0o600); err != nil {
		return fmt.Errorf("dupcache: write snapshot: %w", err)
	}
	return os.Rename(tmpFile, c.saveFile)
}
