package dupcache

import (
	"os"
	"testing"
	"time"
)

type fakeTime struct{ now time.Time }

func (f *fakeTime) Now() time.Time { return f.now }

func newTestCache(t *testing.T, ft *fakeTime) *Cache {
	t.Helper()
	dir := t.TempDir()
	c, err := New(dir, WithTimeProvider(ft))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	t.Cleanup(func() { _ = c.Close() })
	return c
}

func idFor(b byte) [16]byte {
	var id [16]byte
	id[0] = b
	return id
}

func TestIsDuplicateFalseForUnseenID(t *testing.T) {
	ft := &fakeTime{now: time.Now()}
	c := newTestCache(t, ft)

	if c.IsDuplicate(idFor(1)) {
		t.Error("IsDuplicate() = true for an id never marked")
	}
}

func TestMarkProcessedThenIsDuplicate(t *testing.T) {
	ft := &fakeTime{now: time.Now()}
	c := newTestCache(t, ft)

	id := idFor(1)
	c.MarkProcessed(id)

	if !c.IsDuplicate(id) {
		t.Error("IsDuplicate() = false immediately after MarkProcessed")
	}
}

func TestIsDuplicateExpiresAfterWindow(t *testing.T) {
	ft := &fakeTime{now: time.Now()}
	c := newTestCache(t, ft)

	id := idFor(1)
	c.MarkProcessed(id)

	ft.now = ft.now.Add(Expiry + time.Second)

	if c.IsDuplicate(id) {
		t.Error("IsDuplicate() = true after the expiry window elapsed")
	}
}

func TestMarkProcessedPrunesExpiredEntries(t *testing.T) {
	ft := &fakeTime{now: time.Now()}
	c := newTestCache(t, ft)

	c.MarkProcessed(idFor(1))
	ft.now = ft.now.Add(Expiry + time.Second)
	c.MarkProcessed(idFor(2))

	if c.Size() != 1 {
		t.Errorf("Size() after MarkProcessed() = %d, want 1", c.Size())
	}
	if c.IsDuplicate(idFor(1)) {
		t.Error("expired entry survived the implicit sweep in MarkProcessed()")
	}
	if !c.IsDuplicate(idFor(2)) {
		t.Error("fresh entry was removed by the implicit sweep in MarkProcessed()")
	}
}

func TestMarkProcessedEvictsOldestOverSoftCapacity(t *testing.T) {
	ft := &fakeTime{now: time.Now()}
	c := newTestCache(t, ft)

	oldest := idFor(0)
	c.MarkProcessed(oldest)

	for i := 1; i <= SoftCapacity; i++ {
		ft.now = ft.now.Add(time.Millisecond)
		var id [16]byte
		id[0] = byte(i % 256)
		id[1] = byte(i / 256)
		c.MarkProcessed(id)
	}

	if c.Size() > SoftCapacity {
		t.Errorf("Size() = %d, want at most %d", c.Size(), SoftCapacity)
	}
	if c.IsDuplicate(oldest) {
		t.Error("oldest entry was not evicted once soft capacity was exceeded")
	}
}

func TestClearRemovesEverything(t *testing.T) {
	ft := &fakeTime{now: time.Now()}
	c := newTestCache(t, ft)

	c.MarkProcessed(idFor(1))
	c.Clear()

	if c.Size() != 0 {
		t.Errorf("Size() after Clear() = %d, want 0", c.Size())
	}
}

func TestSnapshotSurvivesReload(t *testing.T) {
	dir := t.TempDir()
	ft := &fakeTime{now: time.Now()}

	c, err := New(dir, WithTimeProvider(ft))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	c.MarkProcessed(idFor(1))
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	reloaded, err := New(dir, WithTimeProvider(ft))
	if err != nil {
		t.Fatalf("second New() error: %v", err)
	}
	defer reloaded.Close()

	if !reloaded.IsDuplicate(idFor(1)) {
		t.Error("reloaded cache lost an entry present at Close()")
	}
}

func TestSnapshotReloadDiscardsExpiredEntries(t *testing.T) {
	dir := t.TempDir()
	ft := &fakeTime{now: time.Now()}

	c, err := New(dir, WithTimeProvider(ft))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	c.MarkProcessed(idFor(1))
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	ft.now = ft.now.Add(Expiry + time.Second)

	reloaded, err := New(dir, WithTimeProvider(ft))
	if err != nil {
		t.Fatalf("second New() error: %v", err)
	}
	defer reloaded.Close()

	if reloaded.IsDuplicate(idFor(1)) {
		t.Error("reload resurrected an entry older than the expiry window")
	}
}

type fakeStore struct {
	entries map[[16]byte]time.Time
}

func (s *fakeStore) StoreDuplicateCache(entries map[[16]byte]time.Time) error {
	snapshot := make(map[[16]byte]time.Time, len(entries))
	for id, seenAt := range entries {
		snapshot[id] = seenAt
	}
	s.entries = snapshot
	return nil
}

func (s *fakeStore) LoadDuplicateCache() (map[[16]byte]time.Time, error) {
	if s.entries == nil {
		return map[[16]byte]time.Time{}, nil
	}
	return s.entries, nil
}

func TestSnapshotRoutesThroughStoreWhenConfigured(t *testing.T) {
	ft := &fakeTime{now: time.Now()}
	store := &fakeStore{}

	c, err := New(t.TempDir(), WithTimeProvider(ft), WithStore(store))
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	c.MarkProcessed(idFor(1))
	if err := c.Close(); err != nil {
		t.Fatalf("Close() error: %v", err)
	}

	if store.entries == nil {
		t.Fatal("Close() did not persist a snapshot through the configured store")
	}

	reloaded, err := New(t.TempDir(), WithTimeProvider(ft), WithStore(store))
	if err != nil {
		t.Fatalf("second New() error: %v", err)
	}
	defer reloaded.Close()

	if !reloaded.IsDuplicate(idFor(1)) {
		t.Error("reloaded cache did not recover the entry from the store")
	}
}

func TestNewCreatesDataDirectory(t *testing.T) {
	dir := t.TempDir()
	sub := dir + "/nested/dupcache"

	c, err := New(sub)
	if err != nil {
		t.Fatalf("New() error: %v", err)
	}
	defer c.Close()

	if _, err := os.Stat(sub); err != nil {
		t.Errorf("data directory not created: %v", err)
	}
}
