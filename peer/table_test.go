package peer

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubAgreer struct {
	secret [32]byte
	err    error
}

func (s stubAgreer) Agree(peerPub [32]byte) ([32]byte, error) {
	if s.err != nil {
		return [32]byte{}, s.err
	}
	return s.secret, nil
}

func stubDeriveID(pub [32]byte) [8]byte {
	var id [8]byte
	copy(id[:], pub[:8])
	return id
}

type stubTrustStore struct {
	calls map[ID]bool
}

func newStubTrustStore() *stubTrustStore {
	return &stubTrustStore{calls: make(map[ID]bool)}
}

func (s *stubTrustStore) StoreTrust(id ID, verified bool) error {
	s.calls[id] = verified
	return nil
}

type fixedTime struct{ t time.Time }

func (f fixedTime) Now() time.Time { return f.t }

func newTestTable(opts ...Option) (*Table, [32]byte) {
	var secret [32]byte
	secret[0] = 0x42
	table := NewTable(stubAgreer{secret: secret}, stubDeriveID, opts...)
	return table, secret
}

func TestUpsertDiscovered(t *testing.T) {
	table, _ := newTestTable()

	table.UpsertDiscovered("peer-1", -55)
	rec, ok := table.Get("peer-1")
	require.True(t, ok)
	assert.Equal(t, -55, rec.RSSI)
	assert.Equal(t, StageDiscovered, rec.Stage())

	table.UpsertDiscovered("peer-1", -40)
	rec, _ = table.Get("peer-1")
	assert.Equal(t, -40, rec.RSSI, "rediscovery refreshes RSSI in place")
}

func TestSetConnectedTogglesBothWays(t *testing.T) {
	table, _ := newTestTable()

	table.SetConnected("peer-1", true)
	rec, _ := table.Get("peer-1")
	assert.True(t, rec.Connected)
	assert.Equal(t, StageConnected, rec.Stage())

	table.SetConnected("peer-1", false)
	rec, _ = table.Get("peer-1")
	assert.False(t, rec.Connected)
}

func TestBindPublicKeyDerivesSharedSecret(t *testing.T) {
	table, secret := newTestTable()

	var pub [32]byte
	pub[0] = 0x01
	require.NoError(t, table.BindPublicKey("peer-1", pub))

	rec, ok := table.Get("peer-1")
	require.True(t, ok)
	assert.True(t, rec.HasKey)
	assert.Equal(t, pub, rec.PublicKey)
	assert.Equal(t, StageKeysExchanged, rec.Stage())

	got, ok := table.SharedSecret("peer-1")
	require.True(t, ok)
	assert.Equal(t, secret, got)
}

func TestBindPublicKeySameKeyIsNoop(t *testing.T) {
	table, _ := newTestTable()

	var pub [32]byte
	pub[0] = 0x01
	require.NoError(t, table.BindPublicKey("peer-1", pub))
	require.NoError(t, table.SetVerified("peer-1", true))
	require.NoError(t, table.BindPublicKey("peer-1", pub))

	rec, _ := table.Get("peer-1")
	assert.True(t, rec.Verified, "rebinding the identical key must not clear trust")
}

func TestBindPublicKeyConflictingKeyClearsVerified(t *testing.T) {
	trust := newStubTrustStore()
	table, _ := newTestTable(WithTrustStore(trust))

	var pubA, pubB [32]byte
	pubA[0] = 0x01
	pubB[0] = 0x02

	require.NoError(t, table.BindPublicKey("peer-1", pubA))
	require.NoError(t, table.SetVerified("peer-1", true))

	require.NoError(t, table.BindPublicKey("peer-1", pubB))

	rec, _ := table.Get("peer-1")
	assert.False(t, rec.Verified, "conflicting key binding must invalidate trust")
	assert.Equal(t, pubB, rec.PublicKey)
	assert.Equal(t, false, trust.calls["peer-1"])
}

func TestSetVerifiedRequiresBoundKey(t *testing.T) {
	table, _ := newTestTable()

	table.UpsertDiscovered("peer-1", -50)
	require.NoError(t, table.SetVerified("peer-1", true))

	rec, _ := table.Get("peer-1")
	assert.False(t, rec.Verified, "verified cannot be set true without a bound public key")
}

func TestSetVerifiedUnknownPeer(t *testing.T) {
	table, _ := newTestTable()

	err := table.SetVerified("ghost", true)
	assert.True(t, errors.Is(err, ErrPeerNotFound))
}

func TestLookupBySenderID(t *testing.T) {
	table, _ := newTestTable()

	var pub [32]byte
	pub[0] = 0x01
	require.NoError(t, table.BindPublicKey("peer-1", pub))

	senderID := stubDeriveID(pub)
	id, ok := table.LookupBySenderID(senderID)
	require.True(t, ok)
	assert.Equal(t, ID("peer-1"), id)

	_, ok = table.LookupBySenderID([8]byte{0xff})
	assert.False(t, ok)
}

func TestConnectedIDs(t *testing.T) {
	table, _ := newTestTable()

	table.SetConnected("a", true)
	table.SetConnected("b", false)
	table.SetConnected("c", true)

	ids := table.ConnectedIDs()
	assert.ElementsMatch(t, []ID{"a", "c"}, ids)
}

func TestRemoveDeletesRecord(t *testing.T) {
	table, _ := newTestTable()

	table.UpsertDiscovered("peer-1", -50)
	table.Remove("peer-1")

	_, ok := table.Get("peer-1")
	assert.False(t, ok)
}

func TestBindPublicKeyPropagatesAgreementFailure(t *testing.T) {
	table := NewTable(stubAgreer{err: errors.New("boom")}, stubDeriveID)

	var pub [32]byte
	err := table.BindPublicKey("peer-1", pub)
	assert.Error(t, err)

	_, ok := table.Get("peer-1")
	assert.False(t, ok, "a failed agreement must not create a half-bound record")
}
