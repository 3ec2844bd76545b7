package services

import (
	"context"
	"testing"
	"time"

	"github.com/Danticipation/chakrai/internal/cache"
	"github.com/Danticipation/chakrai/internal/metrics"
	"github.com/Danticipation/chakrai/internal/models"
	"github.com/Danticipation/chakrai/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	s, err := store.New(context.Background(), store.DriverSQLite, ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func newTestBindingService(t *testing.T) *BindingService {
	t.Helper()
	return NewBindingService(
		setupTestStore(t),
		[]byte("device-key-for-tests"),
		[]byte("user-device-key-for-tests"),
		cache.NewMemoryCache[models.UserDevice](),
		5*time.Minute,
		metrics.NewNoopMetrics(),
	)
}

const (
	testUID      = "usr_0123456789abcdef0123456789abcdef"
	testOtherUID = "usr_ffffffffffffffffffffffffffffffff"
)

func TestRegisterInstall(t *testing.T) {
	svc := newTestBindingService(t)
	ctx := context.Background()
	did := []byte("raw-device-id-bytes")

	adid, err := svc.RegisterInstall(ctx, did, "web")
	require.NoError(t, err)
	assert.Len(t, adid, 32, "16 bytes of truncated HMAC as hex")
	assert.Equal(t, adid, svc.DeriveADID(did), "adid is deterministic for a device")

	// Registering the same device again yields the same adid, no error
	again, err := svc.RegisterInstall(ctx, did, "web")
	require.NoError(t, err)
	assert.Equal(t, adid, again)
}

func TestRegisterInstall_DefaultPlatform(t *testing.T) {
	svc := newTestBindingService(t)
	ctx := context.Background()

	adid, err := svc.RegisterInstall(ctx, []byte("some-device"), "")
	require.NoError(t, err)

	install, err := svc.store.GetInstall(ctx, adid)
	require.NoError(t, err)
	assert.Equal(t, "web", install.Platform)
}

func TestRegisterInstall_EmptyDID(t *testing.T) {
	svc := newTestBindingService(t)

	_, err := svc.RegisterInstall(context.Background(), nil, "web")
	assert.ErrorIs(t, err, ErrNoInstall)
}

func TestDeriveADID_KeyDependent(t *testing.T) {
	svc := newTestBindingService(t)
	other := NewBindingService(
		svc.store,
		[]byte("a-different-device-key"),
		svc.userDeviceKey,
		cache.NewMemoryCache[models.UserDevice](),
		time.Minute,
		metrics.NewNoopMetrics(),
	)

	did := []byte("raw-device-id-bytes")
	assert.NotEqual(t, svc.DeriveADID(did), other.DeriveADID(did))
}

func TestStartSession_NewBinding(t *testing.T) {
	svc := newTestBindingService(t)
	ctx := context.Background()
	did := []byte("device-one")

	_, err := svc.RegisterInstall(ctx, did, "web")
	require.NoError(t, err)

	grant, err := svc.StartSession(ctx, testUID, did)
	require.NoError(t, err)
	assert.NotEmpty(t, grant.SID)
	assert.Equal(t, testUID, grant.UID)
	assert.Equal(t, svc.DeriveADID(did), grant.ADID)
	assert.Len(t, grant.UDID, 32)

	sess, err := svc.store.GetSession(ctx, grant.SID)
	require.NoError(t, err)
	assert.Equal(t, testUID, sess.UID)
	assert.False(t, sess.Revoked())
}

func TestStartSession_BindingUIDWins(t *testing.T) {
	svc := newTestBindingService(t)
	ctx := context.Background()
	did := []byte("device-one")

	first, err := svc.StartSession(ctx, testUID, did)
	require.NoError(t, err)

	// Same device returns with a freshly minted cookie uid (cookie was
	// cleared). The durable binding keeps the original identity.
	second, err := svc.StartSession(ctx, testOtherUID, did)
	require.NoError(t, err)
	assert.Equal(t, testUID, second.UID)
	assert.Equal(t, first.UDID, second.UDID)
	assert.NotEqual(t, first.SID, second.SID, "each start opens a fresh session")
}

func TestCreateBinding_LostRaceAdoptsWinner(t *testing.T) {
	svc := newTestBindingService(t)
	ctx := context.Background()
	did := []byte("device-one")
	adid := svc.DeriveADID(did)
	now := time.Now()

	// The winning first bind from the same device has already landed.
	winner := &models.UserDevice{
		UID:        testUID,
		ADID:       adid,
		UDID:       svc.deriveUDID(testUID, did),
		LastSeenAt: now.Add(-time.Minute),
	}
	require.NoError(t, svc.store.CreateUserDevice(ctx, winner))

	// The losing bind passed its not-found lookup before the winner's row
	// committed. Its insert collides on the adid index, so it adopts the
	// winner's uid instead of minting a second binding.
	binding, err := svc.createBinding(ctx, testOtherUID, did, adid, now)
	require.NoError(t, err)
	assert.Equal(t, testUID, binding.UID)
	assert.Equal(t, winner.UDID, binding.UDID)

	n, err := svc.store.CountUserDevices(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "the device keeps a single binding")

	got, err := svc.store.GetUserDeviceByADID(ctx, adid)
	require.NoError(t, err)
	assert.Equal(t, testUID, got.UID)
	assert.True(t, got.LastSeenAt.After(now.Add(-time.Minute)))
}

func TestStartSession_CachedBinding(t *testing.T) {
	svc := newTestBindingService(t)
	ctx := context.Background()
	did := []byte("device-one")

	first, err := svc.StartSession(ctx, testUID, did)
	require.NoError(t, err)

	// The binding is now cached under its adid
	cached, err := svc.bindings.Get(ctx, bindingCacheKey(first.ADID))
	require.NoError(t, err)
	assert.Equal(t, testUID, cached.UID)

	// A second start is served from the cache and refreshes LastSeenAt
	before := cached.LastSeenAt
	time.Sleep(5 * time.Millisecond)
	_, err = svc.StartSession(ctx, testOtherUID, did)
	require.NoError(t, err)

	cached, err = svc.bindings.Get(ctx, bindingCacheKey(first.ADID))
	require.NoError(t, err)
	assert.True(t, cached.LastSeenAt.After(before))
}

func TestStartSession_NoDID(t *testing.T) {
	svc := newTestBindingService(t)

	_, err := svc.StartSession(context.Background(), testUID, nil)
	assert.ErrorIs(t, err, ErrNoInstall)
}

func TestStartSession_InvalidUID(t *testing.T) {
	svc := newTestBindingService(t)

	_, err := svc.StartSession(context.Background(), "not-a-uid", []byte("device"))
	assert.ErrorIs(t, err, ErrUIDRequired)
}

func TestEndSession(t *testing.T) {
	svc := newTestBindingService(t)
	ctx := context.Background()
	did := []byte("device-one")

	grant, err := svc.StartSession(ctx, testUID, did)
	require.NoError(t, err)

	require.NoError(t, svc.EndSession(ctx, grant.SID))

	sess, err := svc.store.GetSession(ctx, grant.SID)
	require.NoError(t, err)
	assert.True(t, sess.Revoked())
}

func TestEndSession_Idempotent(t *testing.T) {
	svc := newTestBindingService(t)
	ctx := context.Background()

	grant, err := svc.StartSession(ctx, testUID, []byte("device-one"))
	require.NoError(t, err)

	require.NoError(t, svc.EndSession(ctx, grant.SID))
	require.NoError(t, svc.EndSession(ctx, grant.SID), "second revoke succeeds")
	require.NoError(t, svc.EndSession(ctx, "unknown-sid"), "unknown sid succeeds")
	require.NoError(t, svc.EndSession(ctx, ""), "empty sid is a no-op")
}

func TestWithStore_CopiesService(t *testing.T) {
	svc := newTestBindingService(t)
	other := setupTestStore(t)

	scoped := svc.WithStore(other)
	assert.NotSame(t, svc, scoped)
	assert.Same(t, other, scoped.store)
	assert.Same(t, svc.bindings, scoped.bindings, "cache handle is shared")
}
