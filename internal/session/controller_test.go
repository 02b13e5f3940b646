package session

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/finzz-app/finzz-client/internal/api"
	"github.com/finzz-app/finzz-client/internal/cache"
	"github.com/finzz-app/finzz-client/internal/credential"
	"github.com/finzz-app/finzz-client/internal/model"
	"github.com/finzz-app/finzz-client/internal/queue"
	badgerstore "github.com/finzz-app/finzz-client/internal/storage/badger"
	"github.com/finzz-app/finzz-client/internal/testutil"
)

type fixture struct {
	backend *testutil.Backend
	kv      *badgerstore.Store
	creds   *credential.Store
	cache   *cache.Cache
	queue   *queue.Queue
	client  *api.Client
	ctrl    *Controller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	backend := testutil.NewBackend(t)
	backend.AddUser("9999999999", "secret1", model.User{ID: "u1", Name: "Test", Phone: "9999999999"})

	kv, err := badgerstore.NewStore(badgerstore.Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = kv.Close() })

	log := testutil.MakeNoopLogger()
	creds := credential.NewStore(kv, log)
	ch := cache.New(kv, log)
	q := queue.New(kv, log)
	client := api.NewClient(backend.URL(), 0, creds, log)
	ctrl := NewController(client, creds, ch, q, log)

	return &fixture{backend: backend, kv: kv, creds: creds, cache: ch, queue: q, client: client, ctrl: ctrl}
}

func TestController_InitialState(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, model.StateInitializing, f.ctrl.State())
	assert.Nil(t, f.ctrl.User())
}

func TestController_Bootstrap_NoCredentials(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	f.ctrl.Bootstrap(ctx)
	assert.Equal(t, model.StateUnauthenticated, f.ctrl.State())
	assert.Nil(t, f.ctrl.User())
}

func TestController_Bootstrap_Optimistic(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	access := f.backend.MintAccess("u1", 15*time.Minute)
	refresh := f.backend.MintRefresh("u1", 30*24*time.Hour)
	require.NoError(t, f.creds.SaveSession(ctx, access, refresh, model.User{ID: "u1", Name: "Stale Name", Phone: "9999999999"}))

	f.ctrl.Bootstrap(ctx)

	// authenticated immediately, before the background fetch lands
	assert.Equal(t, model.StateAuthenticated, f.ctrl.State())

	f.ctrl.bg.Wait()

	// the canonical profile overwrote the stale cached one
	user := f.ctrl.User()
	require.NotNil(t, user)
	assert.Equal(t, "Test", user.Name)
	stored := f.creds.Profile(ctx)
	require.NotNil(t, stored)
	assert.Equal(t, "Test", stored.Name)
}

func TestController_Bootstrap_BackgroundRefreshFailureKeepsSession(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// tokens nobody can renew: refresh fails, but the optimistic session
	// must survive a failed background fetch... except the forced-logout
	// path, which is exactly what an unrenewable 401 triggers. Use a
	// network-level failure instead: close the backend first.
	access := f.backend.MintAccess("u1", 15*time.Minute)
	require.NoError(t, f.creds.SaveSession(ctx, access, "", model.User{ID: "u1", Name: "Cached"}))
	f.backend.Server.Close()

	f.ctrl.Bootstrap(ctx)
	f.ctrl.bg.Wait()

	assert.Equal(t, model.StateAuthenticated, f.ctrl.State())
	user := f.ctrl.User()
	require.NotNil(t, user)
	assert.Equal(t, "Cached", user.Name)
}

func TestController_Login(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ctrl.Bootstrap(ctx)

	require.NoError(t, f.ctrl.Login(ctx, "9999999999", "secret1"))

	assert.Equal(t, model.StateAuthenticated, f.ctrl.State())
	user := f.ctrl.User()
	require.NotNil(t, user)
	assert.Equal(t, "u1", user.ID)

	// session persisted for the next cold start
	assert.NotEmpty(t, f.creds.Access(ctx))
	assert.NotEmpty(t, f.creds.Refresh(ctx))
	require.NotNil(t, f.creds.Profile(ctx))
}

func TestController_Login_BadCredentials(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ctrl.Bootstrap(ctx)

	require.Error(t, f.ctrl.Login(ctx, "9999999999", "wrong"))
	assert.Equal(t, model.StateUnauthenticated, f.ctrl.State())
	assert.Empty(t, f.creds.Access(ctx))
}

func TestController_Register(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ctrl.Bootstrap(ctx)

	require.NoError(t, f.ctrl.Register(ctx, "New User", "8888888888", "new@example.com", "pass123"))
	assert.Equal(t, model.StateAuthenticated, f.ctrl.State())
	user := f.ctrl.User()
	require.NotNil(t, user)
	assert.Equal(t, "New User", user.Name)
}

func TestController_VerifyOTPThenRegister(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ctrl.Bootstrap(ctx)

	require.NoError(t, f.ctrl.SendOTP(ctx, "new@example.com"))

	// wrong code: no session
	require.Error(t, f.ctrl.VerifyOTPThenRegister(ctx, "New User", "8888888888", "new@example.com", "pass123", "000000"))
	assert.Equal(t, model.StateUnauthenticated, f.ctrl.State())

	require.NoError(t, f.ctrl.VerifyOTPThenRegister(ctx, "New User", "8888888888", "new@example.com", "pass123", "123456"))
	assert.Equal(t, model.StateAuthenticated, f.ctrl.State())
}

func TestController_Logout_ClearsEverything(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ctrl.Bootstrap(ctx)
	require.NoError(t, f.ctrl.Login(ctx, "9999999999", "secret1"))

	f.cache.Set(ctx, cache.KeyChats, []string{"chat1"})
	intent, err := queue.NewIntent(model.IntentCreate, "/txns", map[string]int{"amount": 1}, "")
	require.NoError(t, err)
	require.NoError(t, f.queue.Enqueue(ctx, intent))

	f.ctrl.Logout(ctx)

	assert.Equal(t, model.StateUnauthenticated, f.ctrl.State())
	assert.Nil(t, f.ctrl.User())
	assert.Empty(t, f.creds.Access(ctx))
	assert.Empty(t, f.creds.Refresh(ctx))
	assert.Nil(t, f.creds.Profile(ctx))

	var chats []string
	assert.False(t, f.cache.Get(ctx, cache.KeyChats, 24*time.Hour, &chats))
	assert.Zero(t, f.queue.Len())
	assert.Equal(t, 1, f.backend.LogoutCalls())
}

func TestController_Logout_SucceedsWhenBackendUnreachable(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.ctrl.Bootstrap(ctx)
	require.NoError(t, f.ctrl.Login(ctx, "9999999999", "secret1"))

	f.backend.Server.Close()
	f.ctrl.Logout(ctx)

	assert.Equal(t, model.StateUnauthenticated, f.ctrl.State())
	assert.Empty(t, f.creds.Access(ctx))
}

// An expired access token with an unrenewable refresh token forces the
// session down: the pipeline wipes credentials and the controller flips
// to unauthenticated.
func TestController_ForcedLogout(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	access := f.backend.MintAccess("u1", -time.Minute)
	require.NoError(t, f.creds.SaveSession(ctx, access, "not-a-valid-refresh-token", model.User{ID: "u1", Name: "Test"}))

	f.ctrl.Bootstrap(ctx)

	// any authenticated call: 401, renewal rejected, session terminated
	_, err := f.client.Profile(ctx)
	require.Error(t, err)
	require.True(t, api.IsUnauthorized(err))

	f.ctrl.bg.Wait()
	assert.Equal(t, model.StateUnauthenticated, f.ctrl.State())
	assert.Empty(t, f.creds.Access(ctx))
	assert.Empty(t, f.creds.Refresh(ctx))
	assert.Nil(t, f.creds.Profile(ctx))
}
