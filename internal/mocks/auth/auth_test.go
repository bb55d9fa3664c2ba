package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	domainauth "github.com/target/ghsession/internal/domain/auth"
	"github.com/target/ghsession/internal/ports"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStaticAuthProvider_Begin_Defaults(t *testing.T) {
	provider := NewStaticAuthProvider()
	ctx := context.Background()

	req, err := provider.Begin(ctx)
	require.NoError(t, err)
	assert.Contains(t, req.AuthURL, "login/oauth/authorize")
	assert.Equal(t, "state-1", req.State)

	// Second call should increment counters
	req2, err := provider.Begin(ctx)
	require.NoError(t, err)
	assert.Equal(t, "state-2", req2.State)
	assert.Equal(t, 2, provider.Calls())
}

func TestScriptedBrowserSession_EchoesState(t *testing.T) {
	session := SucceedWithCode("xyz")

	resp, err := session.Start(context.Background(), ports.AuthorizationRequest{State: "s-1"})
	require.NoError(t, err)
	assert.Equal(t, domainauth.ResponseSuccess, resp.Type)
	assert.Equal(t, "xyz", resp.Params.Code)
	assert.Equal(t, "s-1", resp.Params.State)
	assert.Len(t, session.Requests(), 1)
}

func TestScriptedBrowserSession_GateHonoursContext(t *testing.T) {
	session := SucceedWithCode("xyz")
	session.Gate = make(chan struct{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := session.Start(ctx, ports.AuthorizationRequest{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestDenyAccess(t *testing.T) {
	resp, err := DenyAccess().Start(context.Background(), ports.AuthorizationRequest{})
	require.NoError(t, err)
	assert.True(t, resp.Denied())
}

func TestScriptedExchanger(t *testing.T) {
	ex := &ScriptedExchanger{Session: domainauth.Session{User: domainauth.User{ID: "2"}, Token: "tok2"}}

	sess, err := ex.Authenticate(context.Background(), "xyz")
	require.NoError(t, err)
	assert.Equal(t, "tok2", sess.Token)
	assert.Equal(t, []string{"xyz"}, ex.Codes())

	ex.Err = errors.New("backend down")
	_, err = ex.Authenticate(context.Background(), "abc")
	assert.EqualError(t, err, "backend down")
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	ctx := context.Background()

	_, ok, err := store.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, store.SetItem(ctx, "k", "v"))
	v, ok, err := store.GetItem(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "v", v)

	require.NoError(t, store.RemoveItem(ctx, "k"))
	require.NoError(t, store.RemoveItem(ctx, "k"))
	assert.Empty(t, store.Snapshot())

	boom := errors.New("disk full")
	store.FailSet("k", boom)
	assert.ErrorIs(t, store.SetItem(ctx, "k", "v"), boom)
}
