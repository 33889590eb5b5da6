package chatrequest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxidetalis-go/otmpd/registry"
	"github.com/oxidetalis-go/otmpd/storage"
	"github.com/oxidetalis-go/otmpd/storage/memory"
)

func newHarness(t *testing.T) (*Handler, storage.Persistence, *registry.Registry) {
	t.Helper()
	store := memory.NewStore()
	reg := registry.New()
	t.Cleanup(reg.Close)
	return New(store, reg), store, reg
}

func mustRegister(t *testing.T, store storage.Persistence, pk []byte) *storage.User {
	t.Helper()
	u, err := store.RegisterUser(context.Background(), pk, false)
	require.NoError(t, err)
	return u
}

func TestHandleRequestUnregisteredSender(t *testing.T) {
	h, _, _ := newHarness(t)
	resp := h.HandleRequest(context.Background(), nil, []byte("target"))
	require.NotNil(t, resp)
}

func TestHandleRequestUnknownRecipient(t *testing.T) {
	h, store, _ := newHarness(t)
	from := mustRegister(t, store, []byte("sender-pk-000000000000000000000"))

	resp := h.HandleRequest(context.Background(), from, []byte("nobody"))
	require.NotNil(t, resp)
}

func TestHandleRequestSelf(t *testing.T) {
	h, store, _ := newHarness(t)
	from := mustRegister(t, store, []byte("self-pk-00000000000000000000000"))

	resp := h.HandleRequest(context.Background(), from, from.PublicKey)
	require.NotNil(t, resp)
}

func TestHandleRequestHappyPathOfflineRecipient(t *testing.T) {
	h, store, _ := newHarness(t)
	ctx := context.Background()
	from := mustRegister(t, store, []byte("sender-pk-000000000000000000000"))
	to := mustRegister(t, store, []byte("recipient-pk-0000000000000000000"))

	resp := h.HandleRequest(ctx, from, to.PublicKey)
	assert.Nil(t, resp)

	out, err := store.GetOutChatRequest(ctx, from.ID, to.PublicKey)
	require.NoError(t, err)
	require.NotNil(t, out)

	incoming, err := store.ListIncomingRequests(ctx, to.ID)
	require.NoError(t, err)
	require.Len(t, incoming, 1)
}

func TestHandleRequestDuplicateRejected(t *testing.T) {
	h, store, _ := newHarness(t)
	ctx := context.Background()
	from := mustRegister(t, store, []byte("sender-pk-000000000000000000000"))
	to := mustRegister(t, store, []byte("recipient-pk-0000000000000000000"))

	require.Nil(t, h.HandleRequest(ctx, from, to.PublicKey))
	resp := h.HandleRequest(ctx, from, to.PublicKey)
	require.NotNil(t, resp)
}

func TestHandleRequestBlacklistedRecipientRejects(t *testing.T) {
	h, store, _ := newHarness(t)
	ctx := context.Background()
	from := mustRegister(t, store, []byte("sender-pk-000000000000000000000"))
	to := mustRegister(t, store, []byte("recipient-pk-0000000000000000000"))

	require.NoError(t, store.AddToBlacklist(ctx, to.ID, from.PublicKey))

	resp := h.HandleRequest(ctx, from, to.PublicKey)
	require.NotNil(t, resp)
}

func TestHandleRequestOnlineRecipientGetsDirectEvent(t *testing.T) {
	h, store, reg := newHarness(t)
	ctx := context.Background()
	from := mustRegister(t, store, []byte("sender-pk-000000000000000000000"))
	to := mustRegister(t, store, []byte("recipient-pk-0000000000000000000"))

	sess := reg.Add(to.PublicKey, make([]byte, 32), to.ID)

	resp := h.HandleRequest(ctx, from, to.PublicKey)
	assert.Nil(t, resp)

	select {
	case signed := <-sess.Outbound:
		require.NotNil(t, signed)
	default:
		t.Fatal("expected recipient to receive a direct ChatRequest event")
	}

	incoming, err := store.ListIncomingRequests(ctx, to.ID)
	require.NoError(t, err)
	assert.Empty(t, incoming, "online delivery should not also persist an incoming request")
}

func TestHandleResponseNoPendingRequest(t *testing.T) {
	h, store, _ := newHarness(t)
	ctx := context.Background()
	recipient := mustRegister(t, store, []byte("recipient-pk-0000000000000000000"))
	sender := mustRegister(t, store, []byte("sender-pk-000000000000000000000"))

	resp := h.HandleResponse(ctx, recipient, sender.PublicKey, true)
	require.NotNil(t, resp)
}

func TestHandleResponseAcceptHappyPath(t *testing.T) {
	h, store, _ := newHarness(t)
	ctx := context.Background()
	sender := mustRegister(t, store, []byte("sender-pk-000000000000000000000"))
	recipient := mustRegister(t, store, []byte("recipient-pk-0000000000000000000"))

	require.Nil(t, h.HandleRequest(ctx, sender, recipient.PublicKey))

	resp := h.HandleResponse(ctx, recipient, sender.PublicKey, true)
	assert.Nil(t, resp)

	whitelisted, err := store.IsWhitelisted(ctx, recipient.ID, sender.PublicKey)
	require.NoError(t, err)
	assert.True(t, whitelisted)

	out, err := store.GetOutChatRequest(ctx, sender.ID, recipient.PublicKey)
	require.NoError(t, err)
	assert.Nil(t, out)
}

func TestHandleResponseRejectBlacklists(t *testing.T) {
	h, store, _ := newHarness(t)
	ctx := context.Background()
	sender := mustRegister(t, store, []byte("sender-pk-000000000000000000000"))
	recipient := mustRegister(t, store, []byte("recipient-pk-0000000000000000000"))

	require.Nil(t, h.HandleRequest(ctx, sender, recipient.PublicKey))
	resp := h.HandleResponse(ctx, recipient, sender.PublicKey, false)
	assert.Nil(t, resp)

	blacklisted, err := store.IsBlacklisted(ctx, recipient.ID, sender.PublicKey)
	require.NoError(t, err)
	assert.True(t, blacklisted)
}

func TestHandleResponseSelfRejected(t *testing.T) {
	h, store, _ := newHarness(t)
	ctx := context.Background()
	user := mustRegister(t, store, []byte("solo-pk-00000000000000000000000"))

	resp := h.HandleResponse(ctx, user, user.PublicKey, true)
	require.NotNil(t, resp)
}

