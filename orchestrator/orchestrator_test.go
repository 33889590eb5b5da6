package orchestrator_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	gorillaws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	cryptopkg "github.com/oxidetalis-go/otmpd/crypto"
	"github.com/oxidetalis-go/otmpd/noncecache"
	"github.com/oxidetalis-go/otmpd/orchestrator"
	"github.com/oxidetalis-go/otmpd/registry"
	"github.com/oxidetalis-go/otmpd/storage"
	"github.com/oxidetalis-go/otmpd/storage/memory"
)

// testClient is a signed-socket peer used to drive the orchestrator's
// receive/dispatch/drain loop the same way a real OTMP client would.
type testClient struct {
	t      *testing.T
	kp     *cryptopkg.KeyPair
	secret []byte
	conn   *gorillaws.Conn
}

func dial(t *testing.T, server *httptest.Server, serverPub []byte) *testClient {
	t.Helper()
	kp, err := cryptopkg.NewKeyPair()
	require.NoError(t, err)
	return dialAs(t, server, serverPub, kp)
}

// dialAs authenticates the upgrade handshake as a caller-supplied identity,
// letting a test register a user and later reconnect as that same key.
func dialAs(t *testing.T, server *httptest.Server, serverPub []byte, kp *cryptopkg.KeyPair) *testClient {
	t.Helper()

	secret, err := kp.SharedSecret(serverPub)
	require.NoError(t, err)

	path := "/ws/chat"
	sig, err := cryptopkg.Sign([]byte("GET"+path), secret)
	require.NoError(t, err)

	header := http.Header{}
	header.Set("X-OTMP-PUBLIC", kp.PublicKeyBase58())
	header.Set("X-OTMP-SIGNATURE", sig.Hex())

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + path
	conn, resp, err := gorillaws.DefaultDialer.Dial(wsURL, header)
	require.NoError(t, err, "dial failed")
	if resp != nil {
		defer resp.Body.Close()
	}

	return &testClient{t: t, kp: kp, secret: secret, conn: conn}
}

func (c *testClient) close() {
	_ = c.conn.Close()
}

func (c *testClient) sendPing(ts uint64) {
	c.sendRaw("Ping", map[string]any{"timestamp": ts})
}

func (c *testClient) sendChatRequest(toBase58 string) {
	c.sendRaw("ChatRequest", map[string]any{"to": toBase58})
}

func (c *testClient) sendChatRequestResponse(toBase58 string, accepted bool) {
	c.sendRaw("ChatRequestResponse", map[string]any{"to": toBase58, "accepted": accepted})
}

func (c *testClient) sendRaw(event string, data map[string]any) {
	c.t.Helper()
	dataBytes, err := json.Marshal(data)
	require.NoError(c.t, err)

	sig, err := cryptopkg.Sign(dataBytes, c.secret)
	require.NoError(c.t, err)

	frame := map[string]any{
		"event":     event,
		"data":      json.RawMessage(dataBytes),
		"signature": sig.Hex(),
	}
	require.NoError(c.t, c.conn.WriteJSON(frame))
}

type wireEnvelope struct {
	Event     string          `json:"event"`
	Data      json.RawMessage `json:"data"`
	Signature string          `json:"signature"`
}

func (c *testClient) readEvent() wireEnvelope {
	c.t.Helper()
	require.NoError(c.t, c.conn.SetReadDeadline(time.Now().Add(3*time.Second)))
	var env wireEnvelope
	require.NoError(c.t, c.conn.ReadJSON(&env))
	return env
}

func newTestServer(t *testing.T, store storage.Persistence) (*httptest.Server, []byte) {
	t.Helper()

	serverKP, err := cryptopkg.NewKeyPair()
	require.NoError(t, err)

	nonces := noncecache.NewCache(1 << 20)
	t.Cleanup(nonces.Close)
	reg := registry.New()
	t.Cleanup(reg.Close)

	orch := orchestrator.New(serverKP, store, nonces, reg)

	mux := http.NewServeMux()
	mux.Handle("/ws/chat", orch)
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	return server, serverKP.PublicKeyBytes()
}

// TestChatRequestOnlineRecipientDelivered covers S2: a registered sender
// requests a chat with a registered, online recipient and the recipient
// receives the signed ChatRequest directly, without an offline replay.
func TestChatRequestOnlineRecipientDelivered(t *testing.T) {
	store := memory.NewStore()
	server, serverPub := newTestServer(t, store)

	ctx := context.Background()
	aliceKP, err := cryptopkg.NewKeyPair()
	require.NoError(t, err)
	bobKP, err := cryptopkg.NewKeyPair()
	require.NoError(t, err)
	_, err = store.RegisterUser(ctx, aliceKP.PublicKeyBytes(), false)
	require.NoError(t, err)
	_, err = store.RegisterUser(ctx, bobKP.PublicKeyBytes(), false)
	require.NoError(t, err)

	alice := dialAs(t, server, serverPub, aliceKP)
	defer alice.close()
	bob := dialAs(t, server, serverPub, bobKP)
	defer bob.close()

	alice.sendChatRequest(bob.kp.PublicKeyBase58())

	env := bob.readEvent()
	require.Equal(t, "ChatRequest", env.Event)

	var payload struct {
		From string `json:"from"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Equal(t, alice.kp.PublicKeyBase58(), payload.From)
}

// TestPingPongRoundTrip exercises the liveness ping/pong frame shape over
// an authenticated socket.
func TestPingPongRoundTrip(t *testing.T) {
	store := memory.NewStore()
	server, serverPub := newTestServer(t, store)

	alice := dial(t, server, serverPub)
	defer alice.close()

	alice.sendPing(42)
	env := alice.readEvent()
	require.Equal(t, "Pong", env.Event)
}

// TestReplayOfSameSignatureIsRejected covers S5: resending the exact same
// signed frame within the freshness window is rejected as InvalidSignature.
func TestReplayOfSameSignatureIsRejected(t *testing.T) {
	store := memory.NewStore()
	server, serverPub := newTestServer(t, store)

	alice := dial(t, server, serverPub)
	defer alice.close()

	dataBytes, err := json.Marshal(map[string]any{"timestamp": uint64(1)})
	require.NoError(t, err)
	sig, err := cryptopkg.Sign(dataBytes, alice.secret)
	require.NoError(t, err)
	frame := map[string]any{
		"event":     "Ping",
		"data":      json.RawMessage(dataBytes),
		"signature": sig.Hex(),
	}

	require.NoError(t, alice.conn.WriteJSON(frame))
	first := alice.readEvent()
	require.Equal(t, "Pong", first.Event)

	require.NoError(t, alice.conn.WriteJSON(frame))
	second := alice.readEvent()
	require.Equal(t, "Error", second.Event)

	var payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(second.Data, &payload))
	require.Equal(t, "InvalidSignature", payload.Name)
}

// TestUpgradeRejectsBadSignature covers the 401 handshake rejection path.
func TestUpgradeRejectsBadSignature(t *testing.T) {
	store := memory.NewStore()
	server, _ := newTestServer(t, store)

	kp, err := cryptopkg.NewKeyPair()
	require.NoError(t, err)

	header := http.Header{}
	header.Set("X-OTMP-PUBLIC", kp.PublicKeyBase58())
	header.Set("X-OTMP-SIGNATURE", strings.Repeat("00", 56))

	wsURL := "ws" + strings.TrimPrefix(server.URL, "http") + "/ws/chat"
	_, resp, err := gorillaws.DefaultDialer.Dial(wsURL, header)
	require.Error(t, err)
	require.NotNil(t, resp)
	require.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

// TestChatRequestToOfflineRecipientReplaysOnConnect covers S3: a chat
// request sent to an offline, registered recipient is persisted, then
// delivered and removed once that recipient connects.
func TestChatRequestToOfflineRecipientReplaysOnConnect(t *testing.T) {
	store := memory.NewStore()
	server, serverPub := newTestServer(t, store)

	ctx := context.Background()
	aliceKP, err := cryptopkg.NewKeyPair()
	require.NoError(t, err)
	bobKP, err := cryptopkg.NewKeyPair()
	require.NoError(t, err)
	_, err = store.RegisterUser(ctx, aliceKP.PublicKeyBytes(), false)
	require.NoError(t, err)
	bobUser, err := store.RegisterUser(ctx, bobKP.PublicKeyBytes(), false)
	require.NoError(t, err)

	alice := dialAs(t, server, serverPub, aliceKP)
	defer alice.close()

	alice.sendChatRequest(bobKP.PublicKeyBase58())

	require.Eventually(t, func() bool {
		reqs, err := store.ListIncomingRequests(ctx, bobUser.ID)
		return err == nil && len(reqs) == 1
	}, 2*time.Second, 10*time.Millisecond)

	bob := dialAs(t, server, serverPub, bobKP)
	defer bob.close()

	env := bob.readEvent()
	require.Equal(t, "ChatRequest", env.Event)

	var payload struct {
		From string `json:"from"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Equal(t, aliceKP.PublicKeyBase58(), payload.From)

	reqs, err := store.ListIncomingRequests(ctx, bobUser.ID)
	require.NoError(t, err)
	require.Empty(t, reqs)
}

// TestChatRequestBlacklistRejectsWithError covers S4.
func TestChatRequestBlacklistRejectsWithError(t *testing.T) {
	store := memory.NewStore()
	server, serverPub := newTestServer(t, store)

	ctx := context.Background()
	aliceKP, err := cryptopkg.NewKeyPair()
	require.NoError(t, err)
	bobKP, err := cryptopkg.NewKeyPair()
	require.NoError(t, err)
	aliceUser, err := store.RegisterUser(ctx, aliceKP.PublicKeyBytes(), false)
	require.NoError(t, err)
	bobUser, err := store.RegisterUser(ctx, bobKP.PublicKeyBytes(), false)
	require.NoError(t, err)
	require.NoError(t, store.AddToBlacklist(ctx, bobUser.ID, aliceUser.PublicKey))

	alice := dialAs(t, server, serverPub, aliceKP)
	defer alice.close()
	bob := dialAs(t, server, serverPub, bobKP)
	defer bob.close()

	alice.sendChatRequest(bob.kp.PublicKeyBase58())

	env := alice.readEvent()
	require.Equal(t, "Error", env.Event)

	var payload struct {
		Name string `json:"name"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	require.Equal(t, "RecipientBlacklist", payload.Name)
}
