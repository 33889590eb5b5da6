// Package orchestrator implements the session orchestrator: upgrade
// handshake verification, session registration, and the per-connection
// receive/dispatch/drain loops, wiring together crypto, noncecache,
// storage, registry, events, and chatrequest.
package orchestrator

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/oxidetalis-go/otmpd/chatrequest"
	cryptopkg "github.com/oxidetalis-go/otmpd/crypto"
	"github.com/oxidetalis-go/otmpd/events"
	"github.com/oxidetalis-go/otmpd/internal/logger"
	"github.com/oxidetalis-go/otmpd/internal/metrics"
	"github.com/oxidetalis-go/otmpd/noncecache"
	"github.com/oxidetalis-go/otmpd/registry"
	"github.com/oxidetalis-go/otmpd/storage"
)

// unregisteredUserID marks a session whose public key has no matching
// row in storage. It is still allowed to connect; most events will just
// yield a RegistredUserEvent error at dispatch time.
const unregisteredUserID int64 = -1

// ErrMissingHeader and ErrBadHandshakeSignature classify upgrade
// rejections for the caller's HTTP response and for metrics.
var (
	ErrMissingHeader         = errors.New("orchestrator: missing X-OTMP-PUBLIC or X-OTMP-SIGNATURE header")
	ErrBadHandshakeSignature = errors.New("orchestrator: upgrade signature failed verification")
)

// Orchestrator holds everything a connection needs to authenticate,
// register, and dispatch events.
type Orchestrator struct {
	server *cryptopkg.KeyPair
	store  storage.Persistence
	nonces *noncecache.Cache
	reg    *registry.Registry
	chat   *chatrequest.Handler
}

// New builds an orchestrator over the given server identity and
// collaborators.
func New(server *cryptopkg.KeyPair, store storage.Persistence, nonces *noncecache.Cache, reg *registry.Registry) *Orchestrator {
	return &Orchestrator{
		server: server,
		store:  store,
		nonces: nonces,
		reg:    reg,
		chat:   chatrequest.New(store, reg),
	}
}

// VerifyUpgrade authenticates an HTTP upgrade request per spec: the
// request must carry X-OTMP-PUBLIC and X-OTMP-SIGNATURE headers, and the
// signature must verify over "GET"+path under the shared secret derived
// from the server's private key and the claimed public key.
func (o *Orchestrator) VerifyUpgrade(r *http.Request) (publicKey, sharedSecret []byte, err error) {
	metrics.UpgradesAttempted.Inc()
	start := time.Now()

	pkEncoded := r.Header.Get("X-OTMP-PUBLIC")
	sigHex := r.Header.Get("X-OTMP-SIGNATURE")
	if pkEncoded == "" || sigHex == "" {
		metrics.UpgradesFailed.WithLabelValues("missing_header").Inc()
		return nil, nil, ErrMissingHeader
	}

	pk, err := cryptopkg.DecodePublicKey(pkEncoded)
	if err != nil {
		metrics.UpgradesFailed.WithLabelValues("bad_signature").Inc()
		return nil, nil, ErrBadHandshakeSignature
	}
	sig, err := cryptopkg.ParseSignatureHex(sigHex)
	if err != nil {
		metrics.UpgradesFailed.WithLabelValues("bad_signature").Inc()
		return nil, nil, ErrBadHandshakeSignature
	}

	secret, err := o.server.SharedSecret(pk)
	if err != nil {
		metrics.UpgradesFailed.WithLabelValues("bad_signature").Inc()
		return nil, nil, ErrBadHandshakeSignature
	}

	payload := []byte("GET" + r.URL.Path)
	metrics.UpgradeDuration.WithLabelValues("verify_headers").Observe(time.Since(start).Seconds())

	if !noncecache.VerifyAndConsume(payload, sig, secret, o.nonces) {
		metrics.UpgradesFailed.WithLabelValues("bad_signature").Inc()
		return nil, nil, ErrBadHandshakeSignature
	}

	return pk, secret, nil
}

// Register looks up the connecting public key (absence does not reject
// the socket) and registers a new session in the registry.
func (o *Orchestrator) Register(ctx context.Context, publicKey, sharedSecret []byte) (*registry.Session, *storage.User) {
	start := time.Now()
	user, err := o.store.GetUser(ctx, publicKey)
	metrics.UpgradeDuration.WithLabelValues("lookup_user").Observe(time.Since(start).Seconds())
	if err != nil && !errors.Is(err, storage.ErrUserNotFound) {
		logger.ErrorMsg("orchestrator: failed to look up user on connect", logger.Error(err))
	}

	userID := unregisteredUserID
	if user != nil {
		userID = user.ID
	}

	start = time.Now()
	sess := o.reg.Add(publicKey, sharedSecret, userID)
	metrics.UpgradeDuration.WithLabelValues("register").Observe(time.Since(start).Seconds())
	metrics.UpgradesCompleted.WithLabelValues("success").Inc()

	return sess, user
}

// ReplayOffline drains any stored incoming requests/responses for a
// newly connected user and enqueues them as signed events, deleting
// each row once it has been queued for delivery.
func (o *Orchestrator) ReplayOffline(ctx context.Context, sess *registry.Session, user *storage.User) {
	if user == nil {
		return
	}

	requests, err := o.store.ListIncomingRequests(ctx, user.ID)
	if err != nil {
		logger.ErrorMsg("orchestrator: failed to list incoming requests", logger.Error(err))
	}
	for _, req := range requests {
		o.reg.Send(sess.ID, events.NewChatRequest(cryptopkg.EncodePublicKey(req.Sender)))
		if err := o.store.DeleteIncomingRequest(ctx, user.ID, req.Sender); err != nil {
			logger.ErrorMsg("orchestrator: failed to delete replayed incoming request", logger.Error(err))
		}
	}

	responses, err := o.store.ListIncomingResponses(ctx, user.ID)
	if err != nil {
		logger.ErrorMsg("orchestrator: failed to list incoming responses", logger.Error(err))
	}
	for _, resp := range responses {
		accepted := resp.Accepted != nil && *resp.Accepted
		o.reg.Send(sess.ID, events.NewChatRequestResponse(cryptopkg.EncodePublicKey(resp.Sender), accepted))
		if err := o.store.DeleteIncomingResponse(ctx, user.ID, resp.Sender, accepted); err != nil {
			logger.ErrorMsg("orchestrator: failed to delete replayed incoming response", logger.Error(err))
		}
	}
}

// Disconnect removes a session and, if no other session remains for the
// same user, marks the user logged out.
func (o *Orchestrator) Disconnect(ctx context.Context, sess *registry.Session) {
	o.reg.Remove(sess.ID)
	metrics.ConnectionsClosed.WithLabelValues("client_close").Inc()

	if sess.UserID == unregisteredUserID {
		return
	}
	if o.reg.HasOtherSessionForUser(sess.UserID, sess.ID) {
		return
	}
	if err := o.store.MarkLogout(ctx, sess.UserID); err != nil {
		logger.ErrorMsg("orchestrator: failed to mark logout", logger.Error(err))
	}
}
