package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/oxidetalis-go/otmpd/events"
	"github.com/oxidetalis-go/otmpd/internal/logger"
	"github.com/oxidetalis-go/otmpd/registry"
	"github.com/oxidetalis-go/otmpd/storage"
	wsconn "github.com/oxidetalis-go/otmpd/transport/websocket"
)

// ServeHTTP authenticates the upgrade handshake, promotes the
// connection to a WebSocket, registers a session, replays any stored
// offline events, and runs the receive/drain loops until the peer
// disconnects.
func (o *Orchestrator) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	publicKey, sharedSecret, err := o.VerifyUpgrade(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusUnauthorized)
		return
	}

	conn, err := wsconn.Upgrade(w, r)
	if err != nil {
		logger.ErrorMsg("orchestrator: websocket upgrade failed", logger.Error(err))
		return
	}
	defer conn.Close()

	ctx := r.Context()
	sess, user := o.Register(ctx, publicKey, sharedSecret)
	o.ReplayOffline(ctx, sess, user)

	drainDone := make(chan struct{})
	go o.drainLoop(conn, sess, drainDone)

	o.receiveLoop(ctx, conn, sess, user)

	close(drainDone)
	o.Disconnect(ctx, sess)
}

func (o *Orchestrator) receiveLoop(ctx context.Context, conn *wsconn.Conn, sess *registry.Session, user *storage.User) {
	for {
		frame, err := conn.ReadTextFrame()
		if err != nil {
			if errors.Is(err, wsconn.ErrNotText) {
				o.reg.Send(sess.ID, events.NewError(events.ErrNotTextMessage, "binary frames are not supported"))
				continue
			}
			if wsconn.IsUnexpectedClose(err) {
				logger.Warn("orchestrator: connection closed unexpectedly", logger.Error(err))
			}
			return
		}
		o.Dispatch(ctx, sess, user, frame)
	}
}

func (o *Orchestrator) drainLoop(conn *wsconn.Conn, sess *registry.Session, done <-chan struct{}) {
	for {
		select {
		case signed, ok := <-sess.Outbound:
			if !ok {
				return
			}
			payload, err := json.Marshal(signed)
			if err != nil {
				logger.ErrorMsg("orchestrator: failed to encode outbound event", logger.Error(err))
				continue
			}
			if err := conn.WriteTextFrame(payload); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
