package orchestrator

import (
	"context"
	"errors"
	"time"

	cryptopkg "github.com/oxidetalis-go/otmpd/crypto"
	"github.com/oxidetalis-go/otmpd/events"
	"github.com/oxidetalis-go/otmpd/internal/metrics"
	"github.com/oxidetalis-go/otmpd/noncecache"
	"github.com/oxidetalis-go/otmpd/registry"
	"github.com/oxidetalis-go/otmpd/storage"
)

// Dispatch handles one inbound text frame for an established session:
// it verifies the envelope and its signature, decodes the payload for
// the declared tag, and runs the matching handler. Any resulting
// server event is signed and enqueued on the same session.
func (o *Orchestrator) Dispatch(ctx context.Context, sess *registry.Session, user *storage.User, frame []byte) {
	start := time.Now()
	metrics.MessageSize.Observe(float64(len(frame)))
	defer func() {
		metrics.MessageProcessingDuration.Observe(time.Since(start).Seconds())
	}()

	in, err := events.ParseInbound(frame)
	if err != nil {
		name := events.ErrUnknownClientEvent
		if errors.Is(err, events.ErrInvalidJSON) {
			name = events.ErrInvalidJSONData
		}
		o.reg.Send(sess.ID, events.NewError(name, err.Error()))
		metrics.MessagesProcessed.WithLabelValues("text", "failure").Inc()
		return
	}

	if !noncecache.VerifyAndConsume(in.DataBytes, in.Signature, sess.SharedSecret, o.nonces) {
		o.reg.Send(sess.ID, events.NewError(events.ErrInvalidSignature, "signature failed verification"))
		metrics.MessagesProcessed.WithLabelValues("text", "failure").Inc()
		return
	}

	var resp *events.Unsigned
	switch in.Event {
	case events.TagPing:
		resp = o.handlePing(in)
	case events.TagPong:
		o.reg.UpdatePong(sess.ID)
	case events.TagChatRequest:
		resp = o.handleChatRequest(ctx, user, in)
	case events.TagChatRequestResponse:
		resp = o.handleChatRequestResponse(ctx, user, in)
	default:
		resp = events.NewError(events.ErrUnknownClientEvent, "unrecognized event tag")
	}

	if resp != nil {
		o.reg.Send(sess.ID, resp)
	}
	metrics.MessagesProcessed.WithLabelValues("text", "success").Inc()
}

func (o *Orchestrator) handlePing(in *events.Inbound) *events.Unsigned {
	data, err := in.DecodePing()
	if err != nil {
		return events.NewError(events.ErrUnknownClientEvent, "malformed Ping payload")
	}
	return events.NewPong(data.Timestamp)
}

func (o *Orchestrator) handleChatRequest(ctx context.Context, user *storage.User, in *events.Inbound) *events.Unsigned {
	data, err := in.DecodeChatRequest()
	if err != nil {
		return events.NewError(events.ErrUnknownClientEvent, "malformed ChatRequest payload")
	}
	to, err := cryptopkg.DecodePublicKey(data.To)
	if err != nil {
		return events.NewError(events.ErrUserNotFound, "malformed recipient public key")
	}
	return o.chat.HandleRequest(ctx, user, to)
}

func (o *Orchestrator) handleChatRequestResponse(ctx context.Context, user *storage.User, in *events.Inbound) *events.Unsigned {
	data, err := in.DecodeChatRequestResponse()
	if err != nil {
		return events.NewError(events.ErrUnknownClientEvent, "malformed ChatRequestResponse payload")
	}
	sender, err := cryptopkg.DecodePublicKey(data.To)
	if err != nil {
		return events.NewError(events.ErrUserNotFound, "malformed sender public key")
	}
	return o.chat.HandleResponse(ctx, user, sender, data.Accepted)
}
