// Package chatrequest implements the chat-request state machine: sending
// a request and responding to one, each an ordered sequence of
// preconditions against the persistence layer and the connection
// registry.
package chatrequest

import (
	"context"
	"errors"

	cryptopkg "github.com/oxidetalis-go/otmpd/crypto"
	"github.com/oxidetalis-go/otmpd/events"
	"github.com/oxidetalis-go/otmpd/internal/logger"
	"github.com/oxidetalis-go/otmpd/internal/metrics"
	"github.com/oxidetalis-go/otmpd/registry"
	"github.com/oxidetalis-go/otmpd/storage"
)

// Handler implements the two chat-request operations against a
// persistence backend and the live connection registry.
type Handler struct {
	store storage.Persistence
	reg   *registry.Registry
}

// New builds a chat-request handler.
func New(store storage.Persistence, reg *registry.Registry) *Handler {
	return &Handler{store: store, reg: reg}
}

func errEvent(name events.ErrorName, reason string) *events.Unsigned {
	return events.NewError(name, reason)
}

func internalError(action string, err error) *events.Unsigned {
	logger.ErrorMsg("chatrequest: "+action+" failed", logger.Error(err))
	return errEvent(events.ErrInternalServerError, "internal server error")
}

// HandleRequest implements spec step-by-step: a registered, online
// sender S asks to open a chat with the user identified by
// toPublicKey. It returns an event to send back to S, or nil for "no
// response" (the normal success path — R is notified directly, not S).
func (h *Handler) HandleRequest(ctx context.Context, from *storage.User, toPublicKey []byte) *events.Unsigned {
	if from == nil {
		return errEvent(events.ErrRegisteredUserEvent, "you must be a registered user to send chat requests")
	}

	to, err := h.store.GetUser(ctx, toPublicKey)
	if errors.Is(err, storage.ErrUserNotFound) {
		return errEvent(events.ErrUserNotFound, "no such user")
	}
	if err != nil {
		return internalError("get_user", err)
	}

	if from.ID == to.ID {
		return errEvent(events.ErrCannotSendChatRequestToSelf, "cannot send a chat request to yourself")
	}

	existing, err := h.store.GetOutChatRequest(ctx, from.ID, toPublicKey)
	if err != nil {
		return internalError("get_out_chat_request", err)
	}
	if existing != nil {
		return errEvent(events.ErrAlreadySendChatRequest, "a chat request is already pending")
	}

	blacklisted, err := h.store.IsBlacklisted(ctx, to.ID, from.PublicKey)
	if err != nil {
		return internalError("is_blacklisted", err)
	}
	if blacklisted {
		return errEvent(events.ErrRecipientBlacklist, "recipient has blacklisted you")
	}

	if err := h.store.AddToWhitelist(ctx, from.ID, toPublicKey); err != nil &&
		!errors.Is(err, storage.ErrAlreadyOnWhitelist) {
		return internalError("add_to_whitelist", err)
	}

	whitelisted, err := h.store.IsWhitelisted(ctx, to.ID, from.PublicKey)
	if err != nil {
		return internalError("is_whitelisted", err)
	}
	if whitelisted {
		return errEvent(events.ErrAlreadyInRecipientWhitelist, "you are already whitelisted by the recipient")
	}

	if err := h.store.SaveOutChatRequest(ctx, from.ID, toPublicKey); err != nil {
		return internalError("save_out_chat_request", err)
	}

	fromEncoded := cryptopkg.EncodePublicKey(from.PublicKey)
	if sess, online := h.reg.FindOnline(toPublicKey); online {
		h.reg.Send(sess.ID, events.NewChatRequest(fromEncoded))
	} else if err := h.store.SaveIncomingRequest(ctx, to.ID, from.PublicKey); err != nil {
		return internalError("save_incoming_request", err)
	}

	metrics.ChatRequestsSent.Inc()
	return nil
}

// HandleResponse implements the response half: recipient R accepts or
// rejects a pending request from S.
func (h *Handler) HandleResponse(ctx context.Context, recipient *storage.User, senderPublicKey []byte, accepted bool) *events.Unsigned {
	if recipient == nil {
		return errEvent(events.ErrRegisteredUserEvent, "you must be a registered user to respond to chat requests")
	}

	sender, err := h.store.GetUser(ctx, senderPublicKey)
	if errors.Is(err, storage.ErrUserNotFound) {
		return errEvent(events.ErrUserNotFound, "no such user")
	}
	if err != nil {
		return internalError("get_user", err)
	}

	if recipient.ID == sender.ID {
		return errEvent(events.ErrCannotRespondToOwnChatRequest, "cannot respond to your own chat request")
	}

	pending, err := h.store.GetOutChatRequest(ctx, sender.ID, recipient.PublicKey)
	if err != nil {
		return internalError("get_out_chat_request", err)
	}
	if pending == nil {
		return errEvent(events.ErrNoChatRequestFromRecipient, "no chat request from that user")
	}

	// Either outcome (inserted, already present, or opposite-status
	// updated) is acceptable; only a genuine backend error aborts.
	var relErr error
	if accepted {
		relErr = h.store.AddToWhitelist(ctx, recipient.ID, senderPublicKey)
	} else {
		relErr = h.store.AddToBlacklist(ctx, recipient.ID, senderPublicKey)
	}
	if relErr != nil && !isExpectedRelationshipOutcome(relErr) {
		return internalError("add_to_relationship_list", relErr)
	}

	if err := h.store.RemoveOutChatRequest(ctx, sender.ID, recipient.PublicKey); err != nil {
		return internalError("remove_out_chat_request", err)
	}

	decision := "rejected"
	if accepted {
		decision = "accepted"
	}
	metrics.ChatRequestsResponded.WithLabelValues(decision).Inc()

	recipientEncoded := cryptopkg.EncodePublicKey(recipient.PublicKey)
	if sess, online := h.reg.FindOnline(senderPublicKey); online {
		h.reg.Send(sess.ID, events.NewChatRequestResponse(recipientEncoded, accepted))
	} else if err := h.store.SaveIncomingResponse(ctx, sender.ID, recipient.PublicKey, accepted); err != nil {
		return internalError("save_incoming_response", err)
	}

	return nil
}

func isExpectedRelationshipOutcome(err error) bool {
	return errors.Is(err, storage.ErrAlreadyOnWhitelist) ||
		errors.Is(err, storage.ErrAlreadyOnBlacklist)
}
