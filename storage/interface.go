package storage

import "context"

// Persistence is the durable store behind the homeserver: registered
// users, their whitelist/blacklist relationships, and chat-request events
// addressed to users who are currently offline. It deliberately excludes
// anything in-memory-only (the nonce cache and the live connection
// registry own their own state).
type Persistence interface {
	// UsersExist reports whether any user has ever registered. The first
	// registration is granted admin.
	UsersExist(ctx context.Context) (bool, error)

	// RegisterUser inserts a new user. Returns ErrAlreadyRegistered if the
	// public key is already present.
	RegisterUser(ctx context.Context, publicKey []byte, isAdmin bool) (*User, error)

	// GetUser looks a user up by public key. Returns ErrUserNotFound if
	// absent.
	GetUser(ctx context.Context, publicKey []byte) (*User, error)

	// MarkLogout stamps last_logout = now for the given user.
	MarkLogout(ctx context.Context, userID int64) error

	// AddToWhitelist converts an existing blacklist row to whitelisted or
	// inserts a new row. Returns ErrAlreadyOnWhitelist if the row is
	// already whitelisted, or ErrCannotAddSelfToWhitelist if owner==target.
	AddToWhitelist(ctx context.Context, ownerID int64, target []byte) error

	// AddToBlacklist is AddToWhitelist's mirror image.
	AddToBlacklist(ctx context.Context, ownerID int64, target []byte) error

	IsWhitelisted(ctx context.Context, ownerID int64, target []byte) (bool, error)
	IsBlacklisted(ctx context.Context, ownerID int64, target []byte) (bool, error)

	ListWhitelist(ctx context.Context, ownerID int64, page, pageSize int) ([]Relationship, error)
	ListBlacklist(ctx context.Context, ownerID int64, page, pageSize int) ([]Relationship, error)

	// SaveOutChatRequest inserts an outgoing chat request. Returns
	// ErrAlreadySentChatRequest on a duplicate (sender, recipient) pair.
	SaveOutChatRequest(ctx context.Context, senderID int64, recipient []byte) error

	GetOutChatRequest(ctx context.Context, senderID int64, recipient []byte) (*OutChatRequest, error)

	// RemoveOutChatRequest is an idempotent delete.
	RemoveOutChatRequest(ctx context.Context, senderID int64, recipient []byte) error

	// SaveIncomingRequest stores a pending chat request for an offline
	// recipient. Idempotent on (recipient, sender, pending).
	SaveIncomingRequest(ctx context.Context, recipientID int64, sender []byte) error

	// SaveIncomingResponse stores a chat-request response for an offline
	// original requester. Idempotent on (recipient, sender, accepted).
	SaveIncomingResponse(ctx context.Context, recipientID int64, sender []byte, accepted bool) error

	ListIncomingRequests(ctx context.Context, recipientID int64) ([]IncomingEvent, error)
	ListIncomingResponses(ctx context.Context, recipientID int64) ([]IncomingEvent, error)

	// DeleteIncomingRequest removes a pending request row after it has
	// been replayed to the now-connected recipient.
	DeleteIncomingRequest(ctx context.Context, recipientID int64, sender []byte) error

	// DeleteIncomingResponse removes a response row after replay.
	DeleteIncomingResponse(ctx context.Context, recipientID int64, sender []byte, accepted bool) error

	// Close releases backend resources (no-op for the in-memory store).
	Close() error

	// Ping checks the backend connection (always succeeds for the
	// in-memory store).
	Ping(ctx context.Context) error
}
