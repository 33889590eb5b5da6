package storage

import "time"

// User is a registered OTMP account, identified by its compressed
// secp256k1 public key.
type User struct {
	ID         int64     `json:"id"`
	PublicKey  []byte    `json:"public_key"`
	IsAdmin    bool      `json:"is_admin"`
	LastLogout time.Time `json:"last_logout"`
}

// RelationshipStatus is the exclusive whitelist/blacklist state between
// an owner user and a target public key.
type RelationshipStatus string

const (
	StatusWhitelisted RelationshipStatus = "whitelisted"
	StatusBlacklisted RelationshipStatus = "blacklisted"
)

// Relationship is a row in users_status: at most one per (owner, target).
type Relationship struct {
	OwnerID   int64              `json:"owner_id"`
	Target    []byte             `json:"target"`
	Status    RelationshipStatus `json:"status"`
	UpdatedAt time.Time          `json:"updated_at"`
}

// OutChatRequest is a chat request this server's user sent, awaiting a
// response from the (possibly offline) recipient.
type OutChatRequest struct {
	SenderID  int64     `json:"sender_id"`
	Recipient []byte    `json:"recipient"`
	OutOn     time.Time `json:"out_on"`
}

// IncomingEvent is a chat request or chat-request response stored for a
// recipient who was offline when it arrived.
//
// Accepted is nil for a pending request, and non-nil for a response
// (true = accepted, false = rejected) carried back to the original sender.
type IncomingEvent struct {
	RecipientID int64     `json:"recipient_id"`
	Sender      []byte    `json:"sender"`
	Accepted    *bool     `json:"accepted,omitempty"`
	ReceivedAt  time.Time `json:"received_at"`
}
