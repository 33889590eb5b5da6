package storage

import "errors"

// Sentinel policy errors returned by Persistence implementations. These are
// distinct from a generic backend error (connection refused, constraint
// violation on an unrelated column, etc.), which implementations wrap and
// return unchanged.
var (
	ErrAlreadyRegistered             = errors.New("public key already registered")
	ErrAlreadyOnWhitelist            = errors.New("target already whitelisted")
	ErrAlreadyOnBlacklist            = errors.New("target already blacklisted")
	ErrCannotAddSelfToWhitelist      = errors.New("cannot add self to whitelist")
	ErrCannotAddSelfToBlacklist      = errors.New("cannot add self to blacklist")
	ErrAlreadySentChatRequest        = errors.New("chat request already sent to recipient")
	ErrUserNotFound                  = errors.New("user not found")
)
