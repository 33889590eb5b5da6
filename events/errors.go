package events

import "errors"

// ErrInvalidJSON and ErrUnknownEvent classify a frame parse failure
// before it ever reaches signature verification: the former means the
// bytes are not JSON at all, the latter means they parsed but didn't
// match the expected envelope/payload shape.
var (
	ErrInvalidJSON  = errors.New("events: frame is not valid JSON")
	ErrUnknownEvent = errors.New("events: unrecognized client event")
)

// ErrorName is a stable wire-level error code reported in a signed
// Error event's "name" field.
type ErrorName string

const (
	ErrInternalServerError         ErrorName = "InternalServerError"
	ErrInvalidSignature            ErrorName = "InvalidSignature"
	ErrNotTextMessage               ErrorName = "NotTextMessage"
	ErrInvalidJSONData              ErrorName = "InvalidJsonData"
	ErrUnknownClientEvent            ErrorName = "UnknownClientEvent"
	ErrRegisteredUserEvent          ErrorName = "RegistredUserEvent"
	ErrUserNotFound                 ErrorName = "UserNotFound"
	ErrAlreadyOnWhitelist           ErrorName = "AlreadyOnTheWhitelist"
	ErrCannotAddSelfToWhitelist     ErrorName = "CannotAddSelfToWhitelist"
	ErrAlreadyOnBlacklist           ErrorName = "AlreadyOnTheBlacklist"
	ErrCannotAddSelfToBlacklist     ErrorName = "CannotAddSelfToBlacklist"
	ErrAlreadySendChatRequest       ErrorName = "AlreadySendChatRequest"
	ErrCannotSendChatRequestToSelf  ErrorName = "CannotSendChatRequestToSelf"
	ErrCannotRespondToOwnChatRequest ErrorName = "CannotRespondToOwnChatRequest"
	ErrNoChatRequestFromRecipient   ErrorName = "NoChatRequestFromRecipient"
	ErrRecipientBlacklist           ErrorName = "RecipientBlacklist"
	ErrAlreadyInRecipientWhitelist  ErrorName = "AlreadyInRecipientWhitelist"
)
