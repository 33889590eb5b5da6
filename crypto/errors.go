package crypto

import "errors"

var (
	// ErrInvalidSignature is returned when a signature is malformed
	// (wrong length or bad hex). A failed HMAC check is reported by
	// Verify returning false, not by this error.
	ErrInvalidSignature = errors.New("crypto: invalid signature")

	// ErrInvalidPublicKey is returned when a public key cannot be
	// decoded to a valid compressed secp256k1 point.
	ErrInvalidPublicKey = errors.New("crypto: invalid public key")

	// ErrInvalidPrivateKey is returned when a private key cannot be
	// decoded to a valid secp256k1 scalar.
	ErrInvalidPrivateKey = errors.New("crypto: invalid private key")
)
