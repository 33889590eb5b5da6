// Package crypto implements the OTMP signature protocol's primitives:
// secp256k1 key pairs, ECDH-derived shared secrets, and HMAC-SHA256
// signatures over those secrets.
package crypto

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/mr-tron/base58"
)

// PublicKeySize is the length in bytes of a compressed secp256k1 point.
const PublicKeySize = 33

// PrivateKeySize is the length in bytes of a secp256k1 scalar.
const PrivateKeySize = 32

// KeyPair is a secp256k1 identity: a long-lived key a client or server
// uses to authenticate itself and derive per-peer shared secrets.
type KeyPair struct {
	private *secp256k1.PrivateKey
	public  *secp256k1.PublicKey
}

// NewKeyPair generates a fresh secp256k1 scalar and its compressed point.
func NewKeyPair() (*KeyPair, error) {
	priv, err := secp256k1.GeneratePrivateKey()
	if err != nil {
		return nil, err
	}
	return &KeyPair{private: priv, public: priv.PubKey()}, nil
}

// KeyPairFromPrivateKey rebuilds a key pair from a raw 32-byte scalar,
// e.g. one loaded from configuration at startup.
func KeyPairFromPrivateKey(raw []byte) (*KeyPair, error) {
	if len(raw) != PrivateKeySize {
		return nil, ErrInvalidPrivateKey
	}
	priv := secp256k1.PrivKeyFromBytes(raw)
	return &KeyPair{private: priv, public: priv.PubKey()}, nil
}

// PublicKeyBytes returns the 33-byte compressed public key.
func (kp *KeyPair) PublicKeyBytes() []byte {
	return kp.public.SerializeCompressed()
}

// PrivateKeyBytes returns the 32-byte scalar.
func (kp *KeyPair) PrivateKeyBytes() []byte {
	return kp.private.Serialize()
}

// PublicKeyBase58 returns the base58 encoding of the compressed public key.
func (kp *KeyPair) PublicKeyBase58() string {
	return EncodePublicKey(kp.PublicKeyBytes())
}

// PrivateKeyBase58 returns the base58 encoding of the private scalar.
func (kp *KeyPair) PrivateKeyBase58() string {
	return base58.Encode(kp.PrivateKeyBytes())
}

// EncodePublicKey base58-encodes a 33-byte compressed public key.
func EncodePublicKey(pub []byte) string {
	return base58.Encode(pub)
}

// DecodePublicKey base58-decodes and validates a compressed public key,
// returning the parsed secp256k1 point's canonical compressed bytes.
func DecodePublicKey(encoded string) ([]byte, error) {
	raw, err := base58.Decode(encoded)
	if err != nil || len(raw) != PublicKeySize {
		return nil, ErrInvalidPublicKey
	}
	pub, err := secp256k1.ParsePubKey(raw)
	if err != nil {
		return nil, ErrInvalidPublicKey
	}
	return pub.SerializeCompressed(), nil
}

// DecodePrivateKey base58-decodes a private scalar and builds the
// corresponding key pair.
func DecodePrivateKey(encoded string) (*KeyPair, error) {
	raw, err := base58.Decode(encoded)
	if err != nil {
		return nil, ErrInvalidPrivateKey
	}
	return KeyPairFromPrivateKey(raw)
}
