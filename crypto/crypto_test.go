package crypto

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyPair(t *testing.T) {
	t.Run("GenerateKeyPair", func(t *testing.T) {
		kp, err := NewKeyPair()
		require.NoError(t, err)
		assert.Len(t, kp.PublicKeyBytes(), PublicKeySize)
		assert.Len(t, kp.PrivateKeyBytes(), PrivateKeySize)
	})

	t.Run("RoundTripPublicKey", func(t *testing.T) {
		kp, err := NewKeyPair()
		require.NoError(t, err)

		decoded, err := DecodePublicKey(kp.PublicKeyBase58())
		require.NoError(t, err)
		assert.Equal(t, kp.PublicKeyBytes(), decoded)
	})

	t.Run("RoundTripPrivateKey", func(t *testing.T) {
		kp, err := NewKeyPair()
		require.NoError(t, err)

		decoded, err := DecodePrivateKey(kp.PrivateKeyBase58())
		require.NoError(t, err)
		assert.Equal(t, kp.PublicKeyBytes(), decoded.PublicKeyBytes())
	})

	t.Run("InvalidPublicKey", func(t *testing.T) {
		_, err := DecodePublicKey("not-base58-!!!")
		assert.ErrorIs(t, err, ErrInvalidPublicKey)
	})

	t.Run("MultipleKeyPairsDiffer", func(t *testing.T) {
		kp1, err := NewKeyPair()
		require.NoError(t, err)
		kp2, err := NewKeyPair()
		require.NoError(t, err)
		assert.NotEqual(t, kp1.PublicKeyBytes(), kp2.PublicKeyBytes())
	})
}

func TestSharedSecret(t *testing.T) {
	t.Run("SymmetricBetweenPeers", func(t *testing.T) {
		alice, err := NewKeyPair()
		require.NoError(t, err)
		bob, err := NewKeyPair()
		require.NoError(t, err)

		secretA, err := alice.SharedSecret(bob.PublicKeyBytes())
		require.NoError(t, err)
		secretB, err := bob.SharedSecret(alice.PublicKeyBytes())
		require.NoError(t, err)

		assert.Equal(t, secretA, secretB)
		assert.Len(t, secretA, SharedSecretSize)
	})

	t.Run("DifferentPeersDifferentSecrets", func(t *testing.T) {
		alice, err := NewKeyPair()
		require.NoError(t, err)
		bob, err := NewKeyPair()
		require.NoError(t, err)
		carol, err := NewKeyPair()
		require.NoError(t, err)

		secretAB, err := alice.SharedSecret(bob.PublicKeyBytes())
		require.NoError(t, err)
		secretAC, err := alice.SharedSecret(carol.PublicKeyBytes())
		require.NoError(t, err)

		assert.NotEqual(t, secretAB, secretAC)
	})

	t.Run("InvalidPeerKey", func(t *testing.T) {
		alice, err := NewKeyPair()
		require.NoError(t, err)
		_, err = alice.SharedSecret([]byte("too short"))
		assert.ErrorIs(t, err, ErrInvalidPublicKey)
	})
}

func TestSignAndVerify(t *testing.T) {
	secret := make([]byte, SharedSecretSize)
	for i := range secret {
		secret[i] = byte(i)
	}

	t.Run("ValidSignatureVerifies", func(t *testing.T) {
		data := []byte("ping")
		sig, err := Sign(data, secret)
		require.NoError(t, err)
		assert.True(t, Verify(data, sig, secret))
	})

	t.Run("WrongDataFails", func(t *testing.T) {
		sig, err := Sign([]byte("ping"), secret)
		require.NoError(t, err)
		assert.False(t, Verify([]byte("pong"), sig, secret))
	})

	t.Run("WrongSecretFails", func(t *testing.T) {
		data := []byte("ping")
		sig, err := Sign(data, secret)
		require.NoError(t, err)

		other := make([]byte, SharedSecretSize)
		copy(other, secret)
		other[0] ^= 0xFF
		assert.False(t, Verify(data, sig, other))
	})

	t.Run("WireRoundTrip", func(t *testing.T) {
		data := []byte("ping")
		sig, err := Sign(data, secret)
		require.NoError(t, err)

		encoded := sig.Hex()
		assert.Len(t, encoded, SignatureSize*2)

		decoded, err := ParseSignatureHex(encoded)
		require.NoError(t, err)
		assert.Equal(t, sig.HMAC, decoded.HMAC)
		assert.Equal(t, sig.Timestamp, decoded.Timestamp)
		assert.Equal(t, sig.Nonce, decoded.Nonce)
		assert.True(t, Verify(data, decoded, secret))
	})

	t.Run("RejectsWrongLength", func(t *testing.T) {
		_, err := ParseSignature(make([]byte, 10))
		assert.ErrorIs(t, err, ErrInvalidSignature)
	})

	t.Run("EachSignatureHasFreshNonce", func(t *testing.T) {
		data := []byte("ping")
		sig1, err := Sign(data, secret)
		require.NoError(t, err)
		sig2, err := Sign(data, secret)
		require.NoError(t, err)
		assert.NotEqual(t, sig1.Nonce, sig2.Nonce)
	})
}
