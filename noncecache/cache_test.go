package noncecache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxidetalis-go/otmpd/crypto"
)

func newSig(t *testing.T, ts uint64) *crypto.Signature {
	t.Helper()
	secret := make([]byte, crypto.SharedSecretSize)
	sig, err := crypto.Sign([]byte("payload"), secret)
	require.NoError(t, err)
	sig.Timestamp = ts
	return sig
}

func TestCheckAndConsume(t *testing.T) {
	t.Run("FirstSeenAccepted", func(t *testing.T) {
		c := NewCache(1 << 20)
		defer c.Close()

		sig := newSig(t, uint64(time.Now().Unix()))
		assert.True(t, c.CheckAndConsume(sig))
	})

	t.Run("ReplayRejected", func(t *testing.T) {
		c := NewCache(1 << 20)
		defer c.Close()

		sig := newSig(t, uint64(time.Now().Unix()))
		assert.True(t, c.CheckAndConsume(sig))
		assert.False(t, c.CheckAndConsume(sig))
	})

	t.Run("StaleTimestampRejected", func(t *testing.T) {
		c := NewCache(1 << 20)
		defer c.Close()

		sig := newSig(t, uint64(time.Now().Add(-time.Minute).Unix()))
		assert.False(t, c.CheckAndConsume(sig))
	})

	t.Run("FutureTimestampRejected", func(t *testing.T) {
		c := NewCache(1 << 20)
		defer c.Close()

		sig := newSig(t, uint64(time.Now().Add(time.Minute).Unix()))
		assert.False(t, c.CheckAndConsume(sig))
	})

	t.Run("BoundaryOfWindowAccepted", func(t *testing.T) {
		c := NewCache(1 << 20)
		defer c.Close()

		sig := newSig(t, uint64(time.Now().Add(-FreshnessWindow).Unix()))
		assert.True(t, c.CheckAndConsume(sig))
	})

	t.Run("CapacityEvictsOldest", func(t *testing.T) {
		c := NewCache(3 * perEntryOverhead)
		defer c.Close()

		now := uint64(time.Now().Unix())
		first := newSig(t, now)
		assert.True(t, c.CheckAndConsume(first))

		for i := 0; i < 10; i++ {
			sig := newSig(t, now)
			assert.True(t, c.CheckAndConsume(sig))
		}

		assert.LessOrEqual(t, c.Len(), 3)
		// first was evicted, so it is no longer recognised as a replay.
		assert.True(t, c.CheckAndConsume(first))
	})
}

func TestVerifyAndConsume(t *testing.T) {
	secret := make([]byte, crypto.SharedSecretSize)
	data := []byte("ping")

	t.Run("ValidSignaturePasses", func(t *testing.T) {
		c := NewCache(1 << 20)
		defer c.Close()

		sig, err := crypto.Sign(data, secret)
		require.NoError(t, err)
		assert.True(t, VerifyAndConsume(data, sig, secret, c))
	})

	t.Run("BadHMACNeverTouchesCache", func(t *testing.T) {
		c := NewCache(1 << 20)
		defer c.Close()

		sig, err := crypto.Sign(data, secret)
		require.NoError(t, err)
		sig.HMAC[0] ^= 0xFF

		assert.False(t, VerifyAndConsume(data, sig, secret, c))
		assert.Equal(t, 0, c.Len())
	})

	t.Run("ReplayOfValidSignatureRejected", func(t *testing.T) {
		c := NewCache(1 << 20)
		defer c.Close()

		sig, err := crypto.Sign(data, secret)
		require.NoError(t, err)

		assert.True(t, VerifyAndConsume(data, sig, secret, c))
		assert.False(t, VerifyAndConsume(data, sig, secret, c))
	})
}
