package registry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oxidetalis-go/otmpd/events"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := New()
	t.Cleanup(r.Close)
	return r
}

func TestAddFindRemove(t *testing.T) {
	r := newTestRegistry(t)

	pk := []byte("alice-pubkey-000000000000000000")
	sess := r.Add(pk, make([]byte, 32), 1)
	require.NotNil(t, sess)
	assert.Equal(t, 1, r.Len())

	found, ok := r.FindOnline(pk)
	require.True(t, ok)
	assert.Equal(t, sess.ID, found.ID)

	r.Remove(sess.ID)
	assert.Equal(t, 0, r.Len())
	_, ok = r.FindOnline(pk)
	assert.False(t, ok)
}

func TestSendEnqueuesSignedEvent(t *testing.T) {
	r := newTestRegistry(t)
	sess := r.Add([]byte("pk"), make([]byte, 32), 1)

	r.Send(sess.ID, events.NewPing(123))

	select {
	case signed := <-sess.Outbound:
		require.NotNil(t, signed)
	case <-time.After(time.Second):
		t.Fatal("expected a signed event on the outbound queue")
	}
}

func TestSendAfterRemoveIsSilentlyDropped(t *testing.T) {
	r := newTestRegistry(t)
	sess := r.Add([]byte("pk"), make([]byte, 32), 1)
	r.Remove(sess.ID)

	assert.NotPanics(t, func() {
		r.Send(sess.ID, events.NewPing(123))
	})
}

func TestPingAllThenUpdatePongThenReap(t *testing.T) {
	r := newTestRegistry(t)
	sess := r.Add([]byte("pk"), make([]byte, 32), 1)

	r.PingAll()
	r.UpdatePong(sess.ID)
	r.ReapInactive()

	assert.Equal(t, 1, r.Len(), "a session that ponged after the last ping should survive")
}

func TestReapInactiveDropsUnanswered(t *testing.T) {
	r := newTestRegistry(t)
	sess := r.Add([]byte("pk"), make([]byte, 32), 1)
	_ = sess

	r.PingAll()
	r.ReapInactive()

	assert.Equal(t, 0, r.Len())
}

func TestHasOtherSessionForUser(t *testing.T) {
	r := newTestRegistry(t)
	s1 := r.Add([]byte("pk1"), make([]byte, 32), 42)
	assert.False(t, r.HasOtherSessionForUser(42, s1.ID))

	s2 := r.Add([]byte("pk2"), make([]byte, 32), 42)
	assert.True(t, r.HasOtherSessionForUser(42, s1.ID))

	r.Remove(s2.ID)
	assert.False(t, r.HasOtherSessionForUser(42, s1.ID))
}
