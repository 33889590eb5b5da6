// Package registry implements the connection registry: the
// process-wide, concurrent-safe map from connection id to live session,
// ping/pong liveness tracking, and the background reaper loop.
package registry

import (
	"bytes"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/oxidetalis-go/otmpd/events"
	"github.com/oxidetalis-go/otmpd/internal/metrics"
)

// OutboundQueueSize bounds each session's outbound event queue. The
// protocol this is modeled on used an unbounded channel; this
// implementation caps it and drops the oldest pending event on overflow
// rather than let a stalled client grow memory without bound.
const OutboundQueueSize = 256

// PingInterval and PongGrace implement the liveness loop's cadence: ping
// every session, wait for replies, then reap anyone who didn't answer.
const (
	PingInterval = 600 * time.Second
	PongGrace    = 10 * time.Second
)

// ConnID is a 128-bit connection identifier.
type ConnID = uuid.UUID

// NewConnID generates a fresh random connection id.
func NewConnID() ConnID {
	return uuid.New()
}

// Session is one live socket's registry-visible state.
type Session struct {
	ID           ConnID
	UserID       int64
	PublicKey    []byte
	SharedSecret []byte

	Outbound chan *events.Signed

	pingedAt time.Time
	pongedAt time.Time
}

// Registry is the shared connection table.
type Registry struct {
	mu       sync.RWMutex
	sessions map[ConnID]*Session

	stop chan struct{}
	done chan struct{}
}

// New creates a registry and starts its background liveness loop.
func New() *Registry {
	r := &Registry{
		sessions: make(map[ConnID]*Session),
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	go r.livenessLoop()
	return r
}

// Close stops the liveness loop. Sessions are not closed; callers are
// expected to have already drained connections during shutdown.
func (r *Registry) Close() {
	close(r.stop)
	<-r.done
}

// Add registers a new session, creating its bounded outbound queue.
func (r *Registry) Add(publicKey, sharedSecret []byte, userID int64) *Session {
	sess := &Session{
		ID:           NewConnID(),
		UserID:       userID,
		PublicKey:    publicKey,
		SharedSecret: sharedSecret,
		Outbound:     make(chan *events.Signed, OutboundQueueSize),
		pingedAt:     time.Now(),
		pongedAt:     time.Now(),
	}

	r.mu.Lock()
	r.sessions[sess.ID] = sess
	r.mu.Unlock()

	metrics.ConnectionsRegistered.WithLabelValues("success").Inc()
	metrics.ConnectionsOnline.Inc()
	return sess
}

// Remove deletes a session from the registry and closes its outbound
// queue so the drain goroutine observes closure and exits.
func (r *Registry) Remove(id ConnID) {
	r.mu.Lock()
	sess, ok := r.sessions[id]
	if ok {
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	close(sess.Outbound)
	metrics.ConnectionsOnline.Dec()
}

// FindOnline returns the first session whose public key matches.
func (r *Registry) FindOnline(publicKey []byte) (*Session, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, sess := range r.sessions {
		if bytes.Equal(sess.PublicKey, publicKey) {
			return sess, true
		}
	}
	return nil, false
}

// HasOtherSessionForUser reports whether any session other than
// excludeID still belongs to userID, used to decide whether a
// disconnect should mark the user logged out.
func (r *Registry) HasOtherSessionForUser(userID int64, excludeID ConnID) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for id, sess := range r.sessions {
		if id != excludeID && sess.UserID == userID {
			return true
		}
	}
	return false
}

// Send signs event with the session's shared secret and enqueues it. A
// full or closed outbound queue is not an error to the caller: the
// connection is presumed gone and will be pruned by the reaper, but we
// still avoid blocking by dropping the oldest pending event on overflow.
func (r *Registry) Send(id ConnID, event *events.Unsigned) {
	r.mu.RLock()
	sess, ok := r.sessions[id]
	r.mu.RUnlock()
	if !ok {
		return
	}
	r.enqueue(sess, event)
}

func (r *Registry) enqueue(sess *Session, event *events.Unsigned) {
	signed, err := event.Sign(sess.SharedSecret)
	if err != nil {
		return
	}

	defer func() { recover() }() // Outbound may have been closed concurrently by Remove.

	metrics.OutboundQueueDepth.Observe(float64(len(sess.Outbound)))
	select {
	case sess.Outbound <- signed:
	default:
		select {
		case <-sess.Outbound:
		default:
		}
		select {
		case sess.Outbound <- signed:
		default:
		}
	}
}

// PingAll records pingedAt=now on every session and enqueues a signed
// Ping on each outbound sink.
func (r *Registry) PingAll() {
	start := time.Now()
	defer func() {
		metrics.ConnectionOperationDuration.WithLabelValues("ping_all").Observe(time.Since(start).Seconds())
	}()

	now := time.Now()
	ping := events.NewPing(uint64(now.Unix()))

	r.mu.Lock()
	sessions := make([]*Session, 0, len(r.sessions))
	for _, sess := range r.sessions {
		sess.pingedAt = now
		sessions = append(sessions, sess)
	}
	r.mu.Unlock()

	var g errgroup.Group
	for _, sess := range sessions {
		sess := sess
		g.Go(func() error {
			r.enqueue(sess, ping)
			return nil
		})
	}
	_ = g.Wait()
}

// UpdatePong records that a pong was received for id.
func (r *Registry) UpdatePong(id ConnID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if sess, ok := r.sessions[id]; ok {
		sess.pongedAt = time.Now()
	}
}

// ReapInactive closes and drops every session whose last ping wasn't
// answered by a pong. This is the sole liveness-based removal path.
func (r *Registry) ReapInactive() {
	start := time.Now()
	defer func() {
		metrics.ConnectionOperationDuration.WithLabelValues("reap").Observe(time.Since(start).Seconds())
	}()

	r.mu.Lock()
	var stale []*Session
	for id, sess := range r.sessions {
		if sess.pingedAt.After(sess.pongedAt) {
			stale = append(stale, sess)
			delete(r.sessions, id)
		}
	}
	r.mu.Unlock()

	for _, sess := range stale {
		close(sess.Outbound)
		metrics.ConnectionsOnline.Dec()
		metrics.ConnectionsReaped.Inc()
		metrics.ConnectionsClosed.WithLabelValues("reaped").Inc()
	}
}

// Len reports the number of registered sessions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

func (r *Registry) livenessLoop() {
	defer close(r.done)
	ticker := time.NewTicker(PingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.PingAll()
			select {
			case <-time.After(PongGrace):
			case <-r.stop:
				return
			}
			r.ReapInactive()
		case <-r.stop:
			return
		}
	}
}
