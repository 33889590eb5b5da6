package storage

import (
	"context"
	"errors"
	"time"

	"github.com/oxidetalis-go/otmpd/internal/metrics"
)

// Instrumented wraps a Persistence backend and records call counts, error
// counts, and latency samples into the global metrics collector for the
// handful of operations on the hot path (user lookup/registration, chat
// request bookkeeping). Every other method is forwarded unchanged through
// the embedded interface.
type Instrumented struct {
	Persistence
}

// NewInstrumented returns a Persistence that records the backend's hot-path
// operations into metrics.GetGlobalCollector while delegating the actual
// work to next.
func NewInstrumented(next Persistence) *Instrumented {
	return &Instrumented{Persistence: next}
}

func (s *Instrumented) GetUser(ctx context.Context, publicKey []byte) (*User, error) {
	start := time.Now()
	user, err := s.Persistence.GetUser(ctx, publicKey)
	metrics.GetGlobalCollector().RecordPersistenceCall(err == nil || errors.Is(err, ErrUserNotFound), time.Since(start))
	return user, err
}

func (s *Instrumented) RegisterUser(ctx context.Context, publicKey []byte, isAdmin bool) (*User, error) {
	start := time.Now()
	user, err := s.Persistence.RegisterUser(ctx, publicKey, isAdmin)
	metrics.GetGlobalCollector().RecordPersistenceCall(err == nil, time.Since(start))
	return user, err
}

func (s *Instrumented) SaveOutChatRequest(ctx context.Context, senderID int64, recipient []byte) error {
	start := time.Now()
	err := s.Persistence.SaveOutChatRequest(ctx, senderID, recipient)
	metrics.GetGlobalCollector().RecordPersistenceCall(err == nil, time.Since(start))
	return err
}

func (s *Instrumented) SaveIncomingRequest(ctx context.Context, recipientID int64, sender []byte) error {
	start := time.Now()
	err := s.Persistence.SaveIncomingRequest(ctx, recipientID, sender)
	metrics.GetGlobalCollector().RecordPersistenceCall(err == nil, time.Since(start))
	return err
}

func (s *Instrumented) SaveIncomingResponse(ctx context.Context, recipientID int64, sender []byte, accepted bool) error {
	start := time.Now()
	err := s.Persistence.SaveIncomingResponse(ctx, recipientID, sender, accepted)
	metrics.GetGlobalCollector().RecordPersistenceCall(err == nil, time.Since(start))
	return err
}
