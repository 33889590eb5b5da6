// Package memory implements storage.Persistence entirely in process
// memory, for tests and single-node development deployments.
package memory

import (
	"bytes"
	"context"
	"sync"
	"time"

	"github.com/oxidetalis-go/otmpd/storage"
)

type relationshipKey struct {
	owner  int64
	target string
}

type outRequestKey struct {
	sender    int64
	recipient string
}

// Store implements storage.Persistence with in-memory maps guarded by a
// single RWMutex. Good enough for development and for tests that want a
// real Persistence without a database.
type Store struct {
	mu sync.RWMutex

	nextUserID    int64
	usersByPK     map[string]*storage.User
	usersByID     map[int64]*storage.User
	relationships map[relationshipKey]*storage.Relationship
	outRequests   map[outRequestKey]*storage.OutChatRequest
	incoming      []storage.IncomingEvent
}

// NewStore creates a new empty in-memory store.
func NewStore() *Store {
	return &Store{
		usersByPK:     make(map[string]*storage.User),
		usersByID:     make(map[int64]*storage.User),
		relationships: make(map[relationshipKey]*storage.Relationship),
		outRequests:   make(map[outRequestKey]*storage.OutChatRequest),
	}
}

func (s *Store) UsersExist(ctx context.Context) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.usersByPK) > 0, nil
}

func (s *Store) RegisterUser(ctx context.Context, publicKey []byte, isAdmin bool) (*storage.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := string(publicKey)
	if _, exists := s.usersByPK[key]; exists {
		return nil, storage.ErrAlreadyRegistered
	}

	s.nextUserID++
	user := &storage.User{
		ID:        s.nextUserID,
		PublicKey: append([]byte(nil), publicKey...),
		IsAdmin:   isAdmin,
	}
	s.usersByPK[key] = user
	s.usersByID[user.ID] = user

	userCopy := *user
	return &userCopy, nil
}

func (s *Store) GetUser(ctx context.Context, publicKey []byte) (*storage.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	user, exists := s.usersByPK[string(publicKey)]
	if !exists {
		return nil, storage.ErrUserNotFound
	}
	userCopy := *user
	return &userCopy, nil
}

func (s *Store) MarkLogout(ctx context.Context, userID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, exists := s.usersByID[userID]
	if !exists {
		return storage.ErrUserNotFound
	}
	user.LastLogout = time.Now()
	return nil
}

func (s *Store) addToList(ctx context.Context, ownerID int64, target []byte, want storage.RelationshipStatus) error {
	key := relationshipKey{owner: ownerID, target: string(target)}

	s.mu.Lock()
	defer s.mu.Unlock()

	if user, ok := s.usersByID[ownerID]; ok && bytes.Equal(user.PublicKey, target) {
		if want == storage.StatusWhitelisted {
			return storage.ErrCannotAddSelfToWhitelist
		}
		return storage.ErrCannotAddSelfToBlacklist
	}

	existing, exists := s.relationships[key]
	if exists && existing.Status == want {
		if want == storage.StatusWhitelisted {
			return storage.ErrAlreadyOnWhitelist
		}
		return storage.ErrAlreadyOnBlacklist
	}

	s.relationships[key] = &storage.Relationship{
		OwnerID:   ownerID,
		Target:    append([]byte(nil), target...),
		Status:    want,
		UpdatedAt: time.Now(),
	}
	return nil
}

func (s *Store) AddToWhitelist(ctx context.Context, ownerID int64, target []byte) error {
	return s.addToList(ctx, ownerID, target, storage.StatusWhitelisted)
}

func (s *Store) AddToBlacklist(ctx context.Context, ownerID int64, target []byte) error {
	return s.addToList(ctx, ownerID, target, storage.StatusBlacklisted)
}

func (s *Store) IsWhitelisted(ctx context.Context, ownerID int64, target []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rel, exists := s.relationships[relationshipKey{owner: ownerID, target: string(target)}]
	return exists && rel.Status == storage.StatusWhitelisted, nil
}

func (s *Store) IsBlacklisted(ctx context.Context, ownerID int64, target []byte) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rel, exists := s.relationships[relationshipKey{owner: ownerID, target: string(target)}]
	return exists && rel.Status == storage.StatusBlacklisted, nil
}

func (s *Store) listByStatus(ownerID int64, status storage.RelationshipStatus, page, pageSize int) []storage.Relationship {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var matches []storage.Relationship
	for _, rel := range s.relationships {
		if rel.OwnerID == ownerID && rel.Status == status {
			matches = append(matches, *rel)
		}
	}

	start := page * pageSize
	if start >= len(matches) {
		return []storage.Relationship{}
	}
	end := start + pageSize
	if end > len(matches) {
		end = len(matches)
	}
	return matches[start:end]
}

func (s *Store) ListWhitelist(ctx context.Context, ownerID int64, page, pageSize int) ([]storage.Relationship, error) {
	return s.listByStatus(ownerID, storage.StatusWhitelisted, page, pageSize), nil
}

func (s *Store) ListBlacklist(ctx context.Context, ownerID int64, page, pageSize int) ([]storage.Relationship, error) {
	return s.listByStatus(ownerID, storage.StatusBlacklisted, page, pageSize), nil
}

func (s *Store) SaveOutChatRequest(ctx context.Context, senderID int64, recipient []byte) error {
	key := outRequestKey{sender: senderID, recipient: string(recipient)}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.outRequests[key]; exists {
		return storage.ErrAlreadySentChatRequest
	}
	s.outRequests[key] = &storage.OutChatRequest{
		SenderID:  senderID,
		Recipient: append([]byte(nil), recipient...),
		OutOn:     time.Now(),
	}
	return nil
}

func (s *Store) GetOutChatRequest(ctx context.Context, senderID int64, recipient []byte) (*storage.OutChatRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, exists := s.outRequests[outRequestKey{sender: senderID, recipient: string(recipient)}]
	if !exists {
		return nil, nil
	}
	reqCopy := *req
	return &reqCopy, nil
}

func (s *Store) RemoveOutChatRequest(ctx context.Context, senderID int64, recipient []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.outRequests, outRequestKey{sender: senderID, recipient: string(recipient)})
	return nil
}

func (s *Store) SaveIncomingRequest(ctx context.Context, recipientID int64, sender []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, evt := range s.incoming {
		if evt.RecipientID == recipientID && bytes.Equal(evt.Sender, sender) && evt.Accepted == nil {
			return nil
		}
	}
	s.incoming = append(s.incoming, storage.IncomingEvent{
		RecipientID: recipientID,
		Sender:      append([]byte(nil), sender...),
		ReceivedAt:  time.Now(),
	})
	return nil
}

func (s *Store) SaveIncomingResponse(ctx context.Context, recipientID int64, sender []byte, accepted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, evt := range s.incoming {
		if evt.RecipientID == recipientID && bytes.Equal(evt.Sender, sender) &&
			evt.Accepted != nil && *evt.Accepted == accepted {
			return nil
		}
	}
	s.incoming = append(s.incoming, storage.IncomingEvent{
		RecipientID: recipientID,
		Sender:      append([]byte(nil), sender...),
		Accepted:    &accepted,
		ReceivedAt:  time.Now(),
	})
	return nil
}

func (s *Store) ListIncomingRequests(ctx context.Context, recipientID int64) ([]storage.IncomingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.IncomingEvent
	for _, evt := range s.incoming {
		if evt.RecipientID == recipientID && evt.Accepted == nil {
			out = append(out, evt)
		}
	}
	return out, nil
}

func (s *Store) ListIncomingResponses(ctx context.Context, recipientID int64) ([]storage.IncomingEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []storage.IncomingEvent
	for _, evt := range s.incoming {
		if evt.RecipientID == recipientID && evt.Accepted != nil {
			out = append(out, evt)
		}
	}
	return out, nil
}

func (s *Store) DeleteIncomingRequest(ctx context.Context, recipientID int64, sender []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, evt := range s.incoming {
		if evt.RecipientID == recipientID && bytes.Equal(evt.Sender, sender) && evt.Accepted == nil {
			s.incoming = append(s.incoming[:i], s.incoming[i+1:]...)
			return nil
		}
	}
	return nil
}

func (s *Store) DeleteIncomingResponse(ctx context.Context, recipientID int64, sender []byte, accepted bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, evt := range s.incoming {
		if evt.RecipientID == recipientID && bytes.Equal(evt.Sender, sender) &&
			evt.Accepted != nil && *evt.Accepted == accepted {
			s.incoming = append(s.incoming[:i], s.incoming[i+1:]...)
			return nil
		}
	}
	return nil
}

// Close is a no-op for the in-memory store.
func (s *Store) Close() error { return nil }

// Ping always succeeds for the in-memory store.
func (s *Store) Ping(ctx context.Context) error { return nil }

var _ storage.Persistence = (*Store)(nil)
