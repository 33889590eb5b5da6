package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/oxidetalis-go/otmpd/storage"
)

func (s *Store) SaveOutChatRequest(ctx context.Context, senderID int64, recipient []byte) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM out_chat_requests WHERE sender_id = $1 AND recipient = $2)`,
		senderID, recipient,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check out chat request: %w", err)
	}
	if exists {
		return storage.ErrAlreadySentChatRequest
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO out_chat_requests (sender_id, recipient, out_on) VALUES ($1, $2, NOW())`,
		senderID, recipient)
	if err != nil {
		return fmt.Errorf("failed to save out chat request: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Store) GetOutChatRequest(ctx context.Context, senderID int64, recipient []byte) (*storage.OutChatRequest, error) {
	var req storage.OutChatRequest
	err := s.pool.QueryRow(ctx,
		`SELECT sender_id, recipient, out_on FROM out_chat_requests WHERE sender_id = $1 AND recipient = $2`,
		senderID, recipient,
	).Scan(&req.SenderID, &req.Recipient, &req.OutOn)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get out chat request: %w", err)
	}
	return &req, nil
}

func (s *Store) RemoveOutChatRequest(ctx context.Context, senderID int64, recipient []byte) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM out_chat_requests WHERE sender_id = $1 AND recipient = $2`,
		senderID, recipient)
	if err != nil {
		return fmt.Errorf("failed to remove out chat request: %w", err)
	}
	return nil
}

// SaveIncomingRequest is idempotent on (recipient, sender, pending). The
// pending row's accepted column is NULL, and Postgres never matches
// NULL = NULL in a unique index, so ON CONFLICT cannot de-duplicate it;
// this checks for an existing pending row inside a transaction first,
// the same pattern SaveOutChatRequest uses above.
func (s *Store) SaveIncomingRequest(ctx context.Context, recipientID int64, sender []byte) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM in_chat_requests WHERE recipient_id = $1 AND sender = $2 AND accepted IS NULL)`,
		recipientID, sender,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check incoming request: %w", err)
	}
	if exists {
		return nil
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO in_chat_requests (recipient_id, sender, accepted, received_at)
		 VALUES ($1, $2, NULL, NOW())`,
		recipientID, sender)
	if err != nil {
		return fmt.Errorf("failed to save incoming request: %w", err)
	}

	return tx.Commit(ctx)
}

// SaveIncomingResponse is idempotent on (recipient, sender, accepted).
// accepted is never NULL here, so ON CONFLICT DO NOTHING against the
// unique index would work for this one, but it's kept on the same
// explicit check-then-insert pattern as SaveIncomingRequest so both
// methods read the same way and neither depends on the index catching
// what the other quietly can't.
func (s *Store) SaveIncomingResponse(ctx context.Context, recipientID int64, sender []byte, accepted bool) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var exists bool
	err = tx.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM in_chat_requests WHERE recipient_id = $1 AND sender = $2 AND accepted = $3)`,
		recipientID, sender, accepted,
	).Scan(&exists)
	if err != nil {
		return fmt.Errorf("failed to check incoming response: %w", err)
	}
	if exists {
		return nil
	}

	_, err = tx.Exec(ctx,
		`INSERT INTO in_chat_requests (recipient_id, sender, accepted, received_at)
		 VALUES ($1, $2, $3, NOW())`,
		recipientID, sender, accepted)
	if err != nil {
		return fmt.Errorf("failed to save incoming response: %w", err)
	}

	return tx.Commit(ctx)
}

func (s *Store) listIncoming(ctx context.Context, recipientID int64, pending bool) ([]storage.IncomingEvent, error) {
	condition := "accepted IS NOT NULL"
	if pending {
		condition = "accepted IS NULL"
	}

	rows, err := s.pool.Query(ctx,
		`SELECT recipient_id, sender, accepted, received_at FROM in_chat_requests
		 WHERE recipient_id = $1 AND `+condition,
		recipientID)
	if err != nil {
		return nil, fmt.Errorf("failed to list incoming events: %w", err)
	}
	defer rows.Close()

	var out []storage.IncomingEvent
	for rows.Next() {
		var evt storage.IncomingEvent
		if err := rows.Scan(&evt.RecipientID, &evt.Sender, &evt.Accepted, &evt.ReceivedAt); err != nil {
			return nil, fmt.Errorf("failed to scan incoming event: %w", err)
		}
		out = append(out, evt)
	}
	return out, rows.Err()
}

func (s *Store) ListIncomingRequests(ctx context.Context, recipientID int64) ([]storage.IncomingEvent, error) {
	return s.listIncoming(ctx, recipientID, true)
}

func (s *Store) ListIncomingResponses(ctx context.Context, recipientID int64) ([]storage.IncomingEvent, error) {
	return s.listIncoming(ctx, recipientID, false)
}

func (s *Store) DeleteIncomingRequest(ctx context.Context, recipientID int64, sender []byte) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM in_chat_requests WHERE recipient_id = $1 AND sender = $2 AND accepted IS NULL`,
		recipientID, sender)
	if err != nil {
		return fmt.Errorf("failed to delete incoming request: %w", err)
	}
	return nil
}

func (s *Store) DeleteIncomingResponse(ctx context.Context, recipientID int64, sender []byte, accepted bool) error {
	_, err := s.pool.Exec(ctx,
		`DELETE FROM in_chat_requests WHERE recipient_id = $1 AND sender = $2 AND accepted = $3`,
		recipientID, sender, accepted)
	if err != nil {
		return fmt.Errorf("failed to delete incoming response: %w", err)
	}
	return nil
}
