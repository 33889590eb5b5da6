package postgres

import (
	"bytes"
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/oxidetalis-go/otmpd/storage"
)

// addToList mirrors the memory backend's check-then-upsert: if an
// opposite-status row exists it's converted in place, otherwise a fresh
// row is inserted. Both paths run inside one transaction so the read and
// the write observe a consistent snapshot.
func (s *Store) addToList(ctx context.Context, ownerID int64, target []byte, want storage.RelationshipStatus) error {
	var owner storage.User
	err := s.pool.QueryRow(ctx, `SELECT public_key FROM users WHERE id = $1`, ownerID).Scan(&owner.PublicKey)
	if err != nil {
		return fmt.Errorf("failed to load owner: %w", err)
	}
	if bytes.Equal(owner.PublicKey, target) {
		if want == storage.StatusWhitelisted {
			return storage.ErrCannotAddSelfToWhitelist
		}
		return storage.ErrCannotAddSelfToBlacklist
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	var existing storage.RelationshipStatus
	err = tx.QueryRow(ctx,
		`SELECT status FROM users_status WHERE owner_id = $1 AND target = $2`,
		ownerID, target,
	).Scan(&existing)

	switch {
	case errors.Is(err, pgx.ErrNoRows):
		_, err = tx.Exec(ctx,
			`INSERT INTO users_status (owner_id, target, status, updated_at) VALUES ($1, $2, $3, NOW())`,
			ownerID, target, want)
		if err != nil {
			return fmt.Errorf("failed to insert relationship: %w", err)
		}
	case err != nil:
		return fmt.Errorf("failed to check relationship: %w", err)
	case existing == want:
		if want == storage.StatusWhitelisted {
			return storage.ErrAlreadyOnWhitelist
		}
		return storage.ErrAlreadyOnBlacklist
	default:
		_, err = tx.Exec(ctx,
			`UPDATE users_status SET status = $1, updated_at = NOW() WHERE owner_id = $2 AND target = $3`,
			want, ownerID, target)
		if err != nil {
			return fmt.Errorf("failed to update relationship: %w", err)
		}
	}

	return tx.Commit(ctx)
}

func (s *Store) AddToWhitelist(ctx context.Context, ownerID int64, target []byte) error {
	return s.addToList(ctx, ownerID, target, storage.StatusWhitelisted)
}

func (s *Store) AddToBlacklist(ctx context.Context, ownerID int64, target []byte) error {
	return s.addToList(ctx, ownerID, target, storage.StatusBlacklisted)
}

func (s *Store) isStatus(ctx context.Context, ownerID int64, target []byte, status storage.RelationshipStatus) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS(SELECT 1 FROM users_status WHERE owner_id = $1 AND target = $2 AND status = $3)`,
		ownerID, target, status,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check relationship status: %w", err)
	}
	return exists, nil
}

func (s *Store) IsWhitelisted(ctx context.Context, ownerID int64, target []byte) (bool, error) {
	return s.isStatus(ctx, ownerID, target, storage.StatusWhitelisted)
}

func (s *Store) IsBlacklisted(ctx context.Context, ownerID int64, target []byte) (bool, error) {
	return s.isStatus(ctx, ownerID, target, storage.StatusBlacklisted)
}

func (s *Store) listByStatus(ctx context.Context, ownerID int64, status storage.RelationshipStatus, page, pageSize int) ([]storage.Relationship, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT owner_id, target, status, updated_at FROM users_status
		 WHERE owner_id = $1 AND status = $2
		 ORDER BY updated_at DESC
		 LIMIT $3 OFFSET $4`,
		ownerID, status, pageSize, page*pageSize,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list relationships: %w", err)
	}
	defer rows.Close()

	var out []storage.Relationship
	for rows.Next() {
		var rel storage.Relationship
		if err := rows.Scan(&rel.OwnerID, &rel.Target, &rel.Status, &rel.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan relationship: %w", err)
		}
		out = append(out, rel)
	}
	return out, rows.Err()
}

func (s *Store) ListWhitelist(ctx context.Context, ownerID int64, page, pageSize int) ([]storage.Relationship, error) {
	return s.listByStatus(ctx, ownerID, storage.StatusWhitelisted, page, pageSize)
}

func (s *Store) ListBlacklist(ctx context.Context, ownerID int64, page, pageSize int) ([]storage.Relationship, error) {
	return s.listByStatus(ctx, ownerID, storage.StatusBlacklisted, page, pageSize)
}
