package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/oxidetalis-go/otmpd/storage"
)

func (s *Store) UsersExist(ctx context.Context) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM users)`).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("failed to check users: %w", err)
	}
	return exists, nil
}

func (s *Store) RegisterUser(ctx context.Context, publicKey []byte, isAdmin bool) (*storage.User, error) {
	var user storage.User
	err := s.pool.QueryRow(ctx,
		`INSERT INTO users (public_key, is_admin) VALUES ($1, $2)
		 RETURNING id, public_key, is_admin, last_logout`,
		publicKey, isAdmin,
	).Scan(&user.ID, &user.PublicKey, &user.IsAdmin, &user.LastLogout)

	if isUniqueViolation(err) {
		return nil, storage.ErrAlreadyRegistered
	}
	if err != nil {
		return nil, fmt.Errorf("failed to register user: %w", err)
	}
	return &user, nil
}

func (s *Store) GetUser(ctx context.Context, publicKey []byte) (*storage.User, error) {
	var user storage.User
	err := s.pool.QueryRow(ctx,
		`SELECT id, public_key, is_admin, last_logout FROM users WHERE public_key = $1`,
		publicKey,
	).Scan(&user.ID, &user.PublicKey, &user.IsAdmin, &user.LastLogout)

	if errors.Is(err, pgx.ErrNoRows) {
		return nil, storage.ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

func (s *Store) MarkLogout(ctx context.Context, userID int64) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE users SET last_logout = NOW() WHERE id = $1`, userID)
	if err != nil {
		return fmt.Errorf("failed to mark logout: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return storage.ErrUserNotFound
	}
	return nil
}
