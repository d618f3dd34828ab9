package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/david/grantai/internal/auth"
)

type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Users

func (s *Store) CreateUser(ctx context.Context, email, passwordHash string) (auth.User, error) {
	var user auth.User
	err := s.pool.QueryRow(ctx, `
		INSERT INTO users (email, password_hash)
		VALUES ($1, $2)
		RETURNING id, email, created_at
	`, email, passwordHash).Scan(&user.ID, &user.Email, &user.CreatedAt)
	if isUniqueViolation(err) {
		return auth.User{}, auth.ErrUserExists
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("insert failed: %w", err)
	}
	return user, nil
}

func (s *Store) UserByEmail(ctx context.Context, email string) (auth.User, error) {
	var user auth.User
	err := s.pool.QueryRow(ctx,
		"SELECT id, email, password_hash, created_at FROM users WHERE email = $1", email,
	).Scan(&user.ID, &user.Email, &user.PasswordHash, &user.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return auth.User{}, auth.ErrUserNotFound
	}
	if err != nil {
		return auth.User{}, fmt.Errorf("select user failed: %w", err)
	}
	return user, nil
}

// Client state snapshots

// LoadState returns the JSON snapshot stored under key for the user.
func (s *Store) LoadState(ctx context.Context, userID uuid.UUID, key string) ([]byte, bool, error) {
	var value []byte
	err := s.pool.QueryRow(ctx,
		"SELECT value FROM client_state WHERE user_id = $1 AND key = $2", userID, key,
	).Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("select %s failed: %w", key, err)
	}
	return value, true, nil
}

// SaveState upserts the JSON snapshot stored under key for the user.
func (s *Store) SaveState(ctx context.Context, userID uuid.UUID, key string, value []byte) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO client_state (user_id, key, value, updated_at)
		VALUES ($1, $2, $3::jsonb, NOW())
		ON CONFLICT (user_id, key) DO UPDATE
		SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at
	`, userID, key, string(value))
	if err != nil {
		return fmt.Errorf("upsert %s failed: %w", key, err)
	}
	return nil
}

// StateStorage scopes the client_state table to one user.
type StateStorage struct {
	store  *Store
	userID uuid.UUID
}

func (s *Store) StateStorage(userID uuid.UUID) *StateStorage {
	return &StateStorage{store: s, userID: userID}
}

func (s *StateStorage) Load(ctx context.Context, key string) ([]byte, bool, error) {
	return s.store.LoadState(ctx, s.userID, key)
}

func (s *StateStorage) Save(ctx context.Context, key string, value []byte) error {
	return s.store.SaveState(ctx, s.userID, key, value)
}
