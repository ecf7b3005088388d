package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/harvestguard/fieldsync/internal/types"
	"github.com/oklog/ulid/v2"
)

func scanUser(sc scanner) (*types.User, error) {
	var u types.User
	var createdAt string
	err := sc.Scan(&u.ID, &u.Username, &u.Email, &u.PasswordHash,
		&u.FirstName, &u.LastName, &createdAt)
	if err != nil {
		return nil, err
	}
	u.CreatedAt = parseTime(createdAt)
	return &u, nil
}

const userColumns = `id, username, email, password_hash, first_name, last_name, created_at`

// CreateUser registers a new account and its profile in one transaction.
// Every user has exactly one profile, created here and nowhere else.
func (s *SQLiteStore) CreateUser(ctx context.Context, u *types.User) error {
	now := time.Now().UTC()
	u.CreatedAt = now

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO users (username, email, password_hash, first_name, last_name, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, u.Username, u.Email, u.PasswordHash, u.FirstName, u.LastName, fmtTime(now))
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}

	u.ID, err = result.LastInsertId()
	if err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO user_profiles (user_id, sync_status, created_at, updated_at)
		VALUES (?, ?, ?, ?)
	`, u.ID, types.SyncPending, fmtTime(now), fmtTime(now)); err != nil {
		return fmt.Errorf("insert profile: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// UserByUsername looks up an account by its unique username.
func (s *SQLiteStore) UserByUsername(ctx context.Context, username string) (*types.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE username = ?
	`, username)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// UserByID looks up an account by server ID.
func (s *SQLiteStore) UserByID(ctx context.Context, id int64) (*types.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+userColumns+` FROM users WHERE id = ?
	`, id)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// UpdateUserIdentity updates the account fields a profile update may touch.
func (s *SQLiteStore) UpdateUserIdentity(ctx context.Context, u *types.User) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET email = ?, first_name = ?, last_name = ? WHERE id = ?
	`, u.Email, u.FirstName, u.LastName, u.ID)
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

// UpdatePasswordHash replaces the stored password hash.
func (s *SQLiteStore) UpdatePasswordHash(ctx context.Context, userID int64, hash string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE users SET password_hash = ? WHERE id = ?
	`, hash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// CreateToken issues a fresh opaque token for the user.
func (s *SQLiteStore) CreateToken(ctx context.Context, userID int64) (*types.AuthToken, error) {
	token := &types.AuthToken{
		Key:       ulid.Make().String(),
		UserID:    userID,
		CreatedAt: time.Now().UTC(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO auth_tokens (key, user_id, created_at) VALUES (?, ?, ?)
	`, token.Key, token.UserID, fmtTime(token.CreatedAt))
	if err != nil {
		return nil, fmt.Errorf("insert token: %w", err)
	}
	return token, nil
}

// UserByTokenKey resolves a token key to its account. Unknown keys return
// ErrNotFound.
func (s *SQLiteStore) UserByTokenKey(ctx context.Context, key string) (*types.User, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.email, u.password_hash, u.first_name, u.last_name, u.created_at
		FROM users u
		JOIN auth_tokens t ON t.user_id = u.id
		WHERE t.key = ?
	`, key)

	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	return u, nil
}

// DeleteToken revokes a token. Deleting an unknown key is not an error.
func (s *SQLiteStore) DeleteToken(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM auth_tokens WHERE key = ?`, key); err != nil {
		return fmt.Errorf("delete token: %w", err)
	}
	return nil
}
