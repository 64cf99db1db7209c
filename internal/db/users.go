package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stanza/internal/models"
)

type UserRepository struct {
	db *DB
}

func NewUserRepository(db *DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(ctx context.Context, username, passwordHash string) (*models.User, error) {
	now := time.Now().UTC()

	_, err := r.db.ExecContext(ctx,
		`INSERT INTO users (username, password_hash, created_at) VALUES (?, ?, ?)`,
		username, passwordHash, now,
	)
	if err != nil {
		if IsUniqueConstraintError(err) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("creating user: %w", err)
	}

	return &models.User{
		Username:     username,
		PasswordHash: passwordHash,
		ReadPoems:    []string{},
		CreatedAt:    now,
	}, nil
}

func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	var (
		u           models.User
		isAdmin     int
		readPoems   string
		pinnedTitle sql.NullString
		showAllTab  int
		updatedAt   sql.NullTime
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT username, password_hash, is_admin, read_poems, pinned_title,
                user_data, show_all_tab, access_key, created_at, updated_at
         FROM users WHERE username = ?`, username,
	).Scan(
		&u.Username,
		&u.PasswordHash,
		&isAdmin,
		&readPoems,
		&pinnedTitle,
		&u.UserData,
		&showAllTab,
		&u.AccessKey,
		&u.CreatedAt,
		&updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}

	u.IsAdmin = isAdmin != 0
	u.ReadPoems = decodeStringList(readPoems)
	u.PinnedTitle = nullStringToPtr(pinnedTitle)
	u.ShowAllTab = showAllTab != 0
	u.UpdatedAt = nullTimeToPtr(updatedAt)

	return &u, nil
}

func (r *UserRepository) SetReadPoems(ctx context.Context, username string, readPoems []string) error {
	encoded, err := encodeStringList(readPoems)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET read_poems = ?, updated_at = ? WHERE username = ?`,
		encoded, time.Now().UTC(), username,
	)
	if err != nil {
		return fmt.Errorf("updating read poems: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *UserRepository) SetPinnedTitle(ctx context.Context, username string, pinnedTitle *string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET pinned_title = ?, updated_at = ? WHERE username = ?`,
		pinnedTitle, time.Now().UTC(), username,
	)
	if err != nil {
		return fmt.Errorf("updating pinned title: %w", err)
	}
	return checkRowsAffected(result)
}

func (r *UserRepository) SetAccessKey(ctx context.Context, username, key string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET access_key = ?, updated_at = ? WHERE username = ?`,
		key, time.Now().UTC(), username,
	)
	if err != nil {
		return fmt.Errorf("updating access key: %w", err)
	}
	return checkRowsAffected(result)
}

// ProfileUpdate carries the optional profile fields; nil leaves the
// stored value untouched.
type ProfileUpdate struct {
	PasswordHash *string
	UserData     *string
	ShowAllTab   *bool
}

func (r *UserRepository) UpdateProfile(ctx context.Context, username string, update ProfileUpdate) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE users SET
            password_hash = COALESCE(?, password_hash),
            user_data = COALESCE(?, user_data),
            show_all_tab = COALESCE(?, show_all_tab),
            updated_at = ?
         WHERE username = ?`,
		update.PasswordHash, update.UserData, boolPtrToIntPtr(update.ShowAllTab),
		time.Now().UTC(), username,
	)
	if err != nil {
		return fmt.Errorf("updating profile: %w", err)
	}
	return checkRowsAffected(result)
}

func boolPtrToIntPtr(b *bool) *int {
	if b == nil {
		return nil
	}
	v := 0
	if *b {
		v = 1
	}
	return &v
}
