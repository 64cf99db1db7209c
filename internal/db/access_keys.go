package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"stanza/internal/models"
)

type AccessKeyRepository struct {
	db *DB
}

func NewAccessKeyRepository(db *DB) *AccessKeyRepository {
	return &AccessKeyRepository{db: db}
}

func (r *AccessKeyRepository) Create(ctx context.Context, key *models.AccessKey) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO access_keys
            (key, generated_by, assigned_to, expires_at, daily_limit, is_active, usage_today, last_used_on, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		key.Key, key.GeneratedBy, key.AssignedTo, key.ExpiresAt, key.DailyLimit,
		key.IsActive, key.UsageToday, key.LastUsedOn, key.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("creating access key: %w", err)
	}
	return nil
}

func (r *AccessKeyRepository) FindByKey(ctx context.Context, key string) (*models.AccessKey, error) {
	var (
		k          models.AccessKey
		assignedTo sql.NullString
		expiresAt  sql.NullTime
		dailyLimit sql.NullInt64
		isActive   int
		lastUsedOn sql.NullString
	)

	err := r.db.QueryRowContext(ctx,
		`SELECT key, generated_by, assigned_to, expires_at, daily_limit, is_active, usage_today, last_used_on, created_at
         FROM access_keys WHERE key = ?`, key,
	).Scan(
		&k.Key,
		&k.GeneratedBy,
		&assignedTo,
		&expiresAt,
		&dailyLimit,
		&isActive,
		&k.UsageToday,
		&lastUsedOn,
		&k.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying access key: %w", err)
	}

	k.AssignedTo = nullStringToPtr(assignedTo)
	k.ExpiresAt = nullTimeToPtr(expiresAt)
	k.DailyLimit = nullInt64ToPtr(dailyLimit)
	k.IsActive = isActive != 0
	k.LastUsedOn = nullStringToPtr(lastUsedOn)

	return &k, nil
}

func (r *AccessKeyRepository) FindByIssuer(ctx context.Context, issuer string) ([]*models.AccessKey, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT key, generated_by, assigned_to, expires_at, daily_limit, is_active, usage_today, last_used_on, created_at
         FROM access_keys WHERE generated_by = ? ORDER BY created_at`, issuer,
	)
	if err != nil {
		return nil, fmt.Errorf("querying access keys: %w", err)
	}
	defer rows.Close()

	var keys []*models.AccessKey
	for rows.Next() {
		var (
			k          models.AccessKey
			assignedTo sql.NullString
			expiresAt  sql.NullTime
			dailyLimit sql.NullInt64
			isActive   int
			lastUsedOn sql.NullString
		)
		if err := rows.Scan(
			&k.Key, &k.GeneratedBy, &assignedTo, &expiresAt, &dailyLimit,
			&isActive, &k.UsageToday, &lastUsedOn, &k.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scanning access key: %w", err)
		}
		k.AssignedTo = nullStringToPtr(assignedTo)
		k.ExpiresAt = nullTimeToPtr(expiresAt)
		k.DailyLimit = nullInt64ToPtr(dailyLimit)
		k.IsActive = isActive != 0
		k.LastUsedOn = nullStringToPtr(lastUsedOn)
		keys = append(keys, &k)
	}

	return keys, rows.Err()
}

// ConsumeDailyUse performs the whole validate-and-record step as one
// conditional UPDATE, so concurrent callers cannot overrun the daily
// limit. A usage counter carried over from an earlier date counts as
// zero. Returns false when the key is missing, inactive, expired at
// now, or already at its limit for today.
func (r *AccessKeyRepository) ConsumeDailyUse(ctx context.Context, key, today string, now time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE access_keys SET
            usage_today = CASE WHEN last_used_on = ? THEN usage_today + 1 ELSE 1 END,
            last_used_on = ?
         WHERE key = ?
           AND is_active = 1
           AND (expires_at IS NULL OR expires_at > ?)
           AND (daily_limit IS NULL OR
                (CASE WHEN last_used_on = ? THEN usage_today ELSE 0 END) < daily_limit)`,
		today, today, key, now.UTC(), today,
	)
	if err != nil {
		return false, fmt.Errorf("recording access key use: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("checking rows affected: %w", err)
	}
	return rows == 1, nil
}

// Disable soft-disables a key. Keys are never physically deleted.
// Idempotent: disabling an already-inactive key still succeeds.
func (r *AccessKeyRepository) Disable(ctx context.Context, key string) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE access_keys SET is_active = 0 WHERE key = ?`, key,
	)
	if err != nil {
		return fmt.Errorf("disabling access key: %w", err)
	}
	return checkRowsAffected(result)
}
