// Package keys manages the lifecycle of the access keys gating the AI
// chat feature: issuance, validation with a rolling per-day usage
// counter, administrative listing and soft revocation.
package keys

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"stanza/internal/db"
	"stanza/internal/models"
)

const keyBytes = 32 // 256 bits of entropy, URL-safe once encoded

type Service struct {
	repo *db.AccessKeyRepository
	now  func() time.Time
}

func NewService(repo *db.AccessKeyRepository) *Service {
	return &Service{repo: repo, now: time.Now}
}

// Issue creates and persists a new key for issuer. Nil expiresAt means
// no expiry; nil dailyLimit means unlimited daily use.
func (s *Service) Issue(ctx context.Context, issuer string, expiresAt *time.Time, dailyLimit *int64) (string, error) {
	raw := make([]byte, keyBytes)
	if _, err := rand.Read(raw); err != nil {
		return "", fmt.Errorf("generating access key: %w", err)
	}
	key := base64.RawURLEncoding.EncodeToString(raw)

	record := &models.AccessKey{
		Key:         key,
		GeneratedBy: issuer,
		ExpiresAt:   expiresAt,
		DailyLimit:  dailyLimit,
		IsActive:    true,
		CreatedAt:   s.now().UTC(),
	}
	if err := s.repo.Create(ctx, record); err != nil {
		return "", err
	}

	return key, nil
}

// Validate reports whether key grants access right now and, when it
// does, records the use. The usage counter rolls over to zero on the
// first use of each calendar day. Callers only learn success or
// failure, never which check failed.
func (s *Service) Validate(ctx context.Context, key string) bool {
	if key == "" {
		return false
	}

	now := s.now().UTC()
	today := now.Format(time.DateOnly)

	ok, err := s.repo.ConsumeDailyUse(ctx, key, today, now)
	if err != nil {
		// The store failed to record the use. Availability wins over
		// strict accounting: fall back to a read-only eligibility check
		// for this call.
		slog.Error("error recording access key use", "error", err)
		return s.eligible(ctx, key, now)
	}
	return ok
}

func (s *Service) eligible(ctx context.Context, key string, now time.Time) bool {
	record, err := s.repo.FindByKey(ctx, key)
	if err != nil {
		if !errors.Is(err, db.ErrNotFound) {
			slog.Error("error reading access key", "error", err)
		}
		return false
	}

	if !record.IsActive {
		return false
	}
	if record.ExpiresAt != nil && !record.ExpiresAt.After(now) {
		return false
	}

	usageToday := record.UsageToday
	if record.LastUsedOn == nil || *record.LastUsedOn != now.Format(time.DateOnly) {
		usageToday = 0
	}
	if record.DailyLimit != nil && usageToday >= *record.DailyLimit {
		return false
	}
	return true
}

// ListForIssuer returns all keys created by issuer for administrative
// display.
func (s *Service) ListForIssuer(ctx context.Context, issuer string) ([]*models.AccessKey, error) {
	keys, err := s.repo.FindByIssuer(ctx, issuer)
	if err != nil {
		return nil, err
	}
	if keys == nil {
		keys = []*models.AccessKey{}
	}
	return keys, nil
}

// Disable soft-disables a key. Returns db.ErrNotFound when the key does
// not exist; disabling an already-disabled key succeeds.
func (s *Service) Disable(ctx context.Context, key string) error {
	return s.repo.Disable(ctx, key)
}
