package keys

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"stanza/internal/db"
)

func newTestService(t *testing.T) (*Service, *db.AccessKeyRepository) {
	t.Helper()

	database, err := db.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("db.Open() error = %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close()
	})

	repo := db.NewAccessKeyRepository(database)
	return NewService(repo), repo
}

func TestIssueGeneratesDistinctURLSafeKeys(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()

	first, err := s.Issue(ctx, "ovid", nil, nil)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	second, err := s.Issue(ctx, "ovid", nil, nil)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if first == second {
		t.Fatalf("two issued keys are identical")
	}
	// 32 random bytes encode to 43 base64url characters.
	if len(first) != 43 {
		t.Fatalf("key length = %d, want 43", len(first))
	}

	record, err := repo.FindByKey(ctx, first)
	if err != nil {
		t.Fatalf("FindByKey() error = %v", err)
	}
	if !record.IsActive || record.UsageToday != 0 || record.GeneratedBy != "ovid" {
		t.Fatalf("record = %+v, want active unused key issued by ovid", record)
	}
}

func TestValidateUnknownKey(t *testing.T) {
	s, _ := newTestService(t)

	if s.Validate(context.Background(), "no-such-key") {
		t.Fatalf("Validate(unknown) = true, want false")
	}
	if s.Validate(context.Background(), "") {
		t.Fatalf("Validate(empty) = true, want false")
	}
}

func TestValidateDailyLimitBoundary(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	limit := int64(3)
	key, err := s.Issue(ctx, "ovid", nil, &limit)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	for i := 0; i < 3; i++ {
		if !s.Validate(ctx, key) {
			t.Fatalf("Validate() call %d = false, want true", i+1)
		}
	}
	if s.Validate(ctx, key) {
		t.Fatalf("Validate() call 4 = true, want false after exhausting daily limit")
	}

	// Next calendar day: counter resets.
	now = now.Add(24 * time.Hour)
	if !s.Validate(ctx, key) {
		t.Fatalf("Validate() = false, want true after date change")
	}
}

func TestValidateDailyLimitCounterResetsToOne(t *testing.T) {
	s, repo := newTestService(t)
	ctx := context.Background()

	now := time.Date(2026, 8, 30, 23, 30, 0, 0, time.UTC)
	s.now = func() time.Time { return now }

	limit := int64(1)
	key, err := s.Issue(ctx, "ovid", nil, &limit)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if !s.Validate(ctx, key) {
		t.Fatalf("Validate() = false, want true for first use")
	}
	if s.Validate(ctx, key) {
		t.Fatalf("Validate() = true, want false for second use same day")
	}

	now = now.Add(time.Hour) // crosses midnight
	if !s.Validate(ctx, key) {
		t.Fatalf("Validate() = false, want true on the next day")
	}

	record, err := repo.FindByKey(ctx, key)
	if err != nil {
		t.Fatalf("FindByKey() error = %v", err)
	}
	if record.UsageToday != 1 {
		t.Fatalf("usageToday = %d, want 1 after reset", record.UsageToday)
	}
	if record.LastUsedOn == nil || *record.LastUsedOn != "2026-08-31" {
		t.Fatalf("lastUsedOn = %v, want 2026-08-31", record.LastUsedOn)
	}
}

func TestValidateExpiredKeyAlwaysFails(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	expiresAt := time.Now().UTC().Add(-time.Hour)
	key, err := s.Issue(ctx, "ovid", &expiresAt, nil)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if s.Validate(ctx, key) {
		t.Fatalf("Validate(expired) = true, want false")
	}
}

func TestValidateFutureExpiryStillPasses(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	expiresAt := time.Now().UTC().Add(time.Hour)
	key, err := s.Issue(ctx, "ovid", &expiresAt, nil)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if !s.Validate(ctx, key) {
		t.Fatalf("Validate(unexpired) = false, want true")
	}
}

func TestDisabledKeyFailsValidation(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	key, err := s.Issue(ctx, "ovid", nil, nil)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !s.Validate(ctx, key) {
		t.Fatalf("Validate() = false, want true before disable")
	}

	if err := s.Disable(ctx, key); err != nil {
		t.Fatalf("Disable() error = %v", err)
	}
	if s.Validate(ctx, key) {
		t.Fatalf("Validate(disabled) = true, want false")
	}

	// Idempotent.
	if err := s.Disable(ctx, key); err != nil {
		t.Fatalf("Disable() second call error = %v", err)
	}

	if err := s.Disable(ctx, "no-such-key"); !errors.Is(err, db.ErrNotFound) {
		t.Fatalf("Disable(unknown) error = %v, want ErrNotFound", err)
	}
}

func TestUnlimitedKeyValidUntilDisabled(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	key, err := s.Issue(ctx, "ovid", nil, nil)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	for i := 0; i < 10; i++ {
		if !s.Validate(ctx, key) {
			t.Fatalf("Validate() call %d = false, want true for unlimited key", i+1)
		}
	}
}

func TestListForIssuer(t *testing.T) {
	s, _ := newTestService(t)
	ctx := context.Background()

	if _, err := s.Issue(ctx, "ovid", nil, nil); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := s.Issue(ctx, "ovid", nil, nil); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if _, err := s.Issue(ctx, "sappho", nil, nil); err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	list, err := s.ListForIssuer(ctx, "ovid")
	if err != nil {
		t.Fatalf("ListForIssuer() error = %v", err)
	}
	if len(list) != 2 {
		t.Fatalf("len(list) = %d, want 2", len(list))
	}
	for _, k := range list {
		if k.GeneratedBy != "ovid" {
			t.Fatalf("generatedBy = %q, want %q", k.GeneratedBy, "ovid")
		}
	}

	empty, err := s.ListForIssuer(ctx, "horace")
	if err != nil {
		t.Fatalf("ListForIssuer() error = %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("len(list) = %d, want 0 for issuer with no keys", len(empty))
	}
}
