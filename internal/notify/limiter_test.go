package notify

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestLimiter(t *testing.T) (*Limiter, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	limiter, err := NewLimiter("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("failed to create limiter: %v", err)
	}
	return limiter, s
}

func TestNewLimiter(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	limiter, err := NewLimiter("redis://" + s.Addr())
	if err != nil {
		t.Fatalf("NewLimiter failed: %v", err)
	}
	defer limiter.Close()

	if err := limiter.Ping(context.Background()); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestFirstNoticeAllowed(t *testing.T) {
	limiter, s := setupTestLimiter(t)
	defer limiter.Close()
	defer s.Close()

	allowed, err := limiter.AllowEditorNotice(context.Background(), 3, 9, nil)
	if err != nil {
		t.Fatalf("AllowEditorNotice failed: %v", err)
	}
	if !allowed {
		t.Error("expected first notice to be allowed")
	}
}

func TestSecondNoticeWithinDayDenied(t *testing.T) {
	limiter, s := setupTestLimiter(t)
	defer limiter.Close()
	defer s.Close()

	ctx := context.Background()
	if _, err := limiter.AllowEditorNotice(ctx, 3, 9, nil); err != nil {
		t.Fatalf("AllowEditorNotice failed: %v", err)
	}

	allowed, err := limiter.AllowEditorNotice(ctx, 3, 9, nil)
	if err != nil {
		t.Fatalf("AllowEditorNotice failed: %v", err)
	}
	if allowed {
		t.Error("expected second notice within a day to be denied")
	}
}

func TestNoticeScopedPerSubmissionAndEditor(t *testing.T) {
	limiter, s := setupTestLimiter(t)
	defer limiter.Close()
	defer s.Close()

	ctx := context.Background()
	if _, err := limiter.AllowEditorNotice(ctx, 3, 9, nil); err != nil {
		t.Fatalf("AllowEditorNotice failed: %v", err)
	}

	allowed, err := limiter.AllowEditorNotice(ctx, 3, 10, nil)
	if err != nil {
		t.Fatalf("AllowEditorNotice failed: %v", err)
	}
	if !allowed {
		t.Error("a different editor should not be limited")
	}

	allowed, err = limiter.AllowEditorNotice(ctx, 4, 9, nil)
	if err != nil {
		t.Fatalf("AllowEditorNotice failed: %v", err)
	}
	if !allowed {
		t.Error("a different submission should not be limited")
	}
}

func TestUnreadNoticeSuppressesNextOne(t *testing.T) {
	limiter, s := setupTestLimiter(t)
	defer limiter.Close()
	defer s.Close()

	ctx := context.Background()
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	limiter.now = func() time.Time { return base }

	if _, err := limiter.AllowEditorNotice(ctx, 3, 9, nil); err != nil {
		t.Fatalf("AllowEditorNotice failed: %v", err)
	}

	// Two days later, but the editor has not logged in since the notice.
	limiter.now = func() time.Time { return base.Add(48 * time.Hour) }
	staleLogin := base.Add(-time.Hour)

	allowed, err := limiter.AllowEditorNotice(ctx, 3, 9, &staleLogin)
	if err != nil {
		t.Fatalf("AllowEditorNotice failed: %v", err)
	}
	if allowed {
		t.Error("expected notice to stay suppressed until the editor logs in")
	}

	// After a login the notice goes out again.
	freshLogin := base.Add(24 * time.Hour)
	allowed, err = limiter.AllowEditorNotice(ctx, 3, 9, &freshLogin)
	if err != nil {
		t.Fatalf("AllowEditorNotice failed: %v", err)
	}
	if !allowed {
		t.Error("expected notice after the editor logged in")
	}
}
