package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/haasonsaas/boxgrid/pkg/models"
)

func TestSessionServiceIssueValidate(t *testing.T) {
	service := NewSessionService("secret", time.Hour)
	token, expires, err := service.Issue(&models.User{ID: "user-1", Email: "user@example.com", Name: "User", AvatarURL: "https://example.com/a.png"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if time.Until(expires) <= 59*time.Minute {
		t.Fatalf("unexpected expiry %v", expires)
	}
	user, err := service.Validate(token)
	if err != nil {
		t.Fatalf("Validate() error = %v", err)
	}
	if user.ID != "user-1" || user.Email != "user@example.com" || user.Name != "User" {
		t.Fatalf("unexpected user %+v", user)
	}
	if user.AvatarURL != "https://example.com/a.png" {
		t.Fatalf("expected avatar, got %q", user.AvatarURL)
	}
}

func TestSessionServiceRejects(t *testing.T) {
	service := NewSessionService("secret", time.Hour)
	token, _, err := service.Issue(&models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	other := NewSessionService("other", time.Hour)
	if _, err := other.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for wrong secret, got %v", err)
	}

	if _, err := service.Validate("not-a-token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for garbage, got %v", err)
	}

	later := NewSessionService("secret", time.Hour)
	later.now = func() time.Time { return time.Now().Add(2 * time.Hour) }
	if _, err := later.Validate(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected expired token to be rejected, got %v", err)
	}

	if _, _, err := service.Issue(&models.User{}); err == nil {
		t.Fatalf("expected error for user without id")
	}

	var disabled *SessionService
	if _, err := disabled.Validate(token); !errors.Is(err, ErrAuthDisabled) {
		t.Fatalf("expected ErrAuthDisabled, got %v", err)
	}
}

func TestSessionServiceRevoke(t *testing.T) {
	service := NewSessionService("secret", time.Hour)
	first, _, err := service.Issue(&models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	second, _, err := service.Issue(&models.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	if err := service.Revoke(first); err != nil {
		t.Fatalf("Revoke() error = %v", err)
	}
	if _, err := service.Validate(first); !errors.Is(err, ErrSessionRevoked) {
		t.Fatalf("expected ErrSessionRevoked, got %v", err)
	}
	if _, err := service.Validate(second); err != nil {
		t.Fatalf("expected other session to stay valid, got %v", err)
	}
}

func TestRevocationListPrunesExpired(t *testing.T) {
	list := NewRevocationList()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	list.Add("a", now.Add(time.Minute), now)
	list.Add("b", now.Add(time.Hour), now)
	list.Add("stale", now.Add(-time.Minute), now)
	if list.Len() != 2 {
		t.Fatalf("expected 2 entries, got %d", list.Len())
	}
	if !list.Revoked("a", now) {
		t.Fatalf("expected a to be revoked")
	}

	later := now.Add(10 * time.Minute)
	if list.Revoked("a", later) {
		t.Fatalf("expected a to expire")
	}
	list.Add("c", later.Add(time.Hour), later)
	if list.Len() != 2 {
		t.Fatalf("expected expired entry to be pruned, got %d", list.Len())
	}
}
