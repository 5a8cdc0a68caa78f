package auth

import (
	"testing"

	"github.com/google/uuid"
)

func TestGenerateValidateRoundTrip(t *testing.T) {
	svc := NewJWTService("test-secret", 24, 6)
	userID := uuid.New()

	token, err := svc.Generate(userID, "user@example.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := svc.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if claims.UserID != userID {
		t.Errorf("user id = %s, want %s", claims.UserID, userID)
	}
	if claims.Email != "user@example.com" {
		t.Errorf("email = %s", claims.Email)
	}
}

func TestValidateRejectsWrongKey(t *testing.T) {
	token, err := NewJWTService("key-a", 24, 6).Generate(uuid.New(), "a@b.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if _, err := NewJWTService("key-b", 24, 6).Validate(token); err == nil {
		t.Fatal("token signed with a different key must not validate")
	}
}

func TestValidateRejectsGarbage(t *testing.T) {
	svc := NewJWTService("test-secret", 24, 6)
	for _, tok := range []string{"", "not.a.token", "aaaa.bbbb.cccc"} {
		if _, err := svc.Validate(tok); err == nil {
			t.Errorf("Validate(%q) succeeded, want error", tok)
		}
	}
}

func TestRotateOnlyInsideRefreshWindow(t *testing.T) {
	// 24h expiry, 1h window: a fresh token is well outside the window.
	far := NewJWTService("test-secret", 24, 1)
	token, err := far.Generate(uuid.New(), "a@b.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := far.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	if _, rotated, err := far.Rotate(claims); err != nil || rotated {
		t.Errorf("rotated=%v err=%v, want no rotation outside the window", rotated, err)
	}

	// 1h expiry, 2h window: every valid token is inside the window.
	near := NewJWTService("test-secret", 1, 2)
	token, err = near.Generate(uuid.New(), "a@b.com")
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err = near.Validate(token)
	if err != nil {
		t.Fatalf("validate: %v", err)
	}
	fresh, rotated, err := near.Rotate(claims)
	if err != nil || !rotated || fresh == "" {
		t.Fatalf("rotated=%v err=%v, want a fresh token inside the window", rotated, err)
	}
	if _, err := near.Validate(fresh); err != nil {
		t.Errorf("rotated token must validate: %v", err)
	}
}
