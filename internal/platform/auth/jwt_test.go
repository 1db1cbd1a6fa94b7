package auth

import (
	"errors"
	"testing"
	"time"
)

func TestSignVerifyRoundTrip(t *testing.T) {
	manager, err := NewManager("test-secret", "zerosum", time.Hour)
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}
	now := time.Now().UTC()
	token, expiresAt, err := manager.Sign("user-1", now)
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if got := expiresAt.Sub(now); got != time.Hour {
		t.Fatalf("expiry offset %v, want 1h", got)
	}

	subject, err := manager.Verify(token)
	if err != nil {
		t.Fatalf("verify failed: %v", err)
	}
	if subject != "user-1" {
		t.Fatalf("subject %q, want user-1", subject)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	manager, err := NewManager("test-secret", "zerosum", time.Minute)
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}
	token, _, err := manager.Sign("user-1", time.Now().UTC().Add(-time.Hour))
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := manager.Verify(token); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("got %v, want ErrTokenExpired", err)
	}
}

func TestVerifyRejectsForeignSignature(t *testing.T) {
	signer, err := NewManager("secret-a", "zerosum", time.Hour)
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}
	verifier, err := NewManager("secret-b", "zerosum", time.Hour)
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}
	token, _, err := signer.Sign("user-1", time.Now().UTC())
	if err != nil {
		t.Fatalf("sign failed: %v", err)
	}
	if _, err := verifier.Verify(token); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("got %v, want ErrTokenInvalid", err)
	}
}

func TestVerifyRejectsGarbage(t *testing.T) {
	manager, err := NewManager("test-secret", "zerosum", time.Hour)
	if err != nil {
		t.Fatalf("new manager failed: %v", err)
	}
	if _, err := manager.Verify("not.a.token"); !errors.Is(err, ErrTokenInvalid) {
		t.Fatalf("got %v, want ErrTokenInvalid", err)
	}
}

func TestNewManagerRequiresSecret(t *testing.T) {
	if _, err := NewManager("  ", "zerosum", time.Hour); err == nil {
		t.Fatalf("expected blank secret to be rejected")
	}
}
