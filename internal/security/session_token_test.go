package security

import (
	"errors"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestSessionTokenRoundTrip(t *testing.T) {
	mgr := NewSessionTokenManager("finance-tracker", "finance-tracker-api", testSecret, time.Hour)

	token, err := mgr.Sign("64f1c0ffee0000000000aa01")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := mgr.Parse(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "64f1c0ffee0000000000aa01" {
		t.Fatalf("unexpected subject %q", claims.Subject)
	}
}

func TestSessionTokenRejections(t *testing.T) {
	mgr := NewSessionTokenManager("finance-tracker", "finance-tracker-api", testSecret, time.Hour)

	t.Run("garbage", func(t *testing.T) {
		if _, err := mgr.Parse("not-a-token"); !errors.Is(err, ErrInvalidSessionToken) {
			t.Fatalf("expected ErrInvalidSessionToken, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewSessionTokenManager("finance-tracker", "finance-tracker-api", "ffffffffffffffffffffffffffffffff", time.Hour)
		token, err := other.Sign("user-1")
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := mgr.Parse(token); !errors.Is(err, ErrInvalidSessionToken) {
			t.Fatalf("expected ErrInvalidSessionToken, got %v", err)
		}
	})

	t.Run("wrong issuer", func(t *testing.T) {
		other := NewSessionTokenManager("someone-else", "finance-tracker-api", testSecret, time.Hour)
		token, err := other.Sign("user-1")
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := mgr.Parse(token); !errors.Is(err, ErrInvalidSessionToken) {
			t.Fatalf("expected ErrInvalidSessionToken, got %v", err)
		}
	})

	t.Run("wrong audience", func(t *testing.T) {
		other := NewSessionTokenManager("finance-tracker", "other-api", testSecret, time.Hour)
		token, err := other.Sign("user-1")
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := mgr.Parse(token); !errors.Is(err, ErrInvalidSessionToken) {
			t.Fatalf("expected ErrInvalidSessionToken, got %v", err)
		}
	})

	t.Run("expired", func(t *testing.T) {
		short := NewSessionTokenManager("finance-tracker", "finance-tracker-api", testSecret, -time.Minute)
		token, err := short.Sign("user-1")
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := mgr.Parse(token); !errors.Is(err, ErrInvalidSessionToken) {
			t.Fatalf("expected ErrInvalidSessionToken, got %v", err)
		}
	})
}
