package utils

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("tutor-pass-123")
	if err != nil {
		t.Fatalf("HashPassword: %v", err)
	}
	if hash == "tutor-pass-123" {
		t.Fatalf("hash must not equal the plain password")
	}

	for password, want := range map[string]bool{
		"tutor-pass-123": true,
		"tutor-pass-124": false,
		"":               false,
	} {
		if got := CheckPassword(password, hash); got != want {
			t.Errorf("CheckPassword(%q) = %v, want %v", password, got, want)
		}
	}
}

func TestTokenRoundTripPerRole(t *testing.T) {
	for _, role := range []string{"student", "tutor"} {
		token, err := GenerateToken("123", role, "supersecret")
		if err != nil {
			t.Fatalf("GenerateToken(%s): %v", role, err)
		}

		claims, err := ValidateToken(token, "supersecret")
		if err != nil {
			t.Fatalf("ValidateToken(%s): %v", role, err)
		}
		if claims.UserID != "123" || claims.Role != role {
			t.Errorf("unexpected claims for %s: %+v", role, claims)
		}

		if _, err := ValidateToken(token, "wrongsecret"); err == nil {
			t.Errorf("expected wrong secret to fail for %s", role)
		}
	}
}

func TestValidateTokenRejectsOtherAlgorithms(t *testing.T) {
	secret := "supersecret"
	claims := Claims{UserID: "7", Role: "tutor"}

	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	if _, err := ValidateToken(hs512, secret); err == nil {
		t.Errorf("expected HS512 token to be rejected")
	}

	unsigned, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("SignedString: %v", err)
	}
	if _, err := ValidateToken(unsigned, secret); err == nil {
		t.Errorf("expected unsigned token to be rejected")
	}
}

func TestTokenCarriesRoleAndExpiry(t *testing.T) {
	token, err := GenerateToken("7", "tutor", "supersecret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	claims, err := ValidateToken(token, "supersecret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if claims.Role != "tutor" || claims.Subject != "7" {
		t.Errorf("unexpected claims %+v", claims)
	}
	if ttl := time.Until(claims.ExpiresAt.Time); ttl <= 23*time.Hour || ttl > 24*time.Hour {
		t.Errorf("expected a 24h expiry, got %v", ttl)
	}
}

func TestValidateTokenRequiresUserID(t *testing.T) {
	token, err := GenerateToken("", "student", "supersecret")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := ValidateToken(token, "supersecret"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("expected ErrInvalidToken, got %v", err)
	}
}
