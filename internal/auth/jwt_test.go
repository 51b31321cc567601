package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// setTestSecret installs a known JWT secret, bypassing the sync.Once guard so
// every test runs against deterministic key material.
func setTestSecret(t *testing.T) {
	t.Helper()
	jwtSecret = "test-secret-0123456789abcdef0123456789abcdef"
}

// ---------------------------------------------------------------------------
// GenerateJWT / ValidateJWT round trip
// ---------------------------------------------------------------------------

func TestGenerateJWT_RoundTrip(t *testing.T) {
	setTestSecret(t)

	token, err := GenerateJWT(42, "owner@example.com", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT() error: %v", err)
	}

	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT() error: %v", err)
	}
	if claims.UserID != 42 {
		t.Errorf("UserID = %d, want 42", claims.UserID)
	}
	if claims.Email != "owner@example.com" {
		t.Errorf("Email = %q, want owner@example.com", claims.Email)
	}
	if claims.Subject != "42" {
		t.Errorf("Subject = %q, want \"42\"", claims.Subject)
	}
	if claims.Issuer != "smplatform" {
		t.Errorf("Issuer = %q, want smplatform", claims.Issuer)
	}
}

func TestGenerateJWT_DefaultExpiry(t *testing.T) {
	setTestSecret(t)

	token, err := GenerateJWT(1, "a@b.c", 0)
	if err != nil {
		t.Fatalf("GenerateJWT() error: %v", err)
	}
	claims, err := ValidateJWT(token)
	if err != nil {
		t.Fatalf("ValidateJWT() error: %v", err)
	}

	remaining := time.Until(claims.ExpiresAt.Time)
	if remaining < 23*time.Hour || remaining > 25*time.Hour {
		t.Errorf("default expiry = %s from now, want ~24h", remaining)
	}
}

// ---------------------------------------------------------------------------
// ValidateJWT failure modes
// ---------------------------------------------------------------------------

func TestValidateJWT_ExpiredToken(t *testing.T) {
	setTestSecret(t)

	token, err := GenerateJWT(7, "x@y.z", -time.Minute)
	if err != nil {
		t.Fatalf("GenerateJWT() error: %v", err)
	}
	if _, err := ValidateJWT(token); err == nil {
		t.Error("ValidateJWT() accepted an expired token")
	}
}

func TestValidateJWT_TamperedToken(t *testing.T) {
	setTestSecret(t)

	token, err := GenerateJWT(7, "x@y.z", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT() error: %v", err)
	}

	// Flip a character in the signature segment.
	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		t.Fatalf("unexpected token format: %d segments", len(parts))
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := ValidateJWT(tampered); err == nil {
		t.Error("ValidateJWT() accepted a token with a tampered signature")
	}
}

func TestValidateJWT_WrongSecret(t *testing.T) {
	setTestSecret(t)
	token, err := GenerateJWT(7, "x@y.z", time.Hour)
	if err != nil {
		t.Fatalf("GenerateJWT() error: %v", err)
	}

	jwtSecret = "a-completely-different-secret-0123456789"
	defer setTestSecret(t)

	if _, err := ValidateJWT(token); err == nil {
		t.Error("ValidateJWT() accepted a token signed with a different secret")
	}
}

func TestValidateJWT_RejectsNoneAlgorithm(t *testing.T) {
	setTestSecret(t)

	claims := &Claims{
		UserID: 9,
		Email:  "evil@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims)
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing with none: %v", err)
	}

	if _, err := ValidateJWT(token); err == nil {
		t.Error("ValidateJWT() accepted an unsigned (alg=none) token")
	}
}

func TestValidateJWT_Garbage(t *testing.T) {
	setTestSecret(t)
	if _, err := ValidateJWT("not-a-jwt-at-all"); err == nil {
		t.Error("ValidateJWT() accepted garbage input")
	}
}
