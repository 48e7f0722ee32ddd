package identity

import (
	"testing"
	"time"

	gojwt "github.com/golang-jwt/jwt/v5"

	"github.com/vitrinelive/storefront/errors"
)

const testSecret = "test-secret-0123456789"

func signToken(t *testing.T, claims *Claims) string {
	t.Helper()
	token := gojwt.NewWithClaims(gojwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims() *Claims {
	return &Claims{
		RegisteredClaims: gojwt.RegisteredClaims{
			Subject:   "42",
			ExpiresAt: gojwt.NewNumericDate(time.Now().Add(time.Hour)),
			IssuedAt:  gojwt.NewNumericDate(time.Now()),
		},
		Email: "marie@example.com",
		Role:  "owner",
	}
}

func TestVerifier_ParseValidToken(t *testing.T) {
	v, err := NewVerifier(Config{Secret: testSecret})
	if err != nil {
		t.Fatalf("NewVerifier: %v", err)
	}

	user, err := v.Parse(signToken(t, validClaims()))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if user.ID != 42 {
		t.Errorf("expected id 42, got %d", user.ID)
	}
	if user.Email != "marie@example.com" {
		t.Errorf("unexpected email %q", user.Email)
	}
	if user.Role != RoleOwner {
		t.Errorf("expected owner role, got %q", user.Role)
	}
}

func TestVerifier_ParseExpiredToken(t *testing.T) {
	v, _ := NewVerifier(Config{Secret: testSecret, Leeway: time.Second})

	claims := validClaims()
	claims.ExpiresAt = gojwt.NewNumericDate(time.Now().Add(-time.Hour))

	_, err := v.Parse(signToken(t, claims))
	if !errors.HasCode(err, errors.ErrCodeTokenExpired) {
		t.Errorf("expected TOKEN_EXPIRED, got %v", err)
	}
}

func TestVerifier_ParseWrongSecret(t *testing.T) {
	v, _ := NewVerifier(Config{Secret: "a-different-secret"})

	_, err := v.Parse(signToken(t, validClaims()))
	if !errors.HasCode(err, errors.ErrCodeInvalidToken) {
		t.Errorf("expected INVALID_TOKEN, got %v", err)
	}
}

func TestVerifier_ParseNonNumericSubject(t *testing.T) {
	v, _ := NewVerifier(Config{Secret: testSecret})

	claims := validClaims()
	claims.Subject = "not-a-number"

	_, err := v.Parse(signToken(t, claims))
	if !errors.HasCode(err, errors.ErrCodeInvalidToken) {
		t.Errorf("expected INVALID_TOKEN, got %v", err)
	}
}

func TestVerifier_IssuerEnforced(t *testing.T) {
	v, _ := NewVerifier(Config{Secret: testSecret, Issuer: "vitrine-identity"})

	_, err := v.Parse(signToken(t, validClaims()))
	if err == nil {
		t.Error("expected error for missing issuer claim")
	}

	claims := validClaims()
	claims.Issuer = "vitrine-identity"
	if _, err := v.Parse(signToken(t, claims)); err != nil {
		t.Errorf("expected valid token with matching issuer, got %v", err)
	}
}

func TestNewVerifier_RequiresSecret(t *testing.T) {
	if _, err := NewVerifier(Config{}); err == nil {
		t.Error("expected error for empty secret")
	}
}
