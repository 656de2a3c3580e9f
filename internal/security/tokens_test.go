package security

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestJWTManagerGenerateAndValidate(t *testing.T) {
	m := NewJWTManager([]byte("test-secret"), "vibe-ensemble")

	token, err := m.GenerateAccessToken("user-1", "Admin")
	if err != nil {
		t.Fatalf("GenerateAccessToken() error = %v", err)
	}

	claims, err := m.ValidateAccessToken(token)
	if err != nil {
		t.Fatalf("ValidateAccessToken() error = %v", err)
	}
	if claims.UserID != "user-1" {
		t.Errorf("UserID = %s, want user-1", claims.UserID)
	}
	if claims.Role != "Admin" {
		t.Errorf("Role = %s, want Admin", claims.Role)
	}
}

func TestJWTManagerRejectsWrongSecret(t *testing.T) {
	m := NewJWTManager([]byte("test-secret"), "vibe-ensemble")
	token, _ := m.GenerateAccessToken("user-1", "Admin")

	other := NewJWTManager([]byte("different-secret"), "vibe-ensemble")
	if _, err := other.ValidateAccessToken(token); err == nil {
		t.Fatal("expected ValidateAccessToken to reject a token signed with a different secret")
	}
}

func TestJWTManagerRejectsExpiredToken(t *testing.T) {
	m := NewJWTManager([]byte("test-secret"), "vibe-ensemble")
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    m.issuer,
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-time.Minute)),
		},
		UserID: "user-1",
		Role:   "Admin",
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(m.secret)
	if err != nil {
		t.Fatalf("signing expired token: %v", err)
	}

	if _, err := m.ValidateAccessToken(token); err != ErrTokenExpired {
		t.Errorf("ValidateAccessToken() error = %v, want ErrTokenExpired", err)
	}
}

func TestGenerateRefreshTokenHashIsDeterministic(t *testing.T) {
	raw, err := GenerateRefreshToken()
	if err != nil {
		t.Fatalf("GenerateRefreshToken() error = %v", err)
	}
	if HashRefreshToken(raw) != HashRefreshToken(raw) {
		t.Error("HashRefreshToken is not deterministic for the same input")
	}
	other, _ := GenerateRefreshToken()
	if HashRefreshToken(raw) == HashRefreshToken(other) {
		t.Error("two distinct refresh tokens hashed to the same value")
	}
}
