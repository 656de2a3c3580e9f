// Package security is the access/audit control plane: password hashing,
// JWT bearer tokens, the role/permission matrix, CSRF protection, and the
// append-only audit writer (spec §4.5-§4.6).
package security

import (
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// bcryptCost trades hashing latency for resistance to offline brute force.
// 12 is comfortably above bcrypt's default (10) without making login
// latency noticeable.
const bcryptCost = 12

// PasswordHasher implements service.PasswordHasher and service.SecretHasher
// with bcrypt, grounded on arkeep-io-arkeep/server's auth package (which
// uses Argon2id for the same purpose; bcrypt is used here because it is
// the teacher pack's other widely used scheme and needs no extra KDF
// parameter tuning for a single-binary deployment).
type PasswordHasher struct{}

func NewPasswordHasher() PasswordHasher { return PasswordHasher{} }

func (PasswordHasher) Hash(password string) (string, error) {
	b, err := bcrypt.GenerateFromPassword([]byte(password), bcryptCost)
	if err != nil {
		return "", fmt.Errorf("security: hashing password: %w", err)
	}
	return string(b), nil
}

// Verify reports whether password matches the stored bcrypt hash.
func (PasswordHasher) Verify(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}
