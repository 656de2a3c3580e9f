package security

import "testing"

func TestPasswordHasherRoundTrip(t *testing.T) {
	h := NewPasswordHasher()

	hash, err := h.Hash("correct horse battery staple")
	if err != nil {
		t.Fatalf("Hash() error = %v", err)
	}
	if hash == "" {
		t.Fatal("Hash() returned empty string")
	}
	if !h.Verify("correct horse battery staple", hash) {
		t.Error("Verify() = false for the correct password")
	}
	if h.Verify("wrong password", hash) {
		t.Error("Verify() = true for an incorrect password")
	}
}
