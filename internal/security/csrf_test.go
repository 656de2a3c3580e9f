package security

import (
	"testing"
	"time"
)

func TestCSRFStoreIssueAndConsume(t *testing.T) {
	s := NewCSRFStore()
	token, err := s.Issue("session-1")
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if !s.Consume("session-1", token) {
		t.Error("Consume() = false for a freshly issued token")
	}
}

func TestCSRFStoreConsumeIsSingleUse(t *testing.T) {
	s := NewCSRFStore()
	token, _ := s.Issue("session-1")

	if !s.Consume("session-1", token) {
		t.Fatal("first Consume() should succeed")
	}
	if s.Consume("session-1", token) {
		t.Error("second Consume() with the same token should fail")
	}
}

func TestCSRFStoreIssueReplacesOutstandingToken(t *testing.T) {
	s := NewCSRFStore()
	first, _ := s.Issue("session-1")
	second, _ := s.Issue("session-1")

	if s.Consume("session-1", first) {
		t.Error("stale token should no longer be valid once a new one is issued")
	}
	if !s.Consume("session-1", second) {
		t.Error("latest issued token should be valid")
	}
}

func TestCSRFStoreConsumeRejectsExpiredToken(t *testing.T) {
	s := NewCSRFStore()
	token, _ := s.Issue("session-1")

	s.mu.Lock()
	entry := s.tokens["session-1"]
	entry.expires = time.Now().Add(-time.Second)
	s.tokens["session-1"] = entry
	s.mu.Unlock()

	if s.Consume("session-1", token) {
		t.Error("expired token should not be consumable")
	}
}

func TestCSRFStoreForget(t *testing.T) {
	s := NewCSRFStore()
	token, _ := s.Issue("session-1")
	s.Forget("session-1")

	if s.Consume("session-1", token) {
		t.Error("token should be gone after Forget()")
	}
}

func TestCSRFStoreUnknownSessionFails(t *testing.T) {
	s := NewCSRFStore()
	if s.Consume("no-such-session", "anything") {
		t.Error("Consume() on an unknown session should fail")
	}
}
