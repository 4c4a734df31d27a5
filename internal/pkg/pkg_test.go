package pkg

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestAppErrorKinds(t *testing.T) {
	cases := []struct {
		err  error
		kind error
	}{
		{Validation("empty"), ErrValidation},
		{Forbidden("no"), ErrForbidden},
		{NotFound("gone"), ErrNotFound},
		{Conflict("dup"), ErrConflict},
		{Unauthorized("who"), ErrUnauthorized},
	}
	for _, tc := range cases {
		wrapped := fmt.Errorf("outer: %w", tc.err)
		if !errors.Is(wrapped, tc.kind) {
			t.Fatalf("errors.Is(%v, %v) = false", wrapped, tc.kind)
		}
		if KindOf(wrapped) != tc.kind {
			t.Fatalf("KindOf(%v): got=%v want=%v", wrapped, KindOf(wrapped), tc.kind)
		}
	}
	if KindOf(errors.New("db down")) != nil {
		t.Fatalf("KindOf: infrastructure error should have no kind")
	}
	if got := NotFound("community not found").Error(); got != "community not found" {
		t.Fatalf("Error(): got=%q", got)
	}
}

func TestCleanText(t *testing.T) {
	cases := map[string]string{
		"  hello  ":              "hello",
		"":                       "",
		"   ":                    "",
		"use vector<int> v here": "use vector<int> v here",
		"if a<b and b>c then":    "if a<b and b>c then",
		"<hello>":                "<hello>",
		" see <https://go.dev> ": "see <https://go.dev>",
		"fish & chips":           "fish & chips",
		"<b>bold</b>":            "<b>bold</b>",
		"bad\xffbyte":            "bad\uFFFDbyte",
	}
	for in, want := range cases {
		if got := CleanText(in); got != want {
			t.Fatalf("CleanText(%q): got=%q want=%q", in, got, want)
		}
	}
}

func TestClampLimit(t *testing.T) {
	if got := ClampLimit(0, 10, 50); got != 10 {
		t.Fatalf("default: got=%d", got)
	}
	if got := ClampLimit(500, 10, 50); got != 50 {
		t.Fatalf("max: got=%d", got)
	}
	if got := ClampLimit(7, 10, 50); got != 7 {
		t.Fatalf("passthrough: got=%d", got)
	}
	if got := ClampOffset(-3); got != 0 {
		t.Fatalf("offset: got=%d", got)
	}
}

func TestIssueAndParseAccess(t *testing.T) {
	secret := []byte("test-secret")
	tok, err := IssueAccess(secret, 42, "alice", "alice@example.com", time.Minute)
	if err != nil {
		t.Fatalf("IssueAccess: %v", err)
	}
	claims, err := ParseAccess(secret, tok)
	if err != nil {
		t.Fatalf("ParseAccess: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "alice" || claims.Email != "alice@example.com" {
		t.Fatalf("claims: %+v", claims)
	}

	if _, err := ParseAccess([]byte("other"), tok); err == nil {
		t.Fatalf("ParseAccess: expected signature failure")
	}

	if _, err := ParseAccess(secret, "not-a-jwt"); err == nil {
		t.Fatalf("ParseAccess: expected parse failure")
	}
}

func TestRedactKVs(t *testing.T) {
	out := redactKVs([]interface{}{"user_id", 7, "email", "a@b.c", "access_token", "xyz", "dangling"})
	if out[1] != 7 {
		t.Fatalf("user_id should pass through: %v", out)
	}
	if out[3] != "[REDACTED]" || out[5] != "[REDACTED]" {
		t.Fatalf("sensitive values should be redacted: %v", out)
	}
	if out[6] != "dangling" {
		t.Fatalf("odd trailing key should be kept: %v", out)
	}
}
