package auth

import (
	"testing"
	"time"
)

func TestIssueParseRoundtrip(t *testing.T) {
	token, exp, err := Issue("user-1", "teacher", "classroom-api", "secret", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if !exp.After(time.Now().Add(59 * time.Minute)) {
		t.Fatalf("expected ~1h expiry, got %s", exp)
	}

	claims, err := Parse(token, "secret", "classroom-api")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Subject != "user-1" || claims.Role != "teacher" {
		t.Fatalf("claims mismatch: %+v", claims)
	}
}

func TestParseRejectsWrongKey(t *testing.T) {
	token, _, err := Issue("user-1", "student", "classroom-api", "secret", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(token, "other-secret", "classroom-api"); err == nil {
		t.Fatal("expected signature error")
	}
}

func TestParseRejectsExpired(t *testing.T) {
	token, _, err := Issue("user-1", "student", "classroom-api", "secret", -time.Minute)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(token, "secret", "classroom-api"); err == nil {
		t.Fatal("expected expiry error")
	}
}

func TestParseRejectsIssuerMismatch(t *testing.T) {
	token, _, err := Issue("user-1", "student", "someone-else", "secret", time.Hour)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if _, err := Parse(token, "secret", "classroom-api"); err == nil {
		t.Fatal("expected issuer error")
	}
}

func TestParseRejectsGarbage(t *testing.T) {
	if _, err := Parse("not-a-token", "secret", "classroom-api"); err == nil {
		t.Fatal("expected parse error")
	}
}
