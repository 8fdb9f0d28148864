package httpapi

import (
	"context"
	"testing"
	"time"

	"smartfit/backend/internal/domain"
	"smartfit/backend/internal/store/memory"
)

func TestTokenRoundTrip(t *testing.T) {
	auth := NewAuthManager("test-secret-key-that-is-long-enough", time.Hour, memory.NewSeeded())

	resp, err := auth.Login(domain.LoginRequest{Username: "nitesh", Password: "admin789"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if resp.Role != domain.RoleManager {
		t.Fatalf("expected manager role, got %s", resp.Role)
	}

	actor, err := auth.ParseToken(resp.AccessToken)
	if err != nil {
		t.Fatalf("parse token failed: %v", err)
	}
	if actor.Username != "nitesh" || actor.Role != domain.RoleManager {
		t.Fatalf("unexpected actor: %+v", actor)
	}
}

func TestParseTokenRejectsGarbage(t *testing.T) {
	auth := NewAuthManager("test-secret-key-that-is-long-enough", time.Hour, nil)

	if _, err := auth.ParseToken("not-a-token"); err == nil {
		t.Fatalf("expected garbage token to be rejected")
	}
}

func TestParseTokenRejectsWrongSecret(t *testing.T) {
	signer := NewAuthManager("secret-one-that-is-long-enough!!!!", time.Hour, memory.NewSeeded())
	verifier := NewAuthManager("secret-two-that-is-long-enough!!!!", time.Hour, nil)

	resp, err := signer.Login(domain.LoginRequest{Username: "prajwal", Password: "staff1"})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if _, err := verifier.ParseToken(resp.AccessToken); err == nil {
		t.Fatalf("expected token signed with another secret to be rejected")
	}
}

func TestBootstrapUpgradesLegacyPlaintextPasswords(t *testing.T) {
	repo := memory.NewSeeded()
	if err := repo.CreateStaff(context.Background(), domain.StaffAccount{
		Username: "legacy",
		PassHash: "plain-password",
		Role:     domain.RoleAssociate,
	}); err != nil {
		t.Fatalf("create staff failed: %v", err)
	}

	auth := NewAuthManager("test-secret-key-that-is-long-enough", time.Hour, repo)

	if _, err := auth.Login(domain.LoginRequest{Username: "legacy", Password: "plain-password"}); err != nil {
		t.Fatalf("legacy login failed: %v", err)
	}

	acct, err := repo.GetStaffByUsername(context.Background(), "legacy")
	if err != nil {
		t.Fatalf("get staff failed: %v", err)
	}
	if !isPasswordHash(acct.PassHash) {
		t.Fatalf("expected stored password to be upgraded to bcrypt, got %q", acct.PassHash)
	}
}
