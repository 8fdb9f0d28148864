package config

import "testing"

func TestLoadDoesNotInjectWeakAuthDefaults(t *testing.T) {
	t.Setenv("AUTH_SECRET", "")

	cfg := Load()
	if cfg.AuthSecret != "" {
		t.Fatalf("expected empty AUTH_SECRET when unset, got %q", cfg.AuthSecret)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("RECEIPT_TTL_SECONDS", "")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "")
	t.Setenv("AUTO_MIGRATE", "")

	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.ReceiptTTLSeconds != 3600 {
		t.Fatalf("expected default receipt TTL 3600, got %d", cfg.ReceiptTTLSeconds)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected default token TTL 480, got %d", cfg.AccessTokenTTLMinutes)
	}
	if cfg.AutoMigrate {
		t.Fatalf("expected auto migrate off by default")
	}
}

func TestLoadRejectsBadNumericValues(t *testing.T) {
	t.Setenv("RECEIPT_TTL_SECONDS", "not-a-number")
	t.Setenv("ACCESS_TOKEN_TTL_MINUTES", "-5")

	cfg := Load()
	if cfg.ReceiptTTLSeconds != 3600 {
		t.Fatalf("expected fallback receipt TTL, got %d", cfg.ReceiptTTLSeconds)
	}
	if cfg.AccessTokenTTLMinutes != 480 {
		t.Fatalf("expected fallback token TTL, got %d", cfg.AccessTokenTTLMinutes)
	}
}
