package main

import (
	"strings"
	"testing"

	"smartfit/backend/internal/config"
)

func TestValidateSecurityConfigRejectsShortSecret(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: "short"})
	if err == nil {
		t.Fatalf("expected short AUTH_SECRET to be rejected")
	}
}

func TestValidateSecurityConfigAcceptsLongSecret(t *testing.T) {
	err := validateSecurityConfig(config.Config{AuthSecret: strings.Repeat("x", 32)})
	if err != nil {
		t.Fatalf("expected 32-char AUTH_SECRET to be accepted: %v", err)
	}
}
