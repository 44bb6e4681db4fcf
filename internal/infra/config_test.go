package infra

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.SessionTTL != 15*time.Minute {
		t.Fatalf("session ttl %v, want 15m", cfg.SessionTTL)
	}
	if cfg.MaxScreenshots != 5 {
		t.Fatalf("max screenshots %d, want 5", cfg.MaxScreenshots)
	}
	if cfg.PaymentCurrency != "usd" {
		t.Fatalf("currency %q, want usd", cfg.PaymentCurrency)
	}
	if len(cfg.AcceptedAmounts) != 2 {
		t.Fatalf("accepted amounts %v", cfg.AcceptedAmounts)
	}
	if cfg.PaymentBypass {
		t.Fatal("payment bypass must default off")
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	t.Setenv("SESSION_TTL_SECONDS", "60")
	t.Setenv("PAYMENT_BYPASS", "true")
	t.Setenv("PAYMENT_ACCEPTED_AMOUNTS", "500, 750")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example")

	cfg, err := LoadConfig()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}
	if cfg.SessionTTL != time.Minute {
		t.Fatalf("session ttl %v, want 1m", cfg.SessionTTL)
	}
	if !cfg.PaymentBypass {
		t.Fatal("payment bypass not picked up")
	}
	if len(cfg.AcceptedAmounts) != 2 || cfg.AcceptedAmounts[0] != 500 || cfg.AcceptedAmounts[1] != 750 {
		t.Fatalf("accepted amounts %v", cfg.AcceptedAmounts)
	}
	if len(cfg.CORSAllowedOrigins) != 2 {
		t.Fatalf("cors origins %v", cfg.CORSAllowedOrigins)
	}
}
