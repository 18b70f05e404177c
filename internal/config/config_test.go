package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("TELEGRAM_BOT_TOKEN", "123:abc")
	t.Setenv("RPC_URL", "http://localhost:8545")
	t.Setenv("REGISTRY_ADDRESS", "0x00000000000000000000000000000000000000A1")
}

func TestLoadDefaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Address() != ":8080" {
		t.Fatalf("expected :8080, got %s", cfg.Address())
	}
	if cfg.IdempotencyTTL != defaultIdempotencyTTL {
		t.Fatalf("unexpected idempotency ttl %s", cfg.IdempotencyTTL)
	}
	if cfg.RegistryAddress != "0x00000000000000000000000000000000000000a1" {
		t.Fatalf("registry address not normalized: %s", cfg.RegistryAddress)
	}
	if cfg.UseRedisConversations() {
		t.Fatalf("expected memory conversation store by default")
	}
}

func TestLoadOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("SHUTDOWN_TIMEOUT_SECONDS", "3")
	t.Setenv("CONVERSATION_TTL", "5m")
	t.Setenv("CONVERSATION_STORE", "redis")
	t.Setenv("CHAIN_ID", "11155111")
	t.Setenv("PUBLIC_BASE_URL", "https://rosca.example/")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.ShutdownPeriod != 3*time.Second {
		t.Fatalf("expected 3s shutdown, got %s", cfg.ShutdownPeriod)
	}
	if cfg.ConversationTTL != 5*time.Minute {
		t.Fatalf("expected 5m ttl, got %s", cfg.ConversationTTL)
	}
	if !cfg.UseRedisConversations() {
		t.Fatalf("expected redis conversation store")
	}
	if cfg.ChainID != 11155111 {
		t.Fatalf("unexpected chain id %d", cfg.ChainID)
	}
	if cfg.PublicBaseURL != "https://rosca.example" {
		t.Fatalf("trailing slash not trimmed: %s", cfg.PublicBaseURL)
	}
}

func TestLoadRequiresStoresOutsideDev(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "")

	if _, err := Load(); err == nil {
		t.Fatalf("expected error without DATABASE_URL in production")
	}
}

func TestLoadRejectsBadRegistry(t *testing.T) {
	setRequired(t)
	t.Setenv("REGISTRY_ADDRESS", "not-an-address")

	if _, err := Load(); err == nil {
		t.Fatalf("expected invalid registry error")
	}
}
