package config

import (
	"encoding/base64"
	"os"
	"strings"
	"testing"
)

func TestConfigLoad_Defaults(t *testing.T) {
	// clear env vars
	_ = os.Unsetenv("CRISIS_KV_DRIVER")
	_ = os.Unsetenv("CRISIS_POSTGRES_DSN")
	_ = os.Unsetenv("CRISIS_ENVIRONMENT")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.KVDriver != "sqlite" || cfg.RealtimeDriver != "local" || cfg.MonitorIntervalSeconds != 3600 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.FollowUpDelay().Hours() != 24 {
		t.Fatalf("unexpected follow-up delay: %v", cfg.FollowUpDelay())
	}
}

func TestConfigLoad_PostgresDSNSelectsPostgres(t *testing.T) {
	t.Setenv("CRISIS_POSTGRES_DSN", "postgres://u:p@localhost/crisis")

	cfg, err := New()
	if err != nil {
		t.Fatalf("config load: %v", err)
	}
	if cfg.KVDriver != "postgres" {
		t.Fatalf("expected postgres driver, got %s", cfg.KVDriver)
	}
}

func TestConfigLoad_RejectsUnknownDriver(t *testing.T) {
	t.Setenv("CRISIS_KV_DRIVER", "cassandra")

	if _, err := New(); err == nil || !strings.Contains(err.Error(), "KV_DRIVER") {
		t.Fatalf("expected KV_DRIVER error, got %v", err)
	}
}

func TestResolveDefaults_ProductionRequiresKey(t *testing.T) {
	cfg := NewForTesting()
	cfg.Environment = EnvProduction
	cfg.KVDriver = "sqlite"
	if err := cfg.ResolveDefaults(); err == nil {
		t.Fatal("expected error without encryption key in production")
	}

	cfg.EncryptionKey = base64.StdEncoding.EncodeToString(make([]byte, 32))
	if err := cfg.ResolveDefaults(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestEncryptionKeyBytes_WrongLength(t *testing.T) {
	cfg := NewForTesting()
	cfg.EncryptionKey = base64.StdEncoding.EncodeToString([]byte("short"))
	if _, err := cfg.EncryptionKeyBytes(); err == nil {
		t.Fatal("expected length error")
	}
}
