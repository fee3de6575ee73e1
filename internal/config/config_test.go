package config

import (
	"testing"
	"time"
)

func setRequired(t *testing.T) {
	t.Helper()
	for k, v := range map[string]string{
		"DATABASE_URL":     "postgres://localhost/school",
		"JWT_SECRET":       "secret",
		"ENCRYPTION_KEY":   "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f",
		"NATS_URL":         "nats://localhost:4222",
		"MINIO_ENDPOINT":   "localhost:9000",
		"MINIO_ACCESS_KEY": "minio",
		"MINIO_SECRET_KEY": "minio123",
	} {
		t.Setenv(k, v)
	}
}

func TestFromEnvDefaults(t *testing.T) {
	setRequired(t)
	t.Setenv("REDIS_ADDR", "")
	t.Setenv("PASSWORD_RESET_STORE", "")

	cfg := FromEnv()
	if cfg.Port != "8080" {
		t.Fatalf("unexpected port %s", cfg.Port)
	}
	if cfg.ActivationTTL != 48*time.Hour || cfg.PasswordResetTTL != time.Hour || cfg.JWTTTL != 24*time.Hour {
		t.Fatalf("unexpected ttl defaults: %+v", cfg)
	}
	if cfg.BcryptCost != 10 {
		t.Fatalf("unexpected bcrypt cost %d", cfg.BcryptCost)
	}
	if cfg.NotificationQueue != "notifications" || cfg.NotificationMaxDeliver != 5 {
		t.Fatalf("unexpected notification defaults: %s %d", cfg.NotificationQueue, cfg.NotificationMaxDeliver)
	}
	if cfg.PasswordResetStore != "postgres" {
		t.Fatalf("expected postgres reset store, got %s", cfg.PasswordResetStore)
	}
	if !cfg.RunMigrations {
		t.Fatal("expected migrations on by default")
	}
	if len(cfg.AllowOrigins) != 1 || cfg.AllowOrigins[0] != "*" {
		t.Fatalf("unexpected origins %v", cfg.AllowOrigins)
	}
}

func TestFromEnvOverrides(t *testing.T) {
	setRequired(t)
	t.Setenv("REDIS_ADDR", "localhost:6379")
	t.Setenv("PASSWORD_RESET_STORE", "")
	t.Setenv("PASSWORD_RESET_TTL", "30m")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("ALLOW_ORIGINS", "https://a.example, https://b.example ,")
	t.Setenv("RUN_MIGRATIONS", "false")
	t.Setenv("NOTIFICATION_RETRY_DELAY", "not-a-duration")
	t.Setenv("FRONTEND_BASE_URL", "https://school.example/")

	cfg := FromEnv()
	if cfg.PasswordResetStore != "redis" {
		t.Fatalf("expected redis reset store, got %s", cfg.PasswordResetStore)
	}
	if cfg.PasswordResetTTL != 30*time.Minute {
		t.Fatalf("unexpected reset ttl %s", cfg.PasswordResetTTL)
	}
	if cfg.BcryptCost != 12 {
		t.Fatalf("unexpected cost %d", cfg.BcryptCost)
	}
	if len(cfg.AllowOrigins) != 2 || cfg.AllowOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.AllowOrigins)
	}
	if cfg.RunMigrations {
		t.Fatal("expected migrations disabled")
	}
	if cfg.NotificationRetryDelay != 10*time.Second {
		t.Fatalf("invalid duration should fall back, got %s", cfg.NotificationRetryDelay)
	}
	if cfg.FrontendBaseURL != "https://school.example" {
		t.Fatalf("unexpected frontend url %s", cfg.FrontendBaseURL)
	}
}

func TestFromEnvMissingRequired(t *testing.T) {
	setRequired(t)
	t.Setenv("JWT_SECRET", "")
	defer func() {
		r := recover()
		if r != "missing env: JWT_SECRET" {
			t.Fatalf("unexpected panic: %v", r)
		}
	}()
	FromEnv()
}

func TestFromEnvEncryptionKeyOptional(t *testing.T) {
	setRequired(t)
	t.Setenv("ENCRYPTION_KEY", "")
	if cfg := FromEnv(); cfg.EncryptionKey != "" {
		t.Fatalf("expected empty key, got %q", cfg.EncryptionKey)
	}
}
