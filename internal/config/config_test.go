package config

import (
	"flag"
	"os"
	"strings"
	"testing"
	"time"
)

// resetFlagSet создаёт новый FlagSet перед каждым вызовом NewConfig,
// чтобы избежать повторной регистрации одних и тех же флагов между тестами.
func resetFlagSet(t *testing.T) {
	t.Helper()
	flag.CommandLine = flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flag.CommandLine.SetOutput(os.Stderr)
}

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"DATABASE_URI", "BLOB_BACKEND", "BLOB_DIR", "BLOB_MAX_SIZE", "STORE_TIMEOUT",
		"S3_BUCKET", "S3_REGION", "S3_ENDPOINT", "S3_ACCESS_KEY", "S3_SECRET_KEY",
		"BASE_URL", "ENABLE_HTTPS", "CHAT_USER",
	} {
		t.Setenv(k, "")
	}
}

func TestNewConfig_DefaultsWhenEnvEmpty(t *testing.T) {
	clearEnv(t)
	resetFlagSet(t)
	cfg := NewConfig()

	if cfg.BlobBackend != "local" {
		t.Fatalf("BlobBackend default expected 'local', got %q", cfg.BlobBackend)
	}
	if cfg.BlobMaxBytes != 50_000_000 {
		t.Fatalf("BlobMaxBytes default expected 50MB, got %d", cfg.BlobMaxBytes)
	}
	if cfg.StoreTimeout != 5*time.Second {
		t.Fatalf("StoreTimeout default expected 5s, got %s", cfg.StoreTimeout)
	}
	if cfg.BaseURL != "localhost:8081" {
		t.Fatalf("BaseURL default expected 'localhost:8081', got %q", cfg.BaseURL)
	}
	if cfg.ServerURL != "http://localhost:8081" {
		t.Fatalf("ServerURL default expected 'http://localhost:8081', got %q", cfg.ServerURL)
	}
	if cfg.User != "anonymous" {
		t.Fatalf("User default expected 'anonymous', got %q", cfg.User)
	}
}

func TestNewConfig_FromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("BASE_URL", "example.com:443")
	t.Setenv("ENABLE_HTTPS", "true")
	t.Setenv("BLOB_BACKEND", "s3")
	t.Setenv("S3_BUCKET", "chat")
	t.Setenv("BLOB_MAX_SIZE", "10MiB")
	t.Setenv("STORE_TIMEOUT", "1500ms")
	t.Setenv("CHAT_USER", "alice")

	resetFlagSet(t)
	cfg := NewConfig()

	if cfg.ServerURL != "https://example.com:443" {
		t.Fatalf("ServerURL expected 'https://example.com:443', got %q", cfg.ServerURL)
	}
	if cfg.BlobBackend != "s3" || cfg.S3Bucket != "chat" {
		t.Fatalf("s3 settings not loaded: %q %q", cfg.BlobBackend, cfg.S3Bucket)
	}
	if cfg.BlobMaxBytes != 10*1024*1024 {
		t.Fatalf("BlobMaxBytes expected 10MiB, got %d", cfg.BlobMaxBytes)
	}
	if cfg.StoreTimeout != 1500*time.Millisecond {
		t.Fatalf("StoreTimeout expected 1.5s, got %s", cfg.StoreTimeout)
	}
	if cfg.User != "alice" {
		t.Fatalf("User expected 'alice', got %q", cfg.User)
	}
}

func TestNewConfig_InvalidValuesFallback(t *testing.T) {
	clearEnv(t)
	// Невалидный BASE_URL (со схемой) должен откатиться на localhost:8081
	t.Setenv("BASE_URL", "http://bad:8080")
	t.Setenv("BLOB_MAX_SIZE", "lots")

	resetFlagSet(t)
	cfg := NewConfig()

	if cfg.BaseURL != "localhost:8081" {
		t.Fatalf("invalid BASE_URL must fallback to 'localhost:8081', got %q", cfg.BaseURL)
	}
	if !strings.HasPrefix(cfg.ServerURL, "http://localhost:8081") {
		t.Fatalf("ServerURL must reflect fallback base, got %q", cfg.ServerURL)
	}
	if cfg.BlobMaxSize != "50MB" || cfg.BlobMaxBytes != 50_000_000 {
		t.Fatalf("invalid BLOB_MAX_SIZE must fallback to 50MB, got %q (%d)", cfg.BlobMaxSize, cfg.BlobMaxBytes)
	}
}
