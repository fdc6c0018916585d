package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadFlags(t *testing.T) {
	loader := NewLoader()

	cfg, err := loader.Load([]string{
		"--target", "ws://localhost:9000/echo",
		"--amount", "500",
		"--workers", "8",
		"--messages", "25",
		"--size", "256",
		"--concurrency", "50",
		"--keepalive", "5s",
		"--interval", "100ms",
		"--ramp-up", "250ms",
		"--masked",
		"--header", "Authorization=Bearer token",
	})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Target != "ws://localhost:9000/echo" {
		t.Errorf("unexpected target: %q", cfg.Target)
	}
	if cfg.Amount != 500 || cfg.Workers != 8 || cfg.Messages != 25 {
		t.Errorf("unexpected load shape: amount=%d workers=%d messages=%d",
			cfg.Amount, cfg.Workers, cfg.Messages)
	}
	if cfg.PayloadSize != 256 || cfg.Concurrency != 50 {
		t.Errorf("unexpected sizing: size=%d concurrency=%d", cfg.PayloadSize, cfg.Concurrency)
	}
	if cfg.KeepAlive != 5*time.Second || cfg.MessageInterval != 100*time.Millisecond || cfg.RampUp != 250*time.Millisecond {
		t.Errorf("unexpected pacing: keepalive=%s interval=%s ramp-up=%s",
			cfg.KeepAlive, cfg.MessageInterval, cfg.RampUp)
	}
	if !cfg.Masked {
		t.Error("expected masked flag to be set")
	}
	if cfg.Headers["Authorization"] != "Bearer token" {
		t.Errorf("unexpected headers: %v", cfg.Headers)
	}
}

func TestLoadDefaults(t *testing.T) {
	loader := NewLoader()

	cfg, err := loader.Load([]string{"--target", "ws://localhost:9000"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Amount != 100 {
		t.Errorf("expected default amount 100, got %d", cfg.Amount)
	}
	if cfg.Messages != 100 {
		t.Errorf("expected default messages 100, got %d", cfg.Messages)
	}
	if cfg.HandshakeTimeout != 30*time.Second {
		t.Errorf("expected default handshake timeout 30s, got %s", cfg.HandshakeTimeout)
	}
	if cfg.ReceiveTimeout != 10*time.Second {
		t.Errorf("expected default receive timeout 10s, got %s", cfg.ReceiveTimeout)
	}
	if cfg.Tracing.Protocol != "grpc" {
		t.Errorf("expected default tracing protocol grpc, got %q", cfg.Tracing.Protocol)
	}
}

func TestLoadHelpRequested(t *testing.T) {
	loader := NewLoader()

	if _, err := loader.Load(nil); !errors.Is(err, ErrHelpRequested) {
		t.Errorf("expected ErrHelpRequested for empty args, got %v", err)
	}
	if _, err := loader.Load([]string{"--help"}); !errors.Is(err, ErrHelpRequested) {
		t.Errorf("expected ErrHelpRequested for --help, got %v", err)
	}
}

func TestLoadConfigFileWithFlagOverrides(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "run.json")
	contents := `{
		"target": "ws://file-target:8080",
		"amount": 42,
		"messages": 7,
		"interval": "75ms"
	}`
	if err := os.WriteFile(path, []byte(contents), 0o600); err != nil {
		t.Fatalf("write config file: %v", err)
	}

	loader := NewLoader()
	cfg, err := loader.Load([]string{"--config", path, "--amount", "99"})
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Target != "ws://file-target:8080" {
		t.Errorf("expected target from file, got %q", cfg.Target)
	}
	if cfg.Amount != 99 {
		t.Errorf("expected flag to override file amount, got %d", cfg.Amount)
	}
	if cfg.Messages != 7 {
		t.Errorf("expected messages from file, got %d", cfg.Messages)
	}
	if cfg.MessageInterval != 75*time.Millisecond {
		t.Errorf("expected interval from file, got %s", cfg.MessageInterval)
	}
}

func TestLoadRejectsMalformedHeader(t *testing.T) {
	loader := NewLoader()

	if _, err := loader.Load([]string{"--target", "ws://x", "--header", "no-separator"}); err == nil {
		t.Error("expected malformed header to be rejected")
	}
}
