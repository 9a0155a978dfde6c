package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("SAFETY_DEDUP_WINDOW", "")
	t.Setenv("PROVIDER_ATTEMPT_TIMEOUT", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != ":8080" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Safety.DedupWindow != 5*time.Minute {
		t.Fatalf("unexpected dedup window %v", cfg.Safety.DedupWindow)
	}
	if cfg.Safety.HistoryLimit != 5 {
		t.Fatalf("unexpected history limit %d", cfg.Safety.HistoryLimit)
	}
	if cfg.Notify.Retries != 3 {
		t.Fatalf("unexpected retries %d", cfg.Notify.Retries)
	}
	if cfg.AI.AttemptTimeout != 15*time.Second {
		t.Fatalf("unexpected attempt timeout %v", cfg.AI.AttemptTimeout)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "127.0.0.1:9000")
	t.Setenv("SAFETY_DEDUP_WINDOW", "60")
	t.Setenv("PROVIDER_ATTEMPT_TIMEOUT", "5")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load err: %v", err)
	}

	if cfg.Server.Addr != "127.0.0.1:9000" {
		t.Fatalf("unexpected addr %q", cfg.Server.Addr)
	}
	if cfg.Safety.DedupWindow != time.Minute {
		t.Fatalf("unexpected dedup window %v", cfg.Safety.DedupWindow)
	}
	if cfg.AI.AttemptTimeout != 5*time.Second {
		t.Fatalf("unexpected attempt timeout %v", cfg.AI.AttemptTimeout)
	}
}

func TestLoadRejectsBadInt(t *testing.T) {
	t.Setenv("SAFETY_DEDUP_WINDOW", "five minutes")

	if _, err := Load(); err == nil {
		t.Fatal("expected error for non-numeric SAFETY_DEDUP_WINDOW")
	}
}

func TestAIConfigGates(t *testing.T) {
	var cfg AIConfig
	if cfg.PrimaryEnabled() || cfg.ArkEnabled() || cfg.SpeechEnabled() {
		t.Fatal("empty config must not enable any provider")
	}

	cfg.NvidiaAPIKey = "key"
	cfg.NvidiaModel = "model"
	if !cfg.PrimaryEnabled() {
		t.Fatal("expected primary enabled")
	}

	cfg.ArkModel = "ark-model"
	cfg.ArkAPIKey = "ark-key"
	if !cfg.ArkEnabled() {
		t.Fatal("expected ark enabled")
	}
}
