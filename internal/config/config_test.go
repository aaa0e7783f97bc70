package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func validConfig() *Config {
	cfg := Default()
	cfg.Server = "ns1.example.com"
	cfg.Zone = "example.com."
	cfg.KeyName = "sync-key"
	cfg.KeySecret = "c2VjcmV0"
	cfg.CIDR = "10.0.0.0/24"
	return cfg
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != 53 {
		t.Errorf("default port = %d, want 53", cfg.Port)
	}
	if cfg.TTL != 300 {
		t.Errorf("default ttl = %d, want 300", cfg.TTL)
	}
	if cfg.KeyAlgorithm != "hmac-sha256" {
		t.Errorf("default algorithm = %q", cfg.KeyAlgorithm)
	}
}

func TestLoadFile(t *testing.T) {
	content := strings.Join([]string{
		"server: ns1.example.com",
		"zone: example.com.",
		"key_name: sync-key",
		"key_secret: c2VjcmV0",
		"cidr: 10.0.0.0/24",
		"ttl: 120",
		"delete_stopped: true",
	}, "\n")
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Server != "ns1.example.com" {
		t.Errorf("server = %q", cfg.Server)
	}
	if cfg.TTL != 120 {
		t.Errorf("ttl = %d, want 120", cfg.TTL)
	}
	if !cfg.DeleteStopped {
		t.Error("delete_stopped not set")
	}
	if cfg.Port != 53 {
		t.Errorf("unset port should keep default, got %d", cfg.Port)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("valid file failed validation: %v", err)
	}
}

func TestLoadExpandsSecretEnv(t *testing.T) {
	t.Setenv("TEST_TSIG_SECRET", "c2VjcmV0")
	content := "key_secret: ${TEST_TSIG_SECRET}\n"
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.KeySecret != "c2VjcmV0" {
		t.Errorf("key_secret = %q, want expanded env value", cfg.KeySecret)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing server", func(c *Config) { c.Server = "" }},
		{"missing zone", func(c *Config) { c.Zone = "" }},
		{"missing key name", func(c *Config) { c.KeyName = "" }},
		{"missing key secret", func(c *Config) { c.KeySecret = "" }},
		{"missing cidr", func(c *Config) { c.CIDR = "" }},
		{"malformed cidr", func(c *Config) { c.CIDR = "10.0.0.0/40" }},
		{"bad port", func(c *Config) { c.Port = 0 }},
		{"bad ttl", func(c *Config) { c.TTL = -1 }},
		{"bad timeout", func(c *Config) { c.Timeout = 0 }},
	}

	if err := validConfig().Validate(); err != nil {
		t.Fatalf("baseline config invalid: %v", err)
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Fatal("expected validation error, got nil")
			}
		})
	}
}
