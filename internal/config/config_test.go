package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":8080" || cfg.Server.BasePath != "/v1" {
		t.Fatalf("defaults: %+v", cfg.Server)
	}
	if cfg.TokenTTL() != 24*time.Hour {
		t.Fatalf("token ttl: %v", cfg.TokenTTL())
	}
}

func TestLoadPartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	doc := []byte("server:\n  addr: \":9090\"\nauth:\n  jwt_secret: s3cret\n")
	if err := os.WriteFile(filepath.Join(dir, "dockwise.yml"), doc, 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Addr != ":9090" {
		t.Fatalf("addr not overridden: %s", cfg.Server.Addr)
	}
	if cfg.Auth.JWTSecret != "s3cret" {
		t.Fatalf("secret not overridden: %s", cfg.Auth.JWTSecret)
	}
	if cfg.Server.BasePath != "/v1" || cfg.Auth.BcryptCost != 10 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.Auth.TokenTTLMinutes = 0
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected ttl validation error")
	}
	cfg = Default()
	cfg.Auth.BcryptCost = 40
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected bcrypt cost validation error")
	}
}
