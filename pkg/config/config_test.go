package config

import "testing"

func TestEnsureDSNFromParts(t *testing.T) {
	cfg := DBConfig{
		Host:     "db.internal",
		Port:     5433,
		User:     "core",
		Password: "secret",
		Name:     "souqline",
		SSLMode:  "require",
	}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("ensureDSN: %v", err)
	}
	want := "host=db.internal port=5433 user=core password=secret dbname=souqline sslmode=require"
	if cfg.DSN != want {
		t.Fatalf("DSN = %q, want %q", cfg.DSN, want)
	}
}

func TestEnsureDSNPrefersExplicit(t *testing.T) {
	cfg := DBConfig{DSN: "host=elsewhere", Host: "ignored", User: "ignored", Name: "ignored"}
	if err := cfg.ensureDSN(); err != nil {
		t.Fatalf("ensureDSN: %v", err)
	}
	if cfg.DSN != "host=elsewhere" {
		t.Fatalf("explicit DSN should win, got %q", cfg.DSN)
	}
}

func TestEnsureDSNMissingParts(t *testing.T) {
	cfg := DBConfig{Host: "db.internal"}
	if err := cfg.ensureDSN(); err == nil {
		t.Fatal("expected error when user/name missing")
	}
}

func TestAppEnvHelpers(t *testing.T) {
	if !(AppConfig{Env: "DEV"}).IsDev() {
		t.Fatal("IsDev should be case-insensitive")
	}
	if !(AppConfig{Env: "prod"}).IsProd() {
		t.Fatal("IsProd should match prod")
	}
}
