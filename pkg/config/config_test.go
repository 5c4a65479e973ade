package config

import (
	"os"
	"path/filepath"
	"testing"
)

const minimalYAML = `
environment: test
backend:
  type: clickhouse
upstox:
  access_token: token
symbols:
  - name: NIFTY
    instrument_key: "NSE_INDEX|Nifty 50"
collector:
  interval: 3m
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadMinimal(t *testing.T) {
	c, err := Load(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Backend.Type != "clickhouse" {
		t.Fatalf("unexpected backend %q", c.Backend.Type)
	}
	if len(c.Symbols) != 1 || c.Symbols[0].Name != "NIFTY" {
		t.Fatalf("unexpected symbols %+v", c.Symbols)
	}
}

func TestValidateRejectsMissingCredentials(t *testing.T) {
	body := `
environment: test
backend:
  type: clickhouse
symbols:
  - name: NIFTY
    instrument_key: "NSE_INDEX|Nifty 50"
collector:
  interval: 3m
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected credential validation error")
	}
}

func TestLoadWithEnvSymbolsOverride(t *testing.T) {
	t.Setenv("SYMBOLS", "BANKNIFTY:NSE_INDEX|Nifty Bank,FINNIFTY:NSE_INDEX|Nifty Fin Service")

	c, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(c.Symbols) != 2 {
		t.Fatalf("expected 2 symbols, got %+v", c.Symbols)
	}
	if c.Symbols[0].Name != "BANKNIFTY" || c.Symbols[0].InstrumentKey != "NSE_INDEX|Nifty Bank" {
		t.Fatalf("unexpected first symbol %+v", c.Symbols[0])
	}
	if c.Symbols[1].Name != "FINNIFTY" {
		t.Fatalf("unexpected second symbol %+v", c.Symbols[1])
	}
}

func TestLoadWithEnvSymbolsMalformed(t *testing.T) {
	t.Setenv("SYMBOLS", "JUSTANAME")

	if _, err := LoadWithEnv(writeConfig(t, minimalYAML)); err == nil {
		t.Fatalf("expected error for malformed SYMBOLS entry")
	}
}

func TestLoadWithEnvBackendOverride(t *testing.T) {
	t.Setenv("BACKEND", "kafka")

	c, err := LoadWithEnv(writeConfig(t, minimalYAML))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.Backend.Type != "kafka" {
		t.Fatalf("unexpected backend %q", c.Backend.Type)
	}
}
