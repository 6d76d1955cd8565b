package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.ExchangeRate.GetTTL() != 12*time.Hour {
		t.Errorf("TTL = %v, want 12h", cfg.ExchangeRate.GetTTL())
	}
	if cfg.Leads.NameMin != 2 || cfg.Leads.EmailMax != 200 || cfg.Leads.MessageMax != 2000 {
		t.Errorf("lead limits = %+v", cfg.Leads)
	}
	if cfg.Datasource.Type != "supabase" {
		t.Errorf("datasource = %q", cfg.Datasource.Type)
	}
}

func TestLoadConfigOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	yaml := `
datasource:
  type: postgres
exchange_rate:
  ttl_hours: 6
  sii_render: browser
sessions:
  idle_minutes: 5
`
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Datasource.Type != "postgres" {
		t.Errorf("datasource = %q", cfg.Datasource.Type)
	}
	if cfg.ExchangeRate.GetTTL() != 6*time.Hour || cfg.ExchangeRate.SIIRender != "browser" {
		t.Errorf("exchange rate = %+v", cfg.ExchangeRate)
	}
	// Untouched keys keep their defaults.
	if cfg.ExchangeRate.MindicadorURL == "" || cfg.Sessions.MaxSessions != 10000 {
		t.Errorf("defaults lost: %+v %+v", cfg.ExchangeRate, cfg.Sessions)
	}
	if cfg.Sessions.GetIdleTTL() != 5*time.Minute {
		t.Errorf("idle = %v", cfg.Sessions.GetIdleTTL())
	}
}

func TestLoadConfigInvalidYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	os.WriteFile(path, []byte("server: [unclosed"), 0o644)
	if _, err := LoadConfig(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLocationFallsBackToUTC(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Timezone = "Not/AZone"
	if cfg.Location() != time.UTC {
		t.Error("unknown zone should fall back to UTC")
	}
}
