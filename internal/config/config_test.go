package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if cfg.Server.Port != "8080" || cfg.Cache.QuoteTTLSec != 60 || cfg.Resolver.ExchangeSuffix != ".LG" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if !cfg.FMP.Enabled || !cfg.Yahoo.Enabled || cfg.TwelveData.Enabled {
		t.Fatalf("provider toggles: %+v", cfg)
	}
}

func TestLoad_MissingFileFallsBackToDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.json"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "8080" {
		t.Fatalf("port %q", cfg.Server.Port)
	}
}

func TestLoad_FileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	body := `{
		"server": {"port": "9090", "request_timeout_sec": 20},
		"cache": {"quote_ttl_sec": 30, "history_ttl_sec": 300, "search_ttl_sec": 3600},
		"twelvedata": {"enabled": true, "api_key": "td-key", "output_size": 100}
	}`
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "9090" || cfg.Cache.QuoteTTLSec != 30 {
		t.Fatalf("file values not applied: %+v", cfg)
	}
	if !cfg.TwelveData.Enabled || cfg.TwelveData.APIKey != "td-key" || cfg.TwelveData.OutputSize != 100 {
		t.Fatalf("twelvedata: %+v", cfg.TwelveData)
	}
	// untouched sections keep their defaults
	if cfg.Fallback.AttemptTimeoutSec != 5 || cfg.Watch.PollIntervalSec != 30 {
		t.Fatalf("defaults lost: %+v", cfg)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{"server": {"port": "9090", "request_timeout_sec": 10}}`), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("PORT", "7070")
	t.Setenv("FMP_API_KEY", "env-key")
	t.Setenv("QUOTE_TTL_SEC", "15")
	t.Setenv("TWELVEDATA_ENABLED", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Server.Port != "7070" {
		t.Fatalf("env should beat file, port=%q", cfg.Server.Port)
	}
	if cfg.FMP.APIKey != "env-key" || cfg.Cache.QuoteTTLSec != 15 || !cfg.TwelveData.Enabled {
		t.Fatalf("env not applied: %+v", cfg)
	}
}

func TestLoad_MalformedJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	if err := os.WriteFile(path, []byte(`{not json`), 0o600); err != nil {
		t.Fatal(err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("want parse error")
	}
}

func TestValidate_NoProvidersEnabled(t *testing.T) {
	cfg := Default()
	cfg.FMP.Enabled = false
	cfg.Yahoo.Enabled = false
	cfg.TwelveData.Enabled = false
	if err := cfg.Validate(); err == nil {
		t.Fatal("want validation error")
	}
}

func TestValidate_BadFieldValues(t *testing.T) {
	cfg := Default()
	cfg.Fallback.AttemptTimeoutSec = 0
	if err := cfg.Validate(); err == nil {
		t.Fatal("want validation error for zero attempt timeout")
	}

	cfg = Default()
	cfg.Server.Port = ""
	if err := cfg.Validate(); err == nil {
		t.Fatal("want validation error for empty port")
	}
}

func TestSetIntAndSetBool(t *testing.T) {
	n := 5
	setInt(&n, "12")
	if n != 12 {
		t.Fatalf("n=%d", n)
	}
	setInt(&n, "-3")
	if n != 12 {
		t.Fatalf("negative should be ignored, n=%d", n)
	}
	setInt(&n, "junk")
	if n != 12 {
		t.Fatalf("junk should be ignored, n=%d", n)
	}

	b := false
	setBool(&b, "YES")
	if !b {
		t.Fatal("YES should enable")
	}
	setBool(&b, "0")
	if b {
		t.Fatal("0 should disable")
	}
	setBool(&b, "maybe")
	if b {
		t.Fatal("junk should leave value alone")
	}
}
