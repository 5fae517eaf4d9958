package config_test

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/soheilmv/mvnet/config"
)

func TestDefault(t *testing.T) {
	cfg := config.Default()
	if cfg == nil {
		t.Fatal("Default returned nil")
	}
	if cfg.ConnectTimeout <= 0 {
		t.Errorf("ConnectTimeout should be > 0, got %v", cfg.ConnectTimeout)
	}
	if cfg.MaxRedirects <= 0 {
		t.Errorf("MaxRedirects should be > 0, got %d", cfg.MaxRedirects)
	}
	if cfg.MaxKeepAliveRequests <= 0 {
		t.Errorf("MaxKeepAliveRequests should be > 0, got %d", cfg.MaxKeepAliveRequests)
	}
	if !cfg.UseCookies {
		t.Error("UseCookies should default to true")
	}
	if !cfg.IgnoreInvalidCookie {
		t.Error("IgnoreInvalidCookie should default to true")
	}
}

func TestDefaultReturnsFreshCopy(t *testing.T) {
	a := config.Default()
	a.MaxRedirects = 99
	b := config.Default()
	if b.MaxRedirects == 99 {
		t.Error("Default should return an independent copy, mutation leaked")
	}
}

func TestLoadJSONValidFile(t *testing.T) {
	raw := map[string]interface{}{
		"max_redirects":           5,
		"use_cookies":             true,
		"cookie_single_header":    false,
		"accept_language_locale":  "fr-FR",
	}
	f, err := os.CreateTemp(t.TempDir(), "config*.json")
	if err != nil {
		t.Fatal(err)
	}
	if err := json.NewEncoder(f).Encode(raw); err != nil {
		t.Fatal(err)
	}
	f.Close()

	cfg, err := config.Load(f.Name())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxRedirects != 5 {
		t.Errorf("got MaxRedirects=%d, want 5", cfg.MaxRedirects)
	}
	if cfg.AcceptLanguageLocale != "fr-FR" {
		t.Errorf("got AcceptLanguageLocale=%q, want fr-FR", cfg.AcceptLanguageLocale)
	}
	if cfg.CookieSingleHeader {
		t.Error("CookieSingleHeader should have been overridden to false")
	}
	// Fields absent from the file should retain Default()'s values.
	if cfg.KeepAliveIdleTimeout <= 0 {
		t.Errorf("KeepAliveIdleTimeout should still carry its default, got %v", cfg.KeepAliveIdleTimeout)
	}
}

func TestLoadYAMLValidFile(t *testing.T) {
	yamlBody := "max_redirects: 3\nuse_cookies: false\ncharset: ISO-8859-1\n"
	f, err := os.CreateTemp(t.TempDir(), "config*.yaml")
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.WriteString(yamlBody); err != nil {
		t.Fatal(err)
	}
	f.Close()

	cfg, err := config.Load(f.Name())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.MaxRedirects != 3 {
		t.Errorf("got MaxRedirects=%d, want 3", cfg.MaxRedirects)
	}
	if cfg.UseCookies {
		t.Error("UseCookies should have been overridden to false")
	}
	if cfg.Charset != "ISO-8859-1" {
		t.Errorf("got Charset=%q, want ISO-8859-1", cfg.Charset)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load("/nonexistent/path/config.json")
	if err == nil {
		t.Error("expected error for missing file, got nil")
	}
}

func TestLoadInvalidJSON(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "bad*.json")
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString("{not valid json}")
	f.Close()

	_, err = config.Load(f.Name())
	if err == nil {
		t.Error("expected error for invalid JSON, got nil")
	}
}

func TestLoadUnknownJSONFieldRejected(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "bad*.json")
	if err != nil {
		t.Fatal(err)
	}
	f.WriteString(`{"not_a_real_field": true}`)
	f.Close()

	_, err = config.Load(f.Name())
	if err == nil {
		t.Error("expected error for unknown field, got nil")
	}
}
