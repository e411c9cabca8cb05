package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultConfigWithRoot(t *testing.T) {
	dir := t.TempDir()
	cfg := DefaultConfigWithRoot(dir)
	if cfg.ResultsDir != filepath.Join(dir, "results") {
		t.Fatalf("unexpected results dir %s", cfg.ResultsDir)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults should validate: %v", err)
	}
	if err := cfg.EnsureDirectories(); err != nil {
		t.Fatalf("EnsureDirectories: %v", err)
	}
	if _, err := os.Stat(cfg.DataCacheDir); err != nil {
		t.Fatalf("cache dir not created: %v", err)
	}
	if _, err := os.Stat(cfg.ResultsDir); !os.IsNotExist(err) {
		t.Fatalf("results dir is owned by the analysis system and must not be created")
	}
}

func TestLoadFileOverlaysYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dashboard.yaml")
	content := "results_dir: /srv/results\nllm_provider: deepseek\nserver_addr: \":9000\"\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write yaml: %v", err)
	}

	cfg := DefaultConfigWithRoot(dir)
	if err := cfg.LoadFile(path); err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.ResultsDir != "/srv/results" || cfg.LLMProvider != "deepseek" || cfg.ServerAddr != ":9000" {
		t.Fatalf("yaml not applied: %+v", cfg)
	}
	if cfg.TranslationModel != "gpt-4o-mini" {
		t.Fatalf("keys absent from yaml must keep defaults, got %q", cfg.TranslationModel)
	}
}

func TestValidateRejectsUnknownProvider(t *testing.T) {
	cfg := DefaultConfigWithRoot(t.TempDir())
	cfg.LLMProvider = "unknown"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error for unknown provider")
	}
}

func TestLLMAPIKeyMissing(t *testing.T) {
	cfg := DefaultConfigWithRoot(t.TempDir())
	if _, err := cfg.LLMAPIKey(); !errors.Is(err, ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
	cfg.LLMProvider = "deepseek"
	cfg.DeepSeekAPIKey = "sk-test"
	key, err := cfg.LLMAPIKey()
	if err != nil || key != "sk-test" {
		t.Fatalf("expected deepseek key, got %q %v", key, err)
	}
}

func TestParseSettingsMergesDefaults(t *testing.T) {
	s, err := ParseSettings([]byte(`{"api_keys":{"news_api":"k"},"colors":{"buy":"#000000"},"data_source":"Yahoo"}`))
	if err != nil {
		t.Fatalf("ParseSettings: %v", err)
	}
	if s.APIKeys[KeyNewsAPI] != "k" {
		t.Fatalf("expected news key, got %q", s.APIKeys[KeyNewsAPI])
	}
	if _, ok := s.APIKeys[KeyAlphaVantage]; !ok {
		t.Fatalf("default api key entries should be kept")
	}
	if s.Colors.Buy != "#000000" || s.Colors.Sell != "#ef4444" {
		t.Fatalf("unexpected colors %+v", s.Colors)
	}
	if s.DataSource != "yahoo" {
		t.Fatalf("data source should be normalised, got %q", s.DataSource)
	}
	if err := s.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestMaskSecret(t *testing.T) {
	cases := map[string]string{
		"":          "",
		"abc":       "****",
		"abcdefgh":  "****efgh",
		"secretkey": "*****tkey",
	}
	for in, want := range cases {
		if got := MaskSecret(in); got != want {
			t.Errorf("MaskSecret(%q) = %q, want %q", in, got, want)
		}
	}
}
