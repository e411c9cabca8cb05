package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestSettingsManagerCreatesAndUpdates(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewSettingsManager(WithSettingsDir(dir))
	if err != nil {
		t.Fatalf("NewSettingsManager: %v", err)
	}

	path := filepath.Join(dir, "settings.json")
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("settings file not created: %v", err)
	}

	if err := mgr.UpdateFromJSON([]byte(`{"theme":"dark","refresh_interval":120}`)); err != nil {
		t.Fatalf("UpdateFromJSON: %v", err)
	}

	updated := mgr.Get()
	if updated.Theme != "dark" || updated.RefreshInterval != 120 {
		t.Fatalf("unexpected settings after update: %+v", updated)
	}
	if updated.DefaultCurrency != "USD" {
		t.Fatalf("expected defaults to survive partial update, got %q", updated.DefaultCurrency)
	}

	reopened, err := NewSettingsManager(WithSettingsPath(path))
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	if reopened.Get().Theme != "dark" {
		t.Fatalf("expected persisted theme dark, got %q", reopened.Get().Theme)
	}
}

func TestSettingsManagerRejectsInvalid(t *testing.T) {
	mgr, err := NewSettingsManager(WithSettingsDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewSettingsManager: %v", err)
	}
	if err := mgr.UpdateFromJSON([]byte(`{"default_period":"10y"}`)); err == nil {
		t.Fatalf("expected validation error for unknown period")
	}
	if mgr.Get().DefaultPeriod != "1mo" {
		t.Fatalf("invalid update must not be applied")
	}
	if err := mgr.UpdateFromJSON([]byte(`{"reddit":{"sentiment_method":"bert"}}`)); err == nil {
		t.Fatalf("expected validation error for unknown sentiment method")
	}
	if err := mgr.UpdateFromJSON([]byte(`{"reddit":{"sentiment_method":"VADER"}}`)); err != nil {
		t.Fatalf("vader should be accepted: %v", err)
	}
	if got := mgr.Get().Reddit.SentimentMethod; got != "vader" {
		t.Fatalf("sentiment_method = %q, want vader", got)
	}
}

func TestSettingsManagerSecrets(t *testing.T) {
	mgr, err := NewSettingsManager(WithSettingsDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewSettingsManager: %v", err)
	}
	if _, ok := mgr.Secret(KeyNewsAPI); ok {
		t.Fatalf("empty key must be reported as missing")
	}
	if err := mgr.SetSecret(KeyNewsAPI, "abc123"); err != nil {
		t.Fatalf("SetSecret: %v", err)
	}
	if v, ok := mgr.Secret(KeyNewsAPI); !ok || v != "abc123" {
		t.Fatalf("expected stored secret, got %q %v", v, ok)
	}

	chain := ChainSecrets{StaticSecrets{KeyNewsAPI: "from-env"}, mgr}
	if v := SecretOr(chain, KeyNewsAPI, ""); v != "from-env" {
		t.Fatalf("chain should prefer first store, got %q", v)
	}
	if v := SecretOr(chain, KeyAlphaVantage, "fallback"); v != "fallback" {
		t.Fatalf("expected fallback, got %q", v)
	}
}

func TestSettingsManagerReset(t *testing.T) {
	mgr, err := NewSettingsManager(WithSettingsDir(t.TempDir()))
	if err != nil {
		t.Fatalf("NewSettingsManager: %v", err)
	}
	s := mgr.Get()
	s.Theme = "dark"
	if err := mgr.Update(s); err != nil {
		t.Fatalf("Update: %v", err)
	}
	if err := mgr.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	if mgr.Get().Theme != "light" {
		t.Fatalf("expected default theme after reset")
	}
}

func TestSettingsManagerWatchReloads(t *testing.T) {
	dir := t.TempDir()
	mgr, err := NewSettingsManager(WithSettingsDir(dir), WithDebounce(50*time.Millisecond))
	if err != nil {
		t.Fatalf("NewSettingsManager: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reloaded := make(chan Settings, 1)
	if err := mgr.Watch(ctx, func(s Settings) {
		select {
		case reloaded <- s:
		default:
		}
	}); err != nil {
		t.Fatalf("Watch: %v", err)
	}

	s := mgr.Get()
	s.MaxTickersDisplay = 25
	if err := writeSettingsFile(mgr.Path(), s); err != nil {
		t.Fatalf("writeSettingsFile: %v", err)
	}

	select {
	case got := <-reloaded:
		if got.MaxTickersDisplay != 25 {
			t.Fatalf("expected reloaded value 25, got %d", got.MaxTickersDisplay)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("watcher did not fire on settings change")
	}
}
