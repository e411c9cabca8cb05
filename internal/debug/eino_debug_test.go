package debug

import (
	"context"
	"testing"

	"github.com/brandonnmartinsj/TradingAgents/config"
)

func TestDisabledDebuggerIsNoop(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	d := NewEinoDebugger(cfg)
	if err := d.Initialize(context.Background()); err != nil {
		t.Fatalf("Initialize: %v", err)
	}
	if d.IsEnabled() || d.GetDebugURL() != "" {
		t.Fatalf("disabled debugger reports enabled state")
	}

	cfg.EinoDebugEnabled = true
	if got := d.GetDebugURL(); got != "http://localhost:52538" {
		t.Fatalf("unexpected debug url %q", got)
	}
}
