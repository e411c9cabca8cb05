package display

import (
	"bytes"
	"strings"
	"testing"

	"github.com/brandonnmartinsj/TradingAgents/internal/mdparse"
	"github.com/brandonnmartinsj/TradingAgents/internal/reports"
)

func TestWrapText(t *testing.T) {
	lines := WrapText("alpha beta gamma delta", "  ", 14)
	want := []string{"  alpha beta", "  gamma delta"}
	if strings.Join(lines, "|") != strings.Join(want, "|") {
		t.Fatalf("WrapText = %q, want %q", lines, want)
	}
	if WrapText("   ", "  ", 10) != nil {
		t.Fatal("blank text should produce no lines")
	}
}

func TestDisplayAnalysis(t *testing.T) {
	var buf bytes.Buffer
	d := NewResultsDisplay(&buf, "AAPL", "2024-01-09")
	d.Preview = 20
	d.DisplayAnalysis(map[reports.ReportType]string{
		reports.FinalTradeDecision: "Long text. FINAL TRANSACTION PROPOSAL: **BUY** and more words here",
		reports.MarketReport:       "| Indicator | Value |\n|---|---|\n| RSI | 61 |\n",
	})

	out := buf.String()
	for _, want := range []string{
		"ANALYSIS RESULTS FOR AAPL",
		"FINAL RECOMMENDATION: 🟢 BUY",
		"RSI",
		"Market Analysis:",
		"   ...",
	} {
		if !strings.Contains(out, want) {
			t.Fatalf("output missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "News Analysis") {
		t.Fatalf("absent reports should not be shown:\n%s", out)
	}
}

func TestDecisionEmoji(t *testing.T) {
	if DecisionEmoji(mdparse.DecisionSell) != "🔴" || DecisionEmoji(mdparse.DecisionNone) != "⏳" {
		t.Fatal("unexpected emoji mapping")
	}
}

func TestDisplayProgress(t *testing.T) {
	var buf bytes.Buffer
	DisplayProgress(&buf, "Translating", 2, 2)
	if !strings.Contains(buf.String(), "100% (2/2) ✅") {
		t.Fatalf("unexpected progress %q", buf.String())
	}
}
