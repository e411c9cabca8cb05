package mdparse

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestExtractDecision(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Decision
	}{
		{"bold proposal", "...\nFINAL TRANSACTION PROPOSAL: **BUY**\n", DecisionBuy},
		{"plain proposal", "FINAL TRANSACTION PROPOSAL: sell", DecisionSell},
		{"decision label", "Our Decision: **Hold** for now", DecisionHold},
		{"bold italic", "We recommend **_buy_** today", DecisionBuy},
		{"case insensitive label", "final transaction proposal: **hold**", DecisionHold},
		{"no tag", "The outlook is mixed and we make no call.", DecisionNone},
		{"empty", "", DecisionNone},
		{"bare word only", "BUY BUY BUY", DecisionNone},
		{
			"pattern order beats text order",
			"Decision: **SELL**\n\nFINAL TRANSACTION PROPOSAL: **BUY**",
			DecisionBuy,
		},
		{
			"plain proposal beats earlier bold italic",
			"**_SELL_** first\nFINAL TRANSACTION PROPOSAL: HOLD",
			DecisionHold,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractDecision(tt.text); got != tt.want {
				t.Fatalf("ExtractDecision() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestDecisionJSON(t *testing.T) {
	data, err := json.Marshal(struct {
		A Decision `json:"a"`
		B Decision `json:"b"`
	}{DecisionBuy, DecisionNone})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"a":"BUY","b":null}` {
		t.Fatalf("unexpected json %s", data)
	}
}

const marketReport = `## Technical Overview

| Indicator | Value | Signal |
|-----------|-------|--------|
| RSI | 62.4 | Neutral |
| MACD | 1.25 | Bullish |
| 50 SMA | $182.10 | |

Some commentary between tables.

| Indicator | Value |
|---|---|
| RSI | 64.0 |
| ATR | 3.2 |
`

func TestExtractIndicators(t *testing.T) {
	got := ExtractIndicators(marketReport)
	want := []Field{
		{"RSI", "64.0"},
		{"MACD", "1.25"},
		{"50 SMA", "$182.10"},
		{"ATR", "3.2"},
	}
	if !reflect.DeepEqual(got.Entries(), want) {
		t.Fatalf("ExtractIndicators() = %+v, want %+v", got.Entries(), want)
	}

	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(data) != `{"RSI":"64.0","MACD":"1.25","50 SMA":"$182.10","ATR":"3.2"}` {
		t.Fatalf("unexpected ordered json %s", data)
	}
}

func TestExtractTableFieldsOneEntryPerRow(t *testing.T) {
	text := "| Metric | Value |\n|---|---|\n| a | 1 |\n| b | 2 |\n| c | 3 |\n"
	got := ExtractTableFields(text, "| Metric")
	if got.Len() != 3 {
		t.Fatalf("expected 3 entries, got %d", got.Len())
	}
	if names := got.Names(); !reflect.DeepEqual(names, []string{"a", "b", "c"}) {
		t.Fatalf("unexpected row order %v", names)
	}
}

func TestExtractTableFieldsStopsAtNonRow(t *testing.T) {
	text := "| Indicator | Value |\n| RSI | 50 |\nnot a row\n| Orphan | 1 |\n"
	got := ExtractIndicators(text)
	if got.Len() != 1 {
		t.Fatalf("expected table to end at first non-row line, got %v", got.Entries())
	}
	if _, ok := got.Get("Orphan"); ok {
		t.Fatalf("row after table end must not be parsed")
	}
}

func TestExtractTableFieldsNoMatch(t *testing.T) {
	cases := []string{
		"",
		"plain prose without any table",
		"| Indicator | Value |\n",
		"| Indicator |\n| single |\n",
	}
	for _, text := range cases {
		if got := ExtractIndicators(text); got.Len() != 0 {
			t.Errorf("ExtractIndicators(%q) = %v, want empty", text, got.Entries())
		}
	}
}

func TestExtractNewsSources(t *testing.T) {
	text := `| **Topic** | **Details** | **Source** |
|---|---|---|
| **Earnings** | Beat estimates | [Reuters](https://reuters.com/a) |
| Guidance | Raised outlook | no link here |
| Supply chain | Delays easing | [Bloomberg](https://bloomberg.com/b) |
| Short | row |
`
	got := ExtractNewsSources(text)
	want := []NewsSource{
		{Topic: "Earnings", Details: "Beat estimates", SourceName: "Reuters", SourceURL: "https://reuters.com/a"},
		{Topic: "Supply chain", Details: "Delays easing", SourceName: "Bloomberg", SourceURL: "https://bloomberg.com/b"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("ExtractNewsSources() = %+v, want %+v", got, want)
	}

	if got := ExtractNewsSources("no tables here"); len(got) != 0 {
		t.Fatalf("expected no sources, got %+v", got)
	}
}

const fundamentalsReport = `# Fundamentals
- **Market Capitalization**: $2.95 Trillion
- **Market Capitalization**: $2.9 Billion
- **EBITDA**: 130.5 Billion
- **P/E**: 29.4
- **Dividend Yield**: 0.52%
- **EPS**: $6.42
- **Debt to Equity Ratio**: 1.8
`

func TestExtractFinancialMetrics(t *testing.T) {
	got := ExtractFinancialMetrics(fundamentalsReport)
	want := map[string]string{
		"Market Capitalization": "2.9 Billion",
		"EBITDA":                "130.5 Billion",
		"P/E":                   "29.4",
		"Dividend Yield":        "0.52",
		"EPS":                   "6.42",
		"Debt to Equity Ratio":  "1.8",
	}
	if !reflect.DeepEqual(got.Map(), want) {
		t.Fatalf("ExtractFinancialMetrics() = %v, want %v", got.Map(), want)
	}
}

func TestExtractFinancialMetricsMonotonic(t *testing.T) {
	base := ExtractFinancialMetrics(fundamentalsReport)
	extended := ExtractFinancialMetrics(fundamentalsReport + "\nAn unrelated closing remark.\n| x | y |\n")
	for _, name := range base.Names() {
		if _, ok := extended.Get(name); !ok {
			t.Fatalf("metric %q lost after adding unrelated lines", name)
		}
	}
}

func TestDelimiterRowDetection(t *testing.T) {
	cases := map[string]bool{
		"|---|---|":      true,
		"| :--- | ---: |": true,
		"| RSI | 50 |":    false,
		"no pipes --":     false,
	}
	for line, want := range cases {
		if got := IsDelimiterRow(line); got != want {
			t.Errorf("IsDelimiterRow(%q) = %v, want %v", line, got, want)
		}
	}
}
