package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"

	"github.com/brandonnmartinsj/TradingAgents/config"
	"github.com/brandonnmartinsj/TradingAgents/internal/backtest"
	"github.com/brandonnmartinsj/TradingAgents/internal/reports"
)

func TestRootCommandTree(t *testing.T) {
	root := NewRootCmd()
	want := []string{
		"serve", "tickers", "report", "history", "delete", "backtest", "compare", "quote", "news",
		"reddit", "alerts", "portfolio", "export", "settings", "config", "translate", "interactive", "version",
	}
	for _, name := range want {
		cmd, _, err := root.Find([]string{name})
		if err != nil || cmd.Name() != name {
			t.Fatalf("command %q not registered: %v", name, err)
		}
	}
	for _, path := range [][]string{{"alerts", "watch"}, {"alerts", "import"}, {"portfolio", "show"}, {"settings", "set"}} {
		cmd, _, err := root.Find(path)
		if err != nil || cmd.Name() != path[1] {
			t.Fatalf("command %v not registered: %v", path, err)
		}
	}
}

func TestTranslateOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    translateOptions
		wantErr string
	}{
		{"nothing selected", translateOptions{}, "either --ticker or --all"},
		{"date and all dates", translateOptions{ticker: "AAPL", date: "2024-01-02", allDates: true}, "mutually exclusive"},
		{"ticker alone", translateOptions{ticker: "AAPL"}, "requires --date or --all-dates"},
		{"ticker and date", translateOptions{ticker: "AAPL", date: "2024-01-02"}, ""},
		{"ticker all dates", translateOptions{ticker: "AAPL", allDates: true}, ""},
		{"all", translateOptions{all: true}, ""},
		{"list only", translateOptions{listTickers: true}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want %q", err, tt.wantErr)
			}
		})
	}
}

func TestTranslateCommandErrors(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())

	cmd := NewTranslateCmd(cfg)
	cmd.SetArgs([]string{"--ticker", "AAPL"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected a validation error")
	}

	cmd = NewTranslateCmd(cfg)
	cmd.SetArgs([]string{"--all"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	err := cmd.Execute()
	if err == nil || !strings.Contains(err.Error(), "results directory not found") {
		t.Fatalf("expected missing results directory, got %v", err)
	}

	if err := os.MkdirAll(filepath.Join(cfg.ResultsDir, "AAPL", "2024-01-02", "reports"), 0o755); err != nil {
		t.Fatal(err)
	}
	cfg.OpenAIAPIKey = ""
	cfg.LLMProvider = "openai"
	cmd = NewTranslateCmd(cfg)
	cmd.SetArgs([]string{"--all"})
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	if err := cmd.Execute(); !errors.Is(err, config.ErrMissingCredential) {
		t.Fatalf("expected ErrMissingCredential, got %v", err)
	}
}

func TestSetSetting(t *testing.T) {
	s := config.DefaultSettings()

	updated, err := SetSetting(s, "reddit.post_limit", "25")
	if err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if updated.Reddit.PostLimit != 25 {
		t.Fatalf("post_limit = %d", updated.Reddit.PostLimit)
	}

	updated, err = SetSetting(updated, "api_keys.news_api", "12345")
	if err != nil {
		t.Fatalf("SetSetting: %v", err)
	}
	if updated.APIKeys[config.KeyNewsAPI] != "12345" {
		t.Fatalf("news key = %q", updated.APIKeys[config.KeyNewsAPI])
	}
	if updated.Reddit.PostLimit != 25 {
		t.Fatal("earlier change lost")
	}

	updated, err = SetSetting(updated, "data_source", "Longport")
	if err != nil || updated.DataSource != "longport" {
		t.Fatalf("data_source = %q, %v", updated.DataSource, err)
	}

	if _, err := SetSetting(s, "no_such_key", "1"); err == nil {
		t.Fatal("unknown key should fail")
	}
	if _, err := SetSetting(s, "cache_duration", "1"); err == nil {
		t.Fatal("out of range value should fail")
	}
	if _, err := SetSetting(s, "refresh_interval", "fast"); err == nil {
		t.Fatal("type mismatch should fail")
	}
}

func TestErrorHint(t *testing.T) {
	if ErrorHint(fmt.Errorf("x: %w", backtest.ErrInsufficientHistory)) == "" {
		t.Fatal("missing hint for insufficient history")
	}
	if ErrorHint(fmt.Errorf("news: %w", config.ErrMissingCredential)) == "" {
		t.Fatal("missing hint for credentials")
	}
	if ErrorHint(&reports.NotFoundError{What: "ticker", Path: "X"}) == "" {
		t.Fatal("missing hint for not found")
	}
	if ErrorHint(errors.New("boom")) != "" {
		t.Fatal("unexpected hint")
	}
}

func TestTruncateString(t *testing.T) {
	if got := truncateString("  hello world  ", 8); got != "hello..." {
		t.Fatalf("truncateString = %q", got)
	}
	if got := truncateString("short", 8); got != "short" {
		t.Fatalf("truncateString = %q", got)
	}
}

func TestInteractiveSession(t *testing.T) {
	var calls [][]string
	newRoot := func() *cobra.Command {
		root := &cobra.Command{Use: "tradingagents", SilenceUsage: true, SilenceErrors: true}
		root.AddCommand(&cobra.Command{
			Use: "history",
			RunE: func(cmd *cobra.Command, args []string) error {
				calls = append(calls, args)
				if args[0] == "NONE" {
					return &reports.NotFoundError{What: "ticker", Path: args[0]}
				}
				return nil
			},
		})
		return root
	}

	in := strings.NewReader("help\n\nhistory AAPL\nhistory NONE\nserve\nexit\nhistory MSFT\n")
	var out bytes.Buffer
	if err := NewInteractiveSession(in, &out, newRoot).Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if len(calls) != 2 || calls[0][0] != "AAPL" || calls[1][0] != "NONE" {
		t.Fatalf("unexpected calls %v", calls)
	}
	for _, want := range []string{"📚 Commands", "ticker not found", "💡", "serve is not available", "👋 Bye!"} {
		if !strings.Contains(out.String(), want) {
			t.Fatalf("output missing %q:\n%s", want, out.String())
		}
	}
}

func TestInteractiveSessionEOF(t *testing.T) {
	var out bytes.Buffer
	newRoot := func() *cobra.Command { return &cobra.Command{Use: "x"} }
	if err := NewInteractiveSession(strings.NewReader(""), &out, newRoot).Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
}

func TestDeleteCommand(t *testing.T) {
	cfg := config.DefaultConfigWithRoot(t.TempDir())
	dir := filepath.Join(cfg.ResultsDir, "AAPL", "2024-01-02", "reports")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"market_report.md", "market_report_pt-BR.md"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("x"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	run := func(args ...string) error {
		cmd := newDeleteCmd(cfg)
		cmd.SetArgs(args)
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return cmd.Execute()
	}

	if err := run("AAPL", "2024-01-02", "market_report", "--lang", "pt-BR", "--yes"); err != nil {
		t.Fatalf("delete report: %v", err)
	}
	if _, err := os.Stat(filepath.Join(dir, "market_report_pt-BR.md")); !os.IsNotExist(err) {
		t.Fatal("translated report still present")
	}
	if _, err := os.Stat(filepath.Join(dir, "market_report.md")); err != nil {
		t.Fatal("english report should remain")
	}

	if err := run("AAPL", "2024-01-02", "market_report", "--lang", "../../x", "-y"); !errors.Is(err, reports.ErrInvalidPath) {
		t.Fatalf("expected ErrInvalidPath, got %v", err)
	}
	if err := run("AAPL", "2024-01-02", "bogus_report", "-y"); err == nil {
		t.Fatal("unknown report type should fail")
	}
	if err := run("AAPL", "2024-01-02", "-y"); err != nil {
		t.Fatalf("delete analysis: %v", err)
	}
	if err := run("AAPL", "2024-01-02", "-y"); !reports.IsNotFound(err) {
		t.Fatalf("expected not found, got %v", err)
	}
}
