package cli

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/brandonnmartinsj/TradingAgents/config"
	"github.com/brandonnmartinsj/TradingAgents/internal/api"
	"github.com/brandonnmartinsj/TradingAgents/internal/display"
	"github.com/brandonnmartinsj/TradingAgents/internal/mdparse"
	"github.com/brandonnmartinsj/TradingAgents/internal/reports"
	"github.com/brandonnmartinsj/TradingAgents/internal/service"
)

const Version = "v1.0.0"

// NewRootCmd creates the tradingagents command tree.
func NewRootCmd() *cobra.Command {
	cfg := config.DefaultConfig()

	var (
		configPath string
		resultsDir string
		debug      bool
	)

	rootCmd := &cobra.Command{
		Use:   "tradingagents",
		Short: "TradingAgents - dashboard and report toolchain",
		Long: `TradingAgents browses the reports written by the multi-agent analysis pipeline,
replays their decisions as backtests, tracks alerts and a portfolio, and serves the dashboard API.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if configPath != "" {
				if err := cfg.LoadFile(configPath); err != nil {
					return err
				}
			}
			if resultsDir != "" {
				cfg.ResultsDir = resultsDir
			}
			if debug {
				cfg.Debug = true
			}
			if err := cfg.EnsureDirectories(); err != nil {
				return fmt.Errorf("failed to create directories: %w", err)
			}
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug mode")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Configuration file path (YAML)")
	rootCmd.PersistentFlags().StringVar(&resultsDir, "results-dir", "", "Results directory (default from RESULTS_DIR or ./results)")

	rootCmd.AddCommand(
		newServeCmd(cfg),
		newTickersCmd(cfg),
		newReportCmd(cfg),
		newHistoryCmd(cfg),
		newDeleteCmd(cfg),
		newBacktestCmd(cfg),
		newCompareCmd(cfg),
		newQuoteCmd(cfg),
		newNewsCmd(cfg),
		newRedditCmd(cfg),
		newAlertsCmd(cfg),
		newPortfolioCmd(cfg),
		newExportCmd(cfg),
		newSettingsCmd(cfg),
		newConfigCmd(cfg),
		NewTranslateCmd(cfg),
		newInteractiveCmd(),
		newVersionCmd(),
	)
	return rootCmd
}

// withApp opens the application state for the duration of fn.
func withApp(cfg *config.Config, fn func(app *service.App) error) error {
	app, err := service.New(cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return fn(app)
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("TradingAgents %s\n", Version)
		},
	}
}

func newServeCmd(cfg *config.Config) *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr == "" {
				addr = cfg.ServerAddr
			}
			return withApp(cfg, func(app *service.App) error {
				ctx := commandContext(cmd)
				if err := app.WatchSettings(ctx); err != nil {
					DisplayWarning(fmt.Sprintf("settings watcher disabled: %v", err))
				}
				DisplayInfo(fmt.Sprintf("Dashboard API on %s (results: %s)", addr, cfg.ResultsDir))
				return api.NewServer(app, addr).Run(ctx)
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "Listen address (default from SERVER_ADDR or :8501)")
	return cmd
}

func newTickersCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "tickers",
		Short: "List analysed tickers",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(app *service.App) error {
				tickers, err := app.Reports.ListTickers()
				if err != nil {
					return err
				}
				colors := app.Settings.Get().Colors
				rows := make([][]string, 0, len(tickers))
				for _, t := range tickers {
					s := app.Reports.Summary(t)
					rows = append(rows, []string{
						s.Ticker,
						strconv.Itoa(s.TotalAnalyses),
						orDash(s.LatestDate),
						DecisionStyle(s.LatestDecision, colors),
					})
				}
				DisplayTable([]string{"Ticker", "Analyses", "Latest", "Decision"}, rows)
				return nil
			})
		},
	}
}

func newReportCmd(cfg *config.Config) *cobra.Command {
	var (
		lang string
		full bool
	)
	cmd := &cobra.Command{
		Use:   "report [TICKER] [DATE]",
		Short: "Show the reports of one analysis",
		Long:  "Show the reports of one analysis. Missing arguments are asked for interactively.",
		Args:  cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := reports.ValidateLanguage(lang); err != nil {
				return err
			}
			return withApp(cfg, func(app *service.App) error {
				ticker, date, err := resolveAnalysis(app.Reports, args)
				if err != nil {
					return err
				}
				all := app.Reports.AllReports(ticker, date, lang)
				if len(all) == 0 {
					return &reports.NotFoundError{What: "analysis", Path: ticker + "/" + date}
				}
				d := display.NewResultsDisplay(os.Stdout, ticker, date)
				if !full {
					d.Preview = 600
				}
				d.DisplayAnalysis(all)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&lang, "lang", reports.DefaultLanguage, "Report language (e.g. pt-BR)")
	cmd.Flags().BoolVar(&full, "full", false, "Print complete reports instead of previews")
	return cmd
}

// resolveAnalysis completes a (ticker, date) pair from args and prompts.
func resolveAnalysis(store *reports.Store, args []string) (string, string, error) {
	var ticker, date string
	if len(args) > 0 {
		ticker = args[0]
	} else {
		known, err := store.ListTickers()
		if err != nil {
			return "", "", err
		}
		if ticker, err = PromptForTicker(known); err != nil {
			return "", "", err
		}
	}
	if len(args) > 1 {
		return ticker, args[1], nil
	}
	date, err := PromptForDate(store.ListDates(ticker))
	if err != nil {
		return "", "", fmt.Errorf("%s: %w", ticker, err)
	}
	return ticker, date, nil
}

func newHistoryCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "history TICKER",
		Short: "Show the decision history of a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(app *service.App) error {
				history := app.Reports.History(args[0])
				if len(history) == 0 {
					return &reports.NotFoundError{What: "ticker", Path: args[0]}
				}
				colors := app.Settings.Get().Colors
				rows := make([][]string, 0, len(history))
				for _, rec := range history {
					rows = append(rows, []string{rec.Date, DecisionStyle(rec.Decision, colors)})
				}
				DisplayTable([]string{"Date", "Decision"}, rows)

				counts := reports.DecisionCounts(history)
				DisplayInfo(fmt.Sprintf("BUY %d | HOLD %d | SELL %d",
					counts[mdparse.DecisionBuy], counts[mdparse.DecisionHold], counts[mdparse.DecisionSell]))
				return nil
			})
		},
	}
}

func newDeleteCmd(cfg *config.Config) *cobra.Command {
	var (
		lang string
		yes  bool
	)
	cmd := &cobra.Command{
		Use:   "delete TICKER DATE [REPORT_TYPE]",
		Short: "Delete an analysis or a single report",
		Args:  cobra.RangeArgs(2, 3),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker, date := args[0], args[1]
			target := fmt.Sprintf("analysis %s %s", ticker, date)
			var reportType reports.ReportType
			if len(args) == 3 {
				if err := reports.ValidateLanguage(lang); err != nil {
					return err
				}
				rt, err := reports.ParseReportType(args[2])
				if err != nil {
					return err
				}
				reportType = rt
				target = fmt.Sprintf("%s of %s %s", reports.ReportFileName(rt, lang), ticker, date)
			}
			if !yes {
				ok, err := PromptForConfirmation(fmt.Sprintf("Delete %s?", target))
				if err != nil || !ok {
					return err
				}
			}

			store := reports.NewStore(cfg.ResultsDir)
			var err error
			if reportType == "" {
				err = store.DeleteAnalysis(ticker, date)
			} else {
				err = store.DeleteReport(ticker, date, reportType, lang)
			}
			if err != nil {
				return err
			}
			DisplaySuccess(fmt.Sprintf("Deleted %s", target))
			return nil
		},
	}
	cmd.Flags().StringVar(&lang, "lang", reports.DefaultLanguage, "Language of the report to delete")
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func newConfigCmd(cfg *config.Config) *cobra.Command {
	configCmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
	}
	configCmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		Run: func(cmd *cobra.Command, args []string) {
			showConfig(cfg)
		},
	})
	configCmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			return validateConfig(cfg)
		},
	})
	return configCmd
}

func configured(ok bool) string {
	if ok {
		return "✅ Configured"
	}
	return "❌ Not configured"
}

func showConfig(cfg *config.Config) {
	DisplayTitle("📋 Current TradingAgents Configuration")
	rows := [][]string{
		{"Project Directory", cfg.ProjectDir},
		{"Results Directory", cfg.ResultsDir},
		{"Data Directory", cfg.DataDir},
		{"Cache Directory", cfg.DataCacheDir},
		{"Settings File", cfg.SettingsPath},
		{"State Database", cfg.DBPath},
		{"Server Address", cfg.ServerAddr},
		{"LLM Provider", cfg.LLMProvider},
		{"Translation Model", cfg.TranslationModel},
		{"Cache Enabled", strconv.FormatBool(cfg.CacheEnabled)},
		{"Debug Mode", strconv.FormatBool(cfg.Debug)},
		{"Eino Debug", strconv.FormatBool(cfg.EinoDebugEnabled)},
	}
	if cfg.EinoDebugEnabled {
		rows = append(rows, []string{"Eino Debug URL", fmt.Sprintf("http://localhost:%d", cfg.EinoDebugPort)})
	}
	fmt.Println(RenderTable([]string{"Setting", "Value"}, rows))

	DisplayTitle("🔌 API Configuration")
	fmt.Println(RenderTable([]string{"Service", "Status"}, [][]string{
		{"OpenAI", configured(cfg.OpenAIAPIKey != "")},
		{"DeepSeek", configured(cfg.DeepSeekAPIKey != "")},
		{"Longport", configured(cfg.LongportAppKey != "" && cfg.LongportAccessToken != "")},
		{"Alpaca", configured(cfg.AlpacaAPIKey != "" && cfg.AlpacaAPISecret != "")},
		{"NewsAPI", configured(cfg.NewsAPIKey != "")},
		{"Alpha Vantage", configured(cfg.AlphaVantageKey != "")},
		{"Reddit", configured(cfg.RedditClientID != "" && cfg.RedditSecret != "")},
	}))
}

func validateConfig(cfg *config.Config) error {
	DisplayTitle("🔍 Validating TradingAgents Configuration")

	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration invalid: %w", err)
	}
	DisplaySuccess("Configuration values")

	if err := cfg.EnsureDirectories(); err != nil {
		return fmt.Errorf("directory validation failed: %w", err)
	}
	DisplaySuccess("Directories")

	if info, err := os.Stat(cfg.ResultsDir); err != nil || !info.IsDir() {
		DisplayWarning(fmt.Sprintf("results directory %s does not exist yet", cfg.ResultsDir))
	} else {
		DisplaySuccess("Results directory")
	}

	var warnings []string
	if _, err := cfg.LLMAPIKey(); err != nil {
		warnings = append(warnings, fmt.Sprintf("%v: translation is unavailable", err))
	}
	if cfg.NewsAPIKey == "" && cfg.AlphaVantageKey == "" {
		warnings = append(warnings, "no news API key in the environment (settings api_keys may still provide one)")
	}
	if cfg.RedditClientID == "" || cfg.RedditSecret == "" {
		warnings = append(warnings, "Reddit API credentials not configured")
	}
	DisplayWarnings(warnings)

	if len(warnings) == 0 {
		DisplaySuccess("Configuration validation completed successfully!")
	} else {
		DisplayInfo(fmt.Sprintf("Configuration validation completed with %d warnings.", len(warnings)))
	}
	return nil
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
