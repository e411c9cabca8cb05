package cli

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/brandonnmartinsj/TradingAgents/config"
	"github.com/brandonnmartinsj/TradingAgents/internal/debug"
	"github.com/brandonnmartinsj/TradingAgents/internal/display"
	"github.com/brandonnmartinsj/TradingAgents/internal/reports"
	"github.com/brandonnmartinsj/TradingAgents/internal/translation"
)

type translateOptions struct {
	ticker      string
	date        string
	allDates    bool
	all         bool
	listTickers bool
	model       string
	temperature float32
	einoDebug   bool
}

// validate enforces the flag combinations of the translate command.
func (o translateOptions) validate() error {
	if o.listTickers {
		return nil
	}
	if o.ticker == "" && !o.all {
		return errors.New("either --ticker or --all is required")
	}
	if o.date != "" && o.allDates {
		return errors.New("--date and --all-dates are mutually exclusive")
	}
	if o.ticker != "" && o.date == "" && !o.allDates {
		return errors.New("--ticker requires --date or --all-dates")
	}
	return nil
}

// NewTranslateCmd translates stored reports to Brazilian Portuguese.
func NewTranslateCmd(cfg *config.Config) *cobra.Command {
	var opts translateOptions

	cmd := &cobra.Command{
		Use:   "translate",
		Short: "Translate analysis reports to pt-BR",
		Example: `  translate --ticker AAPL --date 2024-05-10
  translate --ticker AAPL --all-dates
  translate --all
  translate --list-tickers`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := opts.validate(); err != nil {
				return err
			}
			return runTranslate(cmd, cfg, opts)
		},
	}

	tc := translation.DefaultConfig()
	cmd.Flags().StringVar(&opts.ticker, "ticker", "", "Ticker to translate (e.g. AAPL)")
	cmd.Flags().StringVar(&opts.date, "date", "", "Analysis date (YYYY-MM-DD)")
	cmd.Flags().BoolVar(&opts.allDates, "all-dates", false, "Translate every date of --ticker")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Translate every ticker and date")
	cmd.Flags().BoolVar(&opts.listTickers, "list-tickers", false, "List available tickers and exit")
	cmd.Flags().StringVar(&opts.model, "model", tc.Model, "Model name")
	cmd.Flags().Float32Var(&opts.temperature, "temperature", tc.Temperature, "Sampling temperature")
	cmd.Flags().BoolVar(&opts.einoDebug, "eino-debug", false, "Start the Eino visual debug server")
	return cmd
}

// NewTranslateReportsCmd is the root of the standalone translate-reports tool.
func NewTranslateReportsCmd() *cobra.Command {
	cfg := config.DefaultConfig()
	cmd := NewTranslateCmd(cfg)
	cmd.Use = "translate-reports"
	cmd.SilenceUsage = true
	cmd.SilenceErrors = true
	cmd.Flags().StringVar(&cfg.ResultsDir, "results-dir", cfg.ResultsDir, "Results directory")
	return cmd
}

func runTranslate(cmd *cobra.Command, cfg *config.Config, opts translateOptions) error {
	if info, err := os.Stat(cfg.ResultsDir); err != nil || !info.IsDir() {
		return fmt.Errorf("results directory not found: %s", cfg.ResultsDir)
	}
	store := reports.NewStore(cfg.ResultsDir)

	if opts.listTickers {
		tickers, err := store.ListTickers()
		if err != nil {
			return err
		}
		DisplayTitle(fmt.Sprintf("📂 Tickers in %s", cfg.ResultsDir))
		rows := make([][]string, 0, len(tickers))
		for _, t := range tickers {
			rows = append(rows, []string{t, fmt.Sprintf("%d", len(store.ListDates(t)))})
		}
		DisplayTable([]string{"Ticker", "Dates"}, rows)
		return nil
	}

	ctx := commandContext(cmd)
	if opts.einoDebug {
		cfg.EinoDebugEnabled = true
	}
	if err := debug.NewEinoDebugger(cfg).Initialize(ctx); err != nil {
		DisplayWarning(err.Error())
	}

	tc := translation.DefaultConfig()
	tc.Model = opts.model
	tc.Temperature = opts.temperature
	cm, err := translation.NewChatModel(ctx, cfg, tc)
	if err != nil {
		return err
	}
	rt := translation.NewReportTranslator(translation.NewTranslator(cm, tc), store)

	DisplayInfo(fmt.Sprintf("Translating with %s (%s, temperature %.1f)", cfg.LLMProvider, tc.Model, tc.Temperature))

	var n int
	switch {
	case opts.all:
		rt.Progress = func(ticker string, done, total int) {
			display.DisplayProgress(os.Stdout, ticker, done, total)
		}
		n, err = rt.TranslateAllTickers(ctx)
	case opts.allDates:
		n, err = rt.TranslateTickerAllDates(ctx, opts.ticker)
	default:
		n, err = rt.TranslateTickerDate(ctx, opts.ticker, opts.date)
	}
	if err != nil {
		return fmt.Errorf("translation stopped after %d file(s): %w", n, err)
	}
	DisplaySuccess(fmt.Sprintf("Translation complete: %d file(s) written", n))
	return nil
}
