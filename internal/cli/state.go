package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/brandonnmartinsj/TradingAgents/config"
	"github.com/brandonnmartinsj/TradingAgents/internal/alerts"
	"github.com/brandonnmartinsj/TradingAgents/internal/export"
	"github.com/brandonnmartinsj/TradingAgents/internal/mdparse"
	"github.com/brandonnmartinsj/TradingAgents/internal/portfolio"
	"github.com/brandonnmartinsj/TradingAgents/internal/service"
)

func newAlertsCmd(cfg *config.Config) *cobra.Command {
	alertsCmd := &cobra.Command{
		Use:   "alerts",
		Short: "Manage price, decision and volatility alerts",
	}
	alertsCmd.AddCommand(
		newAlertsAddCmd(cfg),
		newAlertsListCmd(cfg),
		newAlertsCheckCmd(cfg),
		newAlertsWatchCmd(cfg),
		newAlertsRemoveCmd(cfg),
		newStateExportCmd(cfg),
		newStateImportCmd(cfg),
	)
	return alertsCmd
}

func newAlertsAddCmd(cfg *config.Config) *cobra.Command {
	var (
		typeName string
		ticker   string
		price    float64
		decision string
		thresh   float64
	)
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Create an alert (interactive without --type)",
		RunE: func(cmd *cobra.Command, args []string) error {
			var (
				t      alerts.Type
				params alerts.Params
				err    error
			)
			if typeName == "" {
				if t, ticker, params, err = PromptForAlert(); err != nil {
					return err
				}
			} else {
				if t, err = alerts.ParseType(typeName); err != nil {
					return err
				}
				params = alerts.Params{
					TargetPrice:    price,
					TargetDecision: mdparse.ParseDecision(decision),
					Threshold:      thresh,
				}
			}

			a, err := alerts.New(t, ticker, params, time.Now())
			if err != nil {
				return err
			}
			return withApp(cfg, func(app *service.App) error {
				if err := app.State.SaveAlert(commandContext(cmd), a); err != nil {
					return err
				}
				DisplaySuccess(fmt.Sprintf("Alert %s created: %s %s", a.ID, a.Ticker, a.Condition()))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&typeName, "type", "", "price_above, price_below, decision_change or volatility")
	cmd.Flags().StringVar(&ticker, "ticker", "", "Ticker symbol")
	cmd.Flags().Float64Var(&price, "price", 0, "Target price for price alerts")
	cmd.Flags().StringVar(&decision, "decision", "", "Target decision for decision_change alerts")
	cmd.Flags().Float64Var(&thresh, "threshold", 0, "Annualised volatility threshold (%)")
	return cmd
}

func alertRows(list []alerts.Alert) [][]string {
	rows := make([][]string, 0, len(list))
	for _, a := range list {
		rows = append(rows, []string{a.ID, a.Ticker, string(a.Type), a.Condition(), a.Status(), a.CreatedAt})
	}
	return rows
}

func newAlertsListCmd(cfg *config.Config) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List alerts and the alert history",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(app *service.App) error {
				ctx := commandContext(cmd)
				list, err := app.State.Alerts(ctx, !all)
				if err != nil {
					return err
				}
				DisplayTitle("🔔 Alerts")
				DisplayTable([]string{"ID", "Ticker", "Type", "Condition", "Status", "Created"}, alertRows(list))

				fired, err := app.State.TriggeredAlerts(ctx)
				if err != nil {
					return err
				}
				if len(fired) == 0 {
					return nil
				}
				DisplayTitle("📜 Triggered")
				rows := make([][]string, 0, len(fired))
				for _, a := range fired {
					rows = append(rows, []string{a.TriggeredAt, a.Ticker, a.Condition(), a.TriggerValue})
				}
				DisplayTable([]string{"Triggered At", "Ticker", "Condition", "Value"}, rows)
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "Include deactivated alerts")
	return cmd
}

func showCheck(res service.CheckResult) {
	DisplayInfo(fmt.Sprintf("Checked %d alerts, %d triggered", res.Checked, len(res.Fired)))
	for _, a := range res.Fired {
		DisplaySuccess(fmt.Sprintf("🔔 %s %s (value %s)", a.Ticker, a.Condition(), a.TriggerValue))
	}
	for id, msg := range res.Errors {
		DisplayWarning(fmt.Sprintf("%s: %s", id, msg))
	}
}

func newAlertsCheckCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "check",
		Short: "Evaluate every active alert once",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(app *service.App) error {
				res, err := app.CheckAlerts(commandContext(cmd))
				if err != nil {
					return err
				}
				showCheck(res)
				return nil
			})
		},
	}
}

func newAlertsWatchCmd(cfg *config.Config) *cobra.Command {
	var schedule string
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Check alerts on a cron schedule until interrupted",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(app *service.App) error {
				ctx := commandContext(cmd)
				if err := app.WatchSettings(ctx); err != nil {
					DisplayWarning(fmt.Sprintf("settings watcher disabled: %v", err))
				}

				c := cron.New(cron.WithSeconds())
				if _, err := c.AddFunc(schedule, func() {
					res, err := app.CheckAlerts(ctx)
					if err != nil {
						DisplayError(err)
						return
					}
					showCheck(res)
				}); err != nil {
					return fmt.Errorf("invalid schedule %q: %w", schedule, err)
				}

				DisplayInfo(fmt.Sprintf("Watching alerts on schedule %q (Ctrl+C to stop)", schedule))
				c.Start()
				<-ctx.Done()
				<-c.Stop().Done()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&schedule, "schedule", "0 */5 * * * *", "Cron schedule with seconds field")
	return cmd
}

func newAlertsRemoveCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "remove ID",
		Short: "Deactivate an alert",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(app *service.App) error {
				if err := app.State.DeactivateAlert(commandContext(cmd), args[0]); err != nil {
					return fmt.Errorf("alert %s: %w", args[0], err)
				}
				DisplaySuccess(fmt.Sprintf("Alert %s deactivated", args[0]))
				return nil
			})
		},
	}
}

func newStateExportCmd(cfg *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "export FILE",
		Short: "Write alerts, alert history and positions to a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(app *service.App) error {
				f, err := os.Create(args[0])
				if err != nil {
					return err
				}
				if err := app.State.ExportJSON(commandContext(cmd), f); err != nil {
					f.Close()
					return err
				}
				if err := f.Close(); err != nil {
					return err
				}
				DisplaySuccess(fmt.Sprintf("State written to %s", args[0]))
				return nil
			})
		},
	}
}

func newStateImportCmd(cfg *config.Config) *cobra.Command {
	var replace bool
	cmd := &cobra.Command{
		Use:   "import FILE",
		Short: "Load alerts, alert history and positions from a JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if replace {
				ok, err := PromptForConfirmation("Replace all stored alerts and positions?")
				if err != nil {
					return err
				}
				if !ok {
					DisplayInfo("Import cancelled")
					return nil
				}
			}
			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			defer f.Close()
			return withApp(cfg, func(app *service.App) error {
				snap, err := app.State.ImportJSON(commandContext(cmd), f, replace)
				if err != nil {
					return err
				}
				DisplaySuccess(fmt.Sprintf("Imported %d alerts, %d triggered records and %d positions",
					len(snap.Alerts), len(snap.TriggeredAlerts), len(snap.Positions)))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&replace, "replace", false, "Drop the current state before importing")
	return cmd
}

func newPortfolioCmd(cfg *config.Config) *cobra.Command {
	portfolioCmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Track positions against live prices",
	}

	var date string
	addCmd := &cobra.Command{
		Use:   "add TICKER SHARES PRICE",
		Short: "Add a position, merging with an existing one",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			shares, err := decimal.NewFromString(args[1])
			if err != nil {
				return fmt.Errorf("invalid shares %q: %w", args[1], err)
			}
			price, err := decimal.NewFromString(args[2])
			if err != nil {
				return fmt.Errorf("invalid price %q: %w", args[2], err)
			}
			if date == "" {
				date = time.Now().Format("2006-01-02")
			}
			p, err := portfolio.NewPosition(args[0], shares, price, date)
			if err != nil {
				return err
			}
			return withApp(cfg, func(app *service.App) error {
				merged, err := app.AddPosition(commandContext(cmd), p)
				if err != nil {
					return err
				}
				DisplaySuccess(fmt.Sprintf("%s: %s shares @ $%s", merged.Ticker, merged.Shares.String(), merged.AvgPrice.StringFixed(2)))
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&date, "date", "", "Purchase date YYYY-MM-DD (default today)")

	removeCmd := &cobra.Command{
		Use:   "remove TICKER",
		Short: "Remove a position",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(app *service.App) error {
				ticker := strings.ToUpper(args[0])
				if err := app.State.RemovePosition(commandContext(cmd), ticker); err != nil {
					return fmt.Errorf("position %s: %w", ticker, err)
				}
				DisplaySuccess(fmt.Sprintf("Position %s removed", ticker))
				return nil
			})
		},
	}

	var (
		risk   bool
		period string
	)
	showCmd := &cobra.Command{
		Use:   "show",
		Short: "Show positions valued at current prices",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(app *service.App) error {
				if risk && period == "" {
					period = app.Settings.Get().DefaultPeriod
				}
				if !risk {
					period = ""
				}
				view, err := app.Portfolio(commandContext(cmd), period)
				if err != nil {
					return err
				}
				showPortfolio(view)
				return nil
			})
		},
	}
	showCmd.Flags().BoolVar(&risk, "risk", false, "Include volatility, Sharpe and drawdown")
	showCmd.Flags().StringVar(&period, "period", "", "Risk period (default from settings)")

	portfolioCmd.AddCommand(addCmd, removeCmd, showCmd)
	return portfolioCmd
}

func showPortfolio(view service.PortfolioView) {
	DisplayTitle("💼 Portfolio")
	rows := make([][]string, 0, len(view.Positions))
	for _, p := range view.Positions {
		rows = append(rows, []string{
			p.Ticker,
			p.Shares.String(),
			p.AvgPrice.StringFixed(2),
			p.CurrentPrice.StringFixed(2),
			p.CurrentValue.StringFixed(2),
			p.GainLoss().StringFixed(2),
			percent(p.ReturnPct()),
		})
	}
	DisplayTable([]string{"Ticker", "Shares", "Avg Price", "Price", "Value", "Gain/Loss", "Return"}, rows)

	m := view.Metrics
	DisplayInfo(fmt.Sprintf("Value $%s | Cost $%s | Gain/Loss $%s (%s)",
		m.TotalValue.StringFixed(2), m.TotalCost.StringFixed(2), m.GainLoss.StringFixed(2), percent(m.TotalReturn)))
	if view.Risk != nil {
		DisplayInfo(fmt.Sprintf("Volatility %s | Sharpe %.2f | Max drawdown %s",
			percent(view.Risk.Volatility), view.Risk.SharpeRatio, percent(view.Risk.MaxDrawdown)))
	}
	DisplayWarnings(view.Warnings)
}

func newExportCmd(cfg *config.Config) *cobra.Command {
	var (
		format  string
		ticker  string
		tickers []string
		capital float64
		out     string
	)
	cmd := &cobra.Command{
		Use:       "export KIND",
		Short:     "Export portfolio, backtest, comparison or alerts data",
		Args:      cobra.ExactArgs(1),
		ValidArgs: service.ExportKinds,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(app *service.App) error {
				if format == "" {
					format = app.Settings.Get().ExportFormat
				}
				f, err := export.ParseFormat(format)
				if err != nil {
					return err
				}
				now := time.Now()
				doc, warnings, err := app.Export(commandContext(cmd), service.ExportRequest{
					Kind:    args[0],
					Ticker:  strings.ToUpper(ticker),
					Tickers: tickers,
					Capital: capital,
				}, now)
				if err != nil {
					return err
				}
				DisplayWarnings(warnings)
				path, err := doc.Save(exportDir(cfg, out), f, now)
				if err != nil {
					return err
				}
				DisplaySuccess(fmt.Sprintf("Exported to %s", path))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&format, "format", "", "csv, json, xlsx, parquet or md (default from settings)")
	cmd.Flags().StringVar(&ticker, "ticker", "", "Ticker for backtest exports")
	cmd.Flags().StringSliceVar(&tickers, "tickers", nil, "Tickers for comparison exports (default all)")
	cmd.Flags().Float64Var(&capital, "capital", defaultCapital, "Initial capital for backtests")
	cmd.Flags().StringVar(&out, "out", "", "Export directory (default <data_dir>/exports)")
	return cmd
}

func newSettingsCmd(cfg *config.Config) *cobra.Command {
	settingsCmd := &cobra.Command{
		Use:   "settings",
		Short: "Show and change dashboard settings",
	}
	settingsCmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Print the settings with API keys masked",
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cfg, func(app *service.App) error {
					data, err := json.MarshalIndent(app.Settings.Get().Masked(), "", "  ")
					if err != nil {
						return err
					}
					fmt.Println(string(data))
					DisplayInfo(fmt.Sprintf("Settings file: %s", app.Settings.Path()))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "set KEY VALUE",
			Short: "Set one setting by dotted key (e.g. reddit.post_limit 50, api_keys.news_api KEY)",
			Args:  cobra.ExactArgs(2),
			RunE: func(cmd *cobra.Command, args []string) error {
				return withApp(cfg, func(app *service.App) error {
					updated, err := SetSetting(app.Settings.Get(), args[0], args[1])
					if err != nil {
						return err
					}
					if err := app.UpdateSettings(updated); err != nil {
						return err
					}
					DisplaySuccess(fmt.Sprintf("%s updated", args[0]))
					return nil
				})
			},
		},
		&cobra.Command{
			Use:   "reset",
			Short: "Restore the default settings",
			RunE: func(cmd *cobra.Command, args []string) error {
				ok, err := PromptForConfirmation("Reset all settings, including API keys, to defaults?")
				if err != nil || !ok {
					return err
				}
				return withApp(cfg, func(app *service.App) error {
					if err := app.ResetSettings(); err != nil {
						return err
					}
					DisplaySuccess("Settings reset to defaults")
					return nil
				})
			},
		},
	)
	return settingsCmd
}

// SetSetting returns s with the dotted key set to value. Values are read as
// JSON when possible and as plain strings otherwise.
func SetSetting(s config.Settings, key, value string) (config.Settings, error) {
	raw, err := json.Marshal(s)
	if err != nil {
		return s, err
	}
	var doc map[string]any
	if err := json.Unmarshal(raw, &doc); err != nil {
		return s, err
	}

	parts := strings.Split(key, ".")
	node := doc
	for _, p := range parts[:len(parts)-1] {
		child, ok := node[p].(map[string]any)
		if !ok {
			return s, fmt.Errorf("unknown setting %q", key)
		}
		node = child
	}
	leaf := parts[len(parts)-1]
	if _, ok := node[leaf]; !ok && parts[0] != "api_keys" {
		return s, fmt.Errorf("unknown setting %q", key)
	}

	var v any
	if err := json.Unmarshal([]byte(value), &v); err != nil {
		v = value
	}
	if _, isString := node[leaf].(string); isString || parts[0] == "api_keys" {
		v = value
	}
	node[leaf] = v

	if raw, err = json.Marshal(doc); err != nil {
		return s, err
	}
	updated, err := config.ParseSettings(raw)
	if err != nil {
		return s, fmt.Errorf("setting %q: %w", key, err)
	}
	if err := updated.Validate(); err != nil {
		return s, errors.Join(fmt.Errorf("setting %q rejected", key), err)
	}
	return updated, nil
}
