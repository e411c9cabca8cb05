package cli

import (
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/brandonnmartinsj/TradingAgents/config"
	"github.com/brandonnmartinsj/TradingAgents/internal/backtest"
	"github.com/brandonnmartinsj/TradingAgents/internal/dataflows"
	"github.com/brandonnmartinsj/TradingAgents/internal/export"
	"github.com/brandonnmartinsj/TradingAgents/internal/reports"
	"github.com/brandonnmartinsj/TradingAgents/internal/service"
)

const defaultCapital = 10000

func exportDir(cfg *config.Config, out string) string {
	if out != "" {
		return out
	}
	return filepath.Join(cfg.DataDir, "exports")
}

func percent(v float64) string {
	return fmt.Sprintf("%.2f%%", v)
}

func newBacktestCmd(cfg *config.Config) *cobra.Command {
	var (
		capital float64
		format  string
		out     string
	)
	cmd := &cobra.Command{
		Use:   "backtest TICKER",
		Short: "Replay the decision history of a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if capital <= 0 {
				return fmt.Errorf("capital must be positive, got %v", capital)
			}
			return withApp(cfg, func(app *service.App) error {
				ctx := commandContext(cmd)
				result, metrics, err := app.Backtest(ctx, args[0], capital)
				if err != nil {
					return err
				}

				DisplayTitle(fmt.Sprintf("📈 Backtest %s", result.Ticker))
				DisplayTable([]string{"Metric", "Value"}, [][]string{
					{"Initial Capital", export.Money(result.InitialCapital)},
					{"Final Value", export.Money(metrics.FinalValue)},
					{"Total Return", percent(metrics.TotalReturn)},
					{"Trades", strconv.Itoa(metrics.NumTrades)},
					{"Sharpe Ratio", fmt.Sprintf("%.2f", metrics.SharpeRatio)},
					{"Max Drawdown", percent(metrics.MaxDrawdown)},
					{"Win Rate", percent(metrics.WinRate)},
				})

				rows := make([][]string, 0, len(result.Trades))
				for _, t := range result.Trades {
					rows = append(rows, []string{t.Date, t.Action.String(), strconv.FormatInt(t.Shares, 10), export.Money(t.Price), export.Money(t.Value)})
				}
				DisplayTable([]string{"Date", "Action", "Shares", "Price", "Value"}, rows)

				if format == "" {
					return nil
				}
				f, err := export.ParseFormat(format)
				if err != nil {
					return err
				}
				path, err := export.Backtest(result, metrics, time.Now()).Save(exportDir(cfg, out), f, time.Now())
				if err != nil {
					return err
				}
				DisplaySuccess(fmt.Sprintf("Exported to %s", path))
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&capital, "capital", defaultCapital, "Initial capital")
	cmd.Flags().StringVar(&format, "format", "", "Also export the run (csv, json, xlsx, parquet, md)")
	cmd.Flags().StringVar(&out, "out", "", "Export directory (default <data_dir>/exports)")
	return cmd
}

func newCompareCmd(cfg *config.Config) *cobra.Command {
	var capital float64
	cmd := &cobra.Command{
		Use:   "compare [TICKER...]",
		Short: "Compare backtests across tickers, best return first",
		RunE: func(cmd *cobra.Command, args []string) error {
			if capital <= 0 {
				return fmt.Errorf("capital must be positive, got %v", capital)
			}
			return withApp(cfg, func(app *service.App) error {
				tickers := args
				if len(tickers) == 0 {
					all, err := app.Reports.ListTickers()
					if err != nil {
						return err
					}
					tickers = all
				}
				histories := make(map[string][]reports.DecisionRecord, len(tickers))
				for _, t := range tickers {
					histories[strings.ToUpper(t)] = app.Reports.History(strings.ToUpper(t))
				}
				rows, failures := app.Clients().Backtester.CompareTickers(commandContext(cmd), histories, capital)

				table := make([][]string, 0, len(rows))
				for _, r := range rows {
					table = append(table, []string{
						r.Ticker,
						percent(r.Metrics.TotalReturn),
						export.Money(r.Metrics.FinalValue),
						strconv.Itoa(r.Metrics.NumTrades),
						fmt.Sprintf("%.2f", r.Metrics.SharpeRatio),
						percent(r.Metrics.MaxDrawdown),
						percent(r.Metrics.WinRate),
					})
				}
				DisplayTable([]string{"Ticker", "Return", "Final Value", "Trades", "Sharpe", "Max DD", "Win Rate"}, table)
				for t, err := range failures {
					DisplayWarning(fmt.Sprintf("%s: %v", t, err))
				}
				return nil
			})
		},
	}
	cmd.Flags().Float64Var(&capital, "capital", defaultCapital, "Initial capital per ticker")
	return cmd
}

func newQuoteCmd(cfg *config.Config) *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "quote TICKER",
		Short: "Show the latest quote and recent closes",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ticker := dataflows.NormalizeSymbol(args[0])
			if err := dataflows.ValidateSymbol(ticker); err != nil {
				return err
			}
			return withApp(cfg, func(app *service.App) error {
				ctx := commandContext(cmd)
				market := app.Clients().Market
				q, err := market.Quote(ctx, ticker)
				if err != nil {
					return err
				}
				DisplayTitle(fmt.Sprintf("💹 %s via %s", ticker, market.Name()))
				DisplayTable([]string{"Price", "Change", "Change %", "Volume"}, [][]string{{
					q.Price.StringFixed(2), q.Change.StringFixed(2), q.ChangePercent.StringFixed(2) + "%", strconv.FormatInt(q.Volume, 10),
				}})

				if period == "" {
					period = app.Settings.Get().DefaultPeriod
				}
				bars, err := dataflows.HistoryForPeriod(ctx, market, ticker, period)
				if err != nil {
					DisplayWarning(err.Error())
					return nil
				}
				DisplayInfo(fmt.Sprintf("%d daily bars over %s", len(bars), period))
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "History period (1mo, 3mo, 6mo, 1y, ...)")
	return cmd
}

func newNewsCmd(cfg *config.Config) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "news TICKER",
		Short: "Show recent news for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cfg, func(app *service.App) error {
				news := app.Clients().News
				if !news.HasSources() {
					return fmt.Errorf("news: %w: set news_api or alpha_vantage", config.ErrMissingCredential)
				}
				articles, err := news.FetchAll(commandContext(cmd), dataflows.NormalizeSymbol(args[0]))
				if err != nil {
					return err
				}
				if limit > 0 && len(articles) > limit {
					articles = articles[:limit]
				}
				now := time.Now()
				rows := make([][]string, 0, len(articles))
				for _, a := range articles {
					rows = append(rows, []string{truncateString(a.Title, 60), a.Source, a.Sentiment, dataflows.FormatPublished(a.PublishedAt, now)})
				}
				DisplayTable([]string{"Title", "Source", "Sentiment", "Published"}, rows)
				return nil
			})
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of articles")
	return cmd
}

func newRedditCmd(cfg *config.Config) *cobra.Command {
	var (
		trending   bool
		limit      int
		timeFilter string
	)
	cmd := &cobra.Command{
		Use:   "reddit [TICKER]",
		Short: "Show Reddit sentiment for a ticker or the trending tickers",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !trending && len(args) == 0 {
				return errors.New("a ticker is required unless --trending is set")
			}
			return withApp(cfg, func(app *service.App) error {
				ctx := commandContext(cmd)
				rs := app.Settings.Get().Reddit
				client := app.Clients().Reddit

				if trending {
					top, err := client.TrendingTickers(ctx, rs.Subreddits, limit)
					if err != nil {
						return err
					}
					rows := make([][]string, 0, len(top))
					for _, m := range top {
						rows = append(rows, []string{m.Ticker, strconv.Itoa(m.Mentions)})
					}
					DisplayTable([]string{"Ticker", "Mentions"}, rows)
					return nil
				}

				if timeFilter == "" {
					timeFilter = rs.TimeFilter
				}
				posts, err := client.FetchPosts(ctx, dataflows.RedditSearch{
					Ticker:     args[0],
					Subreddits: rs.Subreddits,
					Limit:      rs.PostLimit,
					TimeFilter: timeFilter,
				})
				if err != nil {
					return err
				}
				now := time.Now()
				rows := make([][]string, 0, len(posts))
				for _, p := range posts {
					rows = append(rows, []string{"r/" + p.Subreddit, truncateString(p.Title, 50), strconv.Itoa(p.Score), p.Sentiment, dataflows.FormatTimeAgo(p.CreatedAt, now)})
				}
				DisplayTable([]string{"Subreddit", "Title", "Score", "Sentiment", "Posted"}, rows)

				agg := dataflows.Aggregate(posts)
				DisplayInfo(fmt.Sprintf("%s | avg %.3f | weighted %.3f | %d bullish, %d neutral, %d bearish",
					agg.Label, agg.AvgSentiment, agg.WeightedSentiment, agg.BullishCount, agg.NeutralCount, agg.BearishCount))
				return nil
			})
		},
	}
	cmd.Flags().BoolVar(&trending, "trending", false, "Show the most mentioned tickers instead")
	cmd.Flags().IntVar(&limit, "limit", 10, "Number of trending tickers")
	cmd.Flags().StringVar(&timeFilter, "time-filter", "", "hour, day, week, month, year or all")
	return cmd
}

// ErrorHint suggests a fix for the failures users can resolve themselves.
func ErrorHint(err error) string {
	switch {
	case errors.Is(err, backtest.ErrInsufficientHistory):
		return "at least two analyses with a decision are needed"
	case errors.Is(err, config.ErrMissingCredential):
		return "configure the key with `tradingagents settings set api_keys.<name> VALUE` or the environment"
	case reports.IsNotFound(err):
		return "run `tradingagents tickers` to list the available analyses"
	}
	return ""
}
