package translation

import (
	"context"
	"fmt"
	"log"
	"os"
	"sort"

	"github.com/brandonnmartinsj/TradingAgents/internal/reports"
)

// ReportTranslator translates analyses stored in a results tree.
type ReportTranslator struct {
	translator *Translator
	store      *reports.Store

	// Progress, when set, is called after each ticker of TranslateAllTickers.
	Progress func(ticker string, done, total int)
}

func NewReportTranslator(t *Translator, store *reports.Store) *ReportTranslator {
	return &ReportTranslator{translator: t, store: store}
}

// TranslateTickerDate translates the reports of one analysis. A missing
// reports directory translates nothing.
func (rt *ReportTranslator) TranslateTickerDate(ctx context.Context, ticker, date string) (int, error) {
	dir := rt.store.ReportsDir(ticker, date)
	if info, err := os.Stat(dir); err != nil || !info.IsDir() {
		log.Printf("[translation] no reports for %s on %s", ticker, date)
		return 0, nil
	}
	written, err := rt.translator.TranslateDirectory(ctx, dir)
	log.Printf("[translation] %s %s: translated %d file(s)", ticker, date, len(written))
	return len(written), err
}

// TranslateTickerAllDates translates every analysis of ticker, oldest first.
func (rt *ReportTranslator) TranslateTickerAllDates(ctx context.Context, ticker string) (int, error) {
	dates := rt.store.ListDates(ticker)
	if len(dates) == 0 {
		log.Printf("[translation] no dates found for %s", ticker)
		return 0, nil
	}
	sort.Strings(dates)

	total := 0
	for _, date := range dates {
		n, err := rt.TranslateTickerDate(ctx, ticker, date)
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

// TranslateAllTickers translates every analysis in the results tree.
func (rt *ReportTranslator) TranslateAllTickers(ctx context.Context) (int, error) {
	tickers, err := rt.store.ListTickers()
	if err != nil {
		return 0, err
	}
	if len(tickers) == 0 {
		return 0, fmt.Errorf("no tickers found in %s", rt.store.Root())
	}

	total := 0
	for i, ticker := range tickers {
		n, err := rt.TranslateTickerAllDates(ctx, ticker)
		total += n
		if err != nil {
			return total, err
		}
		if rt.Progress != nil {
			rt.Progress(ticker, i+1, len(tickers))
		}
	}
	return total, nil
}
