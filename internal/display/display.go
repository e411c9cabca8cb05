package display

import (
	"fmt"
	"io"
	"strings"

	"github.com/brandonnmartinsj/TradingAgents/internal/mdparse"
	"github.com/brandonnmartinsj/TradingAgents/internal/reports"
)

const wrapWidth = 75

var sectionEmoji = map[reports.ReportType]string{
	reports.MarketReport:         "📈",
	reports.SentimentReport:      "💬",
	reports.NewsReport:           "📰",
	reports.FundamentalsReport:   "🏛️",
	reports.InvestmentPlan:       "🔬",
	reports.TraderInvestmentPlan: "💼",
	reports.FinalTradeDecision:   "🎯",
}

// ResultsDisplay prints one analysis of the results tree.
type ResultsDisplay struct {
	w      io.Writer
	ticker string
	date   string
	// Preview truncates each section to this many characters; 0 prints everything.
	Preview int
}

func NewResultsDisplay(w io.Writer, ticker, date string) *ResultsDisplay {
	return &ResultsDisplay{w: w, ticker: ticker, date: date}
}

// DisplayAnalysis shows the decision, the structured fields and every report present.
func (d *ResultsDisplay) DisplayAnalysis(all map[reports.ReportType]string) {
	d.showHeader()

	decision := mdparse.ExtractDecision(all[reports.FinalTradeDecision])
	fmt.Fprintf(d.w, "🎯 FINAL RECOMMENDATION: %s %s\n\n", DecisionEmoji(decision), decision)

	if indicators := mdparse.ExtractIndicators(all[reports.MarketReport]); indicators.Len() > 0 {
		fmt.Fprintln(d.w, "📊 INDICATORS")
		for _, f := range indicators.Entries() {
			fmt.Fprintf(d.w, "   %-28s %s\n", f.Name, f.Value)
		}
		fmt.Fprintln(d.w)
	}
	if metrics := mdparse.ExtractFinancialMetrics(all[reports.FundamentalsReport]); metrics.Len() > 0 {
		fmt.Fprintln(d.w, "🏛️ FINANCIAL METRICS")
		for _, f := range metrics.Entries() {
			fmt.Fprintf(d.w, "   %-28s %s\n", f.Name, f.Value)
		}
		fmt.Fprintln(d.w)
	}
	if sources := mdparse.ExtractNewsSources(all[reports.NewsReport]); len(sources) > 0 {
		fmt.Fprintln(d.w, "📰 NEWS SOURCES")
		for _, s := range sources {
			fmt.Fprintf(d.w, "   • %s: %s (%s)\n", s.Topic, s.SourceName, s.SourceURL)
		}
		fmt.Fprintln(d.w)
	}

	for _, t := range reports.ReportTypes {
		content, ok := all[t]
		if !ok {
			continue
		}
		d.showSection(t.Title(), content, sectionEmoji[t])
	}
	d.showFooter()
}

func (d *ResultsDisplay) showHeader() {
	fmt.Fprintln(d.w)
	fmt.Fprintln(d.w, strings.Repeat("═", wrapWidth))
	fmt.Fprintf(d.w, "📊 ANALYSIS RESULTS FOR %s | 📅 %s\n", d.ticker, d.date)
	fmt.Fprintln(d.w, strings.Repeat("═", wrapWidth))
	fmt.Fprintln(d.w)
}

func (d *ResultsDisplay) showSection(title, content, emoji string) {
	fmt.Fprintf(d.w, "%s %s:\n", emoji, title)
	if strings.TrimSpace(content) == "" {
		fmt.Fprintln(d.w, "   (No data available)")
		fmt.Fprintln(d.w)
		return
	}
	truncated := false
	if d.Preview > 0 && len(content) > d.Preview {
		content = content[:d.Preview]
		truncated = true
	}
	for _, line := range strings.Split(content, "\n") {
		for _, wrapped := range WrapText(line, "   ", wrapWidth) {
			fmt.Fprintln(d.w, wrapped)
		}
	}
	if truncated {
		fmt.Fprintln(d.w, "   ...")
	}
	fmt.Fprintln(d.w)
}

func (d *ResultsDisplay) showFooter() {
	fmt.Fprintln(d.w, strings.Repeat("═", wrapWidth))
	fmt.Fprintln(d.w, "⚠️  This analysis is for informational purposes only and should not be")
	fmt.Fprintln(d.w, "   considered as financial advice. Always do your own research.")
	fmt.Fprintln(d.w, strings.Repeat("═", wrapWidth))
}

// WrapText word-wraps text to width, prefixing every line with indent.
func WrapText(text, indent string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	var lines []string
	line := indent + words[0]
	for _, word := range words[1:] {
		if len(line)+1+len(word) > width {
			lines = append(lines, line)
			line = indent + word
			continue
		}
		line += " " + word
	}
	return append(lines, line)
}

func DecisionEmoji(d mdparse.Decision) string {
	switch d {
	case mdparse.DecisionBuy:
		return "🟢"
	case mdparse.DecisionSell:
		return "🔴"
	case mdparse.DecisionHold:
		return "🟡"
	}
	return "⏳"
}

// DisplayProgress redraws a one-line progress bar.
func DisplayProgress(w io.Writer, phase string, progress, total int) {
	if total <= 0 {
		return
	}
	barWidth := 40
	filled := (progress * barWidth) / total

	bar := strings.Repeat("█", filled) + strings.Repeat("░", barWidth-filled)
	fmt.Fprintf(w, "\r🔄 %s [%s] %d%% (%d/%d)", phase, bar, progress*100/total, progress, total)
	if progress >= total {
		fmt.Fprintln(w, " ✅")
	}
}
