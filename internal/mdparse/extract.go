package mdparse

import (
	"regexp"
	"strings"
)

const (
	IndicatorMarker = "| Indicator"
	NewsTopicMarker = "| **Topic**"
)

var markdownLink = regexp.MustCompile(`\[([^\]]+)\]\(([^)]+)\)`)

// ExtractTableFields reads (name, value) pairs from every table opened by
// headerMarker or by a delimiter row. The first two non-empty cells of a row
// are its name and value. Later duplicates overwrite earlier ones.
func ExtractTableFields(text, headerMarker string) *Fields {
	g := Grammar{HeaderMarker: headerMarker, OpenOnDelimiter: true, MinCells: 2}
	fields := NewFields()
	for _, table := range g.Tables(text) {
		for _, row := range table.Rows {
			fields.Set(row[0], row[1])
		}
	}
	return fields
}

// ExtractIndicators reads the technical indicator tables of a market report.
func ExtractIndicators(text string) *Fields {
	return ExtractTableFields(text, IndicatorMarker)
}

type NewsSource struct {
	Topic      string `json:"topic"`
	Details    string `json:"details"`
	SourceName string `json:"source_name"`
	SourceURL  string `json:"source_url"`
}

// ExtractNewsSources reads the topic/details/source table of a news report.
// Rows whose third cell has no markdown link are skipped.
func ExtractNewsSources(text string) []NewsSource {
	g := Grammar{HeaderMarker: NewsTopicMarker, MinCells: 3}
	var sources []NewsSource
	for _, table := range g.Tables(text) {
		for _, row := range table.Rows {
			m := markdownLink.FindStringSubmatch(row[2])
			if m == nil {
				continue
			}
			sources = append(sources, NewsSource{
				Topic:      strings.TrimSpace(strings.ReplaceAll(row[0], "**", "")),
				Details:    row[1],
				SourceName: m[1],
				SourceURL:  m[2],
			})
		}
	}
	return sources
}

type metricPattern struct {
	name string
	re   *regexp.Regexp
}

const (
	amountValue  = `\$?([0-9.]+\s*[BMK]?illion)`
	decimalValue = `([0-9.]+)`
)

func labeled(label, value string) *regexp.Regexp {
	return regexp.MustCompile(`\*\*` + regexp.QuoteMeta(label) + `\*\*:\s*` + value)
}

var metricPatterns = []metricPattern{
	{"Market Capitalization", labeled("Market Capitalization", amountValue)},
	{"EBITDA", labeled("EBITDA", amountValue)},
	{"P/E", labeled("P/E", decimalValue)},
	{"Price-to-Earnings Ratio (P/E)", labeled("Price-to-Earnings Ratio (P/E)", decimalValue)},
	{"Dividend Yield", labeled("Dividend Yield", `([0-9.]+)%`)},
	{"EPS", labeled("EPS", `\$?([0-9.]+)`)},
	{"Total Revenue", labeled("Total Revenue", amountValue)},
	{"Net Income", labeled("Net Income", amountValue)},
	{"Operating Income", labeled("Operating Income", amountValue)},
	{"Debt to Equity Ratio", labeled("Debt to Equity Ratio", decimalValue)},
}

// ExtractFinancialMetrics matches the bold "**Label**: value" lines of a
// fundamentals report. Only metrics that match appear in the result.
func ExtractFinancialMetrics(text string) *Fields {
	metrics := NewFields()
	if text == "" {
		return metrics
	}
	for _, line := range strings.Split(text, "\n") {
		for _, p := range metricPatterns {
			if m := p.re.FindStringSubmatch(line); m != nil {
				metrics.Set(p.name, m[1])
			}
		}
	}
	return metrics
}
