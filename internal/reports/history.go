package reports

import (
	"sort"

	"github.com/brandonnmartinsj/TradingAgents/internal/mdparse"
)

type DecisionRecord struct {
	Date     string           `json:"date"`
	Ticker   string           `json:"ticker"`
	Decision mdparse.Decision `json:"decision"`
}

type TickerSummary struct {
	Ticker         string           `json:"ticker"`
	TotalAnalyses  int              `json:"total_analyses"`
	LatestDate     string           `json:"latest_date,omitempty"`
	LatestDecision mdparse.Decision `json:"latest_decision"`
	AllDates       []string         `json:"all_dates"`
}

// History returns one record per analysis date, newest first. Dates whose
// final decision report is missing or untagged keep a DecisionNone record.
func (s *Store) History(ticker string) []DecisionRecord {
	dates := s.ListDates(ticker)
	history := make([]DecisionRecord, 0, len(dates))
	for _, date := range dates {
		history = append(history, DecisionRecord{
			Date:     date,
			Ticker:   ticker,
			Decision: s.Decision(ticker, date),
		})
	}
	return history
}

// Decision extracts the decision of a single analysis.
func (s *Store) Decision(ticker, date string) mdparse.Decision {
	content, _ := s.ReadReport(ticker, date, FinalTradeDecision, DefaultLanguage)
	return mdparse.ExtractDecision(content)
}

func (s *Store) Summary(ticker string) TickerSummary {
	dates := s.ListDates(ticker)
	summary := TickerSummary{
		Ticker:        ticker,
		TotalAnalyses: len(dates),
		AllDates:      dates,
	}
	if len(dates) == 0 {
		return summary
	}
	summary.LatestDate = dates[0]
	summary.LatestDecision = s.Decision(ticker, dates[0])
	return summary
}

// Usable drops records without a decision and returns the rest oldest first.
func Usable(history []DecisionRecord) []DecisionRecord {
	out := make([]DecisionRecord, 0, len(history))
	for _, rec := range history {
		if rec.Decision.Valid() {
			out = append(out, rec)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// DecisionCounts tallies BUY/HOLD/SELL over a history.
func DecisionCounts(history []DecisionRecord) map[mdparse.Decision]int {
	counts := map[mdparse.Decision]int{
		mdparse.DecisionBuy:  0,
		mdparse.DecisionHold: 0,
		mdparse.DecisionSell: 0,
	}
	for _, rec := range history {
		if rec.Decision.Valid() {
			counts[rec.Decision]++
		}
	}
	return counts
}
