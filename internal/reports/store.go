package reports

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
)

// DefaultLanguage reports carry no language suffix in their file name.
const DefaultLanguage = "en"

// ErrInvalidPath marks a ticker, date or language that cannot name a file
// inside the results tree.
var ErrInvalidPath = errors.New("invalid path")

var languagePattern = regexp.MustCompile(`^[A-Za-z]{2,3}(-[A-Za-z0-9]{2,8})*$`)

// ValidateLanguage accepts locale tags such as en, pt-BR or zh-Hant-TW.
func ValidateLanguage(language string) error {
	if language == "" || languagePattern.MatchString(language) {
		return nil
	}
	return fmt.Errorf("%w: language %q", ErrInvalidPath, language)
}

type ReportType string

const (
	MarketReport         ReportType = "market_report"
	SentimentReport      ReportType = "sentiment_report"
	NewsReport           ReportType = "news_report"
	FundamentalsReport   ReportType = "fundamentals_report"
	InvestmentPlan       ReportType = "investment_plan"
	TraderInvestmentPlan ReportType = "trader_investment_plan"
	FinalTradeDecision   ReportType = "final_trade_decision"
)

// ReportTypes lists every report the analysis pipeline writes, in pipeline order.
var ReportTypes = []ReportType{
	MarketReport,
	SentimentReport,
	NewsReport,
	FundamentalsReport,
	InvestmentPlan,
	TraderInvestmentPlan,
	FinalTradeDecision,
}

var reportTitles = map[ReportType]string{
	MarketReport:         "Market Analysis",
	SentimentReport:      "Social Sentiment",
	NewsReport:           "News Analysis",
	FundamentalsReport:   "Fundamentals Analysis",
	InvestmentPlan:       "Research Team Decision",
	TraderInvestmentPlan: "Trading Team Plan",
	FinalTradeDecision:   "Final Trade Decision",
}

func (t ReportType) Title() string {
	if title, ok := reportTitles[t]; ok {
		return title
	}
	return string(t)
}

func ParseReportType(s string) (ReportType, error) {
	for _, t := range ReportTypes {
		if string(t) == s {
			return t, nil
		}
	}
	return "", fmt.Errorf("unknown report type %q", s)
}

// NotFoundError reports a missing results directory, ticker, date or report.
// It is an expected condition, not a failure of the store.
type NotFoundError struct {
	What string
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.What, e.Path)
}

func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}

// Metadata identifies one report file.
type Metadata struct {
	Ticker     string     `json:"ticker"`
	Date       string     `json:"date"`
	ReportType ReportType `json:"report_type"`
	Language   string     `json:"language"`
	Path       string     `json:"path"`
}

// Store reads the results tree written by the analysis pipeline:
//
//	<root>/<TICKER>/<DATE>/reports/<report_type>[_<language>].md
type Store struct {
	root string
}

func NewStore(root string) *Store {
	return &Store{root: root}
}

func (s *Store) Root() string {
	return s.root
}

// ListTickers returns every ticker directory sorted ascending.
func (s *Store) ListTickers() ([]string, error) {
	info, err := os.Stat(s.root)
	if err != nil || !info.IsDir() {
		return nil, &NotFoundError{What: "results directory", Path: s.root}
	}
	tickers, err := listDirs(s.root)
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	sort.Strings(tickers)
	return tickers, nil
}

// ListDates returns the analysis dates of ticker, newest first. A missing
// ticker yields an empty list.
func (s *Store) ListDates(ticker string) []string {
	dates, err := listDirs(filepath.Join(s.root, ticker))
	if err != nil {
		return []string{}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}

func (s *Store) LatestDate(ticker string) (string, bool) {
	dates := s.ListDates(ticker)
	if len(dates) == 0 {
		return "", false
	}
	return dates[0], true
}

// ReportsDir is the directory holding the reports of one analysis.
func (s *Store) ReportsDir(ticker, date string) string {
	return filepath.Join(s.root, ticker, date, "reports")
}

// ReportPath resolves the file name for a report without checking it exists.
func (s *Store) ReportPath(ticker, date string, reportType ReportType, language string) string {
	return filepath.Join(s.ReportsDir(ticker, date), ReportFileName(reportType, language))
}

// ReportFileName appends "_<language>" for every language except the default.
func ReportFileName(reportType ReportType, language string) string {
	suffix := ""
	if language != "" && language != DefaultLanguage {
		suffix = "_" + language
	}
	return string(reportType) + suffix + ".md"
}

// Lookup returns the metadata of an existing report. Names that would resolve
// outside the results tree are never found.
func (s *Store) Lookup(ticker, date string, reportType ReportType, language string) (Metadata, bool) {
	if validateReport(ticker, date, language) != nil {
		return Metadata{}, false
	}
	path := s.ReportPath(ticker, date, reportType, language)
	info, err := os.Stat(path)
	if err != nil || info.IsDir() {
		return Metadata{}, false
	}
	if language == "" {
		language = DefaultLanguage
	}
	return Metadata{Ticker: ticker, Date: date, ReportType: reportType, Language: language, Path: path}, true
}

// ReadReport returns the report text. A missing or unreadable file is reported
// with ok=false since it simply has not been generated yet.
func (s *Store) ReadReport(ticker, date string, reportType ReportType, language string) (string, bool) {
	meta, ok := s.Lookup(ticker, date, reportType, language)
	if !ok {
		return "", false
	}
	data, err := os.ReadFile(meta.Path)
	if err != nil {
		log.Printf("[reports] read %s: %v", meta.Path, err)
		return "", false
	}
	return string(data), true
}

// AllReports returns every non-empty report of an analysis keyed by type.
func (s *Store) AllReports(ticker, date, language string) map[ReportType]string {
	out := make(map[ReportType]string)
	for _, t := range ReportTypes {
		if content, ok := s.ReadReport(ticker, date, t, language); ok && content != "" {
			out[t] = content
		}
	}
	return out
}

// DeleteAnalysis removes the whole date directory of an analysis.
func (s *Store) DeleteAnalysis(ticker, date string) error {
	if err := validSegment(ticker); err != nil {
		return err
	}
	if err := validSegment(date); err != nil {
		return err
	}
	dir := filepath.Join(s.root, ticker, date)
	if _, err := os.Stat(dir); err != nil {
		return &NotFoundError{What: "analysis", Path: dir}
	}
	if err := os.RemoveAll(dir); err != nil {
		return fmt.Errorf("delete analysis %s/%s: %w", ticker, date, err)
	}
	return nil
}

// DeleteReport removes a single report file.
func (s *Store) DeleteReport(ticker, date string, reportType ReportType, language string) error {
	if err := validateReport(ticker, date, language); err != nil {
		return err
	}
	meta, ok := s.Lookup(ticker, date, reportType, language)
	if !ok {
		return &NotFoundError{What: "report", Path: s.ReportPath(ticker, date, reportType, language)}
	}
	if err := os.Remove(meta.Path); err != nil {
		return fmt.Errorf("delete report %s: %w", meta.Path, err)
	}
	return nil
}

func validateReport(ticker, date, language string) error {
	if err := validSegment(ticker); err != nil {
		return err
	}
	if err := validSegment(date); err != nil {
		return err
	}
	return ValidateLanguage(language)
}

func validSegment(s string) error {
	if s == "" || s == "." || s == ".." || strings.ContainsAny(s, `/\`) {
		return fmt.Errorf("%w: segment %q", ErrInvalidPath, s)
	}
	return nil
}

func listDirs(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if !e.IsDir() || strings.HasPrefix(e.Name(), ".") {
			continue
		}
		names = append(names, e.Name())
	}
	return names, nil
}
