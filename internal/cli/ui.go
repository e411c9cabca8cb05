package cli

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/brandonnmartinsj/TradingAgents/config"
	"github.com/brandonnmartinsj/TradingAgents/internal/mdparse"
)

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#7C3AED")).
			Padding(0, 1)

	headerCellStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#3B82F6")).
			Padding(0, 1)

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
)

// DisplayTitle prints a section title.
func DisplayTitle(title string) {
	fmt.Println(titleStyle.Render(title))
}

// DisplayError shows an error message on stderr.
func DisplayError(err error) {
	fmt.Fprintln(os.Stderr, errorStyle.Render(fmt.Sprintf("❌ Error: %s", err.Error())))
}

func DisplayWarning(message string) {
	fmt.Println(warningStyle.Render(fmt.Sprintf("⚠️  %s", message)))
}

func DisplayInfo(message string) {
	fmt.Println(infoStyle.Render(fmt.Sprintf("ℹ️  %s", message)))
}

func DisplaySuccess(message string) {
	fmt.Println(successStyle.Render(fmt.Sprintf("✅ %s", message)))
}

// DisplayWarnings prints each warning of a partially degraded result.
func DisplayWarnings(warnings []string) {
	for _, w := range warnings {
		DisplayWarning(w)
	}
}

// RenderTable draws rows under headers with a rounded border.
func RenderTable(headers []string, rows [][]string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCellStyle
			}
			return cellStyle
		})
	return t.Render()
}

func DisplayTable(headers []string, rows [][]string) {
	if len(rows) == 0 {
		DisplayInfo("Nothing to show")
		return
	}
	fmt.Println(RenderTable(headers, rows))
}

// DecisionStyle colours a decision with the dashboard palette.
func DecisionStyle(d mdparse.Decision, colors config.Colors) string {
	color := ""
	switch d {
	case mdparse.DecisionBuy:
		color = colors.Buy
	case mdparse.DecisionHold:
		color = colors.Hold
	case mdparse.DecisionSell:
		color = colors.Sell
	}
	if color == "" {
		return d.String()
	}
	return lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color(color)).Render(d.String())
}

// truncateString shortens s to maxLen runes.
func truncateString(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}
