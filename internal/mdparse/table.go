// Package mdparse extracts structured fields from the markdown reports written
// by the analysis pipeline. Every function is pure and tolerant: malformed or
// empty input yields an empty result, never an error.
package mdparse

import "strings"

const cellDelimiter = "|"

// Grammar describes how tables are recognised in a report.
//
// A table opens at a line containing HeaderMarker (or, with OpenOnDelimiter, at
// any delimiter row such as "|---|---|"). The opening line is not data. The
// table then runs while lines start with "|" and closes at the first blank or
// non-row line. Delimiter rows inside a table are skipped.
type Grammar struct {
	HeaderMarker    string
	OpenOnDelimiter bool
	// MinCells is the minimum number of non-empty cells a data row needs.
	MinCells int
}

// Table is one parsed block of data rows. Header is the opening line's cells.
type Table struct {
	Header []string
	Rows   [][]string
}

// Tables scans text and returns every table the grammar recognises.
func (g Grammar) Tables(text string) []Table {
	if text == "" {
		return nil
	}

	var (
		tables  []Table
		current *Table
	)
	closeTable := func() {
		if current != nil {
			tables = append(tables, *current)
			current = nil
		}
	}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimRight(raw, "\r")

		if g.isHeader(line) {
			closeTable()
			current = &Table{Header: SplitRow(line)}
			continue
		}
		if current == nil {
			if g.OpenOnDelimiter && IsDelimiterRow(line) {
				current = &Table{}
			}
			continue
		}
		if !IsRow(line) {
			closeTable()
			continue
		}
		if IsDelimiterRow(line) {
			continue
		}
		cells := nonEmpty(SplitRow(line))
		if len(cells) < g.minCells() {
			continue
		}
		current.Rows = append(current.Rows, cells)
	}
	closeTable()
	return tables
}

func (g Grammar) isHeader(line string) bool {
	return g.HeaderMarker != "" && strings.Contains(line, g.HeaderMarker)
}

func (g Grammar) minCells() int {
	if g.MinCells < 1 {
		return 1
	}
	return g.MinCells
}

// IsRow reports whether line is a table row: non-blank and starting with "|".
func IsRow(line string) bool {
	if strings.TrimSpace(line) == "" {
		return false
	}
	return strings.HasPrefix(line, cellDelimiter)
}

// IsDelimiterRow reports whether line separates a header from data, e.g. "|---|:--:|".
func IsDelimiterRow(line string) bool {
	trimmed := strings.TrimSpace(line)
	if !strings.HasPrefix(trimmed, cellDelimiter) || !strings.Contains(trimmed, "--") {
		return false
	}
	for _, r := range trimmed {
		switch r {
		case '|', '-', ':', ' ', '\t':
		default:
			return false
		}
	}
	return true
}

// SplitRow splits a row into trimmed cells, dropping the outer delimiters.
func SplitRow(line string) []string {
	trimmed := strings.TrimSpace(line)
	trimmed = strings.TrimPrefix(trimmed, cellDelimiter)
	trimmed = strings.TrimSuffix(trimmed, cellDelimiter)
	if trimmed == "" {
		return nil
	}
	parts := strings.Split(trimmed, cellDelimiter)
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func nonEmpty(cells []string) []string {
	out := cells[:0:0]
	for _, c := range cells {
		if c != "" {
			out = append(out, c)
		}
	}
	return out
}
