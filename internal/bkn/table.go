package bkn

import (
	"iter"
	"maps"
	"slices"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Row maps column headers, verbatim, to trimmed cell text.
type Row map[string]string

// Get returns the first non-empty cell among keys. Keys are compared exactly
// first and then after NFKC folding, so full-width header variants match.
func (r Row) Get(keys ...string) string {
	for _, k := range keys {
		if v := r[k]; v != "" {
			return v
		}
	}
	headers := slices.Sorted(maps.Keys(r))
	for _, k := range keys {
		want := foldHeader(k)
		for _, h := range headers {
			if v := r[h]; v != "" && foldHeader(h) == want {
				return v
			}
		}
	}
	return ""
}

// Has reports whether the row has a column named by any of keys.
func (r Row) Has(keys ...string) bool {
	for _, k := range keys {
		if _, ok := r[k]; ok {
			return true
		}
	}
	return false
}

// Containing returns the cell of the first header, in sorted order, that
// contains sub.
func (r Row) Containing(sub string) (string, bool) {
	for _, h := range slices.Sorted(maps.Keys(r)) {
		if strings.Contains(h, sub) {
			return r[h], true
		}
	}
	return "", false
}

func foldHeader(s string) string {
	return strings.ToLower(strings.TrimSpace(norm.NFKC.String(s)))
}

// Rows lazily yields the data rows of the first table in text.
//
// The header is the first line with a pipe that is not a divider; a header
// without usable cells yields nothing. The divider is the first divider line
// after the header, or the line right after it when there is none. Every
// later non-blank line, including one that looks like a divider, is a
// candidate row and is kept only when its cell count equals
// the header count.
func Rows(text string) iter.Seq[Row] {
	return func(yield func(Row) bool) {
		headers, rest := tableHeaders(text)
		if len(headers) == 0 {
			return
		}
		for _, line := range rest {
			cells := splitCells(line)
			if len(cells) != len(headers) {
				continue
			}
			row := make(Row, len(headers))
			for i, h := range headers {
				row[h] = cells[i]
			}
			if !yield(row) {
				return
			}
		}
	}
}

// Table collects Rows into a slice.
func Table(text string) []Row {
	var out []Row
	for r := range Rows(text) {
		out = append(out, r)
	}
	return out
}

// tableHeaders locates the header line and returns the header names plus the
// candidate data lines that follow the divider.
func tableHeaders(text string) ([]string, []string) {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	header := -1
	for i, l := range lines {
		if strings.Contains(l, "|") && !isDivider(strings.TrimSpace(l)) {
			header = i
			break
		}
	}
	if header < 0 {
		return nil, nil
	}

	var headers []string
	for _, cell := range strings.Split(lines[header], "|") {
		cell = strings.TrimSpace(cell)
		if cell != "" && strings.Trim(cell, "-:") != "" {
			headers = append(headers, cell)
		}
	}
	if len(headers) == 0 {
		return nil, nil
	}

	divider := header + 1
	for i := header + 1; i < len(lines); i++ {
		if isDivider(strings.TrimSpace(lines[i])) {
			divider = i
			break
		}
	}
	if divider+1 >= len(lines) {
		return headers, nil
	}
	return headers, lines[divider+1:]
}

// splitCells splits a row on pipes and drops the artifacts before the first
// and after the last pipe.
func splitCells(line string) []string {
	parts := strings.Split(line, "|")
	if len(parts) < 3 {
		return nil
	}
	parts = parts[1 : len(parts)-1]
	for i, p := range parts {
		parts[i] = strings.TrimSpace(p)
	}
	return parts
}
