package bkn

import (
	"strings"
	"unicode"
)

// LineKind classifies one line of a document body.
type LineKind int

const (
	LineBlank LineKind = iota
	LineText
	LineHeading
	LineTableRow
	LineDivider
	LineQuote
	LineListItem
	LineFence
	LineCode
)

// Line is a classified body line. Headings carry their level and title;
// fences carry the info string of the opening fence.
type Line struct {
	Kind  LineKind
	Level int
	Title string
	Lang  string
	Text  string
}

// Tokenize walks content once and classifies every line. Lines between an
// opening and closing fence are LineCode, so markup inside code blocks is
// never mistaken for structure.
func Tokenize(content string) []Line {
	raw := strings.Split(strings.ReplaceAll(content, "\r\n", "\n"), "\n")
	out := make([]Line, 0, len(raw))
	fence := ""
	for _, text := range raw {
		trimmed := strings.TrimSpace(text)
		if fence != "" {
			if strings.HasPrefix(trimmed, fence) && strings.Trim(trimmed, fence[:1]) == "" {
				out = append(out, Line{Kind: LineFence, Text: text})
				fence = ""
				continue
			}
			out = append(out, Line{Kind: LineCode, Text: text})
			continue
		}
		if marker := fenceMarker(trimmed); marker != "" {
			fence = marker
			lang := strings.TrimSpace(strings.TrimLeft(trimmed, marker[:1]))
			if i := strings.IndexFunc(lang, unicode.IsSpace); i >= 0 {
				lang = lang[:i]
			}
			out = append(out, Line{Kind: LineFence, Lang: strings.ToLower(lang), Text: text})
			continue
		}
		out = append(out, classify(text, trimmed))
	}
	return out
}

func fenceMarker(trimmed string) string {
	for _, c := range []string{"```", "~~~"} {
		if strings.HasPrefix(trimmed, c) {
			n := len(trimmed) - len(strings.TrimLeft(trimmed, c[:1]))
			return strings.Repeat(c[:1], n)
		}
	}
	return ""
}

func classify(text, trimmed string) Line {
	switch {
	case trimmed == "":
		return Line{Kind: LineBlank, Text: text}
	case trimmed[0] == '#':
		level := len(trimmed) - len(strings.TrimLeft(trimmed, "#"))
		rest := trimmed[level:]
		if level <= 6 && (rest == "" || rest[0] == ' ' || rest[0] == '\t') {
			return Line{Kind: LineHeading, Level: level, Title: strings.TrimSpace(rest), Text: text}
		}
	case trimmed[0] == '>':
		return Line{Kind: LineQuote, Text: text}
	case isDivider(trimmed):
		return Line{Kind: LineDivider, Text: text}
	case strings.Contains(trimmed, "|"):
		return Line{Kind: LineTableRow, Text: text}
	case isListItem(trimmed):
		return Line{Kind: LineListItem, Text: text}
	}
	return Line{Kind: LineText, Text: text}
}

// isDivider reports whether s consists only of pipes, alignment markers and
// whitespace, with at least one pipe.
func isDivider(s string) bool {
	if !strings.Contains(s, "|") {
		return false
	}
	for _, r := range s {
		if r != '|' && r != '-' && r != ':' && !unicode.IsSpace(r) {
			return false
		}
	}
	return true
}

func isListItem(s string) bool {
	if strings.HasPrefix(s, "- ") || strings.HasPrefix(s, "* ") || strings.HasPrefix(s, "+ ") {
		return true
	}
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	return i > 0 && i+1 < len(s) && (s[i] == '.' || s[i] == ')') && s[i+1] == ' '
}

// listItemText strips the bullet or ordinal marker from a list item.
func listItemText(s string) string {
	s = strings.TrimSpace(s)
	if len(s) > 1 && strings.ContainsRune("-*+", rune(s[0])) && s[1] == ' ' {
		return strings.TrimSpace(s[2:])
	}
	i := strings.IndexAny(s, ".)")
	if i > 0 {
		return strings.TrimSpace(s[i+1:])
	}
	return s
}

// block is a contiguous run of tokenized lines.
type block []Line

func newBlock(text string) block {
	return block(Tokenize(text))
}

func (b block) text() string {
	parts := make([]string, len(b))
	for i, l := range b {
		parts[i] = l.Text
	}
	return strings.Join(parts, "\n")
}

// body returns the block without a leading heading line, trimmed.
func (b block) body() string {
	if len(b) > 0 && b[0].Kind == LineHeading {
		b = b[1:]
	}
	return strings.TrimSpace(b.text())
}

// section finds the first heading titled name at depth, falling back to any
// depth of two or more, and returns the heading and its lines up to the next
// heading of the same or a higher level.
func (b block) section(name string, depth int) (block, bool) {
	at := -1
	for i, l := range b {
		if l.Kind == LineHeading && l.Level == depth && sameTitle(l.Title, name) {
			at = i
			break
		}
	}
	if at < 0 {
		for i, l := range b {
			if l.Kind == LineHeading && l.Level >= 2 && sameTitle(l.Title, name) {
				at = i
				break
			}
		}
	}
	if at < 0 {
		return nil, false
	}
	level := b[at].Level
	end := len(b)
	for i := at + 1; i < len(b); i++ {
		if b[i].Kind == LineHeading && b[i].Level <= level {
			end = i
			break
		}
	}
	return b[at:end], true
}

// subsections splits the block at headings of exactly depth. Text before the
// first such heading is dropped.
func (b block) subsections(depth int) []block {
	var out []block
	start := -1
	for i, l := range b {
		if l.Kind == LineHeading && l.Level <= depth && start >= 0 {
			out = append(out, b[start:i])
			start = -1
		}
		if l.Kind == LineHeading && l.Level == depth {
			start = i
		}
	}
	if start >= 0 {
		out = append(out, b[start:])
	}
	return out
}

// tables returns every run of consecutive table lines. Blank lines do not
// end a run.
func (b block) tables() []block {
	var out []block
	start := -1
	for i, l := range b {
		isRow := l.Kind == LineTableRow || l.Kind == LineDivider
		switch {
		case isRow && start < 0:
			start = i
		case !isRow && l.Kind != LineBlank && start >= 0:
			out = append(out, b[start:i])
			start = -1
		}
	}
	if start >= 0 {
		out = append(out, b[start:])
	}
	return out
}

// firstTable returns the rows of the first table in the block.
func (b block) firstTable() []Row {
	for _, t := range b.tables() {
		if rows := Table(t.text()); len(rows) > 0 {
			return rows
		}
	}
	return nil
}

// tableWith returns the rows of the first table whose header satisfies match.
func (b block) tableWith(match func(headers []string) bool) []Row {
	for _, t := range b.tables() {
		headers, _ := tableHeaders(t.text())
		if len(headers) > 0 && match(headers) {
			return Table(t.text())
		}
	}
	return nil
}

// fence returns the content of the first fenced block whose info string is
// one of langs.
func (b block) fence(langs ...string) (string, bool) {
	for i, l := range b {
		if l.Kind != LineFence || !oneOf(l.Lang, langs) {
			continue
		}
		var parts []string
		for _, c := range b[i+1:] {
			if c.Kind != LineCode {
				break
			}
			parts = append(parts, c.Text)
		}
		return strings.Join(parts, "\n"), true
	}
	return "", false
}

// prose returns the lines that are not inside code blocks.
func (b block) prose() block {
	out := make(block, 0, len(b))
	for _, l := range b {
		if l.Kind != LineCode && l.Kind != LineFence {
			out = append(out, l)
		}
	}
	return out
}

func oneOf(s string, set []string) bool {
	for _, v := range set {
		if s == v {
			return true
		}
	}
	return false
}
