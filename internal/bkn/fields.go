package bkn

import (
	"regexp"
	"strings"
)

// Lenient matching rules used by the record parsers.

var (
	recordHeaderRe = regexp.MustCompile(`^(Entity|Relation|Action)\s*[:：]\s*([A-Za-z0-9_][A-Za-z0-9_.\-]*)`)
	inlineNameRe   = regexp.MustCompile(`\*\*([^*]+)\*\*\s*-\s*(.+)`)
	keysQuoteRe    = regexp.MustCompile("^>\\s*\\*\\*主键\\*\\*\\s*[:：]\\s*`([^`]+)`\\s*\\|\\s*\\*\\*显示属性\\*\\*\\s*[:：]\\s*`([^`]+)`")
	displayQuoteRe = regexp.MustCompile("^>\\s*\\*\\*显示属性\\*\\*\\s*[:：]\\s*`([^`]+)`")
	sourceFieldRe  = regexp.MustCompile(`^([^(（]*)(?:[(（]([^)）]*)[)）])?`)
)

// recordHeader parses a heading title of the form "Entity: <id>".
func recordHeader(title string) (Kind, string, bool) {
	m := recordHeaderRe.FindStringSubmatch(strings.TrimSpace(title))
	if m == nil {
		return "", "", false
	}
	return Kind(m[1]), m[2], true
}

// truthy interprets table and front-matter flags. ok is false when s is not
// a recognized flag value.
func truthy(s string) (value, ok bool) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "yes", "y", "true", "是", "✓":
		return true, true
	case "no", "n", "false", "否", "":
		return false, true
	}
	return false, false
}

func flag(s string) bool {
	v, _ := truthy(s)
	return v
}

// sameTitle compares section titles ignoring width variants, case and a
// trailing colon.
func sameTitle(a, b string) bool {
	norm := func(s string) string {
		return strings.TrimRight(foldHeader(s), ":")
	}
	return norm(a) == norm(b)
}

// inlineName finds the first "**Name** - description" line.
func inlineName(b block) (name, description string, ok bool) {
	for _, l := range b.prose() {
		if l.Kind == LineHeading || l.Kind == LineQuote {
			continue
		}
		if m := inlineNameRe.FindStringSubmatch(l.Text); m != nil {
			return strings.TrimSpace(m[1]), strings.TrimSpace(m[2]), true
		}
	}
	return "", "", false
}

// inlineField returns the value of the first "**label**: value" line.
func inlineField(b block, label string) (string, bool) {
	marker := "**" + label + "**"
	for _, l := range b.prose() {
		i := strings.Index(l.Text, marker)
		if i < 0 {
			continue
		}
		rest := strings.TrimSpace(l.Text[i+len(marker):])
		switch {
		case strings.HasPrefix(rest, ":"):
			rest = rest[1:]
		case strings.HasPrefix(rest, "："):
			rest = rest[len("："):]
		default:
			continue
		}
		return strings.TrimSpace(rest), true
	}
	return "", false
}

// firstWord returns the leading identifier of s, without backticks.
func firstWord(s string) string {
	s = strings.Trim(strings.TrimSpace(s), "`")
	if i := strings.IndexFunc(s, func(r rune) bool {
		return r == ' ' || r == '\t' || r == '(' || r == '（' || r == '`'
	}); i >= 0 {
		s = s[:i]
	}
	return s
}

// splitSource splits "model_id (kind)" into its two parts.
func splitSource(s string) (source, sourceType string) {
	m := sourceFieldRe.FindStringSubmatch(s)
	if m == nil {
		return strings.TrimSpace(s), ""
	}
	return strings.TrimSpace(m[1]), strings.TrimSpace(m[2])
}

// orDefault returns s, or def when s is empty.
func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}
