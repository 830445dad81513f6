package bkn

import "strings"

// RecordRegion is the body of one "## <Kind>: <id>" block.
type RecordRegion struct {
	Kind Kind
	ID   string
	Body string
	// Line is the zero-based line of the record header in the scanned content.
	Line int

	lines block
}

// Records returns the regions of every record of kind in content, in order.
// A region ends at the next record header of any kind, at the next level-1
// heading or at the end of content.
func Records(content string, kind Kind) []RecordRegion {
	return recordRegions(Tokenize(content), kind)
}

func recordRegions(lines block, kind Kind) []RecordRegion {
	var out []RecordRegion
	for i := 0; i < len(lines); i++ {
		l := lines[i]
		if l.Kind != LineHeading || l.Level != 2 {
			continue
		}
		k, id, ok := recordHeader(l.Title)
		if !ok || k != kind {
			continue
		}
		end := len(lines)
		for j := i + 1; j < len(lines); j++ {
			if isRecordBoundary(lines[j]) {
				end = j
				break
			}
		}
		body := trimBlank(lines[i+1 : end])
		out = append(out, RecordRegion{
			Kind:  kind,
			ID:    id,
			Body:  strings.TrimSpace(body.text()),
			Line:  i,
			lines: body,
		})
	}
	return out
}

func isRecordBoundary(l Line) bool {
	if l.Kind != LineHeading {
		return false
	}
	if l.Level == 1 {
		return true
	}
	if l.Level != 2 {
		return false
	}
	_, _, ok := recordHeader(l.Title)
	return ok
}

// firstRecord returns the first record header of kind in lines.
func firstRecord(lines block, kind Kind) (RecordRegion, bool) {
	regions := recordRegions(lines, kind)
	if len(regions) == 0 {
		return RecordRegion{}, false
	}
	return regions[0], true
}

func trimBlank(b block) block {
	for len(b) > 0 && b[0].Kind == LineBlank {
		b = b[1:]
	}
	for len(b) > 0 && b[len(b)-1].Kind == LineBlank {
		b = b[:len(b)-1]
	}
	return b
}
