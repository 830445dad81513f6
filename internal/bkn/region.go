package bkn

import "errors"

// ErrDiscarded marks a record that lacks a required reference and is left
// out of the network.
var ErrDiscarded = errors.New("record discarded")

// Region is the text a record parser works on, plus the metadata it inherits.
//
// Depth is the heading level of named sections inside the region: 3 for a
// region carved out of a "## <Kind>: <id>" block and 2 for a whole
// single-definition body.
type Region struct {
	ID     string
	Path   string
	Meta   Frontmatter
	Depth  int
	Single bool

	lines block
}

// NewRegion tokenizes body into a region.
func NewRegion(id, path, body string, depth int, meta Frontmatter, single bool) Region {
	return Region{
		ID:     id,
		Path:   path,
		Meta:   meta,
		Depth:  depth,
		Single: single,
		lines:  newBlock(body),
	}
}

// MultiRegion wraps a scanned record region of a network or fragment document.
func MultiRegion(doc Document, rr RecordRegion) Region {
	lines := rr.lines
	if lines == nil {
		lines = newBlock(rr.Body)
	}
	return Region{
		ID:    rr.ID,
		Path:  doc.Path,
		Meta:  doc.Frontmatter,
		Depth: 3,
		lines: lines,
	}
}

// SingleRegion builds the region of a single-definition document. When the
// body carries its own "## <Kind>: <id>" header, sections are read one level
// below it; otherwise the whole body is the region. The id comes from front
// matter, falling back to that header. ok is false when no id resolves.
func SingleRegion(doc Document, kind Kind) (Region, bool) {
	lines := block(Tokenize(doc.Content))
	r := Region{
		ID:     doc.Frontmatter.ID,
		Path:   doc.Path,
		Meta:   doc.Frontmatter,
		Depth:  2,
		Single: true,
		lines:  lines,
	}
	if rr, found := firstRecord(lines, kind); found {
		if r.ID == "" {
			r.ID = rr.ID
		}
		r.Depth = 3
		r.lines = rr.lines
	}
	return r, r.ID != ""
}

// section returns the named section of the region at its base depth.
func (r Region) section(name string) (block, bool) {
	return r.lines.section(name, r.Depth)
}

// sectionRows returns the rows of the first table in the named section.
func (r Region) sectionRows(name string) []Row {
	s, ok := r.section(name)
	if !ok {
		return nil
	}
	return s.firstTable()
}

// identity resolves the record name and description.
func (r Region) identity() (name, description string) {
	inName, inDesc, _ := inlineName(r.lines)
	if r.Single {
		return orDefault(orDefault(r.Meta.Name, inName), r.ID), orDefault(r.Meta.Description, inDesc)
	}
	return orDefault(inName, r.ID), inDesc
}
