package bkn

import (
	"errors"
	"strings"
)

// DefaultNetworkID names a network when no document supplies an identity.
const DefaultNetworkID = "default-network"

// Diagnostic kinds.
const (
	DiagDocument = "document"
	DiagEntity   = "entity"
	DiagRelation = "relation"
	DiagAction   = "action"
)

// Assemble builds a network from docs in the given order. Records are
// appended as found; duplicate ids are kept. Assemble is a pure function of
// its input.
func Assemble(docs []Document) Network {
	n := Network{
		Entities:    []Entity{},
		Relations:   []Relation{},
		Actions:     []Action{},
		Files:       make([]Document, 0, len(docs)),
		Diagnostics: []Diagnostic{},
	}

	for _, d := range docs {
		if d.Frontmatter.Type == TypeNetwork && d.Frontmatter.ID != "" {
			n.ID = d.Frontmatter.ID
			n.Name = orDefault(d.Frontmatter.Name, d.Frontmatter.ID)
			break
		}
	}

	for _, d := range docs {
		n.Files = append(n.Files, d)
		for _, w := range d.Warnings {
			n.diag(d.Path, DiagDocument, "", w)
		}
		switch t := d.Frontmatter.Type; {
		case t == TypeNetwork || t == TypeFragment:
			n.addMulti(d)
		case t.SingleDefinition():
			n.addSingle(d)
		}
	}

	if n.ID == "" {
		n.ID = DefaultNetworkID
		if len(docs) > 0 && docs[0].Frontmatter.Network != "" {
			n.ID = docs[0].Frontmatter.Network
		}
		n.Name = n.ID
	}
	return n
}

// ParseNetwork reads and assembles raw documents keyed by path, in the order
// of paths.
func ParseNetwork(paths []string, contents map[string]string) Network {
	docs := make([]Document, 0, len(paths))
	for _, p := range paths {
		docs = append(docs, ReadDocument(p, contents[p]))
	}
	return Assemble(docs)
}

func (n *Network) addMulti(d Document) {
	lines := block(Tokenize(d.Content))
	for _, rr := range recordRegions(lines, KindEntity) {
		n.Entities = append(n.Entities, ParseEntity(MultiRegion(d, rr)))
	}
	for _, rr := range recordRegions(lines, KindRelation) {
		rel, err := ParseRelation(MultiRegion(d, rr))
		if n.check(d.Path, DiagRelation, rr.ID, err) {
			n.Relations = append(n.Relations, rel)
		}
	}
	for _, rr := range recordRegions(lines, KindAction) {
		act, err := ParseAction(MultiRegion(d, rr))
		if n.check(d.Path, DiagAction, rr.ID, err) {
			n.Actions = append(n.Actions, act)
		}
	}
}

func (n *Network) addSingle(d Document) {
	kind := singleKind(d.Frontmatter.Type)
	r, ok := SingleRegion(d, kind)
	if !ok {
		n.diag(d.Path, strings.ToLower(string(kind)), "", "no id in front matter and no "+string(kind)+" header")
		return
	}
	switch kind {
	case KindEntity:
		n.Entities = append(n.Entities, ParseEntity(r))
	case KindRelation:
		rel, err := ParseRelation(r)
		if n.check(d.Path, DiagRelation, r.ID, err) {
			n.Relations = append(n.Relations, rel)
		}
	case KindAction:
		act, err := ParseAction(r)
		if n.check(d.Path, DiagAction, r.ID, err) {
			n.Actions = append(n.Actions, act)
		}
	}
}

// check records a diagnostic for a discarded record and reports whether the
// record is accepted.
func (n *Network) check(path, kind, id string, err error) bool {
	if err == nil {
		return true
	}
	reason := err.Error()
	if errors.Is(err, ErrDiscarded) {
		reason = strings.TrimPrefix(reason, ErrDiscarded.Error()+": ")
	}
	n.diag(path, kind, id, reason)
	return false
}

func (n *Network) diag(path, kind, id, reason string) {
	n.Diagnostics = append(n.Diagnostics, Diagnostic{Path: path, Kind: kind, ID: id, Reason: reason})
}

func singleKind(t DocType) Kind {
	switch t {
	case TypeRelation:
		return KindRelation
	case TypeAction:
		return KindAction
	default:
		return KindEntity
	}
}
