package bkn

import (
	"strconv"
	"strings"

	"github.com/adrg/frontmatter"
	"gopkg.in/yaml.v3"
)

// yamlFormat delimits front matter with "---" lines and decodes it with yaml.v3.
var yamlFormat = frontmatter.NewFormat("---", "---", yaml.Unmarshal)

// rawFrontmatter keeps every field as a node so that a value of the wrong
// shape never fails the whole block.
type rawFrontmatter struct {
	Type             yaml.Node `yaml:"type"`
	ID               yaml.Node `yaml:"id"`
	Name             yaml.Node `yaml:"name"`
	Version          yaml.Node `yaml:"version"`
	Network          yaml.Node `yaml:"network"`
	Namespace        yaml.Node `yaml:"namespace"`
	Owner            yaml.Node `yaml:"owner"`
	Tags             yaml.Node `yaml:"tags"`
	Description      yaml.Node `yaml:"description"`
	Includes         yaml.Node `yaml:"includes"`
	ActionType       yaml.Node `yaml:"action_type"`
	Enabled          yaml.Node `yaml:"enabled"`
	RiskLevel        yaml.Node `yaml:"risk_level"`
	RequiresApproval yaml.Node `yaml:"requires_approval"`
	Targets          yaml.Node `yaml:"targets"`
}

// ReadDocument splits raw into front matter and body. Malformed front matter
// yields an empty fragment document whose body is the whole text.
func ReadDocument(path, raw string) Document {
	doc := Document{
		Path:        path,
		Frontmatter: Frontmatter{Type: TypeFragment},
		Content:     raw,
		RawContent:  raw,
	}

	var meta rawFrontmatter
	body, err := frontmatter.Parse(strings.NewReader(raw), &meta, yamlFormat)
	if err != nil {
		doc.Warnings = append(doc.Warnings, "front matter: "+err.Error())
		return doc
	}
	doc.Content = string(body)
	doc.Frontmatter = meta.typed()
	return doc
}

func (m *rawFrontmatter) typed() Frontmatter {
	return Frontmatter{
		Type:             ParseDocType(scalar(&m.Type)),
		ID:               scalar(&m.ID),
		Name:             scalar(&m.Name),
		Version:          scalar(&m.Version),
		Network:          scalar(&m.Network),
		Namespace:        scalar(&m.Namespace),
		Owner:            scalar(&m.Owner),
		Tags:             scalars(&m.Tags),
		Description:      scalar(&m.Description),
		Includes:         scalars(&m.Includes),
		ActionType:       scalar(&m.ActionType),
		Enabled:          boolean(&m.Enabled),
		RiskLevel:        scalar(&m.RiskLevel),
		RequiresApproval: boolean(&m.RequiresApproval),
		Targets:          targets(&m.Targets),
	}
}

func scalar(n *yaml.Node) string {
	if n.Kind != yaml.ScalarNode || n.Tag == "!!null" {
		return ""
	}
	return strings.TrimSpace(n.Value)
}

// scalars accepts either a sequence of scalars or a single scalar.
func scalars(n *yaml.Node) []string {
	switch n.Kind {
	case yaml.ScalarNode:
		if s := scalar(n); s != "" {
			return []string{s}
		}
	case yaml.SequenceNode:
		var out []string
		for _, item := range n.Content {
			if s := scalar(item); s != "" {
				out = append(out, s)
			}
		}
		return out
	}
	return nil
}

func boolean(n *yaml.Node) *bool {
	s := scalar(n)
	if s == "" {
		return nil
	}
	if b, ok := truthy(s); ok {
		return &b
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return &b
	}
	return nil
}

func targets(n *yaml.Node) []Target {
	if n.Kind != yaml.SequenceNode {
		return nil
	}
	var out []Target
	for _, item := range n.Content {
		if item.Kind != yaml.MappingNode {
			continue
		}
		var t Target
		for i := 0; i+1 < len(item.Content); i += 2 {
			v := scalar(item.Content[i+1])
			switch scalar(item.Content[i]) {
			case "entity":
				t.Entity = v
			case "relation":
				t.Relation = v
			case "action":
				t.Action = v
			}
		}
		if t != (Target{}) {
			out = append(out, t)
		}
	}
	return out
}
