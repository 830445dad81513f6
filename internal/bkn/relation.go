package bkn

import "fmt"

// Relation section titles.
const (
	secRelationDef = "关联定义"
	secMapping     = "映射规则"
	secMappingView = "映射视图"
)

// ParseRelation builds the relation defined by r. It returns ErrDiscarded
// when the definition does not name both endpoints.
func ParseRelation(r Region) (Relation, error) {
	name, desc := r.identity()
	rel := Relation{
		ID:          r.ID,
		Name:        name,
		FilePath:    r.Path,
		Network:     r.Meta.Network,
		Namespace:   r.Meta.Namespace,
		Owner:       r.Meta.Owner,
		Description: desc,
		Type:        RelationDirect,
	}

	if rows := relationDefinition(r); len(rows) > 0 {
		rel.Source = rows[0].Get("起点", "source")
		rel.Target = rows[0].Get("终点", "target")
		rel.Type = orDefault(rows[0].Get("类型", "type"), RelationDirect)
	}

	if s, ok := r.section(secMapping); ok {
		rows := s.firstTable()
		for _, row := range rows {
			rel.MappingRules = append(rel.MappingRules, mappingRule(row))
		}
	}

	if rel.Type == RelationDataView {
		if rows := r.sectionRows(secMappingView); len(rows) > 0 {
			rel.DataView = &DataView{
				Type: rows[0].Get("类型", "type"),
				ID:   rows[0].Get("ID", "id"),
			}
		}
	}

	switch {
	case rel.Source == "" && rel.Target == "":
		return Relation{}, fmt.Errorf("%w: relation %q has no source or target", ErrDiscarded, r.ID)
	case rel.Source == "":
		return Relation{}, fmt.Errorf("%w: relation %q has no source", ErrDiscarded, r.ID)
	case rel.Target == "":
		return Relation{}, fmt.Errorf("%w: relation %q has no target", ErrDiscarded, r.ID)
	}
	return rel, nil
}

// relationDefinition finds the endpoint table: the 关联定义 section when
// present, otherwise the first table with 起点 and 终点 columns. A 类型
// column is optional.
func relationDefinition(r Region) []Row {
	if rows := r.sectionRows(secRelationDef); len(rows) > 0 {
		return rows
	}
	return r.lines.tableWith(func(headers []string) bool {
		return hasHeader(headers, "起点", "source") && hasHeader(headers, "终点", "target")
	})
}

// mappingRule matches headers by substring so that suffixes such as
// "起点属性 (Pod)" still resolve.
func mappingRule(row Row) MappingRule {
	var m MappingRule
	if v, ok := row.Containing("起点"); ok {
		m.SourceProperty = v
	} else {
		m.SourceProperty = row.Get("source_property", "sourceProperty")
	}
	if v, ok := row.Containing("终点"); ok {
		m.TargetProperty = v
	} else {
		m.TargetProperty = row.Get("target_property", "targetProperty")
	}
	m.ViewProperty = row.Get("视图属性", "view_property", "viewProperty")
	return m
}

func hasHeader(headers []string, names ...string) bool {
	for _, h := range headers {
		for _, n := range names {
			if foldHeader(h) == foldHeader(n) {
				return true
			}
		}
	}
	return false
}
