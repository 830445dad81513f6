package bkn

import "strings"

// Entity section titles.
const (
	secDataSource     = "数据来源"
	secDataProperties = "数据属性"
	secProperties     = "属性覆盖"
	secLogic          = "逻辑属性"
)

// ParseEntity builds the entity defined by r. An entity is never discarded.
func ParseEntity(r Region) Entity {
	name, desc := r.identity()
	e := Entity{
		ID:          r.ID,
		Name:        name,
		FilePath:    r.Path,
		Network:     r.Meta.Network,
		Namespace:   r.Meta.Namespace,
		Owner:       r.Meta.Owner,
		Tags:        r.Meta.Tags,
		Description: desc,
	}

	if rows := r.sectionRows(secDataSource); len(rows) > 0 && rows[0].Get("类型", "type") != "" {
		e.DataSource = &DataSource{
			Type: rows[0].Get("类型", "type"),
			ID:   rows[0].Get("ID", "id"),
			Name: rows[0].Get("名称", "name"),
		}
	}

	e.PrimaryKey, e.DisplayKey = entityKeys(r.lines)

	for _, row := range r.sectionRows(secDataProperties) {
		e.DataProperties = append(e.DataProperties, DataProperty{
			Name:         row.Get("属性名", "property_name", "name"),
			DisplayName:  row.Get("显示名", "display_name"),
			Type:         row.Get("类型", "type"),
			Description:  row.Get("说明", "description"),
			IsPrimaryKey: flag(row.Get("主键", "isPrimaryKey", "primary_key")),
			IsIndexed:    flag(row.Get("索引", "isIndexed", "indexed")),
		})
	}

	for _, row := range r.sectionRows(secProperties) {
		e.Properties = append(e.Properties, Property{
			Name:        row.Get("属性名", "property_name", "name"),
			DisplayName: row.Get("显示名", "display_name"),
			Type:        row.Get("类型", "type"),
			IndexConfig: row.Get("索引配置", "index_config"),
			Description: row.Get("说明", "description"),
		})
	}

	if s, ok := r.section(secLogic); ok {
		for _, sub := range s.subsections(s[0].Level + 1) {
			if lp, ok := parseLogicProperty(sub); ok {
				e.LogicProperties = append(e.LogicProperties, lp)
			}
		}
	}

	return e
}

// entityKeys reads the primary and display keys from the key blockquote.
func entityKeys(b block) (primary, display string) {
	for _, l := range b.prose() {
		if l.Kind != LineQuote {
			continue
		}
		if m := keysQuoteRe.FindStringSubmatch(strings.TrimSpace(l.Text)); m != nil {
			return m[1], m[2]
		}
	}
	for _, l := range b.prose() {
		if l.Kind != LineQuote {
			continue
		}
		if m := displayQuoteRe.FindStringSubmatch(strings.TrimSpace(l.Text)); m != nil {
			return "", m[1]
		}
	}
	return "", ""
}

// parseLogicProperty reads one logic property subsection. sub starts with the
// heading that names the property.
func parseLogicProperty(sub block) (LogicProperty, bool) {
	name := firstWord(sub[0].Title)
	if name == "" {
		return LogicProperty{}, false
	}
	lp := LogicProperty{Name: name, Type: LogicMetric}
	if v, ok := inlineField(sub, "类型"); ok && firstWord(v) != "" {
		lp.Type = firstWord(v)
	}
	if v, ok := inlineField(sub, "来源"); ok {
		lp.Source, lp.SourceType = splitSource(v)
	}
	if v, ok := inlineField(sub, "说明"); ok {
		lp.Description = v
	}
	if rows := sub.firstTable(); len(rows) > 0 && rows[0].Has("参数名", "parameter_name") {
		lp.Parameters = parameters(rows, []string{"参数名", "parameter_name"}, []string{"绑定值", "binding", "绑定"})
	}
	return lp, true
}

// parameters maps a parameter table. The source column defaults to input.
func parameters(rows []Row, nameKeys, bindingKeys []string) []Parameter {
	out := make([]Parameter, 0, len(rows))
	for _, row := range rows {
		out = append(out, Parameter{
			Name:        row.Get(nameKeys...),
			Source:      orDefault(row.Get("来源", "source"), SourceInput),
			Binding:     row.Get(bindingKeys...),
			Description: row.Get("说明", "description"),
		})
	}
	return out
}
