package bkn

import (
	"fmt"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Action section titles.
const (
	secBinding   = "绑定实体"
	secTool      = "工具配置"
	secParams    = "参数绑定"
	secSchedule  = "调度配置"
	secAffect    = "影响范围"
	secSteps     = "执行步骤"
	secRollback  = "回滚方案"
	toolKindTool = "tool"
	toolKindMCP  = "mcp"
)

var (
	condFieldRe = regexp.MustCompile(`(?m)^\s*field:\s*(.+)$`)
	condOpRe    = regexp.MustCompile(`(?m)^\s*operation:\s*(.+)$`)
	condValueRe = regexp.MustCompile(`(?m)^\s*value:\s*(.+)$`)
)

// ParseAction builds the action defined by r. It returns ErrDiscarded when no
// bound entity is named.
func ParseAction(r Region) (Action, error) {
	name, desc := r.identity()
	a := Action{
		ID:               r.ID,
		Name:             name,
		FilePath:         r.Path,
		Network:          r.Meta.Network,
		Namespace:        r.Meta.Namespace,
		Owner:            r.Meta.Owner,
		Description:      desc,
		ActionType:       orDefault(r.Meta.ActionType, ActionModify),
		Enabled:          r.Meta.Enabled,
		RiskLevel:        r.Meta.RiskLevel,
		RequiresApproval: r.Meta.RequiresApproval,
	}

	if rows := actionBinding(r); len(rows) > 0 {
		a.EntityID = rows[0].Get("绑定实体", "entity_id", "entity")
		a.ActionType = orDefault(rows[0].Get("行动类型", "action_type"), a.ActionType)
	}

	if text, ok := r.lines.fence("yaml", "yml"); ok {
		a.Condition = parseCondition(text)
	}

	if rows := r.sectionRows(secTool); len(rows) > 0 {
		row := rows[0]
		switch strings.ToLower(row.Get("类型", "type")) {
		case toolKindTool:
			a.ToolConfig = &ToolConfig{
				Type:   toolKindTool,
				BoxID:  row.Get("工具箱ID", "box_id"),
				ToolID: row.Get("工具ID", "tool_id"),
			}
		case toolKindMCP:
			a.MCPConfig = &MCPConfig{
				Type:     toolKindMCP,
				MCPID:    row.Get("MCP ID", "mcp_id", "MCP_ID"),
				ToolName: row.Get("工具名称", "tool_name"),
			}
		}
	}

	if rows := r.sectionRows(secParams); len(rows) > 0 {
		a.Parameters = parameters(rows, []string{"参数", "parameter", "参数名"}, []string{"绑定", "binding", "绑定值"})
	}

	if rows := r.sectionRows(secSchedule); len(rows) > 0 {
		a.Schedule = &Schedule{
			Type:        orDefault(rows[0].Get("类型", "type"), ScheduleFixRate),
			Expression:  rows[0].Get("表达式", "expression"),
			Description: rows[0].Get("说明", "description"),
		}
	}

	for _, row := range r.sectionRows(secAffect) {
		a.Affect = append(a.Affect, Affect{
			Object:      row.Get("影响对象", "object"),
			Description: row.Get("影响描述", "description"),
		})
	}

	if s, ok := r.section(secSteps); ok {
		for _, l := range s.prose() {
			if l.Kind == LineListItem {
				a.ExecutionSteps = append(a.ExecutionSteps, listItemText(l.Text))
			}
		}
	}

	if s, ok := r.section(secRollback); ok {
		a.RollbackPlan = s.body()
	}

	if a.EntityID == "" {
		return Action{}, fmt.Errorf("%w: action %q has no bound entity", ErrDiscarded, r.ID)
	}
	return a, nil
}

// actionBinding finds the binding table: the 绑定实体 section when present,
// otherwise the first table with a 绑定实体 column.
func actionBinding(r Region) []Row {
	if rows := r.sectionRows(secBinding); len(rows) > 0 {
		return rows
	}
	return r.lines.tableWith(func(headers []string) bool {
		return hasHeader(headers, "绑定实体", "entity_id")
	})
}

// parseCondition decodes the condition block. When the block is not valid
// YAML it falls back to reading field, operation and value lines.
func parseCondition(text string) *Condition {
	var doc struct {
		Condition *struct {
			Field        string `yaml:"field"`
			Operation    string `yaml:"operation"`
			Value        any    `yaml:"value"`
			ObjectTypeID string `yaml:"object_type_id"`
		} `yaml:"condition"`
	}
	if err := yaml.Unmarshal([]byte(text), &doc); err == nil {
		if doc.Condition == nil {
			return nil
		}
		return &Condition{
			Field:        doc.Condition.Field,
			Operation:    doc.Condition.Operation,
			Value:        doc.Condition.Value,
			ObjectTypeID: doc.Condition.ObjectTypeID,
		}
	}

	field := condFieldRe.FindStringSubmatch(text)
	op := condOpRe.FindStringSubmatch(text)
	if field == nil || op == nil {
		return nil
	}
	c := &Condition{
		Field:     strings.TrimSpace(field[1]),
		Operation: strings.TrimSpace(op[1]),
	}
	if v := condValueRe.FindStringSubmatch(text); v != nil {
		c.Value = strings.TrimSpace(v[1])
	}
	return c
}
