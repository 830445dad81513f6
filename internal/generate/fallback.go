package generate

import (
	"context"
	"strings"
)

const fallbackEntity = `---
type: entity
id: new_entity
name: 新实体
network: k8s-topology
---

## Entity: new_entity

**新实体** - 这是一个由AI生成的实体示例

### 数据来源

| 类型 | ID |
|------|-----|
| data_view | d2mio43q6gt6p380dis0 |

> **主键**: ` + "`id`" + ` | **显示属性**: ` + "`name`" + `

### 数据属性

| 属性名 | 显示名 | 类型 | 说明 | 主键 | 索引 |
|--------|--------|------|------|:----:|:----:|
| id | ID | int64 | 主键ID | YES | YES |
| name | 名称 | VARCHAR | 实体名称 | | YES |
| status | 状态 | VARCHAR | 实体状态 | | YES |

### 逻辑属性

#### entity_metrics

- **类型**: metric
- **来源**: entity_metric (metric-model)
- **说明**: 实体监控指标

| 参数名 | 来源 | 绑定值 |
|--------|------|--------|
| id | property | id |
| name | property | name |`

const fallbackRelation = `---
type: relation
id: new_relation
name: 新关系
network: k8s-topology
---

## Relation: new_relation

**新关系** - 这是一个由AI生成的关系示例

| 起点 | 终点 | 类型 |
|------|------|------|
| pod | node | direct |

### 映射规则

| 起点属性 | 终点属性 |
|----------|----------|
| pod_node_name | node_name |

### 业务语义

这是一个示例关系定义，用于连接两个实体。`

const fallbackAction = `---
type: action
id: new_action
name: 新行动
network: k8s-topology
action_type: modify
---

## Action: new_action

**新行动** - 这是一个由AI生成的行动示例

| 绑定实体 | 行动类型 |
|----------|----------|
| pod | modify |

### 触发条件

` + "```yaml" + `
condition:
  object_type_id: pod
  field: status
  operation: ==
  value: Failed
` + "```" + `

### 工具配置

| 类型 | 工具箱ID | 工具ID |
|------|----------|--------|
| tool | k8s_toolbox | example_tool |

### 参数绑定

| 参数 | 来源 | 绑定 | 说明 |
|------|------|------|------|
| id | property | id | 实体ID |
| name | property | name | 实体名称 |`

const fallbackDefault = `---
type: entity
id: generated_entity
name: 生成的实体
network: k8s-topology
---

## Entity: generated_entity

**生成的实体** - AI生成的示例实体

### 数据来源

| 类型 | ID |
|------|-----|
| data_view | d2mio43q6gt6p380dis0 |

> **主键**: ` + "`id`" + ` | **显示属性**: ` + "`name`"

// Fallback picks a canned document for prompt by keyword.
func Fallback(prompt string) string {
	p := strings.ToLower(prompt)
	switch {
	case strings.Contains(p, "实体") || strings.Contains(p, "entity"):
		return fallbackEntity
	case strings.Contains(p, "关系") || strings.Contains(p, "relation"):
		return fallbackRelation
	case strings.Contains(p, "行动") || strings.Contains(p, "action"):
		return fallbackAction
	default:
		return fallbackDefault
	}
}

// fallbackChunk is the number of runes emitted per chunk when replaying a
// canned document.
const fallbackChunk = 16

// replay emits text in small chunks, stopping early when ctx is done.
func replay(ctx context.Context, text string, emit func(string) error) error {
	runes := []rune(text)
	for start := 0; start < len(runes); start += fallbackChunk {
		if err := ctx.Err(); err != nil {
			return err
		}
		end := min(start+fallbackChunk, len(runes))
		if err := emit(string(runes[start:end])); err != nil {
			return err
		}
	}
	return nil
}
