package bkn

// FormatContract describes the BKN record-file convention that authors and
// LLM clients must follow when writing documents.
const FormatContract = `# BKN Document Format Contract

Every BKN document is Markdown with a YAML front matter block.

## Front matter

` + "```" + `yaml
---
type: entity            # network | entity | relation | action | fragment | delete
id: pod                 # record id (single-definition documents) or network id
name: Pod 实例          # display name
network: k8s-network    # owning network id
namespace: default      # optional
owner: platform-team    # optional
tags: [k8s, workload]   # optional
description: ...        # optional
includes: [pod, node]   # network documents only
action_type: modify     # action documents only: add | modify | delete
enabled: true           # action documents only
risk_level: low         # action documents only: low | medium | high
requires_approval: false
targets:                # delete documents only
  - entity: old_pod
---
` + "```" + `

## Document shapes

- ` + "`entity`" + `, ` + "`relation`" + `, ` + "`action`" + `: one record per file. Sections use ` + "`##`" + ` headings,
  or ` + "`###`" + ` headings when the body opens with ` + "`## Entity: <id>`" + ` (or Relation/Action).
- ` + "`network`" + `, ` + "`fragment`" + `: any number of ` + "`## Entity: <id>`" + `, ` + "`## Relation: <id>`" + ` and
  ` + "`## Action: <id>`" + ` blocks, each with ` + "`###`" + ` sections.
- ` + "`delete`" + `: no body records, only ` + "`targets`" + `.

Record ids use letters, digits, ` + "`_`" + `, ` + "`-`" + ` and ` + "`.`" + `.

## Entity

` + "```" + `markdown
## Entity: pod

**Pod 实例** - Kubernetes 中最小的调度单元

### 数据来源

| 类型 | ID |
|------|-----|
| data_view | d2mio43q6gt6p380dis0 |

> **主键**: ` + "`id`" + ` | **显示属性**: ` + "`pod_name`" + `

### 数据属性

| 属性名 | 显示名 | 类型 | 说明 | 主键 | 索引 |
|--------|--------|------|------|:----:|:----:|
| id | ID | int64 | 主键ID | YES | YES |
| pod_name | Pod名称 | VARCHAR | Pod名称 | NO | YES |

### 属性覆盖

| 属性名 | 显示名 | 索引配置 | 说明 |
|--------|--------|----------|------|
| pod_status | 状态 | keyword | Pod状态 |

### 逻辑属性

#### pod_metrics

- **类型**: metric
- **来源**: prometheus_pod_metrics (metric-model)
- **说明**: Pod 资源使用指标

| 参数名 | 来源 | 绑定值 |
|--------|------|--------|
| pod_name | property | pod_name |
| time_range | input | - |
` + "```" + `

## Relation

` + "```" + `markdown
## Relation: pod_belongs_node

**Pod 属于节点** - Pod 运行在节点上

| 起点 | 终点 | 类型 |
|------|------|------|
| pod | node | direct |

### 映射规则

| 起点属性 (Pod) | 终点属性 (Node) |
|----------------|-----------------|
| pod_node_name | node_name |
` + "```" + `

A ` + "`data_view`" + ` relation adds a ` + "`### 映射视图`" + ` table with ` + "`类型`" + ` and ` + "`ID`" + ` columns and a
` + "`视图属性`" + ` column in its mapping rules. Relations without both endpoints are dropped.

## Action

` + "```" + `markdown
## Action: restart_pod

**重启 Pod** - 当 Pod 异常时重启

| 绑定实体 | 行动类型 |
|----------|----------|
| pod | modify |

### 触发条件

` + "```" + `yaml
condition:
  object_type_id: pod
  field: pod_status
  operation: ==
  value: Failed
` + "```" + `

### 工具配置

| 类型 | 工具箱ID | 工具ID |
|------|----------|--------|
| tool | k8s_toolbox | restart_pod |

### 参数绑定

| 参数 | 来源 | 绑定 | 说明 |
|------|------|------|------|
| pod_name | property | pod_name | 目标 Pod |

### 调度配置

| 类型 | 表达式 |
|------|--------|
| FIX_RATE | 5m |

### 影响范围

| 影响对象 | 影响描述 |
|----------|----------|
| pod | Pod 将被重建 |
` + "```" + `

Use ` + "`| mcp | <MCP ID> | <工具名称> |`" + ` with columns ` + "`类型 | MCP ID | 工具名称`" + ` to bind an MCP tool
instead of a tool box. An action binds exactly one entity; actions without one are dropped.

Optional action sections: ` + "`### 执行步骤`" + ` (a list) and ` + "`### 回滚方案`" + ` (free text).

## Rules

1. File paths use forward slashes and end with ` + "`.bkn`" + ` or ` + "`.md`" + `.
2. Tables need a header row, a divider row and data rows with the same number of cells.
3. Use lowercase ids with underscores; reference entities by id.
4. Output UTF-8 text without wrapping the document in a code fence.
`
