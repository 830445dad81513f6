package bkn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func actionRegion(t *testing.T, body string, meta Frontmatter) Region {
	t.Helper()
	return NewRegion("restart_pod", "net.bkn", body, 3, meta, false)
}

const restartPodBody = `**重启 Pod** - 当 Pod 异常时重启

| 绑定实体 | 行动类型 |
|----------|----------|
| pod | modify |

### 触发条件

` + "```yaml" + `
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
| grace | const | 30 | |

### 调度配置

| 类型 | 表达式 |
|------|--------|
| CRON | 0 * * * * |

### 影响范围

| 影响对象 | 影响描述 |
|----------|----------|
| pod | Pod 将被重建 |

### 执行步骤

1. 检查 Pod 状态
2. 删除 Pod
- 等待重建

### 回滚方案

无需回滚，控制器会重建 Pod。
`

func TestParseAction_Tool(t *testing.T) {
	a, err := ParseAction(actionRegion(t, restartPodBody, Frontmatter{}))
	require.NoError(t, err)

	assert.Equal(t, "重启 Pod", a.Name)
	assert.Equal(t, "pod", a.EntityID)
	assert.Equal(t, ActionModify, a.ActionType)

	require.NotNil(t, a.Condition)
	assert.Equal(t, Condition{Field: "pod_status", Operation: "==", Value: "Failed", ObjectTypeID: "pod"}, *a.Condition)

	require.NotNil(t, a.ToolConfig)
	assert.Nil(t, a.MCPConfig)
	assert.Equal(t, ToolConfig{Type: "tool", BoxID: "k8s_toolbox", ToolID: "restart_pod"}, *a.ToolConfig)

	assert.Equal(t, []Parameter{
		{Name: "pod_name", Source: SourceProperty, Binding: "pod_name", Description: "目标 Pod"},
		{Name: "grace", Source: SourceConst, Binding: "30"},
	}, a.Parameters)

	require.NotNil(t, a.Schedule)
	assert.Equal(t, Schedule{Type: ScheduleCron, Expression: "0 * * * *"}, *a.Schedule)
	assert.Equal(t, []Affect{{Object: "pod", Description: "Pod 将被重建"}}, a.Affect)
	assert.Equal(t, []string{"检查 Pod 状态", "删除 Pod", "等待重建"}, a.ExecutionSteps)
	assert.Equal(t, "无需回滚，控制器会重建 Pod。", a.RollbackPlan)
}

func TestParseAction_MCP(t *testing.T) {
	body := "| 绑定实体 |\n|---|\n| node |\n\n### 工具配置\n\n| 类型 | MCP ID | 工具名称 |\n|---|---|---|\n| MCP | k8s_mcp | cordon_node |"
	a, err := ParseAction(actionRegion(t, body, Frontmatter{}))
	require.NoError(t, err)
	assert.Nil(t, a.ToolConfig)
	require.NotNil(t, a.MCPConfig)
	assert.Equal(t, MCPConfig{Type: "mcp", MCPID: "k8s_mcp", ToolName: "cordon_node"}, *a.MCPConfig)
}

func TestParseAction_UnknownToolKind(t *testing.T) {
	body := "| 绑定实体 |\n|---|\n| node |\n\n### 工具配置\n\n| 类型 | 工具ID |\n|---|---|\n| webhook | x |"
	a, err := ParseAction(actionRegion(t, body, Frontmatter{}))
	require.NoError(t, err)
	assert.Nil(t, a.ToolConfig)
	assert.Nil(t, a.MCPConfig)
}

func TestParseAction_FrontmatterDefaults(t *testing.T) {
	enabled := false
	meta := Frontmatter{ActionType: ActionAdd, Enabled: &enabled, RiskLevel: "high"}
	a, err := ParseAction(actionRegion(t, "| 绑定实体 |\n|---|\n| pod |", meta))
	require.NoError(t, err)
	assert.Equal(t, ActionAdd, a.ActionType)
	require.NotNil(t, a.Enabled)
	assert.False(t, *a.Enabled)
	assert.Equal(t, "high", a.RiskLevel)
	assert.Nil(t, a.Schedule)
}

func TestParseAction_ScheduleDefaultsToFixRate(t *testing.T) {
	body := "| 绑定实体 |\n|---|\n| pod |\n\n### 调度配置\n\n| 类型 | 表达式 |\n|---|---|\n| | 5m |"
	a, err := ParseAction(actionRegion(t, body, Frontmatter{}))
	require.NoError(t, err)
	require.NotNil(t, a.Schedule)
	assert.Equal(t, ScheduleFixRate, a.Schedule.Type)
	assert.Equal(t, "5m", a.Schedule.Expression)
}

func TestParseAction_Discarded(t *testing.T) {
	_, err := ParseAction(actionRegion(t, "### 工具配置\n\n| 类型 | 工具ID |\n|---|---|\n| tool | x |", Frontmatter{}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrDiscarded))
}

func TestParseCondition(t *testing.T) {
	t.Run("yaml", func(t *testing.T) {
		c := parseCondition("condition:\n  field: cpu\n  operation: '>'\n  value: 90")
		require.NotNil(t, c)
		assert.Equal(t, "cpu", c.Field)
		assert.Equal(t, ">", c.Operation)
		assert.Equal(t, 90, c.Value)
	})
	t.Run("no condition key", func(t *testing.T) {
		assert.Nil(t, parseCondition("other: 1"))
	})
	t.Run("fallback", func(t *testing.T) {
		c := parseCondition("condition:\n  field: status\n  operation: in\n  value: [a, b\n\t bad: : :")
		require.NotNil(t, c)
		assert.Equal(t, "status", c.Field)
		assert.Equal(t, "in", c.Operation)
		assert.Equal(t, "[a, b", c.Value)
	})
	t.Run("fallback without operation", func(t *testing.T) {
		assert.Nil(t, parseCondition("field: x\n\t: : bad ["))
	})
}
