package bkn

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func relationRegion(t *testing.T, body string) Region {
	t.Helper()
	return NewRegion("pod_belongs_node", "net.bkn", body, 3, Frontmatter{Network: "k8s"}, false)
}

func TestParseRelation_Direct(t *testing.T) {
	rel, err := ParseRelation(relationRegion(t, `**Pod 属于节点** - Pod 运行在节点上

| 起点 | 终点 | 类型 |
|------|------|------|
| pod | node | direct |

### 映射规则

| 起点属性 (Pod) | 终点属性 (Node) |
|----------------|-----------------|
| pod_node_name | node_name |
`))
	require.NoError(t, err)
	assert.Equal(t, "Pod 属于节点", rel.Name)
	assert.Equal(t, "pod", rel.Source)
	assert.Equal(t, "node", rel.Target)
	assert.Equal(t, RelationDirect, rel.Type)
	assert.Equal(t, "k8s", rel.Network)
	assert.Equal(t, []MappingRule{{SourceProperty: "pod_node_name", TargetProperty: "node_name"}}, rel.MappingRules)
	assert.Nil(t, rel.DataView)
}

func TestParseRelation_NoMappingRules(t *testing.T) {
	rel, err := ParseRelation(relationRegion(t, "| 起点 | 终点 |\n|---|---|\n| service | pod |"))
	require.NoError(t, err)
	assert.Equal(t, "service", rel.Source)
	assert.Equal(t, "pod", rel.Target)
	assert.Equal(t, RelationDirect, rel.Type)
	assert.Empty(t, rel.MappingRules)
}

func TestParseRelation_DataView(t *testing.T) {
	rel, err := ParseRelation(relationRegion(t, `### 关联定义

| 起点 | 终点 | 类型 |
|------|------|------|
| service | pod | data_view |

### 映射视图

| 类型 | ID |
|------|-----|
| data_view | svc_pod_view |

### 映射规则

| 起点属性 | 视图属性 | 终点属性 |
|----------|----------|----------|
| name | service_name | pod_name |
`))
	require.NoError(t, err)
	assert.Equal(t, RelationDataView, rel.Type)
	require.NotNil(t, rel.DataView)
	assert.Equal(t, DataView{Type: "data_view", ID: "svc_pod_view"}, *rel.DataView)
	assert.Equal(t, []MappingRule{{SourceProperty: "name", TargetProperty: "pod_name", ViewProperty: "service_name"}}, rel.MappingRules)
}

func TestParseRelation_DirectIgnoresMappingView(t *testing.T) {
	rel, err := ParseRelation(relationRegion(t, "| source | target |\n|---|---|\n| a | b |\n\n### 映射视图\n\n| 类型 | ID |\n|---|---|\n| data_view | v |"))
	require.NoError(t, err)
	assert.Nil(t, rel.DataView)
}

func TestParseRelation_Discarded(t *testing.T) {
	cases := map[string]string{
		"no table":     "just prose",
		"no source":    "| 起点 | 终点 |\n|---|---|\n| | node |",
		"no target":    "| 起点 | 终点 |\n|---|---|\n| pod | |",
		"other tables": "| a | b |\n|---|---|\n| 1 | 2 |",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseRelation(relationRegion(t, body))
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrDiscarded))
		})
	}
}
