package bkn

import (
	"testing"

	fuzz "github.com/google/gofuzz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTable_Basic(t *testing.T) {
	rows := Table(`
| 类型 | ID |
|------|-----|
| data_view | d2mio43q6gt6p380dis0 |
`)
	require.Len(t, rows, 1)
	assert.Equal(t, "data_view", rows[0]["类型"])
	assert.Equal(t, "d2mio43q6gt6p380dis0", rows[0]["ID"])
}

func TestTable_MismatchedWidthDiscarded(t *testing.T) {
	rows := Table(`| a | b | c |
|---|---|---|
| 1 | 2 | 3 |
| 1 | 2 |
| 1 | 2 | 3 | 4 |
| x | y | z |`)
	require.Len(t, rows, 2)
	assert.Equal(t, Row{"a": "1", "b": "2", "c": "3"}, rows[0])
	assert.Equal(t, Row{"a": "x", "b": "y", "c": "z"}, rows[1])
}

func TestTable_NoDividerSkipsLineAfterHeader(t *testing.T) {
	rows := Table("| a | b |\n| skipped | row |\n| 1 | 2 |")
	require.Len(t, rows, 1)
	assert.Equal(t, "1", rows[0]["a"])
}

func TestTable_EmptyCellsKept(t *testing.T) {
	rows := Table("| 参数名 | 来源 | 绑定值 |\n|---|---|---|\n| time_range | | |")
	require.Len(t, rows, 1)
	assert.Equal(t, "", rows[0]["来源"])
	assert.Equal(t, "time_range", rows[0]["参数名"])
}

func TestTable_BlankLinesIgnored(t *testing.T) {
	rows := Table("| 类型 | ID |\n\n|------|-----|\n\n| data_view | x1 |")
	require.Len(t, rows, 1)
	assert.Equal(t, "x1", rows[0]["ID"])
}

func TestTable_DividerShapedRowKept(t *testing.T) {
	rows := Table("| a | b |\n|---|---|\n| - | - |\n| x | y |")
	assert.Equal(t, []Row{{"a": "-", "b": "-"}, {"a": "x", "b": "y"}}, rows)
}

func TestTable_Degenerate(t *testing.T) {
	cases := map[string]string{
		"empty":        "",
		"no pipes":     "just some text\nand more",
		"header only":  "| a | b |",
		"divider only": "|---|:---:|",
		"empty header": "| | |\n|---|---|\n| 1 | 2 |",
		"blank lines":  "\n\n   \n",
	}
	for name, text := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Empty(t, Table(text))
		})
	}
}

func TestRows_StopsEarly(t *testing.T) {
	text := "| n |\n|---|\n| 1 |\n| 2 |\n| 3 |"
	var seen []string
	for r := range Rows(text) {
		seen = append(seen, r["n"])
		if len(seen) == 2 {
			break
		}
	}
	assert.Equal(t, []string{"1", "2"}, seen)
}

func TestRowGet_Aliases(t *testing.T) {
	r := Row{"ＩＤ": "abc", "name": "", "名称": "Pod"}
	assert.Equal(t, "abc", r.Get("ID"))
	assert.Equal(t, "Pod", r.Get("name", "名称"))
	assert.Equal(t, "", r.Get("missing"))
}

func TestRowContaining(t *testing.T) {
	r := Row{"起点属性 (Pod)": "pod_node_name", "终点属性 (Node)": "node_name"}
	v, ok := r.Containing("起点")
	assert.True(t, ok)
	assert.Equal(t, "pod_node_name", v)
	_, ok = r.Containing("视图")
	assert.False(t, ok)
}

func TestTable_NeverPanics(t *testing.T) {
	f := fuzz.New().NilChance(0)
	for i := 0; i < 2000; i++ {
		var s string
		f.Fuzz(&s)
		assert.NotPanics(t, func() {
			for range Rows(s) {
			}
			_ = Table("| a | b |\n" + s)
		})
	}
}

func FuzzTable(f *testing.F) {
	f.Add("| a | b |\n|---|---|\n| 1 | 2 |")
	f.Add("|")
	f.Add("|-|\n| x |")
	f.Add("")
	f.Fuzz(func(t *testing.T, s string) {
		headers, _ := tableHeaders(s)
		for _, r := range Table(s) {
			if len(r) > len(headers) {
				t.Fatalf("row %v wider than headers %v", r, headers)
			}
		}
	})
}
