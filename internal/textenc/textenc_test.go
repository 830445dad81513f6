package textenc

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/encoding/simplifiedchinese"
	"golang.org/x/text/encoding/unicode"
)

func TestDecode_UTF8(t *testing.T) {
	s, enc := Decode([]byte("## Entity: pod\n**Pod 实例**"))
	assert.Equal(t, UTF8, enc)
	assert.Equal(t, "## Entity: pod\n**Pod 实例**", s)
}

func TestDecode_UTF8BOM(t *testing.T) {
	s, enc := Decode(append([]byte{0xEF, 0xBB, 0xBF}, "---\ntype: entity"...))
	assert.Equal(t, UTF8, enc)
	assert.Equal(t, "---\ntype: entity", s)
}

func TestDecode_UTF16(t *testing.T) {
	le, err := unicode.UTF16(unicode.LittleEndian, unicode.UseBOM).NewEncoder().Bytes([]byte("数据来源"))
	require.NoError(t, err)
	s, enc := Decode(le)
	assert.Equal(t, UTF16LE, enc)
	assert.Equal(t, "数据来源", s)

	be, err := unicode.UTF16(unicode.BigEndian, unicode.UseBOM).NewEncoder().Bytes([]byte("关联定义"))
	require.NoError(t, err)
	s, enc = Decode(be)
	assert.Equal(t, UTF16BE, enc)
	assert.Equal(t, "关联定义", s)
}

func TestDecode_GB18030(t *testing.T) {
	raw, err := simplifiedchinese.GB18030.NewEncoder().Bytes([]byte("绑定实体"))
	require.NoError(t, err)
	s, enc := Decode(raw)
	assert.Equal(t, GB18030, enc)
	assert.Equal(t, "绑定实体", s)
}

func TestString_Empty(t *testing.T) {
	assert.Equal(t, "", String(nil))
}
