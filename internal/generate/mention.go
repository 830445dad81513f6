package generate

import (
	"fmt"
	"regexp"

	"github.com/starford/bkn/internal/datasource"
)

var mentionPattern = regexp.MustCompile(`@([^\s@]+)`)

// ResolveMentions expands @path and @source references in prompt. A file
// mention is replaced by the fenced document content; a data source mention
// (by id or view name) by its column summary. Unknown mentions stay as is.
func ResolveMentions(prompt string, files map[string]string, catalog *datasource.Catalog) string {
	return mentionPattern.ReplaceAllStringFunc(prompt, func(m string) string {
		name := m[1:]
		if content, ok := files[name]; ok {
			return fmt.Sprintf("\n\n[文件: %s]\n```markdown\n%s\n```\n\n", name, content)
		}
		if catalog != nil {
			if ds, ok := catalog.Lookup(name); ok {
				return fmt.Sprintf("\n\n[数据来源: %s]\n%s\n\n字段:\n%s\n\n", ds.Name, ds.Description, ds.ColumnList())
			}
		}
		return m
	})
}
