package generate

import (
	"bytes"
	"fmt"
	"sort"
	"text/template"
)

// Context is what the model sees besides the user's request.
type Context struct {
	DataSourcesSummary string            `json:"dataSourcesSummary"`
	ExistingFiles      map[string]string `json:"existingFiles"`
	CurrentFile        string            `json:"currentFile,omitempty"`
}

type promptFile struct {
	Path    string
	Content string
}

var systemPromptTmpl = template.Must(template.New("system").Parse(`You are a BKN (Business Knowledge Network) expert. Your task is to generate valid BKN Markdown content based on user requests.

## BKN Format Rules

### File Structure
Each BKN file has two parts:
1. YAML Frontmatter (metadata)
2. Markdown Body (content)

### Frontmatter Types
- ` + "`type: entity`" + ` - Single entity definition
- ` + "`type: relation`" + ` - Single relation definition
- ` + "`type: action`" + ` - Single action definition
- ` + "`type: network`" + ` - Complete network with multiple definitions
- ` + "`type: fragment`" + ` - Mixed fragment with multiple types

{{.Contract}}

## Available Data Sources

{{.DataSources}}

## Existing Project Files
{{range .Files}}

## File: {{.Path}}
` + "```markdown" + `
{{.Content}}
` + "```" + `
{{end}}{{if .Current}}

## Current File Being Edited
` + "```markdown" + `
{{.Current}}
` + "```" + `{{end}}

## Important Rules

1. Output ONLY the BKN Markdown content (including YAML frontmatter)
2. Do NOT include code fences (` + "```markdown" + `) around the output
3. Use valid entity/relation IDs that exist in the project when referencing them
4. Follow the exact table formats shown above
5. Use Chinese for display names and descriptions unless specified otherwise
6. Ensure all required fields are present
7. Use consistent naming conventions (lowercase with underscores for IDs)`))

// BuildSystemPrompt renders the system prompt. contract is the record-file
// format description; existing files are listed in path order.
func BuildSystemPrompt(contract string, c Context) (string, error) {
	files := make([]promptFile, 0, len(c.ExistingFiles))
	for p, content := range c.ExistingFiles {
		files = append(files, promptFile{Path: p, Content: content})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Path < files[j].Path })

	var buf bytes.Buffer
	err := systemPromptTmpl.Execute(&buf, struct {
		Contract    string
		DataSources string
		Files       []promptFile
		Current     string
	}{contract, c.DataSourcesSummary, files, c.CurrentFile})
	if err != nil {
		return "", fmt.Errorf("generate: render prompt: %w", err)
	}
	return buf.String(), nil
}
