package mcpserver

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/starford/bkn/internal/bkn"
	"github.com/starford/bkn/internal/docservice"
	"github.com/starford/bkn/internal/index"
	"github.com/starford/bkn/internal/testutil"
)

const podDoc = "---\ntype: entity\nid: pod\nname: Pod\n---\n\n**Pod** - 容器组\n"

func testServer(t *testing.T) *Server {
	t.Helper()

	ws := testutil.TestWorkspace(t)
	db := testutil.TestDB(t)
	testutil.TestProject(t, ws, "demo", map[string]string{"entities/pod.bkn": podDoc})
	if err := index.Sync(db, ws, testutil.Logger()); err != nil {
		t.Fatal(err)
	}
	return New(docservice.NewService(ws, db, testutil.Logger()), "test")
}

func callTool(t *testing.T, srv *Server, name string, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	ctx := context.Background()
	req := mcp.CallToolRequest{}
	req.Method = "tools/call"
	req.Params.Name = name
	req.Params.Arguments = args

	// mcp-go has no in-process "call tool" helper, so handlers are invoked
	// directly.
	var result *mcp.CallToolResult
	var err error

	switch name {
	case "list_projects":
		result, err = srv.listProjects(ctx, req)
	case "list_documents":
		result, err = srv.listDocuments(ctx, req)
	case "read_document":
		result, err = srv.readDocument(ctx, req)
	case "write_document":
		result, err = srv.writeDocument(ctx, req)
	case "parse_network":
		result, err = srv.parseNetwork(ctx, req)
	case "search_records":
		result, err = srv.searchRecords(ctx, req)
	case "get_format_contract":
		result, err = srv.getFormatContract(ctx, req)
	case "import_document":
		result, err = srv.importDocument(ctx, req)
	default:
		t.Fatalf("unknown tool: %s", name)
	}

	if err != nil {
		t.Fatalf("tool %s error: %v", name, err)
	}
	return result
}

func resultText(r *mcp.CallToolResult) string {
	if len(r.Content) > 0 {
		if tc, ok := r.Content[0].(mcp.TextContent); ok {
			return tc.Text
		}
	}
	return ""
}

func TestToolsRegistered(t *testing.T) {
	srv := testServer(t)
	msg := srv.MCPServer().HandleMessage(context.Background(),
		json.RawMessage(`{"jsonrpc":"2.0","id":1,"method":"tools/list"}`))
	out, err := json.Marshal(msg)
	if err != nil {
		t.Fatal(err)
	}
	for _, name := range []string{"list_projects", "list_documents", "read_document", "write_document",
		"parse_network", "search_records", "get_format_contract", "import_document"} {
		if !strings.Contains(string(out), `"name":"`+name+`"`) {
			t.Errorf("tool %s not listed", name)
		}
	}
}

func TestWriteAndReadDocument(t *testing.T) {
	srv := testServer(t)

	content := "---\ntype: relation\nid: pod_belongs_node\n---\n\n## 关联定义\n\n| 起点 | 终点 |\n|---|---|\n| pod | node |\n"
	r := callTool(t, srv, "write_document", map[string]any{
		"project": "demo",
		"path":    "relations/pod_node.bkn",
		"content": content,
	})
	if r.IsError {
		t.Fatalf("write error: %s", resultText(r))
	}
	var res writeResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if !res.Created {
		t.Error("first write should create")
	}

	r = callTool(t, srv, "write_document", map[string]any{
		"project": "demo",
		"path":    "relations/pod_node.bkn",
		"content": "---\ntype: relation\nid: broken\n---\n",
	})
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if res.Created || len(res.Diagnostics) != 1 {
		t.Errorf("second write = %+v", res)
	}

	r = callTool(t, srv, "read_document", map[string]any{"project": "demo", "path": "relations/pod_node.bkn"})
	if got := resultText(r); got != "---\ntype: relation\nid: broken\n---\n" {
		t.Errorf("read result = %q", got)
	}

	r = callTool(t, srv, "write_document", map[string]any{"project": "demo", "path": "notes.txt", "content": "x"})
	if !r.IsError {
		t.Error("expected error for non-document path")
	}
}

func TestReadDocumentMissing(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "read_document", map[string]any{"project": "demo", "path": "nope.bkn"})
	if !r.IsError {
		t.Error("expected error for missing document")
	}
	r = callTool(t, srv, "read_document", map[string]any{"path": "nope.bkn"})
	if !r.IsError {
		t.Error("expected error for missing project argument")
	}
}

func TestListProjectsAndDocuments(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "list_projects", map[string]any{})
	if !strings.Contains(resultText(r), `"demo"`) {
		t.Errorf("projects = %s", resultText(r))
	}

	r = callTool(t, srv, "list_documents", map[string]any{"project": "demo"})
	if got := resultText(r); got != "entities/pod.bkn\tentity\tpod" {
		t.Errorf("documents = %q", got)
	}

	r = callTool(t, srv, "list_documents", map[string]any{"project": "demo", "type": "action"})
	if got := resultText(r); got != "" {
		t.Errorf("action documents = %q", got)
	}
}

func TestParseNetworkAndSearch(t *testing.T) {
	srv := testServer(t)

	r := callTool(t, srv, "parse_network", map[string]any{"project": "demo"})
	var out struct {
		bkn.Export
		Diagnostics []bkn.Diagnostic `json:"diagnostics"`
	}
	if err := json.Unmarshal([]byte(resultText(r)), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(out.Entities) != 1 || out.Entities[0].ID != "pod" {
		t.Errorf("entities = %+v", out.Entities)
	}
	if strings.Contains(resultText(r), "rawContent") {
		t.Error("network output carries file contents")
	}

	r = callTool(t, srv, "parse_network", map[string]any{"project": "demo", "diagnostics_only": true})
	if got := resultText(r); got != "[]" {
		t.Errorf("diagnostics = %q", got)
	}

	r = callTool(t, srv, "search_records", map[string]any{"project": "demo", "kind": "entity", "id": "pod"})
	if !strings.Contains(resultText(r), `"path": "entities/pod.bkn"`) {
		t.Errorf("records = %s", resultText(r))
	}
	r = callTool(t, srv, "search_records", map[string]any{"project": "demo", "kind": "action"})
	if got := resultText(r); got != "no records found" {
		t.Errorf("empty search = %q", got)
	}
}

func TestFormatContract(t *testing.T) {
	srv := testServer(t)
	r := callTool(t, srv, "get_format_contract", map[string]any{})
	if resultText(r) != bkn.FormatContract {
		t.Error("contract mismatch")
	}

	contents, err := srv.readFormatResource(context.Background(), mcp.ReadResourceRequest{})
	if err != nil {
		t.Fatal(err)
	}
	tc, ok := contents[0].(mcp.TextResourceContents)
	if !ok || tc.URI != FormatURI || tc.Text != bkn.FormatContract {
		t.Errorf("resource = %+v", contents[0])
	}
}

func TestImportDocument_DataURI(t *testing.T) {
	srv := testServer(t)

	// "节点" in GB18030.
	raw := append(append([]byte("## Entity: node\n\n**"), 0xBD, 0xDA, 0xB5, 0xE3), []byte("** - 集群\n")...)
	uri := "data:text/markdown;base64," + base64.StdEncoding.EncodeToString(raw)

	r := callTool(t, srv, "import_document", map[string]any{"project": "demo", "url": uri, "path": "entities/node.md"})
	if r.IsError {
		t.Fatalf("import error: %s", resultText(r))
	}
	var res importResult
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if res.Path != "entities/node.md" || res.Records != 1 {
		t.Errorf("result = %+v", res)
	}

	r = callTool(t, srv, "read_document", map[string]any{"project": "demo", "path": "entities/node.md"})
	if !strings.Contains(resultText(r), "**节点**") {
		t.Errorf("imported content = %q", resultText(r))
	}

	r = callTool(t, srv, "import_document", map[string]any{"project": "demo", "url": "data:,%23%23%20Entity%3A%20svc%0A"})
	if r.IsError {
		t.Fatalf("percent import error: %s", resultText(r))
	}
	if err := json.Unmarshal([]byte(resultText(r)), &res); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(res.Path, ".bkn") || res.Encoding != "utf-8" {
		t.Errorf("percent result = %+v", res)
	}
}

func TestImportDocument_Rejected(t *testing.T) {
	srv := testServer(t)

	cases := map[string]string{
		"image":     "data:image/png;base64,iVBORw0KGgo=",
		"binary":    "data:text/plain;base64," + base64.StdEncoding.EncodeToString([]byte{0x00, 0x01, 0x02, 0x03}),
		"scheme":    "ftp://example.com/a.bkn",
		"loopback":  "http://127.0.0.1/a.bkn",
		"metadata":  "http://169.254.169.254/latest",
		"no comma":  "data:text/plain;base64",
		"bad bytes": "data:text/plain;base64,@@@",
	}
	for name, uri := range cases {
		t.Run(name, func(t *testing.T) {
			r := callTool(t, srv, "import_document", map[string]any{"project": "demo", "url": uri})
			if !r.IsError {
				t.Errorf("expected error for %s", uri)
			}
		})
	}
}

func TestSanitizeFilename(t *testing.T) {
	tests := map[string]string{
		"pod.bkn":           "pod.bkn",
		"../../etc/pod.bkn": "pod.bkn",
		`C:\x\节点.md`:        "节点.md",
		"a b?.md":           "a_b_.md",
	}
	for in, want := range tests {
		if got := sanitizeFilename(in); got != want {
			t.Errorf("sanitizeFilename(%q) = %q, want %q", in, got, want)
		}
	}
	if got := sanitizeFilename(".hidden"); strings.HasPrefix(got, ".") {
		t.Errorf("hidden name kept: %q", got)
	}
}
