package api

import (
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/starford/bkn/internal/bkn"
	"github.com/starford/bkn/internal/checksum"
	"github.com/starford/bkn/internal/docservice"
	"github.com/starford/bkn/internal/graph"
	"github.com/starford/bkn/internal/index"
	"github.com/starford/bkn/internal/testutil"
)

const indexDoc = `---
type: network
id: k8s
name: K8s
---

## Entity: pod

**Pod** - 容器组

## Relation: pod_belongs_node

| 起点 | 终点 |
|------|------|
| pod | node |
`

const nodeDoc = "---\ntype: entity\nid: node\nname: 节点\n---\n\n**节点** - 集群节点\n"

// testEnv sets up a temp workspace with project "demo", an index, the
// service and the router.
func testEnv(t *testing.T) (*docservice.Service, http.Handler) {
	t.Helper()
	ws := testutil.TestWorkspace(t)
	db := testutil.TestDB(t)
	testutil.TestProject(t, ws, "demo", map[string]string{
		"index.bkn":         indexDoc,
		"entities/node.bkn": nodeDoc,
	})
	if err := index.Sync(db, ws, testutil.Logger()); err != nil {
		t.Fatalf("Sync: %v", err)
	}
	svc := docservice.NewService(ws, db, testutil.Logger())
	return svc, NewRouter(svc, nil)
}

func do(t *testing.T, h http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, target, &buf)
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %s: %v", w.Body.String(), err)
	}
	return v
}

func TestProjects(t *testing.T) {
	_, router := testEnv(t)

	w := do(t, router, http.MethodPost, "/projects", map[string]string{"id": "second", "name": "Second"})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodPost, "/projects", map[string]string{"id": "second", "name": "Again"})
	if w.Code != http.StatusConflict {
		t.Fatalf("duplicate status = %d", w.Code)
	}

	w = do(t, router, http.MethodPost, "/projects", map[string]string{"id": "x"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing name status = %d", w.Code)
	}

	w = do(t, router, http.MethodGet, "/projects", nil)
	list := decode[ProjectListResponse](t, w)
	if len(list.Projects) != 2 {
		t.Fatalf("projects = %d, want 2", len(list.Projects))
	}

	w = do(t, router, http.MethodGet, "/projects/second", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}

	w = do(t, router, http.MethodDelete, "/projects/second", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/projects/second/documents", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("deleted project status = %d", w.Code)
	}
}

func TestCreateAndGetDocument(t *testing.T) {
	_, router := testEnv(t)

	content := "## Entity: service\n\n**服务** - 服务入口\n"
	w := do(t, router, http.MethodPost, "/projects/demo/documents", map[string]string{"path": "entities/service.md", "content": content})
	if w.Code != http.StatusCreated {
		t.Fatalf("create status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/projects/demo/documents/entities/service.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("get status = %d", w.Code)
	}
	doc := decode[DocumentDetail](t, w)
	if doc.Content != content {
		t.Errorf("content = %q", doc.Content)
	}
	if len(doc.Records) != 1 || doc.Records[0].Name != "服务" {
		t.Errorf("records = %+v", doc.Records)
	}
	if got := w.Header().Get("ETag"); got != `"`+checksum.Sum([]byte(content))+`"` {
		t.Errorf("etag = %q", got)
	}

	// Encoded slashes resolve to the same document.
	w = do(t, router, http.MethodGet, "/projects/demo/documents/entities%2Fservice.md", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("encoded get status = %d", w.Code)
	}
}

func TestCreateDocument_Errors(t *testing.T) {
	_, router := testEnv(t)

	cases := []struct {
		name string
		body any
		want int
	}{
		{"missing content", map[string]string{"path": "a.bkn"}, http.StatusBadRequest},
		{"not a document", map[string]string{"path": "a.txt", "content": "x"}, http.StatusBadRequest},
		{"escapes root", map[string]string{"path": "../a.bkn", "content": "x"}, http.StatusBadRequest},
		{"exists", map[string]string{"path": "index.bkn", "content": "x"}, http.StatusConflict},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := do(t, router, http.MethodPost, "/projects/demo/documents", tc.body)
			if w.Code != tc.want {
				t.Fatalf("status = %d, want %d, body = %s", w.Code, tc.want, w.Body.String())
			}
		})
	}

	w := do(t, router, http.MethodPost, "/projects/nope/documents", map[string]string{"path": "a.bkn", "content": "x"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("unknown project status = %d", w.Code)
	}
}

func TestUpdateDocument_IfMatch(t *testing.T) {
	_, router := testEnv(t)

	stale := httptest.NewRequest(http.MethodPut, "/projects/demo/documents/entities/node.bkn",
		strings.NewReader(`{"content":"## Entity: node\n"}`))
	stale.Header.Set("If-Match", `"deadbeef"`)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, stale)
	if w.Code != http.StatusConflict {
		t.Fatalf("stale status = %d", w.Code)
	}

	fresh := httptest.NewRequest(http.MethodPut, "/projects/demo/documents/entities/node.bkn",
		strings.NewReader(`{"content":"## Entity: node\n"}`))
	fresh.Header.Set("If-Match", `"`+checksum.Sum([]byte(nodeDoc))+`"`)
	w = httptest.NewRecorder()
	router.ServeHTTP(w, fresh)
	if w.Code != http.StatusOK {
		t.Fatalf("fresh status = %d, body = %s", w.Code, w.Body.String())
	}

	w = do(t, router, http.MethodPut, "/projects/demo/documents/missing.bkn", map[string]string{"content": "x"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("missing status = %d", w.Code)
	}
}

func TestDeleteAndMoveDocument(t *testing.T) {
	_, router := testEnv(t)

	w := do(t, router, http.MethodPost, "/projects/demo/move", MoveDocumentRequest{From: "entities/node.bkn", To: "node.bkn"})
	if w.Code != http.StatusOK {
		t.Fatalf("move status = %d, body = %s", w.Code, w.Body.String())
	}
	w = do(t, router, http.MethodGet, "/projects/demo/documents/entities/node.bkn", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("old path status = %d", w.Code)
	}

	w = do(t, router, http.MethodDelete, "/projects/demo/documents/node.bkn", nil)
	if w.Code != http.StatusNoContent {
		t.Fatalf("delete status = %d", w.Code)
	}
	w = do(t, router, http.MethodDelete, "/projects/demo/documents/node.bkn", nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("second delete status = %d", w.Code)
	}
}

func TestListDocumentsAndRecords(t *testing.T) {
	_, router := testEnv(t)

	w := do(t, router, http.MethodGet, "/projects/demo/documents", nil)
	list := decode[DocumentListResponse](t, w)
	if list.Total != 2 {
		t.Fatalf("total = %d, want 2", list.Total)
	}

	w = do(t, router, http.MethodGet, "/projects/demo/documents?type=entity", nil)
	list = decode[DocumentListResponse](t, w)
	if list.Total != 1 || list.Documents[0].Path != "entities/node.bkn" {
		t.Fatalf("entity docs = %+v", list.Documents)
	}

	w = do(t, router, http.MethodGet, "/projects/demo/records?kind=relation", nil)
	recs := decode[RecordListResponse](t, w)
	if len(recs.Records) != 1 || recs.Records[0].Ref != "pod->node" {
		t.Fatalf("records = %+v", recs.Records)
	}

	w = do(t, router, http.MethodGet, "/projects/demo/search", nil)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("search without q status = %d", w.Code)
	}
}

func TestNetworkEndpoints(t *testing.T) {
	_, router := testEnv(t)

	w := do(t, router, http.MethodGet, "/projects/demo/network", nil)
	n := decode[bkn.Network](t, w)
	if n.ID != "k8s" || len(n.Entities) != 2 || len(n.Relations) != 1 {
		t.Fatalf("network = %s", w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/projects/demo/export", nil)
	if got := w.Header().Get("Content-Disposition"); got != `attachment; filename="k8s.json"` {
		t.Errorf("disposition = %q", got)
	}
	if strings.Contains(w.Body.String(), `"files"`) {
		t.Errorf("export carries file contents")
	}

	w = do(t, router, http.MethodGet, "/projects/demo/graph", nil)
	g := decode[graph.Graph](t, w)
	if len(g.Nodes) != 2 || len(g.Edges) != 1 {
		t.Fatalf("graph nodes = %d, edges = %d", len(g.Nodes), len(g.Edges))
	}

	w = do(t, router, http.MethodGet, "/projects/demo/diagnostics", nil)
	diags := decode[DiagnosticsResponse](t, w)
	if len(diags.Diagnostics) != 0 {
		t.Errorf("diagnostics = %+v", diags.Diagnostics)
	}

	w = do(t, router, http.MethodGet, "/projects/demo/preview/entities/node.bkn", nil)
	prev := decode[PreviewResponse](t, w)
	if !strings.Contains(prev.HTML, "<strong>节点</strong>") {
		t.Errorf("preview = %q", prev.HTML)
	}
}

func TestParse(t *testing.T) {
	_, router := testEnv(t)

	w := do(t, router, http.MethodPost, "/parse", ParseRequest{
		Files: map[string]string{
			"b.bkn": "---\ntype: network\nid: from-b\n---\n",
			"a.bkn": "---\ntype: entity\nid: a\nnetwork: from-a\n---\n",
		},
	})
	n := decode[bkn.Network](t, w)
	if n.ID != "from-b" {
		t.Errorf("network id = %q, want from-b", n.ID)
	}
	if len(n.Files) != 2 || n.Files[0].Path != "a.bkn" {
		t.Errorf("files = %+v", n.Files)
	}

	order := parseOrder(ParseRequest{
		Files: map[string]string{"a": "", "b": "", "c": ""},
		Order: []string{"c", "missing", "c"},
	})
	if strings.Join(order, ",") != "c,a,b" {
		t.Errorf("order = %v", order)
	}
}

func TestImportDocument(t *testing.T) {
	_, router := testEnv(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", `C:\exports\gb.bkn`)
	if err != nil {
		t.Fatal(err)
	}
	// "节点" in GB18030.
	fw.Write(append(append([]byte("## Entity: gb\n\n**"), 0xBD, 0xDA, 0xB5, 0xE3), []byte("** - x\n")...))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/projects/demo/import", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusCreated {
		t.Fatalf("import status = %d, body = %s", w.Code, w.Body.String())
	}
	res := decode[ImportResponse](t, w)
	if res.Encoding != "gb18030" {
		t.Errorf("encoding = %q", res.Encoding)
	}
	if res.Document.Path != "gb.bkn" || !strings.Contains(res.Document.Content, "**节点**") {
		t.Errorf("document = %+v", res.Document)
	}

	req = httptest.NewRequest(http.MethodPost, "/projects/demo/import", strings.NewReader("plain"))
	w = httptest.NewRecorder()
	router.ServeHTTP(w, req)
	if w.Code != http.StatusBadRequest {
		t.Fatalf("non-multipart status = %d", w.Code)
	}
}

func TestGenerate(t *testing.T) {
	svc, router := testEnv(t)

	w := do(t, router, http.MethodPost, "/projects/demo/generate", map[string]string{"prompt": "  "})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("empty prompt status = %d", w.Code)
	}

	w = do(t, router, http.MethodPost, "/projects/demo/generate", map[string]string{"prompt": "x", "saveAs": "notes.txt"})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("bad saveAs status = %d", w.Code)
	}

	w = do(t, router, http.MethodPost, "/projects/demo/generate", map[string]string{"prompt": "生成一个实体", "saveAs": "entities/new.bkn"})
	if w.Code != http.StatusOK {
		t.Fatalf("generate status = %d, body = %s", w.Code, w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("content type = %q", ct)
	}
	if !strings.Contains(w.Body.String(), "## Entity: new_entity") {
		t.Errorf("body = %q", w.Body.String())
	}

	doc, err := svc.GetDocument(t.Context(), "demo", "entities/new.bkn")
	if err != nil {
		t.Fatalf("saved document: %v", err)
	}
	if doc.Content != w.Body.String() {
		t.Errorf("saved content differs from streamed body")
	}
}

func TestReferenceEndpoints(t *testing.T) {
	_, router := testEnv(t)

	w := do(t, router, http.MethodGet, "/format", nil)
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "text/markdown") || w.Body.String() != bkn.FormatContract {
		t.Errorf("format response mismatch")
	}

	w = do(t, router, http.MethodGet, "/datasources", nil)
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "pod_info_view") {
		t.Errorf("datasources = %s", w.Body.String())
	}

	w = do(t, router, http.MethodGet, "/datasources/node_info_view", nil)
	if w.Code != http.StatusOK {
		t.Errorf("lookup by name status = %d", w.Code)
	}
	w = do(t, router, http.MethodGet, "/datasources/unknown", nil)
	if w.Code != http.StatusNotFound {
		t.Errorf("unknown source status = %d", w.Code)
	}

	w = do(t, router, http.MethodPost, "/preview", PreviewRequest{Content: "---\ntype: fragment\n---\n| a | b |\n|---|---|\n| 1 | 2 |\n"})
	prev := decode[PreviewResponse](t, w)
	if !strings.Contains(prev.HTML, "<table>") || strings.Contains(prev.HTML, "type: fragment") {
		t.Errorf("preview = %q", prev.HTML)
	}
}
