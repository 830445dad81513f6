package generate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/starford/bkn/internal/bkn"
	"github.com/starford/bkn/internal/datasource"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(io.Discard, nil))
}

func sseServer(t *testing.T, chunks ...string) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		w.Header().Set("Content-Type", "text/event-stream")
		for _, c := range chunks {
			fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":%q}}]}\n\n", c)
		}
		fmt.Fprint(w, "data: [DONE]\n\n")
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestBuildSystemPrompt(t *testing.T) {
	p, err := BuildSystemPrompt(bkn.FormatContract, Context{
		DataSourcesSummary: "### pod_info_view",
		ExistingFiles:      map[string]string{"b.bkn": "B", "a.bkn": "A"},
		CurrentFile:        "CUR",
	})
	require.NoError(t, err)
	assert.Contains(t, p, "## Available Data Sources\n\n### pod_info_view")
	assert.Contains(t, p, "## File: a.bkn\n```markdown\nA\n```")
	assert.Less(t, strings.Index(p, "## File: a.bkn"), strings.Index(p, "## File: b.bkn"))
	assert.Contains(t, p, "## Current File Being Edited\n```markdown\nCUR\n```")
	assert.Contains(t, p, "## Entity")

	p, err = BuildSystemPrompt("", Context{})
	require.NoError(t, err)
	assert.NotContains(t, p, "Current File Being Edited")
}

func TestResolveMentions(t *testing.T) {
	files := map[string]string{"entities/pod.bkn": "POD"}
	out := ResolveMentions("参考 @entities/pod.bkn 和 @d2mio43q6gt6p380disg 以及 @unknown", files, datasource.Default())

	assert.Contains(t, out, "[文件: entities/pod.bkn]\n```markdown\nPOD\n```")
	assert.Contains(t, out, "[数据来源: node_info_view]\nNode 节点信息视图")
	assert.Contains(t, out, "字段:\n  - id (int64): 主键ID")
	assert.Contains(t, out, "@unknown")

	assert.Contains(t, ResolveMentions("@pod_info_view", nil, datasource.Default()), "[数据来源: pod_info_view]")
	assert.Equal(t, "@x", ResolveMentions("@x", nil, nil))
}

func TestFallback(t *testing.T) {
	cases := map[string]string{
		"帮我创建一个新的实体类":   "id: new_entity",
		"create a Relation": "id: new_relation",
		"新建行动":          "id: new_action",
		"随便写点什么":        "id: generated_entity",
	}
	for prompt, want := range cases {
		assert.Contains(t, Fallback(prompt), want, prompt)
	}

	// Every canned document parses to exactly one record.
	for _, prompt := range []string{"实体", "关系", "行动", ""} {
		doc := bkn.ReadDocument("f.bkn", Fallback(prompt))
		n := bkn.Assemble([]bkn.Document{doc})
		assert.Equal(t, 1, len(n.Entities)+len(n.Relations)+len(n.Actions), prompt)
		assert.Empty(t, n.Diagnostics, prompt)
	}
}

func TestOpenAIClient_Stream(t *testing.T) {
	ts := sseServer(t, "---\n", "type: entity")
	c := NewOpenAIClient(ClientConfig{Endpoint: ts.URL, APIKey: "key", Timeout: 5 * time.Second})

	var got []string
	err := c.Stream(context.Background(), []Message{{Role: "user", Content: "x"}}, func(s string) error {
		got = append(got, s)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"---\n", "type: entity"}, got)
	assert.Equal(t, "gpt-4o-mini", c.Model)
}

func TestOpenAIClient_NotConfigured(t *testing.T) {
	c := NewOpenAIClient(ClientConfig{})
	assert.Equal(t, DefaultEndpoint, c.Endpoint)
	err := c.Stream(context.Background(), nil, func(string) error { return nil })
	assert.ErrorIs(t, err, ErrNotConfigured)
}

func TestOpenAIClient_Errors(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer ts.Close()

	c := NewOpenAIClient(ClientConfig{Endpoint: ts.URL, APIKey: "key"})
	err := c.Stream(context.Background(), nil, func(string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "401")
	assert.Contains(t, err.Error(), "bad key")
}

func TestOpenAIClient_RetriesOn429(t *testing.T) {
	old := RetryBaseDelay
	RetryBaseDelay = time.Millisecond
	t.Cleanup(func() { RetryBaseDelay = old })

	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.Contains(t, string(body), `"stream":true`)
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		fmt.Fprint(w, "data: {\"choices\":[{\"delta\":{\"content\":\"ok\"}}]}\n\ndata: [DONE]\n\n")
	}))
	defer ts.Close()

	c := NewOpenAIClient(ClientConfig{Endpoint: ts.URL, APIKey: "key", MaxRetries: 5})
	var out strings.Builder
	err := c.Stream(context.Background(), nil, func(s string) error {
		out.WriteString(s)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", out.String())
	assert.Equal(t, int32(3), calls.Load())
}

type fakeClient struct {
	chunks []string
	err    error
}

func (f fakeClient) Stream(_ context.Context, _ []Message, emit func(string) error) error {
	for _, c := range f.chunks {
		if err := emit(c); err != nil {
			return err
		}
	}
	return f.err
}

func TestGenerator_Model(t *testing.T) {
	ts := sseServer(t, "hello ", "world")
	g := New(NewOpenAIClient(ClientConfig{Endpoint: ts.URL, APIKey: "key"}), nil, discardLogger())

	var streamed strings.Builder
	res, err := g.Generate(context.Background(), Request{Prompt: "entity"}, func(s string) error {
		streamed.WriteString(s)
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, "hello world", res.Text)
	assert.Equal(t, res.Text, streamed.String())
	assert.False(t, res.Fallback)
	assert.NotEmpty(t, res.ID)
}

func TestGenerator_EmptyPrompt(t *testing.T) {
	_, err := New(nil, nil, discardLogger()).Generate(context.Background(), Request{Prompt: "  "}, func(string) error { return nil })
	assert.ErrorIs(t, err, ErrEmptyPrompt)
}

func TestGenerator_Fallback(t *testing.T) {
	for name, client := range map[string]Client{
		"no client":    nil,
		"unconfigured": NewOpenAIClient(ClientConfig{}),
		"failure":      fakeClient{err: errors.New("boom")},
	} {
		t.Run(name, func(t *testing.T) {
			var streamed strings.Builder
			res, err := New(client, nil, discardLogger()).Generate(context.Background(), Request{Prompt: "新建关系"}, func(s string) error {
				streamed.WriteString(s)
				return nil
			})
			require.NoError(t, err)
			assert.True(t, res.Fallback)
			assert.Equal(t, Fallback("新建关系"), res.Text)
			assert.Equal(t, res.Text, streamed.String())
		})
	}
}

func TestGenerator_InterruptedStream(t *testing.T) {
	g := New(fakeClient{chunks: []string{"partial"}, err: errors.New("reset")}, nil, discardLogger())
	_, err := g.Generate(context.Background(), Request{Prompt: "x"}, func(string) error { return nil })
	require.Error(t, err)
	assert.Contains(t, err.Error(), "stream interrupted")
}

func TestGenerator_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	g := New(nil, nil, discardLogger())

	n := 0
	_, err := g.Generate(ctx, Request{Prompt: "实体"}, func(string) error {
		n++
		if n == 2 {
			cancel()
		}
		return nil
	})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, n)
}
