package server

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"kb-agent/internal/bootstrap"
	"kb-agent/internal/config"
	"kb-agent/internal/pkg/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const kbResults = `{"results": [
	{"metadata": {"work_frbr_uri": "/akn/za-cpt/act/by-law/2010/animals", "portion_type": "provision", "portion_id": "sec_3", "portion_title": "3. Keeping of bees", "title": "Animal By-law", "expression_date": "2010-07-01", "public_url": "https://example.org/animals"}, "content": {"text": "No person may keep bees without a permit."}},
	{"metadata": {"work_frbr_uri": "/akn/za-cpt/act/by-law/2010/animals", "portion_type": "heading", "portion_id": "chp_1"}, "content": {"text": "Chapter 1"}}
]}`

type fakeUpstreams struct {
	mu        sync.Mutex
	kbStatus  int
	kbBodies  []map[string]interface{}
	chatCalls int
	kb        *httptest.Server
	ollama    *httptest.Server
}

func newFakeUpstreams(t *testing.T) *fakeUpstreams {
	f := &fakeUpstreams{kbStatus: http.StatusOK}

	f.kb = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/ai/v1/knowledge-bases/legislation-za-municipal/retrieve", r.URL.Path)
		assert.Equal(t, "Token test-token", r.Header.Get("Authorization"))

		var body map[string]interface{}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))

		f.mu.Lock()
		f.kbBodies = append(f.kbBodies, body)
		status := f.kbStatus
		f.mu.Unlock()

		w.WriteHeader(status)
		if status == http.StatusOK {
			_, _ = w.Write([]byte(kbResults))
		} else {
			_, _ = w.Write([]byte(`{"detail": "Invalid token."}`))
		}
	}))

	f.ollama = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Format string `json:"format"`
		}
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		f.mu.Lock()
		f.chatCalls++
		f.mu.Unlock()

		content := "You need a permit to keep bees (Animal By-law, section 3)."
		if req.Format == "json" {
			content = `{"search_query": "keeping of bees permit"}`
		}
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"model":   "llama3",
			"message": map[string]string{"role": "assistant", "content": content},
			"done":    true,
		})
	}))

	t.Cleanup(func() {
		f.kb.Close()
		f.ollama.Close()
	})
	return f
}

func newTestServer(t *testing.T, f *fakeUpstreams) *Server {
	cfg := &config.Config{
		App: config.AppConfig{Port: "0", Environment: "test", CorsAllowedOrigins: "*"},
		KB: config.KBConfig{
			BaseURL:      f.kb.URL,
			Name:         "legislation-za-municipal",
			APIToken:     "test-token",
			FRBRPlace:    "za-cpt",
			Jurisdiction: "Cape Town, South Africa",
		},
		Ai:    config.AIConfig{Model: "ollama/llama3", OllamaBaseURL: f.ollama.URL},
		Infra: config.InfraConfig{RunStore: "memory", RunTTL: time.Hour},
	}

	container, err := bootstrap.NewContainer(cfg, logger.NewNopLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Close() })

	return New(cfg, container)
}

type envelope struct {
	Success bool                   `json:"success"`
	Message string                 `json:"message"`
	Data    map[string]interface{} `json:"data"`
}

func call(t *testing.T, srv *Server, method, path, body string) (int, envelope) {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := srv.GetApp().Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out envelope
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return resp.StatusCode, out
}

func TestAskEndToEnd(t *testing.T) {
	f := newFakeUpstreams(t)
	srv := newTestServer(t, f)

	status, res := call(t, srv, http.MethodPost, "/api/ask/v1", `{"question": "Do I need a permit to keep bees?"}`)
	require.Equal(t, http.StatusOK, status, res.Message)

	assert.Equal(t, "ANSWERED", res.Data["stage"])
	assert.Equal(t, "keeping of bees permit", res.Data["search_query"])
	assert.Equal(t, float64(1), res.Data["document_count"])
	assert.Contains(t, res.Data["answer"], "permit to keep bees")
	assert.Equal(t, 2, f.chatCalls)

	require.Len(t, f.kbBodies, 1)
	assert.Equal(t, "keeping of bees permit", f.kbBodies[0]["text"])
	assert.Equal(t, "5", f.kbBodies[0]["top_k"])
	assert.Equal(t, map[string]interface{}{"principal": true, "repealed": false, "frbr_place": "za-cpt"}, f.kbBodies[0]["filters"])

	portions, ok := res.Data["document_portions"].([]interface{})
	require.True(t, ok)
	require.Len(t, portions, 1)
	assert.Contains(t, portions[0], `<portion id="sec_3" title="3. Keeping of bees">`)
	assert.NotContains(t, portions[0], "Chapter 1")

	runID, _ := res.Data["run_id"].(string)
	status, stored := call(t, srv, http.MethodGet, "/api/ask/v1/"+runID, "")
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, res.Data, stored.Data)

	// Asking again on an answered run does no further work.
	status, _ = call(t, srv, http.MethodPost, "/api/ask/v1", `{"run_id": "`+runID+`"}`)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, 2, f.chatCalls)
	assert.Len(t, f.kbBodies, 1)
}

func TestAskResumesAfterRetrievalFailure(t *testing.T) {
	f := newFakeUpstreams(t)
	f.kbStatus = http.StatusUnauthorized
	srv := newTestServer(t, f)

	status, res := call(t, srv, http.MethodPost, "/api/ask/v1", `{"question": "Do I need a permit to keep bees?"}`)
	require.Equal(t, http.StatusBadGateway, status)
	assert.False(t, res.Success)
	assert.Contains(t, res.Message, "401")
	assert.Equal(t, 1, f.chatCalls)

	// The planned query was checkpointed; resuming skips planning.
	runID := strings.Fields(strings.TrimPrefix(res.Message, "run "))[0]
	status, stored := call(t, srv, http.MethodGet, "/api/ask/v1/"+runID, "")
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "QUERY_PLANNED", stored.Data["stage"])

	f.mu.Lock()
	f.kbStatus = http.StatusOK
	f.mu.Unlock()

	status, res = call(t, srv, http.MethodPost, "/api/ask/v1", `{"run_id": "`+runID+`"}`)
	require.Equal(t, http.StatusOK, status, res.Message)
	assert.Equal(t, "ANSWERED", res.Data["stage"])
	assert.Equal(t, 2, f.chatCalls, "one planning call and one answer call in total")
	assert.Len(t, f.kbBodies, 2)
}

func TestUnknownRunIsNotFound(t *testing.T) {
	srv := newTestServer(t, newFakeUpstreams(t))

	status, res := call(t, srv, http.MethodGet, "/api/ask/v1/does-not-exist", "")
	assert.Equal(t, http.StatusNotFound, status)
	assert.False(t, res.Success)
}
