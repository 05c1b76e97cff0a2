package elasticsearch

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"

	"actioncore/internal/config"
	"actioncore/internal/logger"
)

type recordedRequest struct {
	method string
	path   string
	body   map[string]interface{}
}

type fakeES struct {
	mu       sync.Mutex
	requests []recordedRequest
}

func (f *fakeES) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		var body map[string]interface{}
		if len(raw) > 0 {
			_ = json.Unmarshal(raw, &body)
		}
		f.mu.Lock()
		f.requests = append(f.requests, recordedRequest{method: r.Method, path: r.URL.Path, body: body})
		f.mu.Unlock()

		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		w.Header().Set("Content-Type", "application/json")

		switch {
		case r.URL.Path == "/":
			_, _ = io.WriteString(w, `{"version":{"number":"8.19.0"},"tagline":"You Know, for Search"}`)
		case strings.HasSuffix(r.URL.Path, "/_doc"):
			w.WriteHeader(http.StatusCreated)
			_, _ = io.WriteString(w, `{"result":"created"}`)
		case strings.HasSuffix(r.URL.Path, "/_search"):
			_, _ = io.WriteString(w, `{"hits":{"total":{"value":1},"hits":[{"_source":{"action_id":7,"action_name":"page","matched":true,"@timestamp":"2026-10-14T10:00:00Z"}}]}}`)
		case strings.HasPrefix(r.URL.Path, "/_index_template/"):
			_, _ = io.WriteString(w, `{"acknowledged":true}`)
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = io.WriteString(w, `{}`)
		}
	}
}

func (f *fakeES) last() recordedRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

func newTestClient(t *testing.T) (*Client, *fakeES) {
	t.Helper()
	logger.Set(zaptest.NewLogger(t))
	t.Cleanup(func() { logger.Set(zap.NewNop()) })

	fake := &fakeES{}
	srv := httptest.NewServer(fake.handler())
	t.Cleanup(srv.Close)

	client, err := NewClient(config.ElasticsearchConfig{
		Enabled:     true,
		Addresses:   []string{srv.URL},
		IndexPrefix: "action-evaluations",
	})
	require.NoError(t, err)
	require.NotNil(t, client)
	return client, fake
}

func TestNewClient_Disabled(t *testing.T) {
	client, err := NewClient(config.ElasticsearchConfig{Enabled: false})
	require.NoError(t, err)
	assert.Nil(t, client)

	// a nil client swallows everything
	require.NoError(t, client.IndexEvaluation(context.Background(), &EvaluationEntry{}))
	result, err := client.SearchEvaluations(context.Background(), &SearchQuery{})
	require.NoError(t, err)
	assert.Empty(t, result.Hits)
	require.NoError(t, client.CreateIndexTemplate(context.Background()))
}

func TestIndexEvaluation_DailyIndex(t *testing.T) {
	client, fake := newTestClient(t)

	entry := &EvaluationEntry{
		ActionID:  7,
		Matched:   true,
		Timestamp: time.Date(2026, 10, 14, 23, 30, 0, 0, time.UTC),
	}
	entry.Event.TriggerName = "High CPU"
	require.NoError(t, client.IndexEvaluation(context.Background(), entry))

	req := fake.last()
	assert.Equal(t, "/action-evaluations-2026.10.14/_doc", req.path)
	assert.Equal(t, float64(7), req.body["action_id"])
	assert.Equal(t, "High CPU", req.body["event"].(map[string]interface{})["trigger_name"])
}

func TestSearchEvaluations(t *testing.T) {
	client, fake := newTestClient(t)

	actionID := uint64(7)
	matched := true
	result, err := client.SearchEvaluations(context.Background(), &SearchQuery{
		ActionID: &actionID,
		Matched:  &matched,
		Size:     500,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), result.Total)
	require.Len(t, result.Hits, 1)
	assert.Equal(t, "page", result.Hits[0].ActionName)

	req := fake.last()
	assert.Equal(t, "/action-evaluations-*/_search", req.path)
	assert.Equal(t, float64(100), req.body["size"])
	must := req.body["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"].([]interface{})
	assert.Len(t, must, 2)
}

func TestBuildSearchBody(t *testing.T) {
	start := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	body := buildSearchBody(&SearchQuery{StartTime: &start, QueryText: "cpu"})

	assert.Equal(t, 20, body["size"])
	must := body["query"].(map[string]interface{})["bool"].(map[string]interface{})["must"].([]map[string]interface{})
	require.Len(t, must, 2)
	assert.Equal(t, map[string]interface{}{"gte": "2026-10-01T00:00:00Z"},
		must[0]["range"].(map[string]interface{})["@timestamp"])
}

func TestCreateIndexTemplate(t *testing.T) {
	client, fake := newTestClient(t)

	require.NoError(t, client.CreateIndexTemplate(context.Background()))
	req := fake.last()
	assert.Equal(t, http.MethodPut, req.method)
	assert.Equal(t, "/_index_template/action-evaluations-template", req.path)
	assert.Equal(t, []interface{}{"action-evaluations-*"}, req.body["index_patterns"])
}
