package elasticsearch

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"go.uber.org/zap"

	"actioncore/internal/config"
	"actioncore/internal/logger"
)

// EvaluationEntry 动作评估记录
type EvaluationEntry struct {
	ActionID    uint64         `json:"action_id"`
	ActionName  string         `json:"action_name"`
	EventSource int            `json:"event_source"`
	EvalType    int            `json:"eval_type"`
	Matched     bool           `json:"matched"`
	Message     string         `json:"message"`
	Conditions  []string       `json:"conditions,omitempty"`
	Delays      map[int]*int64 `json:"delays,omitempty"`
	Timestamp   time.Time      `json:"@timestamp"`

	// 触发事件的关键字段
	Event struct {
		TriggerID   uint64 `json:"trigger_id,omitempty"`
		TriggerName string `json:"trigger_name,omitempty"`
		Severity    int    `json:"severity,omitempty"`
		HostName    string `json:"host_name,omitempty"`
		DHostIP     string `json:"dhost_ip,omitempty"`
		ServiceName string `json:"service_name,omitempty"`
	} `json:"event"`
}

type Client struct {
	es     *elasticsearch.Client
	config config.ElasticsearchConfig
	now    func() time.Time
}

// NewClient returns nil when Elasticsearch is disabled; every method of a nil client is a no-op.
func NewClient(cfg config.ElasticsearchConfig) (*Client, error) {
	if !cfg.Enabled {
		return nil, nil
	}

	es, err := elasticsearch.NewClient(elasticsearch.Config{
		Addresses: cfg.Addresses,
		Username:  cfg.Username,
		Password:  cfg.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create elasticsearch client: %w", err)
	}

	// 测试连接
	res, err := es.Info()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to elasticsearch: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch returned error: %s", res.String())
	}

	logger.Info("Elasticsearch client initialized", zap.Strings("addresses", cfg.Addresses))

	return &Client{es: es, config: cfg, now: time.Now}, nil
}

// indexName 按日期滚动的索引名
func (c *Client) indexName(t time.Time) string {
	return fmt.Sprintf("%s-%s", c.config.IndexPrefix, t.UTC().Format("2006.01.02"))
}

// IndexEvaluation stores one evaluation record.
func (c *Client) IndexEvaluation(ctx context.Context, entry *EvaluationEntry) error {
	if c == nil || c.es == nil {
		return nil
	}

	if entry.Timestamp.IsZero() {
		entry.Timestamp = c.now().UTC()
	}

	body, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal evaluation entry: %w", err)
	}

	req := esapi.IndexRequest{
		Index: c.indexName(entry.Timestamp),
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("failed to index evaluation: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return fmt.Errorf("elasticsearch indexing error: %s", res.String())
	}

	logger.Debug("Evaluation indexed",
		zap.String("index", c.indexName(entry.Timestamp)),
		zap.Uint64("action_id", entry.ActionID),
		zap.Bool("matched", entry.Matched))

	return nil
}

// SearchQuery 评估记录查询条件
type SearchQuery struct {
	ActionID    *uint64    `json:"action_id,omitempty"`
	EventSource *int       `json:"event_source,omitempty"`
	Matched     *bool      `json:"matched,omitempty"`
	StartTime   *time.Time `json:"start_time,omitempty"`
	EndTime     *time.Time `json:"end_time,omitempty"`
	QueryText   string     `json:"query_text,omitempty"`
	Size        int        `json:"size,omitempty"`
	From        int        `json:"from,omitempty"`
}

type SearchResult struct {
	Total int64             `json:"total"`
	Hits  []EvaluationEntry `json:"hits"`
}

// buildSearchBody 构建查询 DSL
func buildSearchBody(query *SearchQuery) map[string]interface{} {
	must := []map[string]interface{}{}

	if query.ActionID != nil {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"action_id": *query.ActionID},
		})
	}
	if query.EventSource != nil {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"event_source": *query.EventSource},
		})
	}
	if query.Matched != nil {
		must = append(must, map[string]interface{}{
			"term": map[string]interface{}{"matched": *query.Matched},
		})
	}

	if query.StartTime != nil || query.EndTime != nil {
		rangeQuery := map[string]interface{}{}
		if query.StartTime != nil {
			rangeQuery["gte"] = query.StartTime.Format(time.RFC3339)
		}
		if query.EndTime != nil {
			rangeQuery["lte"] = query.EndTime.Format(time.RFC3339)
		}
		must = append(must, map[string]interface{}{
			"range": map[string]interface{}{"@timestamp": rangeQuery},
		})
	}

	if query.QueryText != "" {
		must = append(must, map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query.QueryText,
				"fields": []string{"message", "action_name", "conditions", "event.trigger_name"},
			},
		})
	}

	size := query.Size
	if size <= 0 {
		size = 20
	}
	if size > 100 {
		size = 100 // 最大 100 条
	}

	return map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{"must": must},
		},
		"size": size,
		"from": query.From,
		"sort": []map[string]interface{}{
			{"@timestamp": map[string]interface{}{"order": "desc"}},
		},
	}
}

// SearchEvaluations searches every daily index of the prefix.
func (c *Client) SearchEvaluations(ctx context.Context, query *SearchQuery) (*SearchResult, error) {
	if c == nil || c.es == nil {
		return &SearchResult{Hits: []EvaluationEntry{}}, nil
	}

	body, err := json.Marshal(buildSearchBody(query))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal search query: %w", err)
	}

	req := esapi.SearchRequest{
		Index: []string{fmt.Sprintf("%s-*", c.config.IndexPrefix)},
		Body:  bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return nil, fmt.Errorf("failed to search evaluations: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, fmt.Errorf("elasticsearch search error: %s", res.String())
	}

	var response struct {
		Hits struct {
			Total struct {
				Value int64 `json:"value"`
			} `json:"total"`
			Hits []struct {
				Source EvaluationEntry `json:"_source"`
			} `json:"hits"`
		} `json:"hits"`
	}
	if err := json.NewDecoder(res.Body).Decode(&response); err != nil {
		return nil, fmt.Errorf("failed to parse search response: %w", err)
	}

	result := &SearchResult{
		Total: response.Hits.Total.Value,
		Hits:  make([]EvaluationEntry, 0, len(response.Hits.Hits)),
	}
	for _, hit := range response.Hits.Hits {
		result.Hits = append(result.Hits, hit.Source)
	}

	logger.Debug("Evaluation search completed",
		zap.Int64("total", result.Total), zap.Int("returned", len(result.Hits)))

	return result, nil
}

// CreateIndexTemplate 创建索引模板
func (c *Client) CreateIndexTemplate(ctx context.Context) error {
	if c == nil || c.es == nil {
		return nil
	}

	templateName := fmt.Sprintf("%s-template", c.config.IndexPrefix)

	template := map[string]interface{}{
		"index_patterns": []string{fmt.Sprintf("%s-*", c.config.IndexPrefix)},
		"template": map[string]interface{}{
			"settings": map[string]interface{}{
				"number_of_shards":   1,
				"number_of_replicas": 1,
				"refresh_interval":   "5s",
			},
			"mappings": map[string]interface{}{
				"properties": map[string]interface{}{
					"action_id":    map[string]string{"type": "long"},
					"action_name":  map[string]string{"type": "keyword"},
					"event_source": map[string]string{"type": "integer"},
					"eval_type":    map[string]string{"type": "integer"},
					"matched":      map[string]string{"type": "boolean"},
					"message":      map[string]string{"type": "text"},
					"conditions":   map[string]string{"type": "text"},
					"delays":       map[string]string{"type": "object"},
					"event":        map[string]string{"type": "object"},
					"@timestamp":   map[string]string{"type": "date"},
				},
			},
		},
	}

	body, err := json.Marshal(template)
	if err != nil {
		return fmt.Errorf("failed to marshal index template: %w", err)
	}

	req := esapi.IndicesPutIndexTemplateRequest{
		Name: templateName,
		Body: bytes.NewReader(body),
	}

	res, err := req.Do(ctx, c.es)
	if err != nil {
		return fmt.Errorf("failed to create index template: %w", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		logger.Warn("Failed to create index template", zap.String("response", res.String()))
	} else {
		logger.Info("Index template created", zap.String("name", templateName))
	}

	return nil
}
