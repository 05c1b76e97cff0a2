package server

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"actioncore/internal/action"
	"actioncore/internal/condition"
	"actioncore/internal/config"
	"actioncore/internal/database"
	"actioncore/internal/models"
)

func newTestServer(t *testing.T, mutate func(*config.Config)) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.Open(database.Config{Driver: "sqlite", DBName: ":memory:", LogLevel: "silent"})
	require.NoError(t, err)
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})

	require.NoError(t, db.Create(&models.HostGroup{ID: 2, Name: "Linux servers"}).Error)
	repo := database.NewActionRepository(db)
	require.NoError(t, repo.Create(context.Background(), &models.Action{
		Name:        "Page on-call",
		EventSource: int(condition.EventSourceTriggers),
		EscPeriod:   "30m",
		Conditions: []models.ActionCondition{
			{ConditionType: int(condition.TypeHostGroup), Operator: int(condition.OperatorEqual), Value: "2"},
		},
		Operations: []models.ActionOperation{
			{EscStepFrom: 1, EscStepTo: 2, EscPeriod: "0"},
		},
	}))

	cfg := &config.Config{
		Logger:     config.LoggerConfig{AuditDir: t.TempDir()},
		Escalation: config.EscalationConfig{DefaultPeriod: "1h"},
	}
	if mutate != nil {
		mutate(cfg)
	}

	sink, err := action.NewFileSink(cfg.Logger.AuditDir)
	require.NoError(t, err)
	svc := action.NewService(repo, database.NewEntityStore(db, nil), nil, cfg.Escalation, zaptest.NewLogger(t), sink)

	s := NewServer(svc, nil, cfg)
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s
}

func doJSON(t *testing.T, s *Server, method, path string, body any) (int, map[string]any) {
	t.Helper()
	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	s.Router().ServeHTTP(w, req)

	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return w.Code, out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, nil)
	code, body := doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
	assert.Equal(t, "healthy", body["status"])
	assert.Equal(t, false, body["elasticsearch"])
}

func TestConditionOperators(t *testing.T) {
	s := newTestServer(t, nil)

	code, body := doJSON(t, s, http.MethodPost, "/api/v1/condition/operators", gin.H{"conditiontype": 0})
	require.Equal(t, http.StatusOK, code)
	operators := body["operators"].([]any)
	require.Len(t, operators, 2)
	assert.Equal(t, "equals", operators[0].(map[string]any)["label"])

	code, _ = doJSON(t, s, http.MethodPost, "/api/v1/condition/operators", gin.H{})
	assert.Equal(t, http.StatusBadRequest, code)

	code, body = doJSON(t, s, http.MethodPost, "/api/v1/condition/operators", gin.H{"conditiontype": 999})
	require.Equal(t, http.StatusOK, code)
	assert.Empty(t, body["operators"])
}

func TestConditionTypes(t *testing.T) {
	s := newTestServer(t, nil)

	code, body := doJSON(t, s, http.MethodPost, "/api/v1/condition/types", gin.H{"eventsource": 2})
	require.Equal(t, http.StatusOK, code)
	types := body["types"].([]any)
	require.Len(t, types, 3)
	assert.Equal(t, "Host name", types[0].(map[string]any)["label"])
}

func TestDescribeConditions(t *testing.T) {
	s := newTestServer(t, nil)

	code, body := doJSON(t, s, http.MethodPost, "/api/v1/condition/describe", gin.H{
		"conditions": []gin.H{{"conditiontype": 0, "operator": 1, "value": "2"}},
	})
	require.Equal(t, http.StatusOK, code)
	conditions := body["conditions"].([]any)
	require.Len(t, conditions, 1)
	assert.Equal(t, "Host group does not equal Linux servers", conditions[0].(map[string]any)["text"])
}

func TestActionListAndEvaluate(t *testing.T) {
	s := newTestServer(t, nil)

	code, body := doJSON(t, s, http.MethodPost, "/api/v1/action/list", gin.H{"eventsource": 0})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["total"])

	code, body = doJSON(t, s, http.MethodPost, "/api/v1/action/evaluate", gin.H{
		"source":        0,
		"hostgroup_ids": []int{2},
		"trigger_name":  "High CPU",
	})
	require.Equal(t, http.StatusOK, code)
	matches := body["matches"].([]any)
	require.Len(t, matches, 1)
	match := matches[0].(map[string]any)
	assert.Equal(t, "Page on-call", match["name"])
	assert.Equal(t, map[string]any{"1": float64(0), "2": float64(1800)}, match["delays"])

	code, body = doJSON(t, s, http.MethodPost, "/api/v1/audit/search", gin.H{"matched": true})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, float64(1), body["total"])
}

func TestActionEscalation(t *testing.T) {
	s := newTestServer(t, nil)

	code, body := doJSON(t, s, http.MethodPost, "/api/v1/action/escalation", gin.H{"actionid": 1})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, map[string]any{"1": float64(0), "2": float64(1800)}, body["delays"])

	code, _ = doJSON(t, s, http.MethodPost, "/api/v1/action/escalation", gin.H{"actionid": 42})
	assert.Equal(t, http.StatusNotFound, code)
}

func TestExpressionTree(t *testing.T) {
	s := newTestServer(t, nil)

	code, body := doJSON(t, s, http.MethodPost, "/api/v1/expression/tree", gin.H{
		"expression": "last(/h/a)=1 or last(/h/b)=2",
	})
	require.Equal(t, http.StatusOK, code)
	tree := body["tree"].(map[string]any)
	assert.Equal(t, "operator", tree["type"])
	assert.Equal(t, "or", tree["operator"])
	assert.Len(t, tree["elements"], 2)
	assert.Len(t, body["outline"], 3)

	code, body = doJSON(t, s, http.MethodPost, "/api/v1/expression/tree", gin.H{"expression": "last(/h/a)=1 or"})
	assert.Equal(t, http.StatusBadRequest, code)
	assert.Contains(t, body, "position")
}

func TestExpressionEdit(t *testing.T) {
	s := newTestServer(t, nil)

	code, body := doJSON(t, s, http.MethodPost, "/api/v1/expression/edit", gin.H{
		"expression": "last(/h/a)=1 or last(/h/b)=2",
		"id":         "16_27",
		"action":     "R",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, true, body["found"])
	assert.Equal(t, "last(/h/a)=1", body["expression"])

	code, body = doJSON(t, s, http.MethodPost, "/api/v1/expression/edit", gin.H{
		"expression": "last(/h/a)=1",
		"id":         "5_6",
		"action":     "r",
		"text":       "last(/h/c)=3",
	})
	require.Equal(t, http.StatusOK, code)
	assert.Equal(t, false, body["found"])

	code, _ = doJSON(t, s, http.MethodPost, "/api/v1/expression/edit", gin.H{
		"expression": "last(/h/a)=1",
		"id":         "0_11",
		"action":     "x",
	})
	assert.Equal(t, http.StatusBadRequest, code)
}

func TestAuditSearch_Disabled(t *testing.T) {
	s := newTestServer(t, nil)
	s.auditDir = ""

	code, _ := doJSON(t, s, http.MethodPost, "/api/v1/audit/search", gin.H{})
	assert.Equal(t, http.StatusServiceUnavailable, code)
}

func TestGetConfig_MasksSecrets(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.Database.Password = "hunter2"
	})

	code, body := doJSON(t, s, http.MethodGet, "/api/v1/config", nil)
	require.Equal(t, http.StatusOK, code)
	db := body["config"].(map[string]any)["Database"].(map[string]any)
	assert.Equal(t, maskedSecret, db["Password"])
	assert.Equal(t, "hunter2", s.config.Database.Password)
}

func TestRateLimit(t *testing.T) {
	s := newTestServer(t, func(cfg *config.Config) {
		cfg.RateLimit = config.RateLimitConfig{Enabled: true, RequestsPerSecond: 0.001, Burst: 1, CleanupMinutes: 5}
	})

	code, _ := doJSON(t, s, http.MethodPost, "/api/v1/condition/types", gin.H{})
	assert.Equal(t, http.StatusOK, code)
	code, _ = doJSON(t, s, http.MethodPost, "/api/v1/condition/types", gin.H{})
	assert.Equal(t, http.StatusTooManyRequests, code)

	// health is outside the limited group
	code, _ = doJSON(t, s, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, code)
}
