package action

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"

	"actioncore/internal/condition"
	"actioncore/internal/config"
	"actioncore/internal/logger"
)

var errNotFound = errors.New("not found")

type memoryRepo struct {
	actions []condition.Action
	err     error
}

func (r *memoryRepo) ListBySource(_ context.Context, source condition.EventSource) ([]condition.Action, error) {
	if r.err != nil {
		return nil, r.err
	}
	var out []condition.Action
	for _, a := range r.actions {
		if a.EventSource == source {
			out = append(out, a)
		}
	}
	return out, nil
}

func (r *memoryRepo) Get(_ context.Context, id uint64) (condition.Action, error) {
	for _, a := range r.actions {
		if a.ID == id {
			return a, nil
		}
	}
	return condition.Action{}, errNotFound
}

type memoryStore map[condition.Category]map[uint64]condition.Entity

func (s memoryStore) Get(_ context.Context, category condition.Category, ids []uint64) (map[uint64]condition.Entity, error) {
	out := make(map[uint64]condition.Entity)
	for _, id := range ids {
		if e, ok := s[category][id]; ok {
			out[id] = e
		}
	}
	return out, nil
}

type memorySink struct {
	records []Record
	err     error
}

func (s *memorySink) Name() string { return "memory" }

func (s *memorySink) Record(_ context.Context, rec Record) error {
	s.records = append(s.records, rec)
	return s.err
}

func fixtures() (*memoryRepo, memoryStore) {
	repo := &memoryRepo{actions: []condition.Action{
		{
			ID:          1,
			Name:        "Page on-call",
			EventSource: condition.EventSourceTriggers,
			EvalType:    condition.EvalAndOr,
			Conditions: []condition.Condition{
				{Type: condition.TypeHostGroup, Operator: condition.OperatorEqual, Value: "2"},
				{Type: condition.TypeTriggerSeverity, Operator: condition.OperatorMoreEqual, Value: "4"},
			},
			Operations: []condition.Operation{
				{EscStepFrom: 1, EscStepTo: 1, EscPeriod: "0"},
				{EscStepFrom: 2, EscStepTo: 2, EscPeriod: "{$ESC}"},
			},
		},
		{
			ID:          2,
			Name:        "Mail disk",
			EventSource: condition.EventSourceTriggers,
			EvalType:    condition.EvalAnd,
			EscPeriod:   "10m",
			Conditions: []condition.Condition{
				{Type: condition.TypeTriggerName, Operator: condition.OperatorLike, Value: "disk"},
			},
		},
		{
			ID:          3,
			Name:        "Register agents",
			EventSource: condition.EventSourceAutoRegistration,
		},
	}}
	store := memoryStore{
		condition.CategoryHostGroup: {2: {ID: 2, Name: "Linux servers"}},
	}
	return repo, store
}

func newTestService(t *testing.T, sinks ...Sink) *Service {
	repo, store := fixtures()
	esc := config.EscalationConfig{DefaultPeriod: "1h", Macros: map[string]string{"{$ESC}": "5m"}}
	svc := NewService(repo, store, nil, esc, zaptest.NewLogger(t), sinks...)
	svc.now = func() time.Time { return time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestListActions_Describes(t *testing.T) {
	svc := newTestService(t)

	views, err := svc.ListActions(context.Background(), condition.EventSourceTriggers)
	require.NoError(t, err)
	require.Len(t, views, 2)

	first := views[0]
	assert.Equal(t, "Page on-call", first.Name)
	require.Len(t, first.Conditions, 2)
	assert.Equal(t, "Linux servers", first.Conditions[0].DisplayValue)
	assert.Equal(t, "Host group equals Linux servers", first.Conditions[0].Text)
	assert.Equal(t, "Trigger severity is greater than or equals High", first.Conditions[1].Text)
}

func TestEvaluate_MatchesAndRecords(t *testing.T) {
	sink := &memorySink{}
	svc := newTestService(t, sink)

	result, err := svc.Evaluate(context.Background(), condition.Event{
		Source:       condition.EventSourceTriggers,
		HostGroupIDs: []uint64{2},
		Severity:     5,
		TriggerName:  "CPU is too high",
	})
	require.NoError(t, err)

	assert.Equal(t, 2, result.Evaluated)
	require.Len(t, result.Matches, 1)
	match := result.Matches[0]
	assert.Equal(t, uint64(1), match.ActionID)
	assert.Equal(t, int64(3600), *match.Delays[2])
	assert.Equal(t, int64(3900), *match.Delays[3])

	require.Len(t, sink.records, 2)
	assert.True(t, sink.records[0].Matched)
	assert.False(t, sink.records[1].Matched)
	assert.Nil(t, sink.records[1].Delays)
	assert.Equal(t, time.Date(2026, 10, 14, 10, 0, 0, 0, time.UTC), sink.records[0].Time)
}

func TestEvaluate_SinkErrorDoesNotFail(t *testing.T) {
	sink := &memorySink{err: errors.New("disk full")}
	svc := newTestService(t, sink)

	result, err := svc.Evaluate(context.Background(), condition.Event{Source: condition.EventSourceAutoRegistration})
	require.NoError(t, err)
	require.Len(t, result.Matches, 1)
	assert.Equal(t, "Register agents", result.Matches[0].Name)
	assert.Len(t, sink.records, 1)
}

func TestEvaluate_RepositoryError(t *testing.T) {
	repo, store := fixtures()
	repo.err = errors.New("db down")
	svc := NewService(repo, store, nil, config.EscalationConfig{DefaultPeriod: "1h"}, nil)

	_, err := svc.Evaluate(context.Background(), condition.Event{})
	assert.Error(t, err)
}

func TestEscalations_UsesActionPeriod(t *testing.T) {
	svc := newTestService(t)

	delays, err := svc.Escalations(context.Background(), 2)
	require.NoError(t, err)
	assert.Equal(t, int64(0), *delays[1])
	assert.Len(t, delays, 1)

	_, err = svc.Escalations(context.Background(), 42)
	assert.ErrorIs(t, err, errNotFound)
}

func TestFileSink_WritesAuditLog(t *testing.T) {
	sink, err := NewFileSink(t.TempDir())
	require.NoError(t, err)
	svc := newTestService(t, sink)

	_, err = svc.Evaluate(context.Background(), condition.Event{
		Source:      condition.EventSourceTriggers,
		TriggerID:   100,
		TriggerName: "Free disk space is low",
	})
	require.NoError(t, err)

	start := time.Date(2026, 10, 14, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	logs, err := logger.QueryEvaluationLogs(sink.Dir(), &logger.LogQueryRequest{StartTime: &start, EndTime: &end})
	require.NoError(t, err)
	require.Equal(t, 2, logs.Total)

	byAction := map[uint64]bool{}
	for _, l := range logs.Logs {
		byAction[l.ActionID] = l.Matched
	}
	assert.Equal(t, map[uint64]bool{1: false, 2: true}, byAction)
}

func TestDescribeConditions(t *testing.T) {
	svc := newTestService(t)

	views, err := svc.DescribeConditions(context.Background(), []condition.Condition{
		{Type: condition.TypeHostGroup, Operator: condition.OperatorNotEqual, Value: "2"},
		{Type: condition.TypeHostGroup, Operator: condition.OperatorEqual, Value: "99"},
	})
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, "Host group does not equal Linux servers", views[0].Text)
	assert.Equal(t, condition.UnknownLabel, views[1].DisplayValue)
}
