package condition

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	mu       sync.Mutex
	entities map[Category]map[uint64]Entity
	calls    map[Category][][]uint64
	err      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		entities: make(map[Category]map[uint64]Entity),
		calls:    make(map[Category][][]uint64),
	}
}

func (s *fakeStore) add(category Category, e Entity) {
	if s.entities[category] == nil {
		s.entities[category] = make(map[uint64]Entity)
	}
	s.entities[category][e.ID] = e
}

func (s *fakeStore) Get(_ context.Context, category Category, ids []uint64) (map[uint64]Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls[category] = append(s.calls[category], ids)
	if s.err != nil {
		return nil, s.err
	}
	result := make(map[uint64]Entity)
	for _, id := range ids {
		if e, ok := s.entities[category][id]; ok {
			result[id] = e
		}
	}
	return result, nil
}

func TestResolveValues_MissingIDsBecomeUnknown(t *testing.T) {
	store := newFakeStore()
	store.add(CategoryHostGroup, Entity{ID: 5, Name: "Linux servers"})

	actions := []Action{
		{Conditions: []Condition{{Type: TypeHostGroup, Operator: OperatorEqual, Value: "5"}}},
		{Conditions: []Condition{{Type: TypeHostGroup, Operator: OperatorEqual, Value: "7"}}},
	}

	values, err := ResolveValues(context.Background(), store, nil, actions)
	require.NoError(t, err)

	assert.Equal(t, [][]string{{"Linux servers"}, {UnknownLabel}}, values)
	assert.Equal(t, [][]uint64{{5, 7}}, store.calls[CategoryHostGroup])
}

func TestResolveValues_OneCallPerCategory(t *testing.T) {
	store := newFakeStore()
	store.add(CategoryHost, Entity{ID: 10, Name: "web01"})
	store.add(CategoryHost, Entity{ID: 11, Name: "web02"})
	store.add(CategoryTrigger, Entity{ID: 100, Name: "High CPU", Parent: "web01"})
	store.add(CategoryDCheck, Entity{ID: 3, Name: "HTTP (80)", Parent: "Local network"})

	actions := []Action{
		{Conditions: []Condition{
			{Type: TypeHost, Operator: OperatorEqual, Value: "10"},
			{Type: TypeTrigger, Operator: OperatorEqual, Value: "100"},
			{Type: TypeTriggerSeverity, Operator: OperatorMoreEqual, Value: "4"},
		}},
		{Conditions: []Condition{
			{Type: TypeHost, Operator: OperatorNotEqual, Value: "11"},
			{Type: TypeHost, Operator: OperatorEqual, Value: "10"},
			{Type: TypeDCheck, Operator: OperatorEqual, Value: "3"},
			{Type: TypeTriggerName, Operator: OperatorLike, Value: "disk"},
		}},
	}

	values, err := ResolveValues(context.Background(), store, nil, actions)
	require.NoError(t, err)

	assert.Equal(t, []string{"web01", "web01: High CPU", "High"}, values[0])
	assert.Equal(t, []string{"web02", "web01", "Local network: HTTP (80)", "disk"}, values[1])

	assert.Equal(t, [][]uint64{{10, 11}}, store.calls[CategoryHost])
	assert.Len(t, store.calls[CategoryTrigger], 1)
	assert.Len(t, store.calls[CategoryDCheck], 1)
	assert.Empty(t, store.calls[CategoryHostGroup])
}

func TestResolveValues_ScalarLabels(t *testing.T) {
	actions := []Action{{Conditions: []Condition{
		{Type: TypeDServiceType, Operator: OperatorEqual, Value: "4"},
		{Type: TypeDStatus, Operator: OperatorEqual, Value: "2"},
		{Type: TypeDObject, Operator: OperatorEqual, Value: "1"},
		{Type: TypeEventType, Operator: OperatorEqual, Value: "2"},
		{Type: TypeSuppressed, Operator: OperatorYes},
		{Type: TypeEventAcknowledged, Operator: OperatorEqual, Value: "1"},
		{Type: TypeTriggerSeverity, Operator: OperatorEqual, Value: "99"},
		{Type: TypeHost, Operator: OperatorEqual, Value: "not-a-number"},
	}}}

	values, err := ResolveValues(context.Background(), newFakeStore(), nil, actions)
	require.NoError(t, err)

	assert.Equal(t, []string{
		"HTTP", "Discovered", "Device", "Trigger in \"unknown\" state", "", "1", UnknownLabel, UnknownLabel,
	}, values[0])
}

func TestResolveValues_StoreErrorIsReturned(t *testing.T) {
	store := newFakeStore()
	store.err = errors.New("connection refused")

	actions := []Action{{Conditions: []Condition{{Type: TypeProxy, Operator: OperatorEqual, Value: "1"}}}}

	_, err := ResolveValues(context.Background(), store, nil, actions)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "proxy")
}

func TestResolveValues_NoReferencesSkipsStore(t *testing.T) {
	actions := []Action{{Conditions: []Condition{{Type: TypeTimePeriod, Operator: OperatorIn, Value: "1-5,09:00-18:00"}}}}

	values, err := ResolveValues(context.Background(), nil, nil, actions)
	require.NoError(t, err)
	assert.Equal(t, [][]string{{"1-5,09:00-18:00"}}, values)
}
