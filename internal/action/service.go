package action

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"actioncore/internal/condition"
	"actioncore/internal/config"
)

// Repository loads actions with their conditions and operations.
type Repository interface {
	ListBySource(ctx context.Context, source condition.EventSource) ([]condition.Action, error)
	Get(ctx context.Context, id uint64) (condition.Action, error)
}

// ConditionView is a condition with its resolved value and display segments.
type ConditionView struct {
	condition.Condition
	DisplayValue string              `json:"display_value"`
	Segments     []condition.Segment `json:"segments"`
	Text         string              `json:"text"`
}

// ActionView is an action ready for display.
type ActionView struct {
	ID          uint64                `json:"actionid"`
	Name        string                `json:"name"`
	EventSource condition.EventSource `json:"eventsource"`
	EvalType    condition.EvalType    `json:"evaltype"`
	Formula     string                `json:"formula,omitempty"`
	Conditions  []ConditionView       `json:"conditions"`
}

// Match is an action whose filter accepted the event.
type Match struct {
	ActionID   uint64         `json:"actionid"`
	Name       string         `json:"name"`
	Conditions []string       `json:"conditions"`
	Delays     map[int]*int64 `json:"delays"`
}

// EvaluationResult lists the matched actions of one event.
type EvaluationResult struct {
	Source    condition.EventSource `json:"eventsource"`
	Evaluated int                   `json:"evaluated"`
	Matches   []Match               `json:"matches"`
}

// Service 动作评估服务
type Service struct {
	repo       Repository
	store      condition.EntityStore
	loc        condition.Localizer
	escalation config.EscalationConfig
	sinks      []Sink
	log        *zap.Logger
	now        func() time.Time
}

// NewService wires the service. loc and sinks may be nil.
func NewService(repo Repository, store condition.EntityStore, loc condition.Localizer,
	escalation config.EscalationConfig, log *zap.Logger, sinks ...Sink) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{
		repo:       repo,
		store:      store,
		loc:        loc,
		escalation: escalation,
		sinks:      sinks,
		log:        log,
		now:        time.Now,
	}
}

// Localizer returns the localizer used for descriptions.
func (s *Service) Localizer() condition.Localizer {
	return s.loc
}

// ListActions returns the actions of a source with every condition described.
// Referenced objects are resolved with one store call per category.
func (s *Service) ListActions(ctx context.Context, source condition.EventSource) ([]ActionView, error) {
	actions, err := s.repo.ListBySource(ctx, source)
	if err != nil {
		return nil, err
	}
	return s.describe(ctx, actions)
}

func (s *Service) describe(ctx context.Context, actions []condition.Action) ([]ActionView, error) {
	values, err := condition.ResolveValues(ctx, s.store, s.loc, actions)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve condition values: %w", err)
	}

	views := make([]ActionView, 0, len(actions))
	for i, a := range actions {
		view := ActionView{
			ID:          a.ID,
			Name:        a.Name,
			EventSource: a.EventSource,
			EvalType:    a.EvalType,
			Formula:     a.Formula,
			Conditions:  make([]ConditionView, 0, len(a.Conditions)),
		}
		for j, c := range a.Conditions {
			segments := condition.Describe(s.loc, c.Type, c.Operator, values[i][j], c.Value2)
			view.Conditions = append(view.Conditions, ConditionView{
				Condition:    c,
				DisplayValue: values[i][j],
				Segments:     segments,
				Text:         condition.Text(segments),
			})
		}
		views = append(views, view)
	}
	return views, nil
}

// DescribeConditions describes conditions that do not belong to a stored action.
func (s *Service) DescribeConditions(ctx context.Context, conditions []condition.Condition) ([]ConditionView, error) {
	views, err := s.describe(ctx, []condition.Action{{Conditions: conditions}})
	if err != nil {
		return nil, err
	}
	return views[0].Conditions, nil
}

// Escalations returns the delay schedule of one action.
func (s *Service) Escalations(ctx context.Context, actionID uint64) (map[int]*int64, error) {
	a, err := s.repo.Get(ctx, actionID)
	if err != nil {
		return nil, err
	}
	return s.delays(a), nil
}

func (s *Service) delays(a condition.Action) map[int]*int64 {
	period := a.EscPeriod
	if period == "" {
		period = s.escalation.DefaultPeriod
	}
	return condition.EscalationDelays(a.Operations, period, s.escalation.Macros)
}

// Evaluate runs every action of the event source against ev. Each evaluation is handed to
// the audit sinks; a failing sink is logged and does not fail the evaluation.
func (s *Service) Evaluate(ctx context.Context, ev condition.Event) (*EvaluationResult, error) {
	if ev.Clock.IsZero() {
		ev.Clock = s.now()
	}

	actions, err := s.repo.ListBySource(ctx, ev.Source)
	if err != nil {
		return nil, err
	}

	views, err := s.describe(ctx, actions)
	if err != nil {
		return nil, err
	}

	result := &EvaluationResult{Source: ev.Source, Evaluated: len(actions), Matches: []Match{}}
	for i, a := range actions {
		matched := condition.Evaluate(a, ev)

		texts := make([]string, 0, len(views[i].Conditions))
		for _, c := range views[i].Conditions {
			texts = append(texts, c.Text)
		}

		var delays map[int]*int64
		if matched {
			delays = s.delays(a)
			result.Matches = append(result.Matches, Match{
				ActionID:   a.ID,
				Name:       a.Name,
				Conditions: texts,
				Delays:     delays,
			})
		}

		s.record(ctx, Record{
			Time:       ev.Clock,
			Action:     a,
			Event:      ev,
			Matched:    matched,
			Conditions: texts,
			Delays:     delays,
		})
	}

	s.log.Info("Event evaluated",
		zap.Int("source", int(ev.Source)),
		zap.Int("actions", len(actions)),
		zap.Int("matched", len(result.Matches)))

	return result, nil
}

func (s *Service) record(ctx context.Context, rec Record) {
	for _, sink := range s.sinks {
		if sink == nil {
			continue
		}
		if err := sink.Record(ctx, rec); err != nil {
			s.log.Warn("Failed to record evaluation",
				zap.String("sink", sink.Name()),
				zap.Uint64("action_id", rec.Action.ID),
				zap.Error(err))
		}
	}
}
