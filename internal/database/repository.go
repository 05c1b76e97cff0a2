package database

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"actioncore/internal/condition"
	"actioncore/internal/models"
)

// ErrActionNotFound is returned when an action id does not exist.
var ErrActionNotFound = errors.New("action not found")

// ActionRepository 动作的读写
type ActionRepository struct {
	db *gorm.DB
}

func NewActionRepository(db *gorm.DB) *ActionRepository {
	return &ActionRepository{db: db}
}

func (r *ActionRepository) preloaded(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("Conditions", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Operations", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
}

// ListBySource returns the enabled actions of an event source ordered by id.
func (r *ActionRepository) ListBySource(ctx context.Context, source condition.EventSource) ([]condition.Action, error) {
	var rows []models.Action
	err := r.preloaded(ctx).
		Where("event_source = ? AND enabled = ?", int(source), true).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list actions: %w", err)
	}

	actions := make([]condition.Action, 0, len(rows))
	for _, row := range rows {
		actions = append(actions, ToAction(row))
	}
	return actions, nil
}

// Get returns one action by id.
func (r *ActionRepository) Get(ctx context.Context, id uint64) (condition.Action, error) {
	var row models.Action
	err := r.preloaded(ctx).First(&row, id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return condition.Action{}, ErrActionNotFound
	}
	if err != nil {
		return condition.Action{}, fmt.Errorf("failed to get action: %w", err)
	}
	return ToAction(row), nil
}

// Create stores an action with its conditions and operations. The formula of a custom
// expression action is validated first.
func (r *ActionRepository) Create(ctx context.Context, action *models.Action) error {
	if condition.EvalType(action.EvalType) == condition.EvalExpression {
		if err := condition.ValidateFormula(action.Formula, ToAction(*action).Conditions); err != nil {
			return err
		}
	}
	if err := r.db.WithContext(ctx).Create(action).Error; err != nil {
		return fmt.Errorf("failed to create action: %w", err)
	}
	return nil
}

// ToAction converts a stored action record.
func ToAction(row models.Action) condition.Action {
	action := condition.Action{
		ID:          row.ID,
		Name:        row.Name,
		EventSource: condition.EventSource(row.EventSource),
		EvalType:    condition.EvalType(row.EvalType),
		Formula:     row.Formula,
		EscPeriod:   row.EscPeriod,
		Conditions:  make([]condition.Condition, 0, len(row.Conditions)),
		Operations:  make([]condition.Operation, 0, len(row.Operations)),
	}
	for _, c := range row.Conditions {
		action.Conditions = append(action.Conditions, condition.Condition{
			Type:      condition.ConditionType(c.ConditionType),
			Operator:  condition.Operator(c.Operator),
			Value:     c.Value,
			Value2:    c.Value2,
			FormulaID: c.FormulaID,
		})
	}
	for _, op := range row.Operations {
		action.Operations = append(action.Operations, condition.Operation{
			Type:        op.OperationType,
			EscStepFrom: op.EscStepFrom,
			EscStepTo:   op.EscStepTo,
			EscPeriod:   op.EscPeriod,
		})
	}
	return action
}
