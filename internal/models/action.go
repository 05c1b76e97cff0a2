package models

import "time"

// Action 动作模型
type Action struct {
	ID          uint64 `gorm:"primaryKey" json:"actionid"`
	Name        string `gorm:"size:255;not null;uniqueIndex" json:"name"`
	EventSource int    `gorm:"not null;index" json:"eventsource"`       // 0 trigger, 1 discovery, 2 autoregistration, 3 internal, 4 service
	EvalType    int    `gorm:"default:0" json:"evaltype"`               // 0 and/or, 1 and, 2 or, 3 custom expression
	Formula     string `gorm:"size:1024" json:"formula"`                // custom expression, e.g. "A and (B or C)"
	EscPeriod   string `gorm:"size:255;default:'1h'" json:"esc_period"` // default step duration
	Enabled     bool   `gorm:"default:true" json:"enabled"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`

	Conditions []ActionCondition `gorm:"foreignKey:ActionID" json:"conditions,omitempty"`
	Operations []ActionOperation `gorm:"foreignKey:ActionID" json:"operations,omitempty"`
}

func (Action) TableName() string {
	return "actions"
}

// ActionCondition 动作过滤条件
type ActionCondition struct {
	ID            uint64 `gorm:"primaryKey" json:"conditionid"`
	ActionID      uint64 `gorm:"not null;index" json:"actionid"`
	ConditionType int    `gorm:"not null" json:"conditiontype"`
	Operator      int    `gorm:"default:0" json:"operator"`
	Value         string `gorm:"size:255" json:"value"`
	Value2        string `gorm:"size:255" json:"value2"`               // tag name for tag value conditions
	FormulaID     string `gorm:"size:4" json:"formulaid"`              // letter used in the custom expression
}

func (ActionCondition) TableName() string {
	return "action_conditions"
}

// ActionOperation 升级步骤
type ActionOperation struct {
	ID            uint64 `gorm:"primaryKey" json:"operationid"`
	ActionID      uint64 `gorm:"not null;index" json:"actionid"`
	OperationType int    `gorm:"default:0" json:"operationtype"`
	EscStepFrom   int    `gorm:"default:1" json:"esc_step_from"`
	EscStepTo     int    `json:"esc_step_to"` // 0 means until the last step
	EscPeriod     string `gorm:"size:255;default:'0'" json:"esc_period"`
}

func (ActionOperation) TableName() string {
	return "action_operations"
}
