package condition

// EventSource 事件来源
type EventSource int

const (
	EventSourceTriggers         EventSource = 0
	EventSourceDiscovery        EventSource = 1
	EventSourceAutoRegistration EventSource = 2
	EventSourceInternal         EventSource = 3
	EventSourceService          EventSource = 4
)

// ConditionType 条件类型，数值与持久化的 conditiontype 字段一致
type ConditionType int

const (
	TypeHostGroup         ConditionType = 0
	TypeHost              ConditionType = 1
	TypeTrigger           ConditionType = 2
	TypeTriggerName       ConditionType = 3
	TypeTriggerSeverity   ConditionType = 4
	TypeTimePeriod        ConditionType = 6
	TypeDHostIP           ConditionType = 7
	TypeDServiceType      ConditionType = 8
	TypeDServicePort      ConditionType = 9
	TypeDStatus           ConditionType = 10
	TypeDUptime           ConditionType = 11
	TypeDValue            ConditionType = 12
	TypeTemplate          ConditionType = 13
	TypeEventAcknowledged ConditionType = 14
	TypeSuppressed        ConditionType = 16
	TypeDRule             ConditionType = 18
	TypeDCheck            ConditionType = 19
	TypeProxy             ConditionType = 20
	TypeDObject           ConditionType = 21
	TypeHostName          ConditionType = 22
	TypeEventType         ConditionType = 23
	TypeHostMetadata      ConditionType = 24
	TypeEventTag          ConditionType = 25
	TypeEventTagValue     ConditionType = 26
	TypeService           ConditionType = 27
	TypeServiceName       ConditionType = 28
)

// Operator 条件运算符
type Operator int

const (
	OperatorEqual     Operator = 0
	OperatorNotEqual  Operator = 1
	OperatorLike      Operator = 2
	OperatorNotLike   Operator = 3
	OperatorIn        Operator = 4
	OperatorMoreEqual Operator = 5
	OperatorLessEqual Operator = 6
	OperatorNotIn     Operator = 7
	OperatorRegexp    Operator = 8
	OperatorNotRegexp Operator = 9
	OperatorYes       Operator = 10
	OperatorNo        Operator = 11
)

// AllOperators lists every operator of the enum in numeric order.
var AllOperators = []Operator{
	OperatorEqual, OperatorNotEqual, OperatorLike, OperatorNotLike, OperatorIn,
	OperatorMoreEqual, OperatorLessEqual, OperatorNotIn, OperatorRegexp, OperatorNotRegexp,
	OperatorYes, OperatorNo,
}

// EvalType 条件组合方式
type EvalType int

const (
	// EvalAndOr ORs conditions of the same type and ANDs the per-type results.
	EvalAndOr      EvalType = 0
	EvalAnd        EvalType = 1
	EvalOr         EvalType = 2
	EvalExpression EvalType = 3
)

// Condition is one filter predicate of an action.
type Condition struct {
	Type      ConditionType `json:"conditiontype"`
	Operator  Operator      `json:"operator"`
	Value     string        `json:"value"`
	Value2    string        `json:"value2,omitempty"`
	FormulaID string        `json:"formulaid,omitempty"`
}

// Operation is one escalation step range of an action.
type Operation struct {
	Type        int    `json:"operationtype"`
	EscStepFrom int    `json:"esc_step_from"`
	EscStepTo   int    `json:"esc_step_to"`
	EscPeriod   string `json:"esc_period"`
}

// Action owns the filter conditions and the escalation operations.
type Action struct {
	ID          uint64      `json:"actionid"`
	Name        string      `json:"name"`
	EventSource EventSource `json:"eventsource"`
	EvalType    EvalType    `json:"evaltype"`
	Formula     string      `json:"formula,omitempty"`
	EscPeriod   string      `json:"esc_period"`
	Conditions  []Condition `json:"conditions"`
	Operations  []Operation `json:"operations,omitempty"`
}
