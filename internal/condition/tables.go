package condition

var operatorsByType = map[ConditionType][]Operator{
	TypeHostGroup:         {OperatorEqual, OperatorNotEqual},
	TypeTemplate:          {OperatorEqual, OperatorNotEqual},
	TypeHost:              {OperatorEqual, OperatorNotEqual},
	TypeTrigger:           {OperatorEqual, OperatorNotEqual},
	TypeTriggerName:       {OperatorLike, OperatorNotLike},
	TypeTriggerSeverity:   {OperatorEqual, OperatorNotEqual, OperatorMoreEqual, OperatorLessEqual},
	TypeTimePeriod:        {OperatorIn, OperatorNotIn},
	TypeSuppressed:        {OperatorYes, OperatorNo},
	TypeEventAcknowledged: {OperatorEqual},
	TypeDRule:             {OperatorEqual, OperatorNotEqual},
	TypeDCheck:            {OperatorEqual, OperatorNotEqual},
	TypeDObject:           {OperatorEqual},
	TypeProxy:             {OperatorEqual, OperatorNotEqual},
	TypeDHostIP:           {OperatorEqual, OperatorNotEqual},
	TypeDServiceType:      {OperatorEqual, OperatorNotEqual},
	TypeDServicePort:      {OperatorEqual, OperatorNotEqual},
	TypeDStatus:           {OperatorEqual},
	TypeDUptime:           {OperatorMoreEqual, OperatorLessEqual},
	TypeDValue: {
		OperatorEqual, OperatorNotEqual, OperatorMoreEqual, OperatorLessEqual,
		OperatorLike, OperatorNotLike,
	},
	TypeHostName:      {OperatorLike, OperatorNotLike, OperatorRegexp, OperatorNotRegexp},
	TypeEventType:     {OperatorEqual},
	TypeHostMetadata:  {OperatorLike, OperatorNotLike, OperatorRegexp, OperatorNotRegexp},
	TypeEventTag:      {OperatorEqual, OperatorNotEqual, OperatorLike, OperatorNotLike},
	TypeEventTagValue: {OperatorEqual, OperatorNotEqual, OperatorLike, OperatorNotLike},
	TypeService:       {OperatorEqual, OperatorNotEqual},
	TypeServiceName:   {OperatorEqual, OperatorNotEqual, OperatorLike, OperatorNotLike},
}

var typesBySource = map[EventSource][]ConditionType{
	EventSourceTriggers: {
		TypeHostGroup, TypeTemplate, TypeHost, TypeTrigger, TypeTriggerName,
		TypeTriggerSeverity, TypeTimePeriod, TypeSuppressed, TypeEventTag, TypeEventTagValue,
	},
	EventSourceDiscovery: {
		TypeDHostIP, TypeDCheck, TypeDObject, TypeDRule, TypeDStatus, TypeProxy,
		TypeDValue, TypeDServicePort, TypeDServiceType, TypeDUptime,
	},
	EventSourceAutoRegistration: {
		TypeHostName, TypeProxy, TypeHostMetadata,
	},
	EventSourceInternal: {
		TypeEventType, TypeHostGroup, TypeTemplate, TypeHost, TypeEventTag, TypeEventTagValue,
	},
	EventSourceService: {
		TypeService, TypeServiceName, TypeEventTag, TypeEventTagValue,
	},
}

// OperatorsFor returns the operators allowed for a condition type.
// Unknown types yield an empty slice, which means no operator is valid.
func OperatorsFor(t ConditionType) []Operator {
	ops, ok := operatorsByType[t]
	if !ok {
		return []Operator{}
	}
	return append([]Operator(nil), ops...)
}

// ConditionTypesFor returns the condition types usable by an event source.
// Unrecognized sources fall back to the trigger list.
func ConditionTypesFor(source EventSource) []ConditionType {
	types, ok := typesBySource[source]
	if !ok {
		types = typesBySource[EventSourceTriggers]
	}
	return append([]ConditionType(nil), types...)
}

// KnownTypes returns every condition type that has an operator table entry.
func KnownTypes() []ConditionType {
	result := make([]ConditionType, 0, len(operatorsByType))
	for t := range operatorsByType {
		result = append(result, t)
	}
	return result
}

// IsOperatorAllowed reports whether op is legal for t.
func IsOperatorAllowed(t ConditionType, op Operator) bool {
	for _, allowed := range operatorsByType[t] {
		if allowed == op {
			return true
		}
	}
	return false
}
