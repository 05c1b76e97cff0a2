package condition

import (
	"regexp"
	"strconv"
	"strings"
)

// Evaluate reports whether an event satisfies the filter of an action.
// An action without conditions matches every event of its source.
func Evaluate(action Action, ev Event) bool {
	if len(action.Conditions) == 0 {
		return true
	}

	switch action.EvalType {
	case EvalAnd:
		for _, c := range action.Conditions {
			if !Match(c, ev) {
				return false
			}
		}
		return true

	case EvalOr:
		for _, c := range action.Conditions {
			if Match(c, ev) {
				return true
			}
		}
		return false

	case EvalExpression:
		node, err := parseFormula(action.Formula)
		if err != nil {
			return false
		}
		values := make(map[string]bool, len(action.Conditions))
		for _, c := range action.Conditions {
			values[c.FormulaID] = Match(c, ev)
		}
		return node.eval(values)
	}

	// and/or: OR inside a condition type, AND across types
	byType := make(map[ConditionType]bool)
	for _, c := range action.Conditions {
		byType[c.Type] = byType[c.Type] || Match(c, ev)
	}
	for _, matched := range byType {
		if !matched {
			return false
		}
	}
	return true
}

// Match evaluates a single condition against an event.
// Conditions whose value cannot be interpreted never match.
func Match(c Condition, ev Event) bool {
	switch c.Type {
	case TypeHostGroup:
		return matchID(c, ev.HostGroupIDs...)
	case TypeHost:
		return matchID(c, ev.HostIDs...)
	case TypeTemplate:
		return matchID(c, ev.TemplateIDs...)
	case TypeTrigger:
		return matchID(c, ev.TriggerID)
	case TypeProxy:
		return matchID(c, ev.ProxyID)
	case TypeDRule:
		return matchID(c, ev.DRuleID)
	case TypeDCheck:
		return matchID(c, ev.DCheckID)
	case TypeService:
		return matchID(c, ev.ServiceIDs...)

	case TypeTriggerName:
		return matchString(c.Operator, c.Value, ev.TriggerName)
	case TypeHostName:
		return matchString(c.Operator, c.Value, ev.HostName)
	case TypeHostMetadata:
		return matchString(c.Operator, c.Value, ev.HostMetadata)
	case TypeServiceName:
		return matchString(c.Operator, c.Value, ev.ServiceName)

	case TypeTriggerSeverity:
		return matchNumber(c.Operator, c.Value, float64(ev.Severity))
	case TypeDUptime:
		return matchNumber(c.Operator, c.Value, float64(ev.DUptime))
	case TypeDServiceType:
		return matchNumber(c.Operator, c.Value, float64(ev.DServiceType))
	case TypeDStatus:
		return matchNumber(c.Operator, c.Value, float64(ev.DStatus))
	case TypeDObject:
		return matchNumber(c.Operator, c.Value, float64(ev.DObject))
	case TypeEventType:
		return matchNumber(c.Operator, c.Value, float64(ev.EventType))

	case TypeTimePeriod:
		in, err := InTimePeriod(c.Value, ev.Clock)
		if err != nil {
			return false
		}
		return negate(c.Operator == OperatorNotIn, in)

	case TypeSuppressed:
		return negate(c.Operator == OperatorNo, ev.Suppressed)

	case TypeEventAcknowledged:
		return (c.Value == "1") == ev.Acknowledged

	case TypeDHostIP:
		in, err := InIPRange(c.Value, ev.DHostIP)
		if err != nil {
			return false
		}
		return negate(c.Operator == OperatorNotEqual, in)

	case TypeDServicePort:
		in, err := InPortRange(c.Value, ev.DServicePort)
		if err != nil {
			return false
		}
		return negate(c.Operator == OperatorNotEqual, in)

	case TypeDValue:
		if c.Operator == OperatorMoreEqual || c.Operator == OperatorLessEqual {
			return compareValue(c.Operator, c.Value, ev.DValue)
		}
		return matchString(c.Operator, c.Value, ev.DValue)

	case TypeEventTag:
		return matchTags(c.Operator, ev.Tags, func(t Tag) (string, bool) { return t.Tag, true }, c.Value)

	case TypeEventTagValue:
		return matchTags(c.Operator, ev.Tags, func(t Tag) (string, bool) { return t.Value, t.Tag == c.Value2 }, c.Value)
	}

	return false
}

func negate(inverse, v bool) bool {
	if inverse {
		return !v
	}
	return v
}

func matchID(c Condition, ids ...uint64) bool {
	want, err := strconv.ParseUint(c.Value, 10, 64)
	if err != nil {
		return false
	}
	found := false
	for _, id := range ids {
		if id == want {
			found = true
			break
		}
	}
	switch c.Operator {
	case OperatorEqual:
		return found
	case OperatorNotEqual:
		return !found
	}
	return false
}

func matchString(op Operator, pattern, actual string) bool {
	switch op {
	case OperatorEqual:
		return actual == pattern
	case OperatorNotEqual:
		return actual != pattern
	case OperatorLike:
		return strings.Contains(actual, pattern)
	case OperatorNotLike:
		return !strings.Contains(actual, pattern)
	case OperatorRegexp, OperatorNotRegexp:
		re, err := regexp.Compile(pattern)
		if err != nil {
			return false
		}
		return negate(op == OperatorNotRegexp, re.MatchString(actual))
	}
	return false
}

func matchNumber(op Operator, raw string, actual float64) bool {
	want, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return false
	}
	switch op {
	case OperatorEqual:
		return actual == want
	case OperatorNotEqual:
		return actual != want
	case OperatorMoreEqual:
		return actual >= want
	case OperatorLessEqual:
		return actual <= want
	}
	return false
}

// compareValue compares numerically when both sides are numbers, lexically otherwise.
func compareValue(op Operator, raw, actual string) bool {
	_, errWant := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	got, errGot := strconv.ParseFloat(strings.TrimSpace(actual), 64)
	if errWant == nil && errGot == nil {
		return matchNumber(op, raw, got)
	}
	cmp := strings.Compare(actual, raw)
	if op == OperatorMoreEqual {
		return cmp >= 0
	}
	return cmp <= 0
}

// matchTags applies op to the tags selected by pick. Negative operators hold when no
// selected tag satisfies the positive form.
func matchTags(op Operator, tags []Tag, pick func(Tag) (string, bool), want string) bool {
	positive := op
	switch op {
	case OperatorNotEqual:
		positive = OperatorEqual
	case OperatorNotLike:
		positive = OperatorLike
	}

	found := false
	for _, t := range tags {
		v, ok := pick(t)
		if ok && matchString(positive, want, v) {
			found = true
			break
		}
	}
	return negate(positive != op, found)
}
