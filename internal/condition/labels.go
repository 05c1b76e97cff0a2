package condition

import "strconv"

// Localizer turns a message key into display text.
type Localizer interface {
	Localize(key string, args ...any) string
}

// plainLocalizer returns keys untouched; used when a nil Localizer is given.
type plainLocalizer struct{}

func (plainLocalizer) Localize(key string, _ ...any) string { return key }

func orPlain(loc Localizer) Localizer {
	if loc == nil {
		return plainLocalizer{}
	}
	return loc
}

// UnknownLabel is the placeholder for values that could not be resolved.
const UnknownLabel = "Unknown"

var typeLabels = map[ConditionType]string{
	TypeHostGroup:         "Host group",
	TypeTemplate:          "Template",
	TypeHost:              "Host",
	TypeTrigger:           "Trigger",
	TypeTriggerName:       "Trigger name",
	TypeTriggerSeverity:   "Trigger severity",
	TypeTimePeriod:        "Time period",
	TypeSuppressed:        "Problem is suppressed",
	TypeDHostIP:           "Host IP",
	TypeDServiceType:      "Service type",
	TypeDServicePort:      "Service port",
	TypeDStatus:           "Discovery status",
	TypeDUptime:           "Uptime/Downtime",
	TypeDValue:            "Received value",
	TypeEventAcknowledged: "Event acknowledged",
	TypeDRule:             "Discovery rule",
	TypeDCheck:            "Discovery check",
	TypeProxy:             "Proxy",
	TypeDObject:           "Discovery object",
	TypeHostName:          "Host name",
	TypeEventType:         "Event type",
	TypeHostMetadata:      "Host metadata",
	TypeEventTag:          "Tag name",
	TypeEventTagValue:     "Tag value",
	TypeService:           "Service",
	TypeServiceName:       "Service name",
}

var operatorLabels = map[Operator]string{
	OperatorEqual:     "equals",
	OperatorNotEqual:  "does not equal",
	OperatorLike:      "contains",
	OperatorNotLike:   "does not contain",
	OperatorIn:        "in",
	OperatorMoreEqual: "is greater than or equals",
	OperatorLessEqual: "is less than or equals",
	OperatorNotIn:     "not in",
	OperatorRegexp:    "matches",
	OperatorNotRegexp: "does not match",
	OperatorYes:       "Yes",
	OperatorNo:        "No",
}

var severityLabels = []string{"Not classified", "Information", "Warning", "Average", "High", "Disaster"}

// discovery check types, indexed by SVC_* value
var dcheckTypeLabels = map[int]string{
	0:  "SSH",
	1:  "LDAP",
	2:  "SMTP",
	3:  "FTP",
	4:  "HTTP",
	5:  "POP",
	6:  "NNTP",
	7:  "IMAP",
	8:  "TCP",
	9:  "Zabbix agent",
	10: "SNMPv1 agent",
	11: "SNMPv2 agent",
	12: "ICMP ping",
	13: "SNMPv3 agent",
	14: "HTTPS",
	15: "Telnet",
}

var dstatusLabels = map[int]string{
	0: "Up",
	1: "Down",
	2: "Discovered",
	3: "Lost",
}

var dobjectLabels = map[int]string{
	1: "Device",
	2: "Service",
}

var internalEventTypeLabels = map[int]string{
	0: "Item in \"not supported\" state",
	1: "Low-level discovery rule in \"not supported\" state",
	2: "Trigger in \"unknown\" state",
}

// TypeLabel returns the localized name of a condition type.
func TypeLabel(loc Localizer, t ConditionType) string {
	loc = orPlain(loc)
	if key, ok := typeLabels[t]; ok {
		return loc.Localize(key)
	}
	return loc.Localize(UnknownLabel)
}

// OperatorLabel returns the localized phrase of an operator.
func OperatorLabel(loc Localizer, op Operator) string {
	loc = orPlain(loc)
	if key, ok := operatorLabels[op]; ok {
		return loc.Localize(key)
	}
	return loc.Localize(UnknownLabel)
}

// SeverityLabel returns the localized trigger severity name.
func SeverityLabel(loc Localizer, severity int) string {
	loc = orPlain(loc)
	if severity < 0 || severity >= len(severityLabels) {
		return loc.Localize(UnknownLabel)
	}
	return loc.Localize(severityLabels[severity])
}

func lookupLabel(loc Localizer, table map[int]string, raw string) string {
	n, err := strconv.Atoi(raw)
	if err != nil {
		return loc.Localize(UnknownLabel)
	}
	if key, ok := table[n]; ok {
		return loc.Localize(key)
	}
	return loc.Localize(UnknownLabel)
}

// DCheckLabel describes a discovery check as "<type> (<ports>)". Port "0" is omitted.
func DCheckLabel(loc Localizer, checkType int, ports string) string {
	loc = orPlain(loc)
	label, ok := dcheckTypeLabels[checkType]
	if !ok {
		return loc.Localize(UnknownLabel)
	}
	label = loc.Localize(label)
	if ports == "" || ports == "0" {
		return label
	}
	return label + " (" + ports + ")"
}
