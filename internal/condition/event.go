package condition

import "time"

// Tag is an event tag.
type Tag struct {
	Tag   string `json:"tag"`
	Value string `json:"value"`
}

// Event is the snapshot of event, host and entity attributes an action filter is checked against.
// Only the fields relevant to the event source need to be filled.
type Event struct {
	Source EventSource `json:"source"`
	Clock  time.Time   `json:"clock"`
	Tags   []Tag       `json:"tags,omitempty"`

	// trigger and internal events
	HostGroupIDs []uint64 `json:"hostgroup_ids,omitempty"`
	HostIDs      []uint64 `json:"host_ids,omitempty"`
	TemplateIDs  []uint64 `json:"template_ids,omitempty"`
	TriggerID    uint64   `json:"trigger_id,omitempty"`
	TriggerName  string   `json:"trigger_name,omitempty"`
	Severity     int      `json:"severity"`
	Acknowledged bool     `json:"acknowledged"`
	Suppressed   bool     `json:"suppressed"`
	EventType    int      `json:"event_type"`

	// discovery
	ProxyID      uint64 `json:"proxy_id,omitempty"`
	DRuleID      uint64 `json:"drule_id,omitempty"`
	DCheckID     uint64 `json:"dcheck_id,omitempty"`
	DObject      int    `json:"dobject"`
	DStatus      int    `json:"dstatus"`
	DHostIP      string `json:"dhost_ip,omitempty"`
	DServiceType int    `json:"dservice_type"`
	DServicePort int    `json:"dservice_port"`
	DUptime      int64  `json:"duptime"`
	DValue       string `json:"dvalue,omitempty"`

	// autoregistration
	HostName     string `json:"host_name,omitempty"`
	HostMetadata string `json:"host_metadata,omitempty"`

	// services
	ServiceIDs  []uint64 `json:"service_ids,omitempty"`
	ServiceName string   `json:"service_name,omitempty"`
}
