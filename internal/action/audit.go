package action

import (
	"context"
	"fmt"
	"time"

	"actioncore/internal/condition"
	"actioncore/internal/elasticsearch"
	"actioncore/internal/logger"
)

// Record is one action evaluation.
type Record struct {
	Time       time.Time
	Action     condition.Action
	Event      condition.Event
	Matched    bool
	Conditions []string
	Delays     map[int]*int64
}

// Sink receives evaluation records.
type Sink interface {
	Name() string
	Record(ctx context.Context, rec Record) error
}

// ESSink 写入 Elasticsearch 的审计
type ESSink struct {
	client *elasticsearch.Client
}

func NewESSink(client *elasticsearch.Client) *ESSink {
	return &ESSink{client: client}
}

func (s *ESSink) Name() string { return "elasticsearch" }

func (s *ESSink) Record(ctx context.Context, rec Record) error {
	entry := &elasticsearch.EvaluationEntry{
		ActionID:    rec.Action.ID,
		ActionName:  rec.Action.Name,
		EventSource: int(rec.Action.EventSource),
		EvalType:    int(rec.Action.EvalType),
		Matched:     rec.Matched,
		Message:     message(rec),
		Conditions:  rec.Conditions,
		Delays:      rec.Delays,
		Timestamp:   rec.Time.UTC(),
	}
	entry.Event.TriggerID = rec.Event.TriggerID
	entry.Event.TriggerName = rec.Event.TriggerName
	entry.Event.Severity = rec.Event.Severity
	entry.Event.HostName = rec.Event.HostName
	entry.Event.DHostIP = rec.Event.DHostIP
	entry.Event.ServiceName = rec.Event.ServiceName

	return s.client.IndexEvaluation(ctx, entry)
}

// FileSink 写入按天滚动的 JSONL 审计文件
type FileSink struct {
	dir string
}

func NewFileSink(dir string) (*FileSink, error) {
	if err := logger.InitAuditLog(dir); err != nil {
		return nil, err
	}
	return &FileSink{dir: dir}, nil
}

func (s *FileSink) Name() string { return "file" }

func (s *FileSink) Dir() string { return s.dir }

func (s *FileSink) Record(_ context.Context, rec Record) error {
	event := map[string]any{"clock": rec.Event.Clock}
	if rec.Event.TriggerID != 0 {
		event["trigger_id"] = rec.Event.TriggerID
		event["trigger_name"] = rec.Event.TriggerName
		event["severity"] = rec.Event.Severity
	}
	if rec.Event.HostName != "" {
		event["host_name"] = rec.Event.HostName
	}
	if rec.Event.DHostIP != "" {
		event["dhost_ip"] = rec.Event.DHostIP
	}
	if rec.Event.ServiceName != "" {
		event["service_name"] = rec.Event.ServiceName
	}

	return logger.WriteEvaluationLog(s.dir, &logger.EvaluationLogEntry{
		Timestamp:   rec.Time,
		ActionID:    rec.Action.ID,
		ActionName:  rec.Action.Name,
		EventSource: int(rec.Action.EventSource),
		Matched:     rec.Matched,
		Conditions:  rec.Conditions,
		Delays:      rec.Delays,
		Event:       event,
	})
}

func message(rec Record) string {
	if rec.Matched {
		return fmt.Sprintf("action %q matched", rec.Action.Name)
	}
	return fmt.Sprintf("action %q did not match", rec.Action.Name)
}
