package logger

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"
)

var (
	logFileMutex sync.Mutex
)

// EvaluationLogEntry is one action evaluation written to the audit log.
type EvaluationLogEntry struct {
	Timestamp   time.Time      `json:"timestamp"`
	ActionID    uint64         `json:"action_id"`
	ActionName  string         `json:"action_name"`
	EventSource int            `json:"event_source"`
	Matched     bool           `json:"matched"`
	Conditions  []string       `json:"conditions,omitempty"`
	Delays      map[int]*int64 `json:"delays,omitempty"`
	Event       map[string]any `json:"event,omitempty"`
}

// InitAuditLog creates the audit log directory
func InitAuditLog(logDir string) error {
	if err := os.MkdirAll(logDir, 0755); err != nil {
		return fmt.Errorf("failed to create log directory: %w", err)
	}
	return nil
}

func auditFile(logDir string, day time.Time) string {
	return filepath.Join(logDir, fmt.Sprintf("evaluation-%s.jsonl", day.Format("2006-01-02")))
}

// WriteEvaluationLog appends an entry to the file of its day: logs/evaluation-2026-10-14.jsonl
func WriteEvaluationLog(logDir string, entry *EvaluationLogEntry) error {
	logFileMutex.Lock()
	defer logFileMutex.Unlock()

	if entry.Timestamp.IsZero() {
		entry.Timestamp = time.Now()
	}

	file, err := os.OpenFile(auditFile(logDir, entry.Timestamp), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer file.Close()

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal log entry: %w", err)
	}

	if _, err := file.Write(append(data, '\n')); err != nil {
		return fmt.Errorf("failed to write log entry: %w", err)
	}

	return nil
}

// LogQueryRequest represents a log query request
type LogQueryRequest struct {
	ActionID  *uint64    `json:"action_id,omitempty"`
	Matched   *bool      `json:"matched,omitempty"`
	StartTime *time.Time `json:"start_time,omitempty"`
	EndTime   *time.Time `json:"end_time,omitempty"`
	Limit     int        `json:"limit,omitempty"`
	Offset    int        `json:"offset,omitempty"`
}

// LogQueryResult represents the result of a log query
type LogQueryResult struct {
	Total int                   `json:"total"`
	Logs  []*EvaluationLogEntry `json:"logs"`
}

// QueryEvaluationLogs scans the daily files of the requested range, newest entries first.
func QueryEvaluationLogs(logDir string, req *LogQueryRequest) (*LogQueryResult, error) {
	result := &LogQueryResult{
		Logs: make([]*EvaluationLogEntry, 0),
	}

	var startDate, endDate time.Time
	if req.StartTime != nil {
		startDate = *req.StartTime
	} else {
		startDate = time.Now().AddDate(0, 0, -7) // 默认最近 7 天
	}
	if req.EndTime != nil {
		endDate = *req.EndTime
	} else {
		endDate = time.Now()
	}

	matched := make([]*EvaluationLogEntry, 0)
	firstDay := time.Date(startDate.Year(), startDate.Month(), startDate.Day(), 0, 0, 0, 0, startDate.Location())
	for d := firstDay; !d.After(endDate); d = d.AddDate(0, 0, 1) {
		path := auditFile(logDir, d)
		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		entries, err := readLogFile(path)
		if err != nil {
			continue
		}

		for _, entry := range entries {
			if matchesQuery(entry, req) {
				matched = append(matched, entry)
			}
		}
	}

	sort.SliceStable(matched, func(i, j int) bool {
		return matched[i].Timestamp.After(matched[j].Timestamp)
	})

	result.Total = len(matched)
	limit := req.Limit
	if limit <= 0 {
		limit = 100
	}

	start := req.Offset
	if start > len(matched) {
		start = len(matched)
	}
	end := start + limit
	if end > len(matched) {
		end = len(matched)
	}
	if start < end {
		result.Logs = matched[start:end]
	}

	return result, nil
}

func readLogFile(path string) ([]*EvaluationLogEntry, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	entries := make([]*EvaluationLogEntry, 0)
	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	for scanner.Scan() {
		line := scanner.Text()
		if strings.TrimSpace(line) == "" {
			continue
		}

		var entry EvaluationLogEntry
		if err := json.Unmarshal([]byte(line), &entry); err != nil {
			continue // 跳过损坏的行
		}
		entries = append(entries, &entry)
	}

	return entries, scanner.Err()
}

func matchesQuery(entry *EvaluationLogEntry, req *LogQueryRequest) bool {
	if req.ActionID != nil && entry.ActionID != *req.ActionID {
		return false
	}
	if req.Matched != nil && entry.Matched != *req.Matched {
		return false
	}
	if req.StartTime != nil && entry.Timestamp.Before(*req.StartTime) {
		return false
	}
	if req.EndTime != nil && entry.Timestamp.After(*req.EndTime) {
		return false
	}
	return true
}
