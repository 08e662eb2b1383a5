// Package metrics records document processing statistics for the /metrics
// endpoint and the web UI status panel.
package metrics

import "time"

// TaskRecord is one finished request.
type TaskRecord struct {
	ID        string        `json:"id"`
	Type      string        `json:"type"`
	Company   string        `json:"company"`
	Method    string        `json:"method"`
	Status    string        `json:"status"`
	StartTime time.Time     `json:"start_time"`
	Duration  time.Duration `json:"duration"`
	ErrorMsg  string        `json:"error_msg,omitempty"`
}

// TaskMetrics aggregates all recorded tasks.
type TaskMetrics struct {
	TotalProcessed int64                       `json:"total_processed"`
	TotalSuccess   int64                       `json:"total_success"`
	TotalErrors    int64                       `json:"total_errors"`
	ByType         map[string]*TaskTypeMetrics `json:"by_type"`
}

// TaskTypeMetrics aggregates tasks of one type.
type TaskTypeMetrics struct {
	Count       int64         `json:"count"`
	SuccessRate float64       `json:"success_rate"`
	AvgDuration time.Duration `json:"avg_duration"`
}

// SystemStatus is reported alongside task metrics.
type SystemStatus struct {
	Version   string        `json:"version"`
	Uptime    time.Duration `json:"uptime"`
	LastCheck time.Time     `json:"last_check"`
}

// Task statuses
const (
	TaskStatusSuccess = "success"
	TaskStatusError   = "error"
)

// Task types
const (
	TaskTypeParse  = "parse"
	TaskTypeExcel  = "excel"
	TaskTypeCSV    = "csv"
	TaskTypeExport = "export"
)
