package metrics

import (
	"time"

	"github.com/google/uuid"
)

// MetricsCollector is what request handlers report finished work to.
// Implementations must be safe for concurrent use.
type MetricsCollector interface {
	RecordTask(task TaskRecord)
	RecordTokens(provider string, tokens int)
	TaskMetrics() TaskMetrics
	RecentTasks(limit int) []TaskRecord
	SystemStatus() SystemStatus
}

// NewTask starts a TaskRecord of the given type.
func NewTask(taskType, company string) TaskRecord {
	return TaskRecord{
		ID:        uuid.NewString(),
		Type:      taskType,
		Company:   company,
		StartTime: time.Now(),
	}
}

// Finish sets the duration and status from err.
func (t TaskRecord) Finish(method string, err error) TaskRecord {
	t.Method = method
	t.Duration = time.Since(t.StartTime)
	if err != nil {
		t.Status = TaskStatusError
		t.ErrorMsg = err.Error()
	} else {
		t.Status = TaskStatusSuccess
	}
	return t
}
