package metrics

import (
	"sync"
	"time"
)

// MetricsStore keeps recent tasks in a ring buffer along with running totals.
type MetricsStore struct {
	mu sync.RWMutex

	history []TaskRecord
	head    int
	size    int

	totalTasks   int64
	totalSuccess int64
	totalErrors  int64
	byType       map[string]*taskTypeStats

	startTime time.Time
	version   string
}

type taskTypeStats struct {
	count         int64
	successCount  int64
	totalDuration time.Duration
}

// NewMetricsStore creates a store that retains capacity recent tasks.
func NewMetricsStore(capacity int, version string) *MetricsStore {
	if capacity < 1 {
		capacity = 100
	}
	return &MetricsStore{
		history:   make([]TaskRecord, capacity),
		byType:    make(map[string]*taskTypeStats),
		startTime: time.Now(),
		version:   version,
	}
}

// RecordTask adds a finished task.
func (s *MetricsStore) RecordTask(task TaskRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.history[s.head] = task
	s.head = (s.head + 1) % len(s.history)
	if s.size < len(s.history) {
		s.size++
	}

	s.totalTasks++
	switch task.Status {
	case TaskStatusSuccess:
		s.totalSuccess++
	case TaskStatusError:
		s.totalErrors++
	}

	stats, ok := s.byType[task.Type]
	if !ok {
		stats = &taskTypeStats{}
		s.byType[task.Type] = stats
	}
	stats.count++
	if task.Status == TaskStatusSuccess {
		stats.successCount++
	}
	stats.totalDuration += task.Duration
}

// TaskMetrics returns the running totals.
func (s *MetricsStore) TaskMetrics() TaskMetrics {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m := TaskMetrics{
		TotalProcessed: s.totalTasks,
		TotalSuccess:   s.totalSuccess,
		TotalErrors:    s.totalErrors,
		ByType:         make(map[string]*TaskTypeMetrics, len(s.byType)),
	}
	for taskType, stats := range s.byType {
		m.ByType[taskType] = &TaskTypeMetrics{
			Count:       stats.count,
			SuccessRate: float64(stats.successCount) / float64(stats.count) * 100,
			AvgDuration: stats.totalDuration / time.Duration(stats.count),
		}
	}
	return m
}

// RecentTasks returns up to limit tasks, newest first.
func (s *MetricsStore) RecentTasks(limit int) []TaskRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 || s.size == 0 {
		return []TaskRecord{}
	}
	if limit > s.size {
		limit = s.size
	}

	n := len(s.history)
	out := make([]TaskRecord, limit)
	for i := 0; i < limit; i++ {
		out[i] = s.history[(s.head-1-i+n)%n]
	}
	return out
}

// SystemStatus reports version and uptime.
func (s *MetricsStore) SystemStatus() SystemStatus {
	return SystemStatus{
		Version:   s.version,
		Uptime:    time.Since(s.startTime),
		LastCheck: time.Now(),
	}
}
