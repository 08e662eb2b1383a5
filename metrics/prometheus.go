package metrics

import (
	"net/http"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "finparser"

// Recorder exports task metrics to Prometheus and keeps a MetricsStore for
// the status API.
type Recorder struct {
	*MetricsStore

	registry *prometheus.Registry

	tasks    *prometheus.CounterVec
	duration *prometheus.HistogramVec
	tokens   *prometheus.CounterVec
	files    *prometheus.CounterVec
}

var _ MetricsCollector = (*Recorder)(nil)

// NewRecorder creates a Recorder with its own registry.
func NewRecorder(store *MetricsStore) *Recorder {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Recorder{
		MetricsStore: store,
		registry:     reg,
		tasks: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "total",
			Help:      "Finished tasks by type, company, mapping method and status.",
		}, []string{"type", "company", "method", "status"}),
		duration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "duration_seconds",
			Help:      "Task duration in seconds.",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		}, []string{"type"}),
		tokens: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "llm",
			Name:      "tokens_total",
			Help:      "Tokens consumed by LLM extraction.",
		}, []string{"provider"}),
		files: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "files",
			Name:      "generated_total",
			Help:      "Generated files by type.",
		}, []string{"type"}),
	}
}

// RecordTask updates the store and the exported counters.
func (r *Recorder) RecordTask(task TaskRecord) {
	if r == nil {
		return
	}
	r.MetricsStore.RecordTask(task)

	method := strings.ToLower(task.Method)
	if method == "" {
		method = "none"
	}
	company := strings.TrimSpace(task.Company)
	if company == "" {
		company = "unknown"
	}
	r.tasks.WithLabelValues(task.Type, company, method, task.Status).Inc()
	r.duration.WithLabelValues(task.Type).Observe(task.Duration.Seconds())

	if task.Status == TaskStatusSuccess && (task.Type == TaskTypeExcel || task.Type == TaskTypeCSV) {
		r.files.WithLabelValues(task.Type).Inc()
	}
}

// RecordTokens adds LLM token usage.
func (r *Recorder) RecordTokens(provider string, tokens int) {
	if r == nil || tokens <= 0 {
		return
	}
	r.tokens.WithLabelValues(provider).Add(float64(tokens))
}

// Registry returns the registry backing Handler.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus text format.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})
}
