// Package telemetry records pipeline metrics: task outcomes, per-step tool
// calls, and language-model requests. Metrics are exported through the
// default prometheus registry and served on /metrics by the HTTP server.
package telemetry

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/mohammad-safakhou/taskpilot/config"
)

var (
	tasksTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskpilot_tasks_total",
		Help: "Completed task runs by outcome.",
	}, []string{"outcome"})

	taskDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "taskpilot_task_duration_seconds",
		Help:    "End-to-end task processing time.",
		Buckets: prometheus.DefBuckets,
	})

	retryRounds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "taskpilot_task_retry_rounds",
		Help:    "Retry rounds used per task.",
		Buckets: []float64{0, 1, 2, 3, 4, 5},
	})

	stepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskpilot_steps_total",
		Help: "Executed plan steps by tool and outcome.",
	}, []string{"tool", "outcome"})

	stepDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskpilot_step_duration_seconds",
		Help:    "Tool invocation time per step.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tool"})

	llmRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "taskpilot_llm_requests_total",
		Help: "Language-model requests by pipeline stage and outcome.",
	}, []string{"stage", "outcome"})

	llmDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "taskpilot_llm_request_duration_seconds",
		Help:    "Language-model request latency per stage.",
		Buckets: prometheus.DefBuckets,
	}, []string{"stage"})
)

// Telemetry provides monitoring for the task pipeline.
type Telemetry struct {
	config config.TelemetryConfig
	logger *log.Logger
}

// NewTelemetry creates a new telemetry instance. Instances share the
// process-wide collectors, so creating several (as tests do) is fine. When
// log_file is set the record log goes to that file instead of the default
// writer; a file that cannot be opened falls back to the default writer.
func NewTelemetry(cfg config.TelemetryConfig) *Telemetry {
	w := log.Writer()
	if cfg.LogFile != "" {
		f, err := os.OpenFile(cfg.LogFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
		if err != nil {
			log.Printf("[TELEMETRY] cannot open log file %s: %v", cfg.LogFile, err)
		} else {
			w = f
		}
	}
	return &Telemetry{
		config: cfg,
		logger: log.New(w, "[TELEMETRY] ", log.LstdFlags),
	}
}

// RecordTask records a finished task run.
func (t *Telemetry) RecordTask(verified bool, duration time.Duration, rounds int) {
	tasksTotal.WithLabelValues(outcome(verified)).Inc()
	taskDuration.Observe(duration.Seconds())
	retryRounds.Observe(float64(rounds))
	if t.config.Enabled {
		t.logger.Printf("task finished: verified=%t duration=%v retry_rounds=%d", verified, duration, rounds)
	}
}

// RecordStep records one executed plan step.
func (t *Telemetry) RecordStep(tool string, success bool, duration time.Duration) {
	stepsTotal.WithLabelValues(tool, outcome(success)).Inc()
	stepDuration.WithLabelValues(tool).Observe(duration.Seconds())
}

// RecordLLMRequest records one language-model call for a pipeline stage.
func (t *Telemetry) RecordLLMRequest(stage string, success bool, duration time.Duration) {
	llmRequests.WithLabelValues(stage, outcome(success)).Inc()
	llmDuration.WithLabelValues(stage).Observe(duration.Seconds())
	if t.config.Enabled && !success {
		t.logger.Printf("llm request failed: stage=%s duration=%v", stage, duration)
	}
}

func outcome(ok bool) string {
	if ok {
		return "success"
	}
	return "failure"
}

// String summarises recorded state for debug logging.
func (t *Telemetry) String() string {
	return fmt.Sprintf("telemetry(enabled=%t)", t.config.Enabled)
}
