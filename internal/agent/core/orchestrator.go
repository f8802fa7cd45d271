package core

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/mohammad-safakhou/taskpilot/config"
	"github.com/mohammad-safakhou/taskpilot/internal/agent/telemetry"
	"github.com/mohammad-safakhou/taskpilot/internal/tools"
)

// ErrEmptyPlan signals that planning produced no actionable steps. The
// pipeline halts before execution; callers surface it as a client error.
var ErrEmptyPlan = errors.New("planner produced an empty plan")

// PlanningSuggestions are the diagnostic hints attached to an empty-plan
// failure.
var PlanningSuggestions = []string{
	"rephrase the task in terms of repository search or weather lookup",
	"check that the generation-service API key is configured",
	"retry the request; the language model may have been briefly unavailable",
}

// Orchestrator wires Planner -> Executor -> Verifier and drives the bounded
// retry loop. It owns the plan and the mutable result collection for one
// task; nothing is shared between tasks.
type Orchestrator struct {
	config    *config.Config
	planner   *Planner
	executor  *Executor
	verifier  *Verifier
	telemetry *telemetry.Telemetry
	logger    *log.Logger
	onPlan    func(Plan)
}

// NewOrchestrator builds the full pipeline from configuration. The LLM
// provider is constructed once here and injected into the planner and
// verifier; there is no lazily-initialized global client.
func NewOrchestrator(cfg *config.Config, logger *log.Logger) (*Orchestrator, error) {
	llm, err := NewLLMProvider(cfg.LLM)
	if err != nil {
		return nil, fmt.Errorf("llm provider: %w", err)
	}
	registry := tools.NewRegistry(cfg.Tools, nil)
	tele := telemetry.NewTelemetry(cfg.Telemetry)
	return NewOrchestratorWith(cfg, llm, registry, tele, logger), nil
}

// NewOrchestratorWith assembles an orchestrator from explicit components.
func NewOrchestratorWith(cfg *config.Config, llm LLMProvider, registry *tools.Registry, tele *telemetry.Telemetry, logger *log.Logger) *Orchestrator {
	if logger == nil {
		logger = log.New(log.Writer(), "[ORCH] ", log.LstdFlags)
	}
	return &Orchestrator{
		config:    cfg,
		planner:   NewPlanner(cfg, llm, registry, tele),
		executor:  NewExecutor(cfg, registry, tele),
		verifier:  NewVerifier(cfg, llm, tele),
		telemetry: tele,
		logger:    logger,
	}
}

// OnStepProgress registers a per-step observer on the executor.
func (o *Orchestrator) OnStepProgress(fn StepProgress) {
	o.executor.OnProgress(fn)
}

// OnPlan registers an observer called once planning succeeds. Diagnostic
// only, like OnStepProgress.
func (o *Orchestrator) OnPlan(fn func(Plan)) {
	o.onPlan = fn
}

// RunTask runs one task through the plan/execute/verify loop. maxRetries
// bounds the number of retry rounds after the initial execution; a negative
// value means the configured default. The whole run is bounded by
// general.default_timeout when one is configured. Exhausting the budget is not an error:
// the last verification report is the final answer either way.
func (o *Orchestrator) RunTask(ctx context.Context, task string, maxRetries int) (TaskReport, error) {
	startTime := time.Now()
	if maxRetries < 0 {
		maxRetries = o.config.Agents.MaxRetries
	}
	if timeout := o.config.General.DefaultTimeout; timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	report := TaskReport{
		ID:        uuid.New().String(),
		Task:      task,
		CreatedAt: startTime,
	}

	plan, err := o.planner.CreatePlan(ctx, task)
	if err != nil {
		o.telemetry.RecordTask(false, time.Since(startTime), 0)
		return report, fmt.Errorf("planning: %w", err)
	}
	if len(plan.Steps) == 0 {
		o.telemetry.RecordTask(false, time.Since(startTime), 0)
		return report, ErrEmptyPlan
	}
	report.Plan = plan
	o.logger.Printf("task %s: plan has %d steps", report.ID, len(plan.Steps))
	if o.onPlan != nil {
		o.onPlan(plan)
	}

	results := o.executor.ExecutePlan(ctx, plan)
	verification := o.verifier.VerifyResults(ctx, results, plan)

	rounds := 0
	for verification.NeedsRetry && rounds < maxRetries {
		indices := validIndices(verification.RetrySteps, len(plan.Steps))
		if len(indices) == 0 {
			break
		}
		rounds++
		o.logger.Printf("task %s: retry round %d for steps %v", report.ID, rounds, indices)

		redone := o.executor.ExecuteSteps(ctx, plan, indices)
		for _, r := range redone {
			results[r.Step-1] = r
		}
		verification = o.verifier.VerifyResults(ctx, results, plan)
	}

	report.Results = results
	report.Verification = verification
	report.RetryRounds = rounds
	report.ProcessingTime = time.Since(startTime)

	o.telemetry.RecordTask(verification.Verified, report.ProcessingTime, rounds)
	o.logger.Printf("task %s: finished in %v (verified=%t, retry_rounds=%d)",
		report.ID, report.ProcessingTime, verification.Verified, rounds)
	return report, nil
}

// validIndices filters 1-based retry indices to those inside the plan.
func validIndices(indices []int, planLen int) []int {
	var out []int
	for _, idx := range indices {
		if idx >= 1 && idx <= planLen {
			out = append(out, idx)
		}
	}
	return out
}
