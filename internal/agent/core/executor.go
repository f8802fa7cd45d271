package core

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/mohammad-safakhou/taskpilot/config"
	"github.com/mohammad-safakhou/taskpilot/internal/agent/telemetry"
	"github.com/mohammad-safakhou/taskpilot/internal/tools"
)

// Executor runs plan steps in order against the tool registry. Step failures
// are isolated: one failed step never prevents execution of the rest, and
// ExecutePlan never returns an error.
type Executor struct {
	config    *config.Config
	registry  *tools.Registry
	telemetry *telemetry.Telemetry
	logger    *log.Logger
	progress  StepProgress
}

// NewExecutor creates a new executor instance.
func NewExecutor(cfg *config.Config, registry *tools.Registry, tele *telemetry.Telemetry) *Executor {
	return &Executor{
		config:    cfg,
		registry:  registry,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[EXEC] ", log.LstdFlags),
	}
}

// OnProgress registers a callback observing each completed step. Diagnostic
// only; execution behaves identically without it.
func (e *Executor) OnProgress(fn StepProgress) {
	e.progress = fn
}

// ExecutePlan runs every step sequentially and returns one result per step in
// plan order. An empty plan yields an empty slice, not a sentinel result.
func (e *Executor) ExecutePlan(ctx context.Context, plan Plan) []StepResult {
	results := make([]StepResult, 0, len(plan.Steps))
	for i := range plan.Steps {
		result := e.executeStep(ctx, plan.Steps[i], i+1)
		results = append(results, result)
		if e.progress != nil {
			e.progress(result, len(plan.Steps))
		}
	}
	return results
}

// ExecuteSteps re-runs the given 1-based step numbers of the plan, in
// ascending plan order, and returns one result per valid index. Indices
// outside the plan are skipped.
func (e *Executor) ExecuteSteps(ctx context.Context, plan Plan, indices []int) []StepResult {
	seen := make(map[int]bool, len(indices))
	var valid []int
	for _, idx := range indices {
		if idx < 1 || idx > len(plan.Steps) || seen[idx] {
			if !seen[idx] {
				e.logger.Printf("ignoring retry index %d outside plan of %d steps", idx, len(plan.Steps))
			}
			continue
		}
		seen[idx] = true
		valid = append(valid, idx)
	}

	results := make([]StepResult, 0, len(valid))
	for i := 1; i <= len(plan.Steps); i++ {
		if !seen[i] {
			continue
		}
		result := e.executeStep(ctx, plan.Steps[i-1], i)
		results = append(results, result)
		if e.progress != nil {
			e.progress(result, len(plan.Steps))
		}
	}
	return results
}

// executeStep invokes one step's tool and classifies the outcome. The three
// failure shapes are: unknown tool, invalid parameters, and execution error;
// a call-level success still fails the step when the payload is error-shaped.
func (e *Executor) executeStep(ctx context.Context, step Step, number int) StepResult {
	startTime := time.Now()
	result := StepResult{
		Step:        number,
		Tool:        step.Tool,
		Description: step.Description,
		Input:       step.Input,
	}

	tool, ok := e.registry.Resolve(step.Tool)
	if !ok {
		// The planner validates tool names, so this only fires for plans
		// built outside the planner.
		result.Output = map[string]interface{}{"error": fmt.Sprintf("unknown tool: %s", step.Tool)}
		e.finishStep(&result, startTime)
		return result
	}

	if err := tool.Validate(step.Input); err != nil {
		result.Output = map[string]interface{}{"error": fmt.Sprintf("invalid parameters: %v", err)}
		e.finishStep(&result, startTime)
		return result
	}

	stepCtx := ctx
	if timeout := e.config.Agents.StepTimeout; timeout > 0 {
		var cancel context.CancelFunc
		stepCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	output, err := tool.Invoke(stepCtx, step.Input)
	if err != nil {
		result.Output = map[string]interface{}{"error": fmt.Sprintf("execution error: %v", err)}
		e.finishStep(&result, startTime)
		return result
	}

	result.Output = output
	result.Success = !isErrorPayload(output)
	e.finishStep(&result, startTime)
	return result
}

func (e *Executor) finishStep(result *StepResult, startTime time.Time) {
	duration := time.Since(startTime)
	e.telemetry.RecordStep(result.Tool, result.Success, duration)
	if result.Success {
		e.logger.Printf("step %d (%s) completed in %v", result.Step, result.Tool, duration)
	} else {
		e.logger.Printf("step %d (%s) failed in %v: %v", result.Step, result.Tool, duration, result.Output)
	}
}
