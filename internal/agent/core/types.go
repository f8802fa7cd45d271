package core

import (
	"context"
	"time"
)

// Step is one planned tool invocation.
type Step struct {
	Tool        string                 `json:"tool"`
	Input       map[string]interface{} `json:"input"`
	Description string                 `json:"description,omitempty"`
}

// Plan is an ordered list of steps derived from a natural-language task.
// A plan with zero steps is the well-defined "planning failed" outcome.
type Plan struct {
	Steps []Step `json:"steps"`
}

// StepResult is the outcome of executing one step. Step numbers are 1-based
// and stable across retry rounds: a retried step's result replaces the prior
// one under the same number.
type StepResult struct {
	Step        int                    `json:"step"`
	Tool        string                 `json:"tool"`
	Description string                 `json:"description,omitempty"`
	Input       map[string]interface{} `json:"input"`
	Output      interface{}            `json:"output"`
	Success     bool                   `json:"success"`
}

// VerificationReport is the verifier's assessment of a result set.
type VerificationReport struct {
	Verified    bool         `json:"verified"`
	Summary     string       `json:"summary"`
	Issues      []string     `json:"issues"`
	NeedsRetry  bool         `json:"needs_retry"`
	RetrySteps  []int        `json:"retry_steps"`
	Results     []StepResult `json:"results"`
	FinalOutput FinalOutput  `json:"final_output"`
}

// FinalOutput bundles the per-tool successful outputs plus run statistics.
// Data is only populated when the overall verification succeeded; it maps
// each tool's short name to that tool's last successful output.
type FinalOutput struct {
	TaskCompleted   bool                   `json:"task_completed"`
	Summary         string                 `json:"summary"`
	TotalSteps      int                    `json:"total_steps"`
	SuccessfulSteps int                    `json:"successful_steps"`
	FailedSteps     int                    `json:"failed_steps"`
	Issues          []string               `json:"issues"`
	Data            map[string]interface{} `json:"data,omitempty"`
}

// TaskReport is the final answer for one task run.
type TaskReport struct {
	ID             string             `json:"id"`
	Task           string             `json:"task"`
	Plan           Plan               `json:"plan"`
	Results        []StepResult       `json:"results"`
	Verification   VerificationReport `json:"verification"`
	RetryRounds    int                `json:"retry_rounds"`
	ProcessingTime time.Duration      `json:"processing_time"`
	CreatedAt      time.Time          `json:"created_at"`
}

// LLMProvider abstracts the language-generation collaborator. Implementations
// must be safe for concurrent reuse across tasks.
type LLMProvider interface {
	// Generate produces text for a prompt. When options carries a
	// "response_schema" map the provider requests schema-constrained JSON
	// output from the model. An empty model means the provider's own
	// fallback order.
	Generate(ctx context.Context, prompt string, model string, options map[string]interface{}) (string, error)
}

// StepProgress observes step execution; diagnostic only. The CLI uses it to
// print per-step status lines.
type StepProgress func(result StepResult, total int)

// isErrorPayload reports whether a tool output is error-shaped: a map with an
// "error" key, or an array whose first element is such a map (the repository
// search tool returns `[{"error": ...}]`). A nil output also counts.
func isErrorPayload(output interface{}) bool {
	switch v := output.(type) {
	case nil:
		return true
	case map[string]interface{}:
		_, found := v["error"]
		return found
	case []interface{}:
		if len(v) == 0 {
			return false
		}
		if m, ok := v[0].(map[string]interface{}); ok {
			_, found := m["error"]
			return found
		}
	}
	return false
}
