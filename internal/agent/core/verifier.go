package core

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/mohammad-safakhou/taskpilot/config"
	"github.com/mohammad-safakhou/taskpilot/internal/agent/telemetry"
	"github.com/mohammad-safakhou/taskpilot/internal/tools"
)

// fallbackSummary is the fixed summary used when the language model cannot be
// reached and verification falls back to the mechanical path.
const fallbackSummary = "Mechanical verification (language model unavailable)"

// Verifier assesses executed step results and assembles the final report.
// When the language-generation collaborator is unreachable it falls back to a
// purely mechanical verification, so it always returns a well-formed report.
type Verifier struct {
	config    *config.Config
	llm       LLMProvider
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewVerifier creates a new verifier instance.
func NewVerifier(cfg *config.Config, llm LLMProvider, tele *telemetry.Telemetry) *Verifier {
	return &Verifier{
		config:    cfg,
		llm:       llm,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[VERIFY] ", log.LstdFlags),
	}
}

// verdict is the schema-constrained assessment asked of the model.
type verdict struct {
	Verified   bool     `json:"verified"`
	Summary    string   `json:"summary"`
	Issues     []string `json:"issues"`
	NeedsRetry bool     `json:"needs_retry"`
	RetrySteps []int    `json:"retry_steps"`
}

// VerifyResults assesses a result set against the plan it came from.
func (v *Verifier) VerifyResults(ctx context.Context, results []StepResult, plan Plan) VerificationReport {
	if len(results) == 0 {
		return VerificationReport{
			Verified: false,
			Summary:  "No results to verify",
			Results:  []StepResult{},
			FinalOutput: FinalOutput{
				TaskCompleted: false,
				Summary:       "No results to verify",
			},
		}
	}

	vd, err := v.assess(ctx, results)
	if err != nil {
		v.logger.Printf("collaborator verification failed, using mechanical fallback: %v", err)
		vd = mechanicalVerdict(results)
	}

	report := VerificationReport{
		Verified:   vd.Verified,
		Summary:    vd.Summary,
		Issues:     vd.Issues,
		NeedsRetry: vd.NeedsRetry,
		RetrySteps: vd.RetrySteps,
		Results:    results,
	}
	report.FinalOutput = v.assembleFinalOutput(vd, results)
	return report
}

// assess asks the language model for a verdict over a condensed summary of
// the results.
func (v *Verifier) assess(ctx context.Context, results []StepResult) (verdict, error) {
	startTime := time.Now()
	prompt := v.createVerificationPrompt(results)

	response, err := v.llm.Generate(ctx, prompt, "", map[string]interface{}{
		"temperature":     0.1,
		"response_schema": verdictSchema(),
	})
	v.telemetry.RecordLLMRequest("verification", err == nil, time.Since(startTime))
	if err != nil {
		return verdict{}, err
	}

	jsonStr := extractJSON(response)
	if jsonStr == "" {
		return verdict{}, fmt.Errorf("no JSON found in verifier response")
	}
	var vd verdict
	if err := json.Unmarshal([]byte(jsonStr), &vd); err != nil {
		return verdict{}, fmt.Errorf("failed to parse verdict: %w", err)
	}
	return vd, nil
}

func (v *Verifier) createVerificationPrompt(results []StepResult) string {
	var condensed strings.Builder
	for _, r := range results {
		fmt.Fprintf(&condensed, "- step %d: tool=%s success=%t output_present=%t\n",
			r.Step, r.Tool, r.Success, r.Output != nil)
	}
	full, _ := json.Marshal(results)

	return fmt.Sprintf(`You are a verification agent for a task automation pipeline.
Assess whether the executed steps completed the task.

STEP SUMMARY:
%s
FULL RESULTS:
%s

Respond with JSON only:
{
  "verified": true|false,
  "summary": "one or two sentences about the overall outcome",
  "issues": ["problem descriptions, empty if none"],
  "needs_retry": true|false,
  "retry_steps": [step numbers worth re-executing]
}

Mark verified=true only if every step produced usable output. Suggest a retry
only for failures that look transient.`, condensed.String(), full)
}

func verdictSchema() map[string]interface{} {
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"verified":    map[string]interface{}{"type": "boolean"},
			"summary":     map[string]interface{}{"type": "string"},
			"issues":      map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "string"}},
			"needs_retry": map[string]interface{}{"type": "boolean"},
			"retry_steps": map[string]interface{}{"type": "array", "items": map[string]interface{}{"type": "integer"}},
		},
		"required": []interface{}{"verified", "summary", "needs_retry"},
	}
}

// mechanicalVerdict is the local fallback: verified is the AND of every
// step's own success flag, and failed steps are proposed for retry.
func mechanicalVerdict(results []StepResult) verdict {
	vd := verdict{Verified: true, Summary: fallbackSummary}
	for _, r := range results {
		if !r.Success {
			vd.Verified = false
			vd.RetrySteps = append(vd.RetrySteps, r.Step)
			vd.Issues = append(vd.Issues, fmt.Sprintf("step %d (%s) failed", r.Step, r.Tool))
		}
	}
	vd.NeedsRetry = !vd.Verified
	return vd
}

// assembleFinalOutput bundles run statistics plus, when verified, the data
// map keyed by each tool's short name. Failed steps are excluded; if a tool
// ran more than once the last successful output wins.
func (v *Verifier) assembleFinalOutput(vd verdict, results []StepResult) FinalOutput {
	successful := 0
	for _, r := range results {
		if r.Success {
			successful++
		}
	}

	out := FinalOutput{
		TaskCompleted:   vd.Verified,
		Summary:         vd.Summary,
		TotalSteps:      len(results),
		SuccessfulSteps: successful,
		FailedSteps:     len(results) - successful,
		Issues:          vd.Issues,
	}

	if vd.Verified {
		data := make(map[string]interface{})
		for _, r := range results {
			if r.Success {
				data[tools.ShortName(r.Tool)] = r.Output
			}
		}
		out.Data = data
	}
	return out
}
