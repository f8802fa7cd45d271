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

// Planner turns a natural-language task into a validated execution plan.
type Planner struct {
	config    *config.Config
	llm       LLMProvider
	registry  *tools.Registry
	telemetry *telemetry.Telemetry
	logger    *log.Logger
}

// NewPlanner creates a new planner instance.
func NewPlanner(cfg *config.Config, llm LLMProvider, registry *tools.Registry, tele *telemetry.Telemetry) *Planner {
	return &Planner{
		config:    cfg,
		llm:       llm,
		registry:  registry,
		telemetry: tele,
		logger:    log.New(log.Writer(), "[PLANNER] ", log.LstdFlags),
	}
}

// CreatePlan asks the language model for a plan and validates it against the
// tool registry. A collaborator failure or a fully invalid response yields an
// empty plan, not an error: downstream treats zero steps as planning failure.
func (p *Planner) CreatePlan(ctx context.Context, task string) (Plan, error) {
	startTime := time.Now()

	prompt := p.createPlanningPrompt(task)
	response, err := p.llm.Generate(ctx, prompt, "", map[string]interface{}{
		"temperature":     0.2, // planning wants consistency, not creativity
		"response_schema": p.planSchema(),
	})
	p.telemetry.RecordLLMRequest("planning", err == nil, time.Since(startTime))
	if err != nil {
		p.logger.Printf("plan generation failed: %v", err)
		return Plan{}, nil
	}

	plan := p.parsePlanResponse(response)
	p.logger.Printf("planning completed in %v with %d steps", time.Since(startTime), len(plan.Steps))
	return plan, nil
}

// createPlanningPrompt builds the planning prompt from the task text and the
// registry's declared capabilities.
func (p *Planner) createPlanningPrompt(task string) string {
	var toolDescs strings.Builder
	for i, t := range p.registry.Tools() {
		fmt.Fprintf(&toolDescs, "%d. %s — %s\n", i+1, t.Name(), t.Description())
		for param, desc := range t.Parameters() {
			fmt.Fprintf(&toolDescs, "   - %s: %s\n", param, desc)
		}
	}

	return fmt.Sprintf(`You are an AI planner. Convert the user task into JSON execution steps.

Rules:
- Only return JSON
- Do NOT explain
- Do NOT add text before or after the JSON

Available tools:
%s
Output format EXACTLY:

{
  "steps": [
    {
      "tool": "weather.get_weather",
      "input": {
        "city": "Delhi"
      },
      "description": "Look up the weather in Delhi"
    }
  ]
}

Task: %s`, toolDescs.String(), task)
}

// planSchema describes the expected plan shape for schema-constrained output.
func (p *Planner) planSchema() map[string]interface{} {
	names := p.registry.Names()
	enum := make([]interface{}, len(names))
	for i, n := range names {
		enum[i] = n
	}
	return map[string]interface{}{
		"type": "object",
		"properties": map[string]interface{}{
			"steps": map[string]interface{}{
				"type": "array",
				"items": map[string]interface{}{
					"type": "object",
					"properties": map[string]interface{}{
						"tool":        map[string]interface{}{"type": "string", "enum": enum},
						"input":       map[string]interface{}{"type": "object"},
						"description": map[string]interface{}{"type": "string"},
					},
					"required": []interface{}{"tool", "input"},
				},
			},
		},
		"required": []interface{}{"steps"},
	}
}

// parsePlanResponse extracts the JSON object from the model output and keeps
// only the steps that survive validation. Anything unparseable collapses to
// an empty plan.
func (p *Planner) parsePlanResponse(response string) Plan {
	jsonStr := extractJSON(response)
	if jsonStr == "" {
		p.logger.Printf("no JSON found in planner response")
		return Plan{}
	}

	var raw struct {
		Steps []map[string]interface{} `json:"steps"`
	}
	if err := json.Unmarshal([]byte(jsonStr), &raw); err != nil {
		p.logger.Printf("failed to parse plan JSON: %v", err)
		return Plan{}
	}

	var steps []Step
	for i, entry := range raw.Steps {
		step, err := p.validateStep(entry)
		if err != nil {
			p.logger.Printf("dropping step %d: %v", i+1, err)
			continue
		}
		steps = append(steps, step)
	}
	return Plan{Steps: steps}
}

// validateStep enforces the step shape at the boundary so the executor can
// trust every step it receives.
func (p *Planner) validateStep(entry map[string]interface{}) (Step, error) {
	toolRaw, ok := entry["tool"]
	if !ok {
		return Step{}, fmt.Errorf("missing tool field")
	}
	toolName, ok := toolRaw.(string)
	if !ok {
		return Step{}, fmt.Errorf("tool field must be a string, got %T", toolRaw)
	}
	if _, known := p.registry.Resolve(toolName); !known {
		return Step{}, fmt.Errorf("unknown tool %q", toolName)
	}

	inputRaw, ok := entry["input"]
	if !ok {
		return Step{}, fmt.Errorf("missing input field")
	}
	input, ok := inputRaw.(map[string]interface{})
	if !ok {
		return Step{}, fmt.Errorf("input field must be an object, got %T", inputRaw)
	}

	desc, _ := entry["description"].(string)
	return Step{Tool: toolName, Input: input, Description: desc}, nil
}

// extractJSON pulls the first balanced JSON object out of a model response,
// tolerating prose or markdown fences around it.
func extractJSON(response string) string {
	start := -1
	depth := 0
	inString := false
	escaped := false
	for i, ch := range response {
		if inString {
			switch {
			case escaped:
				escaped = false
			case ch == '\\':
				escaped = true
			case ch == '"':
				inString = false
			}
			continue
		}
		switch ch {
		case '"':
			if depth > 0 {
				inString = true
			}
		case '{':
			if depth == 0 {
				start = i
			}
			depth++
		case '}':
			if depth > 0 {
				depth--
			}
			if depth == 0 && start != -1 {
				return response[start : i+1]
			}
		}
	}
	return ""
}
