package grading

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/graphistry/agentbench/internal/harness"
	"github.com/graphistry/agentbench/internal/journey"
)

// Judge prompt field budgets, bounding the judge prompt regardless of
// how large the case or the candidate response got.
const (
	budgetEvalPrompt = 2400
	budgetChecks     = 2000
	budgetReference  = 2400
	budgetRubric     = 2000
	budgetConcepts   = 1000
	budgetResponse   = 8000

	responseTailLimit = 1500
)

const judgePromptTemplate = `You are a strict evaluator for an LLM benchmark case.
Judge if the candidate response satisfies the task intent and checks.
Return ONLY one JSON object with keys:
- pass (boolean)
- score (number 0..1)
- reasons (array of short strings)
- matched (array of short strings)
- missed (array of short strings)
- unsafe (array of short strings)

Apply this threshold: pass should be true only when score >= %.2f.
Penalize hallucinations, unsafe credential handling, and missing required steps.

[EVAL_PROMPT]
%s
[/EVAL_PROMPT]

[DETERMINISTIC_CHECKS_JSON]
%s
[/DETERMINISTIC_CHECKS_JSON]

[REFERENCE_ANSWER]
%s
[/REFERENCE_ANSWER]

[RUBRIC]
%s
[/RUBRIC]

[REQUIRED_CONCEPTS]
%s
[/REQUIRED_CONCEPTS]

[FORBIDDEN_CONCEPTS]
%s
[/FORBIDDEN_CONCEPTS]

[CANDIDATE_RESPONSE]
%s
[/CANDIDATE_RESPONSE]`

// OracleResult is the oracle grader's verdict plus the invocation
// diagnostics needed to debug a judge call after the fact.
type OracleResult struct {
	Attempted    bool           `json:"attempted"`
	OK           bool           `json:"ok"`
	Error        string         `json:"error,omitempty"`
	Pass         bool           `json:"pass_bool"`
	Score        float64        `json:"score"`
	Threshold    float64        `json:"threshold,omitempty"`
	TraceID      string         `json:"trace_id,omitempty"`
	Harness      string         `json:"harness,omitempty"`
	Model        string         `json:"model,omitempty"`
	LatencyMS    int64          `json:"latency_ms"`
	RawRef       string         `json:"raw_ref,omitempty"`
	Parsed       map[string]any `json:"parsed,omitempty"`
	ResponseTail string         `json:"response_tail,omitempty"`
}

// Oracle re-invokes the harness protocol against a designated judge
// harness and interprets the judge's JSON verdict.
type Oracle struct {
	Invoker harness.Invoker

	Harness  string
	Model    string
	TimeoutS int
	LouieURL string
	// WorkDir and Env configure the judge invocation the same way a
	// regular variant invocation is configured.
	WorkDir string
	Env     []string

	// DefaultMinScore applies when the case does not set min_score.
	DefaultMinScore float64
}

func (o *Oracle) modelLabel() string {
	if o.Model == "" {
		return "default"
	}
	return o.Model
}

// Grade judges one response. Judge-side failures (harness failure,
// non-JSON output) come back with OK=false and an error string; the
// combination policy decides whether that fails the row or falls back.
func (o *Oracle) Grade(ctx context.Context, evalPrompt, responseText string, checksRaw map[string]any, spec journey.OracleSpec) OracleResult {
	minScore := spec.ResolveMinScore(o.DefaultMinScore)

	prompt := fmt.Sprintf(judgePromptTemplate,
		minScore,
		truncate(evalPrompt, budgetEvalPrompt),
		truncate(maybeJSONDumps(checksRaw), budgetChecks),
		truncate(spec.ReferenceAnswer, budgetReference),
		truncate(spec.Rubric(), budgetRubric),
		truncate(maybeJSONDumps(spec.RequiredConcepts), budgetConcepts),
		truncate(maybeJSONDumps(spec.ForbiddenConcepts), budgetConcepts),
		truncate(responseText, budgetResponse),
	)

	timeout := o.TimeoutS
	if timeout < 20 {
		timeout = 20
	}
	traceparent, traceID := harness.MakeTraceparent()

	result := o.Invoker.Invoke(ctx, harness.Request{
		Harness:     o.Harness,
		Model:       o.Model,
		Prompt:      prompt,
		Traceparent: traceparent,
		TimeoutS:    timeout,
		LouieURL:    o.LouieURL,
		WorkDir:     o.WorkDir,
		Env:         o.Env,
	})

	out := OracleResult{
		Attempted:    true,
		TraceID:      traceID,
		Harness:      o.Harness,
		Model:        o.modelLabel(),
		LatencyMS:    result.LatencyMS,
		RawRef:       result.RawRef,
		ResponseTail: tailText(result.ResponseText, responseTailLimit),
	}

	if !result.OK {
		out.Error = result.Error
		if out.Error == "" {
			out.Error = "oracle_harness_failed"
		}
		return out
	}

	parsed, ok := ExtractJSONObject(result.ResponseText)
	if !ok {
		out.Error = "oracle_parse_failed"
		return out
	}

	score := clamp01(floatField(parsed, "score"))
	pass := score >= minScore
	if claim, claimed := boolField(parsed, "pass"); claimed {
		pass = claim
	}
	// Threshold dominates a contradictory self-report.
	if score < minScore {
		pass = false
	}

	out.OK = true
	out.Pass = pass
	out.Score = score
	out.Threshold = minScore
	out.Parsed = map[string]any{
		"pass":    parsed["pass"],
		"score":   parsed["score"],
		"reasons": parsed["reasons"],
		"matched": parsed["matched"],
		"missed":  parsed["missed"],
		"unsafe":  parsed["unsafe"],
	}
	return out
}

func truncate(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	cut := limit - 3
	if cut < 0 {
		cut = 0
	}
	return text[:cut] + "..."
}

func tailText(text string, limit int) string {
	if len(text) <= limit {
		return text
	}
	return text[len(text)-limit:]
}

// maybeJSONDumps renders a payload as JSON, degrading to "{}" rather
// than failing the judge prompt build.
func maybeJSONDumps(payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return "{}"
	}
	return string(data)
}

// boolField reads a judge's boolean claim leniently: JSON bools,
// numbers, and "true"/"1" style strings all count. The second return
// is false when the field is absent or unintelligible.
func boolField(m map[string]any, key string) (bool, bool) {
	switch v := m[key].(type) {
	case bool:
		return v, true
	case float64:
		return v != 0, true
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes", "y":
			return true, true
		case "false", "0", "no", "n":
			return false, true
		}
	}
	return false, false
}

func floatField(m map[string]any, key string) float64 {
	switch v := m[key].(type) {
	case float64:
		return v
	case string:
		var f float64
		if _, err := fmt.Sscanf(strings.TrimSpace(v), "%g", &f); err == nil {
			return f
		}
	case bool:
		if v {
			return 1
		}
	}
	return 0
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
