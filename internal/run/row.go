// Package run orchestrates a benchmark run: scheduling harness
// variants per case, grading, the append-only ledger, and the final
// aggregate summary.
package run

import (
	"github.com/graphistry/agentbench/internal/grading"
	"github.com/graphistry/agentbench/internal/transcript"
)

// RuntimeIDs carries harness-reported session identifiers for
// correlation with external systems.
type RuntimeIDs struct {
	SessionID  any `json:"session_id"`
	ThreadID   any `json:"thread_id"`
	LouieRunID any `json:"louie_run_id"`
	DthreadID  any `json:"dthread_id"`
}

// CheckBreakdown nests the per-grader breakdowns on a row. Trace is
// present only when trace checks were configured; Oracle only when
// oracle grading was requested.
type CheckBreakdown struct {
	Deterministic grading.DetBreakdown    `json:"deterministic"`
	Trace         *grading.TraceBreakdown `json:"trace,omitempty"`
	Oracle        *grading.OracleResult   `json:"oracle,omitempty"`
	Hybrid        *grading.HybridDetail   `json:"hybrid,omitempty"`
	OracleError   string                  `json:"oracle_error,omitempty"`
}

// Row is one graded work item: one (journey, case, skills mode,
// harness variant) execution. Rows are the unit of the ledger and of
// summary aggregation.
type Row struct {
	RunID      string `json:"run_id"`
	Timestamp  string `json:"timestamp"`
	JourneyID  string `json:"journey_id"`
	EvalIntent string `json:"eval_intent"`
	CaseID     string `json:"case_id"`
	CasePrompt string `json:"case_prompt"`

	Harness       string `json:"harness"`
	Model         string `json:"model"`
	SkillsMode    string `json:"skills_mode"`
	SkillsEnabled bool   `json:"skills_enabled"`
	SkillsProfile string `json:"skills_profile"`

	TraceID     string `json:"trace_id"`
	Traceparent string `json:"traceparent"`

	HarnessOK    bool   `json:"harness_ok"`
	HarnessError string `json:"harness_error,omitempty"`
	ResponseText string `json:"response_text"`

	Pass          bool    `json:"pass_bool"`
	Score         float64 `json:"score"`
	GradingMode   string  `json:"grading_mode"`
	GradingSource string  `json:"grading_source"`

	DeterministicPass  bool    `json:"deterministic_pass_bool"`
	DeterministicScore float64 `json:"deterministic_score"`

	OracleRequested bool     `json:"oracle_requested"`
	OracleAttempted bool     `json:"oracle_attempted"`
	OracleOK        bool     `json:"oracle_ok"`
	OraclePass      *bool    `json:"oracle_pass_bool"`
	OracleScore     *float64 `json:"oracle_score"`
	OracleError     string   `json:"oracle_error,omitempty"`
	OracleHarness   string   `json:"oracle_harness,omitempty"`
	OracleModel     string   `json:"oracle_model,omitempty"`
	OracleTraceID   string   `json:"oracle_trace_id,omitempty"`

	CheckBreakdown CheckBreakdown      `json:"check_breakdown"`
	TracePass      bool                `json:"trace_pass_bool"`
	TraceScore     float64             `json:"trace_score"`
	TraceFeatures  transcript.Features `json:"trace_features"`

	LatencyMS       int64      `json:"latency_ms"`
	RawRef          string     `json:"raw_ref,omitempty"`
	RuntimeIDs      RuntimeIDs `json:"runtime_ids"`
	Usage           any        `json:"usage,omitempty"`
	SelectedHarness any        `json:"selected_harness,omitempty"`
	Delegates       any        `json:"delegates,omitempty"`
	CommandExitCode *int       `json:"command_exit_code"`
}
