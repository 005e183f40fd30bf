package run

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strings"

	"github.com/graphistry/agentbench/internal/harness"
	"github.com/graphistry/agentbench/internal/skills"
)

// PreflightResult records one endpoint preflight probe.
type PreflightResult struct {
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
	LatencyMS int64  `json:"latency_ms"`
	TimeoutS  int    `json:"timeout_s"`
	RawRef    string `json:"raw_ref,omitempty"`
}

// Manifest is the run-level configuration snapshot written alongside
// the ledger.
type Manifest struct {
	RunID     string `json:"run_id"`
	CreatedAt string `json:"created_at"`
	Cwd       string `json:"cwd"`
	GitSHA    string `json:"git_sha,omitempty"`
	GitBranch string `json:"git_branch,omitempty"`

	Harnesses       []string          `json:"harnesses"`
	HarnessVariants []harness.Variant `json:"harness_variants"`
	Journeys        []string          `json:"journeys"`
	CaseIDsFilter   []string          `json:"case_ids_filter"`

	SkillsModes           []string                          `json:"skills_mode"`
	SkillsProfile         string                            `json:"skills_profile"`
	Skills                map[string][]skills.ManifestEntry `json:"skills"`
	SkillsDelivery        string                            `json:"skills_delivery"`
	NativeSkillsMountMode string                            `json:"native_skills_mount_mode"`

	Grading               string  `json:"grading"`
	OracleHarness         string  `json:"oracle_harness"`
	OracleModel           string  `json:"oracle_model"`
	OracleTimeoutS        int     `json:"oracle_timeout_s"`
	OracleMinScoreDefault float64 `json:"oracle_min_score_default"`
	OracleStrict          bool    `json:"oracle_strict"`

	OTelEnabled  bool   `json:"otel_enabled"`
	FailFast     bool   `json:"failfast"`
	OTelService  string `json:"otel_service"`
	OTelEndpoint string `json:"otel_endpoint"`

	LouieURL        string   `json:"louie_url"`
	ClaudeCwd       string   `json:"claude_cwd"`
	CodexCwd        string   `json:"codex_cwd"`
	OracleClaudeCwd string   `json:"oracle_claude_cwd"`
	OracleCodexCwd  string   `json:"oracle_codex_cwd"`
	ClaudeModels    []string `json:"claude_models"`
	CodexModels     []string `json:"codex_models"`

	TimeoutS   int `json:"timeout_s"`
	MaxWorkers int `json:"max_workers"`

	NativeEnvs map[string]map[string]string `json:"native_envs"`
	CodexHomes map[string]string            `json:"codex_homes"`
	Preflight  map[string]PreflightResult   `json:"preflight"`
}

// CorrelationRow maps one row's identity to its trace/runtime ids for
// lookup in the external tracing backend.
type CorrelationRow struct {
	JourneyID  string     `json:"journey_id"`
	CaseID     string     `json:"case_id"`
	Harness    string     `json:"harness"`
	Model      string     `json:"model"`
	SkillsMode string     `json:"skills_mode"`
	TraceID    string     `json:"trace_id"`
	RuntimeIDs RuntimeIDs `json:"runtime_ids"`
}

// CorrelationExport is the otel_ids.json payload: per-row correlation
// ids plus ready-made retrieval commands for the log backend.
type CorrelationExport struct {
	RunID        string            `json:"run_id"`
	OTelEnabled  bool              `json:"otel_enabled"`
	OTelService  string            `json:"otel_service"`
	OTelEndpoint string            `json:"otel_endpoint"`
	Retrieve     map[string]string `json:"retrieve"`
	Rows         []CorrelationRow  `json:"rows"`
}

func buildCorrelationExport(runID string, opts *Options, rows []Row) *CorrelationExport {
	endpoint := opts.OTelEndpoint
	if endpoint == "" {
		endpoint = "http://localhost:4317"
	}
	export := &CorrelationExport{
		RunID:        runID,
		OTelEnabled:  opts.OTel,
		OTelService:  opts.OTelService,
		OTelEndpoint: endpoint,
		Retrieve: map[string]string{
			"logs_by_run_id": fmt.Sprintf(
				"bin/otel/cmds/search-logs --service %s --contains %s --since 2h --limit 200 --full",
				opts.OTelService, runID),
			"case_start_events": fmt.Sprintf(
				"bin/otel/cmds/search-logs --service %s --contains \"agent_eval.case.start\" --since 2h --limit 200 --full",
				opts.OTelService),
		},
		Rows: make([]CorrelationRow, 0, len(rows)),
	}
	for _, row := range rows {
		export.Rows = append(export.Rows, CorrelationRow{
			JourneyID:  row.JourneyID,
			CaseID:     row.CaseID,
			Harness:    row.Harness,
			Model:      row.Model,
			SkillsMode: row.SkillsMode,
			TraceID:    row.TraceID,
			RuntimeIDs: row.RuntimeIDs,
		})
	}
	return export
}

func writeJSON(path string, payload any) error {
	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", path, err)
	}
	if err := os.WriteFile(path, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// gitRevParse is best-effort: outside a repo it returns "".
func gitRevParse(args ...string) string {
	out, err := exec.Command("git", append([]string{"rev-parse"}, args...)...).Output()
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(out))
}
