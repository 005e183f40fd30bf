package main

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/graphistry/agentbench/internal/harness"
	"github.com/graphistry/agentbench/internal/journey"
	"github.com/graphistry/agentbench/internal/otelemit"
	"github.com/graphistry/agentbench/internal/run"
)

var (
	journeyDir         string
	journeys           string
	caseIDs            string
	harnesses          string
	claudeModels       string
	codexModels        string
	skillsMode         string
	skillsProfile      string
	skillsProfilesFile string
	skillsRoot         string
	skillsDelivery     string
	skillsMountMode    string
	gradingMode        string
	oracleHarness      string
	oracleModel        string
	oracleTimeoutS     int
	oracleMinScore     float64
	oracleStrict       bool
	outDir             string
	otelEnabled        bool
	otelService        string
	otelEndpoint       string
	otelScript         string
	failFast           bool
	louieURL           string
	claudeCwd          string
	codexCwd           string
	oracleClaudeCwd    string
	oracleCodexCwd     string
	harnessBinDir      string
	timeoutS           int
	maxWorkers         int
)

func newRunCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a benchmark against the configured harnesses",
		Long: `Run a benchmark: for every selected journey case, each harness
variant is invoked once per skills mode, graded, and appended to the
run ledger. The final summary is printed to stdout as JSON.`,
		Args: cobra.NoArgs,
		RunE: runCommandE,
	}

	cmd.Flags().StringVar(&journeyDir, "journey-dir", "journeys", "Directory containing journey JSON files")
	cmd.Flags().StringVar(&journeys, "journeys", "runtime_smoke", "Journey selection: 'all' or CSV of names/paths")
	cmd.Flags().StringVar(&caseIDs, "case-ids", "", "CSV of case ids to run (default: all cases)")
	cmd.Flags().StringVar(&harnesses, "harnesses", "codex,claude,louie", "CSV of harnesses to evaluate")
	cmd.Flags().StringVar(&claudeModels, "claude-models", "", "CSV of claude model variants (default: one unpinned variant)")
	cmd.Flags().StringVar(&codexModels, "codex-models", "", "CSV of codex model variants (default: one unpinned variant)")
	cmd.Flags().StringVar(&skillsMode, "skills-mode", "off", "Skills modes: off, on, both, or CSV")
	cmd.Flags().StringVar(&skillsProfile, "skills-profile", "pygraphistry_core", "Skills profile name or CSV of skill ids")
	cmd.Flags().StringVar(&skillsProfilesFile, "skills-profiles-file", filepath.Join("skills", "profiles.json"), "Profile name to skill id list mapping")
	cmd.Flags().StringVar(&skillsRoot, "skills-root", "skills", "Directory containing skill subdirectories")
	cmd.Flags().StringVar(&skillsDelivery, "skills-delivery", "native", "Skills delivery: native, inject, or auto")
	cmd.Flags().StringVar(&skillsMountMode, "skills-mount-mode", envOr("AGENT_EVAL_NATIVE_SKILLS_MOUNT_MODE", "symlink"), "Native mount mode: symlink or copy")
	cmd.Flags().StringVar(&gradingMode, "grading", "deterministic", "Grading mode: deterministic, oracle, or hybrid")
	cmd.Flags().StringVar(&oracleHarness, "oracle-harness", "codex", "Harness used as the oracle judge")
	cmd.Flags().StringVar(&oracleModel, "oracle-model", "", "Model for the oracle judge (default: harness default)")
	cmd.Flags().IntVar(&oracleTimeoutS, "oracle-timeout-s", 120, "Oracle judge timeout in seconds")
	cmd.Flags().Float64Var(&oracleMinScore, "oracle-min-score-default", 0.8, "Default oracle pass threshold")
	cmd.Flags().BoolVar(&oracleStrict, "oracle-strict", false, "Fail rows when the oracle itself fails")
	cmd.Flags().StringVarP(&outDir, "out", "o", "", "Output directory (default: runs/<run_id>)")
	cmd.Flags().BoolVar(&otelEnabled, "otel", false, "Emit lifecycle events to the OTel helper")
	cmd.Flags().StringVar(&otelService, "otel-service", "agent-eval-runner", "Service name for emitted events")
	cmd.Flags().StringVar(&otelEndpoint, "otel-endpoint", os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT_GRPC"), "OTLP gRPC endpoint")
	cmd.Flags().StringVar(&otelScript, "otel-script", envOr("AGENT_EVAL_OTEL_SCRIPT", filepath.Join("bin", "otel", "emit_event.py")), "Path to the event emission helper")
	cmd.Flags().BoolVar(&failFast, "failfast", false, "Skip remaining rows for a variant after its first infrastructure failure")
	cmd.Flags().StringVar(&louieURL, "louie-url", envOr("LOUIE_URL", "http://localhost:8501"), "Endpoint for the louie harness")
	cmd.Flags().StringVar(&claudeCwd, "claude-cwd", "", "Working directory for the claude harness (overrides the native env)")
	cmd.Flags().StringVar(&codexCwd, "codex-cwd", "", "Working directory for the codex harness (overrides the native env)")
	cmd.Flags().StringVar(&oracleClaudeCwd, "oracle-claude-cwd", "", "Working directory for a claude oracle")
	cmd.Flags().StringVar(&oracleCodexCwd, "oracle-codex-cwd", "", "Working directory for a codex oracle")
	cmd.Flags().StringVar(&harnessBinDir, "bin-dir", "bin", "Directory containing <harness>.sh adapter scripts")
	cmd.Flags().IntVar(&timeoutS, "timeout-s", 240, "Per-invocation harness timeout in seconds")
	cmd.Flags().IntVar(&maxWorkers, "max-workers", 1, "Concurrent harness invocations per case")

	return cmd
}

func runCommandE(cmd *cobra.Command, args []string) error {
	skillsModes, err := run.ParseSkillsModes(skillsMode)
	if err != nil {
		return err
	}
	switch gradingMode {
	case "deterministic", "oracle", "hybrid":
	default:
		return fmt.Errorf("invalid grading mode: %q", gradingMode)
	}
	switch skillsDelivery {
	case "native", "inject", "auto":
	default:
		return fmt.Errorf("invalid skills delivery: %q", skillsDelivery)
	}

	runID := run.NewRunID()
	resolvedOut := outDir
	if resolvedOut == "" {
		resolvedOut = filepath.Join("runs", runID)
	}

	opts := run.Options{
		RunID:                 runID,
		OutDir:                resolvedOut,
		JourneyDir:            journeyDir,
		Journeys:              journeys,
		CaseIDs:               journey.SplitCSV(caseIDs),
		Harnesses:             journey.SplitCSV(harnesses),
		ClaudeModels:          journey.SplitCSV(claudeModels),
		CodexModels:           journey.SplitCSV(codexModels),
		SkillsModes:           skillsModes,
		SkillsProfile:         skillsProfile,
		SkillsProfilesFile:    skillsProfilesFile,
		SkillsRoot:            skillsRoot,
		SkillsDelivery:        skillsDelivery,
		SkillsMountMode:       skillsMountMode,
		Grading:               gradingMode,
		OracleHarness:         oracleHarness,
		OracleModel:           oracleModel,
		OracleTimeoutS:        oracleTimeoutS,
		OracleMinScoreDefault: oracleMinScore,
		OracleStrict:          oracleStrict,
		OTel:                  otelEnabled,
		OTelService:           otelService,
		OTelEndpoint:          otelEndpoint,
		FailFast:              failFast,
		LouieURL:              louieURL,
		ClaudeCwd:             claudeCwd,
		CodexCwd:              codexCwd,
		OracleClaudeCwd:       oracleClaudeCwd,
		OracleCodexCwd:        oracleCodexCwd,
		CodexHomeBase:         resolveCodexHome(),
		TimeoutS:              timeoutS,
		MaxWorkers:            maxWorkers,
	}

	invoker := &harness.CLIInvoker{
		BinDir: harnessBinDir,
		OutDir: resolvedOut,
	}

	emitter := &otelemit.Emitter{
		Enabled:  otelEnabled,
		Service:  otelService,
		Endpoint: otelEndpoint,
		PyCmd:    resolvePython(),
		Script:   otelScript,
	}
	if debug, _ := cmd.Flags().GetBool("debug"); debug {
		emitter.Debug = true
	}

	out, err := run.New(opts, invoker, emitter).Run(cmd.Context())
	if err != nil {
		return err
	}

	encoded, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding run output: %w", err)
	}
	// Row-level failures are part of the summary, not an exit condition.
	fmt.Fprintln(cmd.OutOrStdout(), string(encoded))
	return nil
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

// resolveCodexHome mirrors the codex CLI's own home resolution.
func resolveCodexHome() string {
	if v := os.Getenv("CODEX_HOME"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".codex")
}

// resolvePython finds the interpreter for the emission helper. Emission
// is disabled when no interpreter is on PATH.
func resolvePython() string {
	if v := os.Getenv("AGENT_EVAL_OTEL_PYTHON"); v != "" {
		return v
	}
	for _, name := range []string{"python3", "python"} {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}
