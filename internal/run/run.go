package run

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/graphistry/agentbench/internal/grading"
	"github.com/graphistry/agentbench/internal/harness"
	"github.com/graphistry/agentbench/internal/journey"
	"github.com/graphistry/agentbench/internal/otelemit"
	"github.com/graphistry/agentbench/internal/skills"
	"github.com/graphistry/agentbench/internal/transcript"
)

const preflightPrompt = "Reply with exactly GRAPHISTRY_OK."

// NewRunID derives a run identifier from the current wall clock.
func NewRunID() string {
	return "agent_eval_" + time.Now().Format("20060102-150405")
}

// Options configures one benchmark run.
type Options struct {
	// RunID identifies the run; empty means generate one. OutDir
	// defaults to runs/<run id>. Both are resolved once at run start so
	// the id and the directory always agree.
	RunID  string
	OutDir string

	JourneyDir string
	Journeys   string
	CaseIDs    []string

	Harnesses    []string
	ClaudeModels []string
	CodexModels  []string

	SkillsModes        []string
	SkillsProfile      string
	SkillsProfilesFile string
	SkillsRoot         string
	SkillsDelivery     string
	SkillsMountMode    string

	Grading               string
	OracleHarness         string
	OracleModel           string
	OracleTimeoutS        int
	OracleMinScoreDefault float64
	OracleStrict          bool

	OTel         bool
	OTelService  string
	OTelEndpoint string

	FailFast bool
	LouieURL string

	ClaudeCwd       string
	CodexCwd        string
	OracleClaudeCwd string
	OracleCodexCwd  string
	// CodexHomeBase is the source credential/config home seeded into
	// codex native envs. Empty leaves the per-run home unseeded.
	CodexHomeBase string

	TimeoutS   int
	MaxWorkers int
}

// ParseSkillsModes maps a --skills-mode value to the mode list:
// "both" runs off then on; otherwise a CSV of on/off values.
func ParseSkillsModes(value string) ([]string, error) {
	val := strings.ToLower(strings.TrimSpace(value))
	if val == "both" {
		return []string{"off", "on"}, nil
	}

	var modes []string
	for _, mode := range journey.SplitCSV(val) {
		if mode != "on" && mode != "off" {
			return nil, fmt.Errorf("invalid skills mode: %s", mode)
		}
		modes = append(modes, mode)
	}
	if len(modes) == 0 {
		modes = []string{"off"}
	}
	return modes, nil
}

// Output is the final stdout artifact of a run.
type Output struct {
	RunID   string   `json:"run_id"`
	OutDir  string   `json:"out_dir"`
	Summary *Summary `json:"summary"`
}

// Runner executes a full benchmark run. The fail-fast registry is the
// only mutable state shared across concurrent workers besides the
// ledger, and both guard themselves.
type Runner struct {
	opts    Options
	invoker harness.Invoker
	emitter *otelemit.Emitter

	mu     sync.Mutex
	failed map[string]string
}

// New builds a Runner. The emitter may be nil (emission disabled).
func New(opts Options, invoker harness.Invoker, emitter *otelemit.Emitter) *Runner {
	return &Runner{
		opts:    opts,
		invoker: invoker,
		emitter: emitter,
		failed:  map[string]string{},
	}
}

func (r *Runner) failFastCause(key string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cause, ok := r.failed[key]
	return cause, ok
}

func (r *Runner) recordFailure(key, cause string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.failed[key]; !exists {
		r.failed[key] = cause
	}
}

// caseWork bundles everything a worker needs to run one case's
// variants under one skills mode. All fields are read-only during
// concurrent execution.
type caseWork struct {
	runID      string
	journeyID  string
	evalIntent string
	c          journey.Case
	mode       string
	cfg        *skills.Config
	variants   []harness.Variant
	nativeEnvs map[string]string
	codexHome  string
	maxWorkers int
}

// Run executes the full run. Only definition errors (bad journeys,
// profiles, selectors, unwritable output) return a non-nil error;
// harness and grading failures are captured in rows.
func (r *Runner) Run(ctx context.Context) (*Output, error) {
	opts := &r.opts
	if len(opts.Harnesses) == 0 {
		return nil, errors.New("at least one harness is required")
	}
	if opts.Grading == "" {
		opts.Grading = grading.ModeDeterministic
	}
	if opts.Grading == grading.ModeOracle || opts.Grading == grading.ModeHybrid {
		switch opts.OracleHarness {
		case "codex", "claude", "louie":
		default:
			return nil, fmt.Errorf("invalid oracle harness: %q", opts.OracleHarness)
		}
	}
	if len(opts.SkillsModes) == 0 {
		opts.SkillsModes = []string{"off"}
	}
	maxWorkers := opts.MaxWorkers
	if maxWorkers < 1 {
		maxWorkers = 1
	}

	runID := opts.RunID
	if runID == "" {
		runID = NewRunID()
	}
	outDir := opts.OutDir
	if outDir == "" {
		outDir = filepath.Join("runs", runID)
	}
	// Written back so every later consumer (worker home cloning, the
	// correlation export) sees the resolved values.
	opts.RunID = runID
	opts.OutDir = outDir
	if err := os.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating run dir: %w", err)
	}

	variants := harness.ExpandVariants(opts.Harnesses, map[string][]string{
		"claude": opts.ClaudeModels,
		"codex":  opts.CodexModels,
	})

	profiles, err := skills.LoadProfiles(opts.SkillsProfilesFile)
	if err != nil {
		return nil, err
	}
	skillNames := skills.ResolveNames(opts.SkillsProfile, profiles)

	materializer := &skills.Materializer{
		Root:      opts.SkillsRoot,
		OutDir:    outDir,
		MountMode: opts.SkillsMountMode,
	}
	skillConfigs := make(map[string]*skills.Config, len(opts.SkillsModes))
	for _, mode := range opts.SkillsModes {
		cfg, err := materializer.Materialize(opts.SkillsProfile, skillNames, mode == "on")
		if err != nil {
			return nil, err
		}
		skillConfigs[mode] = cfg
	}

	journeys, err := journey.LoadSelection(opts.JourneyDir, opts.Journeys)
	if err != nil {
		return nil, err
	}
	journeys, err = journey.FilterByCaseIDs(journeys, opts.CaseIDs)
	if err != nil {
		return nil, err
	}

	// Native envs are prepared once, before any concurrent invocation,
	// and are read-only to workers afterwards.
	envHarnesses := append([]string(nil), opts.Harnesses...)
	if (opts.Grading == grading.ModeOracle || opts.Grading == grading.ModeHybrid) &&
		(opts.OracleHarness == "claude" || opts.OracleHarness == "codex") &&
		!contains(envHarnesses, opts.OracleHarness) {
		envHarnesses = append(envHarnesses, opts.OracleHarness)
	}

	nativeEnvs := make(map[string]map[string]string, len(opts.SkillsModes))
	codexHomes := make(map[string]string)
	for _, mode := range opts.SkillsModes {
		nativeEnvs[mode] = map[string]string{}
		names := skillNames
		if mode != "on" {
			names = nil
		}
		for _, h := range envHarnesses {
			if h != "claude" && h != "codex" {
				continue
			}
			envDir, err := materializer.PrepareNativeEnv(h, opts.SkillsProfile, mode, names)
			if err != nil {
				return nil, err
			}
			nativeEnvs[mode][h] = envDir
			if h == "codex" {
				home, err := skills.PrepareHome(opts.CodexHomeBase, envDir)
				if err != nil {
					return nil, err
				}
				codexHomes[mode] = home
			}
		}
	}

	manifest := r.buildManifest(runID, variants, journeys, skillConfigs)
	manifest.NativeEnvs = nativeEnvs
	manifest.CodexHomes = codexHomes
	manifest.Preflight = map[string]PreflightResult{}

	// An unavailable endpoint-backed harness would otherwise burn the
	// full timeout on every row; probe it once up front.
	if opts.FailFast && contains(opts.Harnesses, "louie") {
		preflightTimeout := opts.TimeoutS
		if preflightTimeout > 20 {
			preflightTimeout = 20
		}
		if preflightTimeout < 5 {
			preflightTimeout = 5
		}
		traceparent, _ := harness.MakeTraceparent()
		result := r.invoker.Invoke(ctx, harness.Request{
			Harness:     "louie",
			Prompt:      preflightPrompt,
			Traceparent: traceparent,
			TimeoutS:    preflightTimeout,
			LouieURL:    opts.LouieURL,
		})
		manifest.Preflight["louie"] = PreflightResult{
			OK:        result.OK,
			Error:     result.Error,
			LatencyMS: result.LatencyMS,
			TimeoutS:  preflightTimeout,
			RawRef:    result.RawRef,
		}
		if !result.OK {
			cause := result.Error
			if cause == "" {
				cause = "unknown error"
			}
			r.recordFailure(harness.Variant{Harness: "louie"}.Key(), "preflight_failed: "+cause)
		}
	}

	variantKeys := make([]string, 0, len(variants))
	for _, v := range variants {
		variantKeys = append(variantKeys, v.Key())
	}
	journeyIDs := make([]string, 0, len(journeys))
	for _, j := range journeys {
		journeyIDs = append(journeyIDs, j.ID)
	}
	r.emitter.Emit("agent_eval.run.start", map[string]any{
		"agent_eval.run_id":           runID,
		"agent_eval.harnesses":        strings.Join(opts.Harnesses, " "),
		"agent_eval.harness_variants": strings.Join(variantKeys, " "),
		"agent_eval.journeys":         strings.Join(journeyIDs, " "),
	})

	ledger, err := OpenLedger(filepath.Join(outDir, "rows.jsonl"))
	if err != nil {
		return nil, err
	}
	defer ledger.Close()

	for _, j := range journeys {
		r.emitter.Emit("agent_eval.journey.start", map[string]any{
			"agent_eval.run_id":     runID,
			"agent_eval.journey_id": j.ID,
		})

		intent := j.EvalIntent
		if intent == "" {
			intent = "unspecified"
		}

		for _, c := range j.Cases {
			for _, mode := range opts.SkillsModes {
				cfg := skillConfigs[mode]
				skillAttrs := map[string]any{
					"agent_eval.run_id":         runID,
					"agent_eval.journey_id":     j.ID,
					"agent_eval.case_id":        c.ID,
					"agent_eval.skills_enabled": cfg.Enabled,
					"agent_eval.skills_profile": opts.SkillsProfile,
				}
				r.emitter.Emit("agent_eval.skills.load.start", skillAttrs)
				r.emitter.Emit("agent_eval.skills.load.success", skillAttrs)

				work := caseWork{
					runID:      runID,
					journeyID:  j.ID,
					evalIntent: intent,
					c:          c,
					mode:       mode,
					cfg:        cfg,
					variants:   variants,
					nativeEnvs: nativeEnvs[mode],
					codexHome:  codexHomes[mode],
					maxWorkers: maxWorkers,
				}

				// Rows are persisted in the original variant order even
				// though completion order varies under parallel workers.
				rows := r.executeCase(ctx, work)
				for _, row := range rows {
					if err := r.persistRow(ledger, row); err != nil {
						return nil, err
					}
				}

				r.emitter.Emit("agent_eval.skills.unload.success", skillAttrs)
			}
		}

		r.emitter.Emit("agent_eval.journey.end", map[string]any{
			"agent_eval.run_id":     runID,
			"agent_eval.journey_id": j.ID,
		})
	}

	rows := ledger.Rows()
	summary := Summarize(rows)

	if err := writeJSON(filepath.Join(outDir, "manifest.json"), manifest); err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(outDir, "summary.json"), summary); err != nil {
		return nil, err
	}
	if err := writeJSON(filepath.Join(outDir, "otel_ids.json"), buildCorrelationExport(runID, opts, rows)); err != nil {
		return nil, err
	}

	r.emitter.Emit("agent_eval.run.end", map[string]any{
		"agent_eval.run_id":            runID,
		"agent_eval.total_rows":        summary.TotalRows,
		"agent_eval.overall_pass_rate": fmt.Sprintf("%.3f", summary.OverallPassRate),
	})
	r.emitter.Drain()

	return &Output{RunID: runID, OutDir: outDir, Summary: summary}, nil
}

func (r *Runner) buildManifest(runID string, variants []harness.Variant, journeys []*journey.Journey, skillConfigs map[string]*skills.Config) *Manifest {
	opts := &r.opts
	cwd, _ := os.Getwd()

	journeyIDs := make([]string, 0, len(journeys))
	for _, j := range journeys {
		journeyIDs = append(journeyIDs, j.ID)
	}
	skillManifests := make(map[string][]skills.ManifestEntry, len(skillConfigs))
	for mode, cfg := range skillConfigs {
		skillManifests[mode] = cfg.Manifest
	}
	caseFilter := append([]string(nil), opts.CaseIDs...)
	sort.Strings(caseFilter)

	oracleModel := opts.OracleModel
	if oracleModel == "" {
		oracleModel = "default"
	}
	mountMode := opts.SkillsMountMode
	if mountMode == "" {
		mountMode = "symlink"
	}

	return &Manifest{
		RunID:                 runID,
		CreatedAt:             time.Now().Format(time.RFC3339),
		Cwd:                   cwd,
		GitSHA:                gitRevParse("HEAD"),
		GitBranch:             gitRevParse("--abbrev-ref", "HEAD"),
		Harnesses:             opts.Harnesses,
		HarnessVariants:       variants,
		Journeys:              journeyIDs,
		CaseIDsFilter:         caseFilter,
		SkillsModes:           opts.SkillsModes,
		SkillsProfile:         opts.SkillsProfile,
		Skills:                skillManifests,
		SkillsDelivery:        opts.SkillsDelivery,
		NativeSkillsMountMode: mountMode,
		Grading:               opts.Grading,
		OracleHarness:         opts.OracleHarness,
		OracleModel:           oracleModel,
		OracleTimeoutS:        opts.OracleTimeoutS,
		OracleMinScoreDefault: opts.OracleMinScoreDefault,
		OracleStrict:          opts.OracleStrict,
		OTelEnabled:           opts.OTel,
		FailFast:              opts.FailFast,
		OTelService:           opts.OTelService,
		OTelEndpoint:          opts.OTelEndpoint,
		LouieURL:              opts.LouieURL,
		ClaudeCwd:             opts.ClaudeCwd,
		CodexCwd:              opts.CodexCwd,
		OracleClaudeCwd:       opts.OracleClaudeCwd,
		OracleCodexCwd:        opts.OracleCodexCwd,
		ClaudeModels:          opts.ClaudeModels,
		CodexModels:           opts.CodexModels,
		TimeoutS:              opts.TimeoutS,
		MaxWorkers:            opts.MaxWorkers,
	}
}

// executeCase runs one case's variants, serially when the worker limit
// or variant count is 1, otherwise via a bounded pool. Results land in
// a slice indexed by variant position so callers persist in original
// enumeration order.
func (r *Runner) executeCase(ctx context.Context, w caseWork) []Row {
	results := make([]Row, len(w.variants))

	workers := w.maxWorkers
	if len(w.variants) < workers {
		workers = len(w.variants)
	}
	if workers <= 1 {
		for idx, variant := range w.variants {
			results[idx] = r.runVariant(ctx, w, idx, variant)
		}
		return results
	}

	var g errgroup.Group
	g.SetLimit(workers)
	for idx, variant := range w.variants {
		g.Go(func() error {
			results[idx] = r.runVariant(ctx, w, idx, variant)
			return nil
		})
	}
	g.Wait()
	return results
}

// persistRow feeds the fail-fast registry and appends to the ledger.
// Skip rows never re-arm the registry; only genuine harness failures
// do.
func (r *Runner) persistRow(ledger *Ledger, row Row) error {
	if r.opts.FailFast && !row.HarnessOK &&
		!strings.HasPrefix(row.HarnessError, "failfast_skip: ") {
		cause := row.HarnessError
		if cause == "" {
			cause = "unknown error"
		}
		r.recordFailure(harness.Variant{Harness: row.Harness, Model: rawModel(row.Model)}.Key(), cause)
	}
	return ledger.Append(row)
}

// rawModel undoes the "default" label for registry keying.
func rawModel(model string) string {
	if model == "default" {
		return ""
	}
	return model
}

func (r *Runner) runVariant(ctx context.Context, w caseWork, idx int, variant harness.Variant) Row {
	opts := &r.opts
	traceparent, traceID := harness.MakeTraceparent()
	modelLabel := variant.Model
	if modelLabel == "" {
		modelLabel = "default"
	}

	r.emitter.Emit("agent_eval.case.start", map[string]any{
		"agent_eval.run_id":         w.runID,
		"agent_eval.harness":        variant.Harness,
		"agent_eval.model":          modelLabel,
		"agent_eval.journey_id":     w.journeyID,
		"agent_eval.case_id":        w.c.ID,
		"agent_eval.skills_enabled": w.cfg.Enabled,
		"agent_eval.trace_id":       traceID,
	})

	var result harness.Result
	if cause, skip := r.skipCause(variant.Key()); skip {
		result = harness.Result{
			Harness:    variant.Harness,
			Error:      "failfast_skip: " + cause,
			SkipReason: cause,
		}
	} else {
		workDir, env, skillsText := r.variantContext(w, variant, idx)
		result = r.invoker.Invoke(ctx, harness.Request{
			Harness:     variant.Harness,
			Model:       variant.Model,
			Prompt:      w.c.Prompt,
			SkillsText:  skillsText,
			Traceparent: traceparent,
			TimeoutS:    opts.TimeoutS,
			LouieURL:    opts.LouieURL,
			WorkDir:     workDir,
			Env:         env,
		})
	}

	det := grading.GradeDeterministic(result.ResponseText, w.c.Checks)
	features := transcript.ExtractFeatures(result.RawRef)
	traceRes := grading.GradeTrace(w.c.TraceChecks, features)
	hasTraceChecks := !w.c.TraceChecks.Empty()

	oracleRequested := (opts.Grading == grading.ModeOracle || opts.Grading == grading.ModeHybrid) &&
		w.c.Oracle.Enabled
	var oracleRes grading.OracleResult
	if oracleRequested {
		oracleWorkDir, oracleEnv := r.oracleContext(w, idx)
		judge := &grading.Oracle{
			Invoker:         r.invoker,
			Harness:         opts.OracleHarness,
			Model:           opts.OracleModel,
			TimeoutS:        opts.OracleTimeoutS,
			LouieURL:        opts.LouieURL,
			WorkDir:         oracleWorkDir,
			Env:             oracleEnv,
			DefaultMinScore: opts.OracleMinScoreDefault,
		}
		oracleRes = judge.Grade(ctx, w.c.Prompt, result.ResponseText, w.c.ChecksRaw, w.c.Oracle)
	}

	combined := grading.Combine(opts.Grading, opts.OracleStrict, det, traceRes, hasTraceChecks, oracleRequested, oracleRes)

	breakdown := CheckBreakdown{
		Deterministic: det.Breakdown,
		Hybrid:        combined.Hybrid,
		OracleError:   combined.OracleError,
	}
	if hasTraceChecks {
		breakdown.Trace = &traceRes.Breakdown
	}
	if oracleRequested {
		oracleCopy := oracleRes
		breakdown.Oracle = &oracleCopy
	}

	row := Row{
		RunID:      w.runID,
		Timestamp:  time.Now().Format(time.RFC3339),
		JourneyID:  w.journeyID,
		EvalIntent: w.evalIntent,
		CaseID:     w.c.ID,
		CasePrompt: w.c.Prompt,

		Harness:       variant.Harness,
		Model:         modelLabel,
		SkillsMode:    w.mode,
		SkillsEnabled: w.cfg.Enabled,
		SkillsProfile: opts.SkillsProfile,

		TraceID:     traceID,
		Traceparent: traceparent,

		HarnessOK:    result.OK,
		HarnessError: result.Error,
		ResponseText: result.ResponseText,

		Pass:          combined.Pass,
		Score:         combined.Score,
		GradingMode:   opts.Grading,
		GradingSource: combined.Source,

		DeterministicPass:  det.Pass,
		DeterministicScore: det.Score,

		OracleRequested: oracleRequested,
		OracleAttempted: oracleRes.Attempted,
		OracleOK:        oracleRes.OK,
		OracleError:     oracleRes.Error,
		OracleHarness:   oracleRes.Harness,
		OracleModel:     oracleRes.Model,
		OracleTraceID:   oracleRes.TraceID,

		CheckBreakdown: breakdown,
		TracePass:      traceRes.Pass,
		TraceScore:     traceRes.Score,
		TraceFeatures:  features,

		LatencyMS:       result.LatencyMS,
		RawRef:          result.RawRef,
		CommandExitCode: result.ExitCode,
	}
	if oracleRes.OK {
		pass, score := oracleRes.Pass, oracleRes.Score
		row.OraclePass = &pass
		row.OracleScore = &score
	}
	if extra := result.Extra; extra != nil {
		row.RuntimeIDs = RuntimeIDs{
			SessionID:  extra["session_id"],
			ThreadID:   extra["thread_id"],
			LouieRunID: extra["run_id"],
			DthreadID:  extra["dthread_id"],
		}
		row.Usage = extra["usage"]
		row.SelectedHarness = extra["selected_harness"]
		row.Delegates = extra["delegates"]
	}

	outcome := "fail"
	if row.Pass {
		outcome = "pass"
	}
	r.emitter.Emit("agent_eval.case.end", map[string]any{
		"agent_eval.run_id":         w.runID,
		"agent_eval.harness":        variant.Harness,
		"agent_eval.model":          modelLabel,
		"agent_eval.journey_id":     w.journeyID,
		"agent_eval.case_id":        w.c.ID,
		"agent_eval.skills_enabled": w.cfg.Enabled,
		"agent_eval.outcome":        outcome,
		"agent_eval.score":          fmt.Sprintf("%.3f", row.Score),
		"agent_eval.latency_ms":     row.LatencyMS,
		"agent_eval.grading_mode":   opts.Grading,
		"agent_eval.grading_source": row.GradingSource,
		"agent_eval.oracle_ok":      row.OracleOK,
		"agent_eval.trace_id":       traceID,
	})

	return row
}

func (r *Runner) skipCause(key string) (string, bool) {
	if !r.opts.FailFast {
		return "", false
	}
	return r.failFastCause(key)
}

// variantContext resolves the working directory, environment, and
// injected skill text for one variant per the skills delivery policy.
func (r *Runner) variantContext(w caseWork, variant harness.Variant, idx int) (workDir string, env []string, skillsText string) {
	opts := &r.opts

	switch variant.Harness {
	case "claude":
		workDir = opts.ClaudeCwd
	case "codex":
		workDir = opts.CodexCwd
	}

	switch opts.SkillsDelivery {
	case "inject":
		if w.mode == "on" {
			skillsText = w.cfg.PromptText
		}
	default: // native, auto
		if variant.Harness == "claude" || variant.Harness == "codex" {
			if workDir == "" {
				workDir = w.nativeEnvs[variant.Harness]
			}
		} else if w.mode == "on" && opts.SkillsDelivery == "auto" {
			skillsText = w.cfg.PromptText
		}
	}

	if variant.Harness == "codex" && opts.CodexCwd == "" && w.codexHome != "" {
		env = append(env, "CODEX_HOME="+r.workerHome(w, fmt.Sprintf("%s-%s-%d", w.journeyID, w.c.ID, idx)))
	}
	return workDir, env, skillsText
}

// oracleContext resolves the judge invocation's working directory and
// environment, mirroring variantContext for the oracle harness.
func (r *Runner) oracleContext(w caseWork, idx int) (string, []string) {
	opts := &r.opts
	var workDir string
	var env []string

	switch opts.OracleHarness {
	case "claude":
		workDir = firstNonEmpty(opts.OracleClaudeCwd, opts.ClaudeCwd, w.nativeEnvs["claude"])
	case "codex":
		workDir = firstNonEmpty(opts.OracleCodexCwd, opts.CodexCwd, w.nativeEnvs["codex"])
		if w.codexHome != "" {
			env = append(env, "CODEX_HOME="+r.workerHome(w, fmt.Sprintf("%s-%s-oracle-%d", w.journeyID, w.c.ID, idx)))
		}
	}
	return workDir, env
}

// workerHome returns the shared per-mode home, or a private clone when
// parallel workers could otherwise mutate it concurrently.
func (r *Runner) workerHome(w caseWork, instanceID string) string {
	if w.maxWorkers <= 1 {
		return w.codexHome
	}
	cloned, err := skills.CloneHomeInstance(w.codexHome, r.opts.OutDir, w.mode, instanceID)
	if err != nil {
		slog.Warn("falling back to shared harness home", "err", err)
		return w.codexHome
	}
	return cloned
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func contains(list []string, want string) bool {
	for _, v := range list {
		if v == want {
			return true
		}
	}
	return false
}
