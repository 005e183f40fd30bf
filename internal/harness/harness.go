// Package harness implements the subprocess contract for invoking
// coding-agent harnesses.
//
// A harness is an external executable named <binDir>/<name>.sh. It
// receives the prompt, skill context, raw transcript path, traceparent,
// timeout, and target URL via flags, and must emit its result as the
// last JSON object line on stdout. Invocation never returns a Go error
// for harness-level failures; every failure mode is captured in the
// Result so the scheduler can record it as a row and keep going.
package harness

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

const tailLimit = 2000

// Request describes one harness invocation.
type Request struct {
	Harness     string
	Model       string
	Prompt      string
	SkillsText  string
	Traceparent string
	TimeoutS    int
	LouieURL    string
	// WorkDir is passed as --cd for harnesses that support it.
	WorkDir string
	// Env entries (KEY=VALUE) appended to the inherited environment.
	Env []string
}

// Result is the outcome of one harness invocation. Fields mirror the
// payload contract; anything the payload carries beyond the known keys
// lands in Extra (session ids, usage counters, delegate info).
type Result struct {
	OK           bool
	Harness      string
	Error        string
	ResponseText string
	LatencyMS    int64
	RawRef       string
	StdoutTail   string
	StderrTail   string
	// ExitCode is nil when the process never ran to completion
	// (missing script, wall-clock timeout).
	ExitCode *int
	// SkipReason is set only on synthetic fail-fast skip results; the
	// process was never spawned.
	SkipReason string
	Extra      map[string]any
}

// Skipped reports whether this result is a fail-fast skip.
func (r Result) Skipped() bool { return r.SkipReason != "" }

// Invoker runs harness invocations. The production implementation
// spawns subprocesses; tests substitute their own.
type Invoker interface {
	Invoke(ctx context.Context, req Request) Result
}

// CLIInvoker invokes harness shell scripts from a bin directory,
// writing per-invocation prompt/skills/transcript files under
// <OutDir>/raw.
type CLIInvoker struct {
	BinDir string
	OutDir string
	// RunDir is the working directory for the spawned process. Empty
	// means inherit.
	RunDir string
}

// supportsModelFlags reports whether the harness accepts --cd/--model.
func supportsModelFlags(harness string) bool {
	return harness == "claude" || harness == "codex"
}

// Invoke runs one harness subprocess with a wall-clock budget of
// TimeoutS+10 seconds. Exceeding the budget is a hard failure distinct
// from an application failure. A nonzero exit code forces OK=false even
// when the payload claimed success.
func (c *CLIInvoker) Invoke(ctx context.Context, req Request) Result {
	script := filepath.Join(c.BinDir, req.Harness+".sh")
	if _, err := os.Stat(script); err != nil {
		return Result{
			Harness: req.Harness,
			Error:   fmt.Sprintf("Harness script not found: %s", script),
		}
	}

	stem := fmt.Sprintf("%s-%d-%s", req.Harness, time.Now().UnixMilli(),
		strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	rawDir := filepath.Join(c.OutDir, "raw")
	promptFile := filepath.Join(rawDir, stem+".prompt.txt")
	skillsFile := filepath.Join(rawDir, stem+".skills.txt")
	rawOut := filepath.Join(rawDir, stem+".log")

	if err := os.MkdirAll(rawDir, 0o755); err != nil {
		return Result{Harness: req.Harness, Error: fmt.Sprintf("creating raw dir: %v", err)}
	}
	if err := os.WriteFile(promptFile, []byte(req.Prompt), 0o644); err != nil {
		return Result{Harness: req.Harness, Error: fmt.Sprintf("writing prompt file: %v", err)}
	}
	if err := os.WriteFile(skillsFile, []byte(req.SkillsText), 0o644); err != nil {
		return Result{Harness: req.Harness, Error: fmt.Sprintf("writing skills file: %v", err)}
	}

	args := []string{
		"--prompt-file", promptFile,
		"--skills-text-file", skillsFile,
		"--raw-out", rawOut,
		"--traceparent", req.Traceparent,
		"--timeout-s", strconv.Itoa(req.TimeoutS),
		"--louie-url", req.LouieURL,
	}
	if req.WorkDir != "" && supportsModelFlags(req.Harness) {
		args = append(args, "--cd", req.WorkDir)
	}
	if req.Model != "" && supportsModelFlags(req.Harness) {
		args = append(args, "--model", req.Model)
	}

	budget := time.Duration(req.TimeoutS+10) * time.Second
	runCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	cmd := exec.CommandContext(runCtx, script, args...)
	cmd.Dir = c.RunDir
	cmd.Env = append(os.Environ(), req.Env...)
	// Orphaned grandchildren holding the stdout pipe must not stall
	// Wait after the harness itself is killed.
	cmd.WaitDelay = 2 * time.Second

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	started := time.Now()
	runErr := cmd.Run()
	elapsed := time.Since(started).Milliseconds()

	if runCtx.Err() == context.DeadlineExceeded {
		return Result{
			Harness:    req.Harness,
			Error:      fmt.Sprintf("Harness process timeout after %ds", req.TimeoutS+10),
			LatencyMS:  elapsed,
			RawRef:     rawOut,
			StdoutTail: tail(stdout.String()),
			StderrTail: tail(stderr.String()),
		}
	}

	exitCode := 0
	if runErr != nil {
		var exitErr *exec.ExitError
		if errors.As(runErr, &exitErr) {
			exitCode = exitErr.ExitCode()
		} else {
			return Result{
				Harness:    req.Harness,
				Error:      fmt.Sprintf("Harness spawn failed: %v", runErr),
				LatencyMS:  elapsed,
				RawRef:     rawOut,
				StderrTail: tail(stderr.String()),
			}
		}
	}

	res := parsePayload(req.Harness, stdout.String(), stderr.String(), elapsed, rawOut)
	res.ExitCode = &exitCode
	if exitCode != 0 && res.OK {
		res.OK = false
		res.Error = fmt.Sprintf("Harness command exited with code %d", exitCode)
	}
	return res
}

// parsePayload scans stdout bottom-up for the last line parsing as a
// JSON object and lifts the known contract fields out of it, defaulting
// what is absent. No parseable payload yields a synthetic failure
// carrying bounded stdout/stderr tails.
func parsePayload(harness, stdout, stderr string, elapsed int64, rawRef string) Result {
	trimmed := strings.TrimSpace(stdout)

	var payload map[string]any
	lines := strings.Split(trimmed, "\n")
	for i := len(lines) - 1; i >= 0; i-- {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}
		var parsed map[string]any
		if err := json.Unmarshal([]byte(line), &parsed); err == nil {
			payload = parsed
			break
		}
	}

	if payload == nil {
		return Result{
			Harness:      harness,
			Error:        "Harness did not emit JSON payload",
			LatencyMS:    elapsed,
			RawRef:       rawRef,
			StdoutTail:   tail(trimmed),
			StderrTail:   tail(stderr),
			ResponseText: "",
		}
	}

	res := Result{
		OK:        boolField(payload, "ok"),
		Harness:   harness,
		LatencyMS: elapsed,
		RawRef:    rawRef,
	}
	if v, ok := payload["harness"].(string); ok && v != "" {
		res.Harness = v
	}
	if v, ok := payload["error"].(string); ok {
		res.Error = v
	}
	if v, ok := payload["response_text"].(string); ok {
		res.ResponseText = v
	}
	if v, ok := payload["latency_ms"].(float64); ok {
		res.LatencyMS = int64(v)
	}
	if v, ok := payload["raw_ref"].(string); ok && v != "" {
		res.RawRef = v
	}

	for key, value := range payload {
		switch key {
		case "ok", "harness", "error", "response_text", "latency_ms", "raw_ref":
		default:
			if res.Extra == nil {
				res.Extra = map[string]any{}
			}
			res.Extra[key] = value
		}
	}
	return res
}

func boolField(m map[string]any, key string) bool {
	v, ok := m[key].(bool)
	return ok && v
}

func tail(s string) string {
	if len(s) <= tailLimit {
		return s
	}
	return s[len(s)-tailLimit:]
}
