// Package otelemit fires lifecycle events at an external log-emission
// helper.
//
// Emission is strictly best-effort: events go out on background
// goroutines, failures are swallowed (surfaced to stderr only in debug
// mode), and a missing helper disables emission silently. The benchmark
// critical path never waits on this package except for the final Drain.
package otelemit

import (
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"sort"
	"sync"
)

// Emitter dispatches events to an external helper script run by a
// Python interpreter. The zero value is a disabled emitter.
type Emitter struct {
	Enabled  bool
	Service  string
	Endpoint string
	// PyCmd is the interpreter, Script the log-emission helper.
	PyCmd  string
	Script string
	// Debug surfaces emission failures to stderr instead of dropping
	// them.
	Debug bool

	wg sync.WaitGroup
}

// Emit dispatches one event asynchronously. Attribute keys are emitted
// in sorted order so repeated runs produce identical command lines.
func (e *Emitter) Emit(event string, attrs map[string]any) {
	if e == nil || !e.Enabled {
		return
	}
	if !isFile(e.PyCmd) || !isFile(e.Script) {
		return
	}

	args := []string{e.Script, event, "--service", e.Service}
	if e.Endpoint != "" {
		args = append(args, "--endpoint", e.Endpoint)
	}

	keys := make([]string, 0, len(attrs))
	for key := range attrs {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		args = append(args, "--attr", fmt.Sprintf("%s=%v", key, attrs[key]))
	}

	e.wg.Add(1)
	go func() {
		defer e.wg.Done()

		cmd := exec.Command(e.PyCmd, args...)
		out, err := cmd.CombinedOutput()
		if err != nil && e.Debug {
			slog.Error("otel emit failed", "event", event, "err", err, "output", tail(string(out), 2000))
		}
	}()
}

// Drain waits for all outstanding emissions to finish. Called once at
// run end.
func (e *Emitter) Drain() {
	if e == nil {
		return
	}
	e.wg.Wait()
}

func isFile(path string) bool {
	if path == "" {
		return false
	}
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

func tail(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	return s[len(s)-limit:]
}
