package harness

import (
	"context"
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeScript(t *testing.T, binDir, name, body string) {
	t.Helper()
	path := filepath.Join(binDir, name+".sh")
	script := "#!/bin/sh\n" + body + "\n"
	require.NoError(t, os.WriteFile(path, []byte(script), 0o755))
}

func newInvoker(t *testing.T) (*CLIInvoker, string) {
	t.Helper()
	binDir := t.TempDir()
	return &CLIInvoker{BinDir: binDir, OutDir: t.TempDir()}, binDir
}

func TestInvoke_ParsesTrailingJSON(t *testing.T) {
	inv, binDir := newInvoker(t)
	writeScript(t, binDir, "echoer", `
echo "progress line"
echo "not json"
echo '{"ok": true, "response_text": "GRAPHISTRY_OK", "latency_ms": 42, "session_id": "s-1"}'`)

	res := inv.Invoke(context.Background(), Request{
		Harness:  "echoer",
		Prompt:   "Reply with exactly GRAPHISTRY_OK.",
		TimeoutS: 5,
	})

	require.True(t, res.OK)
	require.Empty(t, res.Error)
	require.Equal(t, "GRAPHISTRY_OK", res.ResponseText)
	require.EqualValues(t, 42, res.LatencyMS)
	require.Equal(t, "s-1", res.Extra["session_id"])
	require.NotNil(t, res.ExitCode)
	require.Zero(t, *res.ExitCode)
}

func TestInvoke_LastJSONLineWins(t *testing.T) {
	inv, binDir := newInvoker(t)
	writeScript(t, binDir, "multi", `
echo '{"ok": false, "response_text": "first"}'
echo '{"ok": true, "response_text": "last"}'`)

	res := inv.Invoke(context.Background(), Request{Harness: "multi", TimeoutS: 5})
	require.True(t, res.OK)
	require.Equal(t, "last", res.ResponseText)
}

func TestInvoke_MissingScript(t *testing.T) {
	inv, _ := newInvoker(t)
	res := inv.Invoke(context.Background(), Request{Harness: "ghost", TimeoutS: 5})
	require.False(t, res.OK)
	require.Contains(t, res.Error, "not found")
	require.Nil(t, res.ExitCode)
}

func TestInvoke_NoJSONPayload(t *testing.T) {
	inv, binDir := newInvoker(t)
	writeScript(t, binDir, "silent", `
echo "just chatter"
echo "warning: something" >&2`)

	res := inv.Invoke(context.Background(), Request{Harness: "silent", TimeoutS: 5})
	require.False(t, res.OK)
	require.Equal(t, "Harness did not emit JSON payload", res.Error)
	require.Contains(t, res.StdoutTail, "just chatter")
	require.Contains(t, res.StderrTail, "warning: something")
	require.NotEmpty(t, res.RawRef)
}

func TestInvoke_ExitCodeOverridesSelfReport(t *testing.T) {
	inv, binDir := newInvoker(t)
	writeScript(t, binDir, "liar", `
echo '{"ok": true, "response_text": "fine"}'
exit 3`)

	res := inv.Invoke(context.Background(), Request{Harness: "liar", TimeoutS: 5})
	require.False(t, res.OK)
	require.Contains(t, res.Error, "exited with code 3")
	require.NotNil(t, res.ExitCode)
	require.Equal(t, 3, *res.ExitCode)
	// Payload fields still carried.
	require.Equal(t, "fine", res.ResponseText)
}

func TestInvoke_Timeout(t *testing.T) {
	inv, binDir := newInvoker(t)
	writeScript(t, binDir, "sleeper", `
echo "starting"
sleep 30`)

	res := inv.Invoke(context.Background(), Request{Harness: "sleeper", TimeoutS: -9})

	require.False(t, res.OK)
	require.Contains(t, res.Error, "timeout")
	require.Nil(t, res.ExitCode)
	require.Contains(t, res.StdoutTail, "starting")
}

func TestInvoke_WritesInputFiles(t *testing.T) {
	inv, binDir := newInvoker(t)
	// The script echoes its prompt file content back as the payload.
	writeScript(t, binDir, "reader", `
while [ $# -gt 0 ]; do
  case "$1" in
    --prompt-file) PROMPT_FILE="$2"; shift 2 ;;
    --skills-text-file) SKILLS_FILE="$2"; shift 2 ;;
    *) shift ;;
  esac
done
printf '{"ok": true, "response_text": "%s|%s"}\n' "$(cat "$PROMPT_FILE")" "$(cat "$SKILLS_FILE")"`)

	res := inv.Invoke(context.Background(), Request{
		Harness:    "reader",
		Prompt:     "the-prompt",
		SkillsText: "the-skills",
		TimeoutS:   5,
	})
	require.True(t, res.OK)
	require.Equal(t, "the-prompt|the-skills", res.ResponseText)
}

func TestExpandVariants(t *testing.T) {
	variants := ExpandVariants(
		[]string{"louie", "claude", "codex"},
		map[string][]string{
			"claude": {"sonnet", "haiku"},
			"codex":  {"gpt-5"},
		},
	)

	require.Equal(t, []Variant{
		{Harness: "louie"},
		{Harness: "claude", Model: "sonnet"},
		{Harness: "claude", Model: "haiku"},
		{Harness: "codex", Model: "gpt-5"},
	}, variants)
}

func TestVariantKey(t *testing.T) {
	require.Equal(t, "louie::default", Variant{Harness: "louie"}.Key())
	require.Equal(t, "claude::sonnet", Variant{Harness: "claude", Model: "sonnet"}.Key())
}

func TestMakeTraceparent(t *testing.T) {
	re := regexp.MustCompile(`^00-[0-9a-f]{32}-[0-9a-f]{16}-01$`)

	tp, traceID := MakeTraceparent()
	require.Regexp(t, re, tp)
	require.Len(t, traceID, 32)
	require.Contains(t, tp, traceID)

	tp2, traceID2 := MakeTraceparent()
	require.NotEqual(t, traceID, traceID2)
	require.NotEqual(t, tp, tp2)
}
