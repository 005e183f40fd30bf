package run

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/graphistry/agentbench/internal/grading"
	"github.com/graphistry/agentbench/internal/transcript"
)

func TestLedger_AppendAndReload(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rows.jsonl")
	ledger, err := OpenLedger(path)
	require.NoError(t, err)

	exitCode := 1
	oraclePass := true
	oracleScore := 0.9
	rows := []Row{
		{
			RunID:        "agent_eval_20260830-120000",
			JourneyID:    "runtime_smoke",
			CaseID:       "hello",
			CasePrompt:   "Reply with exactly GRAPHISTRY_OK.",
			Harness:      "codex",
			Model:        "default",
			SkillsMode:   "off",
			HarnessOK:    true,
			ResponseText: "GRAPHISTRY_OK",
			Pass:         true,
			Score:        1.0,
			GradingMode:  "deterministic",
			TraceFeatures: transcript.Features{
				Commands:    []string{"git clone x"},
				DomainsUsed: []string{"example.com"},
			},
			LatencyMS: 1234,
			RuntimeIDs: RuntimeIDs{
				SessionID: "sess-1",
			},
		},
		{
			RunID:           "agent_eval_20260830-120000",
			JourneyID:       "runtime_smoke",
			CaseID:          "hello",
			Harness:         "claude",
			Model:           "opus",
			SkillsMode:      "on",
			HarnessError:    "Harness command exited with code 1",
			OracleRequested: true,
			OracleAttempted: true,
			OracleOK:        true,
			OraclePass:      &oraclePass,
			OracleScore:     &oracleScore,
			GradingSource:   grading.SourceOracle,
			CommandExitCode: &exitCode,
		},
	}
	for _, row := range rows {
		require.NoError(t, ledger.Append(row))
	}

	t.Run("in memory copy", func(t *testing.T) {
		got := ledger.Rows()
		require.Equal(t, rows, got)

		// Mutating the copy must not touch the ledger.
		got[0].CaseID = "mutated"
		require.Equal(t, "hello", ledger.Rows()[0].CaseID)
	})

	require.NoError(t, ledger.Close())

	t.Run("file round trip", func(t *testing.T) {
		file, err := os.Open(path)
		require.NoError(t, err)
		defer file.Close()

		var reloaded []Row
		scanner := bufio.NewScanner(file)
		for scanner.Scan() {
			var row Row
			require.NoError(t, json.Unmarshal(scanner.Bytes(), &row))
			reloaded = append(reloaded, row)
		}
		require.NoError(t, scanner.Err())
		require.Len(t, reloaded, 2)

		require.Equal(t, rows[0].RunID, reloaded[0].RunID)
		require.Equal(t, rows[0].TraceFeatures.Commands, reloaded[0].TraceFeatures.Commands)
		require.Equal(t, "sess-1", reloaded[0].RuntimeIDs.SessionID)
		require.Nil(t, reloaded[0].CommandExitCode)

		require.Equal(t, rows[1].HarnessError, reloaded[1].HarnessError)
		require.NotNil(t, reloaded[1].OraclePass)
		require.True(t, *reloaded[1].OraclePass)
		require.NotNil(t, reloaded[1].OracleScore)
		require.InDelta(t, 0.9, *reloaded[1].OracleScore, 1e-9)
		require.NotNil(t, reloaded[1].CommandExitCode)
		require.Equal(t, 1, *reloaded[1].CommandExitCode)
	})
}

func TestOpenLedger_BadPath(t *testing.T) {
	_, err := OpenLedger(filepath.Join(t.TempDir(), "missing", "rows.jsonl"))
	require.Error(t, err)
}
