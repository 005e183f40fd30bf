package run

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func summaryRow(harness, model, mode string, pass, ok bool, score float64, latency int64) Row {
	return Row{
		Harness:    harness,
		Model:      model,
		SkillsMode: mode,
		Pass:       pass,
		HarnessOK:  ok,
		Score:      score,
		LatencyMS:  latency,
	}
}

func TestSummarize_Buckets(t *testing.T) {
	rows := []Row{
		summaryRow("codex", "default", "off", true, true, 1.0, 100),
		summaryRow("codex", "default", "on", false, true, 0.5, 300),
		summaryRow("claude", "opus", "off", true, false, 0.8, 200),
	}
	rows[0].EvalIntent = "runtime"
	rows[0].GradingMode = "deterministic"
	rows[0].GradingSource = "deterministic"

	s := Summarize(rows)

	require.Equal(t, 3, s.TotalRows)
	require.Equal(t, 2, s.PassedRows)
	require.Equal(t, 2, s.HarnessOKRows)
	require.InDelta(t, 2.0/3.0, s.OverallPassRate, 1e-9)
	require.InDelta(t, 2.0/3.0, s.HarnessOKRate, 1e-9)

	t.Run("by harness", func(t *testing.T) {
		codex := s.ByHarness["codex"]
		require.NotNil(t, codex)
		require.Equal(t, 2, codex.Total)
		require.Equal(t, 1, codex.Passed)
		require.Equal(t, 2, codex.HarnessOK)
		require.InDelta(t, 0.5, codex.PassRate, 1e-9)
		require.InDelta(t, 0.75, codex.AvgScore, 1e-9)
		require.Equal(t, int64(200), codex.AvgLatencyMS)
	})

	t.Run("by harness and model", func(t *testing.T) {
		claude := s.ByHarnessAndModel["claude::opus"]
		require.NotNil(t, claude)
		require.Equal(t, "claude", claude.Harness)
		require.Equal(t, "opus", claude.Model)
		require.Equal(t, 1, claude.Total)
		require.Equal(t, 0, claude.HarnessOK)
		require.InDelta(t, 0.0, claude.HarnessOKRate, 1e-9)
	})

	t.Run("by skills mode", func(t *testing.T) {
		off := s.BySkillsMode["off"]
		require.NotNil(t, off)
		require.Equal(t, 2, off.Total)
		require.Equal(t, 2, off.Passed)
	})

	t.Run("by harness model and mode", func(t *testing.T) {
		b := s.ByHarnessModelAndMode["codex::default::on"]
		require.NotNil(t, b)
		require.Equal(t, 1, b.Total)
		require.Equal(t, "on", b.SkillsMode)
	})

	t.Run("default labels", func(t *testing.T) {
		require.Contains(t, s.ByEvalIntent, "runtime")
		require.Contains(t, s.ByEvalIntent, "unspecified")
		require.Equal(t, 2, s.ByEvalIntent["unspecified"].Total)
		require.Contains(t, s.ByGradingMode, "deterministic")
		require.Equal(t, 3, s.ByGradingMode["deterministic"].Total)
		require.Contains(t, s.ByGradingSource, "deterministic")
	})
}

func TestSummarize_VariantKeyUsesRawModel(t *testing.T) {
	// A row whose model was never labeled still lands in the "default"
	// variant bucket.
	s := Summarize([]Row{summaryRow("louie", "", "off", true, true, 1, 10)})
	require.Contains(t, s.ByHarnessAndModel, "louie::default")
	require.Equal(t, "default", s.ByHarnessAndModel["louie::default"].Model)
}

func TestSummarize_Empty(t *testing.T) {
	s := Summarize(nil)
	require.Equal(t, 0, s.TotalRows)
	require.Zero(t, s.OverallPassRate)
	require.Empty(t, s.ByHarness)
}
