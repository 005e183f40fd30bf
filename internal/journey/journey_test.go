package journey

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeJourney(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_Valid(t *testing.T) {
	dir := t.TempDir()
	path := writeJourney(t, dir, "smoke.json", `{
		"id": "runtime_smoke",
		"eval_intent": "runtime",
		"cases": [
			{
				"id": "hello",
				"prompt": "Reply with exactly GRAPHISTRY_OK.",
				"checks": {"must_contain": ["GRAPHISTRY_OK"], "max_lines": 3}
			},
			{
				"prompt": "second case without an id",
				"oracle": true
			}
		]
	}`)

	j, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, "runtime_smoke", j.ID)
	require.Equal(t, "runtime", j.EvalIntent)
	require.Len(t, j.Cases, 2)

	first := j.Cases[0]
	require.Equal(t, "hello", first.ID)
	require.Equal(t, []string{"GRAPHISTRY_OK"}, first.Checks.MustContain)
	require.NotNil(t, first.Checks.MaxLines)
	require.Equal(t, 3, *first.Checks.MaxLines)
	require.False(t, first.Oracle.Enabled)

	// Positional fallback id and boolean oracle shorthand.
	second := j.Cases[1]
	require.Equal(t, "case_2", second.ID)
	require.True(t, second.Oracle.Enabled)
}

func TestLoad_MissingRequiredKeys(t *testing.T) {
	dir := t.TempDir()

	t.Run("missing cases", func(t *testing.T) {
		path := writeJourney(t, dir, "no_cases.json", `{"id": "x"}`)
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("cases not a list", func(t *testing.T) {
		path := writeJourney(t, dir, "bad_cases.json", `{"id": "x", "cases": {"a": 1}}`)
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("missing id", func(t *testing.T) {
		path := writeJourney(t, dir, "no_id.json", `{"cases": []}`)
		_, err := Load(path)
		require.Error(t, err)
	})

	t.Run("not json", func(t *testing.T) {
		path := writeJourney(t, dir, "junk.json", `not json at all`)
		_, err := Load(path)
		require.Error(t, err)
	})
}

func TestLoad_OracleObjectForm(t *testing.T) {
	dir := t.TempDir()
	path := writeJourney(t, dir, "oracle.json", `{
		"id": "oracle_cases",
		"cases": [{
			"id": "judge_me",
			"prompt": "do the thing",
			"oracle": {
				"min_score": 0.9,
				"reference_answer": "the answer",
				"rubric": ["covers A", "covers B"],
				"required_concepts": ["A"],
				"forbidden_concepts": ["C"]
			}
		}]
	}`)

	j, err := Load(path)
	require.NoError(t, err)
	o := j.Cases[0].Oracle
	require.True(t, o.Enabled)
	require.InDelta(t, 0.9, o.ResolveMinScore(0.8), 1e-9)
	require.Equal(t, "the answer", o.ReferenceAnswer)
	require.Equal(t, "- covers A\n- covers B", o.Rubric())
	require.Equal(t, []string{"A"}, o.RequiredConcepts)
	require.Equal(t, []string{"C"}, o.ForbiddenConcepts)
}

func TestOracleSpec_ResolveMinScore(t *testing.T) {
	require.InDelta(t, 0.8, OracleSpec{}.ResolveMinScore(0.8), 1e-9)

	over := 1.7
	require.InDelta(t, 1.0, OracleSpec{MinScore: &over}.ResolveMinScore(0.8), 1e-9)

	under := -0.3
	require.InDelta(t, 0.0, OracleSpec{MinScore: &under}.ResolveMinScore(0.8), 1e-9)
}

func TestLoad_KwargChecks(t *testing.T) {
	dir := t.TempDir()
	path := writeJourney(t, dir, "kwargs.json", `{
		"id": "kwargs",
		"cases": [{
			"id": "k",
			"prompt": "p",
			"checks": {"python_ast_call_kwargs": [
				{"call": "plot", "kw": "render", "value": false},
				{"call": "", "kw": "url"}
			]}
		}]
	}`)

	j, err := Load(path)
	require.NoError(t, err)
	kwargs := j.Cases[0].Checks.PythonASTCallKwargs
	require.Len(t, kwargs, 2)
	require.Equal(t, "plot", kwargs[0].Call)
	require.Equal(t, "render", kwargs[0].Kw)
	require.True(t, kwargs[0].HasValue)
	require.Equal(t, false, kwargs[0].Value)
	require.False(t, kwargs[1].HasValue)
}

func TestResolveSelection(t *testing.T) {
	dir := t.TempDir()
	writeJourney(t, dir, "alpha.json", `{"id": "alpha", "cases": []}`)
	writeJourney(t, dir, "beta.json", `{"id": "beta", "cases": []}`)

	t.Run("all", func(t *testing.T) {
		files, err := ResolveSelection(dir, "all")
		require.NoError(t, err)
		require.Len(t, files, 2)
		require.Equal(t, filepath.Join(dir, "alpha.json"), files[0])
	})

	t.Run("all with empty dir", func(t *testing.T) {
		_, err := ResolveSelection(t.TempDir(), "all")
		require.Error(t, err)
	})

	t.Run("csv of names", func(t *testing.T) {
		files, err := ResolveSelection(dir, "beta, alpha")
		require.NoError(t, err)
		require.Equal(t, []string{
			filepath.Join(dir, "beta.json"),
			filepath.Join(dir, "alpha.json"),
		}, files)
	})

	t.Run("direct file path", func(t *testing.T) {
		files, err := ResolveSelection(dir, filepath.Join(dir, "alpha.json"))
		require.NoError(t, err)
		require.Len(t, files, 1)
	})

	t.Run("unknown token names the journey", func(t *testing.T) {
		_, err := ResolveSelection(dir, "gamma")
		require.ErrorContains(t, err, "gamma")
	})
}

func TestFilterByCaseIDs(t *testing.T) {
	journeys := []*Journey{
		{ID: "j1", Cases: []Case{{ID: "a"}, {ID: "b"}}},
		{ID: "j2", Cases: []Case{{ID: "c"}}},
	}

	t.Run("no filter returns input", func(t *testing.T) {
		out, err := FilterByCaseIDs(journeys, nil)
		require.NoError(t, err)
		require.Equal(t, journeys, out)
	})

	t.Run("keeps matches and drops emptied journeys", func(t *testing.T) {
		out, err := FilterByCaseIDs(journeys, []string{"b"})
		require.NoError(t, err)
		require.Len(t, out, 1)
		require.Equal(t, "j1", out[0].ID)
		require.Len(t, out[0].Cases, 1)
		require.Equal(t, "b", out[0].Cases[0].ID)
	})

	t.Run("unknown ids alongside matches are non-fatal", func(t *testing.T) {
		out, err := FilterByCaseIDs(journeys, []string{"c", "zzz"})
		require.NoError(t, err)
		require.Len(t, out, 1)
		require.Equal(t, "j2", out[0].ID)
	})

	t.Run("nothing matched is fatal", func(t *testing.T) {
		_, err := FilterByCaseIDs(journeys, []string{"zzz"})
		require.Error(t, err)
	})

	t.Run("filter does not mutate input", func(t *testing.T) {
		_, err := FilterByCaseIDs(journeys, []string{"a"})
		require.NoError(t, err)
		require.Len(t, journeys[0].Cases, 2)
	})
}

func TestSplitCSV(t *testing.T) {
	require.Equal(t, []string{"a", "b"}, SplitCSV(" a, b ,"))
	require.Nil(t, SplitCSV(""))
	require.Nil(t, SplitCSV(" , ,"))
}
