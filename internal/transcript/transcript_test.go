package transcript

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTranscript(t *testing.T, lines string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "harness.log")
	require.NoError(t, os.WriteFile(path, []byte(lines), 0o644))
	return path
}

func TestExtractFeatures(t *testing.T) {
	path := writeTranscript(t, `
{"type":"item.started","item":{"type":"command_execution","command":"ignored: not completed"}}
{"type":"item.completed","item":{"type":"command_execution","command":"git clone https://github.com/graphistry/pygraphistry"}}
{"type":"item.completed","item":{"type":"function_call","name":"shell","arguments":"{\"command\":\"python run.py\"}"}}
{"type":"item.completed","item":{"type":"function_call","name":"web_search","arguments":"{}"}}
{"type":"item.completed","item":{"type":"function_call","name":"open_page","arguments":"{\"url\":\"https://Docs.Graphistry.com/api\"}"}}
{"type":"item.completed","item":{"type":"function_call","name":"open_page","arguments":"{\"url\":\"  \"}"}}
not json at all
{"type":"item.completed","item":{"type":"function_call","name":"webFetch","arguments":{"url":"https://pygraphistry.readthedocs.io/en/latest"}}}
`)

	f := ExtractFeatures(path)

	require.Equal(t, []string{
		"git clone https://github.com/graphistry/pygraphistry",
		"python run.py",
	}, f.Commands)
	require.Equal(t, 1, f.GitCloneCount)
	require.Equal(t, 1, f.WebSearchCount)
	require.Equal(t, 3, f.OpenPageCount)
	require.Equal(t, 1, f.OpenPageEmptyCount)
	// Hosts lowercased and sorted.
	require.Equal(t, []string{"docs.graphistry.com", "pygraphistry.readthedocs.io"}, f.DomainsUsed)
}

func TestExtractFeatures_ShellCmdAlias(t *testing.T) {
	path := writeTranscript(t, `
{"type":"item.completed","item":{"type":"function_call","name":"shell","arguments":"{\"cmd\":\"ls -la\"}"}}
`)
	f := ExtractFeatures(path)
	require.Equal(t, []string{"ls -la"}, f.Commands)
}

func TestExtractFeatures_MissingOrEmpty(t *testing.T) {
	t.Run("empty ref", func(t *testing.T) {
		f := ExtractFeatures("")
		require.Empty(t, f.Commands)
		require.Empty(t, f.DomainsUsed)
	})

	t.Run("missing file", func(t *testing.T) {
		f := ExtractFeatures(filepath.Join(t.TempDir(), "nope.log"))
		require.Zero(t, f.WebSearchCount)
		require.NotNil(t, f.Commands)
	})

	t.Run("empty file", func(t *testing.T) {
		f := ExtractFeatures(writeTranscript(t, ""))
		require.Empty(t, f.Commands)
	})
}
