package pysrc

import (
	"testing"

	"github.com/stretchr/testify/require"
)

const plotResponse = "Here is the code:\n" +
	"```python\n" +
	"import graphistry\n" +
	"g = graphistry.edges(df, 'src', 'dst')\n" +
	"g.plot(render=False)\n" +
	"```\n" +
	"Done."

func TestExtractCodeBlocks(t *testing.T) {
	t.Run("language tagged", func(t *testing.T) {
		blocks := ExtractCodeBlocks(plotResponse, "python")
		require.Len(t, blocks, 1)
		require.Contains(t, blocks[0], "g.plot(render=False)")
	})

	t.Run("any language", func(t *testing.T) {
		text := "```sql\nSELECT 1\n```\n```\nplain\n```"
		blocks := ExtractCodeBlocks(text, "")
		require.Equal(t, []string{"SELECT 1", "plain"}, blocks)
	})

	t.Run("empty bodies skipped", func(t *testing.T) {
		require.Empty(t, ExtractCodeBlocks("```python\n\n```", "python"))
	})

	t.Run("case insensitive tag", func(t *testing.T) {
		blocks := ExtractCodeBlocks("```Python\nx = 1\n```", "python")
		require.Len(t, blocks, 1)
	})
}

func TestPythonSource(t *testing.T) {
	t.Run("prefers python tag over other fences", func(t *testing.T) {
		text := "```sql\nSELECT 1\n```\n```python\nx = 1\n```"
		require.Equal(t, "x = 1", PythonSource(text))
	})

	t.Run("falls back to any fence", func(t *testing.T) {
		require.Equal(t, "y = 2", PythonSource("```\ny = 2\n```"))
	})

	t.Run("no fences", func(t *testing.T) {
		require.Empty(t, PythonSource("plain prose"))
	})
}

func TestParse(t *testing.T) {
	t.Run("valid source", func(t *testing.T) {
		p, err := Parse("x = 1\nprint(x)")
		require.NoError(t, err)
		require.NotNil(t, p)
	})

	t.Run("syntax error", func(t *testing.T) {
		_, err := Parse("def broken(:")
		require.Error(t, err)
	})

	t.Run("empty source", func(t *testing.T) {
		_, err := Parse("   \n")
		require.ErrorContains(t, err, "no code block")
	})
}

func TestCallNames(t *testing.T) {
	p, err := Parse(PythonSource(plotResponse))
	require.NoError(t, err)

	names := p.CallNames()
	// Attribute call contributes the attribute name regardless of receiver.
	require.True(t, names["plot"])
	require.True(t, names["edges"])
	require.False(t, names["graphistry"])
}

func TestKwargObservations(t *testing.T) {
	p, err := Parse("g.plot(render=False, height=500, name='demo', ratio=0.5, missing=None, dyn=f(x))")
	require.NoError(t, err)

	t.Run("bool literal", func(t *testing.T) {
		obs := p.KwargObservations("plot", "render")
		require.Len(t, obs, 1)
		require.True(t, obs[0].HasLiteral)
		require.Equal(t, false, obs[0].Literal)
	})

	t.Run("int literal", func(t *testing.T) {
		obs := p.KwargObservations("", "height")
		require.Len(t, obs, 1)
		require.Equal(t, int64(500), obs[0].Literal)
	})

	t.Run("string literal", func(t *testing.T) {
		obs := p.KwargObservations("plot", "name")
		require.Equal(t, "demo", obs[0].Literal)
	})

	t.Run("float literal", func(t *testing.T) {
		obs := p.KwargObservations("plot", "ratio")
		require.Equal(t, 0.5, obs[0].Literal)
	})

	t.Run("none literal", func(t *testing.T) {
		obs := p.KwargObservations("plot", "missing")
		require.True(t, obs[0].HasLiteral)
		require.Nil(t, obs[0].Literal)
	})

	t.Run("non-literal expression observed without value", func(t *testing.T) {
		obs := p.KwargObservations("plot", "dyn")
		require.Len(t, obs, 1)
		require.False(t, obs[0].HasLiteral)
	})

	t.Run("call name filter", func(t *testing.T) {
		require.Empty(t, p.KwargObservations("settings", "render"))
	})

	t.Run("absent kwarg", func(t *testing.T) {
		require.Empty(t, p.KwargObservations("plot", "nope"))
	})
}

func TestKwargObservations_NegativeNumber(t *testing.T) {
	p, err := Parse("f(offset=-3)")
	require.NoError(t, err)

	obs := p.KwargObservations("f", "offset")
	require.Len(t, obs, 1)
	require.Equal(t, int64(-3), obs[0].Literal)
}

func TestKwargObservations_ContainerLiterals(t *testing.T) {
	p, err := Parse("g.plot(cols=['a', 'b'], pair=(1, 2), opts={'k': 'v', 'n': 3}, mixed=[x, 1])")
	require.NoError(t, err)

	t.Run("list", func(t *testing.T) {
		obs := p.KwargObservations("plot", "cols")
		require.Len(t, obs, 1)
		require.True(t, obs[0].HasLiteral)
		require.Equal(t, []any{"a", "b"}, obs[0].Literal)
	})

	t.Run("tuple", func(t *testing.T) {
		obs := p.KwargObservations("plot", "pair")
		require.True(t, obs[0].HasLiteral)
		require.Equal(t, []any{int64(1), int64(2)}, obs[0].Literal)
	})

	t.Run("dict", func(t *testing.T) {
		obs := p.KwargObservations("plot", "opts")
		require.True(t, obs[0].HasLiteral)
		require.Equal(t, map[string]any{"k": "v", "n": int64(3)}, obs[0].Literal)
	})

	t.Run("non-literal element poisons the container", func(t *testing.T) {
		obs := p.KwargObservations("plot", "mixed")
		require.False(t, obs[0].HasLiteral)
	})
}

func TestKwargObservations_ExpressionRendering(t *testing.T) {
	p, err := Parse("plot(data=df, col=df.name, sliced=df[0], built=make_df(), weird=a + b)")
	require.NoError(t, err)

	expr := func(kw string) string {
		obs := p.KwargObservations("plot", kw)
		require.Len(t, obs, 1)
		require.False(t, obs[0].HasLiteral)
		return obs[0].Expr
	}

	require.Equal(t, "df", expr("data"))
	require.Equal(t, "df.name", expr("col"))
	require.Equal(t, "df[...]", expr("sliced"))
	require.Equal(t, "make_df(...)", expr("built"))
	require.Empty(t, expr("weird"))
}
