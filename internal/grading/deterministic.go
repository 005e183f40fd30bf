// Package grading scores harness responses.
//
// Three independent graders feed one combined verdict: deterministic
// checks over the response text, trace checks over mined transcript
// features, and an optional LLM oracle judge. Grading never aborts a
// run; malformed patterns, unparseable code, and judge failures become
// failed entries in the breakdown.
package grading

import (
	"regexp"
	"strings"

	"github.com/graphistry/agentbench/internal/journey"
	"github.com/graphistry/agentbench/internal/pysrc"
)

// Grade is a pass/score pair. Score is always in [0,1].
type Grade struct {
	Pass  bool    `json:"pass"`
	Score float64 `json:"score"`
}

// CheckEntry is one check's outcome in a breakdown. Only the fields
// relevant to the check's kind are populated.
type CheckEntry struct {
	Value     any    `json:"value,omitempty"`
	Call      string `json:"call,omitempty"`
	Kw        string `json:"kw,omitempty"`
	Required  bool   `json:"required,omitempty"`
	Max       *int   `json:"max,omitempty"`
	Actual    *int   `json:"actual,omitempty"`
	LineCount *int   `json:"line_count,omitempty"`
	Observed  []any  `json:"observed,omitempty"`
	OK        bool   `json:"ok"`
	Error     string `json:"error,omitempty"`
}

// DetBreakdown groups deterministic check outcomes by check kind.
type DetBreakdown struct {
	MustContain         []CheckEntry `json:"must_contain"`
	MustNotContain      []CheckEntry `json:"must_not_contain"`
	Regex               []CheckEntry `json:"regex"`
	MustNotRegex        []CheckEntry `json:"must_not_regex"`
	MaxLines            []CheckEntry `json:"max_lines"`
	MinLines            []CheckEntry `json:"min_lines"`
	PythonBlock         []CheckEntry `json:"python_block"`
	PythonASTParse      []CheckEntry `json:"python_ast_parse"`
	PythonASTCalls      []CheckEntry `json:"python_ast_calls"`
	PythonASTCallKwargs []CheckEntry `json:"python_ast_call_kwargs"`
}

// DetResult is the deterministic grader's verdict.
type DetResult struct {
	Grade
	Breakdown DetBreakdown
}

// pyState parses the response's Python snippet at most once, shared
// across every AST check of one grading call.
type pyState struct {
	source string
	parsed *pysrc.Parsed
	errMsg string
	tried  bool
}

func (s *pyState) ensure() bool {
	if !s.tried {
		s.tried = true
		parsed, err := pysrc.Parse(s.source)
		if err != nil {
			s.errMsg = err.Error()
		} else {
			s.parsed = parsed
		}
	}
	return s.parsed != nil
}

// GradeDeterministic evaluates a check spec against the response text.
// Score is passed/total; pass requires every check to hold. With zero
// configured checks, pass/score degrade to "response is non-empty".
// The result is a pure function of (responseText, spec).
func GradeDeterministic(responseText string, spec journey.CheckSpec) DetResult {
	var b DetBreakdown
	total, passed := 0, 0

	record := func(list *[]CheckEntry, entry CheckEntry) {
		total++
		if entry.OK {
			passed++
		}
		*list = append(*list, entry)
	}

	for _, expected := range spec.MustContain {
		record(&b.MustContain, CheckEntry{
			Value: expected,
			OK:    strings.Contains(responseText, expected),
		})
	}
	for _, blocked := range spec.MustNotContain {
		record(&b.MustNotContain, CheckEntry{
			Value: blocked,
			OK:    !strings.Contains(responseText, blocked),
		})
	}
	for _, pattern := range spec.Regex {
		entry := CheckEntry{Value: pattern}
		if re, err := regexp.Compile(pattern); err != nil {
			entry.Error = err.Error()
		} else {
			entry.OK = re.MatchString(responseText)
		}
		record(&b.Regex, entry)
	}
	for _, pattern := range spec.MustNotRegex {
		entry := CheckEntry{Value: pattern}
		if re, err := regexp.Compile(pattern); err != nil {
			entry.Error = err.Error()
		} else {
			entry.OK = !re.MatchString(responseText)
		}
		record(&b.MustNotRegex, entry)
	}

	py := &pyState{source: pysrc.PythonSource(responseText)}

	if spec.PythonBlock {
		record(&b.PythonBlock, CheckEntry{
			Required: true,
			OK:       strings.TrimSpace(py.source) != "",
		})
	}
	if spec.PythonASTParse {
		ok := py.ensure()
		record(&b.PythonASTParse, CheckEntry{Required: true, OK: ok, Error: py.errMsg})
	}

	if len(spec.PythonASTCalls) > 0 {
		parsedOK := py.ensure()
		var names map[string]bool
		if parsedOK {
			names = py.parsed.CallNames()
		}
		for _, expected := range spec.PythonASTCalls {
			entry := CheckEntry{Value: expected, OK: parsedOK && names[expected]}
			if !parsedOK {
				entry.Error = py.errMsg
			}
			record(&b.PythonASTCalls, entry)
		}
	}

	for _, kwarg := range spec.PythonASTCallKwargs {
		entry := CheckEntry{Call: kwarg.Call, Kw: kwarg.Kw}
		if kwarg.HasValue {
			entry.Value = kwarg.Value
		}
		if py.ensure() {
			for _, obs := range py.parsed.KwargObservations(kwarg.Call, kwarg.Kw) {
				switch {
				case obs.HasLiteral:
					entry.Observed = append(entry.Observed, obs.Literal)
				case obs.Expr != "":
					entry.Observed = append(entry.Observed, obs.Expr)
				default:
					entry.Observed = append(entry.Observed, nil)
				}
				switch {
				case !kwarg.HasValue:
					entry.OK = true
				case obs.HasLiteral && literalEqual(kwarg.Value, obs.Literal):
					entry.OK = true
				case !obs.HasLiteral && obs.Expr != "":
					// Non-literal arguments match on their source text.
					if want, isStr := kwarg.Value.(string); isStr && want == obs.Expr {
						entry.OK = true
					}
				}
			}
		} else {
			entry.Error = py.errMsg
		}
		record(&b.PythonASTCallKwargs, entry)
	}

	if spec.MaxLines != nil && *spec.MaxLines >= 0 {
		count := contentLineCount(responseText)
		record(&b.MaxLines, CheckEntry{
			Value:     *spec.MaxLines,
			LineCount: &count,
			OK:        count <= *spec.MaxLines,
		})
	}
	if spec.MinLines != nil && *spec.MinLines >= 0 {
		count := contentLineCount(responseText)
		record(&b.MinLines, CheckEntry{
			Value:     *spec.MinLines,
			LineCount: &count,
			OK:        count >= *spec.MinLines,
		})
	}

	if total == 0 {
		ok := strings.TrimSpace(responseText) != ""
		score := 0.0
		if ok {
			score = 1.0
		}
		return DetResult{Grade: Grade{Pass: ok, Score: score}, Breakdown: b}
	}

	return DetResult{
		Grade: Grade{
			Pass:  passed == total,
			Score: float64(passed) / float64(total),
		},
		Breakdown: b,
	}
}

// contentLineCount counts non-blank lines, ignoring markdown code
// fences so fenced answers are not penalized for the fence markers.
func contentLineCount(text string) int {
	count := 0
	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.HasPrefix(line, "```") {
			continue
		}
		count++
	}
	return count
}

// literalEqual compares a JSON-decoded expected value against an
// observed Python literal, normalizing numeric representations.
// Containers compare element-wise.
func literalEqual(expected, observed any) bool {
	if ef, ok := toFloat(expected); ok {
		of, ok := toFloat(observed)
		return ok && ef == of
	}
	switch e := expected.(type) {
	case nil, bool, string:
		return expected == observed
	case []any:
		o, ok := observed.([]any)
		if !ok || len(o) != len(e) {
			return false
		}
		for i := range e {
			if !literalEqual(e[i], o[i]) {
				return false
			}
		}
		return true
	case map[string]any:
		o, ok := observed.(map[string]any)
		if !ok || len(o) != len(e) {
			return false
		}
		for key, want := range e {
			got, present := o[key]
			if !present || !literalEqual(want, got) {
				return false
			}
		}
		return true
	}
	return false
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}
