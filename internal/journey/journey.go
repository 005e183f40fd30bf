// Package journey loads and validates benchmark journey definitions.
//
// A journey is a JSON file holding an ordered list of cases. Each case
// carries a prompt plus its grading specification: deterministic checks,
// optional trace checks, and an optional oracle configuration. Definitions
// are validated structurally (JSON Schema) and decoded into typed specs
// once at load time, so grading never has to poke at raw maps.
package journey

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/go-viper/mapstructure/v2"
	"github.com/santhosh-tekuri/jsonschema/v6"
)

// Journey is a named, ordered collection of cases sharing an eval intent.
type Journey struct {
	ID         string `json:"id"`
	EvalIntent string `json:"eval_intent,omitempty"`
	Cases      []Case `json:"cases"`
}

// Case is one task prompt plus its grading specification. Immutable once
// loaded.
type Case struct {
	ID          string
	Prompt      string
	Checks      CheckSpec
	ChecksRaw   map[string]any
	TraceChecks TraceCheckSpec
	Oracle      OracleSpec
	Coverage    map[string]any
}

// CheckSpec is the deterministic check configuration for one case.
type CheckSpec struct {
	MustContain         []string     `mapstructure:"must_contain"`
	MustNotContain      []string     `mapstructure:"must_not_contain"`
	Regex               []string     `mapstructure:"regex"`
	MustNotRegex        []string     `mapstructure:"must_not_regex"`
	MaxLines            *int         `mapstructure:"max_lines"`
	MinLines            *int         `mapstructure:"min_lines"`
	PythonBlock         bool         `mapstructure:"python_block"`
	PythonASTParse      bool         `mapstructure:"python_ast_parse"`
	PythonASTCalls      []string     `mapstructure:"python_ast_calls"`
	PythonASTCallKwargs []KwargCheck `mapstructure:"python_ast_call_kwargs"`
}

// KwargCheck asserts that a keyword argument appears on a call, optionally
// with a specific literal value. Call may be empty to match any call name.
type KwargCheck struct {
	Call     string `mapstructure:"call"`
	Kw       string `mapstructure:"kw"`
	Value    any    `mapstructure:"value"`
	HasValue bool   `mapstructure:"-"`
}

// TraceCheckSpec is the trace-level check configuration for one case.
type TraceCheckSpec struct {
	MustCommandRegex       []string `mapstructure:"must_command_regex"`
	MustNotCommandRegex    []string `mapstructure:"must_not_command_regex"`
	MustDomainUsed         []string `mapstructure:"must_domain_used"`
	MustNotDomainUsed      []string `mapstructure:"must_not_domain_used"`
	MaxEmptyOpenPageEvents *int     `mapstructure:"max_empty_open_page_events"`
}

// Empty reports whether no trace checks are configured. Cases with no
// trace checks pass the trace grader automatically and are excluded from
// score averaging.
func (s TraceCheckSpec) Empty() bool {
	return len(s.MustCommandRegex) == 0 &&
		len(s.MustNotCommandRegex) == 0 &&
		len(s.MustDomainUsed) == 0 &&
		len(s.MustNotDomainUsed) == 0 &&
		s.MaxEmptyOpenPageEvents == nil
}

// OracleSpec is the LLM-judge configuration for one case. The boolean
// shorthand form (`"oracle": true`) enables judging with defaults; the
// object form overrides the score threshold and supplies grading context.
type OracleSpec struct {
	Enabled           bool     `mapstructure:"enabled"`
	MinScore          *float64 `mapstructure:"min_score"`
	ReferenceAnswer   string   `mapstructure:"reference_answer"`
	RubricRaw         any      `mapstructure:"rubric"`
	RequiredConcepts  []string `mapstructure:"required_concepts"`
	ForbiddenConcepts []string `mapstructure:"forbidden_concepts"`
}

// ResolveMinScore returns the score threshold, clamped to [0,1], falling
// back to def when the case does not set one.
func (o OracleSpec) ResolveMinScore(def float64) float64 {
	v := def
	if o.MinScore != nil {
		v = *o.MinScore
	}
	return clamp01(v)
}

// Rubric normalizes the rubric field: a list becomes one bullet per
// entry, anything else is stringified and trimmed.
func (o OracleSpec) Rubric() string {
	switch v := o.RubricRaw.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case []any:
		var lines []string
		for _, item := range v {
			s := strings.TrimSpace(fmt.Sprintf("%v", item))
			if s != "" {
				lines = append(lines, "- "+s)
			}
		}
		return strings.Join(lines, "\n")
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", v))
	}
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// journeySchema constrains the top-level shape of a journey file. Check
// contents stay permissive here; they are decoded into typed specs below.
const journeySchema = `{
  "$schema": "https://json-schema.org/draft/2020-12/schema",
  "type": "object",
  "required": ["id", "cases"],
  "properties": {
    "id": {"type": "string", "minLength": 1},
    "eval_intent": {"type": "string"},
    "cases": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "id": {"type": "string"},
          "prompt": {"type": "string"},
          "checks": {"type": "object"},
          "trace_checks": {"type": "object"},
          "oracle": {"type": ["boolean", "object"]}
        }
      }
    }
  }
}`

var (
	schemaOnce     sync.Once
	compiledSchema *jsonschema.Schema
	schemaErr      error
)

func schema() (*jsonschema.Schema, error) {
	schemaOnce.Do(func() {
		doc, err := jsonschema.UnmarshalJSON(strings.NewReader(journeySchema))
		if err != nil {
			schemaErr = fmt.Errorf("parsing journey schema: %w", err)
			return
		}
		compiler := jsonschema.NewCompiler()
		if err := compiler.AddResource("journey.schema.json", doc); err != nil {
			schemaErr = fmt.Errorf("adding journey schema resource: %w", err)
			return
		}
		compiledSchema, schemaErr = compiler.Compile("journey.schema.json")
	})
	return compiledSchema, schemaErr
}

// Load parses and validates one journey definition file. Missing required
// keys, a non-list cases value, or malformed check specs are definition
// errors: the returned error aborts the run before any harness invocation.
func Load(path string) (*Journey, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading journey %s: %w", path, err)
	}

	sch, err := schema()
	if err != nil {
		return nil, err
	}

	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(data)))
	if err != nil {
		return nil, fmt.Errorf("invalid journey file %s: %w", path, err)
	}
	if err := sch.Validate(doc); err != nil {
		return nil, fmt.Errorf("journey %s failed validation: %w", path, err)
	}

	var raw struct {
		ID         string           `json:"id"`
		EvalIntent string           `json:"eval_intent"`
		Cases      []map[string]any `json:"cases"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing journey %s: %w", path, err)
	}

	j := &Journey{ID: raw.ID, EvalIntent: raw.EvalIntent}
	for i, rawCase := range raw.Cases {
		c, err := decodeCase(rawCase, i)
		if err != nil {
			return nil, fmt.Errorf("journey %s case %d: %w", path, i+1, err)
		}
		j.Cases = append(j.Cases, c)
	}
	return j, nil
}

func decodeCase(raw map[string]any, index int) (Case, error) {
	c := Case{
		ID:     stringField(raw, "id"),
		Prompt: strings.TrimSpace(stringField(raw, "prompt")),
	}
	if c.ID == "" {
		c.ID = fmt.Sprintf("case_%d", index+1)
	}

	if checks, ok := raw["checks"].(map[string]any); ok {
		c.ChecksRaw = checks
		if err := decodeWeakly(checks, &c.Checks); err != nil {
			return c, fmt.Errorf("decoding checks: %w", err)
		}
		markKwargValuePresence(checks, c.Checks.PythonASTCallKwargs)
	}
	if traceChecks, ok := raw["trace_checks"].(map[string]any); ok {
		if err := decodeWeakly(traceChecks, &c.TraceChecks); err != nil {
			return c, fmt.Errorf("decoding trace_checks: %w", err)
		}
	}

	switch oracle := raw["oracle"].(type) {
	case bool:
		c.Oracle = OracleSpec{Enabled: oracle}
	case map[string]any:
		// Object form defaults to enabled unless it says otherwise.
		c.Oracle = OracleSpec{Enabled: true}
		if err := decodeWeakly(oracle, &c.Oracle); err != nil {
			return c, fmt.Errorf("decoding oracle: %w", err)
		}
	}

	if coverage, ok := raw["coverage"].(map[string]any); ok {
		c.Coverage = coverage
	}
	return c, nil
}

// markKwargValuePresence distinguishes "value": null from an absent value
// key, which mapstructure alone cannot express.
func markKwargValuePresence(checks map[string]any, kwargs []KwargCheck) {
	rawList, ok := checks["python_ast_call_kwargs"].([]any)
	if !ok {
		return
	}
	for i := range kwargs {
		if i >= len(rawList) {
			break
		}
		if spec, ok := rawList[i].(map[string]any); ok {
			_, kwargs[i].HasValue = spec["value"]
		}
	}
}

// decodeWeakly decodes JSON-shaped maps into typed specs, tolerating the
// float64 numbers encoding/json produces for integer fields.
func decodeWeakly(input map[string]any, target any) error {
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           target,
		WeaklyTypedInput: true,
	})
	if err != nil {
		return err
	}
	return decoder.Decode(input)
}

func stringField(m map[string]any, key string) string {
	if v, ok := m[key].(string); ok {
		return v
	}
	return ""
}
