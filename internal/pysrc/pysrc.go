// Package pysrc extracts and analyzes Python code embedded in harness
// responses.
//
// Responses carry code inside markdown fences; the deterministic grader
// asserts structural properties of that code (parseability, calls made,
// keyword arguments used). Parsing runs once per response and parse
// failures are values, not errors, so a malformed snippet degrades to
// failed checks instead of aborting grading.
package pysrc

import (
	"errors"
	"regexp"
	"strings"

	"github.com/go-python/gpython/ast"
	"github.com/go-python/gpython/parser"
	"github.com/go-python/gpython/py"
)

var anyFenceRE = regexp.MustCompile("(?s)```[^\n]*\n(.*?)```")

// ExtractCodeBlocks returns the bodies of fenced code blocks, in
// document order, skipping empty bodies. A non-empty language restricts
// matches to fences tagged with it.
func ExtractCodeBlocks(text, language string) []string {
	re := anyFenceRE
	if language != "" {
		re = regexp.MustCompile("(?is)```" + regexp.QuoteMeta(language) + "\\s*\n(.*?)```")
	}

	var blocks []string
	for _, match := range re.FindAllStringSubmatch(text, -1) {
		if body := strings.TrimSpace(match[1]); body != "" {
			blocks = append(blocks, body)
		}
	}
	return blocks
}

// PythonSource picks the snippet AST checks run against: the first
// python/py-tagged block, else the first fenced block of any language,
// else "".
func PythonSource(text string) string {
	blocks := ExtractCodeBlocks(text, "python")
	blocks = append(blocks, ExtractCodeBlocks(text, "py")...)
	if len(blocks) == 0 {
		blocks = ExtractCodeBlocks(text, "")
	}
	if len(blocks) == 0 {
		return ""
	}
	return blocks[0]
}

// Parsed is a successfully parsed Python module.
type Parsed struct {
	tree ast.Ast
}

// Parse parses Python source in exec mode. Empty source is an error so
// callers can report "no code block" distinctly from a syntax error.
func Parse(source string) (*Parsed, error) {
	if strings.TrimSpace(source) == "" {
		return nil, errors.New("no code block found for AST parsing")
	}
	tree, err := parser.ParseString(source, py.ExecMode)
	if err != nil {
		return nil, err
	}
	return &Parsed{tree: tree}, nil
}

// CallNames returns the set of function/method names invoked anywhere
// in the tree. Attribute calls contribute the attribute name, so
// g.plot() counts as "plot" regardless of the receiver.
func (p *Parsed) CallNames() map[string]bool {
	names := make(map[string]bool)
	ast.Walk(p.tree, func(node ast.Ast) bool {
		if call, ok := node.(*ast.Call); ok {
			if name := callName(call); name != "" {
				names[name] = true
			}
		}
		return true
	})
	return names
}

// KwargObservation is one keyword argument sighting. Literal is the
// Go value of the argument when it is a literal expression; HasLiteral
// is false otherwise, in which case Expr carries a source rendering of
// the expression ("" when none is available).
type KwargObservation struct {
	Literal    any
	HasLiteral bool
	Expr       string
}

// KwargObservations collects every occurrence of keyword kw on calls
// named call (any call when call is ""), in tree order.
func (p *Parsed) KwargObservations(call, kw string) []KwargObservation {
	var out []KwargObservation
	ast.Walk(p.tree, func(node ast.Ast) bool {
		c, ok := node.(*ast.Call)
		if !ok {
			return true
		}
		if call != "" && callName(c) != call {
			return true
		}
		for _, keyword := range c.Keywords {
			if string(keyword.Arg) != kw {
				continue
			}
			obs := KwargObservation{}
			if literal, ok := literalValue(keyword.Value); ok {
				obs.Literal = literal
				obs.HasLiteral = true
			} else {
				obs.Expr = exprString(keyword.Value)
			}
			out = append(out, obs)
		}
		return true
	})
	return out
}

func callName(call *ast.Call) string {
	switch fn := call.Func.(type) {
	case *ast.Name:
		return string(fn.Id)
	case *ast.Attribute:
		return string(fn.Attr)
	default:
		return ""
	}
}

// literalValue converts literal expressions to Go values: strings,
// numbers (including unary minus), True/False/None, and lists, tuples,
// and string-keyed dicts of literals. Tuples come back as slices so a
// JSON list in a check can match either sequence form.
func literalValue(node ast.Expr) (any, bool) {
	switch v := node.(type) {
	case *ast.Str:
		return string(v.S), true
	case *ast.Num:
		return numValue(v.N)
	case *ast.List:
		return seqValues(v.Elts)
	case *ast.Tuple:
		return seqValues(v.Elts)
	case *ast.Dict:
		out := make(map[string]any, len(v.Keys))
		for i, keyNode := range v.Keys {
			key, ok := literalValue(keyNode)
			if !ok {
				return nil, false
			}
			keyStr, ok := key.(string)
			if !ok {
				return nil, false
			}
			val, ok := literalValue(v.Values[i])
			if !ok {
				return nil, false
			}
			out[keyStr] = val
		}
		return out, true
	case *ast.NameConstant:
		switch c := v.Value.(type) {
		case py.Bool:
			return bool(c), true
		case py.NoneType:
			return nil, true
		}
	case *ast.UnaryOp:
		if v.Op == ast.USub {
			if num, ok := v.Operand.(*ast.Num); ok {
				if val, ok := numValue(num.N); ok {
					switch n := val.(type) {
					case int64:
						return -n, true
					case float64:
						return -n, true
					}
				}
			}
		}
	}
	return nil, false
}

func seqValues(elts []ast.Expr) (any, bool) {
	out := make([]any, 0, len(elts))
	for _, elt := range elts {
		v, ok := literalValue(elt)
		if !ok {
			return nil, false
		}
		out = append(out, v)
	}
	return out, true
}

// exprString renders common non-literal argument expressions (names,
// attribute chains, calls, subscripts) as source text so checks can
// match on the expression and diagnostics can show it.
func exprString(node ast.Expr) string {
	switch v := node.(type) {
	case *ast.Name:
		return string(v.Id)
	case *ast.Attribute:
		if recv := exprString(v.Value); recv != "" {
			return recv + "." + string(v.Attr)
		}
	case *ast.Call:
		if fn := exprString(v.Func); fn != "" {
			return fn + "(...)"
		}
	case *ast.Subscript:
		if recv := exprString(v.Value); recv != "" {
			return recv + "[...]"
		}
	}
	return ""
}

func numValue(obj py.Object) (any, bool) {
	switch n := obj.(type) {
	case py.Int:
		return int64(n), true
	case py.Float:
		return float64(n), true
	default:
		return nil, false
	}
}
