package pipe

import (
	"strings"
	"time"

	"github.com/google/cel-go/cel"
)

// lineFilter wraps a compiled CEL program evaluated against each input line.
// When disabled, Eval always returns true.
type lineFilter struct {
	prog    cel.Program
	enabled bool
}

func newLineFilter(expr string) (lineFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return lineFilter{enabled: false}, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("text", cel.StringType),
		cel.Variable("size", cel.IntType),
		cel.Variable("line_no", cel.IntType),
		// Current time in ms for windowed filters
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return lineFilter{}, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return lineFilter{}, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return lineFilter{}, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return lineFilter{}, err
	}
	return lineFilter{prog: prog, enabled: true}, nil
}

// Eval evaluates the expression against one line. Evaluation errors drop the
// line rather than failing the pipe.
func (f lineFilter) Eval(text string, lineNo int) bool {
	if !f.enabled {
		return true
	}
	out, _, err := f.prog.Eval(map[string]any{
		"text":    text,
		"size":    int64(len(text)),
		"line_no": int64(lineNo),
		"now_ms":  time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}
