package pipe

import "testing"

func TestLineFilterDisabledPassesEverything(t *testing.T) {
	f, err := newLineFilter("  ")
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !f.Eval("anything", 1) {
		t.Fatalf("disabled filter dropped a line")
	}
}

func TestLineFilterExpressions(t *testing.T) {
	cases := []struct {
		expr   string
		text   string
		lineNo int
		want   bool
	}{
		{`size > 3`, "long line", 1, true},
		{`size > 3`, "ab", 1, false},
		{`text.contains("err")`, "error: boom", 1, true},
		{`text.contains("err")`, "all good", 1, false},
		{`line_no % 2 == 0`, "x", 4, true},
		{`line_no % 2 == 0`, "x", 3, false},
	}
	for _, tc := range cases {
		f, err := newLineFilter(tc.expr)
		if err != nil {
			t.Fatalf("compile %q: %v", tc.expr, err)
		}
		if got := f.Eval(tc.text, tc.lineNo); got != tc.want {
			t.Errorf("%q on %q line %d = %v, want %v", tc.expr, tc.text, tc.lineNo, got, tc.want)
		}
	}
}

func TestLineFilterRejectsBadExpression(t *testing.T) {
	if _, err := newLineFilter(`size +`); err == nil {
		t.Fatalf("expected parse error")
	}
	// Non-bool results are a type error at compile time.
	if _, err := newLineFilter(`size + 1`); err == nil {
		t.Fatalf("expected check error for non-bool result")
	}
}

func TestLineFilterEvalErrorDropsLine(t *testing.T) {
	// Division by zero errors at eval time; the line is dropped.
	f, err := newLineFilter(`100 / (size - 3) > 0`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	if f.Eval("abc", 1) {
		t.Fatalf("eval error should drop the line")
	}
	if !f.Eval("abcd", 1) {
		t.Fatalf("valid evaluation should pass")
	}
}
