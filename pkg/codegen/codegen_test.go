package codegen

import (
	"strings"
	"testing"

	"github.com/kylelemons/godebug/pretty"

	"github.com/chmenegatti/lazylang/pkg/parser"
	"github.com/chmenegatti/lazylang/pkg/sema"
)

func generate(t *testing.T, src string) string {
	t.Helper()
	prog, err := parser.Parse(src, "<test>")
	if err != nil {
		t.Fatalf("Parse returned unexpected error: %v", err)
	}
	if err := sema.Analyze(prog); err != nil {
		t.Fatalf("Analyze returned unexpected error: %v", err)
	}
	out, err := Generate(prog)
	if err != nil {
		t.Fatalf("Generate returned unexpected error: %v", err)
	}
	return out
}

func TestGenerateMinimalProgram(t *testing.T) {
	out := generate(t, "main: () -> null = ()\n    log(\"Hello\")\n")
	for _, want := range []string{
		`#include "src/runtime/runtime.h"`,
		"static void lz_fn_main(void) {",
		`lz_runtime_log(lz_string_from_literal("Hello"));`,
		"int main(void) {",
		"lz_fn_main();",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("generated C missing %q; got:\n%s", want, out)
		}
	}
}

func TestGenerateTailExpressionReturn(t *testing.T) {
	src := "is_positive: (int) -> bool = (x)\n    if x > 0\n        true\n    else\n        false\n"
	out := generate(t, src)
	for _, want := range []string{
		"bool __lz_ret = {0};",
		"lz_assign_bool(&__lz_ret, true);",
		"lz_assign_bool(&__lz_ret, false);",
		"return __lz_ret;",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("generated C missing %q; got:\n%s", want, out)
		}
	}
}

func TestGenerateExplicitReturnSkipsTailSynthesis(t *testing.T) {
	out := generate(t, "f: () -> int = ()\n    return 1\n")
	if strings.Contains(out, "__lz_ret") {
		t.Errorf("explicit return must not trigger tail synthesis; got:\n%s", out)
	}
	if !strings.Contains(out, "return 1;") {
		t.Errorf("expected verbatim return; got:\n%s", out)
	}
}

func TestGenerateVarDeclRoutesThroughAssignFunnel(t *testing.T) {
	out := generate(t, "main: () -> null = ()\n    x: int = 1\n    log(\"done\")\n")
	if !strings.Contains(out, "int64_t x = {0};") {
		t.Errorf("expected zero-initialized declaration; got:\n%s", out)
	}
	if !strings.Contains(out, "lz_assign_int64(&x, 1);") {
		t.Errorf("expected funnel call; got:\n%s", out)
	}
	if strings.Contains(out, "x = 1;") {
		t.Errorf("must never emit a direct assignment; got:\n%s", out)
	}
}

func TestGenerateStructDefinitionAndHelper(t *testing.T) {
	out := generate(t, "struct Point\n    x: int\n    y: int\nmain: () -> null = ()\n    log(\"ok\")\n")
	for _, want := range []string{
		"typedef struct Point Point;",
		"struct Point {",
		"int64_t x;",
		"int64_t y;",
		"static inline void lz_assign_struct_Point(Point *dst, Point value) {",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("generated C missing %q; got:\n%s", want, out)
		}
	}
}

func TestGenerateUserFunctionCallRewrite(t *testing.T) {
	src := "helper: () -> null = ()\n    log(\"hi\")\nmain: () -> null = ()\n    helper()\n"
	out := generate(t, src)
	if !strings.Contains(out, "lz_fn_helper();") {
		t.Errorf("expected call rewritten to lz_fn_helper; got:\n%s", out)
	}
}

func TestGenerateNoEntryPoint(t *testing.T) {
	out := generate(t, "f: () -> null = ()\n    log(\"x\")\n")
	if !strings.Contains(out, `printf("no entry point defined\n");`) {
		t.Errorf("expected no-entry-point fallback; got:\n%s", out)
	}
}

func TestGenerateIsDeterministic(t *testing.T) {
	src := "main: () -> null = ()\n    x: int = 1 + 2\n    log(\"done\")\n"
	prog, err := parser.Parse(src, "<test>")
	if err != nil {
		t.Fatalf("Parse returned unexpected error: %v", err)
	}
	if err := sema.Analyze(prog); err != nil {
		t.Fatalf("Analyze returned unexpected error: %v", err)
	}
	first, err := Generate(prog)
	if err != nil {
		t.Fatalf("Generate returned unexpected error: %v", err)
	}
	second, err := Generate(prog)
	if err != nil {
		t.Fatalf("Generate returned unexpected error: %v", err)
	}
	if diff := pretty.Compare(first, second); diff != "" {
		t.Errorf("codegen is not deterministic (-first +second):\n%s", diff)
	}
}

func TestGenerateStringEscaping(t *testing.T) {
	// The lexer never interprets escapes: the raw bytes between the
	// quotes, here an actual tab and an actual backslash, pass straight
	// through to codegen, which is the stage responsible for
	// C-escaping them.
	inner := "a\tb\\c"
	src := "main: () -> null = ()\n    log(\"" + inner + "\")\n"
	out := generate(t, src)
	if !strings.Contains(out, `lz_string_from_literal("a\tb\\c")`) {
		t.Errorf("expected escaped string literal; got:\n%s", out)
	}
}

func TestGenerateForInIsCodegenError(t *testing.T) {
	// Sema deliberately does not reject for-loops; codegen is the
	// second line of defense since no iteration primitive exists in
	// the runtime ABI.
	prog, err := parser.Parse("main: () -> null = ()\n    for i in items\n        log(\"x\")\n", "<test>")
	if err != nil {
		t.Fatalf("Parse returned unexpected error: %v", err)
	}
	_, err = Generate(prog)
	if err == nil {
		t.Fatal("expected a codegen error for a for-loop, got nil")
	}
	if !strings.Contains(err.Error(), "for-in loops are not supported") {
		t.Errorf("got error %v, want mention of unsupported for-in loops", err)
	}
}
