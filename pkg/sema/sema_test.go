package sema

import (
	"testing"

	"github.com/openconfig/gnmi/errdiff"

	"github.com/chmenegatti/lazylang/pkg/ast"
	"github.com/chmenegatti/lazylang/pkg/parser"
	"github.com/chmenegatti/lazylang/pkg/token"
)

func analyzeSrc(t *testing.T, src string) error {
	t.Helper()
	prog, err := parser.Parse(src, "<test>")
	if err != nil {
		t.Fatalf("Parse(%q) returned unexpected error: %v", src, err)
	}
	return Analyze(prog)
}

func TestAnalyzeMinimalProgramAccepted(t *testing.T) {
	if err := analyzeSrc(t, "main: () -> null = ()\n    log(\"Hello\")\n"); err != nil {
		t.Errorf("unexpected rejection: %v", err)
	}
}

func TestAnalyzeImmutableAssignmentRejected(t *testing.T) {
	src := "main: () -> null = ()\n    x: int = 1\n    x = 2\n"
	err := analyzeSrc(t, src)
	if diff := errdiff.Substring(err, "cannot assign to immutable variable"); diff != "" {
		t.Error(diff)
	}
}

func TestAnalyzeMutableAssignmentAccepted(t *testing.T) {
	src := "main: () -> null = ()\n    mut x: int = 1\n    x = 2\n"
	if err := analyzeSrc(t, src); err != nil {
		t.Errorf("unexpected rejection: %v", err)
	}
}

func TestAnalyzeUndeclaredAssignmentRejected(t *testing.T) {
	src := "main: () -> null = ()\n    x = 2\n"
	err := analyzeSrc(t, src)
	if diff := errdiff.Substring(err, "undeclared"); diff != "" {
		t.Error(diff)
	}
}

func TestAnalyzeRedeclarationRejected(t *testing.T) {
	src := "main: () -> null = ()\n    x: int = 1\n    x: int = 2\n"
	err := analyzeSrc(t, src)
	if diff := errdiff.Substring(err, "redeclaration"); diff != "" {
		t.Error(diff)
	}
}

func TestAnalyzeUnusedResultRejected(t *testing.T) {
	src := "f: () -> result[int,int] = ()\n    return f()\nmain: () -> null = ()\n    f()\n"
	err := analyzeSrc(t, src)
	if diff := errdiff.Substring(err, "result-returning function must not be ignored"); diff != "" {
		t.Error(diff)
	}
}

func TestAnalyzeUnusedResultAssignedIsAccepted(t *testing.T) {
	src := "f: () -> result[int,int] = ()\n    return f()\nmain: () -> null = ()\n    x: result[int,int] = f()\n"
	if err := analyzeSrc(t, src); err != nil {
		t.Errorf("unexpected rejection: %v", err)
	}
}

func TestAnalyzeFlowModeMixRejected(t *testing.T) {
	src := "f: (maybe[int]) -> result[int,int] = (x)\n    return 1\n"
	err := analyzeSrc(t, src)
	if diff := errdiff.Substring(err, "mixes maybe and result"); diff != "" {
		t.Error(diff)
	}
}

func TestAnalyzeFlowModeNoneAbsorbed(t *testing.T) {
	src := "f: (int) -> result[int,int] = (x)\n    return 1\n"
	if err := analyzeSrc(t, src); err != nil {
		t.Errorf("unexpected rejection: %v", err)
	}
}

func TestAnalyzeBackendUnsupportedTypeRejected(t *testing.T) {
	src := "f: (chan[int]) -> null = (x)\n    log(\"x\")\n"
	err := analyzeSrc(t, src)
	if diff := errdiff.Substring(err, "not supported by this backend"); diff != "" {
		t.Error(diff)
	}
}

func TestAnalyzeStructDuplicateFieldRejected(t *testing.T) {
	src := "struct Point\n    x: int\n    x: int\n"
	err := analyzeSrc(t, src)
	if diff := errdiff.Substring(err, "duplicate field"); diff != "" {
		t.Error(diff)
	}
}

func TestAnalyzeStructComplexFieldRejected(t *testing.T) {
	src := "struct Box\n    x: result[int,int]\n"
	err := analyzeSrc(t, src)
	if diff := errdiff.Substring(err, "must have a primitive type"); diff != "" {
		t.Error(diff)
	}
}

func TestAnalyzeMainCannotReturnResult(t *testing.T) {
	src := "main: () -> result[int,int] = ()\n    return 1\n"
	err := analyzeSrc(t, src)
	if diff := errdiff.Substring(err, "main must not return a result type"); diff != "" {
		t.Error(diff)
	}
}

func TestAnalyzeLogArityEnforced(t *testing.T) {
	src := "main: () -> null = ()\n    log(\"a\", \"b\")\n"
	err := analyzeSrc(t, src)
	if diff := errdiff.Substring(err, "log requires exactly one argument"); diff != "" {
		t.Error(diff)
	}
}

func TestAnalyzeReservedPrefixRejected(t *testing.T) {
	for _, src := range []string{
		"lz_helper: () -> null = ()\n    log(\"x\")\n",
		"main: () -> null = ()\n    __lz_x: int = 1\n    log(\"x\")\n",
		"struct LZ_Point\n    x: int\n",
	} {
		err := analyzeSrc(t, src)
		if diff := errdiff.Substring(err, "reserved prefix"); diff != "" {
			t.Errorf("src %q: %s", src, diff)
		}
	}
}

func TestAnalyzeForBodyShadowsIteratorInNestedScope(t *testing.T) {
	// The for body is its own Block and therefore its own scope (same
	// as an If branch), so a local declared inside it may shadow the
	// iterator binding from the enclosing loop scope; only same-scope
	// redeclaration is rejected.
	src := "main: () -> null = ()\n    xs: int = 1\n    for x in xs\n        x: int = 5\n        log(\"x\")\n"
	if err := analyzeSrc(t, src); err != nil {
		t.Errorf("unexpected rejection: %v", err)
	}
}

func TestAnalyzeReturnOutsideFunctionRejected(t *testing.T) {
	// The grammar only allows "return" inside a function block, so this
	// rule is defense-in-depth; exercised directly against the
	// Analyzer's internal state rather than through the parser.
	a := New()
	a.inFunction = false
	err := a.checkStmt(&ast.Return{Token: token.Token{Line: 1, Col: 1}}, newScope(nil))
	if diff := errdiff.Substring(err, "return outside function"); diff != "" {
		t.Error(diff)
	}
}
