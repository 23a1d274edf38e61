package parser

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/openconfig/gnmi/errdiff"

	"github.com/chmenegatti/lazylang/pkg/ast"
)

func mustParse(t *testing.T, src string) *ast.Program {
	t.Helper()
	prog, err := Parse(src, "<test>")
	if err != nil {
		t.Fatalf("Parse(%q) returned unexpected error: %v", src, err)
	}
	return prog
}

func TestParseMinimalProgram(t *testing.T) {
	prog := mustParse(t, "main: () -> null = ()\n    log(\"Hello\")\n")
	if len(prog.Decls) != 1 {
		t.Fatalf("got %d decls, want 1", len(prog.Decls))
	}
	fn, ok := prog.Decls[0].(*ast.Function)
	if !ok {
		t.Fatalf("decl 0 is %T, want *ast.Function", prog.Decls[0])
	}
	if fn.Name != "main" {
		t.Errorf("fn.Name = %q, want main", fn.Name)
	}
	if fn.ReturnType != "null" {
		t.Errorf("fn.ReturnType = %q, want null", fn.ReturnType)
	}
	if len(fn.Body.Stmts) != 1 {
		t.Fatalf("got %d body statements, want 1", len(fn.Body.Stmts))
	}
	stmt, ok := fn.Body.Stmts[0].(*ast.ExprStmt)
	if !ok {
		t.Fatalf("body stmt 0 is %T, want *ast.ExprStmt", fn.Body.Stmts[0])
	}
	call, ok := stmt.X.(*ast.Call)
	if !ok {
		t.Fatalf("expr is %T, want *ast.Call", stmt.X)
	}
	if callee, ok := call.Callee.(*ast.Identifier); !ok || callee.Name != "log" {
		t.Errorf("callee = %#v, want identifier log", call.Callee)
	}
}

func TestParseFunctionParamsAndTypes(t *testing.T) {
	prog := mustParse(t, "add: (int, int) -> int = (a, b)\n    return a + b\n")
	fn := prog.Decls[0].(*ast.Function)
	want := []ast.Param{{Name: "a", TypeName: "int"}, {Name: "b", TypeName: "int"}}
	if diff := cmp.Diff(want, fn.Params); diff != "" {
		t.Errorf("params mismatch (-want +got):\n%s", diff)
	}
}

func TestParseCompoundTypeFragment(t *testing.T) {
	prog := mustParse(t, "f: () -> result[int,int] = ()\n    return 1\n")
	fn := prog.Decls[0].(*ast.Function)
	if fn.ReturnType != "result[int,int]" {
		t.Errorf("ReturnType = %q, want result[int,int]", fn.ReturnType)
	}
}

func TestParseIfElseTailExpression(t *testing.T) {
	src := "is_positive: (int) -> bool = (x)\n    if x > 0\n        true\n    else\n        false\n"
	prog := mustParse(t, src)
	fn := prog.Decls[0].(*ast.Function)
	ifStmt, ok := fn.Body.Stmts[0].(*ast.If)
	if !ok {
		t.Fatalf("stmt 0 is %T, want *ast.If", fn.Body.Stmts[0])
	}
	if ifStmt.Else == nil {
		t.Fatal("expected an else block")
	}
	if len(ifStmt.Then.Stmts) != 1 || len(ifStmt.Else.Stmts) != 1 {
		t.Fatalf("expected exactly one statement per branch")
	}
}

func TestParseStructFields(t *testing.T) {
	prog := mustParse(t, "struct Point\n    x: int\n    y: int\n")
	s := prog.Decls[0].(*ast.Struct)
	want := []ast.Field{{Name: "x", TypeName: "int"}, {Name: "y", TypeName: "int"}}
	if diff := cmp.Diff(want, s.Fields); diff != "" {
		t.Errorf("fields mismatch (-want +got):\n%s", diff)
	}
}

func TestParseImportsMustPrecedeDeclarations(t *testing.T) {
	_, err := Parse("f: () -> null = ()\n    log(\"x\")\nimport net.http\n", "<test>")
	if diff := errdiff.Substring(err, "imports must appear before declarations"); diff != "" {
		t.Error(diff)
	}
}

func TestParseParamNameCountMismatch(t *testing.T) {
	_, err := Parse("f: (int, int) -> null = (a)\n    log(\"x\")\n", "<test>")
	if diff := errdiff.Substring(err, "parameter type(s)"); diff != "" {
		t.Error(diff)
	}
}

func TestParseMutVarDecl(t *testing.T) {
	prog := mustParse(t, "main: () -> null = ()\n    mut x: int = 1\n    x = 2\n")
	fn := prog.Decls[0].(*ast.Function)
	decl, ok := fn.Body.Stmts[0].(*ast.VarDecl)
	if !ok || !decl.IsMutable {
		t.Fatalf("expected a mutable var decl, got %#v", fn.Body.Stmts[0])
	}
	assign, ok := fn.Body.Stmts[1].(*ast.Assign)
	if !ok || assign.Target != "x" {
		t.Fatalf("expected assignment to x, got %#v", fn.Body.Stmts[1])
	}
}

func TestParseStatementDisambiguation(t *testing.T) {
	// A bare identifier line is a var_decl, assign, or expr_stmt
	// depending solely on the next token.
	prog := mustParse(t, "main: () -> null = ()\n    x: int = 1\n    x = 2\n    x\n")
	fn := prog.Decls[0].(*ast.Function)
	if _, ok := fn.Body.Stmts[0].(*ast.VarDecl); !ok {
		t.Errorf("stmt 0 = %T, want *ast.VarDecl", fn.Body.Stmts[0])
	}
	if _, ok := fn.Body.Stmts[1].(*ast.Assign); !ok {
		t.Errorf("stmt 1 = %T, want *ast.Assign", fn.Body.Stmts[1])
	}
	if _, ok := fn.Body.Stmts[2].(*ast.ExprStmt); !ok {
		t.Errorf("stmt 2 = %T, want *ast.ExprStmt", fn.Body.Stmts[2])
	}
}

func TestParseBinaryPrecedence(t *testing.T) {
	prog := mustParse(t, "main: () -> null = ()\n    x: int = 1 + 2 * 3\n")
	fn := prog.Decls[0].(*ast.Function)
	decl := fn.Body.Stmts[0].(*ast.VarDecl)
	bin, ok := decl.Initializer.(*ast.Binary)
	if !ok {
		t.Fatalf("initializer is %T, want *ast.Binary", decl.Initializer)
	}
	// Top-level operator must be '+' (lowest precedence among the two),
	// with the '*' nested on the right.
	if _, ok := bin.Right.(*ast.Binary); !ok {
		t.Errorf("right operand is %T, want nested *ast.Binary for 2 * 3", bin.Right)
	}
	if _, ok := bin.Left.(*ast.Literal); !ok {
		t.Errorf("left operand is %T, want *ast.Literal", bin.Left)
	}
}

func TestParseEOFWithoutTrailingNewline(t *testing.T) {
	// No trailing "\n" after the last statement: the lexer's EOF
	// handling emits DEDENT(s) directly, exercised via expectStmtEnd.
	prog := mustParse(t, "main: () -> null = ()\n    log(\"x\")")
	if len(prog.Decls) != 1 {
		t.Fatalf("got %d decls, want 1", len(prog.Decls))
	}
}
