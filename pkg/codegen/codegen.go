// Package codegen lowers a validated pkg/ast tree into a single C
// translation unit. It never mutates the AST and never inspects
// anything sema has already ruled out; its own "for in" rejection
// exists purely as a second line of defense, since sema's rule set
// intentionally does not reject for-loops outright — codegen punts on
// them because no iteration primitive exists in the runtime ABI.
//
// Emission is a recursive descent over the tree, one emitX method per
// emission phase, with emitStmt and exprString switching over statement
// and expression kinds, writing into a *bytes.Buffer instead of an io.Writer
// directly so the result can be diffed against golden text in tests
// before being written out.
package codegen

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/chmenegatti/lazylang/pkg/ast"
	"github.com/chmenegatti/lazylang/pkg/diag"
	"github.com/chmenegatti/lazylang/pkg/token"
)

// funcScope tracks which names are in scope as local variables inside
// the function currently being emitted, so identifier rewriting can
// tell a local reference from a call to a user-defined function.
type funcScope struct {
	parent *funcScope
	types  map[string]string
}

func newFuncScope(parent *funcScope) *funcScope {
	return &funcScope{parent: parent, types: map[string]string{}}
}

func (s *funcScope) declare(name, typeName string) { s.types[name] = typeName }

func (s *funcScope) lookup(name string) (string, bool) {
	for cur := s; cur != nil; cur = cur.parent {
		if t, ok := cur.types[name]; ok {
			return t, true
		}
	}
	return "", false
}

// tailSlot is the out-parameter threaded into a block when its final
// statement must supply the enclosing function's return value.
type tailSlot struct {
	varName string
	helper  string
}

type generator struct {
	buf     bytes.Buffer
	structs map[string]*ast.Struct
	funcs   map[string]*ast.Function
}

// Generate lowers prog into a complete C translation unit.
func Generate(prog *ast.Program) (string, error) {
	g := &generator{
		structs: map[string]*ast.Struct{},
		funcs:   map[string]*ast.Function{},
	}
	for _, decl := range prog.Decls {
		switch n := decl.(type) {
		case *ast.Struct:
			g.structs[n.Name] = n
		case *ast.Function:
			g.funcs[n.Name] = n
		}
	}

	g.emitHeader()
	g.emitRuntimeInclude()
	g.emitStructForwardDecls(prog)
	g.emitStructDefs(prog)
	g.emitStructAssignHelpers(prog)
	g.emitFunctionPrototypes(prog)
	if err := g.emitFunctionBodies(prog); err != nil {
		return "", err
	}
	g.emitMain()

	return g.buf.String(), nil
}

func (g *generator) w(format string, args ...interface{}) {
	fmt.Fprintf(&g.buf, format, args...)
}

// Phase 1.
func (g *generator) emitHeader() {
	g.w("/* generated by lazylangc; do not edit by hand */\n")
	g.w("#include <stdint.h>\n")
	g.w("#include <stdbool.h>\n")
	g.w("#include <stdio.h>\n\n")
}

// Phase 2.
func (g *generator) emitRuntimeInclude() {
	g.w("#define LZ_RUNTIME_INTERNAL\n")
	g.w("#include \"src/runtime/runtime.h\"\n\n")
}

// Phase 3.
func (g *generator) emitStructForwardDecls(prog *ast.Program) {
	for _, decl := range prog.Decls {
		if s, ok := decl.(*ast.Struct); ok {
			g.w("typedef struct %s %s;\n", s.Name, s.Name)
		}
	}
	g.w("\n")
}

// Phase 4.
func (g *generator) emitStructDefs(prog *ast.Program) {
	for _, decl := range prog.Decls {
		s, ok := decl.(*ast.Struct)
		if !ok {
			continue
		}
		g.w("struct %s {\n", s.Name)
		for _, f := range s.Fields {
			g.w("    %s %s;\n", g.cType(f.TypeName), f.Name)
		}
		g.w("};\n\n")
	}
}

// Phase 5.
func (g *generator) emitStructAssignHelpers(prog *ast.Program) {
	for _, decl := range prog.Decls {
		s, ok := decl.(*ast.Struct)
		if !ok {
			continue
		}
		g.w("static inline void lz_assign_struct_%s(%s *dst, %s value) {\n", s.Name, s.Name, s.Name)
		g.w("    *dst = value;\n")
		g.w("}\n\n")
	}
}

// Phase 6.
func (g *generator) emitFunctionPrototypes(prog *ast.Program) {
	for _, decl := range prog.Decls {
		fn, ok := decl.(*ast.Function)
		if !ok {
			continue
		}
		g.w("static %s lz_fn_%s(%s);\n", g.returnCType(fn), fn.Name, g.paramList(fn))
	}
	g.w("\n")
}

func (g *generator) returnCType(fn *ast.Function) string {
	if fn.ReturnType == "" || fn.ReturnType == "null" {
		return "void"
	}
	return g.cType(fn.ReturnType)
}

func (g *generator) paramList(fn *ast.Function) string {
	if len(fn.Params) == 0 {
		return "void"
	}
	parts := make([]string, len(fn.Params))
	for i, p := range fn.Params {
		parts[i] = fmt.Sprintf("%s %s", g.cType(p.TypeName), p.Name)
	}
	return strings.Join(parts, ", ")
}

// Phase 7.
func (g *generator) emitFunctionBodies(prog *ast.Program) error {
	for _, decl := range prog.Decls {
		fn, ok := decl.(*ast.Function)
		if !ok {
			continue
		}
		if err := g.emitFunction(fn); err != nil {
			return err
		}
	}
	return nil
}

func (g *generator) emitFunction(fn *ast.Function) error {
	g.w("static %s lz_fn_%s(%s) {\n", g.returnCType(fn), fn.Name, g.paramList(fn))

	scope := newFuncScope(nil)
	for _, p := range fn.Params {
		scope.declare(p.Name, p.TypeName)
	}

	isVoid := fn.ReturnType == "" || fn.ReturnType == "null"
	stmts := fn.Body.Stmts

	var tail *tailSlot
	if !isVoid && !endsInReturn(stmts) {
		cType := g.cType(fn.ReturnType)
		g.w("    %s __lz_ret = {0};\n", cType)
		tail = &tailSlot{varName: "__lz_ret", helper: g.assignHelperFor(fn.ReturnType)}
	}

	if err := g.emitBlockBody(stmts, scope, tail, "    "); err != nil {
		return err
	}

	if tail != nil {
		g.w("    return %s;\n", tail.varName)
	}
	g.w("}\n\n")
	return nil
}

func endsInReturn(stmts []ast.Stmt) bool {
	if len(stmts) == 0 {
		return false
	}
	_, ok := stmts[len(stmts)-1].(*ast.Return)
	return ok
}

// emitBlockBody emits each statement in stmts. Only the last
// statement, and only when tail is non-nil, is emitted through
// emitTailStmt; every other statement goes through the ordinary path.
func (g *generator) emitBlockBody(stmts []ast.Stmt, scope *funcScope, tail *tailSlot, indent string) error {
	for i, stmt := range stmts {
		isLast := i == len(stmts)-1
		if isLast && tail != nil {
			if err := g.emitTailStmt(stmt, scope, tail, indent); err != nil {
				return err
			}
			continue
		}
		if err := g.emitStmt(stmt, scope, indent); err != nil {
			return err
		}
	}
	return nil
}

// emitTailStmt implements the recursive tail-rewrite of a block's last
// statement into its enclosing function's return slot: an If
// propagates tail into each branch's own last statement; an ExprStmt
// becomes an assignment into the slot; any other statement shape
// falls back to ordinary emission (it cannot supply a value, so the
// slot keeps its zero value).
func (g *generator) emitTailStmt(stmt ast.Stmt, scope *funcScope, tail *tailSlot, indent string) error {
	switch n := stmt.(type) {
	case *ast.If:
		cond, err := g.exprString(n.Cond, scope)
		if err != nil {
			return err
		}
		g.w("%sif (%s) {\n", indent, cond)
		if err := g.emitBlockBody(n.Then.Stmts, newFuncScope(scope), tail, indent+"    "); err != nil {
			return err
		}
		g.w("%s}\n", indent)
		if n.Else != nil {
			g.w("%selse {\n", indent)
			if err := g.emitBlockBody(n.Else.Stmts, newFuncScope(scope), tail, indent+"    "); err != nil {
				return err
			}
			g.w("%s}\n", indent)
		}
		return nil
	case *ast.ExprStmt:
		expr, err := g.exprString(n.X, scope)
		if err != nil {
			return err
		}
		g.w("%s%s(&%s, %s);\n", indent, tail.helper, tail.varName, expr)
		return nil
	default:
		return g.emitStmt(stmt, scope, indent)
	}
}

func (g *generator) emitStmt(stmt ast.Stmt, scope *funcScope, indent string) error {
	switch n := stmt.(type) {
	case *ast.VarDecl:
		expr, err := g.exprString(n.Initializer, scope)
		if err != nil {
			return err
		}
		cType := g.cType(n.TypeName)
		g.w("%s%s %s = {0};\n", indent, cType, n.Name)
		g.w("%s%s(&%s, %s);\n", indent, g.assignHelperFor(n.TypeName), n.Name, expr)
		scope.declare(n.Name, n.TypeName)
		return nil

	case *ast.Assign:
		typeName, _ := scope.lookup(n.Target)
		expr, err := g.exprString(n.Value, scope)
		if err != nil {
			return err
		}
		g.w("%s%s(&%s, %s);\n", indent, g.assignHelperFor(typeName), n.Target, expr)
		return nil

	case *ast.If:
		cond, err := g.exprString(n.Cond, scope)
		if err != nil {
			return err
		}
		g.w("%sif (%s) {\n", indent, cond)
		if err := g.emitBlockBody(n.Then.Stmts, newFuncScope(scope), nil, indent+"    "); err != nil {
			return err
		}
		g.w("%s}\n", indent)
		if n.Else != nil {
			g.w("%selse {\n", indent)
			if err := g.emitBlockBody(n.Else.Stmts, newFuncScope(scope), nil, indent+"    "); err != nil {
				return err
			}
			g.w("%s}\n", indent)
		}
		return nil

	case *ast.For:
		return diag.Codegen(n.Token.Line, n.Token.Col, "for-in loops are not supported by this backend")

	case *ast.Return:
		if n.Value == nil {
			g.w("%sreturn;\n", indent)
			return nil
		}
		expr, err := g.exprString(n.Value, scope)
		if err != nil {
			return err
		}
		g.w("%sreturn %s;\n", indent, expr)
		return nil

	case *ast.ExprStmt:
		expr, err := g.exprString(n.X, scope)
		if err != nil {
			return err
		}
		g.w("%s%s;\n", indent, expr)
		return nil

	default:
		return diag.Codegen(stmt.Tok().Line, stmt.Tok().Col, "unsupported statement")
	}
}

func (g *generator) exprString(e ast.Expr, scope *funcScope) (string, error) {
	switch n := e.(type) {
	case *ast.Literal:
		switch n.LitKind {
		case ast.LitInt, ast.LitFloat:
			return n.Text, nil
		case ast.LitString:
			return fmt.Sprintf("lz_string_from_literal(\"%s\")", escapeCString(n.Text)), nil
		case ast.LitBool:
			if n.BoolValue {
				return "true", nil
			}
			return "false", nil
		case ast.LitNull:
			return "NULL", nil
		}
		return "", diag.Codegen(n.Token.Line, n.Token.Col, "unsupported literal kind")

	case *ast.Identifier:
		return g.rewriteIdentifier(n.Name, scope), nil

	case *ast.Call:
		calleeStr, err := g.exprString(n.Callee, scope)
		if err != nil {
			return "", err
		}
		args := make([]string, len(n.Args))
		for i, a := range n.Args {
			s, err := g.exprString(a, scope)
			if err != nil {
				return "", err
			}
			args[i] = s
		}
		return fmt.Sprintf("%s(%s)", calleeStr, strings.Join(args, ", ")), nil

	case *ast.Binary:
		left, err := g.exprString(n.Left, scope)
		if err != nil {
			return "", err
		}
		right, err := g.exprString(n.Right, scope)
		if err != nil {
			return "", err
		}
		op, err := binaryOp(n.Op)
		if err != nil {
			return "", diag.Codegen(n.Token.Line, n.Token.Col, "%s", err)
		}
		return fmt.Sprintf("(%s %s %s)", left, op, right), nil

	default:
		return "", diag.Codegen(e.Tok().Line, e.Tok().Col, "unsupported expression")
	}
}

// rewriteIdentifier maps a source identifier to its C name: the
// built-in log becomes the runtime's logging call, a local variable
// passes through unchanged, and a reference to a user-defined function
// is prefixed to avoid colliding with C library names.
func (g *generator) rewriteIdentifier(name string, scope *funcScope) string {
	if name == "log" {
		return "lz_runtime_log"
	}
	if _, ok := scope.lookup(name); ok {
		return name
	}
	if _, ok := g.funcs[name]; ok {
		return "lz_fn_" + name
	}
	return name
}

func binaryOp(k token.Kind) (string, error) {
	switch k {
	case token.PLUS:
		return "+", nil
	case token.MINUS:
		return "-", nil
	case token.STAR:
		return "*", nil
	case token.SLASH:
		return "/", nil
	case token.EQ:
		return "==", nil
	case token.NEQ:
		return "!=", nil
	case token.LT:
		return "<", nil
	case token.LE:
		return "<=", nil
	case token.GT:
		return ">", nil
	case token.GE:
		return ">=", nil
	default:
		return "", fmt.Errorf("unsupported binary operator %s", k)
	}
}

// cType maps a source type name to its C spelling, for value slots
// (params, locals, struct fields, the tail return slot) and non-null
// return types; the null-as-return-type/void distinction is handled by
// returnCType before it calls cType.
func (g *generator) cType(typeName string) string {
	switch {
	case typeName == "int":
		return "int64_t"
	case typeName == "float":
		return "double"
	case typeName == "bool":
		return "bool"
	case typeName == "string":
		return "struct lz_string *"
	case typeName == "null":
		return "void *"
	case strings.HasPrefix(typeName, "result"):
		return "lz_result"
	case strings.HasPrefix(typeName, "maybe"):
		return "lz_maybe"
	default:
		// A user struct name is its own C type (by value); any other
		// spelling is passed through verbatim.
		return typeName
	}
}

func (g *generator) assignHelperFor(typeName string) string {
	switch {
	case typeName == "int":
		return "lz_assign_int64"
	case typeName == "float":
		return "lz_assign_double"
	case typeName == "bool":
		return "lz_assign_bool"
	case typeName == "string":
		return "lz_assign_string"
	case strings.HasPrefix(typeName, "result"):
		return "lz_assign_result"
	case strings.HasPrefix(typeName, "maybe"):
		return "lz_assign_maybe"
	default:
		if s, ok := g.structs[typeName]; ok {
			return "lz_assign_struct_" + s.Name
		}
		return "lz_assign_ptr"
	}
}

// escapeCString escapes raw to go inside a C string literal.
func escapeCString(raw string) string {
	var sb strings.Builder
	for _, b := range []byte(raw) {
		switch b {
		case '\\':
			sb.WriteString(`\\`)
		case '"':
			sb.WriteString(`\"`)
		case '\n':
			sb.WriteString(`\n`)
		case '\r':
			sb.WriteString(`\r`)
		case '\t':
			sb.WriteString(`\t`)
		default:
			if b < 0x20 || b >= 0x7f {
				fmt.Fprintf(&sb, `\x%02x`, b)
			} else {
				sb.WriteByte(b)
			}
		}
	}
	return sb.String()
}

// Phase 8.
func (g *generator) emitMain() {
	g.w("int main(void) {\n")
	if _, ok := g.funcs["main"]; ok {
		g.w("    lz_fn_main();\n")
		g.w("    return 0;\n")
	} else {
		g.w("    printf(\"no entry point defined\\n\");\n")
		g.w("    return 1;\n")
	}
	g.w("}\n")
}
