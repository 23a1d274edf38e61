// Package sema implements a semantic analyzer: scoping, immutability,
// flow-mode unification, and unused-result discipline over a pkg/ast
// tree. It annotates nothing and mutates no AST structure, only
// accepts or rejects.
//
// Analysis runs in two phases: every top-level function is registered
// into a flat, program-global table first, then each body is walked in
// a second pass, so a function may call another declared later in the
// same file.
package sema

import (
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/chmenegatti/lazylang/pkg/ast"
	"github.com/chmenegatti/lazylang/pkg/diag"
	"github.com/chmenegatti/lazylang/pkg/token"
)

// Mode is a function-level classification enforcing that success and
// absence semantics are not mixed within one function body.
type Mode int

const (
	ModeNone Mode = iota
	ModeMaybe
	ModeResult
)

func modeOf(typeName string) Mode {
	switch {
	case strings.HasPrefix(typeName, "result"):
		return ModeResult
	case strings.HasPrefix(typeName, "maybe"):
		return ModeMaybe
	default:
		return ModeNone
	}
}

// sameMode reports whether a and b are the same flow mode. A plain ==
// would do; cmp.Equal is used instead to keep this "are these the same
// classification" check in the same idiom as other structural equality
// checks elsewhere in the compiler.
func sameMode(a, b Mode) bool { return cmp.Equal(a, b) }

type funcSymbol struct {
	name       string
	returnType string
	decl       *ast.Function
}

type varSymbol struct {
	name      string
	isMutable bool
	typeName  string
	tok       token.Token
}

type scope struct {
	parent *scope
	vars   map[string]*varSymbol
}

func newScope(parent *scope) *scope {
	return &scope{parent: parent, vars: map[string]*varSymbol{}}
}

func (s *scope) declare(sym *varSymbol) bool {
	if _, exists := s.vars[sym.name]; exists {
		return false
	}
	s.vars[sym.name] = sym
	return true
}

func (s *scope) lookup(name string) *varSymbol {
	for cur := s; cur != nil; cur = cur.parent {
		if sym, ok := cur.vars[name]; ok {
			return sym
		}
	}
	return nil
}

const builtinLogName = "log"

// Analyzer holds sema state for a single Program.
type Analyzer struct {
	funcs map[string]*funcSymbol

	// per-function state, reset by checkFunction
	top          *scope
	mode         Mode
	modeFixed    bool
	inFunction   bool
}

// New returns an Analyzer with the built-in function table populated.
func New() *Analyzer {
	a := &Analyzer{funcs: map[string]*funcSymbol{}}
	a.funcs[builtinLogName] = &funcSymbol{name: builtinLogName, returnType: "null"}
	return a
}

// Analyze validates prog in place, returning the first diagnostic
// encountered; analysis stops at the first rejected construct.
func Analyze(prog *ast.Program) error {
	a := New()
	return a.analyze(prog)
}

func (a *Analyzer) analyze(prog *ast.Program) error {
	// Pass 1: register every top-level function.
	for _, decl := range prog.Decls {
		fn, ok := decl.(*ast.Function)
		if !ok {
			continue
		}
		if _, exists := a.funcs[fn.Name]; exists {
			return diag.Semantic(fn.Token.Line, fn.Token.Col, "redeclaration of function %q", fn.Name)
		}
		if err := checkNotReserved(fn.Token, fn.Name); err != nil {
			return err
		}
		a.funcs[fn.Name] = &funcSymbol{name: fn.Name, returnType: fn.ReturnType, decl: fn}
	}

	// Pass 2: validate struct declarations, then walk function bodies.
	seenStructs := map[string]bool{}
	for _, decl := range prog.Decls {
		switch n := decl.(type) {
		case *ast.Struct:
			if seenStructs[n.Name] {
				return diag.Semantic(n.Token.Line, n.Token.Col, "redeclaration of struct %q", n.Name)
			}
			seenStructs[n.Name] = true
			if err := a.checkStruct(n); err != nil {
				return err
			}
		case *ast.Function:
			if err := a.checkFunction(n); err != nil {
				return err
			}
		}
	}
	return nil
}

var primitiveFieldTypes = map[string]bool{
	"int": true, "float": true, "bool": true, "string": true, "null": true,
}

func (a *Analyzer) checkStruct(s *ast.Struct) error {
	if err := checkNotReserved(s.Token, s.Name); err != nil {
		return err
	}
	seen := map[string]bool{}
	for _, f := range s.Fields {
		if seen[f.Name] {
			return diag.Semantic(s.Token.Line, s.Token.Col, "duplicate field %q in struct %q", f.Name, s.Name)
		}
		seen[f.Name] = true
		if err := checkNotReserved(s.Token, f.Name); err != nil {
			return err
		}
		if err := checkBackendSupported(s.Token, f.TypeName); err != nil {
			return err
		}
		if f.TypeName == s.Name {
			return diag.Semantic(s.Token.Line, s.Token.Col, "struct %q cannot reference itself in field %q", s.Name, f.Name)
		}
		if !primitiveFieldTypes[f.TypeName] {
			return diag.Semantic(s.Token.Line, s.Token.Col, "field %q of struct %q must have a primitive type, found %q", f.Name, s.Name, f.TypeName)
		}
	}
	return nil
}

var backendRejected = []string{"future[", "chan["}

func checkBackendSupported(tok token.Token, typeName string) error {
	for _, bad := range backendRejected {
		if strings.HasPrefix(typeName, bad) {
			return diag.Semantic(tok.Line, tok.Col, "type %q is not supported by this backend", typeName)
		}
	}
	return nil
}

var rejectedIdentifiers = map[string]bool{"task": true, "future": true, "chan": true}

// reservedPrefixes names the spellings §6.5 reserves for the runtime
// and codegen; a user declaration colliding with one of these would
// silently shadow a generated C symbol.
var reservedPrefixes = []string{"lz_", "LZ_", "__lz_"}

func hasReservedPrefix(name string) bool {
	for _, p := range reservedPrefixes {
		if strings.HasPrefix(name, p) {
			return true
		}
	}
	return false
}

func checkNotReserved(tok token.Token, name string) error {
	if hasReservedPrefix(name) {
		return diag.Semantic(tok.Line, tok.Col, "%q uses a reserved prefix (lz_, LZ_, __lz_)", name)
	}
	return nil
}

func (a *Analyzer) checkFunction(fn *ast.Function) error {
	a.top = newScope(nil)
	a.mode = ModeNone
	a.modeFixed = false
	a.inFunction = true
	defer func() { a.inFunction = false }()

	if err := checkBackendSupported(fn.Token, fn.ReturnType); err != nil {
		return err
	}
	if fn.ReturnType != "" {
		if err := a.contributeMode(fn.Token, fn.ReturnType); err != nil {
			return err
		}
	}
	if fn.Name == "main" && modeOf(fn.ReturnType) == ModeResult {
		return diag.Semantic(fn.Token.Line, fn.Token.Col, "main must not return a result type")
	}

	for _, p := range fn.Params {
		if rejectedIdentifiers[p.Name] {
			return diag.Semantic(fn.Token.Line, fn.Token.Col, "%q is a reserved identifier", p.Name)
		}
		if err := checkNotReserved(fn.Token, p.Name); err != nil {
			return err
		}
		if err := checkBackendSupported(fn.Token, p.TypeName); err != nil {
			return err
		}
		if err := a.contributeMode(fn.Token, p.TypeName); err != nil {
			return err
		}
		if !a.top.declare(&varSymbol{name: p.Name, isMutable: false, typeName: p.TypeName, tok: fn.Token}) {
			return diag.Semantic(fn.Token.Line, fn.Token.Col, "redeclaration of parameter %q", p.Name)
		}
	}

	return a.checkBlock(fn.Body, a.top)
}

// contributeMode unifies mode, the flow mode implied by typeName, into
// the current function's mode. NONE is absorbed by either MAYBE or
// RESULT; mixing MAYBE and RESULT is an error.
func (a *Analyzer) contributeMode(tok token.Token, typeName string) error {
	m := modeOf(typeName)
	if m == ModeNone {
		return nil
	}
	if !a.modeFixed {
		a.mode = m
		a.modeFixed = true
		return nil
	}
	if !sameMode(a.mode, m) {
		return diag.Semantic(tok.Line, tok.Col, "function mixes maybe and result flow modes")
	}
	return nil
}

func (a *Analyzer) checkBlock(blk *ast.Block, parent *scope) error {
	s := newScope(parent)
	for _, stmt := range blk.Stmts {
		if err := a.checkStmt(stmt, s); err != nil {
			return err
		}
	}
	return nil
}

func (a *Analyzer) checkStmt(stmt ast.Stmt, s *scope) error {
	switch n := stmt.(type) {
	case *ast.VarDecl:
		if rejectedIdentifiers[n.Name] {
			return diag.Semantic(n.Token.Line, n.Token.Col, "%q is a reserved identifier", n.Name)
		}
		if err := checkNotReserved(n.Token, n.Name); err != nil {
			return err
		}
		if err := checkBackendSupported(n.Token, n.TypeName); err != nil {
			return err
		}
		if err := a.contributeMode(n.Token, n.TypeName); err != nil {
			return err
		}
		if n.Initializer != nil {
			if err := a.checkExpr(n.Initializer, s); err != nil {
				return err
			}
		}
		if !s.declare(&varSymbol{name: n.Name, isMutable: n.IsMutable, typeName: n.TypeName, tok: n.Token}) {
			return diag.Semantic(n.Token.Line, n.Token.Col, "redeclaration of %q in the same scope", n.Name)
		}
		return nil

	case *ast.Assign:
		sym := s.lookup(n.Target)
		if sym == nil {
			if _, isFunc := a.funcs[n.Target]; isFunc {
				return diag.Semantic(n.Token.Line, n.Token.Col, "cannot assign to function %q", n.Target)
			}
			return diag.Semantic(n.Token.Line, n.Token.Col, "%q is undeclared", n.Target)
		}
		if !sym.isMutable {
			return diag.Semantic(n.Token.Line, n.Token.Col, "cannot assign to immutable variable")
		}
		return a.checkExpr(n.Value, s)

	case *ast.If:
		if err := a.checkExpr(n.Cond, s); err != nil {
			return err
		}
		if err := a.checkBlock(n.Then, s); err != nil {
			return err
		}
		if n.Else != nil {
			return a.checkBlock(n.Else, s)
		}
		return nil

	case *ast.For:
		if rejectedIdentifiers[n.Iterator] {
			return diag.Semantic(n.Token.Line, n.Token.Col, "%q is a reserved identifier", n.Iterator)
		}
		if err := checkNotReserved(n.Token, n.Iterator); err != nil {
			return err
		}
		if err := a.checkExpr(n.Iterable, s); err != nil {
			return err
		}
		loopScope := newScope(s)
		loopScope.declare(&varSymbol{name: n.Iterator, isMutable: false, typeName: "", tok: n.Token})
		return a.checkBlock(n.Body, loopScope)

	case *ast.Return:
		if !a.inFunction {
			return diag.Semantic(n.Token.Line, n.Token.Col, "return outside function")
		}
		if n.Value != nil {
			return a.checkExpr(n.Value, s)
		}
		return nil

	case *ast.ExprStmt:
		if err := a.checkExpr(n.X, s); err != nil {
			return err
		}
		return a.checkUnusedResult(n, s)

	default:
		return nil
	}
}

// checkUnusedResult rejects a bare call to a result-returning function
// used only for its side effect, and enforces the built-in log() arity.
func (a *Analyzer) checkUnusedResult(n *ast.ExprStmt, s *scope) error {
	call, ok := n.X.(*ast.Call)
	if !ok {
		return nil
	}
	name, ok := calleeName(call.Callee)
	if !ok {
		return nil
	}
	if name == builtinLogName {
		if len(call.Args) != 1 {
			return diag.Semantic(n.Token.Line, n.Token.Col, "log requires exactly one argument")
		}
		return nil
	}
	if s.lookup(name) != nil {
		return nil // local variable holding a callable value, not a known function
	}
	fn, ok := a.funcs[name]
	if !ok {
		return nil // undeclared callee is reported by checkExpr
	}
	if modeOf(fn.returnType) == ModeResult {
		return diag.Semantic(n.Token.Line, n.Token.Col, "result-returning function must not be ignored")
	}
	return nil
}

func calleeName(e ast.Expr) (string, bool) {
	id, ok := e.(*ast.Identifier)
	if !ok {
		return "", false
	}
	return id.Name, true
}

func (a *Analyzer) checkExpr(e ast.Expr, s *scope) error {
	switch n := e.(type) {
	case *ast.Literal:
		return nil
	case *ast.Identifier:
		if rejectedIdentifiers[n.Name] {
			return diag.Semantic(n.Token.Line, n.Token.Col, "%q is a reserved identifier", n.Name)
		}
		if s.lookup(n.Name) != nil {
			return nil
		}
		if _, ok := a.funcs[n.Name]; ok {
			return nil
		}
		return diag.Semantic(n.Token.Line, n.Token.Col, "%q is undeclared", n.Name)
	case *ast.Call:
		if err := a.checkExpr(n.Callee, s); err != nil {
			return err
		}
		for _, arg := range n.Args {
			if err := a.checkExpr(arg, s); err != nil {
				return err
			}
		}
		if name, ok := calleeName(n.Callee); ok && name == builtinLogName && len(n.Args) != 1 {
			return diag.Semantic(n.Token.Line, n.Token.Col, "log requires exactly one argument")
		}
		return nil
	case *ast.Binary:
		if err := a.checkExpr(n.Left, s); err != nil {
			return err
		}
		return a.checkExpr(n.Right, s)
	default:
		return nil
	}
}
