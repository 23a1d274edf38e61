// Package ast defines the typed node hierarchy produced by pkg/parser,
// validated in place by pkg/sema, and consumed by pkg/codegen.
//
// Every node carries a NodeKind tag and a representative token.Token
// used purely for diagnostics, via a small Node interface (Kind() and
// Tok()) rather than a generic, reflection-populated statement tree:
// the grammar is a closed, fixed set of constructs, so there is no
// benefit to reflection-driven construction. Nodes are a fixed set of
// concrete Go structs instead.
package ast

import "github.com/chmenegatti/lazylang/pkg/token"

// NodeKind tags the concrete type of a Node for callers that want to
// switch on kind without a type assertion.
type NodeKind int

const (
	KindProgram NodeKind = iota
	KindImport
	KindFunction
	KindStruct
	KindBlock
	KindVarDecl
	KindAssign
	KindIf
	KindFor
	KindReturn
	KindExprStmt
	KindLiteral
	KindIdentifier
	KindCall
	KindBinary
)

// Node is implemented by every AST node.
type Node interface {
	Kind() NodeKind
	Tok() token.Token
}

// Expr is implemented by nodes that appear in expression position.
type Expr interface {
	Node
	exprNode()
}

// Stmt is implemented by nodes that appear in statement position.
type Stmt interface {
	Node
	stmtNode()
}

// Param is a single function parameter: a name paired with an opaque
// type fragment string, kept as raw text rather than a parsed type
// tree (see collectType in pkg/parser).
type Param struct {
	Name     string
	TypeName string
}

// Field is a single struct field.
type Field struct {
	Name     string
	TypeName string
}

// Program is the root node: imports then declarations, both kept in
// source order, since that order is part of the generated output's
// contract.
type Program struct {
	Token   token.Token
	Imports []*Import
	Decls   []Node // *Function or *Struct, in source order
}

func (n *Program) Kind() NodeKind  { return KindProgram }
func (n *Program) Tok() token.Token { return n.Token }

// Import is a dotted import path, e.g. "import net.http".
type Import struct {
	Token    token.Token
	Segments []string
}

func (n *Import) Kind() NodeKind   { return KindImport }
func (n *Import) Tok() token.Token { return n.Token }

// Function is a top-level function declaration.
type Function struct {
	Token      token.Token
	IsPublic   bool
	Name       string
	Params     []Param
	ReturnType string // "" means no declared return type (null)
	Body       *Block
}

func (n *Function) Kind() NodeKind   { return KindFunction }
func (n *Function) Tok() token.Token { return n.Token }

// Struct is a top-level struct declaration.
type Struct struct {
	Token    token.Token
	IsPublic bool
	Name     string
	Fields   []Field
}

func (n *Struct) Kind() NodeKind   { return KindStruct }
func (n *Struct) Tok() token.Token { return n.Token }

// Block is an ordered list of statements forming a lexical scope.
type Block struct {
	Token token.Token
	Stmts []Stmt
}

func (n *Block) Kind() NodeKind   { return KindBlock }
func (n *Block) Tok() token.Token { return n.Token }

// VarDecl declares a (possibly mutable) local variable.
type VarDecl struct {
	Token       token.Token
	IsMutable   bool
	Name        string
	TypeName    string
	Initializer Expr // nil if omitted
}

func (n *VarDecl) Kind() NodeKind   { return KindVarDecl }
func (n *VarDecl) Tok() token.Token { return n.Token }
func (n *VarDecl) stmtNode()        {}

// Assign assigns to an already-declared name.
type Assign struct {
	Token  token.Token
	Target string
	Value  Expr
}

func (n *Assign) Kind() NodeKind   { return KindAssign }
func (n *Assign) Tok() token.Token { return n.Token }
func (n *Assign) stmtNode()        {}

// If is a conditional statement with an optional else branch.
type If struct {
	Token     token.Token
	Cond      Expr
	Then      *Block
	Else      *Block // nil if omitted
}

func (n *If) Kind() NodeKind   { return KindIf }
func (n *If) Tok() token.Token { return n.Token }
func (n *If) stmtNode()        {}

// For iterates Iterable, binding each element to Iterator in Body's scope.
type For struct {
	Token    token.Token
	Iterator string
	Iterable Expr
	Body     *Block
}

func (n *For) Kind() NodeKind   { return KindFor }
func (n *For) Tok() token.Token { return n.Token }
func (n *For) stmtNode()        {}

// Return returns from the enclosing function, optionally with a value.
type Return struct {
	Token token.Token
	Value Expr // nil if omitted
}

func (n *Return) Kind() NodeKind   { return KindReturn }
func (n *Return) Tok() token.Token { return n.Token }
func (n *Return) stmtNode()        {}

// ExprStmt wraps an expression used for its side effect.
type ExprStmt struct {
	Token token.Token
	X     Expr
}

func (n *ExprStmt) Kind() NodeKind   { return KindExprStmt }
func (n *ExprStmt) Tok() token.Token { return n.Token }
func (n *ExprStmt) stmtNode()        {}

// LiteralKind distinguishes the raw literal variants.
type LiteralKind int

const (
	LitInt LiteralKind = iota
	LitFloat
	LitString
	LitBool
	LitNull
)

// Literal is a constant value: Int/Float/String hold their raw source
// text, Bool holds BoolValue, Null holds nothing.
type Literal struct {
	Token     token.Token
	LitKind   LiteralKind
	Text      string // raw text for Int/Float/String
	BoolValue bool
}

func (n *Literal) Kind() NodeKind   { return KindLiteral }
func (n *Literal) Tok() token.Token { return n.Token }
func (n *Literal) exprNode()        {}

// Identifier is a bare name reference.
type Identifier struct {
	Token token.Token
	Name  string
}

func (n *Identifier) Kind() NodeKind   { return KindIdentifier }
func (n *Identifier) Tok() token.Token { return n.Token }
func (n *Identifier) exprNode()        {}

// Call applies Callee to an ordered list of arguments.
type Call struct {
	Token  token.Token
	Callee Expr
	Args   []Expr
}

func (n *Call) Kind() NodeKind   { return KindCall }
func (n *Call) Tok() token.Token { return n.Token }
func (n *Call) exprNode()        {}

// Binary applies a binary operator; Op is the lexical token kind of
// the operator (e.g. token.PLUS), not re-encoded into its own enum,
// since codegen's operator table maps token kinds directly to C
// operators.
type Binary struct {
	Token token.Token
	Left  Expr
	Op    token.Kind
	Right Expr
}

func (n *Binary) Kind() NodeKind   { return KindBinary }
func (n *Binary) Tok() token.Token { return n.Token }
func (n *Binary) exprNode()        {}
