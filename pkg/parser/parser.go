// Package parser implements a recursive-descent parser, turning a
// pkg/lexer token stream into a pkg/ast tree.
//
// This grammar only ever needs exactly one token of lookahead beyond
// current, so instead of an arbitrary-depth pushback stack the parser
// keeps a fixed current/peek pair that advance shifts forward; no token
// is ever un-consumed.
package parser

import (
	"strings"

	"github.com/chmenegatti/lazylang/pkg/ast"
	"github.com/chmenegatti/lazylang/pkg/diag"
	"github.com/chmenegatti/lazylang/pkg/lexer"
	"github.com/chmenegatti/lazylang/pkg/token"
)

// Parser holds parsing state for a single source buffer.
type Parser struct {
	lex     *lexer.Lexer
	current token.Token
	peek    token.Token
}

// New returns a Parser reading from lex. It primes current/peek with
// the first two tokens.
func New(lex *lexer.Lexer) (*Parser, error) {
	p := &Parser{lex: lex}
	if err := p.advance(); err != nil {
		return nil, err
	}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

// advance shifts peek into current and reads a new peek from the lexer.
func (p *Parser) advance() error {
	p.current = p.peek
	t, err := p.lex.NextToken()
	if err != nil {
		return err
	}
	p.peek = t
	return nil
}

func (p *Parser) errorf(format string, args ...interface{}) error {
	return diag.Syntax(p.current.Line, p.current.Col, format, args...)
}

func (p *Parser) expect(k token.Kind, what string) (token.Token, error) {
	if p.current.Kind != k {
		return token.Token{}, p.errorf("expected %s, found %s", what, describe(p.current))
	}
	t := p.current
	if err := p.advance(); err != nil {
		return token.Token{}, err
	}
	return t, nil
}

func describe(t token.Token) string {
	if t.Lexeme != "" {
		return t.Kind.String() + " " + t.Lexeme
	}
	return t.Kind.String()
}

// expectStmtEnd consumes the NEWLINE that normally ends a statement.
// If the source's final line lacks a trailing newline, the lexer's
// EOF handling emits DEDENT (or EOF) directly without a NEWLINE in
// between; in that case there is nothing to consume here and the
// enclosing block loop will observe the DEDENT itself.
func (p *Parser) expectStmtEnd() error {
	if p.current.Kind == token.DEDENT || p.current.Kind == token.EOF {
		return nil
	}
	_, err := p.expect(token.NEWLINE, "newline")
	return err
}

func (p *Parser) skipNewlines() error {
	for p.current.Kind == token.NEWLINE {
		if err := p.advance(); err != nil {
			return err
		}
	}
	return nil
}

// Parse parses an entire program: program := (NL)* (import (NL)+)*
// (decl (NL)+)*.
func Parse(source, path string) (*ast.Program, error) {
	p, err := New(lexer.New(source, path))
	if err != nil {
		return nil, err
	}
	return p.parseProgram()
}

func (p *Parser) parseProgram() (*ast.Program, error) {
	prog := &ast.Program{Token: p.current}
	if err := p.skipNewlines(); err != nil {
		return nil, err
	}

	seenDecl := false
	for p.current.Kind != token.EOF {
		if p.current.Kind == token.IMPORT {
			if seenDecl {
				return nil, p.errorf("imports must appear before declarations")
			}
			imp, err := p.parseImport()
			if err != nil {
				return nil, err
			}
			prog.Imports = append(prog.Imports, imp)
		} else {
			decl, err := p.parseDecl()
			if err != nil {
				return nil, err
			}
			seenDecl = true
			prog.Decls = append(prog.Decls, decl)
		}
		if err := p.skipNewlines(); err != nil {
			return nil, err
		}
	}
	return prog, nil
}

// parseImport parses: "import" IDENT ("." IDENT)*
func (p *Parser) parseImport() (*ast.Import, error) {
	tok := p.current
	if _, err := p.expect(token.IMPORT, "'import'"); err != nil {
		return nil, err
	}
	first, err := p.expect(token.IDENT, "identifier")
	if err != nil {
		return nil, err
	}
	imp := &ast.Import{Token: tok, Segments: []string{first.Lexeme}}
	for p.current.Kind == token.DOT {
		if err := p.advance(); err != nil {
			return nil, err
		}
		seg, err := p.expect(token.IDENT, "identifier")
		if err != nil {
			return nil, err
		}
		imp.Segments = append(imp.Segments, seg.Lexeme)
	}
	return imp, nil
}

// parseDecl parses: decl := ["pub"] (function | struct)
func (p *Parser) parseDecl() (ast.Node, error) {
	isPublic := false
	if p.current.Kind == token.PUB {
		isPublic = true
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	if p.current.Kind == token.STRUCT {
		return p.parseStruct(isPublic)
	}
	if p.current.Kind == token.IDENT {
		return p.parseFunction(isPublic)
	}
	return nil, p.errorf("expected function or struct declaration, found %s", describe(p.current))
}

// parseFunction parses:
// function := IDENT ":" "(" type_list? ")" "->" type "=" "(" name_list? ")" block
func (p *Parser) parseFunction(isPublic bool) (*ast.Function, error) {
	nameTok, err := p.expect(token.IDENT, "identifier")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COLON, "':'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN, "'('"); err != nil {
		return nil, err
	}
	var types []string
	if p.current.Kind != token.RPAREN {
		for {
			ty, err := p.collectType(typeTerminatorParam)
			if err != nil {
				return nil, err
			}
			types = append(types, ty)
			if p.current.Kind == token.COMMA {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	if _, err := p.expect(token.RPAREN, "')'"); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ARROW, "'->'"); err != nil {
		return nil, err
	}
	retType, err := p.collectType(typeTerminatorAssign)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN, "'='"); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.LPAREN, "'('"); err != nil {
		return nil, err
	}
	var names []string
	if p.current.Kind != token.RPAREN {
		for {
			n, err := p.expect(token.IDENT, "parameter name")
			if err != nil {
				return nil, err
			}
			names = append(names, n.Lexeme)
			if p.current.Kind == token.COMMA {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	if _, err := p.expect(token.RPAREN, "')'"); err != nil {
		return nil, err
	}
	if len(types) != len(names) {
		return nil, p.errorf("function %s: %d parameter type(s) but %d name(s)", nameTok.Lexeme, len(types), len(names))
	}
	params := make([]ast.Param, len(names))
	for i := range names {
		params[i] = ast.Param{Name: names[i], TypeName: types[i]}
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.Function{
		Token:      nameTok,
		IsPublic:   isPublic,
		Name:       nameTok.Lexeme,
		Params:     params,
		ReturnType: retType,
		Body:       body,
	}, nil
}

// parseStruct parses: struct := "struct" IDENT NL IND field+ DED
func (p *Parser) parseStruct(isPublic bool) (*ast.Struct, error) {
	tok := p.current
	if _, err := p.expect(token.STRUCT, "'struct'"); err != nil {
		return nil, err
	}
	name, err := p.expect(token.IDENT, "identifier")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.NEWLINE, "newline"); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.INDENT, "indented field list"); err != nil {
		return nil, err
	}
	s := &ast.Struct{Token: tok, IsPublic: isPublic, Name: name.Lexeme}
	for p.current.Kind != token.DEDENT {
		f, err := p.parseField()
		if err != nil {
			return nil, err
		}
		s.Fields = append(s.Fields, f)
	}
	if _, err := p.expect(token.DEDENT, "dedent"); err != nil {
		return nil, err
	}
	return s, nil
}

// parseField parses: field := IDENT ":" type NL
func (p *Parser) parseField() (ast.Field, error) {
	name, err := p.expect(token.IDENT, "field name")
	if err != nil {
		return ast.Field{}, err
	}
	if _, err := p.expect(token.COLON, "':'"); err != nil {
		return ast.Field{}, err
	}
	ty, err := p.collectType(typeTerminatorFieldEnd)
	if err != nil {
		return ast.Field{}, err
	}
	// collectType stops at either NEWLINE or DEDENT: DEDENT only occurs
	// here when the source's last field has no trailing newline before
	// end of file. Only consume an actual NEWLINE; leave DEDENT for
	// parseStruct's loop to observe.
	if p.current.Kind == token.NEWLINE {
		if err := p.advance(); err != nil {
			return ast.Field{}, err
		}
	}
	return ast.Field{Name: name.Lexeme, TypeName: ty}, nil
}

// parseBlock parses: block := NL IND statement+ DED
func (p *Parser) parseBlock() (*ast.Block, error) {
	tok := p.current
	if _, err := p.expect(token.NEWLINE, "newline"); err != nil {
		return nil, err
	}
	if _, err := p.expect(token.INDENT, "indented block"); err != nil {
		return nil, err
	}
	blk := &ast.Block{Token: tok}
	for p.current.Kind != token.DEDENT {
		st, err := p.parseStatement()
		if err != nil {
			return nil, err
		}
		blk.Stmts = append(blk.Stmts, st)
	}
	if _, err := p.expect(token.DEDENT, "dedent"); err != nil {
		return nil, err
	}
	return blk, nil
}

// parseStatement parses: statement := if | for | var_decl | assign | return | expr_stmt
func (p *Parser) parseStatement() (ast.Stmt, error) {
	switch p.current.Kind {
	case token.IF:
		return p.parseIf()
	case token.FOR:
		return p.parseFor()
	case token.MUT:
		return p.parseVarDecl()
	case token.RETURN:
		return p.parseReturn()
	case token.IDENT:
		// One-token lookahead disambiguation:
		// ':' => var_decl, '=' => assign, otherwise expr_stmt.
		switch p.peek.Kind {
		case token.COLON:
			return p.parseVarDecl()
		case token.ASSIGN:
			return p.parseAssign()
		default:
			return p.parseExprStmt()
		}
	default:
		return p.parseExprStmt()
	}
}

// parseIf parses: if := "if" expression block [NL "else" block]
func (p *Parser) parseIf() (*ast.If, error) {
	tok := p.current
	if err := p.advance(); err != nil {
		return nil, err
	}
	cond, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	n := &ast.If{Token: tok, Cond: cond, Then: then}
	// then's block already consumed the DEDENT that closes its own
	// indentation; "else", when present, is therefore the very next
	// token with no separate NEWLINE in between (the implicit line
	// break before "else" is already encoded by that DEDENT, not a
	// literal NEWLINE token left to consume).
	if p.current.Kind == token.ELSE {
		if err := p.advance(); err != nil {
			return nil, err
		}
		elseBlock, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		n.Else = elseBlock
	}
	return n, nil
}

// parseFor parses: for := "for" IDENT "in" expression block
func (p *Parser) parseFor() (*ast.For, error) {
	tok := p.current
	if err := p.advance(); err != nil {
		return nil, err
	}
	iter, err := p.expect(token.IDENT, "iterator name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.IN, "'in'"); err != nil {
		return nil, err
	}
	iterable, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.For{Token: tok, Iterator: iter.Lexeme, Iterable: iterable, Body: body}, nil
}

// parseVarDecl parses: var_decl := ["mut"] IDENT ":" type "=" expression NL
func (p *Parser) parseVarDecl() (*ast.VarDecl, error) {
	tok := p.current
	isMutable := false
	if p.current.Kind == token.MUT {
		isMutable = true
		if err := p.advance(); err != nil {
			return nil, err
		}
		tok = p.current
	}
	name, err := p.expect(token.IDENT, "identifier")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.COLON, "':'"); err != nil {
		return nil, err
	}
	ty, err := p.collectType(typeTerminatorAssign)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN, "'='"); err != nil {
		return nil, err
	}
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectStmtEnd(); err != nil {
		return nil, err
	}
	return &ast.VarDecl{Token: tok, IsMutable: isMutable, Name: name.Lexeme, TypeName: ty, Initializer: val}, nil
}

// parseAssign parses: assign := IDENT "=" expression NL
func (p *Parser) parseAssign() (*ast.Assign, error) {
	name, err := p.expect(token.IDENT, "identifier")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(token.ASSIGN, "'='"); err != nil {
		return nil, err
	}
	val, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectStmtEnd(); err != nil {
		return nil, err
	}
	return &ast.Assign{Token: name, Target: name.Lexeme, Value: val}, nil
}

// parseReturn parses: return := "return" [expression] NL
func (p *Parser) parseReturn() (*ast.Return, error) {
	tok := p.current
	if err := p.advance(); err != nil {
		return nil, err
	}
	n := &ast.Return{Token: tok}
	if p.current.Kind != token.NEWLINE && p.current.Kind != token.DEDENT && p.current.Kind != token.EOF {
		val, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		n.Value = val
	}
	if err := p.expectStmtEnd(); err != nil {
		return nil, err
	}
	return n, nil
}

// parseExprStmt parses: expr_stmt := expression NL
func (p *Parser) parseExprStmt() (*ast.ExprStmt, error) {
	tok := p.current
	x, err := p.parseExpression()
	if err != nil {
		return nil, err
	}
	if err := p.expectStmtEnd(); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Token: tok, X: x}, nil
}

// --- expression grammar: equality -> comparison -> term -> factor -> call -> primary ---

func (p *Parser) parseExpression() (ast.Expr, error) {
	return p.parseEquality()
}

func (p *Parser) parseEquality() (ast.Expr, error) {
	return p.parseBinaryLevel(p.parseComparison, token.EQ, token.NEQ)
}

func (p *Parser) parseComparison() (ast.Expr, error) {
	return p.parseBinaryLevel(p.parseTerm, token.LT, token.LE, token.GT, token.GE)
}

func (p *Parser) parseTerm() (ast.Expr, error) {
	return p.parseBinaryLevel(p.parseFactor, token.PLUS, token.MINUS)
}

func (p *Parser) parseFactor() (ast.Expr, error) {
	return p.parseBinaryLevel(p.parseCall, token.STAR, token.SLASH)
}

// parseBinaryLevel implements one left-associative precedence level.
func (p *Parser) parseBinaryLevel(next func() (ast.Expr, error), ops ...token.Kind) (ast.Expr, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for matches(p.current.Kind, ops) {
		opTok := p.current
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = &ast.Binary{Token: opTok, Left: left, Op: opTok.Kind, Right: right}
	}
	return left, nil
}

func matches(k token.Kind, ops []token.Kind) bool {
	for _, o := range ops {
		if k == o {
			return true
		}
	}
	return false
}

// parseCall parses: call := primary ("(" arg_list? ")")*
func (p *Parser) parseCall() (ast.Expr, error) {
	expr, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for p.current.Kind == token.LPAREN {
		tok := p.current
		if err := p.advance(); err != nil {
			return nil, err
		}
		var args []ast.Expr
		if p.current.Kind != token.RPAREN {
			for {
				arg, err := p.parseExpression()
				if err != nil {
					return nil, err
				}
				args = append(args, arg)
				if p.current.Kind == token.COMMA {
					if err := p.advance(); err != nil {
						return nil, err
					}
					continue
				}
				break
			}
		}
		if _, err := p.expect(token.RPAREN, "')'"); err != nil {
			return nil, err
		}
		expr = &ast.Call{Token: tok, Callee: expr, Args: args}
	}
	return expr, nil
}

// parsePrimary parses:
// primary := INT | FLOAT | STRING | "true" | "false" | "null"
//          | IDENT | "(" expression ")"
func (p *Parser) parsePrimary() (ast.Expr, error) {
	tok := p.current
	switch tok.Kind {
	case token.INT:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Token: tok, LitKind: ast.LitInt, Text: tok.Lexeme}, nil
	case token.FLOAT:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Token: tok, LitKind: ast.LitFloat, Text: tok.Lexeme}, nil
	case token.STRING:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Token: tok, LitKind: ast.LitString, Text: tok.Lexeme}, nil
	case token.TRUE, token.FALSE:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Token: tok, LitKind: ast.LitBool, BoolValue: tok.Kind == token.TRUE}, nil
	case token.NULL:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Literal{Token: tok, LitKind: ast.LitNull}, nil
	case token.IDENT:
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Identifier{Token: tok, Name: tok.Lexeme}, nil
	case token.LPAREN:
		if err := p.advance(); err != nil {
			return nil, err
		}
		x, err := p.parseExpression()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(token.RPAREN, "')'"); err != nil {
			return nil, err
		}
		return x, nil
	default:
		return nil, p.errorf("expected expression, found %s", describe(tok))
	}
}

// --- type fragment collector ---

type typeTerminator int

const (
	typeTerminatorParam typeTerminator = iota
	typeTerminatorAssign
	typeTerminatorFieldEnd
)

func (t typeTerminator) matches(k token.Kind) bool {
	switch t {
	case typeTerminatorParam:
		return k == token.COMMA || k == token.RPAREN
	case typeTerminatorAssign:
		return k == token.ASSIGN
	case typeTerminatorFieldEnd:
		return k == token.NEWLINE || k == token.DEDENT
	}
	return false
}

// collectType assembles a type fragment by concatenating token lexemes
// until a terminator token is reached at zero bracket nesting, rather
// than parsing the fragment into a structured type. Allowed tokens are
// IDENT, the 'null' keyword, ',', '[', ']', '.'; brackets may nest; a
// NEWLINE at depth 0 when not itself the terminator is an error.
func (p *Parser) collectType(term typeTerminator) (string, error) {
	var sb strings.Builder
	depth := 0
	for {
		if depth == 0 && term.matches(p.current.Kind) {
			break
		}
		switch p.current.Kind {
		case token.IDENT, token.NULL, token.DOT:
			sb.WriteString(p.current.Lexeme)
		case token.COMMA:
			sb.WriteString(",")
		case token.LBRACKET:
			depth++
			sb.WriteString("[")
		case token.RBRACKET:
			depth--
			if depth < 0 {
				return "", p.errorf("unmatched ']' in type")
			}
			sb.WriteString("]")
		case token.NEWLINE:
			return "", p.errorf("unexpected newline in type")
		case token.EOF:
			return "", p.errorf("unexpected end of file in type")
		default:
			return "", p.errorf("unexpected token %s in type", describe(p.current))
		}
		if err := p.advance(); err != nil {
			return "", err
		}
	}
	return sb.String(), nil
}
