// Package lexer implements an indentation-sensitive scanner: a table of
// state functions (stateFn) driving a rune-at-a-time scan, with emitted
// tokens queued for NextToken to drain before re-entering the state
// machine. That queueing is what lets a single logical line push
// several pending DEDENTs: the line-start state queues one token per
// popped indent level, and the caller drains them one per call without
// the state machine re-running in between. The queue is a plain slice
// rather than a channel, since a fixed-capacity channel can deadlock
// when a line dedents past its capacity in one state invocation.
//
// The lexer is first-error-fatal: the first bad character or
// misaligned dedent aborts the stage.
package lexer

import (
	"github.com/chmenegatti/lazylang/pkg/diag"
	"github.com/chmenegatti/lazylang/pkg/token"
)

const eof = -1

type stateFn func(*Lexer) stateFn

// Lexer scans a single source buffer into a stream of tokens.
type Lexer struct {
	file  string
	input string
	start int
	pos   int
	line  int
	col   int // 0-based column of pos
	width int

	prevLine, prevCol int

	sline, scol int // location of the token currently being assembled

	indents []int
	items   []token.Token
	state   stateFn
	err     error
}

// New returns a Lexer over input. path names the source for
// diagnostics only.
func New(input, path string) *Lexer {
	return &Lexer{
		file:    path,
		input:   input,
		line:    1,
		indents: []int{0},
		state:   lexLineStart,
	}
}

// NextToken returns the next token, or an error on the first
// diagnostic encountered. Once an error has been returned, further
// calls continue to return the same error.
func (l *Lexer) NextToken() (token.Token, error) {
	for {
		if len(l.items) > 0 {
			t := l.items[0]
			l.items = l.items[1:]
			return t, nil
		}
		if l.err != nil {
			return token.Token{}, l.err
		}
		if l.state == nil {
			return token.Token{Kind: token.EOF, Line: l.line, Col: l.col + 1}, nil
		}
		l.state = l.state(l)
	}
}

func (l *Lexer) errorf(format string, args ...interface{}) stateFn {
	l.err = diag.Lexical(l.line, l.col+1, format, args...)
	return nil
}

func (l *Lexer) emit(k token.Kind) {
	l.emitText(k, l.input[l.start:l.pos])
}

func (l *Lexer) emitText(k token.Kind, text string) {
	l.items = append(l.items, token.Token{Kind: k, Lexeme: text, Line: l.sline, Col: l.scol + 1})
	l.start = l.pos
}

func (l *Lexer) next() rune {
	if l.pos >= len(l.input) {
		l.width = 0
		return eof
	}
	r := rune(l.input[l.pos])
	l.prevLine, l.prevCol = l.line, l.col
	l.width = 1
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 0
	} else {
		l.col++
	}
	return r
}

// backup undoes the most recent call to next. It is only ever called
// once per next (directly, or via peek), so a single-slot snapshot of
// the prior line/col is enough to restore exactly.
func (l *Lexer) backup() {
	if l.width == 0 {
		return
	}
	l.pos -= l.width
	l.line, l.col = l.prevLine, l.prevCol
	l.width = 0
}

func (l *Lexer) peek() rune {
	r := l.next()
	l.backup()
	return r
}

func (l *Lexer) consume() { l.start = l.pos }

func (l *Lexer) markTokenStart() {
	l.sline, l.scol = l.line, l.col
}

// lexLineStart measures the leading indentation of the next logical
// line, skipping blank and comment-only lines entirely (a comment
// behaves as trailing whitespace and never affects the indent stack),
// then reconciles the measured width against the indent stack before
// handing off to lexGround.
func lexLineStart(l *Lexer) stateFn {
	for {
		width := 0
		for {
			switch l.peek() {
			case ' ', '\t':
				l.next()
				width++
				continue
			}
			break
		}
		l.consume()

		switch l.peek() {
		case '\r':
			l.next()
			continue
		case '\n':
			l.next()
			l.consume()
			continue
		case '#':
			for {
				c := l.next()
				if c == '\n' || c == eof {
					break
				}
			}
			l.consume()
			if l.pos >= len(l.input) {
				return lexEOF
			}
			continue
		case eof:
			return lexEOF
		}

		top := l.indents[len(l.indents)-1]
		switch {
		case width > top:
			l.indents = append(l.indents, width)
			l.markTokenStart()
			l.emitText(token.INDENT, "")
		case width < top:
			for width < l.indents[len(l.indents)-1] {
				l.indents = l.indents[:len(l.indents)-1]
				l.markTokenStart()
				l.emitText(token.DEDENT, "")
			}
			if width != l.indents[len(l.indents)-1] {
				return l.errorf("Indentation error at line %d", l.line)
			}
		}
		return lexGround
	}
}

// lexEOF drains any remaining indent levels as DEDENTs, then emits EOF.
func lexEOF(l *Lexer) stateFn {
	for len(l.indents) > 1 {
		l.indents = l.indents[:len(l.indents)-1]
		l.markTokenStart()
		l.emitText(token.DEDENT, "")
	}
	l.markTokenStart()
	l.emitText(token.EOF, "")
	return nil
}

var singleRune = map[rune]token.Kind{
	'(': token.LPAREN,
	')': token.RPAREN,
	',': token.COMMA,
	'.': token.DOT,
	'[': token.LBRACKET,
	']': token.RBRACKET,
	'+': token.PLUS,
	'*': token.STAR,
	'/': token.SLASH,
}

// lexGround scans ordinary tokens on the current logical line until it
// reaches end of line, at which point it emits NEWLINE and hands back
// to lexLineStart.
func lexGround(l *Lexer) stateFn {
	for {
		switch l.peek() {
		case ' ', '\t':
			l.next()
			l.consume()
			continue
		case '\r':
			l.next()
			l.consume()
			continue
		case '#':
			for {
				c := l.next()
				if c == '\n' || c == eof {
					l.backup()
					break
				}
			}
			l.consume()
			continue
		case '\n':
			l.markTokenStart()
			l.next()
			l.emitText(token.NEWLINE, "")
			return lexLineStart
		case eof:
			l.markTokenStart()
			return lexEOF
		}

		l.markTokenStart()
		c := l.next()

		if k, ok := singleRune[c]; ok {
			l.emit(k)
			continue
		}

		switch c {
		case ':':
			l.emit(token.COLON)
			continue
		case '-':
			if l.peek() == '>' {
				l.next()
				l.emit(token.ARROW)
			} else {
				l.emit(token.MINUS)
			}
			continue
		case '=':
			if l.peek() == '=' {
				l.next()
				l.emit(token.EQ)
			} else {
				l.emit(token.ASSIGN)
			}
			continue
		case '!':
			if l.peek() == '=' {
				l.next()
				l.emit(token.NEQ)
			} else {
				return l.errorf("unexpected character %q", "!")
			}
			continue
		case '<':
			if l.peek() == '=' {
				l.next()
				l.emit(token.LE)
			} else {
				l.emit(token.LT)
			}
			continue
		case '>':
			if l.peek() == '=' {
				l.next()
				l.emit(token.GE)
			} else {
				l.emit(token.GT)
			}
			continue
		case '"':
			return lexString
		}

		switch {
		case c >= '0' && c <= '9':
			l.backup()
			return lexNumber
		case isIdentStart(c):
			l.backup()
			return lexIdentifier
		default:
			return l.errorf("unexpected character %q", string(c))
		}
	}
}

func isIdentStart(c rune) bool {
	return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isIdentCont(c rune) bool {
	return isIdentStart(c) || (c >= '0' && c <= '9')
}

func lexIdentifier(l *Lexer) stateFn {
	for isIdentCont(l.peek()) {
		l.next()
	}
	text := l.input[l.start:l.pos]
	if k, ok := token.Keywords[text]; ok {
		l.emit(k)
	} else {
		l.emit(token.IDENT)
	}
	return lexGround
}

func lexNumber(l *Lexer) stateFn {
	isFloat := false
	for {
		switch c := l.peek(); {
		case c >= '0' && c <= '9':
			l.next()
		case c == '.' && !isFloat:
			isFloat = true
			l.next()
		default:
			if isFloat {
				l.emit(token.FLOAT)
			} else {
				l.emit(token.INT)
			}
			return lexGround
		}
	}
}

// lexString scans a string literal from just past the opening quote to
// the next quote or EOF; the lexeme excludes the quotes. No escape
// processing happens here: the raw bytes between the quotes are
// passed through untouched, for the code generator to escape.
func lexString(l *Lexer) stateFn {
	l.consume()
	for {
		switch l.next() {
		case '"':
			text := l.input[l.start : l.pos-1]
			l.emitText(token.STRING, text)
			l.consume()
			return lexGround
		case eof:
			text := l.input[l.start:l.pos]
			l.emitText(token.STRING, text)
			return lexEOF
		}
	}
}
