package formula

import (
	"fmt"
	"strings"

	"github.com/hashicorp/hcl/v2"
)

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokNumber
	tokString
	tokIdent
	tokOp // operator or punctuation: + - * / % ^ < > <= >= == != && || ( ) ,
)

type token struct {
	kind tokenKind
	text string
	pos  hcl.Pos // start position
}

// lexer tokenizes formula source text into the small fixed token set the
// grammar in spec.md §6 needs. It tracks byte/line/column positions so parse
// errors can carry an hcl.Range, per SPEC_FULL.md's reuse of hcl's
// diagnostic/position types.
type lexer struct {
	src    string
	filename string
	pos    int
	line   int
	col    int
}

func newLexer(src, filename string) *lexer {
	return &lexer{src: src, filename: filename, line: 1, col: 1}
}

func (l *lexer) here() hcl.Pos {
	return hcl.Pos{Line: l.line, Column: l.col, Byte: l.pos}
}

func (l *lexer) peekByte() byte {
	if l.pos >= len(l.src) {
		return 0
	}
	return l.src[l.pos]
}

func (l *lexer) advance() byte {
	b := l.src[l.pos]
	l.pos++
	if b == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return b
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		b := l.peekByte()
		if b == ' ' || b == '\t' || b == '\r' || b == '\n' {
			l.advance()
			continue
		}
		break
	}
}

func isDigit(b byte) bool { return b >= '0' && b <= '9' }
func isLetter(b byte) bool {
	return b == '_' || (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}
func isIdentCont(b byte) bool { return isLetter(b) || isDigit(b) }

// next returns the next token, or a *SyntaxError if the input is malformed.
func (l *lexer) next() (token, error) {
	l.skipSpace()
	start := l.here()
	if l.pos >= len(l.src) {
		return token{kind: tokEOF, pos: start}, nil
	}

	b := l.peekByte()

	switch {
	case isDigit(b):
		return l.lexNumber(start)
	case isLetter(b):
		return l.lexIdent(start)
	case b == '"':
		return l.lexString(start)
	}

	// Two-character operators.
	two := ""
	if l.pos+1 < len(l.src) {
		two = l.src[l.pos : l.pos+2]
	}
	switch two {
	case "<=", ">=", "==", "!=", "&&", "||":
		l.advance()
		l.advance()
		return token{kind: tokOp, text: two, pos: start}, nil
	}

	single := strings.IndexByte("+-*/%^<>()!,", b)
	if single < 0 {
		return token{}, &SyntaxError{Pos: start, Filename: l.filename, Message: fmt.Sprintf("unexpected character %q", string(b))}
	}
	l.advance()
	return token{kind: tokOp, text: string(b), pos: start}, nil
}

func (l *lexer) lexNumber(start hcl.Pos) (token, error) {
	begin := l.pos
	for l.pos < len(l.src) && isDigit(l.peekByte()) {
		l.advance()
	}
	if l.peekByte() == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1]) {
		l.advance()
		for l.pos < len(l.src) && isDigit(l.peekByte()) {
			l.advance()
		}
	}
	return token{kind: tokNumber, text: l.src[begin:l.pos], pos: start}, nil
}

func (l *lexer) lexIdent(start hcl.Pos) (token, error) {
	begin := l.pos
	for l.pos < len(l.src) && isIdentCont(l.peekByte()) {
		l.advance()
	}
	return token{kind: tokIdent, text: l.src[begin:l.pos], pos: start}, nil
}

func (l *lexer) lexString(start hcl.Pos) (token, error) {
	l.advance() // opening quote
	var sb strings.Builder
	for {
		if l.pos >= len(l.src) {
			return token{}, &SyntaxError{Pos: start, Filename: l.filename, Message: "unterminated string literal"}
		}
		b := l.peekByte()
		if b == '"' {
			l.advance()
			break
		}
		if b == '\\' && l.pos+1 < len(l.src) {
			l.advance()
			esc := l.advance()
			switch esc {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case '"', '\\':
				sb.WriteByte(esc)
			default:
				sb.WriteByte(esc)
			}
			continue
		}
		sb.WriteByte(l.advance())
	}
	return token{kind: tokString, text: sb.String(), pos: start}, nil
}
