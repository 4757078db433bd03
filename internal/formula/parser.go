package formula

import (
	"fmt"

	"github.com/hashicorp/hcl/v2"
)

// SyntaxError is returned by Parse for lexical or grammatical failures. It
// carries a position so callers can point users at the offending text,
// reusing hcl.Pos per SPEC_FULL.md's error-handling design.
type SyntaxError struct {
	Pos      hcl.Pos
	Filename string
	Message  string
}

func (e *SyntaxError) Error() string {
	return fmt.Sprintf("%s:%d:%d: %s", e.Filename, e.Pos.Line, e.Pos.Column, e.Message)
}

// Parse parses source text into a formula AST per the grammar in spec.md §6.
// The parser itself is an internal implementation detail, not a pluggable
// collaborator: spec.md §1 places "the concrete grammar file, the syntactic
// parser" out of scope only in the sense that no external parser-generator
// or injected parsing collaborator is assumed — callers get a well-formed
// AST back exactly as if one had been injected.
func Parse(source, filename string) (Node, error) {
	p := &parser{lex: newLexer(source, filename), filename: filename}
	if err := p.advance(); err != nil {
		return nil, err
	}
	start := p.tok.pos
	child, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.kind != tokEOF {
		return nil, &SyntaxError{Pos: p.tok.pos, Filename: filename, Message: fmt.Sprintf("unexpected trailing input %q", p.tok.text)}
	}
	return RootNode{base: base{rng: rangeFrom(filename, start, p.tok.pos)}, Child: child}, nil
}

type parser struct {
	lex      *lexer
	tok      token
	filename string
}

func (p *parser) advance() error {
	t, err := p.lex.next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *parser) expectOp(text string) (hcl.Pos, error) {
	if p.tok.kind != tokOp || p.tok.text != text {
		return hcl.Pos{}, &SyntaxError{Pos: p.tok.pos, Filename: p.filename, Message: fmt.Sprintf("expected %q, got %q", text, p.tok.text)}
	}
	pos := p.tok.pos
	if err := p.advance(); err != nil {
		return hcl.Pos{}, err
	}
	return pos, nil
}

func rangeFrom(filename string, start, end hcl.Pos) hcl.Range {
	return hcl.Range{Filename: filename, Start: start, End: end}
}

// expr := logical
func (p *parser) parseExpr() (Node, error) {
	return p.parseLogical()
}

// logical := equality (('&&'|'||') equality)*
func (p *parser) parseLogical() (Node, error) {
	return p.parseBinaryTier(Logical, []string{"&&", "||"}, p.parseEquality)
}

// equality := relation (('=='|'!=') relation)*
func (p *parser) parseEquality() (Node, error) {
	return p.parseBinaryTier(Equality, []string{"==", "!="}, p.parseRelation)
}

// relation := addsub (('<'|'>'|'<='|'>=') addsub)*
func (p *parser) parseRelation() (Node, error) {
	return p.parseBinaryTier(Relational, []string{"<", ">", "<=", ">="}, p.parseAddSub)
}

// addsub := muldiv (('+'|'-') muldiv)*
func (p *parser) parseAddSub() (Node, error) {
	return p.parseBinaryTier(Arithmetic, []string{"+", "-"}, p.parseMulDiv)
}

// muldiv := expon (('*'|'/'|'%') expon)*
func (p *parser) parseMulDiv() (Node, error) {
	return p.parseBinaryTier(Geometric, []string{"*", "/", "%"}, p.parseExpon)
}

// expon := unary ('^' unary)*
func (p *parser) parseExpon() (Node, error) {
	return p.parseBinaryTier(Exponent, []string{"^"}, p.parseUnary)
}

func (p *parser) parseBinaryTier(kind BinaryKind, ops []string, next func() (Node, error)) (Node, error) {
	left, err := next()
	if err != nil {
		return nil, err
	}
	for p.tok.kind == tokOp && contains(ops, p.tok.text) {
		op := p.tok.text
		if err := p.advance(); err != nil {
			return nil, err
		}
		right, err := next()
		if err != nil {
			return nil, err
		}
		left = BinaryNode{
			base:  base{rng: rangeFrom(p.filename, left.Range().Start, right.Range().End)},
			Kind:  kind,
			Op:    op,
			Left:  left,
			Right: right,
		}
	}
	return left, nil
}

func contains(set []string, s string) bool {
	for _, x := range set {
		if x == s {
			return true
		}
	}
	return false
}

// unary := ('-'|'!')? primary
func (p *parser) parseUnary() (Node, error) {
	if p.tok.kind == tokOp && (p.tok.text == "-" || p.tok.text == "!") {
		op := p.tok.text
		start := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		kind := UnaryNeg
		if op == "!" {
			kind = UnaryNot
		}
		return UnaryNode{base: base{rng: rangeFrom(p.filename, start, operand.Range().End)}, Kind: kind, Op: op, Operand: operand}, nil
	}
	return p.parsePrimary()
}

// primary := number | qstring | ident | ident '(' args ')' | '(' expr ')'
func (p *parser) parsePrimary() (Node, error) {
	switch {
	case p.tok.kind == tokNumber:
		n := NumberNode{base: base{rng: rangeFrom(p.filename, p.tok.pos, p.tok.pos)}, Text: p.tok.text}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return n, nil

	case p.tok.kind == tokString:
		n := QuotedStringNode{base: base{rng: rangeFrom(p.filename, p.tok.pos, p.tok.pos)}, Value: p.tok.text}
		if err := p.advance(); err != nil {
			return nil, err
		}
		return n, nil

	case p.tok.kind == tokIdent:
		name := p.tok.text
		start := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		if p.tok.kind == tokOp && p.tok.text == "(" {
			return p.parseFunctionCall(name, start)
		}
		return IdentifierNode{base: base{rng: rangeFrom(p.filename, start, start)}, Name: name}, nil

	case p.tok.kind == tokOp && p.tok.text == "(":
		start := p.tok.pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		inner, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		endPos, err := p.expectOp(")")
		if err != nil {
			return nil, err
		}
		return ParenNode{base: base{rng: rangeFrom(p.filename, start, endPos)}, Child: inner}, nil

	default:
		return nil, &SyntaxError{Pos: p.tok.pos, Filename: p.filename, Message: fmt.Sprintf("unexpected token %q", p.tok.text)}
	}
}

// args := expr (',' expr)*
func (p *parser) parseFunctionCall(name string, nameStart hcl.Pos) (Node, error) {
	parenStart := p.tok.pos
	if err := p.advance(); err != nil { // consume '('
		return nil, err
	}
	var args []Node
	if !(p.tok.kind == tokOp && p.tok.text == ")") {
		for {
			arg, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
			if p.tok.kind == tokOp && p.tok.text == "," {
				if err := p.advance(); err != nil {
					return nil, err
				}
				continue
			}
			break
		}
	}
	endPos, err := p.expectOp(")")
	if err != nil {
		return nil, err
	}
	paren := &FunctionParenNode{base: base{rng: rangeFrom(p.filename, parenStart, endPos)}, Args: args}
	return FunctionLookupNode{base: base{rng: rangeFrom(p.filename, nameStart, endPos)}, Name: name, Args: paren}, nil
}
