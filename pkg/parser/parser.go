// Package parser implements the Ember Pratt parser.
package parser

import (
	"errors"
	"fmt"

	"github.com/emberlang/ember/pkg/ast"
	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/lexer"
)

// Error is a parse failure. Index is the offending token's position in the
// token stream, or -1 for lex errors.
type Error struct {
	Diag  diagnostics.Diagnostic
	Index int

	incomplete bool
}

func (e *Error) Error() string {
	return e.Diag.Message
}

// Incomplete reports whether parsing failed only because input ran out,
// so more text could still complete the program.
func (e *Error) Incomplete() bool {
	return e.incomplete
}

type parser struct {
	tokens []lexer.Token
	pos    int
	last   lexer.Token
}

// Parse tokenizes source and parses it into a single block holding one
// statement per top-level construct.
func Parse(source, filename string) (*ast.BlockStmt, error) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		var le *lexer.Error
		if errors.As(err, &le) {
			return nil, &Error{
				Diag:       le.Diag,
				Index:      -1,
				incomplete: le.Diag.Code == diagnostics.EUnterminated,
			}
		}
		return nil, err
	}
	return ParseTokens(tokens)
}

// ParseTokens parses an already tokenized program.
func ParseTokens(tokens []lexer.Token) (*ast.BlockStmt, error) {
	if len(tokens) == 0 || tokens[len(tokens)-1].Kind != lexer.EOF {
		tokens = append(tokens, lexer.Token{Kind: lexer.EOF})
	}
	p := &parser{tokens: tokens}
	return p.parseProgram()
}

// ParseExpr parses a single expression, ignoring an optional trailing ';'.
func ParseExpr(source, filename string) (ast.Expr, error) {
	tokens, err := lexer.Tokenize(source, filename)
	if err != nil {
		var le *lexer.Error
		if errors.As(err, &le) {
			return nil, &Error{Diag: le.Diag, Index: -1}
		}
		return nil, err
	}
	p := &parser{tokens: tokens}
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if p.at(lexer.Semicolon) {
		p.advance()
	}
	if !p.at(lexer.EOF) {
		return nil, p.errorf(diagnostics.EExpectedKind, "expected end of input, found %s", p.current())
	}
	return expr, nil
}

func (p *parser) parseProgram() (*ast.BlockStmt, error) {
	start := p.current().Span
	var body []ast.Stmt
	for !p.at(lexer.EOF) {
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
	}
	return &ast.BlockStmt{Span: p.spanFromTo(start, p.current().Span), Body: body}, nil
}

func (p *parser) current() lexer.Token {
	if p.pos >= len(p.tokens) {
		return p.tokens[len(p.tokens)-1] // EOF
	}
	return p.tokens[p.pos]
}

func (p *parser) peek() lexer.Kind {
	return p.current().Kind
}

func (p *parser) peekAt(offset int) lexer.Kind {
	idx := p.pos + offset
	if idx >= len(p.tokens) {
		return lexer.EOF
	}
	return p.tokens[idx].Kind
}

func (p *parser) at(kind lexer.Kind) bool {
	return p.peek() == kind
}

func (p *parser) advance() lexer.Token {
	tok := p.current()
	if p.pos < len(p.tokens)-1 {
		p.pos++
	}
	p.last = tok
	return tok
}

func (p *parser) expect(kind lexer.Kind) (lexer.Token, error) {
	tok := p.current()
	if tok.Kind != kind {
		return tok, p.errorf(diagnostics.EExpectedKind, "expected '%s', found %s", kind, tok)
	}
	return p.advance(), nil
}

// expectName consumes an identifier used as a declared name.
func (p *parser) expectName() (lexer.Token, error) {
	tok := p.current()
	if tok.Kind.IsKeyword() {
		return tok, p.errorf(diagnostics.EReservedIdentifier, "'%s' is a reserved word and cannot be used as a name", tok.Value)
	}
	if tok.Kind != lexer.Ident {
		return tok, p.errorf(diagnostics.EExpectedKind, "expected identifier, found %s", tok)
	}
	return p.advance(), nil
}

func (p *parser) errorf(code, format string, args ...any) error {
	tok := p.current()
	span := tok.Span
	return &Error{
		Diag:       diagnostics.MakeDiag(code, fmt.Sprintf(format, args...), &span, fmt.Sprintf("at token %d", p.pos)),
		Index:      p.pos,
		incomplete: tok.Kind == lexer.EOF,
	}
}

// spanFromTo builds a span from the start of one span to the end of another.
func (p *parser) spanFromTo(start, end ast.Span) ast.Span {
	return ast.Span{
		File:  start.File,
		Line:  start.Line,
		Col:   start.Col,
		Start: start.Start,
		End:   end.End,
	}
}

// spanFrom builds a span from start to the last consumed token.
func (p *parser) spanFrom(start ast.Span) ast.Span {
	return p.spanFromTo(start, p.last.Span)
}
