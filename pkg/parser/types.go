package parser

import (
	"sync"

	"github.com/emberlang/ember/pkg/ast"
	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/lexer"
)

type typeNudFn func(p *parser) (ast.TypeExpr, error)

var (
	typeOnce     sync.Once
	typeNudTable map[lexer.Kind]typeNudFn
)

func buildTypeTable() {
	typeNudTable = map[lexer.Kind]typeNudFn{
		lexer.Ident:    (*parser).parseNamedType,
		lexer.Nil:      (*parser).parseNamedType,
		lexer.LBracket: (*parser).parseListType,
	}
}

// parseType reads a type annotation: a name or `[]` followed by a type.
func (p *parser) parseType() (ast.TypeExpr, error) {
	typeOnce.Do(buildTypeTable)
	nud, ok := typeNudTable[p.peek()]
	if !ok {
		return nil, p.errorf(diagnostics.EExpectedNUD, "expected type, found %s", p.current())
	}
	return nud(p)
}

func (p *parser) parseNamedType() (ast.TypeExpr, error) {
	tok := p.advance()
	name := tok.Value
	if tok.Kind == lexer.Nil {
		name = "Nil"
	}
	return &ast.NamedType{Span: tok.Span, Name: name}, nil
}

func (p *parser) parseListType() (ast.TypeExpr, error) {
	start := p.advance().Span // [
	if _, err := p.expect(lexer.RBracket); err != nil {
		return nil, err
	}
	elem, err := p.parseType()
	if err != nil {
		return nil, err
	}
	return &ast.ListType{Span: p.spanFrom(start), Elem: elem}, nil
}
