package parser

import (
	"sync"

	"github.com/emberlang/ember/pkg/ast"
	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/lexer"
)

type stmtFn func(p *parser) (ast.Stmt, error)

var (
	stmtOnce  sync.Once
	stmtTable map[lexer.Kind]stmtFn
)

func buildStmtTable() {
	stmtTable = map[lexer.Kind]stmtFn{
		lexer.LBrace:   (*parser).parseBlockStmt,
		lexer.Let:      (*parser).parseVarDecl,
		lexer.Const:    (*parser).parseVarDecl,
		lexer.Fn:       (*parser).parseFunctionDecl,
		lexer.If:       (*parser).parseIf,
		lexer.Import:   (*parser).parseImport,
		lexer.Foreach:  (*parser).parseForeach,
		lexer.While:    (*parser).parseWhile,
		lexer.Struct:   (*parser).parseStruct,
		lexer.Enum:     (*parser).parseEnum,
		lexer.Match:    (*parser).parseMatchStmt,
		lexer.Break:    (*parser).parseBreak,
		lexer.Continue: (*parser).parseContinue,
		lexer.Return:   (*parser).parseReturn,
	}
}

// parseStmt dispatches on the current token; tokens without a statement
// handler start an expression statement.
func (p *parser) parseStmt() (ast.Stmt, error) {
	stmtOnce.Do(buildStmtTable)
	if fn, ok := stmtTable[p.peek()]; ok {
		return fn(p)
	}
	return p.parseExprStmt()
}

func (p *parser) parseExprStmt() (ast.Stmt, error) {
	start := p.current().Span
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Semicolon); err != nil {
		return nil, err
	}
	return &ast.ExprStmt{Span: p.spanFrom(start), Expr: expr}, nil
}

func (p *parser) parseBlock() (*ast.BlockStmt, error) {
	start, err := p.expect(lexer.LBrace)
	if err != nil {
		return nil, err
	}
	var body []ast.Stmt
	for !p.at(lexer.RBrace) {
		if p.at(lexer.EOF) {
			return nil, p.errorf(diagnostics.EExpectedKind, "expected '}', found %s", p.current())
		}
		stmt, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		body = append(body, stmt)
	}
	p.advance() // }
	return &ast.BlockStmt{Span: p.spanFrom(start.Span), Body: body}, nil
}

func (p *parser) parseBlockStmt() (ast.Stmt, error) {
	return p.parseBlock()
}

func (p *parser) parseVarDecl() (ast.Stmt, error) {
	kw := p.advance() // let | const
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	decl := &ast.VarDecl{Name: name.Value, Const: kw.Kind == lexer.Const}
	if p.at(lexer.Colon) {
		p.advance()
		if decl.Type, err = p.parseType(); err != nil {
			return nil, err
		}
	}
	if p.at(lexer.Assign) {
		p.advance()
		if decl.Value, err = p.parseExpr(0); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.Semicolon); err != nil {
		return nil, err
	}
	decl.Span = p.spanFrom(kw.Span)
	return decl, nil
}

func (p *parser) parseFunctionDecl() (ast.Stmt, error) {
	if p.peekAt(1) == lexer.LParen {
		return p.parseExprStmt()
	}
	return p.parseFunction()
}

func (p *parser) parseFunction() (*ast.FunctionDecl, error) {
	start := p.advance().Span // fn
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	params, ret, body, err := p.parseSignatureAndBody()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionDecl{
		Span:       p.spanFrom(start),
		Name:       name.Value,
		Params:     params,
		ReturnType: ret,
		Body:       body,
	}, nil
}

// parseSignatureAndBody reads `(params) [: Type] { body }`.
func (p *parser) parseSignatureAndBody() ([]ast.Param, ast.TypeExpr, *ast.BlockStmt, error) {
	if _, err := p.expect(lexer.LParen); err != nil {
		return nil, nil, nil, err
	}
	var params []ast.Param
	for !p.at(lexer.RParen) {
		name, err := p.expectName()
		if err != nil {
			return nil, nil, nil, err
		}
		param := ast.Param{Name: name.Value}
		if p.at(lexer.Colon) {
			p.advance()
			if param.Type, err = p.parseType(); err != nil {
				return nil, nil, nil, err
			}
		}
		params = append(params, param)
		if !p.at(lexer.Comma) {
			break
		}
		p.advance()
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, nil, nil, err
	}
	var ret ast.TypeExpr
	if p.at(lexer.Colon) {
		p.advance()
		var err error
		if ret, err = p.parseType(); err != nil {
			return nil, nil, nil, err
		}
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, nil, nil, err
	}
	return params, ret, body, nil
}

func (p *parser) parseIf() (ast.Stmt, error) {
	start := p.advance().Span // if
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	stmt := &ast.IfStmt{Cond: cond, Then: then}
	if p.at(lexer.Else) {
		p.advance()
		if p.at(lexer.If) {
			stmt.Else, err = p.parseIf()
		} else {
			stmt.Else, err = p.parseBlock()
		}
		if err != nil {
			return nil, err
		}
	}
	stmt.Span = p.spanFrom(start)
	return stmt, nil
}

func (p *parser) parseImport() (ast.Stmt, error) {
	start := p.advance().Span // import
	stmt := &ast.ImportStmt{}
	if p.at(lexer.Star) {
		p.advance()
		stmt.Wildcard = true
	} else {
		name, err := p.expectName()
		if err != nil {
			return nil, err
		}
		stmt.Name = name.Value
	}
	if p.at(lexer.From) {
		p.advance()
		path, err := p.expect(lexer.String)
		if err != nil {
			return nil, err
		}
		stmt.Path = path.Value
	} else if stmt.Wildcard {
		return nil, p.errorf(diagnostics.EExpectedKind, "expected 'from' after 'import *', found %s", p.current())
	}
	if _, err := p.expect(lexer.Semicolon); err != nil {
		return nil, err
	}
	stmt.Span = p.spanFrom(start)
	return stmt, nil
}

func (p *parser) parseForeach() (ast.Stmt, error) {
	start := p.advance().Span // foreach
	value, err := p.expectName()
	if err != nil {
		return nil, err
	}
	stmt := &ast.ForeachStmt{Value: value.Value}
	if p.at(lexer.Comma) {
		p.advance()
		index, err := p.expectName()
		if err != nil {
			return nil, err
		}
		stmt.Index = index.Value
	}
	if _, err := p.expect(lexer.In); err != nil {
		return nil, err
	}
	if stmt.Iterable, err = p.parseExpr(0); err != nil {
		return nil, err
	}
	if stmt.Body, err = p.parseBlock(); err != nil {
		return nil, err
	}
	stmt.Span = p.spanFrom(start)
	return stmt, nil
}

func (p *parser) parseWhile() (ast.Stmt, error) {
	start := p.advance().Span // while
	cond, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	return &ast.WhileStmt{Span: p.spanFrom(start), Cond: cond, Body: body}, nil
}

func (p *parser) parseStruct() (ast.Stmt, error) {
	start := p.advance().Span // struct
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	decl := &ast.StructDecl{Name: name.Value}
	for !p.at(lexer.RBrace) {
		if p.at(lexer.Fn) {
			method, err := p.parseFunction()
			if err != nil {
				return nil, err
			}
			decl.Methods = append(decl.Methods, method)
			continue
		}
		field, err := p.expectName()
		if err != nil {
			return nil, err
		}
		f := ast.Field{Name: field.Value}
		if p.at(lexer.Colon) {
			p.advance()
			if f.Type, err = p.parseType(); err != nil {
				return nil, err
			}
		}
		decl.Fields = append(decl.Fields, f)
		if p.at(lexer.Comma) {
			p.advance()
			continue
		}
		if _, err := p.expect(lexer.Semicolon); err != nil {
			return nil, err
		}
	}
	p.advance() // }
	decl.Span = p.spanFrom(start)
	return decl, nil
}

func (p *parser) parseEnum() (ast.Stmt, error) {
	start := p.advance().Span // enum
	name, err := p.expectName()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	decl := &ast.EnumDecl{Name: name.Value}
	for !p.at(lexer.RBrace) {
		member, err := p.expectName()
		if err != nil {
			return nil, err
		}
		decl.Members = append(decl.Members, member.Value)
		if !p.at(lexer.Comma) {
			break
		}
		p.advance()
	}
	if _, err := p.expect(lexer.RBrace); err != nil {
		return nil, err
	}
	decl.Span = p.spanFrom(start)
	return decl, nil
}

func (p *parser) parseMatchStmt() (ast.Stmt, error) {
	start := p.current().Span
	expr, err := p.parseMatchExpr()
	if err != nil {
		return nil, err
	}
	if p.at(lexer.Semicolon) {
		p.advance()
	}
	return &ast.MatchStmt{Span: p.spanFrom(start), Match: expr.(*ast.MatchExpr)}, nil
}

func (p *parser) parseBreak() (ast.Stmt, error) {
	start := p.advance().Span
	if _, err := p.expect(lexer.Semicolon); err != nil {
		return nil, err
	}
	return &ast.BreakStmt{Span: p.spanFrom(start)}, nil
}

func (p *parser) parseContinue() (ast.Stmt, error) {
	start := p.advance().Span
	if _, err := p.expect(lexer.Semicolon); err != nil {
		return nil, err
	}
	return &ast.ContinueStmt{Span: p.spanFrom(start)}, nil
}

func (p *parser) parseReturn() (ast.Stmt, error) {
	start := p.advance().Span
	stmt := &ast.ReturnStmt{}
	if !p.at(lexer.Semicolon) {
		value, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		stmt.Value = value
	}
	if _, err := p.expect(lexer.Semicolon); err != nil {
		return nil, err
	}
	stmt.Span = p.spanFrom(start)
	return stmt, nil
}
