package parser

import (
	"strconv"
	"sync"

	"github.com/emberlang/ember/pkg/ast"
	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/lexer"
)

// bindingPower is the (left, right) precedence pair of an infix or
// postfix token. Right-associative operators use left == right.
type bindingPower struct {
	left  int
	right int
}

const (
	bpAssign  = 10
	bpLogical = 20
	bpRange   = 24
	bpBitOr   = 26
	bpBitXor  = 27
	bpBitAnd  = 28
	bpCompare = 30
	bpAdd     = 40
	bpMul     = 50
	bpPow     = 55
	bpUnary   = 60
	bpCall    = 70
)

type (
	nudFn func(p *parser) (ast.Expr, error)
	ledFn func(p *parser, left ast.Expr, bp bindingPower) (ast.Expr, error)
)

var (
	tablesOnce sync.Once
	bpTable    map[lexer.Kind]bindingPower
	nudTable   map[lexer.Kind]nudFn
	ledTable   map[lexer.Kind]ledFn
)

func buildTables() {
	left := func(lbp int) bindingPower { return bindingPower{lbp, lbp + 1} }
	right := func(lbp int) bindingPower { return bindingPower{lbp, lbp} }

	bpTable = map[lexer.Kind]bindingPower{
		lexer.Assign:        right(bpAssign),
		lexer.PlusAssign:    right(bpAssign),
		lexer.MinusAssign:   right(bpAssign),
		lexer.StarAssign:    right(bpAssign),
		lexer.SlashAssign:   right(bpAssign),
		lexer.PercentAssign: right(bpAssign),
		lexer.NilAssign:     right(bpAssign),

		lexer.OrOr:        left(bpLogical),
		lexer.NilCoalesce: left(bpLogical),
		lexer.AndAnd:      left(bpLogical + 2),
		lexer.DotDot:      left(bpRange),

		lexer.Pipe:  left(bpBitOr),
		lexer.Caret: left(bpBitXor),
		lexer.Amp:   left(bpBitAnd),

		lexer.Eq:    left(bpCompare),
		lexer.NotEq: left(bpCompare),
		lexer.Lt:    left(bpCompare),
		lexer.LtEq:  left(bpCompare),
		lexer.Gt:    left(bpCompare),
		lexer.GtEq:  left(bpCompare),

		lexer.Plus:     left(bpAdd),
		lexer.Minus:    left(bpAdd),
		lexer.Star:     left(bpMul),
		lexer.Slash:    left(bpMul),
		lexer.Percent:  left(bpMul),
		lexer.StarStar: right(bpPow),

		lexer.LParen:     left(bpCall),
		lexer.LBracket:   left(bpCall),
		lexer.Dot:        left(bpCall),
		lexer.PlusPlus:   left(bpCall),
		lexer.MinusMinus: left(bpCall),
	}

	nudTable = map[lexer.Kind]nudFn{
		lexer.Number:   (*parser).parseNumber,
		lexer.String:   (*parser).parseString,
		lexer.True:     (*parser).parseBool,
		lexer.False:    (*parser).parseBool,
		lexer.Nil:      (*parser).parseNil,
		lexer.Ident:    (*parser).parseIdentifier,
		lexer.LParen:   (*parser).parseGroup,
		lexer.LBracket: (*parser).parseArrayLiteral,
		lexer.LBrace:   (*parser).parseObjectLiteral,
		lexer.Minus:    (*parser).parsePrefix,
		lexer.Bang:     (*parser).parsePrefix,
		lexer.Typeof:   (*parser).parsePrefix,
		lexer.Delete:   (*parser).parsePrefix,
		lexer.Fn:       (*parser).parseFunctionExpr,
		lexer.Match:    (*parser).parseMatchExpr,
		lexer.New:      (*parser).parseNew,
	}

	ledTable = map[lexer.Kind]ledFn{
		lexer.LParen:     (*parser).parseCall,
		lexer.LBracket:   (*parser).parseIndex,
		lexer.Dot:        (*parser).parseMember,
		lexer.PlusPlus:   (*parser).parsePostfix,
		lexer.MinusMinus: (*parser).parsePostfix,
		lexer.DotDot:     (*parser).parseRange,
	}
	for kind := range bpTable {
		if _, ok := ledTable[kind]; ok {
			continue
		}
		if isAssignOp(kind) {
			ledTable[kind] = (*parser).parseAssign
		} else {
			ledTable[kind] = (*parser).parseBinary
		}
	}
}

func isAssignOp(kind lexer.Kind) bool {
	switch kind {
	case lexer.Assign, lexer.PlusAssign, lexer.MinusAssign, lexer.StarAssign,
		lexer.SlashAssign, lexer.PercentAssign, lexer.NilAssign:
		return true
	}
	return false
}

// parseExpr is the Pratt loop: apply the nud of the current token, then
// keep folding led handlers while the next operator binds at least minBP.
func (p *parser) parseExpr(minBP int) (ast.Expr, error) {
	tablesOnce.Do(buildTables)

	nud, ok := nudTable[p.peek()]
	if !ok {
		return nil, p.errorf(diagnostics.EExpectedNUD, "unexpected %s at start of expression", p.current())
	}
	left, err := nud(p)
	if err != nil {
		return nil, err
	}

	for {
		bp, ok := bpTable[p.peek()]
		if !ok || bp.left < minBP {
			return left, nil
		}
		led, ok := ledTable[p.peek()]
		if !ok {
			return nil, p.errorf(diagnostics.EExpectedLED, "unexpected %s after expression", p.current())
		}
		left, err = led(p, left, bp)
		if err != nil {
			return nil, err
		}
	}
}

// --- null denotations ---

func (p *parser) parseNumber() (ast.Expr, error) {
	tok := p.current()
	v, err := strconv.ParseFloat(tok.Value, 64)
	if err != nil {
		return nil, p.errorf(diagnostics.EParseFailure, "invalid number literal '%s'", tok.Value)
	}
	p.advance()
	return &ast.NumberLiteral{Span: tok.Span, Value: v}, nil
}

func (p *parser) parseString() (ast.Expr, error) {
	tok := p.advance()
	return &ast.StringLiteral{Span: tok.Span, Value: tok.Value}, nil
}

func (p *parser) parseBool() (ast.Expr, error) {
	tok := p.advance()
	return &ast.BoolLiteral{Span: tok.Span, Value: tok.Kind == lexer.True}, nil
}

func (p *parser) parseNil() (ast.Expr, error) {
	tok := p.advance()
	return &ast.NilLiteral{Span: tok.Span}, nil
}

func (p *parser) parseIdentifier() (ast.Expr, error) {
	tok := p.advance()
	return &ast.Identifier{Span: tok.Span, Name: tok.Value}, nil
}

func (p *parser) parseGroup() (ast.Expr, error) {
	p.advance() // (
	expr, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return expr, nil
}

func (p *parser) parseArrayLiteral() (ast.Expr, error) {
	start := p.advance().Span // [
	var elems []ast.Expr
	for !p.at(lexer.RBracket) {
		elem, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
		if !p.at(lexer.Comma) {
			break
		}
		p.advance()
	}
	if _, err := p.expect(lexer.RBracket); err != nil {
		return nil, err
	}
	return &ast.ArrayLiteral{Span: p.spanFrom(start), Elements: elems}, nil
}

func (p *parser) parseObjectLiteral() (ast.Expr, error) {
	start := p.advance().Span // {
	var entries []ast.ObjectEntry
	for !p.at(lexer.RBrace) {
		keyTok := p.current()
		if keyTok.Kind != lexer.Ident && keyTok.Kind != lexer.String && !keyTok.Kind.IsKeyword() {
			return nil, p.errorf(diagnostics.EExpectedKind, "expected object key, found %s", keyTok)
		}
		p.advance()
		if _, err := p.expect(lexer.Colon); err != nil {
			return nil, err
		}
		value, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		entries = append(entries, ast.ObjectEntry{Key: keyTok.Value, Value: value})
		if !p.at(lexer.Comma) {
			break
		}
		p.advance()
	}
	if _, err := p.expect(lexer.RBrace); err != nil {
		return nil, err
	}
	return &ast.ObjectLiteral{Span: p.spanFrom(start), Entries: entries}, nil
}

func (p *parser) parsePrefix() (ast.Expr, error) {
	op := p.advance()
	operand, err := p.parseExpr(bpUnary)
	if err != nil {
		return nil, err
	}
	return &ast.PrefixExpr{Span: p.spanFrom(op.Span), Op: op.Value, Operand: operand}, nil
}

func (p *parser) parseFunctionExpr() (ast.Expr, error) {
	start := p.advance().Span // fn
	params, ret, body, err := p.parseSignatureAndBody()
	if err != nil {
		return nil, err
	}
	return &ast.FunctionExpr{Span: p.spanFrom(start), Params: params, ReturnType: ret, Body: body}, nil
}

// parseNew reads `new Callee(args)`. The callee is a primary expression
// with an optional member chain; the argument list must follow directly.
func (p *parser) parseNew() (ast.Expr, error) {
	start := p.advance().Span // new
	nud, ok := nudTable[p.peek()]
	if !ok {
		return nil, p.errorf(diagnostics.EExpectedNUD, "unexpected %s after 'new'", p.current())
	}
	callee, err := nud(p)
	if err != nil {
		return nil, err
	}
	for p.at(lexer.Dot) {
		if callee, err = p.parseMember(callee, bindingPower{}); err != nil {
			return nil, err
		}
	}
	if !p.at(lexer.LParen) {
		return nil, p.errorf(diagnostics.EInvalidConstructor, "'new' must be followed by a call such as new Name(args), found %s", p.current())
	}
	call, err := p.parseCall(callee, bindingPower{})
	if err != nil {
		return nil, err
	}
	return &ast.NewExpr{Span: p.spanFrom(start), Call: call.(*ast.CallExpr)}, nil
}

func (p *parser) parseMatchExpr() (ast.Expr, error) {
	start := p.advance().Span // match
	subject, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBrace); err != nil {
		return nil, err
	}
	var arms []*ast.MatchArm
	for !p.at(lexer.RBrace) {
		arm, err := p.parseMatchArm()
		if err != nil {
			return nil, err
		}
		arms = append(arms, arm)
		if p.at(lexer.Comma) {
			p.advance()
			continue
		}
		if _, isBlock := arm.Body.(*ast.BlockStmt); !isBlock {
			break
		}
	}
	if _, err := p.expect(lexer.RBrace); err != nil {
		return nil, err
	}
	return &ast.MatchExpr{Span: p.spanFrom(start), Subject: subject, Arms: arms}, nil
}

func (p *parser) parseMatchArm() (*ast.MatchArm, error) {
	start := p.current().Span
	var pattern ast.Expr
	if p.at(lexer.Ident) && p.current().Value == "_" && p.peekAt(1) == lexer.FatArrow {
		p.advance()
	} else {
		pat, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		pattern = pat
	}
	if _, err := p.expect(lexer.FatArrow); err != nil {
		return nil, err
	}
	var body ast.Stmt
	if p.at(lexer.LBrace) {
		block, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		body = block
	} else {
		exprStart := p.current().Span
		expr, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		body = &ast.ExprStmt{Span: p.spanFrom(exprStart), Expr: expr}
	}
	return &ast.MatchArm{Span: p.spanFrom(start), Pattern: pattern, Body: body}, nil
}

// --- left denotations ---

func (p *parser) parseBinary(left ast.Expr, bp bindingPower) (ast.Expr, error) {
	op := p.advance()
	right, err := p.parseExpr(bp.right)
	if err != nil {
		return nil, err
	}
	return &ast.BinaryExpr{Span: p.spanFrom(left.NodeSpan()), Op: op.Value, Left: left, Right: right}, nil
}

func (p *parser) parseAssign(left ast.Expr, bp bindingPower) (ast.Expr, error) {
	op := p.advance()
	value, err := p.parseExpr(bp.right)
	if err != nil {
		return nil, err
	}
	return &ast.AssignExpr{Span: p.spanFrom(left.NodeSpan()), Op: op.Value, Target: left, Value: value}, nil
}

func (p *parser) parseRange(left ast.Expr, bp bindingPower) (ast.Expr, error) {
	p.advance() // ..
	end, err := p.parseExpr(bp.right)
	if err != nil {
		return nil, err
	}
	return &ast.RangeExpr{Span: p.spanFrom(left.NodeSpan()), Start: left, End: end}, nil
}

func (p *parser) parsePostfix(left ast.Expr, _ bindingPower) (ast.Expr, error) {
	op := p.advance()
	return &ast.PostfixExpr{Span: p.spanFrom(left.NodeSpan()), Op: op.Value, Target: left}, nil
}

func (p *parser) parseCall(callee ast.Expr, _ bindingPower) (ast.Expr, error) {
	p.advance() // (
	var args []ast.Expr
	for !p.at(lexer.RParen) {
		arg, err := p.parseExpr(0)
		if err != nil {
			return nil, err
		}
		args = append(args, arg)
		if !p.at(lexer.Comma) {
			break
		}
		p.advance()
	}
	if _, err := p.expect(lexer.RParen); err != nil {
		return nil, err
	}
	return &ast.CallExpr{Span: p.spanFrom(callee.NodeSpan()), Callee: callee, Args: args}, nil
}

func (p *parser) parseIndex(object ast.Expr, _ bindingPower) (ast.Expr, error) {
	p.advance() // [
	index, err := p.parseExpr(0)
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.RBracket); err != nil {
		return nil, err
	}
	return &ast.IndexExpr{Span: p.spanFrom(object.NodeSpan()), Object: object, Index: index}, nil
}

func (p *parser) parseMember(object ast.Expr, _ bindingPower) (ast.Expr, error) {
	p.advance() // .
	prop := p.current()
	if prop.Kind != lexer.Ident && !prop.Kind.IsKeyword() {
		return nil, p.errorf(diagnostics.EExpectedKind, "expected property name after '.', found %s", prop)
	}
	p.advance()
	return &ast.MemberExpr{Span: p.spanFrom(object.NodeSpan()), Object: object, Property: prop.Value}, nil
}
