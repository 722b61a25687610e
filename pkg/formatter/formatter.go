// Package formatter implements the Ember canonical source printer.
package formatter

import (
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/emberlang/ember/pkg/ast"
)

const indent = "  "

const (
	precAssign  = 10
	precUnary   = 60
	precPostfix = 70
	precPrimary = 100
)

// Precedence table for binary operators (higher = tighter binding).
// Mirrors the parser's left binding powers.
var precedence = map[string]int{
	"||": 20, "??": 20,
	"&&": 22,
	"..": 24,
	"|":  26,
	"^":  27,
	"&":  28,
	"==": 30, "!=": 30, "<": 30, "<=": 30, ">": 30, ">=": 30,
	"+": 40, "-": 40,
	"*": 50, "/": 50, "%": 50,
	"**": 55,
}

var identPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

func exprPrec(e ast.Expr) int {
	switch n := e.(type) {
	case *ast.AssignExpr:
		return precAssign
	case *ast.BinaryExpr:
		return precedence[n.Op]
	case *ast.RangeExpr:
		return precedence[".."]
	case *ast.PrefixExpr:
		return precUnary
	case *ast.PostfixExpr, *ast.CallExpr, *ast.MemberExpr, *ast.IndexExpr:
		return precPostfix
	}
	return precPrimary
}

func rightAssoc(op string) bool {
	return op == "**"
}

func needsParens(child ast.Expr, parentOp string, isRight bool) bool {
	childPrec := exprPrec(child)
	parentPrec := precedence[parentOp]
	if childPrec < parentPrec {
		return true
	}
	if childPrec == parentPrec {
		return isRight != rightAssoc(parentOp)
	}
	return false
}

// Format pretty-prints an Ember program back to source code.
func Format(program *ast.BlockStmt) string {
	var lines []string
	for i, s := range program.Body {
		if i > 0 && (isDecl(s) || isDecl(program.Body[i-1])) {
			lines = append(lines, "")
		}
		lines = append(lines, formatStmt(s, 0))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n") + "\n"
}

// FormatExpr pretty-prints a single expression.
func FormatExpr(e ast.Expr) string {
	return formatExpr(e, 0)
}

// HasComments reports whether source contains a // comment outside a
// string literal. Format drops comments, so callers warn before rewriting.
func HasComments(source string) bool {
	inString := false
	for i := 0; i < len(source); i++ {
		switch c := source[i]; {
		case inString && c == '\\':
			i++
		case c == '"':
			inString = !inString
		case c == '\n':
			inString = false
		case !inString && c == '/' && i+1 < len(source) && source[i+1] == '/':
			return true
		}
	}
	return false
}

func isDecl(s ast.Stmt) bool {
	switch s.(type) {
	case *ast.FunctionDecl, *ast.StructDecl, *ast.EnumDecl:
		return true
	}
	return false
}

func formatStmt(s ast.Stmt, depth int) string {
	pad := strings.Repeat(indent, depth)
	switch n := s.(type) {
	case *ast.BlockStmt:
		return pad + formatBlock(n, depth)
	case *ast.ExprStmt:
		text := formatExpr(n.Expr, depth)
		if startsAmbiguous(n.Expr) {
			text = "(" + text + ")"
		}
		return pad + text + ";"
	case *ast.VarDecl:
		kw := "let"
		if n.Const {
			kw = "const"
		}
		out := pad + kw + " " + n.Name
		if n.Type != nil {
			out += ": " + n.Type.String()
		}
		if n.Value != nil {
			out += " = " + formatExpr(n.Value, depth)
		}
		return out + ";"
	case *ast.FunctionDecl:
		return pad + "fn " + n.Name + formatSignature(n.Params, n.ReturnType) + " " + formatBlock(n.Body, depth)
	case *ast.IfStmt:
		return pad + formatIf(n, depth)
	case *ast.WhileStmt:
		return pad + "while " + formatExpr(n.Cond, depth) + " " + formatBlock(n.Body, depth)
	case *ast.ForeachStmt:
		vars := n.Value
		if n.Index != "" {
			vars += ", " + n.Index
		}
		return pad + "foreach " + vars + " in " + formatExpr(n.Iterable, depth) + " " + formatBlock(n.Body, depth)
	case *ast.ImportStmt:
		target := n.Name
		if n.Wildcard {
			target = "*"
		}
		if n.Path == "" {
			return pad + "import " + target + ";"
		}
		return pad + "import " + target + " from " + quote(n.Path) + ";"
	case *ast.StructDecl:
		return pad + formatStruct(n, depth)
	case *ast.EnumDecl:
		return pad + "enum " + n.Name + " { " + strings.Join(n.Members, ", ") + " }"
	case *ast.MatchStmt:
		return pad + formatMatch(n.Match, depth)
	case *ast.BreakStmt:
		return pad + "break;"
	case *ast.ContinueStmt:
		return pad + "continue;"
	case *ast.ReturnStmt:
		if n.Value == nil {
			return pad + "return;"
		}
		return pad + "return " + formatExpr(n.Value, depth) + ";"
	default:
		return pad + fmt.Sprintf("/* unknown stmt: %s */", s.Kind())
	}
}

// startsAmbiguous reports whether an expression statement would re-parse
// as a different statement because of its leftmost token.
func startsAmbiguous(e ast.Expr) bool {
	for {
		switch n := e.(type) {
		case *ast.ObjectLiteral, *ast.MatchExpr:
			return true
		case *ast.BinaryExpr:
			if needsParens(n.Left, n.Op, false) {
				return false
			}
			e = n.Left
		case *ast.AssignExpr:
			e = n.Target
		case *ast.RangeExpr:
			e = n.Start
		case *ast.PostfixExpr:
			e = n.Target
		case *ast.CallExpr:
			e = n.Callee
		case *ast.MemberExpr:
			e = n.Object
		case *ast.IndexExpr:
			e = n.Object
		default:
			return false
		}
	}
}

func formatBlock(b *ast.BlockStmt, depth int) string {
	if len(b.Body) == 0 {
		return "{}"
	}
	lines := []string{"{"}
	for _, s := range b.Body {
		lines = append(lines, formatStmt(s, depth+1))
	}
	lines = append(lines, strings.Repeat(indent, depth)+"}")
	return strings.Join(lines, "\n")
}

func formatIf(n *ast.IfStmt, depth int) string {
	out := "if " + formatExpr(n.Cond, depth) + " " + formatBlock(n.Then, depth)
	switch e := n.Else.(type) {
	case *ast.IfStmt:
		out += " else " + formatIf(e, depth)
	case *ast.BlockStmt:
		out += " else " + formatBlock(e, depth)
	}
	return out
}

func formatSignature(params []ast.Param, ret ast.TypeExpr) string {
	parts := make([]string, len(params))
	for i, p := range params {
		parts[i] = p.Name
		if p.Type != nil {
			parts[i] += ": " + p.Type.String()
		}
	}
	out := "(" + strings.Join(parts, ", ") + ")"
	if ret != nil {
		out += ": " + ret.String()
	}
	return out
}

func formatStruct(n *ast.StructDecl, depth int) string {
	if len(n.Fields) == 0 && len(n.Methods) == 0 {
		return "struct " + n.Name + " {}"
	}
	inner := strings.Repeat(indent, depth+1)
	lines := []string{"struct " + n.Name + " {"}
	for _, f := range n.Fields {
		line := inner + f.Name
		if f.Type != nil {
			line += ": " + f.Type.String()
		}
		lines = append(lines, line+";")
	}
	for i, m := range n.Methods {
		if i > 0 || len(n.Fields) > 0 {
			lines = append(lines, "")
		}
		lines = append(lines, formatStmt(m, depth+1))
	}
	lines = append(lines, strings.Repeat(indent, depth)+"}")
	return strings.Join(lines, "\n")
}

func formatMatch(m *ast.MatchExpr, depth int) string {
	inner := strings.Repeat(indent, depth+1)
	lines := []string{"match " + formatExpr(m.Subject, depth) + " {"}
	for _, arm := range m.Arms {
		pattern := "_"
		if !arm.IsWildcard() {
			pattern = formatExpr(arm.Pattern, depth+1)
		}
		var body string
		switch b := arm.Body.(type) {
		case *ast.BlockStmt:
			body = formatBlock(b, depth+1)
		case *ast.ExprStmt:
			body = formatExpr(b.Expr, depth+1)
			if _, isObj := b.Expr.(*ast.ObjectLiteral); isObj {
				body = "(" + body + ")"
			}
		}
		lines = append(lines, inner+pattern+" => "+body+",")
	}
	lines = append(lines, strings.Repeat(indent, depth)+"}")
	return strings.Join(lines, "\n")
}

func formatExpr(e ast.Expr, depth int) string {
	switch n := e.(type) {
	case *ast.NumberLiteral:
		return formatNumber(n.Value)
	case *ast.StringLiteral:
		return quote(n.Value)
	case *ast.BoolLiteral:
		if n.Value {
			return "true"
		}
		return "false"
	case *ast.NilLiteral:
		return "nil"
	case *ast.Identifier:
		return n.Name
	case *ast.ArrayLiteral:
		parts := make([]string, len(n.Elements))
		for i, el := range n.Elements {
			parts[i] = formatExpr(el, depth)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *ast.ObjectLiteral:
		if len(n.Entries) == 0 {
			return "{}"
		}
		parts := make([]string, len(n.Entries))
		for i, entry := range n.Entries {
			key := entry.Key
			if !identPattern.MatchString(key) {
				key = quote(key)
			}
			parts[i] = key + ": " + formatExpr(entry.Value, depth)
		}
		return "{ " + strings.Join(parts, ", ") + " }"
	case *ast.PrefixExpr:
		operand := formatExpr(n.Operand, depth)
		if exprPrec(n.Operand) < precUnary {
			operand = "(" + operand + ")"
		}
		switch {
		case n.Op == "typeof" || n.Op == "delete":
			return n.Op + " " + operand
		case n.Op == "-" && strings.HasPrefix(operand, "-"):
			return "- " + operand
		}
		return n.Op + operand
	case *ast.BinaryExpr:
		return formatOperand(n.Left, n.Op, false, depth) + " " + n.Op + " " + formatOperand(n.Right, n.Op, true, depth)
	case *ast.RangeExpr:
		return formatOperand(n.Start, "..", false, depth) + ".." + formatOperand(n.End, "..", true, depth)
	case *ast.AssignExpr:
		target := formatExpr(n.Target, depth)
		if exprPrec(n.Target) <= precAssign {
			target = "(" + target + ")"
		}
		return target + " " + n.Op + " " + formatExpr(n.Value, depth)
	case *ast.PostfixExpr:
		return formatPostfixBase(n.Target, depth) + n.Op
	case *ast.CallExpr:
		return formatPostfixBase(n.Callee, depth) + "(" + formatArgs(n.Args, depth) + ")"
	case *ast.MemberExpr:
		return formatPostfixBase(n.Object, depth) + "." + n.Property
	case *ast.IndexExpr:
		return formatPostfixBase(n.Object, depth) + "[" + formatExpr(n.Index, depth) + "]"
	case *ast.NewExpr:
		callee := formatExpr(n.Call.Callee, depth)
		switch n.Call.Callee.(type) {
		case *ast.Identifier, *ast.MemberExpr:
		default:
			callee = "(" + callee + ")"
		}
		return "new " + callee + "(" + formatArgs(n.Call.Args, depth) + ")"
	case *ast.FunctionExpr:
		return "fn" + formatSignature(n.Params, n.ReturnType) + " " + formatBlock(n.Body, depth)
	case *ast.MatchExpr:
		return formatMatch(n, depth)
	default:
		return fmt.Sprintf("/* unknown expr: %s */", e.Kind())
	}
}

func formatOperand(child ast.Expr, op string, isRight bool, depth int) string {
	text := formatExpr(child, depth)
	if needsParens(child, op, isRight) {
		return "(" + text + ")"
	}
	return text
}

func formatPostfixBase(e ast.Expr, depth int) string {
	text := formatExpr(e, depth)
	if exprPrec(e) < precPostfix {
		return "(" + text + ")"
	}
	return text
}

func formatArgs(args []ast.Expr, depth int) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = formatExpr(a, depth)
	}
	return strings.Join(parts, ", ")
}

func formatNumber(v float64) string {
	if v == math.Trunc(v) && !math.IsInf(v, 0) && math.Abs(v) < 1e15 {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', -1, 64)
}

func quote(s string) string {
	var b strings.Builder
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\t':
			b.WriteString(`\t`)
		case '\r':
			b.WriteString(`\r`)
		case 0:
			b.WriteString(`\0`)
		default:
			if r < 0x20 {
				fmt.Fprintf(&b, `\u%04x`, r)
			} else {
				b.WriteRune(r)
			}
		}
	}
	b.WriteByte('"')
	return b.String()
}
