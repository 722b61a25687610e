// Package ast defines the Ember language AST node types.
package ast

// Span represents a source location. Start and End are byte offsets.
type Span struct {
	File  string `json:"file"`
	Line  int    `json:"line"`
	Col   int    `json:"col"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// Node is the interface implemented by all AST nodes.
type Node interface {
	Kind() string
	NodeSpan() Span
}

// --- Expr is the interface for all expression nodes ---

type Expr interface {
	Node
	exprNode() // sealed marker
}

// --- Stmt is the interface for all statement nodes ---

type Stmt interface {
	Node
	stmtNode() // sealed marker
}

// --- TypeExpr is the interface for type annotation nodes ---

type TypeExpr interface {
	Node
	typeNode() // sealed marker
	String() string
}

// --- Literal Expressions ---

type NumberLiteral struct {
	Span  Span
	Value float64
}

func (n *NumberLiteral) Kind() string   { return "NumberLiteral" }
func (n *NumberLiteral) NodeSpan() Span { return n.Span }
func (n *NumberLiteral) exprNode()      {}

type StringLiteral struct {
	Span  Span
	Value string
}

func (n *StringLiteral) Kind() string   { return "StringLiteral" }
func (n *StringLiteral) NodeSpan() Span { return n.Span }
func (n *StringLiteral) exprNode()      {}

type BoolLiteral struct {
	Span  Span
	Value bool
}

func (n *BoolLiteral) Kind() string   { return "BoolLiteral" }
func (n *BoolLiteral) NodeSpan() Span { return n.Span }
func (n *BoolLiteral) exprNode()      {}

type NilLiteral struct {
	Span Span
}

func (n *NilLiteral) Kind() string   { return "NilLiteral" }
func (n *NilLiteral) NodeSpan() Span { return n.Span }
func (n *NilLiteral) exprNode()      {}

type Identifier struct {
	Span Span
	Name string
}

func (n *Identifier) Kind() string   { return "Identifier" }
func (n *Identifier) NodeSpan() Span { return n.Span }
func (n *Identifier) exprNode()      {}

// --- Collections ---

type ArrayLiteral struct {
	Span     Span
	Elements []Expr
}

func (n *ArrayLiteral) Kind() string   { return "ArrayLiteral" }
func (n *ArrayLiteral) NodeSpan() Span { return n.Span }
func (n *ArrayLiteral) exprNode()      {}

// ObjectEntry is a single key: value pair in an object literal.
type ObjectEntry struct {
	Key   string
	Value Expr
}

type ObjectLiteral struct {
	Span    Span
	Entries []ObjectEntry
}

func (n *ObjectLiteral) Kind() string   { return "ObjectLiteral" }
func (n *ObjectLiteral) NodeSpan() Span { return n.Span }
func (n *ObjectLiteral) exprNode()      {}

// --- Operators ---

type PrefixExpr struct {
	Span    Span
	Op      string // "-", "!", "typeof", "delete"
	Operand Expr
}

func (n *PrefixExpr) Kind() string   { return "PrefixExpr" }
func (n *PrefixExpr) NodeSpan() Span { return n.Span }
func (n *PrefixExpr) exprNode()      {}

type BinaryExpr struct {
	Span  Span
	Op    string
	Left  Expr
	Right Expr
}

func (n *BinaryExpr) Kind() string   { return "BinaryExpr" }
func (n *BinaryExpr) NodeSpan() Span { return n.Span }
func (n *BinaryExpr) exprNode()      {}

// AssignExpr covers plain and compound assignment. Op is "=" or the
// compound form ("+=", "??=", ...).
type AssignExpr struct {
	Span   Span
	Op     string
	Target Expr
	Value  Expr
}

func (n *AssignExpr) Kind() string   { return "AssignExpr" }
func (n *AssignExpr) NodeSpan() Span { return n.Span }
func (n *AssignExpr) exprNode()      {}

type PostfixExpr struct {
	Span   Span
	Op     string // "++" or "--"
	Target Expr
}

func (n *PostfixExpr) Kind() string   { return "PostfixExpr" }
func (n *PostfixExpr) NodeSpan() Span { return n.Span }
func (n *PostfixExpr) exprNode()      {}

type RangeExpr struct {
	Span  Span
	Start Expr
	End   Expr
}

func (n *RangeExpr) Kind() string   { return "RangeExpr" }
func (n *RangeExpr) NodeSpan() Span { return n.Span }
func (n *RangeExpr) exprNode()      {}

// --- Access & calls ---

type MemberExpr struct {
	Span     Span
	Object   Expr
	Property string
}

func (n *MemberExpr) Kind() string   { return "MemberExpr" }
func (n *MemberExpr) NodeSpan() Span { return n.Span }
func (n *MemberExpr) exprNode()      {}

type IndexExpr struct {
	Span   Span
	Object Expr
	Index  Expr
}

func (n *IndexExpr) Kind() string   { return "IndexExpr" }
func (n *IndexExpr) NodeSpan() Span { return n.Span }
func (n *IndexExpr) exprNode()      {}

type CallExpr struct {
	Span   Span
	Callee Expr
	Args   []Expr
}

func (n *CallExpr) Kind() string   { return "CallExpr" }
func (n *CallExpr) NodeSpan() Span { return n.Span }
func (n *CallExpr) exprNode()      {}

type NewExpr struct {
	Span Span
	Call *CallExpr
}

func (n *NewExpr) Kind() string   { return "NewExpr" }
func (n *NewExpr) NodeSpan() Span { return n.Span }
func (n *NewExpr) exprNode()      {}

// Param is a function parameter with an optional type annotation.
type Param struct {
	Name string
	Type TypeExpr
}

type FunctionExpr struct {
	Span       Span
	Params     []Param
	ReturnType TypeExpr
	Body       *BlockStmt
}

func (n *FunctionExpr) Kind() string   { return "FunctionExpr" }
func (n *FunctionExpr) NodeSpan() Span { return n.Span }
func (n *FunctionExpr) exprNode()      {}

// MatchArm is one `pattern => body` arm. A nil Pattern is the wildcard `_`.
// Body is either a *BlockStmt or an *ExprStmt.
type MatchArm struct {
	Span    Span
	Pattern Expr
	Body    Stmt
}

func (n *MatchArm) Kind() string   { return "MatchArm" }
func (n *MatchArm) NodeSpan() Span { return n.Span }

// IsWildcard reports whether the arm matches anything.
func (n *MatchArm) IsWildcard() bool { return n.Pattern == nil }

type MatchExpr struct {
	Span    Span
	Subject Expr
	Arms    []*MatchArm
}

func (n *MatchExpr) Kind() string   { return "MatchExpr" }
func (n *MatchExpr) NodeSpan() Span { return n.Span }
func (n *MatchExpr) exprNode()      {}

// --- Statements ---

type BlockStmt struct {
	Span Span
	Body []Stmt
}

func (n *BlockStmt) Kind() string   { return "BlockStmt" }
func (n *BlockStmt) NodeSpan() Span { return n.Span }
func (n *BlockStmt) stmtNode()      {}

type ExprStmt struct {
	Span Span
	Expr Expr
}

func (n *ExprStmt) Kind() string   { return "ExprStmt" }
func (n *ExprStmt) NodeSpan() Span { return n.Span }
func (n *ExprStmt) stmtNode()      {}

type VarDecl struct {
	Span  Span
	Name  string
	Const bool
	Type  TypeExpr
	Value Expr // nil when declared without initializer
}

func (n *VarDecl) Kind() string   { return "VarDecl" }
func (n *VarDecl) NodeSpan() Span { return n.Span }
func (n *VarDecl) stmtNode()      {}

type FunctionDecl struct {
	Span       Span
	Name       string
	Params     []Param
	ReturnType TypeExpr
	Body       *BlockStmt
}

func (n *FunctionDecl) Kind() string   { return "FunctionDecl" }
func (n *FunctionDecl) NodeSpan() Span { return n.Span }
func (n *FunctionDecl) stmtNode()      {}

// ParamNames returns the parameter names in declaration order.
func (n *FunctionDecl) ParamNames() []string {
	names := make([]string, len(n.Params))
	for i, p := range n.Params {
		names[i] = p.Name
	}
	return names
}

// IfStmt holds an optional Else that is either a *BlockStmt or another *IfStmt.
type IfStmt struct {
	Span Span
	Cond Expr
	Then *BlockStmt
	Else Stmt
}

func (n *IfStmt) Kind() string   { return "IfStmt" }
func (n *IfStmt) NodeSpan() Span { return n.Span }
func (n *IfStmt) stmtNode()      {}

type WhileStmt struct {
	Span Span
	Cond Expr
	Body *BlockStmt
}

func (n *WhileStmt) Kind() string   { return "WhileStmt" }
func (n *WhileStmt) NodeSpan() Span { return n.Span }
func (n *WhileStmt) stmtNode()      {}

type ForeachStmt struct {
	Span     Span
	Value    string
	Index    string // empty when no index binding was written
	Iterable Expr
	Body     *BlockStmt
}

func (n *ForeachStmt) Kind() string   { return "ForeachStmt" }
func (n *ForeachStmt) NodeSpan() Span { return n.Span }
func (n *ForeachStmt) stmtNode()      {}

// ImportStmt covers `import name;`, `import name from "path";` and
// `import * from "path";`.
type ImportStmt struct {
	Span     Span
	Name     string
	Wildcard bool
	Path     string
}

func (n *ImportStmt) Kind() string   { return "ImportStmt" }
func (n *ImportStmt) NodeSpan() Span { return n.Span }
func (n *ImportStmt) stmtNode()      {}

// Field is a declared struct field.
type Field struct {
	Name string
	Type TypeExpr
}

type StructDecl struct {
	Span    Span
	Name    string
	Fields  []Field
	Methods []*FunctionDecl
}

func (n *StructDecl) Kind() string   { return "StructDecl" }
func (n *StructDecl) NodeSpan() Span { return n.Span }
func (n *StructDecl) stmtNode()      {}

type EnumDecl struct {
	Span    Span
	Name    string
	Members []string
}

func (n *EnumDecl) Kind() string   { return "EnumDecl" }
func (n *EnumDecl) NodeSpan() Span { return n.Span }
func (n *EnumDecl) stmtNode()      {}

type MatchStmt struct {
	Span  Span
	Match *MatchExpr
}

func (n *MatchStmt) Kind() string   { return "MatchStmt" }
func (n *MatchStmt) NodeSpan() Span { return n.Span }
func (n *MatchStmt) stmtNode()      {}

type BreakStmt struct {
	Span Span
}

func (n *BreakStmt) Kind() string   { return "BreakStmt" }
func (n *BreakStmt) NodeSpan() Span { return n.Span }
func (n *BreakStmt) stmtNode()      {}

type ContinueStmt struct {
	Span Span
}

func (n *ContinueStmt) Kind() string   { return "ContinueStmt" }
func (n *ContinueStmt) NodeSpan() Span { return n.Span }
func (n *ContinueStmt) stmtNode()      {}

type ReturnStmt struct {
	Span  Span
	Value Expr // nil for a bare `return;`
}

func (n *ReturnStmt) Kind() string   { return "ReturnStmt" }
func (n *ReturnStmt) NodeSpan() Span { return n.Span }
func (n *ReturnStmt) stmtNode()      {}

// --- Types ---

type NamedType struct {
	Span Span
	Name string
}

func (n *NamedType) Kind() string   { return "NamedType" }
func (n *NamedType) NodeSpan() Span { return n.Span }
func (n *NamedType) typeNode()      {}
func (n *NamedType) String() string { return n.Name }

type ListType struct {
	Span Span
	Elem TypeExpr
}

func (n *ListType) Kind() string   { return "ListType" }
func (n *ListType) NodeSpan() Span { return n.Span }
func (n *ListType) typeNode()      {}
func (n *ListType) String() string { return "[]" + n.Elem.String() }
