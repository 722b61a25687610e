package lexer

import (
	"fmt"

	"github.com/emberlang/ember/pkg/ast"
)

// Kind identifies the lexical category of a token.
type Kind int

const (
	EOF Kind = iota

	// Literals
	Number
	String
	Ident

	// Keywords
	Let
	Const
	Fn
	Struct
	Enum
	If
	Else
	While
	Foreach
	In
	Import
	From
	Break
	Continue
	Return
	Match
	New
	Typeof
	Delete
	True
	False
	Nil

	// Punctuation
	LParen    // (
	RParen    // )
	LBrace    // {
	RBrace    // }
	LBracket  // [
	RBracket  // ]
	Comma     // ,
	Colon     // :
	Semicolon // ;
	Dot       // .
	DotDot    // ..
	FatArrow  // =>

	// Assignment
	Assign        // =
	PlusAssign    // +=
	MinusAssign   // -=
	StarAssign    // *=
	SlashAssign   // /=
	PercentAssign // %=
	NilAssign     // ??=

	// Operators
	Plus        // +
	Minus       // -
	Star        // *
	Slash       // /
	Percent     // %
	StarStar    // **
	Eq          // ==
	NotEq       // !=
	Lt          // <
	LtEq        // <=
	Gt          // >
	GtEq        // >=
	AndAnd      // &&
	OrOr        // ||
	Bang        // !
	Amp         // &
	Pipe        // |
	Caret       // ^
	PlusPlus    // ++
	MinusMinus  // --
	NilCoalesce // ??
)

var kindNames = map[Kind]string{
	EOF:    "EOF",
	Number: "Number",
	String: "String",
	Ident:  "Identifier",
}

// Keywords maps reserved words to their token kinds.
var Keywords = map[string]Kind{
	"let":      Let,
	"const":    Const,
	"fn":       Fn,
	"struct":   Struct,
	"enum":     Enum,
	"if":       If,
	"else":     Else,
	"while":    While,
	"foreach":  Foreach,
	"in":       In,
	"import":   Import,
	"from":     From,
	"break":    Break,
	"continue": Continue,
	"return":   Return,
	"match":    Match,
	"new":      New,
	"typeof":   Typeof,
	"delete":   Delete,
	"true":     True,
	"false":    False,
	"nil":      Nil,
}

// operators lists every punctuation and operator literal. The lexer tries
// them longest first so "??=" wins over "??" and "?".
var operators = map[string]Kind{
	"(":   LParen,
	")":   RParen,
	"{":   LBrace,
	"}":   RBrace,
	"[":   LBracket,
	"]":   RBracket,
	",":   Comma,
	":":   Colon,
	";":   Semicolon,
	".":   Dot,
	"..":  DotDot,
	"=>":  FatArrow,
	"=":   Assign,
	"+=":  PlusAssign,
	"-=":  MinusAssign,
	"*=":  StarAssign,
	"/=":  SlashAssign,
	"%=":  PercentAssign,
	"??=": NilAssign,
	"+":   Plus,
	"-":   Minus,
	"*":   Star,
	"/":   Slash,
	"%":   Percent,
	"**":  StarStar,
	"==":  Eq,
	"!=":  NotEq,
	"<":   Lt,
	"<=":  LtEq,
	">":   Gt,
	">=":  GtEq,
	"&&":  AndAnd,
	"||":  OrOr,
	"!":   Bang,
	"&":   Amp,
	"|":   Pipe,
	"^":   Caret,
	"++":  PlusPlus,
	"--":  MinusMinus,
	"??":  NilCoalesce,
}

func init() {
	for word, k := range Keywords {
		kindNames[k] = word
	}
	for lit, k := range operators {
		kindNames[k] = lit
	}
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// IsKeyword reports whether k is a reserved word.
func (k Kind) IsKeyword() bool {
	return k >= Let && k <= Nil
}

// Token represents a single lexer token. For string literals Value holds
// the unescaped contents; for everything else it is the source text.
type Token struct {
	Kind  Kind
	Value string
	Span  ast.Span
}

func (t Token) String() string {
	switch t.Kind {
	case EOF:
		return "end of input"
	case String:
		return fmt.Sprintf("%q", t.Value)
	case Number, Ident:
		return fmt.Sprintf("%s '%s'", t.Kind, t.Value)
	}
	return fmt.Sprintf("'%s'", t.Value)
}
