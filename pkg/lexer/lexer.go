// Package lexer implements the Ember tokenizer.
package lexer

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/emberlang/ember/pkg/ast"
	"github.com/emberlang/ember/pkg/diagnostics"
)

// Error wraps a diagnostic for lex errors.
type Error struct {
	Diag diagnostics.Diagnostic
}

func (e *Error) Error() string {
	return e.Diag.Message
}

type ruleAction int

const (
	actSkip ruleAction = iota
	actString
	actMultiline
	actNumber
	actWord
)

type rule struct {
	pattern *regexp.Regexp
	action  ruleAction
}

// rules are tried in order at every position before the operator table.
var rules = []rule{
	{regexp.MustCompile(`\A[ \t\r\n]+`), actSkip},
	{regexp.MustCompile(`\A//[^\n]*`), actSkip},
	{regexp.MustCompile(`\A"""(?s:.*?)"""`), actMultiline},
	{regexp.MustCompile(`\A"(?:[^"\\\n]|\\.)*"`), actString},
	{regexp.MustCompile(`\A[0-9]+(?:\.[0-9]+)?`), actNumber},
	{regexp.MustCompile(`\A[A-Za-z_][A-Za-z0-9_]*`), actWord},
}

// operatorsByLength holds the operator literals longest first.
var operatorsByLength = func() []string {
	ops := make([]string, 0, len(operators))
	for op := range operators {
		ops = append(ops, op)
	}
	sort.Slice(ops, func(i, j int) bool {
		if len(ops[i]) != len(ops[j]) {
			return len(ops[i]) > len(ops[j])
		}
		return ops[i] < ops[j]
	})
	return ops
}()

type scanner struct {
	source    string
	filename  string
	pos       int
	line      int
	lineStart int
}

func (s *scanner) spanAt(start, end, line, lineStart int) ast.Span {
	return ast.Span{
		File:  s.filename,
		Line:  line,
		Col:   start - lineStart + 1,
		Start: start,
		End:   end,
	}
}

// consume advances past n bytes, counting the newlines inside them.
func (s *scanner) consume(n int) {
	text := s.source[s.pos : s.pos+n]
	for i := 0; i < len(text); i++ {
		if text[i] == '\n' {
			s.line++
			s.lineStart = s.pos + i + 1
		}
	}
	s.pos += n
}

func (s *scanner) errorAt(code string, start int, msg string) error {
	span := s.spanAt(start, start+1, s.line, s.lineStart)
	return &Error{Diag: diagnostics.MakeDiag(code, msg, &span, "")}
}

func (s *scanner) next() (Token, bool, error) {
	rest := s.source[s.pos:]
	start, line, lineStart := s.pos, s.line, s.lineStart

	for _, r := range rules {
		loc := r.pattern.FindStringIndex(rest)
		if loc == nil {
			continue
		}
		text := rest[:loc[1]]
		var tok Token
		switch r.action {
		case actSkip:
			s.consume(len(text))
			return Token{}, false, nil
		case actString:
			value, err := s.unescape(text[1:len(text)-1], start)
			if err != nil {
				return Token{}, false, err
			}
			tok = Token{Kind: String, Value: value}
		case actMultiline:
			value, err := s.unescape(text[3:len(text)-3], start)
			if err != nil {
				return Token{}, false, err
			}
			tok = Token{Kind: String, Value: value}
		case actNumber:
			tok = Token{Kind: Number, Value: text}
		case actWord:
			kind := Ident
			if kw, ok := Keywords[text]; ok {
				kind = kw
			}
			tok = Token{Kind: kind, Value: text}
		}
		s.consume(len(text))
		tok.Span = s.spanAt(start, s.pos, line, lineStart)
		return tok, true, nil
	}

	if rest[0] == '"' {
		return Token{}, false, s.errorAt(diagnostics.EUnterminated, start, "unterminated string literal")
	}

	for _, op := range operatorsByLength {
		if strings.HasPrefix(rest, op) {
			s.consume(len(op))
			return Token{
				Kind:  operators[op],
				Value: op,
				Span:  s.spanAt(start, s.pos, line, lineStart),
			}, true, nil
		}
	}

	ch := rest[0]
	return Token{}, false, s.errorAt(diagnostics.EUnrecognizedToken, start,
		fmt.Sprintf("unrecognized token %q (byte 0x%02x) at offset %d, line %d", rune(ch), ch, start, s.line))
}

// unescape processes backslash escapes. Errors are reported at base, the
// offset of the literal's opening quote.
func (s *scanner) unescape(body string, base int) (string, error) {
	if !strings.ContainsRune(body, '\\') {
		return body, nil
	}
	var buf strings.Builder
	for i := 0; i < len(body); i++ {
		ch := body[i]
		if ch != '\\' {
			buf.WriteByte(ch)
			continue
		}
		i++
		if i >= len(body) {
			return "", s.errorAt(diagnostics.EInvalidEscape, base, "dangling escape at end of string")
		}
		switch body[i] {
		case 'n':
			buf.WriteByte('\n')
		case 't':
			buf.WriteByte('\t')
		case 'r':
			buf.WriteByte('\r')
		case '0':
			buf.WriteByte(0)
		case '"':
			buf.WriteByte('"')
		case '\'':
			buf.WriteByte('\'')
		case '\\':
			buf.WriteByte('\\')
		case 'u':
			if i+5 > len(body) {
				return "", s.errorAt(diagnostics.EInvalidEscape, base, "incomplete unicode escape")
			}
			hex := body[i+1 : i+5]
			cp, err := strconv.ParseUint(hex, 16, 32)
			if err != nil {
				return "", s.errorAt(diagnostics.EInvalidEscape, base, fmt.Sprintf("invalid unicode escape: \\u%s", hex))
			}
			buf.WriteRune(rune(cp))
			i += 4
		default:
			return "", s.errorAt(diagnostics.EInvalidEscape, base, fmt.Sprintf("invalid escape character: \\%c", body[i]))
		}
	}
	return buf.String(), nil
}

// Tokenize breaks source code into a slice of tokens ending with EOF.
func Tokenize(source, filename string) ([]Token, error) {
	s := &scanner{source: source, filename: filename, line: 1}
	var tokens []Token
	for s.pos < len(s.source) {
		tok, ok, err := s.next()
		if err != nil {
			return nil, err
		}
		if ok {
			tokens = append(tokens, tok)
		}
	}
	tokens = append(tokens, Token{
		Kind: EOF,
		Span: s.spanAt(s.pos, s.pos, s.line, s.lineStart),
	})
	return tokens, nil
}
