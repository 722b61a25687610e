package parser_test

import (
	"testing"

	"github.com/emberlang/ember/pkg/formatter"
	"github.com/emberlang/ember/pkg/parser"
)

// FuzzParse feeds random inputs to the parser to catch panics.
// The parser should never panic; it returns an error for invalid input.
func FuzzParse(f *testing.F) {
	seeds := []string{
		`let x = 42;`,
		`const a: Number = 1 + 2 * 3;`,
		`fn add(a, b) { return a + b; }`,
		`struct P { x; fn ctor(x) { this.x = x; } }`,
		`enum E { A, B }`,
		`let p = new P(1);`,
		`foreach v, i in [1, 2] { println(v); }`,
		`while x < 3 { x++; }`,
		`if a { b; } else if c { d; } else { e; }`,
		`let r = match x { 1 => "a", _ => "b" };`,
		`import * from "x.em";`,
		`let o = { a: 1, b: [1, 2] };`,
		`x ??= y ?? z;`,
		`let f = fn(x) { return x; };`,
		// Edge cases
		``,
		`let`,
		`new`,
		`match`,
		`((((`,
		`{{{{`,
		`fn`,
		`1 +`,
		`a..b..c;`,
	}
	for _, s := range seeds {
		f.Add(s)
	}

	f.Fuzz(func(t *testing.T, input string) {
		func() {
			defer func() {
				if r := recover(); r != nil {
					t.Fatalf("Parse panicked on input %q: %v", input, r)
				}
			}()
			prog, err := parser.Parse(input, "fuzz.em")
			if err == nil {
				// Whatever parses must format without panicking.
				_ = formatter.Format(prog)
			}
		}()
	})
}
