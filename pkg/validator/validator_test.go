package validator_test

import (
	"strings"
	"testing"

	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/parser"
	"github.com/emberlang/ember/pkg/validator"
)

// mustParseAndValidate parses source and validates it. It fatals on parse
// errors so test cases focus on validator behavior.
func mustParseAndValidate(t *testing.T, source string) []diagnostics.Diagnostic {
	t.Helper()
	prog, err := parser.Parse(source, "test.em")
	if err != nil {
		t.Fatalf("unexpected parse error: %v", err)
	}
	return validator.Validate(prog)
}

func describe(diags []diagnostics.Diagnostic) string {
	var msgs []string
	for _, d := range diags {
		msgs = append(msgs, d.Code+": "+d.Message)
	}
	return strings.Join(msgs, "\n  ")
}

func assertNoDiags(t *testing.T, diags []diagnostics.Diagnostic) {
	t.Helper()
	if len(diags) != 0 {
		t.Errorf("expected no diagnostics, got %d:\n  %s", len(diags), describe(diags))
	}
}

func assertDiagCount(t *testing.T, diags []diagnostics.Diagnostic, expected int) {
	t.Helper()
	if len(diags) != expected {
		t.Errorf("expected %d diagnostics, got %d:\n  %s", expected, len(diags), describe(diags))
	}
}

func assertHasCode(t *testing.T, diags []diagnostics.Diagnostic, code string) {
	t.Helper()
	for _, d := range diags {
		if d.Code == code {
			return
		}
	}
	t.Errorf("expected diagnostic code %s, got:\n  %s", code, describe(diags))
}

// ===== Valid programs =====

func TestValid_Programs(t *testing.T) {
	sources := []string{
		`let x = 1; println(x);`,
		`fn add(a, b) { return a + b; } add(1, 2);`,
		`let x = 1; if x > 0 { let x = 2; } else { let x = 3; }`,
		`foreach v, i in [1, 2] { if v == 2 { break; } continue; }`,
		`let i = 0; while i < 3 { i++; match i { 2 => { break; } _ => nil } }`,
		`struct P { x; y; fn ctor(x, y) { this.x = x; this.y = y; } fn sum() { return this.x + this.y; } }`,
		`enum Color { Red, Green }`,
		`import math; import * from "lib.em"; import helper from "util.em";`,
		`let _ = 1; let _ = 2;`,
		`fn outer() { fn inner() { return 1; } return inner(); } fn other() { fn inner() { return 2; } }`,
		`let f = fn(x) { let y = x; return y; }; let y = 2;`,
		`foreach v in [1] { let t = v; } foreach v in [2] { let t = v; }`,
	}
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			assertNoDiags(t, mustParseAndValidate(t, src))
		})
	}
}

// ===== Duplicate declarations =====

func TestDuplicate_Let(t *testing.T) {
	diags := mustParseAndValidate(t, "let x = 1;\nlet x = 2;")
	assertDiagCount(t, diags, 1)
	assertHasCode(t, diags, diagnostics.EDuplicateIdentifier)
	if diags[0].Span == nil || diags[0].Span.Line != 2 {
		t.Errorf("expected span on line 2, got %+v", diags[0].Span)
	}
}

func TestDuplicate_AcrossDeclarationKinds(t *testing.T) {
	sources := []string{
		`fn f() {} fn f() {}`,
		`let f = 1; fn f() {}`,
		`struct S { a; } const S = 1;`,
		`enum E { A } let E = 2;`,
		`import math; let math = 1;`,
		`import h from "x.em"; fn h() {}`,
	}
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			diags := mustParseAndValidate(t, src)
			assertDiagCount(t, diags, 1)
			assertHasCode(t, diags, diagnostics.EDuplicateIdentifier)
		})
	}
}

func TestDuplicate_Params(t *testing.T) {
	assertHasCode(t, mustParseAndValidate(t, `fn f(a, a) { return a; }`), diagnostics.EDuplicateIdentifier)
	assertHasCode(t, mustParseAndValidate(t, `let g = fn(b, b) { return b; };`), diagnostics.EDuplicateIdentifier)
	assertHasCode(t, mustParseAndValidate(t, `foreach v, v in [1] { }`), diagnostics.EDuplicateIdentifier)
}

func TestDuplicate_InNestedBlock(t *testing.T) {
	diags := mustParseAndValidate(t, `if true { let a = 1; let a = 2; }`)
	assertDiagCount(t, diags, 1)
	assertHasCode(t, diags, diagnostics.EDuplicateIdentifier)

	// Parameters share the function body's scope.
	diags = mustParseAndValidate(t, `fn f(a) { let a = 1; }`)
	assertDiagCount(t, diags, 1)
	assertHasCode(t, diags, diagnostics.EDuplicateIdentifier)

	diags = mustParseAndValidate(t, `fn f(a) { if true { let a = 1; } }`)
	assertDiagCount(t, diags, 0)
}

// ===== Loop control =====

func TestLoopControl_Outside(t *testing.T) {
	sources := []string{
		`break;`,
		`continue;`,
		`if true { break; }`,
		`fn f() { continue; }`,
		`while true { fn g() { break; } }`,
		`foreach v in [1] { let h = fn() { continue; }; }`,
		`match 1 { _ => { break; } }`,
	}
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			diags := mustParseAndValidate(t, src)
			assertDiagCount(t, diags, 1)
			assertHasCode(t, diags, diagnostics.ELoopControl)
		})
	}
}

func TestLoopControl_RestoredAfterFunction(t *testing.T) {
	src := `
while true {
	fn helper() { return 1; }
	if helper() > 0 { break; }
}`
	assertNoDiags(t, mustParseAndValidate(t, src))
}

// ===== Members =====

func TestDuplicateMember_Struct(t *testing.T) {
	sources := []string{
		`struct S { a; a; }`,
		`struct S { fn m() {} fn m() {} }`,
		`struct S { size; fn size() { return 0; } }`,
	}
	for _, src := range sources {
		t.Run(src, func(t *testing.T) {
			diags := mustParseAndValidate(t, src)
			assertDiagCount(t, diags, 1)
			assertHasCode(t, diags, diagnostics.EDuplicateMember)
		})
	}
}

func TestDuplicateMember_EnumAndObject(t *testing.T) {
	assertHasCode(t, mustParseAndValidate(t, `enum E { A, B, A }`), diagnostics.EDuplicateMember)
	assertHasCode(t, mustParseAndValidate(t, `let o = {k: 1, k: 2};`), diagnostics.EDuplicateMember)
}

func TestMethodBodiesAreChecked(t *testing.T) {
	diags := mustParseAndValidate(t, `struct S { fn m() { let x = 1; let x = 2; break; } }`)
	assertDiagCount(t, diags, 2)
	assertHasCode(t, diags, diagnostics.EDuplicateIdentifier)
	assertHasCode(t, diags, diagnostics.ELoopControl)
}

func TestMultipleDiagnosticsInOrder(t *testing.T) {
	diags := mustParseAndValidate(t, "break;\nlet a = 1;\nlet a = 2;\ncontinue;")
	assertDiagCount(t, diags, 3)
	want := []string{diagnostics.ELoopControl, diagnostics.EDuplicateIdentifier, diagnostics.ELoopControl}
	for i, code := range want {
		if i < len(diags) && diags[i].Code != code {
			t.Errorf("diagnostic[%d]: got %s, want %s", i, diags[i].Code, code)
		}
	}
}
