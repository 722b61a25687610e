package evaluator_test

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/evaluator"
	"github.com/emberlang/ember/pkg/parser"
	"github.com/emberlang/ember/pkg/stdlib"
)

// --- Helpers ---

type harness struct {
	in     *evaluator.Interpreter
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newHarness(t *testing.T, configure func(*evaluator.Options)) *harness {
	t.Helper()
	reg := stdlib.Default()
	h := &harness{stdout: &bytes.Buffer{}, stderr: &bytes.Buffer{}}
	opts := evaluator.Options{
		Builtins:   reg.Builtins(),
		Modules:    reg.Modules(),
		StdStructs: reg.Structs(),
		Stdout:     h.stdout,
		Stderr:     h.stderr,
	}
	if configure != nil {
		configure(&opts)
	}
	in, err := evaluator.New(opts)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	h.in = in
	return h
}

func (h *harness) run(t *testing.T, source string) (evaluator.Value, error) {
	t.Helper()
	prog, err := parser.Parse(source, "test.em")
	if err != nil {
		t.Fatalf("parse error: %v", err)
	}
	return h.in.Run(prog)
}

func run(t *testing.T, source string) (evaluator.Value, error) {
	t.Helper()
	return newHarness(t, nil).run(t, source)
}

func mustRun(t *testing.T, source string) evaluator.Value {
	t.Helper()
	val, err := run(t, source)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return val
}

func expectNumber(t *testing.T, val evaluator.Value, expected float64) {
	t.Helper()
	n, ok := evaluator.Raw(val).(evaluator.Number)
	if !ok {
		t.Fatalf("expected Number, got %T (%s)", val, evaluator.ToString(val))
	}
	if n.Value != expected {
		t.Errorf("got %v, want %v", n.Value, expected)
	}
}

func expectString(t *testing.T, val evaluator.Value, expected string) {
	t.Helper()
	s, ok := evaluator.Raw(val).(evaluator.String)
	if !ok {
		t.Fatalf("expected String, got %T (%s)", val, evaluator.ToString(val))
	}
	if s.Value != expected {
		t.Errorf("got %q, want %q", s.Value, expected)
	}
}

func expectBool(t *testing.T, val evaluator.Value, expected bool) {
	t.Helper()
	b, ok := evaluator.Raw(val).(evaluator.Boolean)
	if !ok {
		t.Fatalf("expected Boolean, got %T (%s)", val, evaluator.ToString(val))
	}
	if b.Value != expected {
		t.Errorf("got %v, want %v", b.Value, expected)
	}
}

func expectNil(t *testing.T, val evaluator.Value) {
	t.Helper()
	if _, ok := evaluator.Raw(val).(evaluator.Nil); !ok {
		t.Errorf("expected nil, got %T (%s)", val, evaluator.ToString(val))
	}
}

func expectRendered(t *testing.T, val evaluator.Value, expected string) {
	t.Helper()
	if got := evaluator.ToString(val); got != expected {
		t.Errorf("got %s, want %s", got, expected)
	}
}

func expectRuntimeError(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error %s, got nil", code)
	}
	var re *evaluator.RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected RuntimeError, got %T: %v", err, err)
	}
	if re.Code != code {
		t.Errorf("expected code %s, got %s (%s)", code, re.Code, re.Message)
	}
}

func expectErrorCode(t *testing.T, source, code string) {
	t.Helper()
	_, err := run(t, source)
	expectRuntimeError(t, err, code)
}

// --- 1. Arithmetic and operators ---

func TestArithmetic_Precedence(t *testing.T) {
	expectNumber(t, mustRun(t, "2 + 3 * 7;"), 23)
	expectNumber(t, mustRun(t, "(2 + 3) * 7;"), 35)
	expectNumber(t, mustRun(t, "2 ** 3;"), 8)
	expectNumber(t, mustRun(t, "2 ** 3 ** 2;"), 512)
	expectNumber(t, mustRun(t, "10 - 4 - 3;"), 3)
	expectNumber(t, mustRun(t, "7 % 4;"), 3)
	expectNumber(t, mustRun(t, "-(1 + 2);"), -3)
}

func TestArithmetic_DivisionByZero(t *testing.T) {
	expectErrorCode(t, "1 / 0;", diagnostics.EDivisionByZero)
	expectErrorCode(t, "5 % 0;", diagnostics.EDivisionByZero)
}

func TestArithmetic_Bitwise(t *testing.T) {
	expectNumber(t, mustRun(t, "6 & 3;"), 2)
	expectNumber(t, mustRun(t, "6 | 3;"), 7)
	expectNumber(t, mustRun(t, "6 ^ 3;"), 5)
}

func TestOperators_StringConcat(t *testing.T) {
	expectString(t, mustRun(t, `"Answer: " + (2 + 2);`), "Answer: 4")
	expectString(t, mustRun(t, `"list " + [1, "a"];`), `list [1, "a"]`)
	expectErrorCode(t, `1 + "a";`, diagnostics.ETypeMismatch)
}

func TestOperators_ArrayConcat(t *testing.T) {
	expectRendered(t, mustRun(t, "[1] + [2, 3];"), "[1, 2, 3]")
	expectRendered(t, mustRun(t, "let a = [1]; let b = a + [2]; a;"), "[1]")
}

func TestOperators_Comparison(t *testing.T) {
	expectBool(t, mustRun(t, "1 < 2;"), true)
	expectBool(t, mustRun(t, `"b" >= "a";`), true)
	expectBool(t, mustRun(t, "[1, 2] == [1, 2];"), true)
	expectBool(t, mustRun(t, `1 != "1";`), true)
	expectErrorCode(t, `1 < "a";`, diagnostics.ETypeMismatch)
	expectErrorCode(t, "nil > 0;", diagnostics.ETypeMismatch)
}

func TestOperators_Logic(t *testing.T) {
	expectBool(t, mustRun(t, "1 && 0;"), false)
	expectBool(t, mustRun(t, `0 || "x";`), true)
	expectBool(t, mustRun(t, "false && missing;"), false)
	expectBool(t, mustRun(t, "true || missing;"), true)
	expectBool(t, mustRun(t, "!-1;"), true)
}

func TestOperators_NilCoalesce(t *testing.T) {
	expectNumber(t, mustRun(t, "nil ?? 3;"), 3)
	expectNumber(t, mustRun(t, "0 ?? 3;"), 0)
	expectNumber(t, mustRun(t, "let a; a ??= 4; a;"), 4)
	expectNumber(t, mustRun(t, "let b = 1; b ??= missing; b;"), 1)
}

func TestOperators_CompoundAndPostfix(t *testing.T) {
	expectNumber(t, mustRun(t, "let x = 10; x += 5; x -= 3; x *= 2; x /= 4; x;"), 6)
	expectRendered(t, mustRun(t, "let i = 5; let j = i++; [i, j];"), "[6, 5]")
	expectRendered(t, mustRun(t, "let i = 5; let j = i--; [i, j];"), "[4, 5]")
	expectRendered(t, mustRun(t, "let xs = [1, 2]; xs[1]++; xs;"), "[1, 3]")
	expectRendered(t, mustRun(t, "let o = {n: 1}; o.n += 1; o;"), "{n: 2}")
	expectErrorCode(t, `let s = "a"; s++;`, diagnostics.ETypeMismatch)
}

func TestOperators_Range(t *testing.T) {
	expectRendered(t, mustRun(t, "0..4;"), "[0, 1, 2, 3]")
	expectRendered(t, mustRun(t, "3..1;"), "[]")
	expectErrorCode(t, `0.."a";`, diagnostics.ETypeMismatch)
}

// --- 2. Bindings ---

func TestBindings_Const(t *testing.T) {
	expectErrorCode(t, "const x = 1; x = 2;", diagnostics.EConstReassign)
	expectErrorCode(t, "let x = 1; let x = 2;", diagnostics.EDuplicateIdentifier)
	expectErrorCode(t, "fn f(a) { let a = 1; } f(1);", diagnostics.EDuplicateIdentifier)
	expectErrorCode(t, "y;", diagnostics.EUndefinedValue)
	expectErrorCode(t, "y = 1;", diagnostics.EUndefinedValue)
}

func TestBindings_Shadowing(t *testing.T) {
	expectNumber(t, mustRun(t, "let x = 1; if true { let x = 2; } x;"), 1)
	expectNumber(t, mustRun(t, "let x = 1; if true { x = 2; } x;"), 2)
}

func TestBindings_InvalidTarget(t *testing.T) {
	expectErrorCode(t, "1 = 2;", diagnostics.EInvalidAssignTarget)
	expectErrorCode(t, "f() = 2;", diagnostics.EInvalidAssignTarget)
}

func TestBindings_Delete(t *testing.T) {
	expectRendered(t, mustRun(t, "let o = {a: 1, b: 2}; delete o.a; o;"), "{b: 2}")
	expectRendered(t, mustRun(t, `let o = {a: 1, b: 2}; delete o["b"]; o;`), "{a: 1}")
	expectRendered(t, mustRun(t, "let xs = [1, 2, 3]; delete xs[0]; xs;"), "[2, 3]")
	expectNumber(t, mustRun(t, "let v = 7; delete v;"), 7)
	expectErrorCode(t, "let v = 1; delete v; v;", diagnostics.EUndefinedValue)
	expectErrorCode(t, "const c = 1; delete c;", diagnostics.EConstReassign)
	expectErrorCode(t, "let o = {}; delete o.zzz;", diagnostics.EPropertyNotFound)
}

// --- 3. Control flow ---

func TestControl_IfElse(t *testing.T) {
	expectString(t, mustRun(t, `if -1 { "yes"; } else { "no"; }`), "no")
	expectString(t, mustRun(t, `let n = 5; if n > 10 { "big"; } else if n > 3 { "mid"; } else { "small"; }`), "mid")
	expectNil(t, mustRun(t, `if false { 1; }`))
}

func TestControl_WhileScopeIsolation(t *testing.T) {
	expectNumber(t, mustRun(t, "let i = 0; while i < 3 { let x = i; i++; } i;"), 3)
	expectErrorCode(t, "let i = 0; while i < 3 { let x = i; i++; } x;", diagnostics.EUndefinedValue)
}

func TestControl_BreakContinue(t *testing.T) {
	src := `
let total = 0;
foreach v in [1, 2, 3, 4, 5] {
	if v == 2 { continue; }
	if v == 4 { break; }
	total += v;
}
total;`
	expectNumber(t, mustRun(t, src), 4)

	expectNumber(t, mustRun(t, "let i = 0; while true { i++; if i >= 7 { break; } } i;"), 7)
}

func TestControl_ReturnFromLoop(t *testing.T) {
	src := `
fn find(xs, target) {
	foreach v, i in xs {
		if v == target { return i; }
	}
	return -1;
}
[find([5, 6, 7], 7), find([5, 6, 7], 9)];`
	expectRendered(t, mustRun(t, src), "[2, -1]")
}

func TestControl_ForeachSources(t *testing.T) {
	expectString(t, mustRun(t, `let s = ""; foreach c in "abc" { s = c + s; } s;`), "cba")
	expectString(t, mustRun(t, `let s = ""; foreach k in {b: 1, a: 2} { s += k; } s;`), "ab")
	expectNumber(t, mustRun(t, "let n = 0; foreach v in 1..5 { n += v; } n;"), 10)
	expectErrorCode(t, "foreach v in 5 { }", diagnostics.ETypeMismatch)
}

func TestControl_ForeachSnapshot(t *testing.T) {
	expectNumber(t, mustRun(t, "let xs = [1, 2]; let n = 0; foreach v in xs { push(xs, v); n++; } n;"), 2)
}

func TestControl_TopLevelReturn(t *testing.T) {
	expectNumber(t, mustRun(t, "return 5; 6;"), 5)
	expectNil(t, mustRun(t, "break;"))
}

// --- 4. Functions ---

func TestFunctions_Recursion(t *testing.T) {
	src := `
fn fib(n) {
	if n < 2 { return n; }
	return fib(n - 1) + fib(n - 2);
}
fib(10);`
	expectNumber(t, mustRun(t, src), 55)
}

func TestFunctions_Closures(t *testing.T) {
	src := `
fn makeCounter() {
	let n = 0;
	return fn() { n += 1; return n; };
}
let c = makeCounter();
let d = makeCounter();
c(); c(); d();
c();`
	expectNumber(t, mustRun(t, src), 3)
}

func TestFunctions_ImplicitResult(t *testing.T) {
	expectNumber(t, mustRun(t, "fn f() { 1; } f();"), 1)
	expectNil(t, mustRun(t, "fn f() { return; } f();"))
	expectNil(t, mustRun(t, "fn f() { let x = 1; } f();"))
}

func TestFunctions_Arity(t *testing.T) {
	expectErrorCode(t, "fn f(a, b) { return a; } f(1);", diagnostics.EArityMismatch)
	expectErrorCode(t, "let f = fn(a) { return a; }; f(1, 2);", diagnostics.EArityMismatch)
}

func TestFunctions_NotCallable(t *testing.T) {
	expectErrorCode(t, "let x = 5; x();", diagnostics.EInvalidCallTarget)
	expectErrorCode(t, "struct P { a; } P();", diagnostics.EInvalidCallTarget)
}

func TestFunctions_BuiltinAsValue(t *testing.T) {
	expectNumber(t, mustRun(t, "let f = len; f([1, 2, 3]);"), 3)
	expectRendered(t, mustRun(t, `map(["a", "bb"], len);`), "[1, 2]")
}

func TestFunctions_ReferenceParam(t *testing.T) {
	src := `
fn bump(r) { r = r + 1; }
let x = 1;
bump(ref(x));
bump(ref(x));
x;`
	expectNumber(t, mustRun(t, src), 3)
}

// --- 5. Structs ---

const greeterSrc = `
struct Greeter {
	name: String;
	fn ctor(name) { this.name = name; }
	fn greet() { return "hi " + this.name; }
}
`

func TestStructs_ConstructorAndMethods(t *testing.T) {
	expectString(t, mustRun(t, greeterSrc+`new Greeter("ann").greet();`), "hi ann")
	expectString(t, mustRun(t, greeterSrc+`let g = new Greeter("ann"); g.name;`), "ann")
	expectString(t, mustRun(t, greeterSrc+`let g = new Greeter("ann"); g.name = "bo"; g.greet();`), "hi bo")
}

func TestStructs_BoundMethod(t *testing.T) {
	expectString(t, mustRun(t, greeterSrc+`let g = new Greeter("ann"); let greet = g.greet; greet();`), "hi ann")
}

func TestStructs_FieldsStartNil(t *testing.T) {
	expectNil(t, mustRun(t, "struct P { x; y; } let p = new P(); p.y;"))
	expectRendered(t, mustRun(t, "struct P { x; y; } new P();"), "P {x: nil, y: nil}")
}

func TestStructs_Errors(t *testing.T) {
	expectErrorCode(t, greeterSrc+`new Greeter();`, diagnostics.EInvalidConstructorArity)
	expectErrorCode(t, "struct E { a; } new E(1);", diagnostics.EInvalidConstructorArity)
	expectErrorCode(t, "let n = 5; new n();", diagnostics.EInvalidConstructor)
	expectErrorCode(t, greeterSrc+`let g = new Greeter("a"); g.shout();`, diagnostics.EPropertyNotFound)
	expectErrorCode(t, greeterSrc+`let g = new Greeter("a"); g.name = 5;`, diagnostics.ETypeMismatch)
	expectErrorCode(t, greeterSrc+`let g = new Greeter("a"); g.greet(1);`, diagnostics.EArityMismatch)
}

func TestStructs_ThisIsConstant(t *testing.T) {
	expectErrorCode(t, "struct P { x; fn reset() { this = 1; } } new P().reset();", diagnostics.EConstReassign)
}

const bagSrc = `
struct Bag {
	data;
	fn ctor() { this.data = []; }
	fn add(x) { push(this.data, x); }
	fn size() { return len(this.data); }
	fn items() { return this.data; }
	fn str() { return "Bag(" + len(this.data) + ")"; }
}
let b = new Bag();
`

func TestStructs_Hooks(t *testing.T) {
	expectNumber(t, mustRun(t, bagSrc+"b.add(1); b.add(2); let total = 0; foreach v in b { total += v; } total;"), 3)
	expectNumber(t, mustRun(t, bagSrc+"b.add(1); b.add(2); len(b);"), 2)
	expectString(t, mustRun(t, bagSrc+"b.add(1); str(b);"), "Bag(1)")
	expectString(t, mustRun(t, bagSrc+`"got " + b;`), "got Bag(0)")
	expectBool(t, mustRun(t, bagSrc+"!b;"), true)
	expectString(t, mustRun(t, bagSrc+`b.add(9); if b { "full"; } else { "empty"; }`), "full")

	h := newHarness(t, nil)
	if _, err := h.run(t, bagSrc+"b.add(1); println([b]);"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := h.stdout.String(); got != "[Bag(1)]\n" {
		t.Errorf("stdout = %q", got)
	}
}

func TestStructs_InstancesWithoutHooks(t *testing.T) {
	expectBool(t, mustRun(t, "struct P { x; } !!new P();"), false)
	expectErrorCode(t, "struct P { x; } foreach v in new P() { }", diagnostics.ETypeMismatch)
	expectErrorCode(t, "struct P { x; } len(new P());", diagnostics.ETypeMismatch)
}

func TestStructs_SizeTruthiness(t *testing.T) {
	tests := []struct {
		name string
		size string
		want bool
	}{
		{"positive", "fn size() { return 3; }", true},
		{"zero", "fn size() { return 0; }", false},
		{"negative", "fn size() { return -1; }", true},
		{"string result", `fn size() { return "abc"; }`, false},
		{"nil result", "fn size() { return nil; }", false},
		{"takes a parameter", "fn size(x) { return 1; }", false},
		{"no size method", "fn other() { return 1; }", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			src := "struct S { " + tt.size + " } let r = false; if new S() { r = true; } r;"
			expectBool(t, mustRun(t, src), tt.want)
		})
	}
	expectBool(t, mustRun(t, "struct P { x; } let r = false; if P { r = true; } r;"), false)
	expectBool(t, mustRun(t, "struct P { x; } !!{a: new P()};"), true)
}

// --- 6. Enums and match ---

func TestEnum(t *testing.T) {
	expectNumber(t, mustRun(t, "enum Color { Red, Green, Blue } Color.Blue;"), 2)
	expectErrorCode(t, "enum Color { Red } Color = 1;", diagnostics.EConstReassign)
}

func TestMatch_Expression(t *testing.T) {
	src := `let r = match x { 1 => "one", 2 => "two", _ => "other" }; r;`
	expectString(t, mustRun(t, "let x = 2; "+src), "two")
	expectString(t, mustRun(t, "let x = 9; "+src), "other")
	expectNil(t, mustRun(t, `let x = 3; match x { 1 => "one" }`))
	expectString(t, mustRun(t, `enum C { A, B } let c = C.B; match c { C.A => "a", C.B => { "b"; } }`), "b")
}

func TestMatch_StatementReturns(t *testing.T) {
	src := `
fn label(x) {
	match x {
		1 => { return "a"; }
		_ => { return "b"; }
	}
	return "unreachable";
}
label(1) + label(2);`
	expectString(t, mustRun(t, src), "ab")
}

func TestMatch_ExpressionLoopControl(t *testing.T) {
	brk := `
let n = 0;
while n < 3 {
	n++;
	let x = match n { 2 => { break; }, _ => 0 };
}
n;`
	expectNumber(t, mustRun(t, brk), 2)

	cont := `
let n = 0;
let sum = 0;
while n < 4 {
	n++;
	sum += match n { 2 => { continue; }, _ => n };
}
sum;`
	expectNumber(t, mustRun(t, cont), 8)

	nested := `
let hits = 0;
foreach v in [1, 2, 3] {
	foreach w in [1, 2] {
		let x = match w { 2 => { break; }, _ => w };
		hits++;
	}
}
hits;`
	expectNumber(t, mustRun(t, nested), 3)

	expectNumber(t, mustRun(t, `fn f(x) { return match x { 1 => { return 7; }, _ => 0 }; } f(1);`), 7)
}

// --- 7. typeof and typed values ---

func TestTypeof(t *testing.T) {
	expectRendered(t, mustRun(t, "typeof 1;"), `("any", "Number")`)
	expectRendered(t, mustRun(t, "let t: Number = 1; typeof t;"), `("typed_val", "Number")`)
	expectRendered(t, mustRun(t, "let x = 1; typeof ref(x);"), `("ambiguous", "Number")`)
	expectRendered(t, mustRun(t, "typeof new Set();"), `("std_instance", "Set")`)
	expectString(t, mustRun(t, "(typeof [1]).second;"), "Array")
	expectErrorCode(t, "(typeof 1).third;", diagnostics.EPropertyNotFound)
}

func TestTyped_Declarations(t *testing.T) {
	expectNumber(t, mustRun(t, "let x: Number = 2; x * 3;"), 6)
	expectNil(t, mustRun(t, "let x: Number; x;"))
	expectErrorCode(t, `let x: Number = "a";`, diagnostics.ETypeMismatch)
	expectErrorCode(t, `let x: Number = 1; x = "s";`, diagnostics.ETypeMismatch)
	expectErrorCode(t, `let xs: []Number = [1, "a"];`, diagnostics.ETypeMismatch)
	expectRendered(t, mustRun(t, "let xs: []Number = [1, 2]; xs;"), "[1, 2], type []Number")
	expectRendered(t, mustRun(t, "let x: Number = 1; let y = x; y;"), "1")
}

func TestTyped_Functions(t *testing.T) {
	expectNumber(t, mustRun(t, "fn f(n: Number): Number { return n + 1; } f(1);"), 2)
	expectErrorCode(t, `fn f(n: Number) { return n; } f("a");`, diagnostics.ETypeMismatch)
	expectErrorCode(t, "fn f(): String { return 1; } f();", diagnostics.ETypeMismatch)
}

func TestTyped_Structs(t *testing.T) {
	expectErrorCode(t, "struct A { v; } struct B { v; } let a: A = new B();", diagnostics.ETypeMismatch)
	expectRendered(t, mustRun(t, "struct A { v; } let a: A = new A(); typeof a;"), `("typed_val", "A")`)
	expectErrorCode(t, "let s: Set = new Stack();", diagnostics.ETypeMismatch)
	expectNumber(t, mustRun(t, "let q: Unknown = 5; q;"), 5)
}

// --- 8. Indexing ---

func TestIndexing(t *testing.T) {
	expectNumber(t, mustRun(t, "[10, 20][1];"), 20)
	expectString(t, mustRun(t, `"héllo"[1];`), "é")
	expectNumber(t, mustRun(t, `let o = {a: 1}; o["a"];`), 1)
	expectRendered(t, mustRun(t, "let xs = [1, 2]; xs[0] = 9; xs;"), "[9, 2]")
	expectRendered(t, mustRun(t, `let o = {}; o["k"] = 1; o;`), "{k: 1}")

	expectErrorCode(t, "[1, 2][2];", diagnostics.EIndexOutOfBounds)
	expectErrorCode(t, "[1, 2][-1];", diagnostics.EIndexOutOfBounds)
	expectErrorCode(t, "[1][0.5];", diagnostics.ETypeMismatch)
	expectErrorCode(t, `"ab"[5];`, diagnostics.EIndexOutOfBounds)
	expectErrorCode(t, "let o = {a: 1}; o.b;", diagnostics.EPropertyNotFound)
	expectErrorCode(t, "let n = 1; n.x;", diagnostics.EPropertyNotFound)
}

func TestArraysShareStorage(t *testing.T) {
	expectRendered(t, mustRun(t, "let a = [1]; let b = a; push(b, 2); a;"), "[1, 2]")
}

// --- 9. Imports ---

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

const libSrc = `
const greeting = "hello";
fn greet(name) { return greeting + ", " + name; }
println("side effect");
`

func importHarness(t *testing.T) (*harness, string) {
	t.Helper()
	dir := t.TempDir()
	return newHarness(t, func(o *evaluator.Options) { o.BaseDir = dir }), dir
}

func TestImport_Named(t *testing.T) {
	h, dir := importHarness(t)
	writeFile(t, dir, "lib.em", libSrc)

	val, err := h.run(t, `import greet from "lib.em"; greet("bob");`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectString(t, val, "hello, bob")
	if h.stdout.Len() != 0 {
		t.Errorf("imported file ran non-declaration statements: %q", h.stdout.String())
	}
	if _, err := h.run(t, "greeting;"); err == nil {
		t.Error("named import leaked other bindings")
	}
}

func TestImport_Wildcard(t *testing.T) {
	h, dir := importHarness(t)
	writeFile(t, dir, "lib.em", libSrc)

	val, err := h.run(t, `import * from "lib.em"; greet(greeting);`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectString(t, val, "hello, hello")

	_, err = h.run(t, `greeting = "x";`)
	expectRuntimeError(t, err, diagnostics.EConstReassign)
}

func TestImport_NestedRelative(t *testing.T) {
	h, dir := importHarness(t)
	writeFile(t, dir, "sub/a.em", `import b from "b.em"; fn a() { return b() + 1; }`)
	writeFile(t, dir, "sub/b.em", `fn b() { return 41; }`)

	val, err := h.run(t, `import a from "sub/a.em"; a();`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectNumber(t, val, 42)
}

func TestImport_Cycle(t *testing.T) {
	h, dir := importHarness(t)
	writeFile(t, dir, "c1.em", `import * from "c2.em"; fn one() { return 1; }`)
	writeFile(t, dir, "c2.em", `import * from "c1.em"; fn two() { return 2; }`)

	_, err := h.run(t, `import * from "c1.em";`)
	expectRuntimeError(t, err, diagnostics.EImportCycle)
}

func TestImport_Errors(t *testing.T) {
	h, dir := importHarness(t)
	writeFile(t, dir, "lib.em", libSrc)
	writeFile(t, dir, "bad.em", "let = ;")

	_, err := h.run(t, `import nope from "lib.em";`)
	expectRuntimeError(t, err, diagnostics.EUndefinedIdentifier)
	_, err = h.run(t, `import x from "missing.em";`)
	expectRuntimeError(t, err, diagnostics.EIO)
	_, err = h.run(t, `import x from "bad.em";`)
	expectRuntimeError(t, err, diagnostics.EParseFailure)
}

func TestImport_ParsedFilesAreCached(t *testing.T) {
	h, dir := importHarness(t)
	writeFile(t, dir, "v.em", `const first = 1; const second = 2;`)
	if _, err := h.run(t, `import first from "v.em";`); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	writeFile(t, dir, "v.em", `const second = 99;`)
	val, err := h.run(t, `import second from "v.em"; second;`)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectNumber(t, val, 2)
}

// --- 10. Builtin modules ---

type denyList []string

func (d denyList) Allows(module string) bool {
	for _, m := range d {
		if m == module {
			return false
		}
	}
	return true
}

func TestModules_Import(t *testing.T) {
	expectNumber(t, mustRun(t, "import math; math.sqrt(16);"), 4)
	expectErrorCode(t, "import nosuch;", diagnostics.EUndefinedIdentifier)
	expectErrorCode(t, "import math; math = 1;", diagnostics.EConstReassign)
	expectErrorCode(t, "math.sqrt(4);", diagnostics.EUndefinedValue)
}

func TestModules_Policy(t *testing.T) {
	h := newHarness(t, func(o *evaluator.Options) { o.Policy = denyList{"fs"} })
	_, err := h.run(t, "import fs;")
	expectRuntimeError(t, err, diagnostics.EModuleDenied)

	val, err := h.run(t, "import math; math.abs(-2);")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectNumber(t, val, 2)
}

// --- 11. Diagnostics ---

func TestErrors_CarrySpan(t *testing.T) {
	_, err := run(t, "let a = 1;\nlet b = a / 0;")
	var re *evaluator.RuntimeError
	if !errors.As(err, &re) {
		t.Fatalf("expected RuntimeError, got %v", err)
	}
	if re.Span == nil || re.Span.Line != 2 {
		t.Fatalf("expected span on line 2, got %+v", re.Span)
	}
	d := re.Diagnostic()
	if d.Code != diagnostics.EDivisionByZero || d.Span.File != "test.em" {
		t.Errorf("unexpected diagnostic %+v", d)
	}
}

func TestErrors_Echo(t *testing.T) {
	h := newHarness(t, func(o *evaluator.Options) { o.EchoErrors = true })
	if _, err := h.run(t, "1 / 0;"); err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(h.stderr.String(), "error[E_DIVISION_BY_ZERO]") {
		t.Errorf("stderr = %q", h.stderr.String())
	}

	quiet := newHarness(t, nil)
	_, _ = quiet.run(t, "1 / 0;")
	if quiet.stderr.Len() != 0 {
		t.Errorf("expected no echo, got %q", quiet.stderr.String())
	}
}

func TestGlobalsPersistAcrossRuns(t *testing.T) {
	h := newHarness(t, nil)
	if _, err := h.run(t, "let counter = 1; fn inc() { counter += 1; }"); err != nil {
		t.Fatal(err)
	}
	val, err := h.run(t, "inc(); inc(); counter;")
	if err != nil {
		t.Fatal(err)
	}
	expectNumber(t, val, 3)
	if !h.in.Globals().HasLocal("inc") {
		t.Error("expected inc in globals")
	}
}

func TestRunContext_Cancelled(t *testing.T) {
	h := newHarness(t, nil)
	prog, err := parser.Parse("let n = 0; while true { n += 1; }", "test.em")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = h.in.RunContext(ctx, prog)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestRunContext_SleepInterrupted(t *testing.T) {
	h := newHarness(t, nil)
	prog, err := parser.Parse("import time; time.sleep(60000);", "test.em")
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	go cancel()
	if _, err := h.in.RunContext(ctx, prog); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}
