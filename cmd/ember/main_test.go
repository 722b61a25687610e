package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type result struct {
	code   int
	stdout string
	stderr string
}

// ember runs the command in-process with HOME pointed at an empty
// directory so no user configuration leaks in.
func ember(t *testing.T, stdin string, args ...string) result {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	var stdout, stderr bytes.Buffer
	code := run(append([]string{"ember"}, args...), strings.NewReader(stdin), &stdout, &stderr)
	return result{code: code, stdout: stdout.String(), stderr: stderr.String()}
}

func writeProgram(t *testing.T, source string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "main.em")
	require.NoError(t, os.WriteFile(path, []byte(source), 0o644))
	return path
}

func TestRunCommand(t *testing.T) {
	path := writeProgram(t, `let who = "world"; println("hello,", who);`)
	res := ember(t, "", "run", path)
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "hello, world\n", res.stdout)
}

func TestRunCommand_Result(t *testing.T) {
	path := writeProgram(t, `fn sq(x) { return x * x; } sq(7);`)
	res := ember(t, "", "run", "--result", path)
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "49\n", res.stdout)
}

func TestRunCommand_Stdin(t *testing.T) {
	res := ember(t, `println(1 + 1);`, "run", "-")
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "2\n", res.stdout)
}

func TestRunCommand_ExitCodes(t *testing.T) {
	tests := []struct {
		name   string
		source string
		code   int
		stderr string
	}{
		{"parse error", "let = 1;", 2, `"code":"E_EXPECTED_KIND"`},
		{"check error", "break;", 2, `"code":"E_LOOP_CONTROL"`},
		{"runtime error", "println(1);\n1 / 0;", 3, `"code":"E_DIVISION_BY_ZERO"`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := ember(t, "", "--json", "run", writeProgram(t, tt.source))
			assert.Equal(t, tt.code, res.code)
			assert.Contains(t, res.stderr, tt.stderr)
		})
	}
}

func TestRunCommand_MissingFile(t *testing.T) {
	res := ember(t, "", "--json", "run", filepath.Join(t.TempDir(), "nope.em"))
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, `"code":"E_IO"`)

	res = ember(t, "", "run")
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "usage: ember run")
}

func TestRunCommand_PrettyDiagnostics(t *testing.T) {
	path := writeProgram(t, "let a = 1;\na / 0;")
	res := ember(t, "", "--pretty", "--color", "never", "run", path)
	assert.Equal(t, 3, res.code)
	assert.Contains(t, res.stderr, "error[E_DIVISION_BY_ZERO]")
	assert.Contains(t, res.stderr, "2 | a / 0;")
	assert.NotContains(t, res.stderr, "\x1b[")
}

func TestRunCommand_ModulePolicy(t *testing.T) {
	path := writeProgram(t, `import fs; fs.exists("x");`)
	res := ember(t, "", "--json", "run", "--deny", "fs", path)
	assert.Equal(t, 3, res.code)
	assert.Contains(t, res.stderr, `"code":"E_MODULE_DENIED"`)

	res = ember(t, "", "--json", "run", "--allow", "math", path)
	assert.Equal(t, 3, res.code)

	res = ember(t, "", "run", "--allow", "fs", path)
	assert.Equal(t, 0, res.code, res.stderr)
}

func TestRunCommand_ConfigFile(t *testing.T) {
	cfg := filepath.Join(t.TempDir(), "ember.toml")
	require.NoError(t, os.WriteFile(cfg, []byte("[modules]\ndeny = [\"math\"]\n"), 0o644))
	path := writeProgram(t, `import math;`)

	res := ember(t, "", "--config", cfg, "--json", "run", path)
	assert.Equal(t, 3, res.code)
	assert.Contains(t, res.stderr, "E_MODULE_DENIED")

	require.NoError(t, os.WriteFile(cfg, []byte("[log]\nnoise = 1\n"), 0o644))
	res = ember(t, "", "--config", cfg, "run", path)
	assert.Equal(t, 1, res.code)
	assert.Contains(t, res.stderr, "noise")
}

func TestCheckCommand(t *testing.T) {
	res := ember(t, "", "--json", "check", writeProgram(t, "let x = 1; x + 1;"))
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "[]\n", res.stdout)

	res = ember(t, "", "--pretty", "check", writeProgram(t, "1 / 0;"))
	assert.Equal(t, 0, res.code, "check does not run the program")
	assert.Equal(t, "No errors found.\n", res.stdout)

	res = ember(t, "", "--json", "check", writeProgram(t, "let a = 1;\nlet a = 2;"))
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, `"code":"E_DUPLICATE_IDENTIFIER"`)
}

func TestFmtCommand(t *testing.T) {
	path := writeProgram(t, "let   x=1;")

	res := ember(t, "", "fmt", path)
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Equal(t, "let x = 1;\n", res.stdout)

	res = ember(t, "", "fmt", "--check", path)
	assert.Equal(t, 1, res.code)

	res = ember(t, "", "fmt", "--write", path)
	assert.Equal(t, 0, res.code, res.stderr)
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "let x = 1;\n", string(data))

	res = ember(t, "", "fmt", "--check", path)
	assert.Equal(t, 0, res.code)
}

func TestFmtCommand_WarnsAboutComments(t *testing.T) {
	res := ember(t, "", "fmt", writeProgram(t, "// note\nlet x = 1;"))
	assert.Equal(t, 0, res.code)
	assert.Contains(t, res.stderr, "comments are not preserved")
}

func TestParseCommand(t *testing.T) {
	path := writeProgram(t, "let x = 1;")

	res := ember(t, "", "parse", path)
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "VarDecl")

	res = ember(t, "", "parse", "--tokens", path)
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "KIND")
	assert.Contains(t, res.stdout, "x")

	res = ember(t, "", "--json", "parse", "--tokens", writeProgram(t, `let s = "open`))
	assert.Equal(t, 2, res.code)
	assert.Contains(t, res.stderr, "E_UNTERMINATED")
}

func TestModulesCommand(t *testing.T) {
	res := ember(t, "", "modules", "--deny", "fs")
	assert.Equal(t, 0, res.code, res.stderr)
	for _, name := range []string{"println", "math", "fs", "Set", "LRU"} {
		assert.Contains(t, res.stdout, name)
	}

	importable := map[string]string{}
	for _, line := range strings.Split(res.stdout, "\n") {
		cells := strings.Split(line, "|")
		if len(cells) < 5 {
			continue
		}
		importable[strings.TrimSpace(cells[2])] = strings.TrimSpace(cells[3])
	}
	assert.Equal(t, "no", importable["fs"])
	assert.Equal(t, "yes", importable["math"])
	assert.Equal(t, "-", importable["println"])
}

func TestDumpConfigCommand(t *testing.T) {
	res := ember(t, "", "dumpconfig")
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "# No configuration file found")
	assert.Contains(t, res.stdout, "cache_size = 64")

	out := filepath.Join(t.TempDir(), "dump.toml")
	res = ember(t, "", "dumpconfig", out)
	assert.Equal(t, 0, res.code, res.stderr)
	data, err := os.ReadFile(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[repl]")
}

func TestReplCommand(t *testing.T) {
	input := strings.Join([]string{
		"let x = 2;",
		"fn twice(n) {",
		"  return n * 2;",
		"}",
		"twice(x) * 10 + 2",
		"undefinedName;",
		`"after error";`,
		":quit",
		"println(\"unreachable\");",
	}, "\n")
	res := ember(t, input, "--json", "repl")
	assert.Equal(t, 0, res.code, res.stderr)
	assert.Contains(t, res.stdout, "42\n")
	assert.Contains(t, res.stdout, "after error\n")
	assert.NotContains(t, res.stdout, "unreachable")
	assert.Contains(t, res.stderr, "E_UNDEFINED_VALUE")
}
