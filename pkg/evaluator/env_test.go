package evaluator_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/emberlang/ember/pkg/diagnostics"
	"github.com/emberlang/ember/pkg/evaluator"
)

func TestEnvironment_DefineGet(t *testing.T) {
	env := evaluator.NewEnvironment(nil)
	require.NoError(t, env.Define("x", num(1)))

	v, err := env.Get("x")
	require.NoError(t, err)
	assert.Equal(t, num(1), v)

	err = env.Define("x", num(2))
	assert.Equal(t, diagnostics.EDuplicateIdentifier, evaluator.ErrorCode(err))

	_, err = env.Get("missing")
	assert.Equal(t, diagnostics.EUndefinedValue, evaluator.ErrorCode(err))
}

func TestEnvironment_Shadowing(t *testing.T) {
	outer := evaluator.NewEnvironment(nil)
	require.NoError(t, outer.Define("x", num(1)))
	inner := outer.Child()
	require.NoError(t, inner.Define("x", num(2)))

	v, _ := inner.Get("x")
	assert.Equal(t, num(2), v)
	v, _ = outer.Get("x")
	assert.Equal(t, num(1), v)

	assert.True(t, inner.HasLocal("x"))
	assert.Same(t, outer, inner.Parent())
}

func TestEnvironment_AssignWalksChain(t *testing.T) {
	outer := evaluator.NewEnvironment(nil)
	require.NoError(t, outer.Define("count", num(0)))
	inner := outer.Child().Child()

	require.NoError(t, inner.Assign("count", num(5)))
	v, _ := outer.Get("count")
	assert.Equal(t, num(5), v)
	assert.False(t, inner.HasLocal("count"))
	assert.True(t, inner.Has("count"))

	err := inner.Assign("nope", num(1))
	assert.Equal(t, diagnostics.EUndefinedValue, evaluator.ErrorCode(err))
}

func TestEnvironment_Constants(t *testing.T) {
	env := evaluator.NewEnvironment(nil)
	require.NoError(t, env.DeclareConstant("pi", num(3)))
	assert.True(t, env.IsConstant("pi"))

	err := env.Child().Assign("pi", num(4))
	assert.Equal(t, diagnostics.EConstReassign, evaluator.ErrorCode(err))

	env.StripConstant("pi")
	require.NoError(t, env.Assign("pi", num(4)))

	require.NoError(t, env.MakeConstant("pi"))
	assert.True(t, env.IsConstant("pi"))

	err = env.MakeConstant("ghost")
	assert.Equal(t, diagnostics.EUndefinedValue, evaluator.ErrorCode(err))
}

func TestEnvironment_Discard(t *testing.T) {
	env := evaluator.NewEnvironment(nil)
	require.NoError(t, env.Define("_", num(1)))
	require.NoError(t, env.Define("_", num(2)))
	require.NoError(t, env.Assign("_", num(3)))

	v, err := env.Get("_")
	require.NoError(t, err)
	assert.Equal(t, evaluator.Nil{}, v)
	assert.Empty(t, env.Names())
}

func TestEnvironment_Remove(t *testing.T) {
	env := evaluator.NewEnvironment(nil)
	require.NoError(t, env.DeclareConstant("k", str("v")))
	inner := env.Child()

	v, err := inner.Remove("k")
	require.NoError(t, err)
	assert.Equal(t, str("v"), v)
	assert.False(t, env.Has("k"))

	// The name is free again and no longer constant.
	require.NoError(t, env.Define("k", num(1)))
	assert.False(t, env.IsConstant("k"))

	_, err = env.Remove("k2")
	assert.Equal(t, diagnostics.EUndefinedValue, evaluator.ErrorCode(err))
}

func TestEnvironment_Cell(t *testing.T) {
	env := evaluator.NewEnvironment(nil)
	require.NoError(t, env.Define("x", num(1)))

	cell, err := env.Cell("x")
	require.NoError(t, err)
	*cell = num(9)

	v, _ := env.Get("x")
	assert.Equal(t, num(9), v)
}

func TestEnvironment_Names(t *testing.T) {
	env := evaluator.NewEnvironment(nil)
	for _, name := range []string{"b", "c", "a"} {
		require.NoError(t, env.Define(name, evaluator.Nil{}))
	}
	require.NoError(t, env.Child().Define("d", evaluator.Nil{}))
	assert.Equal(t, []string{"a", "b", "c"}, env.Names())
}
