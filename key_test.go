package memocache

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func namedHandler() {}

type receiver struct{ value int }

func (r *receiver) handle() int { return r.value }

func TestKeyBuilderDeterministic(t *testing.T) {
	kb := NewKeyBuilder()
	args := Args{
		Positional: []any{"a", 2},
		Keyword:    map[string]any{"x": 1, "y": "two"},
	}

	k1, err := kb.Build("ns", "pkg.Fn", args)
	require.NoError(t, err)
	k2, err := kb.Build("ns", "pkg.Fn", args)
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
	assert.True(t, strings.HasPrefix(k1, "ns:pkg.Fn:"))
}

func TestKeyBuilderKeywordOrderIrrelevant(t *testing.T) {
	kb := NewKeyBuilder()

	first := map[string]any{}
	first["a"] = 1
	first["b"] = 2
	second := map[string]any{}
	second["b"] = 2
	second["a"] = 1

	k1, err := kb.Build("ns", "fn", Args{Keyword: first})
	require.NoError(t, err)
	k2, err := kb.Build("ns", "fn", Args{Keyword: second})
	require.NoError(t, err)
	assert.Equal(t, k1, k2)
}

func TestKeyBuilderDistinguishesInputs(t *testing.T) {
	kb := NewKeyBuilder()
	args := Args{Positional: []any{1}}

	base, err := kb.Build("ns", "fn", args)
	require.NoError(t, err)

	otherIdentity, err := kb.Build("ns", "other", args)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherIdentity)

	otherNamespace, err := kb.Build("ns2", "fn", args)
	require.NoError(t, err)
	assert.NotEqual(t, base, otherNamespace)

	otherArgs, err := kb.Build("ns", "fn", Args{Positional: []any{2}})
	require.NoError(t, err)
	assert.NotEqual(t, base, otherArgs)
}

func TestKeyBuilderHashesLongArguments(t *testing.T) {
	kb := NewKeyBuilder()

	key, err := kb.Build("ns", "fn", Args{Positional: []any{strings.Repeat("x", 500)}})
	require.NoError(t, err)
	digest := strings.TrimPrefix(key, "ns:fn:")
	assert.Len(t, digest, 64) // sha256 hex

	// Arguments with whitespace are not key-safe verbatim either.
	key, err = kb.Build("ns", "fn", Args{Positional: []any{"two words"}})
	require.NoError(t, err)
	digest = strings.TrimPrefix(key, "ns:fn:")
	assert.Len(t, digest, 64)

	// Short clean arguments stay readable.
	key, err = kb.Build("ns", "fn", Args{Positional: []any{7}})
	require.NoError(t, err)
	assert.Equal(t, "ns:fn:(7)", key)
}

func TestKeyBuilderUnencodableArgument(t *testing.T) {
	kb := NewKeyBuilder()

	_, err := kb.Build("ns", "fn", Args{Positional: []any{make(chan int)}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not encodable")

	_, err = kb.Build("ns", "fn", Args{Keyword: map[string]any{"cb": func() {}}})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"cb"`)
}

func TestFuncIdentity(t *testing.T) {
	id := FuncIdentity(namedHandler)
	assert.Contains(t, id, "memocache")
	assert.Contains(t, id, "namedHandler")

	// Same function, same identity.
	assert.Equal(t, id, FuncIdentity(namedHandler))

	// Method values drop the -fm suffix.
	r := &receiver{value: 1}
	mid := FuncIdentity(r.handle)
	assert.False(t, strings.HasSuffix(mid, "-fm"))
	assert.Contains(t, mid, "handle")

	// Not a function.
	assert.Equal(t, "", FuncIdentity(42))
	assert.Equal(t, "", FuncIdentity(nil))
}

func TestResolveDefaultsAndInjection(t *testing.T) {
	c := New(nil)

	rc, err := c.resolve(Config{}, namedHandler)
	require.NoError(t, err)
	assert.Equal(t, "default", rc.namespace)
	assert.Equal(t, DefaultTTL, rc.ttl)
	assert.Contains(t, rc.ignore, "request")
	assert.Contains(t, rc.ignore, "response")

	rc, err = c.resolve(Config{InjectionNamespace: "monty", IgnoreKeys: []string{"trace"}}, namedHandler)
	require.NoError(t, err)
	assert.Contains(t, rc.ignore, "monty_request")
	assert.Contains(t, rc.ignore, "monty_response")
	assert.Contains(t, rc.ignore, "trace")
	assert.NotContains(t, rc.ignore, "request")

	// No identity derivable and no name given.
	_, err = c.resolve(Config{}, nil)
	assert.ErrorIs(t, err, ErrNoIdentity)
}

func TestResolvedKeyArgsStripsInjected(t *testing.T) {
	c := New(nil)
	rc, err := c.resolve(Config{}, namedHandler)
	require.NoError(t, err)

	args := rc.keyArgs(Args{Keyword: map[string]any{
		"name":    "jon",
		"request": struct{ perRequest bool }{true},
	}})
	assert.Equal(t, map[string]any{"name": "jon"}, args.Keyword)
}
