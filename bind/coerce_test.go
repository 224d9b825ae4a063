package bind

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chabad360/oscbind/host"
	"github.com/chabad360/oscbind/scene"
)

// plainObject has no type information beyond its current values.
type plainObject map[string]any

func (o plainObject) Member(string) (host.Object, error) { return nil, host.ErrNotFound }
func (o plainObject) Lookup(string) (host.Object, error) { return nil, host.ErrNotFound }
func (o plainObject) Element(int) (host.Object, error)   { return nil, host.ErrNotFound }
func (o plainObject) Set(attr string, v any) error       { o[attr] = v; return nil }

func (o plainObject) Get(attr string) (any, error) {
	if v, ok := o[attr]; ok {
		return v, nil
	}
	return nil, host.ErrNotFound
}

func (o plainObject) GetIndex(attr string, i int) (any, error) {
	if vec, ok := o[attr].([]any); ok && i >= 0 && i < len(vec) {
		return vec[i], nil
	}
	return nil, host.ErrNotFound
}

func (o plainObject) SetIndex(string, int, any) error { return host.ErrNotIndexable }

func TestCoerce(t *testing.T) {
	n := scene.NewNode("n")
	require.NoError(t, n.SetAttr("b", host.KindBool, false))
	require.NoError(t, n.SetAttr("i", host.KindInt, 0))
	require.NoError(t, n.SetAttr("f", host.KindFloat, 0.0))
	require.NoError(t, n.SetAttr("v", host.KindBool, []bool{false, false}))
	require.NoError(t, n.DeclareEnum("e", []string{"A", "B", "C", "D"}, 0))

	plain := plainObject{
		"b":   true,
		"i":   int32(4),
		"f":   float32(1),
		"s":   "text",
		"vec": []any{1, 2.0},
	}

	tests := []struct {
		name   string
		owner  host.Object
		attr   string
		index  int
		hasIdx bool
		in     float64
		want   any
	}{
		{"bool zero", n, "b", 0, false, 0.0, false},
		{"bool small", n, "b", 0, false, 0.0001, true},
		{"bool negative", n, "b", 0, false, -1, false},
		{"bool element", n, "v", 1, true, 1, true},
		{"int half down to even", n, "i", 0, false, 2.5, 2},
		{"int half up to even", n, "i", 0, false, 3.5, 4},
		{"int negative half", n, "i", 0, false, -0.5, 0},
		{"int nearest", n, "i", 0, false, 2.6, 3},
		{"enum", n, "e", 0, false, 1.5, 2},
		{"float", n, "f", 0, false, 0.75, 0.75},
		{"unknown attr passes through", n, "missing", 0, false, 0.5, 0.5},
		{"runtime bool", plain, "b", 0, false, 0.2, true},
		{"runtime int", plain, "i", 0, false, 7.5, 8},
		{"runtime float", plain, "f", 0, false, 7.5, 7.5},
		{"runtime other", plain, "s", 0, false, 1, 1.0},
		{"runtime int element", plain, "vec", 0, true, 1.4, 1},
		{"runtime float element", plain, "vec", 1, true, 1.4, 1.4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Coerce(tt.owner, tt.attr, tt.index, tt.hasIdx, tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCoerceRejectsNonFiniteIntegers(t *testing.T) {
	n := scene.NewNode("n")
	require.NoError(t, n.SetAttr("i", host.KindInt, 0))

	for _, v := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), 1e12} {
		_, err := Coerce(n, "i", 0, false, v)
		assert.ErrorIs(t, err, host.ErrInvalidValue, "%v", v)
	}

	// NaN is not greater than zero.
	require.NoError(t, n.SetAttr("b", host.KindBool, true))
	got, err := Coerce(n, "b", 0, false, math.NaN())
	require.NoError(t, err)
	assert.Equal(t, false, got)
}

func TestKindOf(t *testing.T) {
	n := scene.NewNode("n")
	require.NoError(t, n.DeclareEnum("e", []string{"A"}, 0))
	assert.Equal(t, host.KindEnum, KindOf(n, "e", 0, false))
	assert.Equal(t, host.KindUnknown, KindOf(n, "nope", 0, false))

	plain := plainObject{"x": uint8(1), "m": map[string]int{}}
	assert.Equal(t, host.KindInt, KindOf(plain, "x", 0, false))
	assert.Equal(t, host.KindOther, KindOf(plain, "m", 0, false))
	assert.Equal(t, host.KindUnknown, KindOf(plain, "x", 3, true))
}
