package functions

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vogtb/go-formula/internal/value"
)

func noop(ctx *Context, args []Arg) value.Operand {
	return value.Scalar(value.Empty())
}

func TestRegisterValidation(t *testing.T) {
	tests := []struct {
		name   string
		desc   *Descriptor
		errSub string
	}{
		{"nil", nil, "must have a name"},
		{"blank name", &Descriptor{Name: " ", Compute: noop}, "must have a name"},
		{"no compute", &Descriptor{Name: "F"}, "no compute implementation"},
		{"dash in name", &Descriptor{Name: "MY-FN", Compute: noop}, "cannot be written in a formula"},
		{"leading digit", &Descriptor{Name: "2X", Compute: noop}, "cannot be written in a formula"},
		{"leading dot", &Descriptor{Name: ".X", Compute: noop}, "cannot be written in a formula"},
		{
			"untyped argument",
			&Descriptor{Name: "F", Compute: noop, Args: []ArgDescriptor{{Name: "a"}}},
			"accepts no type",
		},
		{
			"lazy meta argument",
			&Descriptor{Name: "F", Compute: noop, Args: []ArgDescriptor{{Name: "a", Types: ArgMeta, Lazy: true}}},
			"cannot be both lazy and meta",
		},
		{
			"argument after repeating",
			&Descriptor{Name: "F", Compute: noop, Args: []ArgDescriptor{
				{Name: "a", Types: ArgAny, Repeating: true},
				{Name: "b", Types: ArgAny, Optional: true},
			}},
			"follows a repeating argument",
		},
		{
			"required after optional",
			&Descriptor{Name: "F", Compute: noop, Args: []ArgDescriptor{
				{Name: "a", Types: ArgAny, Optional: true},
				{Name: "b", Types: ArgAny},
			}},
			"follows an optional one",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewRegistry().Register(tt.desc)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errSub)
		})
	}
}

func TestRegisterCellShapedName(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Descriptor{Name: "fx2", Compute: noop}))
	_, ok := r.Lookup("FX2")
	assert.True(t, ok)

	_, ok = NewDefaultRegistry().Lookup("log10")
	assert.True(t, ok)
}

func TestRegistryLookup(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(&Descriptor{Name: "my.fn", Compute: noop}))

	d, ok := r.Lookup("MY.FN")
	require.True(t, ok)
	assert.Equal(t, "MY.FN", d.Name)
	_, ok = r.Lookup("my.Fn")
	assert.True(t, ok)

	err := r.Register(&Descriptor{Name: "My.Fn", Compute: noop})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already registered")

	assert.Equal(t, []string{"MY.FN"}, r.Names())
}

func TestDefaultRegistry(t *testing.T) {
	r := NewDefaultRegistry()
	for _, name := range OperatorFunction {
		_, ok := r.Lookup(name)
		assert.True(t, ok, "operator function %s is registered", name)
	}
	for _, name := range []string{"SUM", "IF", "DATE", "MUNIT", "UPPER", "ROW", "RAND", "NOW"} {
		_, ok := r.Lookup(name)
		assert.True(t, ok, name)
	}
}

func TestArity(t *testing.T) {
	r := NewDefaultRegistry()
	tests := []struct {
		name     string
		min, max int
		group    int
	}{
		{"SUM", 1, -1, 1},
		{"IF", 2, 3, 0},
		{"ROUND", 1, 2, 0},
		{"ROW", 0, 1, 0},
		{"PI", 0, 0, 0},
	}
	for _, tt := range tests {
		d, ok := r.Lookup(tt.name)
		require.True(t, ok)
		assert.Equal(t, tt.min, d.MinArgs(), tt.name)
		assert.Equal(t, tt.max, d.MaxArgs(), tt.name)
		assert.Equal(t, tt.group, d.RepeatingGroup(), tt.name)
	}

	d := &Descriptor{Args: []ArgDescriptor{
		{Name: "a", Types: ArgAny},
		{Name: "b", Types: ArgAny, Repeating: true},
		{Name: "c", Types: ArgAny, Repeating: true},
	}}
	assert.Equal(t, []int{0, 1, 2, 1, 2, 1}, []int{d.ArgIndex(0), d.ArgIndex(1), d.ArgIndex(2), d.ArgIndex(3), d.ArgIndex(4), d.ArgIndex(5)})
	assert.Equal(t, -1, (&Descriptor{Args: []ArgDescriptor{{Name: "a", Types: ArgAny}}}).ArgIndex(1))
}

func TestArgTypeString(t *testing.T) {
	assert.Equal(t, "range|number", (ArgNumber | ArgRange).String())
	assert.True(t, (ArgAny | ArgRange).Has(ArgRange))
	assert.True(t, ArgDescriptor{Types: ArgRange}.IsRangeOnly())
	assert.False(t, ArgDescriptor{Types: ArgRange | ArgNumber}.IsRangeOnly())
	assert.True(t, ArgDescriptor{HasDefault: true}.IsOptional())
}
