package functions

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vogtb/go-formula/internal/locale"
	"github.com/vogtb/go-formula/internal/testutil"
	"github.com/vogtb/go-formula/internal/value"
)

type fixedClock struct {
	now time.Time
}

func (c *fixedClock) Now() time.Time {
	return c.now
}

type fixedRand struct {
	n float64
}

func (r *fixedRand) Float64() float64 {
	return r.n
}

func scalars(values ...value.Value) []Arg {
	args := make([]Arg, len(values))
	for i, v := range values {
		args[i] = Arg{Operand: value.Scalar(v)}
	}
	return args
}

func call(t *testing.T, ctx *Context, name string, args ...Arg) value.Operand {
	t.Helper()
	d, ok := NewDefaultRegistry().Lookup(name)
	require.True(t, ok, name)
	return d.Compute(ctx, args)
}

func TestBuiltins(t *testing.T) {
	ctx := NewContext(testutil.NewTestLogger(t))
	grid := Arg{Operand: value.Array(value.Matrix{
		{value.Number(1), value.Text("x")},
		{value.Empty(), value.Number(4)},
	})}

	tests := []struct {
		name string
		fn   string
		args []Arg
		want value.Value
	}{
		{"sum skips text in ranges", "SUM", []Arg{grid, scalars(value.Text("5"))[0]}, value.Number(10)},
		{"average", "AVERAGE", []Arg{grid}, value.Number(2.5)},
		{"count", "COUNT", []Arg{grid, scalars(value.Text("3"))[0]}, value.Number(3)},
		{"counta", "COUNTA", []Arg{grid}, value.Number(3)},
		{"max", "MAX", []Arg{grid}, value.Number(4)},
		{"min of nothing", "MIN", scalars(value.Empty()), value.Number(0)},
		{"mod takes divisor sign", "MOD", scalars(value.Number(-7), value.Number(3)), value.Number(2)},
		{"and", "AND", scalars(value.Boolean(true), value.Number(1)), value.Boolean(true)},
		{"or", "OR", scalars(value.Boolean(false), value.Number(0)), value.Boolean(false)},
		{"not", "NOT", scalars(value.Text("TRUE")), value.Boolean(false)},
		{"concatenate", "CONCATENATE", scalars(value.Text("a"), value.Number(1), value.Boolean(true)), value.Text("a1TRUE")},
		{"len counts runes", "LEN", scalars(value.Text("héllo")), value.Number(5)},
		{"upper", "UPPER", scalars(value.Text("straße")), value.Text("STRASSE")},
		{"proper", "PROPER", scalars(value.Text("hello wORLD")), value.Text("Hello World")},
		{"date", "DATE", scalars(value.Number(2024), value.Number(1), value.Number(15)), value.Number(45306)},
		{"date rolls over months", "DATE", scalars(value.Number(2023), value.Number(13), value.Number(15)), value.Number(45306)},
		{"eq is case insensitive", "EQ", scalars(value.Text("abc"), value.Text("ABC")), value.Boolean(true)},
		{"text sorts after numbers", "GT", scalars(value.Text("1"), value.Number(2)), value.Boolean(true)},
		{"empty compares as zero", "EQ", scalars(value.Empty(), value.Number(0)), value.Boolean(true)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := call(t, ctx, tt.fn, tt.args...).First()
			assert.True(t, tt.want.Equal(got), "got %v", got)
		})
	}
}

func TestBuiltinErrors(t *testing.T) {
	ctx := NewContext(testutil.NewTestLogger(t))
	tests := []struct {
		fn   string
		args []Arg
		code value.ErrorCode
	}{
		{"DIVIDE", scalars(value.Number(1), value.Number(0)), value.ErrorCodeDiv0},
		{"AVERAGE", scalars(value.Empty()), value.ErrorCodeDiv0},
		{"SQRT", scalars(value.Number(-1)), value.ErrorCodeNum},
		{"LOG10", scalars(value.Number(0)), value.ErrorCodeNum},
		{"POWER", scalars(value.Number(-8), value.Number(0.5)), value.ErrorCodeNum},
		{"SUM", scalars(value.Text("abc")), value.ErrorCodeValue},
		{"AND", scalars(value.Empty()), value.ErrorCodeValue},
		{"MUNIT", scalars(value.Number(0)), value.ErrorCodeValue},
		{"DATE", scalars(value.Number(10000), value.Number(1), value.Number(1)), value.ErrorCodeNum},
	}
	for _, tt := range tests {
		t.Run(tt.fn, func(t *testing.T) {
			got := call(t, ctx, tt.fn, tt.args...).First()
			require.True(t, got.IsError(), "got %v", got)
			assert.Equal(t, tt.code, got.Err.Code)
		})
	}
}

func TestArrayFunctions(t *testing.T) {
	ctx := NewContext(testutil.NewTestLogger(t))

	got := call(t, ctx, "MUNIT", scalars(value.Number(2))...)
	require.True(t, got.IsMatrix())
	assert.Equal(t, value.Matrix{
		{value.Number(1), value.Number(0)},
		{value.Number(0), value.Number(1)},
	}, got.Matrix)

	got = call(t, ctx, "TRANSPOSE", Arg{Operand: value.Array(value.Matrix{{value.Number(1), value.Number(2)}})})
	assert.Equal(t, value.Matrix{{value.Number(1)}, {value.Number(2)}}, got.Matrix)

	at := ctx.At(value.Position{SheetID: "s", Col: 2, Row: 6})
	assert.Equal(t, value.Number(7), call(t, at, "ROW", Arg{Omitted: true}).Value)
	assert.Equal(t, value.Number(3), call(t, at, "COLUMN").Value)

	ref := Arg{Operand: value.Operand{Ref: &value.Reference{Text: "B4", Zone: value.Zone{Top: 3, Left: 1, Bottom: 3, Right: 1}}}}
	assert.Equal(t, value.Number(4), call(t, at, "ROW", ref).Value)

	bad := Arg{Operand: value.Operand{Ref: &value.Reference{Text: "Nope!A1", SheetName: "Nope", InvalidSheet: true}}}
	got = call(t, at, "ROW", bad)
	require.True(t, got.Value.IsError())
	assert.Equal(t, value.ErrorCodeRef, got.Value.Err.Code)
}

func TestVolatileFunctionsUseContext(t *testing.T) {
	ctx := NewContext(testutil.NewTestLogger(t))
	ctx.Clock = &fixedClock{now: time.Date(2024, 1, 15, 18, 0, 0, 0, time.UTC)}
	ctx.Rand = &fixedRand{n: 0.25}

	assert.Equal(t, value.Number(45306), call(t, ctx, "TODAY").Value)
	assert.InDelta(t, 45306.75, call(t, ctx, "NOW").Value.Number, 1e-9)
	assert.Equal(t, value.Number(0.25), call(t, ctx, "RAND").Value)
}

func TestLazyArgumentsResolve(t *testing.T) {
	ctx := NewContext(testutil.NewTestLogger(t))
	forced := 0
	thunk := func(v value.Value) Arg {
		return Arg{Lazy: value.NewThunk(func() value.Operand {
			forced++
			return value.Scalar(v)
		})}
	}
	got := call(t, ctx, "IF", scalars(value.Boolean(true))[0], thunk(value.Text("yes")), thunk(value.Text("no")))
	assert.Equal(t, value.Text("yes"), got.Value)
	assert.Equal(t, 1, forced)
}

func TestCaseMappingFollowsLocale(t *testing.T) {
	ctx := NewContext(testutil.NewTestLogger(t))
	ctx.Locale = locale.Locale{Code: "tr_TR"}
	got := call(t, ctx, "UPPER", scalars(value.Text("i"))...)
	assert.Equal(t, value.Text("İ"), got.Value)
}
