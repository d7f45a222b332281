package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vogtb/go-formula/internal/formula"
	"github.com/vogtb/go-formula/internal/functions"
	"github.com/vogtb/go-formula/internal/testutil"
	"github.com/vogtb/go-formula/internal/value"
)

// lazySpy records whether USELAZYARG forced its argument
type lazySpy struct {
	forced bool
}

func testRegistry(t *testing.T, spy *lazySpy) *functions.Registry {
	t.Helper()
	r := functions.NewDefaultRegistry()
	identity := func(ctx *functions.Context, args []functions.Arg) value.Operand {
		if len(args) == 0 {
			return value.Scalar(value.Empty())
		}
		return args[0].Resolve()
	}
	descriptors := []*functions.Descriptor{
		{
			Name: "ANYFN",
			Args: []functions.ArgDescriptor{
				{Name: "arg1", Types: functions.ArgNumber},
				{Name: "arg2", Types: functions.ArgNumber, Optional: true},
			},
			Compute: identity,
		},
		{
			Name:    "RANGEONLY",
			Args:    []functions.ArgDescriptor{{Name: "range", Types: functions.ArgRange}},
			Compute: identity,
		},
		{
			Name:    "NUMBERONLY",
			Args:    []functions.ArgDescriptor{{Name: "n", Types: functions.ArgNumber}},
			Compute: identity,
		},
		{
			Name: "REPEATABLES",
			Args: []functions.ArgDescriptor{
				{Name: "first", Types: functions.ArgNumber},
				{Name: "pairA", Types: functions.ArgNumber, Optional: true, Repeating: true},
				{Name: "pairB", Types: functions.ArgNumber, Optional: true, Repeating: true},
			},
			Compute: func(ctx *functions.Context, args []functions.Arg) value.Operand {
				return value.Scalar(value.Number(float64(len(args))))
			},
		},
		{
			Name: "USELAZYARG",
			Args: []functions.ArgDescriptor{{Name: "lazy", Types: functions.ArgAny, Lazy: true}},
			Compute: func(ctx *functions.Context, args []functions.Arg) value.Operand {
				spy.forced = args[0].Lazy.Forced()
				return value.Scalar(value.Number(42))
			},
		},
		{
			Name:         "RETURNARGSFORMAT",
			Args:         []functions.ArgDescriptor{{Name: "arg", Types: functions.ArgAny}},
			ReturnFormat: functions.FormatOfFirstArgument(),
			Compute:      identity,
		},
		{
			Name:         "RETURNFORMAT",
			ReturnFormat: functions.SpecificFormat("m/d/yyyy"),
			Compute:      identity,
		},
		{
			Name:    "WHERE",
			Args:    []functions.ArgDescriptor{{Name: "ref", Types: functions.ArgMeta}},
			Compute: func(ctx *functions.Context, args []functions.Arg) value.Operand {
				return value.Scalar(value.Text(args[0].Ref.Zone.String()))
			},
		},
	}
	for _, d := range descriptors {
		require.NoError(t, r.Register(d))
	}
	return r
}

// testEnv resolves references against a flat map of cell name to value
func testEnv(t *testing.T, nf *formula.NormalizedFormula, cells map[string]value.Value) *Env {
	t.Helper()
	deps := DependenciesOf(nf)
	resolve := func(i int, asRange bool) value.Operand {
		_, rangeText := value.SplitReference(deps.References[i])
		zone, err := value.ParseZone(rangeText)
		require.NoError(t, err)
		if zone.IsSingleCell() && !asRange {
			return value.Scalar(cells[zone.String()])
		}
		m := value.NewMatrix(zone.Rows(), zone.Cols())
		for r := range m {
			for c := range m[r] {
				m[r][c] = cells[value.CellName(zone.Left+c, zone.Top+r)]
			}
		}
		return value.Array(m)
	}
	return &Env{
		Deps:    deps,
		SheetID: "sheet1",
		ResolveRef: func(i int, meta bool) value.Operand {
			if meta {
				_, rangeText := value.SplitReference(deps.References[i])
				zone, _ := value.ParseZone(rangeText)
				return value.Operand{Ref: &value.Reference{Text: deps.References[i], SheetID: "sheet1", Zone: zone}}
			}
			return resolve(i, false)
		},
		EnsureRange: func(i int) value.Operand {
			return resolve(i, true)
		},
		Context: functions.NewContext(testutil.NewTestLogger(t)),
	}
}

func run(t *testing.T, registry *functions.Registry, text string, cells map[string]value.Value) value.Operand {
	t.Helper()
	unit, nf, err := CompileText(text, registry)
	require.NoError(t, err, text)
	return unit.Execute(testEnv(t, nf, cells))
}

func compileErr(t *testing.T, registry *functions.Registry, text string) *CompileError {
	t.Helper()
	_, _, err := CompileText(text, registry)
	require.Error(t, err, text)
	var compileErr *CompileError
	require.ErrorAs(t, err, &compileErr)
	return compileErr
}

func TestArity(t *testing.T) {
	r := testRegistry(t, &lazySpy{})

	t.Run("min and max", func(t *testing.T) {
		err := compileErr(t, r, "=ANYFN()")
		assert.Equal(t, ErrArity, err.Kind)
		assert.Equal(t, "Invalid number of arguments for the ANYFN function. Expected 1 minimum, but got 0 instead.", err.Message)

		err = compileErr(t, r, "=ANYFN(1,2,3)")
		assert.Equal(t, ErrArity, err.Kind)
		assert.Equal(t, "Invalid number of arguments for the ANYFN function. Expected 2 maximum, but got 3 instead.", err.Message)

		assert.Equal(t, value.Number(1), run(t, r, "=ANYFN(1)", nil).Value)
		assert.Equal(t, value.Number(1), run(t, r, "=ANYFN(1,2)", nil).Value)
	})

	t.Run("repeating groups", func(t *testing.T) {
		for _, ok := range []string{"=REPEATABLES(1)", "=REPEATABLES(1,2,3)", "=REPEATABLES(1,2,3,4,5)"} {
			_, _, err := CompileText(ok, r)
			assert.NoError(t, err, ok)
		}
		for _, bad := range []string{"=REPEATABLES(1,2)", "=REPEATABLES(1,2,3,4)"} {
			err := compileErr(t, r, bad)
			assert.Equal(t, ErrArity, err.Kind, bad)
			assert.Contains(t, err.Message, "by groups of 2 arguments", bad)
		}
		assert.Equal(t, value.Number(5), run(t, r, "=REPEATABLES(1,2,3,4,5)", nil).Value)
	})

	t.Run("explicitly omitted arguments count", func(t *testing.T) {
		err := compileErr(t, r, "=ANYFN(1,,)")
		assert.Equal(t, ErrArity, err.Kind)
	})
}

func TestArgumentTypes(t *testing.T) {
	r := testRegistry(t, &lazySpy{})

	tests := []struct {
		formula string
		message string
	}{
		{"=RANGEONLY(1)", "Function RANGEONLY expects the parameter 1 to be reference to a cell or range, not a number."},
		{`=RANGEONLY("a")`, "Function RANGEONLY expects the parameter 1 to be reference to a cell or range, not a string."},
		{"=RANGEONLY(1+1)", "Function RANGEONLY expects the parameter 1 to be reference to a cell or range, not a operation."},
		{"=WHERE(SUM(1))", "Function WHERE expects the parameter 1 to be reference to a cell or range, not a function call."},
		{"=NUMBERONLY(A1:A2)", "Function NUMBERONLY expects the parameter 1 to be a single value or a single cell reference, not a range."},
		{"=A1:B2+1", "Function ADD expects its parameters to be single values or single cell references, not ranges."},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			err := compileErr(t, r, tt.formula)
			assert.Equal(t, ErrArgumentType, err.Kind)
			assert.Equal(t, tt.message, err.Message)
		})
	}

	t.Run("unknown function", func(t *testing.T) {
		err := compileErr(t, r, "=NOPE(1)")
		assert.Equal(t, ErrUnknownFunction, err.Kind)
		assert.Equal(t, `Unknown function: "NOPE"`, err.Message)
	})

	t.Run("parse failure", func(t *testing.T) {
		err := compileErr(t, r, "=SUM(1")
		assert.Equal(t, ErrParse, err.Kind)
		var parseErr *formula.ParseError
		assert.ErrorAs(t, err, &parseErr)
	})
}

func TestExecute(t *testing.T) {
	r := testRegistry(t, &lazySpy{})
	cells := map[string]value.Value{
		"A1": value.Number(2),
		"A2": value.Number(3),
		"B1": value.Text("12"),
		"B2": value.Error(value.ErrorCodeDiv0, ""),
		"C1": value.Text("abc"),
	}

	tests := []struct {
		formula string
		want    value.Value
	}{
		{"=1+2*3", value.Number(7)},
		{"=SUM(A1:A2, 10)", value.Number(15)},
		{"=A1^A2", value.Number(8)},
		{"=NUMBERONLY(B1)", value.Number(12)},
		{`="a"&A1`, value.Text("a2")},
		{"=ROUND(2.567)", value.Number(3)},
		{"=ROUND(2.567, 1)", value.Number(2.6)},
		{"=IF(FALSE, 1)", value.Boolean(false)},
		{"=IF(TRUE, 1, 1/0)", value.Number(1)},
		{"=IFERROR(B2, 7)", value.Number(7)},
		{"=WHERE(C3:D4)", value.Text("C3:D4")},
		{"=ROW(C5)", value.Number(5)},
		{"=50%", value.Number(0.5)},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			got := run(t, r, tt.formula, cells)
			assert.True(t, tt.want.Equal(got.First()), "got %v", got.First())
		})
	}

	t.Run("errors short-circuit", func(t *testing.T) {
		got := run(t, r, "=NUMBERONLY(B2)+1", cells).First()
		require.True(t, got.IsError())
		assert.Equal(t, value.ErrorCodeDiv0, got.Err.Code)

		got = run(t, r, "=NUMBERONLY(C1)", cells).First()
		require.True(t, got.IsError())
		assert.Equal(t, value.ErrorCodeValue, got.Err.Code)

		got = run(t, r, "=1/0", cells).First()
		require.True(t, got.IsError())
		assert.Equal(t, value.ErrorCodeDiv0, got.Err.Code)
	})

	t.Run("single-cell ranges feed scalar arguments", func(t *testing.T) {
		got := run(t, r, "=NUMBERONLY(A2:A2)+A1:$A$1", cells).First()
		assert.True(t, value.Number(5).Equal(got), "got %v", got)

		err := compileErr(t, r, "=NUMBERONLY(A2:A1)")
		assert.Equal(t, ErrArgumentType, err.Kind)
	})

	t.Run("range only arguments receive a matrix", func(t *testing.T) {
		got := run(t, r, "=RANGEONLY(A1)", cells)
		require.True(t, got.IsMatrix())
		assert.Equal(t, value.Matrix{{value.Number(2)}}, got.Matrix)
	})
}

func TestCellShapedFunctionNames(t *testing.T) {
	r := testRegistry(t, &lazySpy{})
	require.NoError(t, r.Register(&functions.Descriptor{
		Name:       "fx2",
		Args:       []functions.ArgDescriptor{{Name: "amount", Types: functions.ArgNumber}},
		ReturnType: functions.ArgNumber,
		Compute: func(ctx *functions.Context, args []functions.Arg) value.Operand {
			n, _ := value.ToNumber(args[0].Resolve().First())
			return value.Scalar(value.Number(n * 2))
		},
	}))

	got := run(t, r, "=FX2(A1)+FX2", map[string]value.Value{
		"A1":  value.Number(3),
		"FX2": value.Number(10),
	})
	assert.True(t, value.Number(16).Equal(got.First()), "got %v", got.First())

	for _, text := range []string{"=LOG10(1000)", "=log10(A1*A2)"} {
		got := run(t, r, text, map[string]value.Value{"A1": value.Number(10), "A2": value.Number(100)}).First()
		require.Equal(t, value.KindNumber, got.Kind, text)
		assert.InDelta(t, 3, got.Number, 1e-12, text)
	}
}

func TestLazyArgumentNeverForced(t *testing.T) {
	spy := &lazySpy{}
	r := testRegistry(t, spy)
	got := run(t, r, "=USELAZYARG(1/0)", nil)
	assert.Equal(t, value.Number(42), got.Value)
	assert.False(t, spy.forced)
}

func TestSameShapeSharesUnit(t *testing.T) {
	r := testRegistry(t, &lazySpy{})
	unit, first, err := CompileText("=SUM(A1, 1)", r)
	require.NoError(t, err)
	_, second, err := CompileText("=SUM(A2, 100)", r)
	require.NoError(t, err)
	require.Equal(t, first.Shape, second.Shape)
	assert.Equal(t, first.Shape, unit.Shape)

	cells := map[string]value.Value{"A1": value.Number(1), "A2": value.Number(2)}
	assert.Equal(t, value.Number(2), unit.Execute(testEnv(t, first, cells)).Value)
	assert.Equal(t, value.Number(102), unit.Execute(testEnv(t, second, cells)).Value)
}

func TestUnitFlags(t *testing.T) {
	r := testRegistry(t, &lazySpy{})

	unit, _, err := CompileText("=RAND()+1", r)
	require.NoError(t, err)
	assert.True(t, unit.Volatile)

	unit, _, err = CompileText("=1+1", r)
	require.NoError(t, err)
	assert.False(t, unit.Volatile)
	assert.False(t, unit.Debug)

	unit, _, err = CompileText("=?A1", r)
	require.NoError(t, err)
	assert.True(t, unit.Debug)
}

func TestDependencyFormats(t *testing.T) {
	r := testRegistry(t, &lazySpy{})

	tests := []struct {
		formula string
		want    []FormatSource
	}{
		{"=RETURNARGSFORMAT(A1)", []FormatSource{ReferenceFormat(0)}},
		{"=RETURNFORMAT()", []FormatSource{LiteralFormat("m/d/yyyy")}},
		{"=A1+B1", []FormatSource{ReferenceFormat(0), ReferenceFormat(1)}},
		{"=DATE(2024,1,1)+A1", []FormatSource{LiteralFormat(functions.DateFormat)}},
		{"=-SUM(B3:B4)", []FormatSource{ReferenceFormat(0)}},
		{"=NUMBERONLY(A1)", nil},
		{"=1", nil},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			unit, _, err := CompileText(tt.formula, r)
			require.NoError(t, err)
			assert.Equal(t, tt.want, unit.DependenciesFormat)
		})
	}
}
