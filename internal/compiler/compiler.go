// Package compiler turns a normalized formula into an executable Unit after
// checking every function call against its descriptor.
package compiler

import (
	"errors"
	"fmt"

	"github.com/vogtb/go-formula/internal/formula"
	"github.com/vogtb/go-formula/internal/functions"
	"github.com/vogtb/go-formula/internal/value"
)

// Dependencies are the literal side-lists of a normalized formula. A Unit
// reads its numbers, strings and references from here, so one Unit serves
// every formula of the same shape.
type Dependencies struct {
	Strings    []string
	Numbers    []float64
	References []string
}

// DependenciesOf extracts the side-lists of a normalized formula.
func DependenciesOf(nf *formula.NormalizedFormula) Dependencies {
	return Dependencies{Strings: nf.Strings, Numbers: nf.Numbers, References: nf.References}
}

// Env is everything a Unit needs at execution time. The resolvers are
// supplied by the evaluator; the compiler itself never touches cell storage.
type Env struct {
	Deps    Dependencies
	SheetID string
	// ResolveRef returns the scalar or matrix value of reference i. With
	// meta set it returns only the reference descriptor.
	ResolveRef func(i int, meta bool) value.Operand
	// EnsureRange resolves reference i as a matrix even when it is a single
	// cell.
	EnsureRange func(i int) value.Operand
	Context     *functions.Context
}

type evalFunc func(env *Env) value.Operand

// argFunc produces one call argument. A non-nil error operand aborts the
// call with that error.
type argFunc func(env *Env) (functions.Arg, *value.Operand)

// Unit is a compiled formula shape.
type Unit struct {
	Shape              string
	DependenciesFormat []FormatSource
	Debug              bool
	Volatile           bool
	eval               evalFunc
}

// Execute runs the unit. The result is a scalar or a matrix; evaluation
// errors are returned as error values, never as Go errors.
func (u *Unit) Execute(env *Env) value.Operand {
	if u.Debug && env.Context != nil && env.Context.Logger != nil {
		env.Context.Logger.Debug("debug formula",
			"shape", u.Shape,
			"position", env.Context.Position.String(),
			"references", env.Deps.References,
			"numbers", env.Deps.Numbers,
			"strings", env.Deps.Strings,
		)
	}
	return u.eval(env)
}

// CompileText normalizes and compiles canonical formula text.
func CompileText(text string, registry *functions.Registry) (*Unit, *formula.NormalizedFormula, error) {
	nf, err := Normalize(text)
	if err != nil {
		return nil, nil, err
	}
	unit, err := Compile(nf, registry)
	if err != nil {
		return nil, nil, err
	}
	return unit, nf, nil
}

// Normalize is formula.Normalize with parse failures reported as a
// CompileError of kind ErrParse.
func Normalize(text string) (*formula.NormalizedFormula, error) {
	nf, err := formula.Normalize(text)
	if err != nil {
		return nil, wrapParseError(err)
	}
	return nf, nil
}

func wrapParseError(err error) error {
	var parseErr *formula.ParseError
	if errors.As(err, &parseErr) {
		return &CompileError{Kind: ErrParse, Message: parseErr.Message, Err: err}
	}
	return &CompileError{Kind: ErrParse, Message: err.Error(), Err: err}
}

// Compile validates and compiles a normalized formula.
func Compile(nf *formula.NormalizedFormula, registry *functions.Registry) (*Unit, error) {
	if nf == nil || nf.Root == nil {
		return nil, newCompileError(ErrParse, "Invalid formula")
	}
	c := &compiler{registry: registry}
	root := nf.Root
	debug := false
	if d, ok := root.(*formula.Debug); ok {
		debug = true
		root = d.Expr
	}
	eval, err := c.compileNode(root)
	if err != nil {
		return nil, err
	}
	return &Unit{
		Shape:              nf.Shape,
		DependenciesFormat: inferFormats(root, registry),
		Debug:              debug,
		Volatile:           c.volatile,
		eval:               eval,
	}, nil
}

type compiler struct {
	registry *functions.Registry
	volatile bool
}

func (c *compiler) compileNode(node formula.Node) (evalFunc, error) {
	switch n := node.(type) {
	case *formula.Literal:
		return compileLiteral(n), nil
	case *formula.Reference:
		index := n.Index
		return func(env *Env) value.Operand {
			return env.ResolveRef(index, false)
		}, nil
	case *formula.UnaryOp:
		key := "u" + n.Op
		if n.Postfix {
			key = n.Op
		}
		return c.compileOperator(key, n.Operand)
	case *formula.BinaryOp:
		return c.compileOperator(n.Op, n.Left, n.Right)
	case *formula.FunctionCall:
		return c.compileFunctionCall(n)
	case *formula.Debug:
		return c.compileNode(n.Expr)
	}
	return nil, newCompileError(ErrParse, "Invalid formula: unsupported expression %s", node.String())
}

func compileLiteral(n *formula.Literal) evalFunc {
	switch n.Kind {
	case formula.LiteralNumber:
		index := n.Index
		return func(env *Env) value.Operand {
			return value.Scalar(value.Number(env.Deps.Numbers[index]))
		}
	case formula.LiteralString:
		index := n.Index
		return func(env *Env) value.Operand {
			return value.Scalar(value.Text(env.Deps.Strings[index]))
		}
	}
	v := n.Value()
	return func(env *Env) value.Operand {
		return value.Scalar(v)
	}
}

func (c *compiler) compileOperator(op string, operands ...formula.Node) (evalFunc, error) {
	name, ok := functions.OperatorFunction[op]
	if !ok {
		return nil, newCompileError(ErrParse, "Invalid formula: unknown operator %q", op)
	}
	d, ok := c.registry.Lookup(name)
	if !ok {
		return nil, newCompileError(ErrUnknownFunction, "Unknown function: %q", name)
	}
	return c.compileCall(d, operands, true)
}

func (c *compiler) compileFunctionCall(call *formula.FunctionCall) (evalFunc, error) {
	d, ok := c.registry.Lookup(call.Name)
	if !ok {
		return nil, newCompileError(ErrUnknownFunction, "Unknown function: %q", call.Name)
	}
	if err := checkArity(d, len(call.Args)); err != nil {
		return nil, err
	}
	return c.compileCall(d, call.Args, false)
}

func checkArity(d *functions.Descriptor, count int) error {
	minArgs, maxArgs, group := d.MinArgs(), d.MaxArgs(), d.RepeatingGroup()
	switch {
	case count < minArgs:
		return newCompileError(ErrArity,
			"Invalid number of arguments for the %s function. Expected %d minimum, but got %d instead.",
			d.Name, minArgs, count)
	case maxArgs >= 0 && count > maxArgs:
		return newCompileError(ErrArity,
			"Invalid number of arguments for the %s function. Expected %d maximum, but got %d instead.",
			d.Name, maxArgs, count)
	case group > 1 && count > minArgs && (count-minArgs)%group != 0:
		return newCompileError(ErrArity,
			"Invalid number of arguments for the %s function. Expected all arguments after position %d to be supplied by groups of %d arguments",
			d.Name, minArgs, group)
	}
	return nil
}

func (c *compiler) compileCall(d *functions.Descriptor, argNodes []formula.Node, isOperator bool) (evalFunc, error) {
	c.volatile = c.volatile || d.Volatile

	// declared arguments the call omits are still handed to Compute
	count := max(len(argNodes), len(d.Args)-d.RepeatingGroup())
	args := make([]argFunc, count)
	for i := range count {
		index := d.ArgIndex(i)
		if index < 0 {
			return nil, newCompileError(ErrArity,
				"Invalid number of arguments for the %s function. Expected %d maximum, but got %d instead.",
				d.Name, len(d.Args), len(argNodes))
		}
		var node formula.Node
		if i < len(argNodes) {
			node = argNodes[i]
		}
		arg, err := c.compileArg(d, d.Args[index], i, node, isOperator)
		if err != nil {
			return nil, err
		}
		args[i] = arg
	}

	compute := d.Compute
	return func(env *Env) value.Operand {
		resolved := make([]functions.Arg, len(args))
		for i, arg := range args {
			a, abort := arg(env)
			if abort != nil {
				return *abort
			}
			resolved[i] = a
		}
		return compute(env.Context, resolved)
	}, nil
}

// compileArg picks the evaluation strategy of one argument: default
// substitution, meta reference, lazy thunk or eager coercion.
func (c *compiler) compileArg(d *functions.Descriptor, desc functions.ArgDescriptor, position int, node formula.Node, isOperator bool) (argFunc, error) {
	if isEmptySlot(node) {
		return defaultArg(desc, node == nil), nil
	}

	ref, isRef := node.(*formula.Reference)
	switch {
	case desc.IsMeta() || desc.IsRangeOnly():
		if !isRef {
			return nil, newCompileError(ErrArgumentType,
				"Function %s expects the parameter %d to be reference to a cell or range, not a %s.",
				d.Name, position+1, formula.Describe(node))
		}
	case !desc.AcceptsRange() && isRef && ref.IsRange():
		if isOperator {
			return nil, newCompileError(ErrArgumentType,
				"Function %s expects its parameters to be single values or single cell references, not ranges.",
				d.Name)
		}
		return nil, newCompileError(ErrArgumentType,
			"Function %s expects the parameter %d to be a single value or a single cell reference, not a range.",
			d.Name, position+1)
	}

	if desc.IsMeta() {
		index := ref.Index
		return func(env *Env) (functions.Arg, *value.Operand) {
			return functions.Arg{Operand: env.ResolveRef(index, true)}, nil
		}, nil
	}

	var expr evalFunc
	if desc.IsRangeOnly() {
		index := ref.Index
		expr = func(env *Env) value.Operand {
			return env.EnsureRange(index)
		}
	} else {
		compiled, err := c.compileNode(node)
		if err != nil {
			return nil, err
		}
		expr = compiled
	}

	name := d.Name
	if desc.Lazy {
		return func(env *Env) (functions.Arg, *value.Operand) {
			thunk := value.NewThunk(func() value.Operand {
				op, _ := prepare(expr(env), desc, name, position)
				return op
			})
			return functions.Arg{Lazy: thunk}, nil
		}, nil
	}
	return func(env *Env) (functions.Arg, *value.Operand) {
		op, failed := prepare(expr(env), desc, name, position)
		if failed {
			return functions.Arg{}, &op
		}
		return functions.Arg{Operand: op}, nil
	}, nil
}

func isEmptySlot(node formula.Node) bool {
	if node == nil {
		return true
	}
	lit, ok := node.(*formula.Literal)
	return ok && lit.Kind == formula.LiteralEmpty
}

func defaultArg(desc functions.ArgDescriptor, omitted bool) argFunc {
	v := value.Empty()
	if desc.HasDefault {
		v = desc.Default
	}
	operand := value.Scalar(v)
	if desc.Lazy {
		return func(env *Env) (functions.Arg, *value.Operand) {
			thunk := value.NewThunk(func() value.Operand { return operand })
			return functions.Arg{Lazy: thunk, Omitted: omitted}, nil
		}
	}
	return func(env *Env) (functions.Arg, *value.Operand) {
		return functions.Arg{Operand: operand, Omitted: omitted}, nil
	}
}

// prepare shapes an evaluated argument toward its accepted types. failed is
// true when the call must short-circuit to the returned error.
func prepare(op value.Operand, desc functions.ArgDescriptor, name string, position int) (result value.Operand, failed bool) {
	if op.IsMatrix() && !desc.AcceptsRange() {
		rows, cols := op.Matrix.Dims()
		if rows != 1 || cols != 1 {
			return value.Scalar(value.Error(value.ErrorCodeValue,
				fmt.Sprintf("Function %s expects the parameter %d to be a single value, not an array.", name, position+1))), true
		}
		op = value.Operand{Value: op.Matrix[0][0], Ref: op.Ref}
	}
	if op.IsMatrix() {
		return op, false
	}
	if op.Value.IsError() {
		return op, !desc.AcceptsErrors()
	}

	var err *value.CellError
	switch desc.Types {
	case functions.ArgNumber, functions.ArgDate:
		var n float64
		if n, err = value.ToNumber(op.Value); err == nil {
			op.Value = value.Number(n).WithFormat(op.Value.Format)
		}
	case functions.ArgString:
		var s string
		if s, err = value.ToText(op.Value); err == nil {
			op.Value = value.Text(s).WithFormat(op.Value.Format)
		}
	case functions.ArgBoolean:
		var b bool
		if b, err = value.ToBoolean(op.Value); err == nil {
			op.Value = value.Boolean(b)
		}
	}
	if err != nil {
		return value.Scalar(value.FromError(err)), true
	}
	return op, false
}
