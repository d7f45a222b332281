package functions

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"go.starlark.net/starlark"

	"github.com/vogtb/go-formula/internal/value"
)

// maxStarlarkSteps bounds a single user function call
const maxStarlarkSteps = 1_000_000

// LoadError represents an error loading a user function file.
type LoadError struct {
	File    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("functions/%s: %s", filepath.Base(e.File), e.Message)
}

// LoadStarlarkFunctions registers every exported function of the .star files
// in dir. A function "npv" defined in "finance.star" is registered as
// FINANCE.NPV. Positional parameters with defaults become optional
// arguments, *args becomes a repeating argument. A missing directory is not an
// error. Returns the registered names.
func LoadStarlarkFunctions(dir string, registry *Registry, logger *slog.Logger) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to access functions directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("functions path is not a directory: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.star"))
	if err != nil {
		return nil, fmt.Errorf("failed to scan functions directory: %w", err)
	}
	sort.Strings(files)

	var names []string
	var errs []error
	for _, file := range files {
		loaded, err := loadStarlarkFile(file, registry, logger)
		if err != nil {
			logger.Warn("skipping user function file", "file", file, "error", err)
			errs = append(errs, err)
			continue
		}
		names = append(names, loaded...)
	}
	return names, errors.Join(errs...)
}

func loadStarlarkFile(path string, registry *Registry, logger *slog.Logger) ([]string, error) {
	content, err := os.ReadFile(path) //nolint:gosec // G304: path comes from a glob within the functions directory
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("failed to read file: %v", err)}
	}
	namespace := strings.TrimSuffix(filepath.Base(path), ".star")

	thread := &starlark.Thread{
		Name: "load:" + namespace,
		Print: func(_ *starlark.Thread, msg string) {
			logger.Debug(msg, "file", path)
		},
	}
	globals, err := starlark.ExecFile(thread, path, content, nil) //nolint:staticcheck // SA1019: ExecFileOptions needs syntax options we do not use
	if err != nil {
		return nil, &LoadError{File: path, Message: fmt.Sprintf("Starlark execution error: %v", err)}
	}

	var names []string
	for _, exported := range globals.Keys() {
		if strings.HasPrefix(exported, "_") {
			continue
		}
		fn, ok := globals[exported].(*starlark.Function)
		if !ok {
			continue
		}
		d := starlarkDescriptor(strings.ToUpper(namespace+"."+exported), fn, logger)
		if err := registry.Register(d); err != nil {
			return names, &LoadError{File: path, Message: err.Error()}
		}
		names = append(names, d.Name)
	}
	return names, nil
}

func starlarkDescriptor(name string, fn *starlark.Function, logger *slog.Logger) *Descriptor {
	positional := fn.NumParams() - fn.NumKwonlyParams()
	if fn.HasVarargs() {
		positional--
	}
	if fn.HasKwargs() {
		positional--
	}

	args := make([]ArgDescriptor, 0, positional+1)
	for i := 0; i < positional; i++ {
		param, _ := fn.Param(i)
		args = append(args, ArgDescriptor{
			Name:     param,
			Types:    ArgAny | ArgRange,
			Optional: fn.ParamDefault(i) != nil,
		})
	}
	if fn.HasVarargs() {
		// parameters are laid out as positional, keyword-only, *args, **kwargs
		varargs := fn.NumParams() - 1
		if fn.HasKwargs() {
			varargs--
		}
		param, _ := fn.Param(varargs)
		args = append(args, ArgDescriptor{Name: param, Types: ArgAny | ArgRange, Optional: true, Repeating: true})
	}

	return &Descriptor{
		Name:        name,
		Description: fn.Doc(),
		Args:        args,
		ReturnType:  ArgAny,
		Compute: func(ctx *Context, callArgs []Arg) value.Operand {
			thread := &starlark.Thread{
				Name: "call:" + name,
				Print: func(_ *starlark.Thread, msg string) {
					logger.Debug(msg, "function", name)
				},
			}
			thread.SetMaxExecutionSteps(maxStarlarkSteps)

			tuple := make(starlark.Tuple, 0, len(callArgs))
			for _, a := range callArgs {
				// omitted optional arguments fall back to the Starlark defaults
				if a.Omitted {
					break
				}
				tuple = append(tuple, toStarlark(a.Resolve()))
			}
			result, err := starlark.Call(thread, fn, tuple, nil)
			if err != nil {
				return fail(value.ErrorCodeOther, "%s: %v", name, err)
			}
			return fromStarlark(result)
		},
	}
}

func toStarlark(op value.Operand) starlark.Value {
	if op.IsMatrix() {
		rows := make([]starlark.Value, len(op.Matrix))
		for r, row := range op.Matrix {
			cells := make([]starlark.Value, len(row))
			for c, v := range row {
				cells[c] = scalarToStarlark(v)
			}
			rows[r] = starlark.NewList(cells)
		}
		return starlark.NewList(rows)
	}
	return scalarToStarlark(op.Value)
}

func scalarToStarlark(v value.Value) starlark.Value {
	switch v.Kind {
	case value.KindNumber:
		return starlark.Float(v.Number)
	case value.KindText:
		return starlark.String(v.Text)
	case value.KindBoolean:
		return starlark.Bool(v.Bool)
	case value.KindError:
		return starlark.String(v.Err.Code.String())
	}
	return starlark.None
}

func fromStarlark(v starlark.Value) value.Operand {
	if list, ok := v.(starlark.Indexable); ok {
		if _, isString := v.(starlark.String); !isString {
			return listToOperand(list)
		}
	}
	return scalar(scalarFromStarlark(v))
}

func listToOperand(list starlark.Indexable) value.Operand {
	rows := list.Len()
	if rows == 0 {
		return fail(value.ErrorCodeValue, "User function returned an empty list.")
	}
	var m value.Matrix
	for r := 0; r < rows; r++ {
		item := list.Index(r)
		inner, ok := item.(starlark.Indexable)
		if _, isString := item.(starlark.String); isString || !ok {
			// a flat list is a single column
			m = append(m, []value.Value{scalarFromStarlark(item)})
			continue
		}
		row := make([]value.Value, inner.Len())
		for c := range row {
			row[c] = scalarFromStarlark(inner.Index(c))
		}
		if len(m) > 0 && len(m[0]) != len(row) {
			return fail(value.ErrorCodeValue, "User function returned rows of different lengths.")
		}
		m = append(m, row)
	}
	return value.Array(m)
}

func scalarFromStarlark(v starlark.Value) value.Value {
	switch x := v.(type) {
	case starlark.NoneType:
		return value.Empty()
	case starlark.Bool:
		return value.Boolean(bool(x))
	case starlark.String:
		if code, ok := value.ParseErrorCode(string(x)); ok {
			return value.Error(code, "")
		}
		return value.Text(string(x))
	case starlark.Int, starlark.Float:
		n, _ := starlark.AsFloat(x)
		return value.Number(n)
	}
	return value.Error(value.ErrorCodeValue, fmt.Sprintf("Unsupported user function result of type %s.", v.Type()))
}
