package value

// Matrix is a two-dimensional block of values in row-major order:
// m[row][col].
type Matrix [][]Value

// NewMatrix allocates an empty rows x cols matrix.
func NewMatrix(rows, cols int) Matrix {
	m := make(Matrix, rows)
	for r := range m {
		m[r] = make([]Value, cols)
	}
	return m
}

// Dims returns the number of rows and columns.
func (m Matrix) Dims() (rows, cols int) {
	if len(m) == 0 {
		return 0, 0
	}
	return len(m), len(m[0])
}

// Each visits every value in row-major order.
func (m Matrix) Each(fn func(row, col int, v Value)) {
	for r, line := range m {
		for c, v := range line {
			fn(r, c, v)
		}
	}
}

// Operand is what an expression evaluates to: a scalar, a matrix (range or
// array result), or, for meta arguments, the reference descriptor itself.
type Operand struct {
	Value  Value
	Matrix Matrix
	Ref    *Reference
}

// Scalar wraps a value into an operand.
func Scalar(v Value) Operand {
	return Operand{Value: v}
}

// Array wraps a matrix into an operand.
func Array(m Matrix) Operand {
	return Operand{Matrix: m}
}

// IsMatrix reports whether the operand is two-dimensional.
func (o Operand) IsMatrix() bool {
	return o.Matrix != nil
}

// First returns the scalar, or the top-left element of a matrix.
func (o Operand) First() Value {
	if o.Matrix != nil {
		if rows, cols := o.Matrix.Dims(); rows > 0 && cols > 0 {
			return o.Matrix[0][0]
		}
		return Empty()
	}
	return o.Value
}

// Reference describes what a reference expression points to. It is handed to
// meta arguments instead of the referenced content.
type Reference struct {
	Text         string
	SheetID      string
	SheetName    string
	Zone         Zone
	InvalidSheet bool
	InvalidRange bool
}

// Err returns the evaluation error of an unresolvable reference, if any.
func (r *Reference) Err() *CellError {
	switch {
	case r.InvalidSheet:
		return NewCellError(ErrorCodeRef, "Invalid sheet name: "+r.SheetName)
	case r.InvalidRange:
		return NewCellError(ErrorCodeRef, "Invalid reference: "+r.Text)
	}
	return nil
}
