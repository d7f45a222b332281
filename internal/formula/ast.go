package formula

import (
	"fmt"
	"strings"

	"github.com/vogtb/go-formula/internal/value"
)

// Node is an expression tree node. String renders canonical formula text.
type Node interface {
	Span() Span
	String() string
}

// LiteralKind tags a Literal.
type LiteralKind uint8

const (
	LiteralEmpty LiteralKind = iota
	LiteralNumber
	LiteralString
	LiteralBoolean
)

// Literal is a constant. Number and string literals also carry their index in
// the normalized formula's side-lists so a compiled unit can read them from
// there instead of from the tree.
type Literal struct {
	Kind     LiteralKind
	Number   float64
	Text     string
	Bool     bool
	Index    int
	Position Span
}

func (n *Literal) Span() Span {
	return n.Position
}

// Value returns the literal as a cell value.
func (n *Literal) Value() value.Value {
	switch n.Kind {
	case LiteralNumber:
		return value.Number(n.Number)
	case LiteralString:
		return value.Text(n.Text)
	case LiteralBoolean:
		return value.Boolean(n.Bool)
	}
	return value.Empty()
}

func (n *Literal) String() string {
	switch n.Kind {
	case LiteralNumber:
		return value.FormatNumber(n.Number)
	case LiteralString:
		return `"` + strings.ReplaceAll(n.Text, `"`, `\"`) + `"`
	case LiteralBoolean:
		if n.Bool {
			return "TRUE"
		}
		return "FALSE"
	}
	return ""
}

// Reference is a cell or range reference. Sheet and range validity are only
// known once the reference is resolved against a workbook, so the parser
// leaves InvalidSheet and InvalidRange unset.
type Reference struct {
	Text         string
	Sheet        string
	Range        string
	Index        int
	InvalidSheet bool
	InvalidRange bool
	Position     Span
}

func (n *Reference) Span() Span {
	return n.Position
}

func (n *Reference) String() string {
	return n.Text
}

// IsRange reports whether the reference names more than one cell.
func (n *Reference) IsRange() bool {
	return SpansRange(n.Text)
}

// SpansRange reports whether reference text names more than one cell. A range
// with coinciding corners such as "A1:$A$1" is a single cell; unparsable text
// with a colon counts as a range.
func SpansRange(text string) bool {
	_, rangeText := value.SplitReference(text)
	if !strings.Contains(rangeText, ":") {
		return false
	}
	zone, err := value.ParseZone(rangeText)
	return err != nil || !zone.IsSingleCell()
}

// UnaryOp is a prefix (+, -) or postfix (%) operation.
type UnaryOp struct {
	Op       string
	Postfix  bool
	Operand  Node
	Position Span
}

func (n *UnaryOp) Span() Span {
	return n.Position
}

func (n *UnaryOp) String() string {
	if n.Postfix {
		return n.Operand.String() + n.Op
	}
	return n.Op + n.Operand.String()
}

// BinaryOp is an infix operation.
type BinaryOp struct {
	Op       string
	Left     Node
	Right    Node
	Position Span
}

func (n *BinaryOp) Span() Span {
	return n.Position
}

func (n *BinaryOp) String() string {
	return fmt.Sprintf("(%s%s%s)", n.Left.String(), n.Op, n.Right.String())
}

// FunctionCall is NAME(args...). Explicitly omitted arguments are empty
// literals.
type FunctionCall struct {
	Name     string
	Args     []Node
	Position Span
}

func (n *FunctionCall) Span() Span {
	return n.Position
}

func (n *FunctionCall) String() string {
	args := make([]string, len(n.Args))
	for i, arg := range n.Args {
		args[i] = arg.String()
	}
	return fmt.Sprintf("%s(%s)", n.Name, strings.Join(args, ","))
}

// Debug marks a formula written with the "=?" prefix.
type Debug struct {
	Expr     Node
	Position Span
}

func (n *Debug) Span() Span {
	return n.Position
}

func (n *Debug) String() string {
	return "?" + n.Expr.String()
}

// Describe names the kind of expression a node is, for diagnostics.
func Describe(node Node) string {
	switch n := node.(type) {
	case *Literal:
		switch n.Kind {
		case LiteralNumber:
			return "number"
		case LiteralString:
			return "string"
		case LiteralBoolean:
			return "boolean"
		}
		return "empty value"
	case *Reference:
		return "reference"
	case *UnaryOp, *BinaryOp:
		return "operation"
	case *FunctionCall:
		return "function call"
	case *Debug:
		return Describe(n.Expr)
	}
	return "expression"
}

// Walk visits node and its descendants depth-first, left to right.
func Walk(node Node, fn func(Node)) {
	if node == nil {
		return
	}
	fn(node)
	switch n := node.(type) {
	case *UnaryOp:
		Walk(n.Operand, fn)
	case *BinaryOp:
		Walk(n.Left, fn)
		Walk(n.Right, fn)
	case *FunctionCall:
		for _, arg := range n.Args {
			Walk(arg, fn)
		}
	case *Debug:
		Walk(n.Expr, fn)
	}
}
