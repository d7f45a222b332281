package compiler

import (
	"github.com/vogtb/go-formula/internal/formula"
	"github.com/vogtb/go-formula/internal/functions"
)

// FormatSource is one entry of a unit's dependency formats: either the index
// of a reference whose cell format is inherited, or a literal format.
type FormatSource struct {
	Ref    int
	Format string
}

// ReferenceFormat inherits the format of reference i.
func ReferenceFormat(i int) FormatSource {
	return FormatSource{Ref: i}
}

// LiteralFormat is a fixed format.
func LiteralFormat(format string) FormatSource {
	return FormatSource{Ref: -1, Format: format}
}

func (f FormatSource) IsReference() bool {
	return f.Ref >= 0
}

// inferFormats walks the expression and lists where its display format comes
// from, in order of preference.
func inferFormats(node formula.Node, registry *functions.Registry) []FormatSource {
	switch n := node.(type) {
	case *formula.Reference:
		return []FormatSource{ReferenceFormat(n.Index)}
	case *formula.FunctionCall:
		d, ok := registry.Lookup(n.Name)
		if !ok {
			return nil
		}
		switch d.ReturnFormat.Kind {
		case functions.FormatSpecific:
			return []FormatSource{LiteralFormat(d.ReturnFormat.Format)}
		case functions.FormatFromArgument:
			if len(n.Args) > 0 {
				return inferFormats(n.Args[0], registry)
			}
		}
		return nil
	case *formula.UnaryOp:
		return inferFormats(n.Operand, registry)
	case *formula.BinaryOp:
		left := inferFormats(n.Left, registry)
		// a formatted intermediate result on the left wins over raw references
		if onlyLiterals(left) {
			return left
		}
		return append(left, inferFormats(n.Right, registry)...)
	case *formula.Debug:
		return inferFormats(n.Expr, registry)
	}
	return nil
}

func onlyLiterals(formats []FormatSource) bool {
	if len(formats) == 0 {
		return false
	}
	for _, f := range formats {
		if f.IsReference() {
			return false
		}
	}
	return true
}
