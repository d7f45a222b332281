package formula

import (
	"strconv"
	"strings"

	"github.com/vogtb/go-formula/internal/locale"
)

// NormalizedFormula is a canonical formula split into its shape and its
// literal side-lists. Formulas that differ only by number, string or
// reference literals share the same Shape.
type NormalizedFormula struct {
	Text       string
	Shape      string
	Strings    []string
	Numbers    []float64
	References []string
	Root       Node
	Debug      bool
}

// Normalize tokenizes and parses canonical formula text. Placeholders in the
// shape are |Ci| for single-cell references (A1:A1 included), |Ri| for
// ranges, |Ni| for numbers and |Si| for strings. Cells and ranges share one
// index sequence.
func Normalize(text string) (*NormalizedFormula, error) {
	tokens := Tokenize(text, locale.Canonical())
	nf := &NormalizedFormula{Text: text}

	var shape strings.Builder
	for _, tok := range tokens {
		switch tok.Kind {
		case TokenSpace:
			continue
		case TokenNumber:
			n, err := strconv.ParseFloat(tok.Text, 64)
			if err != nil {
				return nil, newParseError(ErrUnexpectedToken, tok.Span, "Invalid formula: invalid number %q", tok.Text)
			}
			shape.WriteString("|N" + strconv.Itoa(len(nf.Numbers)) + "|")
			nf.Numbers = append(nf.Numbers, n)
		case TokenString:
			shape.WriteString("|S" + strconv.Itoa(len(nf.Strings)) + "|")
			nf.Strings = append(nf.Strings, tok.StringValue())
		case TokenReference:
			kind := "C"
			if SpansRange(tok.Text) {
				kind = "R"
			}
			shape.WriteString("|" + kind + strconv.Itoa(len(nf.References)) + "|")
			nf.References = append(nf.References, tok.Text)
		case TokenSymbol:
			shape.WriteString(strings.ToUpper(tok.Text))
		case TokenDebugger:
			nf.Debug = true
			shape.WriteString(tok.Text)
		default:
			shape.WriteString(tok.Text)
		}
	}
	nf.Shape = shape.String()

	root, err := Parse(tokens)
	if err != nil {
		return nil, err
	}
	nf.Root = root
	return nf, nil
}
