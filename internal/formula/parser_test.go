package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vogtb/go-formula/internal/locale"
)

func parse(t *testing.T, text string) (Node, error) {
	t.Helper()
	return Parse(Tokenize(text, locale.Canonical()))
}

func TestParseValid(t *testing.T) {
	tests := []struct {
		formula string
		want    string
	}{
		{"=1+2*3", "(1+(2*3))"},
		{"=(1+2)*3", "((1+2)*3)"},
		{"=2^3^2", "((2^3)^2)"},
		{"=-2^2", "(-2^2)"},
		{"=1-2-3", "((1-2)-3)"},
		{"=50%", "50%"},
		{"=A1&\"x\"", `(A1&"x")`},
		{"=1<=2", "(1<=2)"},
		{"=1+2=3", "((1+2)=3)"},
		{"=sum(1, 2)", "SUM(1,2)"},
		{"=SUM(1,,2)", "SUM(1,,2)"},
		{"=IF(A1,)", "IF(A1,)"},
		{"=PI()", "PI()"},
		{"=true", "TRUE"},
		{"=?1+1", "?(1+1)"},
		{"= SUM( A1:B2 ) ", "SUM(A1:B2)"},
		{"=Sheet2!A1*2", "(Sheet2!A1*2)"},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			node, err := parse(t, tt.formula)
			require.NoError(t, err)
			assert.Equal(t, tt.want, node.String())
		})
	}
}

func TestParseInvalid(t *testing.T) {
	tests := []struct {
		formula string
		kind    ParseErrorKind
	}{
		{"", ErrInvalidFormula},
		{"1+1", ErrInvalidFormula},
		{"=", ErrInvalidFormula},
		{"=(1", ErrUnmatchedParenthesis},
		{"=1)", ErrUnmatchedParenthesis},
		{"=SUM(1", ErrUnmatchedParenthesis},
		{"=()", ErrInvalidEmptyArgument},
		{"=,1", ErrInvalidEmptyArgument},
		{`="abc`, ErrUnterminatedString},
		{"=1+", ErrUnexpectedToken},
		{"=1 2", ErrUnexpectedToken},
		{"=1#", ErrUnexpectedToken},
		{"=foo", ErrUnexpectedToken},
		{"=*1", ErrUnexpectedToken},
	}
	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			_, err := parse(t, tt.formula)
			require.Error(t, err)
			var parseErr *ParseError
			require.ErrorAs(t, err, &parseErr)
			assert.Equal(t, tt.kind, parseErr.Kind, parseErr.Message)
			assert.Contains(t, parseErr.Message, "Invalid formula")
		})
	}
}

func TestParseNumbersLiteralsInSourceOrder(t *testing.T) {
	node, err := parse(t, `=SUM(3, "a", B1, 4, "b", C1:C2)`)
	require.NoError(t, err)

	var numbers, strs, refs []int
	Walk(node, func(n Node) {
		switch n := n.(type) {
		case *Literal:
			switch n.Kind {
			case LiteralNumber:
				numbers = append(numbers, n.Index)
			case LiteralString:
				strs = append(strs, n.Index)
			}
		case *Reference:
			refs = append(refs, n.Index)
		}
	})
	assert.Equal(t, []int{0, 1}, numbers)
	assert.Equal(t, []int{0, 1}, strs)
	assert.Equal(t, []int{0, 1}, refs)
}

func TestDescribe(t *testing.T) {
	tests := map[string]string{
		"=1":      "number",
		`="a"`:    "string",
		"=TRUE":   "boolean",
		"=A1":     "reference",
		"=1+1":    "operation",
		"=SUM(1)": "function call",
		"=?A1":    "reference",
	}
	for formula, want := range tests {
		node, err := parse(t, formula)
		require.NoError(t, err, formula)
		assert.Equal(t, want, Describe(node), formula)
	}
}
