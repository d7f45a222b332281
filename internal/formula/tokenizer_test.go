package formula

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vogtb/go-formula/internal/locale"
)

type wantToken struct {
	kind TokenKind
	text string
}

func kinds(tokens []Token) []wantToken {
	out := make([]wantToken, 0, len(tokens))
	for _, tok := range tokens {
		out = append(out, wantToken{tok.Kind, tok.Text})
	}
	return out
}

func french() locale.Locale {
	l, _ := locale.NewDefaultRegistry().Lookup("fr_FR")
	return l
}

func TestTokenize(t *testing.T) {
	tests := []struct {
		name    string
		formula string
		loc     locale.Locale
		want    []wantToken
	}{
		{
			name:    "function call with range",
			formula: "=SUM(A1:B2, 1.5)",
			loc:     locale.Canonical(),
			want: []wantToken{
				{TokenOperator, "="},
				{TokenSymbol, "SUM"},
				{TokenLeftParen, "("},
				{TokenReference, "A1:B2"},
				{TokenArgSeparator, ","},
				{TokenSpace, " "},
				{TokenNumber, "1.5"},
				{TokenRightParen, ")"},
			},
		},
		{
			name:    "locale separators",
			formula: "=SUM(1,5;2)",
			loc:     french(),
			want: []wantToken{
				{TokenOperator, "="},
				{TokenSymbol, "SUM"},
				{TokenLeftParen, "("},
				{TokenNumber, "1,5"},
				{TokenArgSeparator, ";"},
				{TokenNumber, "2"},
				{TokenRightParen, ")"},
			},
		},
		{
			name:    "cell-shaped function name",
			formula: "=LOG10(A1)+ABC1",
			loc:     locale.Canonical(),
			want: []wantToken{
				{TokenOperator, "="},
				{TokenSymbol, "LOG10"},
				{TokenLeftParen, "("},
				{TokenReference, "A1"},
				{TokenRightParen, ")"},
				{TokenOperator, "+"},
				{TokenReference, "ABC1"},
			},
		},
		{
			name:    "comparison operators",
			formula: "=A1<=B1<>C1",
			loc:     locale.Canonical(),
			want: []wantToken{
				{TokenOperator, "="},
				{TokenReference, "A1"},
				{TokenOperator, "<="},
				{TokenReference, "B1"},
				{TokenOperator, "<>"},
				{TokenReference, "C1"},
			},
		},
		{
			name:    "sheet references",
			formula: "='My Sheet'!$A$1+Data!B2:C3",
			loc:     locale.Canonical(),
			want: []wantToken{
				{TokenOperator, "="},
				{TokenReference, "'My Sheet'!$A$1"},
				{TokenOperator, "+"},
				{TokenReference, "Data!B2:C3"},
			},
		},
		{
			name:    "strings with escapes",
			formula: `="say \"hi\""&"x"`,
			loc:     locale.Canonical(),
			want: []wantToken{
				{TokenOperator, "="},
				{TokenString, `"say \"hi\""`},
				{TokenOperator, "&"},
				{TokenString, `"x"`},
			},
		},
		{
			name:    "debugger and scientific notation",
			formula: "=?1e3+2E-2",
			loc:     locale.Canonical(),
			want: []wantToken{
				{TokenOperator, "="},
				{TokenDebugger, "?"},
				{TokenNumber, "1e3"},
				{TokenOperator, "+"},
				{TokenNumber, "2E-2"},
			},
		},
		{
			name:    "dotted function names",
			formula: "=FINANCE.NPV(1)",
			loc:     locale.Canonical(),
			want: []wantToken{
				{TokenOperator, "="},
				{TokenSymbol, "FINANCE.NPV"},
				{TokenLeftParen, "("},
				{TokenNumber, "1"},
				{TokenRightParen, ")"},
			},
		},
		{
			name:    "unknown characters merge",
			formula: "=1#@",
			loc:     locale.Canonical(),
			want: []wantToken{
				{TokenOperator, "="},
				{TokenNumber, "1"},
				{TokenUnknown, "#@"},
			},
		},
		{
			name:    "plain text",
			formula: "hello",
			loc:     locale.Canonical(),
			want:    []wantToken{{TokenUnknown, "hello"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, kinds(Tokenize(tt.formula, tt.loc)))
		})
	}
}

func TestTokenizeSpansCoverInput(t *testing.T) {
	for _, formula := range []string{`=SUM(A1, "é", 2)`, "=1+'x y'!A1", "=  ?  "} {
		tokens := Tokenize(formula, locale.Canonical())
		runes := []rune(formula)
		offset := 0
		for _, tok := range tokens {
			assert.Equal(t, offset, tok.Span.Start, formula)
			assert.Equal(t, string(runes[tok.Span.Start:tok.Span.End]), tok.Text, formula)
			offset = tok.Span.End
		}
		assert.Equal(t, len(runes), offset, formula)
	}
	assert.Empty(t, Tokenize("", locale.Canonical()))
}

func TestStringValue(t *testing.T) {
	tok := Token{Kind: TokenString, Text: `"a \"b\""`}
	assert.True(t, tok.IsTerminatedString())
	assert.Equal(t, `a "b"`, tok.StringValue())

	open := Token{Kind: TokenString, Text: `"abc`}
	assert.False(t, open.IsTerminatedString())
	assert.Equal(t, "abc", open.StringValue())

	assert.Equal(t, "ARG_SEPARATOR", TokenArgSeparator.String())
}
