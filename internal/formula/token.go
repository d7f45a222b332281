// Package formula turns formula text into tokens, an expression tree and a
// normalized shape that identifies formulas differing only by literals.
package formula

import "strings"

// TokenKind classifies a token.
type TokenKind int

const (
	TokenNumber TokenKind = iota
	TokenString
	TokenSymbol
	TokenOperator
	TokenLeftParen
	TokenRightParen
	TokenArgSeparator
	TokenReference
	TokenSpace
	TokenDebugger
	TokenUnknown
)

var tokenKindNames = map[TokenKind]string{
	TokenNumber:       "NUMBER",
	TokenString:       "STRING",
	TokenSymbol:       "SYMBOL",
	TokenOperator:     "OPERATOR",
	TokenLeftParen:    "LEFT_PAREN",
	TokenRightParen:   "RIGHT_PAREN",
	TokenArgSeparator: "ARG_SEPARATOR",
	TokenReference:    "REFERENCE",
	TokenSpace:        "SPACE",
	TokenDebugger:     "DEBUGGER",
	TokenUnknown:      "UNKNOWN",
}

func (k TokenKind) String() string {
	return tokenKindNames[k]
}

// Span is a half-open range of rune offsets into the source formula.
type Span struct {
	Start int
	End   int
}

// Token is a lexical token. Text is the exact source text.
type Token struct {
	Kind TokenKind
	Text string
	Span Span
}

// StringValue returns the content of a STRING token without its quotes, with
// \" escapes resolved.
func (t Token) StringValue() string {
	inner := strings.TrimPrefix(t.Text, `"`)
	if t.IsTerminatedString() {
		inner = strings.TrimSuffix(inner, `"`)
	}
	return strings.ReplaceAll(inner, `\"`, `"`)
}

// IsTerminatedString reports whether a STRING token has its closing quote.
func (t Token) IsTerminatedString() bool {
	if t.Kind != TokenString || len(t.Text) < 2 || !strings.HasSuffix(t.Text, `"`) {
		return false
	}
	// the closing quote must not itself be escaped
	return len(t.Text) == 2 || t.Text[len(t.Text)-2] != '\\'
}
