package formula

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/vogtb/go-formula/internal/locale"
)

// character classification constants. slightly easier to read.
const (
	charNull       = 0
	charQuote      = '"'
	charBackslash  = '\\'
	charApostrophe = '\''
	charLParen     = '('
	charRParen     = ')'
	charEqual      = '='
	charQuestion   = '?'
	charExclaim    = '!'
	charColon      = ':'
	charDollar     = '$'
	charUnderscore = '_'
	charPeriod     = '.'
	charLess       = '<'
	charGreater    = '>'
)

// single-character operators; the comparison pairs are handled separately
const operatorChars = "+-*/^&%=<>"

var cellPattern = regexp.MustCompile(`^\$?[A-Za-z]{1,3}\$?[1-9][0-9]*$`)

// Lexer tokenizes one formula for one locale.
type Lexer struct {
	runes   []rune // UTF-8 aware representation
	pos     int
	decimal rune
	argSep  rune
	tokens  []Token
}

// Tokenize lexes a formula using the locale's decimal and argument
// separators. It never fails: runs of characters it cannot classify become
// UNKNOWN tokens. Text that does not start with "=" is not a formula and is
// returned as a single UNKNOWN token.
func Tokenize(text string, loc locale.Locale) []Token {
	l := NewLexer(text, loc)
	return l.Tokenize()
}

// NewLexer creates a lexer for text in the given locale.
func NewLexer(text string, loc locale.Locale) *Lexer {
	l := &Lexer{
		runes:   []rune(text),
		decimal: firstRune(loc.DecimalSeparator, '.'),
		argSep:  firstRune(loc.FormulaArgSeparator, ','),
	}
	return l
}

func firstRune(s string, fallback rune) rune {
	for _, r := range s {
		return r
	}
	return fallback
}

// Tokenize runs the lexer to completion.
func (l *Lexer) Tokenize() []Token {
	if len(l.runes) == 0 {
		return nil
	}
	if l.runes[0] != charEqual {
		l.emit(TokenUnknown, 0, len(l.runes))
		return l.tokens
	}

	// formula prefix, then the optional debug marker
	l.emit(TokenOperator, 0, 1)
	l.pos = 1
	if l.current() == charQuestion {
		l.emit(TokenDebugger, 1, 2)
		l.pos = 2
	}

	for l.pos < len(l.runes) {
		l.next()
	}
	return l.tokens
}

func (l *Lexer) next() {
	start := l.pos
	ch := l.current()

	switch {
	case unicode.IsSpace(ch):
		for l.pos < len(l.runes) && unicode.IsSpace(l.current()) {
			l.pos++
		}
		l.emit(TokenSpace, start, l.pos)
	case ch == charQuote:
		l.scanString()
	case l.isDigit(ch) || (ch == l.decimal && l.isDigit(l.peek(1))):
		l.scanNumber()
	case ch == l.argSep:
		l.pos++
		l.emit(TokenArgSeparator, start, l.pos)
	case ch == charLParen:
		l.pos++
		l.emit(TokenLeftParen, start, l.pos)
	case ch == charRParen:
		l.pos++
		l.emit(TokenRightParen, start, l.pos)
	case ch == charLess || ch == charGreater:
		l.pos++
		if next := l.current(); next == charEqual || (ch == charLess && next == charGreater) {
			l.pos++
		}
		l.emit(TokenOperator, start, l.pos)
	case strings.ContainsRune(operatorChars, ch):
		l.pos++
		l.emit(TokenOperator, start, l.pos)
	case ch == charApostrophe:
		if !l.scanQuotedReference() {
			l.unknown(start)
		}
	case l.isWordChar(ch):
		l.scanWord()
	default:
		l.unknown(start)
	}
}

// unknown consumes one character, merging it into a preceding UNKNOWN token
func (l *Lexer) unknown(start int) {
	l.pos = start + 1
	if n := len(l.tokens); n > 0 && l.tokens[n-1].Kind == TokenUnknown && l.tokens[n-1].Span.End == start {
		l.tokens[n-1].Span.End = l.pos
		l.tokens[n-1].Text = l.substring(l.tokens[n-1].Span.Start, l.pos)
		return
	}
	l.emit(TokenUnknown, start, l.pos)
}

// scanNumber scans digits, the locale decimal part and scientific notation
func (l *Lexer) scanNumber() {
	start := l.pos
	for l.isDigit(l.current()) {
		l.pos++
	}
	if l.current() == l.decimal {
		l.pos++
		for l.isDigit(l.current()) {
			l.pos++
		}
	}
	if l.current() == 'e' || l.current() == 'E' {
		saved := l.pos
		l.pos++
		if l.current() == '+' || l.current() == '-' {
			l.pos++
		}
		if !l.isDigit(l.current()) {
			// not scientific notation, restore position
			l.pos = saved
		} else {
			for l.isDigit(l.current()) {
				l.pos++
			}
		}
	}
	l.emit(TokenNumber, start, l.pos)
}

// scanString scans a double-quoted string with \" escapes. An unterminated
// string runs to the end of the input; the parser reports it.
func (l *Lexer) scanString() {
	start := l.pos
	l.pos++ // opening quote
	for l.pos < len(l.runes) {
		ch := l.current()
		if ch == charBackslash && l.peek(1) == charQuote {
			l.pos += 2
			continue
		}
		l.pos++
		if ch == charQuote {
			break
		}
	}
	l.emit(TokenString, start, l.pos)
}

// scanQuotedReference scans 'Sheet name'!A1[:B2]. Returns false, without
// consuming anything, when the input is not a reference.
func (l *Lexer) scanQuotedReference() bool {
	start := l.pos
	i := l.pos + 1
	for i < len(l.runes) {
		if l.runes[i] == charApostrophe {
			if i+1 < len(l.runes) && l.runes[i+1] == charApostrophe {
				i += 2
				continue
			}
			break
		}
		i++
	}
	if i >= len(l.runes) || i+1 >= len(l.runes) || l.runes[i+1] != charExclaim {
		return false
	}
	end, ok := l.matchRange(i + 2)
	if !ok {
		return false
	}
	l.pos = end
	l.emit(TokenReference, start, end)
	return true
}

// scanWord scans a symbol, a cell reference, a range or an unquoted
// sheet-qualified reference
func (l *Lexer) scanWord() {
	start := l.pos
	for l.isWordChar(l.current()) {
		l.pos++
	}
	word := l.substring(start, l.pos)

	if l.current() == charExclaim {
		if end, ok := l.matchRange(l.pos + 1); ok {
			l.pos = end
			l.emit(TokenReference, start, end)
			return
		}
	}
	// a cell-shaped name such as LOG10 is a function when a call follows
	if cellPattern.MatchString(word) && l.current() != charLParen {
		end := l.pos
		if l.current() == charColon {
			if second, ok := l.matchCell(l.pos + 1); ok {
				end = second
			}
		}
		l.pos = end
		l.emit(TokenReference, start, end)
		return
	}
	l.emit(TokenSymbol, start, l.pos)
}

// matchRange matches a cell or cell:cell starting at from and returns the
// end offset
func (l *Lexer) matchRange(from int) (int, bool) {
	end, ok := l.matchCell(from)
	if !ok {
		return 0, false
	}
	if end < len(l.runes) && l.runes[end] == charColon {
		if second, ok := l.matchCell(end + 1); ok {
			return second, true
		}
	}
	return end, true
}

func (l *Lexer) matchCell(from int) (int, bool) {
	end := from
	for end < len(l.runes) && (l.isAlphaNumeric(l.runes[end]) || l.runes[end] == charDollar) {
		end++
	}
	if end == from || !cellPattern.MatchString(l.substring(from, end)) {
		return 0, false
	}
	return end, true
}

func (l *Lexer) emit(kind TokenKind, start, end int) {
	l.tokens = append(l.tokens, Token{
		Kind: kind,
		Text: l.substring(start, end),
		Span: Span{Start: start, End: end},
	})
}

// helper methods for character navigation and classification

func (l *Lexer) substring(start, end int) string {
	if start < 0 || end > len(l.runes) || start > end {
		return ""
	}
	return string(l.runes[start:end])
}

func (l *Lexer) current() rune {
	if l.pos >= len(l.runes) {
		return charNull
	}
	return l.runes[l.pos]
}

func (l *Lexer) peek(offset int) rune {
	pos := l.pos + offset
	if pos >= len(l.runes) || pos < 0 {
		return charNull
	}
	return l.runes[pos]
}

func (l *Lexer) isDigit(ch rune) bool {
	return ch >= '0' && ch <= '9'
}

func (l *Lexer) isAlphaNumeric(ch rune) bool {
	return (ch >= 'a' && ch <= 'z') || (ch >= 'A' && ch <= 'Z') || l.isDigit(ch)
}

// isWordChar accepts what symbols, cell references and unquoted sheet names
// are made of. The decimal separator is excluded so "A1,5" stays split in
// locales where "," is the decimal separator.
func (l *Lexer) isWordChar(ch rune) bool {
	if ch == l.argSep || ch == l.decimal && ch != charPeriod {
		return false
	}
	return unicode.IsLetter(ch) || l.isDigit(ch) || ch == charUnderscore || ch == charPeriod || ch == charDollar
}
