package formula

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/vogtb/go-formula/internal/value"
)

// ParseErrorKind classifies parse failures.
type ParseErrorKind int

const (
	ErrUnexpectedToken ParseErrorKind = iota
	ErrUnmatchedParenthesis
	ErrInvalidEmptyArgument
	ErrUnterminatedString
	ErrInvalidFormula
)

func (k ParseErrorKind) String() string {
	switch k {
	case ErrUnexpectedToken:
		return "unexpected token"
	case ErrUnmatchedParenthesis:
		return "unmatched parenthesis"
	case ErrInvalidEmptyArgument:
		return "invalid empty argument"
	case ErrUnterminatedString:
		return "unterminated string"
	}
	return "invalid formula"
}

// ParseError reports why a token stream is not a valid expression.
type ParseError struct {
	Kind    ParseErrorKind
	Message string
	Span    Span
}

func (e *ParseError) Error() string {
	return e.Message
}

func newParseError(kind ParseErrorKind, span Span, format string, args ...any) *ParseError {
	return &ParseError{Kind: kind, Message: fmt.Sprintf(format, args...), Span: span}
}

// binding powers; unary prefix operators bind tighter than all of them
var operatorPriority = map[string]int{
	"^":  30,
	"%":  30,
	"*":  20,
	"/":  20,
	"+":  15,
	"-":  15,
	"&":  13,
	"=":  10,
	"<>": 10,
	"<":  10,
	"<=": 10,
	">":  10,
	">=": 10,
}

const unaryPriority = 40

// postfix operators are recognized by value
var postfixOperators = map[string]bool{"%": true}

// Parser builds an expression tree from tokens. Literal and reference nodes
// are numbered in the order they are consumed, which is source order.
type Parser struct {
	tokens     []Token
	pos        int
	numbers    int
	strings    int
	references int
}

// Parse parses a full token stream, starting with the "=" prefix and an
// optional debug marker.
func Parse(tokens []Token) (Node, error) {
	p := NewParser(tokens)
	return p.Parse()
}

// NewParser creates a parser over tokens. SPACE tokens are dropped.
func NewParser(tokens []Token) *Parser {
	filtered := make([]Token, 0, len(tokens))
	for _, tok := range tokens {
		if tok.Kind != TokenSpace {
			filtered = append(filtered, tok)
		}
	}
	return &Parser{tokens: filtered}
}

// Parse parses the tokens into an expression tree
func (p *Parser) Parse() (Node, error) {
	if len(p.tokens) == 0 {
		return nil, newParseError(ErrInvalidFormula, Span{}, "Invalid formula")
	}
	first := p.tokens[0]
	if first.Kind != TokenOperator || first.Text != "=" {
		return nil, newParseError(ErrInvalidFormula, first.Span, "Invalid formula: a formula must start with \"=\"")
	}
	p.pos = 1

	// reject what the lexer could not classify before building anything
	for _, tok := range p.tokens {
		switch {
		case tok.Kind == TokenUnknown:
			return nil, newParseError(ErrUnexpectedToken, tok.Span, "Invalid formula: unexpected %q", tok.Text)
		case tok.Kind == TokenString && !tok.IsTerminatedString():
			return nil, newParseError(ErrUnterminatedString, tok.Span, "Invalid formula: missing closing quote")
		}
	}

	debug := false
	if tok, ok := p.current(); ok && tok.Kind == TokenDebugger {
		debug = true
		p.pos++
	}

	if _, ok := p.current(); !ok {
		return nil, newParseError(ErrInvalidFormula, first.Span, "Invalid formula: empty expression")
	}

	node, err := p.parseExpression(0)
	if err != nil {
		return nil, err
	}

	if tok, ok := p.current(); ok {
		if tok.Kind == TokenRightParen {
			return nil, newParseError(ErrUnmatchedParenthesis, tok.Span, "Invalid formula: unmatched closing parenthesis")
		}
		return nil, newParseError(ErrUnexpectedToken, tok.Span, "Invalid formula: unexpected %q", tok.Text)
	}

	if debug {
		return &Debug{Expr: node, Position: Span{Start: first.Span.Start, End: node.Span().End}}, nil
	}
	return node, nil
}

// parseExpression is precedence climbing over binary and postfix operators
func (p *Parser) parseExpression(minPriority int) (Node, error) {
	left, err := p.parsePrefix()
	if err != nil {
		return nil, err
	}

	for {
		tok, ok := p.current()
		if !ok || tok.Kind != TokenOperator {
			break
		}
		priority, isOperator := operatorPriority[tok.Text]
		if !isOperator || priority <= minPriority {
			break
		}
		p.pos++

		if postfixOperators[tok.Text] {
			left = &UnaryOp{
				Op:       tok.Text,
				Postfix:  true,
				Operand:  left,
				Position: Span{Start: left.Span().Start, End: tok.Span.End},
			}
			continue
		}

		// left-associative
		right, err := p.parseExpression(priority)
		if err != nil {
			return nil, err
		}
		left = &BinaryOp{
			Op:       tok.Text,
			Left:     left,
			Right:    right,
			Position: Span{Start: left.Span().Start, End: right.Span().End},
		}
	}
	return left, nil
}

// parsePrefix handles literals, references, function calls, parentheses and
// unary prefix operators
func (p *Parser) parsePrefix() (Node, error) {
	tok, ok := p.current()
	if !ok {
		return nil, newParseError(ErrUnexpectedToken, p.endSpan(), "Invalid formula: unexpected end of formula")
	}

	switch tok.Kind {
	case TokenNumber:
		p.pos++
		n, err := strconv.ParseFloat(tok.Text, 64)
		if err != nil {
			return nil, newParseError(ErrUnexpectedToken, tok.Span, "Invalid formula: invalid number %q", tok.Text)
		}
		node := &Literal{Kind: LiteralNumber, Number: n, Index: p.numbers, Position: tok.Span}
		p.numbers++
		return node, nil

	case TokenString:
		p.pos++
		node := &Literal{Kind: LiteralString, Text: tok.StringValue(), Index: p.strings, Position: tok.Span}
		p.strings++
		return node, nil

	case TokenReference:
		p.pos++
		sheet, rangeText := value.SplitReference(tok.Text)
		node := &Reference{
			Text:     tok.Text,
			Sheet:    sheet,
			Range:    rangeText,
			Index:    p.references,
			Position: tok.Span,
		}
		p.references++
		return node, nil

	case TokenSymbol:
		return p.parseSymbol(tok)

	case TokenLeftParen:
		p.pos++
		if next, ok := p.current(); ok && next.Kind == TokenRightParen {
			return nil, newParseError(ErrInvalidEmptyArgument, Span{Start: tok.Span.Start, End: next.Span.End}, "Invalid formula: empty parentheses")
		}
		node, err := p.parseExpression(0)
		if err != nil {
			return nil, err
		}
		closing, ok := p.current()
		if !ok {
			return nil, newParseError(ErrUnmatchedParenthesis, tok.Span, "Invalid formula: missing closing parenthesis")
		}
		if closing.Kind != TokenRightParen {
			return nil, newParseError(ErrUnexpectedToken, closing.Span, "Invalid formula: unexpected %q", closing.Text)
		}
		p.pos++
		return node, nil

	case TokenOperator:
		if tok.Text != "+" && tok.Text != "-" {
			break
		}
		p.pos++
		operand, err := p.parseExpression(unaryPriority)
		if err != nil {
			return nil, err
		}
		return &UnaryOp{
			Op:       tok.Text,
			Operand:  operand,
			Position: Span{Start: tok.Span.Start, End: operand.Span().End},
		}, nil

	case TokenRightParen:
		return nil, newParseError(ErrUnmatchedParenthesis, tok.Span, "Invalid formula: unmatched closing parenthesis")

	case TokenArgSeparator:
		return nil, newParseError(ErrInvalidEmptyArgument, tok.Span, "Invalid formula: empty argument outside of a function call")
	}

	return nil, newParseError(ErrUnexpectedToken, tok.Span, "Invalid formula: unexpected %q", tok.Text)
}

func (p *Parser) parseSymbol(tok Token) (Node, error) {
	p.pos++
	name := strings.ToUpper(tok.Text)

	if next, ok := p.current(); ok && next.Kind == TokenLeftParen {
		return p.parseFunctionCall(name, tok)
	}

	switch name {
	case "TRUE", "FALSE":
		return &Literal{Kind: LiteralBoolean, Bool: name == "TRUE", Position: tok.Span}, nil
	}
	return nil, newParseError(ErrUnexpectedToken, tok.Span, "Invalid formula: unknown name %q", tok.Text)
}

// parseFunctionCall parses NAME( arg, arg, ... ). Two consecutive separators
// denote an omitted argument.
func (p *Parser) parseFunctionCall(name string, nameTok Token) (Node, error) {
	open, _ := p.current()
	p.pos++ // consume '('

	args := []Node{}
	if next, ok := p.current(); ok && next.Kind == TokenRightParen {
		p.pos++
		return &FunctionCall{Name: name, Args: args, Position: Span{Start: nameTok.Span.Start, End: next.Span.End}}, nil
	}

	for {
		tok, ok := p.current()
		if !ok {
			return nil, newParseError(ErrUnmatchedParenthesis, open.Span, "Invalid formula: missing closing parenthesis for %s", name)
		}

		if tok.Kind == TokenArgSeparator || tok.Kind == TokenRightParen {
			args = append(args, &Literal{Kind: LiteralEmpty, Position: Span{Start: tok.Span.Start, End: tok.Span.Start}})
		} else {
			arg, err := p.parseExpression(0)
			if err != nil {
				return nil, err
			}
			args = append(args, arg)
		}

		tok, ok = p.current()
		if !ok {
			return nil, newParseError(ErrUnmatchedParenthesis, open.Span, "Invalid formula: missing closing parenthesis for %s", name)
		}
		switch tok.Kind {
		case TokenRightParen:
			p.pos++
			return &FunctionCall{Name: name, Args: args, Position: Span{Start: nameTok.Span.Start, End: tok.Span.End}}, nil
		case TokenArgSeparator:
			p.pos++
		default:
			return nil, newParseError(ErrUnexpectedToken, tok.Span, "Invalid formula: unexpected %q in arguments of %s", tok.Text, name)
		}
	}
}

func (p *Parser) current() (Token, bool) {
	if p.pos >= len(p.tokens) {
		return Token{}, false
	}
	return p.tokens[p.pos], true
}

func (p *Parser) endSpan() Span {
	if len(p.tokens) == 0 {
		return Span{}
	}
	end := p.tokens[len(p.tokens)-1].Span.End
	return Span{Start: end, End: end}
}
