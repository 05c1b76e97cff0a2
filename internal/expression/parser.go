package expression

import (
	"fmt"
	"strings"
)

// blanks are transparent everywhere in an expression.
const blanks = " \r\n\t"

// TokenType 词法单元类型
type TokenType int

const (
	TokenOpenBrace TokenType = iota
	TokenCloseBrace
	TokenLogicalOperator // and, or
	TokenNot
	TokenOperator // = <> < > <= >= + - * /
	TokenFunction
	TokenNumber
	TokenMacro
	TokenLLDMacro
	TokenString
)

func (t TokenType) String() string {
	switch t {
	case TokenOpenBrace:
		return "open_brace"
	case TokenCloseBrace:
		return "close_brace"
	case TokenLogicalOperator:
		return "logical_operator"
	case TokenNot:
		return "not"
	case TokenOperator:
		return "operator"
	case TokenFunction:
		return "function"
	case TokenNumber:
		return "number"
	case TokenMacro:
		return "macro"
	case TokenLLDMacro:
		return "lld_macro"
	case TokenString:
		return "string"
	}
	return "unknown"
}

// Token is a lexical unit with its byte position in the trimmed expression.
type Token struct {
	Type   TokenType `json:"type"`
	Match  string    `json:"match"`
	Pos    int       `json:"pos"`
	Length int       `json:"length"`
	// Function name and parameters, set for function tokens only.
	Name   string   `json:"name,omitempty"`
	Params []string `json:"params,omitempty"`
}

// ParseResult holds the trimmed expression and its tokens ordered by position.
type ParseResult struct {
	Expression string  `json:"expression"`
	Tokens     []Token `json:"tokens"`
}

// ParseError reports where a trigger expression stopped making sense.
type ParseError struct {
	Pos        int
	Expression string
	Msg        string
}

func (e *ParseError) Error() string {
	if e.Pos >= len(e.Expression) {
		return fmt.Sprintf("incorrect trigger expression: %s at end of input", e.Msg)
	}
	return fmt.Sprintf("incorrect trigger expression starting from %q: %s", e.Expression[e.Pos:], e.Msg)
}

// Parse tokenizes and checks a trigger expression. Surrounding blanks are trimmed first and
// every position refers to the trimmed text.
func Parse(text string) (*ParseResult, error) {
	expr := strings.Trim(text, blanks)
	l := &lexer{src: expr}
	tokens, err := l.run()
	if err != nil {
		return nil, err
	}
	if err := validate(expr, tokens); err != nil {
		return nil, err
	}
	return &ParseResult{Expression: expr, Tokens: tokens}, nil
}

type lexer struct {
	src    string
	pos    int
	tokens []Token
}

func (l *lexer) fail(pos int, format string, args ...any) error {
	return &ParseError{Pos: pos, Expression: l.src, Msg: fmt.Sprintf(format, args...)}
}

func (l *lexer) emit(t TokenType, start int) {
	l.tokens = append(l.tokens, Token{Type: t, Match: l.src[start:l.pos], Pos: start, Length: l.pos - start})
}

func (l *lexer) run() ([]Token, error) {
	for l.pos < len(l.src) {
		c := l.src[l.pos]
		start := l.pos

		switch {
		case strings.IndexByte(blanks, c) >= 0:
			l.pos++

		case c == '(':
			l.pos++
			l.emit(TokenOpenBrace, start)

		case c == ')':
			l.pos++
			l.emit(TokenCloseBrace, start)

		case c == '{':
			if err := l.macro(); err != nil {
				return nil, err
			}

		case c == '"':
			end, err := l.skipString(l.pos)
			if err != nil {
				return nil, err
			}
			l.pos = end
			l.emit(TokenString, start)

		case isDigit(c) || (c == '.' && l.pos+1 < len(l.src) && isDigit(l.src[l.pos+1])):
			if err := l.number(); err != nil {
				return nil, err
			}

		case isIdentStart(c):
			if err := l.word(); err != nil {
				return nil, err
			}

		default:
			if err := l.operator(); err != nil {
				return nil, err
			}
		}
	}
	return l.tokens, nil
}

func (l *lexer) macro() error {
	start := l.pos
	end := strings.IndexByte(l.src[start:], '}')
	if end < 0 {
		return l.fail(start, "unterminated macro")
	}
	l.pos = start + end + 1
	if l.pos-start == 2 {
		return l.fail(start, "empty macro")
	}
	if strings.HasPrefix(l.src[start:], "{#") {
		l.emit(TokenLLDMacro, start)
	} else {
		l.emit(TokenMacro, start)
	}
	return nil
}

// skipString returns the offset just past the closing quote of the string starting at pos.
func (l *lexer) skipString(pos int) (int, error) {
	for i := pos + 1; i < len(l.src); i++ {
		switch l.src[i] {
		case '\\':
			i++
		case '"':
			return i + 1, nil
		}
	}
	return 0, l.fail(pos, "unterminated string")
}

func (l *lexer) number() error {
	start := l.pos
	for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
		l.pos++
	}
	if l.pos < len(l.src) && l.src[l.pos] == '.' {
		l.pos++
		for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
			l.pos++
		}
	}
	if l.pos+1 < len(l.src) && (l.src[l.pos] == 'e' || l.src[l.pos] == 'E') {
		next := l.pos + 1
		if next < len(l.src) && (l.src[next] == '+' || l.src[next] == '-') {
			next++
		}
		if next < len(l.src) && isDigit(l.src[next]) {
			l.pos = next
			for l.pos < len(l.src) && isDigit(l.src[l.pos]) {
				l.pos++
			}
		}
	}
	if l.pos < len(l.src) && strings.IndexByte("smhdwKMGT", l.src[l.pos]) >= 0 {
		l.pos++
	}
	if l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		return l.fail(start, "invalid number")
	}
	l.emit(TokenNumber, start)
	return nil
}

func (l *lexer) word() error {
	start := l.pos
	for l.pos < len(l.src) && isIdentPart(l.src[l.pos]) {
		l.pos++
	}
	name := l.src[start:l.pos]

	switch name {
	case "and", "or":
		l.emit(TokenLogicalOperator, start)
		return nil
	case "not":
		l.emit(TokenNot, start)
		return nil
	}

	if l.pos < len(l.src) && l.src[l.pos] == '(' {
		return l.function(start, name)
	}
	return l.fail(start, "unexpected identifier %q", name)
}

// function consumes "name(param, ...)" as a single token, keeping the parameters.
func (l *lexer) function(start int, name string) error {
	open := l.pos
	depth := 0
	paramStart := open + 1
	var params []string

	for i := open; i < len(l.src); i++ {
		switch l.src[i] {
		case '"':
			end, err := l.skipString(i)
			if err != nil {
				return err
			}
			i = end - 1
		case '(':
			depth++
		case ')':
			depth--
			if depth == 0 {
				if p := strings.Trim(l.src[paramStart:i], blanks); p != "" || len(params) > 0 {
					params = append(params, p)
				}
				l.pos = i + 1
				l.emit(TokenFunction, start)
				last := &l.tokens[len(l.tokens)-1]
				last.Name = name
				last.Params = params
				return nil
			}
		case ',':
			if depth == 1 {
				params = append(params, strings.Trim(l.src[paramStart:i], blanks))
				paramStart = i + 1
			}
		}
	}
	return l.fail(start, "unterminated function call")
}

var operators = []string{"<>", "<=", ">=", "<", ">", "=", "+", "-", "*", "/"}

func (l *lexer) operator() error {
	for _, op := range operators {
		if strings.HasPrefix(l.src[l.pos:], op) {
			start := l.pos
			l.pos += len(op)
			l.emit(TokenOperator, start)
			return nil
		}
	}
	return l.fail(l.pos, "unexpected character %q", l.src[l.pos])
}

func isDigit(c byte) bool      { return c >= '0' && c <= '9' }
func isIdentStart(c byte) bool { return c == '_' || (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z') }
func isIdentPart(c byte) bool  { return isIdentStart(c) || isDigit(c) || c == '.' }

// validate checks operand/operator alternation and brace balance.
func validate(expr string, tokens []Token) error {
	if len(tokens) == 0 {
		return &ParseError{Expression: expr, Msg: "empty expression"}
	}

	fail := func(t Token, msg string) error {
		return &ParseError{Pos: t.Pos, Expression: expr, Msg: msg}
	}

	expectOperand := true
	depth := 0
	for _, t := range tokens {
		switch t.Type {
		case TokenFunction, TokenNumber, TokenMacro, TokenLLDMacro, TokenString:
			if !expectOperand {
				return fail(t, "operator expected")
			}
			expectOperand = false
		case TokenOpenBrace:
			if !expectOperand {
				return fail(t, "operator expected")
			}
			depth++
		case TokenCloseBrace:
			if expectOperand || depth == 0 {
				return fail(t, "unexpected closing parenthesis")
			}
			depth--
		case TokenNot:
			if !expectOperand {
				return fail(t, "operator expected")
			}
		case TokenLogicalOperator, TokenOperator:
			if expectOperand {
				if t.Match == "-" {
					continue
				}
				return fail(t, "operand expected")
			}
			expectOperand = true
		}
	}

	if expectOperand {
		return &ParseError{Pos: len(expr), Expression: expr, Msg: "operand expected"}
	}
	if depth > 0 {
		return &ParseError{Pos: len(expr), Expression: expr, Msg: "missing closing parenthesis"}
	}
	return nil
}
