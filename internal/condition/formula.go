package condition

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
)

type formulaKind int

const (
	formulaRef formulaKind = iota
	formulaAnd
	formulaOr
	formulaNot
)

// formulaNode is a node of a parsed custom action formula such as "A and (B or not C)".
type formulaNode struct {
	kind     formulaKind
	ref      string
	children []*formulaNode
}

func (n *formulaNode) eval(values map[string]bool) bool {
	switch n.kind {
	case formulaRef:
		return values[n.ref]
	case formulaNot:
		return !n.children[0].eval(values)
	case formulaAnd:
		for _, c := range n.children {
			if !c.eval(values) {
				return false
			}
		}
		return true
	case formulaOr:
		for _, c := range n.children {
			if c.eval(values) {
				return true
			}
		}
		return false
	}
	return false
}

func (n *formulaNode) refs(into map[string]struct{}) {
	if n.kind == formulaRef {
		into[n.ref] = struct{}{}
		return
	}
	for _, c := range n.children {
		c.refs(into)
	}
}

type formulaToken struct {
	text string
	pos  int
}

type formulaParser struct {
	tokens []formulaToken
	pos    int
}

func tokenizeFormula(formula string) ([]formulaToken, error) {
	var tokens []formulaToken
	for i := 0; i < len(formula); {
		c := rune(formula[i])
		switch {
		case c == ' ' || c == '\t' || c == '\r' || c == '\n':
			i++
		case c == '(' || c == ')':
			tokens = append(tokens, formulaToken{text: string(c), pos: i})
			i++
		case unicode.IsLetter(c):
			start := i
			for i < len(formula) && unicode.IsLetter(rune(formula[i])) {
				i++
			}
			word := formula[start:i]
			if word != "and" && word != "or" && word != "not" && strings.ToUpper(word) != word {
				return nil, fmt.Errorf("unexpected %q at position %d", word, start)
			}
			tokens = append(tokens, formulaToken{text: word, pos: start})
		default:
			return nil, fmt.Errorf("unexpected %q at position %d", string(c), i)
		}
	}
	return tokens, nil
}

// parseFormula parses a custom condition formula.
func parseFormula(formula string) (*formulaNode, error) {
	tokens, err := tokenizeFormula(formula)
	if err != nil {
		return nil, err
	}
	if len(tokens) == 0 {
		return nil, fmt.Errorf("empty formula")
	}
	p := &formulaParser{tokens: tokens}
	node, err := p.parseOr()
	if err != nil {
		return nil, err
	}
	if p.pos < len(p.tokens) {
		t := p.tokens[p.pos]
		return nil, fmt.Errorf("unexpected %q at position %d", t.text, t.pos)
	}
	return node, nil
}

func (p *formulaParser) peek() string {
	if p.pos < len(p.tokens) {
		return p.tokens[p.pos].text
	}
	return ""
}

func (p *formulaParser) parseOr() (*formulaNode, error) {
	return p.parseBinary("or", formulaOr, p.parseAnd)
}

func (p *formulaParser) parseAnd() (*formulaNode, error) {
	return p.parseBinary("and", formulaAnd, p.parseFactor)
}

func (p *formulaParser) parseBinary(keyword string, kind formulaKind, next func() (*formulaNode, error)) (*formulaNode, error) {
	first, err := next()
	if err != nil {
		return nil, err
	}
	children := []*formulaNode{first}
	for p.peek() == keyword {
		p.pos++
		child, err := next()
		if err != nil {
			return nil, err
		}
		children = append(children, child)
	}
	if len(children) == 1 {
		return first, nil
	}
	return &formulaNode{kind: kind, children: children}, nil
}

func (p *formulaParser) parseFactor() (*formulaNode, error) {
	if p.pos >= len(p.tokens) {
		return nil, fmt.Errorf("unexpected end of formula")
	}
	t := p.tokens[p.pos]
	switch t.text {
	case "not":
		p.pos++
		child, err := p.parseFactor()
		if err != nil {
			return nil, err
		}
		return &formulaNode{kind: formulaNot, children: []*formulaNode{child}}, nil
	case "(":
		p.pos++
		node, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		if p.peek() != ")" {
			return nil, fmt.Errorf("missing closing parenthesis for position %d", t.pos)
		}
		p.pos++
		return node, nil
	case ")", "and", "or":
		return nil, fmt.Errorf("unexpected %q at position %d", t.text, t.pos)
	}
	p.pos++
	return &formulaNode{kind: formulaRef, ref: t.text}, nil
}

// ValidateFormula checks a custom formula against the conditions of an action: it must parse,
// reference only defined condition ids and use every condition.
func ValidateFormula(formula string, conditions []Condition) error {
	node, err := parseFormula(formula)
	if err != nil {
		return fmt.Errorf("invalid formula: %w", err)
	}

	used := make(map[string]struct{})
	node.refs(used)

	defined := make(map[string]struct{}, len(conditions))
	for _, c := range conditions {
		if c.FormulaID == "" {
			return fmt.Errorf("condition of type %d has no formula id", c.Type)
		}
		defined[c.FormulaID] = struct{}{}
	}

	var missing, unused []string
	for ref := range used {
		if _, ok := defined[ref]; !ok {
			missing = append(missing, ref)
		}
	}
	for id := range defined {
		if _, ok := used[id]; !ok {
			unused = append(unused, id)
		}
	}
	sort.Strings(missing)
	sort.Strings(unused)

	if len(missing) > 0 {
		return fmt.Errorf("formula references undefined conditions: %s", strings.Join(missing, ", "))
	}
	if len(unused) > 0 {
		return fmt.Errorf("conditions not used in formula: %s", strings.Join(unused, ", "))
	}
	return nil
}
