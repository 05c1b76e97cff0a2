package expression

import (
	"fmt"
	"sort"
	"strings"
)

// NodeType 表达式树节点类型
type NodeType string

const (
	NodeOperator   NodeType = "operator"
	NodeExpression NodeType = "expression"
)

// Segment is a display fragment of a leaf expression.
type Segment struct {
	Text string `json:"text"`
	Kind string `json:"kind,omitempty"`
}

// Node is either an operator with ordered children or a leaf expression.
// ID is "<start>_<end>", the inclusive byte span of the node in the trimmed source text;
// nodes added by edits carry no ID until the expression is parsed again.
type Node struct {
	ID         string    `json:"id,omitempty"`
	Type       NodeType  `json:"type"`
	Operator   string    `json:"operator,omitempty"`
	Expression string    `json:"expression"`
	Children   []*Node   `json:"elements,omitempty"`
	Segments   []Segment `json:"segments,omitempty"`
}

// Tree is a parsed trigger expression. Root is nil once everything has been removed.
type Tree struct {
	Root *Node `json:"root"`
}

// operator precedence: the loosest binding operator is split first
var splitOrder = []string{"or", "and"}

// BuildTree turns a parse result into an expression tree.
func BuildTree(r *ParseResult) *Tree {
	if r == nil || r.Expression == "" {
		return &Tree{}
	}
	b := &builder{expr: r.Expression, tokens: r.Tokens}
	return &Tree{Root: b.build(0, len(r.Expression)-1)}
}

type builder struct {
	expr   string
	tokens []Token
}

func nodeID(start, end int) string {
	return fmt.Sprintf("%d_%d", start, end)
}

// span returns the tokens whose position lies in [start, end].
func (b *builder) span(start, end int) []Token {
	from := sort.Search(len(b.tokens), func(i int) bool { return b.tokens[i].Pos >= start })
	to := sort.Search(len(b.tokens), func(i int) bool { return b.tokens[i].Pos > end })
	return b.tokens[from:to]
}

func (b *builder) trim(start, end int) (int, int) {
	for start <= end && strings.IndexByte(blanks, b.expr[start]) >= 0 {
		start++
	}
	for end >= start && strings.IndexByte(blanks, b.expr[end]) >= 0 {
		end--
	}
	return start, end
}

func (b *builder) build(start, end int) *Node {
	start, end = b.trim(start, end)
	if start > end {
		return &Node{Type: NodeExpression}
	}
	tokens := b.span(start, end)

	for _, op := range splitOrder {
		var children []*Node
		level := 0
		partStart := start

		for _, t := range tokens {
			switch t.Type {
			case TokenOpenBrace:
				level++
			case TokenCloseBrace:
				level--
			case TokenLogicalOperator:
				if level == 0 && t.Match == op {
					children = append(children, b.build(partStart, t.Pos-1))
					partStart = t.Pos + t.Length
				}
			}
		}

		if len(children) > 0 {
			children = append(children, b.build(partStart, end))
			return &Node{
				ID:         nodeID(start, end),
				Type:       NodeOperator,
				Operator:   op,
				Expression: b.expr[start : end+1],
				Children:   children,
			}
		}

		// one redundant layer of parentheses is peeled per call
		if op == "and" && wrapped(tokens, start, end) {
			return b.build(start+1, end-1)
		}
	}

	return &Node{
		ID:         nodeID(start, end),
		Type:       NodeExpression,
		Expression: b.expr[start : end+1],
		Segments:   b.segments(start, end, tokens),
	}
}

// wrapped reports whether the first token opens a parenthesis that closes at end.
func wrapped(tokens []Token, start, end int) bool {
	if len(tokens) == 0 || tokens[0].Type != TokenOpenBrace || tokens[0].Pos != start {
		return false
	}
	level := 0
	for _, t := range tokens {
		switch t.Type {
		case TokenOpenBrace:
			level++
		case TokenCloseBrace:
			level--
			if level == 0 {
				return t.Pos == end
			}
		}
	}
	return false
}

func (b *builder) segments(start, end int, tokens []Token) []Segment {
	var result []Segment
	cursor := start
	for _, t := range tokens {
		if t.Pos > cursor {
			result = append(result, Segment{Text: b.expr[cursor:t.Pos]})
		}
		result = append(result, Segment{Text: t.Match, Kind: t.Type.String()})
		cursor = t.Pos + t.Length
	}
	if cursor <= end {
		result = append(result, Segment{Text: b.expr[cursor : end+1]})
	}
	return result
}

// String serializes the tree. Nested operators are parenthesized, the root one is not.
func (t *Tree) String() string {
	if t == nil || t.Root == nil {
		return ""
	}
	return serialize(t.Root, 0)
}

func serialize(n *Node, level int) string {
	if n.Type != NodeOperator {
		return n.Expression
	}
	parts := make([]string, 0, len(n.Children))
	for _, c := range n.Children {
		parts = append(parts, serialize(c, level+1))
	}
	s := strings.Join(parts, " "+n.Operator+" ")
	if level > 0 {
		return "(" + s + ")"
	}
	return s
}

// Find returns the node with the given id.
func (t *Tree) Find(id string) *Node {
	if t == nil || t.Root == nil {
		return nil
	}
	return find(t.Root, id)
}

func find(n *Node, id string) *Node {
	if n.ID == id {
		return n
	}
	for _, c := range n.Children {
		if found := find(c, id); found != nil {
			return found
		}
	}
	return nil
}

// OutlineRow is one line of the editable outline view.
type OutlineRow struct {
	Level      int       `json:"level"`
	ID         string    `json:"id"`
	Type       NodeType  `json:"type"`
	Operator   string    `json:"operator,omitempty"`
	Expression string    `json:"expression"`
	Segments   []Segment `json:"segments"`
}

// Outline flattens the tree depth first.
func (t *Tree) Outline() []OutlineRow {
	rows := []OutlineRow{}
	if t == nil || t.Root == nil {
		return rows
	}
	var walk func(n *Node, level int)
	walk = func(n *Node, level int) {
		row := OutlineRow{
			Level:      level,
			ID:         n.ID,
			Type:       n.Type,
			Operator:   n.Operator,
			Expression: n.Expression,
			Segments:   n.Segments,
		}
		if n.Type == NodeOperator {
			row.Segments = []Segment{{Text: n.Operator, Kind: TokenLogicalOperator.String()}}
		} else if len(row.Segments) == 0 {
			row.Segments = []Segment{{Text: n.Expression}}
		}
		rows = append(rows, row)
		for _, c := range n.Children {
			walk(c, level+1)
		}
	}
	walk(t.Root, 0)
	return rows
}
