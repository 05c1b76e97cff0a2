package expression

import "fmt"

// EditAction 表达式编辑动作
type EditAction string

const (
	EditAnd     EditAction = "and"
	EditOr      EditAction = "or"
	EditReplace EditAction = "r"
	EditRemove  EditAction = "R"
)

// Valid reports whether a is one of the known edit actions.
func (a EditAction) Valid() bool {
	switch a {
	case EditAnd, EditOr, EditReplace, EditRemove:
		return true
	}
	return false
}

// Apply edits the node with the given id and reports whether it was found.
//
// and/or join text to the node. A leaf whose parent already uses the same operator gets text
// as a new sibling; anything else is wrapped into a new two-element operator. r replaces the
// node by a leaf holding text, R removes it. A parent left with one child is not collapsed.
func (t *Tree) Apply(id string, action EditAction, text string) bool {
	if t == nil || t.Root == nil || !action.Valid() {
		return false
	}
	roots := []*Node{t.Root}
	if !rebuild(&roots, id, action, text, "") {
		return false
	}
	if len(roots) == 0 {
		t.Root = nil
	} else {
		t.Root = roots[0]
	}
	return true
}

func rebuild(nodes *[]*Node, id string, action EditAction, text, parentOp string) bool {
	for i, n := range *nodes {
		if n.ID == id {
			switch action {
			case EditAnd, EditOr:
				op := string(action)
				leaf := &Node{Type: NodeExpression, Expression: text}
				switch {
				case n.Type == NodeOperator && n.Operator == op:
					n.Children = append(n.Children, leaf)
				case n.Type != NodeOperator && parentOp == op:
					*nodes = append(*nodes, leaf)
				default:
					(*nodes)[i] = &Node{Type: NodeOperator, Operator: op, Children: []*Node{n, leaf}}
				}
			case EditReplace:
				n.Type = NodeExpression
				n.Operator = ""
				n.Expression = text
				n.Children = nil
				n.Segments = nil
			case EditRemove:
				*nodes = append((*nodes)[:i:i], (*nodes)[i+1:]...)
			}
			return true
		}
		if n.Type == NodeOperator && rebuild(&n.Children, id, action, text, n.Operator) {
			return true
		}
	}
	return false
}

// Edit parses text, applies one edit and returns the re-serialized expression.
// newText is checked with the tokenizer before anything is changed.
func Edit(text, id string, action EditAction, newText string) (string, bool, error) {
	if !action.Valid() {
		return "", false, fmt.Errorf("unknown edit action %q", action)
	}
	parsed, err := Parse(text)
	if err != nil {
		return "", false, err
	}
	if action != EditRemove {
		checked, err := Parse(newText)
		if err != nil {
			return "", false, err
		}
		newText = checked.Expression
	}

	tree := BuildTree(parsed)
	found := tree.Apply(id, action, newText)
	return tree.String(), found, nil
}
