package scanner

import (
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// nodeText extracts the text content of a tree-sitter node.
func nodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// position returns the 1-based line and column of node's start.
func position(node *sitter.Node) (int, int) {
	p := node.StartPosition()
	return int(p.Row) + 1, int(p.Column) + 1
}

// walkTree recursively walks a tree-sitter tree and calls the visitor for each
// node. Returning false from the visitor skips the node's children.
func walkTree(node *sitter.Node, visitor func(*sitter.Node) bool) {
	if node == nil {
		return
	}

	if !visitor(node) {
		return
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		walkTree(node.Child(uint(i)), visitor)
	}
}

// findChildByType finds the first child node with the given type.
func findChildByType(node *sitter.Node, nodeType string) *sitter.Node {
	if node == nil {
		return nil
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child != nil && child.Kind() == nodeType {
			return child
		}
	}
	return nil
}

// findChildrenByType finds all child nodes with the given type.
func findChildrenByType(node *sitter.Node, nodeType string) []*sitter.Node {
	var results []*sitter.Node
	if node == nil {
		return results
	}

	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child != nil && child.Kind() == nodeType {
			results = append(results, child)
		}
	}
	return results
}

// hasToken reports whether node has an anonymous child token such as
// "static", "async", "?" or "!".
func hasToken(node *sitter.Node, token string) bool {
	if node == nil {
		return false
	}
	for i := 0; i < int(node.ChildCount()); i++ {
		child := node.Child(uint(i))
		if child != nil && !child.IsNamed() && child.Kind() == token {
			return true
		}
	}
	return false
}

// accessibility returns "public", "private", "protected" or "" when no
// modifier is written.
func accessibility(node *sitter.Node, source []byte) string {
	return nodeText(findChildByType(node, "accessibility_modifier"), source)
}

// namedChildren returns node's named children, skipping comments.
func namedChildren(node *sitter.Node) []*sitter.Node {
	var out []*sitter.Node
	if node == nil {
		return out
	}
	for i := 0; i < int(node.NamedChildCount()); i++ {
		child := node.NamedChild(uint(i))
		if child != nil && child.Kind() != "comment" {
			out = append(out, child)
		}
	}
	return out
}

// firstNamedChild returns the first non-comment named child.
func firstNamedChild(node *sitter.Node) *sitter.Node {
	children := namedChildren(node)
	if len(children) == 0 {
		return nil
	}
	return children[0]
}

// unwrapExpression looks through parentheses, type assertions and non-null
// assertions, none of which change a literal's value.
func unwrapExpression(node *sitter.Node) *sitter.Node {
	for node != nil {
		switch node.Kind() {
		case "parenthesized_expression", "as_expression", "satisfies_expression", "non_null_expression":
			node = firstNamedChild(node)
		default:
			return node
		}
	}
	return nil
}

// calleeName returns the called identifier of a call or new expression:
// "foo" for foo(), "bar" for ns.bar().
func calleeName(node *sitter.Node, source []byte) string {
	var fn *sitter.Node
	switch node.Kind() {
	case "call_expression":
		fn = node.ChildByFieldName("function")
	case "new_expression":
		fn = node.ChildByFieldName("constructor")
	default:
		return ""
	}
	return identifierName(fn, source)
}

// identifierName returns the trailing identifier of an identifier or member
// expression.
func identifierName(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	switch node.Kind() {
	case "identifier", "type_identifier", "property_identifier":
		return nodeText(node, source)
	case "member_expression":
		return nodeText(node.ChildByFieldName("property"), source)
	case "nested_type_identifier":
		return nodeText(node.ChildByFieldName("name"), source)
	}
	return ""
}

// callArguments returns the argument expressions of a call or new expression.
func callArguments(node *sitter.Node) []*sitter.Node {
	return namedChildren(node.ChildByFieldName("arguments"))
}

// jsDoc returns the description of the /** */ comment directly preceding
// node: the text before the first @tag, with comment markers removed.
func jsDoc(node *sitter.Node, source []byte) string {
	prev := node.PrevNamedSibling()
	if prev == nil || prev.Kind() != "comment" {
		return ""
	}
	text := nodeText(prev, source)
	if !strings.HasPrefix(text, "/**") {
		return ""
	}
	text = strings.TrimSuffix(strings.TrimPrefix(text, "/**"), "*/")

	var parts []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		line = strings.TrimSpace(strings.TrimPrefix(line, "*"))
		if strings.HasPrefix(line, "@") {
			break
		}
		if line != "" {
			parts = append(parts, line)
		}
	}
	return strings.Join(parts, " ")
}
