package asynccall

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hannajonsd/await-analysis/parser"
)

// CallSite is a read-only view over a call_expression node. Parentheses
// are transparent everywhere a CallSite looks: around the callee, around
// a member receiver, around arguments and between the call and its
// ancestors.
type CallSite struct {
	node   *sitter.Node
	source []byte
	callee *sitter.Node
	args   []*sitter.Node
}

// NewCallSite wraps node. It returns false when node is not a call, which
// includes tagged templates and import().
func NewCallSite(node *sitter.Node, source []byte) (*CallSite, bool) {
	if !parser.IsCall(node) {
		return nil, false
	}

	c := &CallSite{
		node:   node,
		source: source,
		callee: unwrapParens(node.ChildByFieldName("function")),
	}

	if args := node.ChildByFieldName("arguments"); args != nil {
		for i := 0; i < int(args.NamedChildCount()); i++ {
			arg := args.NamedChild(i)
			if arg.Type() == "comment" {
				continue
			}
			c.args = append(c.args, unwrapParens(arg))
		}
	}
	return c, true
}

func (c *CallSite) Node() *sitter.Node { return c.node }

func (c *CallSite) Callee() *sitter.Node { return c.callee }

func (c *CallSite) Arguments() []*sitter.Node { return c.args }

// Parent returns the nearest ancestor that is not a parenthesized expression.
func (c *CallSite) Parent() *sitter.Node {
	return ancestor(c.node)
}

// Text returns the full source text of the call.
func (c *CallSite) Text() string {
	return c.text(c.node)
}

// FirstLine returns the first line of the call's source text.
func (c *CallSite) FirstLine() string {
	return firstLine(c.Text())
}

func firstLine(text string) string {
	line, _, _ := strings.Cut(text, "\n")
	return strings.TrimSuffix(line, "\r")
}

// Identifier returns the callee name when the callee is a bare identifier.
func (c *CallSite) Identifier() (string, bool) {
	if c.callee == nil || c.callee.Type() != "identifier" {
		return "", false
	}
	return c.text(c.callee), true
}

// Member splits a callee of the form receiver.name. Computed (a["b"]) and
// private (a.#b) accesses are not members in this sense.
func (c *CallSite) Member() (receiver *sitter.Node, name string, ok bool) {
	return memberParts(c.callee, c.source)
}

// IsSuper reports whether this is a super(...) constructor call.
func (c *CallSite) IsSuper() bool {
	return c.callee != nil && c.callee.Type() == "super"
}

func (c *CallSite) text(n *sitter.Node) string {
	if n == nil {
		return ""
	}
	return string(c.source[n.StartByte():n.EndByte()])
}

func memberParts(n *sitter.Node, source []byte) (*sitter.Node, string, bool) {
	if n == nil || n.Type() != "member_expression" {
		return nil, "", false
	}
	property := n.ChildByFieldName("property")
	if property == nil || property.Type() != "property_identifier" {
		return nil, "", false
	}
	receiver := unwrapParens(n.ChildByFieldName("object"))
	return receiver, string(source[property.StartByte():property.EndByte()]), true
}

func unwrapParens(n *sitter.Node) *sitter.Node {
	for n != nil && n.Type() == "parenthesized_expression" && n.NamedChildCount() > 0 {
		inner := n.NamedChild(0)
		if inner.Type() == "comment" {
			break
		}
		n = inner
	}
	return n
}

func ancestor(n *sitter.Node) *sitter.Node {
	p := n.Parent()
	for p != nil && p.Type() == "parenthesized_expression" {
		p = p.Parent()
	}
	return p
}

func sameNode(a, b *sitter.Node) bool {
	if a == nil || b == nil {
		return false
	}
	return a.StartByte() == b.StartByte() && a.EndByte() == b.EndByte() && a.Type() == b.Type()
}

var functionLiterals = map[string]bool{
	"arrow_function":      true,
	"function_expression": true,
	"function":            true,
	"generator_function":  true,
}

// isAsyncFunction reports whether n is a function literal marked async.
func isAsyncFunction(n *sitter.Node) bool {
	if n == nil || !functionLiterals[n.Type()] {
		return false
	}
	for i := 0; i < int(n.ChildCount()); i++ {
		child := n.Child(i)
		if child.Type() == "async" {
			return true
		}
		if child.IsNamed() {
			break
		}
	}
	return false
}
