// Package asynccall decides, for each call expression in a JavaScript or
// TypeScript tree, whether the call is known to complete synchronously or
// whether it may hand back a promise the surrounding code has to await,
// return or otherwise consume.
package asynccall

import (
	"strings"

	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hannajonsd/await-analysis/knowledge"
)

const (
	ReasonAsyncCallback = "async callback not permitted for this method"
	ReasonUnconsumed    = "non-synchronous call must be awaited, returned, or consumed"
)

// Verdict is the outcome of classifying one call. Rule names the rule that
// decided it.
type Verdict struct {
	Flagged bool
	Reason  string
	Rule    string
}

func allow() Verdict { return Verdict{} }

func flag(reason string) Verdict { return Verdict{Flagged: true, Reason: reason} }

// rule pairs a predicate with the verdict it yields. Rules are evaluated
// in table order and the first match wins; the async callback rule has to
// come before the context exemption.
type rule struct {
	name    string
	applies func(c *CallSite, kb *knowledge.Base) bool
	verdict Verdict
}

const (
	promiseIdentifier = "Promise"
	syncPrefix        = "sync"
)

var combinators = map[string]bool{"all": true, "race": true}

var rules = []rule{
	{"async-callback", passesForbiddenAsyncCallback, flag(ReasonAsyncCallback)},
	{"consumed-context", inConsumingContext, allow()},
	{"then-chain", isThenReceiver, allow()},
	{"super-call", func(c *CallSite, _ *knowledge.Base) bool { return c.IsSuper() }, allow()},
	{"sync-function", isSyncFunction, allow()},
	{"regex-receiver", hasRegexReceiver, allow()},
	{"array-receiver", hasArrayReceiver, allow()},
	{"sync-method", isSyncMethod, allow()},
	{"sync-prefix", hasSyncPrefix, allow()},
	{"static-member", isStaticMember, allow()},
	{"combinator-element", isCombinatorElement, allow()},
}

// DefaultRule names the verdict given when no rule matches.
const DefaultRule = "default"

// RuleNames lists the rules in evaluation order, ending with DefaultRule.
func RuleNames() []string {
	names := make([]string, 0, len(rules)+1)
	for _, r := range rules {
		names = append(names, r.name)
	}
	return append(names, DefaultRule)
}

// Classifier is a stateless classifier over a resolved knowledge base. It
// is safe for concurrent use.
type Classifier struct {
	kb *knowledge.Base
}

// NewClassifier returns a classifier over kb; a nil kb means the defaults.
func NewClassifier(kb *knowledge.Base) *Classifier {
	if kb == nil {
		kb = knowledge.Default()
	}
	return &Classifier{kb: kb}
}

// Classify classifies a call_expression node. Any other node is allowed.
func (cl *Classifier) Classify(node *sitter.Node, source []byte) Verdict {
	c, ok := NewCallSite(node, source)
	if !ok {
		return allow()
	}
	return cl.ClassifyCallSite(c)
}

func (cl *Classifier) ClassifyCallSite(c *CallSite) Verdict {
	for _, r := range rules {
		if r.applies(c, cl.kb) {
			v := r.verdict
			v.Rule = r.name
			return v
		}
	}
	v := flag(ReasonUnconsumed)
	v.Rule = DefaultRule
	return v
}

func passesForbiddenAsyncCallback(c *CallSite, kb *knowledge.Base) bool {
	_, name, ok := c.Member()
	if !ok || !kb.ForbidsAsyncCallback(name) {
		return false
	}
	for _, arg := range c.Arguments() {
		if isAsyncFunction(arg) {
			return true
		}
	}
	return false
}

// inConsumingContext covers await operands, return operands, concise arrow
// bodies and top-level statements, directly or through an
// expression_statement.
func inConsumingContext(c *CallSite, _ *knowledge.Base) bool {
	parent := c.Parent()
	if parent == nil {
		return false
	}

	switch parent.Type() {
	case "await_expression", "return_statement", "program":
		return true
	case "arrow_function":
		return sameNode(unwrapParens(parent.ChildByFieldName("body")), c.Node())
	case "expression_statement":
		grand := ancestor(parent)
		if grand == nil {
			return false
		}
		switch grand.Type() {
		case "await_expression", "return_statement", "program":
			return true
		}
	}
	return false
}

func isThenReceiver(c *CallSite, _ *knowledge.Base) bool {
	parent := c.Parent()
	if parent == nil {
		return false
	}
	receiver, name, ok := memberParts(parent, c.source)
	return ok && name == "then" && sameNode(receiver, c.Node())
}

func isSyncFunction(c *CallSite, kb *knowledge.Base) bool {
	name, ok := c.Identifier()
	return ok && kb.IsSyncFunction(name)
}

func hasRegexReceiver(c *CallSite, _ *knowledge.Base) bool {
	receiver, _, ok := c.Member()
	return ok && receiver != nil && receiver.Type() == "regex"
}

func hasArrayReceiver(c *CallSite, kb *knowledge.Base) bool {
	receiver, name, ok := c.Member()
	return ok && receiver != nil && receiver.Type() == "array" && kb.IsSyncArrayMethod(name)
}

func isSyncMethod(c *CallSite, kb *knowledge.Base) bool {
	_, name, ok := c.Member()
	return ok && kb.IsSyncMethod(name)
}

// hasSyncPrefix matches syncFoo and obj.syncFoo. The match is a plain
// prefix test, so synchronize() matches as well.
func hasSyncPrefix(c *CallSite, _ *knowledge.Base) bool {
	if _, name, ok := c.Member(); ok {
		return strings.HasPrefix(name, syncPrefix)
	}
	name, ok := c.Identifier()
	return ok && strings.HasPrefix(name, syncPrefix)
}

func isStaticMember(c *CallSite, kb *knowledge.Base) bool {
	receiver, name, ok := c.Member()
	if !ok || receiver == nil || receiver.Type() != "identifier" {
		return false
	}
	return kb.IsStaticMember(c.text(receiver), name)
}

// isCombinatorElement matches a() in Promise.all([a(), b()]): the array
// must be the only argument of Promise.all or Promise.race.
func isCombinatorElement(c *CallSite, _ *knowledge.Base) bool {
	array := c.Parent()
	if array == nil || array.Type() != "array" {
		return false
	}
	args := ancestor(array)
	if args == nil || args.Type() != "arguments" {
		return false
	}
	outer, ok := NewCallSite(args.Parent(), c.source)
	if !ok {
		return false
	}
	if len(outer.Arguments()) != 1 || !sameNode(outer.Arguments()[0], array) {
		return false
	}
	receiver, name, ok := outer.Member()
	if !ok || receiver == nil || receiver.Type() != "identifier" {
		return false
	}
	return combinators[name] && outer.text(receiver) == promiseIdentifier
}
