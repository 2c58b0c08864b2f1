package asynccall

import (
	sitter "github.com/smacker/go-tree-sitter"

	"github.com/hannajonsd/await-analysis/knowledge"
	"github.com/hannajonsd/await-analysis/parser"
)

// Sink receives one message per flagged call.
type Sink interface {
	Report(node *sitter.Node, message string)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(node *sitter.Node, message string)

func (f SinkFunc) Report(node *sitter.Node, message string) { f(node, message) }

// Context is the handle a host passes for one source unit: the full
// source text, the options list (only the first element is read) and the
// diagnostic sink.
type Context struct {
	Source  []byte
	Options []*knowledge.Options
	Sink    Sink
}

// Rule ties a classifier to the reporting side of the host interface.
type Rule struct {
	classifier *Classifier
}

// NewRule returns a rule over an already resolved knowledge base.
func NewRule(kb *knowledge.Base) *Rule {
	return &Rule{classifier: NewClassifier(kb)}
}

// Create resolves the knowledge base from ctx.Options and returns a rule
// for it. Hosts analyzing many units should resolve once and use NewRule.
func Create(ctx *Context) *Rule {
	return NewRule(knowledge.Resolve(ctx.Options))
}

// Classifier exposes the rule's classifier.
func (r *Rule) Classifier() *Classifier {
	return r.classifier
}

// Check classifies one call and reports it through ctx.Sink when flagged.
func (r *Rule) Check(ctx *Context, node *sitter.Node) Verdict {
	v := r.classifier.Classify(node, ctx.Source)
	if v.Flagged {
		Report(ctx, node, v.Reason)
	}
	return v
}

// CheckTree runs Check on every call under root in tree order
// and returns the number of flagged calls.
func (r *Rule) CheckTree(ctx *Context, root *sitter.Node) int {
	flagged := 0
	parser.WalkAST(root, func(n *sitter.Node) {
		if !parser.IsCall(n) {
			return
		}
		if r.Check(ctx, n).Flagged {
			flagged++
		}
	})
	return flagged
}

// Report emits reason for node through ctx.Sink.
func Report(ctx *Context, node *sitter.Node, reason string) {
	if ctx.Sink == nil {
		return
	}
	ctx.Sink.Report(node, FormatMessage(reason, node, ctx.Source))
}

// FormatMessage renders "<reason>:  <first line of the node's source>".
func FormatMessage(reason string, node *sitter.Node, source []byte) string {
	return reason + ":  " + firstLine(parser.NodeText(node, source))
}
