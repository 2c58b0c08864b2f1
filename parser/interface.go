package parser

import (
	"context"

	sitter "github.com/smacker/go-tree-sitter"
)

// Parser defines the interface for language-specific source code parsers
type Parser interface {
	GetLanguage() string
	Close()
	ParseFile(ctx context.Context, filePath string) (*ParseResult, error)
	Parse(ctx context.Context, source []byte, filePath string) (*ParseResult, error)
	ExtractCalls(node *sitter.Node) []*sitter.Node
	ExtractComments(node *sitter.Node, source []byte) []Comment
}

// BaseParser provides common functionality for all language parsers.
// A BaseParser wraps one tree-sitter parser and must not be shared
// between goroutines.
type BaseParser struct {
	parser   *sitter.Parser
	language *sitter.Language
	langName string
}

// ParseResult contains the parsed AST and metadata for a source file
type ParseResult struct {
	Tree     *sitter.Tree
	Source   []byte
	Language string
	FilePath string
}

// Close releases the syntax tree.
func (r *ParseResult) Close() {
	if r != nil && r.Tree != nil {
		r.Tree.Close()
	}
}

// Comment is a source comment with its 1-based line
type Comment struct {
	Line int
	Text string
}
