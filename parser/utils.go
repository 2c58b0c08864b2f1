package parser

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"fortio.org/safecast"
	sitter "github.com/smacker/go-tree-sitter"
)

// SupportedExtensions lists the file extensions CreateParser accepts
var SupportedExtensions = []string{".js", ".jsx", ".mjs", ".cjs", ".ts", ".mts", ".cts", ".tsx"}

// CreateParser creates the appropriate parser based on file extension
func CreateParser(filePath string) (Parser, error) {
	ext := strings.ToLower(filepath.Ext(filePath))

	switch ext {
	case ".js", ".jsx", ".mjs", ".cjs":
		return NewJavaScriptParser()
	case ".ts", ".mts", ".cts":
		return NewTypeScriptParser(false)
	case ".tsx":
		return NewTypeScriptParser(true)
	default:
		return nil, fmt.Errorf("unsupported file type: %s", ext)
	}
}

// IsSupported reports whether CreateParser can handle the file
func IsSupported(filePath string) bool {
	ext := strings.ToLower(filepath.Ext(filePath))
	for _, supported := range SupportedExtensions {
		if ext == supported {
			return true
		}
	}
	return false
}

// WalkAST recursively traverses an AST in source order and applies a visitor function to each node
func WalkAST(node *sitter.Node, visitor func(*sitter.Node)) {
	if node == nil {
		return
	}
	visitor(node)

	for i := 0; i < int(node.ChildCount()); i++ {
		WalkAST(node.Child(i), visitor)
	}
}

// NodeText returns the source text spanned by node
func NodeText(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// Position converts a tree-sitter point to a 1-based line and column
func Position(p sitter.Point) (line, column int) {
	row, err := safecast.Conv[int](p.Row)
	if err != nil {
		return 0, 0
	}
	col, err := safecast.Conv[int](p.Column)
	if err != nil {
		return row + 1, 0
	}
	return row + 1, col + 1
}

// ParseFileGeneric provides common file parsing functionality for all language parsers
func (bp *BaseParser) ParseFileGeneric(ctx context.Context, filePath string) (*ParseResult, error) {
	source, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %s: %w", filePath, err)
	}
	return bp.Parse(ctx, source, filePath)
}

// ParseFile reads and parses a source file
func (bp *BaseParser) ParseFile(ctx context.Context, filePath string) (*ParseResult, error) {
	return bp.ParseFileGeneric(ctx, filePath)
}

// Parse parses source held in memory; filePath is only recorded on the result
func (bp *BaseParser) Parse(ctx context.Context, source []byte, filePath string) (*ParseResult, error) {
	tree, err := bp.parser.ParseCtx(ctx, nil, source)
	if err != nil {
		return nil, fmt.Errorf("failed to parse file %s: %w", filePath, err)
	}
	if tree == nil {
		return nil, fmt.Errorf("failed to parse file %s", filePath)
	}

	return &ParseResult{
		Tree:     tree,
		Source:   source,
		Language: bp.langName,
		FilePath: filePath,
	}, nil
}

// IsCall reports whether node is an ordinary call. The grammars also use
// call_expression for tagged templates (html`...`) and dynamic imports
// (import("x")); neither is a call here.
func IsCall(node *sitter.Node) bool {
	if node == nil || node.Type() != "call_expression" {
		return false
	}
	if fn := node.ChildByFieldName("function"); fn != nil && fn.Type() == "import" {
		return false
	}
	if args := node.ChildByFieldName("arguments"); args != nil && args.Type() == "template_string" {
		return false
	}
	return true
}

// ExtractCalls returns every call under node in tree order
func (bp *BaseParser) ExtractCalls(node *sitter.Node) []*sitter.Node {
	var calls []*sitter.Node

	WalkAST(node, func(n *sitter.Node) {
		if IsCall(n) {
			calls = append(calls, n)
		}
	})

	return calls
}

// ExtractComments returns every comment under node with the line it ends on
func (bp *BaseParser) ExtractComments(node *sitter.Node, source []byte) []Comment {
	var comments []Comment

	WalkAST(node, func(n *sitter.Node) {
		switch n.Type() {
		case "comment", "html_comment":
			line, _ := Position(n.EndPoint())
			comments = append(comments, Comment{
				Line: line,
				Text: NodeText(n, source),
			})
		}
	})

	return comments
}

// GetLanguage returns the language name for this parser
func (bp *BaseParser) GetLanguage() string {
	return bp.langName
}

// Close releases the underlying tree-sitter parser
func (bp *BaseParser) Close() {
	if bp.parser != nil {
		bp.parser.Close()
	}
}
