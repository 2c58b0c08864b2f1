package parser

import (
	sitter "github.com/smacker/go-tree-sitter"
	"github.com/smacker/go-tree-sitter/typescript/tsx"
	"github.com/smacker/go-tree-sitter/typescript/typescript"
)

// TypeScriptParser parses .ts files, or .tsx files when created with tsx set.
// The TypeScript grammars share the JavaScript node kinds the call-site
// rules look at (call_expression, member_expression, await_expression...).
type TypeScriptParser struct {
	BaseParser
}

func NewTypeScriptParser(withJSX bool) (*TypeScriptParser, error) {
	parser := sitter.NewParser()
	language := typescript.GetLanguage()
	langName := "typescript"
	if withJSX {
		language = tsx.GetLanguage()
		langName = "tsx"
	}
	parser.SetLanguage(language)

	return &TypeScriptParser{
		BaseParser: BaseParser{
			parser:   parser,
			language: language,
			langName: langName,
		},
	}, nil
}
