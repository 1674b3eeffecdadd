package parser

import (
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
	tree_sitter_python "github.com/tree-sitter/tree-sitter-python/bindings/go"

	"starlint/internal/errors"
)

// StarExt is the file extension of the Starlark dialect.
const StarExt = ".star"

// Parser turns .star source into a tree-sitter syntax tree. Starlark is a
// Python-syntax dialect, so the Python grammar parses it.
type Parser struct {
	language *sitter.Language
}

func New() *Parser {
	return &Parser{
		language: sitter.NewLanguage(tree_sitter_python.Language()),
	}
}

func (p *Parser) IsSupportedPath(path string) bool {
	return strings.EqualFold(filepath.Ext(path), StarExt)
}

// Parse parses source text. The returned tree owns native memory and must be
// closed by the caller.
func (p *Parser) Parse(path string, content []byte) (*sitter.Tree, error) {
	parser := sitter.NewParser()
	defer parser.Close()
	parser.SetLanguage(p.language)

	tree := parser.Parse(content, nil)
	if tree == nil {
		return nil, errors.AddContext(errors.New(errors.CodeParseError, "parse failed"), errors.CtxPath, path)
	}
	return tree, nil
}

// Line returns the 1-based source line of a node.
func Line(node *sitter.Node) int {
	return int(node.StartPosition().Row) + 1
}

// Text returns the source text covered by a node.
func Text(node *sitter.Node, source []byte) string {
	if node == nil {
		return ""
	}
	return string(source[node.StartByte():node.EndByte()])
}

// ChildOfKind returns the first direct child with the given kind, or nil.
func ChildOfKind(node *sitter.Node, kind string) *sitter.Node {
	if node == nil {
		return nil
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == kind {
			return child
		}
	}
	return nil
}

// StringValue extracts the literal content of a string node, without quotes.
// Returns false when the node is not a plain string literal.
func StringValue(node *sitter.Node, source []byte) (string, bool) {
	if node == nil || node.Kind() != "string" {
		return "", false
	}
	var b strings.Builder
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.Kind() == "string_content" {
			b.WriteString(Text(child, source))
		}
	}
	return b.String(), true
}
