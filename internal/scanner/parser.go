package scanner

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/happyvertical/smrt-sub009/internal/manifest"
	sitter "github.com/tree-sitter/go-tree-sitter"
	typescript "github.com/tree-sitter/tree-sitter-typescript/bindings/go"
)

var (
	tsLanguage  = sitter.NewLanguage(typescript.LanguageTypescript())
	tsxLanguage = sitter.NewLanguage(typescript.LanguageTSX())
)

// SupportedExtensions lists the source extensions the scanner parses.
var SupportedExtensions = []string{".ts", ".tsx", ".mts", ".cts"}

// IsSupported reports whether path has a TypeScript extension. Declaration
// files (.d.ts) carry no initializers and are skipped.
func IsSupported(path string) bool {
	if strings.HasSuffix(path, ".d.ts") {
		return false
	}
	ext := filepath.Ext(path)
	for _, e := range SupportedExtensions {
		if ext == e {
			return true
		}
	}
	return false
}

// languageFor picks the grammar by extension; JSX syntax only parses with TSX.
func languageFor(path string) *sitter.Language {
	if filepath.Ext(path) == ".tsx" {
		return tsxLanguage
	}
	return tsLanguage
}

// parsedFile holds a live syntax tree. It must be closed by the worker that
// created it; nothing derived from it may keep node references.
type parsedFile struct {
	path   string
	source []byte
	tree   *sitter.Tree
	root   *sitter.Node
}

func (f *parsedFile) Close() {
	if f.tree != nil {
		f.tree.Close()
	}
}

// parseSource parses one file. A tree that contains ERROR or MISSING nodes is a
// parse failure, reported at the first offending node.
func parseSource(path string, source []byte) (*parsedFile, *manifest.ScanError) {
	parser := sitter.NewParser()
	defer parser.Close()

	if err := parser.SetLanguage(languageFor(path)); err != nil {
		return nil, &manifest.ScanError{FilePath: path, Message: fmt.Sprintf("failed to load grammar: %v", err)}
	}

	tree := parser.Parse(source, nil)
	if tree == nil {
		return nil, &manifest.ScanError{FilePath: path, Message: "failed to parse typescript file"}
	}

	root := tree.RootNode()
	if root.HasError() {
		bad := firstError(root)
		scanErr := &manifest.ScanError{FilePath: path, Message: "syntax error"}
		if bad != nil {
			scanErr.Line, scanErr.Column = position(bad)
			if bad.IsMissing() {
				scanErr.Message = fmt.Sprintf("syntax error: missing %s", bad.Kind())
			} else {
				scanErr.Message = fmt.Sprintf("syntax error near %q", snippet(bad, source))
			}
		}
		tree.Close()
		return nil, scanErr
	}

	return &parsedFile{path: path, source: source, tree: tree, root: root}, nil
}

// firstError returns the first ERROR or MISSING node in document order.
func firstError(node *sitter.Node) *sitter.Node {
	var found *sitter.Node
	walkTree(node, func(n *sitter.Node) bool {
		if found != nil {
			return false
		}
		if n.IsError() || n.IsMissing() {
			found = n
			return false
		}
		return n.HasError()
	})
	return found
}

func snippet(node *sitter.Node, source []byte) string {
	text := nodeText(node, source)
	if i := strings.IndexByte(text, '\n'); i >= 0 {
		text = text[:i]
	}
	if len(text) > 40 {
		text = text[:40]
	}
	return text
}
