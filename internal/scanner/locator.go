package scanner

import (
	"github.com/happyvertical/smrt-sub009/internal/manifest"
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// classDecl is one class declaration with everything the scanner needs from
// its syntax, read while the tree is alive. Whether it becomes a smart object
// is decided later, once every file's classes are known.
type classDecl struct {
	name   string
	parent string // identifier in the extends clause, "" when none
	// marker is true when the class carries a recognized marker decorator.
	marker        bool
	defaultExport bool
	config        manifest.DecoratorConfig
	members       classMembers
	// warnings are emitted only if the class turns out to be a smart object.
	warnings []manifest.Diagnostic
	line     int
	column   int
}

// fileFacts is everything extracted from one file. It holds no syntax nodes
// and is never modified after extraction, so it can be cached and shared.
type fileFacts struct {
	path    string
	classes []*classDecl
	imports map[string]importBinding
	err     *manifest.ScanError
}

// diagnostics collects warnings for one class.
type diagnostics struct {
	path  string
	items []manifest.Diagnostic
}

func (d *diagnostics) add(node *sitter.Node, class, member, code, message string) {
	diag := manifest.Diagnostic{
		FilePath: d.path,
		Class:    class,
		Member:   member,
		Code:     code,
		Message:  message,
	}
	if node != nil {
		diag.Line, diag.Column = position(node)
	}
	d.items = append(d.items, diag)
}

// extractFile locates every class declaration in a parsed file.
func extractFile(pf *parsedFile, opts *ScanOptions) *fileFacts {
	facts := &fileFacts{
		path:    pf.path,
		imports: collectImports(pf.root, pf.source),
	}

	markers := make(map[string]bool, len(opts.DecoratorNames))
	for _, name := range opts.DecoratorNames {
		markers[name] = true
	}

	walkTree(pf.root, func(n *sitter.Node) bool {
		switch n.Kind() {
		case "class_declaration", "abstract_class_declaration":
			if decl := locateClass(n, pf, opts, markers); decl != nil {
				facts.classes = append(facts.classes, decl)
			}
		}
		return true
	})

	return facts
}

func locateClass(node *sitter.Node, pf *parsedFile, opts *ScanOptions, markers map[string]bool) *classDecl {
	source := pf.source
	nameNode := node.ChildByFieldName("name")
	if nameNode == nil {
		return nil
	}

	decl := &classDecl{
		name:   nodeText(nameNode, source),
		parent: heritageName(node, source),
		config: manifest.DefaultDecoratorConfig(),
	}
	decl.line, decl.column = position(node)
	if parent := node.Parent(); parent != nil && parent.Kind() == "export_statement" {
		decl.defaultExport = hasToken(parent, "default")
	}

	diags := &diagnostics{path: pf.path}

	for _, dec := range classDecorators(node, source) {
		if !markers[dec.name] {
			continue
		}
		if decl.marker {
			diags.add(dec.node, decl.name, "", manifest.DiagAmbiguousConfig, "duplicate marker decorator ignored")
			continue
		}
		decl.marker = true
		extractor := &configExtractor{source: source, diags: diags, class: decl.name}
		decl.config = extractor.extract(dec.args)
	}

	if body := node.ChildByFieldName("body"); body != nil {
		members := &memberExtractor{source: source, opts: opts, diags: diags, class: decl.name}
		decl.members = members.extract(body)
	}

	decl.warnings = diags.items
	return decl
}

// heritageName returns the name in `extends X`, `extends ns.X` or `extends X<T>`.
func heritageName(class *sitter.Node, source []byte) string {
	heritage := findChildByType(class, "class_heritage")
	if heritage == nil {
		return ""
	}
	extends := findChildByType(heritage, "extends_clause")
	if extends == nil {
		return ""
	}
	value := extends.ChildByFieldName("value")
	if value == nil {
		value = firstNamedChild(extends)
	}
	return identifierName(unwrapExpression(value), source)
}
