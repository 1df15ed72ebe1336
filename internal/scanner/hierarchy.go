package scanner

import (
	"errors"
	"fmt"

	"github.com/dominikbraun/graph"
	"github.com/happyvertical/smrt-sub009/internal/manifest"
)

// classNode is a class declaration placed in the inheritance graph.
type classNode struct {
	key    string
	file   *fileFacts
	decl   *classDecl
	parent *classNode

	recognized bool
	// fields and methods are the merged members: inherited ones first, then
	// own declarations, with the most-derived declaration winning in place.
	fields  []fieldDecl
	methods []manifest.MethodDefinition
	// warnings are inheritance problems reported for input classes.
	warnings []manifest.Diagnostic
}

// hierarchy resolves extends clauses across every scanned file.
type hierarchy struct {
	nodes []*classNode // parent-first
	// known holds the names of recognized classes, for foreign key resolution.
	known map[string]bool
}

func classKey(path, name string) string {
	return path + "#" + name
}

// buildHierarchy links every class to its parent and decides which classes
// are smart objects. A class is recognized directly when it carries the marker
// decorator or extends a base class by name. With FollowImports, recognition
// is inherited along resolved extends edges and members are merged
// parent-first; cycles are broken with a warning.
func buildHierarchy(files []*fileFacts, resolver *importResolver, opts *ScanOptions) (*hierarchy, error) {
	bases := make(map[string]bool)
	for _, b := range opts.baseClasses() {
		bases[b] = true
	}

	byKey := make(map[string]*classNode)
	byFile := make(map[string]map[string]*classNode)
	byName := make(map[string][]*classNode)
	var all []*classNode

	for _, f := range files {
		byFile[f.path] = make(map[string]*classNode)
		for _, decl := range f.classes {
			key := classKey(f.path, decl.name)
			if _, dup := byKey[key]; dup {
				continue
			}
			n := &classNode{key: key, file: f, decl: decl}
			byKey[key] = n
			byFile[f.path][decl.name] = n
			byName[decl.name] = append(byName[decl.name], n)
			all = append(all, n)
		}
	}

	h := &hierarchy{known: make(map[string]bool)}

	if !opts.FollowImports {
		for _, n := range all {
			n.recognized = n.decl.marker || bases[n.decl.parent]
			n.fields = n.decl.members.fields
			n.methods = n.decl.members.methods
			if n.recognized {
				h.known[n.decl.name] = true
			}
		}
		h.nodes = all
		return h, nil
	}

	g := graph.New(graph.StringHash, graph.Directed(), graph.PreventCycles())
	for _, n := range all {
		if err := g.AddVertex(n.key); err != nil {
			return nil, fmt.Errorf("failed to add class %s: %w", n.key, err)
		}
	}

	for _, n := range all {
		if n.decl.parent == "" {
			continue
		}
		parent, warning := resolveParent(n, byFile, byName, resolver, bases)
		if warning != nil {
			n.warnings = append(n.warnings, *warning)
		}
		if parent == nil {
			continue
		}

		err := g.AddEdge(parent.key, n.key)
		switch {
		case err == nil:
			n.parent = parent
		case errors.Is(err, graph.ErrEdgeCreatesCycle):
			n.warnings = append(n.warnings, manifest.Diagnostic{
				FilePath: n.file.path,
				Line:     n.decl.line,
				Column:   n.decl.column,
				Class:    n.decl.name,
				Code:     manifest.DiagInheritanceCycle,
				Message:  fmt.Sprintf("extends %s forms an inheritance cycle; inherited members ignored", n.decl.parent),
			})
		default:
			return nil, fmt.Errorf("failed to link %s to %s: %w", n.key, parent.key, err)
		}
	}

	order, err := graph.StableTopologicalSort(g, func(a, b string) bool { return a < b })
	if err != nil {
		return nil, fmt.Errorf("failed to order class hierarchy: %w", err)
	}

	for _, key := range order {
		n := byKey[key]
		n.recognized = n.decl.marker || bases[n.decl.parent] || (n.parent != nil && n.parent.recognized)
		if n.parent != nil {
			n.fields = mergeFields(n.parent.fields, n.decl.members.fields)
			n.methods = mergeMethods(n.parent.methods, n.decl.members.methods)
		} else {
			n.fields = n.decl.members.fields
			n.methods = n.decl.members.methods
		}
		if n.recognized {
			h.known[n.decl.name] = true
		}
		h.nodes = append(h.nodes, n)
	}

	return h, nil
}

// resolveParent finds the declaration an extends clause refers to: a class in
// the same file, then an imported class, then the only class of that name in
// the scan.
func resolveParent(n *classNode, byFile map[string]map[string]*classNode, byName map[string][]*classNode, resolver *importResolver, bases map[string]bool) (*classNode, *manifest.Diagnostic) {
	name := n.decl.parent

	if p, ok := byFile[n.file.path][name]; ok && p != n {
		return p, nil
	}

	if binding, ok := n.file.imports[name]; ok && binding.relative() {
		if target, found := resolver.resolve(n.file.path, binding.specifier); found {
			if p := exportedClass(byFile[target], binding.name); p != nil {
				return p, nil
			}
		}
		if bases[name] {
			return nil, nil
		}
		return nil, &manifest.Diagnostic{
			FilePath: n.file.path,
			Line:     binding.line,
			Column:   binding.column,
			Class:    n.decl.name,
			Code:     manifest.DiagUnresolvedImport,
			Message:  fmt.Sprintf("cannot resolve %s from %q; inherited members ignored", name, binding.specifier),
		}
	}

	if candidates := byName[name]; len(candidates) == 1 && candidates[0] != n {
		return candidates[0], nil
	}
	return nil, nil
}

func exportedClass(classes map[string]*classNode, name string) *classNode {
	if name != "default" {
		return classes[name]
	}
	for _, c := range classes {
		if c.decl.defaultExport {
			return c
		}
	}
	return nil
}

// mergeFields overlays own declarations on inherited ones. A redeclared field
// keeps the inherited position.
func mergeFields(inherited, own []fieldDecl) []fieldDecl {
	out := make([]fieldDecl, len(inherited), len(inherited)+len(own))
	copy(out, inherited)
	index := make(map[string]int, len(out))
	for i, f := range out {
		index[f.name] = i
	}
	for _, f := range own {
		if i, ok := index[f.name]; ok {
			out[i] = f
			continue
		}
		index[f.name] = len(out)
		out = append(out, f)
	}
	return out
}

func mergeMethods(inherited, own []manifest.MethodDefinition) []manifest.MethodDefinition {
	out := make([]manifest.MethodDefinition, len(inherited), len(inherited)+len(own))
	copy(out, inherited)
	index := make(map[string]int, len(out))
	for i, m := range out {
		index[m.Name] = i
	}
	for _, m := range own {
		if i, ok := index[m.Name]; ok {
			out[i] = m
			continue
		}
		index[m.Name] = len(out)
		out = append(out, m)
	}
	return out
}
