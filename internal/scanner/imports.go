package scanner

import (
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"
)

// importBinding is one name brought into a file by an import statement.
type importBinding struct {
	// specifier is the module string as written ("./base", "@smrt/core").
	specifier string
	// name is the exported name: the imported identifier, or "default".
	name   string
	line   int
	column int
}

func (b importBinding) relative() bool {
	return strings.HasPrefix(b.specifier, "./") || strings.HasPrefix(b.specifier, "../")
}

// collectImports maps local names to their import bindings. Namespace imports
// are skipped; heritage through `ns.Base` is resolved by name only.
func collectImports(root *sitter.Node, source []byte) map[string]importBinding {
	imports := map[string]importBinding{}

	for _, stmt := range findChildrenByType(root, "import_statement") {
		src := stmt.ChildByFieldName("source")
		if src == nil {
			continue
		}
		specifier := stringValue(src, source)
		line, col := position(stmt)

		clause := findChildByType(stmt, "import_clause")
		if clause == nil {
			continue
		}
		for _, part := range namedChildren(clause) {
			switch part.Kind() {
			case "identifier":
				imports[nodeText(part, source)] = importBinding{specifier: specifier, name: "default", line: line, column: col}
			case "named_imports":
				for _, spec := range findChildrenByType(part, "import_specifier") {
					name := nodeText(spec.ChildByFieldName("name"), source)
					local := name
					if alias := spec.ChildByFieldName("alias"); alias != nil {
						local = nodeText(alias, source)
					}
					if local != "" {
						imports[local] = importBinding{specifier: specifier, name: name, line: line, column: col}
					}
				}
			}
		}
	}

	return imports
}

// resolveImport maps a relative module specifier to a file on disk, trying
// the extensions TypeScript's resolver would. ESM-style ".js" specifiers
// resolve to their ".ts" sources.
func resolveImport(fromFile, specifier string) (string, bool) {
	base := filepath.Join(filepath.Dir(fromFile), filepath.FromSlash(specifier))

	var candidates []string
	switch ext := filepath.Ext(base); ext {
	case ".ts", ".tsx", ".mts", ".cts":
		candidates = append(candidates, base)
	case ".js", ".jsx", ".mjs", ".cjs":
		stem := strings.TrimSuffix(base, ext)
		candidates = append(candidates, stem+".ts", stem+".tsx", stem+".mts", stem+".cts")
	}
	candidates = append(candidates,
		base+".ts",
		base+".tsx",
		filepath.Join(base, "index.ts"),
		filepath.Join(base, "index.tsx"),
	)

	for _, c := range candidates {
		if info, err := os.Stat(c); err == nil && !info.IsDir() {
			return filepath.Clean(c), true
		}
	}
	return "", false
}

// importResolver memoizes resolveImport. It is used from a single goroutine.
type importResolver struct {
	cache map[string]string
}

func newImportResolver() *importResolver {
	return &importResolver{cache: make(map[string]string)}
}

func (r *importResolver) resolve(fromFile, specifier string) (string, bool) {
	key := filepath.Dir(fromFile) + "\x00" + specifier
	if path, ok := r.cache[key]; ok {
		return path, path != ""
	}
	path, _ := resolveImport(fromFile, specifier)
	r.cache[key] = path
	return path, path != ""
}
