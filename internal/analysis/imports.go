package analysis

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"starlint/internal/parser"
)

// externalPrefix marks module paths that live in a remote package rather than
// the local workspace.
const externalPrefix = "github.com/"

// ImportVisitor finds variables bound to import_module results, resolves the
// module paths, tracks alias edges, and enforces the private-naming convention
// for global import bindings.
type ImportVisitor struct {
	w      *Walker
	root   string
	checks Checks

	// Bindings lists direct import bindings in source order.
	Bindings []ImportBinding
	// Aliases maps a variable to the variable it was assigned from. The map
	// is flat across scopes; resolution is last-write-wins like execution.
	Aliases map[string]string
	// Violations accumulates naming and existence findings.
	Violations []Violation

	bindingByVar map[string]ImportBinding
}

// NewImportVisitor registers the visitor on the walker. root is the workspace
// root used to anchor absolute and bare module paths; it may be empty when no
// workspace marker was found.
func NewImportVisitor(w *Walker, root string, checks Checks) *ImportVisitor {
	iv := &ImportVisitor{
		w:            w,
		root:         root,
		checks:       checks,
		Aliases:      make(map[string]string),
		bindingByVar: make(map[string]ImportBinding),
	}
	w.Handle("assignment", iv.onAssignment)
	return iv
}

func (iv *ImportVisitor) onAssignment(node *sitter.Node) bool {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")
	if left == nil {
		return true
	}

	switch left.Kind() {
	case "identifier":
		iv.bindTarget(left, right)
	case "pattern_list", "tuple_pattern":
		if right == nil {
			return true
		}
		if right.Kind() != "expression_list" && right.Kind() != "tuple" {
			return true
		}
		targets := namedChildren(left)
		values := namedChildren(right)
		for i, target := range targets {
			if target.Kind() != "identifier" || i >= len(values) {
				continue
			}
			iv.bindTarget(target, values[i])
		}
	}
	return true
}

func (iv *ImportVisitor) bindTarget(nameNode, valueNode *sitter.Node) {
	name := iv.w.Text(nameNode)

	if path, ok := iv.importCallPath(valueNode); ok {
		kind, resolved := iv.resolve(path)
		binding := ImportBinding{
			Var:          name,
			ModulePath:   path,
			Kind:         kind,
			ResolvedPath: resolved,
			Line:         parser.Line(nameNode),
		}
		iv.Bindings = append(iv.Bindings, binding)
		iv.bindingByVar[name] = binding
		delete(iv.Aliases, name)

		if iv.checks.FileExists && kind != PathExternal && resolved != "" {
			if info, err := os.Stat(resolved); err != nil || info.IsDir() {
				iv.Violations = append(iv.Violations, Violation{
					File:    iv.w.Path,
					Line:    binding.Line,
					Message: fmt.Sprintf("Imported module '%s' does not exist at resolved path '%s'", path, resolved),
					Check:   CheckImportExists,
				})
			}
		}

		if iv.w.Scopes.InGlobal() && !strings.HasPrefix(name, privacyMarker) {
			iv.Violations = append(iv.Violations, Violation{
				File:    iv.w.Path,
				Line:    binding.Line,
				Message: fmt.Sprintf("Global variable '%s' contains the result of `import_module` and should be private", name),
				Check:   CheckImportNaming,
			})
		}
		return
	}

	if valueNode != nil && valueNode.Kind() == "identifier" {
		source := iv.w.Text(valueNode)
		delete(iv.bindingByVar, name)
		iv.Aliases[name] = source

		if iv.w.Scopes.InGlobal() && !strings.HasPrefix(name, privacyMarker) && iv.IsImport(source) {
			iv.Violations = append(iv.Violations, Violation{
				File:    iv.w.Path,
				Line:    parser.Line(nameNode),
				Message: fmt.Sprintf("Global variable '%s' is an alias to an `import_module` result and should be private", name),
				Check:   CheckImportNaming,
			})
		}
		return
	}

	// Rebound to something else entirely; the name no longer denotes an import.
	delete(iv.bindingByVar, name)
	delete(iv.Aliases, name)
}

// importCallPath reports whether the expression is an import_module call with
// a literal string argument. Calls with no argument or a dynamic argument are
// invisible: not tracked and not reported.
func (iv *ImportVisitor) importCallPath(node *sitter.Node) (string, bool) {
	if node == nil || node.Kind() != "call" {
		return "", false
	}
	fn := node.ChildByFieldName("function")
	if fn == nil || fn.Kind() != "identifier" || iv.w.Text(fn) != importPrimitive {
		return "", false
	}
	args := namedChildren(node.ChildByFieldName("arguments"))
	if len(args) == 0 {
		return "", false
	}
	return parser.StringValue(args[0], iv.w.Source)
}

// resolve classifies a module path and maps it to a file on disk when the
// workspace layout allows it. External packages are never resolved locally.
func (iv *ImportVisitor) resolve(path string) (PathKind, string) {
	switch {
	case strings.HasPrefix(path, externalPrefix):
		return PathExternal, ""
	case strings.HasPrefix(path, "/"):
		if iv.root == "" {
			return PathAbsolute, ""
		}
		return PathAbsolute, filepath.Join(iv.root, strings.TrimPrefix(path, "/"))
	case strings.HasPrefix(path, "./") || strings.HasPrefix(path, "../"):
		return PathRelative, filepath.Clean(filepath.Join(filepath.Dir(iv.w.Path), path))
	default:
		if iv.root == "" {
			return PathWorkspace, ""
		}
		return PathWorkspace, filepath.Join(iv.root, path)
	}
}

// IsImport reports whether name denotes an import_module result, following
// alias edges. A cycle anywhere on the chain resolves to false.
func (iv *ImportVisitor) IsImport(name string) bool {
	_, ok := iv.lookup(name, make(map[string]bool))
	return ok
}

// ResolveImport returns the import binding a name ultimately refers to.
func (iv *ImportVisitor) ResolveImport(name string) (ImportBinding, bool) {
	return iv.lookup(name, make(map[string]bool))
}

// DirectBindings returns the variables that are direct targets of an import
// call, keyed by name. Aliases are not included.
func (iv *ImportVisitor) DirectBindings() map[string]ImportBinding {
	return iv.bindingByVar
}

func (iv *ImportVisitor) lookup(name string, visited map[string]bool) (ImportBinding, bool) {
	if visited[name] {
		slog.Debug("alias cycle while resolving import", "name", name, "file", iv.w.Path)
		return ImportBinding{}, false
	}
	visited[name] = true
	if binding, ok := iv.bindingByVar[name]; ok {
		return binding, true
	}
	if source, ok := iv.Aliases[name]; ok {
		return iv.lookup(source, visited)
	}
	return ImportBinding{}, false
}
