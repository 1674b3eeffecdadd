package analysis

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"starlint/internal/parser"
)

// FunctionVisitor collects function signatures, checks every call site for
// binding-compatibility against local or imported signatures, and records
// cross-file function references for later visibility judgment.
type FunctionVisitor struct {
	w          *Walker
	imports    map[string]ImportBinding // direct import bindings of this file
	state      *SharedState
	checkCalls bool

	// Functions maps name to signature, flat across nesting levels.
	Functions map[string]FunctionSignature
	// Summaries lists definitions in source order for visibility analysis.
	Summaries  []FunctionSummary
	Violations []Violation
}

func NewFunctionVisitor(w *Walker, imports map[string]ImportBinding, state *SharedState, checkCalls bool) *FunctionVisitor {
	fv := &FunctionVisitor{
		w:          w,
		imports:    imports,
		state:      state,
		checkCalls: checkCalls,
		Functions:  make(map[string]FunctionSignature),
	}
	w.Handle("function_definition", fv.onFunctionDef)
	w.Handle("call", fv.onCall)
	w.Handle("assignment", fv.onAssignment)
	w.Handle("list", fv.onSequence)
	w.Handle("tuple", fv.onSequence)
	w.Handle("dictionary", fv.onDictionary)
	return fv
}

func (fv *FunctionVisitor) onFunctionDef(node *sitter.Node) bool {
	name := fv.w.Text(node.ChildByFieldName("name"))
	if name == "" {
		return true
	}

	sig := FunctionSignature{
		Name: name,
		File: fv.w.Path,
		Line: parser.Line(node),
	}

	seenStar := false
	for _, p := range namedChildren(node.ChildByFieldName("parameters")) {
		switch p.Kind() {
		case "identifier":
			if seenStar {
				sig.KwOnly = append(sig.KwOnly, KwOnlyParam{Name: fv.w.Text(p)})
			} else {
				sig.Params = append(sig.Params, fv.w.Text(p))
			}
		case "typed_parameter":
			if id := parser.ChildOfKind(p, "identifier"); id != nil {
				if seenStar {
					sig.KwOnly = append(sig.KwOnly, KwOnlyParam{Name: fv.w.Text(id)})
				} else {
					sig.Params = append(sig.Params, fv.w.Text(id))
				}
			}
		case "default_parameter", "typed_default_parameter":
			pname := fv.w.Text(p.ChildByFieldName("name"))
			if seenStar {
				sig.KwOnly = append(sig.KwOnly, KwOnlyParam{Name: pname, HasDefault: true})
			} else {
				sig.Params = append(sig.Params, pname)
				sig.Defaults = append(sig.Defaults, fv.w.Text(p.ChildByFieldName("value")))
			}
		case "list_splat_pattern":
			if id := parser.ChildOfKind(p, "identifier"); id != nil {
				sig.VarArg = fv.w.Text(id)
			}
			seenStar = true
		case "keyword_separator":
			seenStar = true
		case "dictionary_splat_pattern":
			if id := parser.ChildOfKind(p, "identifier"); id != nil {
				sig.KwArg = fv.w.Text(id)
			}
		}
	}

	sig.Documented = hasDocstring(node.ChildByFieldName("body"))

	fv.Functions[name] = sig
	fv.Summaries = append(fv.Summaries, FunctionSummary{Name: name, Line: sig.Line, Documented: sig.Documented})
	return true
}

// hasDocstring reports whether the first statement of a body is a bare
// string-literal expression. Only presence matters, not content.
func hasDocstring(body *sitter.Node) bool {
	stmts := namedChildren(body)
	if len(stmts) == 0 || stmts[0].Kind() != "expression_statement" {
		return false
	}
	expr := stmts[0].Child(0)
	if expr == nil {
		return false
	}
	return expr.Kind() == "string" || expr.Kind() == "concatenated_string"
}

func (fv *FunctionVisitor) onCall(node *sitter.Node) bool {
	if !fv.checkCalls {
		return true
	}

	fn := node.ChildByFieldName("function")
	if fn == nil {
		// Malformed call node, nothing to check.
		return true
	}

	// Functions passed as argument values are references too.
	for _, arg := range namedChildren(node.ChildByFieldName("arguments")) {
		switch arg.Kind() {
		case "attribute":
			fv.recordReference(arg)
		case "keyword_argument":
			if v := arg.ChildByFieldName("value"); v != nil && v.Kind() == "attribute" {
				fv.recordReference(v)
			}
		}
	}

	switch fn.Kind() {
	case "identifier":
		fv.checkBareCall(node, fv.w.Text(fn))
	case "attribute":
		obj := fn.ChildByFieldName("object")
		attr := fn.ChildByFieldName("attribute")
		if obj == nil || attr == nil || obj.Kind() != "identifier" {
			return true
		}
		fv.checkQualifiedCall(node, fv.w.Text(obj), fv.w.Text(attr))
	}
	return true
}

func (fv *FunctionVisitor) checkBareCall(node *sitter.Node, name string) {
	if builtinFunctions[name] {
		return
	}

	if sig, ok := fv.Functions[name]; ok {
		fv.checkCompatibility(node, sig, "")
		return
	}

	// Not local: consult the cross-file tables. Compatibility is only
	// checked when the name is unambiguous; a reference edge is recorded
	// either way so visibility analysis sees the use.
	var matches []string
	for file, table := range fv.state.Functions {
		if _, ok := table[name]; ok {
			matches = append(matches, file)
		}
	}
	sort.Strings(matches)

	switch {
	case len(matches) == 1:
		fv.checkCompatibility(node, fv.state.Functions[matches[0]][name], matches[0])
		if matches[0] != fv.w.Path {
			fv.state.AddRef(RefEdge{File: matches[0], Function: name})
		}
	case len(matches) > 1:
		for _, file := range matches {
			if file != fv.w.Path {
				fv.state.AddRef(RefEdge{File: file, Function: name})
				break
			}
		}
	}
}

func (fv *FunctionVisitor) checkQualifiedCall(node *sitter.Node, objName, funcName string) {
	if builtinModules[objName] {
		return
	}

	binding, isImport := fv.imports[objName]
	if !isImport {
		if fv.w.Scopes.IsBound(objName) {
			// Bound to something local; nothing we can verify.
			return
		}
		fv.Violations = append(fv.Violations, Violation{
			File:    fv.w.Path,
			Line:    parser.Line(node),
			Message: fmt.Sprintf("Invalid object '%s' in call to '%s.%s': object is not defined", objName, objName, funcName),
			Check:   CheckCalls,
		})
		return
	}

	// Only local modules can be verified.
	if binding.Kind == PathExternal {
		return
	}

	target := fv.resolveModuleFile(binding.ModulePath)
	if target == "" {
		fv.Violations = append(fv.Violations, Violation{
			File:    fv.w.Path,
			Line:    parser.Line(node),
			Message: fmt.Sprintf("Could not resolve module '%s' for call to '%s.%s'", objName, objName, funcName),
			Check:   CheckCalls,
		})
		return
	}

	table, analyzed := fv.state.Functions[target]
	if !analyzed {
		fv.Violations = append(fv.Violations, Violation{
			File:    fv.w.Path,
			Line:    parser.Line(node),
			Message: fmt.Sprintf("Module '%s' has not been analyzed for call to '%s.%s'", objName, objName, funcName),
			Check:   CheckCalls,
		})
		return
	}

	sig, exists := table[funcName]
	if !exists {
		fv.Violations = append(fv.Violations, Violation{
			File:    fv.w.Path,
			Line:    parser.Line(node),
			Message: fmt.Sprintf("Call to non-existent function '%s' in module '%s'", funcName, objName),
			Check:   CheckCalls,
		})
		return
	}

	fv.checkCompatibility(node, sig, target)
	if target != fv.w.Path {
		fv.state.AddRef(RefEdge{File: target, Function: funcName})
	}
}

// resolveModuleFile maps a module path to one of the analyzed files. The
// dialect extension is appended when missing so bare module names still hit
// the table; relative paths are retried anchored at the importing file, and a
// basename match is the last resort.
func (fv *FunctionVisitor) resolveModuleFile(modulePath string) string {
	if !strings.HasSuffix(modulePath, parser.StarExt) {
		modulePath += parser.StarExt
	}

	if file, ok := fv.state.ModuleToFile[modulePath]; ok {
		return file
	}

	if strings.HasPrefix(modulePath, "./") || strings.HasPrefix(modulePath, "../") {
		abs := filepath.Clean(filepath.Join(filepath.Dir(fv.w.Path), modulePath))
		if file, ok := fv.state.ModuleToFile[abs]; ok {
			return file
		}
	}

	base := filepath.Base(modulePath)
	candidates := make([]string, 0, len(fv.state.ModuleToFile))
	for _, file := range fv.state.ModuleToFile {
		candidates = append(candidates, file)
	}
	sort.Strings(candidates)
	for _, file := range candidates {
		if filepath.Base(file) == base {
			return file
		}
	}
	return ""
}

// recordReference registers a bare value-reference to an imported module's
// function (module.fn used as a value, not called). Resolution failures are
// silent here; only actual calls produce violations.
func (fv *FunctionVisitor) recordReference(attr *sitter.Node) {
	obj := attr.ChildByFieldName("object")
	name := attr.ChildByFieldName("attribute")
	if obj == nil || name == nil || obj.Kind() != "identifier" {
		return
	}

	binding, ok := fv.imports[fv.w.Text(obj)]
	if !ok || binding.Kind == PathExternal {
		return
	}

	target := fv.resolveModuleFile(binding.ModulePath)
	if target == "" || target == fv.w.Path {
		return
	}
	table, analyzed := fv.state.Functions[target]
	if !analyzed {
		return
	}
	funcName := fv.w.Text(name)
	if _, exists := table[funcName]; !exists {
		return
	}
	fv.state.AddRef(RefEdge{File: target, Function: funcName})
}

func (fv *FunctionVisitor) onAssignment(node *sitter.Node) bool {
	if right := node.ChildByFieldName("right"); right != nil && right.Kind() == "attribute" {
		fv.recordReference(right)
	}
	return true
}

func (fv *FunctionVisitor) onSequence(node *sitter.Node) bool {
	for _, elt := range namedChildren(node) {
		if elt.Kind() == "attribute" {
			fv.recordReference(elt)
		}
	}
	return true
}

func (fv *FunctionVisitor) onDictionary(node *sitter.Node) bool {
	for _, pair := range namedChildren(node) {
		if pair.Kind() != "pair" {
			continue
		}
		if v := pair.ChildByFieldName("value"); v != nil && v.Kind() == "attribute" {
			fv.recordReference(v)
		}
	}
	return true
}

// checkCompatibility applies the argument-binding rules of a call against a
// signature. contextFile is the defining file for cross-file callees; its
// base name prefixes the function in messages so the reader can find it.
func (fv *FunctionVisitor) checkCompatibility(call *sitter.Node, sig FunctionSignature, contextFile string) {
	identifier := sig.Name
	if contextFile != "" && contextFile != fv.w.Path {
		identifier = filepath.Base(contextFile) + ":" + sig.Name
	}
	line := parser.Line(call)

	posCount := 0
	var keywords []string // source order, for deterministic reporting
	kwSet := make(map[string]bool)
	for _, arg := range namedChildren(call.ChildByFieldName("arguments")) {
		switch arg.Kind() {
		case "keyword_argument":
			name := fv.w.Text(arg.ChildByFieldName("name"))
			keywords = append(keywords, name)
			kwSet[name] = true
		case "dictionary_splat":
			// **expansion; contents unknowable statically.
		default:
			posCount++
		}
	}

	required := sig.Required()

	if posCount > len(sig.Params) && sig.VarArg == "" {
		// Excess positionals may actually be keyword-only parameters passed
		// positionally; tolerate up to that many to avoid false positives.
		if posCount-len(sig.Params) > len(sig.KwOnly) {
			fv.Violations = append(fv.Violations, Violation{
				File:    fv.w.Path,
				Line:    line,
				Message: fmt.Sprintf("Too many positional arguments in call to '%s'", identifier),
				Check:   CheckCalls,
			})
		}
	}

	provided := posCount
	for _, kw := range keywords {
		for i := 0; i < required && i < len(sig.Params); i++ {
			if sig.Params[i] == kw {
				provided++
				break
			}
		}
	}

	if provided < required {
		var missing []string
		for i := provided; i < required && i < len(sig.Params); i++ {
			if !kwSet[sig.Params[i]] {
				missing = append(missing, sig.Params[i])
			}
		}
		if len(missing) > 0 {
			plural := ""
			if len(missing) > 1 {
				plural = "s"
			}
			quoted := make([]string, len(missing))
			for i, name := range missing {
				quoted[i] = "'" + name + "'"
			}
			fv.Violations = append(fv.Violations, Violation{
				File:    fv.w.Path,
				Line:    line,
				Message: fmt.Sprintf("Missing required positional argument%s %s in call to '%s'", plural, strings.Join(quoted, ", "), identifier),
				Check:   CheckCalls,
			})
		}
	}

	valid := make(map[string]bool, len(sig.Params)+len(sig.KwOnly))
	for _, p := range sig.Params {
		valid[p] = true
	}
	for _, p := range sig.KwOnly {
		valid[p.Name] = true
	}
	if sig.KwArg == "" {
		for _, kw := range keywords {
			if !valid[kw] {
				fv.Violations = append(fv.Violations, Violation{
					File:    fv.w.Path,
					Line:    line,
					Message: fmt.Sprintf("Invalid keyword argument '%s' in call to '%s'", kw, identifier),
					Check:   CheckCalls,
				})
			}
		}
	}

	for _, p := range sig.KwOnly {
		if !p.HasDefault && !kwSet[p.Name] {
			fv.Violations = append(fv.Violations, Violation{
				File:    fv.w.Path,
				Line:    line,
				Message: fmt.Sprintf("Missing required keyword-only argument '%s' in call to '%s'", p.Name, identifier),
				Check:   CheckCalls,
			})
		}
	}
}

// VisibilityViolations judges each non-private, non-test function against the
// global reference set: referenced elsewhere and undocumented means it must be
// documented; referenced nowhere and undocumented means it should be private.
func (fv *FunctionVisitor) VisibilityViolations() []Violation {
	referenced := fv.state.ReferencedIn(fv.w.Path)

	var out []Violation
	for _, fn := range fv.Summaries {
		if strings.HasPrefix(fn.Name, privacyMarker) || strings.HasPrefix(fn.Name, testMarker) {
			continue
		}
		if fn.Documented {
			continue
		}
		if referenced[fn.Name] {
			out = append(out, Violation{
				File:    fv.w.Path,
				Line:    fn.Line,
				Message: fmt.Sprintf("Public function '%s' is used in other modules and should be documented", fn.Name),
				Check:   CheckVisibility,
			})
		} else {
			out = append(out, Violation{
				File:    fv.w.Path,
				Line:    fn.Line,
				Message: fmt.Sprintf("Function '%s' is not documented and not used in other modules, consider making it private", fn.Name),
				Check:   CheckVisibility,
			})
		}
	}
	return out
}
