package analysis

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"starlint/internal/observability"
	"starlint/internal/parser"
	"starlint/internal/workspace"
)

// SharedState is the symbol universe the two-pass protocol accumulates:
// per-file signature and import tables, the module-path lookup table, and the
// global cross-file reference set. The orchestrator owns it; per-file
// analyzers receive it for reads plus reference-edge inserts. Passes run
// strictly sequentially, so no locking is involved.
type SharedState struct {
	// Functions maps file path to that file's signature table.
	Functions map[string]map[string]FunctionSignature
	// Imports maps file path to its direct import bindings by variable name.
	Imports map[string]map[string]ImportBinding
	// ModuleToFile maps every known spelling of a module path to a file.
	ModuleToFile map[string]string
	// Refs is the global set of cross-file function references.
	Refs map[RefEdge]struct{}
}

func NewSharedState() *SharedState {
	return &SharedState{
		Functions:    make(map[string]map[string]FunctionSignature),
		Imports:      make(map[string]map[string]ImportBinding),
		ModuleToFile: make(map[string]string),
		Refs:         make(map[RefEdge]struct{}),
	}
}

func (s *SharedState) AddRef(edge RefEdge) {
	s.Refs[edge] = struct{}{}
}

// ReferencedIn returns the names of file's functions that some other file
// references.
func (s *SharedState) ReferencedIn(file string) map[string]bool {
	out := make(map[string]bool)
	for edge := range s.Refs {
		if edge.File == file {
			out[edge.Function] = true
		}
	}
	return out
}

// AnalyzeFile runs the import resolver and the function/call analyzer over a
// single file, returning its violations and folding the file's imports,
// signatures, and reference edges into state. Any unexpected failure is
// caught at the file boundary and converted into a single line-0 violation so
// one bad file never aborts the run.
func AnalyzeFile(path string, checks Checks, state *SharedState, root string) (violations []Violation) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("file analysis panicked", "path", path, "error", r)
			violations = []Violation{internalViolation(path, r)}
		}
	}()

	if root == "" {
		root = workspace.FindRoot(path)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return []Violation{internalViolation(path, err)}
	}

	start := time.Now()
	tree, err := parser.New().Parse(path, content)
	observability.ParsingDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		return []Violation{internalViolation(path, err)}
	}
	defer tree.Close()

	// Imports are always collected so other files have data to resolve
	// against; whether their violations are reported depends on the checks.
	iw := NewWalker(path, content)
	iv := NewImportVisitor(iw, root, checks)
	iw.Run(tree.RootNode())

	for _, v := range iv.Violations {
		if v.Check == CheckImportNaming && !checks.ImportNaming {
			continue
		}
		violations = append(violations, v)
	}

	state.Imports[path] = iv.DirectBindings()
	for _, binding := range iv.Bindings {
		if binding.ResolvedPath != "" {
			state.ModuleToFile[binding.ModulePath] = binding.ResolvedPath
		}
	}

	if checks.Calls || checks.Visibility {
		fw := NewWalker(path, content)
		fv := NewFunctionVisitor(fw, state.Imports[path], state, checks.Calls)
		fw.Run(tree.RootNode())

		if len(fv.Functions) > 0 {
			state.Functions[path] = fv.Functions
		}

		violations = append(violations, fv.Violations...)
		if checks.Visibility {
			violations = append(violations, fv.VisibilityViolations()...)
		}
	}

	observability.FilesAnalyzed.Inc()
	return violations
}

func internalViolation(path string, cause any) Violation {
	return Violation{
		File:    path,
		Line:    0,
		Message: fmt.Sprintf("Error analyzing file %s: %v", path, cause),
		Check:   CheckInternal,
	}
}

// AnalyzeFiles implements the two-pass protocol over a file set. Pass 1
// contributes every file's imports, signatures, and reference edges to a
// fresh shared state; its call-check violations are discarded because other
// files' tables are still incomplete while it runs. Pass 2 consumes the
// completed universe with the caller's requested checks. Files with no
// violations are omitted from the result.
func AnalyzeFiles(paths []string, checks Checks, root string) map[string][]Violation {
	if root == "" && len(paths) > 0 {
		root = workspace.FindRoot(paths[0])
	}

	state := NewSharedState()
	buildModuleTable(state, paths, root)

	slog.Debug("first pass: collecting imports and signatures", "files", len(paths))
	pass1 := checks
	pass1.Calls = true
	pass1.Visibility = false

	start := time.Now()
	for _, path := range paths {
		AnalyzeFile(path, pass1, state, root)
	}
	observability.AnalysisDuration.WithLabelValues("1").Observe(time.Since(start).Seconds())

	slog.Debug("second pass: checking against the complete symbol universe")
	start = time.Now()
	results := make(map[string][]Violation)
	for _, path := range paths {
		if found := AnalyzeFile(path, checks, state, root); len(found) > 0 {
			results[path] = found
		}
	}
	observability.AnalysisDuration.WithLabelValues("2").Observe(time.Since(start).Seconds())

	for _, found := range results {
		for _, v := range found {
			observability.ViolationsTotal.WithLabelValues(v.Check).Inc()
		}
	}
	observability.RunsTotal.Inc()

	return results
}

// buildModuleTable registers every spelling under which an input file can be
// imported: its own path, its workspace-relative path with and without a
// leading separator, its base name, and the relative path from every other
// input file's directory, with and without a ./ prefix.
func buildModuleTable(state *SharedState, paths []string, root string) {
	for _, path := range paths {
		if !strings.HasSuffix(path, parser.StarExt) {
			continue
		}

		state.ModuleToFile[path] = path

		if root != "" && strings.HasPrefix(path, root) {
			rel := strings.TrimLeft(strings.TrimPrefix(path, root), string(filepath.Separator))
			state.ModuleToFile[rel] = path
			state.ModuleToFile["/"+rel] = path
		}

		state.ModuleToFile[filepath.Base(path)] = path
	}

	for _, source := range paths {
		if !strings.HasSuffix(source, parser.StarExt) {
			continue
		}
		sourceDir := filepath.Dir(source)
		for _, target := range paths {
			if source == target || !strings.HasSuffix(target, parser.StarExt) {
				continue
			}
			rel, err := filepath.Rel(sourceDir, target)
			if err != nil {
				continue
			}
			state.ModuleToFile[rel] = target
			state.ModuleToFile["./"+rel] = target
		}
	}
}
