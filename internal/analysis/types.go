package analysis

import (
	"fmt"
	"strings"
)

// Check identifiers attached to violations, used by reporting and metrics.
const (
	CheckImportNaming = "import_naming"
	CheckImportExists = "import_exists"
	CheckCalls        = "calls"
	CheckVisibility   = "function_visibility"
	CheckInternal     = "internal"
)

// Checks selects which analyses produce reported violations. Signature and
// import collection always run so that other files have data to resolve
// against.
type Checks struct {
	ImportNaming bool
	Calls        bool
	Visibility   bool
	// FileExists gates the import resolver's on-disk existence check.
	// Disable it when analyzing a synthetic or partial workspace.
	FileExists bool
}

func AllChecks() Checks {
	return Checks{ImportNaming: true, Calls: true, Visibility: true, FileExists: true}
}

// Violation is one finding: file, line, message. Never mutated after creation.
type Violation struct {
	File    string
	Line    int
	Message string
	Check   string
}

// PathKind classifies a module path passed to import_module.
type PathKind int

const (
	// PathWorkspace is a bare path resolved against the workspace root.
	PathWorkspace PathKind = iota
	// PathExternal references a third-party package (github.com/...).
	PathExternal
	// PathAbsolute starts with / and is rooted at the workspace.
	PathAbsolute
	// PathRelative starts with ./ or ../ and is rooted at the importing file.
	PathRelative
)

// ImportBinding records one variable that directly received an
// import_module result. Aliases of such variables are tracked separately.
type ImportBinding struct {
	Var          string
	ModulePath   string
	Kind         PathKind
	ResolvedPath string // empty for external or unresolvable paths
	Line         int
}

// KwOnlyParam is a keyword-only parameter and whether it carries a default.
type KwOnlyParam struct {
	Name       string
	HasDefault bool
}

// FunctionSignature is the parameter shape of one function definition.
// Built once while walking the defining file, immutable afterwards.
type FunctionSignature struct {
	Name       string
	File       string
	Line       int
	Params     []string // positional parameter names, in order
	Defaults   []string // raw default expressions for the trailing positionals
	VarArg     string   // *args name, empty if absent
	KwOnly     []KwOnlyParam
	KwArg      string // **kwargs name, empty if absent
	Documented bool   // first body statement is a string literal
}

// Required returns the number of positional parameters without defaults.
func (s FunctionSignature) Required() int {
	return len(s.Params) - len(s.Defaults)
}

func (s FunctionSignature) String() string {
	parts := make([]string, 0, len(s.Params)+len(s.KwOnly)+2)
	required := s.Required()
	for i, p := range s.Params {
		if i >= required {
			parts = append(parts, fmt.Sprintf("%s=%s", p, s.Defaults[i-required]))
		} else {
			parts = append(parts, p)
		}
	}
	if s.VarArg != "" {
		parts = append(parts, "*"+s.VarArg)
	}
	for _, p := range s.KwOnly {
		parts = append(parts, p.Name)
	}
	if s.KwArg != "" {
		parts = append(parts, "**"+s.KwArg)
	}
	return fmt.Sprintf("%s(%s)", s.Name, strings.Join(parts, ", "))
}

// FunctionSummary is the slice of a signature that visibility analysis needs.
type FunctionSummary struct {
	Name       string
	Line       int
	Documented bool
}

// RefEdge records that a function defined in File was called or referenced
// from some other file.
type RefEdge struct {
	File     string
	Function string
}
