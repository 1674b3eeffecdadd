package analysis

import (
	"testing"
)

func runFunctions(t *testing.T, path, src string, imports map[string]ImportBinding, state *SharedState) *FunctionVisitor {
	t.Helper()
	if state == nil {
		state = NewSharedState()
	}
	if imports == nil {
		imports = map[string]ImportBinding{}
	}
	tree := parseSource(t, src)
	w := NewWalker(path, []byte(src))
	fv := NewFunctionVisitor(w, imports, state, true)
	w.Run(tree.RootNode())
	return fv
}

func TestSignatureExtraction(t *testing.T) {
	src := `def f(a, b=1, *args, c, d=2, **kw):
    """Documented."""
    pass

def g():
    pass
`
	fv := runFunctions(t, "/ws/main.star", src, nil, nil)

	sig, ok := fv.Functions["f"]
	if !ok {
		t.Fatal("f not collected")
	}
	if len(sig.Params) != 2 || sig.Params[0] != "a" || sig.Params[1] != "b" {
		t.Errorf("unexpected params: %v", sig.Params)
	}
	if len(sig.Defaults) != 1 || sig.Defaults[0] != "1" {
		t.Errorf("unexpected defaults: %v", sig.Defaults)
	}
	if sig.Required() != 1 {
		t.Errorf("expected 1 required param, got %d", sig.Required())
	}
	if sig.VarArg != "args" {
		t.Errorf("unexpected vararg: %q", sig.VarArg)
	}
	if len(sig.KwOnly) != 2 || sig.KwOnly[0] != (KwOnlyParam{Name: "c"}) || sig.KwOnly[1] != (KwOnlyParam{Name: "d", HasDefault: true}) {
		t.Errorf("unexpected kwonly: %+v", sig.KwOnly)
	}
	if sig.KwArg != "kw" {
		t.Errorf("unexpected kwarg: %q", sig.KwArg)
	}
	if !sig.Documented {
		t.Error("f should be documented")
	}

	if fv.Functions["g"].Documented {
		t.Error("g should not be documented")
	}
}

func TestLocalCallCompatibility(t *testing.T) {
	src := `def target(a, b, c=3):
    pass

target(1)
target(1, 2)
target(1, 2, 3, 4)
target(1, 2, x=1)
`
	fv := runFunctions(t, "/ws/main.star", src, nil, nil)

	got := messagesOf(fv.Violations)
	want := []string{
		"Missing required positional argument 'b' in call to 'target'",
		"Too many positional arguments in call to 'target'",
		"Invalid keyword argument 'x' in call to 'target'",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %d violations, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("violation %d: got %q, want %q", i, got[i], want[i])
		}
	}
}

func TestMissingPositionalPlural(t *testing.T) {
	src := `def target(a, b, c):
    pass

target()
`
	fv := runFunctions(t, "/ws/main.star", src, nil, nil)

	if len(fv.Violations) != 1 {
		t.Fatalf("expected 1 violation, got %v", messagesOf(fv.Violations))
	}
	want := "Missing required positional arguments 'a', 'b', 'c' in call to 'target'"
	if fv.Violations[0].Message != want {
		t.Errorf("unexpected message: %s", fv.Violations[0].Message)
	}
}

func TestKeywordOnlyRules(t *testing.T) {
	src := `def target(*, required, optional=1):
    pass

target()
target(required=1)
`
	fv := runFunctions(t, "/ws/main.star", src, nil, nil)

	got := messagesOf(fv.Violations)
	want := []string{"Missing required keyword-only argument 'required' in call to 'target'"}
	if len(got) != 1 || got[0] != want[0] {
		t.Fatalf("expected %v, got %v", want, got)
	}
}

func TestVarArgAndKwArgTolerance(t *testing.T) {
	src := `def target(a, *args, **kw):
    pass

target(1, 2, 3, 4, extra=5)
`
	fv := runFunctions(t, "/ws/main.star", src, nil, nil)

	if len(fv.Violations) != 0 {
		t.Fatalf("variadic signature should accept anything: %v", messagesOf(fv.Violations))
	}
}

func TestBuiltinsAreSkipped(t *testing.T) {
	src := `len(1, 2, 3)
plan.run_sh("x")
struct(a=1, b=2)
`
	fv := runFunctions(t, "/ws/main.star", src, nil, nil)

	if len(fv.Violations) != 0 {
		t.Fatalf("builtin calls must not be checked: %v", messagesOf(fv.Violations))
	}
}

func libState() (*SharedState, map[string]ImportBinding) {
	state := NewSharedState()
	state.Functions["/ws/lib.star"] = map[string]FunctionSignature{
		"build": {
			Name:   "build",
			File:   "/ws/lib.star",
			Line:   1,
			Params: []string{"plan"},
		},
	}
	state.ModuleToFile["lib.star"] = "/ws/lib.star"
	state.ModuleToFile["/ws/lib.star"] = "/ws/lib.star"

	imports := map[string]ImportBinding{
		"_lib": {Var: "_lib", ModulePath: "lib.star", Kind: PathWorkspace, ResolvedPath: "/ws/lib.star"},
	}
	return state, imports
}

func TestQualifiedCallNonExistentFunction(t *testing.T) {
	state, imports := libState()
	src := `_lib.missing()
`
	fv := runFunctions(t, "/ws/main.star", src, imports, state)

	got := messagesOf(fv.Violations)
	want := "Call to non-existent function 'missing' in module '_lib'"
	if len(got) != 1 || got[0] != want {
		t.Fatalf("expected %q, got %v", want, got)
	}
}

func TestQualifiedCallUnresolvedModule(t *testing.T) {
	state := NewSharedState()
	imports := map[string]ImportBinding{
		"_gone": {Var: "_gone", ModulePath: "nowhere.star", Kind: PathWorkspace},
	}
	src := `_gone.f()
`
	fv := runFunctions(t, "/ws/main.star", src, imports, state)

	got := messagesOf(fv.Violations)
	want := "Could not resolve module '_gone' for call to '_gone.f'"
	if len(got) != 1 || got[0] != want {
		t.Fatalf("expected %q, got %v", want, got)
	}
}

func TestQualifiedCallUnanalyzedModule(t *testing.T) {
	state := NewSharedState()
	state.ModuleToFile["lib.star"] = "/ws/lib.star"
	imports := map[string]ImportBinding{
		"_lib": {Var: "_lib", ModulePath: "lib.star", Kind: PathWorkspace},
	}
	src := `_lib.f()
`
	fv := runFunctions(t, "/ws/main.star", src, imports, state)

	got := messagesOf(fv.Violations)
	want := "Module '_lib' has not been analyzed for call to '_lib.f'"
	if len(got) != 1 || got[0] != want {
		t.Fatalf("expected %q, got %v", want, got)
	}
}

func TestQualifiedCallExternalModuleSkipped(t *testing.T) {
	state := NewSharedState()
	imports := map[string]ImportBinding{
		"_ext": {Var: "_ext", ModulePath: "github.com/org/pkg/lib.star", Kind: PathExternal},
	}
	src := `_ext.anything(1, 2, 3)
`
	fv := runFunctions(t, "/ws/main.star", src, imports, state)

	if len(fv.Violations) != 0 {
		t.Fatalf("external modules must not be verified: %v", messagesOf(fv.Violations))
	}
}

func TestUndefinedObjectInQualifiedCall(t *testing.T) {
	src := `known = {}
known.get("x")
ghost.call()
`
	fv := runFunctions(t, "/ws/main.star", src, nil, nil)

	got := messagesOf(fv.Violations)
	want := "Invalid object 'ghost' in call to 'ghost.call': object is not defined"
	if len(got) != 1 || got[0] != want {
		t.Fatalf("expected only %q, got %v", want, got)
	}
}

func TestCrossFileCompatibilityMessage(t *testing.T) {
	state, imports := libState()
	src := `_lib.build()
`
	fv := runFunctions(t, "/ws/main.star", src, imports, state)

	got := messagesOf(fv.Violations)
	want := "Missing required positional argument 'plan' in call to 'lib.star:build'"
	if len(got) != 1 || got[0] != want {
		t.Fatalf("expected %q, got %v", want, got)
	}
}

func TestQualifiedCallRecordsReference(t *testing.T) {
	state, imports := libState()
	src := `_lib.build("plan")
`
	runFunctions(t, "/ws/main.star", src, imports, state)

	if _, ok := state.Refs[RefEdge{File: "/ws/lib.star", Function: "build"}]; !ok {
		t.Fatalf("expected reference edge, got %v", state.Refs)
	}
}

func TestValueReferencesRecorded(t *testing.T) {
	state, imports := libState()
	src := `handler = _lib.build
handlers = [_lib.build]
pairs = {"k": _lib.build}
run(_lib.build, cb=_lib.build)
`
	runFunctions(t, "/ws/main.star", src, imports, state)

	if _, ok := state.Refs[RefEdge{File: "/ws/lib.star", Function: "build"}]; !ok {
		t.Fatalf("expected value-reference edge, got %v", state.Refs)
	}
}

func TestNoSelfEdges(t *testing.T) {
	state := NewSharedState()
	state.ModuleToFile["main.star"] = "/ws/main.star"
	imports := map[string]ImportBinding{
		"_self": {Var: "_self", ModulePath: "main.star", Kind: PathWorkspace},
	}
	src := `def local(a):
    pass

_self.local(1)
`
	// Pre-populate the file's own table the way pass 1 would.
	state.Functions["/ws/main.star"] = map[string]FunctionSignature{
		"local": {Name: "local", File: "/ws/main.star", Line: 1, Params: []string{"a"}},
	}
	fv := runFunctions(t, "/ws/main.star", src, imports, state)

	if len(state.Refs) != 0 {
		t.Fatalf("self-references must not create edges: %v", state.Refs)
	}
	if len(fv.Violations) != 0 {
		t.Fatalf("unexpected violations: %v", messagesOf(fv.Violations))
	}
}

func TestBareNameCrossFileCall(t *testing.T) {
	state, _ := libState()
	src := `build("plan")
build()
`
	fv := runFunctions(t, "/ws/main.star", src, nil, state)

	if _, ok := state.Refs[RefEdge{File: "/ws/lib.star", Function: "build"}]; !ok {
		t.Fatal("bare-name cross-file call should record a reference edge")
	}
	got := messagesOf(fv.Violations)
	want := "Missing required positional argument 'plan' in call to 'lib.star:build'"
	if len(got) != 1 || got[0] != want {
		t.Fatalf("expected %q, got %v", want, got)
	}
}

func TestNestedCallsAreChecked(t *testing.T) {
	src := `def inner(a):
    pass

outer = print(inner())
`
	fv := runFunctions(t, "/ws/main.star", src, nil, nil)

	got := messagesOf(fv.Violations)
	want := "Missing required positional argument 'a' in call to 'inner'"
	if len(got) != 1 || got[0] != want {
		t.Fatalf("expected %q, got %v", want, got)
	}
}

func TestVisibilityJudgment(t *testing.T) {
	state := NewSharedState()
	state.AddRef(RefEdge{File: "/ws/lib.star", Function: "used_undocumented"})

	src := `def used_undocumented():
    pass

def unused_undocumented():
    pass

def documented():
    """Fine."""
    pass

def _private():
    pass

def test_something():
    pass
`
	fv := runFunctions(t, "/ws/lib.star", src, nil, state)

	got := messagesOf(fv.VisibilityViolations())
	want := []string{
		"Public function 'used_undocumented' is used in other modules and should be documented",
		"Function 'unused_undocumented' is not documented and not used in other modules, consider making it private",
	}
	if len(got) != len(want) {
		t.Fatalf("expected %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("violation %d: got %q, want %q", i, got[i], want[i])
		}
	}
}
