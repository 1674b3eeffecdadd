package analysis

import (
	"testing"

	sitter "github.com/tree-sitter/go-tree-sitter"

	"starlint/internal/parser"
)

func parseSource(t *testing.T, src string) *sitter.Tree {
	t.Helper()
	tree, err := parser.New().Parse("test.star", []byte(src))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	t.Cleanup(func() { tree.Close() })
	return tree
}

func TestWalkerBindsFunctionParameters(t *testing.T) {
	src := `def f(a, b=1, *args, c, **kw):
    probe(a)
`
	tree := parseSource(t, src)
	w := NewWalker("test.star", []byte(src))

	var sawProbe bool
	w.Handle("call", func(node *sitter.Node) bool {
		sawProbe = true
		for _, name := range []string{"a", "b", "args", "c", "kw"} {
			if !w.Scopes.IsBound(name) {
				t.Errorf("parameter %s not bound inside body", name)
			}
		}
		if w.Scopes.InGlobal() {
			t.Error("call inside function body should not be at global scope")
		}
		return true
	})

	w.Run(tree.RootNode())
	if !sawProbe {
		t.Fatal("probe call was never visited")
	}
}

func TestWalkerScopesBranchesAndLoops(t *testing.T) {
	src := `for item in items:
    probe(item)
else:
    probe(item)
if cond:
    branch_var = 1
    probe(branch_var)
`
	tree := parseSource(t, src)
	w := NewWalker("test.star", []byte(src))

	probes := 0
	w.Handle("call", func(node *sitter.Node) bool {
		probes++
		switch probes {
		case 1, 2:
			if !w.Scopes.IsBound("item") {
				t.Error("loop target should be bound in loop and else frames")
			}
		case 3:
			if !w.Scopes.IsBound("branch_var") {
				t.Error("branch-local assignment should be bound inside the branch")
			}
		}
		return true
	})

	w.Run(tree.RootNode())
	if probes != 3 {
		t.Fatalf("expected 3 probe calls, got %d", probes)
	}
}

func TestWalkerComprehensionTarget(t *testing.T) {
	src := `result = [probe(v) for v in values if v]
`
	tree := parseSource(t, src)
	w := NewWalker("test.star", []byte(src))

	sawProbe := false
	w.Handle("call", func(node *sitter.Node) bool {
		sawProbe = true
		if !w.Scopes.IsBound("v") {
			t.Error("comprehension target should be bound in the body")
		}
		return true
	})

	w.Run(tree.RootNode())
	if !sawProbe {
		t.Fatal("comprehension body was never visited")
	}
}

func TestWalkerDestructuringValues(t *testing.T) {
	src := `first, second = alpha, beta
merged, rest = pair
plain = alpha
`
	tree := parseSource(t, src)
	w := NewWalker("test.star", []byte(src))

	// Walk without Run so the global frame survives for inspection.
	w.Scopes.Enter()
	w.Walk(tree.RootNode())

	v, ok := w.Scopes.ValueOf("first")
	if !ok || v.Kind != ValueNameAlias || v.Name != "alpha" {
		t.Errorf("first should alias alpha, got %+v", v)
	}
	v, _ = w.Scopes.ValueOf("second")
	if v.Kind != ValueNameAlias || v.Name != "beta" {
		t.Errorf("second should alias beta, got %+v", v)
	}

	// Right side is a single name, so elements carry a position marker.
	v, ok = w.Scopes.ValueOf("merged")
	if !ok || v.Kind != ValuePositionalElement || v.Index != 0 {
		t.Errorf("merged should be positional element 0, got %+v", v)
	}
	v, _ = w.Scopes.ValueOf("rest")
	if v.Kind != ValuePositionalElement || v.Index != 1 {
		t.Errorf("rest should be positional element 1, got %+v", v)
	}

	v, _ = w.Scopes.ValueOf("plain")
	if v.Kind != ValueNameAlias || v.Name != "alpha" {
		t.Errorf("plain should alias alpha, got %+v", v)
	}
}
