package analysis

import (
	sitter "github.com/tree-sitter/go-tree-sitter"

	"starlint/internal/parser"
)

// Handler observes one node kind during a walk. Returning false stops the
// walker from descending into the node's children.
type Handler func(node *sitter.Node) bool

// Walker performs recursive descent over a parsed tree with scope bookkeeping
// baked into block-introducing constructs. Visitors extend it by registering
// handlers per node kind; traversal and scoping stay in one place.
type Walker struct {
	Path     string
	Source   []byte
	Scopes   *ScopeStack
	handlers map[string]Handler
}

func NewWalker(path string, source []byte) *Walker {
	return &Walker{
		Path:     path,
		Source:   source,
		Scopes:   NewScopeStack(),
		handlers: make(map[string]Handler),
	}
}

// Handle registers a handler for a node kind. Structural kinds
// (function_definition, if_statement, for_statement, comprehensions,
// assignment) keep their scope bookkeeping; the handler runs in addition.
func (w *Walker) Handle(kind string, h Handler) {
	w.handlers[kind] = h
}

func (w *Walker) Text(node *sitter.Node) string {
	return parser.Text(node, w.Source)
}

// Run walks the whole tree inside a fresh global frame.
func (w *Walker) Run(root *sitter.Node) {
	w.Scopes.Enter()
	defer w.Scopes.Exit()
	w.Walk(root)
}

func (w *Walker) Walk(node *sitter.Node) {
	if node == nil {
		return
	}

	switch node.Kind() {
	case "function_definition":
		w.walkFunction(node)
		return
	case "if_statement":
		w.walkIf(node)
		return
	case "for_statement":
		w.walkFor(node)
		return
	case "list_comprehension", "set_comprehension", "dictionary_comprehension", "generator_expression":
		w.walkComprehension(node)
		return
	case "assignment":
		w.walkAssignment(node)
		return
	}

	if h, ok := w.handlers[node.Kind()]; ok {
		if !h(node) {
			return
		}
	}

	for i := uint(0); i < node.ChildCount(); i++ {
		w.Walk(node.Child(i))
	}
}

// inScope runs fn inside a fresh frame; the pop is guaranteed even if fn
// panics, so a malformed subtree never corrupts outer scopes.
func (w *Walker) inScope(fn func()) {
	w.Scopes.Enter()
	defer w.Scopes.Exit()
	fn()
}

func (w *Walker) dispatch(node *sitter.Node) {
	if h, ok := w.handlers[node.Kind()]; ok {
		h(node)
	}
}

func (w *Walker) walkFunction(node *sitter.Node) {
	w.dispatch(node)

	params := node.ChildByFieldName("parameters")
	body := node.ChildByFieldName("body")

	w.inScope(func() {
		w.bindParameters(params)
		w.walkChildren(body)
	})
}

func (w *Walker) bindParameters(params *sitter.Node) {
	if params == nil {
		return
	}
	for _, p := range namedChildren(params) {
		switch p.Kind() {
		case "identifier":
			w.Scopes.Bind(w.Text(p))
		case "default_parameter", "typed_default_parameter":
			if name := p.ChildByFieldName("name"); name != nil {
				w.Scopes.Bind(w.Text(name))
			}
		case "typed_parameter":
			if id := parser.ChildOfKind(p, "identifier"); id != nil {
				w.Scopes.Bind(w.Text(id))
			}
		case "list_splat_pattern", "dictionary_splat_pattern":
			if id := parser.ChildOfKind(p, "identifier"); id != nil {
				w.Scopes.Bind(w.Text(id))
			}
		}
	}
}

func (w *Walker) walkIf(node *sitter.Node) {
	w.dispatch(node)

	w.Walk(node.ChildByFieldName("condition"))

	// Each branch gets its own frame.
	w.inScope(func() {
		w.walkChildren(node.ChildByFieldName("consequence"))
	})

	for i := uint(0); i < node.ChildCount(); i++ {
		clause := node.Child(i)
		switch clause.Kind() {
		case "elif_clause":
			w.Walk(clause.ChildByFieldName("condition"))
			w.inScope(func() {
				w.walkChildren(clause.ChildByFieldName("consequence"))
			})
		case "else_clause":
			w.inScope(func() {
				w.walkChildren(clause.ChildByFieldName("body"))
			})
		}
	}
}

func (w *Walker) walkFor(node *sitter.Node) {
	w.dispatch(node)

	// The iterable is evaluated outside the loop frame.
	w.Walk(node.ChildByFieldName("right"))

	w.inScope(func() {
		w.bindPattern(node.ChildByFieldName("left"))
		w.walkChildren(node.ChildByFieldName("body"))
		if alt := node.ChildByFieldName("alternative"); alt != nil {
			w.walkChildren(alt.ChildByFieldName("body"))
		}
	})
}

func (w *Walker) walkComprehension(node *sitter.Node) {
	w.dispatch(node)

	w.inScope(func() {
		for i := uint(0); i < node.ChildCount(); i++ {
			clause := node.Child(i)
			switch clause.Kind() {
			case "for_in_clause":
				w.Walk(clause.ChildByFieldName("right"))
				w.bindPattern(clause.ChildByFieldName("left"))
			case "if_clause":
				for _, cond := range namedChildren(clause) {
					w.Walk(cond)
				}
			}
		}
		w.Walk(node.ChildByFieldName("body"))
	})
}

func (w *Walker) walkAssignment(node *sitter.Node) {
	left := node.ChildByFieldName("left")
	right := node.ChildByFieldName("right")

	w.Walk(right)
	w.bindAssignTargets(left, right)

	w.dispatch(node)

	// Non-name targets (subscripts, attributes) may contain calls worth
	// visiting; plain names were already bound above.
	if left != nil {
		switch left.Kind() {
		case "identifier", "pattern_list", "tuple_pattern":
		default:
			w.Walk(left)
		}
	}
}

// bindAssignTargets binds assignment targets into the current frame,
// propagating element values positionally when the right side is a literal
// sequence and falling back to position-tagged values otherwise.
func (w *Walker) bindAssignTargets(left, right *sitter.Node) {
	if left == nil {
		return
	}

	switch left.Kind() {
	case "identifier":
		w.Scopes.BindValue(w.Text(left), w.symbolicValue(right))
	case "pattern_list", "tuple_pattern":
		elements := namedChildren(left)
		var values []*sitter.Node
		if right != nil && (right.Kind() == "expression_list" || right.Kind() == "tuple") {
			values = namedChildren(right)
		}
		for i, elt := range elements {
			if elt.Kind() != "identifier" {
				continue
			}
			name := w.Text(elt)
			if values != nil && i < len(values) {
				w.Scopes.BindValue(name, w.symbolicValue(values[i]))
			} else {
				w.Scopes.BindValue(name, Value{Kind: ValuePositionalElement, Expr: right, Index: i})
			}
		}
	}
}

func (w *Walker) symbolicValue(expr *sitter.Node) Value {
	if expr == nil {
		return Value{Kind: ValueUnknown}
	}
	if expr.Kind() == "identifier" {
		return Value{Kind: ValueNameAlias, Name: w.Text(expr)}
	}
	return Value{Kind: ValueRawExpression, Expr: expr}
}

// bindPattern binds every identifier in a loop or comprehension target.
func (w *Walker) bindPattern(node *sitter.Node) {
	if node == nil {
		return
	}
	if node.Kind() == "identifier" {
		w.Scopes.Bind(w.Text(node))
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		w.bindPattern(node.Child(i))
	}
}

func (w *Walker) walkChildren(node *sitter.Node) {
	if node == nil {
		return
	}
	for i := uint(0); i < node.ChildCount(); i++ {
		w.Walk(node.Child(i))
	}
}

func namedChildren(node *sitter.Node) []*sitter.Node {
	if node == nil {
		return nil
	}
	out := make([]*sitter.Node, 0, node.ChildCount())
	for i := uint(0); i < node.ChildCount(); i++ {
		child := node.Child(i)
		if child.IsNamed() && child.Kind() != "comment" {
			out = append(out, child)
		}
	}
	return out
}
