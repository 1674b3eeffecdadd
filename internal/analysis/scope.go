package analysis

import (
	sitter "github.com/tree-sitter/go-tree-sitter"
)

// ValueKind tags the symbolic value recorded for a bound variable.
type ValueKind int

const (
	ValueUnknown ValueKind = iota
	// ValueNameAlias marks a plain variable-to-variable assignment (x = y).
	ValueNameAlias
	// ValuePositionalElement marks a destructured element whose source
	// sequence could not be split (a, b = pair).
	ValuePositionalElement
	// ValueRawExpression stores the whole right-hand expression.
	ValueRawExpression
)

// Value is the symbolic value a variable was last bound to. The closed set of
// kinds keeps alias resolution exhaustive.
type Value struct {
	Kind  ValueKind
	Name  string       // ValueNameAlias
	Expr  *sitter.Node // ValuePositionalElement source, ValueRawExpression
	Index int          // ValuePositionalElement
}

type frame struct {
	names  map[string]struct{}
	values map[string]Value
}

func newFrame() frame {
	return frame{
		names:  make(map[string]struct{}),
		values: make(map[string]Value),
	}
}

// ScopeStack tracks nested variable scopes during a tree walk. Frame 0 is the
// module (global) scope; naming-convention and visibility checks consult only
// that frame.
type ScopeStack struct {
	frames []frame
}

func NewScopeStack() *ScopeStack {
	return &ScopeStack{}
}

func (s *ScopeStack) Enter() {
	s.frames = append(s.frames, newFrame())
}

// Exit pops the top frame. Popping an empty stack is a no-op, not an error.
func (s *ScopeStack) Exit() {
	if len(s.frames) > 0 {
		s.frames = s.frames[:len(s.frames)-1]
	}
}

func (s *ScopeStack) Bind(name string) {
	if len(s.frames) == 0 {
		return
	}
	s.frames[len(s.frames)-1].names[name] = struct{}{}
}

func (s *ScopeStack) BindValue(name string, value Value) {
	if len(s.frames) == 0 {
		return
	}
	top := s.frames[len(s.frames)-1]
	top.names[name] = struct{}{}
	top.values[name] = value
}

// IsBound reports whether any frame, searched innermost first, binds name.
func (s *ScopeStack) IsBound(name string) bool {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if _, ok := s.frames[i].names[name]; ok {
			return true
		}
	}
	return false
}

// ValueOf returns the innermost recorded value for name.
func (s *ScopeStack) ValueOf(name string) (Value, bool) {
	for i := len(s.frames) - 1; i >= 0; i-- {
		if v, ok := s.frames[i].values[name]; ok {
			return v, true
		}
	}
	return Value{}, false
}

func (s *ScopeStack) Depth() int {
	return len(s.frames)
}

// InGlobal reports whether the walk is currently at module scope.
func (s *ScopeStack) InGlobal() bool {
	return len(s.frames) == 1
}
