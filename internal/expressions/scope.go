package expressions

import (
	"strings"
	"sync"

	"github.com/rendis/authflow/pkg/schema"
)

// Scope holds the variables of one flow execution. Each flow (and each
// subflow invocation) owns its own Scope; nothing is shared across the
// parent/child boundary except what mappers copy explicitly.
type Scope struct {
	mu   sync.RWMutex
	vars map[string]any
}

// NewScope creates a Scope seeded with a deep copy of initial.
func NewScope(initial map[string]any) *Scope {
	vars := deepCopyMap(initial)
	if vars == nil {
		vars = make(map[string]any)
	}
	return &Scope{vars: vars}
}

// Get reads a dotted path.
func (s *Scope) Get(path ...string) (any, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Lookup(s.vars, path)
}

// Set writes a dotted path, creating intermediate maps.
func (s *Scope) Set(value any, path ...string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Assign(s.vars, path, deepCopyAny(value))
}

// Update runs fn with exclusive access to the variables.
func (s *Scope) Update(fn func(vars map[string]any) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.vars)
}

// Snapshot returns a deep copy of all variables.
func (s *Scope) Snapshot() map[string]any {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return deepCopyMap(s.vars)
}

// Len returns the number of top-level variables.
func (s *Scope) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.vars)
}

// Lookup walks path through nested maps.
func Lookup(data map[string]any, path []string) (any, bool) {
	if len(path) == 0 {
		return nil, false
	}
	var cur any = data
	for _, seg := range path {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		cur, ok = m[seg]
		if !ok {
			return nil, false
		}
	}
	return cur, true
}

// Assign sets value at path, creating intermediate maps. It fails when an
// intermediate segment holds a non-map value.
func Assign(data map[string]any, path []string, value any) error {
	if len(path) == 0 {
		return schema.NewError(schema.ErrCodeExpression, "empty assignment path")
	}
	if data == nil {
		return schema.NewError(schema.ErrCodeExpression, "assignment into nil map")
	}
	cur := data
	for i, seg := range path[:len(path)-1] {
		next, ok := cur[seg]
		if !ok || next == nil {
			m := make(map[string]any)
			cur[seg] = m
			cur = m
			continue
		}
		m, ok := next.(map[string]any)
		if !ok {
			return schema.NewErrorf(schema.ErrCodeExpression,
				"cannot assign through %q: holds %T", joinPath(path[:i+1]), next)
		}
		cur = m
	}
	cur[path[len(path)-1]] = value
	return nil
}

func joinPath(path []string) string {
	return strings.Join(path, ".")
}

// deepCopyMap creates a deep copy of a map[string]any.
func deepCopyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	cp := make(map[string]any, len(m))
	for k, v := range m {
		cp[k] = deepCopyAny(v)
	}
	return cp
}

// deepCopyAny recursively deep-copies maps and slices. Other values are
// returned as-is.
func deepCopyAny(v any) any {
	switch val := v.(type) {
	case map[string]any:
		return deepCopyMap(val)
	case []any:
		cp := make([]any, len(val))
		for i, item := range val {
			cp[i] = deepCopyAny(item)
		}
		return cp
	case []string:
		return append([]string(nil), val...)
	default:
		return v
	}
}

// DeepCopy returns a deep copy of m.
func DeepCopy(m map[string]any) map[string]any {
	return deepCopyMap(m)
}
