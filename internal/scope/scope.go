// Package scope implements the static scope tree (legal scopes) and the
// runtime scope-instance tree (C2), grounded on the teacher's
// internal/node.Node idiom of a tree-shaped identity carrying a parent
// pointer and an opaque owner, trimmed down to the identity fields this
// domain needs (no execution state).
package scope

import "fmt"

// Legal is a named node in the static scope tree (spec.md §3, "Legal scope
// (LS)"). It is a declaration: "variables with these names may exist here."
type Legal struct {
	name   string
	parent *Legal
}

// NewGlobal creates the single root legal scope. There is exactly one root
// per variable library.
func NewGlobal(name string) *Legal {
	return &Legal{name: name}
}

// Child declares a new legal scope nested under l.
func (l *Legal) Child(name string) *Legal {
	return &Legal{name: name, parent: l}
}

// Name returns the scope's declared name.
func (l *Legal) Name() string { return l.name }

// Parent returns the enclosing legal scope, or nil for the global root.
func (l *Legal) Parent() *Legal { return l.parent }

// IsRoot reports whether l is the global scope.
func (l *Legal) IsRoot() bool { return l.parent == nil }

// Ancestors returns l and every enclosing scope, root last is not included
// twice; the slice starts at l and walks up to (and including) the root.
func (l *Legal) Ancestors() []*Legal {
	var out []*Legal
	for cur := l; cur != nil; cur = cur.parent {
		out = append(out, cur)
	}
	return out
}

// IsRelatedTo reports whether l and other are on the same root-to-leaf path,
// i.e. one is an ancestor (or the same node) of the other. Used to enforce
// the "no shadowing between ancestor and descendant scopes" invariant.
func (l *Legal) IsRelatedTo(other *Legal) bool {
	for cur := l; cur != nil; cur = cur.parent {
		if cur == other {
			return true
		}
	}
	for cur := other; cur != nil; cur = cur.parent {
		if cur == l {
			return true
		}
	}
	return false
}

// Instance is a runtime node in the scope-instance tree (spec.md §3, "Scope
// instance (SI)"). Each instance has exactly one legal scope, optionally a
// parent instance, and optionally an owner representing the entity the scope
// was opened for.
//
// Invariant: Instance.Legal.Parent() == Instance.Parent().Legal() (or both
// nil), enforced by Manager.Open.
type Instance struct {
	legal  *Legal
	parent *Instance
	owner  any
	id     uint64
}

// Legal returns the instance's legal scope.
func (si *Instance) Legal() *Legal { return si.legal }

// Parent returns the enclosing scope instance, or nil for the global instance.
func (si *Instance) Parent() *Instance { return si.parent }

// Owner returns the entity this instance was opened for, or nil.
func (si *Instance) Owner() any { return si.owner }

// String returns a stable, human-readable identity for logging and for use
// as a map key alongside a variable name (see internal/vid).
func (si *Instance) String() string {
	if si == nil {
		return "<nil-scope-instance>"
	}
	return fmt.Sprintf("%s#%d", si.legal.name, si.id)
}

// Manager creates scope instances and enforces the parent-consistency
// invariant (spec.md §4.2, "scope manager").
type Manager struct {
	global *Instance
	nextID uint64
}

// NewManager creates a scope manager rooted at the given global legal scope,
// and eagerly opens the single global scope instance.
func NewManager(globalLegal *Legal) *Manager {
	if !globalLegal.IsRoot() {
		panic("scope: NewManager requires a root legal scope")
	}
	m := &Manager{}
	m.global = &Instance{legal: globalLegal, id: m.nextID}
	m.nextID++
	return m
}

// Global returns the single global scope instance.
func (m *Manager) Global() *Instance { return m.global }

// Open creates a new scope instance for legal, nested under parent. It fails
// if legal.Parent() != parent.Legal() (both nil is fine only for the
// already-created global instance; Open itself never creates another root).
// It also fails if parent does not descend from this manager's own global
// instance.
func (m *Manager) Open(legal *Legal, parent *Instance, owner any) (*Instance, error) {
	if legal.IsRoot() {
		return nil, fmt.Errorf("scope: cannot open another instance of the root legal scope %q", legal.Name())
	}
	if parent == nil {
		return nil, fmt.Errorf("scope: non-root legal scope %q requires a parent instance", legal.Name())
	}
	root := parent
	for root.Parent() != nil {
		root = root.Parent()
	}
	if root != m.global {
		return nil, fmt.Errorf("scope: parent instance %s does not belong to this manager's scope tree", parent)
	}
	if legal.Parent() != parent.Legal() {
		return nil, fmt.Errorf("scope: legal scope %q's parent (%s) does not match parent instance's legal scope (%s)",
			legal.Name(), legalName(legal.Parent()), parent.Legal().Name())
	}
	si := &Instance{legal: legal, parent: parent, owner: owner, id: m.nextID}
	m.nextID++
	return si, nil
}

func legalName(l *Legal) string {
	if l == nil {
		return "<none>"
	}
	return l.Name()
}
