package collection

import (
	"fmt"
	"sync"
)

// Registry is the mapping build context: it holds the descriptor of every
// collection role and mints synthetic role names for anonymous collections.
// The synthetic-name counter is scoped to the registry, so two registries
// never influence each other's names.
type Registry struct {
	mu      sync.RWMutex
	roles   map[Role]Persister
	counter int
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{roles: make(map[Role]Persister)}
}

// Register adds a persister for its role. Registering the same role twice is an error.
func (r *Registry) Register(p Persister) error {
	if p == nil {
		return fmt.Errorf("register collection role: nil persister")
	}
	if _, err := SemanticsFor(p.Classification()); err != nil {
		return fmt.Errorf("register collection role %s: %w", p.Role(), err)
	}
	if p.Classification() == SortedSet && p.Comparator() == nil {
		return fmt.Errorf("register collection role %s: sorted set requires a comparator", p.Role())
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.roles[p.Role()]; exists {
		return fmt.Errorf("collection role %s is already registered", p.Role())
	}
	r.roles[p.Role()] = p
	return nil
}

// Lookup returns the persister registered for role.
func (r *Registry) Lookup(role Role) (Persister, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	p, ok := r.roles[role]
	return p, ok
}

// Roles returns the number of registered roles.
func (r *Registry) Roles() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.roles)
}

// SyntheticRole returns a fresh role name for an unnamed collection on owner,
// e.g. "Order._collection3".
func (r *Registry) SyntheticRole(owner string) Role {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counter++
	return Role{Owner: owner, Property: fmt.Sprintf("_collection%d", r.counter)}
}

// Instantiate creates an uninitialized wrapper for the role of key, bound to no session.
func (r *Registry) Instantiate(key Key) (PersistentCollection, error) {
	p, ok := r.Lookup(key.Role)
	if !ok {
		return nil, fmt.Errorf("collection role %s is not registered", key.Role)
	}
	sem, err := SemanticsFor(p.Classification())
	if err != nil {
		return nil, err
	}
	return sem.Instantiate(p, key), nil
}
