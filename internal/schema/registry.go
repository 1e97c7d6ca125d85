package schema

import (
	"sync"

	"github.com/cockroachdb/errors"
)

// Registry holds the record types served by one store.
// It is filled at startup and frozen before use; lookups are safe from
// multiple goroutines.
type Registry struct {
	mu     sync.RWMutex
	types  map[string]*RecordType
	order  []string
	frozen bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{types: make(map[string]*RecordType)}
}

// Register introspects rt and adds it under its table name.
func (r *Registry) Register(rt *RecordType) error {
	if rt == nil {
		return errors.New("register: nil record type")
	}
	if _, err := rt.Introspect(); err != nil {
		return errors.Wrap(err, "register")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen {
		return errors.Wrapf(ErrRegistryFrozen, "register %q", rt.Table)
	}
	if _, exists := r.types[rt.Table]; exists {
		return errors.Wrapf(ErrDuplicateTable, "register %q", rt.Table)
	}
	r.types[rt.Table] = rt
	r.order = append(r.order, rt.Table)
	return nil
}

// Lookup returns the record type registered for table.
func (r *Registry) Lookup(table string) (*RecordType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rt, ok := r.types[table]
	return rt, ok
}

// Types returns the registered record types in registration order.
func (r *Registry) Types() []*RecordType {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*RecordType, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.types[name])
	}
	return out
}

// Freeze rejects further registrations.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.frozen
}
