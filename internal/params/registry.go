package params

import (
	"fmt"
	"sort"
	"sync"
)

// Registry is the parameter spec catalogue. Registration happens during
// startup; Seal freezes the registry before extraction begins, after
// which all lookups are lock-free reads of immutable data.
type Registry struct {
	mu     sync.Mutex
	sealed bool
	specs  map[string]*Spec
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{specs: make(map[string]*Spec)}
}

// Register adds a spec. Registering a duplicate id or registering after
// Seal is an error.
func (r *Registry) Register(spec Spec) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.sealed {
		return fmt.Errorf("%w: cannot register %q", ErrSealed, spec.ID)
	}
	if spec.ID == "" {
		return fmt.Errorf("spec has empty id")
	}
	if _, exists := r.specs[spec.ID]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateParameter, spec.ID)
	}
	if spec.Category == NotApplicable && spec.Type != TypeNull {
		return fmt.Errorf("not-applicable parameter %q must have null type", spec.ID)
	}
	s := spec
	r.specs[spec.ID] = &s
	return nil
}

// Seal freezes the registry. Idempotent.
func (r *Registry) Seal() {
	r.mu.Lock()
	r.sealed = true
	r.mu.Unlock()
}

// SpecFor returns the spec for an id.
func (r *Registry) SpecFor(id string) (*Spec, bool) {
	s, ok := r.specs[id]
	return s, ok
}

// IDs returns all registered parameter ids in sorted order.
func (r *Registry) IDs() []string {
	ids := make([]string, 0, len(r.specs))
	for id := range r.specs {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Len returns the number of registered specs.
func (r *Registry) Len() int {
	return len(r.specs)
}
