package node

import (
	"fmt"
	"regexp"
	"sort"
	"sync"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/view"
)

var validName = regexp.MustCompile(`^[a-z][a-z0-9_]*$`)

// Registration holds a factory and its metadata
type Registration struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Factory     Factory `json:"-"`
}

// Registry manages node factories
type Registry struct {
	factories map[string]*Registration
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]*Registration)}
}

// RegisterFactory registers a factory under its name
func (r *Registry) RegisterFactory(registration *Registration) error {
	if registration == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterFactory", "registration validation")
	}
	if !validName.MatchString(registration.Name) {
		return errors.WrapInvalid(fmt.Errorf("%w: node name %q", errors.ErrInvalidConfig, registration.Name),
			"Registry", "RegisterFactory", "node name validation")
	}
	if registration.Factory == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Registry", "RegisterFactory", "factory function validation")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.factories[registration.Name]; exists {
		msg := fmt.Errorf("factory '%s' is already registered", registration.Name)
		return errors.WrapInvalid(msg, "Registry", "RegisterFactory", "duplicate factory check")
	}
	r.factories[registration.Name] = registration
	return nil
}

// Create constructs a node through its factory. Any failure, including a
// binding error recorded on the creation view, is fatal.
func (r *Registry) Create(name string, c *view.Creation, deps Dependencies) (Node, error) {
	r.mu.RLock()
	registration, exists := r.factories[name]
	r.mu.RUnlock()

	if !exists {
		return nil, errors.WrapFatal(fmt.Errorf("%w: %s", errors.ErrUnknownNode, name),
			"Registry", "Create", "factory lookup")
	}

	n, err := registration.Factory(c, deps)
	if err != nil {
		return nil, errors.WrapFatal(err, "Registry", "Create", "construction of "+name)
	}
	if err := c.Err(); err != nil {
		return nil, errors.WrapFatal(err, "Registry", "Create", "bindings of "+name)
	}
	if n == nil {
		return nil, errors.WrapFatal(fmt.Errorf("factory returned no node"), "Registry", "Create", "construction of "+name)
	}
	return n, nil
}

// Has reports whether a factory is registered
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[name]
	return ok
}

// List returns every registration sorted by name
func (r *Registry) List() []Registration {
	r.mu.RLock()
	out := make([]Registration, 0, len(r.factories))
	for _, reg := range r.factories {
		out = append(out, *reg)
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}
