package view

import (
	"fmt"
	"reflect"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/parameters"
)

func read[T any](cy *Cycle, path string) (T, uint64, bool) {
	var zero T
	entry, ok := cy.frame.lookup(path)
	if !ok {
		return zero, 0, false
	}
	value, ok := entry.Value.(T)
	if !ok {
		return zero, 0, false
	}
	return value, entry.Version, true
}

// Input is a required input. The node is skipped with ErrMissingInput while
// the path was never published.
type Input[T any] struct {
	path string
}

// NewInput binds a required input
func NewInput[T any](c *Creation, path string) Input[T] {
	c.bind(path, RoleRequiredInput, reflect.TypeFor[T]())
	in := Input[T]{path: path}
	c.checks = append(c.checks, in)
	return in
}

// Path returns the bound store path
func (in Input[T]) Path() string {
	return in.path
}

// Get returns the current value
func (in Input[T]) Get(cy *Cycle) T {
	value, _, _ := read[T](cy, in.path)
	return value
}

// Version returns the slot version seen by this cycle
func (in Input[T]) Version(cy *Cycle) uint64 {
	_, version, _ := read[T](cy, in.path)
	return version
}

func (in Input[T]) check(cy *Cycle) error {
	if _, _, ok := read[T](cy, in.path); !ok {
		return fmt.Errorf("%w: %s", errors.ErrMissingInput, in.path)
	}
	return nil
}

// OptionalInput may be absent
type OptionalInput[T any] struct {
	path string
}

// NewOptionalInput binds an optional input
func NewOptionalInput[T any](c *Creation, path string) OptionalInput[T] {
	c.bind(path, RoleOptionalInput, reflect.TypeFor[T]())
	return OptionalInput[T]{path: path}
}

// Path returns the bound store path
func (in OptionalInput[T]) Path() string {
	return in.path
}

// Get returns the value and whether it was ever published
func (in OptionalInput[T]) Get(cy *Cycle) (T, bool) {
	value, _, ok := read[T](cy, in.path)
	return value, ok
}

// Version returns the slot version seen by this cycle, 0 when absent
func (in OptionalInput[T]) Version(cy *Cycle) uint64 {
	_, version, _ := read[T](cy, in.path)
	return version
}

// PersistentState is a cross-cycle value owned by the node's cycler
type PersistentState[T any] struct {
	path string
}

// NewPersistentState binds persistent state. The first binding of a path in a
// cycler sets the initial value; later bindings share it.
func NewPersistentState[T any](c *Creation, path string, initial T) PersistentState[T] {
	c.bind(path, RolePersistentState, reflect.TypeFor[T]())

	if sl, ok := c.persistent.slots[path]; ok {
		if _, same := sl.ptr.(*T); !same {
			c.fail(fmt.Errorf("%w: persistent state %s is %T, %s binds %s",
				errors.ErrTypeMismatch, path, sl.ptr, c.node, reflect.TypeFor[T]()))
		}
		return PersistentState[T]{path: path}
	}

	ptr := new(T)
	*ptr = initial
	c.persistent.slots[path] = &persistentSlot{
		ptr:  ptr,
		load: func() any { return *ptr },
	}
	c.persistent.order = append(c.persistent.order, path)
	return PersistentState[T]{path: path}
}

// Path returns the bound store path
func (p PersistentState[T]) Path() string {
	return p.path
}

// Get returns the mutable value of the cycle's cycler
func (p PersistentState[T]) Get(cy *Cycle) *T {
	sl, ok := cy.frame.persistent.slots[p.path]
	if !ok {
		return nil
	}
	ptr, _ := sl.ptr.(*T)
	return ptr
}

// Parameter is a read-only value from the parameter tree, decoded once per
// parameter version
type Parameter[T any] struct {
	path    string
	loaded  bool
	version uint64
	value   T
	err     error
}

// NewParameter binds a parameter read at every cycle
func NewParameter[T any](c *Creation, path string) *Parameter[T] {
	c.bind(path, RoleParameter, reflect.TypeFor[T]())
	p := &Parameter[T]{path: path}
	c.checks = append(c.checks, p)
	return p
}

// Path returns the dotted parameter path
func (p *Parameter[T]) Path() string {
	return p.path
}

// Get returns the value of the cycle's parameter snapshot
func (p *Parameter[T]) Get(cy *Cycle) T {
	_ = p.load(cy.frame.params)
	return p.value
}

func (p *Parameter[T]) check(cy *Cycle) error {
	return p.load(cy.frame.params)
}

func (p *Parameter[T]) load(snap *parameters.Snapshot) error {
	if snap == nil {
		return fmt.Errorf("%w: parameter %s without parameter tree", errors.ErrMissingInput, p.path)
	}
	if p.loaded && p.version == snap.Version() {
		return p.err
	}

	p.loaded = true
	p.version = snap.Version()

	var value T
	if err := snap.Decode(p.path, &value); err != nil {
		p.err = fmt.Errorf("%w: %v", errors.ErrMissingInput, err)
		return p.err
	}
	p.value = value
	p.err = nil
	return nil
}

// CreationParameter reads a parameter once at construction time
func CreationParameter[T any](c *Creation, path string) (T, error) {
	var value T
	c.bind(path, RoleParameter, reflect.TypeFor[T]())
	if c.params == nil {
		return value, errors.WrapFatal(fmt.Errorf("%w: parameter %s", errors.ErrMissingConfig, path),
			"Creation", "CreationParameter", "parameter lookup")
	}
	if err := c.params.Decode(path, &value); err != nil {
		return value, errors.WrapFatal(err, "Creation", "CreationParameter", "parameter lookup")
	}
	return value, nil
}

// MainOutput is written at most once per cycle by its node
type MainOutput[T any] struct {
	path  string
	owner string
}

// NewMainOutput binds a main output
func NewMainOutput[T any](c *Creation, path string) MainOutput[T] {
	c.bind(path, RoleMainOutput, reflect.TypeFor[T]())
	return MainOutput[T]{path: path, owner: c.owner()}
}

// Path returns the bound store path
func (o MainOutput[T]) Path() string {
	return o.path
}

// Set stages the value. It is published only if the node's cycle succeeds.
func (o MainOutput[T]) Set(cy *Cycle, value T) error {
	if cy.owner() != o.owner {
		return fmt.Errorf("%w: %s writes %s declared by %s", errors.ErrUndeclaredPath, cy.owner(), o.path, o.owner)
	}
	if _, dup := cy.outputs[o.path]; dup {
		return fmt.Errorf("%w: %s", errors.ErrDuplicateWrite, o.path)
	}
	cy.outputs[o.path] = value
	cy.order = append(cy.order, o.path)
	return nil
}

// AdditionalOutput is diagnostic data emitted to telemetry only
type AdditionalOutput[T any] struct {
	path  string
	owner string
}

// NewAdditionalOutput binds an additional output
func NewAdditionalOutput[T any](c *Creation, path string) AdditionalOutput[T] {
	c.bind(path, RoleAdditionalOutput, reflect.TypeFor[T]())
	return AdditionalOutput[T]{path: path, owner: c.owner()}
}

// Path returns the bound path
func (o AdditionalOutput[T]) Path() string {
	return o.path
}

// Subscribed reports whether anyone consumes the output this cycle
func (o AdditionalOutput[T]) Subscribed(cy *Cycle) bool {
	return cy.frame.subscribed(o.path)
}

// Fill computes and stores the value only when it is subscribed
func (o AdditionalOutput[T]) Fill(cy *Cycle, compute func() T) error {
	if cy.owner() != o.owner {
		return fmt.Errorf("%w: %s writes %s declared by %s", errors.ErrUndeclaredPath, cy.owner(), o.path, o.owner)
	}
	if !cy.frame.subscribed(o.path) {
		return nil
	}
	cy.additional[o.path] = compute()
	return nil
}
