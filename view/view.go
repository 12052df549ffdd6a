// Package view binds a node's declared dependencies to the value store.
//
// A node's factory receives a Creation and calls the New* binding constructors
// (NewInput, NewOptionalInput, NewPersistentState, NewParameter, NewMainOutput,
// NewAdditionalOutput) once. Each binding records a store path and a static Go
// type; the cycler declares them in the store before the first trigger, so type
// and ownership conflicts surface at startup. At run time a binding is a thin
// typed accessor over the Frame of the current trigger.
package view

import (
	"fmt"
	"reflect"
	"time"

	"go.uber.org/multierr"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/parameters"
	"github.com/c360/semstreams-robotics/store"
)

// Role is what a node does with a bound path
type Role int

const (
	RoleRequiredInput Role = iota
	RoleOptionalInput
	RolePersistentState
	RoleParameter
	RoleMainOutput
	RoleAdditionalOutput
)

// String returns the string representation of Role
func (r Role) String() string {
	switch r {
	case RoleRequiredInput:
		return "required_input"
	case RoleOptionalInput:
		return "optional_input"
	case RolePersistentState:
		return "persistent_state"
	case RoleParameter:
		return "parameter"
	case RoleMainOutput:
		return "main_output"
	case RoleAdditionalOutput:
		return "additional_output"
	default:
		return "unknown"
	}
}

// Reads reports whether the role reads the value store
func (r Role) Reads() bool {
	return r == RoleRequiredInput || r == RoleOptionalInput
}

// Binding describes one declared dependency of a node
type Binding struct {
	Path string
	Role Role
	Type reflect.Type
}

type checker interface {
	check(cy *Cycle) error
}

// Creation is the construction-time view of one node
type Creation struct {
	cycler     string
	node       string
	params     *parameters.Snapshot
	persistent *Persistent
	bindings   []Binding
	checks     []checker
	err        error
}

// NewCreation creates the construction context of a node
func NewCreation(cycler, node string, params *parameters.Snapshot, persistent *Persistent) *Creation {
	if persistent == nil {
		persistent = NewPersistent(cycler)
	}
	return &Creation{
		cycler:     cycler,
		node:       node,
		params:     params,
		persistent: persistent,
	}
}

// Cycler returns the owning cycler name
func (c *Creation) Cycler() string {
	return c.cycler
}

// Node returns the node name
func (c *Creation) Node() string {
	return c.node
}

// Bindings returns the declared bindings in declaration order
func (c *Creation) Bindings() []Binding {
	out := make([]Binding, len(c.bindings))
	copy(out, c.bindings)
	return out
}

// Reads returns the store paths the node reads
func (c *Creation) Reads() []string {
	var paths []string
	for _, b := range c.bindings {
		if b.Role.Reads() {
			paths = append(paths, b.Path)
		}
	}
	return paths
}

// Declarations converts the bindings that live in the store
func (c *Creation) Declarations() []store.Declaration {
	decls := make([]store.Declaration, 0, len(c.bindings))
	for _, b := range c.bindings {
		d := store.Declaration{Path: b.Path, Type: b.Type, Cycler: c.cycler, Node: c.node}
		switch b.Role {
		case RoleRequiredInput, RoleOptionalInput:
			d.Kind = store.KindMainOutput
		case RoleMainOutput:
			d.Kind = store.KindMainOutput
			d.Write = true
		case RoleAdditionalOutput:
			d.Kind = store.KindAdditionalOutput
			d.Write = true
		case RolePersistentState:
			d.Kind = store.KindPersistentState
		default:
			continue
		}
		decls = append(decls, d)
	}
	return decls
}

// Err returns every binding error collected during construction
func (c *Creation) Err() error {
	return c.err
}

// Check verifies that every required input and parameter resolves in the cycle
func (c *Creation) Check(cy *Cycle) error {
	var err error
	for _, ch := range c.checks {
		err = multierr.Append(err, ch.check(cy))
	}
	return err
}

func (c *Creation) bind(path string, role Role, typ reflect.Type) {
	if path == "" {
		c.fail(fmt.Errorf("%w: %s/%s binds an empty %s path", errors.ErrInvalidConfig, c.cycler, c.node, role))
		return
	}
	for _, b := range c.bindings {
		if b.Path != path {
			continue
		}
		if b.Role == role && b.Type == typ {
			return
		}
		c.fail(fmt.Errorf("%w: %s/%s binds %s as %s and as %s", errors.ErrInvalidConfig,
			c.cycler, c.node, path, b.Role, role))
		return
	}
	c.bindings = append(c.bindings, Binding{Path: path, Role: role, Type: typ})
}

func (c *Creation) fail(err error) {
	c.err = multierr.Append(c.err, errors.WrapInvalid(err, "Creation", "bind", "binding of "+c.node))
}

func (c *Creation) owner() string {
	return c.cycler + "/" + c.node
}

// Persistent holds the persistent state owned by one cycler. Values live
// across cycles and are mutated in place by the cycler's nodes.
type Persistent struct {
	cycler string
	slots  map[string]*persistentSlot
	order  []string
}

type persistentSlot struct {
	ptr  any
	load func() any
}

// NewPersistent creates the persistent state of a cycler
func NewPersistent(cycler string) *Persistent {
	return &Persistent{cycler: cycler, slots: make(map[string]*persistentSlot)}
}

// Writes returns a copy of every persistent value for publication
func (p *Persistent) Writes() []store.Write {
	writes := make([]store.Write, 0, len(p.order))
	for _, path := range p.order {
		writes = append(writes, store.Write{Path: path, Value: p.slots[path].load()})
	}
	return writes
}

// Len returns the number of persistent paths
func (p *Persistent) Len() int {
	return len(p.order)
}

// Frame is the state of one trigger of a cycler: the cycle time, the store
// snapshot taken at trigger time, the parameter snapshot and the main outputs
// already committed by earlier nodes of the same cycle.
type Frame struct {
	cycler     string
	time       time.Time
	snapshot   store.Snapshot
	params     *parameters.Snapshot
	persistent *Persistent
	staged     map[string]store.Entry
	writes     []store.Write
	additional map[string]any
	subscribed func(path string) bool
}

// FrameOption configures a Frame
type FrameOption func(*Frame)

// WithSubscriptions sets the predicate deciding which additional outputs are filled
func WithSubscriptions(fn func(path string) bool) FrameOption {
	return func(f *Frame) {
		f.subscribed = fn
	}
}

// NewFrame creates the frame of one trigger
func NewFrame(cycler string, now time.Time, snapshot store.Snapshot, params *parameters.Snapshot,
	persistent *Persistent, opts ...FrameOption) *Frame {
	if persistent == nil {
		persistent = NewPersistent(cycler)
	}
	f := &Frame{
		cycler:     cycler,
		time:       now,
		snapshot:   snapshot,
		params:     params,
		persistent: persistent,
		staged:     make(map[string]store.Entry),
		additional: make(map[string]any),
		subscribed: func(string) bool { return false },
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Time returns the trigger time
func (f *Frame) Time() time.Time {
	return f.time
}

// Cycler returns the cycler name
func (f *Frame) Cycler() string {
	return f.cycler
}

// Parameters returns the parameter snapshot of the trigger
func (f *Frame) Parameters() *parameters.Snapshot {
	return f.params
}

// Stage makes a value visible to the nodes of this frame and queues it for
// publication. The cycler uses it for values it produces itself, such as the
// cycle time.
func (f *Frame) Stage(path string, value any) {
	f.staged[path] = store.Entry{Value: value, Version: f.nextVersion(path), Published: f.time}
	f.writes = append(f.writes, store.Write{Path: path, Value: value})
}

// Begin starts the cycle of one node
func (f *Frame) Begin(node string) *Cycle {
	return &Cycle{
		frame:      f,
		node:       node,
		outputs:    make(map[string]any),
		additional: make(map[string]any),
	}
}

// Commit stages the outputs of a successful node cycle
func (f *Frame) Commit(cy *Cycle) {
	for _, path := range cy.order {
		f.Stage(path, cy.outputs[path])
	}
	for path, value := range cy.additional {
		f.additional[path] = value
	}
}

// Writes returns the main outputs committed in this frame in commit order
func (f *Frame) Writes() []store.Write {
	return f.writes
}

// Additional returns the additional outputs filled in this frame
func (f *Frame) Additional() map[string]any {
	return f.additional
}

func (f *Frame) lookup(path string) (store.Entry, bool) {
	if entry, ok := f.staged[path]; ok {
		return entry, true
	}
	return f.snapshot.Get(path)
}

func (f *Frame) nextVersion(path string) uint64 {
	if entry, ok := f.lookup(path); ok {
		return entry.Version + 1
	}
	return 1
}

// Cycle is the per-node view of a frame
type Cycle struct {
	frame      *Frame
	node       string
	outputs    map[string]any
	order      []string
	additional map[string]any
}

// Node returns the running node name
func (cy *Cycle) Node() string {
	return cy.node
}

// Time returns the trigger time of the frame
func (cy *Cycle) Time() time.Time {
	return cy.frame.time
}

func (cy *Cycle) owner() string {
	return cy.frame.cycler + "/" + cy.node
}
