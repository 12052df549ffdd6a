// Package store holds the latest published value of every named data slot.
//
// Slots are declared once, when nodes are bound, with a static Go type. Publishing
// replaces a slot's entry and bumps its version. Entries are immutable, so a reader
// always sees either the previous or the complete new value.
package store

import (
	"fmt"
	"reflect"
	"sort"
	"sync"
	"time"

	"k8s.io/utils/clock"

	"github.com/c360/semstreams-robotics/errors"
)

// Kind classifies a slot by how it is produced
type Kind int

const (
	// KindMainOutput is published by exactly one node and read by any node
	KindMainOutput Kind = iota
	// KindAdditionalOutput is diagnostic only and never read by nodes
	KindAdditionalOutput
	// KindPersistentState is owned by one cycler and published for introspection
	KindPersistentState
)

// String returns the string representation of Kind
func (k Kind) String() string {
	switch k {
	case KindMainOutput:
		return "main_output"
	case KindAdditionalOutput:
		return "additional_output"
	case KindPersistentState:
		return "persistent_state"
	default:
		return "unknown"
	}
}

// Declaration binds a node to a slot
type Declaration struct {
	Path   string
	Type   reflect.Type
	Kind   Kind
	Cycler string
	Node   string
	Write  bool
}

// Entry is an immutable published value
type Entry struct {
	Value     any
	Version   uint64
	Published time.Time
}

// SlotInfo describes a slot for introspection tooling
type SlotInfo struct {
	Path    string `json:"path"`
	Type    string `json:"type"`
	Kind    string `json:"kind"`
	Cycler  string `json:"cycler,omitempty"`
	Writer  string `json:"writer,omitempty"`
	Version uint64 `json:"version"`
}

// Write is one pending publication of a batch
type Write struct {
	Path  string
	Value any
}

type slot struct {
	path   string
	typ    reflect.Type
	kind   Kind
	cycler string // owning cycler of a writer or of persistent state
	writer string // "<cycler>/<node>" of the single writer
	entry  *Entry
}

// Store is the only resource shared between cyclers
type Store struct {
	mu    sync.RWMutex
	slots map[string]*slot
	clock clock.PassiveClock
}

// Option configures a Store
type Option func(*Store)

// WithClock sets the clock used to stamp publications
func WithClock(c clock.PassiveClock) Option {
	return func(s *Store) {
		s.clock = c
	}
}

// New creates an empty store
func New(opts ...Option) *Store {
	s := &Store{
		slots: make(map[string]*slot),
		clock: clock.RealClock{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Declare registers a binding. The slot is created on first declaration; later
// declarations must agree on type and kind and must not add a second writer or
// a second owning cycler for persistent state.
func (s *Store) Declare(d Declaration) error {
	if d.Path == "" {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Store", "Declare", "path validation")
	}
	if d.Type == nil {
		return errors.WrapInvalid(errors.ErrInvalidConfig, "Store", "Declare",
			fmt.Sprintf("type validation of %s", d.Path))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sl, exists := s.slots[d.Path]
	if !exists {
		sl = &slot{path: d.Path, typ: d.Type, kind: d.Kind}
		s.slots[d.Path] = sl
	}

	if sl.typ != d.Type {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s is %s, %s/%s binds %s", errors.ErrTypeMismatch, d.Path, sl.typ, d.Cycler, d.Node, d.Type),
			"Store", "Declare", "type check")
	}
	if sl.kind != d.Kind {
		return errors.WrapInvalid(
			fmt.Errorf("%w: %s is a %s, %s/%s binds a %s", errors.ErrTypeMismatch, d.Path, sl.kind, d.Cycler, d.Node, d.Kind),
			"Store", "Declare", "kind check")
	}

	if d.Kind == KindPersistentState {
		if sl.cycler != "" && sl.cycler != d.Cycler {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %s belongs to %s, not %s", errors.ErrOwnershipConflict, d.Path, sl.cycler, d.Cycler),
				"Store", "Declare", "ownership check")
		}
		sl.cycler = d.Cycler
		return nil
	}

	if d.Write {
		writer := d.Cycler + "/" + d.Node
		if sl.writer != "" && sl.writer != writer {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %s is written by %s, %s cannot write it", errors.ErrDuplicateWriter, d.Path, sl.writer, writer),
				"Store", "Declare", "writer check")
		}
		sl.writer = writer
		sl.cycler = d.Cycler
	}
	return nil
}

// Publish replaces the value of one slot
func (s *Store) Publish(path string, value any) error {
	return s.PublishBatch([]Write{{Path: path, Value: value}})
}

// PublishBatch validates every write and then applies all of them under one
// critical section, so other cyclers observe either none or all of the batch.
func (s *Store) PublishBatch(writes []Write) error {
	if len(writes) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range writes {
		sl, exists := s.slots[w.Path]
		if !exists {
			return errors.WrapInvalid(fmt.Errorf("%w: %s", errors.ErrUnknownPath, w.Path),
				"Store", "PublishBatch", "slot lookup")
		}
		if w.Value == nil || !reflect.TypeOf(w.Value).AssignableTo(sl.typ) {
			return errors.WrapInvalid(
				fmt.Errorf("%w: %s expects %s, got %T", errors.ErrTypeMismatch, w.Path, sl.typ, w.Value),
				"Store", "PublishBatch", "value type check")
		}
	}

	now := s.clock.Now()
	for _, w := range writes {
		sl := s.slots[w.Path]
		var version uint64 = 1
		if sl.entry != nil {
			version = sl.entry.Version + 1
		}
		sl.entry = &Entry{Value: w.Value, Version: version, Published: now}
	}
	return nil
}

// Read returns the latest entry of a slot, false if it was never published
func (s *Store) Read(path string) (Entry, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sl, exists := s.slots[path]
	if !exists || sl.entry == nil {
		return Entry{}, false
	}
	return *sl.entry, true
}

// Snapshot captures the current entries of the given paths
func (s *Store) Snapshot(paths []string) Snapshot {
	entries := make(map[string]*Entry, len(paths))

	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, path := range paths {
		if sl, exists := s.slots[path]; exists && sl.entry != nil {
			entries[path] = sl.entry
		}
	}
	return Snapshot{entries: entries}
}

// TypeOf returns the declared type of a slot
func (s *Store) TypeOf(path string) (reflect.Type, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sl, exists := s.slots[path]
	if !exists {
		return nil, false
	}
	return sl.typ, true
}

// Describe lists every declared slot sorted by path
func (s *Store) Describe() []SlotInfo {
	s.mu.RLock()
	infos := make([]SlotInfo, 0, len(s.slots))
	for _, sl := range s.slots {
		info := SlotInfo{
			Path:   sl.path,
			Type:   sl.typ.String(),
			Kind:   sl.kind.String(),
			Cycler: sl.cycler,
			Writer: sl.writer,
		}
		if sl.entry != nil {
			info.Version = sl.entry.Version
		}
		infos = append(infos, info)
	}
	s.mu.RUnlock()

	sort.Slice(infos, func(i, j int) bool { return infos[i].Path < infos[j].Path })
	return infos
}

// Snapshot is a consistent view of a set of slots taken at trigger time
type Snapshot struct {
	entries map[string]*Entry
}

// Get returns the entry of a path captured in the snapshot
func (s Snapshot) Get(path string) (Entry, bool) {
	entry, ok := s.entries[path]
	if !ok {
		return Entry{}, false
	}
	return *entry, true
}

// Len returns the number of captured entries
func (s Snapshot) Len() int {
	return len(s.entries)
}
