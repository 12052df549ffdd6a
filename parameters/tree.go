// Package parameters serves the hierarchical parameter document read by nodes.
//
// The document is held as an immutable, versioned Snapshot. Writers (file load,
// the NATS KV watcher, tooling) build a new snapshot and swap it in atomically;
// cyclers take the current snapshot once per trigger, so a change becomes
// visible to nodes no later than the next cycle boundary.
package parameters

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/tidwall/gjson"

	"github.com/c360/semstreams-robotics/config"
	"github.com/c360/semstreams-robotics/errors"
)

// Snapshot is one immutable version of the parameter document
type Snapshot struct {
	version uint64
	doc     []byte
}

// Version is bumped on every change of the tree
func (s *Snapshot) Version() uint64 {
	return s.version
}

// Document returns the JSON encoding of the whole tree
func (s *Snapshot) Document() []byte {
	return s.doc
}

// Lookup returns the raw JSON value at a dotted path
func (s *Snapshot) Lookup(path string) (json.RawMessage, bool) {
	if path == "" {
		return json.RawMessage(s.doc), true
	}
	result := gjson.GetBytes(s.doc, path)
	if !result.Exists() {
		return nil, false
	}
	return json.RawMessage(result.Raw), true
}

// Decode unmarshals the value at a dotted path into v
func (s *Snapshot) Decode(path string, v any) error {
	raw, ok := s.Lookup(path)
	if !ok {
		return fmt.Errorf("%w: parameter %s", errors.ErrConfigNotFound, path)
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: parameter %s: %v", errors.ErrParsingFailed, path, err)
	}
	return nil
}

// Tree owns the mutable parameter document. It keeps the file-loaded base
// apart from live overrides; a snapshot is always base merged with overrides.
type Tree struct {
	mu        sync.Mutex // serializes writers
	base      map[string]any
	overrides map[string]any
	current   atomic.Pointer[Snapshot]
}

// NewTree creates a tree from a decoded document
func NewTree(doc map[string]any) (*Tree, error) {
	t := &Tree{overrides: make(map[string]any)}
	if err := t.Replace(doc); err != nil {
		return nil, err
	}
	return t, nil
}

// Snapshot returns the current snapshot without blocking writers
func (t *Tree) Snapshot() *Snapshot {
	return t.current.Load()
}

// Replace swaps the base document. Overrides stay in place.
func (t *Tree) Replace(doc map[string]any) error {
	if doc == nil {
		doc = make(map[string]any)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	t.base = doc
	return t.commit()
}

// Set overrides the subtree at a dotted path with a JSON value, creating
// intermediate objects as needed
func (t *Tree) Set(path string, raw json.RawMessage) error {
	if path == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: empty parameter path", errors.ErrInvalidConfig),
			"Tree", "Set", "path validation")
	}

	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %s: %v", errors.ErrParsingFailed, path, err),
			"Tree", "Set", "decode value")
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	overrides := cloneMap(t.overrides)
	parts := strings.Split(path, ".")
	parent := overrides
	for _, key := range parts[:len(parts)-1] {
		child, ok := parent[key].(map[string]any)
		if !ok {
			child = make(map[string]any)
		} else {
			child = cloneMap(child)
		}
		parent[key] = child
		parent = child
	}
	parent[parts[len(parts)-1]] = value

	t.overrides = overrides
	return t.commit()
}

// Delete removes the override at a dotted path, so the base value (if any)
// shows through again. Deleting a path without override is a no-op.
func (t *Tree) Delete(path string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	overrides := cloneMap(t.overrides)
	parts := strings.Split(path, ".")
	chain := []map[string]any{overrides}
	for _, key := range parts[:len(parts)-1] {
		child, ok := chain[len(chain)-1][key].(map[string]any)
		if !ok {
			return nil
		}
		child = cloneMap(child)
		chain[len(chain)-1][key] = child
		chain = append(chain, child)
	}
	if _, ok := chain[len(chain)-1][parts[len(parts)-1]]; !ok {
		return nil
	}
	delete(chain[len(chain)-1], parts[len(parts)-1])

	// an empty override map would still replace a scalar base value
	for i := len(chain) - 1; i > 0 && len(chain[i]) == 0; i-- {
		delete(chain[i-1], parts[i-1])
	}

	t.overrides = overrides
	return t.commit()
}

// commit publishes base merged with overrides; mu must be held
func (t *Tree) commit() error {
	encoded, err := json.Marshal(config.DeepMerge(t.base, t.overrides))
	if err != nil {
		return errors.WrapInvalid(fmt.Errorf("%w: %v", errors.ErrInvalidData, err),
			"Tree", "commit", "encode parameters")
	}

	var version uint64 = 1
	if prev := t.current.Load(); prev != nil {
		version = prev.version + 1
	}
	t.current.Store(&Snapshot{version: version, doc: encoded})
	return nil
}

// cloneMap copies one level, subtrees are copied on the write path
func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
