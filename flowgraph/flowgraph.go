// Package flowgraph provides data flow analysis and validation for the nodes
// of all cyclers.
//
// Nodes are connected by the store paths they write and read. Edges inside a
// cycler follow execution order; edges between cyclers are latest-value edges
// that never block. A cycle between cyclers is therefore legal and reported
// for information only, while a required input nobody produces is an error.
package flowgraph

import (
	"fmt"
	"reflect"
	"sort"

	"go.uber.org/multierr"

	"github.com/c360/semstreams-robotics/errors"
	"github.com/c360/semstreams-robotics/view"
)

// FlowGraph represents the producer/consumer graph of store paths
type FlowGraph struct {
	nodes map[string]*NodeInfo // "<cycler>/<node>" -> node
	order []string
	edges []FlowEdge
}

// NodeInfo is a node in the flow graph
type NodeInfo struct {
	Cycler   string
	Node     string
	Position int // execution order inside the cycler
	Bindings []view.Binding
}

// ID returns "<cycler>/<node>"
func (n *NodeInfo) ID() string {
	return n.Cycler + "/" + n.Node
}

// NodeRef references a node in the graph
type NodeRef struct {
	Cycler string `json:"cycler"`
	Node   string `json:"node"`
}

// String returns "<cycler>/<node>"
func (r NodeRef) String() string {
	return r.Cycler + "/" + r.Node
}

// EdgeKind classifies how a consumer observes a producer
type EdgeKind string

const (
	// EdgeSameCycle: the producer runs earlier in the same cycle
	EdgeSameCycle EdgeKind = "same_cycle"
	// EdgePreviousCycle: the producer runs later in the same cycler, so the
	// consumer sees the previous cycle's value
	EdgePreviousCycle EdgeKind = "previous_cycle"
	// EdgeLatestValue: the producer belongs to another cycler
	EdgeLatestValue EdgeKind = "latest_value"
)

// FlowEdge connects the writer of a path to one of its readers
type FlowEdge struct {
	From     NodeRef  `json:"from"`
	To       NodeRef  `json:"to"`
	Path     string   `json:"path"`
	Kind     EdgeKind `json:"kind"`
	Required bool     `json:"required"`
}

// FlowAnalysisResult contains the results of the analysis
type FlowAnalysisResult struct {
	Edges            []FlowEdge     `json:"edges"`
	CyclerCycles     [][]string     `json:"cycler_cycles,omitempty"`
	UnreadOutputs    []OrphanedPath `json:"unread_outputs,omitempty"`
	Warnings         []string       `json:"warnings,omitempty"`
	ValidationStatus string         `json:"validation_status"`
}

// OrphanedPath is a main output no node reads
type OrphanedPath struct {
	Path   string  `json:"path"`
	Writer NodeRef `json:"writer"`
}

// NewFlowGraph creates a new empty FlowGraph
func NewFlowGraph() *FlowGraph {
	return &FlowGraph{
		nodes: make(map[string]*NodeInfo),
		edges: make([]FlowEdge, 0),
	}
}

// AddNode adds a node with its bindings
func (g *FlowGraph) AddNode(cycler, node string, position int, bindings []view.Binding) error {
	if cycler == "" || node == "" {
		return errors.WrapInvalid(fmt.Errorf("%w: empty cycler or node name", errors.ErrInvalidConfig),
			"FlowGraph", "AddNode", "name validation")
	}
	info := &NodeInfo{Cycler: cycler, Node: node, Position: position, Bindings: bindings}
	if _, exists := g.nodes[info.ID()]; exists {
		return errors.WrapInvalid(fmt.Errorf("%w: node %s already in graph", errors.ErrInvalidConfig, info.ID()),
			"FlowGraph", "AddNode", "duplicate check")
	}
	g.nodes[info.ID()] = info
	g.order = append(g.order, info.ID())
	return nil
}

// GetNodes returns a copy of the nodes keyed by "<cycler>/<node>"
func (g *FlowGraph) GetNodes() map[string]NodeInfo {
	result := make(map[string]NodeInfo, len(g.nodes))
	for k, v := range g.nodes {
		nodeCopy := *v
		nodeCopy.Bindings = append([]view.Binding(nil), v.Bindings...)
		result[k] = nodeCopy
	}
	return result
}

// GetEdges returns the edges built by Connect
func (g *FlowGraph) GetEdges() []FlowEdge {
	result := make([]FlowEdge, len(g.edges))
	copy(result, g.edges)
	return result
}

type writer struct {
	node *NodeInfo
	role view.Role
}

// Connect builds edges from writers to readers and validates the wiring:
// one writer per path, persistent state confined to one cycler, and every
// required input produced by some main output.
func (g *FlowGraph) Connect() error {
	g.edges = g.edges[:0]
	writers, err := g.buildWriterMap()

	persistentOwner := make(map[string]string)
	for _, id := range g.order {
		n := g.nodes[id]
		for _, b := range n.Bindings {
			if b.Role != view.RolePersistentState {
				continue
			}
			if owner, ok := persistentOwner[b.Path]; ok && owner != n.Cycler {
				err = multierr.Append(err, errors.WrapInvalid(
					fmt.Errorf("%w: persistent state %s used by %s and %s", errors.ErrOwnershipConflict, b.Path, owner, n.Cycler),
					"FlowGraph", "Connect", "persistent state check"))
				continue
			}
			persistentOwner[b.Path] = n.Cycler
		}
	}

	for _, id := range g.order {
		reader := g.nodes[id]
		for _, b := range reader.Bindings {
			if !b.Role.Reads() {
				continue
			}
			required := b.Role == view.RoleRequiredInput

			if owner, ok := persistentOwner[b.Path]; ok {
				err = multierr.Append(err, errors.WrapInvalid(
					fmt.Errorf("%w: %s reads persistent state %s of %s", errors.ErrOwnershipConflict, reader.ID(), b.Path, owner),
					"FlowGraph", "Connect", "persistent state check"))
				continue
			}

			w, ok := writers[b.Path]
			if !ok {
				if required {
					err = multierr.Append(err, errors.WrapInvalid(
						fmt.Errorf("%w: required input %s of %s has no producer", errors.ErrUnknownPath, b.Path, reader.ID()),
						"FlowGraph", "Connect", "producer lookup"))
				}
				continue
			}
			if w.role == view.RoleAdditionalOutput {
				err = multierr.Append(err, errors.WrapInvalid(
					fmt.Errorf("%w: %s reads additional output %s", errors.ErrInvalidConfig, reader.ID(), b.Path),
					"FlowGraph", "Connect", "producer lookup"))
				continue
			}
			if w.node.Type(b.Path) != b.Type {
				err = multierr.Append(err, errors.WrapInvalid(
					fmt.Errorf("%w: %s reads %s as %s, written as %s", errors.ErrTypeMismatch,
						reader.ID(), b.Path, b.Type, w.node.Type(b.Path)),
					"FlowGraph", "Connect", "type check"))
				continue
			}

			g.edges = append(g.edges, FlowEdge{
				From:     NodeRef{Cycler: w.node.Cycler, Node: w.node.Node},
				To:       NodeRef{Cycler: reader.Cycler, Node: reader.Node},
				Path:     b.Path,
				Kind:     classify(w.node, reader),
				Required: required,
			})
		}
	}
	return err
}

// Type returns the type a node binds a path with, nil if it does not bind it
func (n *NodeInfo) Type(path string) reflect.Type {
	for _, b := range n.Bindings {
		if b.Path == path {
			return b.Type
		}
	}
	return nil
}

func classify(from, to *NodeInfo) EdgeKind {
	switch {
	case from.Cycler != to.Cycler:
		return EdgeLatestValue
	case from.Position < to.Position:
		return EdgeSameCycle
	default:
		return EdgePreviousCycle
	}
}

// buildWriterMap maps each written path to its single writer
func (g *FlowGraph) buildWriterMap() (map[string]writer, error) {
	var err error
	writers := make(map[string]writer)
	for _, id := range g.order {
		n := g.nodes[id]
		for _, b := range n.Bindings {
			if b.Role != view.RoleMainOutput && b.Role != view.RoleAdditionalOutput {
				continue
			}
			if existing, ok := writers[b.Path]; ok && existing.node != n {
				err = multierr.Append(err, errors.WrapInvalid(
					fmt.Errorf("%w: %s is written by %s and %s", errors.ErrDuplicateWriter, b.Path, existing.node.ID(), n.ID()),
					"FlowGraph", "Connect", "writer check"))
				continue
			}
			writers[b.Path] = writer{node: n, role: b.Role}
		}
	}
	return writers, err
}

// AnalyzeConnectivity reports cycler cycles, unread outputs and edges a
// reader sees one cycle late. Call it after Connect.
func (g *FlowGraph) AnalyzeConnectivity() *FlowAnalysisResult {
	result := &FlowAnalysisResult{
		Edges:            g.GetEdges(),
		CyclerCycles:     g.findCyclerCycles(),
		UnreadOutputs:    g.findUnreadOutputs(),
		ValidationStatus: "healthy",
	}

	for _, e := range g.edges {
		if e.Kind == EdgePreviousCycle {
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("%s reads %s before %s writes it in the same cycle", e.To, e.Path, e.From))
		}
	}
	for _, cycle := range result.CyclerCycles {
		result.Warnings = append(result.Warnings,
			fmt.Sprintf("cyclers %v depend on each other; their edges are latest-value", cycle))
	}
	if len(result.Warnings) > 0 {
		result.ValidationStatus = "warnings"
	}
	return result
}

// findUnreadOutputs lists main outputs nobody reads. They are only visible
// to telemetry.
func (g *FlowGraph) findUnreadOutputs() []OrphanedPath {
	read := make(map[string]bool)
	for _, e := range g.edges {
		read[e.Path] = true
	}

	var orphans []OrphanedPath
	for _, id := range g.order {
		n := g.nodes[id]
		for _, b := range n.Bindings {
			if b.Role == view.RoleMainOutput && !read[b.Path] {
				orphans = append(orphans, OrphanedPath{Path: b.Path, Writer: NodeRef{Cycler: n.Cycler, Node: n.Node}})
			}
		}
	}
	sort.Slice(orphans, func(i, j int) bool { return orphans[i].Path < orphans[j].Path })
	return orphans
}

// findCyclerCycles uses DFS on the cycler-level graph and returns every
// strongly connected group of more than one cycler
func (g *FlowGraph) findCyclerCycles() [][]string {
	adj := make(map[string]map[string]bool)
	cyclerSet := make(map[string]bool)
	for _, n := range g.nodes {
		cyclerSet[n.Cycler] = true
	}
	for _, e := range g.edges {
		if e.Kind != EdgeLatestValue {
			continue
		}
		if adj[e.From.Cycler] == nil {
			adj[e.From.Cycler] = make(map[string]bool)
		}
		adj[e.From.Cycler][e.To.Cycler] = true
	}

	cyclers := make([]string, 0, len(cyclerSet))
	for c := range cyclerSet {
		cyclers = append(cyclers, c)
	}
	sort.Strings(cyclers)

	var groups [][]string
	assigned := make(map[string]bool)
	for _, c := range cyclers {
		if assigned[c] {
			continue
		}
		forward := make(map[string]bool)
		g.dfs(c, adj, forward)

		var group []string
		for _, other := range cyclers {
			if !forward[other] || assigned[other] {
				continue
			}
			back := make(map[string]bool)
			g.dfs(other, adj, back)
			if back[c] {
				group = append(group, other)
			}
		}
		for _, member := range group {
			assigned[member] = true
		}
		if len(group) > 1 {
			groups = append(groups, group)
		}
	}
	return groups
}

// dfs marks every cycler reachable from start
func (g *FlowGraph) dfs(start string, adj map[string]map[string]bool, visited map[string]bool) {
	visited[start] = true
	next := make([]string, 0, len(adj[start]))
	for n := range adj[start] {
		next = append(next, n)
	}
	sort.Strings(next)
	for _, n := range next {
		if !visited[n] {
			g.dfs(n, adj, visited)
		}
	}
}
