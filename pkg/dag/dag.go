package dag

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
)

var (
	// ErrInvalidNodeID is returned by [DAG.AddNode] when the node ID is empty.
	ErrInvalidNodeID = errors.New("node ID must not be empty")

	// ErrDuplicateNodeID is returned by [DAG.AddNode] when a node with the
	// same ID already exists in the graph.
	ErrDuplicateNodeID = errors.New("duplicate node ID")

	// ErrUnknownSourceNode is returned by [DAG.AddEdge] when the From node
	// does not exist.
	ErrUnknownSourceNode = errors.New("unknown source node")

	// ErrUnknownTargetNode is returned by [DAG.AddEdge] when the To node
	// does not exist.
	ErrUnknownTargetNode = errors.New("unknown target node")

	// ErrGraphHasCycle is matched by every [CycleError].
	ErrGraphHasCycle = errors.New("graph contains a cycle")
)

// CycleError reports a directed cycle. Path starts and ends with the same node.
type CycleError struct {
	Path []string
}

func (e *CycleError) Error() string {
	return fmt.Sprintf("dependency cycle: %s", strings.Join(e.Path, " -> "))
}

// Is makes errors.Is(err, ErrGraphHasCycle) hold for cycle errors.
func (e *CycleError) Is(target error) bool { return target == ErrGraphHasCycle }

// Metadata stores arbitrary key-value pairs attached to nodes, edges or the
// graph. Metadata maps are never nil after insertion.
type Metadata map[string]any

// Node is a vertex of the target graph. Row is the layer assigned by
// [DAG.AssignLayers] and is only used for display.
type Node struct {
	ID   string   // Unique identifier, a build target string
	Row  int      // Layer (0 = nothing depends on it)
	Meta Metadata // Arbitrary key-value metadata (never nil after AddNode)
}

// Edge is a directed dependency edge: From depends on To.
type Edge struct {
	From string
	To   string
	Meta Metadata
}

// DAG is a directed graph of build targets that is required to be acyclic.
// Cycles are not rejected on insertion; [DAG.Validate] reports them with the
// offending path.
//
// The zero value is not usable - use New to create a valid DAG instance.
// DAG is not safe for concurrent use without external synchronization.
type DAG struct {
	nodes    map[string]*Node
	edges    []Edge
	outgoing map[string][]string
	incoming map[string][]string
	meta     Metadata
}

// New creates an empty DAG with optional graph-level metadata.
func New(meta Metadata) *DAG {
	if meta == nil {
		meta = Metadata{}
	}
	return &DAG{
		nodes:    make(map[string]*Node),
		outgoing: make(map[string][]string),
		incoming: make(map[string][]string),
		meta:     meta,
	}
}

// Meta returns the graph-level metadata map.
func (d *DAG) Meta() Metadata { return d.meta }

// AddNode adds a node to the graph.
func (d *DAG) AddNode(n Node) error {
	if n.ID == "" {
		return ErrInvalidNodeID
	}
	if _, exists := d.nodes[n.ID]; exists {
		return ErrDuplicateNodeID
	}
	if n.Meta == nil {
		n.Meta = Metadata{}
	}
	d.nodes[n.ID] = &n
	return nil
}

// AddEdge adds a directed edge between two existing nodes. A repeated edge is
// ignored.
func (d *DAG) AddEdge(e Edge) error {
	if _, ok := d.nodes[e.From]; !ok {
		return ErrUnknownSourceNode
	}
	if _, ok := d.nodes[e.To]; !ok {
		return ErrUnknownTargetNode
	}
	if slices.Contains(d.outgoing[e.From], e.To) {
		return nil
	}
	if e.Meta == nil {
		e.Meta = Metadata{}
	}
	d.edges = append(d.edges, e)
	d.outgoing[e.From] = append(d.outgoing[e.From], e.To)
	d.incoming[e.To] = append(d.incoming[e.To], e.From)
	return nil
}

// Nodes returns all nodes sorted by ID. The pointers refer to the graph's nodes.
func (d *DAG) Nodes() []*Node {
	out := make([]*Node, 0, len(d.nodes))
	for _, id := range d.NodeIDs() {
		out = append(out, d.nodes[id])
	}
	return out
}

// NodeIDs returns all node IDs, sorted.
func (d *DAG) NodeIDs() []string {
	return slices.Sorted(maps.Keys(d.nodes))
}

// Edges returns a copy of all edges in insertion order.
func (d *DAG) Edges() []Edge { return slices.Clone(d.edges) }

// NodeCount returns the number of nodes in the graph.
func (d *DAG) NodeCount() int { return len(d.nodes) }

// EdgeCount returns the number of edges in the graph.
func (d *DAG) EdgeCount() int { return len(d.edges) }

// Children returns the sorted IDs of the nodes id depends on.
func (d *DAG) Children(id string) []string { return sorted(d.outgoing[id]) }

// Parents returns the sorted IDs of the nodes that depend on id.
func (d *DAG) Parents(id string) []string { return sorted(d.incoming[id]) }

// OutDegree returns the number of outgoing edges from the node.
func (d *DAG) OutDegree(id string) int { return len(d.outgoing[id]) }

// InDegree returns the number of incoming edges to the node.
func (d *DAG) InDegree(id string) int { return len(d.incoming[id]) }

// Node returns the node with the given ID and true, or nil and false if not found.
func (d *DAG) Node(id string) (*Node, bool) {
	n, ok := d.nodes[id]
	return n, ok
}

// Sources returns the nodes nothing depends on, sorted by ID.
func (d *DAG) Sources() []*Node {
	var out []*Node
	for _, n := range d.Nodes() {
		if len(d.incoming[n.ID]) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// Sinks returns the nodes without dependencies, sorted by ID.
func (d *DAG) Sinks() []*Node {
	var out []*Node
	for _, n := range d.Nodes() {
		if len(d.outgoing[n.ID]) == 0 {
			out = append(out, n)
		}
	}
	return out
}

// Validate returns a [*CycleError] if the graph has a directed cycle.
// Cycle detection runs in O(N+E) time using depth-first search with
// white/gray/black coloring, visiting nodes and children in sorted order so
// the reported path is deterministic.
func (d *DAG) Validate() error {
	if path := d.FindCycle(); path != nil {
		return &CycleError{Path: path}
	}
	return nil
}

// FindCycle returns the first cycle found, closed by repeating its first
// node, or nil if the graph is acyclic.
func (d *DAG) FindCycle() []string {
	const (
		white = iota
		gray
		black
	)

	color := make(map[string]int, len(d.nodes))
	var stack []string
	var cycle []string

	var dfs func(id string) bool
	dfs = func(id string) bool {
		color[id] = gray
		stack = append(stack, id)
		for _, child := range d.Children(id) {
			switch color[child] {
			case white:
				if dfs(child) {
					return true
				}
			case gray:
				start := slices.Index(stack, child)
				cycle = append(slices.Clone(stack[start:]), child)
				return true
			}
		}
		stack = stack[:len(stack)-1]
		color[id] = black
		return false
	}

	for _, id := range d.NodeIDs() {
		if color[id] == white && dfs(id) {
			return cycle
		}
	}
	return nil
}

// TopoOrder returns the node IDs with every node after all of its
// dependencies. Ties are broken by ID, so the order is deterministic.
func (d *DAG) TopoOrder() ([]string, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	remaining := make(map[string]int, len(d.nodes))
	var ready []string
	for id := range d.nodes {
		remaining[id] = len(d.outgoing[id])
		if remaining[id] == 0 {
			ready = append(ready, id)
		}
	}
	slices.Sort(ready)

	order := make([]string, 0, len(d.nodes))
	for len(ready) > 0 {
		id := ready[0]
		ready = ready[1:]
		order = append(order, id)
		var next []string
		for _, parent := range d.incoming[id] {
			remaining[parent]--
			if remaining[parent] == 0 {
				next = append(next, parent)
			}
		}
		ready = append(ready, next...)
		slices.Sort(ready)
	}
	return order, nil
}

// Reachable returns the sorted IDs of the nodes reachable from roots,
// including the roots themselves. Unknown roots are ignored.
func (d *DAG) Reachable(roots ...string) []string {
	seen := map[string]bool{}
	queue := slices.Clone(roots)
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if seen[id] {
			continue
		}
		if _, ok := d.nodes[id]; !ok {
			continue
		}
		seen[id] = true
		queue = append(queue, d.outgoing[id]...)
	}
	return slices.Sorted(maps.Keys(seen))
}

// Subgraph returns a new graph holding the given nodes and the edges
// between them.
func (d *DAG) Subgraph(ids []string) *DAG {
	sub := New(maps.Clone(d.meta))
	keep := map[string]bool{}
	for _, id := range ids {
		if n, ok := d.nodes[id]; ok {
			keep[id] = true
			_ = sub.AddNode(Node{ID: n.ID, Row: n.Row, Meta: maps.Clone(n.Meta)})
		}
	}
	for _, e := range d.edges {
		if keep[e.From] && keep[e.To] {
			_ = sub.AddEdge(Edge{From: e.From, To: e.To, Meta: maps.Clone(e.Meta)})
		}
	}
	return sub
}

// AssignLayers assigns each node to one plus the maximum row of the nodes
// depending on it, using a longest-path traversal (Kahn's algorithm). Nodes
// nothing depends on are at row 0. Nodes on a cycle keep row 0.
func (d *DAG) AssignLayers() {
	inDegree := make(map[string]int, len(d.nodes))
	rows := make(map[string]int, len(d.nodes))
	var queue []string
	for _, id := range d.NodeIDs() {
		inDegree[id] = len(d.incoming[id])
		if inDegree[id] == 0 {
			queue = append(queue, id)
		}
	}
	for len(queue) > 0 {
		curr := queue[0]
		queue = queue[1:]
		for _, child := range d.Children(curr) {
			if row := rows[curr] + 1; row > rows[child] {
				rows[child] = row
			}
			inDegree[child]--
			if inDegree[child] == 0 {
				queue = append(queue, child)
			}
		}
	}
	for id, n := range d.nodes {
		n.Row = rows[id]
	}
}

// RowIDs returns all row indices in ascending order.
func (d *DAG) RowIDs() []int {
	seen := map[int]bool{}
	for _, n := range d.nodes {
		seen[n.Row] = true
	}
	return slices.Sorted(maps.Keys(seen))
}

// NodesInRow returns the nodes assigned to row, sorted by ID.
func (d *DAG) NodesInRow(row int) []*Node {
	var out []*Node
	for _, n := range d.Nodes() {
		if n.Row == row {
			out = append(out, n)
		}
	}
	return out
}

func sorted(ids []string) []string {
	if len(ids) == 0 {
		return nil
	}
	return slices.Sorted(slices.Values(ids))
}
