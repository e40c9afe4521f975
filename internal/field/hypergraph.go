package field

// EdgeOptions selects the metadata attached to a new hyperedge.
type EdgeOptions[L comparable] struct {
	label  *L
	weight *float32
}

func Simple[L comparable]() EdgeOptions[L] {
	return EdgeOptions[L]{}
}

func Labeled[L comparable](label L) EdgeOptions[L] {
	return EdgeOptions[L]{label: &label}
}

func Weighted[L comparable](weight float32) EdgeOptions[L] {
	return EdgeOptions[L]{weight: &weight}
}

func WeightedLabeled[L comparable](label L, weight float32) EdgeOptions[L] {
	return EdgeOptions[L]{label: &label, weight: &weight}
}

// HyperEdge connects an arbitrary-size set of nodes. Identity is defined
// solely by the node-id set; label and weight are carried metadata and
// excluded from equality, so an edge can be found or removed by its endpoint
// set regardless of what was attached to it.
type HyperEdge[L comparable] struct {
	Nodes  map[uint32]struct{}
	Label  *L
	Weight *float32
}

func newHyperEdge[L comparable](ids []uint32, opts EdgeOptions[L]) HyperEdge[L] {
	nodes := make(map[uint32]struct{}, len(ids))
	for _, id := range ids {
		nodes[id] = struct{}{}
	}
	return HyperEdge[L]{Nodes: nodes, Label: opts.label, Weight: opts.weight}
}

// Equal reports node-id-set equality.
func (e HyperEdge[L]) Equal(other HyperEdge[L]) bool {
	if len(e.Nodes) != len(other.Nodes) {
		return false
	}
	for id := range e.Nodes {
		if _, ok := other.Nodes[id]; !ok {
			return false
		}
	}
	return true
}

func (e HyperEdge[L]) clone() HyperEdge[L] {
	nodes := make(map[uint32]struct{}, len(e.Nodes))
	for id := range e.Nodes {
		nodes[id] = struct{}{}
	}
	out := HyperEdge[L]{Nodes: nodes}
	if e.Label != nil {
		label := *e.Label
		out.Label = &label
	}
	if e.Weight != nil {
		weight := *e.Weight
		out.Weight = &weight
	}
	return out
}

// Hypergraph is a shared field connecting registered domain objects with
// hyperedges. Mutations land in the write generation; readers consume the
// read generation published by Update/LazyUpdate. An edge touching k
// endpoints is stored once per endpoint, so any single endpoint's adjacency
// list is sufficient to find it.
//
// The store assumes cooperative single-writer-per-step access. Every
// mutating operation takes exclusive logical ownership for its duration and
// panics with ErrExclusiveAccess when that is violated.
type Hypergraph[O comparable, L comparable] struct {
	registry *NodeRegistry[O]

	// write generation: node id -> incident hyperedges.
	edges map[uint32][]HyperEdge[L]
	// read generation, replaced wholesale on publish.
	redges map[uint32][]HyperEdge[L]

	guard *guard
}

func NewHypergraph[O comparable, L comparable]() *Hypergraph[O, L] {
	return &Hypergraph[O, L]{
		registry: NewNodeRegistry[O](),
		edges:    make(map[uint32][]HyperEdge[L]),
		redges:   make(map[uint32][]HyperEdge[L]),
		guard:    newGuard(),
	}
}

// AddNode registers a new node and returns its id.
func (h *Hypergraph[O, L]) AddNode(obj O) uint32 {
	h.guard.acquire()
	defer h.guard.release()

	id := h.registry.Add(obj)
	if _, ok := h.edges[id]; !ok {
		h.edges[id] = nil
	}
	return id
}

// UpdateNode replaces the payload stored for an already-known node. Unknown
// nodes are a no-op.
func (h *Hypergraph[O, L]) UpdateNode(obj O) {
	h.guard.acquire()
	defer h.guard.release()

	h.registry.Update(obj)
}

// GetObject resolves an id against the published registry generation.
func (h *Hypergraph[O, L]) GetObject(id uint32) (O, bool) {
	return h.registry.Object(id)
}

// AddEdge appends a hyperedge over the given endpoints to the write
// generation. Returns false when endpoints is empty or any endpoint is
// unregistered. Each endpoint receives its own copy of the edge, so identity
// lookups succeed from any endpoint. Identical endpoint sets with differing
// label or weight coexist; lookups and removals only ever hit the first
// match (documented shadowing, not deduplicated).
func (h *Hypergraph[O, L]) AddEdge(endpoints []O, opts EdgeOptions[L]) bool {
	h.guard.acquire()
	defer h.guard.release()

	ids, ok := h.resolve(endpoints)
	if !ok {
		return false
	}
	for _, id := range ids {
		h.edges[id] = append(h.edges[id], newHyperEdge(ids, opts))
	}
	return true
}

// GetEdge finds an edge by its endpoint set, scanning the first endpoint's
// read-generation adjacency list. O(degree) of that endpoint.
func (h *Hypergraph[O, L]) GetEdge(endpoints []O) (HyperEdge[L], bool) {
	ids, ok := h.resolve(endpoints)
	if !ok {
		return HyperEdge[L]{}, false
	}
	key := newHyperEdge(ids, Simple[L]())
	for _, e := range h.redges[ids[0]] {
		if e.Equal(key) {
			return e.clone(), true
		}
	}
	return HyperEdge[L]{}, false
}

// GetEdges returns the full read-generation adjacency list of a node, or
// false when the node is unregistered.
func (h *Hypergraph[O, L]) GetEdges(node O) ([]HyperEdge[L], bool) {
	id, ok := h.registry.ID(node)
	if !ok {
		return nil, false
	}
	incident, ok := h.redges[id]
	if !ok {
		return nil, false
	}
	out := make([]HyperEdge[L], 0, len(incident))
	for _, e := range incident {
		out = append(out, e.clone())
	}
	return out, true
}

// RemoveEdge removes the first edge matching the endpoint set from every
// endpoint's write-generation adjacency list and returns it.
func (h *Hypergraph[O, L]) RemoveEdge(endpoints []O) (HyperEdge[L], bool) {
	h.guard.acquire()
	defer h.guard.release()

	ids, ok := h.resolve(endpoints)
	if !ok {
		return HyperEdge[L]{}, false
	}
	return h.removeEdgeByIdentity(newHyperEdge(ids, Simple[L]()))
}

// removeEdgeByIdentity strips the matching edge from the adjacency list of
// every endpoint named by the identity key. Caller holds the guard.
func (h *Hypergraph[O, L]) removeEdgeByIdentity(key HyperEdge[L]) (HyperEdge[L], bool) {
	var removed HyperEdge[L]
	found := false
	for id := range key.Nodes {
		incident := h.edges[id]
		for i, e := range incident {
			if e.Equal(key) {
				removed = e
				found = true
				h.edges[id] = append(incident[:i], incident[i+1:]...)
				break
			}
		}
	}
	return removed, found
}

// RemoveObject unregisters a node and purges every hyperedge incident to it
// from every other endpoint's adjacency list. Returns false when the node is
// unregistered.
func (h *Hypergraph[O, L]) RemoveObject(obj O) bool {
	h.guard.acquire()
	defer h.guard.release()

	id, ok := h.registry.ID(obj)
	if !ok {
		return false
	}
	// removeEdgeByIdentity compacts h.edges[id] in place; cascade over a
	// snapshot so no incident edge is skipped.
	incident := append([]HyperEdge[L](nil), h.edges[id]...)
	for _, e := range incident {
		h.removeEdgeByIdentity(e)
	}
	delete(h.edges, id)
	h.registry.Remove(obj)
	return true
}

// RemoveAllEdges clears the entire write generation.
func (h *Hypergraph[O, L]) RemoveAllEdges() {
	h.guard.acquire()
	defer h.guard.release()

	h.edges = make(map[uint32][]HyperEdge[L])
}

// Update publishes the write generation: the read generation of both the
// edge store and the id-to-object mapping is overwritten with a copy of the
// current write state.
func (h *Hypergraph[O, L]) Update() {
	h.guard.acquire()
	defer h.guard.release()

	h.publish()
}

// LazyUpdate is a hook for fields that want deferred publication. This field
// publishes eagerly, identically to Update.
func (h *Hypergraph[O, L]) LazyUpdate() {
	h.guard.acquire()
	defer h.guard.release()

	h.publish()
}

func (h *Hypergraph[O, L]) publish() {
	published := make(map[uint32][]HyperEdge[L], len(h.edges))
	for id, incident := range h.edges {
		frozen := make([]HyperEdge[L], 0, len(incident))
		for _, e := range incident {
			frozen = append(frozen, e.clone())
		}
		published[id] = frozen
	}
	h.redges = published
	h.registry.Publish()
}

// resolve maps endpoints to ids against the write-side registry. False when
// endpoints is empty or any endpoint is unregistered.
func (h *Hypergraph[O, L]) resolve(endpoints []O) ([]uint32, bool) {
	if len(endpoints) == 0 {
		return nil, false
	}
	ids := make([]uint32, 0, len(endpoints))
	for _, obj := range endpoints {
		id, ok := h.registry.ID(obj)
		if !ok {
			return nil, false
		}
		ids = append(ids, id)
	}
	return ids, true
}
