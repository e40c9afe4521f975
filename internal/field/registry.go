package field

// NodeRegistry is a bidirectional mapping between opaque domain objects and
// dense integer ids. Ids are assigned monotonically and never reused, so an
// id observed once stays bound to the same object for the whole run. The
// id-to-object direction is double-buffered: writers mutate the working
// mapping, readers see the copy published by the owning field.
type NodeRegistry[O comparable] struct {
	objToID map[O]uint32
	idToObj map[uint32]O

	// published id-to-object mapping, replaced wholesale on Publish.
	readIDToObj map[uint32]O

	nextID uint32
}

func NewNodeRegistry[O comparable]() *NodeRegistry[O] {
	return &NodeRegistry[O]{
		objToID:     make(map[O]uint32),
		idToObj:     make(map[uint32]O),
		readIDToObj: make(map[uint32]O),
	}
}

// Add registers obj under the next id and returns it. An already-registered
// object keeps its existing id; no id is consumed and no binding is orphaned.
func (r *NodeRegistry[O]) Add(obj O) uint32 {
	if id, ok := r.objToID[obj]; ok {
		return id
	}
	id := r.nextID
	r.nextID++
	r.objToID[obj] = id
	r.idToObj[id] = obj
	return id
}

// Remove drops obj from both directions. Returns the freed id and whether
// the object was registered.
func (r *NodeRegistry[O]) Remove(obj O) (uint32, bool) {
	id, ok := r.objToID[obj]
	if !ok {
		return 0, false
	}
	delete(r.objToID, obj)
	delete(r.idToObj, id)
	return id, true
}

// Update replaces the stored payload for an already-known id without
// changing the id. Unregistered objects are a no-op.
func (r *NodeRegistry[O]) Update(obj O) bool {
	id, ok := r.objToID[obj]
	if !ok {
		return false
	}
	r.idToObj[id] = obj
	return true
}

// ID resolves obj against the write-side mapping.
func (r *NodeRegistry[O]) ID(obj O) (uint32, bool) {
	id, ok := r.objToID[obj]
	return id, ok
}

// Object resolves id against the published mapping.
func (r *NodeRegistry[O]) Object(id uint32) (O, bool) {
	obj, ok := r.readIDToObj[id]
	return obj, ok
}

// Publish replaces the published id-to-object mapping with a copy of the
// working one.
func (r *NodeRegistry[O]) Publish() {
	published := make(map[uint32]O, len(r.idToObj))
	for id, obj := range r.idToObj {
		published[id] = obj
	}
	r.readIDToObj = published
}

func (r *NodeRegistry[O]) Len() int {
	return len(r.objToID)
}
