package grove

// Revisioner is implemented by geometry that counts its own mutations.
// Cache nodes compare the revision they recorded against the current one,
// so every copy sharing the geometry notices a change, not only the first
// copy to draw after it.
type Revisioner interface {
	Revision() uint64
}

// CacheNode draws one geometry through a display list and caches its
// bounding box.
//
// The geometry is shared: copies made with Copy point at the same record and
// the geometry is released when the last copy is. The bounding box and the
// display list belong to each copy and are released with it.
type CacheNode struct {
	dev  Device
	geom *shared[Geometry]

	// Per-copy cache state.
	bbox    *BoundingBox
	boxRev  uint64
	list    *DisplayList
	listRev uint64
}

// NewCacheNode creates a node drawing g through dev. g may be nil and bound
// later with SetGeometry.
func NewCacheNode(dev Device, g Geometry) *CacheNode {
	return &CacheNode{dev: dev, geom: newShared(g, releaseGeometry)}
}

func releaseGeometry(g Geometry) {
	if g == nil {
		return
	}
	g.Release()
	instrumentGeometryReleased()
}

// Copy returns a node sharing n's geometry with an empty cache of its own.
// Panics if n has been released.
func (n *CacheNode) Copy() *CacheNode {
	if n.geom == nil {
		panic("grove: copy of a released cache node")
	}
	return &CacheNode{dev: n.dev, geom: n.geom.acquire()}
}

// Geometry returns the node's geometry, or nil. The node keeps ownership.
func (n *CacheNode) Geometry() Geometry {
	if n.geom == nil {
		return nil
	}
	return n.geom.value
}

// SetGeometry binds g to a node that has no geometry yet and reports true.
// It reports false, leaving the node untouched, when the node already holds
// a geometry, g is nil, or the node has been released.
func (n *CacheNode) SetGeometry(g Geometry) bool {
	if n.geom == nil || g == nil || n.geom.value != nil {
		return false
	}
	n.geom.value = g
	return true
}

// Owners returns the number of live nodes sharing the geometry.
func (n *CacheNode) Owners() int {
	if n.geom == nil {
		return 0
	}
	return n.geom.refs
}

// IsReleased reports whether Release has been called on this node.
func (n *CacheNode) IsReleased() bool {
	return n.geom == nil
}

// List returns the node's display list, or nil when none is allocated.
func (n *CacheNode) List() *DisplayList {
	return n.list
}

// ListValid reports whether the node's display list can be replayed as is.
func (n *CacheNode) ListValid() bool {
	g := n.Geometry()
	if g == nil || n.list == nil {
		return false
	}
	return g.Valid() && n.listRev == revisionOf(g)
}

// BoundingBoxValid reports whether the cached bounding box is current. For
// geometry that counts its revisions the revision alone decides; otherwise
// the box is current only while both geometry flags are set.
func (n *CacheNode) BoundingBoxValid() bool {
	g := n.Geometry()
	if g == nil || n.bbox == nil {
		return false
	}
	if r, ok := g.(Revisioner); ok {
		return n.boxRev == r.Revision()
	}
	return g.ListValid() && g.Valid()
}

// BoundingBox returns the geometry's bounding box. A current cached box is
// returned as is; otherwise it is recomputed. A node without geometry
// returns the null box.
func (n *CacheNode) BoundingBox() BoundingBox {
	if n.BoundingBoxValid() {
		return *n.bbox
	}
	if n.Geometry() != nil {
		n.computeBoundingBox()
		return *n.bbox
	}
	return NullBoundingBox()
}

// Render draws the node. Stale geometry is compiled first; the display list
// is recorded when missing or out of date and replayed otherwise. The
// bounding box is recomputed whenever anything was rebuilt.
//
// Render must run on the goroutine owning the device.
func (n *CacheNode) Render(mode RenderMode) {
	g := n.Geometry()
	if g == nil {
		return
	}
	computeBox := false

	if !g.ListValid() {
		g.LoadTextures()
		g.CompileList(mode)
		computeBox = true
	}

	if !g.Valid() || n.list == nil || n.listRev != revisionOf(g) {
		if n.list == nil {
			n.list = n.dev.GenList()
			Logger().Debug("grove: display list allocated", "list", n.list.ID())
		}
		n.dev.NewList(n.list, mode)
		g.Draw(n.list, mode)
		n.dev.EndList(n.list)
		n.listRev = revisionOf(g)
		instrumentListCompiled(mode)
		if globalDebug {
			Logger().Debug("grove: display list recorded", "list", n.list.ID(), "commands", n.list.Len())
		}
		computeBox = true
	} else {
		n.dev.CallList(n.list)
		instrumentListReplayed()
	}

	if computeBox {
		n.computeBoundingBox()
	}
}

// Release drops the node's share of the geometry, freeing it when this was
// the last copy, then frees the node's own bounding box and display list.
// Releasing twice is a no-op.
func (n *CacheNode) Release() {
	if n.geom == nil {
		return
	}
	n.geom.drop()
	n.geom = nil

	n.bbox = nil
	if n.list != nil {
		n.dev.DeleteList(n.list)
		n.list = nil
	}
}

func (n *CacheNode) computeBoundingBox() {
	g := n.geom.value
	box := g.BoundingBox()
	n.bbox = &box
	n.boxRev = revisionOf(g)
	instrumentBoundingBoxComputed()
}

func revisionOf(g Geometry) uint64 {
	if r, ok := g.(Revisioner); ok {
		return r.Revision()
	}
	return 0
}
