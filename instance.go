package grove

import (
	"github.com/go-gl/mathgl/mgl32"
)

// ViewInstance is one drawable placement of a Rep3D: a handle on the
// representation, a copy of each of its cache nodes and a model matrix.
// Instances of the same representation share geometry but each keeps its
// own display lists and bounding boxes.
type ViewInstance struct {
	// Visible controls whether collections draw the instance.
	Visible bool

	id     uint32
	rep    *Rep3D
	nodes  []*CacheNode
	matrix mgl32.Mat4
}

// NewViewInstance derives an instance from rep under a fresh id. The
// instance takes its own handle on rep; the caller keeps ownership of the one
// passed in.
func NewViewInstance(rep *Rep3D) *ViewInstance {
	return newViewInstance(rep, nextID())
}

// newViewInstance derives an instance keyed by id without drawing from the
// id sequence.
func newViewInstance(rep *Rep3D, id uint32) *ViewInstance {
	inst := &ViewInstance{
		Visible: true,
		id:      id,
		rep:     rep.Clone(),
		matrix:  mgl32.Ident4(),
	}
	proto := inst.rep.Nodes()
	inst.nodes = make([]*CacheNode, len(proto))
	for i, n := range proto {
		inst.nodes[i] = n.Copy()
	}
	return inst
}

// ID returns the instance id.
func (v *ViewInstance) ID() uint32 {
	return v.id
}

// SetID overrides the instance id. Changing the id of an instance held by
// a collection corrupts the collection.
func (v *ViewInstance) SetID(id uint32) {
	v.id = id
}

// Rep returns the instance's representation handle. The instance keeps
// ownership.
func (v *ViewInstance) Rep() *Rep3D {
	return v.rep
}

// Nodes returns the instance's cache nodes.
func (v *ViewInstance) Nodes() []*CacheNode {
	return v.nodes
}

// Matrix returns the model matrix.
func (v *ViewInstance) Matrix() mgl32.Mat4 {
	return v.matrix
}

// SetMatrix sets the model matrix.
func (v *ViewInstance) SetMatrix(m mgl32.Mat4) {
	v.matrix = m
}

// Clone returns a new instance with a fresh id sharing v's representation
// and geometry. The caches of the clone start empty.
func (v *ViewInstance) Clone() *ViewInstance {
	c := &ViewInstance{
		Visible: v.Visible,
		id:      nextID(),
		rep:     v.rep.Clone(),
		matrix:  v.matrix,
	}
	c.nodes = make([]*CacheNode, len(v.nodes))
	for i, n := range v.nodes {
		c.nodes[i] = n.Copy()
	}
	return c
}

// Render sets the instance state on the device and renders every node.
func (v *ViewInstance) Render(mode RenderMode) {
	if v.IsReleased() {
		return
	}
	dev := v.rep.Device()
	if dev == nil {
		return
	}
	dev.SetInstance(v.id, v.matrix, mode)
	for _, n := range v.nodes {
		n.Render(mode)
	}
}

// BoundingBox returns the union of the node boxes in world space.
func (v *ViewInstance) BoundingBox() BoundingBox {
	box := NullBoundingBox()
	for _, n := range v.nodes {
		box = box.Union(n.BoundingBox())
	}
	if box.IsEmpty() {
		return box
	}
	return box.Transform(v.matrix)
}

// Release frees the instance's caches and gives up its share of the
// representation and geometry. Releasing twice is a no-op.
func (v *ViewInstance) Release() {
	if v.rep == nil {
		return
	}
	for _, n := range v.nodes {
		n.Release()
	}
	v.nodes = nil
	v.rep.Release()
	v.rep = nil
}

// IsReleased reports whether Release has been called.
func (v *ViewInstance) IsReleased() bool {
	return v.rep == nil
}
