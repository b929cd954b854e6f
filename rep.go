package grove

// Representation is the renderable form a structural reference hands out.
// The World only knows how to render a *Rep3D; other implementations are
// registered without a render entry being possible.
type Representation interface {
	Name() string
	FileName() string
	IsEmpty() bool
}

// repData is the record shared by every copy of a representation.
type repData struct {
	name     string
	fileName string
	dev      Device
	nodes    []*CacheNode
}

func releaseRepData(d *repData) {
	for _, n := range d.nodes {
		n.Release()
	}
	d.nodes = nil
}

// Rep is a handle on a shared representation record. Copies made with Clone
// or Assign share the record; it is freed when the last handle is released.
//
// A Rep must not be copied by value: use Clone.
type Rep struct {
	rec *shared[*repData]
}

// NewRep creates a representation with a single owner. Empty strings give
// the default representation.
func NewRep(name, fileName string) *Rep {
	return &Rep{rec: newShared(&repData{name: name, fileName: fileName}, releaseRepData)}
}

// Clone returns a new handle on the same record.
// Panics if r has been released.
func (r *Rep) Clone() *Rep {
	if r.rec == nil {
		panic("grove: clone of a released representation")
	}
	return &Rep{rec: r.rec.acquire()}
}

// Assign makes r share src's record, releasing r's previous record first.
// Assigning a handle to itself, or to a handle already sharing its record,
// does nothing.
func (r *Rep) Assign(src *Rep) {
	if r == src || (r.rec != nil && r.rec == src.rec) {
		return
	}
	r.Release()
	if src.rec != nil {
		r.rec = src.rec.acquire()
	}
}

// Release gives up this handle's ownership. The record is freed when no
// handle remains. Releasing an already released handle is a no-op.
func (r *Rep) Release() {
	if r.rec == nil {
		return
	}
	r.rec.drop()
	r.rec = nil
}

// IsReleased reports whether this handle no longer owns a record.
func (r *Rep) IsReleased() bool {
	return r.rec == nil
}

// Owners returns the number of live handles sharing the record.
func (r *Rep) Owners() int {
	if r.rec == nil {
		return 0
	}
	return r.rec.refs
}

// SameRecord reports whether r and o share the same record.
func (r *Rep) SameRecord(o *Rep) bool {
	return r.rec != nil && r.rec == o.rec
}

// Name returns the display name.
func (r *Rep) Name() string {
	if r.rec == nil {
		return ""
	}
	return r.rec.value.name
}

// FileName returns the file the representation was loaded from, if any.
func (r *Rep) FileName() string {
	if r.rec == nil {
		return ""
	}
	return r.rec.value.fileName
}

// IsEmpty reports whether the representation holds no geometry.
func (r *Rep) IsEmpty() bool {
	return r.rec == nil || len(r.rec.value.nodes) == 0
}

// Rep3D is the renderable representation: a Rep whose record also holds the
// prototype cache nodes of its geometry. View instances copy those nodes,
// sharing the geometry while keeping their own display lists.
type Rep3D struct {
	Rep
}

// NewRep3D creates a renderable representation drawing through dev.
func NewRep3D(dev Device, name, fileName string, geoms ...Geometry) *Rep3D {
	r := &Rep3D{Rep: *NewRep(name, fileName)}
	r.rec.value.dev = dev
	for _, g := range geoms {
		r.AddGeometry(g)
	}
	return r
}

// Clone returns a new handle on the same record.
func (r *Rep3D) Clone() *Rep3D {
	return &Rep3D{Rep: *r.Rep.Clone()}
}

// Assign makes r share src's record, releasing r's previous record first.
func (r *Rep3D) Assign(src *Rep3D) {
	r.Rep.Assign(&src.Rep)
}

// AddGeometry appends g to the shared record, so every handle sees it.
// Instances derived earlier keep their node list until they are rebuilt.
// Nil geometry is ignored.
func (r *Rep3D) AddGeometry(g Geometry) {
	if g == nil || r.rec == nil {
		return
	}
	d := r.rec.value
	d.nodes = append(d.nodes, NewCacheNode(d.dev, g))
}

// Nodes returns the prototype cache nodes. The slice MUST NOT be mutated.
func (r *Rep3D) Nodes() []*CacheNode {
	if r.rec == nil {
		return nil
	}
	return r.rec.value.nodes
}

// NumGeometries returns the number of geometries in the representation.
func (r *Rep3D) NumGeometries() int {
	return len(r.Nodes())
}

// Device returns the device the prototype nodes draw through.
func (r *Rep3D) Device() Device {
	if r.rec == nil {
		return nil
	}
	return r.rec.value.dev
}

// BoundingBox returns the union of the geometry bounding boxes in
// representation space.
func (r *Rep3D) BoundingBox() BoundingBox {
	box := NullBoundingBox()
	for _, n := range r.Nodes() {
		box = box.Union(n.BoundingBox())
	}
	return box
}
