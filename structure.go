package grove

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Occurrence is a node of the structural graph as the World sees it: a
// unique placement of a structural instance, identified by a stable id.
type Occurrence interface {
	ID() uint32
	Name() string
	HasRepresentation() bool
	StructReference() Reference
	StructInstance() Instance
}

// Reference is a reusable structural definition holding a representation.
type Reference interface {
	Name() string
	RepresentationHandle() Representation
}

// Instance is a placement of a reference inside a parent reference.
type Instance interface {
	Name() string
	StructReference() Reference
}

// WorldMatrixer is implemented by occurrences that know their world
// placement. The World copies it into the render entry.
type WorldMatrixer interface {
	WorldMatrix() mgl32.Mat4
}

// --- StructReference ---

// StructReference is the concrete Reference: a named holder of a
// representation, shareable by many instances.
type StructReference struct {
	name string
	rep  Representation
}

// NewStructReference creates a reference. rep may be nil.
func NewStructReference(name string, rep Representation) *StructReference {
	return &StructReference{name: name, rep: rep}
}

// Name returns the reference name.
func (r *StructReference) Name() string {
	return r.name
}

// RepresentationHandle returns the representation, or nil.
func (r *StructReference) RepresentationHandle() Representation {
	return r.rep
}

// SetRepresentation replaces the representation. Occurrences already
// registered in a World keep their render entry until World.Resync.
func (r *StructReference) SetRepresentation(rep Representation) {
	r.rep = rep
}

// HasRepresentation reports whether the reference holds a non-empty
// representation.
func (r *StructReference) HasRepresentation() bool {
	return r.rep != nil && !r.rep.IsEmpty()
}

// --- StructInstance ---

// StructInstance is the concrete Instance: a named, transformed placement
// of a StructReference.
type StructInstance struct {
	Transform Transform

	name string
	ref  *StructReference
}

// NewStructInstance creates an instance of ref with an identity transform.
func NewStructInstance(name string, ref *StructReference) *StructInstance {
	return &StructInstance{Transform: IdentityTransform(), name: name, ref: ref}
}

// Name returns the instance name, falling back to the reference name.
func (i *StructInstance) Name() string {
	if i.name == "" && i.ref != nil {
		return i.ref.name
	}
	return i.name
}

// StructReference returns the instanced reference, or nil.
func (i *StructInstance) StructReference() Reference {
	if i.ref == nil {
		return nil
	}
	return i.ref
}

// Reference returns the concrete instanced reference, or nil.
func (i *StructInstance) Reference() *StructReference {
	return i.ref
}

// --- StructOccurrence ---

// StructOccurrence is the concrete Occurrence: a node of the occurrence
// tree. Each occurrence owns its StructInstance; its world matrix is the
// composition of the instance transforms from the root down.
type StructOccurrence struct {
	// UserData is free for the application.
	UserData any

	id       uint32
	inst     *StructInstance
	parent   *StructOccurrence
	children []*StructOccurrence

	worldMatrix    mgl32.Mat4
	transformDirty bool
	removed        bool
}

// NewStructOccurrence creates an occurrence of inst with a fresh id.
// A nil inst gets an empty instance with no reference.
func NewStructOccurrence(inst *StructInstance) *StructOccurrence {
	if inst == nil {
		inst = NewStructInstance("", nil)
	}
	return &StructOccurrence{
		id:             nextID(),
		inst:           inst,
		worldMatrix:    mgl32.Ident4(),
		transformDirty: true,
	}
}

// NewRepOccurrence is shorthand for an occurrence of a new reference
// holding rep.
func NewRepOccurrence(name string, rep Representation) *StructOccurrence {
	return NewStructOccurrence(NewStructInstance(name, NewStructReference(name, rep)))
}

// ID returns the occurrence id.
func (o *StructOccurrence) ID() uint32 {
	return o.id
}

// SetID overrides the occurrence id, for loaders restoring persisted ids.
// It must not be called while the occurrence is registered in a World.
func (o *StructOccurrence) SetID(id uint32) {
	o.id = id
}

// IsRemoved reports whether the occurrence was removed from a World and not
// added back since. Tweens on a removed occurrence stop.
func (o *StructOccurrence) IsRemoved() bool {
	return o.removed
}

// Name returns the instance name.
func (o *StructOccurrence) Name() string {
	return o.inst.Name()
}

// HasRepresentation reports whether the occurrence's reference holds a
// non-empty representation.
func (o *StructOccurrence) HasRepresentation() bool {
	return o.inst.ref != nil && o.inst.ref.HasRepresentation()
}

// StructReference returns the occurrence's reference, or nil.
func (o *StructOccurrence) StructReference() Reference {
	return o.inst.StructReference()
}

// StructInstance returns the occurrence's instance.
func (o *StructOccurrence) StructInstance() Instance {
	return o.inst
}

// Instance returns the concrete instance.
func (o *StructOccurrence) Instance() *StructInstance {
	return o.inst
}

// --- Tree manipulation ---

// Parent returns the parent occurrence, or nil for a root.
func (o *StructOccurrence) Parent() *StructOccurrence {
	return o.parent
}

// AddChild appends child to this occurrence's children.
// If child already has a parent, it is removed from that parent first.
// Panics if child is nil or child is an ancestor of this occurrence (cycle).
func (o *StructOccurrence) AddChild(child *StructOccurrence) {
	if child == nil {
		panic("grove: cannot add nil child")
	}
	if isAncestor(child, o) {
		panic("grove: adding child would create a cycle")
	}
	if child.parent != nil {
		child.parent.removeChildByPtr(child)
	}
	child.parent = o
	o.children = append(o.children, child)
	child.MarkDirty()
	if globalDebug {
		debugCheckTreeDepth(child)
	}
}

// RemoveChild detaches child from this occurrence.
// Panics if child's parent is not o.
func (o *StructOccurrence) RemoveChild(child *StructOccurrence) {
	if child.parent != o {
		panic("grove: child's parent is not this occurrence")
	}
	o.removeChildByPtr(child)
	child.parent = nil
	child.MarkDirty()
}

// RemoveFromParent detaches this occurrence from its parent.
// No-op for a root.
func (o *StructOccurrence) RemoveFromParent() {
	if o.parent == nil {
		return
	}
	o.parent.RemoveChild(o)
}

// Children returns the child list. The returned slice MUST NOT be mutated by
// the caller.
func (o *StructOccurrence) Children() []*StructOccurrence {
	return o.children
}

// NumChildren returns the number of children.
func (o *StructOccurrence) NumChildren() int {
	return len(o.children)
}

// Walk visits o and its descendants depth first, parents before children.
// Returning false from fn skips the visited occurrence's children.
func (o *StructOccurrence) Walk(fn func(*StructOccurrence) bool) {
	if !fn(o) {
		return
	}
	for _, c := range o.children {
		c.Walk(fn)
	}
}

// --- World matrix ---

// MarkDirty flags the occurrence and its descendants for world matrix
// recomputation. Call it after editing Instance().Transform directly.
func (o *StructOccurrence) MarkDirty() {
	markSubtreeDirty(o)
}

// TransformDirty reports whether the world matrix is out of date.
func (o *StructOccurrence) TransformDirty() bool {
	for p := o; p != nil; p = p.parent {
		if p.transformDirty {
			return true
		}
	}
	return false
}

// WorldMatrix returns the composition of the instance transforms from the
// root to o, recomputing the stale part of the chain.
func (o *StructOccurrence) WorldMatrix() mgl32.Mat4 {
	var top *StructOccurrence
	for p := o; p != nil; p = p.parent {
		if p.transformDirty {
			top = p
		}
	}
	if top != nil {
		parent := mgl32.Ident4()
		if top.parent != nil {
			parent = top.parent.worldMatrix
		}
		updateWorldMatrix(top, parent, false)
	}
	return o.worldMatrix
}

func (o *StructOccurrence) localMatrix() mgl32.Mat4 {
	return o.inst.Transform.Matrix()
}

func (o *StructOccurrence) transform() *Transform {
	return &o.inst.Transform
}

// --- Helpers ---

// isAncestor reports whether candidate is o or an ancestor of o.
func isAncestor(candidate, o *StructOccurrence) bool {
	for p := o; p != nil; p = p.parent {
		if p == candidate {
			return true
		}
	}
	return false
}

// removeChildByPtr removes child from o.children without clearing its
// parent.
func (o *StructOccurrence) removeChildByPtr(child *StructOccurrence) {
	for i, c := range o.children {
		if c == child {
			copy(o.children[i:], o.children[i+1:])
			o.children[len(o.children)-1] = nil
			o.children = o.children[:len(o.children)-1]
			return
		}
	}
}

// markSubtreeDirty sets transformDirty on o and all its descendants.
func markSubtreeDirty(o *StructOccurrence) {
	o.transformDirty = true
	for _, c := range o.children {
		markSubtreeDirty(c)
	}
}
