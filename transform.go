package grove

import (
	"github.com/go-gl/mathgl/mgl32"
)

// Transform is a local placement: translation, Euler rotation and scale
// about a pivot.
type Transform struct {
	Position mgl32.Vec3
	// Rotation holds Euler angles in radians, applied X, then Y, then Z.
	Rotation mgl32.Vec3
	Scale    mgl32.Vec3
	Pivot    mgl32.Vec3
}

// IdentityTransform returns a transform that leaves points unchanged.
func IdentityTransform() Transform {
	return Transform{Scale: mgl32.Vec3{1, 1, 1}}
}

// Matrix composes the transform.
//
//	Translate(-Pivot) -> Scale -> RotateX -> RotateY -> RotateZ -> Translate(Pivot + Position)
func (t Transform) Matrix() mgl32.Mat4 {
	m := mgl32.Translate3D(-t.Pivot.X(), -t.Pivot.Y(), -t.Pivot.Z())
	m = mgl32.Scale3D(t.Scale.X(), t.Scale.Y(), t.Scale.Z()).Mul4(m)
	if t.Rotation != (mgl32.Vec3{}) {
		r := mgl32.HomogRotate3DZ(t.Rotation.Z()).
			Mul4(mgl32.HomogRotate3DY(t.Rotation.Y())).
			Mul4(mgl32.HomogRotate3DX(t.Rotation.X()))
		m = r.Mul4(m)
	}
	p := t.Pivot.Add(t.Position)
	return mgl32.Translate3D(p.X(), p.Y(), p.Z()).Mul4(m)
}

// transformPoint applies m to a point.
func transformPoint(m mgl32.Mat4, p mgl32.Vec3) mgl32.Vec3 {
	return mgl32.TransformCoordinate(p, m)
}

// updateWorldMatrix recomputes o's world matrix and its descendants'.
// parentRecomputed forces recomputation of clean children of a recomputed
// parent.
func updateWorldMatrix(o *StructOccurrence, parent mgl32.Mat4, parentRecomputed bool) {
	recompute := o.transformDirty || parentRecomputed
	if recompute {
		o.worldMatrix = parent.Mul4(o.localMatrix())
		o.transformDirty = false
	}
	for _, c := range o.children {
		updateWorldMatrix(c, o.worldMatrix, recompute)
	}
}

// --- Transform setters ---

// SetPosition sets the local translation and marks the subtree dirty.
func (o *StructOccurrence) SetPosition(x, y, z float32) {
	o.transform().Position = mgl32.Vec3{x, y, z}
	o.MarkDirty()
}

// SetRotation sets the local Euler rotation in radians and marks the
// subtree dirty.
func (o *StructOccurrence) SetRotation(x, y, z float32) {
	o.transform().Rotation = mgl32.Vec3{x, y, z}
	o.MarkDirty()
}

// SetScale sets the local scale and marks the subtree dirty.
func (o *StructOccurrence) SetScale(x, y, z float32) {
	o.transform().Scale = mgl32.Vec3{x, y, z}
	o.MarkDirty()
}

// SetPivot sets the local pivot and marks the subtree dirty.
func (o *StructOccurrence) SetPivot(x, y, z float32) {
	o.transform().Pivot = mgl32.Vec3{x, y, z}
	o.MarkDirty()
}

// LocalToWorld converts a point in the occurrence's space to world space.
func (o *StructOccurrence) LocalToWorld(p mgl32.Vec3) mgl32.Vec3 {
	return transformPoint(o.WorldMatrix(), p)
}

// WorldToLocal converts a world-space point to the occurrence's space.
// Returns p unchanged when the world matrix is singular.
func (o *StructOccurrence) WorldToLocal(p mgl32.Vec3) mgl32.Vec3 {
	m := o.WorldMatrix()
	if d := m.Det(); d > -1e-12 && d < 1e-12 {
		return p
	}
	return transformPoint(m.Inv(), p)
}
