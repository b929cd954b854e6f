package grove

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// BoundingBox is an axis-aligned box in 3D. The zero value is not a valid
// box; use NullBoundingBox for "nothing to bound".
type BoundingBox struct {
	Min, Max mgl32.Vec3
	valid    bool
}

// NullBoundingBox returns the canonical empty box. It contains nothing and
// is the identity for Union.
func NullBoundingBox() BoundingBox {
	return BoundingBox{}
}

// NewBoundingBox returns the smallest box enclosing points. With no points
// it returns the null box.
func NewBoundingBox(points ...mgl32.Vec3) BoundingBox {
	b := NullBoundingBox()
	for _, p := range points {
		b = b.Combine(p)
	}
	return b
}

// IsEmpty reports whether b is the null box.
func (b BoundingBox) IsEmpty() bool {
	return !b.valid
}

// Combine returns b grown to include p.
func (b BoundingBox) Combine(p mgl32.Vec3) BoundingBox {
	if !b.valid {
		return BoundingBox{Min: p, Max: p, valid: true}
	}
	for i := 0; i < 3; i++ {
		b.Min[i] = float32(math.Min(float64(b.Min[i]), float64(p[i])))
		b.Max[i] = float32(math.Max(float64(b.Max[i]), float64(p[i])))
	}
	return b
}

// Union returns the smallest box enclosing both b and o.
func (b BoundingBox) Union(o BoundingBox) BoundingBox {
	if !o.valid {
		return b
	}
	if !b.valid {
		return o
	}
	return b.Combine(o.Min).Combine(o.Max)
}

// Center returns the box center, or the origin for the null box.
func (b BoundingBox) Center() mgl32.Vec3 {
	if !b.valid {
		return mgl32.Vec3{}
	}
	return b.Min.Add(b.Max).Mul(0.5)
}

// Size returns the extent along each axis.
func (b BoundingBox) Size() mgl32.Vec3 {
	if !b.valid {
		return mgl32.Vec3{}
	}
	return b.Max.Sub(b.Min)
}

// Radius returns half the diagonal length.
func (b BoundingBox) Radius() float32 {
	return b.Size().Len() / 2
}

// Contains reports whether p lies inside b. Points on a face are inside.
func (b BoundingBox) Contains(p mgl32.Vec3) bool {
	if !b.valid {
		return false
	}
	for i := 0; i < 3; i++ {
		if p[i] < b.Min[i] || p[i] > b.Max[i] {
			return false
		}
	}
	return true
}

// Intersects reports whether b and o overlap. Touching boxes intersect.
func (b BoundingBox) Intersects(o BoundingBox) bool {
	if !b.valid || !o.valid {
		return false
	}
	for i := 0; i < 3; i++ {
		if b.Min[i] > o.Max[i] || b.Max[i] < o.Min[i] {
			return false
		}
	}
	return true
}

// Transform returns the axis-aligned box enclosing the eight corners of b
// transformed by m.
func (b BoundingBox) Transform(m mgl32.Mat4) BoundingBox {
	if !b.valid {
		return b
	}
	out := NullBoundingBox()
	for i := 0; i < 8; i++ {
		c := b.Min
		if i&1 != 0 {
			c[0] = b.Max[0]
		}
		if i&2 != 0 {
			c[1] = b.Max[1]
		}
		if i&4 != 0 {
			c[2] = b.Max[2]
		}
		out = out.Combine(mgl32.TransformCoordinate(c, m))
	}
	return out
}

// Equal reports whether b and o describe the same volume.
func (b BoundingBox) Equal(o BoundingBox) bool {
	if b.valid != o.valid {
		return false
	}
	return !b.valid || (b.Min == o.Min && b.Max == o.Max)
}
