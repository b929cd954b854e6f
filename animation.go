package grove

import (
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// TweenGroup animates up to 4 float32 fields of an occurrence's transform
// simultaneously. Create one via the convenience constructors
// (TweenPosition, TweenScale, TweenRotation) and either call Update(dt)
// each frame or hand it to World.AddTween. The group writes the values and
// marks the occurrence dirty so World.SyncTransforms picks them up.
type TweenGroup struct {
	tweens [4]*gween.Tween
	count  int
	fields [4]*float32
	target *StructOccurrence
	Done   bool
}

// Update advances all tweens by dt seconds, writes values to the target
// fields, and marks the occurrence dirty. If the target has been removed from
// its World, Done is set and no writes occur.
func (g *TweenGroup) Update(dt float32) {
	if g.Done {
		return
	}

	if g.target != nil && g.target.IsRemoved() {
		g.Done = true
		return
	}

	allDone := true
	for i := 0; i < g.count; i++ {
		val, finished := g.tweens[i].Update(dt)
		*g.fields[i] = val
		if !finished {
			allDone = false
		}
	}
	g.Done = allDone

	if g.target != nil {
		g.target.MarkDirty()
	}
}

// TweenPosition creates a TweenGroup that animates the occurrence's local
// position to (x, y, z).
func TweenPosition(o *StructOccurrence, x, y, z float32, duration float32, fn ease.TweenFunc) *TweenGroup {
	p := (*[3]float32)(&o.transform().Position)
	return newVec3Tween(o, p, [3]float32{x, y, z}, duration, fn)
}

// TweenScale creates a TweenGroup that animates the occurrence's local
// scale.
func TweenScale(o *StructOccurrence, x, y, z float32, duration float32, fn ease.TweenFunc) *TweenGroup {
	s := (*[3]float32)(&o.transform().Scale)
	return newVec3Tween(o, s, [3]float32{x, y, z}, duration, fn)
}

// TweenRotation creates a TweenGroup that animates the occurrence's Euler
// rotation, in radians.
func TweenRotation(o *StructOccurrence, x, y, z float32, duration float32, fn ease.TweenFunc) *TweenGroup {
	r := (*[3]float32)(&o.transform().Rotation)
	return newVec3Tween(o, r, [3]float32{x, y, z}, duration, fn)
}

func newVec3Tween(o *StructOccurrence, v *[3]float32, to [3]float32, duration float32, fn ease.TweenFunc) *TweenGroup {
	if fn == nil {
		fn = ease.Linear
	}
	g := &TweenGroup{count: 3, target: o}
	for i := 0; i < 3; i++ {
		g.tweens[i] = gween.New(v[i], to[i], duration, fn)
		g.fields[i] = &v[i]
	}
	return g
}
