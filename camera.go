package grove

import (
	"math"
	"slices"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

const (
	defaultFovY     = math.Pi / 4
	defaultNear     = 0.1
	defaultFar      = 1000
	defaultDistance = 10
	maxPitch        = math.Pi/2 - 0.01
	framePadding    = 1.1
)

// cameraTween drives one camera field.
type cameraTween struct {
	tween *gween.Tween
	field *float32
}

// Camera is an orbit camera: it looks at Target from Distance away, turned
// by Yaw around the Y axis and raised by Pitch.
type Camera struct {
	// Target is the world-space point the camera looks at.
	Target mgl32.Vec3
	// Yaw is the rotation around the Y axis in radians. Zero looks down -Z.
	Yaw float32
	// Pitch is the elevation in radians, clamped to just under ±π/2.
	Pitch float32
	// Distance from Target to the eye.
	Distance float32
	// FovY is the vertical field of view in radians.
	FovY float32
	// Near and Far are the clip plane distances.
	Near, Far float32
	// Viewport is the screen-space rectangle this camera renders into.
	// An empty viewport uses the whole target image.
	Viewport Rect

	tweens []cameraTween
}

// NewCamera creates a camera with default lens values and the given
// viewport.
func NewCamera(viewport Rect) *Camera {
	return &Camera{
		Distance: defaultDistance,
		FovY:     defaultFovY,
		Near:     defaultNear,
		Far:      defaultFar,
		Viewport: viewport,
	}
}

// Eye returns the world-space eye position.
func (c *Camera) Eye() mgl32.Vec3 {
	pitch := float64(clampPitch(c.Pitch))
	yaw := float64(c.Yaw)
	dir := mgl32.Vec3{
		float32(math.Cos(pitch) * math.Sin(yaw)),
		float32(math.Sin(pitch)),
		float32(math.Cos(pitch) * math.Cos(yaw)),
	}
	return c.Target.Add(dir.Mul(c.Distance))
}

// ViewMatrix returns the world-to-eye matrix.
func (c *Camera) ViewMatrix() mgl32.Mat4 {
	return mgl32.LookAtV(c.Eye(), c.Target, mgl32.Vec3{0, 1, 0})
}

// ProjectionMatrix returns the perspective matrix for the viewport's aspect
// ratio.
func (c *Camera) ProjectionMatrix() mgl32.Mat4 {
	return c.projection(float32(c.Viewport.Aspect()))
}

func (c *Camera) projection(aspect float32) mgl32.Mat4 {
	return mgl32.Perspective(c.FovY, aspect, c.Near, c.Far)
}

// WorldToScreen projects a world-space point into viewport pixels. ok is
// false for points behind the eye.
func (c *Camera) WorldToScreen(p mgl32.Vec3) (x, y float64, ok bool) {
	clip := c.ProjectionMatrix().Mul4(c.ViewMatrix()).Mul4x1(p.Vec4(1))
	if clip.W() <= 0 {
		return 0, 0, false
	}
	ndc := clip.Vec3().Mul(1 / clip.W())
	x = c.Viewport.X + float64(ndc.X()+1)/2*c.Viewport.Width
	y = c.Viewport.Y + float64(1-ndc.Y())/2*c.Viewport.Height
	return x, y, true
}

// ScreenToRay returns the world-space ray through a viewport pixel.
func (c *Camera) ScreenToRay(x, y float64) (origin, dir mgl32.Vec3) {
	ndcX := float32((x-c.Viewport.X)/c.Viewport.Width*2 - 1)
	ndcY := float32(1 - (y-c.Viewport.Y)/c.Viewport.Height*2)
	inv := c.ProjectionMatrix().Mul4(c.ViewMatrix()).Inv()
	near := mgl32.TransformCoordinate(mgl32.Vec3{ndcX, ndcY, -1}, inv)
	far := mgl32.TransformCoordinate(mgl32.Vec3{ndcX, ndcY, 1}, inv)
	return near, far.Sub(near).Normalize()
}

// OrbitTo animates Yaw and Pitch to the given angles.
func (c *Camera) OrbitTo(yaw, pitch float32, duration float32, fn ease.TweenFunc) {
	c.animate(&c.Yaw, yaw, duration, fn)
	c.animate(&c.Pitch, clampPitch(pitch), duration, fn)
}

// ZoomTo animates Distance.
func (c *Camera) ZoomTo(distance float32, duration float32, fn ease.TweenFunc) {
	c.animate(&c.Distance, max(distance, c.Near), duration, fn)
}

// LookAt animates Target.
func (c *Camera) LookAt(target mgl32.Vec3, duration float32, fn ease.TweenFunc) {
	c.animate(&c.Target[0], target.X(), duration, fn)
	c.animate(&c.Target[1], target.Y(), duration, fn)
	c.animate(&c.Target[2], target.Z(), duration, fn)
}

// Frame animates Target and Distance so box fills the view. An empty box
// does nothing.
func (c *Camera) Frame(box BoundingBox, duration float32, fn ease.TweenFunc) {
	if box.IsEmpty() {
		return
	}
	c.LookAt(box.Center(), duration, fn)
	c.ZoomTo(frameDistance(box.Radius(), c.FovY), duration, fn)
}

// frameDistance returns the eye distance at which a sphere of the given
// radius fits the vertical field of view.
func frameDistance(radius, fovY float32) float32 {
	if radius <= 0 {
		return defaultDistance
	}
	half := float64(fovY) / 2
	if half <= 0 {
		half = defaultFovY / 2
	}
	return radius / float32(math.Sin(half)) * framePadding
}

// Animating reports whether a tween is in progress.
func (c *Camera) Animating() bool {
	return len(c.tweens) > 0
}

// StopAnimation drops pending tweens, leaving fields where they are.
func (c *Camera) StopAnimation() {
	c.tweens = c.tweens[:0]
}

// animate replaces any tween already driving field. A non-positive
// duration sets the field at once.
func (c *Camera) animate(field *float32, to, duration float32, fn ease.TweenFunc) {
	if duration <= 0 {
		c.tweens = slices.DeleteFunc(c.tweens, func(t cameraTween) bool { return t.field == field })
		*field = to
		return
	}
	if fn == nil {
		fn = ease.Linear
	}
	t := cameraTween{tween: gween.New(*field, to, duration, fn), field: field}
	for i := range c.tweens {
		if c.tweens[i].field == field {
			c.tweens[i] = t
			return
		}
	}
	c.tweens = append(c.tweens, t)
}

// Update advances camera tweens by dt seconds. Called from World.Update.
func (c *Camera) Update(dt float32) {
	if len(c.tweens) == 0 {
		return
	}
	live := c.tweens[:0]
	for _, t := range c.tweens {
		val, done := t.tween.Update(dt)
		*t.field = val
		if !done {
			live = append(live, t)
		}
	}
	clear(c.tweens[len(live):])
	c.tweens = live
	c.Pitch = clampPitch(c.Pitch)
}

func clampPitch(p float32) float32 {
	return max(-maxPitch, min(p, maxPitch))
}
