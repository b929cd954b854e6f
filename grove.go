package grove

import (
	"image/color"
	"math"
)

// Color represents an RGBA color with components in [0, 1]. Not premultiplied.
// Premultiplication occurs at replay time.
type Color struct {
	R, G, B, A float64
}

// ColorWhite is the default tint (no color modification).
var ColorWhite = Color{1, 1, 1, 1}

// DefaultSelectionColor is the tint applied to selected instances when a
// DeviceConfig leaves SelectionColor unset.
var DefaultSelectionColor = Color{1, 0.55, 0.1, 1}

// toRGBA converts to a premultiplied color.RGBA.
func (c Color) toRGBA() color.RGBA {
	return color.RGBA{
		R: uint8(clamp01(c.R*c.A)*255 + 0.5),
		G: uint8(clamp01(c.G*c.A)*255 + 0.5),
		B: uint8(clamp01(c.B*c.A)*255 + 0.5),
		A: uint8(clamp01(c.A)*255 + 0.5),
	}
}

// Mul returns the component-wise product of c and o.
func (c Color) Mul(o Color) Color {
	return Color{c.R * o.R, c.G * o.G, c.B * o.B, c.A * o.A}
}

func clamp01(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}

// MaxPickID is the largest id the picking pass can encode.
const MaxPickID = 1<<24 - 1

// IDColor encodes an instance id into an opaque color for picking passes.
// Only the low 24 bits survive the round trip; see MaxPickID.
func IDColor(id uint32) Color {
	return Color{
		R: float64(id&0xff) / 255,
		G: float64((id>>8)&0xff) / 255,
		B: float64((id>>16)&0xff) / 255,
		A: 1,
	}
}

// ColorID decodes a color produced by IDColor.
func ColorID(c color.RGBA) uint32 {
	return uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16
}

// RenderMode tells geometry and devices which pass is being drawn.
type RenderMode uint8

const (
	RenderNormal   RenderMode = iota // regular shaded draw
	RenderSelected                   // draw with the selection highlight
	RenderPicking                    // flat id colors for picking
)

// String returns the mode name.
func (m RenderMode) String() string {
	switch m {
	case RenderNormal:
		return "normal"
	case RenderSelected:
		return "selected"
	case RenderPicking:
		return "picking"
	default:
		return "unknown"
	}
}

// ShaderID identifies a shading program registered on a Device. Zero means
// the device's default program.
type ShaderID uint16

// EventType identifies a kind of world event.
type EventType uint8

const (
	EventOccurrenceAdded   EventType = iota // an occurrence was registered
	EventOccurrenceRemoved                  // an occurrence was unregistered
	EventSelected                           // an instance was selected
	EventUnselected                         // an instance was unselected
	EventResynced                           // an instance was rebuilt from its representation
)

// String returns the event name.
func (t EventType) String() string {
	switch t {
	case EventOccurrenceAdded:
		return "added"
	case EventOccurrenceRemoved:
		return "removed"
	case EventSelected:
		return "selected"
	case EventUnselected:
		return "unselected"
	case EventResynced:
		return "resynced"
	default:
		return "unknown"
	}
}

// Rect is a screen-space rectangle. The origin is the top-left corner with Y
// increasing downward.
type Rect struct {
	X, Y, Width, Height float64
}

// Contains reports whether the point (x, y) lies inside the rectangle.
// Points on the edge are considered inside.
func (r Rect) Contains(x, y float64) bool {
	return x >= r.X && x <= r.X+r.Width &&
		y >= r.Y && y <= r.Y+r.Height
}

// Aspect returns Width/Height, or 1 for an empty rectangle.
func (r Rect) Aspect() float64 {
	if r.Width <= 0 || r.Height <= 0 {
		return 1
	}
	return r.Width / r.Height
}

// idCounter is a plain counter (no atomic, grove is single-threaded). It
// hands out occurrence and instance ids from one sequence so the two never
// collide inside a collection.
var idCounter uint32

func nextID() uint32 {
	idCounter++
	return idCounter
}

// rgba8 narrows the 16-bit components returned by color.Color.RGBA.
func rgba8(r, g, b, a uint32) color.RGBA {
	return color.RGBA{R: uint8(r >> 8), G: uint8(g >> 8), B: uint8(b >> 8), A: uint8(a >> 8)}
}
