package grove

import (
	"github.com/go-gl/mathgl/mgl32"
	"github.com/hajimehoshi/ebiten/v2"
)

// Vertex is a single mesh vertex in model space.
type Vertex struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	U, V     float32
	Color    Color
}

// Recorder receives the draw calls a Geometry issues while a display list is
// being recorded. *DisplayList implements it.
type Recorder interface {
	// DrawTriangles records an indexed triangle list. texture may be nil for
	// untextured geometry. The slices are copied.
	DrawTriangles(vertices []Vertex, indices []uint16, texture *ebiten.Image)
}

// Geometry is a drawable object owned by the cache nodes that share it.
//
// Two validity flags drive CacheNode.Render: ListValid covers the
// geometry's own compiled data, Valid covers what was last drawn into a
// node's display list. Implementations clear them when their data changes.
type Geometry interface {
	// ListValid reports whether CompileList has run since the last change.
	ListValid() bool
	// Valid reports whether the geometry is unchanged since it was last drawn.
	Valid() bool
	// LoadTextures prepares textures and materials ahead of CompileList.
	LoadTextures()
	// CompileList rebuilds the geometry's compiled data and marks ListValid.
	CompileList(mode RenderMode)
	// Draw issues the geometry's draw calls into r and marks Valid.
	Draw(r Recorder, mode RenderMode)
	// BoundingBox returns a freshly computed box in model space.
	BoundingBox() BoundingBox
	// Release frees the geometry. The last cache node sharing it calls this
	// exactly once.
	Release()
}
