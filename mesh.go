package grove

import (
	"image"

	"github.com/hajimehoshi/ebiten/v2"
)

// Mesh is an indexed triangle geometry with an optional texture. It is the
// built-in Geometry implementation.
//
// Changing vertices, indices, color or texture source invalidates the
// compiled data; swapping an uploaded texture only invalidates what was
// drawn. Mesh is not safe for concurrent use.
type Mesh struct {
	Name string

	vertices []Vertex
	indices  []uint16
	color    Color

	// Texture state. textureSrc is uploaded by LoadTextures.
	textureSrc  image.Image
	texture     *ebiten.Image
	ownsTexture bool

	// Compiled state.
	compiled  []Vertex
	listValid bool
	valid     bool
	revision  uint64
	released  bool
}

// NewMesh creates a mesh from model-space vertices and triangle indices.
// Vertices with a zero Color are drawn white.
func NewMesh(name string, vertices []Vertex, indices []uint16) *Mesh {
	return &Mesh{
		Name:     name,
		vertices: vertices,
		indices:  indices,
		color:    ColorWhite,
	}
}

// Vertices returns the vertex slice. Call SetVertices after modifying it.
func (m *Mesh) Vertices() []Vertex {
	return m.vertices
}

// Indices returns the index slice.
func (m *Mesh) Indices() []uint16 {
	return m.indices
}

// SetVertices replaces the vertices and invalidates the compiled data.
func (m *Mesh) SetVertices(vertices []Vertex) {
	m.vertices = vertices
	m.invalidateList()
}

// SetIndices replaces the indices and invalidates the compiled data.
func (m *Mesh) SetIndices(indices []uint16) {
	m.indices = indices
	m.invalidateList()
}

// Color returns the material tint.
func (m *Mesh) Color() Color {
	return m.color
}

// SetColor sets the material tint baked into the compiled vertices.
func (m *Mesh) SetColor(c Color) {
	if m.color == c {
		return
	}
	m.color = c
	m.invalidateList()
}

// SetTexture sets an already uploaded texture. The mesh does not take
// ownership of img.
func (m *Mesh) SetTexture(img *ebiten.Image) {
	m.dropTexture()
	m.texture = img
	m.Invalidate()
}

// SetTextureImage queues src for upload on the next LoadTextures. The
// uploaded texture is owned by the mesh.
func (m *Mesh) SetTextureImage(src image.Image) {
	m.textureSrc = src
	m.invalidateList()
}

// Texture returns the uploaded texture, or nil.
func (m *Mesh) Texture() *ebiten.Image {
	return m.texture
}

// Invalidate marks what was last drawn as stale. Display lists holding this
// mesh are re-recorded on their next render.
func (m *Mesh) Invalidate() {
	m.valid = false
	m.revision++
}

func (m *Mesh) invalidateList() {
	m.listValid = false
	m.Invalidate()
}

// ListValid reports whether the compiled vertices are current.
func (m *Mesh) ListValid() bool {
	return m.listValid
}

// Valid reports whether the mesh is unchanged since it was last drawn.
func (m *Mesh) Valid() bool {
	return m.valid
}

// Revision counts the mutations of the mesh.
func (m *Mesh) Revision() uint64 {
	return m.revision
}

// LoadTextures uploads a pending texture image.
func (m *Mesh) LoadTextures() {
	if m.textureSrc == nil {
		return
	}
	m.dropTexture()
	m.texture = ebiten.NewImageFromImage(m.textureSrc)
	m.ownsTexture = true
	m.textureSrc = nil
}

// CompileList bakes the material tint into the compiled vertices.
func (m *Mesh) CompileList(mode RenderMode) {
	if cap(m.compiled) < len(m.vertices) {
		m.compiled = make([]Vertex, len(m.vertices))
	}
	m.compiled = m.compiled[:len(m.vertices)]
	for i := range m.vertices {
		v := m.vertices[i]
		if v.Color == (Color{}) {
			v.Color = ColorWhite
		}
		v.Color = v.Color.Mul(m.color)
		m.compiled[i] = v
	}
	m.listValid = true
}

// Draw records the compiled triangles into r.
func (m *Mesh) Draw(r Recorder, mode RenderMode) {
	if !m.listValid {
		m.CompileList(mode)
	}
	r.DrawTriangles(m.compiled, m.indices, m.texture)
	m.valid = true
}

// BoundingBox returns the model-space box of the vertex positions.
func (m *Mesh) BoundingBox() BoundingBox {
	return computeMeshBounds(m.vertices)
}

// Release frees the compiled data and any texture the mesh uploaded.
func (m *Mesh) Release() {
	m.dropTexture()
	m.textureSrc = nil
	m.compiled = nil
	m.vertices = nil
	m.indices = nil
	m.listValid = false
	m.valid = false
	m.released = true
}

// IsReleased reports whether Release has been called.
func (m *Mesh) IsReleased() bool {
	return m.released
}

func (m *Mesh) dropTexture() {
	if m.ownsTexture && m.texture != nil {
		m.texture.Deallocate()
	}
	m.texture = nil
	m.ownsTexture = false
}

// computeMeshBounds scans vertex positions and returns their bounding box.
func computeMeshBounds(verts []Vertex) BoundingBox {
	box := NullBoundingBox()
	for i := range verts {
		box = box.Combine(verts[i].Position)
	}
	return box
}
