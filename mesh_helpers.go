package grove

import (
	"github.com/go-gl/mathgl/mgl32"
)

// NewBoxMesh creates an axis-aligned box centered on the origin. Each face
// has its own four vertices so normals stay flat.
func NewBoxMesh(name string, width, height, depth float32, c Color) *Mesh {
	hx, hy, hz := width/2, height/2, depth/2
	faces := [6]struct {
		normal mgl32.Vec3
		corner [4]mgl32.Vec3
	}{
		{mgl32.Vec3{0, 0, 1}, [4]mgl32.Vec3{{-hx, -hy, hz}, {hx, -hy, hz}, {hx, hy, hz}, {-hx, hy, hz}}},
		{mgl32.Vec3{0, 0, -1}, [4]mgl32.Vec3{{hx, -hy, -hz}, {-hx, -hy, -hz}, {-hx, hy, -hz}, {hx, hy, -hz}}},
		{mgl32.Vec3{1, 0, 0}, [4]mgl32.Vec3{{hx, -hy, hz}, {hx, -hy, -hz}, {hx, hy, -hz}, {hx, hy, hz}}},
		{mgl32.Vec3{-1, 0, 0}, [4]mgl32.Vec3{{-hx, -hy, -hz}, {-hx, -hy, hz}, {-hx, hy, hz}, {-hx, hy, -hz}}},
		{mgl32.Vec3{0, 1, 0}, [4]mgl32.Vec3{{-hx, hy, hz}, {hx, hy, hz}, {hx, hy, -hz}, {-hx, hy, -hz}}},
		{mgl32.Vec3{0, -1, 0}, [4]mgl32.Vec3{{-hx, -hy, -hz}, {hx, -hy, -hz}, {hx, -hy, hz}, {-hx, -hy, hz}}},
	}
	quadUV := [4][2]float32{{0, 1}, {1, 1}, {1, 0}, {0, 0}}

	verts := make([]Vertex, 0, 24)
	inds := make([]uint16, 0, 36)
	for _, f := range faces {
		base := uint16(len(verts))
		for i, p := range f.corner {
			verts = append(verts, Vertex{
				Position: p,
				Normal:   f.normal,
				U:        quadUV[i][0],
				V:        quadUV[i][1],
				Color:    ColorWhite,
			})
		}
		inds = append(inds, base, base+1, base+2, base, base+2, base+3)
	}
	m := NewMesh(name, verts, inds)
	m.color = c
	return m
}

// NewPlaneMesh creates a horizontal plane in XZ centered on the origin,
// facing +Y.
func NewPlaneMesh(name string, width, depth float32, c Color) *Mesh {
	hx, hz := width/2, depth/2
	up := mgl32.Vec3{0, 1, 0}
	verts := []Vertex{
		{Position: mgl32.Vec3{-hx, 0, hz}, Normal: up, U: 0, V: 1, Color: ColorWhite},
		{Position: mgl32.Vec3{hx, 0, hz}, Normal: up, U: 1, V: 1, Color: ColorWhite},
		{Position: mgl32.Vec3{hx, 0, -hz}, Normal: up, U: 1, V: 0, Color: ColorWhite},
		{Position: mgl32.Vec3{-hx, 0, -hz}, Normal: up, U: 0, V: 0, Color: ColorWhite},
	}
	m := NewMesh(name, verts, []uint16{0, 1, 2, 0, 2, 3})
	m.color = c
	return m
}

// NewPolygonMesh creates a flat convex polygon in the XY plane facing +Z,
// using fan triangulation. Concave polygons may render incorrectly. Returns
// an empty mesh for fewer than 3 points.
func NewPolygonMesh(name string, points []mgl32.Vec2, c Color) *Mesh {
	verts, inds := buildPolygonFan(points)
	m := NewMesh(name, verts, inds)
	m.color = c
	return m
}

// NewPyramidMesh creates a square-based pyramid standing on the XZ plane
// with its apex on +Y.
func NewPyramidMesh(name string, size, height float32, c Color) *Mesh {
	h := size / 2
	apex := mgl32.Vec3{0, height, 0}
	corners := [4]mgl32.Vec3{{-h, 0, h}, {h, 0, h}, {h, 0, -h}, {-h, 0, -h}}

	verts := make([]Vertex, 0, 16)
	inds := make([]uint16, 0, 18)
	for i := 0; i < 4; i++ {
		a, b := corners[i], corners[(i+1)%4]
		n := b.Sub(a).Cross(apex.Sub(a)).Normalize()
		start := uint16(len(verts))
		verts = append(verts,
			Vertex{Position: a, Normal: n, U: 0, V: 1, Color: ColorWhite},
			Vertex{Position: b, Normal: n, U: 1, V: 1, Color: ColorWhite},
			Vertex{Position: apex, Normal: n, U: 0.5, V: 0, Color: ColorWhite},
		)
		inds = append(inds, start, start+1, start+2)
	}
	down := mgl32.Vec3{0, -1, 0}
	start := uint16(len(verts))
	for i := 3; i >= 0; i-- {
		verts = append(verts, Vertex{Position: corners[i], Normal: down, Color: ColorWhite})
	}
	inds = append(inds, start, start+1, start+2, start, start+2, start+3)

	m := NewMesh(name, verts, inds)
	m.color = c
	return m
}

// buildPolygonFan triangulates a convex polygon around vertex 0. UVs map the
// polygon's 2D bounds onto [0, 1].
func buildPolygonFan(points []mgl32.Vec2) ([]Vertex, []uint16) {
	n := len(points)
	if n < 3 {
		return nil, nil
	}

	minX, minY := points[0].X(), points[0].Y()
	maxX, maxY := minX, minY
	for _, p := range points[1:] {
		minX = min(minX, p.X())
		minY = min(minY, p.Y())
		maxX = max(maxX, p.X())
		maxY = max(maxY, p.Y())
	}
	bbW, bbH := maxX-minX, maxY-minY

	normal := mgl32.Vec3{0, 0, 1}
	verts := make([]Vertex, n)
	for i, p := range points {
		v := &verts[i]
		v.Position = mgl32.Vec3{p.X(), p.Y(), 0}
		v.Normal = normal
		v.Color = ColorWhite
		if bbW > 0 {
			v.U = (p.X() - minX) / bbW
		}
		if bbH > 0 {
			v.V = 1 - (p.Y()-minY)/bbH
		}
	}

	inds := make([]uint16, (n-2)*3)
	for i := 0; i < n-2; i++ {
		inds[i*3+0] = 0
		inds[i*3+1] = uint16(i + 1)
		inds[i*3+2] = uint16(i + 2)
	}
	return verts, inds
}
